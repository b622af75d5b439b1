package stats

import "math"

// Distribution tails for the regression and variance-ratio tests, via
// the regularized incomplete beta function. Implemented directly: the
// continued fraction converges in a handful of terms for every df this
// package produces.

// tTestPValue returns the two-sided p-value for a t statistic with df
// degrees of freedom.
func tTestPValue(t float64, df int) float64 {
	if df <= 0 {
		return math.NaN()
	}
	if math.IsInf(t, 0) {
		return 0
	}
	fdf := float64(df)
	x := fdf / (fdf + t*t)
	return regIncompleteBeta(fdf/2, 0.5, x)
}

// fTestPValue returns P(F > f) for an F statistic with df1 and df2
// degrees of freedom.
func fTestPValue(f float64, df1, df2 int) float64 {
	if df1 <= 0 || df2 <= 0 || f < 0 {
		return math.NaN()
	}
	if math.IsInf(f, 1) {
		return 0
	}
	d1, d2 := float64(df1), float64(df2)
	x := d2 / (d2 + d1*f)
	return regIncompleteBeta(d2/2, d1/2, x)
}

// regIncompleteBeta returns I_x(a, b) for x in [0, 1].
func regIncompleteBeta(a, b, x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}

	lgab, _ := math.Lgamma(a + b)
	lga, _ := math.Lgamma(a)
	lgb, _ := math.Lgamma(b)
	front := math.Exp(lgab - lga - lgb + a*math.Log(x) + b*math.Log(1-x))

	// The continued fraction converges fastest on the left of the
	// distribution; use the symmetry relation otherwise.
	if x < (a+1)/(a+b+2) {
		return front * betaContinuedFraction(a, b, x) / a
	}
	return 1 - front*betaContinuedFraction(b, a, 1-x)/b
}

// betaContinuedFraction evaluates the incomplete beta continued
// fraction with Lentz's method.
func betaContinuedFraction(a, b, x float64) float64 {
	const (
		maxIter = 200
		eps     = 3e-14
		tiny    = 1e-300
	)

	qab := a + b
	qap := a + 1
	qam := a - 1

	c := 1.0
	d := 1 - qab*x/qap
	if math.Abs(d) < tiny {
		d = tiny
	}
	d = 1 / d
	h := d

	for m := 1; m <= maxIter; m++ {
		fm := float64(m)
		m2 := 2 * fm

		aa := fm * (b - fm) * x / ((qam + m2) * (a + m2))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		h *= d * c

		aa = -(a + fm) * (qab + fm) * x / ((a + m2) * (qap + m2))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		del := d * c
		h *= del

		if math.Abs(del-1) < eps {
			break
		}
	}
	return h
}
