package boundary

import "math"

// The London Datastore publishes borough boundaries on the Ordnance
// Survey National Grid (EPSG:27700). Map overlays need WGS84, so the
// loader reprojects: inverse transverse Mercator on the Airy 1830
// ellipsoid, then a Helmert datum shift onto GRS80. Constants and
// series follow the OS guide to coordinate systems in Great Britain.

// Airy 1830 ellipsoid and National Grid projection parameters.
const (
	airyA = 6377563.396
	airyB = 6356256.909

	gridScale  = 0.9996012717 // scale factor on the central meridian
	gridLat0   = 49.0 * math.Pi / 180
	gridLon0   = -2.0 * math.Pi / 180
	gridEast0  = 400000.0
	gridNorth0 = -100000.0
)

// GRS80 ellipsoid, the WGS84 reference surface.
const (
	grs80A = 6378137.0
	grs80B = 6356752.3141
)

// Helmert parameters for the OSGB36 to WGS84 datum shift.
const (
	helmertTX = 446.448
	helmertTY = -125.157
	helmertTZ = 542.060
	helmertS  = -20.4894e-6
	helmertRX = 0.1502 / 3600 * math.Pi / 180
	helmertRY = 0.2470 / 3600 * math.Pi / 180
	helmertRZ = 0.8421 / 3600 * math.Pi / 180
)

// OSGB36ToWGS84 converts a National Grid easting and northing to a
// WGS84 longitude and latitude in degrees. The Helmert shift is good
// to a few metres across London, which is plenty for boundary
// rendering.
func OSGB36ToWGS84(easting, northing float64) (lon, lat float64) {
	phi, lambda := gridToAiry(easting, northing)
	x, y, z := geodeticToCartesian(phi, lambda, airyA, airyB)
	x, y, z = helmertShift(x, y, z)
	phi, lambda = cartesianToGeodetic(x, y, z, grs80A, grs80B)
	return lambda * 180 / math.Pi, phi * 180 / math.Pi
}

// gridToAiry inverts the National Grid transverse Mercator projection,
// returning geodetic latitude and longitude in radians on Airy 1830.
func gridToAiry(e, n float64) (phi, lambda float64) {
	e2 := 1 - (airyB*airyB)/(airyA*airyA)

	phi = gridLat0
	var m float64
	for {
		phi += (n - gridNorth0 - m) / (airyA * gridScale)
		m = meridionalArc(phi)
		if math.Abs(n-gridNorth0-m) < 1e-5 {
			break
		}
	}

	sinPhi := math.Sin(phi)
	sin2 := sinPhi * sinPhi
	nu := airyA * gridScale / math.Sqrt(1-e2*sin2)
	rho := airyA * gridScale * (1 - e2) / math.Pow(1-e2*sin2, 1.5)
	eta2 := nu/rho - 1

	t := math.Tan(phi)
	t2 := t * t
	t4 := t2 * t2
	t6 := t4 * t2
	sec := 1 / math.Cos(phi)
	nu3 := nu * nu * nu
	nu5 := nu3 * nu * nu
	nu7 := nu5 * nu * nu

	vii := t / (2 * rho * nu)
	viii := t / (24 * rho * nu3) * (5 + 3*t2 + eta2 - 9*t2*eta2)
	ix := t / (720 * rho * nu5) * (61 + 90*t2 + 45*t4)
	x := sec / nu
	xi := sec / (6 * nu3) * (nu/rho + 2*t2)
	xii := sec / (120 * nu5) * (5 + 28*t2 + 24*t4)
	xiia := sec / (5040 * nu7) * (61 + 662*t2 + 1320*t4 + 720*t6)

	de := e - gridEast0
	de2 := de * de
	de3 := de2 * de

	phi = phi - vii*de2 + viii*de2*de2 - ix*de2*de2*de2
	lambda = gridLon0 + x*de - xi*de3 + xii*de3*de2 - xiia*de3*de2*de2
	return phi, lambda
}

// meridionalArc evaluates the developed meridian arc from gridLat0 to
// phi, scaled for the National Grid.
func meridionalArc(phi float64) float64 {
	nr := (airyA - airyB) / (airyA + airyB)
	n2 := nr * nr
	n3 := n2 * nr
	dphi := phi - gridLat0
	sphi := phi + gridLat0

	return airyB * gridScale * ((1+nr+1.25*n2+1.25*n3)*dphi -
		(3*nr+3*n2+2.625*n3)*math.Sin(dphi)*math.Cos(sphi) +
		(1.875*n2+1.875*n3)*math.Sin(2*dphi)*math.Cos(2*sphi) -
		35.0/24*n3*math.Sin(3*dphi)*math.Cos(3*sphi))
}

// geodeticToCartesian converts surface latitude and longitude to
// earth-centred cartesian coordinates on the given ellipsoid.
func geodeticToCartesian(phi, lambda, a, b float64) (x, y, z float64) {
	e2 := 1 - (b*b)/(a*a)
	sinPhi := math.Sin(phi)
	nu := a / math.Sqrt(1-e2*sinPhi*sinPhi)

	x = nu * math.Cos(phi) * math.Cos(lambda)
	y = nu * math.Cos(phi) * math.Sin(lambda)
	z = nu * (1 - e2) * sinPhi
	return x, y, z
}

// helmertShift applies the seven-parameter OSGB36 to WGS84 transform.
func helmertShift(x, y, z float64) (float64, float64, float64) {
	s1 := 1 + helmertS
	x2 := helmertTX + s1*x - helmertRZ*y + helmertRY*z
	y2 := helmertTY + helmertRZ*x + s1*y - helmertRX*z
	z2 := helmertTZ - helmertRY*x + helmertRX*y + s1*z
	return x2, y2, z2
}

// cartesianToGeodetic converts earth-centred cartesian coordinates
// back to surface latitude and longitude on the given ellipsoid.
func cartesianToGeodetic(x, y, z, a, b float64) (phi, lambda float64) {
	e2 := 1 - (b*b)/(a*a)
	p := math.Sqrt(x*x + y*y)

	phi = math.Atan2(z, p*(1-e2))
	for range 8 {
		sinPhi := math.Sin(phi)
		nu := a / math.Sqrt(1-e2*sinPhi*sinPhi)
		phi = math.Atan2(z+e2*nu*sinPhi, p)
	}
	return phi, math.Atan2(y, x)
}
