package ingest

import (
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Source kinds understood by the snapshot builder.
const (
	KindIncident     = "incident"
	KindMobilisation = "mobilisation"
	KindBoundary     = "boundary"
)

// Source formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatZIP  = "zip"
)

// Source describes one raw file to fetch and stage.
type Source struct {
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"`
	URL         string `yaml:"url"`
	Format      string `yaml:"format,omitempty"`       // inferred from URL when empty
	Sheet       string `yaml:"sheet,omitempty"`        // xlsx: exact sheet name
	SheetPrefix string `yaml:"sheet_prefix,omitempty"` // xlsx: sheet name prefix
	SkipRows    int    `yaml:"skip_rows,omitempty"`
	Encoding    string `yaml:"encoding,omitempty"` // csv charset, e.g. windows-1252
}

// Manifest is the parsed sources file.
type Manifest struct {
	Sources []Source `yaml:"sources"`
}

// LoadManifest reads and validates a sources manifest from a YAML file.
func LoadManifest(manifestPath string) (*Manifest, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read manifest %s", manifestPath)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "ingest: parse manifest")
	}

	if len(m.Sources) == 0 {
		return nil, eris.New("ingest: manifest has no sources")
	}

	seen := make(map[string]bool, len(m.Sources))
	for i := range m.Sources {
		s := &m.Sources[i]
		if err := s.validate(); err != nil {
			return nil, err
		}
		if seen[s.Name] {
			return nil, eris.Errorf("ingest: duplicate source name %q", s.Name)
		}
		seen[s.Name] = true
		if s.Format == "" {
			s.Format = inferFormat(s.URL)
		}
	}

	return &m, nil
}

// ByKind returns the sources of the given kind, in manifest order.
func (m *Manifest) ByKind(kind string) []Source {
	var out []Source
	for _, s := range m.Sources {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// FileName returns the local file name a source is staged under.
func (s Source) FileName() string {
	u, err := url.Parse(s.URL)
	if err != nil || path.Base(u.Path) == "" || path.Base(u.Path) == "/" {
		return s.Name
	}
	return path.Base(u.Path)
}

func (s *Source) validate() error {
	if s.Name == "" {
		return eris.New("ingest: source missing name")
	}
	if s.URL == "" {
		return eris.Errorf("ingest: source %q missing url", s.Name)
	}
	switch s.Kind {
	case KindIncident, KindMobilisation, KindBoundary:
	default:
		return eris.Errorf("ingest: source %q has unknown kind %q", s.Name, s.Kind)
	}
	if s.Format != "" {
		switch s.Format {
		case FormatCSV, FormatXLSX, FormatZIP:
		default:
			return eris.Errorf("ingest: source %q has unknown format %q", s.Name, s.Format)
		}
	}
	return nil
}

// inferFormat guesses the source format from the URL's file extension.
func inferFormat(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return FormatCSV
	}
	name := strings.ToLower(path.Base(u.Path))
	name = strings.TrimSuffix(name, ".gz")
	switch path.Ext(name) {
	case ".xlsx":
		return FormatXLSX
	case ".zip":
		return FormatZIP
	default:
		return FormatCSV
	}
}
