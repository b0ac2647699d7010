package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Source supplies pipeline settings.
type Source interface {
	Load() (*Settings, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() (*Settings, error)

// Load calls f.
func (f SourceFunc) Load() (*Settings, error) {
	return f()
}

// Static returns a Source that always yields a copy of s, normalized.
func Static(s Settings) Source {
	return SourceFunc(func() (*Settings, error) {
		cp := s
		cp.Sinks = CloneSinks(s.Sinks)
		cp.normalize()
		if err := cp.Validate(); err != nil {
			return nil, err
		}
		return &cp, nil
	})
}

// FileSource reads settings from Path: YAML for ".yaml" and ".yml"
// files, TOML otherwise. A missing file yields defaults unless Required
// is set.
type FileSource struct {
	Path     string
	Required bool
}

// Load implements Source.
func (f FileSource) Load() (*Settings, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !f.Required {
			s := Default()
			return &s, nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	if IsYAML(f.Path) {
		return DecodeYAML(file)
	}
	return Decode(file)
}

// IsYAML reports whether path names a YAML file.
func IsYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Decode parses TOML settings from r, applies defaults and validates.
func Decode(r io.Reader) (*Settings, error) {
	s := Default()
	decoder := toml.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	s.normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// DecodeYAML parses YAML settings from r, applies defaults and validates.
func DecodeYAML(r io.Reader) (*Settings, error) {
	s := Default()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	s.normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// EncodeYAML writes s as YAML.
func EncodeYAML(w io.Writer, s *Settings) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(s); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return encoder.Close()
}

// Encode writes s as TOML.
func Encode(w io.Writer, s *Settings) error {
	encoder := toml.NewEncoder(w)
	if err := encoder.Encode(s); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// CloneSinks deep-copies a sink configuration mapping.
func CloneSinks(m map[string]SinkConfig) map[string]SinkConfig {
	if m == nil {
		return nil
	}
	out := make(map[string]SinkConfig, len(m))
	for name, cfg := range m {
		out[name] = cfg.Clone()
	}
	return out
}
