// Package codec reads and writes statements, category specs and ventilation
// results as YAML or JSON files.
package codec

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/insightdelivered/statement-ventilation/internal/models"
)

// Format is a structured file format.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
)

// FormatFor picks the format from a file extension; YAML is the default.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return JSON
	}
	return YAML
}

// Encode writes v to w.
func Encode(w io.Writer, f Format, v interface{}) error {
	if f == JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// Decode reads v from r, rejecting unknown fields.
func Decode(r io.Reader, f Format, v interface{}) error {
	if f == JSON {
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		return dec.Decode(v)
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	return dec.Decode(v)
}

// Save writes v to path in the format of its extension.
func Save(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Encode(f, FormatFor(path), v); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// Load reads path into v in the format of its extension.
func Load(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if err := Decode(f, FormatFor(path), v); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// LoadStatements reads a list of statements.
func LoadStatements(path string) ([]models.Statement, error) {
	var statements []models.Statement
	if err := Load(path, &statements); err != nil {
		return nil, err
	}
	return statements, nil
}

// LoadSpec reads and validates a category spec.
func LoadSpec(path string) (models.CategorySpec, error) {
	var spec models.CategorySpec
	if err := Load(path, &spec); err != nil {
		return spec, err
	}
	if err := spec.Validate(); err != nil {
		return spec, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

// LoadResult reads a ventilation result.
func LoadResult(path string) (*models.VentilationResult, error) {
	var res models.VentilationResult
	if err := Load(path, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
