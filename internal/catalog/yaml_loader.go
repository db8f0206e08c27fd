package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Items []Item `yaml:"items"`
}

// LoadFile reads a YAML catalog file.
func LoadFile(path string) (*Catalog, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile(%s) > %w", path, err)
	}
	return Decode(bytes.NewReader(content))
}

// Decode reads a YAML catalog document from r.
func Decode(r io.Reader) (*Catalog, error) {
	var file catalogFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("yaml.Decode() > %w", err)
	}
	if err := Validate(file.Items); err != nil {
		return nil, err
	}
	return New(file.Items)
}

// Validate checks every item's fields.
func Validate(items []Item) error {
	validate := validator.New()
	var msgs []string
	for i, item := range items {
		if err := validate.Struct(item); err != nil {
			var validationErrors validator.ValidationErrors
			if !errors.As(err, &validationErrors) {
				return fmt.Errorf("validate item %d > %w", i, err)
			}
			for _, e := range validationErrors {
				msgs = append(msgs, fmt.Sprintf("items[%d](%s).%s failed on %s", i, item.ID, e.Field(), e.Tag()))
			}
		}
	}
	if len(msgs) > 0 {
		return fmt.Errorf("invalid catalog: %s", strings.Join(msgs, ", "))
	}
	return nil
}
