package achievement

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type definitionsFile struct {
	Achievements []Definition `yaml:"achievements"`
}

// LoadDefinitions reads achievement definitions from a YAML file.
// An empty path returns DefaultDefinitions.
func LoadDefinitions(path string) ([]Definition, error) {
	if path == "" {
		return DefaultDefinitions(), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile(%s) > %w", path, err)
	}

	var file definitionsFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("yaml.Unmarshal(%s) > %w", path, err)
	}
	if err := ValidateDefinitions(file.Achievements); err != nil {
		return nil, fmt.Errorf("invalid achievements in %s: %w", path, err)
	}
	return file.Achievements, nil
}

func ValidateDefinitions(defs []Definition) error {
	validate := validator.New()
	seen := make(map[string]struct{}, len(defs))
	var msgs []string
	for i, def := range defs {
		if err := validate.Struct(def); err != nil {
			var validationErrors validator.ValidationErrors
			if !errors.As(err, &validationErrors) {
				return err
			}
			for _, e := range validationErrors {
				msgs = append(msgs, fmt.Sprintf("achievements[%d].%s failed on %s", i, e.Field(), e.Tag()))
			}
		}
		if _, ok := knownMetrics[def.Metric]; def.Metric != "" && !ok {
			msgs = append(msgs, fmt.Sprintf("achievements[%d] has unknown metric %q", i, def.Metric))
		}
		if _, ok := seen[def.ID]; ok {
			msgs = append(msgs, fmt.Sprintf("duplicate achievement id %q", def.ID))
		}
		seen[def.ID] = struct{}{}
	}
	if len(msgs) > 0 {
		return errors.New(strings.Join(msgs, ", "))
	}
	return nil
}
