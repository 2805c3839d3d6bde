package selectors

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML shape of an operator selector override file.
type fileConfig struct {
	Fields []fieldOverride `yaml:"fields"`
}

type fieldOverride struct {
	Name           string   `yaml:"name"`
	Primary        []Rule   `yaml:"primary"`
	Secondary      []Rule   `yaml:"secondary"`
	Fallback       []Rule   `yaml:"fallback"`
	MinSuccessRate *float64 `yaml:"min_success_rate"`
}

// LoadFile applies operator selector overrides from a YAML file onto the
// registry. Only named fields are touched; validation predicates and
// transformers stay bound to the built-in definitions. This is the one
// sanctioned mutation path outside auto-repair.
func LoadFile(r *Registry, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read selectors file: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("parse selectors file: %w", err)
	}

	for _, override := range cfg.Fields {
		if err := applyOverride(r, override); err != nil {
			return err
		}
	}
	return nil
}

func applyOverride(r *Registry, o fieldOverride) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.fields[o.Name]
	if !ok {
		return fmt.Errorf("selectors file names unknown field %q", o.Name)
	}
	if len(o.Primary) > 0 {
		f.Primary = append([]Rule(nil), o.Primary...)
	}
	if len(o.Secondary) > 0 {
		f.Secondary = append([]Rule(nil), o.Secondary...)
	}
	if len(o.Fallback) > 0 {
		f.Fallback = append([]Rule(nil), o.Fallback...)
	}
	if o.MinSuccessRate != nil {
		if *o.MinSuccessRate < 0 || *o.MinSuccessRate > 1 {
			return fmt.Errorf("field %q: min_success_rate must be in [0,1]", o.Name)
		}
		f.MinSuccessRate = *o.MinSuccessRate
	}
	return nil
}
