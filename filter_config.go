package actionlog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFilter reads a YAML mask-rule file and returns a normalized Filter.
// The file is a single document of the form:
//
//	masks:
//	  - context.password
//	  - context.authToken
//	  - error_message
//
// The returned filter is immutable after this call; callers must not mutate
// Masks afterwards.
func LoadFilter(path string) (*Filter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read filter config: %w", err)
	}

	var f Filter
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse filter config: %w", err)
	}

	if errs := f.Normalize(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid filter config: %v", errs)
	}

	return &f, nil
}
