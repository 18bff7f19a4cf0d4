package actionlog

import (
	"fmt"
	"strings"
)

// maskedValue replaces every string a mask rule matches.
const maskedValue = "******"

// Filter is a registry of field masks applied to an action document before
// it is emitted. Rules name either a context key ("password", equivalently
// "context.password") or the error message field ("error_message"). Matching
// string values are replaced with a fixed mask; a filter with no rules is the
// identity transform.
//
// The filter runs after value truncation. Every non-empty matching value is
// replaced by the same six-character mask, so a value shorter than the mask
// comes out longer than it went in.
type Filter struct {
	Masks []string `json:"masks,omitempty" yaml:"masks,omitempty"`

	contextKeys  map[string]bool
	errorMessage bool
}

// Normalize must be called before the filter can be used.
func (f *Filter) Normalize() []error {
	var errs []error

	f.contextKeys = make(map[string]bool, len(f.Masks))
	f.errorMessage = false

	for _, m := range f.Masks {
		m = strings.TrimSpace(m)
		switch {
		case m == "":
			errs = append(errs, fmt.Errorf("empty mask path"))
		case m == "error_message" || m == "errorMessage":
			f.errorMessage = true
		case strings.HasPrefix(m, "context."):
			f.contextKeys[strings.TrimPrefix(m, "context.")] = true
		case strings.Contains(m, "."):
			errs = append(errs, fmt.Errorf("mask path %q: unknown field", m))
		default:
			f.contextKeys[m] = true
		}
	}

	return errs
}

// String returns an operator-readable representation of the filter.
func (f Filter) String() string {
	if len(f.Masks) <= 0 {
		return "(mask nothing)"
	}
	return fmt.Sprintf("Masks=%v", f.Masks)
}

// Apply masks the document in place.
func (f *Filter) Apply(doc *ActionDocument) {
	if f == nil {
		return
	}

	if f.errorMessage && doc.ErrorMessage != "" {
		doc.ErrorMessage = maskedValue
	}

	if len(f.contextKeys) <= 0 {
		return
	}

	for key, values := range doc.Context {
		if !f.contextKeys[key] {
			continue
		}
		for i, v := range values {
			if v != "" {
				values[i] = maskedValue
			}
		}
	}
}
