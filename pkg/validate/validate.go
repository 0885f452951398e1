// Package validate holds the two form validation passes of the wizard. The
// exhibition pass yields an ordered error list that drives the cyclic error
// reviewer; the training pass yields a keyed map that feeds inline per-field
// error text. The two shapes are deliberately distinct types.
package validate

// FieldError is one field-level violation from the exhibition pass. Field is
// a unique key (`artwork-<id>-<prop>` for nested fields, the bare name for
// top-level ones), Order drives the stable total sort, Section is the human
// grouping shown in the reviewer toast.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Order   int    `json:"order"`
	Section string `json:"section"`
}

// KeyedErrors maps a field path to its violation message. Produced by the
// training pass only.
type KeyedErrors map[string]string

// Has reports whether the key carries an error.
func (k KeyedErrors) Has(key string) bool {
	_, ok := k[key]
	return ok
}
