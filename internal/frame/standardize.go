package frame

import "fmt"

// Standardizer applies (v - mean) / scale per feature dimension. The tables
// must be the ones the training set was prepared with.
//
// Tables of length FieldsPerFrame are broadcast over every frame of a
// flattened window; any other length must match the feature dimension.
type Standardizer struct {
	Mean  []float64
	Scale []float64
}

// Validate checks the tables against a feature dimension.
func (s Standardizer) Validate(dim int) error {
	if len(s.Mean) != len(s.Scale) {
		return fmt.Errorf("frame: scaler has %d means and %d scales", len(s.Mean), len(s.Scale))
	}
	if len(s.Mean) == 0 {
		return nil
	}
	if len(s.Mean) == dim {
		return nil
	}
	if len(s.Mean) == FieldsPerFrame && dim%FieldsPerFrame == 0 {
		return nil
	}
	return fmt.Errorf("frame: scaler of length %d does not fit dimension %d", len(s.Mean), dim)
}

// Apply standardizes v in place. Empty tables leave v unchanged; a zero scale
// is treated as 1.
func (s Standardizer) Apply(v []float64) {
	n := len(s.Mean)
	if n == 0 {
		return
	}
	for i := range v {
		j := i % n
		scale := s.Scale[j]
		if scale == 0 {
			scale = 1
		}
		v[i] = (v[i] - s.Mean[j]) / scale
	}
}
