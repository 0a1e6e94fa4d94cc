package kalman

// Observations is a read-only sequence of scalar observations, each either
// a value or missing.
type Observations interface {
	Len() int
	// At returns observation t; ok is false when it is missing.
	At(t int) (y float64, ok bool)
}

// Values adapts a fully observed slice.
type Values []float64

func (v Values) Len() int { return len(v) }

func (v Values) At(t int) (float64, bool) { return v[t], true }

// Masked is a slice of values with an explicit missing mask. A nil mask
// means fully observed.
type Masked struct {
	Values  []float64
	Missing []bool
}

func (m Masked) Len() int { return len(m.Values) }

func (m Masked) At(t int) (float64, bool) {
	if m.Missing != nil && m.Missing[t] {
		return 0, false
	}
	return m.Values[t], true
}
