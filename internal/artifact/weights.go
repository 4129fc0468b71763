package artifact

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// Weight is one named coefficient.
type Weight struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

// WeightSet is an immutable, insertion-ordered mapping of parameter name to
// coefficient. The zero value is an empty set.
type WeightSet struct {
	entries []Weight
	index   map[string]int
}

// NewWeightSet copies entries into a WeightSet. Names must be non-empty,
// unique, free of surrounding whitespace and carriage returns so they survive
// the CSV encoding unchanged. Values must be finite.
func NewWeightSet(entries ...Weight) (WeightSet, error) {
	ws := WeightSet{
		entries: make([]Weight, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if e.Name == "" {
			return WeightSet{}, eris.New("weight name is empty")
		}
		if e.Name != strings.TrimSpace(e.Name) || strings.ContainsRune(e.Name, '\r') {
			return WeightSet{}, eris.Errorf("weight name %q has surrounding whitespace or a carriage return", e.Name)
		}
		if _, dup := ws.index[e.Name]; dup {
			return WeightSet{}, eris.Errorf("duplicate weight name %q", e.Name)
		}
		if math.IsNaN(e.Value) || math.IsInf(e.Value, 0) {
			return WeightSet{}, eris.Errorf("weight %q is not finite", e.Name)
		}
		ws.index[e.Name] = len(ws.entries)
		ws.entries = append(ws.entries, e)
	}
	return ws, nil
}

// Len reports the number of parameters.
func (w WeightSet) Len() int { return len(w.entries) }

// Get returns the value stored under name.
func (w WeightSet) Get(name string) (float64, bool) {
	i, ok := w.index[name]
	if !ok {
		return 0, false
	}
	return w.entries[i].Value, true
}

// Entries returns a copy of the weights in insertion order.
func (w WeightSet) Entries() []Weight {
	out := make([]Weight, len(w.entries))
	copy(out, w.entries)
	return out
}

// Names returns parameter names in insertion order.
func (w WeightSet) Names() []string {
	out := make([]string, len(w.entries))
	for i, e := range w.entries {
		out[i] = e.Name
	}
	return out
}

// Equal reports whether both sets hold the same names, in the same order,
// with identical values.
func (w WeightSet) Equal(other WeightSet) bool {
	if len(w.entries) != len(other.entries) {
		return false
	}
	for i := range w.entries {
		if w.entries[i] != other.entries[i] {
			return false
		}
	}
	return true
}
