package artifact

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Dialect selects the CSV header written by EncodeWeightsDialect.
type Dialect int

const (
	// DialectFeature writes "feature,weight".
	DialectFeature Dialect = iota
	// DialectParameter writes "parameter,value".
	DialectParameter
)

// Header returns the two column names of the dialect.
func (d Dialect) Header() []string {
	if d == DialectParameter {
		return []string{"parameter", "value"}
	}
	return []string{"feature", "weight"}
}

func dialectFor(header []string) (Dialect, bool) {
	if len(header) != 2 {
		return 0, false
	}
	name := strings.TrimSpace(strings.TrimPrefix(header[0], "\ufeff"))
	value := strings.TrimSpace(header[1])
	for _, d := range []Dialect{DialectFeature, DialectParameter} {
		h := d.Header()
		if name == h[0] && value == h[1] {
			return d, true
		}
	}
	return 0, false
}

// EncodeWeights encodes w with the "feature,weight" header.
func EncodeWeights(w WeightSet) ([]byte, error) {
	return EncodeWeightsDialect(w, DialectFeature)
}

// EncodeWeightsDialect encodes w with the header of d. Output is
// deterministic and decodes back to an equal WeightSet.
func EncodeWeightsDialect(w WeightSet, d Dialect) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(d.Header()); err != nil {
		return nil, eris.Wrap(err, "write header")
	}
	for _, e := range w.entries {
		if err := cw.Write([]string{e.Name, strconv.FormatFloat(e.Value, 'g', -1, 64)}); err != nil {
			return nil, eris.Wrapf(err, "write weight %q", e.Name)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, eris.Wrap(err, "flush weights")
	}
	return buf.Bytes(), nil
}

// DecodeWeights parses either header dialect.
func DecodeWeights(data []byte) (WeightSet, error) {
	ws, _, err := DecodeWeightsDialect(data)
	return ws, err
}

// DecodeWeightsDialect parses data and reports which header it carried.
func DecodeWeightsDialect(data []byte) (WeightSet, Dialect, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return WeightSet{}, 0, &FormatError{Field: "header", Line: 1, Err: eris.New("missing header")}
	}
	if err != nil {
		return WeightSet{}, 0, &FormatError{Field: "header", Line: 1, Err: err}
	}
	dialect, ok := dialectFor(header)
	if !ok {
		return WeightSet{}, 0, &FormatError{Field: "header", Line: 1, Err: eris.Errorf("unknown header %q", strings.Join(header, ","))}
	}
	ws := WeightSet{index: map[string]int{}}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return WeightSet{}, 0, &FormatError{Field: "row", Err: err}
		}
		line, _ := cr.FieldPos(0)
		if len(rec) != 2 {
			return WeightSet{}, 0, &FormatError{Field: "row", Line: line, Err: eris.Errorf("expected 2 fields, got %d", len(rec))}
		}
		name := strings.TrimSpace(rec[0])
		if name == "" {
			return WeightSet{}, 0, &FormatError{Field: "name", Line: line, Err: eris.New("empty name")}
		}
		if _, dup := ws.index[name]; dup {
			return WeightSet{}, 0, &FormatError{Field: "name", Line: line, Err: eris.Errorf("duplicate name %q", name)}
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return WeightSet{}, 0, &FormatError{Field: "value", Line: line, Err: err}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return WeightSet{}, 0, &FormatError{Field: "value", Line: line, Err: eris.Errorf("value for %q is not finite", name)}
		}
		ws.index[name] = len(ws.entries)
		ws.entries = append(ws.entries, Weight{Name: name, Value: v})
	}
	return ws, dialect, nil
}

// Metadata describes the current champion.
type Metadata struct {
	Version string  `json:"version"`
	MSE     float64 `json:"mse"`
}

type wireMetadata struct {
	Version *string  `json:"version"`
	MSE     *float64 `json:"mse"`
}

// EncodeMetadata renders m as JSON.
func EncodeMetadata(m Metadata) ([]byte, error) {
	if m.Version == "" {
		return nil, &FormatError{Field: "version", Err: eris.New("empty version")}
	}
	if math.IsNaN(m.MSE) || math.IsInf(m.MSE, 0) {
		return nil, &FormatError{Field: "mse", Err: eris.Errorf("mse %v is not finite", m.MSE)}
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "marshal metadata")
	}
	return append(b, '\n'), nil
}

// DecodeMetadata parses a metadata record. Both fields are required.
func DecodeMetadata(data []byte) (Metadata, error) {
	var w wireMetadata
	if err := json.Unmarshal(data, &w); err != nil {
		return Metadata{}, &FormatError{Field: "json", Err: err}
	}
	if w.Version == nil || *w.Version == "" {
		return Metadata{}, &FormatError{Field: "version", Err: eris.New("missing version")}
	}
	if w.MSE == nil {
		return Metadata{}, &FormatError{Field: "mse", Err: eris.New("missing mse")}
	}
	return Metadata{Version: *w.Version, MSE: *w.MSE}, nil
}
