// Package training loads tabular time-series data and fits least-squares
// models whose weights are handed to the registry.
package training

import (
	"encoding/csv"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// DefaultTimestampColumn is used when LoadOptions leaves it empty.
const DefaultTimestampColumn = "timestamp"

// ErrNoData is returned when a directory holds no CSV files or no usable rows.
var ErrNoData = errors.New("training: no data")

// LoadOptions controls LoadDir.
type LoadOptions struct {
	// TimestampColumn orders rows when present in the header.
	TimestampColumn string
	// Required lists columns whose empty cells drop the row. Empty means all columns.
	Required []string
}

// Dataset is an in-memory table of string cells with a shared header.
type Dataset struct {
	header []string
	index  map[string]int
	rows   [][]string
	// Files lists the inputs in load order.
	Files []string
}

// Columns returns the header.
func (d *Dataset) Columns() []string { return append([]string(nil), d.header...) }

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.rows) }

// Has reports whether the header contains col.
func (d *Dataset) Has(col string) bool {
	_, ok := d.index[col]
	return ok
}

// Float parses col as float64.
func (d *Dataset) Float(col string) ([]float64, error) {
	i, ok := d.index[col]
	if !ok {
		return nil, eris.Errorf("training: unknown column %q", col)
	}
	out := make([]float64, len(d.rows))
	for r, row := range d.rows {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "training: row %d column %q", r+1, col)
		}
		out[r] = v
	}
	return out, nil
}

// Seconds parses col as timestamps and returns seconds since the Unix epoch.
func (d *Dataset) Seconds(col string) ([]float64, error) {
	i, ok := d.index[col]
	if !ok {
		return nil, eris.Errorf("training: unknown column %q", col)
	}
	out := make([]float64, len(d.rows))
	for r, row := range d.rows {
		ts, err := ParseTimestamp(row[i])
		if err != nil {
			return nil, eris.Wrapf(err, "training: row %d column %q", r+1, col)
		}
		out[r] = float64(ts.UnixNano()) / 1e9
	}
	return out, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp accepts RFC 3339, a few ISO-like variants, or numeric epoch
// seconds. Zone-less values are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		sec := int64(f)
		return time.Unix(sec, int64((f-float64(sec))*1e9)).UTC(), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, eris.Errorf("unrecognised timestamp %q", s)
}

// LoadDir reads every *.csv under dir (recursively), concatenates them,
// drops incomplete rows and sorts by the timestamp column when present.
func LoadDir(dir string, opts LoadOptions) (*Dataset, error) {
	if opts.TimestampColumn == "" {
		opts.TimestampColumn = DefaultTimestampColumn
	}
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".csv") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "training: walk %s", dir)
	}
	if len(files) == 0 {
		return nil, eris.Wrapf(ErrNoData, "no csv files found in %s", dir)
	}
	sort.Strings(files)

	ds := &Dataset{Files: files}
	for _, f := range files {
		if err := ds.appendFile(f); err != nil {
			return nil, err
		}
	}
	if err := ds.dropIncomplete(opts.Required); err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		return nil, eris.Wrapf(ErrNoData, "no complete rows in %s", dir)
	}
	if ds.Has(opts.TimestampColumn) {
		if err := ds.sortBy(opts.TimestampColumn); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func (d *Dataset) appendFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "training: open %s", path)
	}
	defer func() { _ = f.Close() }()
	r := csv.NewReader(f)
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "training: read header of %s", path)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	if d.header == nil {
		d.header = header
		d.index = make(map[string]int, len(header))
		for i, h := range header {
			d.index[h] = i
		}
	} else if strings.Join(header, ",") != strings.Join(d.header, ",") {
		return eris.Errorf("training: %s header %v does not match %v", path, header, d.header)
	}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return eris.Wrapf(err, "training: read %s", path)
		}
		d.rows = append(d.rows, rec)
	}
}

func (d *Dataset) dropIncomplete(required []string) error {
	cols := make([]int, 0, len(d.header))
	if len(required) == 0 {
		for i := range d.header {
			cols = append(cols, i)
		}
	}
	for _, name := range required {
		i, ok := d.index[name]
		if !ok {
			return eris.Errorf("training: unknown column %q", name)
		}
		cols = append(cols, i)
	}
	kept := d.rows[:0]
	for _, row := range d.rows {
		complete := true
		for _, i := range cols {
			if isNull(row[i]) {
				complete = false
				break
			}
		}
		if complete {
			kept = append(kept, row)
		}
	}
	d.rows = kept
	return nil
}

func isNull(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "", "null", "nan", "na":
		return true
	}
	return false
}

func (d *Dataset) sortBy(col string) error {
	secs, err := d.Seconds(col)
	if err != nil {
		return err
	}
	idx := make([]int, len(d.rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return secs[idx[a]] < secs[idx[b]] })
	sorted := make([][]string, len(d.rows))
	for i, j := range idx {
		sorted[i] = d.rows[j]
	}
	d.rows = sorted
	return nil
}
