package training

import (
	"errors"
	"math"

	"github.com/rotisserie/eris"

	"modelregistry/internal/artifact"
)

// ErrSingular is returned when the features are linearly dependent.
var ErrSingular = errors.New("training: singular system")

// InterceptName is the weight name of the constant term.
const InterceptName = "intercept"

// TimeTrendFeature is the weight name of the time-trend slope.
const TimeTrendFeature = "ts_coef"

// Model is a fitted linear model.
type Model struct {
	Features     []string
	Coefficients []float64
	Intercept    float64
	// MSE is the in-sample mean squared error.
	MSE     float64
	Samples int
	// Dialect is the CSV header the model is conventionally written with.
	Dialect artifact.Dialect
}

// Weights returns the model as a WeightSet. Feature-dialect models list the
// intercept first; parameter-dialect models list it last.
func (m Model) Weights() (artifact.WeightSet, error) {
	entries := make([]artifact.Weight, 0, len(m.Features)+1)
	if m.Dialect != artifact.DialectParameter {
		entries = append(entries, artifact.Weight{Name: InterceptName, Value: m.Intercept})
	}
	for i, f := range m.Features {
		entries = append(entries, artifact.Weight{Name: f, Value: m.Coefficients[i]})
	}
	if m.Dialect == artifact.DialectParameter {
		entries = append(entries, artifact.Weight{Name: InterceptName, Value: m.Intercept})
	}
	return artifact.NewWeightSet(entries...)
}

// Predict evaluates the model on one feature vector.
func (m Model) Predict(x []float64) float64 {
	y := m.Intercept
	for i, c := range m.Coefficients {
		y += c * x[i]
	}
	return y
}

// Fit regresses target on features with an intercept.
func Fit(ds *Dataset, features []string, target string) (Model, error) {
	if len(features) == 0 {
		return Model{}, eris.New("training: at least one feature required")
	}
	cols := make([][]float64, len(features))
	for j, f := range features {
		if f == InterceptName {
			return Model{}, eris.Errorf("training: feature name %q is reserved", f)
		}
		v, err := ds.Float(f)
		if err != nil {
			return Model{}, err
		}
		cols[j] = v
	}
	y, err := ds.Float(target)
	if err != nil {
		return Model{}, err
	}
	m, err := OLS(cols, y)
	if err != nil {
		return Model{}, err
	}
	m.Features = append([]string(nil), features...)
	m.Dialect = artifact.DialectFeature
	return m, nil
}

// FitTimeTrend regresses valueCol on the timestamp (epoch seconds).
func FitTimeTrend(ds *Dataset, timestampCol, valueCol string) (Model, error) {
	if timestampCol == "" {
		timestampCol = DefaultTimestampColumn
	}
	ts, err := ds.Seconds(timestampCol)
	if err != nil {
		return Model{}, err
	}
	y, err := ds.Float(valueCol)
	if err != nil {
		return Model{}, err
	}
	m, err := OLS([][]float64{ts}, y)
	if err != nil {
		return Model{}, err
	}
	m.Features = []string{TimeTrendFeature}
	m.Dialect = artifact.DialectParameter
	return m, nil
}

// OLS fits y = b0 + sum(b_j * cols[j]) by least squares. cols is column-major.
// Columns are centred before solving the normal equations, which keeps large
// magnitudes such as epoch seconds well conditioned.
func OLS(cols [][]float64, y []float64) (Model, error) {
	n := len(y)
	p := len(cols)
	if n == 0 {
		return Model{}, ErrNoData
	}
	for j := range cols {
		if len(cols[j]) != n {
			return Model{}, eris.Errorf("training: column %d has %d rows, want %d", j, len(cols[j]), n)
		}
	}
	if n <= p {
		return Model{}, eris.Wrapf(ErrSingular, "%d samples for %d features", n, p)
	}

	means := make([]float64, p)
	for j := range cols {
		means[j] = mean(cols[j])
	}
	yMean := mean(y)

	xtx := make([][]float64, p)
	xty := make([]float64, p)
	for a := 0; a < p; a++ {
		xtx[a] = make([]float64, p)
		for b := 0; b <= a; b++ {
			var s float64
			for i := 0; i < n; i++ {
				s += (cols[a][i] - means[a]) * (cols[b][i] - means[b])
			}
			xtx[a][b] = s
			xtx[b][a] = s
		}
		var s float64
		for i := 0; i < n; i++ {
			s += (cols[a][i] - means[a]) * (y[i] - yMean)
		}
		xty[a] = s
	}

	coef, err := solve(xtx, xty)
	if err != nil {
		return Model{}, err
	}
	intercept := yMean
	for j := range coef {
		intercept -= coef[j] * means[j]
	}
	m := Model{Coefficients: coef, Intercept: intercept, Samples: n}

	var sse float64
	row := make([]float64, p)
	for i := 0; i < n; i++ {
		for j := range cols {
			row[j] = cols[j][i]
		}
		d := y[i] - m.Predict(row)
		sse += d * d
	}
	m.MSE = sse / float64(n)
	return m, nil
}

// solve runs Gaussian elimination with partial pivoting on a copy of a.
func solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	m := make([][]float64, n)
	var scale float64
	for i := range a {
		m[i] = append(append([]float64(nil), a[i]...), b[i])
		for _, v := range a[i] {
			scale = math.Max(scale, math.Abs(v))
		}
	}
	tol := scale * 1e-12
	if scale == 0 {
		return nil, ErrSingular
	}
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) <= tol {
			return nil, ErrSingular
		}
		m[col], m[pivot] = m[pivot], m[col]
		for r := col + 1; r < n; r++ {
			f := m[r][col] / m[col][col]
			for c := col; c <= n; c++ {
				m[r][c] -= f * m[col][c]
			}
		}
	}
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		s := m[i][n]
		for j := i + 1; j < n; j++ {
			s -= m[i][j] * x[j]
		}
		x[i] = s / m[i][i]
	}
	return x, nil
}

func mean(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}
