package training

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelregistry/internal/artifact"
)

func TestOLS_RecoversExactCoefficients(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	n := 50
	a := make([]float64, n)
	b := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		a[i] = rng.Float64() * 100
		b[i] = rng.NormFloat64()
		y[i] = 3 + 2*a[i] - 0.5*b[i]
	}
	m, err := OLS([][]float64{a, b}, y)
	require.NoError(t, err)
	assert.InDelta(t, 3, m.Intercept, 1e-8)
	assert.InDelta(t, 2, m.Coefficients[0], 1e-10)
	assert.InDelta(t, -0.5, m.Coefficients[1], 1e-8)
	assert.InDelta(t, 0, m.MSE, 1e-12)
	assert.Equal(t, n, m.Samples)
}

func TestOLS_NoisyFitHasPositiveMSE(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	y := []float64{1, 3, 2, 4}
	m, err := OLS([][]float64{x}, y)
	require.NoError(t, err)
	// closed form: slope 0.8, intercept 0.5
	assert.InDelta(t, 0.8, m.Coefficients[0], 1e-12)
	assert.InDelta(t, 0.5, m.Intercept, 1e-12)
	assert.InDelta(t, 0.45, m.MSE, 1e-12)
}

func TestOLS_Singular(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	_, err := OLS([][]float64{x, x}, []float64{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrSingular)

	_, err = OLS([][]float64{{5, 5, 5}}, []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrSingular)

	_, err = OLS([][]float64{{1}}, []float64{1})
	assert.ErrorIs(t, err, ErrSingular)

	_, err = OLS(nil, nil)
	assert.ErrorIs(t, err, ErrNoData)

	_, err = OLS([][]float64{{1, 2, 3}}, []float64{1, 2})
	assert.Error(t, err)
}

func TestFit_WeightsInterceptFirst(t *testing.T) {
	dir := t.TempDir()
	var sb strings.Builder
	sb.WriteString("timestamp,btc_price,volume,close\n")
	for i := 0; i < 20; i++ {
		p := float64(100 + i*3)
		v := float64((i * 7) % 11)
		fmt.Fprintf(&sb, "%d,%g,%g,%g\n", 1700000000+i*300, p, v, 10+0.9*p+0.2*v)
	}
	writeFile(t, filepath.Join(dir, "prices.csv"), sb.String())
	ds, err := LoadDir(dir, LoadOptions{})
	require.NoError(t, err)

	m, err := Fit(ds, []string{"btc_price", "volume"}, "close")
	require.NoError(t, err)
	ws, err := m.Weights()
	require.NoError(t, err)
	assert.Equal(t, []string{"intercept", "btc_price", "volume"}, ws.Names())
	v, _ := ws.Get("btc_price")
	assert.InDelta(t, 0.9, v, 1e-9)
	assert.InDelta(t, 0, m.MSE, 1e-9)

	_, err = Fit(ds, nil, "close")
	assert.Error(t, err)
	_, err = Fit(ds, []string{"intercept"}, "close")
	assert.Error(t, err)
	_, err = Fit(ds, []string{"btc_price"}, "missing")
	assert.Error(t, err)
}

func TestFitTimeTrend(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var sb strings.Builder
	sb.WriteString("timestamp,value\n")
	for i := 0; i < 48; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		fmt.Fprintf(&sb, "%s,%g\n", ts.Format(time.RFC3339), 50+0.01*float64(i*3600))
	}
	writeFile(t, filepath.Join(dir, "fng.csv"), sb.String())
	ds, err := LoadDir(dir, LoadOptions{})
	require.NoError(t, err)

	m, err := FitTimeTrend(ds, "", "value")
	require.NoError(t, err)
	assert.InDelta(t, 0.01, m.Coefficients[0], 1e-9)
	assert.Equal(t, artifact.DialectParameter, m.Dialect)

	ws, err := m.Weights()
	require.NoError(t, err)
	assert.Equal(t, []string{"ts_coef", "intercept"}, ws.Names())
	out, err := artifact.EncodeWeightsDialect(ws, m.Dialect)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "parameter,value\nts_coef,"))
}
