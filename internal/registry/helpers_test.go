package registry

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"modelregistry/internal/artifact"
	"modelregistry/internal/blob"
	"modelregistry/internal/ledger"
)

type storeCase struct {
	name string
	open func(t *testing.T) blob.Store
}

func storeCases() []storeCase {
	return []storeCase{
		{"memory", func(*testing.T) blob.Store { return blob.NewMemory() }},
		{"fs", func(t *testing.T) blob.Store {
			s, err := blob.NewFilesystem(t.TempDir())
			require.NoError(t, err)
			return s
		}},
		{"s3", func(*testing.T) blob.Store { return blob.NewMockS3ForTests() }},
	}
}

func sampleWeights(t *testing.T) artifact.WeightSet {
	t.Helper()
	ws, err := artifact.NewWeightSet(
		artifact.Weight{Name: "intercept", Value: 1.0},
		artifact.Weight{Name: "btc_price", Value: 2.0},
	)
	require.NoError(t, err)
	return ws
}

// steppingClock advances one second per call so versions are readable in failures.
func steppingClock() Clock {
	var mu sync.Mutex
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newTestRegistry(t *testing.T, store blob.Store, mutate ...func(*Options)) *Registry {
	t.Helper()
	opts := Options{Store: store, Clock: steppingClock()}
	for _, m := range mutate {
		m(&opts)
	}
	r, err := New(opts)
	require.NoError(t, err)
	return r
}

func keys(t *testing.T, store blob.Store) []string {
	t.Helper()
	infos, err := store.List(context.Background(), "")
	require.NoError(t, err)
	out := make([]string, 0, len(infos))
	for _, i := range infos {
		out = append(out, i.Key)
	}
	return out
}

func readMeta(t *testing.T, r *Registry) artifact.Metadata {
	t.Helper()
	data, err := r.Store().Read(context.Background(), RoleMetadata)
	require.NoError(t, err)
	m, err := artifact.DecodeMetadata(data)
	require.NoError(t, err)
	return m
}

// recordingStore logs mutating calls in order.
type recordingStore struct {
	blob.Store
	mu  sync.Mutex
	ops []string
}

func (s *recordingStore) record(op string) {
	s.mu.Lock()
	s.ops = append(s.ops, op)
	s.mu.Unlock()
}

func (s *recordingStore) Put(ctx context.Context, key string, r io.Reader, opts blob.PutOptions) (blob.Info, error) {
	s.record("put " + key)
	return s.Store.Put(ctx, key, r, opts)
}

func (s *recordingStore) Copy(ctx context.Context, src, dst string, opts blob.PutOptions) (blob.Info, error) {
	s.record("copy " + src + " " + dst)
	return s.Store.Copy(ctx, src, dst, opts)
}

func (s *recordingStore) Delete(ctx context.Context, key string) (bool, error) {
	s.record("delete " + key)
	return s.Store.Delete(ctx, key)
}

// failingStore fails the single call matching failOn.
type failingStore struct {
	blob.Store
	failOn string
	err    error
}

func (s *failingStore) Put(ctx context.Context, key string, r io.Reader, opts blob.PutOptions) (blob.Info, error) {
	if s.failOn == "put "+key {
		return blob.Info{}, s.err
	}
	return s.Store.Put(ctx, key, r, opts)
}

func (s *failingStore) Copy(ctx context.Context, src, dst string, opts blob.PutOptions) (blob.Info, error) {
	if s.failOn == "copy "+dst {
		return blob.Info{}, s.err
	}
	return s.Store.Copy(ctx, src, dst, opts)
}

type memLedger struct {
	mu      sync.Mutex
	entries []ledger.Entry
	err     error
}

func (l *memLedger) Record(_ context.Context, e ledger.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.entries = append(l.entries, e)
	return nil
}

func (l *memLedger) List(context.Context, int) ([]ledger.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ledger.Entry(nil), l.entries...), nil
}

func (l *memLedger) Close() error { return nil }

// hookPolicy runs before on every decision, then defers to Decide.
type hookPolicy struct {
	before func()
}

func (p hookPolicy) Decide(candidate float64, current *float64) Outcome {
	if p.before != nil {
		p.before()
	}
	return Decide(candidate, current)
}

type fixedPolicy Outcome

func (p fixedPolicy) Decide(float64, *float64) Outcome { return Outcome(p) }
