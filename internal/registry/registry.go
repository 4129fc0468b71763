// Package registry decides whether a trained model becomes the champion and
// persists every submission under a single root.
//
// Layout of a registry root:
//
//	champion_model.csv          current champion weights
//	model_metadata.json         {"version": ..., "mse": ...} of the champion
//	backup_<version>.csv        a champion displaced while it held <version>
//	challenger_<version>.csv    a candidate that did not beat the champion
//
// Backups and challengers are create-only. Only Submit mutates a registry.
// The root may also hold the submission lock file (.registry.lock), a
// .staging_<version>.csv left by an interrupted promotion and, with the
// default SQLite ledger, ledger.db. Status ignores all three except staging
// files, which it reports.
package registry

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"modelregistry/internal/artifact"
	"modelregistry/internal/blob"
	"modelregistry/internal/ledger"
)

// Options wires a Registry. Store is required; everything else has a default.
type Options struct {
	Store   blob.Store
	Policy  Policy
	Clock   Clock
	Locker  Locker
	Ledger  ledger.Ledger
	Metrics *Metrics
	Logger  *zap.Logger
}

// Registry is the champion/challenger model registry.
type Registry struct {
	store    *ArtifactStore
	policy   Policy
	versions *VersionGenerator
	locker   Locker
	ledger   ledger.Ledger
	metrics  *Metrics
	log      *zap.Logger
}

// New validates opts and returns a Registry.
func New(opts Options) (*Registry, error) {
	if opts.Store == nil {
		return nil, eris.New("registry: blob store required")
	}
	r := &Registry{
		store:    NewArtifactStore(opts.Store),
		policy:   opts.Policy,
		versions: NewVersionGenerator(opts.Clock),
		locker:   opts.Locker,
		ledger:   opts.Ledger,
		metrics:  opts.Metrics,
		log:      opts.Logger,
	}
	if r.policy == nil {
		r.policy = MinimizePolicy{}
	}
	if r.locker == nil {
		r.locker = NopLocker{}
	}
	if r.ledger == nil {
		r.ledger = ledger.Nop{}
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	return r, nil
}

// Store exposes the role-keyed store for read-only callers.
func (r *Registry) Store() *ArtifactStore { return r.store }

// Result describes what Submit did.
type Result struct {
	Outcome Outcome `json:"outcome" yaml:"outcome"`
	Message string  `json:"message" yaml:"message"`
	// Version is the token assigned to the candidate.
	Version string `json:"version" yaml:"version"`
	// PreviousVersion is the champion before this submission, if any.
	PreviousVersion string `json:"previous_version,omitempty" yaml:"previous_version,omitempty"`
	// Metric is the candidate's metric.
	Metric float64 `json:"metric" yaml:"metric"`
	// ChampionMetric is the champion's metric after this submission.
	ChampionMetric float64 `json:"champion_metric" yaml:"champion_metric"`
	// Role is where the candidate's weights now live.
	Role Role `json:"role" yaml:"role"`
}

// Submit persists a candidate and promotes it when the policy says so.
//
// On error the registry is left in one of the states Promote documents and
// Result.Outcome is zero. A ledger failure is returned together with a fully
// populated Result because the artifacts are already durable at that point.
func (r *Registry) Submit(ctx context.Context, weights artifact.WeightSet, metric float64) (res Result, err error) {
	start := time.Now()
	stage := "validate"
	defer func() {
		r.metrics.observe(start)
		if err != nil {
			r.metrics.failure(stage)
			r.log.Error("model submission failed", zap.String("stage", stage), zap.String("version", res.Version), zap.Error(err))
		}
	}()

	if math.IsNaN(metric) || math.IsInf(metric, 0) {
		return res, eris.Wrapf(ErrInvalidMetric, "got %v", metric)
	}
	if weights.Len() == 0 {
		return res, ErrEmptyWeights
	}
	candidate, err := artifact.EncodeWeights(weights)
	if err != nil {
		return res, eris.Wrap(err, "encode candidate")
	}

	stage = "lock"
	release, err := r.locker.Lock(ctx)
	if err != nil {
		return res, err
	}
	defer func() {
		if rerr := release(); rerr != nil && err == nil {
			stage = "unlock"
			err = rerr
		}
	}()

	stage = "version"
	version, err := r.versions.Next()
	if err != nil {
		return res, err
	}
	res.Version = version
	res.Metric = metric

	stage = "read_champion"
	current, err := r.readMetadata(ctx)
	if err != nil {
		return res, err
	}
	var currentMetric *float64
	if current != nil {
		currentMetric = &current.MSE
		res.PreviousVersion = current.Version
	}

	outcome := r.policy.Decide(metric, currentMetric)

	stage = "persist"
	meta, err := artifact.EncodeMetadata(artifact.Metadata{Version: version, MSE: metric})
	if err != nil {
		return res, eris.Wrap(err, "encode metadata")
	}
	switch outcome {
	case OutcomeFirstChampion:
		if current != nil {
			return res, eris.Errorf("registry: policy chose first champion while %s holds the slot", current.Version)
		}
		if err := r.expectChampion(ctx, ""); err != nil {
			return res, err
		}
		if err := r.store.Write(ctx, RoleChampion, candidate); err != nil {
			return res, err
		}
		if err := r.store.Write(ctx, RoleMetadata, meta); err != nil {
			return res, err
		}
		res.Role = RoleChampion
		res.ChampionMetric = metric
	case OutcomePromoted:
		if current == nil {
			return res, eris.New("registry: policy chose promotion with no champion")
		}
		if err := r.expectChampion(ctx, current.Version); err != nil {
			return res, err
		}
		if err := r.store.Promote(ctx, candidate, meta, current.Version, version); err != nil {
			return res, err
		}
		res.Role = RoleChampion
		res.ChampionMetric = metric
	case OutcomeChallenger:
		if current == nil {
			return res, eris.New("registry: policy chose challenger with no champion")
		}
		if err := r.store.Write(ctx, ChallengerRole(version), candidate); err != nil {
			return res, err
		}
		res.Role = ChallengerRole(version)
		res.ChampionMetric = current.MSE
	default:
		return res, eris.Errorf("registry: unknown outcome %d", outcome)
	}

	// Outcome stays zero until the candidate is durable.
	res.Outcome = outcome
	res.Message = outcome.Message()

	r.metrics.success(outcome, res.ChampionMetric)
	r.log.Info(res.Message,
		zap.String("outcome", outcome.String()),
		zap.String("version", version),
		zap.Float64("metric", metric),
		zap.String("previous_version", res.PreviousVersion),
		zap.String("role", string(res.Role)),
	)

	stage = "ledger"
	if err := r.ledger.Record(ctx, ledger.Entry{
		Version:         version,
		Outcome:         outcome.String(),
		MSE:             metric,
		PreviousVersion: res.PreviousVersion,
		ArtifactKey:     string(res.Role),
	}); err != nil {
		return res, eris.Wrap(err, "record submission")
	}
	return res, nil
}

// Champion returns the current champion's metadata and weights.
func (r *Registry) Champion(ctx context.Context) (artifact.Metadata, artifact.WeightSet, error) {
	meta, err := r.readMetadata(ctx)
	if err != nil {
		return artifact.Metadata{}, artifact.WeightSet{}, err
	}
	if meta == nil {
		return artifact.Metadata{}, artifact.WeightSet{}, ErrNoChampion
	}
	data, err := r.store.Read(ctx, RoleChampion)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return artifact.Metadata{}, artifact.WeightSet{}, &CorruptionError{Role: RoleChampion, Err: err}
		}
		return artifact.Metadata{}, artifact.WeightSet{}, err
	}
	ws, err := artifact.DecodeWeights(data)
	if err != nil {
		return artifact.Metadata{}, artifact.WeightSet{}, &CorruptionError{Role: RoleChampion, Err: err}
	}
	return *meta, ws, nil
}

// readMetadata returns nil when no champion exists. A record that exists but
// does not decode is a CorruptionError.
func (r *Registry) readMetadata(ctx context.Context) (*artifact.Metadata, error) {
	data, err := r.store.Read(ctx, RoleMetadata)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	meta, err := artifact.DecodeMetadata(data)
	if err != nil {
		return nil, &CorruptionError{Role: RoleMetadata, Err: err}
	}
	return &meta, nil
}

// expectChampion re-reads the metadata record and fails with
// ErrConcurrentUpdate unless it still names version ("" meaning absent).
func (r *Registry) expectChampion(ctx context.Context, version string) error {
	latest, err := r.readMetadata(ctx)
	if err != nil {
		return err
	}
	got := ""
	if latest != nil {
		got = latest.Version
	}
	if got != version {
		return eris.Wrapf(ErrConcurrentUpdate, "expected champion %q, found %q", version, got)
	}
	return nil
}
