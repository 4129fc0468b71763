package registry

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"modelregistry/internal/artifact"
)

// Status is a read-only summary of a registry root.
type Status struct {
	Driver      string             `json:"driver" yaml:"driver"`
	Champion    *artifact.Metadata `json:"champion,omitempty" yaml:"champion,omitempty"`
	Backups     []string           `json:"backups" yaml:"backups"`
	Challengers []string           `json:"challengers" yaml:"challengers"`
	// Staging lists scratch files left by an interrupted promotion.
	Staging  []string `json:"staging,omitempty" yaml:"staging,omitempty"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Healthy reports whether a champion exists and nothing needs attention.
func (s Status) Healthy() bool { return s.Champion != nil && len(s.Warnings) == 0 }

// Status inspects the registry without modifying it. Corrupt metadata is an
// error, not a warning.
func (r *Registry) Status(ctx context.Context) (Status, error) {
	st := Status{Driver: string(r.store.Driver())}
	var backups, challengers, staging []Entry
	var championExists bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		meta, err := r.readMetadata(gctx)
		st.Champion = meta
		return err
	})
	g.Go(func() error {
		ok, err := r.store.Exists(gctx, RoleChampion)
		championExists = ok
		return err
	})
	g.Go(func() (err error) {
		backups, err = r.store.List(gctx, KindBackup)
		return err
	})
	g.Go(func() (err error) {
		challengers, err = r.store.List(gctx, KindChallenger)
		return err
	})
	g.Go(func() (err error) {
		staging, err = r.store.List(gctx, KindStaging)
		return err
	})
	if err := g.Wait(); err != nil {
		return Status{}, err
	}

	st.Backups = versions(backups)
	st.Challengers = versions(challengers)
	for _, e := range staging {
		st.Staging = append(st.Staging, string(e.Role))
	}
	switch {
	case st.Champion == nil && championExists:
		st.Warnings = append(st.Warnings, fmt.Sprintf("%s exists without %s", RoleChampion, RoleMetadata))
	case st.Champion != nil && !championExists:
		st.Warnings = append(st.Warnings, fmt.Sprintf("%s names %s but %s is missing", RoleMetadata, st.Champion.Version, RoleChampion))
	case st.Champion == nil:
		st.Warnings = append(st.Warnings, "no champion model")
	}
	if len(st.Staging) > 0 {
		st.Warnings = append(st.Warnings, fmt.Sprintf("%d staging file(s) left by an interrupted promotion", len(st.Staging)))
	}
	return st, nil
}

func versions(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Version)
	}
	return out
}
