package registry

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"modelregistry/internal/blob"
)

// Role names a logical slot in the registry root.
type Role string

const (
	// RoleChampion holds the current champion weights.
	RoleChampion Role = "champion_model.csv"
	// RoleMetadata holds the champion's version and metric.
	RoleMetadata Role = "model_metadata.json"

	backupPrefix     = "backup_"
	challengerPrefix = "challenger_"
	stagingPrefix    = ".staging_"
	artifactSuffix   = ".csv"
)

// Kind selects an append-only collection for List.
type Kind int

const (
	// KindBackup lists displaced champions.
	KindBackup Kind = iota
	// KindChallenger lists rejected candidates.
	KindChallenger
	// KindStaging lists leftover promotion scratch files.
	KindStaging
)

func (k Kind) prefix() string {
	switch k {
	case KindChallenger:
		return challengerPrefix
	case KindStaging:
		return stagingPrefix
	default:
		return backupPrefix
	}
}

// BackupRole is the slot for a champion displaced while it held version.
func BackupRole(version string) Role { return Role(backupPrefix + version + artifactSuffix) }

// ChallengerRole is the slot for a non-promoted candidate.
func ChallengerRole(version string) Role { return Role(challengerPrefix + version + artifactSuffix) }

func stagingRole(version string) Role { return Role(stagingPrefix + version + artifactSuffix) }

func (r Role) overwritable() bool { return r == RoleChampion || r == RoleMetadata }

func (r Role) contentType() string {
	if r == RoleMetadata {
		return "application/json"
	}
	return "text/csv"
}

// Entry is one element of an append-only collection.
type Entry struct {
	Version string
	Role    Role
	Size    int64
}

// ArtifactStore maps registry roles onto a blob.Store. Every call goes to the
// backing store; nothing is cached between calls.
type ArtifactStore struct {
	blobs blob.Store
}

// NewArtifactStore wraps blobs.
func NewArtifactStore(blobs blob.Store) *ArtifactStore {
	return &ArtifactStore{blobs: blobs}
}

// Driver reports the backing blob driver.
func (s *ArtifactStore) Driver() blob.Driver { return s.blobs.Driver() }

// Exists reports whether role is present.
func (s *ArtifactStore) Exists(ctx context.Context, role Role) (bool, error) {
	if _, err := s.blobs.Head(ctx, string(role)); err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return false, nil
		}
		return false, &IOError{Op: "stat", Role: role, Err: err}
	}
	return true, nil
}

// Read returns the bytes stored under role, or an error matching ErrNotFound.
func (s *ArtifactStore) Read(ctx context.Context, role Role) ([]byte, error) {
	_, rc, err := s.blobs.Get(ctx, string(role))
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, eris.Wrapf(ErrNotFound, "read %s", role)
		}
		return nil, &IOError{Op: "read", Role: role, Err: err}
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &IOError{Op: "read", Role: role, Err: err}
	}
	return data, nil
}

// Write stores data under role. Only the champion and metadata slots may be
// overwritten; every other role is create-only.
func (s *ArtifactStore) Write(ctx context.Context, role Role, data []byte) error {
	opts := blob.PutOptions{ContentType: role.contentType(), Overwrite: role.overwritable()}
	if _, err := s.blobs.Put(ctx, string(role), bytes.NewReader(data), opts); err != nil {
		return &IOError{Op: "write", Role: role, Err: err}
	}
	return nil
}

// Copy duplicates src into dst under the same overwrite rules as Write.
func (s *ArtifactStore) Copy(ctx context.Context, src, dst Role) error {
	opts := blob.PutOptions{ContentType: dst.contentType(), Overwrite: dst.overwritable()}
	if _, err := s.blobs.Copy(ctx, string(src), string(dst), opts); err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return eris.Wrapf(ErrNotFound, "copy %s to %s", src, dst)
		}
		return &IOError{Op: "copy", Role: dst, Err: err}
	}
	return nil
}

// Promote replaces the champion with candidate and records meta. The steps run
// in a fixed order so that an interruption leaves either the old champion in
// place or a backup next to the new champion:
//
//  1. stage candidate under .staging_<newVersion>.csv
//  2. copy champion to backup_<oldVersion>.csv
//  3. copy the staged file over the champion
//  4. overwrite the metadata record
//  5. remove the staged file
//
// A backup left by an interrupted earlier attempt is reused when it matches
// the champion byte for byte.
func (s *ArtifactStore) Promote(ctx context.Context, candidate, meta []byte, oldVersion, newVersion string) error {
	staged := stagingRole(newVersion)
	if err := s.Write(ctx, staged, candidate); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "promote cancelled after staging")
	}
	if err := s.backup(ctx, oldVersion); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "promote cancelled after backup")
	}
	if err := s.Copy(ctx, staged, RoleChampion); err != nil {
		return err
	}
	if err := s.Write(ctx, RoleMetadata, meta); err != nil {
		return err
	}
	if _, err := s.blobs.Delete(ctx, string(staged)); err != nil {
		return &IOError{Op: "delete", Role: staged, Err: err}
	}
	return nil
}

// backup copies the champion to backup_<oldVersion>.csv. An existing backup
// counts as done only if it holds the champion's exact bytes.
func (s *ArtifactStore) backup(ctx context.Context, oldVersion string) error {
	dst := BackupRole(oldVersion)
	err := s.Copy(ctx, RoleChampion, dst)
	if err == nil || !errors.Is(err, blob.ErrExists) {
		return err
	}
	existing, rerr := s.Read(ctx, dst)
	if rerr != nil {
		return rerr
	}
	champion, rerr := s.Read(ctx, RoleChampion)
	if rerr != nil {
		return rerr
	}
	if !bytes.Equal(existing, champion) {
		return &CorruptionError{Role: dst, Err: eris.New("backup differs from champion")}
	}
	return nil
}

// List returns the members of kind sorted by version.
func (s *ArtifactStore) List(ctx context.Context, kind Kind) ([]Entry, error) {
	prefix := kind.prefix()
	infos, err := s.blobs.List(ctx, prefix)
	if err != nil {
		return nil, &IOError{Op: "list", Role: Role(prefix + "*"), Err: err}
	}
	out := make([]Entry, 0, len(infos))
	for _, info := range infos {
		if strings.Contains(info.Key, "/") || !strings.HasSuffix(info.Key, artifactSuffix) {
			continue
		}
		version := strings.TrimSuffix(strings.TrimPrefix(info.Key, prefix), artifactSuffix)
		if version == "" {
			continue
		}
		out = append(out, Entry{Version: version, Role: Role(info.Key), Size: info.Size})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}
