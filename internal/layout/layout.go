// Package layout implements the on-disk shape of a blob store: how a
// Reference maps to a directory, where staging files live while they're
// being ingested, and how to walk the whole tree.
package layout

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/giuppep/rustore/internal/ref"
)

const (
	stagingDirName = ".tmp"
	blobFileName   = "blob"
	metaFileName   = "metadata"

	// walkConcurrency bounds how many top-level shard directories are
	// scanned in parallel during Walk. List order is unspecified by
	// design (spec §4.3), so there's no correctness cost to fanning out.
	walkConcurrency = 8
)

// Layout maps References onto a two-level sharded directory tree rooted
// at Root, per the on-disk layout spec:
//
//	<root>/<hex[0:2]>/<hex[2:4]>/<hex[4:64]>/blob
//	<root>/<hex[0:2]>/<hex[2:4]>/<hex[4:64]>/metadata
type Layout struct {
	Root string
}

// New returns a Layout rooted at root. It does not touch the filesystem;
// call Init before using it.
func New(root string) *Layout {
	return &Layout{Root: root}
}

// Init creates the store root and its staging area, and clears any
// leftover staging files from a prior crash (spec §9: implementations
// should stage inside <root>/.tmp/ and clean it at startup).
func (l *Layout) Init() error {
	if err := os.MkdirAll(l.Root, 0o755); err != nil {
		return fmt.Errorf("creating store root %s: %w", l.Root, err)
	}
	staging := l.StagingDir()
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("clearing staging dir %s: %w", staging, err)
	}
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return fmt.Errorf("creating staging dir %s: %w", staging, err)
	}
	return nil
}

// StagingDir returns the directory used for temporary ingest files. It
// must live on the same filesystem as Root so that the final commit can
// be a rename (spec §9: "temp staging must share a device with the store
// root to keep rename atomic").
func (l *Layout) StagingDir() string {
	return filepath.Join(l.Root, stagingDirName)
}

// shardDir splits a reference's hex form into its two prefix-directory
// components and the remaining blob directory name.
func shardDir(hex string) (top, mid, rest string) {
	return hex[0:2], hex[2:4], hex[4:]
}

// BlobDir returns the directory that holds r's content and metadata.
func (l *Layout) BlobDir(r ref.Reference) string {
	top, mid, rest := shardDir(r.String())
	return filepath.Join(l.Root, top, mid, rest)
}

// BlobPath returns the path to r's raw content file.
func (l *Layout) BlobPath(r ref.Reference) string {
	return filepath.Join(l.BlobDir(r), blobFileName)
}

// MetaPath returns the path to r's sidecar metadata file.
func (l *Layout) MetaPath(r ref.Reference) string {
	return filepath.Join(l.BlobDir(r), metaFileName)
}

// Exists reports whether r is fully committed: both its blob and
// metadata files are present. A directory with only a blob file (a
// transient state mid-commit) is treated as absent, per spec §5.
func (l *Layout) Exists(r ref.Reference) bool {
	if _, err := os.Stat(l.MetaPath(r)); err != nil {
		return false
	}
	_, err := os.Stat(l.BlobPath(r))
	return err == nil
}

// ErrNotFound is returned by Remove when r has no committed blob.
var ErrNotFound = fmt.Errorf("not found")

// Remove deletes r's blob directory and everything in it.
func (l *Layout) Remove(r ref.Reference) error {
	if !l.Exists(r) {
		return ErrNotFound
	}
	if err := os.RemoveAll(l.BlobDir(r)); err != nil {
		return fmt.Errorf("removing blob dir for %s: %w", r, err)
	}
	return nil
}

// Walk calls fn once for every committed reference in the store, in no
// particular order (spec §4.3: "order is unspecified"). It reflects a
// point-in-time snapshot of directory listings taken as each shard is
// visited, not a single linearizable scan; it is safe to run concurrently
// with Add and Delete. If fn returns an error, Walk stops and returns it.
func (l *Layout) Walk(ctx context.Context, fn func(ref.Reference) error) error {
	topEntries, err := os.ReadDir(l.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading store root %s: %w", l.Root, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(walkConcurrency)

	// fn is only ever called with this mutex held, so callers don't need
	// to be concurrency-safe even though the shards are scanned in parallel.
	var mu sync.Mutex

	for _, topEntry := range topEntries {
		topEntry := topEntry
		if !topEntry.IsDir() || len(topEntry.Name()) != 2 || topEntry.Name() == stagingDirName {
			continue
		}
		g.Go(func() error {
			refs, err := l.walkTop(topEntry.Name())
			if err != nil {
				return err
			}
			for _, r := range refs {
				if err := ctx.Err(); err != nil {
					return err
				}
				mu.Lock()
				err := fn(r)
				mu.Unlock()
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// walkTop reads every reference beneath a single top-level shard
// directory, sorted for deterministic test output (no ordering guarantee
// is made to callers of Walk).
func (l *Layout) walkTop(top string) ([]ref.Reference, error) {
	topDir := filepath.Join(l.Root, top)
	midEntries, err := os.ReadDir(topDir)
	if err != nil {
		return nil, fmt.Errorf("reading shard dir %s: %w", topDir, err)
	}

	var out []ref.Reference
	for _, midEntry := range midEntries {
		if !midEntry.IsDir() || len(midEntry.Name()) != 2 {
			continue
		}
		midDir := filepath.Join(topDir, midEntry.Name())
		blobEntries, err := os.ReadDir(midDir)
		if err != nil {
			return nil, fmt.Errorf("reading shard dir %s: %w", midDir, err)
		}
		for _, blobEntry := range blobEntries {
			if !blobEntry.IsDir() {
				continue
			}
			hex := top + midEntry.Name() + blobEntry.Name()
			r, err := ref.Parse(hex)
			if err != nil {
				// Malformed entries are skipped, not errors, per spec §4.2.
				continue
			}
			if !l.Exists(r) {
				continue
			}
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}
