// Package blob implements the blob engine (spec component C3): atomic
// content-addressed ingest, lookup, metadata derivation, and streaming
// reads over a layout.Layout.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	"github.com/giuppep/rustore/internal/layout"
	"github.com/giuppep/rustore/internal/ref"
)

// metadataCacheSize bounds the engine's in-memory metadata cache so a
// store with millions of blobs doesn't grow memory unboundedly just from
// serving repeated Head/Get calls.
const metadataCacheSize = 4096

// sniffLen is the prefix length sniffed for MIME detection, matching
// stdlib http.DetectContentType's own 512-byte window.
const sniffLen = 512

// Engine is the blob store's storage engine. It is a value constructed
// at bootstrap and threaded into callers (the HTTP server, the CLI) —
// never a package-level singleton (spec §9).
type Engine struct {
	layout *layout.Layout

	// ingest serializes the finalization of concurrent Add calls that
	// share a reference, implementing the ingest slot of spec §5: at
	// most one Add may be mid-commit for any given reference at a time,
	// and every caller waiting on that key observes the same outcome.
	ingest singleflight.Group

	metaCache *lru.Cache // ref.Reference -> Metadata
}

// New constructs an Engine rooted at root and initializes its on-disk
// layout (creating the root and clearing stale staging files).
func New(root string) (*Engine, error) {
	l := layout.New(root)
	if err := l.Init(); err != nil {
		return nil, err
	}
	cache, err := lru.New(metadataCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating metadata cache: %w", err)
	}
	return &Engine{layout: l, metaCache: cache}, nil
}

// commitResult is what the ingest singleflight group returns: the
// reference every waiter on that key should be given back.
type commitResult struct {
	ref ref.Reference
}

// Add ingests content read from r under the client-supplied filename,
// returning its reference. Re-ingesting content that already exists is a
// no-op that returns the existing reference (spec §3 invariant 2); the
// caller cannot distinguish "newly stored" from "already present".
func (e *Engine) Add(ctx context.Context, r io.Reader, filename string) (ref.Reference, error) {
	if err := ctx.Err(); err != nil {
		return ref.Zero, err
	}

	tmp, err := os.CreateTemp(e.layout.StagingDir(), "ingest-*")
	if err != nil {
		return ref.Zero, fmt.Errorf("creating staging file: %w", err)
	}
	tmpPath := tmp.Name()
	// Every exit path removes the staging file: either this call commits
	// it (renaming it away, so Remove below is a harmless no-op) or it
	// never becomes the committed blob.
	defer os.Remove(tmpPath)

	hasher := ref.NewHasher()
	size, err := io.Copy(io.MultiWriter(tmp, hasher), r)
	closeErr := tmp.Close()
	if err != nil {
		return ref.Zero, fmt.Errorf("writing staged content: %w", err)
	}
	if closeErr != nil {
		return ref.Zero, fmt.Errorf("closing staged content: %w", closeErr)
	}

	candidate := hasher.Sum()
	mimeType, err := sniffMIME(tmpPath)
	if err != nil {
		return ref.Zero, fmt.Errorf("sniffing content type: %w", err)
	}
	name := sanitizeFilename(filename)

	v, err, _ := e.ingest.Do(candidate.String(), func() (interface{}, error) {
		return e.commit(candidate, tmpPath, name, mimeType, size)
	})
	if err != nil {
		return ref.Zero, err
	}
	return v.(commitResult).ref, nil
}

// commit performs steps 6-7 of the Add procedure under the ingest slot
// for candidate: it either discards tmpPath as a duplicate of an
// already-committed blob, or atomically installs it as the new one.
func (e *Engine) commit(candidate ref.Reference, tmpPath, filename, mimeType string, size int64) (commitResult, error) {
	if e.layout.Exists(candidate) {
		// Dedup path: identical content already committed by an earlier
		// Add. tmpPath is cleaned up by the caller's deferred Remove.
		return commitResult{ref: candidate}, nil
	}

	dir := e.layout.BlobDir(candidate)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return commitResult{}, fmt.Errorf("creating blob dir for %s: %w", candidate, err)
	}

	blobPath := e.layout.BlobPath(candidate)
	if err := os.Rename(tmpPath, blobPath); err != nil {
		_ = os.RemoveAll(dir)
		return commitResult{}, fmt.Errorf("committing blob %s: %w", candidate, err)
	}

	meta := Metadata{
		Filename: filename,
		MIMEType: mimeType,
		Size:     size,
		Created:  time.Now().UTC(),
	}
	if err := writeMetadata(e.layout.MetaPath(candidate), meta); err != nil {
		_ = os.RemoveAll(dir)
		return commitResult{}, err
	}

	e.metaCache.Add(candidate, meta)
	return commitResult{ref: candidate}, nil
}

// Head returns a blob's metadata without opening its content.
func (e *Engine) Head(ctx context.Context, r ref.Reference) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}
	if cached, ok := e.metaCache.Get(r); ok {
		return cached.(Metadata), nil
	}
	if !e.layout.Exists(r) {
		return Metadata{}, ErrNotFound
	}
	meta, err := readMetadata(e.layout.MetaPath(r))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Metadata{}, ErrNotFound
		}
		return Metadata{}, err
	}
	e.metaCache.Add(r, meta)
	return meta, nil
}

// GetOptions configures Get. Verify re-hashes content as it streams and
// surfaces ErrCorrupted instead of a clean EOF on mismatch; it is never
// required on every read (spec §4.3), only exposed for maintenance use.
type GetOptions struct {
	Verify bool
}

// Get returns a blob's metadata together with a lazily-read stream of
// its content. The stream is opened on demand and must be closed by the
// caller; content is never loaded fully into memory by the engine.
func (e *Engine) Get(ctx context.Context, r ref.Reference, opts GetOptions) (Metadata, io.ReadCloser, error) {
	meta, err := e.Head(ctx, r)
	if err != nil {
		return Metadata{}, nil, err
	}

	f, err := os.Open(e.layout.BlobPath(r))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Metadata{}, nil, ErrNotFound
		}
		return Metadata{}, nil, fmt.Errorf("opening blob %s: %w", r, err)
	}

	if !opts.Verify {
		return meta, f, nil
	}
	return meta, &verifyingReadCloser{file: f, want: r, hasher: ref.NewHasher()}, nil
}

// verifyingReadCloser re-hashes content as it is read, and turns a clean
// EOF into ErrCorrupted if the recomputed digest disagrees with want.
type verifyingReadCloser struct {
	file   *os.File
	want   ref.Reference
	hasher *ref.Hasher
}

func (v *verifyingReadCloser) Read(p []byte) (int, error) {
	n, err := v.file.Read(p)
	if n > 0 {
		_, _ = v.hasher.Write(p[:n])
	}
	if errors.Is(err, io.EOF) && v.hasher.Sum() != v.want {
		return n, ErrCorrupted
	}
	return n, err
}

func (v *verifyingReadCloser) Close() error {
	return v.file.Close()
}

// Verify recomputes a stored blob's digest and compares it against ref,
// for test and maintenance use (spec §4.3: "the verify entry point must
// exist"). It is never called from the default HTTP download route.
func (e *Engine) Verify(ctx context.Context, r ref.Reference) error {
	_, rc, err := e.Get(ctx, r, GetOptions{Verify: true})
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = io.Copy(io.Discard, rc)
	return err
}

// Delete removes a blob. A delete racing a concurrent Add for the same
// reference is resolved by the presence rule in layout.Exists: the
// blob directory isn't visible as committed until its metadata file is
// written, so Delete here simply can't see it mid-commit (spec §5).
func (e *Engine) Delete(ctx context.Context, r ref.Reference) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.layout.Remove(r); err != nil {
		if errors.Is(err, layout.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	e.metaCache.Remove(r)
	return nil
}

// List calls fn once for every reference in the store. See layout.Walk
// for its consistency guarantees.
func (e *Engine) List(ctx context.Context, fn func(ref.Reference) error) error {
	return e.layout.Walk(ctx, fn)
}

// sniffMIME detects the content type of a staged file from its first
// sniffLen bytes, falling back to the fixed octet-stream sentinel for
// content the sniffer can't classify (including the empty-content case).
func sniffMIME(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	if n == 0 {
		return defaultMIMEType, nil
	}
	return http.DetectContentType(buf[:n]), nil
}
