package blob

import "errors"

// ErrNotFound is returned by Get, Head, and Delete when a reference has
// no committed blob.
var ErrNotFound = errors.New("blob: not found")

// ErrCorrupted is returned by the stream Get hands back when Verify is
// requested (at end of stream, in place of io.EOF), and by Engine.Verify,
// when the stored content's digest disagrees with the requested reference.
var ErrCorrupted = errors.New("blob: corrupted")
