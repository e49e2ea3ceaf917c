package storage

import "context"

// ErrObjectNotFound reports that a tier holds no readable bytes for a path.
// Zero-byte objects count as not found; files can have been written under a
// tier that was since reconfigured.
type notFoundError struct{ path string }

func (e *notFoundError) Error() string { return "object not found: " + e.path }

// NewNotFound builds a tier-level not-found error for a path.
func NewNotFound(path string) error { return &notFoundError{path: path} }

// IsNotFound reports whether err is a tier-level not-found.
func IsNotFound(err error) bool {
	_, ok := err.(*notFoundError)
	return ok
}

// Tier is one physical storage backend in the gateway's ordered fallback list.
type Tier interface {
	// Name identifies the tier; persisted with attachment metadata so reads
	// can go straight to the tier that accepted the write.
	Name() string
	Put(ctx context.Context, path string, data []byte, contentType string) error
	// Get returns the stored bytes, or a not-found error when the path is
	// absent, unreadable, or zero bytes at this tier.
	Get(ctx context.Context, path string) ([]byte, error)
	// Delete is idempotent; removing a non-existent path is not an error.
	Delete(ctx context.Context, path string) error
}
