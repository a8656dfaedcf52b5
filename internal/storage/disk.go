package storage

import (
	"context"
	"io"
)

// Disk is a named blob store. The chat core records only (disk, path) pairs;
// everything about the bytes lives behind this interface.
type Disk interface {
	Save(ctx context.Context, objectPath string, r io.Reader) error
	URL(objectPath string) string
}
