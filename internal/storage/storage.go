// Package storage holds document bytes in an S3-compatible bucket. Objects
// are written once under an owner-scoped key and read back only through
// presigned URLs.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrObjectNotFound is returned by Stat when no object exists under the key.
var ErrObjectNotFound = errors.New("object not found")

// PutObjectOptions describe an upload. Size -1 means unknown length.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo is what the bucket knows about a stored document.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Stat returns ErrObjectNotFound for a missing key.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	// Delete is idempotent.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a credential-free URL valid for expiry. When
	// downloadName is set the response is served as an attachment under
	// that name.
	PresignGet(ctx context.Context, key string, expiry time.Duration, downloadName string) (string, error)
}

// ObjectKey places a new object under its owner's prefix with a random name,
// keeping only the lower-cased extension of fileName.
func ObjectKey(ownerID, fileName string) string {
	return ownerID + "/" + uuid.NewString() + strings.ToLower(path.Ext(fileName))
}
