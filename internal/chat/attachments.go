package chat

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// FileUpload is the metadata plus a lazily opened byte stream for one
// uploaded file. The core never touches the filesystem itself.
type FileUpload struct {
	OriginalName string
	MimeType     string
	SizeBytes    int64
	Open         func() (io.ReadCloser, error)
}

// BlobStore is the external blob-storage collaborator behind a disk name.
// Implementations live outside the chat core.
type BlobStore interface {
	Save(ctx context.Context, objectPath string, r io.Reader) error
	URL(objectPath string) string
}

// AttachmentLimits are the per-batch and per-file constraints.
type AttachmentLimits struct {
	MaxFiles     int
	MaxFileBytes int64
	AllowedMime  []string // empty allows any type
}

// validateUploads checks the whole batch and reports every offending file,
// not just the first.
func validateUploads(files []FileUpload, limits AttachmentLimits) error {
	var fields []FieldError
	if limits.MaxFiles > 0 && len(files) > limits.MaxFiles {
		fields = append(fields, FieldError{
			Field:   "files",
			Message: fmt.Sprintf("at most %d files per message, got %d", limits.MaxFiles, len(files)),
		})
	}
	for i, f := range files {
		name := fmt.Sprintf("files[%d]", i)
		if limits.MaxFileBytes > 0 && f.SizeBytes > limits.MaxFileBytes {
			fields = append(fields, FieldError{
				Field:   name,
				Message: fmt.Sprintf("%q exceeds the %d byte limit", f.OriginalName, limits.MaxFileBytes),
			})
		}
		if len(limits.AllowedMime) > 0 && !mimeAllowed(f.MimeType, limits.AllowedMime) {
			fields = append(fields, FieldError{
				Field:   name,
				Message: fmt.Sprintf("type %q is not allowed", f.MimeType),
			})
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func mimeAllowed(mime string, allowed []string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	for _, a := range allowed {
		if mime == a {
			return true
		}
	}
	return false
}

// attachmentPath builds the storage key for one upload. The original name
// only contributes its extension; the key itself is never user-controlled.
func attachmentPath(conversationID uint64, originalName string) string {
	ext := strings.ToLower(path.Ext(originalName))
	return fmt.Sprintf("conversations/%d/%s%s", conversationID, uuid.NewString(), ext)
}
