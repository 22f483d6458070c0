// Package storage archives original receipt documents so a parse can later be
// re-run or audited against its source.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// DocumentInfo is the metadata of one archived receipt document.
type DocumentInfo struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"`
	CreatedAt   time.Time `json:"created_at"`
}

// Archive stores and retrieves the original documents behind parsed receipts,
// partitioned per user.
type Archive interface {
	// Store writes a document and returns its metadata.
	Store(ctx context.Context, userID uuid.UUID, filename, contentType string, r io.Reader) (*DocumentInfo, error)

	// Open returns the document content and metadata.
	Open(ctx context.Context, userID, documentID uuid.UUID) (io.ReadCloser, *DocumentInfo, error)

	// Delete removes a document.
	Delete(ctx context.Context, userID, documentID uuid.UUID) error

	// List returns a user's documents.
	List(ctx context.Context, userID uuid.UUID) ([]*DocumentInfo, error)
}
