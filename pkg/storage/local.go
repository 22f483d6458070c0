package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalArchive keeps receipt documents on the local filesystem, one directory
// per user, with a JSON sidecar per document carrying its metadata.
type LocalArchive struct {
	basePath string
}

// NewLocalArchive creates a filesystem-backed archive rooted at basePath.
func NewLocalArchive(basePath string) (*LocalArchive, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &LocalArchive{basePath: basePath}, nil
}

func (a *LocalArchive) Store(_ context.Context, userID uuid.UUID, filename, contentType string, r io.Reader) (*DocumentInfo, error) {
	documentID := uuid.New()

	userDir := filepath.Join(a.basePath, userID.String())
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return nil, fmt.Errorf("create user directory: %w", err)
	}

	storedName := documentID.String()[:8] + "_" + sanitizeFilename(filename)
	path := filepath.Join(userDir, storedName)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create document file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write document: %w", err)
	}

	info := &DocumentInfo{
		ID:          documentID,
		Name:        filename,
		Size:        size,
		ContentType: contentType,
		Path:        path,
		CreatedAt:   time.Now().UTC(),
	}
	if err := a.writeSidecar(info); err != nil {
		os.Remove(path)
		return nil, err
	}
	return info, nil
}

func (a *LocalArchive) Open(_ context.Context, userID, documentID uuid.UUID) (io.ReadCloser, *DocumentInfo, error) {
	info, err := a.readSidecar(userID, documentID)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(info.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open document: %w", err)
	}
	return f, info, nil
}

func (a *LocalArchive) Delete(_ context.Context, userID, documentID uuid.UUID) error {
	info, err := a.readSidecar(userID, documentID)
	if err != nil {
		return err
	}
	if err := os.Remove(info.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove document: %w", err)
	}
	if err := os.Remove(a.sidecarPath(userID, documentID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove document metadata: %w", err)
	}
	return nil
}

func (a *LocalArchive) List(_ context.Context, userID uuid.UUID) ([]*DocumentInfo, error) {
	userDir := filepath.Join(a.basePath, userID.String())
	entries, err := os.ReadDir(userDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read archive directory: %w", err)
	}

	var docs []*DocumentInfo
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(userDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read document metadata: %w", err)
		}
		var info DocumentInfo
		if err := json.Unmarshal(data, &info); err != nil {
			return nil, fmt.Errorf("decode document metadata: %w", err)
		}
		docs = append(docs, &info)
	}
	return docs, nil
}

func (a *LocalArchive) sidecarPath(userID, documentID uuid.UUID) string {
	return filepath.Join(a.basePath, userID.String(), documentID.String()+".meta.json")
}

func (a *LocalArchive) writeSidecar(info *DocumentInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode document metadata: %w", err)
	}
	dir := filepath.Dir(info.Path)
	if err := os.WriteFile(filepath.Join(dir, info.ID.String()+".meta.json"), data, 0o644); err != nil {
		return fmt.Errorf("write document metadata: %w", err)
	}
	return nil
}

func (a *LocalArchive) readSidecar(userID, documentID uuid.UUID) (*DocumentInfo, error) {
	data, err := os.ReadFile(a.sidecarPath(userID, documentID))
	if err != nil {
		return nil, fmt.Errorf("read document metadata: %w", err)
	}
	var info DocumentInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decode document metadata: %w", err)
	}
	return &info, nil
}

// sanitizeFilename strips path separators and control characters so a client
// supplied name cannot escape the user directory.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return "document"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "document"
	}
	return b.String()
}
