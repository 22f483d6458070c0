package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalArchive_RoundTrip(t *testing.T) {
	ctx := context.Background()
	archive, err := NewLocalArchive(t.TempDir())
	require.NoError(t, err)

	userID := uuid.New()

	info, err := archive.Store(ctx, userID, "kassenbon.txt", "text/plain", strings.NewReader("SUMME EUR 9,81"))
	require.NoError(t, err)
	assert.Equal(t, "kassenbon.txt", info.Name)
	assert.Equal(t, int64(14), info.Size)

	rc, got, err := archive.Open(ctx, userID, info.ID)
	require.NoError(t, err)
	defer rc.Close()

	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "SUMME EUR 9,81", string(content))
	assert.Equal(t, info.ID, got.ID)

	docs, err := archive.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	require.NoError(t, archive.Delete(ctx, userID, info.ID))
	docs, err = archive.List(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestLocalArchive_IsolatesUsers(t *testing.T) {
	ctx := context.Background()
	archive, err := NewLocalArchive(t.TempDir())
	require.NoError(t, err)

	owner := uuid.New()
	other := uuid.New()

	info, err := archive.Store(ctx, owner, "bon.txt", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)

	_, _, err = archive.Open(ctx, other, info.ID)
	assert.Error(t, err)

	docs, err := archive.List(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"kassenbon.pdf", "kassenbon.pdf"},
		{"../../etc/passwd", "passwd"},
		{"bon mit spaces.txt", "bon_mit_spaces.txt"},
		{"", "document"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.input), "input %q", tt.input)
	}
}
