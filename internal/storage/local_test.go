package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	key := "ada/1700000000-labs.pdf"
	require.NoError(t, s.Put(ctx, key, strings.NewReader("%PDF-1.4"), 8, "application/pdf"))

	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := s.Get(ctx, key)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(body))

	require.NoError(t, s.Delete(ctx, key))
	assert.ErrorIs(t, s.Delete(ctx, key), ErrNotFound)

	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../etc/passwd", "/abs/path", "a/../../b"} {
		err := s.Put(ctx, key, strings.NewReader("x"), 1, "")
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestLocalStoreNoPresign(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.PresignGet(context.Background(), "a/b.pdf", time.Minute)
	assert.ErrorIs(t, err, ErrPresignUnsupported)
}

func TestBackend(t *testing.T) {
	s, err := Backend(context.Background(), "local", t.TempDir(), S3Options{})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, s)

	_, err = Backend(context.Background(), "ftp", "", S3Options{})
	assert.Error(t, err)
}
