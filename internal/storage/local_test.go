package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/bizznex/internal"
)

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir(), "/archive")
	require.NoError(t, err)

	key := InvoiceKey("INV-202601-001")
	assert.Equal(t, "invoices/INV-202601-001.pdf", key)

	url, err := s.Put(ctx, key, bytes.NewReader([]byte("%PDF-1.3")), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "/archive/invoices/INV-202601-001.pdf", url)

	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := s.Get(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(data))

	// overwrite replaces the document
	_, err = s.Put(ctx, key, bytes.NewReader([]byte("%PDF-1.4")), "application/pdf")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))

	ok, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "/archive")
	require.NoError(t, err)

	for _, key := range []string{"", "../escape.pdf", "invoices/../../x", "/etc/passwd"} {
		_, err := s.Put(context.Background(), key, bytes.NewReader(nil), "application/pdf")
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestNewS3Storage_Validation(t *testing.T) {
	_, err := NewS3Storage(context.Background(), S3Config{})
	assert.ErrorIs(t, err, ErrBucketRequired)

	_, err = NewS3Storage(context.Background(), S3Config{Bucket: "b", AccessKeyID: "id"})
	assert.ErrorIs(t, err, ErrCredentialsRequired)
}

func TestNewStorage_UnknownProvider(t *testing.T) {
	_, err := NewStorage(internal.StorageConfig{Provider: "ftp"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"ftp"`)
}

func TestCheckKey(t *testing.T) {
	assert.NoError(t, checkKey(InvoiceKey("INV-202601-001")))
	for _, key := range []string{"", "/invoices/a.pdf", "../a.pdf", "invoices/../../a.pdf", "invoices//a.pdf"} {
		assert.ErrorIs(t, checkKey(key), ErrInvalidKey, "key %q", key)
	}
}
