package storage

import (
	"errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinioIterator_ErrorStopsIteration(t *testing.T) {
	t.Parallel()

	listErr := errors.New("listing interrupted")

	ch := make(chan minio.ObjectInfo, 3)
	ch <- minio.ObjectInfo{Key: "a", Size: 1}
	ch <- minio.ObjectInfo{Err: listErr}
	ch <- minio.ObjectInfo{Key: "b", Size: 2}
	close(ch)

	it := &minioIterator{ch: ch}

	desc, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, "a", desc.Key)
	require.NoError(t, it.Err())

	_, ok = it.Next()
	assert.False(t, ok, "iteration stops at the failed entry")
	assert.ErrorIs(t, it.Err(), listErr)

	// The error is sticky: later entries are never surfaced.
	_, ok = it.Next()
	assert.False(t, ok)
	assert.ErrorIs(t, it.Err(), listErr)
}

func TestMinioIterator_CleanDrain(t *testing.T) {
	t.Parallel()

	ch := make(chan minio.ObjectInfo, 2)
	ch <- minio.ObjectInfo{Key: "a"}
	ch <- minio.ObjectInfo{Key: "b"}
	close(ch)

	it := &minioIterator{ch: ch}

	var keys []string
	for {
		d, ok := it.Next()
		if !ok {
			break
		}
		keys = append(keys, d.Key)
	}

	assert.Equal(t, []string{"a", "b"}, keys)
	assert.NoError(t, it.Err())
}

func TestPutError_ShortReaderIsSizeMismatch(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, putError("k", io.ErrUnexpectedEOF), ErrSizeMismatch)
	assert.ErrorIs(t, putError("k", io.EOF), ErrSizeMismatch)

	backend := errors.New("connection reset")
	assert.ErrorIs(t, putError("k", backend), backend)
	assert.NotErrorIs(t, putError("k", backend), ErrSizeMismatch)
}
