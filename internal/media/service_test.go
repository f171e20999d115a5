package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediavault/service/internal/auth"
	"github.com/mediavault/service/internal/storage"
)

const (
	testBrowseTTL   = time.Hour
	testDownloadTTL = 5 * time.Minute
)

var alice = auth.Principal{UserID: "owner-alice", Email: "alice@example.com", Role: "user"}
var bob = auth.Principal{UserID: "owner-bob", Email: "bob@example.com", Role: "user"}

// fakeStore implements storage.Storage in memory.
type fakeStore struct {
	mu        sync.Mutex
	objects   map[string]int64
	tags      map[string]map[string]string
	uploadErr error
	listErr   error
	presigned []time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string]int64), tags: make(map[string]map[string]string)}
}

func (s *fakeStore) EnsureBucket(context.Context) error { return nil }

func (s *fakeStore) Upload(_ context.Context, key string, r io.Reader, size int64, _ string, tags map[string]string) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	n, err := io.Copy(io.Discard, r)
	if err != nil {
		return err
	}
	if n != size {
		return fmt.Errorf("upload %q: %w", key, storage.ErrSizeMismatch)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = size
	s.tags[key] = tags
	return nil
}

func (s *fakeStore) PresignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presigned = append(s.presigned, ttl)
	return fmt.Sprintf("https://store.local/%s?ttl=%s", key, ttl), nil
}

func (s *fakeStore) Remove(_ context.Context, key string) error {
	// Absent keys are a no-op success, like the real backend.
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *fakeStore) List(_ context.Context, prefix string) storage.ObjectIterator {
	s.mu.Lock()
	defer s.mu.Unlock()
	var descs []storage.ObjectDescriptor
	for key, size := range s.objects {
		if strings.HasPrefix(key, prefix) {
			descs = append(descs, storage.ObjectDescriptor{Key: key, Size: size})
		}
	}
	return &sliceIterator{descs: descs, err: s.listErr}
}

type sliceIterator struct {
	descs []storage.ObjectDescriptor
	pos   int
	err   error
}

func (it *sliceIterator) Next() (storage.ObjectDescriptor, bool) {
	if it.err != nil || it.pos >= len(it.descs) {
		return storage.ObjectDescriptor{}, false
	}
	d := it.descs[it.pos]
	it.pos++
	return d, true
}

func (it *sliceIterator) Err() error { return it.err }

// fakeRepo implements Repository in memory, ownership-scoped like the real one.
type fakeRepo struct {
	mu        sync.Mutex
	records   []*Media
	seq       int
	createErr error
	deleteErr error
}

func (r *fakeRepo) Create(_ context.Context, m *Media) (*Media, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	rec := *m
	rec.ID = fmt.Sprintf("media-%d", r.seq)
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	r.records = append(r.records, &rec)
	out := rec
	return &out, nil
}

func (r *fakeRepo) Get(_ context.Context, id, ownerID string) (*Media, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id && rec.OwnerID == ownerID {
			out := *rec
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakeRepo) Update(_ context.Context, id, ownerID string, upd Update) (*Media, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id && rec.OwnerID == ownerID {
			if upd.Title != nil {
				rec.Title = *upd.Title
			}
			if upd.Description != nil {
				rec.Description = upd.Description
			}
			if upd.Category != nil {
				rec.Category = upd.Category
			}
			if upd.Tags != nil {
				rec.Tags = upd.Tags
			}
			rec.UpdatedAt = time.Now()
			out := *rec
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakeRepo) Delete(_ context.Context, id, ownerID string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rec := range r.records {
		if rec.ID == id && rec.OwnerID == ownerID {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (r *fakeRepo) List(_ context.Context, ownerID string, f Filter, page, pageSize int) ([]*Media, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*Media
	for _, rec := range r.records {
		if rec.OwnerID != ownerID {
			continue
		}
		if f.Category != "" && (rec.Category == nil || *rec.Category != f.Category) {
			continue
		}
		matched = append(matched, rec)
	}

	total := len(matched)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	out := make([]*Media, 0, end-start)
	for _, rec := range matched[start:end] {
		cp := *rec
		out = append(out, &cp)
	}
	return out, total, nil
}

func newTestService(repo *fakeRepo, store *fakeStore) *Service {
	return NewService(repo, store, testBrowseTTL, testDownloadTTL)
}

func uploadNote(t *testing.T, svc *Service, p auth.Principal, title string) *Media {
	t.Helper()
	body := []byte("0123456789")
	rec, err := svc.Upload(context.Background(), p, bytes.NewReader(body), int64(len(body)), "text/plain", UploadMeta{
		FileName: "note.txt",
		Title:    title,
	})
	require.NoError(t, err)
	return rec
}

func TestUpload_StoresObjectThenRecord(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	store := newFakeStore()
	svc := newTestService(repo, store)

	rec := uploadNote(t, svc, alice, "note")

	assert.Equal(t, "note", rec.Title)
	assert.Equal(t, int64(10), rec.SizeBytes)
	assert.NotEmpty(t, rec.ID)
	assert.NotEmpty(t, rec.URL, "upload response carries a fresh access URL")

	require.Len(t, repo.records, 1)
	key := repo.records[0].ObjectKey
	assert.True(t, strings.HasPrefix(key, alice.UserID+"/"), "object key is owner-scoped")

	_, exists := store.objects[key]
	assert.True(t, exists, "bytes landed in the store under the derived key")
	assert.Equal(t, alice.UserID, store.tags[key]["owner"], "owner tag attached to the object")
}

func TestUpload_StoreFailureCreatesNoRecord(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	store := newFakeStore()
	store.uploadErr = errors.New("connection refused")
	svc := newTestService(repo, store)

	_, err := svc.Upload(context.Background(), alice, strings.NewReader("x"), 1, "text/plain", UploadMeta{FileName: "x", Title: "x"})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Empty(t, repo.records, "no catalog row for bytes that did not land")
}

func TestUpload_SizeMismatchSurfaced(t *testing.T) {
	t.Parallel()

	svc := newTestService(&fakeRepo{}, newFakeStore())

	// Declared 20 bytes, stream carries 10.
	_, err := svc.Upload(context.Background(), alice, strings.NewReader("0123456789"), 20, "text/plain", UploadMeta{FileName: "x", Title: "x"})
	assert.ErrorIs(t, err, storage.ErrSizeMismatch)
}

func TestUpload_CatalogFailureLogsOrphan(t *testing.T) {
	repo := &fakeRepo{createErr: errors.New("catalog down")}
	store := newFakeStore()
	svc := newTestService(repo, store)

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	_, err := svc.Upload(context.Background(), alice, strings.NewReader("0123456789"), 10, "text/plain", UploadMeta{FileName: "note.txt", Title: "note"})
	require.Error(t, err)

	assert.Len(t, store.objects, 1, "object was written before the catalog failed")
	assert.Contains(t, buf.String(), "orphaned object", "orphan condition is logged distinctly")
}

func TestDownload_UsesShorterTTL(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	store := newFakeStore()
	svc := newTestService(repo, store)

	rec := uploadNote(t, svc, alice, "note")
	store.presigned = nil

	url, err := svc.Download(context.Background(), alice, rec.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, url)

	require.Len(t, store.presigned, 1)
	assert.Equal(t, testDownloadTTL, store.presigned[0])
	assert.Less(t, testDownloadTTL, testBrowseTTL)
}

func TestDownload_ForeignOwnerIsNotFound(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	store := newFakeStore()
	svc := newTestService(repo, store)

	rec := uploadNote(t, svc, alice, "note")

	_, err := svc.Download(context.Background(), bob, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound, "foreign records are indistinguishable from absent ones")
}

func TestUpdate_ForeignOwnerIsNotFound(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	svc := newTestService(repo, newFakeStore())

	rec := uploadNote(t, svc, alice, "note")

	title := "hijacked"
	_, err := svc.Update(context.Background(), bob, rec.ID, Update{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_NeverTouchesObjectKey(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	svc := newTestService(repo, newFakeStore())

	rec := uploadNote(t, svc, alice, "note")
	originalKey := repo.records[0].ObjectKey

	title := "renamed"
	updated, err := svc.Update(context.Background(), alice, rec.ID, Update{Title: &title, Tags: []string{"a", "b"}})
	require.NoError(t, err)

	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, originalKey, repo.records[0].ObjectKey)
}

func TestDelete_RemovesObjectAndRecord(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	store := newFakeStore()
	svc := newTestService(repo, store)

	rec := uploadNote(t, svc, alice, "note")

	require.NoError(t, svc.Delete(context.Background(), alice, rec.ID))
	assert.Empty(t, store.objects)
	assert.Empty(t, repo.records)

	// Retried delete: the record is gone, so the caller sees NotFound.
	assert.ErrorIs(t, svc.Delete(context.Background(), alice, rec.ID), ErrNotFound)
}

func TestDelete_CatalogFailureLogsOrphan(t *testing.T) {
	repo := &fakeRepo{}
	store := newFakeStore()
	svc := newTestService(repo, store)

	rec := uploadNote(t, svc, alice, "note")
	repo.deleteErr = errors.New("catalog down")

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	err := svc.Delete(context.Background(), alice, rec.ID)
	require.Error(t, err)

	assert.Empty(t, store.objects, "object removal happened before the catalog failed")
	assert.Contains(t, buf.String(), "orphaned record")
}

func TestList_AttachesURLsAndScopesOwner(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	store := newFakeStore()
	svc := newTestService(repo, store)

	uploadNote(t, svc, alice, "mine")
	uploadNote(t, svc, bob, "theirs")

	records, total, err := svc.List(context.Background(), alice, Filter{}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, records, 1)
	assert.Equal(t, "mine", records[0].Title)
	assert.NotEmpty(t, records[0].URL)
}

func TestRemove_IdempotentOnAbsentKey(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "k", strings.NewReader("x"), 1, "text/plain", nil))
	require.NoError(t, store.Remove(ctx, "k"))
	require.NoError(t, store.Remove(ctx, "k"), "second remove of the same key is a no-op success")
}
