package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/mediavault/service/internal/auth"
	"github.com/mediavault/service/internal/storage"
)

// ErrStoreUnavailable wraps blob-backend connectivity failures so handlers
// can surface them as a retryable condition.
var ErrStoreUnavailable = errors.New("object store unavailable")

// UploadMeta carries the caller-supplied metadata for a new upload.
type UploadMeta struct {
	FileName    string
	Title       string
	Description *string
	Category    *string
	Tags        []string
}

// Service orchestrates the object store gateway and the media catalog into
// single logical operations with defined partial-failure behavior.
type Service struct {
	repo  Repository
	store storage.Storage

	// browseTTL covers list/detail URLs; downloadTTL is deliberately shorter.
	browseTTL   time.Duration
	downloadTTL time.Duration
}

// NewService creates a new media Service.
func NewService(repo Repository, store storage.Storage, browseTTL, downloadTTL time.Duration) *Service {
	return &Service{repo: repo, store: store, browseTTL: browseTTL, downloadTTL: downloadTTL}
}

// Upload writes the bytes to the object store first, then records the
// catalog entry. A store failure aborts before any catalog row exists; a
// catalog failure after a successful store write leaves an orphaned object,
// which is logged distinctly for operational remediation but not rolled
// back automatically.
func (s *Service) Upload(ctx context.Context, p auth.Principal, r io.Reader, size int64, contentType string, meta UploadMeta) (*Media, error) {
	key := storage.ObjectKey(p.UserID, meta.FileName)

	tags := map[string]string{
		"owner": p.UserID,
		"title": meta.Title,
	}
	if meta.Category != nil {
		tags["category"] = *meta.Category
	}

	if err := s.store.Upload(ctx, key, r, size, contentType, tags); err != nil {
		if errors.Is(err, storage.ErrSizeMismatch) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrStoreUnavailable, err)
	}

	rec, err := s.repo.Create(ctx, &Media{
		OwnerID:     p.UserID,
		ObjectKey:   key,
		FileName:    meta.FileName,
		Title:       meta.Title,
		Description: meta.Description,
		ContentType: contentType,
		SizeBytes:   size,
		Category:    meta.Category,
		Tags:        meta.Tags,
	})
	if err != nil {
		log.Printf("orphaned object: object written but catalog create failed key=%s owner=%s err=%v", key, p.UserID, err)
		return nil, fmt.Errorf("record upload: %w", err)
	}

	if err := s.attachURL(ctx, rec, s.browseTTL); err != nil {
		return nil, err
	}
	return rec, nil
}

// Get returns one owned record with a browse-TTL access URL attached.
func (s *Service) Get(ctx context.Context, p auth.Principal, id string) (*Media, error) {
	rec, err := s.repo.Get(ctx, id, p.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.attachURL(ctx, rec, s.browseTTL); err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns one page of the principal's records, each with a browse-TTL
// access URL, plus the total match count.
func (s *Service) List(ctx context.Context, p auth.Principal, f Filter, page, pageSize int) ([]*Media, int, error) {
	records, total, err := s.repo.List(ctx, p.UserID, f, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	for _, rec := range records {
		if err := s.attachURL(ctx, rec, s.browseTTL); err != nil {
			return nil, 0, err
		}
	}
	return records, total, nil
}

// Download resolves the owned record and returns a short-lived URL, with a
// TTL distinct from (and shorter than) the browsing TTL.
func (s *Service) Download(ctx context.Context, p auth.Principal, id string) (string, error) {
	rec, err := s.repo.Get(ctx, id, p.UserID)
	if err != nil {
		return "", err
	}
	url, err := s.store.PresignedURL(ctx, rec.ObjectKey, s.downloadTTL)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrStoreUnavailable, err)
	}
	return url, nil
}

// Update applies partial metadata changes; the object key never changes.
func (s *Service) Update(ctx context.Context, p auth.Principal, id string, upd Update) (*Media, error) {
	rec, err := s.repo.Update(ctx, id, p.UserID, upd)
	if err != nil {
		return nil, err
	}
	if err := s.attachURL(ctx, rec, s.browseTTL); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes the object and the catalog record as one logical unit.
// Object removal is idempotent, so a retried delete is safe. If the catalog
// delete fails after the object is gone, the mirror orphan condition is
// logged distinctly.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id string) error {
	rec, err := s.repo.Get(ctx, id, p.UserID)
	if err != nil {
		return err
	}

	if err := s.store.Remove(ctx, rec.ObjectKey); err != nil {
		return fmt.Errorf("%w: %s", ErrStoreUnavailable, err)
	}

	if err := s.repo.Delete(ctx, id, p.UserID); err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("orphaned record: object removed but catalog delete failed key=%s owner=%s err=%v", rec.ObjectKey, p.UserID, err)
		}
		return err
	}
	return nil
}

func (s *Service) attachURL(ctx context.Context, rec *Media, ttl time.Duration) error {
	url, err := s.store.PresignedURL(ctx, rec.ObjectKey, ttl)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrStoreUnavailable, err)
	}
	rec.URL = url
	return nil
}
