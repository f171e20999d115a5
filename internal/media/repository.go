// Package media owns the media catalog and the upload/access orchestration
// between the catalog and the object store gateway.
package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a record is absent or owned by another
// principal; the two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("media not found")

// Media is a catalog record linking a logical media item to its object key.
type Media struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"-"`
	ObjectKey   string    `json:"-"`
	FileName    string    `json:"fileName"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	Category    *string   `json:"category,omitempty"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// URL is a presigned access URL attached on the way out; never persisted.
	URL string `json:"url,omitempty"`
}

// Filter narrows a catalog listing. Zero values mean "no constraint".
type Filter struct {
	// Category matches exactly.
	Category string
	// Type matches the content type: exact when it contains a slash,
	// otherwise as a class prefix ("image" matches "image/png").
	Type string
	// Search matches case-insensitively against title, description, and
	// tag membership (substring within any tag qualifies).
	Search string
}

// Update carries partial metadata changes. Nil fields are left untouched;
// the object key is never updatable.
type Update struct {
	Title       *string
	Description *string
	Category    *string
	Tags        []string
}

// Repository is the persistence interface for the media catalog. Ownership
// is part of every lookup predicate.
type Repository interface {
	Create(ctx context.Context, m *Media) (*Media, error)
	Get(ctx context.Context, id, ownerID string) (*Media, error)
	Update(ctx context.Context, id, ownerID string, upd Update) (*Media, error)
	Delete(ctx context.Context, id, ownerID string) error
	List(ctx context.Context, ownerID string, f Filter, page, pageSize int) ([]*Media, int, error)
}

const mediaColumns = `id, owner_id, object_key, file_name, title, description, content_type, size_bytes, category, tags, created_at, updated_at`

// PostgresRepository implements Repository on a pgx pool.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgresRepository.
func NewRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new catalog record and returns it with generated fields.
func (r *PostgresRepository) Create(ctx context.Context, m *Media) (*Media, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO media (owner_id, object_key, file_name, title, description, content_type, size_bytes, category, tags)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+mediaColumns,
		m.OwnerID, m.ObjectKey, m.FileName, m.Title, m.Description, m.ContentType, m.SizeBytes, m.Category, m.Tags,
	)
	created, err := scanMedia(row)
	if err != nil {
		return nil, fmt.Errorf("create media record: %w", err)
	}
	return created, nil
}

// Get fetches a record scoped to its owner. A record belonging to another
// owner is indistinguishable from a non-existent one.
func (r *PostgresRepository) Get(ctx context.Context, id, ownerID string) (*Media, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	m, err := scanMedia(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get media record: %w", err)
	}
	return m, nil
}

// Update applies partial metadata changes. The object key never changes
// post-creation, so per-row write atomicity is sufficient.
func (r *PostgresRepository) Update(ctx context.Context, id, ownerID string, upd Update) (*Media, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE media SET
			title       = COALESCE($3, title),
			description = COALESCE($4, description),
			category    = COALESCE($5, category),
			tags        = COALESCE($6, tags),
			updated_at  = NOW()
		 WHERE id = $1 AND owner_id = $2
		 RETURNING `+mediaColumns,
		id, ownerID, upd.Title, upd.Description, upd.Category, upd.Tags,
	)
	m, err := scanMedia(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update media record: %w", err)
	}
	return m, nil
}

// Delete removes a record scoped to its owner.
func (r *PostgresRepository) Delete(ctx context.Context, id, ownerID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM media WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("delete media record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns one page of the owner's records plus the total match count.
// The count is taken with the same predicates in a separate query; read
// committed is sufficient (listing never blocks writers).
func (r *PostgresRepository) List(ctx context.Context, ownerID string, f Filter, page, pageSize int) ([]*Media, int, error) {
	where := []string{"owner_id = $1"}
	args := []interface{}{ownerID}

	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.Type != "" {
		if strings.Contains(f.Type, "/") {
			args = append(args, f.Type)
			where = append(where, fmt.Sprintf("content_type = $%d", len(args)))
		} else {
			args = append(args, f.Type+"/%")
			where = append(where, fmt.Sprintf("content_type LIKE $%d", len(args)))
		}
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(title ILIKE $%d OR description ILIKE $%d OR EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE $%d))",
			n, n, n))
	}

	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM media WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count media records: %w", err)
	}

	args = append(args, pageSize, (page-1)*pageSize)
	rows, err := r.db.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM media WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			mediaColumns, cond, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list media records: %w", err)
	}
	defer rows.Close()

	var records []*Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan media record: %w", err)
		}
		records = append(records, m)
	}
	return records, total, rows.Err()
}

func scanMedia(row pgx.Row) (*Media, error) {
	m := &Media{}
	err := row.Scan(&m.ID, &m.OwnerID, &m.ObjectKey, &m.FileName, &m.Title, &m.Description,
		&m.ContentType, &m.SizeBytes, &m.Category, &m.Tags, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}
	return m, nil
}
