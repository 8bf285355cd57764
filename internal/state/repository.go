package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repositoryTimeout = 5 * time.Second

// Repository persists buckets and directories in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed store.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertBucket registers the bucket unless a bucket with that name exists.
func (r *Repository) InsertBucket(ctx context.Context, name string) (Bucket, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
INSERT INTO buckets (name)
VALUES ($1)
ON CONFLICT (name) DO NOTHING
RETURNING id, name, last_cleaned_at, created_at, updated_at;`

	var bucket Bucket
	err := r.pool.QueryRow(ctx, query, name).Scan(
		&bucket.ID,
		&bucket.Name,
		&bucket.LastCleanedAt,
		&bucket.CreatedAt,
		&bucket.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bucket{}, false, nil
		}
		return Bucket{}, false, fmt.Errorf("insert bucket: %w", err)
	}
	return bucket, true, nil
}

// GetBucket fetches a bucket by name.
func (r *Repository) GetBucket(ctx context.Context, name string) (Bucket, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
SELECT id, name, last_cleaned_at, created_at, updated_at
FROM buckets
WHERE name = $1;`

	var bucket Bucket
	err := r.pool.QueryRow(ctx, query, name).Scan(
		&bucket.ID,
		&bucket.Name,
		&bucket.LastCleanedAt,
		&bucket.CreatedAt,
		&bucket.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bucket{}, ErrBucketNotFound
		}
		return Bucket{}, fmt.Errorf("get bucket: %w", err)
	}
	return bucket, nil
}

// ListBuckets returns every registered bucket ordered by name.
func (r *Repository) ListBuckets(ctx context.Context) ([]Bucket, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
SELECT id, name, last_cleaned_at, created_at, updated_at
FROM buckets
ORDER BY name;`)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	defer rows.Close()

	var buckets []Bucket
	for rows.Next() {
		var bucket Bucket
		if err := rows.Scan(&bucket.ID, &bucket.Name, &bucket.LastCleanedAt, &bucket.CreatedAt, &bucket.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		buckets = append(buckets, bucket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate buckets: %w", err)
	}
	return buckets, nil
}

// TouchBucket sets the bucket's last-cleaned timestamp.
func (r *Repository) TouchBucket(ctx context.Context, name string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
UPDATE buckets
SET last_cleaned_at = $2, updated_at = NOW()
WHERE name = $1;`, name, at.UTC())
	if err != nil {
		return fmt.Errorf("touch bucket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBucketNotFound
	}
	return nil
}

// InsertDirectory registers the path under the named bucket unless the path is
// already known. It returns ErrBucketNotFound when the owning bucket is absent.
func (r *Repository) InsertDirectory(ctx context.Context, path, bucketName string) (Directory, bool, error) {
	bucket, err := r.GetBucket(ctx, bucketName)
	if err != nil {
		return Directory{}, false, err
	}

	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
INSERT INTO directories (path, bucket_id)
VALUES ($1, $2)
ON CONFLICT (path) DO NOTHING
RETURNING id, path, bucket_id, last_cleaned_at, created_at, updated_at;`

	dir := Directory{BucketName: bucket.Name}
	err = r.pool.QueryRow(ctx, query, path, bucket.ID).Scan(
		&dir.ID,
		&dir.Path,
		&dir.BucketID,
		&dir.LastCleanedAt,
		&dir.CreatedAt,
		&dir.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Directory{}, false, nil
		}
		return Directory{}, false, fmt.Errorf("insert directory: %w", err)
	}
	return dir, true, nil
}

// GetDirectory fetches a directory by path.
func (r *Repository) GetDirectory(ctx context.Context, path string) (Directory, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
SELECT d.id, d.path, d.bucket_id, b.name, d.last_cleaned_at, d.created_at, d.updated_at
FROM directories d
JOIN buckets b ON b.id = d.bucket_id
WHERE d.path = $1;`

	var dir Directory
	err := r.pool.QueryRow(ctx, query, path).Scan(
		&dir.ID,
		&dir.Path,
		&dir.BucketID,
		&dir.BucketName,
		&dir.LastCleanedAt,
		&dir.CreatedAt,
		&dir.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Directory{}, ErrDirectoryNotFound
		}
		return Directory{}, fmt.Errorf("get directory: %w", err)
	}
	return dir, nil
}

// TouchDirectory sets the directory's last-cleaned timestamp.
func (r *Repository) TouchDirectory(ctx context.Context, path string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
UPDATE directories
SET last_cleaned_at = $2, updated_at = NOW()
WHERE path = $1;`, path, at.UTC())
	if err != nil {
		return fmt.Errorf("touch directory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDirectoryNotFound
	}
	return nil
}

// ListDirectories returns the bucket's directories, least recently cleaned first.
func (r *Repository) ListDirectories(ctx context.Context, bucketName string) ([]Directory, error) {
	bucket, err := r.GetBucket(ctx, bucketName)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
SELECT id, path, bucket_id, last_cleaned_at, created_at, updated_at
FROM directories
WHERE bucket_id = $1
ORDER BY last_cleaned_at ASC, id ASC;`

	rows, err := r.pool.Query(ctx, query, bucket.ID)
	if err != nil {
		return nil, fmt.Errorf("list directories: %w", err)
	}
	defer rows.Close()

	var dirs []Directory
	for rows.Next() {
		dir := Directory{BucketName: bucket.Name}
		if err := rows.Scan(&dir.ID, &dir.Path, &dir.BucketID, &dir.LastCleanedAt, &dir.CreatedAt, &dir.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan directory: %w", err)
		}
		dirs = append(dirs, dir)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate directories: %w", err)
	}
	return dirs, nil
}

// Ping verifies the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
