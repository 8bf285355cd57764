package state

import "time"

// Bucket is a quota-managed MinIO bucket known to the cleaner.
type Bucket struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	LastCleanedAt time.Time `json:"last_cleaned_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Directory is a bucket prefix known to directly hold at least one object.
type Directory struct {
	ID            int64     `json:"id"`
	Path          string    `json:"path"`
	BucketID      int64     `json:"bucket_id"`
	BucketName    string    `json:"bucket_name"`
	LastCleanedAt time.Time `json:"last_cleaned_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
