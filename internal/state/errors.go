package state

import "errors"

var (
	// ErrBucketNotFound indicates the bucket has never been registered.
	ErrBucketNotFound = errors.New("bucket not found")
	// ErrDirectoryNotFound indicates the directory path has never been registered.
	ErrDirectoryNotFound = errors.New("directory not found")
)
