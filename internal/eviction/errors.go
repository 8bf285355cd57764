package eviction

import "errors"

var (
	// ErrBucketNotIndexed is returned when a bucket has no state record yet.
	ErrBucketNotIndexed = errors.New("bucket not indexed")
	// ErrUnnamedObject aborts a run that meets an object without a name.
	ErrUnnamedObject = errors.New("object without name")
)
