package objectstore

import (
	"strings"
	"time"
)

// Object is a single listing entry: either a concrete object or a directory-like prefix.
type Object struct {
	Name         string
	IsDir        bool
	LastModified time.Time
	Size         int64
}

// Usage is a bucket's entry in the server's data-usage snapshot.
type Usage struct {
	UsedBytes   uint64
	ObjectCount uint64
	LastUpdate  time.Time
}

// IsDirKey reports whether a listing key denotes a common prefix.
func IsDirKey(key string) bool {
	return strings.HasSuffix(key, "/")
}
