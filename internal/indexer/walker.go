// Package indexer discovers leaf directories in quota-bearing buckets and
// records them in the state store.
package indexer

import (
	"context"

	"github.com/abduss/msc/internal/logger"
	"github.com/abduss/msc/internal/objectstore"
	"go.uber.org/zap"
)

// Lister streams the immediate entries under a prefix.
type Lister interface {
	WalkObjects(ctx context.Context, bucket, prefix string, recursive bool, fn func(objectstore.Object) bool) error
}

// Candidate is a directory-like prefix found during a walk. Finished means the
// prefix directly holds at least one concrete object.
type Candidate struct {
	Path     string
	Bucket   string
	Finished bool
}

type frame struct {
	dir     int // index into the result, -1 for the bucket root
	prefix  string
	entries []objectstore.Object
	next    int
}

// Walk traverses the bucket from its root and returns every directory-like
// prefix it met, in preorder. Each level is listed only up to its first
// concrete object: that object marks the level's prefix finished and ends the
// level, so later siblings are not visited. With recursive false only the
// root level is listed. A listing error ends its level and is logged.
func Walk(ctx context.Context, lister Lister, bucket string, recursive bool, log *zap.Logger) []Candidate {
	log = logger.OrNop(log)

	var out []Candidate
	stack := []*frame{{dir: -1, entries: listLevel(ctx, lister, bucket, "", log)}}

	for len(stack) > 0 {
		if ctx.Err() != nil {
			return out
		}
		top := stack[len(stack)-1]
		if top.next >= len(top.entries) {
			stack = stack[:len(stack)-1]
			continue
		}
		entry := top.entries[top.next]
		top.next++
		if entry.Name == top.prefix {
			// folder marker object for the prefix itself
			continue
		}

		if !entry.IsDir {
			if top.dir >= 0 {
				out[top.dir].Finished = true
			}
			stack = stack[:len(stack)-1]
			continue
		}

		out = append(out, Candidate{Path: entry.Name, Bucket: bucket})
		if recursive {
			stack = append(stack, &frame{
				dir:     len(out) - 1,
				prefix:  entry.Name,
				entries: listLevel(ctx, lister, bucket, entry.Name, log),
			})
		}
	}
	return out
}

// listLevel collects the entries of one level up to and including the first
// concrete object.
func listLevel(ctx context.Context, lister Lister, bucket, prefix string, log *zap.Logger) []objectstore.Object {
	var entries []objectstore.Object
	err := lister.WalkObjects(ctx, bucket, prefix, false, func(o objectstore.Object) bool {
		entries = append(entries, o)
		return o.IsDir
	})
	if err != nil {
		log.Error("list directory failed",
			zap.String("bucket", bucket),
			zap.String("prefix", prefix),
			zap.Error(err),
		)
	}
	return entries
}
