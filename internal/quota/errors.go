package quota

import "errors"

// ErrUnmanaged is returned for buckets without a quota.
var ErrUnmanaged = errors.New("bucket has no quota")
