package objectstore

import "errors"

// ErrUsageUnavailable signals that the data-usage snapshot has no figures for the request.
var ErrUsageUnavailable = errors.New("usage statistics unavailable")
