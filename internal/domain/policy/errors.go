package policy

import "errors"

// ErrNotFound is returned by Store.Get when no policy document has the
// requested ID.
var ErrNotFound = errors.New("policy: not found")
