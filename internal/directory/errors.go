package directory

import "errors"

// ErrNotFound indicates an update against an identifier with no record.
var ErrNotFound = errors.New("directory: client not found")

// ErrMissingIdentifier indicates a lookup or update with an empty identifier.
var ErrMissingIdentifier = errors.New("directory: identifier required")
