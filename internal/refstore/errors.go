package refstore

import "errors"

// ErrConflict is returned when a write races against another writer:
// the on-disk file changed since it was last loaded into memory.
var ErrConflict = errors.New("ref metadata store: concurrent write detected")

// ErrCorrupt describes an on-disk file that could not be parsed. No
// function of this package returns it: Open starts with an empty store
// instead, leaves the broken file in place, and reports the condition
// through [Store.WasCorrupt].
var ErrCorrupt = errors.New("ref metadata store: corrupt file")
