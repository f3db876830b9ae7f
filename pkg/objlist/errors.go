package objlist

import "errors"

var (
	// ErrOutOfRange is returned for an element index outside the
	// current vector.
	ErrOutOfRange = errors.New("objlist: index out of range")
	// ErrDuplicateName is returned by CreateAttrList for a name already
	// in use.
	ErrDuplicateName = errors.New("objlist: attribute list name already exists")
	// ErrMissingName is returned by GetAttrList/DelAttrList for an
	// unknown name.
	ErrMissingName = errors.New("objlist: attribute list does not exist")
	// ErrNotInMemory is returned by IndexOf when the data is evicted, or
	// was evicted (and possibly rehydrated) since the Ref was obtained.
	ErrNotInMemory = errors.New("objlist: reference is stale, data was evicted since it was obtained")
	// ErrPoolExhausted is returned when rehydration needs more pages
	// than the memory pool can ever hold.
	ErrPoolExhausted = errors.New("objlist: more pages than the memory pool can hold")
)
