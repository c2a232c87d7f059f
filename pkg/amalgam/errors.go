package amalgam

import "errors"

var (
	// ErrMissingFragment is returned when an include resolves to a fragment that cannot be opened.
	ErrMissingFragment = errors.New("missing fragment")
	// ErrStale is returned by a check run when the existing output differs from a fresh merge.
	ErrStale = errors.New("amalgamation is out of date")
	// ErrInvalidEncoding is returned when a fragment line is not valid UTF-8.
	ErrInvalidEncoding = errors.New("fragment is not valid UTF-8")
)
