package redline

import "errors"

var (
	// ErrNotFound reports that no strategy could locate the target text
	// in any candidate content stream.
	ErrNotFound = errors.New("target text not found")

	// ErrSizeExceeded reports that the target was found but every usable
	// rewrite recompressed larger than the span it must replace.
	ErrSizeExceeded = errors.New("replacement does not fit the original stream")
)
