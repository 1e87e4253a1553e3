package model

import "fmt"

// WarningKind classifies a non-fatal problem encountered while
// processing a document.
type WarningKind int

const (
	// WarnMalformedFont marks a font whose ToUnicode map could not be
	// parsed. The font is skipped; matching falls back to other fonts
	// and strategies.
	WarnMalformedFont WarningKind = iota

	// WarnDecompressionFailure marks a stream that could not be
	// decompressed. The stream is skipped.
	WarnDecompressionFailure

	// WarnSizeExceeded marks a candidate rewrite abandoned because the
	// recompressed stream would not fit in place.
	WarnSizeExceeded
)

// String returns the kind's name
func (k WarningKind) String() string {
	switch k {
	case WarnMalformedFont:
		return "malformed font"
	case WarnDecompressionFailure:
		return "decompression failure"
	case WarnSizeExceeded:
		return "size exceeded"
	default:
		return "unknown"
	}
}

// Warning records a non-fatal problem. Warnings are collected and
// returned alongside results rather than aborting the operation.
type Warning struct {
	Kind    WarningKind
	Message string
}

// Warningf builds a warning with a formatted message
func Warningf(kind WarningKind, format string, args ...any) Warning {
	return Warning{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// String renders the warning for logs and CLI output
func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}
