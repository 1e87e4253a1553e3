// Package font builds bidirectional character maps from embedded
// ToUnicode CMaps.
//
// The forward direction decodes content stream string operands to
// Unicode text. The reverse direction re-encodes caller-supplied text
// into a font's code space, which is what allows search and replacement
// strings to be expressed in a subsetted font's private encoding.
//
// Fonts without a ToUnicode map, or with one that cannot be parsed, are
// skipped with a warning rather than failing the whole document.
package font
