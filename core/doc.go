// Package core provides low-level PDF parsing primitives: the eight basic
// object types, a byte-slice lexer and object parser, stream decoding,
// cross-reference tables (classic and stream form), and object streams.
//
// Everything in this package operates on in-memory buffers. Token and
// stream positions are byte offsets into the source buffer, which is what
// allows a patched stream to be spliced back without moving any other
// byte, the property that keeps the file's object-offset index valid.
package core
