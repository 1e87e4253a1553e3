// Package filters implements the stream codecs used by the editor: the
// zlib/Flate codec (decode and re-encode, with PNG and TIFF predictor
// support for cross-reference streams) and the ASCIIHex/ASCII85 decoders.
//
// The Flate codec is the piece that makes in-place patching possible: a
// patched stream is re-encoded at best compression, padded with zeros to
// the original compressed length, and decodes identically because the
// deflate stream terminates itself before the padding.
package filters
