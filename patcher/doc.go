// Package patcher writes edited content stream payloads back into the
// document in place. The span between the stream and endstream keywords
// is a fixed byte budget: compressed payloads are recompressed and zero
// padded to it, raw payloads are space padded, and anything larger is
// rejected. The rest of the file is never touched, which keeps every
// byte offset in the cross-reference machinery valid.
package patcher
