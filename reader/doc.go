// Package reader provides structured access to an in-memory PDF: header
// parsing, object loading through the cross-reference table (including
// objects packed into object streams), reference resolution, and page
// tree access.
package reader
