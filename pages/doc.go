// Package pages walks the PDF page tree, flattening it into an ordered
// page list and exposing each page's inheritable attributes, resources,
// and content streams.
package pages
