// Package graphicsstate tracks the transformation and text positioning
// state of a content stream. A single left-to-right pass anchors every
// text-showing operation at a page-space point, which supports deleting
// text by rectangle when no string-level match exists.
package graphicsstate
