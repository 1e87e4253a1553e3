// Package model provides the types shared across the module: points,
// bounding boxes, and 2D affine transformation matrices in the PDF
// [a b c d e f] convention, plus the warning values non-fatal problems
// are reported through.
package model
