// Package matcher finds target text inside content streams and rewrites
// it in place. PDF producers encode the same visible text in many
// notations, so the search runs an ordered chain of strategies, from
// exact literal shows through font re-encoded hex forms down to
// position-based deletion; the first strategy that can serve the edit
// wins. Occurrence counting is uniform across strategies and carries
// across candidate streams in source order.
package matcher
