// Package locator scans raw document bytes for stream spans that can be
// edited in place. It works below the object layer on purpose: even when
// the cross-reference structure is damaged, stream/endstream framing is
// still findable, which gives the engine an untargeted fallback path.
package locator
