package matcher

import (
	"github.com/bclement/redline/graphicsstate"
)

// positionDelete is the last-resort strategy: when no string-level form
// of the target exists, blank every show operation anchored inside the
// caller's rectangle. It only applies to deletions and only when a
// rectangle was supplied; the target text itself is not consulted.
type positionDelete struct{}

func (positionDelete) Name() string { return "position delete" }

func (positionDelete) Apply(s *Stream, target, replacement string, skip int, ctx *Context) ([]byte, int) {
	if ctx == nil || ctx.Rect == nil || replacement != "" {
		return nil, 0
	}

	anchors := graphicsstate.CollectAnchors(s.Ops)
	edited, blanked := graphicsstate.BlankInRect(s.Payload, anchors, *ctx.Rect)
	if blanked == 0 {
		return nil, 0
	}

	// The whole rectangle counts as one match
	if skip == 0 {
		return edited, 1
	}
	return nil, 1
}
