package redline

import "github.com/bclement/redline/model"

// EditOptions holds configuration for a single edit.
type EditOptions struct {
	// Occurrence selection (0-indexed; 0 means the first match)
	occurrence int

	// Page restriction (1-indexed; 0 means all pages)
	page int

	// Rectangle for position-based deletion, in page units
	rect *model.BBox
}

// defaultOptions returns the default edit options.
func defaultOptions() EditOptions {
	return EditOptions{
		occurrence: 0,
		page:       0,
		rect:       nil,
	}
}

// clone creates a deep copy of EditOptions.
func (o EditOptions) clone() EditOptions {
	newOpts := EditOptions{
		occurrence: o.occurrence,
		page:       o.page,
	}

	if o.rect != nil {
		r := *o.rect
		newOpts.rect = &r
	}

	return newOpts
}
