// Package redline edits visible text inside PDF documents without
// moving a single byte offset. Replacements are written back into the
// compressed content stream they came from, padded to the exact span the
// original occupied, so the cross-reference machinery of the file stays
// valid and the output is byte-for-byte the same length as the input.
//
// Basic usage:
//
//	out, warnings, err := redline.Load(buf).Replace("Hello World", "Hi")
//	if err != nil {
//	    // handle error
//	}
//	if len(warnings) > 0 {
//	    log.Println("Warnings:", redline.FormatWarnings(warnings))
//	}
//
// With options:
//
//	out, _, err := redline.Load(buf).
//	    Page(2).
//	    Occurrence(1).
//	    Replace("Draft", "Final")
//
// For advanced use cases, the lower-level reader package is also
// available.
package redline

import (
	"errors"
	"sort"
	"strings"

	"github.com/bclement/redline/font"
	"github.com/bclement/redline/locator"
	"github.com/bclement/redline/matcher"
	"github.com/bclement/redline/model"
	"github.com/bclement/redline/pages"
	"github.com/bclement/redline/patcher"
	"github.com/bclement/redline/reader"
)

// Warning is a non-fatal condition encountered during an edit.
type Warning = model.Warning

// Editor configures and performs one edit against a document buffer.
// Configuration methods return a new Editor, so a loaded document can be
// shared across differently configured edits.
type Editor struct {
	data    []byte
	options EditOptions
}

// Load wraps a PDF buffer for editing. The buffer is never mutated; the
// terminal operations return a fresh buffer of identical length.
func Load(buf []byte) *Editor {
	return &Editor{
		data:    buf,
		options: defaultOptions(),
	}
}

// Occurrence selects which match to edit when the target appears more
// than once. Occurrences are counted in document order and are
// 0-indexed: 0 is the first match (the default), 1 the second. Negative
// values mean the first.
func (e *Editor) Occurrence(n int) *Editor {
	opts := e.options.clone()
	opts.occurrence = n
	return &Editor{data: e.data, options: opts}
}

// Within supplies a page-space rectangle. It is required for
// position-based deletion, the fallback used when the target text exists
// in no string form the strategies can read.
func (e *Editor) Within(rect model.BBox) *Editor {
	opts := e.options.clone()
	opts.rect = &rect
	return &Editor{data: e.data, options: opts}
}

// Page restricts the edit to one page, 1-indexed. Without it every page
// is searched. The restriction needs the document's object structure; if
// the file is too damaged to parse, all content streams are searched.
func (e *Editor) Page(n int) *Editor {
	opts := e.options.clone()
	opts.page = n
	return &Editor{data: e.data, options: opts}
}

// Replace rewrites the selected occurrence of target with replacement.
// The target is whitespace-trimmed and Unicode-normalized before
// matching. An empty replacement deletes the text. On success the
// returned buffer has exactly the length of the input.
func (e *Editor) Replace(target, replacement string) ([]byte, []Warning, error) {
	target = font.NormalizeUnicode(strings.TrimSpace(target))
	replacement = font.NormalizeUnicode(replacement)
	return run(e.data, target, replacement, e.options)
}

// Remove deletes the selected occurrence of target. It is Replace with
// an empty replacement: show operators survive with emptied operands, so
// the stream stays structurally valid.
func (e *Editor) Remove(target string) ([]byte, []Warning, error) {
	return e.Replace(target, "")
}

// FormatWarnings renders warnings one per line for display.
func FormatWarnings(warnings []Warning) string {
	msgs := make([]string, len(warnings))
	for i, w := range warnings {
		msgs[i] = w.String()
	}
	return strings.Join(msgs, "\n")
}

// run is the engine behind the terminal operations: gather candidate
// streams and font maps, run the strategy chain, and patch the winning
// edit back into a copy of the document.
func run(data []byte, target, replacement string, opts EditOptions) ([]byte, []Warning, error) {
	candidates, fonts, warnings := collectCandidates(data, opts)
	if len(candidates) == 0 {
		return nil, warnings, ErrNotFound
	}

	ctx := &matcher.Context{Fonts: fonts, Rect: opts.rect}
	streams := make([]*matcher.Stream, len(candidates))
	for i, c := range candidates {
		streams[i] = matcher.NewStream(c.Payload)
	}

	// An edit that will not fit back into its span is vetoed here, which
	// sends the search on to the next strategy.
	sizeExceeded := false
	idx, edited, ok := matcher.MatchWith(streams, target, replacement, opts.occurrence, ctx,
		func(i int, edited []byte) bool {
			_, err := patcher.Encode(candidates[i], edited)
			if err == nil {
				return true
			}
			if errors.Is(err, patcher.ErrTooLarge) {
				sizeExceeded = true
				warnings = append(warnings, model.Warningf(model.WarnSizeExceeded,
					"stream at offset %d: %v", candidates[i].Start, err))
			}
			return false
		})
	if !ok {
		if sizeExceeded {
			return nil, warnings, ErrSizeExceeded
		}
		return nil, warnings, ErrNotFound
	}

	out, err := patcher.Patch(data, candidates[idx], edited)
	if err != nil {
		return nil, warnings, err
	}
	return out, warnings, nil
}

// collectCandidates finds the content stream spans to search. When the
// document parses, each selected page's content streams are located in
// the raw bytes by a targeted scan and the page fonts are loaded; when
// it does not, every stream-looking span in the file is a candidate and
// no font maps are available.
func collectCandidates(data []byte, opts EditOptions) ([]locator.Candidate, []*font.FontMap, []Warning) {
	var warnings []Warning

	r, err := reader.NewReader(data)
	if err != nil {
		cands, w := locator.Scan(data)
		return cands, nil, append(warnings, w...)
	}

	pgs, err := selectPages(r, opts.page)
	if err != nil || len(pgs) == 0 {
		cands, w := locator.Scan(data)
		return cands, nil, append(warnings, w...)
	}

	var fonts []*font.FontMap
	var cands []locator.Candidate
	seen := make(map[int]bool)
	for _, pg := range pgs {
		if res, err := pg.Resources(); err == nil {
			fms, w := font.LoadFonts(res, r)
			fonts = append(fonts, fms...)
			warnings = append(warnings, w...)
		}

		streams, err := pg.Contents()
		if err != nil {
			continue
		}
		for _, st := range streams {
			payload, err := st.Decode()
			if err != nil {
				warnings = append(warnings, model.Warningf(model.WarnDecompressionFailure,
					"page content stream: %v", err))
				continue
			}
			targeted, _ := locator.ScanTargeted(data, payload)
			for _, c := range targeted {
				if !seen[c.Start] {
					seen[c.Start] = true
					cands = append(cands, c)
				}
			}
		}
	}

	if len(cands) == 0 {
		cands, w := locator.Scan(data)
		return cands, fonts, append(warnings, w...)
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].Start < cands[j].Start })
	return cands, fonts, warnings
}

// selectPages returns the pages the edit applies to
func selectPages(r *reader.Reader, page int) ([]*pages.Page, error) {
	if page == 0 {
		return r.Pages()
	}
	p, err := r.GetPage(page - 1)
	if err != nil {
		return nil, err
	}
	return []*pages.Page{p}, nil
}
