// Command redline rewrites or deletes text inside a PDF without moving
// any byte offsets, so the output file is the same size as the input.
//
// Usage:
//
//	redline -in doc.pdf -out out.pdf -find "Hello World" -replace "Hi"
//	redline -in doc.pdf -out out.pdf -find "Draft" -occurrence 1 -replace "Final"
//	redline -in doc.pdf -out out.pdf -find "secret" -rect 100,680,200,40 -verify
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/bclement/redline"
	"github.com/bclement/redline/model"
)

func main() {
	var (
		in         = flag.String("in", "", "input PDF file (required)")
		out        = flag.String("out", "", "output PDF file (required)")
		find       = flag.String("find", "", "text to find (required)")
		replace    = flag.String("replace", "", "replacement text; empty deletes the match")
		occurrence = flag.Int("occurrence", 0, "which match to edit, 0-indexed")
		page       = flag.Int("page", 0, "restrict the edit to one page, 1-indexed; 0 searches all pages")
		rect       = flag.String("rect", "", "rectangle x,y,w,h in page units for position-based deletion")
		verify     = flag.Bool("verify", false, "validate the output with pdfcpu after patching")
	)
	flag.Parse()

	if *in == "" || *out == "" || *find == "" && *rect == "" {
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		log.Fatalf("reading %s: %v", *in, err)
	}

	editor := redline.Load(data).Occurrence(*occurrence)
	if *page > 0 {
		editor = editor.Page(*page)
	}
	if *rect != "" {
		box, err := parseRect(*rect)
		if err != nil {
			log.Fatalf("parsing -rect: %v", err)
		}
		editor = editor.Within(box)
	}

	result, warnings, err := editor.Replace(*find, *replace)
	for _, w := range warnings {
		log.Printf("warning: %s", w)
	}
	if err != nil {
		log.Fatalf("edit failed: %v", err)
	}

	if err := os.WriteFile(*out, result, 0o644); err != nil {
		log.Fatalf("writing %s: %v", *out, err)
	}
	log.Printf("wrote %s (%d bytes, unchanged from input)", *out, len(result))

	if *verify {
		ctx, err := api.ReadContextFile(*out)
		if err != nil {
			log.Fatalf("verify: reading output: %v", err)
		}
		if err := api.ValidateContext(ctx); err != nil {
			log.Fatalf("verify: output is not a valid PDF: %v", err)
		}
		log.Print("verify: output validates")
	}
}

// parseRect parses "x,y,w,h" into a bounding box
func parseRect(s string) (model.BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return model.BBox{}, fmt.Errorf("want x,y,w,h, got %q", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return model.BBox{}, fmt.Errorf("component %d: %w", i+1, err)
		}
		vals[i] = v
	}
	return model.NewBBox(vals[0], vals[1], vals[2], vals[3]), nil
}
