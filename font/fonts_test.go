package font

import (
	"testing"

	"github.com/bclement/redline/core"
	"github.com/bclement/redline/internal/filters"
	"github.com/bclement/redline/model"
)

type mapResolver struct {
	objects map[int]core.Object
}

func (m *mapResolver) Resolve(obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		if o, found := m.objects[ref.Number]; found {
			return o, nil
		}
		return core.Null{}, nil
	}
	return obj, nil
}

func toUnicodeStream(t *testing.T, cmapText string) *core.Stream {
	t.Helper()
	encoded, err := filters.Encode([]byte(cmapText))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return &core.Stream{
		Dict: core.Dict{
			"Filter": core.Name("FlateDecode"),
			"Length": core.Int(len(encoded)),
		},
		Data: encoded,
	}
}

// TestLoadFonts tests font map construction from a resource dictionary
func TestLoadFonts(t *testing.T) {
	stream := toUnicodeStream(t, `2 beginbfchar
<01> <0041>
<02> <0042>
endbfchar`)

	resolver := &mapResolver{objects: map[int]core.Object{
		10: core.Dict{
			"Type":      core.Name("Font"),
			"BaseFont":  core.Name("AAAAAA+Custom"),
			"ToUnicode": core.IndirectRef{Number: 11},
		},
		11: stream,
	}}
	resources := core.Dict{
		"Font": core.Dict{"F1": core.IndirectRef{Number: 10}},
	}

	maps, warnings := LoadFonts(resources, resolver)
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if len(maps) != 1 {
		t.Fatalf("expected 1 font map, got %d", len(maps))
	}
	if maps[0].Name != "F1" || maps[0].BaseFont != "AAAAAA+Custom" {
		t.Errorf("unexpected font identity: %s %s", maps[0].Name, maps[0].BaseFont)
	}
	if got := maps[0].Decode([]byte{0x01, 0x02}); got != "AB" {
		t.Errorf("Decode = %q, want \"AB\"", got)
	}
}

// TestLoadFontsMalformed tests that a broken ToUnicode map yields a
// warning and skips the font instead of failing
func TestLoadFontsMalformed(t *testing.T) {
	resolver := &mapResolver{objects: map[int]core.Object{
		10: core.Dict{
			"Type":      core.Name("Font"),
			"ToUnicode": core.IndirectRef{Number: 11},
		},
		// Dict claims flate but the payload is garbage
		11: &core.Stream{
			Dict: core.Dict{"Filter": core.Name("FlateDecode"), "Length": core.Int(4)},
			Data: []byte{0xDE, 0xAD, 0xBE, 0xEF},
		},
	}}
	resources := core.Dict{
		"Font": core.Dict{"F1": core.IndirectRef{Number: 10}},
	}

	maps, warnings := LoadFonts(resources, resolver)
	if len(maps) != 0 {
		t.Errorf("expected no font maps, got %d", len(maps))
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
	if warnings[0].Kind != model.WarnMalformedFont {
		t.Errorf("expected malformed font warning, got %v", warnings[0])
	}
}

// TestLoadFontsNoToUnicode tests that fonts without a ToUnicode map are
// silently skipped
func TestLoadFontsNoToUnicode(t *testing.T) {
	resolver := &mapResolver{objects: map[int]core.Object{}}
	resources := core.Dict{
		"Font": core.Dict{
			"F1": core.Dict{
				"Type":     core.Name("Font"),
				"Subtype":  core.Name("Type1"),
				"BaseFont": core.Name("Helvetica"),
			},
		},
	}

	maps, warnings := LoadFonts(resources, resolver)
	if len(maps) != 0 || len(warnings) != 0 {
		t.Errorf("expected nothing, got %d maps, %d warnings", len(maps), len(warnings))
	}
}

// TestLoadFontsDescendant tests ToUnicode discovery on a Type0 font's
// descendant
func TestLoadFontsDescendant(t *testing.T) {
	stream := toUnicodeStream(t, `1 beginbfchar
<0001> <0058>
endbfchar`)

	resolver := &mapResolver{objects: map[int]core.Object{
		20: core.Dict{
			"Type":            core.Name("Font"),
			"Subtype":         core.Name("Type0"),
			"DescendantFonts": core.Array{core.IndirectRef{Number: 21}},
		},
		21: core.Dict{
			"Type":      core.Name("Font"),
			"ToUnicode": core.IndirectRef{Number: 22},
		},
		22: stream,
	}}
	resources := core.Dict{
		"Font": core.Dict{"F9": core.IndirectRef{Number: 20}},
	}

	maps, warnings := LoadFonts(resources, resolver)
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if len(maps) != 1 {
		t.Fatalf("expected 1 font map, got %d", len(maps))
	}
	if got := maps[0].Decode([]byte{0x00, 0x01}); got != "X" {
		t.Errorf("Decode = %q, want \"X\"", got)
	}
}

// TestEncodeUTF16BE tests the wide-hex helper
func TestEncodeUTF16BE(t *testing.T) {
	encoded := EncodeUTF16BE("Hi")
	want := []byte{0x00, 0x48, 0x00, 0x69}
	if string(encoded) != string(want) {
		t.Errorf("EncodeUTF16BE = % x, want % x", encoded, want)
	}
	if got := DecodeUTF16BE(encoded); got != "Hi" {
		t.Errorf("DecodeUTF16BE round trip = %q", got)
	}

	// Surrogate pair round trip
	emoji := EncodeUTF16BE("\U0001F600")
	if got := DecodeUTF16BE(emoji); got != "\U0001F600" {
		t.Errorf("surrogate round trip = %q", got)
	}
}
