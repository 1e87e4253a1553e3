package font

import (
	"github.com/bclement/redline/core"
	"github.com/bclement/redline/model"
)

// Resolver resolves indirect references while walking font dictionaries
type Resolver interface {
	Resolve(obj core.Object) (core.Object, error)
}

// LoadFonts walks a page resource dictionary and builds a FontMap for
// every font that carries a usable ToUnicode map. Fonts without one, and
// fonts whose map cannot be parsed, are skipped with a warning; a page
// with no mappable fonts is still processable through the literal and
// position strategies.
func LoadFonts(resources core.Dict, resolver Resolver) ([]*FontMap, []model.Warning) {
	var warnings []model.Warning

	if resources == nil {
		return nil, nil
	}

	fontsObj := resources.Get("Font")
	if fontsObj == nil {
		return nil, nil
	}
	fontsResolved, err := resolver.Resolve(fontsObj)
	if err != nil {
		warnings = append(warnings, model.Warningf(model.WarnMalformedFont,
			"failed to resolve /Font dictionary: %v", err))
		return nil, warnings
	}
	fontsDict, ok := fontsResolved.(core.Dict)
	if !ok {
		warnings = append(warnings, model.Warningf(model.WarnMalformedFont,
			"/Font is not a dictionary: %T", fontsResolved))
		return nil, warnings
	}

	var maps []*FontMap
	for _, name := range fontsDict.SortedKeys() {
		fm, warn := loadFont(name, fontsDict.Get(name), resolver)
		if warn != nil {
			warnings = append(warnings, *warn)
		}
		if fm != nil {
			maps = append(maps, fm)
		}
	}
	return maps, warnings
}

// loadFont builds one FontMap, or a warning explaining why it could not
// be built. Both results nil means the font simply has no ToUnicode map.
func loadFont(name string, fontObj core.Object, resolver Resolver) (*FontMap, *model.Warning) {
	resolved, err := resolver.Resolve(fontObj)
	if err != nil {
		w := model.Warningf(model.WarnMalformedFont, "font %s: failed to resolve: %v", name, err)
		return nil, &w
	}
	fontDict, ok := resolved.(core.Dict)
	if !ok {
		w := model.Warningf(model.WarnMalformedFont, "font %s: not a dictionary: %T", name, resolved)
		return nil, &w
	}

	baseFont, _ := fontDict.GetName("BaseFont")

	toUniObj := fontDict.Get("ToUnicode")
	if toUniObj == nil {
		// Type0 fonts keep the ToUnicode on the descendant in some
		// producers' output
		toUniObj = descendantToUnicode(fontDict, resolver)
	}
	if toUniObj == nil {
		return nil, nil
	}

	toUniResolved, err := resolver.Resolve(toUniObj)
	if err != nil {
		w := model.Warningf(model.WarnMalformedFont, "font %s: failed to resolve /ToUnicode: %v", name, err)
		return nil, &w
	}
	stream, ok := toUniResolved.(*core.Stream)
	if !ok {
		w := model.Warningf(model.WarnMalformedFont, "font %s: /ToUnicode is not a stream: %T", name, toUniResolved)
		return nil, &w
	}

	cmap, err := ParseToUnicodeCMap(stream)
	if err != nil {
		w := model.Warningf(model.WarnMalformedFont, "font %s: %v", name, err)
		return nil, &w
	}

	return NewFontMap(name, string(baseFont), cmap), nil
}

// descendantToUnicode looks for a ToUnicode entry on a Type0 font's
// descendant font.
func descendantToUnicode(fontDict core.Dict, resolver Resolver) core.Object {
	descObj := fontDict.Get("DescendantFonts")
	if descObj == nil {
		return nil
	}
	resolved, err := resolver.Resolve(descObj)
	if err != nil {
		return nil
	}
	arr, ok := resolved.(core.Array)
	if !ok || len(arr) == 0 {
		return nil
	}
	first, err := resolver.Resolve(arr[0])
	if err != nil {
		return nil
	}
	dict, ok := first.(core.Dict)
	if !ok {
		return nil
	}
	return dict.Get("ToUnicode")
}
