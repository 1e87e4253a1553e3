package pages

import (
	"fmt"

	"github.com/bclement/redline/core"
	"github.com/bclement/redline/model"
)

// ObjectResolver resolves indirect references for page tree traversal
type ObjectResolver interface {
	Resolve(obj core.Object) (core.Object, error)
	ResolveDeep(obj core.Object) (core.Object, error)
	ResolveReference(ref core.IndirectRef) (core.Object, error)
}

// inheritable lists the page attributes a /Pages node passes down to its
// descendants.
var inheritable = []string{"Resources", "MediaBox", "CropBox", "Rotate"}

// PageTree represents the PDF page tree
type PageTree struct {
	root     core.Dict
	resolver ObjectResolver
	pages    []*Page
}

// NewPageTree creates a new page tree from the root pages dictionary
func NewPageTree(root core.Dict, resolver ObjectResolver) *PageTree {
	return &PageTree{
		root:     root,
		resolver: resolver,
	}
}

// Count returns the total number of pages
func (t *PageTree) Count() (int, error) {
	count, ok := t.root.GetInt("Count")
	if !ok {
		return 0, fmt.Errorf("page tree missing /Count entry")
	}
	return int(count), nil
}

// GetPage returns the page at the given index (0-based)
func (t *PageTree) GetPage(index int) (*Page, error) {
	if t.pages == nil {
		if err := t.loadPages(); err != nil {
			return nil, err
		}
	}
	if index < 0 || index >= len(t.pages) {
		return nil, fmt.Errorf("page index %d out of range [0, %d)", index, len(t.pages))
	}
	return t.pages[index], nil
}

// Pages returns all pages in document order
func (t *PageTree) Pages() ([]*Page, error) {
	if t.pages == nil {
		if err := t.loadPages(); err != nil {
			return nil, err
		}
	}
	return t.pages, nil
}

// loadPages traverses the page tree and builds the flattened page list
func (t *PageTree) loadPages() error {
	t.pages = make([]*Page, 0)
	if err := t.traversePageNode(t.root, core.Dict{}, 0); err != nil {
		return fmt.Errorf("failed to traverse page tree: %w", err)
	}
	return nil
}

// traversePageNode recursively traverses a page tree node. inherited
// carries the inheritable attributes collected from every ancestor, so a
// page several levels deep still sees its grandparent's /Resources.
func (t *PageTree) traversePageNode(node core.Dict, inherited core.Dict, depth int) error {
	// Malformed files can contain page tree cycles
	if depth > 64 {
		return fmt.Errorf("page tree exceeds maximum depth")
	}

	typeName, ok := node.GetName("Type")
	if !ok {
		return fmt.Errorf("page node missing /Type entry")
	}

	switch string(typeName) {
	case "Pages":
		merged := mergeInheritable(inherited, node)

		kidsObj := node.Get("Kids")
		if kidsObj == nil {
			return fmt.Errorf("Pages node missing /Kids entry")
		}
		kidsResolved, err := t.resolver.Resolve(kidsObj)
		if err != nil {
			return fmt.Errorf("failed to resolve /Kids: %w", err)
		}
		kids, ok := kidsResolved.(core.Array)
		if !ok {
			return fmt.Errorf("invalid /Kids type: %T", kidsResolved)
		}

		for i, kidObj := range kids {
			kidResolved, err := t.resolver.Resolve(kidObj)
			if err != nil {
				return fmt.Errorf("failed to resolve kid %d: %w", i, err)
			}
			kidDict, ok := kidResolved.(core.Dict)
			if !ok {
				return fmt.Errorf("invalid kid type: %T", kidResolved)
			}
			if err := t.traversePageNode(kidDict, merged, depth+1); err != nil {
				return err
			}
		}

	case "Page":
		t.pages = append(t.pages, NewPage(node, inherited, t.resolver))

	default:
		return fmt.Errorf("unexpected page node type: %s", typeName)
	}

	return nil
}

// mergeInheritable overlays a node's inheritable attributes onto those
// collected from its ancestors.
func mergeInheritable(inherited, node core.Dict) core.Dict {
	merged := make(core.Dict, len(inherited))
	for k, v := range inherited {
		merged[k] = v
	}
	for _, key := range inheritable {
		if v := node.Get(key); v != nil {
			merged[key] = v
		}
	}
	return merged
}

// Page represents a single PDF page
type Page struct {
	dict      core.Dict
	inherited core.Dict
	resolver  ObjectResolver
}

// NewPage creates a new page from a dictionary plus the inheritable
// attributes collected from its ancestors.
func NewPage(dict core.Dict, inherited core.Dict, resolver ObjectResolver) *Page {
	return &Page{
		dict:      dict,
		inherited: inherited,
		resolver:  resolver,
	}
}

// attr retrieves a page attribute, consulting inherited values when the
// page dictionary does not carry its own.
func (p *Page) attr(name string) core.Object {
	if obj := p.dict.Get(name); obj != nil {
		return obj
	}
	if p.inherited != nil {
		return p.inherited.Get(name)
	}
	return nil
}

// MediaBox returns the page media box
func (p *Page) MediaBox() (model.BBox, error) {
	return p.getBox("MediaBox")
}

// CropBox returns the page crop box, defaulting to MediaBox
func (p *Page) CropBox() (model.BBox, error) {
	box, err := p.getBox("CropBox")
	if err != nil {
		return p.MediaBox()
	}
	return box, nil
}

// getBox retrieves a rectangle attribute
func (p *Page) getBox(name string) (model.BBox, error) {
	boxObj := p.attr(name)
	if boxObj == nil {
		return model.BBox{}, fmt.Errorf("%s not found", name)
	}

	boxResolved, err := p.resolver.Resolve(boxObj)
	if err != nil {
		return model.BBox{}, fmt.Errorf("failed to resolve %s: %w", name, err)
	}
	boxArr, ok := boxResolved.(core.Array)
	if !ok || len(boxArr) != 4 {
		return model.BBox{}, fmt.Errorf("invalid %s: %v", name, boxResolved)
	}

	var coords [4]float64
	for i, elem := range boxArr {
		resolved, err := p.resolver.Resolve(elem)
		if err != nil {
			return model.BBox{}, fmt.Errorf("failed to resolve %s element %d: %w", name, i, err)
		}
		num, ok := core.ToNumber(resolved)
		if !ok {
			return model.BBox{}, fmt.Errorf("invalid %s element type: %T", name, resolved)
		}
		coords[i] = num
	}

	// Box arrays are corner pairs [x1 y1 x2 y2], possibly unordered
	return model.NewBBoxFromPoints(
		model.Point{X: coords[0], Y: coords[1]},
		model.Point{X: coords[2], Y: coords[3]},
	), nil
}

// Resources returns the page resources dictionary (inheritable)
func (p *Page) Resources() (core.Dict, error) {
	resourcesObj := p.attr("Resources")
	if resourcesObj == nil {
		return nil, fmt.Errorf("resources not found")
	}

	resolved, err := p.resolver.Resolve(resourcesObj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Resources: %w", err)
	}
	dict, ok := resolved.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("invalid Resources type: %T", resolved)
	}
	return dict, nil
}

// Contents returns the page content streams. A page may carry a single
// stream or an array of streams; both forms are returned as a slice.
func (p *Page) Contents() ([]*core.Stream, error) {
	contentsObj := p.dict.Get("Contents")
	if contentsObj == nil {
		return nil, nil
	}

	resolved, err := p.resolver.Resolve(contentsObj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Contents: %w", err)
	}

	switch v := resolved.(type) {
	case *core.Stream:
		return []*core.Stream{v}, nil
	case core.Array:
		streams := make([]*core.Stream, 0, len(v))
		for i, elem := range v {
			elemResolved, err := p.resolver.Resolve(elem)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve contents[%d]: %w", i, err)
			}
			stream, ok := elemResolved.(*core.Stream)
			if !ok {
				return nil, fmt.Errorf("invalid contents[%d] type: %T", i, elemResolved)
			}
			streams = append(streams, stream)
		}
		return streams, nil
	default:
		return nil, fmt.Errorf("invalid Contents type: %T", resolved)
	}
}

// Rotate returns the page rotation (0, 90, 180, or 270)
func (p *Page) Rotate() int {
	rotateObj := p.attr("Rotate")
	if rotateObj == nil {
		return 0
	}
	if rotate, ok := rotateObj.(core.Int); ok {
		return int(rotate)
	}
	return 0
}

// Width returns the page width from MediaBox
func (p *Page) Width() (float64, error) {
	box, err := p.MediaBox()
	if err != nil {
		return 0, err
	}
	return box.Width, nil
}

// Height returns the page height from MediaBox
func (p *Page) Height() (float64, error) {
	box, err := p.MediaBox()
	if err != nil {
		return 0, err
	}
	return box.Height, nil
}

// Dict returns the underlying page dictionary
func (p *Page) Dict() core.Dict {
	return p.dict
}
