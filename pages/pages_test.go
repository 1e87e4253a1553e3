package pages

import (
	"testing"

	"github.com/bclement/redline/core"
)

// stubResolver resolves references out of a fixed object table
type stubResolver struct {
	objects map[int]core.Object
}

func (s *stubResolver) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	obj, ok := s.objects[ref.Number]
	if !ok {
		return core.Null{}, nil
	}
	return obj, nil
}

func (s *stubResolver) Resolve(obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		return s.ResolveReference(ref)
	}
	return obj, nil
}

func (s *stubResolver) ResolveDeep(obj core.Object) (core.Object, error) {
	return s.Resolve(obj)
}

// buildTree builds a two-level page tree: root -> [intermediate -> [page1], page2].
// Resources and MediaBox live on the root so inheritance has to cross the
// intermediate node for page1.
func buildTree() (*PageTree, *stubResolver) {
	resources := core.Dict{
		"Font": core.Dict{"F1": core.IndirectRef{Number: 10}},
	}
	mediaBox := core.Array{core.Int(0), core.Int(0), core.Int(612), core.Int(792)}

	page1 := core.Dict{"Type": core.Name("Page")}
	page2 := core.Dict{
		"Type":     core.Name("Page"),
		"MediaBox": core.Array{core.Int(0), core.Int(0), core.Int(300), core.Int(400)},
	}
	intermediate := core.Dict{
		"Type": core.Name("Pages"),
		"Kids": core.Array{core.IndirectRef{Number: 4}},
	}
	root := core.Dict{
		"Type":      core.Name("Pages"),
		"Count":     core.Int(2),
		"Kids":      core.Array{core.IndirectRef{Number: 3}, core.IndirectRef{Number: 5}},
		"Resources": resources,
		"MediaBox":  mediaBox,
	}

	resolver := &stubResolver{objects: map[int]core.Object{
		2: root,
		3: intermediate,
		4: page1,
		5: page2,
	}}
	return NewPageTree(root, resolver), resolver
}

// TestPageTreeFlattening tests document-order traversal of nested nodes
func TestPageTreeFlattening(t *testing.T) {
	tree, _ := buildTree()

	count, err := tree.Count()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 pages, got %d", count)
	}

	pages, err := tree.Pages()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 flattened pages, got %d", len(pages))
	}
}

// TestInheritedAttributes tests that Resources and MediaBox inherit across
// intermediate tree levels
func TestInheritedAttributes(t *testing.T) {
	tree, _ := buildTree()

	page, err := tree.GetPage(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resources, err := page.Resources()
	if err != nil {
		t.Fatalf("expected inherited resources, got error: %v", err)
	}
	if resources.Get("Font") == nil {
		t.Error("inherited resources missing /Font")
	}

	box, err := page.MediaBox()
	if err != nil {
		t.Fatalf("expected inherited media box, got error: %v", err)
	}
	if box.Width != 612 || box.Height != 792 {
		t.Errorf("expected 612x792, got %gx%g", box.Width, box.Height)
	}
}

// TestOwnAttributesOverrideInherited tests that a page's own MediaBox wins
func TestOwnAttributesOverrideInherited(t *testing.T) {
	tree, _ := buildTree()

	page, err := tree.GetPage(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	box, err := page.MediaBox()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if box.Width != 300 || box.Height != 400 {
		t.Errorf("expected 300x400, got %gx%g", box.Width, box.Height)
	}
}

// TestPageIndexOutOfRange tests index validation
func TestPageIndexOutOfRange(t *testing.T) {
	tree, _ := buildTree()

	if _, err := tree.GetPage(2); err == nil {
		t.Error("expected error for out-of-range index")
	}
	if _, err := tree.GetPage(-1); err == nil {
		t.Error("expected error for negative index")
	}
}

// TestPageContents tests single-stream and array-of-streams forms
func TestPageContents(t *testing.T) {
	stream := &core.Stream{Dict: core.Dict{"Length": core.Int(4)}, Data: []byte("q Q\n")}
	resolver := &stubResolver{objects: map[int]core.Object{7: stream}}

	single := NewPage(core.Dict{
		"Type":     core.Name("Page"),
		"Contents": core.IndirectRef{Number: 7},
	}, nil, resolver)
	streams, err := single.Contents()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(streams) != 1 || string(streams[0].Data) != "q Q\n" {
		t.Errorf("unexpected single contents: %v", streams)
	}

	array := NewPage(core.Dict{
		"Type":     core.Name("Page"),
		"Contents": core.Array{core.IndirectRef{Number: 7}, core.IndirectRef{Number: 7}},
	}, nil, resolver)
	streams, err = array.Contents()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(streams) != 2 {
		t.Errorf("expected 2 streams, got %d", len(streams))
	}

	empty := NewPage(core.Dict{"Type": core.Name("Page")}, nil, resolver)
	streams, err = empty.Contents()
	if err != nil || streams != nil {
		t.Errorf("expected nil contents for empty page, got %v, %v", streams, err)
	}
}
