package reader

import (
	"fmt"
	"regexp"

	"github.com/bclement/redline/core"
	"github.com/bclement/redline/pages"
)

// PDFVersion represents a PDF version
type PDFVersion struct {
	Major int
	Minor int
}

// String returns the version as a string (e.g., "1.7")
func (v PDFVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

var headerRe = regexp.MustCompile(`^%PDF-(\d+)\.(\d+)`)

// Reader provides structured access to a PDF held entirely in memory. It
// resolves objects through the cross-reference table, including objects
// packed into object streams, and exposes the page tree. The underlying
// buffer is never modified; all offsets reported by parsed streams refer
// directly into it.
type Reader struct {
	data        []byte
	xrefTable   *core.XRefTable
	trailer     core.Dict
	version     PDFVersion
	objCache    map[int]core.Object
	objStmCache map[int]*core.ObjectStream
	pageTree    *pages.PageTree
}

// Ensure Reader satisfies the resolver interfaces
var _ pages.ObjectResolver = (*Reader)(nil)
var _ core.ReferenceResolver = (*Reader)(nil)

// NewReader parses the header and cross-reference structure of an
// in-memory PDF.
func NewReader(data []byte) (*Reader, error) {
	r := &Reader{
		data:        data,
		objCache:    make(map[int]core.Object),
		objStmCache: make(map[int]*core.ObjectStream),
	}

	version, err := r.parseHeader()
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}
	r.version = version

	xrefTable, err := core.ParseAllXRefs(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load xref: %w", err)
	}
	r.xrefTable = xrefTable
	r.trailer = xrefTable.Trailer

	return r, nil
}

// parseHeader parses the PDF header (%PDF-x.y)
func (r *Reader) parseHeader() (PDFVersion, error) {
	if len(r.data) < 8 {
		return PDFVersion{}, fmt.Errorf("file too short: %d bytes", len(r.data))
	}

	matches := headerRe.FindSubmatch(r.data[:16])
	if matches == nil {
		return PDFVersion{}, fmt.Errorf("invalid PDF header: %q", r.data[:8])
	}

	var major, minor int
	fmt.Sscanf(string(matches[1]), "%d", &major)
	fmt.Sscanf(string(matches[2]), "%d", &minor)

	return PDFVersion{Major: major, Minor: minor}, nil
}

// Version returns the PDF version
func (r *Reader) Version() PDFVersion {
	return r.version
}

// Trailer returns the trailer dictionary
func (r *Reader) Trailer() core.Dict {
	return r.trailer
}

// Data returns the underlying file buffer
func (r *Reader) Data() []byte {
	return r.data
}

// XRefTable returns the cross-reference table
func (r *Reader) XRefTable() *core.XRefTable {
	return r.xrefTable
}

// GetObject loads an object by its number. Objects stored in object
// streams are extracted transparently. Loaded objects are cached.
func (r *Reader) GetObject(objNum int) (core.Object, error) {
	if obj, ok := r.objCache[objNum]; ok {
		return obj, nil
	}

	entry, ok := r.xrefTable.Get(objNum)
	if !ok {
		return nil, fmt.Errorf("object %d not found in xref table", objNum)
	}
	if !entry.InUse {
		return nil, fmt.Errorf("object %d is not in use", objNum)
	}

	var obj core.Object
	var err error
	if entry.InObjectStream {
		obj, err = r.getCompressedObject(objNum, entry)
	} else {
		obj, err = r.getDirectObject(objNum, entry)
	}
	if err != nil {
		return nil, err
	}

	r.objCache[objNum] = obj
	return obj, nil
}

// getDirectObject parses an object stored at a file offset
func (r *Reader) getDirectObject(objNum int, entry *core.XRefEntry) (core.Object, error) {
	if entry.Offset < 0 || entry.Offset >= int64(len(r.data)) {
		return nil, fmt.Errorf("object %d offset %d out of range", objNum, entry.Offset)
	}

	parser := core.NewParserAt(r.data, int(entry.Offset))
	parser.SetReferenceResolver(r)
	indObj, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse object %d: %w", objNum, err)
	}
	if indObj.Ref.Number != objNum {
		return nil, fmt.Errorf("object number mismatch: expected %d, got %d", objNum, indObj.Ref.Number)
	}
	return indObj.Object, nil
}

// getCompressedObject extracts an object from its containing object stream
func (r *Reader) getCompressedObject(objNum int, entry *core.XRefEntry) (core.Object, error) {
	objStm, err := r.getObjectStream(entry.StreamNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to load object stream %d for object %d: %w",
			entry.StreamNumber, objNum, err)
	}
	return objStm.GetObjectByNumber(objNum)
}

// getObjectStream loads and caches the object stream with the given number
func (r *Reader) getObjectStream(streamNum int) (*core.ObjectStream, error) {
	if objStm, ok := r.objStmCache[streamNum]; ok {
		return objStm, nil
	}

	obj, err := r.GetObject(streamNum)
	if err != nil {
		return nil, err
	}
	stream, ok := obj.(*core.Stream)
	if !ok {
		return nil, fmt.Errorf("object %d is not a stream: %T", streamNum, obj)
	}

	objStm, err := core.NewObjectStream(stream)
	if err != nil {
		return nil, err
	}
	r.objStmCache[streamNum] = objStm
	return objStm, nil
}

// ResolveReference resolves a single indirect reference
func (r *Reader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return r.GetObject(ref.Number)
}

// Resolve resolves an object if it is an indirect reference, otherwise
// returns it unchanged.
func (r *Reader) Resolve(obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		return r.ResolveReference(ref)
	}
	return obj, nil
}

// ResolveDeep recursively resolves all indirect references inside an
// object, fully expanding dictionaries and arrays.
func (r *Reader) ResolveDeep(obj core.Object) (core.Object, error) {
	return r.resolveDeep(obj, make(map[int]bool))
}

func (r *Reader) resolveDeep(obj core.Object, visited map[int]bool) (core.Object, error) {
	switch v := obj.(type) {
	case core.IndirectRef:
		if visited[v.Number] {
			// Reference cycles are normal document structure (every
			// page carries a /Parent backlink); leave the reference
			// unexpanded instead of failing the whole expansion.
			return v, nil
		}
		visited[v.Number] = true
		defer delete(visited, v.Number)

		resolved, err := r.ResolveReference(v)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve reference %d %d R: %w", v.Number, v.Generation, err)
		}
		return r.resolveDeep(resolved, visited)

	case core.Dict:
		result := make(core.Dict, len(v))
		for key, val := range v {
			resolvedVal, err := r.resolveDeep(val, visited)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve dict key %s: %w", key, err)
			}
			result[key] = resolvedVal
		}
		return result, nil

	case core.Array:
		result := make(core.Array, len(v))
		for i, elem := range v {
			resolvedElem, err := r.resolveDeep(elem, visited)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve array element %d: %w", i, err)
			}
			result[i] = resolvedElem
		}
		return result, nil

	case *core.Stream:
		resolvedDict, err := r.resolveDeep(v.Dict, visited)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve stream dict: %w", err)
		}
		return &core.Stream{
			Dict:   resolvedDict.(core.Dict),
			Data:   v.Data,
			Offset: v.Offset,
		}, nil

	default:
		return obj, nil
	}
}

// GetCatalog returns the document catalog (root object)
func (r *Reader) GetCatalog() (core.Dict, error) {
	rootRef := r.trailer.Get("Root")
	if rootRef == nil {
		return nil, fmt.Errorf("trailer missing /Root entry")
	}

	obj, err := r.Resolve(rootRef)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog: %w", err)
	}

	catalog, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("catalog is not a dictionary: %T", obj)
	}
	return catalog, nil
}

// PageCount returns the number of pages in the document
func (r *Reader) PageCount() (int, error) {
	if err := r.ensurePageTree(); err != nil {
		return 0, err
	}
	return r.pageTree.Count()
}

// GetPage returns the page at the given index (0-based)
func (r *Reader) GetPage(index int) (*pages.Page, error) {
	if err := r.ensurePageTree(); err != nil {
		return nil, err
	}
	return r.pageTree.GetPage(index)
}

// Pages returns all pages in document order
func (r *Reader) Pages() ([]*pages.Page, error) {
	if err := r.ensurePageTree(); err != nil {
		return nil, err
	}
	return r.pageTree.Pages()
}

// ensurePageTree loads the page tree if not already loaded
func (r *Reader) ensurePageTree() error {
	if r.pageTree != nil {
		return nil
	}

	catalog, err := r.GetCatalog()
	if err != nil {
		return fmt.Errorf("failed to get catalog: %w", err)
	}

	pagesRef := catalog.Get("Pages")
	if pagesRef == nil {
		return fmt.Errorf("catalog missing /Pages entry")
	}
	pagesObj, err := r.Resolve(pagesRef)
	if err != nil {
		return fmt.Errorf("failed to resolve pages: %w", err)
	}
	pagesDict, ok := pagesObj.(core.Dict)
	if !ok {
		return fmt.Errorf("pages is not a dictionary: %T", pagesObj)
	}

	r.pageTree = pages.NewPageTree(pagesDict, r)
	return nil
}
