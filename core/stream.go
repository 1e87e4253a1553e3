package core

import (
	"fmt"

	"github.com/bclement/redline/internal/filters"
)

// Stream represents a PDF stream object: a dictionary plus binary payload.
// Offset records where the payload begins in the buffer the stream was
// parsed from, which in-place patching depends on.
type Stream struct {
	Dict   Dict
	Data   []byte // Raw (still encoded) payload
	Offset int    // Byte offset of Data within the source buffer
}

func (s *Stream) Type() ObjectType { return ObjStream }
func (s *Stream) String() string {
	return fmt.Sprintf("stream(%d bytes)", len(s.Data))
}

// Decode decodes the stream payload according to the /Filter entry.
// It supports FlateDecode, ASCIIHexDecode, ASCII85Decode, and chains of
// those filters. A stream without filters decodes to its raw payload.
func (s *Stream) Decode() ([]byte, error) {
	filterObj := s.Dict.Get("Filter")
	if filterObj == nil {
		return s.Data, nil
	}

	paramsObj := s.Dict.Get("DecodeParms")

	switch f := filterObj.(type) {
	case Name:
		return decodeWithFilter(s.Data, string(f), paramsDict(paramsObj))

	case Array:
		data := s.Data
		for i, elem := range f {
			name, ok := elem.(Name)
			if !ok {
				return nil, fmt.Errorf("filter %d is not a name: %T", i, elem)
			}

			var params Dict
			if paramsArr, ok := paramsObj.(Array); ok {
				if i < len(paramsArr) {
					params = paramsDict(paramsArr[i])
				}
			} else {
				params = paramsDict(paramsObj)
			}

			var err error
			data, err = decodeWithFilter(data, string(name), params)
			if err != nil {
				return nil, fmt.Errorf("filter %d (%s) failed: %w", i, name, err)
			}
		}
		return data, nil

	default:
		return nil, fmt.Errorf("invalid /Filter type: %T", filterObj)
	}
}

// decodeWithFilter applies a single decode filter to data
func decodeWithFilter(data []byte, filterName string, params Dict) ([]byte, error) {
	switch filterName {
	case "FlateDecode", "Fl":
		return filters.FlateDecode(data, dictToParams(params))
	case "ASCIIHexDecode", "AHx":
		return filters.ASCIIHexDecode(data)
	case "ASCII85Decode", "A85":
		return filters.ASCII85Decode(data)
	default:
		return nil, fmt.Errorf("unsupported filter: %s", filterName)
	}
}

// paramsDict converts a DecodeParms object to a Dict; Null and missing
// params both mean no parameters.
func paramsDict(obj Object) Dict {
	if dict, ok := obj.(Dict); ok {
		return dict
	}
	return nil
}

// dictToParams converts a core.Dict to filters.Params, translating PDF
// object types to Go primitives.
func dictToParams(dict Dict) filters.Params {
	if dict == nil {
		return nil
	}
	params := make(filters.Params, len(dict))
	for k, v := range dict {
		switch obj := v.(type) {
		case Int:
			params[k] = int(obj)
		case Real:
			params[k] = float64(obj)
		case Bool:
			params[k] = bool(obj)
		case Name:
			params[k] = string(obj)
		default:
			params[k] = v
		}
	}
	return params
}
