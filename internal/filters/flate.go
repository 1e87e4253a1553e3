package filters

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// Params represents decode parameters from PDF stream dictionaries.
// Common parameters include Predictor, Columns, Colors, and BitsPerComponent.
type Params map[string]interface{}

// Decode decompresses zlib-framed data: a two-byte header, a raw-deflate
// payload, and a trailing Adler-32 checksum over the uncompressed bytes.
// Trailing bytes after the final deflate block (zero padding left by an
// in-place patch) are ignored, since the deflate stream is self-terminating.
func Decode(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid zlib header: %w", err)
	}
	defer r.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}
	return buf.Bytes(), nil
}

// Encode compresses data with the same zlib framing that Decode accepts.
// Best compression is used so that a replacement stream has the greatest
// chance of fitting back into the slot occupied by the original.
func Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create zlib writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compression failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish compression: %w", err)
	}
	return buf.Bytes(), nil
}

// IsCompressed reports whether data begins with a plausible zlib header.
// The first byte must declare the deflate method and the two header bytes
// must pass the FLG consistency check.
func IsCompressed(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	cmf, flg := data[0], data[1]
	if cmf&0x0f != 8 { // compression method must be deflate
		return false
	}
	return (uint32(cmf)<<8|uint32(flg))%31 == 0
}

// FlateDecode decompresses Flate data and reverses the predictor named by
// params, if any. Cross-reference streams in particular are almost always
// stored with a PNG Up predictor.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	decompressed, err := Decode(data)
	if err != nil {
		return nil, err
	}

	predictor := getIntParam(params, "Predictor", 1)
	if predictor == 1 {
		return decompressed, nil
	}
	return applyPredictor(decompressed, predictor, params)
}

// applyPredictor reverses the prediction applied before compression.
// Predictor 2 is TIFF horizontal differencing; 10-15 are the PNG row filters.
func applyPredictor(data []byte, predictor int, params Params) ([]byte, error) {
	switch {
	case predictor == 2:
		return applyTIFFPredictor(data, params)
	case predictor >= 10 && predictor <= 15:
		return applyPNGPredictor(data, params)
	default:
		return nil, fmt.Errorf("unsupported predictor: %d", predictor)
	}
}

// applyTIFFPredictor reverses TIFF Predictor 2, which predicts each sample
// from the sample to its left.
func applyTIFFPredictor(data []byte, params Params) ([]byte, error) {
	columns := getIntParam(params, "Columns", 1)
	colors := getIntParam(params, "Colors", 1)
	if bpc := getIntParam(params, "BitsPerComponent", 8); bpc != 8 {
		return nil, fmt.Errorf("TIFF predictor supports only 8 bits per component, got %d", bpc)
	}

	rowSize := columns * colors
	if rowSize <= 0 || len(data)%rowSize != 0 {
		return nil, fmt.Errorf("data size %d is not a multiple of row size %d", len(data), rowSize)
	}

	result := make([]byte, len(data))
	for row := 0; row < len(data)/rowSize; row++ {
		start := row * rowSize
		for col := 0; col < rowSize; col++ {
			idx := start + col
			if col < colors {
				result[idx] = data[idx]
			} else {
				result[idx] = data[idx] + result[idx-colors]
			}
		}
	}
	return result, nil
}

// applyPNGPredictor reverses the PNG row filters. Each row begins with a
// filter-type byte (0=None, 1=Sub, 2=Up, 3=Average, 4=Paeth) that applies
// to that row only.
func applyPNGPredictor(data []byte, params Params) ([]byte, error) {
	columns := getIntParam(params, "Columns", 1)
	colors := getIntParam(params, "Colors", 1)
	if bpc := getIntParam(params, "BitsPerComponent", 8); bpc != 8 {
		return nil, fmt.Errorf("PNG predictor supports only 8 bits per component, got %d", bpc)
	}

	bpp := colors
	rowLen := columns * colors
	rowSize := rowLen + 1 // leading filter-type byte
	if rowLen <= 0 || len(data)%rowSize != 0 {
		return nil, fmt.Errorf("data size %d is not a multiple of row size %d", len(data), rowSize)
	}

	numRows := len(data) / rowSize
	result := make([]byte, numRows*rowLen)

	for row := 0; row < numRows; row++ {
		filter := data[row*rowSize]
		src := data[row*rowSize+1 : (row+1)*rowSize]
		dst := result[row*rowLen : (row+1)*rowLen]

		var prev []byte
		if row > 0 {
			prev = result[(row-1)*rowLen : row*rowLen]
		}

		for i := range src {
			var left, up, upLeft byte
			if i >= bpp {
				left = dst[i-bpp]
			}
			if prev != nil {
				up = prev[i]
				if i >= bpp {
					upLeft = prev[i-bpp]
				}
			}

			var predicted byte
			switch filter {
			case 0:
				predicted = 0
			case 1:
				predicted = left
			case 2:
				predicted = up
			case 3:
				predicted = byte((int(left) + int(up)) / 2)
			case 4:
				predicted = paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("unknown PNG filter type %d in row %d", filter, row)
			}
			dst[i] = src[i] + predicted
		}
	}
	return result, nil
}

// paeth implements the Paeth predictor from the PNG specification.
func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))

	if pa <= pb && pa <= pc {
		return a
	} else if pb <= pc {
		return b
	}
	return c
}

// getIntParam extracts an integer parameter from Params, returning
// defaultValue if the parameter is missing or has an unexpected type.
func getIntParam(params Params, key string, defaultValue int) int {
	if params == nil {
		return defaultValue
	}
	switch v := params[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return defaultValue
	}
}

// abs returns the absolute value of an integer.
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
