package font

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/bclement/redline/core"
)

// maxRangeSpan caps how many codes a single bfrange may cover. Malformed
// files have been seen declaring ranges over the whole 32-bit space, which
// would stall the reverse-map build.
const maxRangeSpan = 0x10000

// CMap represents a ToUnicode character map: character codes as they
// appear in content stream string operands, mapped to Unicode text.
type CMap struct {
	charMappings  map[uint32]string
	rangeMappings []CMapRange

	// Widest source code seen, in bytes (1 or 2). Determines how string
	// operands are chunked during decoding.
	codeBytes int
}

// CMapRange represents a contiguous run of code to Unicode mappings
type CMapRange struct {
	StartCode    uint32
	EndCode      uint32
	StartUnicode uint32
	CodeBytes    int
}

// NewCMap creates a new empty CMap
func NewCMap() *CMap {
	return &CMap{
		charMappings: make(map[uint32]string),
		codeBytes:    1,
	}
}

// ParseToUnicodeCMap decodes and parses a /ToUnicode CMap stream
func ParseToUnicodeCMap(stream *core.Stream) (*CMap, error) {
	if stream == nil {
		return nil, fmt.Errorf("stream is nil")
	}

	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode stream: %w", err)
	}

	return ParseCMapData(data)
}

// ParseCMapData parses raw CMap text
func ParseCMapData(data []byte) (*CMap, error) {
	cmap := NewCMap()
	content := string(data)

	cmap.parseBfChar(content)
	cmap.parseBfRange(content)

	if len(cmap.charMappings) == 0 && len(cmap.rangeMappings) == 0 {
		return nil, fmt.Errorf("cmap contains no bfchar or bfrange mappings")
	}
	return cmap, nil
}

// CodeBytes returns the widest source code width seen, in bytes
func (cm *CMap) CodeBytes() int {
	return cm.codeBytes
}

// parseBfChar parses every beginbfchar/endbfchar section.
// Entry format: <srcCode> <dstUnicode>
func (cm *CMap) parseBfChar(content string) {
	for _, section := range sections(content, "beginbfchar", "endbfchar") {
		for _, line := range strings.Split(section, "\n") {
			parts := strings.Fields(strings.TrimSpace(line))
			if len(parts) < 2 {
				continue
			}

			srcHex := extractHexString(parts[0])
			dstHex := extractHexString(parts[1])
			if srcHex == "" || dstHex == "" {
				continue
			}

			srcCode, err := parseHexToUint32(srcHex)
			if err != nil {
				continue
			}
			unicode, err := hexToUnicode(dstHex)
			if err != nil {
				continue
			}

			cm.charMappings[srcCode] = unicode
			cm.noteCodeWidth(len(srcHex) / 2)
		}
	}
}

// parseBfRange parses every beginbfrange/endbfrange section.
// Entry formats: <start> <end> <dstUnicode>
// or: <start> <end> [<u1> <u2> ...]
func (cm *CMap) parseBfRange(content string) {
	for _, section := range sections(content, "beginbfrange", "endbfrange") {
		lines := strings.Split(section, "\n")
		i := 0
		for i < len(lines) {
			line := strings.TrimSpace(lines[i])
			if line == "" {
				i++
				continue
			}

			if strings.Contains(line, "[") {
				// Array form may wrap across lines
				fullLine := line
				for !strings.Contains(fullLine, "]") && i+1 < len(lines) {
					i++
					fullLine += " " + strings.TrimSpace(lines[i])
				}
				cm.parseBfRangeArray(fullLine)
				i++
				continue
			}

			parts := strings.Fields(line)
			if len(parts) < 3 {
				i++
				continue
			}

			startHex := extractHexString(parts[0])
			endHex := extractHexString(parts[1])
			dstHex := extractHexString(parts[2])
			if startHex == "" || endHex == "" || dstHex == "" {
				i++
				continue
			}

			startCode, err1 := parseHexToUint32(startHex)
			endCode, err2 := parseHexToUint32(endHex)
			dstUnicode, err3 := parseHexToUint32(dstHex)
			if err1 != nil || err2 != nil || err3 != nil || endCode < startCode {
				i++
				continue
			}
			if endCode-startCode > maxRangeSpan {
				endCode = startCode + maxRangeSpan
			}

			cm.rangeMappings = append(cm.rangeMappings, CMapRange{
				StartCode:    startCode,
				EndCode:      endCode,
				StartUnicode: dstUnicode,
				CodeBytes:    len(startHex) / 2,
			})
			cm.noteCodeWidth(len(startHex) / 2)
			i++
		}
	}
}

// parseBfRangeArray parses the array form: <start> <end> [<u1> <u2> ...]
func (cm *CMap) parseBfRangeArray(line string) {
	parts := strings.Fields(line)
	if len(parts) < 3 {
		return
	}

	startHex := extractHexString(parts[0])
	endHex := extractHexString(parts[1])
	startCode, err1 := parseHexToUint32(startHex)
	endCode, err2 := parseHexToUint32(endHex)
	if err1 != nil || err2 != nil {
		return
	}

	arrayStart := strings.Index(line, "[")
	arrayEnd := strings.Index(line, "]")
	if arrayStart == -1 || arrayEnd == -1 || arrayEnd < arrayStart {
		return
	}

	currentCode := startCode
	for _, hexStr := range strings.Fields(line[arrayStart+1 : arrayEnd]) {
		h := extractHexString(hexStr)
		if h == "" {
			continue
		}
		if unicode, err := hexToUnicode(h); err == nil && currentCode <= endCode {
			cm.charMappings[currentCode] = unicode
		}
		currentCode++
	}
	cm.noteCodeWidth(len(startHex) / 2)
}

// noteCodeWidth records the widest source code width seen
func (cm *CMap) noteCodeWidth(width int) {
	if width > cm.codeBytes {
		cm.codeBytes = width
	}
	if cm.codeBytes > 2 {
		cm.codeBytes = 2
	}
}

// Lookup returns the Unicode string for a character code, or "" when the
// map has no entry for it.
func (cm *CMap) Lookup(charCode uint32) string {
	if unicode, ok := cm.charMappings[charCode]; ok {
		return unicode
	}
	for _, r := range cm.rangeMappings {
		if charCode >= r.StartCode && charCode <= r.EndCode {
			return string(rune(r.StartUnicode + (charCode - r.StartCode)))
		}
	}
	return ""
}

// Entries calls fn for every mapping, direct and range-expanded. Used to
// build the reverse map for re-encoding.
func (cm *CMap) Entries(fn func(code uint32, width int, unicode string)) {
	for code, unicode := range cm.charMappings {
		fn(code, widthOf(code, cm.codeBytes), unicode)
	}
	for _, r := range cm.rangeMappings {
		for code := r.StartCode; code <= r.EndCode; code++ {
			fn(code, r.CodeBytes, string(rune(r.StartUnicode+(code-r.StartCode))))
			if code == r.EndCode {
				break
			}
		}
	}
}

// widthOf picks a byte width for a direct mapping. Codes above 0xFF must
// be two bytes regardless of what the map's dominant width is.
func widthOf(code uint32, codeBytes int) int {
	if code > 0xFF {
		return 2
	}
	return codeBytes
}

// sections returns the content slices between each begin/end marker pair
func sections(content, begin, end string) []string {
	var out []string
	start := 0
	for {
		beginIdx := strings.Index(content[start:], begin)
		if beginIdx == -1 {
			break
		}
		beginIdx += start

		endIdx := strings.Index(content[beginIdx:], end)
		if endIdx == -1 {
			break
		}
		endIdx += beginIdx

		out = append(out, content[beginIdx+len(begin):endIdx])
		start = endIdx + len(end)
	}
	return out
}

// extractHexString extracts hex content from <ABCD> format
func extractHexString(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return ""
	}
	if s[0] == '<' && s[len(s)-1] == '>' {
		return s[1 : len(s)-1]
	}
	return ""
}

// parseHexToUint32 parses a hex string to uint32
func parseHexToUint32(hexStr string) (uint32, error) {
	if len(hexStr)%2 != 0 {
		hexStr = "0" + hexStr
	}
	val, err := strconv.ParseUint(hexStr, 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(val), nil
}

// hexToUnicode converts a destination hex string to a Unicode string.
// Two or more bytes are treated as UTF-16BE, which is what ToUnicode
// CMaps carry.
func hexToUnicode(hexStr string) (string, error) {
	if len(hexStr)%2 != 0 {
		hexStr = "0" + hexStr
	}
	data, err := hex.DecodeString(hexStr)
	if err != nil {
		return "", err
	}

	if len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF {
		return DecodeUTF16BE(data[2:]), nil
	}
	if len(data) >= 2 {
		return DecodeUTF16BE(data), nil
	}
	if len(data) == 1 {
		return string(rune(data[0])), nil
	}
	return "", fmt.Errorf("empty unicode data")
}
