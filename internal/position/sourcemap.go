package position

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-sourcemap/sourcemap"
)

// Segment is one entry mapping a line/column in the annotated preprocessor
// stream back to a line/column in an original source file, the unit
// SourceMap.Add collects and Encode renders into a standard Source Map v3
// document.
type Segment struct {
	GenLine, GenColumn int
	SourceFile         string
	SrcLine, SrcColumn int
	Name               string
}

// SourceMap is a minimal, ordered set of Segments plus the source file list,
// renderable as a standard Source Map v3 JSON document.
type SourceMap struct {
	File     string
	Sources  []string
	Segments []Segment
}

// NewSourceMap creates an empty map for the given generated-stream name.
func NewSourceMap(genFile string) *SourceMap {
	return &SourceMap{File: genFile}
}

// Add records a mapping from a generated-stream position to a source
// position, used by the driver when it wants to emit --emit-sourcemap
// diagnostics describing macro/include expansion provenance.
func (m *SourceMap) Add(seg Segment) {
	found := false
	for _, s := range m.Sources {
		if s == seg.SourceFile {
			found = true
			break
		}
	}
	if !found {
		m.Sources = append(m.Sources, seg.SourceFile)
	}
	m.Segments = append(m.Segments, seg)
}

type v3Document struct {
	Version    int      `json:"version"`
	File       string   `json:"file"`
	SourceRoot string   `json:"sourceRoot"`
	Sources    []string `json:"sources"`
	Names      []string `json:"names"`
	Mappings   string   `json:"mappings"`
}

// Encode renders m as a Source Map v3 JSON document with VLQ-encoded
// mappings, consumable by github.com/go-sourcemap/sourcemap.Parse (or any
// standard source-map consumer).
func (m *SourceMap) Encode() ([]byte, error) {
	sorted := make([]Segment, len(m.Segments))
	copy(sorted, m.Segments)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].GenLine != sorted[j].GenLine {
			return sorted[i].GenLine < sorted[j].GenLine
		}
		return sorted[i].GenColumn < sorted[j].GenColumn
	})

	sourceIndex := make(map[string]int, len(m.Sources))
	for i, s := range m.Sources {
		sourceIndex[s] = i
	}

	names := collectNames(sorted)
	nameIndex := make(map[string]int, len(names))
	for i, n := range names {
		nameIndex[n] = i
	}

	mappings, err := encodeMappings(sorted, sourceIndex, nameIndex)
	if err != nil {
		return nil, err
	}

	doc := v3Document{
		Version:  3,
		File:     m.File,
		Sources:  m.Sources,
		Names:    names,
		Mappings: mappings,
	}
	return json.MarshalIndent(doc, "", "  ")
}

func collectNames(segs []Segment) []string {
	seen := make(map[string]bool)
	var names []string
	for _, s := range segs {
		if s.Name != "" && !seen[s.Name] {
			seen[s.Name] = true
			names = append(names, s.Name)
		}
	}
	return names
}

// encodeMappings renders the VLQ "mappings" field of a Source Map v3
// document: ';'-separated generated lines, each a comma-separated list of
// per-segment fields, each field delta-encoded against the previous segment
// on the same line (source index and name index are delta-encoded against
// their last value across the whole document, per the v3 spec).
func encodeMappings(segs []Segment, sourceIndex, nameIndex map[string]int) (string, error) {
	if len(segs) == 0 {
		return "", nil
	}
	var out []byte
	prevGenLine := 1
	prevGenCol := 0
	prevSrcIdx := 0
	prevSrcLine := 0
	prevSrcCol := 0
	prevNameIdx := 0
	firstOnLine := true

	for _, s := range segs {
		for prevGenLine < s.GenLine {
			out = append(out, ';')
			prevGenLine++
			prevGenCol = 0
			firstOnLine = true
		}
		if !firstOnLine {
			out = append(out, ',')
		}
		firstOnLine = false

		srcIdx, ok := sourceIndex[s.SourceFile]
		if !ok {
			return "", fmt.Errorf("sourcemap: unknown source %q", s.SourceFile)
		}

		out = appendVLQ(out, s.GenColumn-prevGenCol)
		out = appendVLQ(out, srcIdx-prevSrcIdx)
		out = appendVLQ(out, (s.SrcLine-1)-prevSrcLine)
		out = appendVLQ(out, (s.SrcColumn-1)-prevSrcCol)
		if s.Name != "" {
			out = appendVLQ(out, nameIndex[s.Name]-prevNameIdx)
			prevNameIdx = nameIndex[s.Name]
		}

		prevGenCol = s.GenColumn
		prevSrcIdx = srcIdx
		prevSrcLine = s.SrcLine - 1
		prevSrcCol = s.SrcColumn - 1
	}
	return string(out), nil
}

const vlqBase64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// appendVLQ base64-VLQ encodes a single signed value per the Source Map v3
// spec: the sign is folded into the low bit, and each subsequent 5-bit
// group carries a continuation bit in its high bit.
func appendVLQ(out []byte, value int) []byte {
	v := value << 1
	if value < 0 {
		v = (-value << 1) | 1
	}
	for {
		digit := v & 0x1f
		v >>= 5
		if v > 0 {
			digit |= 0x20
		}
		out = append(out, vlqBase64Chars[digit])
		if v == 0 {
			break
		}
	}
	return out
}

// Consumer wraps a parsed Source Map v3 document for reverse lookup,
// mirroring the read side of the teacher's own sourcemap package.
type Consumer struct {
	sm *sourcemap.Consumer
}

// ParseConsumer parses a Source Map v3 document produced by Encode (or any
// standard generator).
func ParseConsumer(data []byte) (*Consumer, error) {
	sm, err := sourcemap.Parse("", data)
	if err != nil {
		return nil, fmt.Errorf("sourcemap: parse: %w", err)
	}
	return &Consumer{sm: sm}, nil
}

// Source looks up the original (file, line, column) for a generated
// (line, column) position; line/column are both 1-based.
func (c *Consumer) Source(line, column int) (file string, srcLine, srcCol int, ok bool) {
	file, _, srcLine, srcCol, ok = c.sm.Source(line-1, column-1)
	if !ok {
		return "", 0, 0, false
	}
	return file, srcLine + 1, srcCol + 1, true
}

// EncodeInline renders m as a base64 data-URL comment, for embedding
// directly in a rewritten file the way JS tooling embeds inline source maps.
func EncodeInline(m *SourceMap) (string, error) {
	data, err := m.Encode()
	if err != nil {
		return "", err
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	return fmt.Sprintf("//# sourceMappingURL=data:application/json;base64,%s", encoded), nil
}
