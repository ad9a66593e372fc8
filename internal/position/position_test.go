package position

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStackAdvanceSingleLine(t *testing.T) {
	s := Stack{{Kind: FrameFile, Name: "top.v", Byte: 10, Line: 2, Column: 3}}
	adv := s.Advance("wire")
	assert.Equal(t, 14, adv.Top().Byte)
	assert.Equal(t, 2, adv.Top().Line)
	assert.Equal(t, 7, adv.Top().Column)
	// original untouched
	assert.Equal(t, 10, s.Top().Byte)
}

func TestStackAdvanceMultiLine(t *testing.T) {
	s := Stack{{Kind: FrameFile, Name: "top.v", Byte: 0, Line: 1, Column: 1}}
	adv := s.Advance("a\nbc\nd")
	assert.Equal(t, 3, adv.Top().Line)
	assert.Equal(t, 2, adv.Top().Column)
	assert.Equal(t, 6, adv.Top().Byte)
}

func TestStackPushPopMacro(t *testing.T) {
	s := Stack{{Kind: FrameFile, Name: "top.v", Line: 1}}
	pushed := s.PushMacro("W")
	require.Len(t, pushed, 2)
	assert.Equal(t, FrameMacro, pushed.Top().Kind)

	popped, err := pushed.Pop(FrameMacro, "W")
	require.NoError(t, err)
	assert.Len(t, popped, 1)

	_, err = pushed.Pop(FrameMacro, "OTHER")
	assert.Error(t, err)
}

func TestRangeFileSpanCollapsesInsideMacro(t *testing.T) {
	base := Stack{{Kind: FrameFile, Name: "top.v", Byte: 40, Line: 3, Column: 5}}
	inMacro := base.PushMacro("W")
	r := Range{Start: inMacro, End: inMacro.Advance("wire x")}
	file, start, end, ok := r.FileSpan()
	require.True(t, ok)
	assert.Equal(t, "top.v", file)
	// The file-frame byte never moved while inside the macro frame.
	assert.Equal(t, 40, start)
	assert.Equal(t, 40, end)
}

func TestRangeFileSpanDirectInFile(t *testing.T) {
	s := Stack{{Kind: FrameFile, Name: "top.v", Byte: 10, Line: 1, Column: 11}}
	r := Span(s, "wire")
	file, start, end, ok := r.FileSpan()
	require.True(t, ok)
	assert.Equal(t, "top.v", file)
	assert.Equal(t, 10, start)
	assert.Equal(t, 14, end)
}

func TestStackResync(t *testing.T) {
	s := Stack{{Kind: FrameFile, Name: "top.v", Byte: 0, Line: 1, Column: 1}}
	r := s.Resync(9, 120)
	assert.Equal(t, 9, r.Top().Line)
	assert.Equal(t, 120, r.Top().Byte)
}

func TestSourceMapRoundTrip(t *testing.T) {
	m := NewSourceMap("annotated.v")
	m.Add(Segment{GenLine: 1, GenColumn: 0, SourceFile: "top.v", SrcLine: 1, SrcColumn: 1})
	m.Add(Segment{GenLine: 4, GenColumn: 2, SourceFile: "inc.v", SrcLine: 1, SrcColumn: 1})

	data, err := m.Encode()
	require.NoError(t, err)

	c, err := ParseConsumer(data)
	require.NoError(t, err)

	file, line, col, ok := c.Source(4, 2)
	require.True(t, ok)
	assert.Equal(t, "inc.v", file)
	assert.Equal(t, 1, line)
	assert.Equal(t, 1, col)
}

func TestStackString(t *testing.T) {
	s := Stack{{Kind: FrameFile, Name: "top.v", Line: 3, Column: 5}}
	assert.Equal(t, "top.v:3:5", s.String())

	withMacro := s.PushMacro("W")
	assert.Equal(t, "top.v:3:5 in macro W", withMacro.String())
}
