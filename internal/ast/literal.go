package ast

import (
	"strconv"
	"strings"

	"github.com/madappgang/metav/internal/metaverr"
	"github.com/madappgang/metav/internal/position"
)

// NumberFromText decodes a Verilog numeric literal's spelling into a Number
// node, following the four forms original_source/metav/literal.py
// recognizes: unsized decimal, sized binary ('b), sized hex ('h), sized
// decimal ('d). orig is preserved verbatim so an untouched literal
// round-trips byte-exactly regardless of how it's re-serialized.
func NumberFromText(rng position.Range, text string) (*Number, error) {
	quote := strings.IndexByte(text, '\'')
	if quote < 0 {
		v, err := strconv.ParseUint(text, 10, 64)
		if err != nil {
			return nil, metaverr.New(metaverr.KindLexError, rng.Start, "invalid unsized number %q", text)
		}
		return NewNumber(rng, 32, v, 0, 0, true, text), nil
	}

	sizeStr := text[:quote]
	size := 32
	if sizeStr != "" {
		n, err := strconv.Atoi(sizeStr)
		if err != nil || n <= 0 {
			return nil, metaverr.New(metaverr.KindLexError, rng.Start, "invalid number size in %q", text)
		}
		size = n
	}
	rest := text[quote+1:]
	if len(rest) == 0 {
		return nil, metaverr.New(metaverr.KindLexError, rng.Start, "malformed number %q", text)
	}
	base := rest[0]
	digits := strings.ToLower(strings.ReplaceAll(rest[1:], "_", ""))
	digits = strings.ReplaceAll(digits, "?", "z")

	switch base {
	case 'b', 'B':
		value := parseMasked(digits, 2)
		xmask := maskOf(digits, 'x', 2)
		zmask := maskOf(digits, 'z', 2)
		return NewNumber(rng, size, value, xmask, zmask, false, text), nil
	case 'h', 'H':
		value := parseMasked(digits, 16)
		xmask := maskOf(digits, 'x', 16)
		zmask := maskOf(digits, 'z', 16)
		return NewNumber(rng, size, value, xmask, zmask, false, text), nil
	case 'd', 'D':
		v, err := strconv.ParseUint(digits, 10, 64)
		if err != nil {
			return nil, metaverr.New(metaverr.KindLexError, rng.Start, "invalid decimal number %q", text)
		}
		return NewNumber(rng, size, v, 0, 0, false, text), nil
	}
	return nil, metaverr.New(metaverr.KindLexError, rng.Start, "unknown number base in %q", text)
}

// parseMasked parses digits in the given base treating x/z as 0, matching
// VerilogNumber's value computation.
func parseMasked(digits string, base int) uint64 {
	cleared := strings.Map(func(r rune) rune {
		if r == 'x' || r == 'z' {
			return '0'
		}
		return r
	}, digits)
	v, _ := strconv.ParseUint(cleared, base, 64)
	return v
}

// maskOf builds the x-mask or z-mask for a base-N digit string the same
// way VerilogNumber does: per-digit substitution followed by reparsing the
// whole string in that base.
func maskOf(digits string, which byte, base int) uint64 {
	out := strings.Map(func(r rune) rune {
		if byte(r) == which {
			if base == 2 {
				return '1'
			}
			return 'f'
		}
		return '0'
	}, digits)
	v, _ := strconv.ParseUint(out, base, 64)
	return v
}

// StringFromText decodes a quoted Verilog string literal's spelling
// (including the surrounding quotes) into a StringLit node.
func StringFromText(rng position.Range, text string) (*StringLit, error) {
	if len(text) < 2 || text[0] != '"' || text[len(text)-1] != '"' {
		return nil, metaverr.New(metaverr.KindLexError, rng.Start, "malformed string literal %q", text)
	}
	inner := text[1 : len(text)-1]
	value := strings.NewReplacer(`\"`, `"`, `\\`, `\`, `\n`, "\n", `\t`, "\t").Replace(inner)
	return NewStringLit(rng, value, text), nil
}
