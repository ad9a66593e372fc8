package lexer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/madappgang/metav/internal/metaverr"
	"github.com/madappgang/metav/internal/position"
)

// MetavBlock is one embedded `/*metav ... */` script captured while
// lexing, tagged with the module it appeared in and the exact position it
// should be re-inserted at if left untouched.
type MetavBlock struct {
	Source string
	Module string
	Range  position.Range
}

// Lexer scans the preprocessor's anchor-annotated stream (spec.md §4.1/4.2)
// into a Token stream, threading a position.Stack the way lex.py's
// pos_stack closure does, one anchor at a time.
type Lexer struct {
	src   string
	i     int
	stack position.Stack

	genLine, genCol int // position within the raw annotated stream, unaffected by `pos resyncs

	toks []Token // the token stream being built; indexed, never pointed into,
	// since append can reallocate its backing array mid-scan

	prevDeclIdx int // index into toks of the most recent declaration token
	// awaiting comment attach, or -1 if none
	markDecl   bool // set by matchIdent: the ID about to be appended should become prevDeclIdx
	blockPend  string
	curModule  string
	prevWasMod bool

	Metav []MetavBlock
}

// New creates a lexer over an annotated stream produced by
// internal/preprocessor, which always opens with a `file(rootFile) anchor
// before any other content; that anchor establishes the bottom frame of
// the stack via matchAnchor, so New starts from an empty stack rather than
// pre-seeding one — pre-seeding would leave a second, permanently
// unadvanced file frame underneath the one the anchor pushes, and
// Range.FileSpan always resolves against the bottom frame.
func New(src, rootFile string) *Lexer {
	return &Lexer{
		src:         src,
		genLine:     1,
		genCol:      1,
		prevDeclIdx: -1,
	}
}

func (l *Lexer) advance(n int) {
	lexeme := l.src[l.i : l.i+n]
	l.stack = l.stack.Advance(lexeme)
	if nl := strings.Count(lexeme, "\n"); nl == 0 {
		l.genCol += len(lexeme)
	} else {
		l.genLine += nl
		l.genCol = len(lexeme) - strings.LastIndexByte(lexeme, '\n')
	}
	l.i += n
}

func (l *Lexer) peekRest() string { return l.src[l.i:] }

// Tokenize scans the whole input and returns the token stream. Anchors,
// whitespace, line/block comments (other than metav blocks, which are
// captured into Metav) produce no token but still advance position.
func (l *Lexer) Tokenize() ([]Token, error) {
	for l.i < len(l.src) {
		rest := l.peekRest()

		if tok, ok, err := l.matchAnchor(rest); err != nil {
			return nil, err
		} else if ok {
			if tok != nil {
				l.toks = append(l.toks, *tok)
			}
			continue
		}
		if consumed := l.matchWhitespace(rest); consumed {
			continue
		}
		if consumed, err := l.matchMetav(rest); err != nil {
			return nil, err
		} else if consumed {
			continue
		}
		if l.matchMetavGenerated(rest) {
			continue
		}
		if l.matchLineComment(rest) {
			continue
		}
		if l.matchBlockComment(rest) {
			continue
		}
		if tok, ok := l.matchString(rest); ok {
			l.toks = append(l.toks, tok)
			continue
		}
		if tok, ok := l.matchNumber(rest); ok {
			l.toks = append(l.toks, tok)
			continue
		}
		if tok, ok := l.matchIdent(rest); ok {
			l.toks = append(l.toks, tok)
			if l.markDecl {
				l.prevDeclIdx = len(l.toks) - 1
				l.markDecl = false
			}
			continue
		}
		if tok, ok := l.matchSymbol(rest); ok {
			l.toks = append(l.toks, tok)
			continue
		}
		return nil, metaverr.New(metaverr.KindLexError, l.stack, "unexpected character %q", rest[:1])
	}
	l.toks = append(l.toks, Token{Type: EOF, Range: position.Range{Start: l.stack, End: l.stack}})
	return l.toks, nil
}

// matchAnchor recognizes the `file(name)/`endfile(name)/`macro(name)/
// `endmacro(name)/`pos(line,byte) markers the preprocessor emits, and
// updates the frame stack exactly as lex.py's t_ANCHOR does.
func (l *Lexer) matchAnchor(rest string) (*Token, bool, error) {
	if !strings.HasPrefix(rest, "`") {
		return nil, false, nil
	}
	close := strings.IndexByte(rest, ')')
	open := strings.IndexByte(rest, '(')
	if open < 0 || close < 0 || close < open {
		return nil, false, nil
	}
	kind := rest[1:open]
	value := rest[open+1 : close]
	full := rest[:close+1]
	switch kind {
	case "pos":
		parts := strings.SplitN(value, ",", 2)
		if len(parts) != 2 {
			return nil, false, metaverr.New(metaverr.KindLexError, l.stack, "malformed `pos anchor %q", full)
		}
		line, err1 := strconv.Atoi(parts[0])
		byteOff, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			return nil, false, metaverr.New(metaverr.KindLexError, l.stack, "malformed `pos anchor %q", full)
		}
		l.stack = l.stack.Resync(line, byteOff)
	case "file":
		l.stack = l.stack.PushFile(value)
	case "endfile":
		top := l.stack.Top()
		if top.Kind != position.FrameFile || top.Name != value {
			return nil, false, metaverr.New(metaverr.KindLexError, l.stack, "`endfile(%s) does not match open file %s", value, top.Name)
		}
		popped, err := l.stack.Pop(position.FrameFile, value)
		if err != nil {
			return nil, false, metaverr.New(metaverr.KindLexError, l.stack, "%v", err)
		}
		l.stack = popped
	case "macro":
		l.stack = l.stack.PushMacro(value)
	case "endmacro":
		popped, err := l.stack.Pop(position.FrameMacro, value)
		if err != nil {
			return nil, false, metaverr.New(metaverr.KindLexError, l.stack, "%v", err)
		}
		l.stack = popped
	default:
		return nil, false, metaverr.New(metaverr.KindLexError, l.stack, "unknown anchor `%s(...)", kind)
	}
	l.i += len(full)
	return nil, true, nil
}

func (l *Lexer) matchWhitespace(rest string) bool {
	n := 0
	for n < len(rest) && (rest[n] == ' ' || rest[n] == '\t' || rest[n] == '\r') {
		n++
	}
	if n == 0 {
		if len(rest) > 0 && rest[0] == '\n' {
			nl := 0
			for nl < len(rest) && rest[nl] == '\n' {
				nl++
			}
			l.advance(nl)
			l.prevDeclIdx = -1
			return true
		}
		return false
	}
	l.advance(n)
	return true
}

// matchMetav recognizes `/*metav ... */` script blocks, strips the common
// leading whitespace from every line the way lex.py's t_METAV does, and
// records them against the most recently seen module name.
func (l *Lexer) matchMetav(rest string) (bool, error) {
	if !strings.HasPrefix(rest, "/*") {
		return false, nil
	}
	after := rest[2:]
	trimmed := strings.TrimLeft(after, " \t")
	if !strings.HasPrefix(trimmed, "metav") {
		return false, nil
	}
	body := trimmed[len("metav"):]
	// Require a word boundary after "metav" so "/*metav_generated:*/"
	// (handled by matchMetavGenerated) is never mistaken for a script block.
	if len(body) > 0 && isIdentPart(body[0]) {
		return false, nil
	}
	for len(body) > 0 && (body[0] == ' ' || body[0] == '\t' || body[0] == '*') {
		body = body[1:]
	}
	nl := strings.IndexByte(body, '\n')
	if nl < 0 {
		return false, fmt.Errorf("unterminated metav block")
	}
	body = body[nl+1:]
	end := strings.Index(body, "*/")
	if end < 0 {
		return false, fmt.Errorf("unterminated metav block")
	}
	code := body[:end]
	full := rest[:len(rest)-len(body)+end+2]

	start := l.stack
	code = dedent(code)
	l.advance(len(full))
	r := position.Range{Start: start, End: l.stack}
	l.Metav = append(l.Metav, MetavBlock{Source: code, Module: l.curModule, Range: r})
	return true, nil
}

func dedent(code string) string {
	lines := strings.Split(code, "\n")
	prefix := ""
	for _, ln := range lines {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		i := 0
		for i < len(ln) && (ln[i] == ' ' || ln[i] == '\t') {
			i++
		}
		if prefix == "" || i < len(prefix) {
			prefix = ln[:i]
		}
	}
	for i, ln := range lines {
		lines[i] = strings.TrimPrefix(ln, prefix)
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// matchMetavGenerated skips over a previously generated-text sentinel the
// preprocessor has already scheduled for deletion; the lexer does not need
// to act on it, only avoid tripping over it as a plain block comment.
func (l *Lexer) matchMetavGenerated(rest string) bool {
	const open = "/*metav_generated:*/"
	const closeTag = "/*:metav_generated*/"
	if !strings.HasPrefix(rest, open) {
		return false
	}
	end := strings.Index(rest, closeTag)
	if end < 0 {
		return false
	}
	l.advance(end + len(closeTag))
	return true
}

func (l *Lexer) matchLineComment(rest string) bool {
	if !strings.HasPrefix(rest, "//") {
		return false
	}
	end := strings.IndexByte(rest, '\n')
	if end < 0 {
		end = len(rest)
	}
	text := rest[:end]
	l.annotateComment(text, true)
	l.advance(end)
	return true
}

func (l *Lexer) matchBlockComment(rest string) bool {
	if !strings.HasPrefix(rest, "/*") {
		return false
	}
	end := strings.Index(rest[2:], "*/")
	if end < 0 {
		return false
	}
	full := rest[:end+4]
	l.annotateComment(full, strings.Count(full, "\n") == 0)
	l.advance(len(full))
	return true
}

func (l *Lexer) annotateComment(text string, sameLine bool) {
	if l.prevDeclIdx != -1 && sameLine {
		l.toks[l.prevDeclIdx].LineComment = text
		l.prevDeclIdx = -1
		return
	}
	l.blockPend = text
	l.prevDeclIdx = -1
}

func (l *Lexer) matchString(rest string) (Token, bool) {
	if rest[0] != '"' {
		return Token{}, false
	}
	i := 1
	for i < len(rest) {
		if rest[i] == '\\' && i+1 < len(rest) {
			i += 2
			continue
		}
		if rest[i] == '"' {
			i++
			break
		}
		i++
	}
	start := l.stack
	gl, gc := l.genLine, l.genCol
	l.advance(i)
	return l.finishToken(Token{Type: STRING, Value: rest[:i], Range: position.Range{Start: start, End: l.stack}, GenLine: gl, GenCol: gc}), true
}

func (l *Lexer) matchNumber(rest string) (Token, bool) {
	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	if i == 0 {
		return Token{}, false
	}
	if i < len(rest) && rest[i] == '\'' {
		j := i + 1
		if j < len(rest) && (rest[j] == 'b' || rest[j] == 'B' || rest[j] == 'h' || rest[j] == 'H' || rest[j] == 'd' || rest[j] == 'D') {
			j++
			for j < len(rest) && isNumberBodyChar(rest[j]) {
				j++
			}
			i = j
		}
	}
	start := l.stack
	gl, gc := l.genLine, l.genCol
	l.advance(i)
	return l.finishToken(Token{Type: NUMBER, Value: rest[:i], Range: position.Range{Start: start, End: l.stack}, GenLine: gl, GenCol: gc}), true
}

func isNumberBodyChar(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		return true
	case c == '_', c == 'x', c == 'X', c == 'z', c == 'Z', c == '?':
		return true
	}
	return false
}

func (l *Lexer) matchIdent(rest string) (Token, bool) {
	i := 0
	if rest[0] == '\\' {
		i = 1
		for i < len(rest) && rest[i] != ' ' && rest[i] != '\t' && rest[i] != '\n' {
			i++
		}
		start := l.stack
		gl, gc := l.genLine, l.genCol
		name := rest[1:i]
		l.advance(i)
		return l.finishToken(Token{Type: ID, Value: name, Range: position.Range{Start: start, End: l.stack}, GenLine: gl, GenCol: gc}), true
	}
	if !isIdentStart(rest[0]) {
		return Token{}, false
	}
	i = 1
	for i < len(rest) && isIdentPart(rest[i]) {
		i++
	}
	start := l.stack
	gl, gc := l.genLine, l.genCol
	word := rest[:i]
	l.advance(i)
	typ := ID
	if kw, ok := keywordMap[word]; ok {
		typ = kw
	}
	tok := l.finishToken(Token{Type: typ, Value: word, Range: position.Range{Start: start, End: l.stack}, GenLine: gl, GenCol: gc})
	if typ == ID {
		if l.prevDeclIdx == -1 {
			l.markDecl = true
		}
		tok.BlockComment = l.blockPend
		l.blockPend = ""
	}
	if l.prevWasMod {
		l.curModule = word
	}
	l.prevWasMod = typ == MODULE
	if typ == ENDMODULE {
		l.curModule = ""
	}
	return tok, true
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '$'
}

func (l *Lexer) matchSymbol(rest string) (Token, bool) {
	for _, sym := range symbolTable {
		if strings.HasPrefix(rest, sym.text) {
			start := l.stack
			gl, gc := l.genLine, l.genCol
			l.advance(len(sym.text))
			return l.finishToken(Token{Type: sym.typ, Value: sym.text, Range: position.Range{Start: start, End: l.stack}, GenLine: gl, GenCol: gc}), true
		}
	}
	return Token{}, false
}

func (l *Lexer) finishToken(t Token) Token {
	t.Module = l.curModule
	return t
}
