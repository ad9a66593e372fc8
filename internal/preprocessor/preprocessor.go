// Package preprocessor expands `include/`define/`ifdef directives and macro
// references into the anchor-annotated stream the lexer consumes, following
// the ordered-dispatch design of original_source/metav/preproc.py (spec.md
// §4.1). Every directive is resolved by trying an ordered list of regexes
// against the remaining input and running whichever one matches first,
// exactly like the Python reference's `regexs` tuple.
package preprocessor

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/madappgang/metav/internal/metaverr"
)

// Result is the output of preprocessing one top-level file: the annotated
// stream ready for the lexer, plus any edits the preprocessor itself
// scheduled (metav_delete sentinel cleanup, spec.md §4.1 idempotence).
type Result struct {
	Stream string
	Edits  []SentinelEdit
}

// SentinelEdit marks a pre-existing /*metav_delete:...*/ or
// /*metav_generated:*/.../*:metav_generated*/ span to be dropped outright by the rewrite
// executor on this run, rather than wrapped in a new sentinel.
type SentinelEdit struct {
	Filename   string
	StartByte  int
	EndByte    int
}

// State carries cross-file state through an include chain: the define
// table, nested-ifdef depth/polarity, and the include search path.
type State struct {
	Defines    map[string]string
	IfdefDepth int
	IfdefOK    bool
	IncludePath []string

	activeFiles map[string]bool // include-cycle guard (spec.md supplement)
}

// NewState returns a State ready for a fresh top-level preprocess run.
func NewState(includePath []string) *State {
	return &State{
		Defines:     map[string]string{},
		IfdefOK:     true,
		IncludePath: includePath,
		activeFiles: map[string]bool{},
	}
}

var (
	reLineComment   = regexp.MustCompile(`^//[^\n]*`)
	reDropOpen      = regexp.MustCompile(`^/\*metav_delete:`)
	reDropClose     = regexp.MustCompile(`^:metav_delete\*/`)
	reGeneratedDrop = regexp.MustCompile(`(?s)^/\*metav_generated:\*/.*?/\*:metav_generated\*/`)
	reBlockComment  = regexp.MustCompile(`(?s)^/\*.*?\*/`)
	reString        = regexp.MustCompile(`^"(\\"|[^"])*"`)
	reInclude       = regexp.MustCompile(`^` + "`" + `include\s+"([^"]+)"`)
	reIfdef         = regexp.MustCompile(`^` + "`" + `ifdef\s+(\S+)`)
	reIfndef        = regexp.MustCompile(`^` + "`" + `ifndef\s+(\S+)`)
	reElse          = regexp.MustCompile("^`else")
	reEndif         = regexp.MustCompile("^`endif")
	reDefine        = regexp.MustCompile("^`define\\s+([A-Za-z0-9_]+)[ \\t]*(.*?)(?:\n|//|/\\*|$)")
	reMacro         = regexp.MustCompile("^`([A-Za-z_0-9]+)")
	reRest          = regexp.MustCompile(`(?s)^(.|\n)([^/` + "`" + `":]|\n)*`)
)

// Preprocess expands filename (and transitively everything it `includes)
// into one annotated stream.
func Preprocess(filename string, st *State) (Result, error) {
	if st.activeFiles == nil {
		st.activeFiles = map[string]bool{}
	}
	abs, err := filepath.Abs(filename)
	if err != nil {
		abs = filename
	}
	if st.activeFiles[abs] {
		return Result{}, metaverr.New(metaverr.KindIncludeCycle, nil, "include cycle detected at %s", filename)
	}
	st.activeFiles[abs] = true
	defer delete(st.activeFiles, abs)

	content, err := os.ReadFile(filename)
	if err != nil {
		return Result{}, metaverr.Wrap(metaverr.KindIOError, nil, err, "reading %s", filename)
	}

	fs := &fileState{filename: filename}
	body, err := process(string(content), st, fs)
	if err != nil {
		return Result{}, err
	}

	stream := fmt.Sprintf("`file(%s)%s`endfile(%s)", filename, body, filename)
	return Result{Stream: stream, Edits: fs.edits}, nil
}

type fileState struct {
	filename string
	lineno   int
	char     int
	edits    []SentinelEdit
}

func process(cont string, st *State, fs *fileState) (string, error) {
	fs.lineno = 1
	var out strings.Builder
	skipped := 0

	for len(cont) > 0 {
		matched, gen, adv, err := dispatch(cont, st, fs)
		if err != nil {
			return "", err
		}
		if matched == "" {
			return "", metaverr.New(metaverr.KindLexError, nil, "preprocessor: no rule matched at %q", cont[:minInt(20, len(cont))])
		}
		if skipped != 0 && len(gen) > 0 {
			fmt.Fprintf(&out, "`pos(%d,%d)", fs.lineno, fs.char)
			skipped = 0
		}
		out.WriteString(gen)
		if len(gen) != len(matched) {
			skipped += len(matched) - len(gen)
		}
		fs.char += len(matched)
		fs.lineno += strings.Count(matched, "\n")
		cont = cont[adv:]
	}
	return out.String(), nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// dispatch tries each rule in priority order and runs the first match,
// mirroring preproc.py's regexs tuple walk.
func dispatch(cont string, st *State, fs *fileState) (matched, gen string, advance int, err error) {
	if m := reLineComment.FindString(cont); m != "" {
		return passthrough(m, st)
	}
	if m := reDropOpen.FindString(cont); m != "" {
		fs.recordDrop(len(m))
		return m, "", len(m), nil
	}
	if m := reDropClose.FindString(cont); m != "" {
		fs.recordDrop(len(m))
		return m, "", len(m), nil
	}
	if m := reGeneratedDrop.FindString(cont); m != "" {
		fs.recordDrop(len(m))
		return m, "", len(m), nil
	}
	if m := reBlockComment.FindString(cont); m != "" {
		return passthrough(m, st)
	}
	if m := reString.FindString(cont); m != "" {
		return passthrough(m, st)
	}
	if loc := reInclude.FindStringSubmatchIndex(cont); loc != nil {
		m := cont[loc[0]:loc[1]]
		if !st.IfdefOK {
			return m, "", len(m), nil
		}
		name := cont[loc[2]:loc[3]]
		gen, err := includeFile(name, st, fs)
		return m, gen, len(m), err
	}
	if loc := reIfdef.FindStringSubmatchIndex(cont); loc != nil {
		m := cont[loc[0]:loc[1]]
		name := cont[loc[2]:loc[3]]
		if _, ok := st.Defines[name]; !ok {
			st.IfdefOK = false
		}
		st.IfdefDepth++
		return m, "", len(m), nil
	}
	if loc := reIfndef.FindStringSubmatchIndex(cont); loc != nil {
		m := cont[loc[0]:loc[1]]
		name := cont[loc[2]:loc[3]]
		if _, ok := st.Defines[name]; ok {
			st.IfdefOK = false
		}
		st.IfdefDepth++
		return m, "", len(m), nil
	}
	if m := reElse.FindString(cont); m != "" {
		st.IfdefOK = !st.IfdefOK
		if st.IfdefDepth <= 0 {
			return "", "", 0, metaverr.New(metaverr.KindUnbalancedIfdef, nil, "spurious `else")
		}
		return m, "", len(m), nil
	}
	if m := reEndif.FindString(cont); m != "" {
		st.IfdefOK = true
		st.IfdefDepth--
		if st.IfdefDepth < 0 {
			return "", "", 0, metaverr.New(metaverr.KindUnbalancedIfdef, nil, "spurious `endif")
		}
		return m, "", len(m), nil
	}
	if loc := reDefine.FindStringSubmatchIndex(cont); loc != nil {
		m := cont[loc[0]:loc[1]]
		if !st.IfdefOK {
			return m, "", len(m), nil
		}
		name := cont[loc[2]:loc[3]]
		value := cont[loc[4]:loc[5]]
		if _, exists := st.Defines[name]; exists {
			return "", "", 0, metaverr.New(metaverr.KindDuplicateDefine, nil, "`%s already defined", name)
		}
		st.Defines[name] = value
		return m, "", len(m), nil
	}
	if loc := reMacro.FindStringSubmatchIndex(cont); loc != nil {
		m := cont[loc[0]:loc[1]]
		if !st.IfdefOK {
			return m, "", len(m), nil
		}
		name := cont[loc[2]:loc[3]]
		body, ok := st.Defines[name]
		if !ok {
			return m, "", len(m), nil
		}
		macroFS := &fileState{filename: fs.filename + "%" + name}
		expanded, err := process(body, st, macroFS)
		if err != nil {
			return "", "", 0, err
		}
		fs.edits = append(fs.edits, macroFS.edits...)
		gen := fmt.Sprintf("`macro(%s)%s`endmacro(%s)", name, expanded, name)
		return m, gen, len(m), nil
	}
	if m := reRest.FindString(cont); m != "" {
		return passthrough(m, st)
	}
	return "", "", 0, nil
}

func passthrough(m string, st *State) (string, string, int, error) {
	if st.IfdefOK {
		return m, m, len(m), nil
	}
	return m, "", len(m), nil
}

func (fs *fileState) recordDrop(size int) {
	fs.edits = append(fs.edits, SentinelEdit{
		Filename:  fs.filename,
		StartByte: fs.char,
		EndByte:   fs.char + size,
	})
}

func includeFile(name string, st *State, fs *fileState) (string, error) {
	for _, dir := range st.IncludePath {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			res, err := Preprocess(p, st)
			if err != nil {
				return "", err
			}
			fs.edits = append(fs.edits, res.Edits...)
			return res.Stream, nil
		}
	}
	return "", metaverr.New(metaverr.KindIncludeNotFound, nil, "could not find %q in include path", name)
}
