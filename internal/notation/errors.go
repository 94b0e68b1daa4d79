package notation

import (
	"fmt"
	"strings"

	"github.com/rivo/uniseg"
)

// SyntaxError reports where the text could not be parsed. Line and Col are
// 1-based; Col counts user-perceived characters.
type SyntaxError struct {
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
}

func (st *parseState) errorf(offset int, format string, args ...any) error {
	line, col := position(st.raw, offset)
	return &SyntaxError{Line: line, Col: col, Msg: fmt.Sprintf(format, args...)}
}

func position(src string, offset int) (int, int) {
	if offset > len(src) {
		offset = len(src)
	}
	if offset < 0 {
		offset = 0
	}
	prefix := src[:offset]
	line := strings.Count(prefix, "\n") + 1
	if nl := strings.LastIndexByte(prefix, '\n'); nl >= 0 {
		prefix = prefix[nl+1:]
	}
	return line, uniseg.GraphemeClusterCount(prefix) + 1
}
