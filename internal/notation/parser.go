// Package notation parses the text form of a score into a score.Expr tree.
//
// A piece is an optional block of settings followed by whitespace separated
// elements:
//
//	@octave = 4
//	@tempo = 60
//	c4/4 c 2*g [e g] (r:250 d/8) 3*(a b)
//
// Notes are a letter a-g, an optional # or b, an optional octave digit and an
// optional length, either ":ms" or "/n" for an n-th note at the current tempo.
// Parentheses group elements in sequence, brackets play them together and
// "n*" repeats the following element n times.
package notation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cbegin/musgo/internal/score"
)

type Config struct {
	DefaultOctave int
	DefaultTempo  int
	// DefaultDuration is the length in ms of a note written without one.
	// Zero means a quarter note at the current tempo.
	DefaultDuration int
}

func DefaultConfig() Config {
	return Config{
		DefaultOctave: 4,
		DefaultTempo:  120,
	}
}

type Parser struct{ cfg Config }

func NewParser(cfg Config) *Parser { return &Parser{cfg: cfg} }

// Parse parses a complete piece.
func Parse(src string) (score.Expr, error) {
	return NewParser(DefaultConfig()).Parse(src)
}

func (p *Parser) Parse(src string) (score.Expr, error) {
	if p.cfg.DefaultOctave < 0 || p.cfg.DefaultOctave > 9 {
		return nil, fmt.Errorf("default octave %d out of range 0-9", p.cfg.DefaultOctave)
	}
	if p.cfg.DefaultTempo <= 0 || p.cfg.DefaultTempo > maxTempo {
		return nil, fmt.Errorf("default tempo %d out of range", p.cfg.DefaultTempo)
	}
	if p.cfg.DefaultDuration < 0 {
		return nil, fmt.Errorf("default duration must not be negative, got %d", p.cfg.DefaultDuration)
	}
	st := &parseState{
		raw:      src,
		src:      stripComments(src),
		octave:   p.cfg.DefaultOctave,
		tempo:    p.cfg.DefaultTempo,
		duration: p.cfg.DefaultDuration,
	}
	if err := st.parseSettings(); err != nil {
		return nil, err
	}
	items, err := st.parseElements(0)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, st.errorf(st.pos, "score has no notes or rests")
	}
	return foldSeq(items), nil
}

type parseState struct {
	raw      string
	src      string
	pos      int
	octave   int
	tempo    int
	duration int
}

func (st *parseState) parseSettings() error {
	for {
		st.skipSpace()
		if st.pos >= len(st.src) || st.src[st.pos] != '@' {
			return nil
		}
		at := st.pos
		name, next := parseWordToken(st.src, st.pos+1)
		if name == "" {
			return st.errorf(at, "expected setting name after @")
		}
		st.pos = next
		st.skipSpace()
		if st.pos >= len(st.src) || st.src[st.pos] != '=' {
			return st.errorf(st.pos, "expected = after @%s", name)
		}
		st.pos++
		st.skipSpace()
		val, next, err := parseNumberRequired(st.src, st.pos)
		if err != nil {
			return st.errorf(st.pos, "@%s: %v", name, err)
		}
		switch strings.ToLower(name) {
		case "octave":
			if val > 9 {
				return st.errorf(st.pos, "octave %d out of range 0-9", val)
			}
			st.octave = val
		case "tempo":
			if val == 0 {
				return st.errorf(st.pos, "tempo must be positive")
			}
			if val > maxTempo {
				return st.errorf(st.pos, "tempo %d too large", val)
			}
			st.tempo = val
		case "duration":
			st.duration = val
		default:
			return st.errorf(at, "unknown setting @%s", name)
		}
		st.pos = next
	}
}

// parseElements reads elements up to the closing byte, or to the end of
// input when closer is 0.
func (st *parseState) parseElements(closer byte) ([]score.Expr, error) {
	open := st.pos - 1
	var items []score.Expr
	for {
		st.skipSpace()
		if st.pos >= len(st.src) {
			if closer != 0 {
				return nil, st.errorf(open, "unclosed %q", st.src[open])
			}
			return items, nil
		}
		ch := st.src[st.pos]
		if closer != 0 && ch == closer {
			st.pos++
			return items, nil
		}
		switch ch {
		case ')', ']':
			return nil, st.errorf(st.pos, "unexpected %q", ch)
		case '@':
			return nil, st.errorf(st.pos, "settings must come before the first note")
		}
		item, err := st.parseElement()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
}

func (st *parseState) parseElement() (score.Expr, error) {
	if isDigit(st.src[st.pos]) {
		at := st.pos
		count, next, err := parseNumberRequired(st.src, st.pos)
		if err != nil {
			return nil, st.errorf(at, "repeat count: %v", err)
		}
		st.pos = next
		st.skipSpace()
		if st.pos >= len(st.src) || st.src[st.pos] != '*' {
			return nil, st.errorf(st.pos, "expected * after repeat count %d", count)
		}
		st.pos++
		st.skipSpace()
		if st.pos >= len(st.src) {
			return nil, st.errorf(st.pos, "expected element after %d*", count)
		}
		section, err := st.parseElement()
		if err != nil {
			return nil, err
		}
		return score.Repeat{Count: count, Section: section}, nil
	}
	return st.parseAtom()
}

func (st *parseState) parseAtom() (score.Expr, error) {
	at := st.pos
	ch := st.src[st.pos]
	switch {
	case ch == '(' || ch == '[':
		closer := byte(')')
		if ch == '[' {
			closer = ']'
		}
		st.pos++
		items, err := st.parseElements(closer)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, st.errorf(at, "empty group")
		}
		if ch == '[' {
			return foldPar(items), nil
		}
		return foldSeq(items), nil
	case lower(ch) == 'r':
		dur, next, err := st.parseLength(st.pos + 1)
		if err != nil {
			return nil, err
		}
		st.pos = next
		if err := st.expectBoundary(); err != nil {
			return nil, err
		}
		return score.Rest{Dur: dur}, nil
	case isNote(ch):
		return st.parseNote()
	default:
		return nil, st.errorf(at, "unexpected %q", ch)
	}
}

func (st *parseState) parseNote() (score.Expr, error) {
	i := st.pos
	var pitch strings.Builder
	pitch.WriteByte(st.src[i])
	i++
	if i < len(st.src) && (st.src[i] == '#' || st.src[i] == 'b') {
		pitch.WriteByte(st.src[i])
		i++
	}
	if i < len(st.src) && isDigit(st.src[i]) {
		pitch.WriteByte(st.src[i])
		i++
	} else {
		pitch.WriteString(strconv.Itoa(st.octave))
	}
	dur, next, err := st.parseLength(i)
	if err != nil {
		return nil, err
	}
	st.pos = next
	if err := st.expectBoundary(); err != nil {
		return nil, err
	}
	return score.Note{Pitch: pitch.String(), Dur: dur}, nil
}

// parseLength reads an optional ":ms" or "/n" suffix.
func (st *parseState) parseLength(at int) (int, int, error) {
	if at >= len(st.src) || (st.src[at] != ':' && st.src[at] != '/') {
		return st.defaultLength(), at, nil
	}
	val, next, err := parseNumberRequired(st.src, at+1)
	if err != nil {
		return 0, at, st.errorf(at+1, "length: %v", err)
	}
	if st.src[at] == ':' {
		return val, next, nil
	}
	if val == 0 {
		return 0, at, st.errorf(at+1, "note value must be positive")
	}
	ms, ok := noteValueMillis(st.tempo, val)
	if !ok {
		return 0, at, st.errorf(at+1, "note value 1/%d too short at tempo %d", val, st.tempo)
	}
	return ms, next, nil
}

func (st *parseState) defaultLength() int {
	if st.duration > 0 {
		return st.duration
	}
	ms, _ := noteValueMillis(st.tempo, 4)
	return ms
}

// maxDivisor bounds tempo*n so the rounding below cannot overflow. Any
// divisor near it already rounds to 0 ms.
const (
	maxDivisor = math.MaxInt / 2
	maxTempo   = maxDivisor / 4
)

// noteValueMillis is the length of an n-th note at tempo quarter notes per
// minute, rounded to the nearest millisecond. It reports false when tempo*n
// is out of range. tempo must be positive.
func noteValueMillis(tempo, n int) (int, bool) {
	if n > maxDivisor/tempo {
		return 0, false
	}
	div := tempo * n
	return (240000 + div/2) / div, true
}

func (st *parseState) expectBoundary() error {
	if st.pos >= len(st.src) {
		return nil
	}
	switch ch := st.src[st.pos]; {
	case isSpace(ch), ch == '(', ch == ')', ch == '[', ch == ']':
		return nil
	default:
		return st.errorf(st.pos, "unexpected %q after note", ch)
	}
}

func (st *parseState) skipSpace() {
	for st.pos < len(st.src) && isSpace(st.src[st.pos]) {
		st.pos++
	}
}

func foldSeq(items []score.Expr) score.Expr {
	e := items[len(items)-1]
	for i := len(items) - 2; i >= 0; i-- {
		e = score.Seq{Left: items[i], Right: e}
	}
	return e
}

func foldPar(items []score.Expr) score.Expr {
	e := items[len(items)-1]
	for i := len(items) - 2; i >= 0; i-- {
		e = score.Par{Left: items[i], Right: e}
	}
	return e
}

// stripComments blanks out // line comments, keeping byte offsets intact so
// error positions still point into the original text.
func stripComments(src string) string {
	if !strings.Contains(src, "//") {
		return src
	}
	b := []byte(src)
	for i := 0; i+1 < len(b); i++ {
		if b[i] != '/' || b[i+1] != '/' {
			continue
		}
		for i < len(b) && b[i] != '\n' {
			b[i] = ' '
			i++
		}
	}
	return string(b)
}

func parseNumberRequired(s string, at int) (int, int, error) {
	i := at
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == at {
		return 0, at, fmt.Errorf("expected number")
	}
	n, err := strconv.Atoi(s[at:i])
	if err != nil {
		return 0, at, fmt.Errorf("number %s: %w", s[at:i], err)
	}
	return n, i, nil
}

func parseWordToken(src string, at int) (string, int) {
	i := at
	for i < len(src) && isAlpha(lower(src[i])) {
		i++
	}
	return src[at:i], i
}

func isAlpha(b byte) bool { return b >= 'a' && b <= 'z' }
func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isSpace(b byte) bool { return b == ' ' || b == '\n' || b == '\r' || b == '\t' }
func isNote(b byte) bool  { l := lower(b); return l >= 'a' && l <= 'g' }

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
