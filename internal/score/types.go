// Package score compiles notation expression trees into flat, time-stamped
// note events.
package score

import "fmt"

// Expr is a node of a parsed expression tree. Trees are immutable and are
// never retained by the compiler.
type Expr interface {
	exprNode()
}

type Note struct {
	Pitch string
	Dur   int
}

type Rest struct {
	Dur int
}

// Par plays Left and Right at the same time.
type Par struct {
	Left  Expr
	Right Expr
}

// Seq plays Right as soon as Left has finished.
type Seq struct {
	Left  Expr
	Right Expr
}

type Repeat struct {
	Count   int
	Section Expr
}

func (Note) exprNode()   {}
func (Rest) exprNode()   {}
func (Par) exprNode()    {}
func (Seq) exprNode()    {}
func (Repeat) exprNode() {}

// NoteEvent is one compiled note. Start is an absolute offset from the start
// of the score in the same unit as the input durations.
type NoteEvent struct {
	Pitch int `json:"pitch"`
	Start int `json:"start"`
	Dur   int `json:"dur"`
}

type Config struct {
	// CheckPitchRange rejects notes whose numeric pitch falls outside 0..127.
	CheckPitchRange bool
	// LegacyZeroRepeat makes a zero-count Repeat end at absolute time 0
	// instead of at its start time.
	LegacyZeroRepeat bool
}

func DefaultConfig() Config {
	return Config{}
}

// node normalizes pointer variants to values so callers may build trees
// either way. A nil pointer becomes a nil Expr.
func node(e Expr) Expr {
	switch n := e.(type) {
	case *Note:
		if n != nil {
			return *n
		}
	case *Rest:
		if n != nil {
			return *n
		}
	case *Par:
		if n != nil {
			return *n
		}
	case *Seq:
		if n != nil {
			return *n
		}
	case *Repeat:
		if n != nil {
			return *n
		}
	default:
		return e
	}
	return nil
}

func kindOf(e Expr) string {
	switch node(e).(type) {
	case Note:
		return "note"
	case Rest:
		return "rest"
	case Par:
		return "par"
	case Seq:
		return "seq"
	case Repeat:
		return "repeat"
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%T", e)
	}
}
