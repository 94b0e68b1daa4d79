package score

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPitchName = errors.New("invalid pitch name")
	ErrUnknownNodeKind  = errors.New("unknown node kind")
	ErrNegativeDuration = errors.New("negative duration")
	ErrNegativeCount    = errors.New("negative repeat count")
	ErrPitchOutOfRange  = errors.New("pitch out of range")
	// ErrBackwardRepeat is only reachable with Config.LegacyZeroRepeat,
	// where a zero-count repeat can end its enclosing section early.
	ErrBackwardRepeat   = errors.New("repeat section ends before it starts")
)

// Error reports a structural problem found at a single node. Kind is one of
// the Err* sentinels above.
type Error struct {
	Kind  error
	Node  string
	Value string
}

func (e *Error) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Node, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Node, e.Kind, e.Value)
}

func (e *Error) Unwrap() error { return e.Kind }

func nodeError(kind error, node string, format string, args ...any) *Error {
	return &Error{Kind: kind, Node: node, Value: fmt.Sprintf(format, args...)}
}
