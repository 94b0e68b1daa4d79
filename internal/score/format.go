package score

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// Format renders e back into notation text with explicit millisecond
// durations. Nested groups are flattened the way the parser nests them, so
// Format output parses to an equivalent tree.
func Format(e Expr) string {
	var sb strings.Builder
	writeExpr(&sb, e)
	return sb.String()
}

func writeExpr(sb *strings.Builder, e Expr) {
	switch n := node(e).(type) {
	case Note:
		sb.WriteString(n.Pitch)
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(n.Dur))
	case Rest:
		sb.WriteString("r:")
		sb.WriteString(strconv.Itoa(n.Dur))
	case Seq:
		sb.WriteByte('(')
		writeChain(sb, n)
		sb.WriteByte(')')
	case Par:
		sb.WriteByte('[')
		writeChain(sb, n)
		sb.WriteByte(']')
	case Repeat:
		sb.WriteString(strconv.Itoa(n.Count))
		sb.WriteByte('*')
		writeExpr(sb, n.Section)
	default:
		sb.WriteString("<" + kindOf(e) + ">")
	}
}

// writeChain writes the right spine of a Seq or Par without re-opening a
// group for each nested node of the same kind.
func writeChain(sb *strings.Builder, e Expr) {
	for {
		var left, right Expr
		switch n := node(e).(type) {
		case Seq:
			left, right = n.Left, n.Right
		case Par:
			left, right = n.Left, n.Right
		}
		writeExpr(sb, left)
		sb.WriteByte(' ')
		if kindOf(right) != kindOf(e) {
			writeExpr(sb, right)
			return
		}
		e = right
	}
}

// SortByStart returns a copy of events ordered by start time. Events that
// start together keep their emission order.
func SortByStart(events []NoteEvent) []NoteEvent {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b NoteEvent) int {
		return cmp.Compare(a.Start, b.Start)
	})
	return sorted
}
