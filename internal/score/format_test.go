package score

import "testing"

func TestFormat(t *testing.T) {
	cases := []struct {
		expr Expr
		want string
	}{
		{n("c4", 500), "c4:500"},
		{Rest{Dur: 125}, "r:125"},
		{Seq{Left: n("a1", 100), Right: Seq{Left: n("b2", 200), Right: n("c3", 400)}}, "(a1:100 b2:200 c3:400)"},
		{Par{Left: n("d1", 125), Right: n("g2", 250)}, "[d1:125 g2:250]"},
		{Seq{Left: Seq{Left: n("a1", 1), Right: n("b1", 1)}, Right: n("c1", 1)}, "((a1:1 b1:1) c1:1)"},
		{Repeat{Count: 33, Section: Seq{Left: n("d1", 125), Right: n("g2", 250)}}, "33*(d1:125 g2:250)"},
		{Par{Left: Repeat{Count: 2, Section: Rest{Dur: 5}}, Right: Seq{Left: n("e6", 1), Right: n("f6", 1)}}, "[2*r:5 (e6:1 f6:1)]"},
	}
	for _, tc := range cases {
		if got := Format(tc.expr); got != tc.want {
			t.Fatalf("Format = %q, want %q", got, tc.want)
		}
	}
}
