package score

// Compiler turns expression trees into note events. The zero value behaves
// like DefaultConfig.
type Compiler struct {
	cfg Config
}

func NewCompiler(cfg Config) *Compiler { return &Compiler{cfg: cfg} }

// Compile compiles e with DefaultConfig.
func Compile(e Expr) ([]NoteEvent, error) {
	return NewCompiler(DefaultConfig()).Compile(e)
}

// EndTime returns the absolute time at which e finishes when it starts at
// time, using DefaultConfig.
func EndTime(time int, e Expr) (int, error) {
	return NewCompiler(DefaultConfig()).EndTime(time, e)
}

// Length is the total playing time of e.
func Length(e Expr) (int, error) {
	return EndTime(0, e)
}

// Compile emits one event per note reachable in e, in tree traversal order.
// Events are not sorted by start time. On error no events are returned.
func (c *Compiler) Compile(e Expr) ([]NoteEvent, error) {
	out := make([]NoteEvent, 0, 64)
	if err := c.compileNode(e, 0, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Compiler) EndTime(time int, e Expr) (int, error) {
	switch n := node(e).(type) {
	case Note:
		if n.Dur < 0 {
			return 0, nodeError(ErrNegativeDuration, "note", "%s:%d", n.Pitch, n.Dur)
		}
		return time + n.Dur, nil
	case Rest:
		if n.Dur < 0 {
			return 0, nodeError(ErrNegativeDuration, "rest", "%d", n.Dur)
		}
		return time + n.Dur, nil
	case Par:
		left, err := c.EndTime(time, n.Left)
		if err != nil {
			return 0, err
		}
		right, err := c.EndTime(time, n.Right)
		if err != nil {
			return 0, err
		}
		return max(left, right), nil
	case Seq:
		mid, err := c.EndTime(time, n.Left)
		if err != nil {
			return 0, err
		}
		return c.EndTime(mid, n.Right)
	case Repeat:
		step, err := c.repeatStep(time, n)
		if err != nil {
			return 0, err
		}
		if n.Count == 0 && c.cfg.LegacyZeroRepeat {
			return 0, nil
		}
		return time + n.Count*step, nil
	default:
		return 0, nodeError(ErrUnknownNodeKind, kindOf(e), "%#v", e)
	}
}

// repeatStep is the duration of one pass over the section measured from time.
func (c *Compiler) repeatStep(time int, r Repeat) (int, error) {
	if r.Count < 0 {
		return 0, nodeError(ErrNegativeCount, "repeat", "%d", r.Count)
	}
	end, err := c.EndTime(time, r.Section)
	if err != nil {
		return 0, err
	}
	if end < time && r.Count > 0 {
		return 0, nodeError(ErrBackwardRepeat, "repeat", "section from %d ends at %d", time, end)
	}
	return end - time, nil
}

func (c *Compiler) compileNode(e Expr, time int, out *[]NoteEvent) error {
	switch n := node(e).(type) {
	case Note:
		if n.Dur < 0 {
			return nodeError(ErrNegativeDuration, "note", "%s:%d", n.Pitch, n.Dur)
		}
		pitch, err := MapPitch(n.Pitch)
		if err != nil {
			return err
		}
		if c.cfg.CheckPitchRange && (pitch < MinPitch || pitch > MaxPitch) {
			return nodeError(ErrPitchOutOfRange, "note", "%s maps to %d", n.Pitch, pitch)
		}
		*out = append(*out, NoteEvent{Pitch: pitch, Start: time, Dur: n.Dur})
		return nil
	case Rest:
		if n.Dur < 0 {
			return nodeError(ErrNegativeDuration, "rest", "%d", n.Dur)
		}
		return nil
	case Par:
		if err := c.compileNode(n.Left, time, out); err != nil {
			return err
		}
		return c.compileNode(n.Right, time, out)
	case Seq:
		if err := c.compileNode(n.Left, time, out); err != nil {
			return err
		}
		next, err := c.EndTime(time, n.Left)
		if err != nil {
			return err
		}
		return c.compileNode(n.Right, next, out)
	case Repeat:
		step, err := c.repeatStep(time, n)
		if err != nil {
			return err
		}
		for i := 0; i < n.Count; i++ {
			if err := c.compileNode(n.Section, time+i*step, out); err != nil {
				return err
			}
		}
		return nil
	default:
		return nodeError(ErrUnknownNodeKind, kindOf(e), "%#v", e)
	}
}
