package score

const (
	MinPitch = 0
	MaxPitch = 127
)

var noteOffsets = map[byte]int{
	'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11,
}

// MapPitch converts a pitch name such as "c4", "C#4" or "db4" to a numeric
// pitch where c4 is 60. The result is not clamped: "b#9" maps to 132.
func MapPitch(name string) (int, error) {
	if len(name) < 2 || len(name) > 3 {
		return 0, nodeError(ErrInvalidPitchName, "note", "%q", name)
	}
	base, ok := noteOffsets[lower(name[0])]
	if !ok {
		return 0, nodeError(ErrInvalidPitchName, "note", "%q", name)
	}
	shift := 0
	if len(name) == 3 {
		switch name[1] {
		case '#':
			shift = 1
		case 'b':
			shift = -1
		default:
			return 0, nodeError(ErrInvalidPitchName, "note", "%q", name)
		}
	}
	octave := name[len(name)-1]
	if octave < '0' || octave > '9' {
		return 0, nodeError(ErrInvalidPitchName, "note", "%q", name)
	}
	return 12 + 12*int(octave-'0') + base + shift, nil
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
