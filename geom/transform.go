package geom

// Transform mirrors wl_output.transform. Rotations are counter clockwise
type Transform int

const (
	TransformNormal = Transform(iota)
	Transform90
	Transform180
	Transform270
	TransformFlipped
	TransformFlipped90
	TransformFlipped180
	TransformFlipped270
)

var transformNames = [...]string{
	"normal", "90", "180", "270",
	"flipped", "flipped-90", "flipped-180", "flipped-270",
}

func (t Transform) String() string {
	if t < 0 || int(t) >= len(transformNames) {
		return "invalid"
	}
	return transformNames[t]
}

// ParseTransform accepts the names produced by String
func ParseTransform(s string) (Transform, bool) {
	for i, name := range transformNames {
		if name == s {
			return Transform(i), true
		}
	}
	return TransformNormal, false
}

func (t Transform) Valid() bool {
	return t >= TransformNormal && t <= TransformFlipped270
}

// Next cycles normal, 90, 180, 270, flipped, flipped-90, flipped-180, flipped-270 and back
func (t Transform) Next() Transform {
	return (t + 1) % 8
}

// Invert returns the transform that undoes t
func (t Transform) Invert() Transform {
	switch t {
	case Transform90:
		return Transform270
	case Transform270:
		return Transform90
	default:
		return t
	}
}

// Swaps reports whether the transform exchanges width and height
func (t Transform) Swaps() bool {
	return t%2 == 1
}

func (t Transform) TransformSize(s Size) Size {
	if t.Swaps() {
		return Size{W: s.H, H: s.W}
	}
	return s
}

// TransformPoint maps a point inside an untransformed area of the given size
// into the transformed area.
func (t Transform) TransformPoint(p PointF, area PointF) PointF {
	switch t {
	case Transform90:
		return PointF{X: area.Y - p.Y, Y: p.X}
	case Transform180:
		return PointF{X: area.X - p.X, Y: area.Y - p.Y}
	case Transform270:
		return PointF{X: p.Y, Y: area.X - p.X}
	case TransformFlipped:
		return PointF{X: area.X - p.X, Y: p.Y}
	case TransformFlipped90:
		return PointF{X: p.Y, Y: p.X}
	case TransformFlipped180:
		return PointF{X: p.X, Y: area.Y - p.Y}
	case TransformFlipped270:
		return PointF{X: area.Y - p.Y, Y: area.X - p.X}
	default:
		return p
	}
}
