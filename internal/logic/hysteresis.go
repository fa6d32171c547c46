package logic

// Boundary selects which threshold a transition is measured against.
type Boundary uint8

const (
	BoundaryHigh Boundary = iota
	BoundaryMid
)

// Direction is the sense of a threshold crossing.
type Direction uint8

const (
	// Falling fires when v < threshold - margin.
	Falling Direction = iota
	// Rising fires when v >= threshold + margin.
	Rising
)

// Transition is one edge of the level state machine.
type Transition struct {
	From     Level
	To       Level
	Boundary Boundary
	Dir      Direction
}

// Transitions is the complete edge set, in evaluation order.
// Only one edge fires per cycle, so LOW and HIGH are never adjacent.
var Transitions = []Transition{
	{From: LevelHigh, To: LevelMedium, Boundary: BoundaryHigh, Dir: Falling},
	{From: LevelMedium, To: LevelHigh, Boundary: BoundaryHigh, Dir: Rising},
	{From: LevelMedium, To: LevelLow, Boundary: BoundaryMid, Dir: Falling},
	{From: LevelLow, To: LevelMedium, Boundary: BoundaryMid, Dir: Rising},
}

// Thresholds are the classifier inputs.
type Thresholds struct {
	High       float64
	Mid        float64
	Hysteresis float64
}

// Margin returns the hysteresis margin around the given boundary.
func (th Thresholds) Margin(b Boundary) float64 {
	return th.threshold(b) * th.Hysteresis
}

func (th Thresholds) threshold(b Boundary) float64 {
	if b == BoundaryHigh {
		return th.High
	}
	return th.Mid
}

// Fires reports whether the transition's crossing condition holds for v.
func (tr Transition) Fires(v float64, th Thresholds) bool {
	t := th.threshold(tr.Boundary)
	m := th.Margin(tr.Boundary)
	if tr.Dir == Rising {
		return v >= t+m
	}
	return v < t-m
}

// NextLevel applies the first matching transition out of cur.
// A level with no matching edge (including an unrecognized one) is returned unchanged.
func NextLevel(cur Level, v float64, th Thresholds) Level {
	for _, tr := range Transitions {
		if tr.From != cur {
			continue
		}
		if tr.Fires(v, th) {
			return tr.To
		}
	}
	return cur
}
