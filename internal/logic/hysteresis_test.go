package logic

import "testing"

func TestTransitionTable(t *testing.T) {
	th := Thresholds{High: 3.90, Mid: 3.60, Hysteresis: 0.03}

	tests := []struct {
		name string
		from Level
		v    float64
		want Level
	}{
		{"high holds above fall point", LevelHigh, 3.80, LevelHigh},
		{"high falls", LevelHigh, 3.78, LevelMedium},
		{"high never jumps to low", LevelHigh, 3.0, LevelMedium},
		{"medium rises above rise point", LevelMedium, 4.02, LevelHigh},
		{"medium holds below rise point", LevelMedium, 4.01, LevelMedium},
		{"medium holds above low fall point", LevelMedium, 3.50, LevelMedium},
		{"medium falls", LevelMedium, 3.49, LevelLow},
		{"low holds below rise point", LevelLow, 3.70, LevelLow},
		{"low rises", LevelLow, 3.71, LevelMedium},
		{"low never jumps to high", LevelLow, 5.0, LevelMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextLevel(tt.from, tt.v, th); got != tt.want {
				t.Errorf("NextLevel(%s, %.4f) = %s, want %s", tt.from, tt.v, got, tt.want)
			}
		})
	}
}

func TestTransitionsAreSingleStep(t *testing.T) {
	for _, tr := range Transitions {
		d := int(tr.To) - int(tr.From)
		if d != 1 && d != -1 {
			t.Errorf("transition %s -> %s skips a level", tr.From, tr.To)
		}
		if tr.Dir == Rising && d != 1 {
			t.Errorf("rising transition %s -> %s must move up", tr.From, tr.To)
		}
		if tr.Dir == Falling && d != -1 {
			t.Errorf("falling transition %s -> %s must move down", tr.From, tr.To)
		}
	}
}

func TestMargin(t *testing.T) {
	th := Thresholds{High: 4.0, Mid: 3.5, Hysteresis: 0.1}
	if !approxEqual(th.Margin(BoundaryHigh), 0.4) {
		t.Errorf("high margin: got %v, want 0.4", th.Margin(BoundaryHigh))
	}
	if !approxEqual(th.Margin(BoundaryMid), 0.35) {
		t.Errorf("mid margin: got %v, want 0.35", th.Margin(BoundaryMid))
	}
}

func TestZeroHysteresis(t *testing.T) {
	th := Thresholds{High: 3.90, Mid: 3.60}

	if got := NextLevel(LevelMedium, 3.90, th); got != LevelHigh {
		t.Errorf("rise at threshold: got %s, want HIGH", got)
	}
	if got := NextLevel(LevelHigh, 3.90, th); got != LevelHigh {
		t.Errorf("hold at threshold: got %s, want HIGH", got)
	}
}
