package session

import (
	"testing"

	"github.com/litescript/ls-textmoc/internal/astro"
	"github.com/litescript/ls-textmoc/internal/moc"
	"github.com/litescript/ls-textmoc/internal/region"
)

func testSet(t *testing.T) *region.Set {
	t.Helper()
	set, err := region.NewLoader().Parse([]byte(`[
		{"name":"A","0":[4],"text":"alpha"},
		{"name":"B","0":[5],"text":"bravo"},
		{"name":"T","0":[6],"text":"target","isTarget":true}
	]`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return set
}

func face(f uint64) *astro.Point {
	lon, lat := moc.Pix2Ang(0, f)
	return &astro.Point{Lon: lon, Lat: lat}
}

// face 0 belongs to no test region.
var outside = face(0)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"explore", ModeExplore, false},
		{"GAME", ModeGame, false},
		{"", ModeExplore, false},
		{"arcade", ModeExplore, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHover_Transitions(t *testing.T) {
	set := testSet(t)
	st := New(ModeExplore, DefaultConfig())

	steps := []struct {
		name    string
		p       *astro.Point
		cue     Cue
		visible bool
		text    string
	}{
		{"start outside", outside, CueNone, false, ""},
		{"enter A", face(4), CueEnter, true, "alpha"},
		{"stay in A", face(4), CueNone, true, "alpha"},
		{"switch to B", face(5), CueNone, true, "bravo"},
		{"nil pointer", nil, CueNone, true, "bravo"},
		{"leave", outside, CueLeave, false, ""},
		{"stay outside", outside, CueNone, false, ""},
	}

	for _, step := range steps {
		u := Hover(st, set, step.p)
		if u.Cue != step.cue {
			t.Errorf("%s: cue = %v, want %v", step.name, u.Cue, step.cue)
		}
		if st.PopupVisible != step.visible {
			t.Errorf("%s: PopupVisible = %v, want %v", step.name, st.PopupVisible, step.visible)
		}
		if st.PopupText != step.text {
			t.Errorf("%s: PopupText = %q, want %q", step.name, st.PopupText, step.text)
		}
	}
}

func TestHover_NilState(t *testing.T) {
	if u := Hover(nil, testSet(t), face(4)); u.Cue != CueNone {
		t.Errorf("Hover(nil) cue = %v, want none", u.Cue)
	}
}

func TestMove_TargetScoresOnceAndEnds(t *testing.T) {
	set := testSet(t)
	st := New(ModeGame, DefaultConfig())
	if !Start(st, DefaultConfig()) {
		t.Fatal("Start returned false")
	}

	u := Move(st, set, face(6))
	if u.Cue != CueSuccess || u.Ended != EndSuccess {
		t.Errorf("target entry = %+v, want success", u)
	}
	if st.Score != 10 {
		t.Errorf("Score = %d, want 10", st.Score)
	}
	if st.Running {
		t.Error("game should end on target entry")
	}
	if !st.PopupVisible || st.PopupText != "target" {
		t.Errorf("popup = %v %q, want target text", st.PopupVisible, st.PopupText)
	}

	// Staying in, leaving and re-entering after the end never re-scores.
	Move(st, set, face(6))
	Move(st, set, outside)
	Move(st, set, face(6))
	if st.Score != 10 {
		t.Errorf("Score after re-entry = %d, want 10", st.Score)
	}
}

func TestMove_NonTargetWhileRunning(t *testing.T) {
	set := testSet(t)
	st := New(ModeGame, DefaultConfig())
	Start(st, DefaultConfig())

	u := Move(st, set, face(4))
	if u.Cue != CueError {
		t.Errorf("cue = %v, want error", u.Cue)
	}
	if !st.Running {
		t.Error("game should continue after a wrong region")
	}
	if st.PopupText != "alpha" || st.Score != 0 {
		t.Errorf("popup %q score %d, want alpha 0", st.PopupText, st.Score)
	}

	// A to B counts as a new entry.
	if u := Move(st, set, face(5)); u.Cue != CueError {
		t.Errorf("A->B cue = %v, want error", u.Cue)
	}
}

func TestHover_ReloadedSetIsNotAnEntry(t *testing.T) {
	st := New(ModeExplore, DefaultConfig())
	Hover(st, testSet(t), face(4))

	reloaded := testSet(t)
	u := Hover(st, reloaded, face(4))
	if u.Cue != CueNone || u.Entered != nil || u.Left != nil {
		t.Errorf("unmoved pointer after reload: cue=%v entered=%v left=%v", u.Cue, u.Entered, u.Left)
	}
	if st.Region != reloaded.ByName("A") {
		t.Error("session should hold the reloaded region")
	}
	if !st.PopupVisible || st.PopupText != "alpha" {
		t.Errorf("popup = %v %q, want visible alpha", st.PopupVisible, st.PopupText)
	}
}

func TestMove_ReloadedSetIsNotAnEntry(t *testing.T) {
	st := New(ModeGame, DefaultConfig())
	Start(st, DefaultConfig())
	Move(st, testSet(t), face(4))

	u := Move(st, testSet(t), face(4))
	if u.Cue != CueNone || u.Entered != nil || u.Left != nil {
		t.Errorf("unmoved pointer after reload: cue=%v entered=%v left=%v", u.Cue, u.Entered, u.Left)
	}
	if !st.Running || st.Score != 0 {
		t.Errorf("running %v score %d, want true 0", st.Running, st.Score)
	}
}

func TestMove_ReloadedTextReplacesPopup(t *testing.T) {
	st := New(ModeGame, DefaultConfig())
	Start(st, DefaultConfig())
	Move(st, testSet(t), face(4))

	edited, err := region.NewLoader().Parse([]byte(`[
		{"name":"A","0":[4],"text":"alpha, revised"},
		{"name":"B","0":[5],"text":"bravo"},
		{"name":"T","0":[6],"text":"target","isTarget":true}
	]`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if u := Move(st, edited, face(4)); u.Cue != CueNone {
		t.Errorf("cue = %v, want none", u.Cue)
	}
	if st.PopupText != "alpha, revised" {
		t.Errorf("PopupText = %q, want alpha, revised", st.PopupText)
	}
}

func TestMove_LeavingAlwaysHidesPopup(t *testing.T) {
	set := testSet(t)

	setups := map[string]func(st *State){
		"idle": func(st *State) {},
		"running in non-target": func(st *State) {
			Start(st, DefaultConfig())
			Move(st, set, face(4))
		},
		"after success": func(st *State) {
			Start(st, DefaultConfig())
			Move(st, set, face(6))
		},
		"after timeout": func(st *State) {
			Start(st, Config{Duration: 1})
			Move(st, set, face(5))
			Tick(st, st.Generation)
		},
	}

	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			st := New(ModeGame, DefaultConfig())
			setup(st)
			Move(st, set, outside)
			if st.PopupVisible || st.PopupText != "" {
				t.Errorf("popup = %v %q, want hidden", st.PopupVisible, st.PopupText)
			}
			if st.Inside {
				t.Error("Inside = true after leaving")
			}
		})
	}
}

func TestMove_NotRunningTracksOnly(t *testing.T) {
	set := testSet(t)
	st := New(ModeGame, DefaultConfig())

	u := Move(st, set, face(6))
	if u.Cue != CueNone || st.Score != 0 || st.PopupVisible {
		t.Errorf("idle target entry changed state: %+v score %d", u, st.Score)
	}
	if !st.Inside {
		t.Error("Inside should be tracked while idle")
	}
}

func TestStart_RefusedWhileRunning(t *testing.T) {
	st := New(ModeGame, DefaultConfig())
	if !Start(st, DefaultConfig()) {
		t.Fatal("first Start returned false")
	}
	gen := st.Generation
	Tick(st, gen)
	if Start(st, DefaultConfig()) {
		t.Error("Start while running should be refused")
	}
	if st.Generation != gen || st.Remaining != 29 {
		t.Errorf("refused Start changed state: gen %d remaining %d", st.Generation, st.Remaining)
	}
}

func TestStart_ResetsScore(t *testing.T) {
	set := testSet(t)
	st := New(ModeGame, DefaultConfig())
	Start(st, DefaultConfig())
	Move(st, set, face(6))

	if !Start(st, DefaultConfig()) {
		t.Fatal("restart returned false")
	}
	if st.Score != 0 || st.End != EndNone || st.PopupVisible || st.Remaining != 30 {
		t.Errorf("restart did not reset: %+v", st.Snapshot(CueNone))
	}
}

func TestTick_ReachesZeroAfterThirtyTicks(t *testing.T) {
	st := New(ModeGame, DefaultConfig())
	Start(st, DefaultConfig())
	gen := st.Generation

	for i := 1; i < 30; i++ {
		if u := Tick(st, gen); u.Ended != EndNone {
			t.Fatalf("ended early at tick %d", i)
		}
		if st.Remaining != 30-i {
			t.Fatalf("Remaining after %d ticks = %d, want %d", i, st.Remaining, 30-i)
		}
	}

	u := Tick(st, gen)
	if u.Cue != CueTimeout || u.Ended != EndTimeout {
		t.Errorf("tick 30 = %+v, want timeout", u)
	}
	if st.Remaining != 0 || st.Running {
		t.Errorf("after timeout: remaining %d running %v", st.Remaining, st.Running)
	}

	// Further ticks are ignored.
	if u := Tick(st, gen); u.Cue != CueNone || st.Remaining != 0 {
		t.Errorf("tick after end = %+v remaining %d", u, st.Remaining)
	}
}

func TestTick_StaleGenerationIgnored(t *testing.T) {
	st := New(ModeGame, DefaultConfig())
	Start(st, DefaultConfig())
	old := st.Generation

	st.Running = false
	Start(st, DefaultConfig())

	Tick(st, old)
	if st.Remaining != 30 {
		t.Errorf("stale tick changed Remaining to %d", st.Remaining)
	}
	Tick(st, st.Generation)
	if st.Remaining != 29 {
		t.Errorf("Remaining = %d, want 29", st.Remaining)
	}
}

func TestWarning(t *testing.T) {
	st := New(ModeGame, DefaultConfig())
	if st.Warning() {
		t.Error("idle session should not warn")
	}
	Start(st, DefaultConfig())
	for st.Remaining > 5 {
		if st.Warning() {
			t.Fatalf("Warning at %d remaining", st.Remaining)
		}
		Tick(st, st.Generation)
	}
	if !st.Warning() {
		t.Errorf("Warning = false at %d remaining", st.Remaining)
	}
}

func TestTrackDispatchesByMode(t *testing.T) {
	set := testSet(t)

	explore := New(ModeExplore, DefaultConfig())
	if u := Track(explore, set, face(4)); u.Cue != CueEnter {
		t.Errorf("explore Track cue = %v, want enter", u.Cue)
	}

	game := New(ModeGame, DefaultConfig())
	Start(game, DefaultConfig())
	if u := Track(game, set, face(4)); u.Cue != CueError {
		t.Errorf("game Track cue = %v, want error", u.Cue)
	}
}

func TestSetModeAbandonsGame(t *testing.T) {
	st := New(ModeGame, DefaultConfig())
	Start(st, DefaultConfig())
	gen := st.Generation

	st.SetMode(ModeExplore)
	if st.Running {
		t.Error("mode switch should stop the game")
	}
	if st.Generation == gen {
		t.Error("mode switch should invalidate pending ticks")
	}
}

func TestSnapshot(t *testing.T) {
	set := testSet(t)
	st := New(ModeExplore, DefaultConfig())
	Hover(st, set, face(5))

	v := st.Snapshot(CueEnter)
	if v.Mode != "explore" || v.Region != "B" || v.PopupText != "bravo" || v.Cue != "enter" {
		t.Errorf("Snapshot = %+v", v)
	}
	if v.Pointer == nil {
		t.Error("Snapshot.Pointer = nil")
	}
}
