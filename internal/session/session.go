// Package session holds the per-user interaction state for the explore and
// game modes, and the handlers that advance it on pointer moves and timer
// ticks.
//
// A State is owned by exactly one goroutine: the Bubble Tea update loop in
// the terminal UI, or the per-connection loop in the server. Nothing here
// locks.
package session

import (
	"fmt"
	"strings"

	"github.com/litescript/ls-textmoc/internal/astro"
	"github.com/litescript/ls-textmoc/internal/region"
)

// Mode selects the pointer handler.
type Mode int

const (
	ModeExplore Mode = iota
	ModeGame
)

func (m Mode) String() string {
	switch m {
	case ModeExplore:
		return "explore"
	case ModeGame:
		return "game"
	default:
		return "unknown"
	}
}

// ParseMode parses "explore" or "game".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "explore", "":
		return ModeExplore, nil
	case "game":
		return ModeGame, nil
	default:
		return ModeExplore, fmt.Errorf("unknown mode %q", s)
	}
}

// Cue is an audio cue requested by a state transition.
type Cue int

const (
	CueNone Cue = iota
	CueEnter
	CueLeave
	CueSuccess
	CueError
	CueTimeout
)

func (c Cue) String() string {
	switch c {
	case CueEnter:
		return "enter"
	case CueLeave:
		return "leave"
	case CueSuccess:
		return "success"
	case CueError:
		return "error"
	case CueTimeout:
		return "timeout"
	default:
		return ""
	}
}

// End records how the last game finished.
type End int

const (
	EndNone End = iota
	EndSuccess
	EndTimeout
)

func (e End) String() string {
	switch e {
	case EndSuccess:
		return "success"
	case EndTimeout:
		return "timeout"
	default:
		return ""
	}
}

// Config holds the game rules.
type Config struct {
	Duration       int // seconds per game
	TargetPoints   int // awarded for finding the target
	WarningSeconds int // countdown warning window
}

// DefaultConfig returns the standard 30 second game worth 10 points.
func DefaultConfig() Config {
	return Config{
		Duration:       30,
		TargetPoints:   10,
		WarningSeconds: 5,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.Duration <= 0 {
		c.Duration = d.Duration
	}
	if c.TargetPoints <= 0 {
		c.TargetPoints = d.TargetPoints
	}
	if c.WarningSeconds < 0 {
		c.WarningSeconds = d.WarningSeconds
	}
	return c
}

// State is the mutable session: pointer tracking, popup, score and timer.
type State struct {
	Mode   Mode
	Config Config

	Pointer *astro.Point
	Region  *region.Region // winning region under the pointer
	Inside  bool

	PopupVisible bool
	PopupText    string

	Score      int
	Running    bool
	Remaining  int
	Generation uint64
	End        End
	Message    string
}

// New returns an idle session.
func New(mode Mode, cfg Config) *State {
	cfg = cfg.normalized()
	return &State{
		Mode:      mode,
		Config:    cfg,
		Remaining: cfg.Duration,
	}
}

// Update describes what a handler changed.
type Update struct {
	Cue     Cue
	Entered *region.Region
	Left    *region.Region
	Ended   End
	Points  int
}

// Warning reports whether the countdown is in its final seconds.
func (s *State) Warning() bool {
	if s == nil || !s.Running {
		return false
	}
	return s.Remaining <= s.Config.WarningSeconds
}

// SetMode switches mode. A running game is abandoned.
func (s *State) SetMode(m Mode) {
	if s == nil || s.Mode == m {
		return
	}
	s.Mode = m
	s.Running = false
	s.End = EndNone
	s.Message = ""
	s.Remaining = s.Config.Duration
	s.Generation++
	s.leave()
}

func (s *State) show(text string) {
	s.PopupVisible = true
	s.PopupText = text
}

func (s *State) hide() {
	s.PopupVisible = false
	s.PopupText = ""
}

func (s *State) leave() {
	s.Region = nil
	s.Inside = false
	s.hide()
}

// rebind swaps in the reloaded copy of the current region. A visible
// popup picks up its new text.
func (s *State) rebind(r *region.Region) {
	s.Region = r
	if s.PopupVisible {
		s.PopupText = r.Text
	}
}

// Track dispatches a pointer sample to the handler for the session's mode.
func Track(st *State, set *region.Set, p *astro.Point) Update {
	if st == nil {
		return Update{}
	}
	if st.Mode == ModeGame {
		return Move(st, set, p)
	}
	return Hover(st, set, p)
}

// Hover is the explore handler. Entering a region shows its text and
// leaving all regions hides it, each with a cue. Moving directly from one
// region to another switches the text silently. A nil pointer is ignored.
func Hover(st *State, set *region.Set, p *astro.Point) Update {
	if st == nil || p == nil {
		return Update{}
	}
	pt := *p
	st.Pointer = &pt

	prev := st.Region
	hit := set.Hit(pt)

	switch {
	case hit == nil:
		st.leave()
		if prev == nil {
			return Update{}
		}
		return Update{Cue: CueLeave, Left: prev}
	case prev == nil:
		st.Region = hit
		st.Inside = true
		st.show(hit.Text)
		return Update{Cue: CueEnter, Entered: hit}
	case prev.Same(hit):
		st.rebind(hit)
		return Update{}
	default:
		st.Region = hit
		st.show(hit.Text)
		return Update{Entered: hit, Left: prev}
	}
}

// Move is the game handler. While a game runs, entering the target scores
// and ends the game; entering any other region shows its text with an
// error cue. Leaving all regions always hides the popup. Staying inside the
// same region never re-triggers.
func Move(st *State, set *region.Set, p *astro.Point) Update {
	if st == nil || p == nil {
		return Update{}
	}
	pt := *p
	st.Pointer = &pt

	prev := st.Region
	hit := set.Hit(pt)

	if hit == nil {
		st.leave()
		if prev == nil {
			return Update{}
		}
		return Update{Left: prev}
	}
	if prev.Same(hit) {
		st.rebind(hit)
		return Update{}
	}

	st.Region = hit
	st.Inside = true
	u := Update{Entered: hit, Left: prev}

	if !st.Running {
		return u
	}

	st.show(hit.Text)
	if hit.IsTarget {
		pts := st.Config.TargetPoints
		st.Score += pts
		st.Running = false
		st.End = EndSuccess
		st.Message = fmt.Sprintf("Found %s with %ds left! +%d", hit.Name, st.Remaining, pts)
		u.Cue = CueSuccess
		u.Ended = EndSuccess
		u.Points = pts
		return u
	}

	u.Cue = CueError
	return u
}

// Start begins a game and returns false if one is already running. The
// score, flags and popup are reset and the generation advances so ticks
// from an earlier game are ignored.
func Start(st *State, cfg Config) bool {
	if st == nil || st.Running {
		return false
	}
	cfg = cfg.normalized()
	st.Config = cfg
	st.Score = 0
	st.Remaining = cfg.Duration
	st.Running = true
	st.End = EndNone
	st.Message = ""
	st.Generation++
	st.leave()
	return true
}

// Tick advances the countdown by one second for the given generation.
// Ticks for a stopped game or an older generation do nothing.
func Tick(st *State, gen uint64) Update {
	if st == nil || !st.Running || gen != st.Generation {
		return Update{}
	}
	st.Remaining--
	if st.Remaining > 0 {
		return Update{}
	}
	st.Remaining = 0
	st.Running = false
	st.End = EndTimeout
	st.Message = "Time's up!"
	return Update{Cue: CueTimeout, Ended: EndTimeout}
}
