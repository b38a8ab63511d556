// Package audio synthesizes and plays the short interaction cues.
package audio

import (
	"fmt"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"

	"github.com/litescript/ls-textmoc/internal/session"
)

// WaveType selects the tone generator for a note.
type WaveType int

const (
	WaveSine WaveType = iota
	WaveSquare
	WaveSaw
)

// Tone returns an endless generator for wave at freq.
func Tone(wave WaveType, freq float64, rate beep.SampleRate) (beep.Streamer, error) {
	switch wave {
	case WaveSquare:
		return generators.SquareTone(rate, freq)
	case WaveSaw:
		return generators.SawtoothTone(rate, freq)
	default:
		return generators.SineTone(rate, freq)
	}
}

// note is one shaped tone in a cue.
type note struct {
	freq     float64
	duration time.Duration
	wave     WaveType
}

const (
	noteAttack  = 5 * time.Millisecond
	noteRelease = 40 * time.Millisecond
)

// cueNotes lists the notes played in sequence for each cue.
var cueNotes = map[session.Cue][]note{
	// rising fifth
	session.CueEnter: {
		{freq: 659.25, duration: 70 * time.Millisecond, wave: WaveSine},
		{freq: 987.77, duration: 110 * time.Millisecond, wave: WaveSine},
	},
	// falling fifth
	session.CueLeave: {
		{freq: 987.77, duration: 70 * time.Millisecond, wave: WaveSine},
		{freq: 659.25, duration: 110 * time.Millisecond, wave: WaveSine},
	},
	// C major arpeggio
	session.CueSuccess: {
		{freq: 1046.50, duration: 90 * time.Millisecond, wave: WaveSquare},
		{freq: 1318.51, duration: 90 * time.Millisecond, wave: WaveSquare},
		{freq: 1567.98, duration: 220 * time.Millisecond, wave: WaveSquare},
	},
	session.CueError: {
		{freq: 140, duration: 180 * time.Millisecond, wave: WaveSaw},
	},
	// the error buzz, lower and longer
	session.CueTimeout: {
		{freq: 90, duration: 450 * time.Millisecond, wave: WaveSaw},
	},
}

// Shape cuts tone to duration with a linear fade in over attack and out
// over release. A note too short for both fades is all fade.
func Shape(tone beep.Streamer, duration, attack, release time.Duration, rate beep.SampleRate) beep.Streamer {
	total := rate.N(duration)
	in := min(rate.N(attack), total)
	out := min(rate.N(release), total-in)
	body := total - in - out

	return beep.Seq(
		effects.Transition(beep.Take(in, tone), in, 0, 1, effects.TransitionLinear),
		beep.Take(body, tone),
		effects.Transition(beep.Take(out, tone), out, 1, 0, effects.TransitionLinear),
	)
}

// CueDuration returns the total length of a cue, or zero if it is silent.
func CueDuration(cue session.Cue) time.Duration {
	var total time.Duration
	for _, n := range cueNotes[cue] {
		total += n.duration
	}
	return total
}

// CueStreamer builds the streamer for cue at the given rate and volume. It
// returns nil for CueNone.
func CueStreamer(cue session.Cue, rate beep.SampleRate, volume float64) (beep.Streamer, error) {
	notes := cueNotes[cue]
	if len(notes) == 0 {
		return nil, nil
	}

	parts := make([]beep.Streamer, 0, len(notes))
	for _, n := range notes {
		tone, err := Tone(n.wave, n.freq, rate)
		if err != nil {
			return nil, fmt.Errorf("%s cue: %w", cue, err)
		}
		parts = append(parts, Shape(tone, n.duration, noteAttack, noteRelease, rate))
	}

	// square and saw are harsh at full scale
	gain := max(volume, 0)
	if notes[0].wave != WaveSine {
		gain *= 0.5
	}
	return &effects.Gain{Streamer: beep.Seq(parts...), Gain: gain - 1}, nil
}
