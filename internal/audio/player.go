package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/litescript/ls-textmoc/internal/logging"
	"github.com/litescript/ls-textmoc/internal/session"
)

// Config controls playback.
type Config struct {
	Enabled    bool
	Volume     float64
	SampleRate int
}

// Player plays cues through the system speaker. Every method is safe to
// call before Init, after Close, or when Init failed; playback is then
// skipped.
type Player struct {
	mu          sync.Mutex
	cfg         Config
	rate        beep.SampleRate
	mixer       *beep.Mixer
	initialized bool
	log         *logging.Logger
	played      map[session.Cue]int
}

// NewPlayer creates a player. Call Init to open the audio device.
func NewPlayer(cfg Config, log *logging.Logger) *Player {
	if log == nil {
		log = logging.Discard()
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	return &Player{
		cfg:    cfg,
		rate:   beep.SampleRate(cfg.SampleRate),
		mixer:  &beep.Mixer{},
		log:    log,
		played: make(map[session.Cue]int),
	}
}

// Init opens the speaker. A failure is logged and returned; the player
// stays usable and silent.
func (p *Player) Init() (err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized || !p.cfg.Enabled {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("init speaker: %v", r)
		}
		if err != nil {
			p.log.Warn("audio disabled: %v", err)
		}
	}()

	if err := speaker.Init(p.rate, p.rate.N(100*time.Millisecond)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	speaker.Play(p.mixer)
	p.initialized = true
	p.log.Debug("speaker ready at %d Hz", p.cfg.SampleRate)
	return nil
}

// Play queues a cue. CueNone is ignored.
func (p *Player) Play(cue session.Cue) {
	if cue == session.CueNone {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return
	}

	s, err := CueStreamer(cue, p.rate, p.cfg.Volume)
	if err != nil {
		p.log.Error("build %s cue: %v", cue, err)
		return
	}
	if s == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			p.log.Error("play %s cue: %v", cue, r)
		}
	}()

	speaker.Lock()
	p.mixer.Add(s)
	speaker.Unlock()
	p.played[cue]++
}

// Played returns how many times cue has been queued.
func (p *Player) Played(cue session.Cue) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.played[cue]
}

// Close stops playback and releases the device.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return
	}
	speaker.Lock()
	p.mixer.Clear()
	speaker.Unlock()
	speaker.Close()
	p.initialized = false
}
