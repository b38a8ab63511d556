// Package ui provides the terminal user interface using Bubble Tea.
package ui

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/browser"

	"github.com/litescript/ls-textmoc/internal/config"
	"github.com/litescript/ls-textmoc/internal/logging"
	"github.com/litescript/ls-textmoc/internal/region"
	"github.com/litescript/ls-textmoc/internal/scores"
	"github.com/litescript/ls-textmoc/internal/session"
	"github.com/litescript/ls-textmoc/internal/state"
	"github.com/litescript/ls-textmoc/internal/version"
)

// Screen layout. The map starts headerLines rows below the top of the
// terminal; mouse rows are offset by that amount.
const (
	headerLines = 2
	footerLines = 2
)

// CuePlayer plays audio cues.
type CuePlayer interface {
	Play(cue session.Cue)
}

// ScoreRecorder persists finished games.
type ScoreRecorder interface {
	Record(ctx context.Context, r scores.Result) (string, error)
}

// Msg types for Bubble Tea
type (
	// gameTickMsg advances the countdown of the game with the given generation.
	gameTickMsg struct {
		gen uint64
	}

	// scoreRecordedMsg reports the result of persisting a finished game.
	scoreRecordedMsg struct {
		id  string
		err error
	}

	// noticeMsg replaces the footer status text.
	noticeMsg string

	// RegionsReloadedMsg signals that the region source was reloaded.
	RegionsReloadedMsg struct {
		Err error
	}
)

// Options configures the root model.
type Options struct {
	Config     config.Config
	Player     CuePlayer     // nil plays nothing
	Store      ScoreRecorder // nil keeps scores in memory only
	Log        *logging.Logger
	SessionID  string
	PlayerName string
	OpenURL    func(url string) error // nil opens the system browser
}

var quietBrowser sync.Once

// openInBrowser opens url without letting the launcher write to the
// terminal.
func openInBrowser(url string) error {
	quietBrowser.Do(func() {
		browser.Stdout = io.Discard
		browser.Stderr = io.Discard
	})
	return browser.OpenURL(url)
}

// Model is the root Bubble Tea model.
type Model struct {
	// Dependencies
	state   *state.Manager
	player  CuePlayer
	store   ScoreRecorder
	log     *logging.Logger
	openURL func(string) error
	cfg     config.Config

	sessionID  string
	playerName string

	// Session and view state
	sess    *session.State
	skyView SkyViewModel

	width     int
	height    int
	ready     bool
	statusMsg string

	// Last pointer position on the map canvas, -1 when off the map
	mouseX int
	mouseY int
}

// New creates a new root UI model.
func New(stateMgr *state.Manager, opts Options) Model {
	log := opts.Log
	if log == nil {
		log = logging.Discard()
	}
	id := opts.SessionID
	if id == "" {
		id = "local"
	}
	openURL := opts.OpenURL
	if openURL == nil {
		openURL = openInBrowser
	}
	return Model{
		state:      stateMgr,
		openURL:    openURL,
		player:     opts.Player,
		store:      opts.Store,
		log:        log.Named("ui"),
		cfg:        opts.Config,
		sessionID:  id,
		playerName: opts.PlayerName,
		sess:       session.New(opts.Config.Mode(), opts.Config.Session()),
		skyView:    NewSkyViewModel(opts.Config.Display),
		mouseX:     -1,
		mouseY:     -1,
	}
}

// Session returns the live session state.
func (m Model) Session() *session.State {
	return m.sess
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	m.state.SessionOpened()
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.state.SessionClosed()
			return m, tea.Quit
		case "tab":
			m.switchMode()
		case "s", "enter":
			cmds = append(cmds, m.startGame())
		case "r":
			var cmd tea.Cmd
			m.skyView, cmd = m.skyView.Reset()
			cmds = append(cmds, cmd)
		case "n":
			cmds = append(cmds, m.flyToNext())
		case "y":
			cmds = append(cmds, m.copyPopup())
		case "o":
			cmds = append(cmds, m.openMedia())
		default:
			var cmd tea.Cmd
			m.skyView, cmd = m.skyView.Update(msg)
			cmds = append(cmds, cmd, m.retrack())
		}

	case tea.MouseMsg:
		cmds = append(cmds, m.handleMouse(msg))

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.skyView = m.skyView.SetSize(m.width, m.mapHeight())

	case gameTickMsg:
		u := session.Tick(m.sess, msg.gen)
		cmds = append(cmds, m.apply(u))
		if m.sess.Running && msg.gen == m.sess.Generation {
			cmds = append(cmds, gameTick(msg.gen))
		}

	case animTickMsg:
		var cmd tea.Cmd
		m.skyView, cmd = m.skyView.Update(msg)
		cmds = append(cmds, cmd, m.retrack())

	case scoreRecordedMsg:
		if msg.err != nil {
			m.log.Error("record score: %v", msg.err)
			m.statusMsg = "score not saved: " + msg.err.Error()
		} else {
			m.log.Debug("score recorded as %s", msg.id)
		}

	case noticeMsg:
		m.statusMsg = string(msg)

	case RegionsReloadedMsg:
		if msg.Err != nil {
			m.statusMsg = "reload failed: " + msg.Err.Error()
		} else {
			m.statusMsg = ""
			cmds = append(cmds, m.retrack())
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) mapHeight() int {
	h := m.height - headerLines - footerLines
	if h < 0 {
		return 0
	}
	return h
}

func (m *Model) regions() *region.Set {
	return m.state.Regions()
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.skyView = m.skyView.ZoomAt(true)
		return m.retrack()
	case tea.MouseButtonWheelDown:
		m.skyView = m.skyView.ZoomAt(false)
		return m.retrack()
	}

	x, y := msg.X, msg.Y-headerLines
	if y < 0 || y >= m.mapHeight() || x < 0 || x >= m.width {
		m.mouseX, m.mouseY = -1, -1
		return nil
	}
	m.mouseX, m.mouseY = x, y
	return m.track()
}

// track feeds the sky point under the pointer to the session.
func (m *Model) track() tea.Cmd {
	if m.mouseX < 0 || m.mouseY < 0 {
		return nil
	}
	p, ok := m.skyView.PointAt(m.mouseX, m.mouseY)
	if !ok {
		return nil
	}
	return m.apply(session.Track(m.sess, m.regions(), &p))
}

// retrack re-evaluates the pointer after the camera moved under it.
func (m *Model) retrack() tea.Cmd {
	return m.track()
}

// apply plays the update's cue, logs its events and records a finished game.
func (m *Model) apply(u session.Update) tea.Cmd {
	if u.Cue != session.CueNone && m.player != nil {
		m.player.Play(u.Cue)
	}
	m.state.Observe(m.sessionID, u, m.sess)

	if u.Ended == session.EndNone {
		return nil
	}
	m.log.Info("game ended: %s, score %d", u.Ended, m.sess.Score)
	return m.recordScore(u)
}

func (m *Model) recordScore(u session.Update) tea.Cmd {
	if m.store == nil {
		return nil
	}
	res := scores.Result{
		Player:    m.playerName,
		Score:     m.sess.Score,
		Outcome:   u.Ended.String(),
		Remaining: m.sess.Remaining,
		Duration:  m.sess.Config.Duration,
	}
	if u.Ended == session.EndSuccess && u.Entered != nil {
		res.Target = u.Entered.Name
	}
	store := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		id, err := store.Record(ctx, res)
		return scoreRecordedMsg{id: id, err: err}
	}
}

func (m *Model) switchMode() {
	next := session.ModeGame
	if m.sess.Mode == session.ModeGame {
		next = session.ModeExplore
	}
	m.sess.SetMode(next)
	m.statusMsg = ""
	m.log.Debug("mode switched to %s", next)
}

func (m *Model) startGame() tea.Cmd {
	if m.sess.Mode != session.ModeGame {
		m.sess.SetMode(session.ModeGame)
	}
	if m.regions().Target() == nil {
		m.statusMsg = "no target region in this set"
		return nil
	}
	if !session.Start(m.sess, m.cfg.Session()) {
		return nil
	}
	m.statusMsg = ""
	m.state.GameStarted(m.sessionID)
	m.log.Info("game started (generation %d)", m.sess.Generation)
	return gameTick(m.sess.Generation)
}

func gameTick(gen uint64) tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return gameTickMsg{gen: gen}
	})
}

// flyToNext centres the camera on the region after the one under the
// pointer. It is disabled during a game.
func (m *Model) flyToNext() tea.Cmd {
	if m.sess.Mode == session.ModeGame {
		return nil
	}
	regs := m.regions().Regions()
	if len(regs) == 0 {
		return nil
	}
	next := 0
	if cur := m.sess.Region; cur != nil {
		next = (cur.Index + 1) % len(regs)
	}
	var cmd tea.Cmd
	m.skyView, cmd = m.skyView.FlyTo(regs[next].Centroid())
	m.statusMsg = "→ " + regs[next].Name
	return cmd
}

func (m *Model) copyPopup() tea.Cmd {
	if !m.sess.PopupVisible || m.sess.PopupText == "" {
		return nil
	}
	text := m.sess.PopupText
	return func() tea.Msg {
		if err := clipboard.WriteAll(text); err != nil {
			return noticeMsg("copy failed: " + err.Error())
		}
		return noticeMsg("popup text copied")
	}
}

// openMedia opens the multimedia link of the region under the pointer.
func (m *Model) openMedia() tea.Cmd {
	r := m.sess.Region
	if r == nil {
		return nil
	}
	if r.Media == "" {
		m.statusMsg = "no media for " + r.Name
		return nil
	}
	url, open := r.Media, m.openURL
	return func() tea.Msg {
		if err := open(url); err != nil {
			return noticeMsg(fmt.Sprintf("open failed: %v (%s)", err, url))
		}
		return noticeMsg("opened " + url)
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.width < 20 || m.mapHeight() < 5 {
		return "Sky map requires a larger terminal"
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.skyView.Render(m.regions(), m.sess, m.mouseX, m.mouseY))
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))

	title := renderGradient("LS-TEXTMOC") + dimStyle.Render(" v"+version.Version)
	line1 := title + "  " + m.renderTabs()

	snap := m.state.Snapshot()
	source := dimStyle.Render(fmt.Sprintf("%s · %d regions", snap.Source, snap.Regions.Len()))
	line2 := m.skyView.Header() + " | " + source

	return line1 + "\n" + line2
}

func (m Model) renderTabs() string {
	tabs := []struct {
		mode  session.Mode
		label string
	}{
		{session.ModeExplore, "Explore"},
		{session.ModeGame, "Game"},
	}
	activeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9D4EDD")).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))

	var parts []string
	for _, tab := range tabs {
		if tab.mode == m.sess.Mode {
			parts = append(parts, activeStyle.Render("▶ "+tab.label))
		} else {
			parts = append(parts, dimStyle.Render("  "+tab.label))
		}
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderFooter() string {
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	accentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#7B2CBF"))

	var status string
	if m.sess.Mode == session.ModeGame {
		status = m.renderGameStatus()
	} else {
		status = m.renderExploreStatus()
	}
	if m.statusMsg != "" {
		status += "  " + accentStyle.Render(m.statusMsg)
	}

	var help string
	if m.sess.Mode == session.ModeGame {
		help = "s: start | tab: explore | arrows: pan | +/-: zoom | r: reset | q: quit"
	} else {
		help = "tab: game | n: next region | y: copy | o: media | l: labels | arrows: pan | +/-: zoom | r: reset | q: quit"
	}
	return "  " + status + "\n  " + dimStyle.Render(help)
}

func (m Model) renderExploreStatus() string {
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	regionStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229"))

	p := m.sess.Pointer
	if p == nil {
		return dimStyle.Render("Move the pointer over the map")
	}
	coords := dimStyle.Render(p.String())
	if m.sess.Region == nil {
		return coords + dimStyle.Render(" | empty sky")
	}
	status := coords + " | " + regionStyle.Render(m.sess.Region.Name)
	if m.sess.Region.Media != "" {
		status += dimStyle.Render(" ▸ media")
	}
	if n := len(m.regions().HitAll(*p)); n > 1 {
		status += dimStyle.Render(fmt.Sprintf(" (+%d overlapping)", n-1))
	}
	return status
}

func (m Model) renderGameStatus() string {
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	timeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6")).Bold(true)
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#E84A27")).Bold(true)
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)

	st := m.sess
	score := fmt.Sprintf("Score: %d", st.Score)

	var timer string
	switch {
	case st.Warning():
		timer = warnStyle.Render(fmt.Sprintf("Time: %ds", st.Remaining))
	case st.Running:
		timer = timeStyle.Render(fmt.Sprintf("Time: %ds", st.Remaining))
	default:
		timer = dimStyle.Render(fmt.Sprintf("Time: %ds", st.Remaining))
	}

	status := score + " | " + timer
	switch st.End {
	case session.EndSuccess:
		status += " | " + okStyle.Render(st.Message)
	case session.EndTimeout:
		status += " | " + warnStyle.Render(st.Message)
	default:
		if !st.Running {
			status += " | " + dimStyle.Render("Press s to start")
		} else {
			status += " | " + dimStyle.Render("Find the hidden target")
		}
	}

	snap := m.state.Snapshot()
	if snap.GamesPlayed > 0 {
		status += dimStyle.Render(fmt.Sprintf(" | Best: %d · Games: %d", snap.BestScore, snap.GamesPlayed))
	}
	return status
}

// renderGradient renders text with the blue to pink title gradient.
func renderGradient(text string) string {
	runes := []rune(text)
	var b strings.Builder
	for i, r := range runes {
		style := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(gradientColor(i, len(runes))))
		b.WriteString(style.Render(string(r)))
	}
	return b.String()
}

// gradientColor returns a hex color for a position in the title gradient:
// blue (#3B82F6) -> purple (#8B5CF6) -> magenta (#D946EF) -> pink (#EC4899).
func gradientColor(col, width int) string {
	if width <= 0 {
		width = 1
	}
	xRatio := float64(col) / float64(width)

	var r, g, b float64
	switch {
	case xRatio < 0.33:
		t := xRatio / 0.33
		r = lerp(59, 139, t)
		g = lerp(130, 92, t)
		b = 246
	case xRatio < 0.66:
		t := (xRatio - 0.33) / 0.33
		r = lerp(139, 217, t)
		g = lerp(92, 70, t)
		b = lerp(246, 239, t)
	default:
		t := (xRatio - 0.66) / 0.34
		r = lerp(217, 236, t)
		g = lerp(70, 72, t)
		b = lerp(239, 153, t)
	}

	return fmt.Sprintf("#%02X%02X%02X", clampByte(r), clampByte(g), clampByte(b))
}

func clampByte(v float64) int {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return int(math.Round(v))
	}
}
