// Command ls-textmoc is a terminal sky map that shows the text attached to
// annotated sky regions and runs a find-the-target game over them.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"os/user"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/litescript/ls-textmoc/internal/audio"
	"github.com/litescript/ls-textmoc/internal/config"
	"github.com/litescript/ls-textmoc/internal/logging"
	"github.com/litescript/ls-textmoc/internal/region"
	"github.com/litescript/ls-textmoc/internal/scores"
	"github.com/litescript/ls-textmoc/internal/server"
	"github.com/litescript/ls-textmoc/internal/state"
	"github.com/litescript/ls-textmoc/internal/ui"
)

// CLI flags for headless mode
var (
	summaryMode bool
	probeAt     string
	scoresMode  bool
	exportPath  string
)

const (
	minReload = 5 * time.Second
	maxReload = time.Hour
)

// runMode is what main does after configuration.
type runMode int

const (
	runTUI runMode = iota
	runDoc
	runHeadlessMode
	runServe
)

// selectRun picks the run mode. Document editing wins, then headless
// output, then the service when an address is configured.
func selectRun(cfg config.Config, headless, editing bool) runMode {
	switch {
	case editing:
		return runDoc
	case headless:
		return runHeadlessMode
	case cfg.Server.Addr != "":
		return runServe
	default:
		return runTUI
	}
}

func main() {
	// Parse flags
	configPath := flag.String("config", "", "INI configuration file")
	regionsSrc := flag.String("regions", "", "Region JSON file or http(s) URL")
	mode := flag.String("mode", "", "Start mode (explore, game)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	logFile := flag.String("log-file", "", "Write logs to file (TUI mode logs nowhere otherwise)")
	noAudio := flag.Bool("no-audio", false, "Disable audio cues")
	scoresDB := flag.String("scores-db", "", "SQLite file for score history")
	serveAddr := flag.String("serve", "", "Serve HTTP/WebSocket on ADDR instead of the TUI")
	reload := flag.Duration("reload", 0, "Reload the region source at interval (e.g. 1m), 0 disables")
	playerName := flag.String("player", "", "Player name for the score history (default: current user)")
	flag.BoolVar(&summaryMode, "summary", false, "Print region summary instead of TUI")
	flag.StringVar(&probeAt, "probe", "", "Print the region at lon,lat (degrees)")
	flag.BoolVar(&scoresMode, "scores", false, "Print the top scores")
	flag.StringVar(&exportPath, "export", "", "Export regions as JSON to file (use - for stdout)")

	var doc docFlags
	doc.register(flag.CommandLine)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Flags given on the command line override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "regions":
			cfg.Regions.Source = *regionsSrc
		case "mode":
			cfg.Game.Mode = *mode
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-file":
			cfg.LogFile = *logFile
		case "no-audio":
			cfg.Audio.Enabled = !*noAudio
		case "scores-db":
			cfg.Store.Path = *scoresDB
		case "serve":
			cfg.Server.Addr = *serveAddr
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Validate reload interval
	if *reload > 0 {
		if *reload < minReload {
			*reload = minReload
		} else if *reload > maxReload {
			*reload = maxReload
		}
	}

	headless := summaryMode || probeAt != "" || scoresMode || exportPath != ""
	run := selectRun(cfg, headless, doc.active())
	tui := run == runTUI

	// Set up logging
	logger := logging.New(logging.ParseLevel(cfg.LogLevel))
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logger.SetOutput(f)
	} else if tui {
		// Anything on stderr would corrupt the alternate screen.
		logger.SetOutput(io.Discard)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// Document editing needs no regions
	if run == runDoc {
		if err := doc.run(ctx, os.Stdout, logger.Named("doc")); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Initialize components
	stateMgr := state.NewManager(state.DefaultConfig())
	loader := region.NewLoader(
		region.WithTimeout(cfg.Regions.Timeout),
		region.WithStyle(cfg.Style()),
	)
	if err := loadRegions(ctx, loader, cfg.Regions.Source, stateMgr, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	store := openStore(cfg.Store.Path, logger)
	if store != nil {
		defer store.Close()
	}

	if run == runHeadlessMode {
		if err := runHeadless(ctx, os.Stdout, stateMgr, store); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if run == runServe {
		runServer(ctx, cfg, stateMgr, store, loader, *reload, logger)
		return
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: stdout is not a terminal; use -summary, -probe or -serve")
		os.Exit(1)
	}

	player := audio.NewPlayer(audio.Config{
		Enabled:    cfg.Audio.Enabled,
		Volume:     cfg.Audio.Volume,
		SampleRate: cfg.Audio.SampleRate,
	}, logger.Named("audio"))
	_ = player.Init() // failure is logged; cues are skipped
	defer player.Close()

	opts := ui.Options{
		Config:     cfg,
		Player:     player,
		Log:        logger,
		SessionID:  uuid.NewString(),
		PlayerName: resolvePlayer(*playerName),
	}
	if store != nil {
		opts.Store = store
	}

	// Create TUI model
	model := ui.New(stateMgr, opts)

	// Create Bubble Tea program
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseAllMotion())

	// Start reload loop in background
	if *reload > 0 {
		go runReloadLoop(ctx, loader, cfg.Regions.Source, stateMgr, *reload, logger, func(err error) {
			p.Send(ui.RegionsReloadedMsg{Err: err})
		})
	}

	// Run TUI (blocks until quit)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

func loadRegions(ctx context.Context, loader *region.Loader, source string, stateMgr *state.Manager, logger *logging.Logger) error {
	logger.Debug("Loading regions from %s...", source)

	start := time.Now()
	set, err := loader.Load(ctx, source)
	elapsed := time.Since(start)
	stateMgr.SetRegions(set, source, elapsed, err)

	if err != nil {
		logger.Error("Load failed: %v", err)
		return fmt.Errorf("load regions: %w", err)
	}
	logger.Info("Loaded %d regions from %s in %v", set.Len(), source, elapsed)
	return nil
}

// runReloadLoop reloads the region source at interval. A failed reload
// keeps the previous catalog.
func runReloadLoop(ctx context.Context, loader *region.Loader, source string, stateMgr *state.Manager, interval time.Duration, logger *logging.Logger, notify func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Reload loop shutting down")
			return
		case <-ticker.C:
			err := loadRegions(ctx, loader, source, stateMgr, logger)
			if notify != nil {
				notify(err)
			}
		}
	}
}

func openStore(path string, logger *logging.Logger) *scores.Store {
	if path == "" {
		return nil
	}
	store, err := scores.New(path)
	if err != nil {
		// Games still run; results are just not kept.
		logger.Warn("Score history disabled: %v", err)
		return nil
	}
	return store
}

func runServer(ctx context.Context, cfg config.Config, stateMgr *state.Manager, store *scores.Store, loader *region.Loader, reload time.Duration, logger *logging.Logger) {
	var scoreStore server.ScoreStore
	if store != nil {
		scoreStore = store
	}
	srv := server.New(stateMgr, scoreStore, logger.Named("server"), server.Options{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		WriteTimeout:   cfg.Server.WriteTimeout,
		Mode:           cfg.Mode(),
		Session:        cfg.Session(),
	})

	if reload > 0 {
		go runReloadLoop(ctx, loader, cfg.Regions.Source, stateMgr, reload, logger, nil)
	}

	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func resolvePlayer(name string) string {
	if name != "" {
		return name
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "player"
}
