package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/litescript/ls-textmoc/internal/astro"
	"github.com/litescript/ls-textmoc/internal/region"
	"github.com/litescript/ls-textmoc/internal/scores"
	"github.com/litescript/ls-textmoc/internal/state"
)

// runHeadless handles all headless modes without starting TUI.
func runHeadless(ctx context.Context, w io.Writer, stateMgr *state.Manager, store *scores.Store) error {
	snap := stateMgr.Snapshot()

	// Export JSON if requested
	if exportPath != "" {
		if exportPath == "-" {
			if err := region.WriteJSON(w, snap.Regions); err != nil {
				return fmt.Errorf("write JSON to stdout: %w", err)
			}
		} else {
			f, err := os.Create(exportPath)
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			defer f.Close()
			if err := region.WriteJSON(f, snap.Regions); err != nil {
				return fmt.Errorf("write JSON to file: %w", err)
			}
		}
	}

	// Print summary table if requested
	if summaryMode {
		region.WriteSummaryTable(w, snap.Regions, snap.Source, snap.LoadedAt)
	}

	if probeAt != "" {
		p, err := parsePoint(probeAt)
		if err != nil {
			return err
		}
		if summaryMode {
			fmt.Fprintln(w)
		}
		region.WriteProbe(w, snap.Regions, p)
	}

	if scoresMode {
		if store == nil {
			return errors.New("score history is disabled (set -scores-db)")
		}
		top, err := store.Top(ctx, scores.DefaultLimit)
		if err != nil {
			return err
		}
		writeScores(w, top)
	}

	return nil
}

// parsePoint parses "lon,lat" in degrees.
func parsePoint(s string) (astro.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return astro.Point{}, fmt.Errorf("probe %q: want lon,lat", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return astro.Point{}, fmt.Errorf("probe lon: %w", err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return astro.Point{}, fmt.Errorf("probe lat: %w", err)
	}
	if lat < -90 || lat > 90 {
		return astro.Point{}, fmt.Errorf("probe lat %v out of range", lat)
	}
	return astro.Point{Lon: astro.NormalizeLon(lon), Lat: lat}, nil
}

func writeScores(w io.Writer, top []scores.Result) {
	fmt.Fprintln(w, "Top scores")
	fmt.Fprintln(w, strings.Repeat("─", 60))
	if len(top) == 0 {
		fmt.Fprintln(w, "No games recorded")
		return
	}
	fmt.Fprintf(w, "%-3s %-14s %5s %-8s %-16s %s\n", "#", "Player", "Score", "Outcome", "Target", "Ended")
	for i, r := range top {
		fmt.Fprintf(w, "%-3d %-14s %5d %-8s %-16s %s\n",
			i+1, r.Player, r.Score, r.Outcome, r.Target, r.EndedAt.Local().Format(time.DateTime))
	}
}
