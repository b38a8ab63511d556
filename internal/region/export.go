package region

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/litescript/ls-textmoc/internal/astro"
)

// Export is the JSON-serializable representation of a region.
type Export struct {
	Name        string             `json:"name"`
	Text        string             `json:"text"`
	IsTarget    bool               `json:"isTarget"`
	Priority    int                `json:"priority"`
	Color       string             `json:"color"`
	Media       string             `json:"multimedia,omitempty"`
	Image       string             `json:"hips2fits_image,omitempty"`
	SkyFraction float64            `json:"sky_fraction"`
	MOC         json.RawMessage    `json:"moc"`
	Annotations []AnnotationExport `json:"annotations,omitempty"`
}

// AnnotationExport is a JSON-friendly cell annotation.
type AnnotationExport struct {
	Order int    `json:"order"`
	Pixel uint64 `json:"pixel"`
	Text  string `json:"text"`
}

// ExportSet converts every region in source order.
func ExportSet(set *Set) ([]Export, error) {
	regions := set.Regions()
	out := make([]Export, 0, len(regions))
	for _, r := range regions {
		cells, err := r.Coverage.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", r.Name, err)
		}
		e := Export{
			Name:        r.Name,
			Text:        r.Text,
			IsTarget:    r.IsTarget,
			Priority:    r.Priority,
			Color:       r.Style.Color,
			Media:       r.Media,
			Image:       r.Image,
			SkyFraction: r.Coverage.SkyFraction(),
			MOC:         cells,
		}
		for _, a := range r.Annotations {
			e.Annotations = append(e.Annotations, AnnotationExport{Order: a.Order, Pixel: a.Pixel, Text: a.Text})
		}
		out = append(out, e)
	}
	return out, nil
}

// WriteJSON writes the exported set as indented JSON.
func WriteJSON(w io.Writer, set *Set) error {
	out, err := ExportSet(set)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteSummaryTable writes a text table of the set to w.
func WriteSummaryTable(w io.Writer, set *Set, source string, loadedAt time.Time) {
	fmt.Fprintf(w, "Regions from %s @ %s\n", source, loadedAt.Format(time.RFC3339))
	fmt.Fprintln(w, strings.Repeat("─", 78))

	if set.Len() == 0 {
		fmt.Fprintln(w, "No regions")
		return
	}

	fmt.Fprintf(w, "%-3s %-20s %-4s %-6s %-6s %8s  %s\n",
		"#", "Name", "Prio", "Target", "Cells", "Sky %", "Text")
	fmt.Fprintln(w, strings.Repeat("─", 78))

	for _, r := range set.Regions() {
		cells := 0
		for _, pix := range r.Coverage.Cells() {
			cells += len(pix)
		}
		target := ""
		if r.IsTarget {
			target = "yes"
		}
		fmt.Fprintf(w, "%-3d %-20s %4d %-6s %6d %7.3f%%  %s\n",
			r.Index+1,
			truncateStr(r.Name, 20),
			r.Priority,
			target,
			cells,
			r.Coverage.SkyFraction()*100,
			truncateStr(strings.Join(strings.Fields(r.Text), " "), 30),
		)
	}

	fmt.Fprintf(w, "\nTotal: %d regions\n", set.Len())
}

// WriteProbe reports which regions contain p and which one wins.
func WriteProbe(w io.Writer, set *Set, p astro.Point) {
	fmt.Fprintf(w, "Probe %s\n", p)
	hits := set.HitAll(p)
	if len(hits) == 0 {
		near, sep := set.Nearest(p)
		fmt.Fprintln(w, "  empty sky")
		if near != nil {
			fmt.Fprintf(w, "  nearest: %s (%.2f° away)\n", near.Name, sep)
		}
		return
	}
	for i, r := range hits {
		marker := " "
		if i == 0 {
			marker = "▶"
		}
		fmt.Fprintf(w, "  %s %s (priority %d)\n", marker, r.Name, r.Priority)
	}
	if text := hits[0].Text; text != "" {
		fmt.Fprintf(w, "\n%s\n", text)
	}
}

func truncateStr(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-2]) + ".."
}
