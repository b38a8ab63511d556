package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/litescript/ls-textmoc/internal/logging"
	"github.com/litescript/ls-textmoc/internal/textmoc"
)

// annotateList collects repeated -annotate values.
type annotateList []string

func (a *annotateList) String() string {
	return strings.Join(*a, ", ")
}

func (a *annotateList) Set(v string) error {
	*a = append(*a, v)
	return nil
}

// docFlags drives textual MOC editing.
type docFlags struct {
	path     string
	setText  string
	media    string
	image    string
	author   string
	date     string
	appendTx string
	annotate annotateList
	embed    string
	ollama   string
	info     bool
	out      string
}

func (d *docFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&d.path, "doc", "", "Textual MOC document to edit")
	fs.StringVar(&d.setText, "set-text", "", "Set custom_text from a URL, a file or literal text")
	fs.StringVar(&d.media, "media", "", "Set the multimedia URL")
	fs.StringVar(&d.image, "image", "", "Set the hips2fits image URL")
	fs.StringVar(&d.author, "author", "", "Set the author")
	fs.StringVar(&d.date, "date", "", "Set the date (default today, with -author)")
	fs.StringVar(&d.appendTx, "append", "", "Append a line to custom_text")
	fs.Var(&d.annotate, "annotate", "Annotate a cell as order:pixel=text (repeatable)")
	fs.StringVar(&d.embed, "embed", "", "Store an embedding of custom_text using MODEL")
	fs.StringVar(&d.ollama, "ollama", textmoc.DefaultOllamaURL, "Ollama server URL for -embed")
	fs.BoolVar(&d.info, "info", false, "Print the document summary")
	fs.StringVar(&d.out, "out", "", "Write the edited document here (default: -doc)")
}

func (d *docFlags) active() bool {
	return d.path != ""
}

func (d *docFlags) edits() bool {
	return d.setText != "" || d.media != "" || d.image != "" || d.author != "" ||
		d.date != "" || d.appendTx != "" || len(d.annotate) > 0 || d.embed != ""
}

// run applies the requested edits in a fixed order, saves when anything
// changed and prints the summary when asked.
func (d *docFlags) run(ctx context.Context, w io.Writer, logger *logging.Logger) error {
	doc, err := textmoc.Load(d.path)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 30 * time.Second}

	if d.setText != "" {
		if err := doc.SetText(ctx, client, d.setText); err != nil {
			return err
		}
		logger.Info("custom_text set from %s", truncateSource(d.setText))
	}
	if d.media != "" {
		if err := doc.SetMultimedia(d.media); err != nil {
			return err
		}
	}
	if d.image != "" {
		if err := doc.SetImage(d.image); err != nil {
			return err
		}
	}
	if d.author != "" || d.date != "" {
		if err := doc.UpdateMetadata(d.author, d.date); err != nil {
			return err
		}
	}
	if d.appendTx != "" {
		if err := doc.AppendText(d.appendTx); err != nil {
			return err
		}
	}
	for _, raw := range d.annotate {
		order, pixel, text, err := parseAnnotation(raw)
		if err != nil {
			return err
		}
		if err := doc.AnnotateCell(order, pixel, text); err != nil {
			return err
		}
		logger.Debug("annotated %d:%d", order, pixel)
	}
	if d.embed != "" {
		embedder := textmoc.NewOllamaClient(d.ollama, nil)
		if err := doc.Embed(ctx, embedder, d.embed); err != nil {
			return err
		}
		logger.Info("stored %s embedding", d.embed)
	}

	if d.edits() {
		out := d.out
		if out == "" {
			out = d.path
		}
		if err := doc.Save(out); err != nil {
			return err
		}
		logger.Info("saved %s", out)
	}

	if d.info {
		fmt.Fprint(w, doc.Info().String())
	}
	return nil
}

// parseAnnotation parses "order:pixel=text".
func parseAnnotation(s string) (int, uint64, string, error) {
	cell, text, ok := strings.Cut(s, "=")
	if !ok {
		return 0, 0, "", fmt.Errorf("annotate %q: want order:pixel=text", s)
	}
	o, p, ok := strings.Cut(cell, ":")
	if !ok {
		return 0, 0, "", fmt.Errorf("annotate %q: want order:pixel=text", s)
	}
	order, err := strconv.Atoi(strings.TrimSpace(o))
	if err != nil {
		return 0, 0, "", fmt.Errorf("annotate order: %w", err)
	}
	pixel, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("annotate pixel: %w", err)
	}
	return order, pixel, text, nil
}

func truncateSource(s string) string {
	if len(s) <= 40 {
		return s
	}
	return s[:37] + "..."
}
