package textmoc

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Info summarises a document.
type Info struct {
	Text           string
	Image          string
	Multimedia     string
	Author         string
	Date           string
	LastTextUpdate string
	EmbeddingModel string
	EmbeddingDims  int
	Annotations    int
	SkyFraction    float64
}

// Info reads the summary fields.
func (d *Document) Info() Info {
	info := Info{
		Text:           d.String(KeyText),
		Image:          d.String(KeyImage),
		Multimedia:     d.String(KeyMultimedia),
		Author:         d.String(KeyAuthor),
		Date:           d.String(KeyDate),
		LastTextUpdate: d.String(KeyLastUpdate),
		EmbeddingModel: d.String(KeyEmbeddingModel),
		EmbeddingDims:  len(gjson.GetBytes(d.raw, KeyEmbedding).Array()),
		Annotations:    len(d.Annotations()),
	}
	if m, err := d.Coverage(); err == nil {
		info.SkyFraction = m.SkyFraction()
	}
	return info
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// String renders the summary for the terminal.
func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Custom Text: %s\n", orDefault(i.Text, "No custom text available."))
	fmt.Fprintf(&b, "Image URL: %s\n", orDefault(i.Image, "No image URL available."))
	fmt.Fprintf(&b, "Multimedia URL: %s\n", orDefault(i.Multimedia, "No multimedia URL available."))
	fmt.Fprintf(&b, "Author: %s\n", orDefault(i.Author, "Unknown"))
	fmt.Fprintf(&b, "Date: %s\n", orDefault(i.Date, "Unknown"))
	fmt.Fprintf(&b, "Last Text Update: %s\n", orDefault(i.LastTextUpdate, "Never updated"))
	if i.EmbeddingModel != "" {
		fmt.Fprintf(&b, "Embedding: %d dims (%s)\n", i.EmbeddingDims, i.EmbeddingModel)
	}
	fmt.Fprintf(&b, "Annotated cells: %d\n", i.Annotations)
	fmt.Fprintf(&b, "Sky coverage: %.4f%%\n", i.SkyFraction*100)
	return b.String()
}
