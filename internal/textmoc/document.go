// Package textmoc edits textual MOC documents: MOC JSON files carrying
// prose, links, metadata, per-cell annotations and a text embedding next to
// the coverage. Keys the package does not know are kept as they are.
package textmoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/litescript/ls-textmoc/internal/moc"
	"github.com/litescript/ls-textmoc/internal/region"
)

// Document keys.
const (
	KeyText           = "custom_text"
	KeyMultimedia     = "multimedia"
	KeyImage          = "hips2fits_image"
	KeyAuthor         = "author"
	KeyDate           = "date"
	KeyLastUpdate     = "last_text_update"
	KeyAnnotations    = "annotated_cells"
	KeyEmbedding      = "embedding"
	KeyEmbeddingModel = "embedding_model"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
)

var (
	ErrCellNotFound = errors.New("cell not in MOC")
	ErrInvalidURL   = errors.New("URL must start with http:// or https://")
	ErrNoText       = errors.New("document has no custom_text")
	ErrNotObject    = errors.New("document is not a JSON object")
)

// Document is a textual MOC held as raw JSON.
type Document struct {
	raw []byte
	now func() time.Time
}

// Parse wraps JSON bytes. The input must be an object.
func Parse(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if !gjson.ValidBytes(trimmed) || !gjson.ParseBytes(trimmed).IsObject() {
		return nil, ErrNotObject
	}
	return &Document{
		raw: append([]byte(nil), trimmed...),
		now: time.Now,
	}, nil
}

// Load reads a document from a file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return d, nil
}

// FromMOC starts a document from a coverage.
func FromMOC(m *moc.MOC) (*Document, error) {
	data, err := m.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode MOC: %w", err)
	}
	return Parse(data)
}

// Bytes returns a copy of the document JSON.
func (d *Document) Bytes() []byte {
	return append([]byte(nil), d.raw...)
}

// Coverage parses the document's cells.
func (d *Document) Coverage() (*moc.MOC, error) {
	return moc.Parse(d.raw)
}

// Region turns the document into a drawable region.
func (d *Document) Region(index int, style region.Style) (*region.Region, error) {
	return region.FromRecord(d.raw, index, style)
}

// String returns the value at key, or "".
func (d *Document) String(key string) string {
	return gjson.GetBytes(d.raw, key).String()
}

func (d *Document) set(key string, value interface{}) error {
	out, err := sjson.SetBytes(d.raw, key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	d.raw = out
	return nil
}

// AnnotateCell attaches text to a cell listed in the MOC.
func (d *Document) AnnotateCell(order int, pixel uint64, text string) error {
	orderKey := strconv.Itoa(order)

	found := false
	gjson.GetBytes(d.raw, orderKey).ForEach(func(_, v gjson.Result) bool {
		if v.Type == gjson.Number && v.Uint() == pixel {
			found = true
			return false
		}
		return true
	})
	if !found {
		return fmt.Errorf("order=%d pixel=%d: %w", order, pixel, ErrCellNotFound)
	}

	cells := map[string]map[string]string{}
	if existing := gjson.GetBytes(d.raw, KeyAnnotations); existing.IsObject() {
		if err := json.Unmarshal([]byte(existing.Raw), &cells); err != nil {
			return fmt.Errorf("decode %s: %w", KeyAnnotations, err)
		}
	}
	if cells[orderKey] == nil {
		cells[orderKey] = map[string]string{}
	}
	cells[orderKey][strconv.FormatUint(pixel, 10)] = text

	encoded, err := json.Marshal(cells)
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeyAnnotations, err)
	}
	out, err := sjson.SetRawBytes(d.raw, KeyAnnotations, encoded)
	if err != nil {
		return fmt.Errorf("set %s: %w", KeyAnnotations, err)
	}
	d.raw = out
	return nil
}

// Annotations returns the per-cell labels.
func (d *Document) Annotations() []region.Annotation {
	r, err := region.FromRecord(d.raw, 0, region.DefaultStyle())
	if err != nil {
		return nil
	}
	return r.Annotations
}

func validURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// SetMultimedia stores a multimedia link.
func (d *Document) SetMultimedia(url string) error {
	if !validURL(url) {
		return fmt.Errorf("multimedia %q: %w", url, ErrInvalidURL)
	}
	return d.set(KeyMultimedia, url)
}

// SetImage stores a hips2fits image link.
func (d *Document) SetImage(url string) error {
	if !validURL(url) {
		return fmt.Errorf("image %q: %w", url, ErrInvalidURL)
	}
	return d.set(KeyImage, url)
}

// UpdateMetadata sets the author when non-empty and the date, defaulting
// to today.
func (d *Document) UpdateMetadata(author, date string) error {
	if author != "" {
		if err := d.set(KeyAuthor, author); err != nil {
			return err
		}
	}
	if date == "" {
		date = d.now().Format(dateLayout)
	}
	return d.set(KeyDate, date)
}

// AppendText adds a line to the custom text and stamps the update time.
func (d *Document) AppendText(text string) error {
	current := gjson.GetBytes(d.raw, KeyText)
	next := text
	if current.Exists() {
		next = current.String() + "\n" + text
	}
	if err := d.set(KeyText, next); err != nil {
		return err
	}
	return d.set(KeyLastUpdate, d.now().Format(timestampLayout))
}

// Save writes the document as indented UTF-8 JSON.
func (d *Document) Save(path string) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, d.raw, "", "  "); err != nil {
		return fmt.Errorf("format document: %w", err)
	}
	buf.WriteByte('\n')
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
