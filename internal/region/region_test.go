package region

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/litescript/ls-textmoc/internal/astro"
	"github.com/litescript/ls-textmoc/internal/moc"
)

func cellCentre(order int, pix uint64) astro.Point {
	lon, lat := moc.Pix2Ang(order, pix)
	return astro.Point{Lon: lon, Lat: lat}
}

func TestSplit_RemovesOnlyTextAndTarget(t *testing.T) {
	raw := []byte(`{"1":[16,17],"text":"hello","isTarget":true,"name":"A","nested":{"text":"stay"}}`)

	geometry, aux := Split(raw)

	if aux.Text != "hello" {
		t.Errorf("Text = %q, want hello", aux.Text)
	}
	if !aux.IsTarget || !aux.HasTarget {
		t.Errorf("IsTarget/HasTarget = %v/%v, want true/true", aux.IsTarget, aux.HasTarget)
	}
	if gjson.GetBytes(geometry, "text").Exists() {
		t.Error("text should be removed from geometry")
	}
	if gjson.GetBytes(geometry, "isTarget").Exists() {
		t.Error("isTarget should be removed from geometry")
	}

	for _, key := range []string{"1", "name", "nested.text"} {
		before := gjson.GetBytes(raw, key).Raw
		after := gjson.GetBytes(geometry, key).Raw
		if before != after {
			t.Errorf("field %q changed: %s -> %s", key, before, after)
		}
	}
}

func TestSplit_NoAuxFields(t *testing.T) {
	raw := []byte(`{"0":[4]}`)
	geometry, aux := Split(raw)
	if !bytes.Equal(geometry, raw) {
		t.Errorf("geometry = %s, want unchanged %s", geometry, raw)
	}
	if aux.Text != "" || aux.IsTarget || aux.HasTarget {
		t.Errorf("aux = %+v, want zero", aux)
	}
}

func TestSplit_MalformedPassesThrough(t *testing.T) {
	raw := []byte(`{"text": "unterminated`)
	geometry, aux := Split(raw)
	if !bytes.Equal(geometry, raw) {
		t.Errorf("geometry = %s, want input unchanged", geometry)
	}
	if aux != (Aux{}) {
		t.Errorf("aux = %+v, want zero", aux)
	}
}

func TestSplit_DoesNotMutateInput(t *testing.T) {
	raw := []byte(`{"0":[4],"text":"x"}`)
	orig := append([]byte(nil), raw...)
	Split(raw)
	if !bytes.Equal(raw, orig) {
		t.Errorf("input mutated: %s", raw)
	}
}

func TestFromRecord(t *testing.T) {
	raw := []byte(`{"name":"Field","0":[4],"text":"hi","priority":3,"color":"#112233","annotated_cells":{"0":{"4":"label"},"x":{"1":"bad"}}}`)
	r, err := FromRecord(raw, 2, DefaultStyle())
	if err != nil {
		t.Fatalf("FromRecord failed: %v", err)
	}

	if r.Name != "Field" || r.Text != "hi" || r.Priority != 3 || r.Index != 2 {
		t.Errorf("region = %+v", r)
	}
	if r.Style.Color != "#112233" {
		t.Errorf("Style.Color = %q, want #112233", r.Style.Color)
	}
	if len(r.Annotations) != 1 || r.Annotations[0].Text != "label" || r.Annotations[0].Pixel != 4 {
		t.Errorf("Annotations = %+v", r.Annotations)
	}
	if !r.Contains(astro.Point{Lon: 0, Lat: 0}) {
		t.Error("region should contain (0,0)")
	}
}

func TestFromRecord_Defaults(t *testing.T) {
	r, err := FromRecord([]byte(`{"3":[1],"custom_text":"from textual moc"}`), 0, DefaultStyle())
	if err != nil {
		t.Fatalf("FromRecord failed: %v", err)
	}
	if r.Name != "Region 1" {
		t.Errorf("Name = %q, want Region 1", r.Name)
	}
	if r.Text != "from textual moc" {
		t.Errorf("Text = %q, want custom_text fallback", r.Text)
	}
}

func TestFromRecord_MediaLinks(t *testing.T) {
	raw := []byte(`{"0":[4],"text":"t","multimedia":"https://example.org/clip.mp4","hips2fits_image":"https://example.org/cut.png"}`)
	r, err := FromRecord(raw, 0, DefaultStyle())
	if err != nil {
		t.Fatalf("FromRecord failed: %v", err)
	}
	if r.Media != "https://example.org/clip.mp4" {
		t.Errorf("Media = %q", r.Media)
	}
	if r.Image != "https://example.org/cut.png" {
		t.Errorf("Image = %q", r.Image)
	}
}

func TestFromRecord_BadGeometry(t *testing.T) {
	_, err := FromRecord([]byte(`{"text":"no cells"}`), 0, DefaultStyle())
	if !errors.Is(err, moc.ErrEmpty) {
		t.Errorf("error = %v, want ErrEmpty", err)
	}
}

func loadTestSet(t *testing.T) *Set {
	t.Helper()
	set, err := NewLoader().Load(context.Background(), filepath.Join("testdata", "regions.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return set
}

func TestSet_HitPriority(t *testing.T) {
	set := loadTestSet(t)

	if set.Len() != 3 {
		t.Fatalf("Len = %d, want 3", set.Len())
	}

	tests := []struct {
		name string
		pt   astro.Point
		want string
	}{
		{"overlap resolves to higher priority", cellCentre(1, 16), "Equinox Core"},
		{"outer field only", cellCentre(1, 19), "Vernal Field"},
		{"target", cellCentre(1, 22), "Hidden Target"},
		{"empty sky", astro.Point{Lon: 180, Lat: -60}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := set.Hit(tt.pt)
			name := ""
			if got != nil {
				name = got.Name
			}
			if name != tt.want {
				t.Errorf("Hit(%v) = %q, want %q", tt.pt, name, tt.want)
			}
		})
	}

	all := set.HitAll(cellCentre(1, 16))
	if len(all) != 2 || all[0].Name != "Equinox Core" || all[1].Name != "Vernal Field" {
		t.Errorf("HitAll overlap = %d regions", len(all))
	}
}

func TestSet_EqualPriorityUsesListOrder(t *testing.T) {
	a, _ := FromRecord([]byte(`{"name":"first","0":[4]}`), 0, DefaultStyle())
	b, _ := FromRecord([]byte(`{"name":"second","0":[4]}`), 1, DefaultStyle())
	set := NewSet([]*Region{b, a})

	if got := set.Hit(astro.Point{}); got == nil || got.Name != "first" {
		t.Errorf("Hit = %v, want first", got)
	}
	if regs := set.Regions(); regs[0].Name != "second" {
		t.Errorf("Regions()[0] = %s, want source order preserved", regs[0].Name)
	}
}

func TestSet_TargetAndNearest(t *testing.T) {
	set := loadTestSet(t)

	target := set.Target()
	if target == nil || target.Name != "Hidden Target" {
		t.Fatalf("Target = %v, want Hidden Target", target)
	}

	near, sep := set.Nearest(cellCentre(1, 22))
	if near == nil || near.Name != "Hidden Target" {
		t.Errorf("Nearest = %v, want Hidden Target", near)
	}
	if sep > 1e-6 {
		t.Errorf("separation = %v, want 0", sep)
	}

	if set.ByName("Vernal Field") == nil {
		t.Error("ByName(Vernal Field) = nil")
	}
}

func TestRegion_Same(t *testing.T) {
	a, b := loadTestSet(t), loadTestSet(t)

	tests := []struct {
		name string
		x, y *Region
		want bool
	}{
		{"same pointer", a.ByName("Vernal Field"), a.ByName("Vernal Field"), true},
		{"reloaded copy", a.ByName("Vernal Field"), b.ByName("Vernal Field"), true},
		{"different region", a.ByName("Vernal Field"), b.ByName("Equinox Core"), false},
		{"nil and region", nil, a.ByName("Vernal Field"), false},
		{"both nil", nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.x.Same(tt.y); got != tt.want {
				t.Errorf("Same = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSet_NilSafe(t *testing.T) {
	var set *Set
	if set.Len() != 0 || set.Hit(astro.Point{}) != nil || set.Target() != nil {
		t.Error("nil set should behave as empty")
	}
}

func TestLoader_SingleObject(t *testing.T) {
	set, err := NewLoader().Parse([]byte(`{"0":[4],"text":"solo"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if set.Len() != 1 || set.Regions()[0].Text != "solo" {
		t.Errorf("unexpected set: %d regions", set.Len())
	}
}

func TestLoader_Errors(t *testing.T) {
	l := NewLoader()
	if _, err := l.Parse([]byte(`[]`)); !errors.Is(err, ErrNoRegions) {
		t.Errorf("empty list error = %v, want ErrNoRegions", err)
	}
	if _, err := l.Parse([]byte(`   `)); !errors.Is(err, ErrNoRegions) {
		t.Errorf("blank error = %v, want ErrNoRegions", err)
	}
	if _, err := l.Parse([]byte(`{broken`)); err == nil {
		t.Error("broken JSON should fail")
	}
	if _, err := l.Load(context.Background(), filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestLoader_HTTP(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "regions.json"))
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/regions.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	l := NewLoader(WithHTTPClient(srv.Client()))
	set, err := l.Load(context.Background(), srv.URL+"/regions.json")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if set.Len() != 3 {
		t.Errorf("Len = %d, want 3", set.Len())
	}

	if _, err := l.Load(context.Background(), srv.URL+"/missing"); err == nil {
		t.Error("404 should fail")
	}
}

func TestStyleShadeGlyph(t *testing.T) {
	tests := []struct {
		opacity float64
		want    rune
	}{
		{0.1, '░'},
		{0.5, '▒'},
		{0.9, '▓'},
	}
	for _, tt := range tests {
		if got := (Style{Opacity: tt.opacity}).ShadeGlyph(); got != tt.want {
			t.Errorf("ShadeGlyph(%v) = %q, want %q", tt.opacity, got, tt.want)
		}
	}
}
