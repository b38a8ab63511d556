package region

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Keys carried alongside the coverage data in a region record.
const (
	KeyText     = "text"
	KeyIsTarget = "isTarget"
)

// Aux holds the non-geometric fields removed from a region record.
type Aux struct {
	Text      string
	IsTarget  bool
	HasTarget bool // record carried an isTarget key
}

// Split separates a region record into its geometric payload and the
// auxiliary text/target fields. Exactly the "text" and "isTarget" keys are
// removed; every other field keeps its original bytes. Malformed input is
// returned unchanged with an empty Aux.
func Split(raw []byte) ([]byte, Aux) {
	var aux Aux
	if !gjson.ValidBytes(raw) {
		return raw, aux
	}

	geometry := append([]byte(nil), raw...)
	if res := gjson.GetBytes(raw, KeyText); res.Exists() {
		aux.Text = res.String()
		if out, err := sjson.DeleteBytes(geometry, KeyText); err == nil {
			geometry = out
		}
	}
	if res := gjson.GetBytes(raw, KeyIsTarget); res.Exists() {
		aux.IsTarget = res.Bool()
		aux.HasTarget = true
		if out, err := sjson.DeleteBytes(geometry, KeyIsTarget); err == nil {
			geometry = out
		}
	}
	return geometry, aux
}
