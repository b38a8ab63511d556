package session

// View is a JSON-friendly copy of a State.
type View struct {
	Mode         string      `json:"mode"`
	Inside       bool        `json:"inside"`
	Region       string      `json:"region,omitempty"`
	PopupVisible bool        `json:"popupVisible"`
	PopupText    string      `json:"popupText,omitempty"`
	Pointer      *[2]float64 `json:"pointer,omitempty"`
	Score        int         `json:"score"`
	Running      bool        `json:"running"`
	Remaining    int         `json:"remaining"`
	Warning      bool        `json:"warning"`
	End          string      `json:"end,omitempty"`
	Message      string      `json:"message,omitempty"`
	Generation   uint64      `json:"generation"`
	Cue          string      `json:"cue,omitempty"`
}

// Snapshot copies the state into a View carrying the given cue.
func (s *State) Snapshot(cue Cue) View {
	if s == nil {
		return View{}
	}
	v := View{
		Mode:         s.Mode.String(),
		Inside:       s.Inside,
		PopupVisible: s.PopupVisible,
		PopupText:    s.PopupText,
		Score:        s.Score,
		Running:      s.Running,
		Remaining:    s.Remaining,
		Warning:      s.Warning(),
		End:          s.End.String(),
		Message:      s.Message,
		Generation:   s.Generation,
		Cue:          cue.String(),
	}
	if s.Region != nil {
		v.Region = s.Region.Name
	}
	if s.Pointer != nil {
		v.Pointer = &[2]float64{s.Pointer.Lon, s.Pointer.Lat}
	}
	return v
}
