package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/litescript/ls-textmoc/internal/moc"
	"github.com/litescript/ls-textmoc/internal/region"
	"github.com/litescript/ls-textmoc/internal/scores"
	"github.com/litescript/ls-textmoc/internal/session"
	"github.com/litescript/ls-textmoc/internal/state"
)

type memStore struct {
	mu      sync.Mutex
	results []scores.Result
}

func (m *memStore) Record(_ context.Context, r scores.Result) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, r)
	return "id", nil
}

func (m *memStore) Top(_ context.Context, limit int) ([]scores.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.results) < limit {
		limit = len(m.results)
	}
	return append([]scores.Result(nil), m.results[:limit]...), nil
}

func (m *memStore) recorded() []scores.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]scores.Result(nil), m.results...)
}

func testServer(t *testing.T, opts Options) (*httptest.Server, *state.Manager, *memStore) {
	t.Helper()
	set, err := region.NewLoader().Parse([]byte(`[
		{"name":"A","0":[4],"text":"alpha"},
		{"name":"T","0":[6],"text":"target","isTarget":true}
	]`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	mgr := state.NewManager(state.DefaultConfig())
	mgr.SetRegions(set, "test", 0, nil)
	store := &memStore{}

	srv := httptest.NewServer(New(mgr, store, nil, opts).Routes())
	t.Cleanup(srv.Close)
	return srv, mgr, store
}

func faceCentre(f uint64) PointerData {
	lon, lat := moc.Pix2Ang(0, f)
	return PointerData{Lon: lon, Lat: lat}
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?player=tester"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if env := readEnvelope(t, conn); env.Type != MsgHello {
		t.Fatalf("first message = %s, want hello", env.Type)
	}
	readState(t, conn)
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return env
}

func readState(t *testing.T, conn *websocket.Conn) session.View {
	t.Helper()
	env := readEnvelope(t, conn)
	if env.Type != MsgState {
		t.Fatalf("message type = %s (%s), want state", env.Type, env.Data)
	}
	var v session.View
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return v
}

func sendMsg(t *testing.T, conn *websocket.Conn, typ string, data interface{}) {
	t.Helper()
	env := map[string]interface{}{"type": typ}
	if data != nil {
		env["data"] = data
	}
	if err := conn.WriteJSON(env); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
}

func TestHealth(t *testing.T) {
	srv, _, _ := testServer(t, Options{})
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestRegionsEndpoint(t *testing.T) {
	srv, _, _ := testServer(t, Options{})
	resp, err := http.Get(srv.URL + "/api/regions")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out []region.Export
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 || out[0].Name != "A" || !out[1].IsTarget {
		t.Errorf("regions = %+v", out)
	}
	if string(out[0].MOC) != `{"0":[4]}` {
		t.Errorf("moc = %s, want {\"0\":[4]}", out[0].MOC)
	}
}

func TestRegionsNotLoaded(t *testing.T) {
	mgr := state.NewManager(state.DefaultConfig())
	srv := httptest.NewServer(New(mgr, nil, nil, Options{}).Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/regions")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/scores")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("scores status = %d, want 404 without a store", resp.StatusCode)
	}
}

func TestBadLimit(t *testing.T) {
	srv, _, _ := testServer(t, Options{})
	for _, path := range []string{"/api/events?limit=x", "/api/scores?limit=-2"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", path, resp.StatusCode)
		}
	}
}

func TestExploreSession(t *testing.T) {
	srv, mgr, _ := testServer(t, Options{Mode: session.ModeExplore})
	conn := dial(t, srv)

	sendMsg(t, conn, MsgPointer, faceCentre(4))
	v := readState(t, conn)
	if v.Cue != "enter" || !v.PopupVisible || v.PopupText != "alpha" {
		t.Errorf("enter state = %+v", v)
	}

	// Null pointer is a no-op and produces no reply; the next reply
	// belongs to the leave.
	sendMsg(t, conn, MsgPointer, nil)
	sendMsg(t, conn, MsgPointer, faceCentre(0))
	v = readState(t, conn)
	if v.Cue != "leave" || v.PopupVisible {
		t.Errorf("leave state = %+v", v)
	}

	events := mgr.RecentEvents(10)
	if len(events) != 2 || events[0].Type != state.EventEnter || events[1].Type != state.EventLeave {
		t.Errorf("events = %+v", events)
	}
}

func TestGameSessionSuccess(t *testing.T) {
	srv, _, store := testServer(t, Options{Mode: session.ModeGame, Session: session.DefaultConfig()})
	conn := dial(t, srv)

	sendMsg(t, conn, MsgStart, nil)
	v := readState(t, conn)
	if !v.Running || v.Remaining != 30 {
		t.Fatalf("start state = %+v", v)
	}

	sendMsg(t, conn, MsgStart, nil)
	if env := readEnvelope(t, conn); env.Type != MsgError {
		t.Errorf("second start reply = %s, want error", env.Type)
	}

	sendMsg(t, conn, MsgPointer, faceCentre(4))
	if v := readState(t, conn); v.Cue != "error" || !v.Running {
		t.Errorf("wrong region state = %+v", v)
	}

	sendMsg(t, conn, MsgPointer, faceCentre(6))
	v = readState(t, conn)
	if v.Cue != "success" || v.Score != 10 || v.Running || v.End != "success" {
		t.Errorf("target state = %+v", v)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(store.recorded()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	got := store.recorded()
	if len(got) != 1 || got[0].Score != 10 || got[0].Player != "tester" || got[0].Target != "T" {
		t.Errorf("recorded = %+v", got)
	}
}

func TestGameSessionTimeout(t *testing.T) {
	srv, _, store := testServer(t, Options{
		Mode:         session.ModeGame,
		Session:      session.Config{Duration: 3, TargetPoints: 10, WarningSeconds: 1},
		TickInterval: 10 * time.Millisecond,
	})
	conn := dial(t, srv)

	sendMsg(t, conn, MsgStart, nil)
	readState(t, conn)

	var remaining []int
	for {
		v := readState(t, conn)
		remaining = append(remaining, v.Remaining)
		if !v.Running {
			if v.Cue != "timeout" || v.End != "timeout" {
				t.Errorf("final state = %+v", v)
			}
			break
		}
		if len(remaining) > 10 {
			t.Fatal("game did not time out")
		}
	}

	want := []int{2, 1, 0}
	if len(remaining) != len(want) {
		t.Fatalf("countdown = %v, want %v", remaining, want)
	}
	for i := range want {
		if remaining[i] != want[i] {
			t.Errorf("countdown = %v, want %v", remaining, want)
			break
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(store.recorded()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := store.recorded(); len(got) != 1 || got[0].Outcome != "timeout" {
		t.Errorf("recorded = %+v", got)
	}
}

func TestModeSwitchAndUnknownMessage(t *testing.T) {
	srv, _, _ := testServer(t, Options{Mode: session.ModeExplore})
	conn := dial(t, srv)

	sendMsg(t, conn, MsgStart, nil)
	if env := readEnvelope(t, conn); env.Type != MsgError {
		t.Errorf("start in explore = %s, want error", env.Type)
	}

	sendMsg(t, conn, MsgMode, "game")
	if v := readState(t, conn); v.Mode != "game" {
		t.Errorf("mode = %s, want game", v.Mode)
	}

	sendMsg(t, conn, MsgMode, "arcade")
	if env := readEnvelope(t, conn); env.Type != MsgError {
		t.Errorf("bad mode reply = %s, want error", env.Type)
	}

	sendMsg(t, conn, "dance", nil)
	if env := readEnvelope(t, conn); env.Type != MsgError {
		t.Errorf("unknown type reply = %s, want error", env.Type)
	}
}

func TestOriginCheck(t *testing.T) {
	srv, _, _ := testServer(t, Options{AllowedOrigins: []string{"http://allowed.example"}})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	header := http.Header{"Origin": []string{"http://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Error("dial from disallowed origin should fail")
	}

	header.Set("Origin", "http://allowed.example")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial from allowed origin: %v", err)
	}
	conn.Close()
}

func TestSessionCounting(t *testing.T) {
	srv, mgr, _ := testServer(t, Options{})
	conn := dial(t, srv)

	if got := mgr.Snapshot().ActiveSessions; got != 1 {
		t.Errorf("ActiveSessions = %d, want 1", got)
	}
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for mgr.Snapshot().ActiveSessions != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := mgr.Snapshot().ActiveSessions; got != 0 {
		t.Errorf("ActiveSessions after close = %d, want 0", got)
	}
}

func TestOversizedMessageClosesSession(t *testing.T) {
	srv, mgr, _ := testServer(t, Options{})
	conn := dial(t, srv)

	big := strings.Repeat("x", 2*maxMessageSize)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"pointer","data":"`+big+`"}`)); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseMessageTooBig) {
		t.Errorf("read after oversized frame = %v, want close 1009", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for mgr.Snapshot().ActiveSessions != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := mgr.Snapshot().ActiveSessions; got != 0 {
		t.Errorf("ActiveSessions = %d, want 0", got)
	}
}
