package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/litescript/ls-textmoc/internal/astro"
	"github.com/litescript/ls-textmoc/internal/logging"
	"github.com/litescript/ls-textmoc/internal/scores"
	"github.com/litescript/ls-textmoc/internal/session"
	"github.com/litescript/ls-textmoc/internal/version"
)

// Message types.
const (
	MsgPointer = "pointer"
	MsgStart   = "start"
	MsgMode    = "mode"
	MsgHello   = "hello"
	MsgState   = "state"
	MsgError   = "error"
)

// maxMessageSize bounds one inbound frame. Client messages are small
// envelopes.
const maxMessageSize = 4096

// Envelope frames every WebSocket message.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// PointerData is the payload of a pointer message. A null payload means
// the pointer left the map.
type PointerData struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Hello is sent once when a session opens.
type Hello struct {
	Session string `json:"session"`
	Mode    string `json:"mode"`
	Version string `json:"version"`
}

type errorMsg struct {
	Message string `json:"message"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade: %v", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)
	c := &connection{
		srv:    s,
		conn:   conn,
		id:     uuid.NewString(),
		player: r.URL.Query().Get("player"),
	}
	c.run(r.Context())
}

// connection owns one session. Only run's goroutine touches st or writes
// to conn; the reader goroutine forwards decoded envelopes.
type connection struct {
	srv    *Server
	conn   *websocket.Conn
	id     string
	player string
	st     *session.State
}

func (c *connection) run(ctx context.Context) {
	s := c.srv
	log := s.log.Named(c.id[:8])

	s.state.SessionOpened()
	defer s.state.SessionClosed()
	defer c.conn.Close()

	c.st = session.New(s.opts.Mode, s.opts.Session)
	log.Info("session opened (%s)", c.st.Mode)

	inbox := make(chan Envelope, 16)
	done := make(chan struct{})
	defer close(done)
	go c.read(inbox, done, log)

	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	if err := c.send(MsgHello, Hello{Session: c.id, Mode: c.st.Mode.String(), Version: version.Version}); err != nil {
		return
	}
	if err := c.sendState(session.CueNone); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-inbox:
			if !ok {
				log.Info("session closed")
				return
			}
			if err := c.handle(ctx, env, ticker); err != nil {
				log.Debug("write: %v", err)
				return
			}
		case <-ticker.C:
			if !c.st.Running {
				continue
			}
			u := session.Tick(c.st, c.st.Generation)
			c.apply(ctx, u)
			if err := c.sendState(u.Cue); err != nil {
				return
			}
		}
	}
}

func (c *connection) read(inbox chan<- Envelope, done <-chan struct{}, log *logging.Logger) {
	defer close(inbox)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			log.Debug("read: %v", err)
			return
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			env = Envelope{Type: MsgError, Data: json.RawMessage(`"malformed message"`)}
		}
		select {
		case inbox <- env:
		case <-done:
			return
		}
	}
}

func (c *connection) handle(ctx context.Context, env Envelope, ticker *time.Ticker) error {
	s := c.srv
	switch env.Type {
	case MsgPointer:
		var p *astro.Point
		if len(env.Data) > 0 && string(env.Data) != "null" {
			var pd PointerData
			if err := json.Unmarshal(env.Data, &pd); err != nil {
				return c.sendError("bad pointer payload")
			}
			p = &astro.Point{Lon: pd.Lon, Lat: pd.Lat}
		}
		u := session.Track(c.st, s.state.Regions(), p)
		if u == (session.Update{}) {
			return nil
		}
		c.apply(ctx, u)
		return c.sendState(u.Cue)

	case MsgStart:
		if c.st.Mode != session.ModeGame {
			return c.sendError("switch to game mode first")
		}
		if !session.Start(c.st, s.opts.Session) {
			return c.sendError("game already running")
		}
		ticker.Reset(s.opts.TickInterval)
		s.state.GameStarted(c.id)
		return c.sendState(session.CueNone)

	case MsgMode:
		var name string
		if err := json.Unmarshal(env.Data, &name); err != nil {
			return c.sendError("bad mode payload")
		}
		m, err := session.ParseMode(name)
		if err != nil {
			return c.sendError(err.Error())
		}
		c.st.SetMode(m)
		return c.sendState(session.CueNone)

	case MsgError:
		return c.sendError("malformed message")

	default:
		return c.sendError(fmt.Sprintf("unknown message type %q", env.Type))
	}
}

// apply records events and, when a game ends, the result.
func (c *connection) apply(ctx context.Context, u session.Update) {
	s := c.srv
	s.state.Observe(c.id, u, c.st)

	if u.Ended == session.EndNone || s.store == nil {
		return
	}
	res := scores.Result{
		Player:    c.player,
		Score:     c.st.Score,
		Outcome:   u.Ended.String(),
		Remaining: c.st.Remaining,
		Duration:  c.st.Config.Duration,
	}
	if u.Ended == session.EndSuccess && u.Entered != nil {
		res.Target = u.Entered.Name
	}
	rctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := s.store.Record(rctx, res); err != nil {
		s.log.Error("record score: %v", err)
	}
}

func (c *connection) send(typ string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	out, err := json.Marshal(Envelope{Type: typ, Data: data})
	if err != nil {
		return err
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.srv.opts.WriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, out)
}

func (c *connection) sendState(cue session.Cue) error {
	return c.send(MsgState, c.st.Snapshot(cue))
}

func (c *connection) sendError(msg string) error {
	return c.send(MsgError, errorMsg{Message: msg})
}
