package webmap

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sudorandom/energy-map/pkg/choropleth"
)

// frameMessage is what the page receives for every render.
type frameMessage struct {
	Year         int      `json:"year"`
	Initial      bool     `json:"initial"`
	TransitionMS int64    `json:"transition_ms"`
	Matched      int      `json:"matched"`
	Fills        []string `json:"fills"`
	Error        string   `json:"error,omitempty"`
}

// inputMessage is a slider input event; Value is the raw slider value.
type inputMessage struct {
	Value string `json:"value"`
}

// session is one open page. It owns a controller over its own dataset clone and is driven
// only from the connection's read loop, so the controller and the connection writer are never
// used concurrently.
type session struct {
	conn     *websocket.Conn
	ctrl     *choropleth.Controller
	writeErr error
	log      *zap.Logger
}

func (sess *session) Render(f choropleth.Frame) {
	if sess.writeErr != nil {
		return
	}
	msg := frameMessage{
		Year:         f.Year,
		Initial:      f.Initial,
		TransitionMS: f.Transition.Milliseconds(),
		Matched:      f.Matched,
		Fills:        make([]string, len(f.Fills)),
	}
	for i, c := range f.Fills {
		msg.Fills[i] = choropleth.Hex(c)
	}
	if err := sess.conn.WriteJSON(msg); err != nil {
		sess.writeErr = err
		sess.log.Warn("error writing frame", zap.Error(err))
	}
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	sess := &session{conn: conn, log: s.log.With(zap.String("remote", r.RemoteAddr))}
	sess.ctrl = choropleth.NewController(sess)
	sess.ctrl.Scale = s.scale
	sess.ctrl.Attach(s.data.Clone(), s.page.Year)

	for sess.writeErr == nil {
		var msg inputMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sess.log.Warn("read error", zap.Error(err))
			}
			return
		}
		if err := sess.ctrl.SetYearText(msg.Value); err != nil {
			_ = conn.WriteJSON(frameMessage{Year: sess.ctrl.Year(), Error: err.Error()})
		}
	}
}
