package main

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"livetrack-map/internal/mapview"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsHub fans published events out to every live session and keeps the last
// known payloads so new sessions start from the current picture.
type wsHub struct {
	mu       sync.Mutex
	sessions map[*session]struct{}
	// state is a headless view fed every published event
	state       *mapview.MapView
	lastVehicle []byte
	people      map[string][]byte

	opts      mapview.Options
	queueSize int
	log       logrus.FieldLogger
}

func newHub(opts mapview.Options, queueSize int, log logrus.FieldLogger) *wsHub {
	state := mapview.New(opts, nil, log.WithField("view", "hub"))
	_ = state.OnMount(mapview.DefaultContainer, nil)
	return &wsHub{
		sessions:  make(map[*session]struct{}),
		state:     state,
		people:    make(map[string][]byte),
		opts:      opts,
		queueSize: queueSize,
		log:       log,
	}
}

// publish validates an event against the hub's own view, records it and
// queues it on every session.
func (h *wsHub) publish(name string, payload []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.state.Dispatch(name, payload); err != nil {
		return err
	}
	payload = append([]byte(nil), payload...)
	switch name {
	case mapview.EventPerson:
		if id := eventKey(name, payload); id != "" {
			h.people[id] = payload
		}
	case mapview.EventVehicle:
		var v mapview.VehicleState
		if json.Unmarshal(payload, &v) == nil && v.Latitude.Truthy() && v.Longitude.Truthy() {
			h.lastVehicle = payload
		}
	}
	ev := pushEvent{Name: name, Key: eventKey(name, payload), Payload: payload}
	for s := range h.sessions {
		s.enqueue(ev)
	}
	return nil
}

// snapshot returns the events that rebuild the current picture.
func (h *wsHub) snapshot() []pushEvent {
	out := make([]pushEvent, 0, len(h.people)+1)
	if h.lastVehicle != nil {
		out = append(out, pushEvent{Name: mapview.EventVehicle, Key: mapview.EventVehicle, Payload: h.lastVehicle})
	}
	ids := make([]string, 0, len(h.people))
	for id := range h.people {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		out = append(out, pushEvent{Name: mapview.EventPerson, Key: id, Payload: h.people[id]})
	}
	return out
}

// add registers s and queues the replay before any later event can reach it.
func (h *wsHub) add(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	replay := h.snapshot()
	s.events = make(chan pushEvent, h.queueSize+len(replay))
	for _, ev := range replay {
		s.events <- ev
	}
	h.sessions[s] = struct{}{}
}

func (h *wsHub) remove(s *session) {
	h.mu.Lock()
	delete(h.sessions, s)
	h.mu.Unlock()
}

func (h *wsHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// closeAll drops every connection; each session unmounts as its read loop ends.
func (h *wsHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.sessions {
		_ = s.conn.Close()
	}
}

func (h *wsHub) markers() []mapview.Marker {
	return h.state.Markers()
}

func (h *wsHub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	s := &session{
		conn: conn,
		done: make(chan struct{}),
		log:  h.log.WithField("remote", r.RemoteAddr),
	}
	s.view = mapview.New(h.opts, mapview.SinkFunc(s.write), s.log)
	h.add(s)
	go s.run(mapview.AttrsFromQuery(r.URL.Query()))
	go h.readPump(s)
}

func (h *wsHub) readPump(s *session) {
	defer func() {
		h.remove(s)
		_ = s.conn.Close()
		close(s.done)
	}()
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// session is one mounted map: a connection, its view and the queue of events
// the view has yet to handle.
type session struct {
	conn   *websocket.Conn
	view   *mapview.MapView
	events chan pushEvent
	done   chan struct{}
	log    logrus.FieldLogger
}

// enqueue never blocks; a full queue drops the event.
func (s *session) enqueue(ev pushEvent) {
	select {
	case s.events <- ev:
	default:
		s.log.WithFields(logrus.Fields{"event": ev.Name, "key": ev.Key}).Warn("session queue full; event dropped")
	}
}

// run owns the view: it mounts it, applies events one at a time in arrival
// order and unmounts when the connection goes away.
func (s *session) run(attrs mapview.Attrs) {
	if err := s.view.OnMount(mapview.DefaultContainer, attrs); err != nil {
		s.log.WithError(err).Error("mount failed")
		_ = s.conn.Close()
		return
	}
	defer s.view.OnUnmount()
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.events:
			if err := s.view.Dispatch(ev.Name, ev.Payload); err != nil {
				s.log.WithError(err).WithField("event", ev.Name).Warn("event rejected")
			}
		}
	}
}

// write sends one change to the browser. It is only called from run.
func (s *session) write(c mapview.Change) {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(c); err != nil {
		s.log.WithError(err).WithField("op", c.Op).Debug("ws write failed")
		_ = s.conn.Close()
	}
}
