package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aaronzipp/battleship/internal/events"
	"github.com/aaronzipp/battleship/internal/game"
	"github.com/aaronzipp/battleship/internal/models"
	"github.com/aaronzipp/battleship/internal/store"
)

type sent struct {
	to  string
	msg events.Message
}

// recorder is an Outbox that keeps every message
type recorder struct {
	mu   sync.Mutex
	msgs []sent
	live map[string]bool
}

func (r *recorder) Connected(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live[id]
}

// setLive marks id as having a registered connection
func (r *recorder) setLive(id string, live bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.live == nil {
		r.live = make(map[string]bool)
	}
	r.live[id] = live
}

func (r *recorder) Send(to string, msg events.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, sent{to: to, msg: msg})
	return true
}

func (r *recorder) BroadcastPersonalized(ids []string, render func(string) events.Message) {
	for _, id := range ids {
		r.Send(id, render(id))
	}
}

// take returns and clears the recorded messages
func (r *recorder) take() []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.msgs
	r.msgs = nil
	return out
}

func find(msgs []sent, to, typ string) (events.Message, bool) {
	for _, m := range msgs {
		if m.to == to && m.msg.Type == typ {
			return m.msg, true
		}
	}
	return events.Message{}, false
}

func mustFind(t *testing.T, msgs []sent, to, typ string) events.Message {
	t.Helper()
	msg, ok := find(msgs, to, typ)
	if !ok {
		t.Fatalf("expected %s to receive %s, got %+v", to, typ, msgs)
	}
	return msg
}

func sequence(codes ...string) func() string {
	i := 0
	return func() string {
		c := codes[i%len(codes)]
		i++
		return c
	}
}

func newTestServer() (*Server, *recorder) {
	reg := store.NewRegistry(
		store.WithCodeGenerator(sequence("ABCDEF", "GHJKLM", "NPQRST")),
		store.WithCoin(func() bool { return true }),
	)
	out := &recorder{}
	return NewServer(reg, out, time.Minute), out
}

func request(t *testing.T, typ, requestID string, data any) Request {
	t.Helper()
	req := Request{Type: typ, RequestID: requestID}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		req.Data = raw
	}
	return req
}

func (s *Server) do(id string, req Request) {
	s.dispatch(context.Background(), envelope{kind: kindRequest, participantID: id, req: req})
}

func fleet() []models.ShipPlacement {
	rows := []struct{ id, y, size int }{{1, 0, 5}, {2, 2, 4}, {3, 4, 3}, {4, 6, 3}, {5, 8, 2}}
	var out []models.ShipPlacement
	for _, r := range rows {
		p := models.ShipPlacement{ID: r.id}
		for x := range r.size {
			p.Positions = append(p.Positions, models.Position{X: x, Y: r.y})
		}
		out = append(out, p)
	}
	return out
}

func viewOf(t *testing.T, msg events.Message) models.SessionView {
	t.Helper()
	switch d := msg.Data.(type) {
	case ViewPayload:
		return d.View
	case SessionAck:
		return d.View
	case FireAck:
		return d.View
	case OpponentFiredPayload:
		return d.View
	}
	t.Fatalf("message %s carries no view: %T", msg.Type, msg.Data)
	return models.SessionView{}
}

func errorOf(t *testing.T, msg events.Message) ErrorPayload {
	t.Helper()
	p, ok := msg.Data.(ErrorPayload)
	if !ok {
		t.Fatalf("expected ErrorPayload, got %T", msg.Data)
	}
	return p
}

// paired returns a server where host created ABCDEF and guest joined it
func paired(t *testing.T) (*Server, *recorder) {
	t.Helper()
	s, out := newTestServer()
	s.do("host", request(t, events.RequestCreateSession, "", nil))
	s.do("guest", request(t, events.RequestJoinSession, "", JoinPayload{SessionID: "ABCDEF"}))
	out.take()
	return s, out
}

// started returns a paired server in the attack phase with the host to move
func started(t *testing.T) (*Server, *recorder) {
	t.Helper()
	s, out := paired(t)
	s.do("host", request(t, events.RequestPlaceShips, "", PlacePayload{Ships: fleet()}))
	s.do("guest", request(t, events.RequestPlaceShips, "", PlacePayload{Ships: fleet()}))
	out.take()
	return s, out
}

func TestCreateSession(t *testing.T) {
	s, out := newTestServer()
	s.do("host", request(t, events.RequestCreateSession, "r1", nil))

	msg := mustFind(t, out.take(), "host", events.EventSessionCreated)
	ack := msg.Data.(SessionAck)
	if !ack.Success || ack.SessionID != "ABCDEF" || msg.RequestID != "r1" {
		t.Fatalf("unexpected ack %+v (request %q)", ack, msg.RequestID)
	}
	if ack.View.Phase != models.PhaseWaiting || !ack.View.IsHost {
		t.Fatalf("unexpected view %+v", ack.View)
	}
}

func TestJoinSessionNotifiesHost(t *testing.T) {
	s, out := newTestServer()
	s.do("host", request(t, events.RequestCreateSession, "", nil))
	out.take()

	s.do("guest", request(t, events.RequestJoinSession, "r2", JoinPayload{SessionID: "abcdef"}))
	msgs := out.take()

	ack := mustFind(t, msgs, "guest", events.EventSessionJoined).Data.(SessionAck)
	if !ack.Success || ack.SessionID != "ABCDEF" || ack.View.IsHost {
		t.Fatalf("unexpected ack %+v", ack)
	}
	hostView := viewOf(t, mustFind(t, msgs, "host", events.EventParticipantJoined))
	if hostView.Phase != models.PhasePlacement || !hostView.OpponentConnected {
		t.Fatalf("unexpected host view %+v", hostView)
	}
}

func TestJoinFailures(t *testing.T) {
	s, out := paired(t)

	s.do("third", request(t, events.RequestJoinSession, "r3", JoinPayload{SessionID: "ABCDEF"}))
	msgs := out.take()
	if len(msgs) != 1 {
		t.Fatalf("expected only the sender to hear about it, got %+v", msgs)
	}
	msg := mustFind(t, msgs, "third", events.EventError)
	if p := errorOf(t, msg); p.Success || p.Message != game.ErrSessionFull.Message || p.Code != "protocol" || msg.RequestID != "r3" {
		t.Fatalf("unexpected error %+v", p)
	}

	s.do("third", request(t, events.RequestJoinSession, "", JoinPayload{SessionID: "ZZZZZZ"}))
	if p := errorOf(t, mustFind(t, out.take(), "third", events.EventError)); p.Message != game.ErrSessionNotFound.Message {
		t.Fatalf("unexpected error %+v", p)
	}

	s.do("third", request(t, events.RequestJoinSession, "", nil))
	if p := errorOf(t, mustFind(t, out.take(), "third", events.EventError)); p.Code != "validation" {
		t.Fatalf("expected validation error, got %+v", p)
	}
}

func TestPlaceShipsStartsSession(t *testing.T) {
	s, out := paired(t)

	s.do("host", request(t, events.RequestPlaceShips, "p1", PlacePayload{Ships: fleet()}))
	msgs := out.take()
	if v := viewOf(t, mustFind(t, msgs, "host", events.EventShipsPlaced)); v.Phase != models.PhaseReady {
		t.Fatalf("expected host to see ready, got %s", v.Phase)
	}
	if v := viewOf(t, mustFind(t, msgs, "guest", events.EventOpponentReady)); !v.OpponentReady || v.Phase != models.PhasePlacement {
		t.Fatalf("unexpected guest view %+v", v)
	}
	if _, ok := find(msgs, "host", events.EventSessionStart); ok {
		t.Fatal("expected no start with one fleet placed")
	}

	s.do("guest", request(t, events.RequestPlaceShips, "p2", PlacePayload{Ships: fleet()}))
	msgs = out.take()
	hostStart := viewOf(t, mustFind(t, msgs, "host", events.EventSessionStart))
	guestStart := viewOf(t, mustFind(t, msgs, "guest", events.EventSessionStart))
	if hostStart.Phase != models.PhaseAttack || guestStart.Phase != models.PhaseAttack {
		t.Fatalf("expected attack, got %s/%s", hostStart.Phase, guestStart.Phase)
	}
	if *hostStart.CurrentTurn != models.TurnPlayer || *guestStart.CurrentTurn != models.TurnOpponent {
		t.Fatal("expected host to move first")
	}
}

func TestInvalidPlacementOnlyTellsSender(t *testing.T) {
	s, out := paired(t)
	bad := fleet()[:4]
	s.do("host", request(t, events.RequestPlaceShips, "", PlacePayload{Ships: bad}))
	msgs := out.take()
	if len(msgs) != 1 {
		t.Fatalf("expected a single error, got %+v", msgs)
	}
	if p := errorOf(t, mustFind(t, msgs, "host", events.EventError)); p.Code != "validation" {
		t.Fatalf("expected validation error, got %+v", p)
	}
}

func TestNotInSession(t *testing.T) {
	s, out := newTestServer()
	for _, typ := range []string{events.RequestPlaceShips, events.RequestFire, events.RequestRematch, events.RequestLeaveSession} {
		s.do("loner", request(t, typ, "", FirePayload{}))
		if p := errorOf(t, mustFind(t, out.take(), "loner", events.EventError)); p.Message != game.ErrNotInSession.Message {
			t.Fatalf("%s: expected not in session, got %+v", typ, p)
		}
	}
}

func TestUnknownRequest(t *testing.T) {
	s, out := newTestServer()
	s.do("p", request(t, "teleport", "", nil))
	if p := errorOf(t, mustFind(t, out.take(), "p", events.EventError)); p.Code != "protocol" {
		t.Fatalf("expected protocol error, got %+v", p)
	}
}

func TestFireFlow(t *testing.T) {
	s, out := started(t)
	x, y := 0, 0
	s.do("host", request(t, events.RequestFire, "f1", FirePayload{X: &x, Y: &y}))
	msgs := out.take()

	ack := mustFind(t, msgs, "host", events.EventFireResult).Data.(FireAck)
	if !ack.Hit || ack.X != 0 || ack.Y != 0 || ack.GameOver {
		t.Fatalf("unexpected fire result %+v", ack.FireResult)
	}
	if *ack.View.CurrentTurn != models.TurnOpponent {
		t.Fatal("expected turn to pass to the guest")
	}
	fired := mustFind(t, msgs, "guest", events.EventOpponentFired).Data.(OpponentFiredPayload)
	if !fired.Hit || *fired.View.CurrentTurn != models.TurnPlayer {
		t.Fatalf("unexpected opponent_fired %+v", fired)
	}
	if _, ok := find(msgs, "host", events.EventSessionOver); ok {
		t.Fatal("expected no session_over")
	}
}

func TestFireRejections(t *testing.T) {
	s, out := started(t)
	x, y := 0, 0

	s.do("guest", request(t, events.RequestFire, "", FirePayload{X: &x, Y: &y}))
	msgs := out.take()
	if len(msgs) != 1 || errorOf(t, mustFind(t, msgs, "guest", events.EventError)).Message != game.ErrNotYourTurn.Message {
		t.Fatalf("expected not your turn for the guest only, got %+v", msgs)
	}

	s.do("host", request(t, events.RequestFire, "", FirePayload{X: &x}))
	if p := errorOf(t, mustFind(t, out.take(), "host", events.EventError)); p.Code != "validation" {
		t.Fatalf("expected validation error, got %+v", p)
	}

	bad := 10
	s.do("host", request(t, events.RequestFire, "", FirePayload{X: &bad, Y: &y}))
	if p := errorOf(t, mustFind(t, out.take(), "host", events.EventError)); p.Code != "validation" {
		t.Fatalf("expected validation error, got %+v", p)
	}

	sess, _ := s.Registry.Get("ABCDEF")
	if sess.CurrentTurnID() != "host" {
		t.Fatal("expected rejected shots to keep the turn")
	}
}

// finish has the host sink the guest's fleet while the guest shoots at open water
func finish(t *testing.T, s *Server, out *recorder) []sent {
	t.Helper()
	miss := 0
	for _, ship := range fleet() {
		for _, p := range ship.Positions {
			x, y := p.X, p.Y
			s.do("host", request(t, events.RequestFire, "", FirePayload{X: &x, Y: &y}))
			msgs := out.take()
			if _, ok := find(msgs, "host", events.EventSessionOver); ok {
				return msgs
			}
			gx, gy := miss%game.BoardSize, 1+2*(miss/game.BoardSize)
			s.do("guest", request(t, events.RequestFire, "", FirePayload{X: &gx, Y: &gy}))
			out.take()
			miss++
		}
	}
	t.Fatal("expected the session to end")
	return nil
}

func TestSessionOverBroadcast(t *testing.T) {
	s, out := started(t)
	msgs := finish(t, s, out)

	ack := mustFind(t, msgs, "host", events.EventFireResult).Data.(FireAck)
	if !ack.GameOver || ack.Winner != "host" {
		t.Fatalf("expected winning shot, got %+v", ack.FireResult)
	}
	if v := viewOf(t, mustFind(t, msgs, "host", events.EventSessionOver)); v.Phase != models.PhaseWon {
		t.Fatalf("expected won, got %s", v.Phase)
	}
	if v := viewOf(t, mustFind(t, msgs, "guest", events.EventSessionOver)); v.Phase != models.PhaseLost {
		t.Fatalf("expected lost, got %s", v.Phase)
	}
}

func TestRematchFlow(t *testing.T) {
	s, out := started(t)

	s.do("host", request(t, events.RequestRematch, "", nil))
	if p := errorOf(t, mustFind(t, out.take(), "host", events.EventError)); p.Message != game.ErrRematchUnavailable.Message {
		t.Fatalf("expected rematch unavailable, got %+v", p)
	}

	finish(t, s, out)

	s.do("guest", request(t, events.RequestRematch, "m1", nil))
	msgs := out.take()
	if ack := mustFind(t, msgs, "guest", events.EventRematchStatus).Data.(RematchAck); !ack.Success || ack.BothWant {
		t.Fatalf("unexpected ack %+v", ack)
	}
	mustFind(t, msgs, "host", events.EventRematchRequested)

	s.do("guest", request(t, events.RequestRematch, "m2", nil))
	msgs = out.take()
	if ack := mustFind(t, msgs, "guest", events.EventRematchStatus).Data.(RematchAck); ack.BothWant {
		t.Fatal("expected a repeated request not to count twice")
	}

	s.do("host", request(t, events.RequestRematch, "m3", nil))
	msgs = out.take()
	if ack := mustFind(t, msgs, "host", events.EventRematchStatus).Data.(RematchAck); !ack.BothWant {
		t.Fatal("expected mutual consent")
	}
	for _, id := range []string{"host", "guest"} {
		v := viewOf(t, mustFind(t, msgs, id, events.EventRematchAccepted))
		if v.Phase != models.PhasePlacement || v.Winner != nil || v.OpponentReady {
			t.Fatalf("unexpected view for %s: %+v", id, v)
		}
	}
}

func TestLeaveSession(t *testing.T) {
	s, out := started(t)
	s.do("guest", request(t, events.RequestLeaveSession, "l1", nil))
	msgs := out.take()

	mustFind(t, msgs, "guest", events.EventSessionLeft)
	v := viewOf(t, mustFind(t, msgs, "host", events.EventOpponentLeft))
	if v.Phase != models.PhaseWaiting {
		t.Fatalf("expected host back to waiting, got %s", v.Phase)
	}
	if _, ok := s.Registry.CodeOf("guest"); ok {
		t.Fatal("expected guest unmapped")
	}
}

func TestCreateWhileSeatedNotifiesOpponent(t *testing.T) {
	s, out := started(t)
	s.do("guest", request(t, events.RequestCreateSession, "", nil))
	msgs := out.take()

	ack := mustFind(t, msgs, "guest", events.EventSessionCreated).Data.(SessionAck)
	if ack.SessionID == "ABCDEF" {
		t.Fatal("expected a new session")
	}
	if v := viewOf(t, mustFind(t, msgs, "host", events.EventOpponentLeft)); v.Phase != models.PhaseWaiting {
		t.Fatalf("expected host back to waiting, got %s", v.Phase)
	}
}

func TestFailHidesInternalErrors(t *testing.T) {
	s, out := newTestServer()
	s.fail("p", Request{Type: events.RequestFire, RequestID: "x"}, errors.New("boom"))
	p := errorOf(t, mustFind(t, out.take(), "p", events.EventError))
	if p.Message != internalErrorMessage || p.Code != "" {
		t.Fatalf("expected internal error, got %+v", p)
	}
}
