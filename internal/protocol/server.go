// Package protocol runs the authoritative dispatch loop. One goroutine owns
// every session and applies requests, disconnects and grace expiries one at
// a time, so sessions need no locks of their own.
package protocol

import (
	"context"
	"errors"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/aaronzipp/battleship/internal/events"
	"github.com/aaronzipp/battleship/internal/game"
	"github.com/aaronzipp/battleship/internal/store"
)

const tracerName = "github.com/aaronzipp/battleship/internal/protocol"

// ErrStopped is returned when submitting to a server that is no longer running
var ErrStopped = errors.New("dispatcher stopped")

// Outbox delivers messages to connected participants
type Outbox interface {
	Send(participantID string, msg events.Message) bool
	BroadcastPersonalized(participantIDs []string, render func(participantID string) events.Message)
	Connected(participantID string) bool
}

type kind int

const (
	kindRequest kind = iota
	kindConnect
	kindDisconnect
	kindExpire
)

type envelope struct {
	kind          kind
	participantID string
	req           Request
	code          string
	seq           uint64
}

type graceTimer struct {
	timer *time.Timer
	seq   uint64
}

// Server is the dispatcher. Create it with NewServer and start Run before
// submitting work.
type Server struct {
	Registry *store.Registry
	Outbox   Outbox
	Grace    time.Duration
	Debug    bool

	inbox   chan envelope
	done    chan struct{}
	timers  map[string]*graceTimer
	nextSeq uint64
	tracer  trace.Tracer
}

// NewServer creates a dispatcher over registry that delivers through outbox.
// A zero grace uses game.ReconnectGrace.
func NewServer(registry *store.Registry, outbox Outbox, grace time.Duration) *Server {
	if grace <= 0 {
		grace = game.ReconnectGrace
	}
	return &Server{
		Registry: registry,
		Outbox:   outbox,
		Grace:    grace,
		inbox:    make(chan envelope, 64),
		done:     make(chan struct{}),
		timers:   make(map[string]*graceTimer),
		tracer:   otel.Tracer(tracerName),
	}
}

// Run processes submitted work until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	defer close(s.done)
	defer s.stopTimers()

	log.Printf("Dispatcher started: grace=%s", s.Grace)
	for {
		select {
		case <-ctx.Done():
			log.Printf("Dispatcher stopping: %v", ctx.Err())
			return ctx.Err()
		case env := <-s.inbox:
			s.dispatch(ctx, env)
		}
	}
}

// Submit queues a request from participantID
func (s *Server) Submit(ctx context.Context, participantID string, req Request) error {
	return s.enqueue(ctx, envelope{kind: kindRequest, participantID: participantID, req: req})
}

// Connect announces a new connection for participantID. A non-empty code
// asks to resume the seat held in that session; without one, any seat the
// participant still holds is resumed.
func (s *Server) Connect(ctx context.Context, participantID, code string) error {
	return s.enqueue(ctx, envelope{kind: kindConnect, participantID: participantID, code: code})
}

// Disconnect announces that participantID's connection dropped
func (s *Server) Disconnect(ctx context.Context, participantID string) error {
	return s.enqueue(ctx, envelope{kind: kindDisconnect, participantID: participantID})
}

func (s *Server) enqueue(ctx context.Context, env envelope) error {
	select {
	case <-s.done:
		return ErrStopped
	default:
	}
	select {
	case s.inbox <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrStopped
	}
}

func (s *Server) dispatch(ctx context.Context, env envelope) {
	switch env.kind {
	case kindRequest:
		s.handle(ctx, env.participantID, env.req)
	case kindConnect:
		s.connect(env.participantID, env.code)
	case kindDisconnect:
		s.disconnect(env.participantID)
	case kindExpire:
		s.expire(env.participantID, env.code, env.seq)
	}
}

func (s *Server) connect(id, code string) {
	s.send(id, events.EventWelcome, "", WelcomePayload{ParticipantID: id})
	if code == "" {
		current, ok := s.Registry.CodeOf(id)
		if !ok {
			return
		}
		code = current
	}

	sess, ok := s.Registry.HandleReconnect(id, code)
	if !ok {
		log.Printf("Resume refused: participant=%s code=%s", id, code)
		s.fail(id, Request{}, game.ErrResumeFailed)
		return
	}
	s.cancelGrace(id)

	log.Printf("Participant resumed: session=%s participant=%s", sess.ID, id)
	s.send(id, events.EventSessionResumed, "", SessionAck{
		Success:   true,
		SessionID: sess.ID,
		View:      game.ViewFor(sess, id),
	})
	if opp := sess.OpponentID(id); opp != "" {
		s.send(opp, events.EventOpponentReconnected, "", ViewPayload{View: game.ViewFor(sess, opp)})
	}
}

// disconnect is ignored when a newer connection for id registered before
// the old one's teardown reached the loop.
func (s *Server) disconnect(id string) {
	if s.Outbox.Connected(id) {
		if s.Debug {
			log.Printf("dispatch: stale disconnect for %s ignored", id)
		}
		return
	}
	sess, opponentID, ok := s.Registry.HandleDisconnect(id)
	if !ok {
		return
	}
	log.Printf("Participant disconnected: session=%s participant=%s grace=%s", sess.ID, id, s.Grace)
	if opponentID != "" {
		s.send(opponentID, events.EventOpponentDisconnected, "", ViewPayload{View: game.ViewFor(sess, opponentID)})
	}
	s.armGrace(id, sess.ID)
}

func (s *Server) armGrace(id, code string) {
	s.cancelGrace(id)
	s.nextSeq++
	seq := s.nextSeq
	t := time.AfterFunc(s.Grace, func() {
		_ = s.enqueue(context.Background(), envelope{kind: kindExpire, participantID: id, code: code, seq: seq})
	})
	s.timers[id] = &graceTimer{timer: t, seq: seq}
}

func (s *Server) cancelGrace(id string) {
	if g, ok := s.timers[id]; ok {
		g.timer.Stop()
		delete(s.timers, id)
	}
}

func (s *Server) stopTimers() {
	for id := range s.timers {
		s.cancelGrace(id)
	}
}

// expire tears down id's membership if it is still away from the session
// the timer was armed for. Superseded timers and sessions deleted by other
// paths are ignored.
func (s *Server) expire(id, code string, seq uint64) {
	if g, ok := s.timers[id]; ok {
		if g.seq != seq {
			return
		}
		delete(s.timers, id)
	}

	current, ok := s.Registry.CodeOf(id)
	if !ok || current != code {
		return
	}
	sess, ok := s.Registry.Get(code)
	if !ok {
		return
	}
	if p := sess.Participant(id); p == nil || p.Connected() {
		return
	}

	_, deleted := s.Registry.Remove(id)
	log.Printf("Grace expired: session=%s participant=%s deleted=%v", code, id, deleted)
}

// pendingGrace reports whether a grace timer is armed for id. It reads
// loop-owned state, so only call it when Run is not running.
func (s *Server) pendingGrace(id string) bool {
	_, ok := s.timers[id]
	return ok
}
