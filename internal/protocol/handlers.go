package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aaronzipp/battleship/internal/events"
	"github.com/aaronzipp/battleship/internal/game"
)

const internalErrorMessage = "internal error"

// handle runs one request to completion. Failures go back to the sender
// only; nothing else observes a rejected request.
func (s *Server) handle(ctx context.Context, id string, req Request) {
	_, span := s.tracer.Start(ctx, "protocol."+req.Type, trace.WithAttributes(
		attribute.String("participant.id", id),
		attribute.String("request.id", req.RequestID),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC: handling %s from %s: %v", req.Type, id, r)
			span.SetStatus(codes.Error, fmt.Sprint(r))
			s.fail(id, req, fmt.Errorf("%v", r))
		}
	}()

	if s.Debug {
		log.Printf("dispatch: type=%s participant=%s request=%s", req.Type, id, req.RequestID)
	}

	var err error
	switch req.Type {
	case events.RequestCreateSession:
		err = s.handleCreate(id, req)
	case events.RequestJoinSession:
		err = s.handleJoin(id, req)
	case events.RequestPlaceShips:
		err = s.handlePlaceShips(id, req)
	case events.RequestFire:
		err = s.handleFire(id, req)
	case events.RequestRematch:
		err = s.handleRematch(id, req)
	case events.RequestLeaveSession:
		err = s.handleLeave(id, req)
	default:
		err = fmt.Errorf("%w: %q", game.ErrUnknownRequest, req.Type)
	}

	if sess, ok := s.Registry.SessionOf(id); ok {
		span.SetAttributes(attribute.String("session.id", sess.ID))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.fail(id, req, err)
	}
}

func (s *Server) send(to, event, requestID string, data any) {
	s.Outbox.Send(to, events.Message{Type: event, RequestID: requestID, Data: data})
}

func (s *Server) broadcastView(sess *game.Session, event string) {
	s.Outbox.BroadcastPersonalized(sess.ParticipantIDs(), func(pid string) events.Message {
		return events.Message{Type: event, Data: ViewPayload{View: game.ViewFor(sess, pid)}}
	})
}

func (s *Server) fail(id string, req Request, err error) {
	code := game.CodeOf(err)
	msg := err.Error()
	if code == "" || code == game.CodeInvariant {
		msg = internalErrorMessage
	}
	if code != game.CodeValidation && code != game.CodeProtocol {
		log.Printf("ERROR: %s from %s: %v", req.Type, id, err)
	} else if s.Debug {
		log.Printf("dispatch: rejected %s from %s: %v", req.Type, id, err)
	}
	s.send(id, events.EventError, req.RequestID, ErrorPayload{Success: false, Message: msg, Code: string(code)})
}

func decode(req Request, v any) error {
	if len(req.Data) == 0 {
		return fmt.Errorf("%w: missing data", game.ErrMalformedRequest)
	}
	if err := json.Unmarshal(req.Data, v); err != nil {
		return fmt.Errorf("%w: %v", game.ErrMalformedRequest, err)
	}
	return nil
}

func (s *Server) currentSession(id string) (*game.Session, error) {
	sess, ok := s.Registry.SessionOf(id)
	if !ok {
		return nil, game.ErrNotInSession
	}
	return sess, nil
}

// departure remembers who to tell when id leaves its current session
type departure struct {
	session    *game.Session
	opponentID string
}

func (s *Server) departureOf(id string) departure {
	sess, ok := s.Registry.SessionOf(id)
	if !ok {
		return departure{}
	}
	return departure{session: sess, opponentID: sess.OpponentID(id)}
}

// notify tells the remaining participant that the seat next to it emptied,
// unless the session is gone or is the one being entered.
func (s *Server) notify(d departure, entered *game.Session) {
	if d.session == nil || d.opponentID == "" || d.session == entered {
		return
	}
	if _, ok := s.Registry.Get(d.session.ID); !ok {
		return
	}
	s.send(d.opponentID, events.EventOpponentLeft, "", ViewPayload{View: game.ViewFor(d.session, d.opponentID)})
}

func (s *Server) handleCreate(id string, req Request) error {
	prior := s.departureOf(id)
	s.cancelGrace(id)

	sess := s.Registry.Create(id)
	log.Printf("Created session: code=%s host=%s", sess.ID, id)
	s.notify(prior, sess)

	s.send(id, events.EventSessionCreated, req.RequestID, SessionAck{
		Success:   true,
		SessionID: sess.ID,
		View:      game.ViewFor(sess, id),
	})
	return nil
}

func (s *Server) handleJoin(id string, req Request) error {
	var p JoinPayload
	if err := decode(req, &p); err != nil {
		return err
	}
	if p.SessionID == "" {
		return fmt.Errorf("%w: sessionId is required", game.ErrMalformedRequest)
	}

	prior := s.departureOf(id)
	sess, err := s.Registry.Join(p.SessionID, id)
	if err != nil {
		return err
	}
	s.cancelGrace(id)
	log.Printf("Participant joined session: code=%s participant=%s", sess.ID, id)
	s.notify(prior, sess)

	s.send(id, events.EventSessionJoined, req.RequestID, SessionAck{
		Success:   true,
		SessionID: sess.ID,
		View:      game.ViewFor(sess, id),
	})
	hostID := sess.Host().ID
	s.send(hostID, events.EventParticipantJoined, "", ViewPayload{View: game.ViewFor(sess, hostID)})
	return nil
}

func (s *Server) handlePlaceShips(id string, req Request) error {
	sess, err := s.currentSession(id)
	if err != nil {
		return err
	}
	var p PlacePayload
	if err := decode(req, &p); err != nil {
		return err
	}
	if err := sess.PlaceShips(id, p.Ships); err != nil {
		return err
	}

	s.send(id, events.EventShipsPlaced, req.RequestID, ViewPayload{View: game.ViewFor(sess, id)})
	if opp := sess.OpponentID(id); opp != "" {
		s.send(opp, events.EventOpponentReady, "", ViewPayload{View: game.ViewFor(sess, opp)})
	}

	if sess.BothReady() {
		if err := sess.StartGame(); err != nil {
			return err
		}
		log.Printf("Session started: code=%s first=%s", sess.ID, sess.CurrentTurnID())
		s.broadcastView(sess, events.EventSessionStart)
	}
	return nil
}

func (s *Server) handleFire(id string, req Request) error {
	sess, err := s.currentSession(id)
	if err != nil {
		return err
	}
	var p FirePayload
	if err := decode(req, &p); err != nil {
		return err
	}
	if p.X == nil || p.Y == nil {
		return fmt.Errorf("%w: x and y are required", game.ErrMalformedRequest)
	}

	result, err := sess.Fire(id, *p.X, *p.Y)
	if err != nil {
		return err
	}

	s.send(id, events.EventFireResult, req.RequestID, FireAck{FireResult: result, View: game.ViewFor(sess, id)})
	if opp := sess.OpponentID(id); opp != "" {
		s.send(opp, events.EventOpponentFired, "", OpponentFiredPayload{
			X:        result.X,
			Y:        result.Y,
			Hit:      result.Hit,
			Sunk:     result.Sunk,
			SunkShip: result.SunkShip,
			View:     game.ViewFor(sess, opp),
		})
	}

	if result.GameOver {
		log.Printf("Session over: code=%s winner=%s", sess.ID, id)
		s.broadcastView(sess, events.EventSessionOver)
	}
	return nil
}

func (s *Server) handleRematch(id string, req Request) error {
	sess, err := s.currentSession(id)
	if err != nil {
		return err
	}
	bothWant, err := sess.RequestRematch(id)
	if err != nil {
		return err
	}

	s.send(id, events.EventRematchStatus, req.RequestID, RematchAck{Success: true, BothWant: bothWant})
	if bothWant {
		log.Printf("Rematch accepted: code=%s", sess.ID)
		s.broadcastView(sess, events.EventRematchAccepted)
		return nil
	}
	if opp := sess.OpponentID(id); opp != "" {
		s.send(opp, events.EventRematchRequested, "", nil)
	}
	return nil
}

func (s *Server) handleLeave(id string, req Request) error {
	prior := s.departureOf(id)
	if prior.session == nil {
		return game.ErrNotInSession
	}
	s.cancelGrace(id)

	_, deleted := s.Registry.Remove(id)
	log.Printf("Participant left session: code=%s participant=%s deleted=%v", prior.session.ID, id, deleted)
	s.notify(prior, nil)

	s.send(id, events.EventSessionLeft, req.RequestID, LeaveAck{Success: true})
	return nil
}
