package protocol

import (
	"encoding/json"

	"github.com/aaronzipp/battleship/internal/models"
)

// Request is one client to server frame
type Request struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// JoinPayload is the body of join_session
type JoinPayload struct {
	SessionID string `json:"sessionId"`
}

// PlacePayload is the body of place_ships
type PlacePayload struct {
	Ships []models.ShipPlacement `json:"ships"`
}

// FirePayload is the body of fire. Both coordinates are required.
type FirePayload struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

// WelcomePayload tells a connection which participant id it speaks for
type WelcomePayload struct {
	ParticipantID string `json:"participantId"`
}

// SessionAck answers create_session, join_session and a resumed connection
type SessionAck struct {
	Success   bool               `json:"success"`
	SessionID string             `json:"sessionId"`
	View      models.SessionView `json:"view"`
}

// ViewPayload carries the receiver's projection of the session
type ViewPayload struct {
	View models.SessionView `json:"view"`
}

// FireAck answers fire
type FireAck struct {
	models.FireResult
	View models.SessionView `json:"view"`
}

// OpponentFiredPayload tells the defender where the shot landed
type OpponentFiredPayload struct {
	X        int                `json:"x"`
	Y        int                `json:"y"`
	Hit      bool               `json:"hit"`
	Sunk     bool               `json:"sunk"`
	SunkShip *models.SunkShip   `json:"sunkShip,omitempty"`
	View     models.SessionView `json:"view"`
}

// RematchAck answers request_rematch
type RematchAck struct {
	Success  bool `json:"success"`
	BothWant bool `json:"bothWant"`
}

// LeaveAck answers leave_session
type LeaveAck struct {
	Success bool `json:"success"`
}

// ErrorPayload reports a rejected request to its sender
type ErrorPayload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
