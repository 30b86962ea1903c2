package game

import "errors"

// Code classifies a game error
type Code string

const (
	// CodeValidation covers illegal input: bad placements, bad or repeated targets.
	CodeValidation Code = "validation"
	// CodeProtocol covers actions taken at the wrong time or by the wrong participant.
	CodeProtocol Code = "protocol"
	// CodeInvariant marks internal defects.
	CodeInvariant Code = "invariant"
)

// Error is a categorized game error. Sentinels are compared by identity.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

var (
	ErrInvalidPosition  = newError(CodeValidation, "invalid position")
	ErrAlreadyAttacked  = newError(CodeValidation, "cell already attacked")
	ErrInvalidPlacement = newError(CodeValidation, "invalid ship placement")
	ErrMalformedRequest = newError(CodeValidation, "malformed request")

	ErrNotInPlacementPhase = newError(CodeProtocol, "session not in placement phase")
	ErrAlreadyPlaced       = newError(CodeProtocol, "ships already placed")
	ErrNotInAttackPhase    = newError(CodeProtocol, "session not in attack phase")
	ErrNotYourTurn         = newError(CodeProtocol, "not your turn")
	ErrSessionOver         = newError(CodeProtocol, "session is over")
	ErrNoOpponent          = newError(CodeProtocol, "no opponent")
	ErrNotReady            = newError(CodeProtocol, "both participants must place ships first")
	ErrNotInSession        = newError(CodeProtocol, "not in a session")
	ErrSessionNotFound     = newError(CodeProtocol, "session not found")
	ErrSessionFull         = newError(CodeProtocol, "session is full")
	ErrAlreadyInSession    = newError(CodeProtocol, "already in this session")
	ErrGuestTaken          = newError(CodeProtocol, "guest slot already taken")
	ErrRematchUnavailable  = newError(CodeProtocol, "rematch not available until the session is over")
	ErrUnknownParticipant  = newError(CodeProtocol, "participant not in session")
	ErrUnknownRequest      = newError(CodeProtocol, "unknown request type")
	ErrResumeFailed        = newError(CodeProtocol, "could not resume session")

	ErrShipNotFound = newError(CodeInvariant, "hit cell has no owning ship")
)

// CodeOf returns the category of err, or the empty code for foreign errors.
func CodeOf(err error) Code {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}
