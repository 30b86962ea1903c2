package models

// SessionView is one participant's projection of a shared session.
// CurrentTurn and Winner are nil when they do not apply.
type SessionView struct {
	SessionID         string `json:"sessionId"`
	Phase             Phase  `json:"phase"`
	IsHost            bool   `json:"isHost"`
	OpponentConnected bool   `json:"opponentConnected"`
	OpponentReady     bool   `json:"opponentReady"`
	CurrentTurn       *Turn  `json:"currentTurn"`
	Winner            *Turn  `json:"winner"`
}

// Stats is a snapshot of registry occupancy
type Stats struct {
	ActiveSessions     int `json:"activeSessions"`
	ActiveParticipants int `json:"activeParticipants"`
}
