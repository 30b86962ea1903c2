package models

// Phase is a session phase. The raw session only ever stores waiting,
// placement or attack; ready, won and lost exist in per-viewer projections.
type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhasePlacement Phase = "placement"
	PhaseReady     Phase = "ready"
	PhaseAttack    Phase = "attack"
	PhaseWon       Phase = "won"
	PhaseLost      Phase = "lost"
)

// Turn names a participant relative to the viewer.
type Turn string

const (
	TurnPlayer   Turn = "player"
	TurnOpponent Turn = "opponent"
)
