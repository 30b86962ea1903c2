package game

import "github.com/aaronzipp/battleship/internal/models"

// PhaseFor returns the phase as seen by viewerID
func PhaseFor(s *Session, viewerID string) models.Phase {
	if s.winnerID != "" {
		if s.winnerID == viewerID {
			return models.PhaseWon
		}
		return models.PhaseLost
	}
	if s.phase == models.PhasePlacement {
		p, o := s.Participant(viewerID), s.Opponent(viewerID)
		if p != nil && p.Ready() && (o == nil || !o.Ready()) {
			return models.PhaseReady
		}
	}
	return s.phase
}

// TurnFor returns whose turn it is relative to viewerID, or nil when no
// turn is running.
func TurnFor(s *Session, viewerID string) *models.Turn {
	if s.phase != models.PhaseAttack || s.winnerID != "" {
		return nil
	}
	return relative(s.currentTurnID, viewerID)
}

func relative(id, viewerID string) *models.Turn {
	t := models.TurnOpponent
	if id == viewerID {
		t = models.TurnPlayer
	}
	return &t
}

// ViewFor projects the session for one viewer. It is computed on demand
// from the session fields and never cached.
func ViewFor(s *Session, viewerID string) models.SessionView {
	v := models.SessionView{
		SessionID:   s.ID,
		Phase:       PhaseFor(s, viewerID),
		IsHost:      s.IsHost(viewerID),
		CurrentTurn: TurnFor(s, viewerID),
	}
	if o := s.Opponent(viewerID); o != nil {
		v.OpponentConnected = o.Connected()
		v.OpponentReady = o.Ready()
	}
	if s.winnerID != "" {
		v.Winner = relative(s.winnerID, viewerID)
	}
	return v
}
