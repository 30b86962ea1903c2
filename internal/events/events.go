package events

// Client to server request types
const (
	RequestCreateSession = "create_session"
	RequestJoinSession   = "join_session"
	RequestPlaceShips    = "place_ships"
	RequestFire          = "fire"
	RequestRematch       = "request_rematch"
	RequestLeaveSession  = "leave_session"
)

// Server to client event types
const (
	EventWelcome              = "welcome"
	EventSessionCreated       = "session_created"
	EventSessionJoined        = "session_joined"
	EventSessionResumed       = "session_resumed"
	EventParticipantJoined    = "participant_joined"
	EventShipsPlaced          = "ships_placed"
	EventOpponentReady        = "opponent_ready"
	EventSessionStart         = "session_start"
	EventFireResult           = "fire_result"
	EventOpponentFired        = "opponent_fired"
	EventSessionOver          = "session_over"
	EventRematchStatus        = "rematch_status"
	EventRematchRequested     = "rematch_requested"
	EventRematchAccepted      = "rematch_accepted"
	EventOpponentDisconnected = "opponent_disconnected"
	EventOpponentReconnected  = "opponent_reconnected"
	EventOpponentLeft         = "opponent_left"
	EventSessionLeft          = "session_left"
	EventError                = "error"
)
