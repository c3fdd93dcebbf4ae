package types

// Client -> Server event names.
const (
	EvtClaimRole   = "claim-role"
	EvtPlayerReady = "player-ready"
)

// Server -> Client event names.
const (
	EvtRoleAssigned  = "role-assigned"
	EvtPlayersUpdate = "players-update"
	EvtSomeoneReady  = "someone-ready"
	EvtStartRoll     = "start-roll"
	EvtErrorMsg      = "error-msg"
)

type ClientMessage struct {
	Type string `json:"type"`
	Role string `json:"role,omitempty"`
}

type PlayerInfo struct {
	Role string `json:"role"`
}

// ServerMessage is the single outbound frame shape; which fields are set
// depends on Type. Success is a pointer so role-assigned failures still
// serialize "success":false, and Players has no omitempty so an empty
// roster shows up as an explicit [] on players-update frames.
type ServerMessage struct {
	Type        string           `json:"type"`
	Success     *bool            `json:"success,omitempty"`
	Role        string           `json:"role,omitempty"`
	Message     string           `json:"message,omitempty"`
	Players     []PlayerInfo     `json:"players"`
	RoundPoints map[string][]int `json:"roundPoints,omitempty"`
}
