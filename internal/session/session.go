package session

import (
	"context"
	"errors"

	"github.com/DoyleJ11/dice-table/internal/types"
	"go.uber.org/zap"
)

var ErrInvalidRole = errors.New("role does not exist")
var ErrRoleTaken = errors.New("role already taken")
var ErrAlreadyClaimed = errors.New("connection already claimed a role")
var ErrNotOwner = errors.New("role not owned by caller")

type Msg interface{ isSessionMsg() }

// Join registers a connection's outbox. The coordinator immediately pushes
// the current roster so late joiners see the table before claiming.
type Join struct {
	ConnID string
	Outbox chan types.ServerMessage
}

func (Join) isSessionMsg() {}

type Claim struct {
	ConnID string
	Role   string
}

func (Claim) isSessionMsg() {}

type Ready struct {
	ConnID string
	Role   string
}

func (Ready) isSessionMsg() {}

type Leave struct{ ConnID string }

func (Leave) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

// View is a copy of the coordinator's state, for tests.
type View struct {
	NumClients int
	Assigned   map[string]string
	Claimed    map[string]string
	Ready      map[string]bool
}

// Coordinator owns the whole session state: which connection holds which
// role and which roles are ready for the current round. All mutation goes
// through the inbox and is applied by a single loop goroutine, so every
// claim/ready/disconnect plus its barrier check runs without interleaving.
type Coordinator struct {
	inbox    chan Msg
	roles    []string                            // fixed ordered role set
	assigned map[string]string                   // role -> conn id
	claimed  map[string]string                   // conn id -> role, live conns only
	ready    map[string]bool                     // roles ready for current round
	clients  map[string]chan types.ServerMessage // conn id -> outbox
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewCoordinator(parent context.Context, roles []string, log *zap.Logger) *Coordinator {
	ctx, cancel := context.WithCancel(parent)

	c := &Coordinator{
		inbox:    make(chan Msg, 64),
		roles:    roles,
		assigned: make(map[string]string),
		claimed:  make(map[string]string),
		ready:    make(map[string]bool),
		clients:  make(map[string]chan types.ServerMessage),
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}

	go c.loop()
	return c
}

// Inbox is how the WS layer (and tests) feed events to the coordinator.
func (c *Coordinator) Inbox() chan<- Msg { return c.inbox }

func (c *Coordinator) loop() {
	for {
		select {
		case <-c.ctx.Done():
			c.shutdown()
			return

		case m := <-c.inbox:
			switch msg := m.(type) {
			case Join:
				c.clients[msg.ConnID] = msg.Outbox
				c.push(msg.ConnID, c.rosterMsg())

			case Claim:
				c.handleClaim(msg)

			case Ready:
				c.handleReady(msg)

			case Leave:
				c.handleLeave(msg)

			case GetState:
				msg.Reply <- c.view()

			case Shutdown:
				c.shutdown()
				return
			}
		}
	}
}

// handleClaim grants the role or replies with the first failed check.
// Checks run in order: role exists, role free, connection has no prior
// claim. On failure nothing is mutated and only the requester hears back.
func (c *Coordinator) handleClaim(m Claim) {
	if err := c.claimErr(m); err != nil {
		c.log.Debug("claim rejected",
			zap.String("conn", m.ConnID), zap.String("role", m.Role), zap.Error(err))
		c.push(m.ConnID, claimResult(false, "", err.Error()))
		return
	}

	c.assigned[m.Role] = m.ConnID
	c.claimed[m.ConnID] = m.Role
	c.log.Info("role claimed",
		zap.String("conn", m.ConnID), zap.String("role", m.Role),
		zap.Int("online", len(c.assigned)))

	// Reply lands on the requester's outbox before the roster broadcast,
	// so a single consumer never sees them contradict each other.
	c.push(m.ConnID, claimResult(true, m.Role, ""))
	c.broadcast(c.rosterMsg())
}

func (c *Coordinator) claimErr(m Claim) error {
	if !c.roleExists(m.Role) {
		return ErrInvalidRole
	}
	if _, taken := c.assigned[m.Role]; taken {
		return ErrRoleTaken
	}
	// One claim per connection for its whole lifetime, even if the role it
	// once held has since been freed.
	if _, has := c.claimed[m.ConnID]; has {
		return ErrAlreadyClaimed
	}
	return nil
}

func (c *Coordinator) roleExists(role string) bool {
	for _, r := range c.roles {
		if r == role {
			return true
		}
	}
	return false
}

// handleReady marks the caller's role ready and fires the round if that
// completes the barrier. Re-signaling an already-ready role is a no-op.
func (c *Coordinator) handleReady(m Ready) {
	if owner, ok := c.assigned[m.Role]; !ok || owner != m.ConnID {
		c.push(m.ConnID, types.ServerMessage{
			Type:    types.EvtErrorMsg,
			Message: ErrNotOwner.Error(),
		})
		return
	}

	if c.ready[m.Role] {
		return
	}
	c.ready[m.Role] = true
	c.log.Info("player ready",
		zap.String("role", m.Role),
		zap.Int("ready", len(c.ready)), zap.Int("online", len(c.assigned)))

	c.broadcastExcept(m.ConnID, types.ServerMessage{
		Type: types.EvtSomeoneReady,
		Role: m.Role,
	})
	c.evalBarrier()
}

// evalBarrier starts a round iff every online role is ready and at least
// one role is online. Only called after a successful ready signal — a
// disconnect that leaves the remaining roles all ready does not trigger.
func (c *Coordinator) evalBarrier() {
	if len(c.assigned) == 0 {
		return
	}
	for role := range c.assigned {
		if !c.ready[role] {
			return
		}
	}

	points := make(map[string][]int, len(c.assigned))
	for role := range c.assigned {
		points[role] = rollDice()
	}
	c.log.Info("round started", zap.Int("players", len(points)))

	c.broadcast(types.ServerMessage{Type: types.EvtStartRoll, RoundPoints: points})
	clear(c.ready)
}

// handleLeave tears down whatever the connection held: its outbox, its
// role, and its ready flag, then tells everyone left. Closing the outbox
// releases the connection's writer goroutine.
func (c *Coordinator) handleLeave(m Leave) {
	if ch, ok := c.clients[m.ConnID]; ok {
		close(ch)
		delete(c.clients, m.ConnID)
	}

	role, ok := c.claimed[m.ConnID]
	if !ok {
		return
	}
	delete(c.claimed, m.ConnID)
	delete(c.assigned, role)
	delete(c.ready, role)
	c.log.Info("role freed",
		zap.String("conn", m.ConnID), zap.String("role", role),
		zap.Int("online", len(c.assigned)))

	c.broadcast(c.rosterMsg())
}

// rosterMsg snapshots the online roles in role-set order.
func (c *Coordinator) rosterMsg() types.ServerMessage {
	players := make([]types.PlayerInfo, 0, len(c.assigned))
	for _, r := range c.roles {
		if _, online := c.assigned[r]; online {
			players = append(players, types.PlayerInfo{Role: r})
		}
	}
	return types.ServerMessage{Type: types.EvtPlayersUpdate, Players: players}
}

func claimResult(success bool, role, message string) types.ServerMessage {
	return types.ServerMessage{
		Type:    types.EvtRoleAssigned,
		Success: &success,
		Role:    role,
		Message: message,
	}
}

func (c *Coordinator) view() View {
	v := View{
		NumClients: len(c.clients),
		Assigned:   make(map[string]string, len(c.assigned)),
		Claimed:    make(map[string]string, len(c.claimed)),
		Ready:      make(map[string]bool, len(c.ready)),
	}
	for k, val := range c.assigned {
		v.Assigned[k] = val
	}
	for k, val := range c.claimed {
		v.Claimed[k] = val
	}
	for k := range c.ready {
		v.Ready[k] = true
	}
	return v
}

func (c *Coordinator) shutdown() {
	for id, ch := range c.clients {
		close(ch)
		delete(c.clients, id)
	}
	c.cancel()
}

// push delivers to one client; broadcast to everyone. A full outbox means
// the client stopped draining, so it gets dropped rather than stall the
// loop — one stuck connection must not block delivery to the rest.
func (c *Coordinator) push(connID string, msg types.ServerMessage) {
	ch, ok := c.clients[connID]
	if !ok {
		return
	}
	select {
	case ch <- msg:
	default:
		c.log.Warn("dropping slow client", zap.String("conn", connID))
		close(ch)
		delete(c.clients, connID)
	}
}

func (c *Coordinator) broadcast(msg types.ServerMessage) {
	for id := range c.clients {
		c.push(id, msg)
	}
}

func (c *Coordinator) broadcastExcept(connID string, msg types.ServerMessage) {
	for id := range c.clients {
		if id == connID {
			continue
		}
		c.push(id, msg)
	}
}
