// Package messaging implements the two-leg routing overlay: Messages carry
// a Transaction up an agent hierarchy to a clearing market and back down
// the exact inverse path. See the package's SendOn for the full UP/DOWN/
// DONE state machine.
package messaging

import (
	"fmt"

	"github.com/hodger/cyclus/internal/simerr"
	"github.com/hodger/cyclus/internal/transaction"
)

// Direction tracks which leg of the two-leg path a Message is on.
type Direction uint8

const (
	Up Direction = iota
	Down
	Done
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	default:
		return "DONE"
	}
}

// Sink receives a notification whenever a Message completes its round trip
// (direction transitions to DONE). It is optional ambient observability —
// internal/trace's run recorder is the one implementation — set once via
// SetSink, mirroring slog.SetDefault's package-level configuration style
// rather than threading a recorder through every call in the routing layer.
type Sink interface {
	OnDone(m *Message)
}

var sink Sink

// SetSink installs the process-wide completion sink. Pass nil to disable.
func SetSink(s Sink) { sink = s }

func notifySink(m *Message) {
	if sink != nil {
		sink.OnDone(m)
	}
}

// Agent is the narrow capability Message routing needs from a participant:
// a stable identity and the ability to receive an envelope. The richer
// Agent type in internal/agent satisfies this interface structurally.
type Agent interface {
	ID() int
	Receive(msg *Message) error
}

// Message is the envelope carrying a Transaction through the routing
// overlay. The path stack holds every intermediate hop visited on the UP
// leg, oldest at the bottom (index 0); the DOWN leg pops it in reverse.
type Message struct {
	Direction   Direction
	Transaction transaction.Transaction
	Originator  Agent

	pathStack     []Agent
	nextDest      Agent
	currentHolder Agent
	notified      bool
}

// New creates an empty UP message held by its originator.
func New(originator Agent, tx transaction.Transaction) *Message {
	return &Message{
		Direction:     Up,
		Transaction:   tx,
		Originator:    originator,
		currentHolder: originator,
	}
}

// CurrentHolder returns the agent that most recently received this message.
func (m *Message) CurrentHolder() Agent { return m.currentHolder }

// NextDest returns the destination set by the current holder for the next
// UP hop, or nil if unset.
func (m *Message) NextDest() Agent { return m.nextDest }

// PathStack returns the ordered hops visited on the UP leg, oldest first.
// The returned slice is owned by the caller; mutating it does not affect m.
func (m *Message) PathStack() []Agent {
	out := make([]Agent, len(m.pathStack))
	copy(out, m.pathStack)
	return out
}

// SetNextDest records the next UP hop. It has no effect when the message is
// not heading UP — the down leg simply retraces its stack and ignores
// attempts to redirect it.
func (m *Message) SetNextDest(a Agent) error {
	if m.Direction != Up {
		return nil
	}
	if a != nil && a.ID() == m.currentHolder.ID() {
		return fmt.Errorf("%w: next dest equals current holder", simerr.ErrInvalidRecipient)
	}
	m.nextDest = a
	return nil
}

// SendOn forwards the message one hop according to its current direction.
func (m *Message) SendOn() error {
	switch m.Direction {
	case Up:
		return m.sendUp()
	case Down:
		return m.sendDown()
	default:
		return fmt.Errorf("%w: cannot send on a DONE message", simerr.ErrTerminalMessage)
	}
}

func (m *Message) sendUp() error {
	if m.nextDest == nil {
		return fmt.Errorf("%w: next destination unset", simerr.ErrNoDestination)
	}
	if m.Originator != nil && m.nextDest.ID() == m.Originator.ID() {
		return fmt.Errorf("%w: next dest is the originator before the direction has flipped", simerr.ErrCircular)
	}

	m.pathStack = append(m.pathStack, m.currentHolder)
	m.currentHolder = m.nextDest
	m.nextDest = nil

	return m.currentHolder.Receive(m)
}

func (m *Message) sendDown() error {
	if len(m.pathStack) == 0 {
		// Nothing left to retrace — a DOWN send with an already-empty path
		// stack simply completes the round trip without another delivery.
		m.Direction = Done
		m.notifyDoneOnce()
		return nil
	}

	top := len(m.pathStack) - 1
	popped := m.pathStack[top]
	m.pathStack = m.pathStack[:top]
	m.currentHolder = popped

	if len(m.pathStack) == 0 {
		m.Direction = Done
	}

	err := m.currentHolder.Receive(m)
	if err == nil && m.Direction == Done {
		// currentHolder.Receive may itself recurse into SendOn (Institution
		// and Region forward DOWN messages by calling it again), so this
		// branch is reached once per unwound stack frame even though the
		// message only completes once — notifyDoneOnce collapses that back
		// to a single Sink notification.
		m.notifyDoneOnce()
	}
	return err
}

func (m *Message) notifyDoneOnce() {
	if m.notified {
		return
	}
	m.notified = true
	notifySink(m)
}

// ReverseDirection flips UP to DOWN or DOWN to UP. The path stack already
// contains every intermediate hop in order, so reverse traversal retraces
// them without the originator being pushed onto the stack at flip time.
func (m *Message) ReverseDirection() {
	switch m.Direction {
	case Up:
		m.Direction = Down
	case Down:
		m.Direction = Up
	}
}

// Clone deep-copies the message, including its transaction and path stack.
// The clone shares no Resource ownership with the original.
func (m *Message) Clone() *Message {
	stack := make([]Agent, len(m.pathStack))
	copy(stack, m.pathStack)
	return &Message{
		Direction:     m.Direction,
		Transaction:   m.Transaction.Clone(),
		Originator:    m.Originator,
		pathStack:     stack,
		nextDest:      m.nextDest,
		currentHolder: m.currentHolder,
	}
}
