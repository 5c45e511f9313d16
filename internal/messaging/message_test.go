package messaging

import (
	"errors"
	"testing"

	"github.com/hodger/cyclus/internal/simerr"
	"github.com/hodger/cyclus/internal/transaction"
)

// stubAgent is a minimal Agent that records delivery order for assertions.
type stubAgent struct {
	id       int
	received []*Message
	onReceive func(*Message) error
}

func (s *stubAgent) ID() int { return s.id }

func (s *stubAgent) Receive(m *Message) error {
	s.received = append(s.received, m)
	if s.onReceive != nil {
		return s.onReceive(m)
	}
	return nil
}

func newTx(t *testing.T) transaction.Transaction {
	tx, err := transaction.New("U", 60, 0, 2)
	if err != nil {
		t.Fatalf("transaction.New: %v", err)
	}
	return tx
}

func TestSetNextDestToSelfIsInvalidRecipient(t *testing.T) {
	a := &stubAgent{id: 1}
	m := New(a, newTx(t))

	if err := m.SetNextDest(a); !errors.Is(err, simerr.ErrInvalidRecipient) {
		t.Fatalf("SetNextDest(self) error = %v, want ErrInvalidRecipient", err)
	}
}

func TestSendOnCircularToOriginator(t *testing.T) {
	facility := &stubAgent{id: 1}
	inst := &stubAgent{id: 2}
	m := New(facility, newTx(t))

	if err := m.SetNextDest(inst); err != nil {
		t.Fatalf("SetNextDest: %v", err)
	}
	if err := m.SendOn(); err != nil {
		t.Fatalf("SendOn (to inst): %v", err)
	}

	// inst forwards straight back to the originator before flipping.
	if err := m.SetNextDest(facility); err != nil {
		t.Fatalf("SetNextDest(originator): %v", err)
	}
	if err := m.SendOn(); !errors.Is(err, simerr.ErrCircular) {
		t.Fatalf("SendOn to originator before flip = %v, want ErrCircular", err)
	}
}

func TestSendOnNoDestination(t *testing.T) {
	a := &stubAgent{id: 1}
	m := New(a, newTx(t))

	if err := m.SendOn(); !errors.Is(err, simerr.ErrNoDestination) {
		t.Fatalf("SendOn with no dest = %v, want ErrNoDestination", err)
	}
}

func TestEmptyStackDownTransitionsToDone(t *testing.T) {
	facility := &stubAgent{id: 1}
	m := New(facility, newTx(t))
	m.ReverseDirection() // UP -> DOWN with empty stack

	if err := m.SendOn(); err != nil {
		t.Fatalf("SendOn on empty DOWN stack = %v, want nil (transitions to DONE)", err)
	}
	if m.Direction != Done {
		t.Fatalf("Direction after empty-stack DOWN send = %v, want DONE", m.Direction)
	}
}

func TestDoneTwiceIsTerminal(t *testing.T) {
	facility := &stubAgent{id: 1}
	m := New(facility, newTx(t))
	m.ReverseDirection() // UP -> DOWN with empty stack
	if err := m.SendOn(); err != nil {
		t.Fatalf("first SendOn on empty DOWN stack: %v", err)
	}

	if err := m.SendOn(); !errors.Is(err, simerr.ErrTerminalMessage) {
		t.Fatalf("second SendOn after DONE = %v, want ErrTerminalMessage", err)
	}
}

func TestRoundTripRetracesPathInReverse(t *testing.T) {
	facility := &stubAgent{id: 1}
	inst := &stubAgent{id: 2}
	region := &stubAgent{id: 3}
	market := &stubAgent{id: 4}

	m := New(facility, newTx(t))

	// UP: facility -> inst -> region -> market
	for _, hop := range []Agent{inst, region, market} {
		if err := m.SetNextDest(hop); err != nil {
			t.Fatalf("SetNextDest(%d): %v", hop.ID(), err)
		}
		if err := m.SendOn(); err != nil {
			t.Fatalf("SendOn to %d: %v", hop.ID(), err)
		}
	}

	upStack := m.PathStack()
	if len(upStack) != 3 {
		t.Fatalf("len(PathStack()) after UP leg = %d, want 3", len(upStack))
	}

	// market flips direction and retraces DOWN.
	m.ReverseDirection()
	if m.Direction != Down {
		t.Fatalf("Direction after ReverseDirection = %v, want DOWN", m.Direction)
	}

	var downVisited []int
	for m.Direction != Done {
		holderBefore := m.CurrentHolder().ID()
		_ = holderBefore
		if err := m.SendOn(); err != nil {
			t.Fatalf("SendOn on DOWN leg: %v", err)
		}
		downVisited = append(downVisited, m.CurrentHolder().ID())
	}

	want := []int{region.ID(), inst.ID(), facility.ID()}
	if len(downVisited) != len(want) {
		t.Fatalf("downVisited = %v, want %v", downVisited, want)
	}
	for i, id := range want {
		if downVisited[i] != id {
			t.Fatalf("downVisited[%d] = %d, want %d", i, downVisited[i], id)
		}
	}

	if m.Direction != Done {
		t.Fatalf("Direction after DOWN leg drains = %v, want DONE", m.Direction)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	facility := &stubAgent{id: 1}
	inst := &stubAgent{id: 2}
	m := New(facility, newTx(t))
	if err := m.SetNextDest(inst); err != nil {
		t.Fatalf("SetNextDest: %v", err)
	}
	if err := m.SendOn(); err != nil {
		t.Fatalf("SendOn: %v", err)
	}

	clone := m.Clone()
	clone.Transaction.Amount = 999

	if m.Transaction.Amount == 999 {
		t.Fatal("mutating clone's transaction affected the original")
	}
	if len(clone.PathStack()) != len(m.PathStack()) {
		t.Fatal("clone's path stack diverged in length from the original")
	}
}

type stubSink struct {
	calls []*Message
}

func (s *stubSink) OnDone(m *Message) { s.calls = append(s.calls, m) }

func TestSetSinkNotifiedOnDone(t *testing.T) {
	sk := &stubSink{}
	SetSink(sk)
	defer SetSink(nil)

	facility := &stubAgent{id: 1}
	m := New(facility, newTx(t))
	m.ReverseDirection() // UP -> DOWN with empty stack

	if err := m.SendOn(); err != nil {
		t.Fatalf("SendOn: %v", err)
	}
	if len(sk.calls) != 1 {
		t.Fatalf("sink received %d calls, want 1", len(sk.calls))
	}
	if sk.calls[0] != m {
		t.Fatal("sink was not passed the completed message")
	}
}

func TestSetNextDestIgnoredWhileDown(t *testing.T) {
	facility := &stubAgent{id: 1}
	other := &stubAgent{id: 2}
	m := New(facility, newTx(t))
	m.ReverseDirection()

	if err := m.SetNextDest(other); err != nil {
		t.Fatalf("SetNextDest while DOWN returned error, want silent no-op: %v", err)
	}
	if m.NextDest() != nil {
		t.Fatal("SetNextDest while DOWN mutated nextDest, want no-op")
	}
}
