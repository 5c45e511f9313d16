// Package timekeeper drives the simulation's tick/tock loop: each month,
// every agent gets a tick pass, every commodity market clears, then every
// agent gets a tock pass.
package timekeeper

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/hodger/cyclus/internal/market"
	"github.com/hodger/cyclus/internal/registry"
)

// Timekeeper runs the simulation described by reg for a fixed number of
// months: tick, resolve every market, tock, with every message delivery
// already synchronous (see drainUntilDone's doc comment below).
type Timekeeper struct {
	Registry *registry.Registry

	// OnMonthStart, if set, is called before each tick with the month
	// number. internal/trace's recorder uses it to stamp the month on
	// every transaction/done row it records via messaging.SetSink — this
	// keeps Timekeeper itself unaware that tracing exists.
	OnMonthStart func(month int)
}

// New constructs a Timekeeper over an already-built, frozen registry.
func New(reg *registry.Registry) *Timekeeper {
	return &Timekeeper{Registry: reg}
}

// Run advances the simulation from month 1 through horizon, inclusive,
// stopping at the first error any phase returns. A failed phase aborts the
// current tick/tock cycle without rolling back earlier months.
func (tk *Timekeeper) Run(horizon int) error {
	if !tk.Registry.Frozen() {
		return fmt.Errorf("timekeeper: registry must be frozen before Run")
	}

	commodities := tk.Registry.Commodities()
	sort.Strings(commodities) // deterministic clearing order across a tick

	for t := 1; t <= horizon; t++ {
		if tk.OnMonthStart != nil {
			tk.OnMonthStart(t)
		}
		slog.Info("tick", "month", t)
		if err := tk.tick(t); err != nil {
			return fmt.Errorf("timekeeper: tick %d: %w", t, err)
		}
		drainUntilDone()

		if err := tk.resolveMarkets(commodities); err != nil {
			return fmt.Errorf("timekeeper: resolve markets at month %d: %w", t, err)
		}
		drainUntilDone()

		slog.Info("tock", "month", t)
		if err := tk.tock(t); err != nil {
			return fmt.Errorf("timekeeper: tock %d: %w", t, err)
		}
		drainUntilDone()
	}
	return nil
}

// tick visits every root in registration order, then recurses — a
// pre-order traversal of the region/institution/facility tree.
func (tk *Timekeeper) tick(t int) error {
	for _, root := range tk.Registry.Roots() {
		root.HandleTick(t)
	}
	return nil
}

// tock mirrors tick for the tock phase.
func (tk *Timekeeper) tock(t int) error {
	for _, root := range tk.Registry.Roots() {
		root.HandleTock(t)
	}
	return nil
}

// resolveMarkets calls Resolve on every commodity's market, in
// commodity-id (here: lexical) order, for deterministic clearing across a
// single tick.
func (tk *Timekeeper) resolveMarkets(commodities []string) error {
	for _, commodity := range commodities {
		mktAgent, err := tk.Registry.Market(commodity)
		if err != nil {
			return err
		}
		mkt, ok := mktAgent.(*market.Market)
		if !ok {
			return fmt.Errorf("timekeeper: agent registered for commodity %q is not a Market", commodity)
		}
		if err := mkt.Resolve(commodity); err != nil {
			return fmt.Errorf("resolving %q: %w", commodity, err)
		}
	}
	return nil
}

// drainUntilDone is a deliberate no-op: every Message in this
// implementation is delivered by a direct, synchronous call chain through
// SendOn/Receive (see internal/messaging and internal/agent), so nothing
// is ever still in flight by the time a phase function returns. It stays
// as an explicit step so the loop's three phases remain visually distinct.
func drainUntilDone() {}
