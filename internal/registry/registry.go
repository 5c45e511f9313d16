// Package registry holds the process-wide lookup tables a running
// simulation needs: every agent by id, every commodity's clearing market,
// and the compile-time facility plugin table.
package registry

import (
	"fmt"
	"os"

	"log/slog"

	"github.com/hodger/cyclus/internal/agent"
	"github.com/hodger/cyclus/internal/facility"
	"github.com/hodger/cyclus/internal/simerr"
)

// Registry is the frozen-after-load index a Timekeeper dispatches against.
// It is built once by the scenario loader and never mutated again once
// Freeze is called — every further registration attempt returns
// simerr.ErrRegistryFrozen.
type Registry struct {
	frozen bool

	agents     map[int]agent.Agent
	commodity  map[string]agent.Agent // commodity name -> Market agent
	roots      []agent.Agent          // top-level Regions, registration order
}

// New constructs an empty, unfrozen Registry.
func New() *Registry {
	return &Registry{
		agents:    make(map[int]agent.Agent),
		commodity: make(map[string]agent.Agent),
	}
}

// RegisterAgent indexes a by id. It is an error to register two agents
// sharing an id, or to register after Freeze.
func (r *Registry) RegisterAgent(a agent.Agent) error {
	if r.frozen {
		return fmt.Errorf("%w: cannot register agent %d after load", simerr.ErrRegistryFrozen, a.ID())
	}
	if _, exists := r.agents[a.ID()]; exists {
		return fmt.Errorf("registry: agent id %d already registered", a.ID())
	}
	r.agents[a.ID()] = a
	return nil
}

// RegisterRoot records a top-level Region so Timekeeper can walk the whole
// forest without the registry needing a separate "is this a root" query.
func (r *Registry) RegisterRoot(a agent.Agent) error {
	if r.frozen {
		return fmt.Errorf("%w: cannot register root %d after load", simerr.ErrRegistryFrozen, a.ID())
	}
	r.roots = append(r.roots, a)
	return nil
}

// RegisterCommodity names the Market that clears a commodity. Re-registering
// the same commodity name is an error — exactly one market per commodity.
func (r *Registry) RegisterCommodity(name string, market agent.Agent) error {
	if r.frozen {
		return fmt.Errorf("%w: cannot register commodity %q after load", simerr.ErrRegistryFrozen, name)
	}
	if _, exists := r.commodity[name]; exists {
		return fmt.Errorf("registry: commodity %q already has a market", name)
	}
	r.commodity[name] = market
	return nil
}

// Freeze locks the registry against further registration. Called once the
// scenario loader has finished building the agent tree.
func (r *Registry) Freeze() { r.frozen = true }

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool { return r.frozen }

// Agent looks an agent up by id.
func (r *Registry) Agent(id int) (agent.Agent, bool) {
	a, ok := r.agents[id]
	return a, ok
}

// Market looks up the market clearing a commodity.
func (r *Registry) Market(commodity string) (agent.Agent, error) {
	m, ok := r.commodity[commodity]
	if !ok {
		return nil, fmt.Errorf("registry: no market registered for commodity %q", commodity)
	}
	return m, nil
}

// Commodities returns every registered commodity name, in no particular
// order; callers that need determinism sort the result themselves (see
// internal/timekeeper, which resolves markets in commodity-id order).
func (r *Registry) Commodities() []string {
	out := make([]string, 0, len(r.commodity))
	for name := range r.commodity {
		out = append(out, name)
	}
	return out
}

// Roots returns the top-level Regions in registration order.
func (r *Registry) Roots() []agent.Agent {
	out := make([]agent.Agent, len(r.roots))
	copy(out, r.roots)
	return out
}

// NewFacility resolves kind against facility.Constructors, the compile-time
// plugin table every facility kind is registered into via its package's
// init(). CYCLUS_PATH is read and logged here for visibility but plays no
// role in resolution — every kind must already be linked into the binary.
func NewFacility(kind string, id int, name, inCommod, outCommod string, params facility.Params) (*facility.Facility, error) {
	ctor, ok := facility.Constructors[kind]
	if !ok {
		return nil, fmt.Errorf("registry: unknown facility kind %q (no compile-time plugin registered)", kind)
	}
	if path := os.Getenv("CYCLUS_PATH"); path != "" {
		slog.Debug("CYCLUS_PATH set but unused by the compile-time plugin table", "kind", kind, "cyclus_path", path)
	}

	behavior := ctor()
	if err := behavior.Init(params); err != nil {
		return nil, fmt.Errorf("registry: initializing facility %q (kind %s): %w", name, kind, err)
	}
	return facility.New(id, name, inCommod, outCommod, behavior), nil
}
