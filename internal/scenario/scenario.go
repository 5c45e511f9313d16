// Package scenario loads a tree-structured scenario document — horizon,
// commodity declarations, market declarations, and a region → institution
// → facility tree — and builds the live agent hierarchy and registry a
// Timekeeper can run.
package scenario

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/hodger/cyclus/internal/agent"
	"github.com/hodger/cyclus/internal/facility"
	"github.com/hodger/cyclus/internal/market"
	"github.com/hodger/cyclus/internal/registry"
	"github.com/hodger/cyclus/internal/resource"
	"github.com/hodger/cyclus/internal/simerr"
)

// Doc is the decoded shape of a scenario file: horizon in months, the
// commodities traded, the markets that clear them, and the region tree that
// holds every facility.
type Doc struct {
	Horizon     int             `yaml:"horizon"`
	Commodities []CommodityDecl `yaml:"commodities"`
	Markets     []MarketDecl    `yaml:"markets"`
	Regions     []RegionDecl    `yaml:"regions"`
}

// CommodityDecl names a tradable commodity and the kind of market that
// clears it. Build checks that some declared market clears Name; MarketKind
// is not checked against anything and is carried for documentation — this
// repo ships exactly one Market implementation.
type CommodityDecl struct {
	Name       string `yaml:"name"`
	MarketKind string `yaml:"market_kind"`
}

// MarketDecl declares one Market instance and the commodities it clears.
type MarketDecl struct {
	ID          int      `yaml:"id"`
	Name        string   `yaml:"name"`
	Kind        string   `yaml:"kind"`
	Commodities []string `yaml:"commodities"`
}

// RegionDecl declares one root Region and its institutions.
type RegionDecl struct {
	ID           int               `yaml:"id"`
	Name         string            `yaml:"name"`
	Institutions []InstitutionDecl `yaml:"institutions"`
}

// InstitutionDecl declares one Institution and its facilities.
type InstitutionDecl struct {
	ID         int            `yaml:"id"`
	Name       string         `yaml:"name"`
	Facilities []FacilityDecl `yaml:"facilities"`
}

// FacilityDecl declares one Facility leaf: its commodity pair, its plugin
// kind-tag, the kind-specific parameter block the plugin's Init reads, and
// optional starting inventory/stocks — useful for scenarios that want to
// seed a facility with material rather than have it accumulate from zero.
type FacilityDecl struct {
	ID           int             `yaml:"id"`
	Name         string          `yaml:"name"`
	Kind         string          `yaml:"kind"`
	InCommodity  string          `yaml:"in_commodity"`
	OutCommodity string          `yaml:"out_commodity"`
	Params       facility.Params `yaml:"params"`
	Inventory    []ResourceDecl  `yaml:"inventory,omitempty"`
	Stocks       []ResourceDecl  `yaml:"stocks,omitempty"`
}

// ResourceDecl declares one starting Resource.
type ResourceDecl struct {
	Unit        string             `yaml:"unit"`
	Basis       string             `yaml:"basis"` // "atom" or "mass"
	Composition map[string]float64 `yaml:"composition"`
}

// Load decodes a scenario document from r. Any decode failure is wrapped in
// simerr.ErrIO.
func Load(r io.Reader) (*Doc, error) {
	var doc Doc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decoding scenario: %v", simerr.ErrIO, err)
	}
	return &doc, nil
}

// Build instantiates the full agent tree and registry a decoded Doc
// describes, via the compile-time facility plugin table
// (internal/registry.NewFacility). The returned Registry is already frozen;
// callers pass it straight to timekeeper.New.
func Build(doc *Doc) (*registry.Registry, error) {
	if doc.Horizon <= 0 {
		return nil, fmt.Errorf("%w: scenario horizon must be positive, got %d", simerr.ErrIO, doc.Horizon)
	}

	reg := registry.New()
	marketByCommodity := make(map[string]*market.Market)

	for _, md := range doc.Markets {
		mk := market.New(md.ID, md.Name, md.Commodities...)
		if err := reg.RegisterAgent(mk); err != nil {
			return nil, fmt.Errorf("%w: market %q: %v", simerr.ErrIO, md.Name, err)
		}
		for _, c := range md.Commodities {
			if err := reg.RegisterCommodity(c, mk); err != nil {
				return nil, fmt.Errorf("%w: commodity %q: %v", simerr.ErrIO, c, err)
			}
			marketByCommodity[c] = mk
		}
	}

	for _, cd := range doc.Commodities {
		if _, ok := marketByCommodity[cd.Name]; !ok {
			return nil, fmt.Errorf("%w: commodity %q names no market that clears it", simerr.ErrIO, cd.Name)
		}
	}

	lookup := func(commodity string) (agent.Agent, error) {
		mk, ok := marketByCommodity[commodity]
		if !ok {
			return nil, fmt.Errorf("scenario: no market registered for commodity %q", commodity)
		}
		return mk, nil
	}

	for _, rd := range doc.Regions {
		region := agent.NewRegion(rd.ID, rd.Name)
		region.MarketLookup = lookup
		if err := reg.RegisterAgent(region); err != nil {
			return nil, fmt.Errorf("%w: region %q: %v", simerr.ErrIO, rd.Name, err)
		}
		if err := reg.RegisterRoot(region); err != nil {
			return nil, fmt.Errorf("%w: region %q: %v", simerr.ErrIO, rd.Name, err)
		}

		for _, id := range rd.Institutions {
			inst := agent.NewInstitution(id.ID, id.Name, region)
			if err := reg.RegisterAgent(inst); err != nil {
				return nil, fmt.Errorf("%w: institution %q: %v", simerr.ErrIO, id.Name, err)
			}

			for _, fd := range id.Facilities {
				f, err := registry.NewFacility(fd.Kind, fd.ID, fd.Name, fd.InCommodity, fd.OutCommodity, fd.Params)
				if err != nil {
					return nil, fmt.Errorf("%w: facility %q: %v", simerr.ErrIO, fd.Name, err)
				}
				resources, err := buildResources(fd.Inventory)
				if err != nil {
					return nil, fmt.Errorf("%w: facility %q inventory: %v", simerr.ErrIO, fd.Name, err)
				}
				f.Inventory = resources
				stocks, err := buildResources(fd.Stocks)
				if err != nil {
					return nil, fmt.Errorf("%w: facility %q stocks: %v", simerr.ErrIO, fd.Name, err)
				}
				f.Stocks = stocks

				inst.AddFacility(f)
				if err := reg.RegisterAgent(f); err != nil {
					return nil, fmt.Errorf("%w: facility %q: %v", simerr.ErrIO, fd.Name, err)
				}
			}
		}
	}

	reg.Freeze()
	return reg, nil
}

func buildResources(decls []ResourceDecl) ([]*resource.Resource, error) {
	if len(decls) == 0 {
		return nil, nil
	}
	out := make([]*resource.Resource, 0, len(decls))
	for _, d := range decls {
		basis := resource.AtomBased
		switch d.Basis {
		case "", "atom":
			basis = resource.AtomBased
		case "mass":
			basis = resource.MassBased
		default:
			return nil, fmt.Errorf("unknown resource basis %q", d.Basis)
		}
		out = append(out, resource.New(d.Unit, basis, d.Composition))
	}
	return out, nil
}

// SortedCommodityNames returns every commodity name declared across doc's
// Markets, in lexical order — the order internal/timekeeper resolves
// markets in, reused here by validate to report scenarios deterministically.
func SortedCommodityNames(doc *Doc) []string {
	var names []string
	for _, md := range doc.Markets {
		names = append(names, md.Commodities...)
	}
	sort.Strings(names)
	return names
}
