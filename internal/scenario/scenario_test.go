package scenario

import (
	"errors"
	"strings"
	"testing"

	"github.com/hodger/cyclus/internal/simerr"
)

const validYAML = `
horizon: 6
commodities:
  - name: LEU
    market_kind: standard
  - name: SpentFuel
    market_kind: standard
markets:
  - id: 100
    name: Exchange
    kind: standard
    commodities: [LEU, SpentFuel]
regions:
  - id: 1
    name: Americas
    institutions:
      - id: 2
        name: Utility Co
        facilities:
          - id: 3
            name: EnrichmentCo
            kind: RecipeReactor
            in_commodity: UF6
            out_commodity: LEU
            params:
              inventory_size: 1000
              capacity: 0
            inventory:
              - unit: kg
                basis: mass
                composition: {U235: 50}
          - id: 4
            name: ReactorCo
            kind: RecipeReactor
            in_commodity: LEU
            out_commodity: SpentFuel
            params:
              inventory_size: 1000
              capacity: 30
`

func TestLoadDecodesValidDocument(t *testing.T) {
	doc, err := Load(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Horizon != 6 {
		t.Fatalf("Horizon = %d, want 6", doc.Horizon)
	}
	if len(doc.Regions) != 1 || len(doc.Regions[0].Institutions) != 1 {
		t.Fatalf("unexpected region/institution shape: %+v", doc.Regions)
	}
	if len(doc.Regions[0].Institutions[0].Facilities) != 2 {
		t.Fatalf("expected 2 facilities, got %d", len(doc.Regions[0].Institutions[0].Facilities))
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load(strings.NewReader("horizon: [this is not an int"))
	if !errors.Is(err, simerr.ErrIO) {
		t.Fatalf("Load error = %v, want wrapping simerr.ErrIO", err)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader("horizon: 1\nbogus_field: true\n"))
	if !errors.Is(err, simerr.ErrIO) {
		t.Fatalf("Load error = %v, want wrapping simerr.ErrIO", err)
	}
}

func TestBuildProducesFrozenRegistryAndWiredFacilities(t *testing.T) {
	doc, err := Load(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	reg, err := Build(doc)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !reg.Frozen() {
		t.Fatal("Build should return a frozen registry")
	}
	if len(reg.Roots()) != 1 {
		t.Fatalf("Roots() = %d, want 1", len(reg.Roots()))
	}
	if _, ok := reg.Agent(3); !ok {
		t.Fatal("facility id 3 not registered")
	}
	mk, err := reg.Market("LEU")
	if err != nil {
		t.Fatalf("Market(LEU): %v", err)
	}
	if mk.ID() != 100 {
		t.Fatalf("Market(LEU).ID() = %d, want 100", mk.ID())
	}
}

func TestBuildRejectsUnknownFacilityKind(t *testing.T) {
	doc, err := Load(strings.NewReader(strings.Replace(validYAML, "RecipeReactor", "NoSuchKind", 1)))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := Build(doc); !errors.Is(err, simerr.ErrIO) {
		t.Fatalf("Build error = %v, want wrapping simerr.ErrIO", err)
	}
}

func TestBuildRejectsCommodityWithNoMarket(t *testing.T) {
	doc, err := Load(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	doc.Commodities = append(doc.Commodities, CommodityDecl{Name: "Plutonium", MarketKind: "standard"})
	if _, err := Build(doc); !errors.Is(err, simerr.ErrIO) {
		t.Fatalf("Build error = %v, want wrapping simerr.ErrIO", err)
	}
}

func TestBuildRejectsNonPositiveHorizon(t *testing.T) {
	doc, err := Load(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	doc.Horizon = 0
	if _, err := Build(doc); !errors.Is(err, simerr.ErrIO) {
		t.Fatalf("Build error = %v, want wrapping simerr.ErrIO", err)
	}
}

func TestSortedCommodityNamesIsLexical(t *testing.T) {
	doc, err := Load(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	names := SortedCommodityNames(doc)
	want := []string{"LEU", "SpentFuel"}
	if len(names) != len(want) || names[0] != want[0] || names[1] != want[1] {
		t.Fatalf("SortedCommodityNames = %v, want %v", names, want)
	}
}
