package facility

import (
	"errors"
	"testing"

	"github.com/hodger/cyclus/internal/messaging"
	"github.com/hodger/cyclus/internal/resource"
	"github.com/hodger/cyclus/internal/simerr"
	"github.com/hodger/cyclus/internal/transaction"
)

// noopBehavior satisfies Behavior without doing anything, for tests that
// only exercise Facility's own plumbing.
type noopBehavior struct{}

func (noopBehavior) Init(Params) error        { return nil }
func (noopBehavior) HandleTick(int, *Facility) {}
func (noopBehavior) HandleTock(int, *Facility) {}

func TestReceiveQueuesOrderWhenSupplier(t *testing.T) {
	supplier := New(1, "EnrichmentCo", "UF6", "LEU", noopBehavior{})
	requester := New(2, "ReactorCo", "LEU", "SpentFuel", noopBehavior{})

	tx, err := transaction.New("LEU", -10, 0, 5)
	if err != nil {
		t.Fatalf("transaction.New: %v", err)
	}
	tx.Supplier = supplier
	tx.Requester = requester

	m := messaging.New(requester, tx)
	if err := supplier.Receive(m); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if len(supplier.OrdersWaiting) != 1 {
		t.Fatalf("len(OrdersWaiting) = %d, want 1", len(supplier.OrdersWaiting))
	}
}

func TestReceiveNoOpWhenRequester(t *testing.T) {
	supplier := New(1, "EnrichmentCo", "UF6", "LEU", noopBehavior{})
	requester := New(2, "ReactorCo", "LEU", "SpentFuel", noopBehavior{})

	tx, _ := transaction.New("LEU", -10, 0, 5)
	tx.Supplier = supplier
	tx.Requester = requester

	m := messaging.New(supplier, tx)
	if err := requester.Receive(m); err != nil {
		t.Fatalf("Receive as requester: %v", err)
	}
	if len(requester.OrdersWaiting) != 0 {
		t.Fatal("requester should not queue an order naming another facility as supplier")
	}
}

func TestReceiveRejectsUnrelatedFacility(t *testing.T) {
	supplier := New(1, "EnrichmentCo", "UF6", "LEU", noopBehavior{})
	requester := New(2, "ReactorCo", "LEU", "SpentFuel", noopBehavior{})
	bystander := New(3, "Bystander", "LEU", "SpentFuel", noopBehavior{})

	tx, _ := transaction.New("LEU", -10, 0, 5)
	tx.Supplier = supplier
	tx.Requester = requester

	m := messaging.New(requester, tx)
	if err := bystander.Receive(m); !errors.Is(err, simerr.ErrNotSupplier) {
		t.Fatalf("Receive on unrelated facility = %v, want ErrNotSupplier", err)
	}
}

func TestSendMaterialSplitsInventory(t *testing.T) {
	supplier := New(1, "EnrichmentCo", "UF6", "LEU", noopBehavior{})
	requester := New(2, "ReactorCo", "LEU", "SpentFuel", noopBehavior{})

	supplier.Inventory = []*resource.Resource{
		resource.New("kg", resource.MassBased, map[string]float64{"U235": 100}),
	}

	tx, _ := transaction.New("LEU", 30, 0, 5)
	tx.Supplier = supplier
	tx.Requester = requester

	if err := supplier.SendMaterial(tx, requester); err != nil {
		t.Fatalf("SendMaterial: %v", err)
	}

	if got := supplier.TotalInventory(); got != 70 {
		t.Fatalf("supplier.TotalInventory() after ship = %g, want 70", got)
	}
	if got := requester.TotalStocks(); got != 30 {
		t.Fatalf("requester.TotalStocks() after receipt = %g, want 30", got)
	}
}

func TestSendMaterialRejectsWrongCommodity(t *testing.T) {
	supplier := New(1, "EnrichmentCo", "UF6", "LEU", noopBehavior{})
	requester := New(2, "ReactorCo", "LEU", "SpentFuel", noopBehavior{})

	tx, _ := transaction.New("UF6", 30, 0, 5)
	if err := supplier.SendMaterial(tx, requester); !errors.Is(err, simerr.ErrCommodityMismatch) {
		t.Fatalf("SendMaterial wrong commodity = %v, want ErrCommodityMismatch", err)
	}
}

func TestHandleTockDrainsOrdersWaiting(t *testing.T) {
	supplier := New(1, "EnrichmentCo", "UF6", "LEU", noopBehavior{})
	requester := New(2, "ReactorCo", "LEU", "SpentFuel", noopBehavior{})

	supplier.Inventory = []*resource.Resource{
		resource.New("kg", resource.MassBased, map[string]float64{"U235": 50}),
	}

	tx, _ := transaction.New("LEU", 50, 0, 5)
	tx.Supplier = supplier
	tx.Requester = requester

	m := messaging.New(requester, tx)
	if err := supplier.Receive(m); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	supplier.HandleTock(1)

	if len(supplier.OrdersWaiting) != 0 {
		t.Fatal("OrdersWaiting should be drained after HandleTock")
	}
	if got := requester.TotalStocks(); got != 50 {
		t.Fatalf("requester.TotalStocks() after drain = %g, want 50", got)
	}
}

func TestRecipeReactorInitRequiresCapacityAndInventorySize(t *testing.T) {
	r := &RecipeReactor{}
	if err := r.Init(Params{"capacity": 10.0}); err == nil {
		t.Fatal("Init without inventory_size should fail")
	}
	if err := r.Init(Params{"inventory_size": 100.0, "capacity": 10.0, "lifetime": 480}); err != nil {
		t.Fatalf("Init with required params: %v", err)
	}
	if r.Lifetime != 480 {
		t.Fatalf("Lifetime = %d, want 480", r.Lifetime)
	}
}

func TestRecipeReactorHandleTockConvertsStocksAtCapacityRate(t *testing.T) {
	r := &RecipeReactor{InventorySize: 1000, Capacity: 20}
	f := New(1, "Reactor1", "UF6", "LEU", r)
	f.Stocks = []*resource.Resource{
		resource.New("kg", resource.MassBased, map[string]float64{"UF6": 15}),
	}

	r.HandleTock(1, f)

	if got := f.TotalInventory(); got != 15 {
		t.Fatalf("TotalInventory after tock = %g, want 15 (under capacity, fully converted)", got)
	}
	if got := f.TotalStocks(); got != 0 {
		t.Fatalf("TotalStocks after tock = %g, want 0", got)
	}
}

func TestRecipeReactorHandleTockRespectsCapacityCeiling(t *testing.T) {
	r := &RecipeReactor{InventorySize: 1000, Capacity: 10}
	f := New(1, "Reactor1", "UF6", "LEU", r)
	f.Stocks = []*resource.Resource{
		resource.New("kg", resource.MassBased, map[string]float64{"UF6": 25}),
	}

	r.HandleTock(1, f)

	if got := f.TotalInventory(); got != 10 {
		t.Fatalf("TotalInventory after tock = %g, want 10 (capped by capacity)", got)
	}
	if got := f.TotalStocks(); got != 15 {
		t.Fatalf("TotalStocks after tock = %g, want 15 remaining", got)
	}
}
