package facility

import "fmt"

func init() {
	Register("StorageFacility", func() Behavior { return &StorageFacility{} })
}

// StorageFacility is a pass-through facility: it never changes commodity
// identity, it simply accepts in_commod up to a cap and offers out_commod
// from whatever it currently holds.
type StorageFacility struct {
	Capacity float64
}

// Init reads the one parameter StorageFacility needs.
func (s *StorageFacility) Init(p Params) error {
	cap_, ok := floatParam(p, "capacity")
	if !ok {
		return fmt.Errorf("StorageFacility: missing required param capacity")
	}
	s.Capacity = cap_
	return nil
}

// HandleTick requests up to Capacity minus what is already held, and offers
// everything currently on hand across stocks and inventory.
func (s *StorageFacility) HandleTick(t int, f *Facility) {
	held := f.TotalStocks() + f.TotalInventory()
	if space := s.Capacity - held; space > 0 {
		_ = f.SendRequest(space, 0, 0)
	}
	if held > 0 {
		_ = f.SendOffer(held, 0, 0)
	}
}

// HandleTock moves everything received this period from Stocks straight
// into Inventory: storage performs no transformation, only custody.
func (s *StorageFacility) HandleTock(t int, f *Facility) {
	f.Inventory = append(f.Inventory, f.Stocks...)
	f.Stocks = nil
}
