package world

import (
	"sync/atomic"

	"github.com/l1jgo/spellcast/internal/data"
)

const MaxInventorySize = 180

// itemObjIDCounter generates unique item object IDs.
var itemObjIDCounter atomic.Uint32

// NextItemObjID returns a unique object ID for an item instance.
func NextItemObjID() uint32 {
	return itemObjIDCounter.Add(1)
}

// Item is a single item instance in a unit's inventory.
type Item struct {
	ObjectID uint32 // unique per instance
	ItemID   uint32 // template ID
	Name     string
	Count    int
}

// Inventory holds a unit's in-memory item list.
// Accessed only from the owning region's loop.
type Inventory struct {
	Items []*Item
}

func NewInventory() *Inventory {
	return &Inventory{
		Items: make([]*Item, 0, 16),
	}
}

// FindByItemID returns the first stack of the template ID.
func (inv *Inventory) FindByItemID(itemID uint32) *Item {
	for _, it := range inv.Items {
		if it.ItemID == itemID {
			return it
		}
	}
	return nil
}

// FindByObjectID returns the item with the given object ID.
func (inv *Inventory) FindByObjectID(objectID uint32) *Item {
	for _, it := range inv.Items {
		if it.ObjectID == objectID {
			return it
		}
	}
	return nil
}

func (inv *Inventory) Size() int { return len(inv.Items) }

func (inv *Inventory) IsFull() bool { return len(inv.Items) >= MaxInventorySize }

// CountOf sums every stack of the template ID.
func (inv *Inventory) CountOf(itemID uint32) int {
	n := 0
	for _, it := range inv.Items {
		if it.ItemID == itemID {
			n += it.Count
		}
	}
	return n
}

// AddItem stacks onto an existing stack or creates a new one.
// Returns nil when the inventory is full.
func (inv *Inventory) AddItem(itemID uint32, count int, name string) *Item {
	if existing := inv.FindByItemID(itemID); existing != nil {
		existing.Count += count
		return existing
	}
	if inv.IsFull() {
		return nil
	}
	item := &Item{
		ObjectID: NextItemObjID(),
		ItemID:   itemID,
		Name:     name,
		Count:    count,
	}
	inv.Items = append(inv.Items, item)
	return item
}

// RemoveItem removes count from a stack, dropping the slot when it empties.
// Returns true if the slot was freed.
func (inv *Inventory) RemoveItem(objectID uint32, count int) (removed bool) {
	for i, it := range inv.Items {
		if it.ObjectID == objectID {
			if it.Count > count {
				it.Count -= count
				return false
			}
			inv.Items = append(inv.Items[:i], inv.Items[i+1:]...)
			return true
		}
	}
	return false
}

// HasReagents reports whether every reagent is carried in full.
func (inv *Inventory) HasReagents(reagents []data.Reagent) bool {
	for _, r := range reagents {
		if inv.CountOf(r.ItemID) < r.Count {
			return false
		}
	}
	return true
}

// ConsumeReagents removes the reagents, all or nothing.
func (inv *Inventory) ConsumeReagents(reagents []data.Reagent) bool {
	if !inv.HasReagents(reagents) {
		return false
	}
	for _, r := range reagents {
		need := r.Count
		for need > 0 {
			it := inv.FindByItemID(r.ItemID)
			take := need
			if it.Count < take {
				take = it.Count
			}
			inv.RemoveItem(it.ObjectID, take)
			need -= take
		}
	}
	return true
}
