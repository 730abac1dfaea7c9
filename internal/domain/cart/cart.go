package cart

import (
	"github.com/example/unique-shop/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// Line is a reserved item with the price captured when it entered the cart.
type Line struct {
	ItemID   string          `json:"item_id"`
	Slug     string          `json:"slug"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}

// Cart is the set of items a session currently holds.
type Cart struct {
	SessionID string

	lines map[string]Line
	order []string
}

func newCart(sessionID string) *Cart {
	return &Cart{
		SessionID: sessionID,
		lines:     make(map[string]Line),
	}
}

func (c *Cart) Contains(itemID string) bool {
	_, ok := c.lines[itemID]
	return ok
}

// Items returns the lines in the order they were added.
func (c *Cart) Items() []Line {
	items := make([]Line, 0, len(c.order))
	for _, id := range c.order {
		items = append(items, c.lines[id])
	}
	return items
}

func (c *Cart) ItemIDs() []string {
	ids := make([]string, len(c.order))
	copy(ids, c.order)
	return ids
}

func (c *Cart) Count() int    { return len(c.order) }
func (c *Cart) IsEmpty() bool { return len(c.order) == 0 }

// Total is the sum of snapshot prices.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.lines {
		total = total.Add(line.Price)
	}
	return total
}

// Currency of the cart, taken from its first line.
func (c *Cart) Currency() string {
	if len(c.order) == 0 {
		return ""
	}
	return c.lines[c.order[0]].Currency
}

func (c *Cart) put(item *inventory.Item, price decimal.Decimal) {
	if _, ok := c.lines[item.ID]; !ok {
		c.order = append(c.order, item.ID)
	}
	c.lines[item.ID] = Line{
		ItemID:   item.ID,
		Slug:     item.Slug,
		Title:    item.Title,
		Price:    price,
		Currency: item.Currency,
	}
}

func (c *Cart) drop(itemID string) {
	if _, ok := c.lines[itemID]; !ok {
		return
	}
	delete(c.lines, itemID)
	for i, id := range c.order {
		if id == itemID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Cart) reset() {
	c.lines = make(map[string]Line)
	c.order = nil
}
