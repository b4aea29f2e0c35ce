package domain

import "time"

// Line is a single cart line, identified by its variant key.
type Line struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	ImageURL  string `json:"image_url,omitempty"`
}

// VariantKey returns the line identity for this line.
func (l *Line) VariantKey() string {
	return VariantKey(l.ProductID, l.Size, l.Color)
}

// Subtotal is the line price times quantity, in minor units.
func (l *Line) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// VariantKey builds the identity under which cart lines merge. Absent size or
// color render as the empty string, so "p1", "", "" yields "p1--".
func VariantKey(productID, size, color string) string {
	return productID + "-" + size + "-" + color
}

// Cart is a user's cart. Lines keep insertion order; totals are derived and
// recomputed on read, never stored independently.
type Cart struct {
	UserID    string    `json:"user_id"`
	Lines     []Line    `json:"lines"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TotalAmount sums unit price times quantity across all lines.
func (c *Cart) TotalAmount() int64 {
	var total int64
	for i := range c.Lines {
		total += c.Lines[i].Subtotal()
	}
	return total
}

// TotalItems sums quantities across all lines.
func (c *Cart) TotalItems() int {
	var count int
	for i := range c.Lines {
		count += c.Lines[i].Quantity
	}
	return count
}

// FindLine returns the index of the line with the given variant key, or -1.
func (c *Cart) FindLine(variantKey string) int {
	for i := range c.Lines {
		if c.Lines[i].VariantKey() == variantKey {
			return i
		}
	}
	return -1
}

// Snapshot is the read model handed to callers: a deep copy of the lines plus
// the derived totals, detached from the live cart.
type Snapshot struct {
	UserID      string    `json:"user_id"`
	Lines       []Line    `json:"lines"`
	TotalItems  int       `json:"total_items"`
	TotalAmount int64     `json:"total_amount"`
	Currency    string    `json:"currency"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot copies the cart into a detached read model. Mutating the returned
// lines never affects the cart.
func (c *Cart) Snapshot() *Snapshot {
	lines := make([]Line, len(c.Lines))
	copy(lines, c.Lines)

	return &Snapshot{
		UserID:      c.UserID,
		Lines:       lines,
		TotalItems:  c.TotalItems(),
		TotalAmount: c.TotalAmount(),
		Currency:    c.Currency,
		UpdatedAt:   c.UpdatedAt,
	}
}
