package orderbook

import "matchcore/internal/decimal"

// orderNode is a node in the doubly-linked FIFO queue of orders resting
// at a single price. A doubly-linked list lets remove(order_id) unlink
// a specific order in O(1) once its node is located via the book's
// order index, rather than scanning the queue.
type orderNode struct {
	order *Order
	prev  *orderNode
	next  *orderNode
	level *PriceLevel
}

// PriceLevel is a FIFO queue of resting orders at a single price, with
// a cached aggregate remaining quantity.
type PriceLevel struct {
	Price         decimal.Decimal
	head          *orderNode
	tail          *orderNode
	orderCount    int
	totalQuantity decimal.Decimal
}

// newPriceLevel creates an empty price level at price.
func newPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{Price: price, totalQuantity: decimal.Zero}
}

// OrderCount returns the number of orders resting at this level.
func (pl *PriceLevel) OrderCount() int { return pl.orderCount }

// TotalQuantity returns the sum of remaining quantity across the queue.
func (pl *PriceLevel) TotalQuantity() decimal.Decimal { return pl.totalQuantity }

// IsEmpty reports whether the level has no resting orders.
func (pl *PriceLevel) IsEmpty() bool { return pl.orderCount == 0 }

// Head returns the oldest resting order, or nil if the level is empty.
func (pl *PriceLevel) Head() *Order {
	if pl.head == nil {
		return nil
	}
	return pl.head.order
}

// enqueue appends order to the tail of the queue in O(1) and links the
// order back to its node for O(1) future removal.
func (pl *PriceLevel) enqueue(order *Order) {
	node := &orderNode{order: order, level: pl}
	if pl.tail == nil {
		pl.head = node
		pl.tail = node
	} else {
		node.prev = pl.tail
		pl.tail.next = node
		pl.tail = node
	}
	order.node = node
	pl.orderCount++
	pl.totalQuantity = pl.totalQuantity.Add(order.RemainingQuantity())
}

// decrementHead reduces the head order's remaining quantity by qty,
// removing it from the queue if it reaches zero. qty must not exceed
// the head's remaining quantity.
func (pl *PriceLevel) decrementHead(qty decimal.Decimal) {
	node := pl.head
	node.order.fill(qty)
	pl.totalQuantity = pl.totalQuantity.Sub(qty)
	if node.order.IsFilled() {
		pl.unlink(node)
	}
}

// remove unlinks a specific order from the queue in O(1), given its
// node (located via the book's order index).
func (pl *PriceLevel) remove(node *orderNode) {
	pl.totalQuantity = pl.totalQuantity.Sub(node.order.RemainingQuantity())
	pl.unlink(node)
}

func (pl *PriceLevel) unlink(node *orderNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		pl.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		pl.tail = node.prev
	}
	node.order.node = nil
	node.prev = nil
	node.next = nil
	node.level = nil
	pl.orderCount--
}

// orders returns a slice of all resting orders, oldest first. Allocates;
// intended for snapshots and tests, not the hot matching path.
func (pl *PriceLevel) orders() []*Order {
	out := make([]*Order, 0, pl.orderCount)
	for n := pl.head; n != nil; n = n.next {
		out = append(out, n.order)
	}
	return out
}
