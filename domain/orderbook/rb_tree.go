package orderbook

// PriceIndex is a red-black tree of price levels for one side of the
// book, addressed through the level arena. The bid index is max-first,
// the ask index min-first; Best is O(1) through a cached extremum id
// that is repaired on every insert and delete.
//
// CLRS-style implementation with a per-tree black sentinel standing in
// for id 0, so rotations and fixups need no nil checks. Arrival order
// of prices is adversarial (trending markets insert monotonically), so
// the balancing is not optional.
type PriceIndex struct {
	arena    *LevelArena
	side     Side
	sentinel *PriceLevel
	root     LevelID
	best     LevelID
	size     int
}

// NewPriceIndex constructs an empty index over arena for one side.
func NewPriceIndex(arena *LevelArena, side Side) *PriceIndex {
	return &PriceIndex{
		arena:    arena,
		side:     side,
		sentinel: &PriceLevel{color: black},
	}
}

// node resolves a level id, mapping 0 to the tree's sentinel.
func (t *PriceIndex) node(id LevelID) *PriceLevel {
	if id == 0 {
		return t.sentinel
	}
	return t.arena.Get(id)
}

// Size returns the number of price levels on this side.
func (t *PriceIndex) Size() int { return t.size }

// Best returns the top-of-book level in O(1), or nil if the side is
// empty. Max price for bids, min price for asks.
func (t *PriceIndex) Best() *PriceLevel {
	if t.best == 0 {
		return nil
	}
	return t.arena.Get(t.best)
}

// better reports whether price a outranks b on this side.
func (t *PriceIndex) better(a, b uint64) bool {
	if t.side == Bid {
		return a > b
	}
	return a < b
}

// Find returns the level at exactly price, or nil.
func (t *PriceIndex) Find(price uint64) *PriceLevel {
	id := t.root
	for id != 0 {
		n := t.arena.Get(id)
		switch {
		case price < n.Price:
			id = n.left
		case price > n.Price:
			id = n.right
		default:
			return n
		}
	}
	return nil
}

// Insert returns the level at price, creating and linking a new one if
// absent. Idempotent per price.
func (t *PriceIndex) Insert(price uint64) *PriceLevel {
	var parent LevelID
	id := t.root
	for id != 0 {
		parent = id
		n := t.arena.Get(id)
		if price < n.Price {
			id = n.left
		} else if price > n.Price {
			id = n.right
		} else {
			return n
		}
	}

	z := t.arena.Alloc(price, t.side)
	z.color = red
	z.parent = parent
	if parent == 0 {
		t.root = z.id
	} else if p := t.arena.Get(parent); price < p.Price {
		p.left = z.id
	} else {
		p.right = z.id
	}
	t.insertFixup(z)
	t.size++

	if t.best == 0 || t.better(price, t.node(t.best).Price) {
		t.best = z.id
	}
	return z
}

// Delete unlinks l from the tree and the arena, rebalancing and
// repairing the cached best. The caller guarantees l's queue is empty.
func (t *PriceIndex) Delete(l *PriceLevel) {
	if t.best == l.id {
		if nb := t.neighborToward(l); nb != nil {
			t.best = nb.id
		} else {
			t.best = 0
		}
	}
	t.deleteNode(l)
	t.arena.Remove(l.id)
	t.size--
}

// neighborToward returns the next-best level after l on this side:
// the in-order predecessor for bids, the successor for asks.
func (t *PriceIndex) neighborToward(l *PriceLevel) *PriceLevel {
	if t.side == Bid {
		return t.Predecessor(l)
	}
	return t.Successor(l)
}

// Successor returns the level with the next higher price, or nil.
func (t *PriceIndex) Successor(l *PriceLevel) *PriceLevel {
	if l.right != 0 {
		return t.minNode(t.arena.Get(l.right))
	}
	id, pid := l.id, l.parent
	for pid != 0 && id == t.arena.Get(pid).right {
		id = pid
		pid = t.arena.Get(pid).parent
	}
	if pid == 0 {
		return nil
	}
	return t.arena.Get(pid)
}

// Predecessor returns the level with the next lower price, or nil.
func (t *PriceIndex) Predecessor(l *PriceLevel) *PriceLevel {
	if l.left != 0 {
		return t.maxNode(t.arena.Get(l.left))
	}
	id, pid := l.id, l.parent
	for pid != 0 && id == t.arena.Get(pid).left {
		id = pid
		pid = t.arena.Get(pid).parent
	}
	if pid == 0 {
		return nil
	}
	return t.arena.Get(pid)
}

// ForEachAscending applies fn from lowest to highest price; returning
// false stops the walk early.
func (t *PriceIndex) ForEachAscending(fn func(*PriceLevel) bool) {
	if t.root == 0 {
		return
	}
	for n := t.minNode(t.arena.Get(t.root)); n != nil; n = t.Successor(n) {
		if !fn(n) {
			return
		}
	}
}

// ForEachDescending applies fn from highest to lowest price; returning
// false stops the walk early.
func (t *PriceIndex) ForEachDescending(fn func(*PriceLevel) bool) {
	if t.root == 0 {
		return
	}
	for n := t.maxNode(t.arena.Get(t.root)); n != nil; n = t.Predecessor(n) {
		if !fn(n) {
			return
		}
	}
}

/******************** internal tree machinery ********************/

func (t *PriceIndex) minNode(n *PriceLevel) *PriceLevel {
	for n.left != 0 {
		n = t.arena.Get(n.left)
	}
	return n
}

func (t *PriceIndex) maxNode(n *PriceLevel) *PriceLevel {
	for n.right != 0 {
		n = t.arena.Get(n.right)
	}
	return n
}

func (t *PriceIndex) leftRotate(x *PriceLevel) {
	y := t.node(x.right)
	x.right = y.left
	if y.left != 0 {
		t.node(y.left).parent = x.id
	}
	y.parent = x.parent
	if x.parent == 0 {
		t.root = y.id
	} else if p := t.node(x.parent); x.id == p.left {
		p.left = y.id
	} else {
		p.right = y.id
	}
	y.left = x.id
	x.parent = y.id
}

func (t *PriceIndex) rightRotate(y *PriceLevel) {
	x := t.node(y.left)
	y.left = x.right
	if x.right != 0 {
		t.node(x.right).parent = y.id
	}
	x.parent = y.parent
	if y.parent == 0 {
		t.root = x.id
	} else if p := t.node(y.parent); y.id == p.right {
		p.right = x.id
	} else {
		p.left = x.id
	}
	x.right = y.id
	y.parent = x.id
}

func (t *PriceIndex) insertFixup(z *PriceLevel) {
	for t.node(z.parent).color == red {
		parent := t.node(z.parent)
		grand := t.node(parent.parent)
		if parent.id == grand.left {
			uncle := t.node(grand.right)
			if uncle.color == red {
				parent.color = black
				uncle.color = black
				grand.color = red
				z = grand
			} else {
				if z.id == parent.right {
					z = parent
					t.leftRotate(z)
					parent = t.node(z.parent)
					grand = t.node(parent.parent)
				}
				parent.color = black
				grand.color = red
				t.rightRotate(grand)
			}
		} else {
			uncle := t.node(grand.left)
			if uncle.color == red {
				parent.color = black
				uncle.color = black
				grand.color = red
				z = grand
			} else {
				if z.id == parent.left {
					z = parent
					t.rightRotate(z)
					parent = t.node(z.parent)
					grand = t.node(parent.parent)
				}
				parent.color = black
				grand.color = red
				t.leftRotate(grand)
			}
		}
	}
	t.node(t.root).color = black
}

// transplant replaces the subtree rooted at u with the one rooted at v.
func (t *PriceIndex) transplant(u *PriceLevel, v LevelID) {
	if u.parent == 0 {
		t.root = v
	} else if p := t.node(u.parent); u.id == p.left {
		p.left = v
	} else {
		p.right = v
	}
	t.node(v).parent = u.parent
}

func (t *PriceIndex) deleteNode(z *PriceLevel) {
	y := z
	yColor := y.color
	var x LevelID

	switch {
	case z.left == 0:
		x = z.right
		t.transplant(z, z.right)
	case z.right == 0:
		x = z.left
		t.transplant(z, z.left)
	default:
		// Two children: relocate the in-order successor node itself so
		// level ids stay stable for the orders that reference them.
		y = t.minNode(t.arena.Get(z.right))
		yColor = y.color
		x = y.right
		if y.parent == z.id {
			t.node(x).parent = y.id
		} else {
			t.transplant(y, y.right)
			y.right = z.right
			t.node(y.right).parent = y.id
		}
		t.transplant(z, y.id)
		y.left = z.left
		t.node(y.left).parent = y.id
		y.color = z.color
	}

	if yColor == black {
		t.deleteFixup(x)
	}
}

func (t *PriceIndex) deleteFixup(x LevelID) {
	for x != t.root && t.node(x).color == black {
		xn := t.node(x)
		p := t.node(xn.parent)
		if x == p.left {
			w := t.node(p.right)
			if w.color == red {
				w.color = black
				p.color = red
				t.leftRotate(p)
				p = t.node(t.node(x).parent)
				w = t.node(p.right)
			}
			if t.node(w.left).color == black && t.node(w.right).color == black {
				w.color = red
				x = p.id
			} else {
				if t.node(w.right).color == black {
					t.node(w.left).color = black
					w.color = red
					t.rightRotate(w)
					p = t.node(t.node(x).parent)
					w = t.node(p.right)
				}
				w.color = p.color
				p.color = black
				t.node(w.right).color = black
				t.leftRotate(p)
				x = t.root
			}
		} else {
			w := t.node(p.left)
			if w.color == red {
				w.color = black
				p.color = red
				t.rightRotate(p)
				p = t.node(t.node(x).parent)
				w = t.node(p.left)
			}
			if t.node(w.right).color == black && t.node(w.left).color == black {
				w.color = red
				x = p.id
			} else {
				if t.node(w.left).color == black {
					t.node(w.right).color = black
					w.color = red
					t.leftRotate(w)
					p = t.node(t.node(x).parent)
					w = t.node(p.left)
				}
				w.color = p.color
				p.color = black
				t.node(w.left).color = black
				t.rightRotate(p)
				x = t.root
			}
		}
	}
	t.node(x).color = black
}
