package btree

import (
	"fmt"
	"sort"

	"github.com/relite/relite/internal/pager"
	"github.com/relite/relite/internal/value"
)

// BTree is a clustered B-tree: its leaves store full Rows keyed by a u64 row
// id, and internal nodes hold only routing keys and child page ids. It
// borrows a shared Pager; it does not own it.
type BTree struct {
	p       *pager.Pager
	root    pager.PageID
	onSplit func()
}

// Create allocates a new B-tree with an empty leaf root page.
func Create(p *pager.Pager) (*BTree, error) {
	rootID := p.Allocate()
	bt := &BTree{p: p, root: rootID}
	if err := bt.writeNode(rootID, newLeaf()); err != nil {
		return nil, err
	}
	return bt, nil
}

// Open wraps an existing B-tree whose root page is known.
func Open(p *pager.Pager, root pager.PageID) *BTree {
	return &BTree{p: p, root: root}
}

// Root returns the root page id.
func (bt *BTree) Root() pager.PageID { return bt.root }

// SetSplitHook installs a callback invoked every time a node splits, for
// metrics. A nil hook (the default) disables the callback.
func (bt *BTree) SetSplitHook(h func()) { bt.onSplit = h }

func (bt *BTree) readNode(id pager.PageID) (*node, error) {
	pg, err := bt.p.Get(id)
	if err != nil {
		return nil, err
	}
	n, err := deserializeNode(pg.Bytes)
	if err != nil {
		return nil, fmt.Errorf("btree: read node %d: %w", id, err)
	}
	return n, nil
}

func (bt *BTree) writeNode(id pager.PageID, n *node) error {
	buf, err := serializeNode(n)
	if err != nil {
		return fmt.Errorf("btree: write node %d: %w", id, err)
	}
	return bt.p.WritePage(id, buf)
}

// childIndex returns the index of the child to descend into for target:
// the smallest i such that keys[i] > target, or len(keys) if none.
func childIndex(n *node, target uint64) int {
	return sort.Search(len(n.keys), func(i int) bool { return n.keys[i] > target })
}

// ── Search ────────────────────────────────────────────────────────────────

// Get looks up a key. Returns (row, true, nil) if found, (nil, false, nil)
// if not.
func (bt *BTree) Get(key uint64) (value.Row, bool, error) {
	id := bt.root
	for {
		n, err := bt.readNode(id)
		if err != nil {
			return nil, false, err
		}
		if n.isLeaf {
			idx, found := n.search(key)
			if !found {
				return nil, false, nil
			}
			return n.values[idx], true, nil
		}
		id = n.children[childIndex(n, key)]
	}
}

// ── Insert ───────────────────────────────────────────────────────────────

// Insert adds key/row to the tree, or replaces row if key already exists.
func (bt *BTree) Insert(key uint64, row value.Row) error {
	root, err := bt.readNode(bt.root)
	if err != nil {
		return err
	}
	if root.full() {
		newRootID := bt.p.Allocate()
		newRoot := newInternal()
		newRoot.children = []pager.PageID{bt.root}
		if err := bt.splitChild(newRootID, newRoot, 0, bt.root, root); err != nil {
			return err
		}
		bt.root = newRootID
		root = newRoot
	}
	return bt.insertNonFull(bt.root, root, key, row)
}

func (bt *BTree) insertNonFull(id pager.PageID, n *node, key uint64, row value.Row) error {
	if n.isLeaf {
		idx, found := n.search(key)
		if found {
			n.values[idx] = row
		} else {
			n.keys = append(n.keys, 0)
			copy(n.keys[idx+1:], n.keys[idx:len(n.keys)-1])
			n.keys[idx] = key
			n.values = append(n.values, nil)
			copy(n.values[idx+1:], n.values[idx:len(n.values)-1])
			n.values[idx] = row
		}
		return bt.writeNode(id, n)
	}

	idx := childIndex(n, key)
	childID := n.children[idx]
	child, err := bt.readNode(childID)
	if err != nil {
		return err
	}
	if child.full() {
		if err := bt.splitChild(id, n, idx, childID, child); err != nil {
			return err
		}
		if key >= n.keys[idx] {
			idx++
		}
		childID = n.children[idx]
		child, err = bt.readNode(childID)
		if err != nil {
			return err
		}
	}
	return bt.insertNonFull(childID, child, key, row)
}

// splitChild splits the full node "child" (at childID, parent's child idx)
// in two, writing the truncated child, a newly allocated right sibling, and
// the updated parent. Leaf splits copy the separator key up as a routing
// duplicate (the row stays in exactly one leaf); internal splits move the
// median key up (it carries no row, only routing information).
func (bt *BTree) splitChild(parentID pager.PageID, parent *node, idx int, childID pager.PageID, child *node) error {
	mid := Order / 2
	right := &node{isLeaf: child.isLeaf}
	var promote uint64

	if child.isLeaf {
		promote = child.keys[mid]
		right.keys = append([]uint64(nil), child.keys[mid:]...)
		right.values = append([]value.Row(nil), child.values[mid:]...)
		child.keys = child.keys[:mid]
		child.values = child.values[:mid]
	} else {
		promote = child.keys[mid]
		right.keys = append([]uint64(nil), child.keys[mid+1:]...)
		right.children = append([]pager.PageID(nil), child.children[mid+1:]...)
		child.keys = child.keys[:mid]
		child.children = child.children[:mid+1]
	}

	rightID := bt.p.Allocate()
	if err := bt.writeNode(rightID, right); err != nil {
		return err
	}
	if err := bt.writeNode(childID, child); err != nil {
		return err
	}

	parent.keys = append(parent.keys, 0)
	copy(parent.keys[idx+1:], parent.keys[idx:len(parent.keys)-1])
	parent.keys[idx] = promote

	parent.children = append(parent.children, 0)
	copy(parent.children[idx+2:], parent.children[idx+1:len(parent.children)-1])
	parent.children[idx+1] = rightID

	if err := bt.writeNode(parentID, parent); err != nil {
		return err
	}
	if bt.onSplit != nil {
		bt.onSplit()
	}
	return nil
}

// ── Scan ─────────────────────────────────────────────────────────────────

// ScanAll performs an in-order traversal, returning every row in ascending
// key order. Every row is deep-cloned so the caller owns it.
func (bt *BTree) ScanAll() ([]uint64, []value.Row, error) {
	var keys []uint64
	var rows []value.Row
	if err := bt.scanNode(bt.root, &keys, &rows); err != nil {
		return nil, nil, err
	}
	return keys, rows, nil
}

func (bt *BTree) scanNode(id pager.PageID, keys *[]uint64, rows *[]value.Row) error {
	n, err := bt.readNode(id)
	if err != nil {
		return err
	}
	if n.isLeaf {
		for i, k := range n.keys {
			*keys = append(*keys, k)
			*rows = append(*rows, value.CloneRow(n.values[i]))
		}
		return nil
	}
	for _, child := range n.children {
		if err := bt.scanNode(child, keys, rows); err != nil {
			return err
		}
	}
	return nil
}

// ── Update / Delete ──────────────────────────────────────────────────────

// UpdateByKey replaces the row stored at key. Returns false if key is not
// present.
func (bt *BTree) UpdateByKey(key uint64, row value.Row) (bool, error) {
	id := bt.root
	for {
		n, err := bt.readNode(id)
		if err != nil {
			return false, err
		}
		if n.isLeaf {
			idx, found := n.search(key)
			if !found {
				return false, nil
			}
			n.values[idx] = row
			return true, bt.writeNode(id, n)
		}
		id = n.children[childIndex(n, key)]
	}
}

// DeleteByKey removes the row stored at key, shifting remaining keys/values
// left. Underflow is tolerated; this implementation never rebalances or
// merges nodes on delete. Returns false if key is not present.
func (bt *BTree) DeleteByKey(key uint64) (bool, error) {
	id := bt.root
	for {
		n, err := bt.readNode(id)
		if err != nil {
			return false, err
		}
		if n.isLeaf {
			idx, found := n.search(key)
			if !found {
				return false, nil
			}
			copy(n.keys[idx:], n.keys[idx+1:])
			n.keys = n.keys[:len(n.keys)-1]
			copy(n.values[idx:], n.values[idx+1:])
			n.values = n.values[:len(n.values)-1]
			return true, bt.writeNode(id, n)
		}
		id = n.children[childIndex(n, key)]
	}
}
