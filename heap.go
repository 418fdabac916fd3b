package extsort

import "github.com/pkg/errors"

type rootState uint8

const (
	rootOccupied rootState = iota
	rootEmpty              // vacated by RemoveMinNoUpdate
)

// MinHeap is a capacity-bounded binary min-heap of records, extended with
// replacement selection.
//
// The backing array is split into an active region, which satisfies the heap
// property, followed by a deactivated region holding records which are kept
// aside for the next run:
//
//	+----------------------+-----------------------+--------+
//	| active [0, n)        | deactivated [n, n+d)  | unused |
//	+----------------------+-----------------------+--------+
//
// While the root is empty (between RemoveMinNoUpdate and
// ReplacementSelectionInsert), both regions are offset by one slot.
type MinHeap struct {
	heap []Record
	n    int // size of the active region
	d    int // size of the deactivated region
	root rootState
}

// NewMinHeap inits an empty heap with a fixed capacity.
func NewMinHeap(capacity int) *MinHeap {
	if capacity < 0 {
		capacity = 0
	}
	return &MinHeap{heap: make([]Record, capacity)}
}

// Cap returns the capacity.
func (h *MinHeap) Cap() int { return len(h.heap) }

// Len returns the number of active records.
func (h *MinHeap) Len() int { return h.n }

// DeactivatedLen returns the number of deactivated records.
func (h *MinHeap) DeactivatedLen() int { return h.d }

// RootEmpty returns true after RemoveMinNoUpdate, until the root is refilled
// by ReplacementSelectionInsert.
func (h *MinHeap) RootEmpty() bool { return h.root == rootEmpty }

// Peek returns the minimum active record without removing it.
func (h *MinHeap) Peek() (Record, bool) {
	if h.root == rootEmpty || h.n == 0 {
		return Record{}, false
	}
	return h.heap[0], true
}

// Load appends records to the active region without restoring the heap
// property and returns the number of records accepted. Call BuildHeap once
// loading is complete.
func (h *MinHeap) Load(recs ...Record) int {
	if h.root == rootEmpty {
		return 0
	}

	for i, r := range recs {
		if !h.push(r) {
			return i
		}
	}
	return len(recs)
}

// BuildHeap restores the heap property of the active region in O(n).
// An empty root is compacted away first.
func (h *MinHeap) BuildHeap() {
	h.compact()
	for i := h.n/2 - 1; i >= 0; i-- {
		h.siftDown(i)
	}
}

// Insert adds a record. It returns false if the heap is at capacity or the
// root is empty.
func (h *MinHeap) Insert(r Record) bool {
	if h.root == rootEmpty || !h.push(r) {
		return false
	}
	h.siftUp(h.n - 1)
	return true
}

// RemoveMin removes and returns the minimum active record.
func (h *MinHeap) RemoveMin() (Record, error) {
	if h.root == rootEmpty {
		return Record{}, ErrRootEmpty
	}
	if h.n == 0 {
		return Record{}, ErrHeapExhausted
	}

	min := h.heap[0]
	h.removeAt(0)
	return min, nil
}

// Remove removes and returns the active record at pos.
func (h *MinHeap) Remove(pos int) (Record, error) {
	if err := h.validate(pos); err != nil {
		return Record{}, err
	}

	r := h.heap[pos]
	h.removeAt(pos)
	return r, nil
}

// Modify replaces the active record at pos and restores the heap property.
func (h *MinHeap) Modify(pos int, r Record) error {
	if err := h.validate(pos); err != nil {
		return err
	}

	h.heap[pos] = r
	h.update(pos)
	return nil
}

// RemoveMinNoUpdate removes and returns the minimum active record but leaves
// the root empty. The next call must be ReplacementSelectionInsert.
func (h *MinHeap) RemoveMinNoUpdate() (Record, error) {
	if h.root == rootEmpty {
		return Record{}, ErrRootEmpty
	}
	if h.n == 0 {
		return Record{}, ErrHeapExhausted
	}

	min := h.heap[0]
	h.heap[0] = Record{}
	h.root = rootEmpty
	h.n--
	return min, nil
}

// ReplacementSelectionInsert fills an empty root with r. It returns false if
// the root is not empty.
//
// If deactivate is false, r rejoins the active region. Otherwise r is moved
// to the front of the deactivated region and kept aside for the next run.
func (h *MinHeap) ReplacementSelectionInsert(r Record, deactivate bool) bool {
	if h.root != rootEmpty {
		return false
	}

	h.heap[0] = r
	h.root = rootOccupied
	h.n++

	if deactivate {
		h.n--
		h.d++
		h.swap(0, h.n)
	}
	if h.n > 0 {
		h.siftDown(0)
	}
	return true
}

// Reactivate promotes the deactivated region to the active one once a run is
// exhausted and rebuilds the heap. It returns false if there is nothing to
// reactivate.
func (h *MinHeap) Reactivate() bool {
	if h.d == 0 {
		return false
	}

	h.n += h.d
	h.d = 0
	h.BuildHeap()
	return true
}

// push appends r to the active region, moving the first deactivated record
// to the back of its region.
func (h *MinHeap) push(r Record) bool {
	if h.n+h.d >= len(h.heap) {
		return false
	}

	if h.d != 0 {
		h.heap[h.n+h.d] = h.heap[h.n]
	}
	h.heap[h.n] = r
	h.n++
	return true
}

// removeAt drops the active record at pos, pulling the last deactivated
// record forward so that the deactivated region stays contiguous.
func (h *MinHeap) removeAt(pos int) {
	last := h.n - 1
	h.heap[pos] = h.heap[last]
	if h.d != 0 {
		h.heap[last] = h.heap[last+h.d]
	}
	h.heap[last+h.d] = Record{}
	h.n--

	if pos < h.n {
		h.update(pos)
	}
}

// compact closes an empty root by shifting both regions one slot down.
func (h *MinHeap) compact() {
	if h.root != rootEmpty {
		return
	}

	end := h.n + h.d + 1
	copy(h.heap, h.heap[1:end])
	h.heap[end-1] = Record{}
	h.root = rootOccupied
}

func (h *MinHeap) validate(pos int) error {
	if h.root == rootEmpty {
		return ErrRootEmpty
	}
	if pos < 0 || pos >= h.n {
		return errors.Wrapf(ErrInvalidPosition, "%d not in [0, %d)", pos, h.n)
	}
	return nil
}

func (h *MinHeap) update(pos int) {
	h.siftUp(pos)
	h.siftDown(pos)
}

func (h *MinHeap) siftUp(pos int) {
	for pos > 0 {
		parent := (pos - 1) / 2
		if !h.less(pos, parent) {
			return
		}
		h.swap(pos, parent)
		pos = parent
	}
}

func (h *MinHeap) siftDown(pos int) {
	for {
		child := 2*pos + 1
		if child >= h.n {
			return
		}
		if right := child + 1; right < h.n && h.less(right, child) {
			child = right
		}
		if !h.less(child, pos) {
			return
		}
		h.swap(pos, child)
		pos = child
	}
}

func (h *MinHeap) less(i, j int) bool { return Compare(h.heap[i], h.heap[j]) < 0 }

func (h *MinHeap) swap(i, j int) { h.heap[i], h.heap[j] = h.heap[j], h.heap[i] }
