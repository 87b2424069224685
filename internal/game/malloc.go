package game

import (
	"errors"
	"math"
)

var (
	ErrOutOfMemory   = errors.New("no free block large enough")
	ErrUnknownBlock  = errors.New("no allocation with that id")
	ErrDuplicateID   = errors.New("allocation id already in use")
	ErrBadAllocSize  = errors.New("allocation size must be positive")
	ErrBadHeapAction = errors.New("unknown heap action")
)

const DefaultHeapSize = 64

// Heap simulates a first-fit allocator over a fixed-size arena. Free
// neighbors coalesce on Free.
type Heap struct {
	blocks []heapBlock
}

type heapBlock struct {
	offset int
	size   int
	id     string // empty means free
}

func NewHeap(size int) *Heap {
	if size <= 0 {
		size = DefaultHeapSize
	}
	return &Heap{blocks: []heapBlock{{offset: 0, size: size}}}
}

// Alloc places an allocation in the first free block that fits and returns
// its offset.
func (h *Heap) Alloc(id string, size int) (int, error) {
	if size <= 0 {
		return 0, ErrBadAllocSize
	}
	for _, b := range h.blocks {
		if b.id == id {
			return 0, ErrDuplicateID
		}
	}
	for i, b := range h.blocks {
		if b.id != "" || b.size < size {
			continue
		}
		if b.size > size {
			rest := heapBlock{offset: b.offset + size, size: b.size - size}
			h.blocks = append(h.blocks[:i+1], append([]heapBlock{rest}, h.blocks[i+1:]...)...)
		}
		h.blocks[i].id = id
		h.blocks[i].size = size
		return h.blocks[i].offset, nil
	}
	return 0, ErrOutOfMemory
}

func (h *Heap) Free(id string) error {
	if id == "" {
		return ErrUnknownBlock
	}
	for i, b := range h.blocks {
		if b.id != id {
			continue
		}
		h.blocks[i].id = ""
		h.coalesce()
		return nil
	}
	return ErrUnknownBlock
}

func (h *Heap) coalesce() {
	out := h.blocks[:0]
	for _, b := range h.blocks {
		if len(out) > 0 && out[len(out)-1].id == "" && b.id == "" {
			out[len(out)-1].size += b.size
			continue
		}
		out = append(out, b)
	}
	h.blocks = out
}

func (h *Heap) Used() int {
	total := 0
	for _, b := range h.blocks {
		if b.id != "" {
			total += b.size
		}
	}
	return total
}

func (h *Heap) LargestFree() int {
	largest := 0
	for _, b := range h.blocks {
		if b.id == "" && b.size > largest {
			largest = b.size
		}
	}
	return largest
}

// Fragmentation is 1 - largest free block / total free space; 0 when the
// free space is contiguous or exhausted.
func (h *Heap) Fragmentation() float64 {
	free := 0
	for _, b := range h.blocks {
		if b.id == "" {
			free += b.size
		}
	}
	if free == 0 {
		return 0
	}
	return 1 - float64(h.LargestFree())/float64(free)
}

// HeapAction is one step of a player-submitted allocation run.
type HeapAction struct {
	Op   string `json:"op"` // "alloc" or "free"
	ID   string `json:"id"`
	Size int    `json:"size,omitempty"`
}

// RunHeap replays an action sequence on a fresh heap and scores it: bytes
// placed pay out, fragmentation shaves the reward.
func RunHeap(size int, actions []HeapAction) (Outcome, error) {
	h := NewHeap(size)
	placed := 0
	for _, a := range actions {
		switch a.Op {
		case "alloc":
			if _, err := h.Alloc(a.ID, a.Size); err != nil {
				return Outcome{}, err
			}
			placed += a.Size
		case "free":
			if err := h.Free(a.ID); err != nil {
				return Outcome{}, err
			}
		default:
			return Outcome{}, ErrBadHeapAction
		}
	}
	penalty := int64(math.Round(h.Fragmentation() * float64(placed)))
	money := int64(placed)*2 - penalty
	if money < 0 {
		money = 0
	}
	return Outcome{
		Correct:    true,
		MoneyDelta: money,
		ExpDelta:   int64(placed),
	}, nil
}
