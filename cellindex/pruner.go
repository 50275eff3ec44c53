package cellindex

import (
	"bytes"
	"context"
	"sync/atomic"

	"github.com/golang/geo/s2"
	"github.com/rotisserie/eris"
)

// ErrInterrupted is returned when a leaf scan observes cancellation.
// Candidates emitted before it remain valid.
var ErrInterrupted = eris.New("cellindex: traversal interrupted")

// KeyRange is the inclusive key interval of a subtree or leaf. A nil bound
// is unbounded on that side.
type KeyRange struct {
	Left, Right []byte
}

// Leaf is one leaf node as presented by the traversal engine. Keys are entry
// keys (see EntryKey) in ascending order; values are only fetched for
// entries the pruner keeps.
type Leaf interface {
	Range() KeyRange
	Len() int
	Key(i int) []byte
	Value(i int) ([]byte, error)
}

// CandidateFunc receives every entry that may match the query.
type CandidateFunc func(key, value []byte) error

// Stats counts pruning decisions.
type Stats struct {
	ChildrenVisited int64
	ChildrenPruned  int64
	LeavesScanned   int64
	LeavesSkipped   int64
	Candidates      int64
}

// Pruner is the filtering policy plugged into an ordered-key traversal for
// one query. It answers whether a key interval may hold an entry whose cell
// overlaps the query covering; it never skips a match but may keep entries
// that do not match.
//
// A Pruner belongs to exactly one query. Its cells never change; the only
// state shared across calls is the abort flag, which is safe to set from
// any goroutine.
type Pruner struct {
	cells   []s2.CellID
	aborted atomic.Bool

	childrenVisited atomic.Int64
	childrenPruned  atomic.Int64
	leavesScanned   atomic.Int64
	leavesSkipped   atomic.Int64
	candidates      atomic.Int64
}

// NewPruner copies the query covering.
func NewPruner(queryCells []s2.CellID) *Pruner {
	cells := make([]s2.CellID, len(queryCells))
	copy(cells, queryCells)
	return &Pruner{cells: cells}
}

// Cells returns the query covering.
func (p *Pruner) Cells() []s2.CellID {
	out := make([]s2.CellID, len(p.cells))
	copy(out, p.cells)
	return out
}

// AbortTraversal makes every later call report no interest. It cannot be
// undone.
func (p *Pruner) AbortTraversal() { p.aborted.Store(true) }

func (p *Pruner) Aborted() bool { return p.aborted.Load() }

func (p *Pruner) Stats() Stats {
	return Stats{
		ChildrenVisited: p.childrenVisited.Load(),
		ChildrenPruned:  p.childrenPruned.Load(),
		LeavesScanned:   p.leavesScanned.Load(),
		LeavesSkipped:   p.leavesSkipped.Load(),
		Candidates:      p.candidates.Load(),
	}
}

// AnyQueryCellIntersects reports whether some entry whose key lies in
// [left, right] could overlap a query cell.
func (p *Pruner) AnyQueryCellIntersects(left, right []byte) bool {
	lo := boundaryCell(left, false)
	hi := boundaryCell(right, true)
	rmin, rmax := spanRange(lo, hi)
	return p.overlaps(rmin, rmax)
}

func (p *Pruner) overlaps(rmin, rmax s2.CellID) bool {
	for _, c := range p.cells {
		if rmin <= c.RangeMax() && rmax >= c.RangeMin() {
			return true
		}
	}
	return false
}

// FilterInterestingChildren returns, in order, the indexes of the children
// worth descending into.
func (p *Pruner) FilterInterestingChildren(children []KeyRange) []int {
	if p.Aborted() {
		return nil
	}
	var keep []int
	for i, c := range children {
		if p.AnyQueryCellIntersects(c.Left, c.Right) {
			keep = append(keep, i)
		}
	}
	p.childrenVisited.Add(int64(len(keep)))
	p.childrenPruned.Add(int64(len(children) - len(keep)))
	return keep
}

// ProcessLeaf emits the leaf's entries whose own cell overlaps the query.
// Cancellation of ctx is checked once, before the leaf is read.
func (p *Pruner) ProcessLeaf(ctx context.Context, leaf Leaf, fn CandidateFunc) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrapf(ErrInterrupted, "cellindex: %v", err)
	}
	if p.Aborted() {
		return nil
	}
	r := leaf.Range()
	if !p.AnyQueryCellIntersects(r.Left, r.Right) {
		p.leavesSkipped.Add(1)
		return nil
	}
	p.leavesScanned.Add(1)
	for i := 0; i < leaf.Len(); i++ {
		if p.Aborted() {
			return nil
		}
		key := leaf.Key(i)
		id, err := CellFromEntryKey(key)
		if err != nil {
			return err
		}
		if !p.overlaps(id.RangeMin(), id.RangeMax()) {
			continue
		}
		val, err := leaf.Value(i)
		if err != nil {
			return eris.Wrapf(err, "cellindex: read entry %q", key)
		}
		p.candidates.Add(1)
		if err := fn(key, val); err != nil {
			return err
		}
	}
	return nil
}

var (
	minCell = s2.CellIDFromFace(0).RangeMin()
	maxCell = s2.CellIDFromFace(s2.NumFaces - 1).RangeMax()
)

// boundaryCell maps a bound of a key interval to a cell. Keys outside the
// geo key space, truncated keys and garbage all widen the bound rather than
// narrow it.
func boundaryCell(key []byte, upper bool) s2.CellID {
	if key == nil {
		if upper {
			return maxCell
		}
		return minCell
	}
	if !hasTag(key) {
		tag := []byte(KeyTag)
		n := len(key)
		if n > len(tag) {
			n = len(tag)
		}
		if bytes.Compare(key[:n], tag[:n]) > 0 {
			return maxCell
		}
		return minCell
	}

	hex := key[len(KeyTag):]
	if len(hex) > 16 {
		hex = hex[:16]
	}
	var raw uint64
	for i := 0; i < 16; i++ {
		var d uint64
		switch {
		case i >= len(hex) && upper:
			d = 0xf
		case i >= len(hex):
			d = 0
		case hex[i] >= '0' && hex[i] <= '9':
			d = uint64(hex[i] - '0')
		case hex[i] >= 'a' && hex[i] <= 'f':
			d = uint64(hex[i]-'a') + 10
		default:
			if upper {
				return maxCell
			}
			return minCell
		}
		raw = raw<<4 | d
	}

	id := s2.CellID(raw)
	if id.Face() >= s2.NumFaces {
		return maxCell
	}
	if id.IsValid() {
		return id
	}
	// raw is not a cell: step to the nearest leaf on the inner side.
	if upper {
		if raw == 0 {
			return minCell
		}
		return s2.CellID(raw - 1)
	}
	return s2.CellID(raw | 1)
}

// spanRange returns an id interval containing every cell between lo and hi.
// Cells on one face are bounded by their smallest common ancestor; cells on
// different faces by the faces themselves.
func spanRange(lo, hi s2.CellID) (s2.CellID, s2.CellID) {
	if lo.Face() != hi.Face() {
		a, b := lo.Face(), hi.Face()
		if a > b {
			a, b = b, a
		}
		return s2.CellIDFromFace(a).RangeMin(), s2.CellIDFromFace(b).RangeMax()
	}
	level := lo.Level()
	if l := hi.Level(); l < level {
		level = l
	}
	a, b := lo.Parent(level), hi.Parent(level)
	for a != b {
		level--
		a, b = a.Parent(level), b.Parent(level)
	}
	return a.RangeMin(), a.RangeMax()
}
