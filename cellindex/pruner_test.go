package cellindex

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"testing"

	"github.com/golang/geo/s2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squiidz/geoindex/geo"
)

// sliceLeaf is an in-memory leaf; it counts value reads.
type sliceLeaf struct {
	keys  [][]byte
	reads int
}

func (l *sliceLeaf) Range() KeyRange {
	return KeyRange{Left: l.keys[0], Right: l.keys[len(l.keys)-1]}
}
func (l *sliceLeaf) Len() int         { return len(l.keys) }
func (l *sliceLeaf) Key(i int) []byte { return l.keys[i] }
func (l *sliceLeaf) Value(i int) ([]byte, error) {
	l.reads++
	return []byte("v:" + string(l.keys[i][KeyLen+1:])), nil
}

func leafOf(keys ...[]byte) *sliceLeaf {
	sort.Slice(keys, func(i, j int) bool { return string(keys[i]) < string(keys[j]) })
	return &sliceLeaf{keys: keys}
}

func cellAt(lat, lng float64, level int) s2.CellID {
	return s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lng)).Parent(level)
}

func TestSpanRange(t *testing.T) {
	c := cellAt(10, 10, 12)
	lo, hi := spanRange(c, c)
	assert.Equal(t, c.RangeMin(), lo)
	assert.Equal(t, c.RangeMax(), hi)

	a, b := c.Children()[0].ChildBegin(), c.Children()[3].ChildEnd().Prev()
	lo, hi = spanRange(a, b)
	assert.Equal(t, c.RangeMin(), lo)
	assert.Equal(t, c.RangeMax(), hi)

	f1, f4 := s2.CellIDFromFace(1).ChildBeginAtLevel(5), s2.CellIDFromFace(4).ChildBeginAtLevel(9)
	lo, hi = spanRange(f4, f1)
	assert.Equal(t, s2.CellIDFromFace(1).RangeMin(), lo)
	assert.Equal(t, s2.CellIDFromFace(4).RangeMax(), hi)
}

func TestBoundaryCell(t *testing.T) {
	assert.Equal(t, minCell, boundaryCell(nil, false))
	assert.Equal(t, maxCell, boundaryCell(nil, true))

	// keys outside the geo key space
	assert.Equal(t, minCell, boundaryCell([]byte("A"), false))
	assert.Equal(t, maxCell, boundaryCell([]byte("doc:x"), true))
	assert.Equal(t, maxCell, boundaryCell([]byte("doc:x"), false))

	// garbage hex widens
	assert.Equal(t, minCell, boundaryCell([]byte("GCzz"), false))
	assert.Equal(t, maxCell, boundaryCell([]byte("GCzz"), true))

	// truncated keys pad toward the outside
	assert.Equal(t, s2.CellIDFromFace(0), boundaryCell([]byte("GC1"), false))
	hi := boundaryCell([]byte("GC1"), true)
	assert.True(t, hi.IsValid())
	assert.Equal(t, 0, hi.Face())
	assert.Equal(t, s2.CellIDFromFace(0).RangeMax(), hi)

	// full entry keys decode to their cell
	c := cellAt(-5, 60, 20)
	assert.Equal(t, c, boundaryCell(EntryKey(c, "k"), false))
	assert.Equal(t, c, boundaryCell(EntryKey(c, "k"), true))

	// beyond the last face
	assert.Equal(t, maxCell, boundaryCell([]byte("GCf000000000000000"), false))
}

func TestAnyQueryCellIntersects(t *testing.T) {
	q := cellAt(0, 0, 10)
	p := NewPruner([]s2.CellID{q})

	inside := q.ChildBeginAtLevel(20)
	assert.True(t, p.AnyQueryCellIntersects(EntryKey(inside, "a"), EntryKey(inside, "b")))

	ancestor := q.Parent(4)
	assert.True(t, p.AnyQueryCellIntersects(EntryKey(ancestor, "a"), EntryKey(ancestor, "a")))

	far := cellAt(0, 0, 10).Next().Next()
	assert.False(t, p.AnyQueryCellIntersects(EntryKey(far.ChildBeginAtLevel(25), "a"), EntryKey(far, "z")))

	otherFace := s2.CellIDFromFace(4).ChildBeginAtLevel(8)
	assert.False(t, p.AnyQueryCellIntersects(EntryKey(otherFace, "a"), EntryKey(otherFace.Next(), "a")))

	assert.True(t, p.AnyQueryCellIntersects(nil, nil))
}

func TestFilterInterestingChildren(t *testing.T) {
	q := cellAt(20, 20, 8)
	p := NewPruner([]s2.CellID{q})
	far := s2.CellIDFromFace(5).ChildBeginAtLevel(10)
	children := []KeyRange{
		{Left: EntryKey(far, "a"), Right: EntryKey(far, "b")},
		{Left: EntryKey(q.ChildBeginAtLevel(12), "a"), Right: EntryKey(q.ChildBeginAtLevel(14), "a")},
		{Left: nil, Right: EntryKey(far, "a")},
		{Left: EntryKey(far.Next(), "a"), Right: nil},
	}
	assert.Equal(t, []int{1, 2}, p.FilterInterestingChildren(children))

	st := p.Stats()
	assert.Equal(t, int64(2), st.ChildrenVisited)
	assert.Equal(t, int64(2), st.ChildrenPruned)

	p.AbortTraversal()
	assert.True(t, p.Aborted())
	assert.Nil(t, p.FilterInterestingChildren(children))
}

func TestProcessLeafEmitsOverlappingEntries(t *testing.T) {
	q := cellAt(30, 30, 10)
	p := NewPruner([]s2.CellID{q})
	in1 := q.ChildBeginAtLevel(25)
	in2 := q.Parent(3)
	out := q.Next()
	leaf := leafOf(EntryKey(in1, "a"), EntryKey(out, "b"), EntryKey(in2, "c"))

	var got []string
	err := p.ProcessLeaf(context.Background(), leaf, func(k, v []byte) error {
		got = append(got, string(v))
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"v:a", "v:c"}, got)
	assert.Equal(t, 2, leaf.reads, "values are read only for kept entries")
	assert.Equal(t, int64(2), p.Stats().Candidates)
	assert.Equal(t, int64(1), p.Stats().LeavesScanned)
}

func TestProcessLeafSkipsDisjointLeaf(t *testing.T) {
	p := NewPruner([]s2.CellID{cellAt(0, 0, 10)})
	far := s2.CellIDFromFace(3).ChildBeginAtLevel(12)
	leaf := leafOf(EntryKey(far, "a"), EntryKey(far.Next(), "b"))
	err := p.ProcessLeaf(context.Background(), leaf, func(k, v []byte) error {
		t.Fatal("unexpected candidate")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, leaf.reads)
	assert.Equal(t, int64(1), p.Stats().LeavesSkipped)
}

func TestProcessLeafMalformedKey(t *testing.T) {
	p := NewPruner([]s2.CellID{cellAt(0, 0, 1)})
	leaf := &sliceLeaf{keys: [][]byte{[]byte("GC1000000000000000")}}
	err := p.ProcessLeaf(context.Background(), leaf, func(k, v []byte) error { return nil })
	assert.ErrorIs(t, err, geo.ErrParse)
}

func TestProcessLeafCancelled(t *testing.T) {
	q := cellAt(0, 0, 5)
	p := NewPruner([]s2.CellID{q})
	first := leafOf(EntryKey(q.ChildBeginAtLevel(20), "a"))
	second := leafOf(EntryKey(q.ChildBeginAtLevel(21).Next(), "b"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var got []string
	fn := func(k, v []byte) error {
		got = append(got, string(v))
		cancel()
		return nil
	}
	require.NoError(t, p.ProcessLeaf(ctx, first, fn))
	err := p.ProcessLeaf(ctx, second, fn)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInterrupted))
	assert.Equal(t, []string{"v:a"}, got)
}

func TestProcessLeafAbortStopsEmission(t *testing.T) {
	q := cellAt(0, 0, 5)
	p := NewPruner([]s2.CellID{q})
	leaf := leafOf(
		EntryKey(q.ChildBeginAtLevel(20), "a"),
		EntryKey(q.ChildBeginAtLevel(20), "b"),
		EntryKey(q.ChildBeginAtLevel(20), "c"),
	)
	var got int
	err := p.ProcessLeaf(context.Background(), leaf, func(k, v []byte) error {
		got++
		p.AbortTraversal()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	err = p.ProcessLeaf(context.Background(), leaf, func(k, v []byte) error {
		t.Fatal("aborted pruner emitted")
		return nil
	})
	assert.NoError(t, err)
}

func TestProcessLeafCallbackError(t *testing.T) {
	q := cellAt(0, 0, 5)
	p := NewPruner([]s2.CellID{q})
	leaf := leafOf(EntryKey(q.ChildBeginAtLevel(20), "a"))
	boom := errors.New("boom")
	err := p.ProcessLeaf(context.Background(), leaf, func(k, v []byte) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestNewPrunerCopiesCells(t *testing.T) {
	cells := []s2.CellID{cellAt(0, 0, 5)}
	p := NewPruner(cells)
	cells[0] = s2.CellIDFromFace(5)
	assert.Equal(t, cellAt(0, 0, 5), p.Cells()[0])
}

func TestPrunerFindsIndexedPoint(t *testing.T) {
	pt := geo.MustPoint(0, 0)
	keys, err := Covering(pt, 8)
	require.NoError(t, err)
	entry := EntryKey(keys[0], "origin")

	poly := square(t, 0, 0, 0.5)
	qcells, err := Covering(poly, DefaultQueryGoalCells)
	require.NoError(t, err)
	p := NewPruner(qcells)

	leaf := leafOf(entry)
	require.Equal(t, []int{0}, p.FilterInterestingChildren([]KeyRange{leaf.Range()}))
	var got []string
	require.NoError(t, p.ProcessLeaf(context.Background(), leaf, func(k, v []byte) error {
		got = append(got, string(k))
		return nil
	}))
	assert.Equal(t, []string{string(entry)}, got)
}

// Walks sorted entries grouped into leaves and nodes, and checks that the
// pruner emits exactly the entries whose cell intersects a query cell.
func TestPrunerNeverSkipsMatches(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var keys [][]byte
	for i := 0; i < 600; i++ {
		lat := rng.Float64()*170 - 85
		lng := rng.Float64()*360 - 180
		level := rng.Intn(s2.MaxLevel + 1)
		keys = append(keys, EntryKey(cellAt(lat, lng, level), string(rune('a'+i%26))+string(rune('a'+i/26))))
	}
	// a dense cluster next to the query
	for i := 0; i < 100; i++ {
		lat := 40 + rng.Float64()*2
		lng := -3 + rng.Float64()*2
		keys = append(keys, EntryKey(cellAt(lat, lng, 10+rng.Intn(20)), string(rune('A'+i%26))+string(rune('A'+i/26))))
	}
	sort.Slice(keys, func(i, j int) bool { return string(keys[i]) < string(keys[j]) })

	qcells, err := Covering(square(t, 41, -2, 0.5), DefaultQueryGoalCells)
	require.NoError(t, err)

	want := map[string]bool{}
	for _, k := range keys {
		c, err := CellFromEntryKey(k)
		require.NoError(t, err)
		for _, q := range qcells {
			if c.Intersects(q) {
				want[string(k)] = true
			}
		}
	}
	require.NotEmpty(t, want)

	const leafSize, fanout = 8, 4
	var leaves []*sliceLeaf
	for i := 0; i < len(keys); i += leafSize {
		end := i + leafSize
		if end > len(keys) {
			end = len(keys)
		}
		leaves = append(leaves, &sliceLeaf{keys: keys[i:end]})
	}

	p := NewPruner(qcells)
	got := map[string]bool{}
	for i := 0; i < len(leaves); i += fanout {
		end := i + fanout
		if end > len(leaves) {
			end = len(leaves)
		}
		node := leaves[i:end]
		ranges := make([]KeyRange, len(node))
		for j, l := range node {
			ranges[j] = l.Range()
		}
		for _, j := range p.FilterInterestingChildren(ranges) {
			require.NoError(t, p.ProcessLeaf(context.Background(), node[j], func(k, v []byte) error {
				got[string(k)] = true
				return nil
			}))
		}
	}
	assert.Equal(t, want, got)
	st := p.Stats()
	assert.Positive(t, st.ChildrenPruned+st.LeavesSkipped, "nothing was pruned")
}
