// Package cellindex turns geometries into sortable cell keys and prunes
// ordered-key traversals against a query's cell covering.
//
// An indexed geometry is stored under one key per cell of its covering. A
// query covers its own geometry and hands the cells to a Pruner, which tells
// the traversal which subtrees and entries may hold a match. The pruner only
// guarantees that no match is skipped: every candidate it emits must be
// re-checked with an exact predicate from package geo.
package cellindex

import (
	"github.com/golang/geo/s2"
	"github.com/rotisserie/eris"

	"github.com/squiidz/geoindex/geo"
)

// Default covering budgets. Query coverings are finer than index coverings:
// more cells cost more comparisons but prune more of the tree.
const (
	DefaultIndexGoalCells = 8
	DefaultQueryGoalCells = 16
)

// Options carries the covering budgets used at index build and query time.
// The same IndexGoalCells must be used for every write to one index.
type Options struct {
	IndexGoalCells int
	QueryGoalCells int
}

func DefaultOptions() Options {
	return Options{
		IndexGoalCells: DefaultIndexGoalCells,
		QueryGoalCells: DefaultQueryGoalCells,
	}
}

// Validate checks that both budgets are usable.
func (o Options) Validate() error {
	if o.IndexGoalCells < 1 {
		return eris.Errorf("cellindex: index goal cells must be positive, got %d", o.IndexGoalCells)
	}
	if o.QueryGoalCells < 1 {
		return eris.Errorf("cellindex: query goal cells must be positive, got %d", o.QueryGoalCells)
	}
	return nil
}

// Covering returns the cells covering g in ascending id order. A point is
// covered by its leaf cell; lines and polygons go through the region
// coverer with a budget of goalCells. Equal inputs always give equal output.
func Covering(g geo.Geometry, goalCells int) ([]s2.CellID, error) {
	if goalCells < 1 {
		return nil, eris.Errorf("cellindex: goal cells must be positive, got %d", goalCells)
	}
	return geo.Dispatch(g, geo.Visitor[[]s2.CellID]{
		OnPoint: func(p geo.Point) ([]s2.CellID, error) {
			return []s2.CellID{s2.CellFromPoint(p.S2()).ID()}, nil
		},
		OnLine: func(l *geo.LineString) ([]s2.CellID, error) {
			return CoverRegion(l.S2(), goalCells), nil
		},
		OnPolygon: func(p *geo.Polygon) ([]s2.CellID, error) {
			if p.IsEmpty() {
				return nil, nil
			}
			return CoverRegion(p.S2(), goalCells), nil
		},
	})
}

// CoverRegion covers an arbitrary region, such as a search cap.
func CoverRegion(r s2.Region, goalCells int) []s2.CellID {
	rc := &s2.RegionCoverer{MinLevel: 0, MaxLevel: s2.MaxLevel, LevelMod: 1, MaxCells: goalCells}
	return []s2.CellID(rc.Covering(r))
}

// IndexKeys returns the keys g is stored under.
func IndexKeys(g geo.Geometry, goalCells int) ([]string, error) {
	cells, err := Covering(g, goalCells)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(cells))
	for i, c := range cells {
		keys[i] = EncodeKey(c)
	}
	return keys, nil
}
