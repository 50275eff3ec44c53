package geoindex

import (
	"context"
	"errors"
	"runtime"
	"sort"

	"github.com/dgraph-io/badger/v2"
	"github.com/golang/geo/s2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/squiidz/geoindex/cellindex"
	"github.com/squiidz/geoindex/geo"
)

const (
	open storeState = iota
	closed
)

var (
	ErrStoreClosed = eris.New("store not open, call .Open() on store instance first")
	ErrKeyNotFound = eris.New("key not found")
)

type storeState int

// ItemProcessor rewrites a stored item in place; see Store.Update.
type ItemProcessor func(itm Item) (Item, error)

// Store is a geospatial secondary index over badger. Each document is kept
// under doc:<key>, and under one entry key per cell of its covering holding
// the geometry as WKB.
type Store struct {
	opts    options
	state   storeState
	dbpath  string
	decoder Decoder
	log     *zap.Logger
	DB      *badger.DB
}

func NewStore(dbpath string, opts ...Option) *Store {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger
	if log == nil {
		log = zap.L()
	}
	return &Store{
		opts:   o,
		state:  closed,
		dbpath: dbpath,
		log:    log,
		DB:     nil,
	}
}

func (s *Store) Open(dec Decoder) error {
	if err := s.opts.validate(); err != nil {
		return err
	}
	path := s.dbpath
	if s.opts.inMemory {
		path = ""
	}
	opts := badger.DefaultOptions(path).
		WithInMemory(s.opts.inMemory).
		WithLogger(newBadgerLogger(s.log))
	db, err := badger.Open(opts)
	if err != nil {
		return eris.Wrapf(err, "geoindex: open %q", s.dbpath)
	}
	s.DB = db
	s.state = open
	s.decoder = dec
	s.log.Info("geoindex: store opened",
		zap.String("path", s.dbpath),
		zap.Bool("in_memory", s.opts.inMemory),
		zap.Int("index_goal_cells", s.opts.index.IndexGoalCells),
		zap.Int("query_goal_cells", s.opts.index.QueryGoalCells))
	return nil
}

func (s *Store) isOpen() bool {
	return s.state == open
}

func (s *Store) Close() error {
	if !s.isOpen() {
		return nil
	}
	s.state = closed
	return s.DB.Close()
}

// entry is an item with everything needed to write it.
type entry struct {
	rec      *record
	geometry []byte
}

func (s *Store) prepare(itm Item) (*entry, error) {
	if err := isItemValid(itm); err != nil {
		return nil, err
	}
	cells, err := cellindex.Covering(itm.Geometry(), s.opts.index.IndexGoalCells)
	if err != nil {
		return nil, eris.Wrapf(err, "geoindex: cover %q", itm.Key())
	}
	wkb, err := geo.MarshalWKB(itm.Geometry())
	if err != nil {
		return nil, eris.Wrapf(err, "geoindex: encode geometry of %q", itm.Key())
	}
	payload, err := itm.Encode()
	if err != nil {
		return nil, eris.Wrapf(err, "geoindex: encode %q", itm.Key())
	}
	return &entry{rec: newRecord(itm.Key(), payload, wkb, cells), geometry: wkb}, nil
}

// Insert stores itm, replacing any document with the same key.
func (s *Store) Insert(itm Item) error {
	if !s.isOpen() {
		return ErrStoreClosed
	}
	e, err := s.prepare(itm)
	if err != nil {
		return err
	}
	return s.commit([]*entry{e})
}

// InsertBatch stores items in as few transactions as badger allows.
// Coverings are computed concurrently; a later item replaces an earlier one
// with the same key.
func (s *Store) InsertBatch(ctx context.Context, items []Item) error {
	if !s.isOpen() {
		return ErrStoreClosed
	}
	entries := make([]*entry, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, itm := range items {
		i, itm := i, itm
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e, err := s.prepare(itm)
			if err != nil {
				return err
			}
			entries[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := s.commit(entries); err != nil {
		return eris.Wrap(err, "geoindex: insert batch")
	}
	s.log.Debug("geoindex: batch inserted", zap.Int("items", len(items)))
	return nil
}

// commit writes entries in one transaction, splitting the slice in halves
// while badger reports the transaction as too big.
func (s *Store) commit(entries []*entry) error {
	err := s.update(func(txn *badger.Txn) error {
		for _, e := range entries {
			if err := s.write(txn, e); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, badger.ErrTxnTooBig) && len(entries) > 1 {
		mid := len(entries) / 2
		if err := s.commit(entries[:mid]); err != nil {
			return err
		}
		return s.commit(entries[mid:])
	}
	return err
}

const maxConflictRetries = 8

// update runs fn in a read-write transaction, running it again when a
// concurrent writer committed one of the keys it read.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < maxConflictRetries; i++ {
		err = s.DB.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debug("geoindex: transaction conflict, retrying", zap.Int("attempt", i+1))
	}
	return eris.Wrap(err, "geoindex: too many conflicting writers")
}

// write replaces the stored document of e, if any, with e. The old record
// is read in txn so a concurrent writer of the same key makes the commit
// conflict instead of leaving its entries behind.
func (s *Store) write(txn *badger.Txn, e *entry) error {
	old, err := readRecord(txn, e.rec.Key)
	if err != nil && !errors.Is(err, ErrKeyNotFound) {
		return err
	}
	cells := e.rec.Cells
	if old != nil {
		for _, c := range staleCells(old.Cells, e.rec.Cells) {
			if err := txn.Delete(cellindex.EntryKey(c, old.Key)); err != nil {
				return err
			}
		}
		if e.rec.sameGeometry(old) {
			cells = staleCells(e.rec.Cells, old.Cells)
		}
	}
	for _, c := range cells {
		if err := txn.Set(cellindex.EntryKey(c, e.rec.Key), e.geometry); err != nil {
			return err
		}
	}
	enc, err := encodeRecord(e.rec)
	if err != nil {
		return err
	}
	return txn.Set(e.rec.key(), enc)
}

func (s *Store) getRecord(key string) (*record, error) {
	var rec *record
	err := s.DB.View(func(txn *badger.Txn) error {
		var err error
		rec, err = readRecord(txn, key)
		return err
	})
	return rec, err
}

func readRecord(txn *badger.Txn, key string) (*record, error) {
	itm, err := txn.Get(genDocKey(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, eris.Wrapf(ErrKeyNotFound, "geoindex: key %q", key)
	}
	if err != nil {
		return nil, err
	}
	var rec *record
	err = itm.Value(func(val []byte) error {
		rec, err = decodeRecord(val)
		return err
	})
	return rec, err
}

func (s *Store) Get(key string) (Item, error) {
	if !s.isOpen() {
		return nil, ErrStoreClosed
	}
	rec, err := s.getRecord(key)
	if err != nil {
		return nil, err
	}
	return s.decoder(rec.Payload)
}

// GetByPrefix returns every item whose key starts with prefix, in key order.
func (s *Store) GetByPrefix(prefix string) ([]Item, error) {
	if !s.isOpen() {
		return nil, ErrStoreClosed
	}
	bp := genDocKey(prefix)
	items := []Item{}
	err := s.DB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = bp
		itr := txn.NewIterator(opts)
		defer itr.Close()
		for itr.Seek(bp); itr.ValidForPrefix(bp); itr.Next() {
			err := itr.Item().Value(func(val []byte) error {
				rec, err := decodeRecord(val)
				if err != nil {
					return err
				}
				itm, err := s.decoder(rec.Payload)
				if err != nil {
					return err
				}
				items = append(items, itm)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// IndexKeys returns the geo keys the document key is indexed under.
func (s *Store) IndexKeys(key string) ([]string, error) {
	if !s.isOpen() {
		return nil, ErrStoreClosed
	}
	rec, err := s.getRecord(key)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(rec.Cells))
	for i, c := range rec.Cells {
		keys[i] = cellindex.EncodeKey(c)
	}
	return keys, nil
}

// Update loads the item stored under key, passes it to ip and stores the
// result in the same transaction. The processor must keep the key; it may
// run more than once when writers conflict.
func (s *Store) Update(key string, ip ItemProcessor) error {
	if !s.isOpen() {
		return ErrStoreClosed
	}
	return s.update(func(txn *badger.Txn) error {
		rec, err := readRecord(txn, key)
		if err != nil {
			return err
		}
		itm, err := s.decoder(rec.Payload)
		if err != nil {
			return err
		}
		next, err := ip(itm)
		if err != nil {
			return err
		}
		if next.Key() != key {
			return eris.Wrapf(ItemErrInvalidKey, "geoindex: update changed key %q to %q", key, next.Key())
		}
		e, err := s.prepare(next)
		if err != nil {
			return err
		}
		return s.write(txn, e)
	})
}

func (s *Store) Delete(key string) error {
	if !s.isOpen() {
		return ErrStoreClosed
	}
	return s.update(func(txn *badger.Txn) error {
		rec, err := readRecord(txn, key)
		if err != nil {
			return err
		}
		for _, c := range rec.Cells {
			if err := txn.Delete(cellindex.EntryKey(c, key)); err != nil {
				return err
			}
		}
		return txn.Delete(rec.key())
	})
}

// matchFunc is the exact check run once per candidate document.
type matchFunc func(key string, g geo.Geometry) (bool, error)

// search walks the entries whose cells may overlap cells and returns the
// distinct documents accepted by match, at most limit of them when limit is
// positive.
func (s *Store) search(ctx context.Context, cells []s2.CellID, limit int, match matchFunc) ([]string, error) {
	pr := cellindex.NewPruner(cells)
	seen := map[string]bool{}
	var hits []string
	err := s.walk(ctx, pr, func(key, value []byte) error {
		_, primary, err := cellindex.SplitEntryKey(key)
		if err != nil {
			return err
		}
		if seen[primary] {
			return nil
		}
		seen[primary] = true
		g, err := geo.UnmarshalWKB(value)
		if err != nil {
			return eris.Wrapf(err, "geoindex: decode geometry of %q", primary)
		}
		ok, err := match(primary, g)
		if err != nil || !ok {
			return err
		}
		hits = append(hits, primary)
		if limit > 0 && len(hits) >= limit {
			pr.AbortTraversal()
		}
		return nil
	})
	st := pr.Stats()
	s.log.Debug("geoindex: search",
		zap.Int("query_cells", len(cells)),
		zap.Int64("children_visited", st.ChildrenVisited),
		zap.Int64("children_pruned", st.ChildrenPruned),
		zap.Int64("leaves_scanned", st.LeavesScanned),
		zap.Int64("leaves_skipped", st.LeavesSkipped),
		zap.Int64("candidates", st.Candidates),
		zap.Int("hits", len(hits)))
	return hits, err
}

func (s *Store) load(keys []string) ([]Item, error) {
	items := make([]Item, 0, len(keys))
	for _, k := range keys {
		itm, err := s.Get(k)
		if err != nil {
			return nil, err
		}
		items = append(items, itm)
	}
	return items, nil
}

// Intersecting returns the items whose geometry intersects q. A positive
// limit stops the search once that many items are found. On cancellation
// the error wraps cellindex.ErrInterrupted and the items found so far are
// returned with it.
func (s *Store) Intersecting(ctx context.Context, q geo.Geometry, limit int) ([]Item, error) {
	if !s.isOpen() {
		return nil, ErrStoreClosed
	}
	cells, err := cellindex.Covering(q, s.opts.index.QueryGoalCells)
	if err != nil {
		return nil, err
	}
	hits, serr := s.search(ctx, cells, limit, func(_ string, g geo.Geometry) (bool, error) {
		return geo.Intersects(g, q)
	})
	items, err := s.load(hits)
	if err != nil {
		return nil, err
	}
	return items, serr
}

// Within returns the items whose geometry is included in poly.
func (s *Store) Within(ctx context.Context, poly *geo.Polygon, limit int) ([]Item, error) {
	if !s.isOpen() {
		return nil, ErrStoreClosed
	}
	cells, err := cellindex.Covering(poly, s.opts.index.QueryGoalCells)
	if err != nil {
		return nil, err
	}
	hits, serr := s.search(ctx, cells, limit, func(_ string, g geo.Geometry) (bool, error) {
		return geo.Includes(poly, g)
	})
	items, err := s.load(hits)
	if err != nil {
		return nil, err
	}
	return items, serr
}

// NearestOptions bounds a Nearest search. Zero values take the defaults:
// 100 results, 100 km, meters, WGS84.
type NearestOptions struct {
	MaxResults  int
	MaxDistance float64
	Unit        geo.Unit
	Ellipsoid   *geo.Ellipsoid
}

const (
	defaultMaxResults  = 100
	defaultMaxDistance = 100000
	initialRadius      = 1000
)

// Neighbor is a Nearest result; Distance is in the requested unit.
type Neighbor struct {
	Item     Item
	Distance float64
}

// Nearest returns up to MaxResults items within MaxDistance of center,
// closest first. The search radius grows until enough items are found or
// MaxDistance is reached. Like Intersecting, an interrupted search returns
// the neighbors verified so far together with the error.
func (s *Store) Nearest(ctx context.Context, center geo.Point, o NearestOptions) ([]Neighbor, error) {
	if !s.isOpen() {
		return nil, ErrStoreClosed
	}
	if o.MaxResults <= 0 {
		o.MaxResults = defaultMaxResults
	}
	if o.Unit == "" {
		o.Unit = geo.Meter
	}
	if o.Ellipsoid == nil {
		o.Ellipsoid = geo.WGS84
	}
	factor, err := o.Unit.Meters()
	if err != nil {
		return nil, err
	}
	maxDist := defaultMaxDistance / factor
	if o.MaxDistance > 0 {
		maxDist = o.MaxDistance
	}
	maxMeters := maxDist * factor

	type found struct {
		key  string
		dist float64
	}
	var near []found
	var serr error
	radius := initialRadius * o.Ellipsoid.Radius / geo.WGS84.Radius
	for {
		if radius > maxMeters {
			radius = maxMeters
		}
		cells := cellindex.CoverRegion(searchCap(center, radius, o.Ellipsoid), s.opts.index.QueryGoalCells)
		dists := map[string]float64{}
		hits, err := s.search(ctx, cells, 0, func(key string, g geo.Geometry) (bool, error) {
			d, err := geo.Distance(center, g, o.Ellipsoid)
			if err != nil || d > radius {
				return false, err
			}
			dists[key] = d
			return true, nil
		})
		near = near[:0]
		for _, k := range hits {
			near = append(near, found{key: k, dist: dists[k]})
		}
		if err != nil {
			serr = err
			break
		}
		if len(near) >= o.MaxResults || radius >= maxMeters {
			break
		}
		radius *= 4
	}

	sort.SliceStable(near, func(i, j int) bool {
		if near[i].dist != near[j].dist {
			return near[i].dist < near[j].dist
		}
		return near[i].key < near[j].key
	})
	if len(near) > o.MaxResults {
		near = near[:o.MaxResults]
	}
	out := make([]Neighbor, 0, len(near))
	for _, n := range near {
		itm, err := s.Get(n.key)
		if err != nil {
			return nil, err
		}
		out = append(out, Neighbor{Item: itm, Distance: n.dist / factor})
	}
	return out, serr
}
