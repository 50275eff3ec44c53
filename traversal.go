package geoindex

import (
	"context"

	"github.com/dgraph-io/badger/v2"
	"github.com/rotisserie/eris"

	"github.com/squiidz/geoindex/cellindex"
)

// keyLeaf is a run of consecutive entry keys read without values.
type keyLeaf struct {
	txn  *badger.Txn
	keys [][]byte
}

func (l *keyLeaf) Range() cellindex.KeyRange {
	return cellindex.KeyRange{Left: l.keys[0], Right: l.keys[len(l.keys)-1]}
}

func (l *keyLeaf) Len() int { return len(l.keys) }

func (l *keyLeaf) Key(i int) []byte { return l.keys[i] }

func (l *keyLeaf) Value(i int) ([]byte, error) {
	itm, err := l.txn.Get(l.keys[i])
	if err != nil {
		return nil, eris.Wrapf(err, "geoindex: get %q", l.keys[i])
	}
	return itm.ValueCopy(nil)
}

// walk presents the entry key space as a tree whose nodes hold up to fanout
// leaves of up to leafSize keys, and lets pr decide which leaves are read.
// It stops early once pr is aborted.
func (s *Store) walk(ctx context.Context, pr *cellindex.Pruner, fn cellindex.CandidateFunc) error {
	return s.DB.View(func(txn *badger.Txn) error {
		prefix := cellindex.EntryPrefix()
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(prefix)
		for it.ValidForPrefix(prefix) {
			node := s.readNode(txn, it, prefix)
			children := make([]cellindex.KeyRange, len(node))
			for i, l := range node {
				children[i] = l.Range()
			}
			for _, i := range pr.FilterInterestingChildren(children) {
				if err := pr.ProcessLeaf(ctx, node[i], fn); err != nil {
					return err
				}
			}
			if pr.Aborted() {
				return nil
			}
		}
		return nil
	})
}

func (s *Store) readNode(txn *badger.Txn, it *badger.Iterator, prefix []byte) []*keyLeaf {
	var node []*keyLeaf
	for len(node) < s.opts.fanout && it.ValidForPrefix(prefix) {
		leaf := &keyLeaf{txn: txn, keys: make([][]byte, 0, s.opts.leafSize)}
		for len(leaf.keys) < s.opts.leafSize && it.ValidForPrefix(prefix) {
			leaf.keys = append(leaf.keys, it.Item().KeyCopy(nil))
			it.Next()
		}
		node = append(node, leaf)
	}
	return node
}
