package geoindex

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/squiidz/geoindex/cellindex"
)

const (
	DefaultLeafSize = 64
	DefaultFanout   = 16
)

type options struct {
	index    cellindex.Options
	leafSize int
	fanout   int
	inMemory bool
	logger   *zap.Logger
}

func defaultOptions() options {
	return options{
		index:    cellindex.DefaultOptions(),
		leafSize: DefaultLeafSize,
		fanout:   DefaultFanout,
	}
}

func (o options) validate() error {
	if err := o.index.Validate(); err != nil {
		return err
	}
	if o.leafSize < 1 {
		return eris.Errorf("geoindex: leaf size must be positive, got %d", o.leafSize)
	}
	if o.fanout < 1 {
		return eris.Errorf("geoindex: fanout must be positive, got %d", o.fanout)
	}
	return nil
}

// Option configures a Store.
type Option func(*options)

// WithCovering sets the index and query covering budgets. Changing the
// index budget of an existing store leaves old documents with their old
// coverings, which stays correct but prunes less evenly.
func WithCovering(o cellindex.Options) Option {
	return func(opts *options) { opts.index = o }
}

// WithLeafSize sets how many entry keys the traversal groups per leaf.
func WithLeafSize(n int) Option {
	return func(opts *options) { opts.leafSize = n }
}

// WithFanout sets how many leaves the traversal groups per node.
func WithFanout(n int) Option {
	return func(opts *options) { opts.fanout = n }
}

// WithInMemory keeps the store in memory; the path is ignored.
func WithInMemory() Option {
	return func(opts *options) { opts.inMemory = true }
}

func WithLogger(l *zap.Logger) Option {
	return func(opts *options) { opts.logger = l }
}
