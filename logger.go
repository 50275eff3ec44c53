package geoindex

import (
	"strings"

	"go.uber.org/zap"
)

// badgerLogger routes badger's log lines to zap.
type badgerLogger struct {
	log *zap.SugaredLogger
}

func newBadgerLogger(l *zap.Logger) *badgerLogger {
	return &badgerLogger{log: l.Named("badger").WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (b *badgerLogger) Errorf(f string, v ...interface{}) {
	b.log.Errorf(strings.TrimSuffix(f, "\n"), v...)
}

func (b *badgerLogger) Warningf(f string, v ...interface{}) {
	b.log.Warnf(strings.TrimSuffix(f, "\n"), v...)
}

func (b *badgerLogger) Infof(f string, v ...interface{}) {
	b.log.Infof(strings.TrimSuffix(f, "\n"), v...)
}

func (b *badgerLogger) Debugf(f string, v ...interface{}) {
	b.log.Debugf(strings.TrimSuffix(f, "\n"), v...)
}
