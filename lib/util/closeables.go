package util

import (
	"io"
	"sync"
)

var (
	shutdownMu      sync.Mutex
	shutdownClosers []io.Closer
)

// RegisterCloser queues c for CloseAll. Commands register the resources
// they open so one deferred CloseAll releases them all.
func RegisterCloser(c io.Closer) {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	shutdownClosers = append(shutdownClosers, c)
	log.WithField("pending", len(shutdownClosers)).Debug("closer registered for shutdown")
}

// CloseAll releases the registered closers in reverse registration order,
// so a service closes before the interface it sends on. Close errors are
// logged and do not stop the sweep. The list is empty afterwards.
func CloseAll() {
	shutdownMu.Lock()
	closers := shutdownClosers
	shutdownClosers = nil
	shutdownMu.Unlock()

	log.WithField("pending", len(closers)).Debug("closing registered resources")
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			log.WithError(err).WithField("index", i).Warn("close failed during shutdown")
		}
	}
}
