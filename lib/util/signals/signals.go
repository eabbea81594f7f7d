// Package signals dispatches process signals to registered handlers:
// SIGHUP to reload handlers and SIGINT/SIGTERM to interrupt handlers.
package signals

import (
	"os"
	"slices"
	"sync"

	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// sigChan is buffered so a signal delivered while Handle is busy is kept.
var sigChan = make(chan os.Signal, 1)

// Handler is called when a signal is received.
type Handler func()

// HandlerID identifies a registration for later removal.
type HandlerID int

type entry struct {
	id HandlerID
	fn Handler
}

// registry is an ordered, concurrency-safe list of handlers.
type registry struct {
	name    string
	entries []entry
}

var (
	mu           sync.Mutex
	nextID       HandlerID
	reloaders    = &registry{name: "reload"}
	interrupters = &registry{name: "interrupt"}
	stopOnce     sync.Once
)

func (r *registry) add(f Handler) HandlerID {
	if f == nil {
		return -1
	}
	mu.Lock()
	defer mu.Unlock()
	id := nextID
	nextID++
	r.entries = append(r.entries, entry{id: id, fn: f})
	return id
}

func (r *registry) remove(id HandlerID) {
	mu.Lock()
	defer mu.Unlock()
	r.entries = slices.DeleteFunc(r.entries, func(e entry) bool { return e.id == id })
}

// run calls every handler in registration order. A panicking handler is
// logged and does not stop the others.
func (r *registry) run() {
	mu.Lock()
	snapshot := slices.Clone(r.entries)
	mu.Unlock()

	for _, e := range snapshot {
		func() {
			defer func() {
				if p := recover(); p != nil {
					log.WithFields(logger.Fields{
						"at":      "signals.run",
						"handler": r.name,
						"id":      e.id,
						"panic":   p,
					}).Error("signal handler panicked")
				}
			}()
			e.fn()
		}()
	}
}

// RegisterReloadHandler registers f for SIGHUP. Nil handlers are ignored
// and return -1.
func RegisterReloadHandler(f Handler) HandlerID {
	return reloaders.add(f)
}

// DeregisterReloadHandler removes a reload handler.
func DeregisterReloadHandler(id HandlerID) {
	reloaders.remove(id)
}

// RegisterInterruptHandler registers f for SIGINT and SIGTERM. Nil
// handlers are ignored and return -1.
func RegisterInterruptHandler(f Handler) HandlerID {
	return interrupters.add(f)
}

// DeregisterInterruptHandler removes an interrupt handler.
func DeregisterInterruptHandler(id HandlerID) {
	interrupters.remove(id)
}

// StopHandle makes Handle return. Safe to call more than once.
func StopHandle() {
	stopOnce.Do(func() {
		stopNotify()
		close(sigChan)
	})
}
