package iface

import (
	"context"
	"sync"

	"github.com/go-i2p/go-nms/lib/nms/message"
	"github.com/go-i2p/logger"
)

// DefaultInboxSize is the per-interface receive backlog of a Hub.
const DefaultInboxSize = 1024

// DropFunc decides whether a frame from one hub address to another is lost.
type DropFunc func(from, to uint32, raw []byte) bool

type frame struct {
	raw  []byte
	from uint32
}

// Hub is an in-memory broadcast domain. Frames sent to a manycast address
// reach every other attached interface; unicast frames reach the interface
// owning the address, or vanish.
type Hub struct {
	broadcast uint32
	inboxSize int

	mu     sync.RWMutex
	ifaces map[uint32]*MemoryInterface
	drop   DropFunc
}

// NewHub creates a hub whose directed broadcast address is broadcast
// (0 for none).
func NewHub(broadcast uint32) *Hub {
	return &Hub{
		broadcast: broadcast,
		inboxSize: DefaultInboxSize,
		ifaces:    make(map[uint32]*MemoryInterface),
	}
}

// SetDropFunc installs a loss hook; nil removes it.
func (h *Hub) SetDropFunc(fn DropFunc) {
	h.mu.Lock()
	h.drop = fn
	h.mu.Unlock()
}

// Attach creates an interface with the given address on the hub.
func (h *Hub) Attach(name string, addr uint32, mtu int) (*MemoryInterface, error) {
	if mtu <= 0 {
		return nil, ErrInvalidMTU
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.ifaces[addr]; ok {
		return nil, ErrDuplicateAddr
	}
	m := &MemoryInterface{
		hub:   h,
		name:  name,
		addr:  addr,
		mtu:   mtu,
		inbox: make(chan frame, h.inboxSize),
		done:  make(chan struct{}),
	}
	h.ifaces[addr] = m
	log.WithFields(logger.Fields{
		"at":   "(Hub) Attach",
		"name": name,
		"addr": message.AddrString(addr),
		"mtu":  mtu,
	}).Debug("interface attached")
	return m, nil
}

func (h *Hub) detach(m *MemoryInterface) {
	h.mu.Lock()
	if h.ifaces[m.addr] == m {
		delete(h.ifaces, m.addr)
	}
	h.mu.Unlock()
}

func (h *Hub) route(from *MemoryInterface, raw []byte, dest uint32) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if message.IsManycastFor(dest, h.broadcast) {
		for addr, to := range h.ifaces {
			if addr != from.addr {
				h.deliver(from.addr, to, raw)
			}
		}
		return
	}
	to, ok := h.ifaces[dest]
	if !ok {
		log.WithFields(logger.Fields{
			"at":   "(Hub) route",
			"from": message.AddrString(from.addr),
			"dest": message.AddrString(dest),
		}).Debug("no interface at destination, frame lost")
		return
	}
	h.deliver(from.addr, to, raw)
}

func (h *Hub) deliver(from uint32, to *MemoryInterface, raw []byte) {
	if h.drop != nil && h.drop(from, to.addr, raw) {
		return
	}
	f := frame{raw: append([]byte(nil), raw...), from: from}
	select {
	case to.inbox <- f:
	default:
		log.WithFields(logger.Fields{
			"at":     "(Hub) deliver",
			"to":     message.AddrString(to.addr),
			"reason": "inbox_full",
		}).Warn("frame dropped")
	}
}

// MemoryInterface is an Interface attached to a Hub.
type MemoryInterface struct {
	hub   *Hub
	name  string
	addr  uint32
	mtu   int
	inbox chan frame

	done      chan struct{}
	closeOnce sync.Once
}

var _ Interface = (*MemoryInterface)(nil)

func (m *MemoryInterface) Name() string             { return m.name }
func (m *MemoryInterface) Address() uint32          { return m.addr }
func (m *MemoryInterface) BroadcastAddress() uint32 { return m.hub.broadcast }
func (m *MemoryInterface) MTU() int                 { return m.mtu }

// QueueLength returns the receive backlog.
func (m *MemoryInterface) QueueLength() uint8 {
	return saturate(len(m.inbox))
}

// Send routes raw through the hub. Expedited has no effect in memory.
func (m *MemoryInterface) Send(raw []byte, dest uint32, expedited bool) error {
	select {
	case <-m.done:
		return ErrClosed
	default:
	}
	if len(raw) > m.mtu {
		return ErrFrameTooLarge
	}
	m.hub.route(m, raw, dest)
	return nil
}

// Receive returns the next frame without a Serve loop. It blocks until a
// frame arrives, ctx ends or the interface closes.
func (m *MemoryInterface) Receive(ctx context.Context) ([]byte, uint32, error) {
	select {
	case f := <-m.inbox:
		return f.raw, f.from, nil
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	case <-m.done:
		return nil, 0, ErrClosed
	}
}

// Serve passes every received frame to r until ctx ends or the interface
// closes, both of which return nil.
func (m *MemoryInterface) Serve(ctx context.Context, r Receiver) error {
	for {
		raw, from, err := m.Receive(ctx)
		if err != nil {
			if err == ErrClosed || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := r.MessageArrived(raw, m, from); err != nil {
			log.WithError(err).WithFields(logger.Fields{
				"at":   "(MemoryInterface) Serve",
				"name": m.name,
				"from": message.AddrString(from),
			}).Debug("receiver rejected frame")
		}
	}
}

// Close detaches the interface from its hub.
func (m *MemoryInterface) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
		m.hub.detach(m)
	})
	return nil
}
