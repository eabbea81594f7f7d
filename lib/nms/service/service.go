package service

import (
	"context"
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-i2p/crypto/rand"
	"github.com/go-i2p/go-nms/lib/config"
	gaes "github.com/go-i2p/go-nms/lib/crypto/aes"
	"github.com/go-i2p/go-nms/lib/nms/iface"
	"github.com/go-i2p/go-nms/lib/nms/message"
	"github.com/go-i2p/go-nms/lib/nms/reassembler"
	"github.com/go-i2p/go-nms/lib/util/time/monotonic"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"golang.org/x/time/rate"
)

var log = logger.GetGoI2PLogger()

// Service is a network message service bound to a fixed set of
// interfaces. The first interface is the primary one: its address is our
// source address and it carries periodic SAcks.
type Service struct {
	cfg       *config.NMSConfig
	clock     *monotonic.Clock
	ifaces    []iface.Interface
	byName    map[string]iface.Interface
	primary   iface.Interface
	sessionID uint16
	reasm     *reassembler.Reassembler
	limiter   *rate.Limiter
	stats     counters

	retransmitTimeout atomic.Int64

	seqMu         sync.Mutex
	reliableSeq   map[uint32]uint16
	unreliableSeq map[uint32]uint16

	unackedMu sync.Mutex
	unacked   map[uint32]*unackedQueue

	keyMu sync.RWMutex
	key   *gaes.GroupKey

	// arrivedMu serializes inbound processing.
	arrivedMu sync.Mutex
	peers     map[uint32]*peerState

	sackMu   sync.Mutex
	lastSAck map[uint32]time.Time

	listenersMu sync.RWMutex
	listeners   map[uint8][]registeredListener
	nextID      ListenerID

	delivery  *deliveryQueue
	neighbors *neighborTable
	// decayedAt is only touched by the housekeeping loop.
	decayedAt time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
	closed    atomic.Bool
}

type registeredListener struct {
	id ListenerID
	l  Listener
}

// New creates a service. A nil cfg selects the defaults.
func New(cfg *config.NMSConfig, ifaces ...iface.Interface) (*Service, error) {
	if cfg == nil {
		cfg = config.DefaultNMSConfig()
	}
	if len(ifaces) == 0 {
		return nil, ErrNoPrimaryInterface
	}
	if cfg.MaxRetransmissions < 0 || cfg.MaxRetransmissions > 0xFF {
		return nil, oops.Wrapf(ErrInvalidRetransmissions, "got %d", cfg.MaxRetransmissions)
	}
	if cfg.RetransmissionTimeout < config.MinRetransmissionTimeout {
		return nil, oops.Wrapf(ErrInvalidTimeout, "got %s", cfg.RetransmissionTimeout)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	byName := make(map[string]iface.Interface, len(ifaces))
	for _, ifc := range ifaces {
		if _, dup := byName[ifc.Name()]; dup {
			return nil, oops.Wrapf(ErrDuplicateInterface, "%s", ifc.Name())
		}
		byName[ifc.Name()] = ifc
	}

	key, err := loadKey(cfg.Encryption)
	if err != nil {
		return nil, err
	}

	var sid [2]byte
	if _, err := rand.Read(sid[:]); err != nil {
		return nil, oops.Wrapf(err, "generating session id")
	}

	mode := reassembler.Sequenced
	if cfg.ReassemblyMode == config.ReassemblyPermissive {
		mode = reassembler.Permissive
	}
	clock := monotonic.NewClock()

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		cfg:       cfg,
		clock:     clock,
		ifaces:    ifaces,
		byName:    byName,
		primary:   ifaces[0],
		sessionID: binary.BigEndian.Uint16(sid[:]),
		reasm: reassembler.New(reassembler.Options{
			Mode:        mode,
			SAckSilence: cfg.SAckSilence(),
			Clock:       clock,
		}),
		reliableSeq:   make(map[uint32]uint16),
		unreliableSeq: make(map[uint32]uint16),
		unacked:       make(map[uint32]*unackedQueue),
		key:           key,
		peers:         make(map[uint32]*peerState),
		lastSAck:      make(map[uint32]time.Time),
		listeners:     make(map[uint8][]registeredListener),
		neighbors:     newNeighborTable(),
		decayedAt:     clock.Now(),
		ctx:           ctx,
		cancel:        cancel,
	}
	s.retransmitTimeout.Store(int64(cfg.RetransmissionTimeout))
	if cfg.RebroadcastRate > 0 {
		burst := int(cfg.RebroadcastRate)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RebroadcastRate), burst)
	}
	if cfg.DeliveryMode == config.DeliveryAsync {
		s.delivery = newDeliveryQueue()
	}

	log.WithFields(logger.Fields{
		"at":         "service.New",
		"session_id": s.sessionID,
		"primary":    s.primary.Name(),
		"address":    message.AddrString(s.primary.Address()),
		"interfaces": len(ifaces),
		"mode":       mode.String(),
		"delivery":   cfg.DeliveryMode,
		"encrypted":  key != nil,
	}).Debug("network message service created")
	return s, nil
}

// Start launches the housekeeping loop and, in async mode, the delivery
// worker. It is a no-op after the first call.
func (s *Service) Start() error {
	if s.closed.Load() {
		return ErrServiceClosed
	}
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.run()
		if s.delivery != nil {
			s.wg.Add(1)
			go s.deliveryWorker()
		}
		log.WithField("at", "(Service) Start").Debug("service started")
	})
	return nil
}

// Close stops the background goroutines and waits for them. Interfaces
// are not closed; they belong to the caller.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()
		s.wg.Wait()
		log.WithFields(logger.Fields{
			"at":      "(Service) Close",
			"pending": s.DeliveryQueueSize(),
		}).Debug("service stopped")
	})
	return nil
}

// Clock returns the clock the service measures time with.
func (s *Service) Clock() *monotonic.Clock {
	return s.clock
}

// SessionID returns the session id stamped on every message we send.
func (s *Service) SessionID() uint16 {
	return s.sessionID
}

// Stats returns a snapshot of the counters.
func (s *Service) Stats() Stats {
	return s.stats.snapshot()
}

// RetransmissionTimeout returns the current base retransmission timeout.
func (s *Service) RetransmissionTimeout() time.Duration {
	return time.Duration(s.retransmitTimeout.Load())
}

// SetRetransmissionTimeout changes the base retransmission timeout. The
// SAck silence cut-off follows it.
func (s *Service) SetRetransmissionTimeout(d time.Duration) error {
	if d < config.MinRetransmissionTimeout {
		return oops.Wrapf(ErrInvalidTimeout, "got %s", d)
	}
	s.retransmitTimeout.Store(int64(d))
	s.reasm.SetSAckSilence(time.Duration(s.cfg.SAckSilenceMultiple) * d)
	log.WithFields(logger.Fields{
		"at":      "(Service) SetRetransmissionTimeout",
		"timeout": d,
	}).Debug("retransmission timeout changed")
	return nil
}

// DeliveryQueueSize returns the number of messages waiting for the async
// delivery worker.
func (s *Service) DeliveryQueueSize() int {
	if s.delivery == nil {
		return 0
	}
	return s.delivery.len()
}

// NeighborQueueLength returns the last queue length addr advertised on the
// named interface, or 0 once it has decayed.
func (s *Service) NeighborQueueLength(ifaceName string, addr uint32) uint8 {
	return s.neighbors.get(ifaceName, addr)
}

// RegisterHandlerCallback adds l for messages of msgType.
func (s *Service) RegisterHandlerCallback(msgType uint8, l Listener) ListenerID {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[msgType] = append(s.listeners[msgType], registeredListener{id: id, l: l})
	return id
}

// DeregisterHandlerCallback removes a listener. It reports whether the
// registration existed.
func (s *Service) DeregisterHandlerCallback(msgType uint8, id ListenerID) bool {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	ls := s.listeners[msgType]
	for i, rl := range ls {
		if rl.id == id {
			s.listeners[msgType] = append(ls[:i:i], ls[i+1:]...)
			if len(s.listeners[msgType]) == 0 {
				delete(s.listeners, msgType)
			}
			return true
		}
	}
	return false
}

func (s *Service) listenersFor(msgType uint8) []Listener {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	ls := s.listeners[msgType]
	out := make([]Listener, len(ls))
	for i, rl := range ls {
		out[i] = rl.l
	}
	return out
}

func (s *Service) isOwnAddress(addr uint32) bool {
	for _, ifc := range s.ifaces {
		if ifc.Address() == addr {
			return true
		}
	}
	return false
}

// trace logs per-message detail when instrumentation is enabled.
func (s *Service) trace(fields logger.Fields, msg string) {
	if s.cfg.Instrumentation {
		log.WithFields(fields).Debug(msg)
	}
}
