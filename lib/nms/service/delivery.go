package service

import (
	"sync"
	"time"

	"github.com/go-i2p/go-nms/lib/nms/message"
	"github.com/go-i2p/logger"
)

type deliveryItem struct {
	msg     *message.NetworkMessage
	iface   string
	unicast bool
}

// deliveryQueue is the FIFO between the receive path and the delivery
// worker.
type deliveryQueue struct {
	mu     sync.Mutex
	items  []deliveryItem
	notify chan struct{}
}

func newDeliveryQueue() *deliveryQueue {
	return &deliveryQueue{notify: make(chan struct{}, 1)}
}

func (q *deliveryQueue) push(it deliveryItem) {
	q.mu.Lock()
	q.items = append(q.items, it)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *deliveryQueue) pop() (deliveryItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return deliveryItem{}, false
	}
	it := q.items[0]
	q.items[0] = deliveryItem{}
	q.items = q.items[1:]
	return it, true
}

func (q *deliveryQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// deliver hands a complete message to the listeners, inline or through
// the delivery queue.
func (s *Service) deliver(msg *message.NetworkMessage, ifaceName string, unicast bool) {
	if s.delivery != nil {
		s.delivery.push(deliveryItem{msg: msg.Clone(), iface: ifaceName, unicast: unicast})
		return
	}
	if err := s.callListeners(msg, ifaceName, unicast); err != nil {
		s.logDeliveryError(msg, err)
	}
}

// deliveryWorker drains the delivery queue until the service closes. It
// waits at most DeliveryPollInterval between checks.
func (s *Service) deliveryWorker() {
	defer s.wg.Done()
	timer := time.NewTimer(s.cfg.DeliveryPollInterval)
	defer timer.Stop()

	for {
		for {
			it, ok := s.delivery.pop()
			if !ok {
				break
			}
			if err := s.callListeners(it.msg, it.iface, it.unicast); err != nil {
				s.logDeliveryError(it.msg, err)
			}
		}
		timer.Reset(s.cfg.DeliveryPollInterval)
		select {
		case <-s.ctx.Done():
			return
		case <-s.delivery.notify:
		case <-timer.C:
		}
	}
}

// callListeners decrypts and verifies msg, then calls every listener
// registered for its type. Integrity failures are returned and no listener
// is called.
func (s *Service) callListeners(msg *message.NetworkMessage, ifaceName string, unicast bool) error {
	metadata, data, err := s.openPayload(msg)
	if err != nil {
		s.stats.integrityDrops.Add(1)
		return err
	}
	s.stats.delivered.Add(1)
	listeners := s.listenersFor(msg.MsgType)
	if len(listeners) == 0 {
		s.trace(logger.Fields{
			"at":       "(Service) callListeners",
			"msg_type": msg.MsgType,
		}, "no listener for message type")
		return nil
	}
	d := newDelivery(msg, ifaceName, unicast, metadata, data)
	for _, l := range listeners {
		if err := l.MessageArrived(d); err != nil {
			log.WithError(err).WithFields(logger.Fields{
				"at":       "(Service) callListeners",
				"msg_type": msg.MsgType,
				"src":      message.AddrString(msg.SourceAddr),
			}).Warn("listener returned an error")
		}
	}
	return nil
}

func (s *Service) logDeliveryError(msg *message.NetworkMessage, err error) {
	log.WithError(err).WithFields(logger.Fields{
		"at":      "(Service) deliver",
		"src":     message.AddrString(msg.SourceAddr),
		"msg_id":  msg.MsgID,
		"session": msg.SessionID,
	}).Warn("dropping undeliverable message")
}
