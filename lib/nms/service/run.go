package service

import (
	"time"

	"github.com/go-i2p/logger"
)

// run is the housekeeping loop. Each cycle lasts a RetransmitCycles-th of
// the retransmission timeout.
func (s *Service) run() {
	defer s.wg.Done()
	timer := time.NewTimer(s.cycleInterval())
	defer timer.Stop()

	for cycle := 1; ; cycle++ {
		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
		}
		s.housekeeping(cycle)
		timer.Reset(s.cycleInterval())
	}
}

func (s *Service) cycles() int {
	return max(s.cfg.RetransmitCycles, 1)
}

func (s *Service) cycleInterval() time.Duration {
	return s.RetransmissionTimeout() / time.Duration(s.cycles())
}

// housekeeping runs one cycle: periodic SAcks always, retransmissions every
// RetransmitCycles-th cycle and the neighbor decay once QueueLengthDecay has
// passed.
func (s *Service) housekeeping(cycle int) {
	acks := s.sendSAcks()
	resent := 0
	if cycle%s.cycles() == 0 {
		resent = s.resendUnacknowledged()
	}
	if d := s.cfg.QueueLengthDecay; d > 0 && s.clock.Since(s.decayedAt) >= d {
		s.neighbors.decay()
		s.decayedAt = s.clock.Now()
	}
	if acks > 0 || resent > 0 {
		s.trace(logger.Fields{
			"at":     "(Service) housekeeping",
			"cycle":  cycle,
			"sacks":  acks,
			"resent": resent,
		}, "housekeeping cycle")
	}
}
