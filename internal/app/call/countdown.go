package call

import (
	"math"
	"time"
)

// countdown pairs a per-tick reporter with the real deadline. The two run
// independently and may settle slightly apart.
type countdown struct {
	deadline *time.Timer
	ticker   *time.Ticker
	stop     chan struct{}
}

// StartTimeout arms the connection deadline, replacing any armed one.
// onTick gets the remaining whole ticks right away and then once per tick
// while more than zero remain; onTimeout runs once when d elapses.
func (m *Manager) StartTimeout(d time.Duration, onTimeout func(), onTick func(remaining int)) {
	m.mu.Lock()
	m.stopTimeoutLocked()
	cd := &countdown{
		ticker: time.NewTicker(m.tick),
		stop:   make(chan struct{}),
	}
	cd.deadline = time.AfterFunc(d, func() { m.expire(cd, onTimeout) })
	m.countdown = cd
	m.mu.Unlock()

	remaining := int(math.Ceil(float64(d) / float64(m.tick)))
	m.logger.Debug().Dur("timeout", d).Int("remaining", remaining).Msg("countdown started")
	if onTick != nil {
		onTick(remaining)
	}
	go m.countDown(cd, remaining, onTick)
}

// StopTimeout cancels the deadline and the ticks. Safe to call at any time.
func (m *Manager) StopTimeout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimeoutLocked()
}

// TimeoutActive reports whether a deadline is armed.
func (m *Manager) TimeoutActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countdown != nil
}

func (m *Manager) stopTimeoutLocked() {
	cd := m.countdown
	if cd == nil {
		return
	}
	m.countdown = nil
	cd.deadline.Stop()
	cd.ticker.Stop()
	close(cd.stop)
}

func (m *Manager) countDown(cd *countdown, remaining int, onTick func(int)) {
	for {
		select {
		case <-cd.stop:
			return
		case <-cd.ticker.C:
		}
		remaining--
		if remaining <= 0 {
			// the display is done, the deadline still owns the timeout
			cd.ticker.Stop()
			return
		}
		m.mu.Lock()
		armed := m.countdown == cd
		m.mu.Unlock()
		if !armed {
			return
		}
		if onTick != nil {
			onTick(remaining)
		}
	}
}

func (m *Manager) expire(cd *countdown, onTimeout func()) {
	m.mu.Lock()
	if m.countdown != cd {
		m.mu.Unlock()
		return
	}
	m.stopTimeoutLocked()
	m.mu.Unlock()

	m.logger.Warn().Msg("connection timeout")
	if onTimeout != nil {
		onTimeout()
	}
}
