// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ioprpc

import (
	"sync"
	"time"
)

// activityWatch implements spec §4.9's soft/hard inactivity timers: the
// soft timer fires EventIdle and starts sending NOP keepalives every
// soft/3; the hard timer, if it fires with no activity at all, disconnects
// the channel outright.
type activityWatch struct {
	mu   sync.Mutex
	soft time.Duration
	hard time.Duration

	softTimer *time.Timer
	hardTimer *time.Timer
	nopTicker *time.Ticker
	nopStop   chan struct{}
	idle      bool
}

// start arms the watch. soft==0 disables idle tracking; hard==0 disables
// the forced disconnect.
func (a *activityWatch) start(ch *Channel, soft, hard time.Duration) {
	a.mu.Lock()
	a.soft, a.hard = soft, hard
	a.mu.Unlock()
	if soft > 0 {
		a.mu.Lock()
		a.softTimer = time.AfterFunc(soft, func() { a.onSoftFire(ch) })
		a.mu.Unlock()
	}
	if hard > 0 {
		a.mu.Lock()
		a.hardTimer = time.AfterFunc(hard, func() { ch.Disconnect() })
		a.mu.Unlock()
	}
}

func (a *activityWatch) onSoftFire(ch *Channel) {
	a.mu.Lock()
	a.idle = true
	soft := a.soft
	stop := make(chan struct{})
	a.nopStop = stop
	a.nopTicker = time.NewTicker(soft / 3)
	ticker := a.nopTicker
	a.mu.Unlock()

	ch.fireEvent(EventIdle)

	go func() {
		for {
			select {
			case <-ticker.C:
				if ch.Nop() != nil {
					return
				}
			case <-stop:
				return
			case <-ch.closed:
				return
			}
		}
	}()
}

// touch records activity and, if the channel was idle, fires EventActive
// and stops the keepalive ticker (spec §4.9).
func (a *activityWatch) touch(ch *Channel) {
	a.mu.Lock()
	wasIdle := a.idle
	a.idle = false
	if a.softTimer != nil {
		a.softTimer.Reset(a.soft)
	}
	if a.hardTimer != nil {
		a.hardTimer.Reset(a.hard)
	}
	if wasIdle && a.nopTicker != nil {
		a.nopTicker.Stop()
		close(a.nopStop)
		a.nopTicker = nil
	}
	a.mu.Unlock()

	if wasIdle {
		ch.fireEvent(EventActive)
	}
}

func (a *activityWatch) stop() {
	a.mu.Lock()
	if a.softTimer != nil {
		a.softTimer.Stop()
	}
	if a.hardTimer != nil {
		a.hardTimer.Stop()
	}
	if a.nopTicker != nil {
		a.nopTicker.Stop()
		close(a.nopStop)
		a.nopTicker = nil
	}
	a.mu.Unlock()
}
