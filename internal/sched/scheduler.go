// Package sched абстрагирует таймеры, чтобы автошаг и фазы анимации
// можно было прогонять в тестах синхронно, без настенных часов.
package sched

import (
	"sync"
	"sync/atomic"
	"time"
)

// Timer отменяемая отложенная задача.
// После Stop колбэк больше не вызывается (уже запущенный вызов не прерывается).
type Timer interface {
	Stop()
}

// Scheduler планирует одноразовые и периодические задачи.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
	Every(d time.Duration, fn func()) Timer
	Now() time.Time
}

// Real работает на time.Timer / time.Ticker.
type Real struct{}

func NewReal() Real { return Real{} }

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, fn func()) Timer {
	return realTimer{t: time.AfterFunc(d, fn)}
}

type realTimer struct{ t *time.Timer }

func (r realTimer) Stop() { r.t.Stop() }

// Every запускает fn каждые d в отдельной горутине.
// Тики не копятся: если fn работает дольше периода, лишние тики теряются в самом Ticker.
func (Real) Every(d time.Duration, fn func()) Timer {
	t := &ticker{
		ticker: time.NewTicker(d),
		done:   make(chan struct{}),
	}
	go t.run(fn)
	return t
}

type ticker struct {
	ticker  *time.Ticker
	done    chan struct{}
	stopped atomic.Bool
}

func (t *ticker) run(fn func()) {
	defer t.ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			// Stop мог случиться, пока тик ждал в канале
			if t.stopped.Load() {
				return
			}
			fn()
		}
	}
}

func (t *ticker) Stop() {
	if t.stopped.CompareAndSwap(false, true) {
		close(t.done)
	}
}

// Manual - ручные часы для тестов. Время двигается только через Advance,
// колбэки выполняются в горутине, вызвавшей Advance, в порядке срабатывания.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks map[uint64]*manualTask
}

type manualTask struct {
	id     uint64
	at     time.Time
	period time.Duration
	fn     func()
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start, tasks: make(map[uint64]*manualTask)}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	return m.add(d, 0, fn)
}

func (m *Manual) Every(d time.Duration, fn func()) Timer {
	if d <= 0 {
		d = time.Millisecond
	}
	return m.add(d, d, fn)
}

func (m *Manual) add(d, period time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{id: m.seq, at: m.now.Add(d), period: period, fn: fn}
	m.tasks[t.id] = t
	return manualTimer{m: m, id: t.id}
}

type manualTimer struct {
	m  *Manual
	id uint64
}

func (t manualTimer) Stop() {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	delete(t.m.tasks, t.id)
}

// Pending число запланированных задач.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Advance сдвигает часы на d и по очереди выполняет все созревшие задачи.
// Задачи, запланированные колбэками внутри окна, тоже выполняются, если успевают созреть.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDueLocked(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = next.at
		if next.period > 0 {
			next.at = next.at.Add(next.period)
		} else {
			delete(m.tasks, next.id)
		}
		fn := next.fn
		m.mu.Unlock()

		// Колбэк может сам планировать и отменять задачи
		fn()
	}
}

func (m *Manual) nextDueLocked(target time.Time) *manualTask {
	var best *manualTask
	for _, t := range m.tasks {
		if t.at.After(target) {
			continue
		}
		if best == nil || t.at.Before(best.at) || (t.at.Equal(best.at) && t.id < best.id) {
			best = t
		}
	}
	return best
}
