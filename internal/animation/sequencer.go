// Package animation накладывает на авторитетную доску декоративные метки переходов
// и снимает их по расписанию. Трогает только поле Cell.Animation.
package animation

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/leslobov/ameba/internal/domain"
	"github.com/leslobov/ameba/internal/sched"
	"github.com/leslobov/ameba/internal/store"
	"github.com/leslobov/ameba/pkg/logger"
)

// Patcher - то, что умеет BoardStore: правка меток против конкретного поколения.
type Patcher interface {
	PatchAnimations(gen uint64, patch store.AnimationPatch) (changed int, ok bool)
}

// Timings длительности фаз.
type Timings struct {
	// MoveDwell сколько держится MovingToFood/Consuming до смены на Energized
	MoveDwell time.Duration
	// EnergizedDwell сколько держится Energized
	EnergizedDwell time.Duration
	// SpawnDelay задержка перед Spawning, чтобы сначала отыграл ход
	SpawnDelay time.Duration
	SpawnDwell time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		MoveDwell:      1200 * time.Millisecond,
		EnergizedDwell: 1000 * time.Millisecond,
		SpawnDelay:     100 * time.Millisecond,
		SpawnDwell:     800 * time.Millisecond,
	}
}

// Transition - все, что нужно для проигрыша одного шага.
type Transition struct {
	// Generation поколение доски Next в BoardStore
	Generation uint64
	Previous   domain.BoardState
	Next       domain.BoardState
	Movements  []domain.Movement
	// EnergyPerFood номинальная ценность еды, показывается как прирост при переходе
	EnergyPerFood float64
}

// Sequencer проигрывает переходы. Новый Play отменяет таймеры предыдущего.
type Sequencer struct {
	store   Patcher
	clock   sched.Scheduler
	timings Timings
	log     *logrus.Entry

	mu sync.Mutex
	// gen поколение текущего плана, Play для более старого ничего не делает
	gen    uint64
	timers []sched.Timer
}

func NewSequencer(p Patcher, clock sched.Scheduler, timings Timings) *Sequencer {
	return &Sequencer{
		store:   p,
		clock:   clock,
		timings: timings,
		log:     logger.Component("animation"),
	}
}

// plan - вычисленные метки одного перехода, по позициям.
type plan struct {
	gen       uint64
	moving    map[domain.Position]domain.AnimationTag
	energized map[domain.Position]bool
	spawned   map[domain.Position]bool
}

func buildPlan(tr Transition) plan {
	p := plan{
		gen:       tr.Generation,
		moving:    make(map[domain.Position]domain.AnimationTag),
		energized: make(map[domain.Position]bool),
		spawned:   make(map[domain.Position]bool),
	}

	for _, m := range tr.Movements {
		cell, ok := tr.Next.At(m.To)
		isAmeba := ok && cell.Kind == domain.CellAmeba

		if m.Moved() && m.AteFood() && isAmeba {
			p.moving[m.To] = domain.MovingToFood(m.From, m.To, tr.EnergyPerFood)
		}
		// Еда съедена не на той клетке, куда пришла амеба
		if m.AteFood() && *m.FoodConsumed != m.To && tr.Next.InBounds(*m.FoodConsumed) {
			if _, taken := p.moving[*m.FoodConsumed]; !taken {
				p.moving[*m.FoodConsumed] = domain.Tag(domain.AnimConsuming)
			}
		}
		if m.EnergyChange > 0 && isAmeba {
			p.energized[m.To] = true
		}
	}

	if !tr.Previous.IsZero() {
		for _, c := range tr.Next.Cells {
			if c.Kind != domain.CellFood {
				continue
			}
			if prev, ok := tr.Previous.At(c.Pos); !ok || prev.Kind != domain.CellFood {
				p.spawned[c.Pos] = true
			}
		}
	}
	return p
}

// Play ставит метки фазы t=0 сразу и планирует остальные фазы.
// Не блокирует: возвращается, как только метки первой фазы применены.
func (s *Sequencer) Play(tr Transition) {
	if !s.takeOver(tr.Generation) {
		s.log.WithField("generation", tr.Generation).Debug("Older transition arrived late, skipping")
		return
	}

	p := buildPlan(tr)

	changed, ok := s.store.PatchAnimations(p.gen, func(c domain.Cell) (domain.AnimationTag, bool) {
		tag, hit := p.moving[c.Pos]
		return tag, hit
	})
	if !ok {
		s.log.WithField("generation", p.gen).Debug("Board replaced before animation start, skipping")
		return
	}

	s.log.WithFields(logrus.Fields{
		"generation": p.gen,
		"moving":     changed,
		"energized":  len(p.energized),
		"spawned":    len(p.spawned),
	}).Debug("Animation started")

	t := s.timings
	s.schedule(p.gen,
		s.clock.AfterFunc(t.MoveDwell, func() { s.settleMoves(p) }),
		s.clock.AfterFunc(t.MoveDwell+t.EnergizedDwell, func() { s.clearEnergized(p) }),
	)
	if len(p.spawned) > 0 {
		s.schedule(p.gen,
			s.clock.AfterFunc(t.SpawnDelay, func() { s.startSpawn(p) }),
			s.clock.AfterFunc(t.SpawnDelay+t.SpawnDwell, func() { s.clearSpawn(p) }),
		)
	}
}

// takeOver делает gen текущим планом и гасит таймеры предыдущего.
// false - уже играет более новое поколение.
func (s *Sequencer) takeOver(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen < s.gen {
		return false
	}
	s.gen = gen
	s.stopLocked()
	return true
}

// Cancel отменяет все запланированные фазы. Уже поставленные метки остаются
// до следующей замены доски (она приходит с чистыми метками).
func (s *Sequencer) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Sequencer) stopLocked() {
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

func (s *Sequencer) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// schedule запоминает таймеры плана gen. Если план уже вытеснен, таймеры гасятся сразу.
func (s *Sequencer) schedule(gen uint64, timers ...sched.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		for _, t := range timers {
			t.Stop()
		}
		return
	}
	s.timers = append(s.timers, timers...)
}

// settleMoves снимает MovingToFood/Consuming и зажигает Energized.
func (s *Sequencer) settleMoves(p plan) {
	s.patch(p.gen, "settle", func(c domain.Cell) (domain.AnimationTag, bool) {
		if p.energized[c.Pos] {
			return domain.Tag(domain.AnimEnergized), true
		}
		if tag, ok := p.moving[c.Pos]; ok && c.Animation == tag {
			return domain.NoAnimation, true
		}
		return domain.NoAnimation, false
	})
}

func (s *Sequencer) clearEnergized(p plan) {
	s.patch(p.gen, "energized", func(c domain.Cell) (domain.AnimationTag, bool) {
		return domain.NoAnimation, p.energized[c.Pos] && c.Animation.Kind == domain.AnimEnergized
	})
}

func (s *Sequencer) startSpawn(p plan) {
	s.patch(p.gen, "spawn", func(c domain.Cell) (domain.AnimationTag, bool) {
		return domain.Tag(domain.AnimSpawning), p.spawned[c.Pos] && c.Animation.IsNone()
	})
}

func (s *Sequencer) clearSpawn(p plan) {
	s.patch(p.gen, "spawn-clear", func(c domain.Cell) (domain.AnimationTag, bool) {
		return domain.NoAnimation, p.spawned[c.Pos] && c.Animation.Kind == domain.AnimSpawning
	})
}

func (s *Sequencer) patch(gen uint64, phase string, fn store.AnimationPatch) {
	if _, ok := s.store.PatchAnimations(gen, fn); !ok {
		s.log.WithFields(logrus.Fields{
			"generation": gen,
			"phase":      phase,
		}).Debug("Stale animation phase ignored")
	}
}
