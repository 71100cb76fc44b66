// Package engine управляет шаговым циклом: одиночный шаг, автошаг по таймеру,
// пакетная симуляция и локальный сброс доски.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/leslobov/ameba/internal/animation"
	"github.com/leslobov/ameba/internal/codec"
	"github.com/leslobov/ameba/internal/domain"
	"github.com/leslobov/ameba/internal/network"
	"github.com/leslobov/ameba/internal/remote"
	"github.com/leslobov/ameba/internal/sched"
	"github.com/leslobov/ameba/internal/store"
	"github.com/leslobov/ameba/pkg/logger"
	"github.com/leslobov/ameba/pkg/utils"
)

// Controller - единственный владелец состояния сессии.
//
// В каждый момент к движку идет не больше одного запроса step/simulate:
// флаг inFlight ставится под мьютексом до запроса и снимается при любом исходе.
// Повторная попытка, пока запрос в полете, - no-op, а не очередь.
//
// Reset увеличивает эпоху сессии. Ответ, пришедший под старой эпохой,
// отбрасывается (ErrSuperseded) и не трогает ни доску, ни флаг новой сессии.
type Controller struct {
	client remote.SimulationClient
	store  *store.BoardStore
	anim   *animation.Sequencer
	clock  sched.Scheduler
	cfg    Config
	log    *logrus.Entry

	notices *network.Broadcaster[Notice]

	// ctx живет до Close, на нем работают шаги автошага
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	game       *domain.GameConfig
	rng        *rand.Rand
	epoch      uint64
	inFlight   bool
	stepCancel context.CancelFunc
	auto       sched.Timer
	autoID     uint64
	interval   time.Duration
	autoLimit  int
	iterations int
	lastStepAt time.Time
	dropped    int
	lastErr    string
	closed     bool
}

func NewController(client remote.SimulationClient, st *store.BoardStore, clock sched.Scheduler, cfg Config) *Controller {
	if cfg.Interval < MinInterval {
		cfg.Interval = MinInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = NewConfig().BatchSize
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Controller{
		client:   client,
		store:    st,
		anim:     animation.NewSequencer(st, clock, cfg.Timings),
		clock:    clock,
		cfg:      cfg,
		log:      logger.Component("controller"),
		notices:  network.NewBroadcaster[Notice](network.DefaultBuffer),
		ctx:      ctx,
		cancel:   cancel,
		rng:      utils.NewRand(cfg.Seed),
		interval: cfg.Interval,
	}
}

// Store доска, которую ведет контроллер (для чтения и подписки).
func (c *Controller) Store() *store.BoardStore { return c.store }

// GameConfig текущая конфигурация игры.
func (c *Controller) GameConfig() (domain.GameConfig, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.game == nil {
		return domain.GameConfig{}, false
	}
	return *c.game, true
}

// Configure задает конфигурацию игры. Если доски еще нет или поменялись размеры,
// доска пересоздается через Reset.
func (c *Controller) Configure(cfg domain.GameConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configure: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.game = &cfg
	rows, cols := c.store.Dimensions()
	if !c.store.HasBoard() || rows != cfg.Rows || cols != cfg.Columns {
		c.resetLocked()
	}
	return nil
}

// Step делает один шаг на движке.
//
// (nil, nil) - шаг уже в полете, вызов проигнорирован.
// ErrNotConfigured - доски еще нет.
// При ошибке движка доска не меняется.
func (c *Controller) Step(ctx context.Context) (*StepReport, error) {
	c.mu.Lock()
	if c.closed || !c.store.HasBoard() {
		c.mu.Unlock()
		return nil, ErrNotConfigured
	}
	if c.inFlight {
		c.mu.Unlock()
		c.log.Debug("Step ignored: another request is in flight")
		return nil, nil
	}
	ctx, epoch, prev := c.beginLocked(ctx)
	c.mu.Unlock()

	return c.runStep(ctx, epoch, prev)
}

// beginLocked занимает слот запроса. Вызывается под c.mu.
func (c *Controller) beginLocked(parent context.Context) (context.Context, uint64, domain.BoardState) {
	ctx, cancel := context.WithCancel(parent)
	c.inFlight = true
	c.stepCancel = cancel
	prev, _ := c.store.Current()
	return ctx, c.epoch, prev
}

// release снимает флаг, только если эпоха не сменилась.
func (c *Controller) release(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return
	}
	c.inFlight = false
	if c.stepCancel != nil {
		c.stepCancel()
		c.stepCancel = nil
	}
}

func (c *Controller) runStep(ctx context.Context, epoch uint64, prev domain.BoardState) (*StepReport, error) {
	defer c.release(epoch)

	res, err := c.client.Step(ctx, codec.Encode(prev), 1)
	if err == nil && (res == nil || res.Snapshot == nil) {
		err = &remote.EngineRejection{Op: "step", Message: "engine returned no game state"}
	}
	if err != nil {
		return nil, c.fail(epoch, "step", err)
	}

	next, report := codec.Decode(*res.Snapshot, prev.Rows, prev.Columns)

	c.mu.Lock()
	if c.epoch != epoch || c.closed {
		c.mu.Unlock()
		return nil, ErrSuperseded
	}
	gen := c.store.Replace(next)
	c.iterations++
	c.lastStepAt = c.clock.Now()
	c.lastErr = ""
	var energyPerFood float64
	if c.game != nil {
		energyPerFood = c.game.EnergyPerFood
	}
	limitHit := c.auto != nil && c.autoLimit > 0 && c.iterations >= c.autoLimit
	if limitHit {
		c.stopAutoLocked()
	}
	iterations := c.iterations
	c.mu.Unlock()

	if limitHit {
		c.log.WithField("iterations", iterations).Info("Auto-step stopped: iteration limit reached")
	}

	// Анимация не блокирует шаговый цикл: Play ставит метки t=0 и планирует остальное
	c.anim.Play(animation.Transition{
		Generation:    gen,
		Previous:      prev,
		Next:          next,
		Movements:     res.Movements,
		EnergyPerFood: energyPerFood,
	})
	c.warnDataQuality(report)

	return &StepReport{
		Generation:          gen,
		Movements:           res.Movements,
		IterationsCompleted: res.IterationsCompleted,
		Food:                res.Food,
		Message:             res.Message,
		Warnings:            report,
	}, nil
}

// fail запоминает ошибку для сессии. Ошибка старой эпохи превращается в ErrSuperseded.
func (c *Controller) fail(epoch uint64, op string, err error) error {
	c.mu.Lock()
	stale := c.epoch != epoch || c.closed
	if !stale {
		c.lastErr = remote.UserMessage(err)
	}
	c.mu.Unlock()

	if stale {
		c.log.WithError(err).WithField("op", op).Debug("Discarding failure of a superseded request")
		return ErrSuperseded
	}
	c.log.WithError(err).WithField("op", op).Warn("Engine call failed, board unchanged")
	return err
}

// ToggleAutoStep включает или выключает автошаг. Возвращает новое состояние.
func (c *Controller) ToggleAutoStep() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.auto != nil {
		c.stopAutoLocked()
		c.log.Info("Auto-step stopped")
		return false
	}
	if c.closed {
		return false
	}
	c.startAutoLocked()
	c.log.WithField("interval", c.interval.String()).Info("Auto-step started")
	return true
}

// SetInterval меняет период автошага. Если автошаг идет, таймер перезапускается
// с новым периодом: ближайший тик наступит через d после вызова.
func (c *Controller) SetInterval(d time.Duration) error {
	if d < MinInterval {
		return fmt.Errorf("%w: %s < %s", ErrIntervalTooShort, d, MinInterval)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.interval = d
	if c.auto != nil {
		c.stopAutoLocked()
		c.startAutoLocked()
	}
	return nil
}

// SetAutoStepLimit останавливает автошаг, как только сессия дойдет до n итераций.
// n <= 0 снимает ограничение.
func (c *Controller) SetAutoStepLimit(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 0 {
		n = 0
	}
	c.autoLimit = n
}

func (c *Controller) startAutoLocked() {
	c.autoID++
	id := c.autoID
	c.auto = c.clock.Every(c.interval, func() { c.tick(id) })
}

// stopAutoLocked останавливает таймер синхронно: после возврата новых тиков нет,
// а тик, который уже успел начаться, отсеется по autoID.
func (c *Controller) stopAutoLocked() {
	if c.auto != nil {
		c.auto.Stop()
		c.auto = nil
	}
	c.autoID++
}

func (c *Controller) tick(id uint64) {
	c.mu.Lock()
	if c.autoID != id || c.auto == nil || c.closed {
		c.mu.Unlock()
		return
	}
	if c.inFlight {
		c.dropped++
		dropped := c.dropped
		c.mu.Unlock()
		c.log.WithField("dropped_ticks", dropped).Debug("Auto-step tick dropped: step in flight")
		return
	}
	if !c.store.HasBoard() {
		c.mu.Unlock()
		return
	}
	if c.autoLimit > 0 && c.iterations >= c.autoLimit {
		c.stopAutoLocked()
		c.mu.Unlock()
		return
	}
	ctx, epoch, prev := c.beginLocked(c.ctx)
	c.mu.Unlock()

	go func() {
		_, err := c.runStep(ctx, epoch, prev)
		if err != nil && !errors.Is(err, ErrSuperseded) {
			c.notify(NoticeError, remote.UserMessage(err))
		}
	}()
}

// RunBatch прогоняет n итераций на движке и ставит только финальный кадр.
// n <= 0 - размер пакета из конфига.
func (c *Controller) RunBatch(ctx context.Context, n int) (*BatchReport, error) {
	if n <= 0 {
		n = c.cfg.BatchSize
	}

	c.mu.Lock()
	if c.closed || !c.store.HasBoard() {
		c.mu.Unlock()
		return nil, ErrNotConfigured
	}
	if c.inFlight {
		c.mu.Unlock()
		c.log.Debug("Batch ignored: another request is in flight")
		return nil, nil
	}
	ctx, epoch, prev := c.beginLocked(ctx)
	c.mu.Unlock()

	defer c.release(epoch)

	res, err := c.client.Simulate(ctx, codec.Encode(prev), n)
	if err == nil && res == nil {
		err = &remote.EngineRejection{Op: "simulate", Message: "engine returned no result"}
	}
	if err != nil {
		return nil, c.fail(epoch, "simulate", err)
	}

	next, report := codec.Decode(res.Final, prev.Rows, prev.Columns)

	c.mu.Lock()
	if c.epoch != epoch || c.closed {
		c.mu.Unlock()
		return nil, ErrSuperseded
	}
	gen := c.store.Replace(next)
	c.anim.Cancel()
	c.iterations += res.TotalIterations
	c.lastStepAt = c.clock.Now()
	c.lastErr = ""
	c.mu.Unlock()

	c.warnDataQuality(report)
	c.log.WithFields(logrus.Fields{
		"iterations": res.TotalIterations,
		"amebas":     res.Stats.FinalAmebaCount,
		"foods":      res.Stats.FinalFoodCount,
		"energy":     res.Stats.TotalEnergy,
	}).Info("Batch simulation finished")

	return &BatchReport{
		Generation: gen,
		Iterations: res.TotalIterations,
		Stats:      res.Stats,
		Message:    res.Message,
		Warnings:   report,
	}, nil
}

// Reset останавливает автошаг, освобождает слот запроса и строит новую доску
// локальной расстановкой. Запрос, который был в полете, отменяется, его ответ
// будет отброшен.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.game == nil {
		return ErrNotConfigured
	}
	c.resetLocked()
	return nil
}

func (c *Controller) resetLocked() {
	c.stopAutoLocked()
	if c.stepCancel != nil {
		c.stepCancel()
		c.stepCancel = nil
	}
	c.inFlight = false
	c.epoch++

	board := PlaceInitial(*c.game, c.rng)
	gen := c.store.Replace(board)
	c.anim.Cancel()

	c.iterations = 0
	c.lastStepAt = time.Time{}
	c.dropped = 0
	c.lastErr = ""

	c.log.WithFields(logrus.Fields{
		"generation": gen,
		"rows":       board.Rows,
		"columns":    board.Columns,
		"foods":      board.Count(domain.CellFood),
		"amebas":     board.Count(domain.CellAmeba),
	}).Info("Board reset")
}

// EngineStatus состояние удаленного движка.
func (c *Controller) EngineStatus(ctx context.Context) (*domain.EngineStatus, error) {
	st, err := c.client.Status(ctx)
	if err != nil {
		return nil, err
	}
	rows, cols := c.store.Dimensions()
	if st.Loaded && (st.Rows != rows || st.Columns != cols) {
		c.log.WithFields(logrus.Fields{
			"remote": fmt.Sprintf("%dx%d", st.Rows, st.Columns),
			"local":  fmt.Sprintf("%dx%d", rows, cols),
		}).Warn("Engine board size differs from local board")
	}
	return st, nil
}

// Session снимок состояния сессии.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Session{
		Configured:     c.game != nil,
		InFlight:       c.inFlight,
		AutoStepping:   c.auto != nil,
		Interval:       c.interval,
		IterationCount: c.iterations,
		LastStepAt:     c.lastStepAt,
		DroppedTicks:   c.dropped,
		LastError:      c.lastErr,
		Generation:     c.store.Generation(),
	}
}

// SubscribeNotices подписка на уведомления контроллера.
func (c *Controller) SubscribeNotices(id string) <-chan Notice {
	return c.notices.Register(id)
}

func (c *Controller) UnsubscribeNotices(id string) {
	c.notices.Unregister(id)
}

func (c *Controller) notify(level, text string) {
	c.notices.Broadcast(Notice{Level: level, Text: text, At: c.clock.Now()})
}

func (c *Controller) warnDataQuality(r codec.Report) {
	if r.Clean() {
		return
	}
	c.notify(NoticeWarn, fmt.Sprintf("engine snapshot had %d out-of-bounds and %d duplicate entities",
		r.Count(codec.WarnOutOfBounds), r.Count(codec.WarnDuplicatePosition)))
}

// Close останавливает автошаг и анимации, отменяет запрос в полете.
// После Close все операции - no-op с ErrNotConfigured.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopAutoLocked()
	if c.stepCancel != nil {
		c.stepCancel()
		c.stepCancel = nil
	}
	c.mu.Unlock()

	c.cancel()
	c.anim.Cancel()
	c.notices.Close()
}
