package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leslobov/ameba/internal/domain"
	"github.com/leslobov/ameba/internal/remote"
	"github.com/leslobov/ameba/internal/sched"
	"github.com/leslobov/ameba/internal/store"
)

var start = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// fakeEngine - управляемый движок. Если gate задан, вызовы висят до его закрытия.
type fakeEngine struct {
	mu       sync.Mutex
	steps    int
	sims     int
	gate     chan struct{}
	deafCtx  bool // не реагировать на отмену контекста
	started  chan struct{}
	stepFn   func(snap domain.EntitySnapshot) (*domain.StepResult, error)
	simFn    func(snap domain.EntitySnapshot, n int) (*domain.SimulationResult, error)
	statusFn func() (*domain.EngineStatus, error)
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{started: make(chan struct{}, 64)}
}

func (f *fakeEngine) wait(ctx context.Context) error {
	f.mu.Lock()
	gate, deaf := f.gate, f.deafCtx
	f.mu.Unlock()
	if gate == nil {
		return nil
	}
	if deaf {
		<-gate
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeEngine) Status(ctx context.Context) (*domain.EngineStatus, error) {
	if f.statusFn != nil {
		return f.statusFn()
	}
	return &domain.EngineStatus{}, nil
}

func (f *fakeEngine) Step(ctx context.Context, snap domain.EntitySnapshot, iterations int) (*domain.StepResult, error) {
	f.mu.Lock()
	f.steps++
	fn := f.stepFn
	f.mu.Unlock()
	f.started <- struct{}{}

	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if fn != nil {
		return fn(snap)
	}
	return &domain.StepResult{Snapshot: &snap, IterationsCompleted: iterations}, nil
}

func (f *fakeEngine) Simulate(ctx context.Context, snap domain.EntitySnapshot, n int) (*domain.SimulationResult, error) {
	f.mu.Lock()
	f.sims++
	fn := f.simFn
	f.mu.Unlock()
	f.started <- struct{}{}

	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if fn != nil {
		return fn(snap, n)
	}
	return &domain.SimulationResult{TotalIterations: n, Final: snap}, nil
}

func (f *fakeEngine) stepCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.steps
}

func (f *fakeEngine) block() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	return f.gate
}

func (f *fakeEngine) awaitStart(t *testing.T) {
	t.Helper()
	select {
	case <-f.started:
	case <-time.After(2 * time.Second):
		t.Fatal("engine was not called")
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func smallGame() domain.GameConfig {
	return domain.GameConfig{Rows: 10, Columns: 10, TotalEnergy: 1000, EnergyPerFood: 50, AmebaInitialEnergy: 100}
}

func newTestController(t *testing.T, fe *fakeEngine, interval time.Duration) (*Controller, *sched.Manual) {
	t.Helper()
	clock := sched.NewManual(start)
	cfg := NewConfig()
	cfg.Seed = 42
	cfg.Interval = interval
	c := NewController(fe, store.New(), clock, cfg)
	t.Cleanup(c.Close)
	if err := c.Configure(smallGame()); err != nil {
		t.Fatalf("Configure() error: %v", err)
	}
	return c, clock
}

func TestNotConfigured(t *testing.T) {
	c := NewController(newFakeEngine(), store.New(), sched.NewManual(start), NewConfig())
	defer c.Close()

	if _, err := c.Step(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Step() error = %v, want ErrNotConfigured", err)
	}
	if _, err := c.RunBatch(context.Background(), 10); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("RunBatch() error = %v, want ErrNotConfigured", err)
	}
	if err := c.Reset(); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Reset() error = %v, want ErrNotConfigured", err)
	}
}

func TestStepReplacesBoard(t *testing.T) {
	fe := newFakeEngine()
	c, clock := newTestController(t, fe, time.Second)
	genBefore := c.Store().Generation()

	rep, err := c.Step(context.Background())
	if err != nil || rep == nil {
		t.Fatalf("Step() = %v, %v", rep, err)
	}
	if rep.Generation != genBefore+1 {
		t.Errorf("generation = %d, want %d", rep.Generation, genBefore+1)
	}

	s := c.Session()
	if s.IterationCount != 1 || s.InFlight || !s.LastStepAt.Equal(clock.Now()) {
		t.Errorf("session after step = %+v", s)
	}
}

func TestMutualExclusion(t *testing.T) {
	fe := newFakeEngine()
	c, _ := newTestController(t, fe, time.Second)
	gate := fe.block()

	done := make(chan error, 1)
	go func() {
		_, err := c.Step(context.Background())
		done <- err
	}()
	fe.awaitStart(t)

	rep, err := c.Step(context.Background())
	if rep != nil || err != nil {
		t.Errorf("second Step() = %v, %v; want no-op", rep, err)
	}
	if batch, err := c.RunBatch(context.Background(), 10); batch != nil || err != nil {
		t.Errorf("RunBatch() during step = %v, %v; want no-op", batch, err)
	}
	if !c.Session().InFlight {
		t.Error("session must report the outstanding step")
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("first Step() error: %v", err)
	}
	if fe.stepCalls() != 1 {
		t.Errorf("engine calls = %d, want 1", fe.stepCalls())
	}
	if c.Session().InFlight {
		t.Error("inFlight not released")
	}
}

func TestAutoStepDropsTicksWhileInFlight(t *testing.T) {
	const interval = 100 * time.Millisecond
	fe := newFakeEngine()
	c, clock := newTestController(t, fe, interval)
	gate := fe.block()

	if !c.ToggleAutoStep() {
		t.Fatal("auto-step did not start")
	}

	clock.Advance(interval)
	fe.awaitStart(t)

	// Запрос висит 2T и дольше: все тики окна 5T теряются
	clock.Advance(4 * interval)

	if got := fe.stepCalls(); got != 1 {
		t.Errorf("engine calls in 5T = %d, want 1", got)
	}
	if got := c.Session().DroppedTicks; got != 4 {
		t.Errorf("dropped ticks = %d, want 4", got)
	}

	close(gate)
	waitFor(t, "step release", func() bool { return !c.Session().InFlight })

	// После ответа ничего не догоняет пачкой
	if got := fe.stepCalls(); got != 1 {
		t.Errorf("engine calls after release = %d, want 1", got)
	}

	clock.Advance(interval)
	fe.awaitStart(t)
	waitFor(t, "second auto step", func() bool { return c.Session().IterationCount == 2 })

	if c.ToggleAutoStep() {
		t.Fatal("auto-step did not stop")
	}
	clock.Advance(10 * interval)
	if got := fe.stepCalls(); got != 2 {
		t.Errorf("engine calls after stop = %d, want 2", got)
	}
}

func TestSetIntervalRestartsTimer(t *testing.T) {
	fe := newFakeEngine()
	c, clock := newTestController(t, fe, 100*time.Millisecond)

	c.ToggleAutoStep()
	clock.Advance(50 * time.Millisecond)

	if err := c.SetInterval(200 * time.Millisecond); err != nil {
		t.Fatalf("SetInterval() error: %v", err)
	}
	if s := c.Session(); s.Interval != 200*time.Millisecond || !s.AutoStepping {
		t.Errorf("session = %+v", s)
	}

	// Старый период сработал бы на 100ms
	clock.Advance(150 * time.Millisecond)
	if got := fe.stepCalls(); got != 0 {
		t.Fatalf("old timer fired: %d calls", got)
	}

	clock.Advance(50 * time.Millisecond)
	fe.awaitStart(t)
	waitFor(t, "auto step", func() bool { return c.Session().IterationCount == 1 })
}

func TestSetIntervalRejectsTooShort(t *testing.T) {
	c, _ := newTestController(t, newFakeEngine(), time.Second)
	if err := c.SetInterval(10 * time.Millisecond); !errors.Is(err, ErrIntervalTooShort) {
		t.Errorf("SetInterval() error = %v", err)
	}
	if c.Session().Interval != time.Second {
		t.Error("interval changed by a rejected call")
	}
}

func TestStepFailureLeavesBoardUnchanged(t *testing.T) {
	fe := newFakeEngine()
	fe.stepFn = func(domain.EntitySnapshot) (*domain.StepResult, error) {
		return nil, &remote.EngineRejection{Op: "step", Message: "No game loaded"}
	}
	c, _ := newTestController(t, fe, time.Second)
	before, gen := c.Store().Current()

	_, err := c.Step(context.Background())

	var rej *remote.EngineRejection
	if !errors.As(err, &rej) {
		t.Fatalf("Step() error = %v, want EngineRejection", err)
	}
	after, genAfter := c.Store().Current()
	if genAfter != gen || after.Count(domain.CellAmeba) != before.Count(domain.CellAmeba) {
		t.Error("failed step changed the board")
	}
	s := c.Session()
	if s.InFlight || s.LastError != "No game loaded" || s.IterationCount != 0 {
		t.Errorf("session after failure = %+v", s)
	}

	// Следующий шаг не заблокирован
	fe.mu.Lock()
	fe.stepFn = nil
	fe.mu.Unlock()
	if _, err := c.Step(context.Background()); err != nil {
		t.Errorf("Step() after failure error: %v", err)
	}
	if c.Session().LastError != "" {
		t.Error("successful step must clear the last error")
	}
}

func TestStepWithoutSnapshotIsRejection(t *testing.T) {
	fe := newFakeEngine()
	fe.stepFn = func(domain.EntitySnapshot) (*domain.StepResult, error) {
		return &domain.StepResult{}, nil
	}
	c, _ := newTestController(t, fe, time.Second)
	gen := c.Store().Generation()

	_, err := c.Step(context.Background())
	var rej *remote.EngineRejection
	if !errors.As(err, &rej) {
		t.Errorf("Step() error = %v, want EngineRejection", err)
	}
	if c.Store().Generation() != gen {
		t.Error("board replaced from an empty response")
	}
}

func TestStepAnimatesFoodMove(t *testing.T) {
	fe := newFakeEngine()
	c, clock := newTestController(t, fe, time.Second)

	from, to := domain.Position{Row: 2, Col: 2}, domain.Position{Row: 2, Col: 3}
	board := domain.NewBoard(10, 10)
	board.Cells[board.Index(from)] = domain.Cell{Pos: from, Kind: domain.CellAmeba, Energy: 100}
	board.Cells[board.Index(to)] = domain.Cell{Pos: to, Kind: domain.CellFood, Energy: 50}
	c.Store().Replace(board)

	fe.stepFn = func(domain.EntitySnapshot) (*domain.StepResult, error) {
		e := 149.0
		eaten := to
		return &domain.StepResult{
			Movements: []domain.Movement{{Ameba: from, From: from, To: to, EnergyChange: 49, FoodConsumed: &eaten}},
			Snapshot: &domain.EntitySnapshot{
				Amebas:  []domain.Entity{{Pos: to, Energy: &e}},
				Foods:   []domain.Entity{},
				Rows:    10,
				Columns: 10,
			},
			IterationsCompleted: 1,
		}, nil
	}

	if _, err := c.Step(context.Background()); err != nil {
		t.Fatalf("Step() error: %v", err)
	}

	b, _ := c.Store().Current()
	cell, _ := b.At(to)
	if cell.Kind != domain.CellAmeba || cell.Energy != 149 {
		t.Errorf("cell %v = %v/%v, want ameba/149", to, cell.Kind, cell.Energy)
	}
	if b.Count(domain.CellFood) != 0 {
		t.Error("eaten food still on the board")
	}
	if old, _ := b.At(from); old.Kind != domain.CellEmpty {
		t.Errorf("old cell = %v, want empty", old.Kind)
	}
	want := domain.MovingToFood(from, to, 50)
	if cell.Animation != want {
		t.Errorf("animation = %+v, want %+v", cell.Animation, want)
	}

	clock.Advance(1200 * time.Millisecond)
	b, _ = c.Store().Current()
	if cell, _ = b.At(to); cell.Animation.Kind != domain.AnimEnergized {
		t.Errorf("animation after 1200ms = %v, want ENERGIZED", cell.Animation.Kind)
	}
	clock.Advance(time.Second)
	b, _ = c.Store().Current()
	if cell, _ = b.At(to); !cell.Animation.IsNone() {
		t.Errorf("animation after 2200ms = %v, want NONE", cell.Animation.Kind)
	}
}

func TestRunBatch(t *testing.T) {
	fe := newFakeEngine()
	c, clock := newTestController(t, fe, time.Second)

	fe.simFn = func(_ domain.EntitySnapshot, n int) (*domain.SimulationResult, error) {
		e := 80.0
		return &domain.SimulationResult{
			TotalIterations: n,
			Final: domain.EntitySnapshot{
				Amebas:  []domain.Entity{{Pos: domain.Position{Row: 0, Col: 0}, Energy: &e}},
				Rows:    10,
				Columns: 10,
			},
			Stats: domain.SimulationStats{FinalAmebaCount: 1, TotalEnergy: 80},
		}, nil
	}

	// Анимация предыдущего шага должна быть отменена пакетом
	if _, err := c.Step(context.Background()); err != nil {
		t.Fatalf("Step() error: %v", err)
	}

	rep, err := c.RunBatch(context.Background(), 250)
	if err != nil {
		t.Fatalf("RunBatch() error: %v", err)
	}
	if rep.Iterations != 250 || rep.Stats.FinalAmebaCount != 1 {
		t.Errorf("report = %+v", rep)
	}

	b, gen := c.Store().Current()
	if gen != rep.Generation || b.Count(domain.CellAmeba) != 1 || b.Count(domain.CellFood) != 0 {
		t.Errorf("board after batch: gen=%d amebas=%d foods=%d", gen, b.Count(domain.CellAmeba), b.Count(domain.CellFood))
	}
	if got := c.Session().IterationCount; got != 251 {
		t.Errorf("iterations = %d, want 251", got)
	}
	if clock.Pending() != 0 {
		t.Errorf("animation timers survived the batch: %d", clock.Pending())
	}
}

func TestRunBatchDefaultSize(t *testing.T) {
	fe := newFakeEngine()
	c, _ := newTestController(t, fe, time.Second)

	rep, err := c.RunBatch(context.Background(), 0)
	if err != nil {
		t.Fatalf("RunBatch() error: %v", err)
	}
	if rep.Iterations != NewConfig().BatchSize {
		t.Errorf("iterations = %d, want %d", rep.Iterations, NewConfig().BatchSize)
	}
}

func TestResetSupersedesInFlightStep(t *testing.T) {
	tests := []struct {
		name    string
		deafCtx bool
	}{
		{name: "request cancelled"},
		{name: "late response discarded", deafCtx: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			fe := newFakeEngine()
			fe.deafCtx = tt.deafCtx
			c, _ := newTestController(t, fe, time.Second)
			gate := fe.block()

			done := make(chan error, 1)
			go func() {
				_, err := c.Step(context.Background())
				done <- err
			}()
			fe.awaitStart(t)

			if err := c.Reset(); err != nil {
				t.Fatalf("Reset() error: %v", err)
			}
			resetGen := c.Store().Generation()
			if c.Session().InFlight {
				t.Error("Reset must clear inFlight")
			}

			close(gate)
			if err := <-done; !errors.Is(err, ErrSuperseded) {
				t.Errorf("late Step() error = %v, want ErrSuperseded", err)
			}
			if c.Store().Generation() != resetGen {
				t.Error("late result replaced the reset board")
			}
			if s := c.Session(); s.IterationCount != 0 || s.LastError != "" {
				t.Errorf("late result leaked into the new session: %+v", s)
			}
		})
	}
}

func TestResetStopsAutoStep(t *testing.T) {
	fe := newFakeEngine()
	c, clock := newTestController(t, fe, 100*time.Millisecond)
	c.ToggleAutoStep()

	if err := c.Reset(); err != nil {
		t.Fatalf("Reset() error: %v", err)
	}
	clock.Advance(time.Second)
	if fe.stepCalls() != 0 || c.Session().AutoStepping {
		t.Error("auto-step survived Reset")
	}
}

func TestCloseStopsEverything(t *testing.T) {
	fe := newFakeEngine()
	c, clock := newTestController(t, fe, 100*time.Millisecond)
	c.ToggleAutoStep()
	c.Close()

	clock.Advance(time.Second)
	if fe.stepCalls() != 0 {
		t.Errorf("ticks fired after Close: %d", fe.stepCalls())
	}
	if _, err := c.Step(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Step() after Close error = %v", err)
	}
	if c.ToggleAutoStep() {
		t.Error("auto-step restarted after Close")
	}
}

func TestAutoStepFailureIsNotified(t *testing.T) {
	fe := newFakeEngine()
	fe.stepFn = func(domain.EntitySnapshot) (*domain.StepResult, error) {
		return nil, &remote.TransportError{Op: "step", Err: errors.New("connection refused")}
	}
	c, clock := newTestController(t, fe, 100*time.Millisecond)
	notices := c.SubscribeNotices("test")

	c.ToggleAutoStep()
	clock.Advance(100 * time.Millisecond)

	select {
	case n := <-notices:
		if n.Level != NoticeError || n.Text != "engine unavailable: connection refused" {
			t.Errorf("notice = %+v", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no notice for a failed auto step")
	}
	waitFor(t, "release", func() bool { return !c.Session().InFlight })
}

func TestConfigureResizesBoard(t *testing.T) {
	c, _ := newTestController(t, newFakeEngine(), time.Second)
	gen := c.Store().Generation()

	same := smallGame()
	same.TotalEnergy = 2000
	if err := c.Configure(same); err != nil {
		t.Fatal(err)
	}
	if c.Store().Generation() != gen {
		t.Error("same dimensions must keep the current board")
	}

	bigger := smallGame()
	bigger.Rows, bigger.Columns = 20, 15
	if err := c.Configure(bigger); err != nil {
		t.Fatal(err)
	}
	if rows, cols := c.Store().Dimensions(); rows != 20 || cols != 15 {
		t.Errorf("dimensions = %dx%d, want 20x15", rows, cols)
	}

	if err := c.Configure(domain.GameConfig{}); err == nil {
		t.Error("empty config accepted")
	}
}

func TestEngineStatusPassThrough(t *testing.T) {
	fe := newFakeEngine()
	fe.statusFn = func() (*domain.EngineStatus, error) {
		return &domain.EngineStatus{Loaded: true, AmebaCount: 5, Rows: 10, Columns: 10}, nil
	}
	c, _ := newTestController(t, fe, time.Second)

	st, err := c.EngineStatus(context.Background())
	if err != nil || !st.Loaded || st.AmebaCount != 5 {
		t.Errorf("EngineStatus() = %+v, %v", st, err)
	}
}

// dirtySnapshot: одна амеба за нижней границей 10x10 и две еды на одной клетке.
func dirtySnapshot() domain.EntitySnapshot {
	e, f := 100.0, 50.0
	return domain.EntitySnapshot{
		Amebas: []domain.Entity{{Pos: domain.Position{Row: 10, Col: 0}, Energy: &e}},
		Foods: []domain.Entity{
			{Pos: domain.Position{Row: 1, Col: 1}, Energy: &f},
			{Pos: domain.Position{Row: 1, Col: 1}, Energy: &f},
		},
		Rows:    10,
		Columns: 10,
	}
}

func TestDirtyEngineSnapshotIsNotified(t *testing.T) {
	tests := []struct {
		name string
		run  func(c *Controller) error
	}{
		{
			name: "step",
			run: func(c *Controller) error {
				_, err := c.Step(context.Background())
				return err
			},
		},
		{
			name: "batch",
			run: func(c *Controller) error {
				_, err := c.RunBatch(context.Background(), 5)
				return err
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			fe := newFakeEngine()
			fe.stepFn = func(domain.EntitySnapshot) (*domain.StepResult, error) {
				snap := dirtySnapshot()
				return &domain.StepResult{Snapshot: &snap, IterationsCompleted: 1}, nil
			}
			fe.simFn = func(_ domain.EntitySnapshot, n int) (*domain.SimulationResult, error) {
				return &domain.SimulationResult{TotalIterations: n, Final: dirtySnapshot()}, nil
			}
			c, _ := newTestController(t, fe, time.Second)
			notices := c.SubscribeNotices("test")

			if err := tt.run(c); err != nil {
				t.Fatalf("run error: %v", err)
			}

			select {
			case n := <-notices:
				want := "engine snapshot had 1 out-of-bounds and 1 duplicate entities"
				if n.Level != NoticeWarn || n.Text != want {
					t.Errorf("notice = %+v, want warn %q", n, want)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("no warning for a dirty engine snapshot")
			}

			b, _ := c.Store().Current()
			if b.Count(domain.CellAmeba) != 0 || b.Count(domain.CellFood) != 1 {
				t.Errorf("board: amebas=%d foods=%d, want 0 and 1", b.Count(domain.CellAmeba), b.Count(domain.CellFood))
			}
		})
	}
}

func TestAutoStepLimitStopsExactly(t *testing.T) {
	const interval = 100 * time.Millisecond
	fe := newFakeEngine()
	c, clock := newTestController(t, fe, interval)
	c.SetAutoStepLimit(2)

	c.ToggleAutoStep()
	for i := 1; i <= 2; i++ {
		clock.Advance(interval)
		fe.awaitStart(t)
		n := i
		waitFor(t, "auto step", func() bool { return c.Session().IterationCount == n })
	}

	waitFor(t, "auto-step stop", func() bool { return !c.Session().AutoStepping })
	clock.Advance(10 * interval)
	if got := fe.stepCalls(); got != 2 {
		t.Errorf("engine calls = %d, want 2", got)
	}

	// Без предела автошаг снова идет дальше
	c.SetAutoStepLimit(0)
	c.ToggleAutoStep()
	clock.Advance(interval)
	fe.awaitStart(t)
	waitFor(t, "third step", func() bool { return c.Session().IterationCount == 3 })
}
