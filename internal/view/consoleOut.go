package view

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/leslobov/ameba/internal/domain"
	"github.com/leslobov/ameba/internal/engine"
	"github.com/leslobov/ameba/internal/store"
	"github.com/leslobov/ameba/pkg/utils"
)

// ConsoleOut построчный вывод для запуска без терминального интерфейса.
type ConsoleOut struct {
	ctrl      *engine.Controller
	w         io.Writer
	startTime time.Time
	// Every печатать прогресс раз в Every итераций
	Every int
}

func NewConsoleOut(ctrl *engine.Controller, w io.Writer) *ConsoleOut {
	return &ConsoleOut{ctrl: ctrl, w: w, Every: 10}
}

// Register печатает конфигурацию запуска.
func (c *ConsoleOut) Register(engineURL string) {
	s := c.ctrl.Session()
	_, _ = fmt.Fprintln(c.w, "Running configuration:")
	_, _ = fmt.Fprintf(c.w, "  Engine: %v\n", engineURL)
	_, _ = fmt.Fprintf(c.w, "  Interval: %v\n", s.Interval)
	if g, ok := c.ctrl.GameConfig(); ok {
		_, _ = fmt.Fprintf(c.w, "  Dimension: %v x %v\n", g.Rows, g.Columns)
		c.printHashData(map[string]interface{}{
			"Total energy":    g.TotalEnergy,
			"Energy per food": g.EnergyPerFood,
			"Initial energy":  g.AmebaInitialEnergy,
		})
	}
}

func (c *ConsoleOut) Start() {
	c.startTime = time.Now()
	_, _ = fmt.Fprintln(c.w, "\nSimulation started...")
}

// Refresh печатает прогресс после замены доски.
func (c *ConsoleOut) Refresh(s engine.Session) {
	if c.Every > 0 && s.IterationCount > 0 && s.IterationCount%c.Every == 0 {
		_, _ = fmt.Fprintf(c.w, "  Iterations done: %v\n", s.IterationCount)
	}
}

// Notice печатает уведомление контроллера.
func (c *ConsoleOut) Notice(n engine.Notice) {
	_, _ = fmt.Fprintf(c.w, "  [%s] %s\n", n.Level, n.Text)
}

// Finish печатает итог по текущей доске.
func (c *ConsoleOut) Finish() {
	s := c.ctrl.Session()
	b, _ := c.ctrl.Store().Current()
	counts := Counts(b)
	resultData := map[string]interface{}{
		"Last iteration": s.IterationCount,
		"Total time":     time.Since(c.startTime).Round(time.Millisecond),
		"Amebas":         counts.Amebas,
		"Food":           counts.Foods,
		"Total energy":   counts.TotalEnergy,
		"Dropped ticks":  s.DroppedTicks,
	}
	if s.LastError != "" {
		resultData["Last error"] = s.LastError
	}
	_, _ = fmt.Fprintln(c.w, "\nFinished:")
	c.printHashData(resultData)
}

// Batch печатает итог пакетной симуляции.
func (c *ConsoleOut) Batch(rep *engine.BatchReport) {
	_, _ = fmt.Fprintln(c.w, "\nBatch finished:")
	c.printHashData(map[string]interface{}{
		"Iterations":   rep.Iterations,
		"Amebas":       rep.Stats.FinalAmebaCount,
		"Food":         rep.Stats.FinalFoodCount,
		"Total energy": rep.Stats.TotalEnergy,
		"Generation":   rep.Generation,
	})
	if rep.Message != "" {
		_, _ = fmt.Fprintf(c.w, "  %s\n", rep.Message)
	}
}

// Board печатает доску без цвета.
func (c *ConsoleOut) Board(b domain.BoardState) {
	_, _ = fmt.Fprintln(c.w, NewRenderer(false).Board(b, 0, 0))
}

// pollEvery период сверки счетчика итераций: подписка может терять обновления.
const pollEvery = 100 * time.Millisecond

// Run включает автошаг и ждет, пока сессия не пройдет steps итераций
// (steps <= 0 - до отмены ctx). Автошаг останавливает сам контроллер,
// так что лишних итераций не бывает. По выходу автошаг выключается.
func (c *ConsoleOut) Run(ctx context.Context, steps int) error {
	id := "console-" + utils.GenerateID()
	updates := c.ctrl.Store().Subscribe(id)
	notices := c.ctrl.SubscribeNotices(id)
	defer c.ctrl.Store().Unsubscribe(id)
	defer c.ctrl.UnsubscribeNotices(id)

	c.ctrl.SetAutoStepLimit(steps)
	defer c.ctrl.SetAutoStepLimit(0)

	poll := time.NewTicker(pollEvery)
	defer poll.Stop()

	c.Start()
	if !c.ctrl.Session().AutoStepping {
		c.ctrl.ToggleAutoStep()
	}
	defer func() {
		if c.ctrl.Session().AutoStepping {
			c.ctrl.ToggleAutoStep()
		}
		c.Finish()
	}()

	last := c.ctrl.Session().IterationCount
	// progress печатает новые итерации и сообщает, достигнут ли предел
	progress := func() bool {
		s := c.ctrl.Session()
		if s.IterationCount != last {
			last = s.IterationCount
			c.Refresh(s)
		}
		return steps > 0 && s.IterationCount >= steps
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-notices:
			if !ok {
				notices = nil
				continue
			}
			c.Notice(n)
		case <-poll.C:
			if progress() {
				return nil
			}
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if u.Reason == store.ReasonReplace && progress() {
				return nil
			}
		}
	}
}

func (c *ConsoleOut) printHashData(d map[string]interface{}) {
	propNames := make([]string, 0, len(d))
	for k := range d {
		propNames = append(propNames, k)
	}
	sort.Strings(propNames)
	for _, propName := range propNames {
		_, _ = fmt.Fprintf(c.w, "  %s: %v\n", propName, d[propName])
	}
}
