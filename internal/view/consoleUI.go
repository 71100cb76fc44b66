package view

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jroimartin/gocui"
	"github.com/logrusorgru/aurora"

	"github.com/leslobov/ameba/internal/domain"
	"github.com/leslobov/ameba/internal/engine"
	"github.com/leslobov/ameba/internal/remote"
	"github.com/leslobov/ameba/pkg/logger"
	"github.com/leslobov/ameba/pkg/utils"
)

type keyBindings struct {
	key      interface{}
	name     string
	descr    string
	handler  func(v *gocui.View) error
	viewName string
}

// ConsoleUI интерактивный терминальный интерфейс. Клавиши вызывают контроллер,
// доска перерисовывается по обновлениям BoardStore.
type ConsoleUI struct {
	ctrl   *engine.Controller
	engine string
	g      *gocui.Gui
	k      []keyBindings
	r      *Renderer
	id     string

	ctx context.Context

	mu     sync.Mutex
	board  domain.BoardState
	gen    uint64
	notice engine.Notice
	remote *domain.EngineStatus
}

var modeDescr = map[string]string{
	"manual":   aurora.Colorize("manual", aurora.BlueFg).String(),
	"auto":     aurora.Colorize("auto-step", aurora.CyanFg).String(),
	"stepping": "waiting for engine",
}

// NewConsoleUI создает TUI. engineURL показывается в панели конфигурации.
func NewConsoleUI(ctrl *engine.Controller, engineURL string) (*ConsoleUI, error) {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return nil, fmt.Errorf("init terminal: %w", err)
	}

	t := &ConsoleUI{
		ctrl:   ctrl,
		engine: engineURL,
		g:      g,
		r:      NewRenderer(true),
		id:     "tui-" + utils.GenerateID(),
		ctx:    context.Background(),
	}
	t.board, t.gen = ctrl.Store().Current()

	t.k = []keyBindings{
		{gocui.KeyCtrlC, "^C", "Exit", t.cmdQuit, ""},
		{'n', "N", "Step", t.cmdStep, ""},
		{'a', "A", "Auto-step on/off", t.cmdToggleAuto, ""},
		{'b', "B", "Batch", t.cmdBatch, ""},
		{'r', "R", "Reset", t.cmdReset, ""},
		{'s', "S", "Engine status", t.cmdStatus, ""},
		{'+', "+", "Faster", t.cmdFaster, ""},
		{'-', "-", "Slower", t.cmdSlower, ""},
	}
	g.SetManagerFunc(t.layout)

	if err := t.initKeyBindings(t.k); err != nil {
		g.Close()
		return nil, err
	}
	return t, nil
}

func (t *ConsoleUI) initKeyBindings(k []keyBindings) error {
	for _, kb := range k {
		h := kb.handler
		if err := t.g.SetKeybinding(kb.viewName, kb.key, gocui.ModNone, func(gui *gocui.Gui, view *gocui.View) error { return h(view) }); err != nil {
			return fmt.Errorf("keybinding %s: %w", kb.name, err)
		}
	}
	return nil
}

// Run крутит главный цикл до выхода пользователя или отмены ctx.
func (t *ConsoleUI) Run(ctx context.Context) error {
	t.ctx = ctx
	defer t.g.Close()

	updates := t.ctrl.Store().Subscribe(t.id)
	notices := t.ctrl.SubscribeNotices(t.id)
	defer t.ctrl.Store().Unsubscribe(t.id)
	defer t.ctrl.UnsubscribeNotices(t.id)

	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				t.g.Update(func(*gocui.Gui) error { return gocui.ErrQuit })
				return
			case u, ok := <-updates:
				if !ok {
					return
				}
				t.mu.Lock()
				t.board, t.gen = u.Board, u.Generation
				t.mu.Unlock()
				t.Refresh()
			case n, ok := <-notices:
				if !ok {
					notices = nil
					continue
				}
				t.setNotice(n)
			}
		}
	}()

	if err := t.g.MainLoop(); err != nil && !errors.Is(err, gocui.ErrQuit) {
		return err
	}
	return nil
}

// Refresh перерисовывает все панели. Безопасно вызывать из любой горутины.
func (t *ConsoleUI) Refresh() {
	t.renderBoard()
	t.renderConfiguration()
	t.renderStatus()
	t.renderNotice()
}

func (t *ConsoleUI) renderBoard() {
	t.g.Update(t.drawBoard)
}

func (t *ConsoleUI) drawBoard(g *gocui.Gui) error {
	v, e := g.View("board")
	if e != nil {
		return nil
	}
	v.Clear()
	maxW, maxH := v.Size()
	t.mu.Lock()
	b := t.board
	t.mu.Unlock()
	_, _ = fmt.Fprint(v, t.r.Board(b, maxW, maxH))
	return nil
}

func (t *ConsoleUI) renderConfiguration() {
	t.g.Update(t.drawConfiguration)
}

func (t *ConsoleUI) drawConfiguration(g *gocui.Gui) error {
	v, e := g.View("configuration")
	if e != nil {
		return nil
	}
	v.Clear()
	s := t.ctrl.Session()
	_, _ = fmt.Fprintln(v, t.r.Prop("Engine", "%s", t.engine))
	if c, ok := t.ctrl.GameConfig(); ok {
		_, _ = fmt.Fprintln(v, t.r.Prop("Dimension", "%v x %v", c.Rows, c.Columns))
		_, _ = fmt.Fprintln(v, t.r.Prop("Total energy", "%v", c.TotalEnergy))
		_, _ = fmt.Fprintln(v, t.r.Prop("Energy per food", "%v", c.EnergyPerFood))
		_, _ = fmt.Fprintln(v, t.r.Prop("Initial energy", "%v", c.AmebaInitialEnergy))
	}
	_, _ = fmt.Fprintln(v, t.r.Prop("Interval", "%v", s.Interval))
	return nil
}

func (t *ConsoleUI) renderStatus() {
	t.g.Update(t.drawStatus)
}

func (t *ConsoleUI) drawStatus(g *gocui.Gui) error {
	v, e := g.View("status")
	if e != nil {
		return nil
	}
	v.Clear()
	s := t.ctrl.Session()
	t.mu.Lock()
	counts := Counts(t.board)
	gen := t.gen
	st := t.remote
	t.mu.Unlock()

	_, _ = fmt.Fprintln(v, t.r.Prop("Iteration", "%v", s.IterationCount))
	_, _ = fmt.Fprintln(v, t.r.Prop("Mode", "%v", modeDescr[sessionMode(s)]))
	_, _ = fmt.Fprintln(v, t.r.Prop("Generation", "%v", gen))
	_, _ = fmt.Fprintln(v, t.r.Prop("Amebas", "%v", counts.Amebas))
	_, _ = fmt.Fprintln(v, t.r.Prop("Food", "%v", counts.Foods))
	_, _ = fmt.Fprintln(v, t.r.Prop("Empty", "%v", counts.Empty))
	_, _ = fmt.Fprintln(v, t.r.Prop("Energy", "%.1f", counts.TotalEnergy))
	if s.DroppedTicks > 0 {
		_, _ = fmt.Fprintln(v, t.r.Prop("Dropped ticks", "%v", s.DroppedTicks))
	}
	if !s.LastStepAt.IsZero() {
		_, _ = fmt.Fprintln(v, t.r.Prop("Last step", "%v", s.LastStepAt.Format(time.TimeOnly)))
	}
	if st != nil {
		_, _ = fmt.Fprintln(v, t.r.Prop("Engine", "loaded=%v %vx%v", st.Loaded, st.Rows, st.Columns))
	}
	return nil
}

func (t *ConsoleUI) renderNotice() {
	t.g.Update(t.drawNotice)
}

func (t *ConsoleUI) drawNotice(g *gocui.Gui) error {
	v, e := g.View("notice")
	if e != nil {
		return nil
	}
	v.Clear()
	t.mu.Lock()
	n := t.notice
	t.mu.Unlock()
	if n.Text == "" {
		return nil
	}
	text := n.At.Format(time.TimeOnly) + " " + n.Text
	switch n.Level {
	case engine.NoticeError:
		text = aurora.Red(text).String()
	case engine.NoticeWarn:
		text = aurora.Yellow(text).String()
	}
	_, _ = fmt.Fprint(v, text)
	return nil
}

func (t *ConsoleUI) setNotice(n engine.Notice) {
	if n.At.IsZero() {
		n.At = time.Now()
	}
	t.mu.Lock()
	t.notice = n
	t.mu.Unlock()
	t.renderNotice()
	t.renderStatus()
}

func sessionMode(s engine.Session) string {
	switch {
	case s.InFlight:
		return "stepping"
	case s.AutoStepping:
		return "auto"
	default:
		return "manual"
	}
}

func (t *ConsoleUI) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	leftColumnWidth := 32
	minWindowHeight := 20

	if maxY < minWindowHeight {
		if _, err := t.headerLayout(g, maxY, "Terminal height too small"); err != nil {
			if err != gocui.ErrUnknownView {
				return err
			}
		}
		_ = g.DeleteView("configuration")
		_ = g.DeleteView("status")
		_ = g.DeleteView("board")
		_ = g.DeleteView("notice")
		return nil
	}
	if _, err := t.headerLayout(g, 3, "Ameba simulation"); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
	}

	if v, err := g.SetView("configuration", 0, 3, leftColumnWidth, 3+(maxY-6-3)/2); err != nil {
		if err != gocui.ErrUnknownView || v == nil {
			return err
		}
		v.Title = "Configuration"
		v.Frame = true
		_ = t.drawConfiguration(g)
	}

	if v, err := g.SetView("status", 0, 3+(maxY-6-3)/2+1, leftColumnWidth, maxY-6); err != nil {
		if err != gocui.ErrUnknownView || v == nil {
			return err
		}
		v.Title = "Status"
		v.Frame = true
		_ = t.drawStatus(g)
	}

	if v, err := g.SetView("board", leftColumnWidth+1, 3, maxX-1, maxY-6); err != nil {
		if err != gocui.ErrUnknownView || v == nil {
			return err
		}
		v.Title = "Board"
		v.Frame = true
	}
	_ = t.drawBoard(g)

	if v, err := g.SetView("notice", -1, maxY-6, maxX, maxY-4); err != nil {
		if err != gocui.ErrUnknownView || v == nil {
			return err
		}
		v.Frame = false
		_ = t.drawNotice(g)
	}

	if v, err := g.SetView("help", -1, maxY-4, maxX, maxY-2); err != nil {
		if err != gocui.ErrUnknownView || v == nil {
			return err
		}
		v.Frame = false
		b := bytes.Buffer{}
		b.WriteString("KEYBINDINGS: ")
		for i, k := range t.k {
			if i != 0 {
				b.WriteString(", ")
			}
			b.WriteString(aurora.Green(k.name).String())
			b.WriteString(": ")
			b.WriteString(k.descr)
		}
		_, _ = fmt.Fprintln(v, b.String())
	}

	return nil
}

func (t *ConsoleUI) headerLayout(g *gocui.Gui, height int, text string) (v *gocui.View, err error) {
	maxX, _ := g.Size()
	if v, err = g.SetView("header", -1, -1, maxX+1, height); err != nil {
		if err == gocui.ErrUnknownView && v != nil {
			v.Frame = false
			v.BgColor = gocui.ColorCyan
			v.FgColor = gocui.ColorBlack
		}
	}
	if v != nil {
		v.Clear()
		pad := 0
		if maxX > len(text) {
			pad = (maxX - len(text)) / 2
		}
		_, _ = fmt.Fprintln(v, strings.Repeat("\n", height/2+1)+strings.Repeat(" ", pad)+text)
	}
	return
}

// async выполняет команду вне главного цикла: шаг ждет движок.
func (t *ConsoleUI) async(op string, f func(ctx context.Context) error) {
	go func() {
		err := f(t.ctx)
		if err == nil {
			t.Refresh()
			return
		}
		if errors.Is(err, engine.ErrSuperseded) {
			return
		}
		logger.Log.WithError(err).WithField("op", op).Debug("Console command failed")
		t.setNotice(engine.Notice{Level: engine.NoticeError, Text: op + ": " + remote.UserMessage(err), At: time.Now()})
	}()
}

func (t *ConsoleUI) cmdQuit(_ *gocui.View) error {
	return gocui.ErrQuit
}

func (t *ConsoleUI) cmdStep(_ *gocui.View) error {
	t.async("step", func(ctx context.Context) error {
		_, err := t.ctrl.Step(ctx)
		return err
	})
	return nil
}

func (t *ConsoleUI) cmdToggleAuto(_ *gocui.View) error {
	t.ctrl.ToggleAutoStep()
	t.renderStatus()
	return nil
}

func (t *ConsoleUI) cmdBatch(_ *gocui.View) error {
	t.async("batch", func(ctx context.Context) error {
		rep, err := t.ctrl.RunBatch(ctx, 0)
		if err != nil || rep == nil {
			return err
		}
		t.setNotice(engine.Notice{
			Level: engine.NoticeInfo,
			Text: fmt.Sprintf("batch of %d: %d amebas, %d food, energy %.1f",
				rep.Iterations, rep.Stats.FinalAmebaCount, rep.Stats.FinalFoodCount, rep.Stats.TotalEnergy),
			At: time.Now(),
		})
		return nil
	})
	return nil
}

func (t *ConsoleUI) cmdReset(_ *gocui.View) error {
	if err := t.ctrl.Reset(); err != nil {
		t.setNotice(engine.Notice{Level: engine.NoticeError, Text: "reset: " + err.Error(), At: time.Now()})
	}
	return nil
}

func (t *ConsoleUI) cmdStatus(_ *gocui.View) error {
	t.async("status", func(ctx context.Context) error {
		st, err := t.ctrl.EngineStatus(ctx)
		if err != nil {
			return err
		}
		t.mu.Lock()
		t.remote = st
		t.mu.Unlock()
		if st.Message != "" {
			t.setNotice(engine.Notice{Level: engine.NoticeInfo, Text: st.Message, At: time.Now()})
		}
		return nil
	})
	return nil
}

func (t *ConsoleUI) cmdFaster(_ *gocui.View) error {
	return t.changeInterval(NextInterval(t.ctrl.Session().Interval, false))
}

func (t *ConsoleUI) cmdSlower(_ *gocui.View) error {
	return t.changeInterval(NextInterval(t.ctrl.Session().Interval, true))
}

func (t *ConsoleUI) changeInterval(d time.Duration) error {
	if err := t.ctrl.SetInterval(d); err != nil {
		t.setNotice(engine.Notice{Level: engine.NoticeWarn, Text: err.Error(), At: time.Now()})
		return nil
	}
	t.renderConfiguration()
	return nil
}

// NextInterval период автошага после нажатия "+" (короче) или "-" (длиннее).
// Не опускается ниже engine.MinInterval.
func NextInterval(cur time.Duration, slower bool) time.Duration {
	if slower {
		return cur * 2
	}
	next := cur / 2
	if next < engine.MinInterval {
		next = engine.MinInterval
	}
	return next
}
