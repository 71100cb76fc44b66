package server

import (
	"strings"

	"github.com/leslobov/ameba/internal/domain"
	"github.com/leslobov/ameba/internal/engine"
	"github.com/leslobov/ameba/pkg/api"
)

// BoardView переводит доску в форму для зрителя.
func BoardView(b domain.BoardState) *api.BoardView {
	view := &api.BoardView{
		Rows:    b.Rows,
		Columns: b.Columns,
		Cells:   make([]api.CellView, 0, len(b.Cells)),
	}
	for _, c := range b.Cells {
		cell := api.CellView{Row: c.Pos.Row, Col: c.Pos.Col, Type: c.Kind.String()}
		if c.Kind != domain.CellEmpty {
			e := c.Energy
			cell.Energy = &e
		}
		cell.Animation = animationView(c.Animation)
		view.Cells = append(view.Cells, cell)
	}
	return view
}

func animationView(a domain.AnimationTag) *api.AnimationView {
	if a.IsNone() {
		return nil
	}
	v := &api.AnimationView{Kind: a.Kind.String()}
	if a.Kind == domain.AnimMovingToFood {
		from := api.Position{Row: a.From.Row, Column: a.From.Col}
		to := api.Position{Row: a.To.Row, Column: a.To.Col}
		v.From, v.To, v.Gain = &from, &to, a.Gain
	}
	return v
}

// SessionView переводит снимок сессии.
func SessionView(s engine.Session) *api.SessionView {
	v := &api.SessionView{
		InFlight:       s.InFlight,
		AutoStepping:   s.AutoStepping,
		IntervalMs:     s.Interval.Milliseconds(),
		IterationCount: s.IterationCount,
		DroppedTicks:   s.DroppedTicks,
		LastError:      s.LastError,
	}
	if !s.LastStepAt.IsZero() {
		v.LastStepAt = s.LastStepAt.UnixMilli()
	}
	return v
}

func noticeMessage(n engine.Notice) api.ViewerMessage {
	return api.ViewerMessage{
		Type: api.MessageNotice,
		Notice: &api.NoticeView{
			Level:     strings.ToUpper(n.Level),
			Text:      n.Text,
			Timestamp: n.At.UnixMilli(),
		},
	}
}

func errorNotice(text string) api.ViewerMessage {
	return api.ViewerMessage{Type: api.MessageNotice, Notice: api.NewNotice("ERROR", text)}
}

func infoNotice(text string) api.ViewerMessage {
	return api.ViewerMessage{Type: api.MessageNotice, Notice: api.NewNotice("INFO", text)}
}

func statusView(st *domain.EngineStatus) *api.MovementStatus {
	return &api.MovementStatus{
		GameLoaded: st.Loaded,
		AmebaCount: st.AmebaCount,
		FoodCount:  st.FoodCount,
		BoardSize:  api.BoardSize{Rows: st.Rows, Columns: st.Columns},
		Message:    st.Message,
	}
}
