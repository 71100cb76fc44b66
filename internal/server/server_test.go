package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/leslobov/ameba/internal/domain"
	"github.com/leslobov/ameba/internal/engine"
	"github.com/leslobov/ameba/internal/remote"
	"github.com/leslobov/ameba/internal/sched"
	"github.com/leslobov/ameba/internal/store"
	"github.com/leslobov/ameba/pkg/api"
)

// echoEngine возвращает доску без изменений.
type echoEngine struct {
	fail string
}

func (e echoEngine) Status(ctx context.Context) (*domain.EngineStatus, error) {
	return &domain.EngineStatus{Loaded: true, AmebaCount: 5, FoodCount: 20, Rows: 10, Columns: 10}, nil
}

func (e echoEngine) Step(ctx context.Context, snap domain.EntitySnapshot, n int) (*domain.StepResult, error) {
	if e.fail != "" {
		return nil, &remote.EngineRejection{Op: "step", Message: e.fail}
	}
	return &domain.StepResult{Snapshot: &snap, IterationsCompleted: n}, nil
}

func (e echoEngine) Simulate(ctx context.Context, snap domain.EntitySnapshot, n int) (*domain.SimulationResult, error) {
	return &domain.SimulationResult{
		TotalIterations: n,
		Final:           snap,
		Stats:           domain.SimulationStats{FinalAmebaCount: len(snap.Amebas), FinalFoodCount: len(snap.Foods)},
	}, nil
}

func newTestServer(t *testing.T, eng remote.SimulationClient) *Server {
	t.Helper()
	cfg := engine.NewConfig()
	cfg.Seed = 7
	ctrl := engine.NewController(eng, store.New(), sched.NewManual(time.Unix(0, 0)), cfg)
	t.Cleanup(ctrl.Close)
	err := ctrl.Configure(domain.GameConfig{Rows: 10, Columns: 10, TotalEnergy: 1000, EnergyPerFood: 50, AmebaInitialEnergy: 100})
	if err != nil {
		t.Fatal(err)
	}
	return New(ctrl, ":0")
}

func TestHealthAndVersion(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t, echoEngine{}).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("/health = %d, CORS %q", resp.StatusCode, resp.Header.Get("Access-Control-Allow-Origin"))
	}

	resp, err = http.Get(ts.URL + "/version")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var info map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Errorf("/version is not JSON: %v", err)
	}
}

func TestDebugRoutes(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t, echoEngine{}).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/debug/board")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var dump struct {
		Generation uint64        `json:"generation"`
		Amebas     int           `json:"amebas"`
		Foods      int           `json:"foods"`
		Empty      int           `json:"empty"`
		Board      api.BoardView `json:"board"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&dump); err != nil {
		t.Fatal(err)
	}
	if dump.Generation != 1 || dump.Amebas != 5 || dump.Foods != 20 || dump.Empty != 75 {
		t.Errorf("board dump = %+v", dump)
	}
	if len(dump.Board.Cells) != 100 {
		t.Errorf("cells = %d, want 100", len(dump.Board.Cells))
	}

	resp2, err := http.Get(ts.URL + "/debug/session")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	var sess struct {
		Configured bool            `json:"configured"`
		Session    api.SessionView `json:"session"`
	}
	if err := json.NewDecoder(resp2.Body).Decode(&sess); err != nil {
		t.Fatal(err)
	}
	if !sess.Configured || sess.Session.IntervalMs != 1000 {
		t.Errorf("session dump = %+v", sess)
	}
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		name     string
		engine   echoEngine
		cmd      api.ViewerCommand
		wantType string
		wantText string
	}{
		{
			name:     "step",
			cmd:      api.ViewerCommand{Action: api.ActionStep},
			wantType: api.MessageSession,
		},
		{
			name:     "step rejected",
			engine:   echoEngine{fail: "No amebas"},
			cmd:      api.ViewerCommand{Action: api.ActionStep},
			wantType: api.MessageNotice,
			wantText: "No amebas",
		},
		{
			name:     "batch",
			cmd:      api.ViewerCommand{Action: api.ActionBatch, Payload: json.RawMessage(`{"iterations":10}`)},
			wantType: api.MessageBatch,
		},
		{
			name:     "batch out of range",
			cmd:      api.ViewerCommand{Action: api.ActionBatch, Payload: json.RawMessage(`{"iterations":5000}`)},
			wantType: api.MessageNotice,
			wantText: "iterations must be in [1, 1000]",
		},
		{
			name:     "interval",
			cmd:      api.ViewerCommand{Action: api.ActionSetInterval, Payload: json.RawMessage(`{"intervalMs":250}`)},
			wantType: api.MessageSession,
		},
		{
			name:     "interval without payload",
			cmd:      api.ViewerCommand{Action: api.ActionSetInterval},
			wantType: api.MessageNotice,
			wantText: "payload is required",
		},
		{
			name:     "status",
			cmd:      api.ViewerCommand{Action: api.ActionStatus},
			wantType: api.MessageStatus,
		},
		{
			name:     "reset",
			cmd:      api.ViewerCommand{Action: api.ActionReset},
			wantType: api.MessageSession,
		},
		{
			name:     "unknown",
			cmd:      api.ViewerCommand{Action: "JUMP"},
			wantType: api.MessageNotice,
			wantText: `unknown action "JUMP"`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.engine)
			msgs := s.Dispatch(context.Background(), tt.cmd)
			if len(msgs) == 0 {
				t.Fatal("no reply")
			}
			first := msgs[0]
			if first.Type != tt.wantType {
				t.Fatalf("reply type = %s, want %s", first.Type, tt.wantType)
			}
			if tt.wantText != "" && (first.Notice == nil || first.Notice.Text != tt.wantText) {
				t.Errorf("notice = %+v, want %q", first.Notice, tt.wantText)
			}
		})
	}
}

func TestDispatchToggleAndBatchStats(t *testing.T) {
	s := newTestServer(t, echoEngine{})

	msgs := s.Dispatch(context.Background(), api.ViewerCommand{Action: api.ActionToggleAuto})
	if !msgs[0].Session.AutoStepping {
		t.Error("auto-step not reported after toggle")
	}

	msgs = s.Dispatch(context.Background(), api.ViewerCommand{Action: api.ActionBatch, Payload: json.RawMessage(`{"iterations":3}`)})
	if msgs[0].Stats == nil || msgs[0].Stats.FinalAmebaCount != 5 {
		t.Errorf("batch stats = %+v", msgs[0].Stats)
	}
	if msgs[1].Session.IterationCount != 3 {
		t.Errorf("iterations = %d, want 3", msgs[1].Session.IterationCount)
	}
}

func TestWebSocketStream(t *testing.T) {
	s := newTestServer(t, echoEngine{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readUntil := func(msgType string) api.ViewerMessage {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		for {
			var m api.ViewerMessage
			if err := conn.ReadJSON(&m); err != nil {
				t.Fatalf("waiting for %s: %v", msgType, err)
			}
			if m.Type == msgType {
				return m
			}
		}
	}

	first := readUntil(api.MessageBoard)
	if first.Generation != 1 || first.Board == nil || len(first.Board.Cells) != 100 {
		t.Fatalf("initial board = gen %d", first.Generation)
	}

	if err := conn.WriteJSON(api.ViewerCommand{Action: api.ActionStep}); err != nil {
		t.Fatal(err)
	}
	next := readUntil(api.MessageBoard)
	if next.Generation != 2 {
		t.Errorf("board after step has generation %d, want 2", next.Generation)
	}
}
