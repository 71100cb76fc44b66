package server

import (
	"encoding/json"
	"net/http"

	"github.com/leslobov/ameba/internal/domain"
	"github.com/leslobov/ameba/internal/engine"
)

// DebugHandler предоставляет доступ к внутреннему состоянию контроллера
type DebugHandler struct {
	Controller *engine.Controller
}

func NewDebugHandler(c *engine.Controller) *DebugHandler {
	return &DebugHandler{Controller: c}
}

// RegisterRoutes регистрирует debug-эндпоинты
func (h *DebugHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/board", h.handleBoard)
	mux.HandleFunc("/debug/session", h.handleSession)
}

// /debug/board - текущая доска с поколением и сводкой по клеткам
func (h *DebugHandler) handleBoard(w http.ResponseWriter, r *http.Request) {
	type BoardDump struct {
		Generation  uint64      `json:"generation"`
		Amebas      int         `json:"amebas"`
		Foods       int         `json:"foods"`
		Empty       int         `json:"empty"`
		TotalEnergy float64     `json:"total_energy"`
		Board       interface{} `json:"board"`
	}

	b, gen := h.Controller.Store().Current()
	if b.IsZero() {
		http.Error(w, "Board not configured", http.StatusNotFound)
		return
	}

	writeJSON(w, BoardDump{
		Generation:  gen,
		Amebas:      b.Count(domain.CellAmeba),
		Foods:       b.Count(domain.CellFood),
		Empty:       b.Count(domain.CellEmpty),
		TotalEnergy: b.TotalEnergy(),
		Board:       BoardView(b),
	})
}

// /debug/session - состояние шагового цикла
func (h *DebugHandler) handleSession(w http.ResponseWriter, r *http.Request) {
	s := h.Controller.Session()
	type SessionDump struct {
		Configured bool        `json:"configured"`
		Generation uint64      `json:"generation"`
		Session    interface{} `json:"session"`
	}
	writeJSON(w, SessionDump{
		Configured: s.Configured,
		Generation: s.Generation,
		Session:    SessionView(s),
	})
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	// Разрешаем запросы с любого источника
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	w.Header().Set("Content-Type", "application/json")

	if data == nil {
		_, _ = w.Write([]byte("{}"))
		return
	}

	_ = json.NewEncoder(w).Encode(data)
}
