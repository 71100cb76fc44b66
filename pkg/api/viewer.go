package api

import (
	"encoding/json"
	"time"
)

// --- СЕРВЕР -> ЗРИТЕЛЬ ---

// Типы сообщений зрителю.
const (
	MessageBoard   = "BOARD"
	MessageSession = "SESSION"
	MessageNotice  = "NOTICE"
	MessageBatch   = "BATCH"
	MessageStatus  = "STATUS"
)

// ViewerMessage корневой объект, который сервер отправляет зрителю по WebSocket.
type ViewerMessage struct {
	// Type один из Message* выше.
	Type string `json:"type"`

	// Generation поколение доски. Растет при каждой авторитетной замене.
	Generation uint64 `json:"generation,omitempty"`

	Board   *BoardView            `json:"board,omitempty"`
	Session *SessionView          `json:"session,omitempty"`
	Notice  *NoticeView           `json:"notice,omitempty"`
	Stats   *SimulationStatistics `json:"stats,omitempty"`
	Status  *MovementStatus       `json:"status,omitempty"`
}

// BoardView плотное представление доски для отрисовки (row-major).
type BoardView struct {
	Rows    int        `json:"rows"`
	Columns int        `json:"columns"`
	Cells   []CellView `json:"cells"`
}

// CellView одна клетка.
type CellView struct {
	Row    int      `json:"row"`
	Col    int      `json:"col"`
	Type   string   `json:"type"`
	Energy *float64 `json:"energy,omitempty"`

	// Animation декоративное состояние. Отсутствует, если анимации нет.
	Animation *AnimationView `json:"animation,omitempty"`
}

// AnimationView декоративная метка клетки.
type AnimationView struct {
	Kind string    `json:"kind"` // MOVING_TO_FOOD, ENERGIZED, CONSUMING, SPAWNING
	From *Position `json:"from,omitempty"`
	To   *Position `json:"to,omitempty"`
	Gain float64   `json:"gain,omitempty"`
}

// SessionView состояние контроллера шагов.
type SessionView struct {
	InFlight       bool   `json:"inFlight"`
	AutoStepping   bool   `json:"autoStepping"`
	IntervalMs     int64  `json:"intervalMs"`
	IterationCount int    `json:"iterationCount"`
	LastStepAt     int64  `json:"lastStepAt,omitempty"` // Unix milliseconds
	DroppedTicks   int    `json:"droppedTicks"`
	LastError      string `json:"lastError,omitempty"`
}

// NoticeView уведомление для пользователя (ошибка шага, предупреждение).
type NoticeView struct {
	Level     string `json:"level"` // INFO, WARN, ERROR
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
}

// NewNotice создает уведомление с текущим временем.
func NewNotice(level, text string) *NoticeView {
	return &NoticeView{Level: level, Text: text, Timestamp: time.Now().UnixMilli()}
}

// --- ЗРИТЕЛЬ -> СЕРВЕР ---

// Действия зрителя.
const (
	ActionStep        = "STEP"
	ActionToggleAuto  = "TOGGLE_AUTO"
	ActionSetInterval = "SET_INTERVAL"
	ActionBatch       = "BATCH"
	ActionReset       = "RESET"
	ActionStatus      = "STATUS"
)

// ViewerCommand команда от зрителя.
type ViewerCommand struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// IntervalPayload для SET_INTERVAL.
type IntervalPayload struct {
	IntervalMs int `json:"intervalMs"`
}

// BatchPayload для BATCH.
type BatchPayload struct {
	Iterations int `json:"iterations"`
}
