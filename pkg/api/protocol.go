package api

// --- КЛИЕНТ <-> ДВИЖОК СИМУЛЯЦИИ ---
//
// DTO повторяют JSON, который принимает и отдает удаленный движок
// (/api/movement/*). Все координаты - {row, column}, нумерация с нуля.

// Типы сущностей в поле CellEntity.Type.
const (
	EntityTypeEmpty = "empty"
	EntityTypeFood  = "food"
	EntityTypeAmeba = "ameba"
)

// Лимиты итераций, которые принимает движок.
const (
	MaxMoveIterations     = 100
	MaxSimulateIterations = 1000
)

// Position позиция клетки на доске.
type Position struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// BoardSize размеры доски.
type BoardSize struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

// CellEntity одна сущность (амеба или еда) в разреженном представлении.
// Energy может отсутствовать - клиент подставляет значение по умолчанию.
type CellEntity struct {
	Type     string   `json:"type"`
	Energy   *float64 `json:"energy,omitempty"`
	Position Position `json:"position"`
}

// GameState разреженный снимок доски: пустые клетки не передаются.
type GameState struct {
	Amebas    []CellEntity `json:"amebas"`
	Foods     []CellEntity `json:"foods"`
	BoardSize BoardSize    `json:"board_size"`
}

// MoveRequest запрос на один или несколько шагов симуляции.
type MoveRequest struct {
	GameState *GameState `json:"game_state"`
	// AmebaID двигает только одну амебу. nil - двигаются все.
	AmebaID    *int `json:"ameba_id,omitempty"`
	Iterations int  `json:"iterations"`
}

// MovementResult перемещение одной амебы за шаг.
type MovementResult struct {
	AmebaPosition Position `json:"ameba_position"`
	OldPosition   Position `json:"old_position"`
	NewPosition   Position `json:"new_position"`
	EnergyChange  float64  `json:"energy_change"`
	// FoodConsumed позиция съеденной еды, если амеба поела на этом шаге.
	FoodConsumed *Position `json:"food_consumed,omitempty"`
}

// FoodGenerationInfo статистика появления и поедания еды за шаг.
type FoodGenerationInfo struct {
	TotalFoodsConsumed  int `json:"total_foods_consumed"`
	TotalFoodsGenerated int `json:"total_foods_generated"`
	NetFoodChange       int `json:"net_food_change"`
}

// MoveResponse ответ на MoveRequest.
type MoveResponse struct {
	Success             bool                `json:"success"`
	Message             string              `json:"message"`
	Movements           []MovementResult    `json:"movements"`
	UpdatedGameState    *GameState          `json:"updated_game_state,omitempty"`
	IterationsCompleted int                 `json:"iterations_completed"`
	FoodGeneration      *FoodGenerationInfo `json:"food_generation,omitempty"`
}

// SimulationRequest запрос на пакетную симуляцию без промежуточных кадров.
type SimulationRequest struct {
	GameState                *GameState `json:"game_state"`
	Iterations               int        `json:"iterations"`
	ReturnIntermediateStates bool       `json:"return_intermediate_states,omitempty"`
}

// SimulationStatistics агрегированная статистика пакетной симуляции.
type SimulationStatistics struct {
	FinalAmebaCount int     `json:"final_ameba_count"`
	FinalFoodCount  int     `json:"final_food_count"`
	TotalEnergy     float64 `json:"total_energy"`
}

// SimulationResponse ответ на SimulationRequest.
type SimulationResponse struct {
	Success         bool                 `json:"success"`
	Message         string               `json:"message"`
	TotalIterations int                  `json:"total_iterations"`
	FinalGameState  GameState            `json:"final_game_state"`
	Statistics      SimulationStatistics `json:"statistics"`
}

// MovementStatus состояние движка (/api/movement/status).
type MovementStatus struct {
	GameLoaded bool      `json:"game_loaded"`
	AmebaCount int       `json:"ameba_count"`
	FoodCount  int       `json:"food_count"`
	BoardSize  BoardSize `json:"board_size"`
	Message    string    `json:"message"`
}

// ErrorResponse тело ошибки, которое движок отдает вместе с не-2xx статусом.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
