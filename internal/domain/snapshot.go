package domain

// Entity сущность в разреженном снимке. Energy == nil означает,
// что движок не прислал энергию (кодек подставит значение по умолчанию).
type Entity struct {
	Pos    Position
	Energy *float64
}

// EntitySnapshot разреженное представление доски, которым клиент обменивается с движком.
// Пустые клетки не передаются. Rows/Columns - размеры, которые сообщил отправитель.
type EntitySnapshot struct {
	Amebas  []Entity
	Foods   []Entity
	Rows    int
	Columns int
}

// Movement перемещение одной амебы за шаг.
type Movement struct {
	Ameba        Position
	From         Position
	To           Position
	EnergyChange float64
	// FoodConsumed позиция съеденной еды, nil если амеба не ела.
	FoodConsumed *Position
}

// Moved true, если амеба сменила клетку.
func (m Movement) Moved() bool {
	return m.From != m.To
}

// AteFood true, если на этом шаге амеба съела еду.
func (m Movement) AteFood() bool {
	return m.FoodConsumed != nil
}

// FoodGeneration статистика еды за шаг.
type FoodGeneration struct {
	Consumed  int
	Generated int
	Net       int
}

// StepResult результат удаленного шага.
type StepResult struct {
	Message             string
	Movements           []Movement
	Snapshot            *EntitySnapshot
	IterationsCompleted int
	Food                *FoodGeneration
}

// SimulationStats агрегированная статистика пакетной симуляции.
type SimulationStats struct {
	FinalAmebaCount int
	FinalFoodCount  int
	TotalEnergy     float64
}

// SimulationResult результат пакетной симуляции (только финальный кадр).
type SimulationResult struct {
	Message         string
	TotalIterations int
	Final           EntitySnapshot
	Stats           SimulationStats
}

// EngineStatus состояние удаленного движка.
type EngineStatus struct {
	Loaded     bool
	AmebaCount int
	FoodCount  int
	Rows       int
	Columns    int
	Message    string
}
