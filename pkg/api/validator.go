package api

import (
	"errors"
	"fmt"
)

// Validator - интерфейс, который могут реализовать DTO
type Validator interface {
	Validate() error
}

// Минимальный интервал автошага, чтобы не задушить движок.
const MinIntervalMs = 50

func (r MoveRequest) Validate() error {
	if r.GameState == nil {
		return errors.New("game_state is required")
	}
	if r.Iterations < 1 || r.Iterations > MaxMoveIterations {
		return fmt.Errorf("iterations must be in [1, %d], got %d", MaxMoveIterations, r.Iterations)
	}
	return nil
}

func (r SimulationRequest) Validate() error {
	if r.GameState == nil {
		return errors.New("game_state is required")
	}
	if r.Iterations < 1 || r.Iterations > MaxSimulateIterations {
		return fmt.Errorf("iterations must be in [1, %d], got %d", MaxSimulateIterations, r.Iterations)
	}
	return nil
}

func (p IntervalPayload) Validate() error {
	if p.IntervalMs < MinIntervalMs {
		return fmt.Errorf("intervalMs must be at least %d", MinIntervalMs)
	}
	return nil
}

func (p BatchPayload) Validate() error {
	if p.Iterations < 1 || p.Iterations > MaxSimulateIterations {
		return fmt.Errorf("iterations must be in [1, %d]", MaxSimulateIterations)
	}
	return nil
}

// Validate проверяет те же границы, что и хранилище конфигурации.
func (c GameConfig) Validate() error {
	pd := c.PlayDesk
	switch {
	case pd.TotalEnergy < 1000 || pd.TotalEnergy > 100000:
		return fmt.Errorf("play_desk.total_energy out of range [1000, 100000]: %v", pd.TotalEnergy)
	case pd.EnergyPerFood < 10 || pd.EnergyPerFood > 200:
		return fmt.Errorf("play_desk.energy_per_food out of range [10, 200]: %v", pd.EnergyPerFood)
	case pd.Rows < 10 || pd.Rows > 100:
		return fmt.Errorf("play_desk.rows out of range [10, 100]: %d", pd.Rows)
	case pd.Columns < 10 || pd.Columns > 100:
		return fmt.Errorf("play_desk.columns out of range [10, 100]: %d", pd.Columns)
	}

	a := c.Ameba
	switch {
	case a.InitialEnergy < 50 || a.InitialEnergy > 500:
		return fmt.Errorf("ameba.initial_energy out of range [50, 500]: %v", a.InitialEnergy)
	case a.LostEnergyPerMove < 0.1 || a.LostEnergyPerMove > 10:
		return fmt.Errorf("ameba.lost_energy_per_move out of range [0.1, 10]: %v", a.LostEnergyPerMove)
	case a.VisibleRows < 3 || a.VisibleRows > 15 || a.VisibleColumns < 3 || a.VisibleColumns > 15:
		return errors.New("ameba visible area must be within [3, 15]")
	case a.LostnessWeightCoefficient < 0 || a.LostnessWeightCoefficient > 1:
		return errors.New("ameba lostness coefficient must be within [0, 1]")
	}

	nn := c.NeuralNetwork
	if nn.InitialHiddenLayers < 0 || nn.InitialHiddenLayers > 10 {
		return fmt.Errorf("neural_network.initial_hidden_layers out of range [0, 10]: %d", nn.InitialHiddenLayers)
	}
	if nn.InitialNeuronsOnLayer < 4 || nn.InitialNeuronsOnLayer > 256 {
		return fmt.Errorf("neural_network.initial_neurons_on_layer out of range [4, 256]: %d", nn.InitialNeuronsOnLayer)
	}
	return nil
}
