package api

// --- КОНФИГУРАЦИЯ ИГРЫ (/api/config) ---

// PlayDeskConfig параметры доски.
type PlayDeskConfig struct {
	TotalEnergy   float64 `json:"total_energy"`
	EnergyPerFood float64 `json:"energy_per_food"`
	Rows          int     `json:"rows"`
	Columns       int     `json:"columns"`
}

// AmebaConfig параметры амебы. Клиенту нужна только InitialEnergy,
// остальное передается как есть.
type AmebaConfig struct {
	LostnessWeightCoefficient float64 `json:"threhold_of_lostness_weight_coefficient"`
	VisibleRows               int     `json:"visible_rows"`
	VisibleColumns            int     `json:"visible_columns"`
	InitialEnergy             float64 `json:"initial_energy"`
	LostEnergyPerMove         float64 `json:"lost_energy_per_move"`
}

// NeuralNetworkConfig параметры нейросети амебы (клиентом не используются).
type NeuralNetworkConfig struct {
	InitialHiddenLayers   int `json:"initial_hidden_layers"`
	InitialNeuronsOnLayer int `json:"initial_neurons_on_layer"`
}

// GameConfig полная конфигурация игры.
type GameConfig struct {
	PlayDesk      PlayDeskConfig      `json:"play_desk"`
	Ameba         AmebaConfig         `json:"ameba"`
	NeuralNetwork NeuralNetworkConfig `json:"neural_network"`
}

// ConfigEnvelope стандартная обертка ответов хранилища конфигурации.
type ConfigEnvelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    *GameConfig `json:"data"`
}

// DefaultGameConfig значения по умолчанию (совпадают с дефолтами движка).
func DefaultGameConfig() GameConfig {
	return GameConfig{
		PlayDesk: PlayDeskConfig{
			TotalEnergy:   10000,
			EnergyPerFood: 50,
			Rows:          32,
			Columns:       32,
		},
		Ameba: AmebaConfig{
			LostnessWeightCoefficient: 0.2,
			VisibleRows:               5,
			VisibleColumns:            5,
			InitialEnergy:             100,
			LostEnergyPerMove:         1,
		},
		NeuralNetwork: NeuralNetworkConfig{
			InitialHiddenLayers:   1,
			InitialNeuronsOnLayer: 32,
		},
	}
}
