package domain

import "errors"

// GameConfig - часть конфигурации игры, которая нужна клиенту:
// размеры доски и параметры начальной расстановки.
type GameConfig struct {
	Rows               int
	Columns            int
	TotalEnergy        float64
	EnergyPerFood      float64
	AmebaInitialEnergy float64
}

// Validate проверяет минимум, без которого нельзя построить доску.
// Более строгие границы проверяет api.GameConfig.Validate.
func (c GameConfig) Validate() error {
	if c.Rows <= 0 || c.Columns <= 0 {
		return errors.New("board dimensions must be positive")
	}
	if c.EnergyPerFood <= 0 {
		return errors.New("energy per food must be positive")
	}
	if c.TotalEnergy < 0 {
		return errors.New("total energy must not be negative")
	}
	return nil
}
