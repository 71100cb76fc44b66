// Package view - терминальное представление доски: интерактивный TUI на gocui
// и построчный вывод для headless-режима.
package view

import (
	"bytes"
	"fmt"

	"github.com/logrusorgru/aurora"

	"github.com/leslobov/ameba/internal/domain"
)

// Символы клеток
const (
	GlyphEmpty     = '·'
	GlyphFood      = '*'
	GlyphAmeba     = '@'
	GlyphMoving    = '>'
	GlyphEnergized = '+'
	GlyphConsuming = 'x'
	GlyphSpawning  = 'o'
)

// CropNotice последняя строка, если доска не влезает в область вывода.
const CropNotice = "The board is larger than the viewing area"

// Glyph символ клетки без цвета. Анимация имеет приоритет над типом клетки.
func Glyph(c domain.Cell) rune {
	switch c.Animation.Kind {
	case domain.AnimMovingToFood:
		return GlyphMoving
	case domain.AnimEnergized:
		return GlyphEnergized
	case domain.AnimConsuming:
		return GlyphConsuming
	case domain.AnimSpawning:
		return GlyphSpawning
	}
	switch c.Kind {
	case domain.CellAmeba:
		return GlyphAmeba
	case domain.CellFood:
		return GlyphFood
	default:
		return GlyphEmpty
	}
}

// Renderer превращает доску в текст. С выключенными цветами вывод чистый.
type Renderer struct {
	au aurora.Aurora
}

func NewRenderer(colors bool) *Renderer {
	return &Renderer{au: aurora.NewAurora(colors)}
}

// Cell одна клетка с цветом.
func (r *Renderer) Cell(c domain.Cell) string {
	g := string(Glyph(c))
	switch c.Animation.Kind {
	case domain.AnimMovingToFood:
		return r.au.BrightYellow(g).Bold().String()
	case domain.AnimEnergized:
		return r.au.BrightGreen(g).Bold().String()
	case domain.AnimConsuming:
		return r.au.Red(g).String()
	case domain.AnimSpawning:
		return r.au.Magenta(g).String()
	}
	switch c.Kind {
	case domain.CellAmeba:
		return r.au.Green(g).String()
	case domain.CellFood:
		return r.au.Yellow(g).String()
	default:
		return r.au.Gray(8, g).String()
	}
}

// Board рисует доску построчно в область maxW x maxH.
// maxW или maxH <= 0 - без ограничения.
func (r *Renderer) Board(b domain.BoardState, maxW, maxH int) string {
	if b.IsZero() {
		return ""
	}
	crop := (maxW > 0 && b.Columns > maxW) || (maxH > 0 && b.Rows > maxH)

	var buf bytes.Buffer
	for row := 0; row < b.Rows; row++ {
		if maxH > 0 && row >= maxH {
			break
		}
		if row != 0 {
			buf.WriteByte('\n')
		}
		if crop && maxH > 0 && row == maxH-1 {
			buf.WriteString(r.au.Red(CropNotice).String())
			break
		}
		for col := 0; col < b.Columns; col++ {
			if maxW > 0 && col >= maxW {
				break
			}
			buf.WriteString(r.Cell(b.Cells[row*b.Columns+col]))
		}
	}
	return buf.String()
}

// Prop строка "имя: значение" для панелей конфигурации и статуса.
func (r *Renderer) Prop(name string, format string, values ...interface{}) string {
	return " " + r.au.Green(name).String() + ": " + fmt.Sprintf(format, values...)
}

// BoardCounts сводка по клеткам, как под доской на странице игры.
type BoardCounts struct {
	Amebas      int
	Foods       int
	Empty       int
	TotalEnergy float64
}

func Counts(b domain.BoardState) BoardCounts {
	return BoardCounts{
		Amebas:      b.Count(domain.CellAmeba),
		Foods:       b.Count(domain.CellFood),
		Empty:       b.Count(domain.CellEmpty),
		TotalEnergy: b.TotalEnergy(),
	}
}
