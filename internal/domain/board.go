package domain

import (
	"errors"
	"fmt"
)

// Position координата клетки. Нумерация с нуля.
type Position struct {
	Row int
	Col int
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// CellKind - что находится в клетке
type CellKind uint8

const (
	CellEmpty CellKind = iota
	CellFood
	CellAmeba
)

var cellKindNames = map[CellKind]string{
	CellEmpty: "empty",
	CellFood:  "food",
	CellAmeba: "ameba",
}

func (k CellKind) String() string {
	if s, ok := cellKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseCellKind разбирает имя типа из протокола ("empty", "food", "ameba").
func ParseCellKind(s string) (CellKind, bool) {
	for k, name := range cellKindNames {
		if name == s {
			return k, true
		}
	}
	return CellEmpty, false
}

// Cell одна клетка доски.
// Energy имеет смысл только для непустых клеток, у пустой всегда 0.
// Animation - чисто декоративное поле, движку никогда не отправляется.
type Cell struct {
	Pos       Position
	Kind      CellKind
	Energy    float64
	Animation AnimationTag
}

// BoardState плотная доска: ровно одна клетка на координату, порядок row-major.
type BoardState struct {
	Rows    int
	Columns int
	Cells   []Cell
}

// NewBoard создает полностью пустую доску rows x columns.
func NewBoard(rows, columns int) BoardState {
	if rows <= 0 || columns <= 0 {
		return BoardState{}
	}
	cells := make([]Cell, rows*columns)
	for r := 0; r < rows; r++ {
		for c := 0; c < columns; c++ {
			cells[r*columns+c] = Cell{Pos: Position{Row: r, Col: c}}
		}
	}
	return BoardState{Rows: rows, Columns: columns, Cells: cells}
}

// IsZero true, если доска еще не создана.
func (b BoardState) IsZero() bool {
	return b.Rows == 0 || b.Columns == 0
}

// InBounds проверяет, что позиция лежит на доске.
func (b BoardState) InBounds(p Position) bool {
	return p.Row >= 0 && p.Row < b.Rows && p.Col >= 0 && p.Col < b.Columns
}

// Index возвращает индекс клетки в Cells. Вызывающий проверяет InBounds.
func (b BoardState) Index(p Position) int {
	return p.Row*b.Columns + p.Col
}

// At возвращает клетку по позиции. Для позиции вне доски - пустая клетка и false.
func (b BoardState) At(p Position) (Cell, bool) {
	if !b.InBounds(p) {
		return Cell{Pos: p}, false
	}
	return b.Cells[b.Index(p)], true
}

// Clone делает глубокую копию (Cells не разделяется).
func (b BoardState) Clone() BoardState {
	out := BoardState{Rows: b.Rows, Columns: b.Columns}
	if b.Cells != nil {
		out.Cells = make([]Cell, len(b.Cells))
		copy(out.Cells, b.Cells)
	}
	return out
}

// Count считает клетки заданного типа.
func (b BoardState) Count(kind CellKind) int {
	n := 0
	for _, c := range b.Cells {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// TotalEnergy сумма энергии всех сущностей на доске.
func (b BoardState) TotalEnergy() float64 {
	var sum float64
	for _, c := range b.Cells {
		if c.Kind != CellEmpty {
			sum += c.Energy
		}
	}
	return sum
}

// Validate проверяет инварианты доски.
func (b BoardState) Validate() error {
	if b.Rows <= 0 || b.Columns <= 0 {
		return errors.New("board dimensions must be positive")
	}
	if len(b.Cells) != b.Rows*b.Columns {
		return fmt.Errorf("board has %d cells, want %d", len(b.Cells), b.Rows*b.Columns)
	}
	for i, c := range b.Cells {
		if !b.InBounds(c.Pos) || b.Index(c.Pos) != i {
			return fmt.Errorf("cell %d has position %s, want row-major slot", i, c.Pos)
		}
		if c.Kind == CellEmpty && c.Energy != 0 {
			return fmt.Errorf("empty cell %s carries energy %v", c.Pos, c.Energy)
		}
	}
	return nil
}
