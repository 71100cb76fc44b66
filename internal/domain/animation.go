package domain

// AnimationKind вид декоративной метки клетки.
type AnimationKind uint8

const (
	AnimNone AnimationKind = iota
	AnimMovingToFood
	AnimEnergized
	AnimConsuming
	AnimSpawning
)

func (k AnimationKind) String() string {
	switch k {
	case AnimMovingToFood:
		return "MOVING_TO_FOOD"
	case AnimEnergized:
		return "ENERGIZED"
	case AnimConsuming:
		return "CONSUMING"
	case AnimSpawning:
		return "SPAWNING"
	default:
		return "NONE"
	}
}

// AnimationTag декоративное состояние клетки.
// From/To/Gain заполнены только для AnimMovingToFood.
type AnimationTag struct {
	Kind AnimationKind
	From Position
	To   Position
	Gain float64
}

// NoAnimation - метка по умолчанию.
var NoAnimation = AnimationTag{}

// MovingToFood метка перехода амебы на клетку с едой.
func MovingToFood(from, to Position, gain float64) AnimationTag {
	return AnimationTag{Kind: AnimMovingToFood, From: from, To: to, Gain: gain}
}

// Tag метка без параметров (Energized, Consuming, Spawning).
func Tag(kind AnimationKind) AnimationTag {
	return AnimationTag{Kind: kind}
}

// IsNone true, если клетка не анимируется.
func (a AnimationTag) IsNone() bool {
	return a.Kind == AnimNone
}
