// Package store владеет единственной изменяемой доской клиента.
package store

import (
	"sync"

	"github.com/leslobov/ameba/internal/domain"
	"github.com/leslobov/ameba/internal/network"
)

// Reason - почему изменилась доска
type Reason uint8

const (
	// ReasonReplace авторитетная замена доски (шаг, пакет, сброс).
	ReasonReplace Reason = iota + 1
	// ReasonAnimation изменились только декоративные метки.
	ReasonAnimation
)

func (r Reason) String() string {
	if r == ReasonAnimation {
		return "animation"
	}
	return "replace"
}

// Update снимок доски для подписчиков. Board - собственная копия снимка,
// общая для всех подписчиков одного обновления: только для чтения.
type Update struct {
	Board      domain.BoardState
	Generation uint64
	Reason     Reason
}

// AnimationPatch решает, какую метку поставить клетке.
// Возвращает новую метку и true, если клетку нужно изменить.
type AnimationPatch func(c domain.Cell) (domain.AnimationTag, bool)

// BoardStore - единственная точка доступа к доске.
//
// Писатель один за раз: либо полная замена (Replace), либо правка одних
// только меток анимации (PatchAnimations). Kind и Energy меняются исключительно
// через Replace. Каждая замена увеличивает поколение; правки, запланированные
// против старого поколения, отклоняются.
type BoardStore struct {
	mu    sync.RWMutex
	board domain.BoardState
	gen   uint64

	hub *network.Broadcaster[Update]
}

func New() *BoardStore {
	return &BoardStore{hub: network.NewBroadcaster[Update](network.DefaultBuffer)}
}

// Current возвращает копию доски и ее поколение.
// Читатель всегда видит либо старую, либо новую доску целиком.
func (s *BoardStore) Current() (domain.BoardState, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board.Clone(), s.gen
}

// Generation текущее поколение доски. 0 - доски еще не было.
func (s *BoardStore) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// HasBoard true, если доска уже создана.
func (s *BoardStore) HasBoard() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.board.IsZero()
}

// Dimensions размеры текущей доски.
func (s *BoardStore) Dimensions() (rows, columns int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board.Rows, s.board.Columns
}

// Replace атомарно ставит новую доску и возвращает ее поколение.
// Доска копируется, вызывающий может дальше распоряжаться своим экземпляром.
func (s *BoardStore) Replace(board domain.BoardState) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.board = board.Clone()
	s.gen++
	s.publishLocked(ReasonReplace)
	return s.gen
}

// PatchAnimations применяет patch ко всем клеткам доски поколения gen.
// Меняется только поле Animation. Если поколение уже сменилось, доска не трогается
// и ok == false.
func (s *BoardStore) PatchAnimations(gen uint64, patch AnimationPatch) (changed int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.board.IsZero() {
		return 0, false
	}

	for i := range s.board.Cells {
		tag, apply := patch(s.board.Cells[i])
		if !apply || tag == s.board.Cells[i].Animation {
			continue
		}
		s.board.Cells[i].Animation = tag
		changed++
	}

	if changed > 0 {
		s.publishLocked(ReasonAnimation)
	}
	return changed, true
}

// Subscribe регистрирует подписчика. Первым сообщением приходит текущая доска (если есть).
func (s *BoardStore) Subscribe(id string) <-chan Update {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch := s.hub.Register(id)
	if !s.board.IsZero() {
		s.hub.SendTo(id, Update{Board: s.board.Clone(), Generation: s.gen, Reason: ReasonReplace})
	}
	return ch
}

// Unsubscribe удаляет подписчика и закрывает его канал.
func (s *BoardStore) Unsubscribe(id string) {
	s.hub.Unregister(id)
}

// SubscriberCount количество подписчиков.
func (s *BoardStore) SubscriberCount() int {
	return s.hub.SubscriberCount()
}

// Close отписывает всех.
func (s *BoardStore) Close() {
	s.hub.Close()
}

// publishLocked рассылает снимок под блокировкой записи, чтобы подписчики
// получали обновления в том же порядке, в котором они применялись.
func (s *BoardStore) publishLocked(reason Reason) {
	s.hub.Broadcast(Update{Board: s.board.Clone(), Generation: s.gen, Reason: reason})
}
