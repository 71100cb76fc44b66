package network

import "sync"

// DefaultBuffer размер личного канала подписчика.
const DefaultBuffer = 64

// Broadcaster занимается только рассылкой сообщений подписчикам.
// Отправка никогда не блокирует: если канал подписчика полон, сообщение для него теряется.
type Broadcaster[T any] struct {
	mu sync.RWMutex
	// Мапа: ID подписчика -> Личный канал
	subscribers map[string]chan T
	buffer      int
}

func NewBroadcaster[T any](buffer int) *Broadcaster[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broadcaster[T]{
		subscribers: make(map[string]chan T),
		buffer:      buffer,
	}
}

// Register создает личный канал для подписчика (зрителя, терминала, теста)
func (b *Broadcaster[T]) Register(id string) <-chan T {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Если канал был, закрываем
	if old, ok := b.subscribers[id]; ok {
		close(old)
	}

	ch := make(chan T, b.buffer)
	b.subscribers[id] = ch
	return ch
}

// Unregister удаляет подписчика и закрывает его канал
func (b *Broadcaster[T]) Unregister(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
}

// SendTo отправляет сообщение конкретному подписчику (Unicast)
func (b *Broadcaster[T]) SendTo(id string, msg T) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ch, ok := b.subscribers[id]
	if !ok {
		return false
	}
	select {
	case ch <- msg:
		return true
	default:
		return false
	}
}

// Broadcast отправляет всем. Возвращает число подписчиков, которым не хватило места.
func (b *Broadcaster[T]) Broadcast(msg T) (dropped int) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- msg:
		default:
			dropped++
		}
	}
	return dropped
}

// HasSubscriber проверяет, зарегистрирован ли подписчик
func (b *Broadcaster[T]) HasSubscriber(id string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.subscribers[id]
	return ok
}

// SubscriberCount возвращает количество активных подписчиков.
func (b *Broadcaster[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close отписывает всех и закрывает их каналы.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
