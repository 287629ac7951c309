package relay

import (
	"sync"

	"github.com/tuanvumaihuynh/shop-simulator/internal/storage/mq"
)

// Queue is a bounded in-memory outbox. When full, the oldest message is
// dropped to make room.
type Queue struct {
	mu   sync.Mutex
	msgs []mq.ProduceMsg
	size int
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{size: size}
}

// Push appends msg and reports how many old messages were dropped.
func (q *Queue) Push(msg mq.ProduceMsg) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.msgs = append(q.msgs, msg)
	return q.trim()
}

// Take removes and returns up to n messages from the front.
func (q *Queue) Take(n int) []mq.ProduceMsg {
	q.mu.Lock()
	defer q.mu.Unlock()

	n = min(n, len(q.msgs))
	batch := make([]mq.ProduceMsg, n)
	copy(batch, q.msgs[:n])
	q.msgs = q.msgs[n:]

	return batch
}

// Requeue puts msgs back at the front, ahead of anything pushed since they were taken.
func (q *Queue) Requeue(msgs []mq.ProduceMsg) int {
	if len(msgs) == 0 {
		return 0
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.msgs = append(append(make([]mq.ProduceMsg, 0, len(msgs)+len(q.msgs)), msgs...), q.msgs...)
	return q.trim()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.msgs)
}

func (q *Queue) trim() int {
	over := len(q.msgs) - q.size
	if over <= 0 {
		return 0
	}
	q.msgs = q.msgs[over:]
	return over
}
