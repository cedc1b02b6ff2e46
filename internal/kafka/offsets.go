package kafka

import (
	"sync"

	"github.com/segmentio/kafka-go"
)

// offsetTracker отдает на коммит офсет партиции только когда обработаны
// все сообщения, прочитанные из нее раньше
type offsetTracker struct {
	mu         sync.Mutex
	partitions map[int]*partitionOffsets
}

type partitionOffsets struct {
	pending []kafka.Message
	done    map[int64]bool
}

func newOffsetTracker() *offsetTracker {
	return &offsetTracker{partitions: make(map[int]*partitionOffsets)}
}

func (t *offsetTracker) partition(id int) *partitionOffsets {
	p, ok := t.partitions[id]
	if !ok {
		p = &partitionOffsets{done: make(map[int64]bool)}
		t.partitions[id] = p
	}
	return p
}

// track запоминает сообщение в порядке чтения
func (t *offsetTracker) track(msg kafka.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.partition(msg.Partition)
	p.pending = append(p.pending, msg)
}

// complete отмечает сообщения обработанными и возвращает по одному сообщению
// на партицию, до которого включительно можно коммитить
func (t *offsetTracker) complete(msgs ...kafka.Message) []kafka.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	touched := make(map[int]struct{})
	for _, msg := range msgs {
		t.partition(msg.Partition).done[msg.Offset] = true
		touched[msg.Partition] = struct{}{}
	}

	var ready []kafka.Message
	for id := range touched {
		p := t.partitions[id]

		n := 0
		for n < len(p.pending) && p.done[p.pending[n].Offset] {
			delete(p.done, p.pending[n].Offset)
			n++
		}
		if n == 0 {
			continue
		}

		ready = append(ready, p.pending[n-1])
		p.pending = append(p.pending[:0:0], p.pending[n:]...)
	}

	return ready
}
