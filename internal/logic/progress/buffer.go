package progress

import (
	"sync"

	"gov-txengine-sol/internal/mq"
)

// eventBuffer 暂存待发送的状态事件，由 flush 循环批量取走
type eventBuffer struct {
	mu     sync.Mutex
	buffer []*mq.OutcomeEvent
}

func newEventBuffer() *eventBuffer {
	return &eventBuffer{}
}

func (b *eventBuffer) Add(event *mq.OutcomeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffer = append(b.buffer, event)
}

func (b *eventBuffer) Flush() []*mq.OutcomeEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	flushed := b.buffer
	b.buffer = nil
	return flushed
}

func (b *eventBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffer)
}
