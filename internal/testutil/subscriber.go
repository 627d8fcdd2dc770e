package testutil

import (
	"context"
	"sync"

	"gov-txengine-sol/internal/logic/core"
)

// FakeSubscriber 内存中的推送通道。OnSubscribe 可在订阅建立时直接安排一次通知。
type FakeSubscriber struct {
	mu sync.Mutex

	Err         error
	OnSubscribe func(signature string) *core.SignatureNotification

	subs       map[string][]chan core.SignatureNotification
	subscribed int
	released   int
}

var _ core.Subscriber = (*FakeSubscriber)(nil)

func NewFakeSubscriber() *FakeSubscriber {
	return &FakeSubscriber{subs: make(map[string][]chan core.SignatureNotification)}
}

func (s *FakeSubscriber) SubscribeSignature(ctx context.Context, signature string) (<-chan core.SignatureNotification, error) {
	s.mu.Lock()
	if s.Err != nil {
		s.mu.Unlock()
		return nil, s.Err
	}
	ch := make(chan core.SignatureNotification, 1)
	s.subs[signature] = append(s.subs[signature], ch)
	s.subscribed++
	onSubscribe := s.OnSubscribe
	s.mu.Unlock()

	if onSubscribe != nil {
		if n := onSubscribe(signature); n != nil {
			s.Notify(signature, *n)
		}
	}

	go func() {
		<-ctx.Done()
		s.release(signature, ch)
	}()
	return ch, nil
}

// Notify 向某签名的所有订阅者推送一次通知（非阻塞）
func (s *FakeSubscriber) Notify(signature string, n core.SignatureNotification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs[signature] {
		select {
		case ch <- n:
		default:
		}
	}
}

func (s *FakeSubscriber) release(signature string, ch chan core.SignatureNotification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.subs[signature]
	for i, c := range list {
		if c == ch {
			s.subs[signature] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(s.subs[signature]) == 0 {
		delete(s.subs, signature)
	}
	close(ch)
	s.released++
}

// Active 当前仍未释放的订阅数
func (s *FakeSubscriber) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribed - s.released
}

func (s *FakeSubscriber) Subscribed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribed
}
