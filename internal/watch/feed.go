package watch

import (
	"encoding/json"
	"log/slog"
	"sync"

	"dex_watch/internal/kvstore"
)

// Feed is a typed view over a kvstore subscription. Every value received is
// the complete new state of the key.
type Feed[T any] struct {
	sub  *kvstore.Subscription
	ch   chan T
	once sync.Once
	done chan struct{}
}

func newFeed[T any](sub *kvstore.Subscription, decode func(json.RawMessage) (T, error)) *Feed[T] {
	f := &Feed[T]{sub: sub, ch: make(chan T), done: make(chan struct{})}
	go func() {
		defer close(f.ch)
		for change := range sub.C() {
			v, err := decode(change.NewValue)
			if err != nil {
				slog.Warn("Dropping undecodable change",
					slog.String("namespace", string(change.Namespace)),
					slog.String("key", change.Key),
					slog.Any("error", err))
				continue
			}
			select {
			case f.ch <- v:
			case <-f.done:
				return
			}
		}
	}()
	return f
}

// C delivers new values until Close.
func (f *Feed[T]) C() <-chan T {
	return f.ch
}

// Close unsubscribes. Safe to call more than once.
func (f *Feed[T]) Close() {
	f.once.Do(func() {
		close(f.done)
		f.sub.Close()
	})
}
