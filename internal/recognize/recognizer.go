package recognize

import (
	"context"
	"sync"
)

// Recognizer reads a product name and price from an image. Recognize returns
// immediately; deliver is invoked exactly once, possibly on another
// goroutine, with an empty Candidate when recognition fails.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, deliver func(Candidate))
}

// Func adapts a synchronous function to Recognizer.
type Func func(ctx context.Context, image []byte) Candidate

// Recognize runs f on a new goroutine.
func (f Func) Recognize(ctx context.Context, image []byte, deliver func(Candidate)) {
	deliver = once(deliver)
	go func() { deliver(f(ctx, image)) }()
}

// once guards deliver so later calls are dropped.
func once(deliver func(Candidate)) func(Candidate) {
	var o sync.Once
	return func(c Candidate) {
		o.Do(func() {
			if deliver != nil {
				deliver(c)
			}
		})
	}
}

// Await blocks until rec delivers or ctx is done.
func Await(ctx context.Context, rec Recognizer, image []byte) (Candidate, error) {
	ch := make(chan Candidate, 1)
	rec.Recognize(ctx, image, func(c Candidate) {
		select {
		case ch <- c:
		default:
		}
	})
	select {
	case c := <-ch:
		return c, nil
	case <-ctx.Done():
		return Candidate{}, ctx.Err()
	}
}
