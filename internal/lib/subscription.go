package lib

import "go.uber.org/atomic"

// Subscription wraps a producer goroutine writing into a sink channel.
// Unsubscribe signals the producer via the quit channel and is safe to call
// multiple times
type Subscription struct {
	sink     <-chan interface{}
	quit     chan struct{}
	err      chan error
	finished *atomic.Bool
}

func NewSubscription(producer func(quit <-chan struct{}) error, sink <-chan interface{}) *Subscription {
	s := &Subscription{
		sink:     sink,
		quit:     make(chan struct{}),
		err:      make(chan error, 1),
		finished: atomic.NewBool(false),
	}

	go func() {
		err := producer(s.quit)
		if err != nil {
			s.err <- err
		}
		close(s.err)
	}()

	return s
}

func (s *Subscription) Events() <-chan interface{} {
	return s.sink
}

func (s *Subscription) Err() <-chan error {
	return s.err
}

func (s *Subscription) Unsubscribe() {
	if s.finished.CAS(false, true) {
		close(s.quit)
	}
}
