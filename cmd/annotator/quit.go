package main

import "sync"

// quitter is closed by whichever of the signal handler and the tray asks
// first. Later requests are ignored.
type quitter struct {
	once sync.Once
	ch   chan struct{}
}

func newQuitter() *quitter {
	return &quitter{ch: make(chan struct{})}
}

func (q *quitter) Quit() {
	q.once.Do(func() { close(q.ch) })
}

func (q *quitter) Done() <-chan struct{} {
	return q.ch
}
