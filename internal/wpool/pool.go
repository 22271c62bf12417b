// Package wpool is a small tomb-supervised worker pool for handling
// accepted connections off the gateway's accept loop.
package wpool

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

// taskChanSize bounds how many accepted connections can queue for a
// free worker before AddTask blocks the accept loop.
const taskChanSize = 100

// Work is what a worker runs for each task handed to the pool.
type Work func(t *tomb.Tomb, task any) error

// Pool is a fixed-size set of long-lived goroutines pulling tasks off
// a shared channel, supervised by a tomb.Tomb so the whole pool tears
// down cleanly when the tomb starts dying.
type Pool struct {
	n     int
	tasks chan any
}

// New returns a Pool with size workers, not yet started.
func New(size int) *Pool {
	return &Pool{
		tasks: make(chan any, taskChanSize),
		n:     size,
	}
}

// AddTask enqueues task for the next free worker, blocking if the
// queue is full.
func (p *Pool) AddTask(task any) {
	p.tasks <- task
}

// Setup spawns the pool's n workers under t and returns. Each worker
// blocks on the task channel until t starts dying; a worker returning
// an error kills the tomb, tearing the whole pool down.
func (p *Pool) Setup(t *tomb.Tomb, work Work) {
	log.Info().Int("workers", p.n).Msg("wpool: starting workers")
	for i := 0; i < p.n; i++ {
		t.Go(func() error {
			return p.worker(t, work)
		})
	}
}

// worker loops pulling one task at a time until the tomb dies or work
// fails.
func (p *Pool) worker(t *tomb.Tomb, work Work) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-p.tasks:
			if err := work(t, task); err != nil {
				log.Error().Err(err).Msg("wpool: worker exiting on error")
				return err
			}
		}
	}
}
