package wpool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tomb "gopkg.in/tomb.v2"
)

func TestPool_RunsEnqueuedTasks(t *testing.T) {
	pool := New(2)
	seen := make(chan int, 4)

	var tb tomb.Tomb
	tb.Go(func() error {
		pool.Setup(&tb, func(t *tomb.Tomb, task any) error {
			seen <- task.(int)
			return nil
		})
		return nil
	})

	pool.AddTask(1)
	pool.AddTask(2)
	pool.AddTask(3)

	got := make(map[int]bool)
	for i := 0; i < 3; i++ {
		select {
		case v := <-seen:
			got[v] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for task to run")
		}
	}
	assert.True(t, got[1])
	assert.True(t, got[2])
	assert.True(t, got[3])

	tb.Kill(nil)
	require.NoError(t, tb.Wait())
}

func TestPool_WorkerErrorKillsTomb(t *testing.T) {
	pool := New(1)
	boom := assert.AnError

	var tb tomb.Tomb
	tb.Go(func() error {
		pool.Setup(&tb, func(t *tomb.Tomb, task any) error {
			return boom
		})
		return nil
	})

	pool.AddTask(1)

	select {
	case <-tb.Dead():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for tomb to die after worker error")
	}
	assert.ErrorIs(t, tb.Err(), boom)
}
