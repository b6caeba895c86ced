package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tomb "gopkg.in/tomb.v2"
)

func TestWorkerPool_ProcessesTasks(t *testing.T) {
	pool := NewWorkerPool(2)
	results := make(chan int, 3)

	var tm tomb.Tomb
	go pool.Setup(&tm, func(_ *tomb.Tomb, task any) error {
		results <- task.(int)
		return nil
	})

	pool.AddTask(1)
	pool.AddTask(2)
	pool.AddTask(3)

	seen := map[int]bool{}
	for i := 0; i < 3; i++ {
		select {
		case n := <-results:
			seen[n] = true
		case <-time.After(2 * time.Second):
			t.Fatal("task not processed")
		}
	}
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true}, seen)

	tm.Kill(nil)
	assert.NoError(t, tm.Wait())
}

func TestWorkerPool_ErrorKillsTomb(t *testing.T) {
	pool := NewWorkerPool(1)
	workErr := errors.New("bad task")

	var tm tomb.Tomb
	go pool.Setup(&tm, func(_ *tomb.Tomb, task any) error {
		return workErr
	})

	pool.AddTask(struct{}{})

	select {
	case <-tm.Dead():
	case <-time.After(2 * time.Second):
		t.Fatal("tomb did not die")
	}
	require.ErrorIs(t, tm.Wait(), workErr)
}
