package reactor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
)

func TestLoop_SerializesEvents(t *testing.T) {
	loop := NewLoop()
	go func() { _ = loop.Run(context.Background()) }()
	defer loop.Close()

	// A counter without its own locking stays consistent
	// because all increments run on the loop goroutine.
	counter := 0
	group := errgroup.Group{}
	for i := 0; i < 8; i++ {
		group.Go(func() error {
			for j := 0; j < 100; j++ {
				if err := loop.Do(func() error {
					counter++
					return nil
				}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	assert.Nil(t, group.Wait())
	assert.Equal(t, 800, counter)
}

func TestLoop_DoAfterClose(t *testing.T) {
	loop := NewLoop()
	loop.Close()
	err := loop.Do(func() error { return nil })
	assert.Equal(t, LoopClosed, err)
	assert.True(t, loop.Closed())
}

func TestLoop_RunStopsOnClose(t *testing.T) {
	loop := NewLoop()
	result := make(chan error, 1)
	go func() { result <- loop.Run(context.Background()) }()
	loop.Close()
	assert.Nil(t, <-result)
}

func TestLoop_RunStopsOnContext(t *testing.T) {
	loop := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- loop.Run(ctx) }()
	cancel()
	assert.Equal(t, context.Canceled, <-result)
}

func TestLoop_Schedule(t *testing.T) {
	loop := NewLoop()
	go func() { _ = loop.Run(context.Background()) }()
	defer loop.Close()

	fired := make(chan struct{})
	loop.Schedule(time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("scheduled event did not fire")
	}
}

func TestLoop_ScheduleCancel(t *testing.T) {
	loop := NewLoop()
	go func() { _ = loop.Run(context.Background()) }()
	defer loop.Close()

	fired := false
	timer := loop.Schedule(50*time.Millisecond, func() { fired = true })
	timer.Cancel()
	time.Sleep(100 * time.Millisecond)
	assert.Nil(t, loop.Do(func() error { return nil })) // drain
	assert.False(t, fired)
}
