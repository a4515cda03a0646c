package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/destek_backend/config"
)

func TestDispatcher_RunsTasks(t *testing.T) {
	d := New(Config{Workers: 2, QueueSize: 10})
	var n atomic.Int32
	for i := 0; i < 5; i++ {
		require.True(t, d.Submit("count", func(context.Context) error {
			n.Add(1)
			return nil
		}))
	}
	require.NoError(t, d.Close(context.Background()))
	assert.EqualValues(t, 5, n.Load())
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	d := New(Config{Workers: 1, QueueSize: 1})
	release := make(chan struct{})
	started := make(chan struct{})

	require.True(t, d.Submit("block", func(context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.True(t, d.Submit("queued", func(context.Context) error { return nil }))

	assert.False(t, d.Submit("overflow", func(context.Context) error { return nil }))
	assert.EqualValues(t, 1, d.Dropped())

	close(release)
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_FailuresAreSwallowed(t *testing.T) {
	d := New(Config{Workers: 1, QueueSize: 4})
	d.Submit("fails", func(context.Context) error { return errors.New("boom") })
	d.Submit("panics", func(context.Context) error { panic("kaboom") })

	var ran atomic.Bool
	d.Submit("after", func(context.Context) error {
		ran.Store(true)
		return nil
	})
	require.NoError(t, d.Close(context.Background()))

	assert.True(t, ran.Load(), "worker must survive failing tasks")
	assert.EqualValues(t, 2, d.Failed())
}

func TestDispatcher_TaskTimeout(t *testing.T) {
	d := New(Config{Workers: 1, QueueSize: 1, TaskTimeout: 20 * time.Millisecond})
	errc := make(chan error, 1)
	d.Submit("slow", func(ctx context.Context) error {
		<-ctx.Done()
		errc <- ctx.Err()
		return ctx.Err()
	})
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("task context was not cancelled")
	}
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_SubmitAfterClose(t *testing.T) {
	d := New(DefaultConfig())
	require.NoError(t, d.Close(context.Background()))
	require.NoError(t, d.Close(context.Background()))
	assert.False(t, d.Submit("late", func(context.Context) error { return nil }))
}

func TestFromCentralConfig(t *testing.T) {
	got := FromCentralConfig(config.DispatchConfig{Workers: 8, TaskTimeoutSeconds: 3})
	assert.Equal(t, 8, got.Workers)
	assert.Equal(t, 256, got.QueueSize)
	assert.Equal(t, 3*time.Second, got.TaskTimeout)
}

func TestInline_SwallowsFailures(t *testing.T) {
	var s Submitter = Inline{}
	ran := false
	assert.True(t, s.Submit("ok", func(context.Context) error { ran = true; return nil }))
	assert.True(t, ran)
	assert.True(t, s.Submit("fails", func(context.Context) error { return errors.New("boom") }))
	assert.True(t, s.Submit("panics", func(context.Context) error { panic("x") }))
}
