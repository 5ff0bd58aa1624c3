package oauth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type slowScript struct {
	calls atomic.Int32
	delay time.Duration
}

func (s *slowScript) Load(ctx context.Context) error {
	s.calls.Add(1)
	time.Sleep(s.delay)
	return nil
}

func TestLoader_ConcurrentEnsureLoadsOnce(t *testing.T) {
	script := &slowScript{delay: 20 * time.Millisecond}
	l := NewLoader("sdk", script)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Ensure(context.Background()))
		}()
	}
	wg.Wait()

	require.NoError(t, l.Ensure(context.Background()))
	assert.Equal(t, int32(1), script.calls.Load())
	assert.True(t, l.Loaded())
}

func TestLoader_FailureIsRetried(t *testing.T) {
	script := &mockScript{}
	script.On("Load", mock.Anything).Return(errors.New("blocked")).Once()
	script.On("Load", mock.Anything).Return(nil).Once()

	l := NewLoader("sdk", script)

	require.Error(t, l.Ensure(context.Background()))
	assert.False(t, l.Loaded())

	require.NoError(t, l.Ensure(context.Background()))
	require.NoError(t, l.Ensure(context.Background()))
	script.AssertNumberOfCalls(t, "Load", 2)
}

func TestLoader_Reset(t *testing.T) {
	script := &mockScript{}
	script.On("Load", mock.Anything).Return(nil)

	l := NewLoader("sdk", script)
	require.NoError(t, l.Ensure(context.Background()))
	l.Reset()
	assert.False(t, l.Loaded())
	require.NoError(t, l.Ensure(context.Background()))

	script.AssertNumberOfCalls(t, "Load", 2)
}
