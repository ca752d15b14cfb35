package provisioning

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignalCompletesOnce(t *testing.T) {
	var s Signal
	assert.False(t, s.Completed())

	assert.True(t, s.Complete())
	assert.True(t, s.Completed())

	assert.False(t, s.Complete())
	assert.True(t, s.Completed())
}

func TestSignalConcurrentComplete(t *testing.T) {
	var s Signal
	var winners atomic.Int32
	var wg sync.WaitGroup

	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Complete() {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
	assert.True(t, s.Completed())
}
