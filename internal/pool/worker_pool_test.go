package pool

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWorkerPool(t *testing.T) {
	t.Run("执行全部任务", func(t *testing.T) {
		p := NewWorkerPool(3, 10, nil)
		p.Start(context.Background())

		var n atomic.Int32
		for i := 0; i < 20; i++ {
			assert.True(t, p.Submit(context.Background(), func() { n.Add(1) }))
		}
		p.Stop()

		assert.Equal(t, int32(20), n.Load())
	})

	t.Run("任务 panic 不影响后续任务", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		p := NewWorkerPool(1, 2, zap.New(core))
		p.Start(context.Background())

		var n atomic.Int32
		p.Submit(context.Background(), func() { panic("boom") })
		p.Submit(context.Background(), func() { n.Add(1) })
		p.Stop()

		assert.Equal(t, int32(1), n.Load())
		assert.Equal(t, 1, logs.FilterMessage("worker task panicked").Len())
	})

	t.Run("队列已满时 TrySubmit 返回 false", func(t *testing.T) {
		p := NewWorkerPool(1, 1, nil)
		assert.True(t, p.TrySubmit(func() {}))
		assert.False(t, p.TrySubmit(func() {}))
	})

	t.Run("ctx 取消时 Submit 返回 false", func(t *testing.T) {
		p := NewWorkerPool(1, 0, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.False(t, p.Submit(ctx, func() {}))
	})
}
