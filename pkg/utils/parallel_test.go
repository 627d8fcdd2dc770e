package utils

import (
	"context"
	"math/rand"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

// 为了测试上下文取消而定义的任务类型
type TestTaskWithContext struct {
	ID  int
	Ctx context.Context
}

func TestParallelMap(t *testing.T) {
	// 测试空输入
	t.Run("empty input", func(t *testing.T) {
		var emptyInput []int
		result := ParallelMap(emptyInput, 4, func(i int) int {
			return i * 2
		})
		if len(result) != 0 {
			t.Errorf("expected empty result, got %v", result)
		}
	})

	// 测试单元素输入 - 应该直接处理，不使用并发
	t.Run("single input", func(t *testing.T) {
		input := []int{42}
		result := ParallelMap(input, 4, func(i int) int {
			return i * 2
		})
		if len(result) != 1 || result[0] != 84 {
			t.Errorf("expected [84], got %v", result)
		}
	})

	// 测试多元素输入 - 确保顺序正确
	t.Run("multiple inputs with order", func(t *testing.T) {
		input := []int{1, 2, 3, 4, 5}
		expected := []int{2, 4, 6, 8, 10}

		result := ParallelMap(input, 3, func(i int) int {
			// 添加随机延迟，测试顺序保持
			time.Sleep(time.Duration(rand.Intn(10)) * time.Millisecond)
			return i * 2
		})

		if !reflect.DeepEqual(result, expected) {
			t.Errorf("expected %v, got %v", expected, result)
		}
	})

	// 测试并发上限
	t.Run("concurrency limit", func(t *testing.T) {
		input := make([]int, 40)
		for i := range input {
			input[i] = i
		}

		var maxConcurrent int32
		var currentConcurrent int32

		ParallelMap(input, 5, func(i int) int {
			current := atomic.AddInt32(&currentConcurrent, 1)
			for {
				max := atomic.LoadInt32(&maxConcurrent)
				if current <= max || atomic.CompareAndSwapInt32(&maxConcurrent, max, current) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&currentConcurrent, -1)
			return i
		})

		if maxConcurrent < 2 || maxConcurrent > 5 {
			t.Errorf("expected max concurrent between 2-5, got %d", maxConcurrent)
		}
	})

	// workers <= 0 时全部同时执行：每个任务都等到其余任务启动后才返回
	t.Run("unlimited workers", func(t *testing.T) {
		const n = 8
		var started int32
		input := make([]int, n)

		done := make(chan []bool, 1)
		go func() {
			done <- ParallelMap(input, 0, func(int) bool {
				atomic.AddInt32(&started, 1)
				deadline := time.Now().Add(time.Second)
				for atomic.LoadInt32(&started) < n && time.Now().Before(deadline) {
					time.Sleep(time.Millisecond)
				}
				return atomic.LoadInt32(&started) == n
			})
		}()

		for _, ok := range <-done {
			if !ok {
				t.Fatalf("expected all %d tasks to run concurrently", n)
			}
		}
	})

	// 测试带有上下文的任务：ParallelMap 不感知 ctx，取消由任务自己处理
	t.Run("tasks with context cancellation", func(t *testing.T) {
		parentCtx, parentCancel := context.WithCancel(context.Background())
		defer parentCancel()

		const taskCount = 20
		tasks := make([]TestTaskWithContext, taskCount)
		for i := range tasks {
			tasks[i] = TestTaskWithContext{ID: i, Ctx: parentCtx}
		}
		parentCancel()

		results := ParallelMap(tasks, 4, func(task TestTaskWithContext) int {
			if task.Ctx.Err() != nil {
				return -1
			}
			return task.ID
		})

		for i, v := range results {
			if v != -1 {
				t.Errorf("task %d should observe cancellation, got %d", i, v)
			}
		}
	})
}
