package utils

import (
	"golang.org/x/sync/errgroup"
)

// ParallelMap 并发地对 items 逐个执行 fn，结果顺序与输入一致。workers <= 0 表示不限制并发数。
func ParallelMap[T any, R any](items []T, workers int, fn func(T) R) []R {
	results := make([]R, len(items))
	switch len(items) {
	case 0:
		return results
	case 1:
		results[0] = fn(items[0])
		return results
	}

	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i := range items {
		idx := i
		g.Go(func() error {
			results[idx] = fn(items[idx])
			return nil
		})
	}
	_ = g.Wait()
	return results
}
