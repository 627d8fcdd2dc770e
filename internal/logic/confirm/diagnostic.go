package confirm

import (
	"context"
	"strings"

	"gov-txengine-sol/internal/logic/core"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/threading"
)

// diagnose 超时后模拟执行一次，尽量给出比“超时”更具体的原因。耗时不超过 DiagnosticTimeout。
func (t *Tracker) diagnose(parent context.Context, tx *core.SignedTx) string {
	ctx, cancel := context.WithTimeout(parent, t.opts.DiagnosticTimeout)
	defer cancel()

	sim, err := callWithTimeout(ctx, func(ctx context.Context) (*core.SimulationResult, error) {
		return t.network.SimulateTransaction(ctx, tx.Tx)
	})
	if err != nil {
		logx.WithContext(parent).Infof("[Tracker] 超时诊断模拟失败 %s: %v", tx.Signature(), err)
		return ""
	}
	return DiagnosticFromSimulation(sim, t.opts.DiagnosticLogPrefix)
}

// DiagnosticFromSimulation 从后往前找第一条带 prefix 的程序日志；没有时返回模拟错误；都没有返回空串
func DiagnosticFromSimulation(sim *core.SimulationResult, prefix string) string {
	if sim == nil {
		return ""
	}
	for i := len(sim.Logs) - 1; i >= 0; i-- {
		if msg, ok := strings.CutPrefix(sim.Logs[i], prefix); ok {
			if msg = strings.TrimSpace(msg); msg != "" {
				return msg
			}
		}
	}
	return sim.Err
}

// callWithTimeout 即使 fn 不响应 ctx，也在 ctx 结束时返回
func callWithTimeout[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	done := make(chan struct {
		resp T
		err  error
	}, 1)

	threading.GoSafe(func() {
		resp, err := fn(ctx)
		done <- struct {
			resp T
			err  error
		}{resp, err}
	})

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case result := <-done:
		return result.resp, result.err
	}
}
