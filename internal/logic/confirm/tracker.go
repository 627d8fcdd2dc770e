package confirm

import (
	"context"
	"time"

	"gov-txengine-sol/internal/logic/core"
	"gov-txengine-sol/internal/metrics"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/threading"
)

// Tracker 等待单笔交易的终态：push / pull / deadline 三者竞争，最先到达的决定结果。
//
// 状态机: Pending -> Confirmed | Rejected | TimedOut，终态不可再变。
// 所有 watcher 共享同一个截止 ctx，Track 返回前该 ctx 一定已被取消，订阅与定时器随之释放。
type Tracker struct {
	network    core.Network
	subscriber core.Subscriber // 可为 nil，此时只有 pull watcher
	opts       core.Options
}

func NewTracker(network core.Network, subscriber core.Subscriber, opts core.Options) *Tracker {
	return &Tracker{
		network:    network,
		subscriber: subscriber,
		opts:       opts.Normalize(),
	}
}

// Track 阻塞直到得到终态，每次调用恰好返回一个结果。
// companions 与 watcher 共享截止 ctx（典型用法是重复广播循环），终态产生后一并停止。
func (t *Tracker) Track(parent context.Context, tx *core.SignedTx, companions ...func(ctx context.Context)) core.ConfirmationResult {
	signature := tx.Signature().String()
	log := logx.WithContext(parent).WithFields(logx.Field("signature", signature))
	start := time.Now()

	ctx, cancel := context.WithTimeout(parent, t.opts.ConfirmTimeout)
	defer cancel()

	// 容量足够容纳所有 watcher 的结果，败者写入后直接退出，不会阻塞
	results := make(chan core.ConfirmationResult, 2)

	for _, companion := range companions {
		run := companion
		threading.GoSafe(func() { run(ctx) })
	}
	if t.subscriber != nil {
		threading.GoSafe(func() { t.watchPush(ctx, signature, results) })
	}
	threading.GoSafe(func() { t.watchPull(ctx, signature, results) })

	var result core.ConfirmationResult
	select {
	case result = <-results:
	case <-ctx.Done():
		cancel()
		select {
		case result = <-results:
		default:
			result = t.deadlineResult(parent, tx, signature)
		}
	}
	cancel()

	elapsed := time.Since(start)
	metrics.Outcomes.WithLabelValues(result.Outcome.String(), result.Source).Inc()
	metrics.ConfirmSeconds.WithLabelValues(result.Outcome.String()).Observe(elapsed.Seconds())

	switch result.Outcome {
	case core.OutcomeConfirmed:
		log.Infof("[Tracker] 交易已确认, slot: %d, 来源: %s, 耗时: %v", result.Slot, result.Source, elapsed)
	case core.OutcomeRejected:
		log.Errorf("[Tracker] 交易执行失败, 来源: %s, 错误: %s", result.Source, result.Detail)
	default:
		log.Errorf("[Tracker] 交易在 %v 内未确认, 诊断: %q", elapsed, result.Detail)
	}
	return result
}

func (t *Tracker) watchPush(ctx context.Context, signature string, results chan<- core.ConfirmationResult) {
	log := logx.WithContext(ctx).WithFields(logx.Field("signature", signature))

	notifications, err := t.subscriber.SubscribeSignature(ctx, signature)
	if err != nil {
		if ctx.Err() == nil {
			log.Errorf("[Tracker] 订阅签名失败，仅依赖轮询: %v", err)
		}
		return
	}

	select {
	case <-ctx.Done():
	case n, ok := <-notifications:
		if !ok {
			if ctx.Err() == nil {
				log.Infof("[Tracker] 订阅被提前关闭，仅依赖轮询")
			}
			return
		}
		deliver(ctx, results, resultFromNotification(signature, n))
	}
}

func (t *Tracker) watchPull(ctx context.Context, signature string, results chan<- core.ConfirmationResult) {
	log := logx.WithContext(ctx).WithFields(logx.Field("signature", signature))

	ticker := time.NewTicker(t.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		status, err := t.network.GetSignatureStatus(ctx, signature)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Debugf("[Tracker] 查询签名状态失败，继续轮询: %v", err)
			continue
		}
		if status == nil {
			log.Debugf("[Tracker] 节点尚未看到交易，继续轮询")
			continue
		}

		if result, ok := resultFromStatus(signature, status); ok {
			deliver(ctx, results, result)
			return
		}
	}
}

func (t *Tracker) deadlineResult(parent context.Context, tx *core.SignedTx, signature string) core.ConfirmationResult {
	result := core.ConfirmationResult{
		Signature: signature,
		Outcome:   core.OutcomeTimedOut,
		Source:    core.SourceDeadline,
	}
	if err := parent.Err(); err != nil {
		// 调用方主动取消，不再做诊断
		result.Detail = err.Error()
		return result
	}
	result.Detail = t.diagnose(parent, tx)
	return result
}

func deliver(ctx context.Context, results chan<- core.ConfirmationResult, result core.ConfirmationResult) {
	select {
	case results <- result:
	case <-ctx.Done():
	}
}

func resultFromNotification(signature string, n core.SignatureNotification) core.ConfirmationResult {
	if n.Err != "" {
		return core.ConfirmationResult{Signature: signature, Outcome: core.OutcomeRejected, Slot: n.Slot, Detail: n.Err, Source: core.SourcePush}
	}
	return core.ConfirmationResult{Signature: signature, Outcome: core.OutcomeConfirmed, Slot: n.Slot, Source: core.SourcePush}
}

// resultFromStatus 有确定的链上错误，或至少一个确认（含已 finalized）时返回终态
func resultFromStatus(signature string, status *core.SignatureStatus) (core.ConfirmationResult, bool) {
	if status.Err != "" {
		return core.ConfirmationResult{Signature: signature, Outcome: core.OutcomeRejected, Slot: status.Slot, Detail: status.Err, Source: core.SourcePull}, true
	}
	if status.Confirmations >= 1 || status.Finalized {
		return core.ConfirmationResult{Signature: signature, Outcome: core.OutcomeConfirmed, Slot: status.Slot, Source: core.SourcePull}, true
	}
	return core.ConfirmationResult{}, false
}
