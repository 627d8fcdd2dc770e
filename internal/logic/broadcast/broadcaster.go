package broadcast

import (
	"context"
	"fmt"
	"time"

	"gov-txengine-sol/internal/logic/core"
	"gov-txengine-sol/internal/metrics"

	"github.com/zeromicro/go-zero/core/logx"
)

// Payload 序列化一次后的交易，重复广播时复用同一份字节
type Payload struct {
	Signature string
	Raw       []byte
}

// Broadcaster 负责把签好名的交易送到节点。只负责“送达”，不产生终态结果。
type Broadcaster struct {
	network       core.Network
	interval      time.Duration
	errorInterval time.Duration
}

func NewBroadcaster(network core.Network, opts core.Options) *Broadcaster {
	opts = opts.Normalize()
	return &Broadcaster{
		network:       network,
		interval:      opts.ResubmitInterval,
		errorInterval: opts.ResubmitErrorInterval,
	}
}

// Prepare 序列化交易。还有签名槽位为空时返回 ConfigurationError。
func (b *Broadcaster) Prepare(tx *core.SignedTx) (*Payload, error) {
	if missing := core.MissingSigners(tx.Tx); len(missing) > 0 {
		return nil, core.NewConfigurationError("transaction is missing %d signature(s), first: %s", len(missing), missing[0].ToBase58())
	}
	raw, err := tx.Tx.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serialize transaction: %w", err)
	}
	return &Payload{Signature: tx.Signature().String(), Raw: raw}, nil
}

// Submit 提交一次，传输层错误统一包装成 SubmissionError
func (b *Broadcaster) Submit(ctx context.Context, payload *Payload) error {
	_, err := b.network.SendRawTransaction(ctx, payload.Raw)
	if err != nil {
		metrics.Submissions.WithLabelValues("error").Inc()
		return &core.SubmissionError{Err: err}
	}
	metrics.Submissions.WithLabelValues("ok").Inc()
	return nil
}

// Run 立即提交一次，之后按固定间隔重复提交同一份字节，直到 ctx 结束。
// 提交失败时改用较慢的间隔。ctx 由确认流程持有，终态产生或截止时间到达都会让它结束。
func (b *Broadcaster) Run(ctx context.Context, payload *Payload) {
	log := logx.WithContext(ctx).WithFields(logx.Field("signature", payload.Signature))

	attempt := 0
	for {
		attempt++
		wait := b.interval
		if err := b.Submit(ctx, payload); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Errorf("[Broadcaster] 第 %d 次提交失败，%v 后重试: %v", attempt, b.errorInterval, err)
			wait = b.errorInterval
		} else if attempt == 1 {
			log.Infof("[Broadcaster] 已提交")
		} else {
			log.Debugf("[Broadcaster] 第 %d 次重复提交", attempt)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Debugf("[Broadcaster] 停止重复提交，共提交 %d 次", attempt)
			return
		case <-timer.C:
		}
	}
}
