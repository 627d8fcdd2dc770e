package progress

import (
	"context"
	"sync"
	"time"

	"gov-txengine-sol/internal/logic/core"
	"gov-txengine-sol/internal/mq"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/threading"
)

const (
	storeTimeout         = 2 * time.Second
	defaultFlushInterval = time.Second
)

type StatusStore interface {
	MarkTxStatus(ctx context.Context, signature string, record TxRecord) error
}

type EventPublisher interface {
	Publish(ctx context.Context, events []*mq.OutcomeEvent) error
}

// Journal 交易状态的旁路记录：Redis 状态同步写入，Kafka 事件缓冲后批量发送。
// 任何失败只记日志，不影响广播与确认。
type Journal struct {
	store     StatusStore    // 可为 nil
	publisher EventPublisher // 可为 nil
	buffer    *eventBuffer
	interval  time.Duration

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

var _ core.OutcomeSink = (*Journal)(nil)

func NewJournal(store StatusStore, publisher EventPublisher, flushInterval time.Duration) *Journal {
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}
	return &Journal{
		store:     store,
		publisher: publisher,
		buffer:    newEventBuffer(),
		interval:  flushInterval,
	}
}

// Start 启动后台 flush 循环；没有 publisher 时什么都不做
func (j *Journal) Start() {
	if j.publisher == nil || j.done != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel
	j.done = make(chan struct{})
	threading.GoSafe(func() {
		defer close(j.done)
		j.flushLoop(ctx)
	})
}

// Stop 停止 flush 循环并把剩余事件发送出去
func (j *Journal) Stop() {
	j.once.Do(func() {
		if j.cancel != nil {
			j.cancel()
			<-j.done
		}
		j.flush(context.Background())
	})
}

func (j *Journal) RecordPending(ctx context.Context, submissionID string, tx *core.SignedTx) {
	signature := tx.Signature().String()
	now := time.Now().UnixMilli()
	j.mark(ctx, signature, TxRecord{SubmissionID: submissionID, Status: TxPending, UpdatedAt: now})
	j.enqueue(&mq.OutcomeEvent{
		SubmissionID: submissionID,
		Signature:    signature,
		BatchIndex:   tx.BatchIndex,
		Index:        tx.Index,
		Outcome:      TxPending.String(),
		Timestamp:    now,
	})
}

func (j *Journal) RecordResult(ctx context.Context, submissionID string, tx *core.SignedTx, result core.ConfirmationResult) {
	now := time.Now().UnixMilli()
	j.mark(ctx, result.Signature, TxRecord{
		SubmissionID: submissionID,
		Status:       StatusFromOutcome(result.Outcome),
		Slot:         result.Slot,
		Detail:       result.Detail,
		UpdatedAt:    now,
	})
	j.enqueue(&mq.OutcomeEvent{
		SubmissionID: submissionID,
		Signature:    result.Signature,
		BatchIndex:   tx.BatchIndex,
		Index:        tx.Index,
		Outcome:      result.Outcome.String(),
		Slot:         result.Slot,
		Detail:       result.Detail,
		Source:       result.Source,
		Timestamp:    now,
	})
}

func (j *Journal) mark(ctx context.Context, signature string, record TxRecord) {
	if j.store == nil {
		return
	}
	// 调用方的 ctx 可能已经结束（例如截止时间到达），记录仍然要写
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	if err := j.store.MarkTxStatus(storeCtx, signature, record); err != nil {
		logx.WithContext(ctx).Errorf("[Journal] 写入交易状态失败 %s (%s): %v", signature, record.Status, err)
	}
}

func (j *Journal) enqueue(event *mq.OutcomeEvent) {
	if j.publisher == nil {
		return
	}
	j.buffer.Add(event)
}

func (j *Journal) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.flush(ctx)
		}
	}
}

func (j *Journal) flush(ctx context.Context) {
	if j.publisher == nil {
		return
	}
	events := j.buffer.Flush()
	if len(events) == 0 {
		return
	}
	// 打日志即可，buffer 已清空
	if err := j.publisher.Publish(context.WithoutCancel(ctx), events); err != nil {
		logx.Errorf("[Journal] 发送 %d 条状态事件失败: %v", len(events), err)
	}
}
