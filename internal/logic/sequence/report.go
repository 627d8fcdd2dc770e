package sequence

import (
	"sync"

	"gov-txengine-sol/internal/logic/core"
)

// Callbacks 每笔已提交的交易恰好触发其中一个，且只触发一次。回调是串行调用的。
type Callbacks struct {
	OnSuccess func(signature string, index, total int)
	OnFailure func(err error, index, total int)
}

// TxOutcome 单笔交易在本次提交中的结局
type TxOutcome struct {
	BatchIndex int
	Index      int // 在所有非空交易中的序号，与回调中的 index 一致
	Signature  string
	Submitted  bool // StopOnFailure 中止后的交易为 false
	Result     core.ConfirmationResult
}

func (o TxOutcome) Err() error {
	if !o.Submitted {
		return nil
	}
	return o.Result.Err()
}

type Report struct {
	SubmissionID string
	Mode         Mode
	PriorityFee  uint64
	Total        int
	Outcomes     []TxOutcome
	// FailedBatch 第一个失败批次的序号，没有失败为 -1
	FailedBatch int
	// Stopped StopOnFailure 因失败提前结束
	Stopped bool
}

func (r *Report) Succeeded() bool {
	if r.Stopped {
		return false
	}
	for _, o := range r.Outcomes {
		if !o.Submitted || !o.Result.Succeeded() {
			return false
		}
	}
	return true
}

func (r *Report) Counts() (confirmed, failed, notSubmitted int) {
	for _, o := range r.Outcomes {
		switch {
		case !o.Submitted:
			notSubmitted++
		case o.Result.Succeeded():
			confirmed++
		default:
			failed++
		}
	}
	return
}

// notifier 按序号保证回调只触发一次，并串行化所有回调
type notifier struct {
	mu    sync.Mutex
	cb    Callbacks
	total int
	fired []bool
}

func newNotifier(cb Callbacks, total int) *notifier {
	return &notifier{cb: cb, total: total, fired: make([]bool, total)}
}

func (n *notifier) notify(index int, result core.ConfirmationResult) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if index < 0 || index >= n.total || n.fired[index] {
		return false
	}
	n.fired[index] = true

	if result.Succeeded() {
		if n.cb.OnSuccess != nil {
			n.cb.OnSuccess(result.Signature, index, n.total)
		}
		return true
	}
	if n.cb.OnFailure != nil {
		n.cb.OnFailure(result.Err(), index, n.total)
	}
	return true
}
