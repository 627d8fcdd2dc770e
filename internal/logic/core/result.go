package core

import "fmt"

// Outcome 交易的终态
type Outcome int

const (
	OutcomeConfirmed Outcome = iota + 1
	OutcomeRejected
	OutcomeTimedOut
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeRejected:
		return "rejected"
	case OutcomeTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// 终态来源，仅用于日志与指标
const (
	SourcePush     = "push"
	SourcePull     = "pull"
	SourceDeadline = "deadline"
)

// ConfirmationResult 每笔交易有且仅有一个
type ConfirmationResult struct {
	Signature string
	Outcome   Outcome
	Slot      uint64 // 仅 Confirmed 有效
	Detail    string // Rejected 的链上错误，或 TimedOut 的诊断信息（可能为空）
	Source    string
}

func (r ConfirmationResult) Succeeded() bool {
	return r.Outcome == OutcomeConfirmed
}

// Err 把失败的终态转换为错误分类中的对应错误，成功返回 nil
func (r ConfirmationResult) Err() error {
	switch r.Outcome {
	case OutcomeConfirmed:
		return nil
	case OutcomeRejected:
		return &OnChainError{Signature: r.Signature, Detail: r.Detail}
	case OutcomeTimedOut:
		return &TimeoutError{Signature: r.Signature, Diagnostic: r.Detail}
	default:
		return fmt.Errorf("unknown outcome %d for %s", r.Outcome, r.Signature)
	}
}
