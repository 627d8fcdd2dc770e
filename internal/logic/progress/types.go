package progress

import "gov-txengine-sol/internal/logic/core"

// TxStatus 表示交易在 Redis 中记录的状态
type TxStatus int

const (
	TxUnknown   TxStatus = 0 // Redis 不存在
	TxPending   TxStatus = 1 // 🕒 已签名、广播中
	TxConfirmed TxStatus = 2 // ✅ 已确认
	TxRejected  TxStatus = 3 // ❌ 链上执行失败
	TxTimedOut  TxStatus = 4 // ⏳ 截止时间内未确认，结果未知
)

func (s TxStatus) String() string {
	switch s {
	case TxPending:
		return "pending"
	case TxConfirmed:
		return "confirmed"
	case TxRejected:
		return "rejected"
	case TxTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

func StatusFromOutcome(outcome core.Outcome) TxStatus {
	switch outcome {
	case core.OutcomeConfirmed:
		return TxConfirmed
	case core.OutcomeRejected:
		return TxRejected
	case core.OutcomeTimedOut:
		return TxTimedOut
	default:
		return TxUnknown
	}
}

// TxRecord Redis 中保存的一条交易记录
type TxRecord struct {
	SubmissionID string   `json:"submission_id"`
	Status       TxStatus `json:"status"`
	Slot         uint64   `json:"slot,omitempty"`
	Detail       string   `json:"detail,omitempty"`
	UpdatedAt    int64    `json:"updated_at"` // unix 毫秒
}
