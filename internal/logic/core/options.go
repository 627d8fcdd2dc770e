package core

import "time"

// Commitment 确认级别，与 Solana RPC 的 commitment 参数一致
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

const (
	DefaultConfirmTimeout        = 30 * time.Second
	DefaultPollInterval          = 2 * time.Second
	DefaultResubmitInterval      = 1 * time.Second
	DefaultResubmitErrorInterval = 2 * time.Second
	DefaultPriorityFee           = uint64(10_000)    // micro-lamports / CU
	DefaultMaxPriorityFee        = uint64(1_000_000) // micro-lamports / CU
	DefaultDiagnosticLogPrefix   = "Program log: "
)

// Options 引擎的全部策略参数，构造 FeeEstimator / Broadcaster / Tracker 时显式传入
type Options struct {
	ConfirmTimeout        time.Duration // 单笔交易从广播到放弃观察的最长时间
	PollInterval          time.Duration // pull watcher 轮询间隔
	ResubmitInterval      time.Duration // 重复广播间隔
	ResubmitErrorInterval time.Duration // 广播失败后的（较慢）重试间隔
	DiagnosticTimeout     time.Duration // 超时后模拟执行的最长耗时，0 表示与 PollInterval 相同

	DefaultPriorityFee uint64
	MaxPriorityFee     uint64

	Commitment     Commitment
	SkipPreflight  bool
	SendMaxRetries uint64 // 节点侧的传输层重试次数（sendTransaction.maxRetries）

	// StrictSignerCoverage 为 true 时，本地签名者未出现在任何指令的签名账户中直接报错，
	// 而不是把它追加到每条指令上。
	StrictSignerCoverage bool
	DiagnosticLogPrefix  string
}

func DefaultOptions() Options {
	return Options{
		ConfirmTimeout:        DefaultConfirmTimeout,
		PollInterval:          DefaultPollInterval,
		ResubmitInterval:      DefaultResubmitInterval,
		ResubmitErrorInterval: DefaultResubmitErrorInterval,
		DefaultPriorityFee:    DefaultPriorityFee,
		MaxPriorityFee:        DefaultMaxPriorityFee,
		Commitment:            CommitmentConfirmed,
		DiagnosticLogPrefix:   DefaultDiagnosticLogPrefix,
	}
}

// Normalize 用默认值补齐未设置的字段
func (o Options) Normalize() Options {
	def := DefaultOptions()
	if o.ConfirmTimeout <= 0 {
		o.ConfirmTimeout = def.ConfirmTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = def.PollInterval
	}
	if o.ResubmitInterval <= 0 {
		o.ResubmitInterval = def.ResubmitInterval
	}
	if o.ResubmitErrorInterval <= 0 {
		o.ResubmitErrorInterval = def.ResubmitErrorInterval
	}
	if o.DiagnosticTimeout <= 0 {
		o.DiagnosticTimeout = o.PollInterval
	}
	if o.DefaultPriorityFee == 0 {
		o.DefaultPriorityFee = def.DefaultPriorityFee
	}
	if o.MaxPriorityFee == 0 {
		o.MaxPriorityFee = def.MaxPriorityFee
	}
	if o.Commitment == "" {
		o.Commitment = def.Commitment
	}
	if o.DiagnosticLogPrefix == "" {
		o.DiagnosticLogPrefix = def.DiagnosticLogPrefix
	}
	return o
}
