// Package engine 对外提供交易广播与确认引擎：按模式提交多批交易，每笔交易恰好回调一次。
package engine

import (
	"context"

	"gov-txengine-sol/internal/config"
	"gov-txengine-sol/internal/logic/core"
	"gov-txengine-sol/internal/logic/sequence"
	"gov-txengine-sol/internal/svc"

	"github.com/blocto/solana-go-sdk/common"
)

type (
	Config      = config.Config
	Options     = core.Options
	Instruction = core.Instruction
	Signer      = core.Signer
	SignerSet   = core.SignerSet
	TxRequest   = core.TxRequest
	Batch       = core.Batch
	Wallet      = core.Wallet
	Network     = core.Network
	Subscriber  = core.Subscriber
	Outcome     = core.Outcome

	ConfirmationResult = core.ConfirmationResult
	ConfigurationError = core.ConfigurationError
	SubmissionError    = core.SubmissionError
	OnChainError       = core.OnChainError
	TimeoutError       = core.TimeoutError

	Mode      = sequence.Mode
	Callbacks = sequence.Callbacks
	Report    = sequence.Report
	TxOutcome = sequence.TxOutcome
)

const (
	ModeParallel      = sequence.ModeParallel
	ModeSequential    = sequence.ModeSequential
	ModeStopOnFailure = sequence.ModeStopOnFailure
)

var (
	ErrConfiguration = core.ErrConfiguration
	ErrSubmission    = core.ErrSubmission
	ErrOnChain       = core.ErrOnChain
	ErrTimedOut      = core.ErrTimedOut

	ParseMode      = sequence.ParseMode
	LocalSigner    = core.LocalSigner
	ExternalSigner = core.ExternalSigner
)

// Engine 持有 RPC、推送通道与结果记录，可被多个 goroutine 共享
type Engine struct {
	sc *svc.ServiceContext
}

// New w 为 nil 时使用 c.KeypairPath 指定的本地钱包
func New(c Config, w Wallet) (*Engine, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	sc, err := svc.NewServiceContext(c, w)
	if err != nil {
		return nil, err
	}
	sc.Start()
	return &Engine{sc: sc}, nil
}

// NewWithNetwork 使用自定义的 Network / Subscriber，不启动任何后台资源
func NewWithNetwork(network Network, subscriber Subscriber, w Wallet, opts Options) *Engine {
	return &Engine{sc: &svc.ServiceContext{
		Wallet:      w,
		Subscriber:  subscriber,
		Coordinator: sequence.NewCoordinator(network, subscriber, w, opts),
	}}
}

// Submit 组装、签名并按 mode 广播所有批次。签名完成前的错误同步返回且不触发回调；
// 之后每笔交易的终态通过 cb 和 Report 给出。
func (e *Engine) Submit(ctx context.Context, batches []Batch, mode Mode, cb Callbacks) (*Report, error) {
	return e.sc.Coordinator.Submit(ctx, batches, mode, cb)
}

// EstimateFee 根据最近的优先费样本估算 micro-lamports / CU，失败时返回默认值
func (e *Engine) EstimateFee(ctx context.Context, accounts ...common.PublicKey) uint64 {
	return e.sc.Coordinator.EstimateFee(ctx, accounts...)
}

func (e *Engine) Wallet() Wallet {
	return e.sc.Wallet
}

// Close 发送剩余的结果事件并释放连接
func (e *Engine) Close() {
	e.sc.Close()
}
