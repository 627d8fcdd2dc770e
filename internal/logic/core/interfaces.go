package core

import (
	"context"

	"github.com/blocto/solana-go-sdk/common"
	solTypes "github.com/blocto/solana-go-sdk/types"
)

// Network 引擎依赖的链上 RPC 能力，实现需要支持并发调用
type Network interface {
	SendRawTransaction(ctx context.Context, raw []byte) (string, error)
	// GetSignatureStatus 节点尚未见到该交易时返回 (nil, nil)
	GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error)
	RecentFeeSamples(ctx context.Context, accounts []common.PublicKey) ([]FeeSample, error)
	SimulateTransaction(ctx context.Context, tx solTypes.Transaction) (*SimulationResult, error)
	LatestCheckpoint(ctx context.Context, commitment Commitment) (Checkpoint, error)
}

// Subscriber 推送通道。返回的 channel 在 ctx 结束后关闭，订阅随之释放。
type Subscriber interface {
	SubscribeSignature(ctx context.Context, signature string) (<-chan SignatureNotification, error)
}

// Wallet 外部钱包：批量交互式签名，可能长时间阻塞等待用户确认
type Wallet interface {
	PublicKey() common.PublicKey
	SignAll(ctx context.Context, txs []solTypes.Transaction) ([]solTypes.Transaction, error)
}

// OutcomeSink 终态结果的旁路记录（日志库、消息队列等），失败不影响主流程
type OutcomeSink interface {
	RecordPending(ctx context.Context, submissionID string, tx *SignedTx)
	RecordResult(ctx context.Context, submissionID string, tx *SignedTx, result ConfirmationResult)
}
