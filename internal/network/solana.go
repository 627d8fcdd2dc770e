package network

import (
	"context"
	"encoding/base64"
	"fmt"
	"runtime/debug"
	"time"

	"gov-txengine-sol/internal/logic/core"
	"gov-txengine-sol/pkg/logger"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/rpc"
	solTypes "github.com/blocto/solana-go-sdk/types"
)

const defaultCallTimeout = 10 * time.Second

// getRecentPrioritizationFees 最多接受 128 个账户
const maxFeeAccounts = 128

type SolanaOption struct {
	Endpoint       string
	Timeout        time.Duration // 单次调用超时
	Commitment     core.Commitment
	SkipPreflight  bool
	SendMaxRetries uint64
}

// SolanaNetwork 基于 JSON-RPC 的 core.Network 实现，可并发使用
type SolanaNetwork struct {
	client         *client.Client
	timeout        time.Duration
	commitment     core.Commitment
	skipPreflight  bool
	sendMaxRetries uint64
}

var _ core.Network = (*SolanaNetwork)(nil)

func NewSolanaNetwork(opt SolanaOption) (*SolanaNetwork, error) {
	if opt.Endpoint == "" {
		return nil, core.NewConfigurationError("rpc endpoint is empty")
	}
	c := client.NewClient(opt.Endpoint)
	if c == nil {
		return nil, fmt.Errorf("rpc client init failed")
	}
	if opt.Timeout <= 0 {
		opt.Timeout = defaultCallTimeout
	}
	if opt.Commitment == "" {
		opt.Commitment = core.CommitmentConfirmed
	}
	return &SolanaNetwork{
		client:         c,
		timeout:        opt.Timeout,
		commitment:     opt.Commitment,
		skipPreflight:  opt.SkipPreflight,
		sendMaxRetries: opt.SendMaxRetries,
	}, nil
}

func (n *SolanaNetwork) SendRawTransaction(ctx context.Context, raw []byte) (string, error) {
	cfg := map[string]any{
		"encoding":            "base64",
		"skipPreflight":       n.skipPreflight,
		"preflightCommitment": string(n.commitment),
	}
	if n.sendMaxRetries > 0 {
		cfg["maxRetries"] = n.sendMaxRetries
	}

	var signature string
	err := n.call(ctx, "sendTransaction", &signature, base64.StdEncoding.EncodeToString(raw), cfg)
	if err != nil {
		return "", err
	}
	return signature, nil
}

func (n *SolanaNetwork) GetSignatureStatus(ctx context.Context, signature string) (status *core.SignatureStatus, err error) {
	defer n.recoverCall("getSignatureStatuses", &err)

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	res, err := n.client.GetSignatureStatus(ctx, signature)
	if err != nil {
		return nil, fmt.Errorf("getSignatureStatuses: %w", err)
	}
	return convertSignatureStatus(res), nil
}

func convertSignatureStatus(res *rpc.SignatureStatus) *core.SignatureStatus {
	if res == nil {
		return nil
	}
	status := &core.SignatureStatus{
		Slot: res.Slot,
		Err:  errorDetail(res.Err),
	}
	if res.Confirmations != nil {
		status.Confirmations = *res.Confirmations
	}
	if res.ConfirmationStatus != nil && *res.ConfirmationStatus == rpc.CommitmentFinalized {
		status.Finalized = true
	}
	// 已 root 的交易 confirmations 为 null
	if res.Confirmations == nil && res.ConfirmationStatus == nil {
		status.Finalized = true
	}
	return status
}

func (n *SolanaNetwork) RecentFeeSamples(ctx context.Context, accounts []common.PublicKey) ([]core.FeeSample, error) {
	if len(accounts) > maxFeeAccounts {
		accounts = accounts[:maxFeeAccounts]
	}
	addresses := make([]string, 0, len(accounts))
	for _, a := range accounts {
		addresses = append(addresses, a.ToBase58())
	}

	var fees []struct {
		Slot              uint64 `json:"slot"`
		PrioritizationFee uint64 `json:"prioritizationFee"`
	}
	if err := n.call(ctx, "getRecentPrioritizationFees", &fees, addresses); err != nil {
		return nil, err
	}

	samples := make([]core.FeeSample, 0, len(fees))
	for _, f := range fees {
		samples = append(samples, core.FeeSample{Slot: f.Slot, Fee: f.PrioritizationFee})
	}
	return samples, nil
}

func (n *SolanaNetwork) SimulateTransaction(ctx context.Context, tx solTypes.Transaction) (*core.SimulationResult, error) {
	raw, err := tx.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serialize transaction: %w", err)
	}
	cfg := map[string]any{
		"encoding":               "base64",
		"sigVerify":              false,
		"replaceRecentBlockhash": true,
		"commitment":             string(n.commitment),
	}

	var res struct {
		Value struct {
			Err  any      `json:"err"`
			Logs []string `json:"logs"`
		} `json:"value"`
	}
	if err := n.call(ctx, "simulateTransaction", &res, base64.StdEncoding.EncodeToString(raw), cfg); err != nil {
		return nil, err
	}
	return &core.SimulationResult{Err: errorDetail(res.Value.Err), Logs: res.Value.Logs}, nil
}

func (n *SolanaNetwork) LatestCheckpoint(ctx context.Context, commitment core.Commitment) (cp core.Checkpoint, err error) {
	defer n.recoverCall("getLatestBlockhash", &err)

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if commitment == "" {
		commitment = n.commitment
	}
	res, err := n.client.GetLatestBlockhashWithConfig(ctx, client.GetLatestBlockhashConfig{
		Commitment: rpc.Commitment(commitment),
	})
	if err != nil {
		return core.Checkpoint{}, fmt.Errorf("getLatestBlockhash: %w", err)
	}
	return core.Checkpoint{Blockhash: res.Blockhash, LastValidBlockHeight: res.LatestValidBlockHeight}, nil
}

// call 发起一次原始 JSON-RPC 调用并解析 result
func (n *SolanaNetwork) call(ctx context.Context, method string, out any, params ...any) (err error) {
	defer n.recoverCall(method, &err)

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	body, err := n.client.RpcClient.Call(ctx, append([]any{method}, params...)...)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if err := decodeResult(body, out); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func (n *SolanaNetwork) recoverCall(method string, err *error) {
	if r := recover(); r != nil {
		logger.Errorf("[SolanaNetwork] %s panic: %v\n%s", method, r, debug.Stack())
		*err = fmt.Errorf("%s panic: %v", method, r)
	}
}
