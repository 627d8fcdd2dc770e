// Package testutil 提供测试用的 Network / Subscriber / Wallet 假实现
package testutil

import (
	"context"
	"errors"
	"sync"

	"gov-txengine-sol/internal/logic/core"

	"github.com/blocto/solana-go-sdk/common"
	solTypes "github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
)

// FakeNetwork 内存中的 core.Network，所有行为都可由测试注入
type FakeNetwork struct {
	mu sync.Mutex

	FeeSamples []core.FeeSample
	FeeErr     error

	Checkpoint    core.Checkpoint
	CheckpointErr error

	// SendErr 返回第 attempt 次（从 1 开始）提交某签名时的错误
	SendErr func(signature string, attempt int) error
	// Status 返回签名当前的状态，nil 表示节点尚未见到
	Status func(signature string) (*core.SignatureStatus, error)

	SimResult *core.SimulationResult
	SimErr    error

	sends       map[string]int
	sendOrder   []string
	statusCalls map[string]int
	simCalls    int
}

var _ core.Network = (*FakeNetwork)(nil)

func NewFakeNetwork() *FakeNetwork {
	return &FakeNetwork{
		Checkpoint:  core.Checkpoint{Blockhash: TestBlockhash, LastValidBlockHeight: 100},
		sends:       make(map[string]int),
		statusCalls: make(map[string]int),
	}
}

func (n *FakeNetwork) SendRawTransaction(_ context.Context, raw []byte) (string, error) {
	sig, err := SignatureOfRaw(raw)
	if err != nil {
		return "", err
	}

	n.mu.Lock()
	n.sends[sig]++
	attempt := n.sends[sig]
	if attempt == 1 {
		n.sendOrder = append(n.sendOrder, sig)
	}
	sendErr := n.SendErr
	n.mu.Unlock()

	if sendErr != nil {
		if err := sendErr(sig, attempt); err != nil {
			return "", err
		}
	}
	return sig, nil
}

func (n *FakeNetwork) GetSignatureStatus(_ context.Context, signature string) (*core.SignatureStatus, error) {
	n.mu.Lock()
	n.statusCalls[signature]++
	status := n.Status
	n.mu.Unlock()

	if status == nil {
		return nil, nil
	}
	return status(signature)
}

func (n *FakeNetwork) RecentFeeSamples(context.Context, []common.PublicKey) ([]core.FeeSample, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.FeeSamples, n.FeeErr
}

func (n *FakeNetwork) SimulateTransaction(context.Context, solTypes.Transaction) (*core.SimulationResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.simCalls++
	return n.SimResult, n.SimErr
}

func (n *FakeNetwork) LatestCheckpoint(context.Context, core.Commitment) (core.Checkpoint, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.Checkpoint, n.CheckpointErr
}

// Sends 返回某签名被提交的次数
func (n *FakeNetwork) Sends(signature string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sends[signature]
}

// SendOrder 按首次提交的先后返回签名
func (n *FakeNetwork) SendOrder() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sendOrder...)
}

func (n *FakeNetwork) StatusCalls(signature string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.statusCalls[signature]
}

func (n *FakeNetwork) SimCalls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.simCalls
}

// SignatureOfRaw 从序列化交易中取出第一个签名（签名数量 < 128 时长度前缀只占 1 字节）
func SignatureOfRaw(raw []byte) (string, error) {
	if len(raw) < 65 || raw[0] == 0 {
		return "", errors.New("raw transaction has no signature")
	}
	return base58.Encode(raw[1:65]), nil
}
