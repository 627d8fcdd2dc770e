package testutil

import (
	"context"
	"sync"

	"gov-txengine-sol/internal/logic/core"

	"github.com/blocto/solana-go-sdk/common"
	solTypes "github.com/blocto/solana-go-sdk/types"
)

// FakeWallet 持有 fee payer 私钥，直接签名，不需要用户交互
type FakeWallet struct {
	mu      sync.Mutex
	Account solTypes.Account
	Err     error
	// SkipSign 为 true 时原样返回，用于模拟钱包漏签
	SkipSign bool

	calls  int
	signed []solTypes.Transaction
}

var _ core.Wallet = (*FakeWallet)(nil)

func NewFakeWallet() *FakeWallet {
	return &FakeWallet{Account: solTypes.NewAccount()}
}

func (w *FakeWallet) PublicKey() common.PublicKey {
	return w.Account.PublicKey
}

func (w *FakeWallet) SignAll(_ context.Context, txs []solTypes.Transaction) ([]solTypes.Transaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.Err != nil {
		return nil, w.Err
	}

	out := make([]solTypes.Transaction, len(txs))
	for i, tx := range txs {
		tx.Signatures = append([]solTypes.Signature(nil), tx.Signatures...)
		if !w.SkipSign {
			if err := core.ApplySignature(&tx, w.Account); err != nil {
				return nil, err
			}
		}
		out[i] = tx
	}
	w.signed = append(w.signed, out...)
	return out, nil
}

func (w *FakeWallet) Calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

func (w *FakeWallet) Signed() []solTypes.Transaction {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]solTypes.Transaction(nil), w.signed...)
}
