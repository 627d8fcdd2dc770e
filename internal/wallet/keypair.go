package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gov-txengine-sol/internal/logic/core"

	"github.com/blocto/solana-go-sdk/common"
	solTypes "github.com/blocto/solana-go-sdk/types"
)

// KeypairWallet 持有本地私钥的钱包，用于命令行和自动化场景，签名不需要交互
type KeypairWallet struct {
	account solTypes.Account
}

var _ core.Wallet = (*KeypairWallet)(nil)

func NewKeypairWallet(account solTypes.Account) *KeypairWallet {
	return &KeypairWallet{account: account}
}

// LoadKeypairWallet 读取 solana-keygen 生成的 JSON 字节数组，或 base58 编码的私钥
func LoadKeypairWallet(path string) (*KeypairWallet, error) {
	account, err := LoadAccount(path)
	if err != nil {
		return nil, err
	}
	return NewKeypairWallet(account), nil
}

func LoadAccount(path string) (solTypes.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return solTypes.Account{}, core.NewConfigurationError("read keypair %s: %v", path, err)
	}
	account, err := ParseAccount(data)
	if err != nil {
		return solTypes.Account{}, core.NewConfigurationError("parse keypair %s: %v", path, err)
	}
	return account, nil
}

func ParseAccount(data []byte) (solTypes.Account, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return solTypes.Account{}, fmt.Errorf("empty keypair")
	}
	if data[0] != '[' {
		return solTypes.AccountFromBase58(string(data))
	}

	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return solTypes.Account{}, fmt.Errorf("invalid keypair json: %w", err)
	}
	raw := make([]byte, 0, len(ints))
	for _, v := range ints {
		if v < 0 || v > 255 {
			return solTypes.Account{}, fmt.Errorf("invalid keypair byte %d", v)
		}
		raw = append(raw, byte(v))
	}
	return solTypes.AccountFromBytes(raw)
}

func (w *KeypairWallet) PublicKey() common.PublicKey {
	return w.account.PublicKey
}

func (w *KeypairWallet) SignAll(ctx context.Context, txs []solTypes.Transaction) ([]solTypes.Transaction, error) {
	out := make([]solTypes.Transaction, len(txs))
	for i, tx := range txs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tx.Signatures = append([]solTypes.Signature(nil), tx.Signatures...)
		if err := core.ApplySignature(&tx, w.account); err != nil {
			return nil, fmt.Errorf("sign transaction %d: %w", i, err)
		}
		out[i] = tx
	}
	return out, nil
}
