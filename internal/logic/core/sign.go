package core

import (
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	solTypes "github.com/blocto/solana-go-sdk/types"
)

// ApplySignature 用 account 对交易消息签名，并写入其对应的签名槽位
func ApplySignature(tx *solTypes.Transaction, account solTypes.Account) error {
	idx, ok := signerIndex(tx.Message, account.PublicKey)
	if !ok {
		return fmt.Errorf("%s is not a required signer", account.PublicKey.ToBase58())
	}
	data, err := tx.Message.Serialize()
	if err != nil {
		return fmt.Errorf("serialize message: %w", err)
	}
	for len(tx.Signatures) < int(tx.Message.Header.NumRequireSignatures) {
		tx.Signatures = append(tx.Signatures, make([]byte, 64))
	}
	tx.Signatures[idx] = account.Sign(data)
	return nil
}

// MissingSigners 返回仍未签名的必需签名账户
func MissingSigners(tx solTypes.Transaction) []common.PublicKey {
	n := int(tx.Message.Header.NumRequireSignatures)
	missing := make([]common.PublicKey, 0)
	for i := 0; i < n && i < len(tx.Message.Accounts); i++ {
		if i >= len(tx.Signatures) || isZeroSignature(tx.Signatures[i]) {
			missing = append(missing, tx.Message.Accounts[i])
		}
	}
	return missing
}

func signerIndex(msg solTypes.Message, pubkey common.PublicKey) (int, bool) {
	n := int(msg.Header.NumRequireSignatures)
	for i := 0; i < n && i < len(msg.Accounts); i++ {
		if msg.Accounts[i] == pubkey {
			return i, true
		}
	}
	return 0, false
}

func isZeroSignature(sig []byte) bool {
	for _, b := range sig {
		if b != 0 {
			return false
		}
	}
	return true
}
