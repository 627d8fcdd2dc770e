package testutil

import (
	"gov-txengine-sol/internal/logic/core"

	"github.com/blocto/solana-go-sdk/common"
	solTypes "github.com/blocto/solana-go-sdk/types"
)

const TestBlockhash = "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N"

// TestProgramID 测试指令使用的程序，不会真正执行
var TestProgramID = common.PublicKeyFromString("Memo1UhkJRfHyvLMcVucJwxXeuD728EqVDDwQDxFMNo")

// Instruction 构造一条以 signer 为签名者的测试指令，tag 用于区分不同交易（得到不同的签名）
func Instruction(signer common.PublicKey, tag byte) core.Instruction {
	return core.Instruction{
		ProgramID: TestProgramID,
		Accounts:  []solTypes.AccountMeta{{PubKey: signer, IsSigner: true, IsWritable: true}},
		Data:      []byte{tag},
	}
}

// SignedTx 构造一笔已由 payer 完整签名的交易
func SignedTx(payer solTypes.Account, tag byte) *core.SignedTx {
	tx, err := solTypes.NewTransaction(solTypes.NewTransactionParam{
		Message: solTypes.NewMessage(solTypes.NewMessageParam{
			FeePayer:        payer.PublicKey,
			RecentBlockhash: TestBlockhash,
			Instructions:    []core.Instruction{Instruction(payer.PublicKey, tag)},
		}),
		Signers: []solTypes.Account{payer},
	})
	if err != nil {
		panic(err)
	}
	return &core.SignedTx{Tx: tx}
}
