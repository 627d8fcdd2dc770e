package core

import (
	"gov-txengine-sol/internal/types"

	"github.com/blocto/solana-go-sdk/common"
	solTypes "github.com/blocto/solana-go-sdk/types"
)

// Instruction 链上指令：程序 ID + 有序账户列表 + 原始数据。构造后视为不可变，组装阶段只在副本上修改。
type Instruction = solTypes.Instruction

// Template 由指令构建层产出的一笔交易的指令集合
type Template struct {
	Instructions []Instruction
}

type SignerKind int

const (
	SignerExternal SignerKind = iota // 由钱包/UI 在外部签名
	SignerLocal                      // 引擎持有私钥（如治理控制的临时账户）
)

func (k SignerKind) String() string {
	switch k {
	case SignerExternal:
		return "external"
	case SignerLocal:
		return "local"
	default:
		return "unknown"
	}
}

// Signer 签名者身份。Local 签名者必须携带 Account（含私钥）。
type Signer struct {
	Kind      SignerKind
	PublicKey common.PublicKey
	Account   *solTypes.Account
}

func LocalSigner(account solTypes.Account) Signer {
	return Signer{Kind: SignerLocal, PublicKey: account.PublicKey, Account: &account}
}

func ExternalSigner(pubkey common.PublicKey) Signer {
	return Signer{Kind: SignerExternal, PublicKey: pubkey}
}

type SignerSet []Signer

// Locals 返回所有本地签名者（保持原始顺序）
func (s SignerSet) Locals() []Signer {
	locals := make([]Signer, 0, len(s))
	for _, signer := range s {
		if signer.Kind == SignerLocal {
			locals = append(locals, signer)
		}
	}
	return locals
}

// TxRequest 一笔待构造的交易：指令 + 需要的签名者
type TxRequest struct {
	Instructions []Instruction
	Signers      SignerSet
}

func (r TxRequest) IsEmpty() bool {
	return len(r.Instructions) == 0
}

// Batch 同一个批次内的交易，批次之间的顺序由 Mode 决定
type Batch struct {
	Transactions []TxRequest
}

// Checkpoint 最近的 blockhash 及其最后有效区块高度
type Checkpoint struct {
	Blockhash            string
	LastValidBlockHeight uint64
}

// SignedTx 完成组装（可能仍缺外部签名）的交易
type SignedTx struct {
	Tx         solTypes.Transaction
	BatchIndex int // 所属批次
	Index      int // 在所有交易中的全局序号
}

// Signature 交易 ID（第一个签名，即 fee payer 的签名）
func (s *SignedTx) Signature() types.Signature {
	if len(s.Tx.Signatures) == 0 {
		return types.Signature{}
	}
	sig, _ := types.SignatureFromBytes(s.Tx.Signatures[0])
	return sig
}

// FeeSample 最近 slot 的优先费观测值（micro-lamports / CU）
type FeeSample struct {
	Slot uint64
	Fee  uint64
}

// SignatureStatus getSignatureStatuses 的单条结果（已规范化）
type SignatureStatus struct {
	Slot          uint64
	Confirmations uint64
	Finalized     bool   // 节点对已 root 的交易返回 confirmations=null
	Err           string // 链上执行错误，空表示成功
}

// SignatureNotification 推送通道上的一次状态通知
type SignatureNotification struct {
	Slot uint64
	Err  string
}

// SimulationResult simulateTransaction 的结果
type SimulationResult struct {
	Err  string
	Logs []string
}
