package assembler

import (
	"crypto/ed25519"
	"fmt"

	"gov-txengine-sol/internal/logic/core"
	"gov-txengine-sol/internal/logic/fee"
	"gov-txengine-sol/internal/types"
	"gov-txengine-sol/pkg/logger"

	"github.com/blocto/solana-go-sdk/common"
	solTypes "github.com/blocto/solana-go-sdk/types"
)

// CoveragePlan 组装前对本地签名者的覆盖情况分析结果
type CoveragePlan struct {
	// Covered 至少被一条指令标记为签名者的本地账户
	Covered []common.PublicKey
	// Missing 没有出现在任何指令签名账户中的本地账户，会被追加到每一条指令上
	Missing []common.PublicKey
}

func (p CoveragePlan) NeedsInjection() bool {
	return len(p.Missing) > 0
}

// Assembler 把指令模板组装成带部分签名的交易：
// 1. 校验 fee payer / 本地签名者 / 指令
// 2. 生成签名者覆盖计划
// 3. 在指令副本上执行计划，并插入优先费指令
// 4. 用本地签名者部分签名，外部签名槽位留给钱包
type Assembler struct {
	strictCoverage bool
}

func NewAssembler(opts core.Options) *Assembler {
	return &Assembler{strictCoverage: opts.StrictSignerCoverage}
}

func (a *Assembler) Assemble(
	tmpl core.Template,
	signers core.SignerSet,
	feePayer common.PublicKey,
	checkpoint core.Checkpoint,
	priorityFee uint64,
) (*core.SignedTx, error) {
	locals, err := validate(tmpl, signers, feePayer, checkpoint)
	if err != nil {
		return nil, err
	}

	plan := PlanCoverage(tmpl.Instructions, locals)
	if plan.NeedsInjection() {
		if a.strictCoverage {
			return nil, core.NewConfigurationError("local signer %s is not a signer of any instruction", plan.Missing[0].ToBase58())
		}
		for _, pk := range plan.Missing {
			logger.Warnf("[Assembler] 本地签名者 %s 不在任何指令的签名账户中，追加到全部 %d 条指令", pk.ToBase58(), len(tmpl.Instructions))
		}
	}

	instructions, err := buildInstructions(tmpl.Instructions, plan, priorityFee)
	if err != nil {
		return nil, err
	}

	message := solTypes.NewMessage(solTypes.NewMessageParam{
		FeePayer:        feePayer,
		RecentBlockhash: checkpoint.Blockhash,
		Instructions:    instructions,
	})

	accounts := make([]solTypes.Account, 0, len(locals))
	for _, signer := range locals {
		accounts = append(accounts, *signer.Account)
	}
	tx, err := solTypes.NewTransaction(solTypes.NewTransactionParam{
		Message: message,
		Signers: accounts,
	})
	if err != nil {
		return nil, fmt.Errorf("partial sign: %w", err)
	}
	return &core.SignedTx{Tx: tx}, nil
}

func validate(tmpl core.Template, signers core.SignerSet, feePayer common.PublicKey, checkpoint core.Checkpoint) ([]core.Signer, error) {
	if types.PubkeyFromCommon(feePayer).IsZero() {
		return nil, core.NewConfigurationError("fee payer is not set (wallet not connected?)")
	}
	if len(tmpl.Instructions) == 0 {
		return nil, core.NewConfigurationError("transaction has no instructions")
	}
	if checkpoint.Blockhash == "" {
		return nil, core.NewConfigurationError("recent blockhash is not set")
	}

	locals := signers.Locals()
	for i, signer := range locals {
		if types.PubkeyFromCommon(signer.PublicKey).IsZero() {
			return nil, core.NewConfigurationError("local signer #%d has no public key", i)
		}
		if signer.Account == nil || len(signer.Account.PrivateKey) != ed25519.PrivateKeySize {
			return nil, core.NewConfigurationError("local signer %s has no key material", signer.PublicKey.ToBase58())
		}
		if signer.Account.PublicKey != signer.PublicKey {
			return nil, core.NewConfigurationError("local signer %s key material does not match its public key", signer.PublicKey.ToBase58())
		}
	}
	return locals, nil
}

// PlanCoverage 只读分析，不修改指令
func PlanCoverage(instructions []core.Instruction, locals []core.Signer) CoveragePlan {
	var plan CoveragePlan
	for _, signer := range locals {
		if requiresSigner(instructions, signer.PublicKey) {
			plan.Covered = append(plan.Covered, signer.PublicKey)
		} else {
			plan.Missing = append(plan.Missing, signer.PublicKey)
		}
	}
	return plan
}

func requiresSigner(instructions []core.Instruction, pubkey common.PublicKey) bool {
	for _, ix := range instructions {
		for _, meta := range ix.Accounts {
			if meta.IsSigner && meta.PubKey == pubkey {
				return true
			}
		}
	}
	return false
}

// buildInstructions 在副本上追加缺失的签名者，并在最前面插入优先费指令（模板里已有时不重复插入）
func buildInstructions(src []core.Instruction, plan CoveragePlan, priorityFee uint64) ([]core.Instruction, error) {
	out := make([]core.Instruction, 0, len(src)+1)

	hasPrice := false
	for _, ix := range src {
		if fee.IsComputeBudgetInstruction(ix) && len(ix.Data) > 0 && ix.Data[0] == 3 {
			hasPrice = true
		}
	}
	if !hasPrice {
		priceIx, err := fee.SetComputeUnitPriceInstruction(priorityFee)
		if err != nil {
			return nil, err
		}
		out = append(out, priceIx)
	}

	for _, ix := range src {
		accounts := make([]solTypes.AccountMeta, len(ix.Accounts), len(ix.Accounts)+len(plan.Missing))
		copy(accounts, ix.Accounts)
		for _, pk := range plan.Missing {
			accounts = append(accounts, solTypes.AccountMeta{PubKey: pk, IsSigner: true, IsWritable: false})
		}
		data := make([]byte, len(ix.Data))
		copy(data, ix.Data)
		out = append(out, core.Instruction{ProgramID: ix.ProgramID, Accounts: accounts, Data: data})
	}
	return out, nil
}
