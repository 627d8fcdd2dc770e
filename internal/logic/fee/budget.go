package fee

import (
	"fmt"

	"gov-txengine-sol/internal/logic/core"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/near/borsh-go"
)

// ComputeBudgetProgramID Solana 计算预算程序
var ComputeBudgetProgramID = common.PublicKeyFromString("ComputeBudget111111111111111111111111111111")

// 计算预算程序的指令编号
const (
	instructionSetComputeUnitLimit uint8 = 2
	instructionSetComputeUnitPrice uint8 = 3
)

type setComputeUnitPriceArgs struct {
	Instruction   uint8
	MicroLamports uint64
}

type setComputeUnitLimitArgs struct {
	Instruction uint8
	Units       uint32
}

// SetComputeUnitPriceInstruction 构造优先费指令（单位: micro-lamports / CU）
func SetComputeUnitPriceInstruction(microLamports uint64) (core.Instruction, error) {
	data, err := borsh.Serialize(setComputeUnitPriceArgs{
		Instruction:   instructionSetComputeUnitPrice,
		MicroLamports: microLamports,
	})
	if err != nil {
		return core.Instruction{}, fmt.Errorf("encode SetComputeUnitPrice: %w", err)
	}
	return core.Instruction{ProgramID: ComputeBudgetProgramID, Data: data}, nil
}

// SetComputeUnitLimitInstruction 构造计算单元上限指令
func SetComputeUnitLimitInstruction(units uint32) (core.Instruction, error) {
	data, err := borsh.Serialize(setComputeUnitLimitArgs{
		Instruction: instructionSetComputeUnitLimit,
		Units:       units,
	})
	if err != nil {
		return core.Instruction{}, fmt.Errorf("encode SetComputeUnitLimit: %w", err)
	}
	return core.Instruction{ProgramID: ComputeBudgetProgramID, Data: data}, nil
}

// IsComputeBudgetInstruction 判断指令是否属于计算预算程序
func IsComputeBudgetInstruction(ix core.Instruction) bool {
	return ix.ProgramID == ComputeBudgetProgramID
}
