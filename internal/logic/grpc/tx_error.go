package grpc

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// gRPC 推送的 TransactionError 是 bincode 编码：u32 变体号 + 载荷。
// 这里只还原成与 JSON-RPC 相同形态的可读字符串，用于日志与结果详情。

const (
	txErrInstructionError = 8
	ixErrCustom           = 25
)

var transactionErrorNames = []string{
	"AccountInUse",
	"AccountLoadedTwice",
	"AccountNotFound",
	"ProgramAccountNotFound",
	"InsufficientFundsForFee",
	"InvalidAccountForFee",
	"AlreadyProcessed",
	"BlockhashNotFound",
	"InstructionError",
	"CallChainTooDeep",
	"MissingSignatureForFee",
	"InvalidAccountIndex",
	"SignatureFailure",
	"InvalidProgramForExecution",
	"SanitizeFailure",
	"ClusterMaintenance",
	"AccountBorrowOutstanding",
	"WouldExceedMaxBlockCostLimit",
	"UnsupportedVersion",
	"InvalidWritableAccount",
	"WouldExceedMaxAccountCostLimit",
	"WouldExceedAccountDataBlockLimit",
	"TooManyAccountLocks",
	"AddressLookupTableNotFound",
	"InvalidAddressLookupTableOwner",
	"InvalidAddressLookupTableData",
	"InvalidAddressLookupTableIndex",
	"InvalidRentPayingAccount",
	"WouldExceedMaxVoteCostLimit",
	"WouldExceedAccountDataTotalLimit",
}

var instructionErrorNames = []string{
	"GenericError",
	"InvalidArgument",
	"InvalidInstructionData",
	"InvalidAccountData",
	"AccountDataTooSmall",
	"InsufficientFunds",
	"IncorrectProgramId",
	"MissingRequiredSignature",
	"AccountAlreadyInitialized",
	"UninitializedAccount",
	"UnbalancedInstruction",
	"ModifiedProgramId",
	"ExternalAccountLamportSpend",
	"ExternalAccountDataModified",
	"ReadonlyLamportChange",
	"ReadonlyDataModified",
	"DuplicateAccountIndex",
	"ExecutableModified",
	"RentEpochModified",
	"NotEnoughAccountKeys",
	"AccountDataSizeChanged",
	"AccountNotExecutable",
	"AccountBorrowFailed",
	"AccountBorrowOutstanding",
	"DuplicateAccountOutOfSync",
	"Custom",
}

// TransactionErrorDetail 解码失败时退回十六进制原文
func TransactionErrorDetail(raw []byte) string {
	if len(raw) < 4 {
		return fallbackDetail(raw)
	}
	variant := binary.LittleEndian.Uint32(raw[:4])
	if variant != txErrInstructionError {
		if int(variant) < len(transactionErrorNames) {
			return transactionErrorNames[variant]
		}
		return fallbackDetail(raw)
	}

	// InstructionError(u8 指令序号, InstructionError)
	if len(raw) < 9 {
		return fallbackDetail(raw)
	}
	index := raw[4]
	ixVariant := binary.LittleEndian.Uint32(raw[5:9])
	if ixVariant == ixErrCustom {
		if len(raw) < 13 {
			return fallbackDetail(raw)
		}
		return fmt.Sprintf(`{"InstructionError":[%d,{"Custom":%d}]}`, index, binary.LittleEndian.Uint32(raw[9:13]))
	}
	if int(ixVariant) < len(instructionErrorNames) {
		return fmt.Sprintf(`{"InstructionError":[%d,%q]}`, index, instructionErrorNames[ixVariant])
	}
	return fallbackDetail(raw)
}

func fallbackDetail(raw []byte) string {
	if len(raw) == 0 {
		return "unknown transaction error"
	}
	return "transaction error 0x" + hex.EncodeToString(raw)
}
