package assembler

import (
	"errors"
	"testing"

	"gov-txengine-sol/internal/logic/core"
	"gov-txengine-sol/internal/logic/fee"

	"github.com/blocto/solana-go-sdk/common"
	solTypes "github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCheckpoint = core.Checkpoint{Blockhash: "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N", LastValidBlockHeight: 100}

func programInstruction(program common.PublicKey, metas ...solTypes.AccountMeta) core.Instruction {
	return core.Instruction{ProgramID: program, Accounts: metas, Data: []byte{1, 2, 3}}
}

func TestAssemble_PartialSignatureShape(t *testing.T) {
	payer := solTypes.NewAccount()
	local := solTypes.NewAccount()
	program := solTypes.NewAccount().PublicKey

	tmpl := core.Template{Instructions: []core.Instruction{
		programInstruction(program,
			solTypes.AccountMeta{PubKey: payer.PublicKey, IsSigner: true, IsWritable: true},
			solTypes.AccountMeta{PubKey: local.PublicKey, IsSigner: true, IsWritable: true},
		),
	}}
	signers := core.SignerSet{core.ExternalSigner(payer.PublicKey), core.LocalSigner(local)}

	signed, err := NewAssembler(core.DefaultOptions()).Assemble(tmpl, signers, payer.PublicKey, testCheckpoint, 5000)
	require.NoError(t, err)

	tx := signed.Tx
	assert.Equal(t, payer.PublicKey, tx.Message.Accounts[0], "fee payer 必须是第一个账户")
	assert.Equal(t, testCheckpoint.Blockhash, tx.Message.RecentBlockHash)
	require.Len(t, tx.Signatures, int(tx.Message.Header.NumRequireSignatures))
	assert.Equal(t, []common.PublicKey{payer.PublicKey}, core.MissingSigners(tx), "只剩 fee payer 未签名")
	assert.True(t, signed.Signature().IsZero())
}

func TestAssemble_InjectsUncoveredLocalSigner(t *testing.T) {
	payer := solTypes.NewAccount()
	temp := solTypes.NewAccount()
	program := solTypes.NewAccount().PublicKey

	original := []solTypes.AccountMeta{{PubKey: payer.PublicKey, IsSigner: true, IsWritable: true}}
	tmpl := core.Template{Instructions: []core.Instruction{
		programInstruction(program, original...),
		programInstruction(program, original...),
	}}
	signers := core.SignerSet{core.ExternalSigner(payer.PublicKey), core.LocalSigner(temp)}

	signed, err := NewAssembler(core.DefaultOptions()).Assemble(tmpl, signers, payer.PublicKey, testCheckpoint, 5000)
	require.NoError(t, err)

	// 临时账户成为签名者且已签名
	assert.Equal(t, []common.PublicKey{payer.PublicKey}, core.MissingSigners(signed.Tx))
	assert.Equal(t, uint8(2), signed.Tx.Message.Header.NumRequireSignatures)

	// 模板本身不被修改
	for _, ix := range tmpl.Instructions {
		assert.Len(t, ix.Accounts, 1)
	}
}

func TestAssemble_StrictCoverageRejects(t *testing.T) {
	payer := solTypes.NewAccount()
	temp := solTypes.NewAccount()
	program := solTypes.NewAccount().PublicKey

	opts := core.DefaultOptions()
	opts.StrictSignerCoverage = true

	tmpl := core.Template{Instructions: []core.Instruction{
		programInstruction(program, solTypes.AccountMeta{PubKey: payer.PublicKey, IsSigner: true, IsWritable: true}),
	}}
	_, err := NewAssembler(opts).Assemble(tmpl, core.SignerSet{core.LocalSigner(temp)}, payer.PublicKey, testCheckpoint, 5000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrConfiguration))
}

func TestAssemble_Validation(t *testing.T) {
	payer := solTypes.NewAccount()
	other := solTypes.NewAccount()
	program := solTypes.NewAccount().PublicKey
	ix := programInstruction(program, solTypes.AccountMeta{PubKey: payer.PublicKey, IsSigner: true, IsWritable: true})

	mismatched := core.LocalSigner(other)
	mismatched.PublicKey = payer.PublicKey

	tests := []struct {
		name       string
		tmpl       core.Template
		signers    core.SignerSet
		feePayer   common.PublicKey
		checkpoint core.Checkpoint
	}{
		{"wallet not connected", core.Template{Instructions: []core.Instruction{ix}}, nil, common.PublicKey{}, testCheckpoint},
		{"no instructions", core.Template{}, nil, payer.PublicKey, testCheckpoint},
		{"no blockhash", core.Template{Instructions: []core.Instruction{ix}}, nil, payer.PublicKey, core.Checkpoint{}},
		{"local signer without key", core.Template{Instructions: []core.Instruction{ix}},
			core.SignerSet{{Kind: core.SignerLocal, PublicKey: other.PublicKey}}, payer.PublicKey, testCheckpoint},
		{"key material mismatch", core.Template{Instructions: []core.Instruction{ix}},
			core.SignerSet{mismatched}, payer.PublicKey, testCheckpoint},
	}

	a := NewAssembler(core.DefaultOptions())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Assemble(tt.tmpl, tt.signers, tt.feePayer, tt.checkpoint, 5000)
			require.Error(t, err)
			var cfgErr *core.ConfigurationError
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestPlanCoverage(t *testing.T) {
	covered := solTypes.NewAccount()
	readonly := solTypes.NewAccount()
	missing := solTypes.NewAccount()
	program := solTypes.NewAccount().PublicKey

	ixs := []core.Instruction{
		programInstruction(program,
			solTypes.AccountMeta{PubKey: covered.PublicKey, IsSigner: true, IsWritable: true},
			// 出现但不是签名者，仍算未覆盖
			solTypes.AccountMeta{PubKey: readonly.PublicKey, IsSigner: false, IsWritable: false},
		),
	}
	plan := PlanCoverage(ixs, core.SignerSet{
		core.LocalSigner(covered), core.LocalSigner(readonly), core.LocalSigner(missing),
	}.Locals())

	assert.Equal(t, []common.PublicKey{covered.PublicKey}, plan.Covered)
	assert.Equal(t, []common.PublicKey{readonly.PublicKey, missing.PublicKey}, plan.Missing)
	assert.True(t, plan.NeedsInjection())
}

func TestBuildInstructions(t *testing.T) {
	payer := solTypes.NewAccount().PublicKey
	missing := solTypes.NewAccount().PublicKey
	program := solTypes.NewAccount().PublicKey

	src := []core.Instruction{
		programInstruction(program, solTypes.AccountMeta{PubKey: payer, IsSigner: true, IsWritable: true}),
		programInstruction(program),
	}
	out, err := buildInstructions(src, CoveragePlan{Missing: []common.PublicKey{missing}}, 7777)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, fee.ComputeBudgetProgramID, out[0].ProgramID)
	assert.Equal(t, byte(3), out[0].Data[0])
	for _, ix := range out[1:] {
		last := ix.Accounts[len(ix.Accounts)-1]
		assert.Equal(t, solTypes.AccountMeta{PubKey: missing, IsSigner: true, IsWritable: false}, last)
	}
	assert.Len(t, src[0].Accounts, 1)
	assert.Len(t, src[1].Accounts, 0)

	// 模板里已经有 SetComputeUnitPrice 时不再插入
	price, err := fee.SetComputeUnitPriceInstruction(1)
	require.NoError(t, err)
	out, err = buildInstructions(append([]core.Instruction{price}, src...), CoveragePlan{}, 7777)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, price.Data, out[0].Data)
}
