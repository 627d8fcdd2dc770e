package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"gov-txengine-sol/internal/logic/core"
	"gov-txengine-sol/internal/testutil"

	solTypes "github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `
mode: sequential
batches:
  - transactions:
      - signers:
          - name: proposal
            generate: true
        instructions:
          - program_id: Memo1UhkJRfHyvLMcVucJwxXeuD728EqVDDwQDxFMNo
            accounts:
              - pubkey: "@payer"
                signer: true
                writable: true
              - pubkey: "@proposal"
                signer: true
            data: hex:0102
  - transactions:
      - signers:
          - keypair: member.json
        instructions:
          - program_id: Memo1UhkJRfHyvLMcVucJwxXeuD728EqVDDwQDxFMNo
            data: base58:StV1DL6CwTryKyV
      - instructions: []
`

func writeFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func writeAccount(t *testing.T, dir, name string, account solTypes.Account) {
	ints := make([]int, 0, len(account.PrivateKey))
	for _, b := range account.PrivateKey {
		ints = append(ints, int(b))
	}
	data, err := json.Marshal(ints)
	require.NoError(t, err)
	writeFile(t, dir, name, string(data))
}

func TestManifest_Build(t *testing.T) {
	dir := t.TempDir()
	member := solTypes.NewAccount()
	writeAccount(t, dir, "member.json", member)
	path := writeFile(t, dir, "batch.yaml", testManifest)

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "sequential", m.Mode)

	payer := solTypes.NewAccount().PublicKey
	batches, generated, err := m.Build(payer, dir)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	require.Len(t, generated, 1)
	assert.Equal(t, "proposal", generated[0].Name)

	tx := batches[0].Transactions[0]
	require.Len(t, tx.Signers, 1)
	assert.Equal(t, core.SignerLocal, tx.Signers[0].Kind)
	assert.Equal(t, generated[0].PublicKey, tx.Signers[0].PublicKey)

	ix := tx.Instructions[0]
	assert.Equal(t, testutil.TestProgramID, ix.ProgramID)
	assert.Equal(t, []byte{1, 2}, ix.Data)
	assert.Equal(t, solTypes.AccountMeta{PubKey: payer, IsSigner: true, IsWritable: true}, ix.Accounts[0])
	assert.Equal(t, generated[0].PublicKey, ix.Accounts[1].PubKey)

	second := batches[1].Transactions
	require.Len(t, second, 2)
	assert.Equal(t, member.PublicKey, second[0].Signers[0].PublicKey)
	assert.Equal(t, []byte("hello world"), second[0].Instructions[0].Data)
	assert.True(t, second[1].IsEmpty())
}

func TestManifest_BuildErrors(t *testing.T) {
	payer := solTypes.NewAccount().PublicKey
	tests := []struct {
		name string
		tx   ManifestTx
	}{
		{"未知引用", ManifestTx{Instructions: []ManifestInstruction{{ProgramID: "@nobody"}}}},
		{"非法公钥", ManifestTx{Instructions: []ManifestInstruction{{ProgramID: "not-a-key"}}}},
		{"非法数据", ManifestTx{Instructions: []ManifestInstruction{{ProgramID: "@payer", Data: "hex:zz"}}}},
		{"签名者缺少来源", ManifestTx{Signers: []ManifestSigner{{Name: "x"}}}},
		{"签名者来源冲突", ManifestTx{Signers: []ManifestSigner{{Keypair: "a.json", Generate: true}}}},
		{"密钥文件不存在", ManifestTx{Signers: []ManifestSigner{{Keypair: "missing.json"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Manifest{Batches: []ManifestBatch{{Transactions: []ManifestTx{tt.tx}}}}
			_, _, err := m.Build(payer, t.TempDir())
			assert.ErrorIs(t, err, core.ErrConfiguration)
		})
	}
}

func TestDecodeData(t *testing.T) {
	for in, want := range map[string][]byte{
		"":            nil,
		"AQI=":        {1, 2},
		"base64:AQI=": {1, 2},
		"hex:0a0b":    {10, 11},
		"base58:ZiCa": []byte("abc"),
	} {
		got, err := decodeData(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestResolveMode(t *testing.T) {
	mode, err := resolveMode("", "")
	require.NoError(t, err)
	assert.Equal(t, "stop_on_failure", mode.String())

	mode, err = resolveMode("parallel", "sequential")
	require.NoError(t, err)
	assert.Equal(t, "parallel", mode.String())

	mode, err = resolveMode("", "sequential")
	require.NoError(t, err)
	assert.Equal(t, "sequential", mode.String())

	_, err = resolveMode("bogus", "")
	assert.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config/solana/id.json"), expandHome("~/.config/solana/id.json"))
	assert.Equal(t, "/abs/id.json", expandHome("/abs/id.json"))
}
