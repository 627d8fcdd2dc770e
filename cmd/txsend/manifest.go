package main

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gov-txengine-sol/internal/logic/core"
	"gov-txengine-sol/internal/types"
	"gov-txengine-sol/internal/wallet"

	"github.com/blocto/solana-go-sdk/common"
	solTypes "github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
	"gopkg.in/yaml.v3"
)

// payerRef 在账户列表中引用钱包（fee payer）的公钥
const payerRef = "@payer"

// Manifest 一次提交的描述文件：多个批次，每个批次若干交易
type Manifest struct {
	Mode    string          `yaml:"mode"`
	Batches []ManifestBatch `yaml:"batches"`
}

type ManifestBatch struct {
	Transactions []ManifestTx `yaml:"transactions"`
}

type ManifestTx struct {
	Signers      []ManifestSigner      `yaml:"signers"`
	Instructions []ManifestInstruction `yaml:"instructions"`
}

// ManifestSigner 本地签名者：keypair 文件，或 generate=true 现场生成（如新建的提案账户）
type ManifestSigner struct {
	Name     string `yaml:"name"`
	Keypair  string `yaml:"keypair"`
	Generate bool   `yaml:"generate"`
}

type ManifestInstruction struct {
	ProgramID string            `yaml:"program_id"`
	Accounts  []ManifestAccount `yaml:"accounts"`
	// Data 带编码前缀：base64: / base58: / hex:，无前缀按 base64 处理
	Data string `yaml:"data"`
}

// ManifestAccount Pubkey 可以是 base58 地址、@payer 或 @<签名者名>
type ManifestAccount struct {
	Pubkey   string `yaml:"pubkey"`
	Signer   bool   `yaml:"signer"`
	Writable bool   `yaml:"writable"`
}

func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}

// GeneratedSigner 现场生成的签名者，需要提示给用户
type GeneratedSigner struct {
	Name      string
	PublicKey common.PublicKey
}

// Build 把 manifest 转换为批次。keypair 相对路径以 baseDir 为基准。
func (m *Manifest) Build(payer common.PublicKey, baseDir string) ([]core.Batch, []GeneratedSigner, error) {
	var generated []GeneratedSigner
	batches := make([]core.Batch, 0, len(m.Batches))

	for bi, mb := range m.Batches {
		batch := core.Batch{Transactions: make([]core.TxRequest, 0, len(mb.Transactions))}
		for ti, mt := range mb.Transactions {
			where := fmt.Sprintf("batch %d tx %d", bi, ti)

			named := map[string]common.PublicKey{payerRef: payer}
			signers := make(core.SignerSet, 0, len(mt.Signers))
			for si, ms := range mt.Signers {
				account, err := ms.load(baseDir)
				if err != nil {
					return nil, nil, core.NewConfigurationError("%s signer %d: %v", where, si, err)
				}
				if ms.Name != "" {
					named["@"+ms.Name] = account.PublicKey
				}
				if ms.Generate {
					generated = append(generated, GeneratedSigner{Name: ms.Name, PublicKey: account.PublicKey})
				}
				signers = append(signers, core.LocalSigner(account))
			}

			instructions := make([]core.Instruction, 0, len(mt.Instructions))
			for ii, mi := range mt.Instructions {
				ix, err := mi.build(named)
				if err != nil {
					return nil, nil, core.NewConfigurationError("%s instruction %d: %v", where, ii, err)
				}
				instructions = append(instructions, ix)
			}
			batch.Transactions = append(batch.Transactions, core.TxRequest{Instructions: instructions, Signers: signers})
		}
		batches = append(batches, batch)
	}
	return batches, generated, nil
}

func (s ManifestSigner) load(baseDir string) (solTypes.Account, error) {
	switch {
	case s.Generate && s.Keypair != "":
		return solTypes.Account{}, fmt.Errorf("keypair and generate are exclusive")
	case s.Generate:
		return solTypes.NewAccount(), nil
	case s.Keypair != "":
		path := s.Keypair
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		return wallet.LoadAccount(path)
	default:
		return solTypes.Account{}, fmt.Errorf("either keypair or generate is required")
	}
}

func (mi ManifestInstruction) build(named map[string]common.PublicKey) (core.Instruction, error) {
	programID, err := parsePubkey(mi.ProgramID, named)
	if err != nil {
		return core.Instruction{}, fmt.Errorf("program_id: %w", err)
	}
	data, err := decodeData(mi.Data)
	if err != nil {
		return core.Instruction{}, fmt.Errorf("data: %w", err)
	}

	accounts := make([]solTypes.AccountMeta, 0, len(mi.Accounts))
	for i, ma := range mi.Accounts {
		pk, err := parsePubkey(ma.Pubkey, named)
		if err != nil {
			return core.Instruction{}, fmt.Errorf("account %d: %w", i, err)
		}
		accounts = append(accounts, solTypes.AccountMeta{PubKey: pk, IsSigner: ma.Signer, IsWritable: ma.Writable})
	}
	return core.Instruction{ProgramID: programID, Accounts: accounts, Data: data}, nil
}

func parsePubkey(s string, named map[string]common.PublicKey) (common.PublicKey, error) {
	if strings.HasPrefix(s, "@") {
		pk, ok := named[s]
		if !ok {
			return common.PublicKey{}, fmt.Errorf("unknown signer reference %s", s)
		}
		return pk, nil
	}
	pk, err := types.TryPubkeyFromBase58(s)
	if err != nil {
		return common.PublicKey{}, err
	}
	return pk.ToCommon(), nil
}

func decodeData(s string) ([]byte, error) {
	switch {
	case s == "":
		return nil, nil
	case strings.HasPrefix(s, "base58:"):
		return base58.Decode(strings.TrimPrefix(s, "base58:"))
	case strings.HasPrefix(s, "hex:"):
		return hex.DecodeString(strings.TrimPrefix(s, "hex:"))
	default:
		return base64.StdEncoding.DecodeString(strings.TrimPrefix(s, "base64:"))
	}
}
