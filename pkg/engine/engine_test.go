package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gov-txengine-sol/internal/logic/core"
	"gov-txengine-sol/internal/testutil"

	solTypes "github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	opts := core.DefaultOptions()
	opts.ConfirmTimeout = 2 * time.Second
	opts.PollInterval = 10 * time.Millisecond
	opts.ResubmitInterval = 50 * time.Millisecond
	return opts
}

func TestEngine_SubmitWithLocalSigner(t *testing.T) {
	network := testutil.NewFakeNetwork()
	network.Status = func(string) (*core.SignatureStatus, error) {
		return &core.SignatureStatus{Slot: 12, Confirmations: 1}, nil
	}
	wallet := testutil.NewFakeWallet()
	eng := NewWithNetwork(network, nil, wallet, testOptions())
	defer eng.Close()

	proposal := solTypes.NewAccount()
	batches := []Batch{
		{Transactions: []TxRequest{{
			Instructions: []Instruction{testutil.Instruction(wallet.PublicKey(), 1)},
			Signers:      SignerSet{LocalSigner(proposal)},
		}}},
		{Transactions: []TxRequest{{
			Instructions: []Instruction{testutil.Instruction(wallet.PublicKey(), 2)},
		}}},
	}

	var mu sync.Mutex
	var succeeded []int
	report, err := eng.Submit(context.Background(), batches, ModeStopOnFailure, Callbacks{
		OnSuccess: func(_ string, index, total int) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, 2, total)
			succeeded = append(succeeded, index)
		},
		OnFailure: func(err error, _, _ int) {
			t.Errorf("unexpected failure: %v", err)
		},
	})
	require.NoError(t, err)
	assert.True(t, report.Succeeded())
	assert.Equal(t, []int{0, 1}, succeeded)
	assert.Equal(t, wallet.PublicKey(), eng.Wallet().PublicKey())
}

func TestEngine_ConfigurationErrorIsSynchronous(t *testing.T) {
	eng := NewWithNetwork(testutil.NewFakeNetwork(), nil, nil, testOptions())

	called := false
	_, err := eng.Submit(context.Background(), []Batch{{}}, ModeParallel, Callbacks{
		OnSuccess: func(string, int, int) { called = true },
		OnFailure: func(error, int, int) { called = true },
	})
	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.False(t, called)
}

func TestEngine_EstimateFee(t *testing.T) {
	network := testutil.NewFakeNetwork()
	network.FeeSamples = []core.FeeSample{{Slot: 1, Fee: 100}, {Slot: 2, Fee: 300}, {Slot: 3, Fee: 200}}
	eng := NewWithNetwork(network, nil, testutil.NewFakeWallet(), testOptions())

	assert.Equal(t, uint64(200), eng.EstimateFee(context.Background()))
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)
}

func TestParseModeAlias(t *testing.T) {
	mode, err := ParseMode("stop-on-failure")
	require.NoError(t, err)
	assert.Equal(t, ModeStopOnFailure, mode)
}
