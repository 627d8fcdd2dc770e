package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPubkeyBase58(t *testing.T) {
	const memoProgram = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"

	p, err := TryPubkeyFromBase58(memoProgram)
	require.NoError(t, err)
	assert.Equal(t, memoProgram, p.String())
	assert.Equal(t, p, PubkeyFromCommon(p.ToCommon()))
	assert.False(t, p.IsZero())

	_, err = TryPubkeyFromBase58("abc")
	assert.Error(t, err)

	assert.Panics(t, func() { PubkeyFromBase58("0OIl") })
}

func TestSignature(t *testing.T) {
	raw := make([]byte, 64)
	for i := range raw {
		raw[i] = byte(i + 1)
	}

	s, err := SignatureFromBytes(raw)
	require.NoError(t, err)
	assert.False(t, s.IsZero())

	back, err := SignatureFromBase58(s.String())
	require.NoError(t, err)
	assert.Equal(t, s, back)

	_, err = SignatureFromBytes(raw[:10])
	assert.Error(t, err)
	assert.True(t, Signature{}.IsZero())
}
