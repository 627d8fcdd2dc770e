package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestEncodeDecodeEvent(t *testing.T) {
	msg, err := structpb.NewStruct(map[string]any{"signature": "abc", "slot": 42})
	require.NoError(t, err)

	data, err := EncodeEvent(7, msg)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 0, 0, 0}, data[:4])

	decoded := &structpb.Struct{}
	eventType, err := DecodeEvent(data, decoded)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), eventType)
	assert.True(t, proto.Equal(msg, decoded))

	_, err = DecodeEvent([]byte{1, 2}, decoded)
	assert.Error(t, err)
}

func TestPartitionHashBytes(t *testing.T) {
	b := make([]byte, 64)
	b[7], b[15], b[19], b[27] = 1, 2, 3, 5

	assert.Equal(t, uint32(0), PartitionHashBytes(b[:10], 8), "长度不足走 0 分区")
	assert.Equal(t, uint32(0), PartitionHashBytes(b, 1))
	assert.Equal(t, uint32(5), PartitionHashBytes(b, 8))
	assert.Equal(t, uint32(1), PartitionHashBytes(b, 2))

	hash := uint32(1)<<24 | uint32(2)<<16 | uint32(3)<<8 | uint32(5)
	assert.Equal(t, hash%6, PartitionHashBytes(b, 6))

	// 同一输入总是落在同一分区
	assert.Equal(t, PartitionHashBytes(b, 6), PartitionHashBytes(append([]byte(nil), b...), 6))
}
