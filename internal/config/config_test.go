package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gov-txengine-sol/internal/logic/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeromicro/go-zero/core/conf"
)

const testYaml = `
logger:
  format: json
  level: debug
rpc:
  endpoint: http://127.0.0.1:8899
  ws_endpoint: auto
engine:
  confirm_timeout_ms: 45000
  poll_interval_ms: 500
  max_priority_fee: 200000
  commitment: finalized
  strict_signer_coverage: true
kafka_producer:
  brokers: 127.0.0.1:9092
  topic: tx-outcome
  partitions: 6
redis:
  addr: 127.0.0.1:6379
keypair_path: /tmp/id.json
`

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "txsend.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testYaml), 0o600))

	var c Config
	require.NoError(t, conf.Load(path, &c))
	require.NoError(t, c.Validate())

	assert.Equal(t, "json", c.LogConf.Format)
	assert.Equal(t, WsEndpointAuto, c.Rpc.WsEndpoint)
	assert.Equal(t, 10*time.Second, c.Rpc.Timeout())
	assert.True(t, c.KafkaProducerConf.Enabled())
	assert.True(t, c.Redis.Enabled())
	assert.False(t, c.Grpc.Enabled())

	opts := c.Engine.ToEngineOption()
	assert.Equal(t, 45*time.Second, opts.ConfirmTimeout)
	assert.Equal(t, 500*time.Millisecond, opts.PollInterval)
	assert.Equal(t, 500*time.Millisecond, opts.DiagnosticTimeout)
	assert.Equal(t, core.DefaultResubmitInterval, opts.ResubmitInterval)
	assert.Equal(t, core.DefaultPriorityFee, opts.DefaultPriorityFee)
	assert.Equal(t, uint64(200000), opts.MaxPriorityFee)
	assert.Equal(t, core.CommitmentFinalized, opts.Commitment)
	assert.True(t, opts.StrictSignerCoverage)

	kafkaOpt := c.KafkaProducerConf.ToKafkaOption()
	require.Len(t, kafkaOpt.Topics, 1)
	assert.Equal(t, "tx-outcome", kafkaOpt.Topics[0].Topic)
	assert.Equal(t, 6, kafkaOpt.Topics[0].Partitions)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{Rpc: RpcConfig{Endpoint: "https://api.devnet.solana.com"}}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"最小配置", func(c *Config) {}, false},
		{"缺少 endpoint", func(c *Config) { c.Rpc.Endpoint = "" }, true},
		{"非法 ws 地址", func(c *Config) { c.Rpc.WsEndpoint = "nope" }, true},
		{"非法 commitment", func(c *Config) { c.Engine.Commitment = "max" }, true},
		{"上限低于默认费", func(c *Config) {
			c.Engine.DefaultPriorityFee = 5000
			c.Engine.MaxPriorityFee = 1000
		}, true},
		{"kafka 缺少 topic", func(c *Config) { c.KafkaProducerConf.Brokers = "127.0.0.1:9092" }, true},
		{"非法日志级别", func(c *Config) { c.LogConf.Level = "trace" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultPartitions(t *testing.T) {
	c := KafkaProducerConfig{Brokers: "b", Topic: "t"}
	assert.Equal(t, 1, c.ToKafkaOption().Topics[0].Partitions)
}
