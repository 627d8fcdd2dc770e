package config

import (
	"fmt"
	"time"

	"gov-txengine-sol/internal/logic/core"
	"gov-txengine-sol/internal/mq"
	"gov-txengine-sol/pkg/logger"

	"github.com/go-playground/validator/v10"
)

type LogConfig struct {
	Format     string `json:"format,optional" yaml:"format" validate:"omitempty,oneof=console json"`            // 日志格式，支持 "console" 或 "json"
	LogDir     string `json:"log_dir,optional" yaml:"log_dir"`                                                // 日志目录（可为相对路径或绝对路径），为空只输出到 stdout
	Level      string `json:"level,optional" yaml:"level" validate:"omitempty,oneof=debug info warn error"` // 日志级别：debug / info / warn / error
	Compress   bool   `json:"compress,optional" yaml:"compress"`                                            // 是否压缩旧日志文件
	MaxSizeMB  int    `json:"max_size_mb,optional" yaml:"max_size_mb"`                                      // 单个日志文件大小上限
	MaxBackups int    `json:"max_backups,optional" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days,optional" yaml:"max_age_days"`
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:     c.Format,
		LogDir:     c.LogDir,
		Level:      c.Level,
		Compress:   c.Compress,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}

// WsEndpointAuto 由 RPC 地址推导 websocket 地址
const WsEndpointAuto = "auto"

// RpcConfig 节点 RPC 地址
type RpcConfig struct {
	Endpoint   string `json:"endpoint" yaml:"endpoint" validate:"required,url"`                         // HTTP JSON-RPC 地址
	WsEndpoint string `json:"ws_endpoint,optional" yaml:"ws_endpoint" validate:"omitempty,url|eq=auto"` // 为空不使用 websocket 推送
	TimeoutMs  int    `json:"timeout_ms,optional" yaml:"timeout_ms"`                                    // 单次 RPC 调用超时（毫秒）
}

func (c *RpcConfig) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// EngineConfig 广播与确认策略，未设置的字段使用默认值（30s / 2s / 1s / 2s）
type EngineConfig struct {
	ConfirmTimeoutMs        int    `json:"confirm_timeout_ms,optional" yaml:"confirm_timeout_ms"`               // 单笔交易的确认截止时间
	PollIntervalMs          int    `json:"poll_interval_ms,optional" yaml:"poll_interval_ms"`                   // 轮询签名状态的间隔
	ResubmitIntervalMs      int    `json:"resubmit_interval_ms,optional" yaml:"resubmit_interval_ms"`           // 重复广播间隔
	ResubmitErrorIntervalMs int    `json:"resubmit_error_interval_ms,optional" yaml:"resubmit_error_interval_ms"` // 广播失败后的重试间隔
	DiagnosticTimeoutMs     int    `json:"diagnostic_timeout_ms,optional" yaml:"diagnostic_timeout_ms"`         // 超时诊断模拟的最长耗时，默认等于轮询间隔
	DefaultPriorityFee      uint64 `json:"default_priority_fee,optional" yaml:"default_priority_fee"`           // micro-lamports / CU
	MaxPriorityFee          uint64 `json:"max_priority_fee,optional" yaml:"max_priority_fee" validate:"omitempty,gtefield=DefaultPriorityFee"`
	Commitment              string `json:"commitment,optional" yaml:"commitment" validate:"omitempty,oneof=processed confirmed finalized"`
	SkipPreflight           bool   `json:"skip_preflight,optional" yaml:"skip_preflight"`
	SendMaxRetries          uint64 `json:"send_max_retries,optional" yaml:"send_max_retries"`
	StrictSignerCoverage    bool   `json:"strict_signer_coverage,optional" yaml:"strict_signer_coverage"`
	DiagnosticLogPrefix     string `json:"diagnostic_log_prefix,optional" yaml:"diagnostic_log_prefix"`
	Workers                 int    `json:"workers,optional" yaml:"workers"` // Parallel 模式同时在途的交易数，0 不限制
}

func (c *EngineConfig) ToEngineOption() core.Options {
	return core.Options{
		ConfirmTimeout:        ms(c.ConfirmTimeoutMs),
		PollInterval:          ms(c.PollIntervalMs),
		ResubmitInterval:      ms(c.ResubmitIntervalMs),
		ResubmitErrorInterval: ms(c.ResubmitErrorIntervalMs),
		DiagnosticTimeout:     ms(c.DiagnosticTimeoutMs),
		DefaultPriorityFee:    c.DefaultPriorityFee,
		MaxPriorityFee:        c.MaxPriorityFee,
		Commitment:            core.Commitment(c.Commitment),
		SkipPreflight:         c.SkipPreflight,
		SendMaxRetries:        c.SendMaxRetries,
		StrictSignerCoverage:  c.StrictSignerCoverage,
		DiagnosticLogPrefix:   c.DiagnosticLogPrefix,
	}.Normalize()
}

// GrpcConfig Yellowstone gRPC 推送通道，endpoint 为空时不启用
type GrpcConfig struct {
	Endpoint string `json:"endpoint,optional" yaml:"endpoint"` // gRPC 服务端地址
	XToken   string `json:"x_token,optional" yaml:"x_token"`   // x-token 认证

	// 应用级逻辑心跳（ping）配置
	StreamPingIntervalSec int `json:"stream_ping_interval_sec,optional" yaml:"stream_ping_interval_sec"` // 应用层 ping 心跳间隔（秒）

	// gRPC Keepalive 底层连接检测配置
	KeepalivePingIntervalSec int `json:"keepalive_ping_interval_sec,optional" yaml:"keepalive_ping_interval_sec"` // 底层 keepalive 间隔（秒）
	KeepalivePingTimeoutSec  int `json:"keepalive_ping_timeout_sec,optional" yaml:"keepalive_ping_timeout_sec"`   // 底层 keepalive 超时（秒）

	// 消息体大小限制
	MaxCallSendMsgSize int `json:"max_call_send_msg_size,optional" yaml:"max_call_send_msg_size"` // 单条消息最大发送字节数
	MaxCallRecvMsgSize int `json:"max_call_recv_msg_size,optional" yaml:"max_call_recv_msg_size"` // 单条消息最大接收字节数

	ConnectTimeoutSec int  `json:"connect_timeout_sec,optional" yaml:"connect_timeout_sec"` // 连接建立超时（秒）
	SendTimeoutSec    int  `json:"send_timeout_sec,optional" yaml:"send_timeout_sec"`       // 发送超时（秒）
	Insecure          bool `json:"insecure,optional" yaml:"insecure"`                       // 本地节点不走 TLS
}

func (c *GrpcConfig) Enabled() bool {
	return c.Endpoint != ""
}

// KafkaProducerConfig 表示 Kafka 生产者相关配置，brokers 为空时不发布结果事件
type KafkaProducerConfig struct {
	Brokers         string `json:"brokers,optional" yaml:"brokers"`                           // Kafka broker 地址，多个用英文逗号分隔
	BatchSize       int    `json:"batch_size,optional" yaml:"batch_size"`                     // 批处理大小（单位字节）
	LingerMs        int    `json:"linger_ms,optional" yaml:"linger_ms"`                       // 批处理最大延迟（毫秒）
	Topic           string `json:"topic,optional" yaml:"topic" validate:"required_with=Brokers"`
	Partitions      int    `json:"partitions,optional" yaml:"partitions"`                     // topic 的分区数
	SendTimeoutMs   int    `json:"send_timeout_ms,optional" yaml:"send_timeout_ms"`           // 单条事件发送并等待 ack 的超时时间
	FlushIntervalMs int    `json:"flush_interval_ms,optional" yaml:"flush_interval_ms"`       // 结果事件批量发送间隔
}

func (c *KafkaProducerConfig) Enabled() bool {
	return c.Brokers != ""
}

func (c *KafkaProducerConfig) ToKafkaOption() mq.KafkaProducerOption {
	partitions := c.Partitions
	if partitions <= 0 {
		partitions = 1
	}
	return mq.KafkaProducerOption{
		Brokers:   c.Brokers,
		BatchSize: c.BatchSize,
		LingerMs:  c.LingerMs,
		Topics: []mq.TopicSpec{
			{Topic: c.Topic, Partitions: partitions},
		},
	}
}

// RedisConfig 交易状态记录，addr 为空时不记录
type RedisConfig struct {
	Addr     string `json:"addr,optional" yaml:"addr"` // eg: "127.0.0.1:6379"
	Password string `json:"password,optional" yaml:"password"`
	DB       int    `json:"db,optional" yaml:"db"`
}

func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// Config 主配置
type Config struct {
	LogConf           LogConfig           `json:"logger,optional" yaml:"logger"`
	Rpc               RpcConfig           `json:"rpc" yaml:"rpc"`
	Engine            EngineConfig        `json:"engine,optional" yaml:"engine"`
	Grpc              GrpcConfig          `json:"grpc,optional" yaml:"grpc"`
	KafkaProducerConf KafkaProducerConfig `json:"kafka_producer,optional" yaml:"kafka_producer"`
	Redis             RedisConfig         `json:"redis,optional" yaml:"redis"`
	KeypairPath       string              `json:"keypair_path,optional" yaml:"keypair_path"` // fee payer 的 solana-keygen 密钥文件
	MetricsAddr       string              `json:"metrics_addr,optional" yaml:"metrics_addr"` // 为空不暴露 /metrics
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
