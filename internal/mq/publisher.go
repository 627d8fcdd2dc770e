package mq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gov-txengine-sol/internal/types"
	"gov-txengine-sol/internal/utils"
	"gov-txengine-sol/pkg/logger"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

const defaultSendTimeout = 5 * time.Second

// OutcomePublisher 把交易状态事件写入 Kafka，同一签名总是落在同一分区
type OutcomePublisher struct {
	producer    Producer
	closer      func()
	topic       string
	partitions  uint32
	sendTimeout time.Duration
}

func NewOutcomePublisher(producer *kafka.Producer, topic string, partitions int, sendTimeout time.Duration) *OutcomePublisher {
	p := newOutcomePublisher(producer, topic, partitions, sendTimeout)
	p.closer = func() {
		if remaining := producer.Flush(5000); remaining > 0 {
			logger.Warnf("[OutcomePublisher] 关闭时仍有 %d 条消息未发送", remaining)
		}
		producer.Close()
	}
	return p
}

func newOutcomePublisher(producer Producer, topic string, partitions int, sendTimeout time.Duration) *OutcomePublisher {
	if partitions <= 0 {
		partitions = 1
	}
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	return &OutcomePublisher{
		producer:    producer,
		topic:       topic,
		partitions:  uint32(partitions),
		sendTimeout: sendTimeout,
	}
}

// BuildJob 编码事件并选择分区
func (p *OutcomePublisher) BuildJob(event *OutcomeEvent) (*KafkaJob, error) {
	msg, err := event.ToProto()
	if err != nil {
		return nil, fmt.Errorf("build outcome event: %w", err)
	}
	value, err := utils.EncodeEvent(event.EventType(), msg)
	if err != nil {
		return nil, err
	}
	sig, err := types.SignatureFromBase58(event.Signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature %q: %w", event.Signature, err)
	}
	return &KafkaJob{
		Topic:     p.topic,
		Partition: int32(utils.PartitionHashBytes(sig[:], p.partitions)),
		Key:       []byte(event.Signature),
		Value:     value,
	}, nil
}

// Publish 发送一批事件并等待 ack，返回第一批失败的汇总错误
func (p *OutcomePublisher) Publish(ctx context.Context, events []*OutcomeEvent) error {
	jobs := make([]*KafkaJob, 0, len(events))
	var errs []error
	for _, event := range events {
		job, err := p.BuildJob(event)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		jobs = append(jobs, job)
	}

	if len(jobs) > 0 {
		_, failed := SendKafkaJobs(ctx, p.producer, jobs, p.sendTimeout)
		for _, f := range failed {
			errs = append(errs, fmt.Errorf("partition %d: %w", f.Job.Partition, f.Err))
		}
	}
	return errors.Join(errs...)
}

func (p *OutcomePublisher) Close() {
	if p.closer != nil {
		p.closer()
	}
}
