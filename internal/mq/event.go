package mq

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// 事件类型，写在消息的前 4 字节
const (
	EventTypeTxPending uint32 = 1
	EventTypeTxOutcome uint32 = 2
)

// OutcomeEvent 一笔交易的状态变化（已提交 / 终态）
type OutcomeEvent struct {
	SubmissionID string
	Signature    string
	BatchIndex   int
	Index        int
	Outcome      string // pending / confirmed / rejected / timed_out
	Slot         uint64
	Detail       string
	Source       string
	Timestamp    int64 // unix 毫秒
}

func (e *OutcomeEvent) EventType() uint32 {
	if e.Outcome == "pending" {
		return EventTypeTxPending
	}
	return EventTypeTxOutcome
}

func (e *OutcomeEvent) ToProto() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"submission_id": e.SubmissionID,
		"signature":     e.Signature,
		"batch_index":   e.BatchIndex,
		"index":         e.Index,
		"outcome":       e.Outcome,
		// slot 用字符串，避免 float64 丢精度
		"slot":      fmt.Sprintf("%d", e.Slot),
		"detail":    e.Detail,
		"source":    e.Source,
		"timestamp": e.Timestamp,
	})
}

func OutcomeEventFromProto(s *structpb.Struct) (*OutcomeEvent, error) {
	fields := s.GetFields()
	e := &OutcomeEvent{
		SubmissionID: fields["submission_id"].GetStringValue(),
		Signature:    fields["signature"].GetStringValue(),
		BatchIndex:   int(fields["batch_index"].GetNumberValue()),
		Index:        int(fields["index"].GetNumberValue()),
		Outcome:      fields["outcome"].GetStringValue(),
		Detail:       fields["detail"].GetStringValue(),
		Source:       fields["source"].GetStringValue(),
		Timestamp:    int64(fields["timestamp"].GetNumberValue()),
	}
	if slot := fields["slot"].GetStringValue(); slot != "" {
		if _, err := fmt.Sscanf(slot, "%d", &e.Slot); err != nil {
			return nil, fmt.Errorf("invalid slot %q: %w", slot, err)
		}
	}
	if e.Signature == "" {
		return nil, fmt.Errorf("outcome event without signature")
	}
	return e, nil
}
