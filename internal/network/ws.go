package network

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gov-txengine-sol/internal/logic/core"

	"github.com/gorilla/websocket"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/threading"
)

const (
	defaultDialTimeout  = 5 * time.Second
	unsubscribeDeadline = time.Second
)

type WsOption struct {
	Endpoint    string
	Commitment  core.Commitment
	DialTimeout time.Duration
}

// WsSubscriber 基于 signatureSubscribe 的 core.Subscriber 实现。
// 每个订阅独占一条连接，节点推送一次通知后订阅即失效。
type WsSubscriber struct {
	endpoint    string
	commitment  core.Commitment
	dialTimeout time.Duration
	dialer      *websocket.Dialer
}

var _ core.Subscriber = (*WsSubscriber)(nil)

func NewWsSubscriber(opt WsOption) (*WsSubscriber, error) {
	if opt.Endpoint == "" {
		return nil, core.NewConfigurationError("websocket endpoint is empty")
	}
	if opt.DialTimeout <= 0 {
		opt.DialTimeout = defaultDialTimeout
	}
	if opt.Commitment == "" {
		opt.Commitment = core.CommitmentConfirmed
	}
	return &WsSubscriber{
		endpoint:    opt.Endpoint,
		commitment:  opt.Commitment,
		dialTimeout: opt.DialTimeout,
		dialer: &websocket.Dialer{
			HandshakeTimeout: opt.DialTimeout,
		},
	}, nil
}

// WsEndpointFromRpc 由 http(s) RPC 地址推导 ws(s) 地址
func WsEndpointFromRpc(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")
	default:
		return endpoint
	}
}

type wsRequest struct {
	JsonRpc string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type wsMessage struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RpcError       `json:"error"`
	Method string          `json:"method"`
	Params *struct {
		Subscription uint64 `json:"subscription"`
		Result       struct {
			Context struct {
				Slot uint64 `json:"slot"`
			} `json:"context"`
			Value struct {
				Err any `json:"err"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

func (s *WsSubscriber) SubscribeSignature(ctx context.Context, signature string) (<-chan core.SignatureNotification, error) {
	dialCtx, cancel := context.WithTimeout(ctx, s.dialTimeout)
	defer cancel()

	conn, _, err := s.dialer.DialContext(dialCtx, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", s.endpoint, err)
	}

	subID, err := s.subscribe(conn, signature)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	out := make(chan core.SignatureNotification, 1)
	threading.GoSafe(func() {
		s.readLoop(ctx, conn, subID, signature, out)
	})
	return out, nil
}

func (s *WsSubscriber) subscribe(conn *websocket.Conn, signature string) (uint64, error) {
	deadline := time.Now().Add(s.dialTimeout)
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.SetReadDeadline(deadline)
	defer func() {
		_ = conn.SetWriteDeadline(time.Time{})
		_ = conn.SetReadDeadline(time.Time{})
	}()

	req := wsRequest{
		JsonRpc: "2.0",
		ID:      1,
		Method:  "signatureSubscribe",
		Params:  []any{signature, map[string]any{"commitment": string(s.commitment)}},
	}
	if err := conn.WriteJSON(req); err != nil {
		return 0, fmt.Errorf("signatureSubscribe: %w", err)
	}

	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		return 0, fmt.Errorf("signatureSubscribe: %w", err)
	}
	if msg.Error != nil {
		return 0, fmt.Errorf("signatureSubscribe: %w", msg.Error)
	}
	var subID uint64
	if err := json.Unmarshal(msg.Result, &subID); err != nil {
		return 0, fmt.Errorf("signatureSubscribe: invalid subscription id %q", string(msg.Result))
	}
	return subID, nil
}

// readLoop 读取到第一条匹配的通知后返回；ctx 结束时退订并关闭连接以打断阻塞的读
func (s *WsSubscriber) readLoop(ctx context.Context, conn *websocket.Conn, subID uint64, signature string, out chan<- core.SignatureNotification) {
	defer close(out)
	log := logx.WithContext(ctx).WithFields(logx.Field("signature", signature))

	done := make(chan struct{})
	defer close(done)
	threading.GoSafe(func() {
		select {
		case <-ctx.Done():
			s.unsubscribe(conn, subID)
		case <-done:
		}
		_ = conn.Close()
	})

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() == nil {
				log.Errorf("[WsSubscriber] 读取通知失败: %v", err)
			}
			return
		}
		if msg.Method != "signatureNotification" || msg.Params == nil || msg.Params.Subscription != subID {
			continue
		}

		n := core.SignatureNotification{
			Slot: msg.Params.Result.Context.Slot,
			Err:  errorDetail(msg.Params.Result.Value.Err),
		}
		select {
		case out <- n:
		case <-ctx.Done():
		}
		return
	}
}

func (s *WsSubscriber) unsubscribe(conn *websocket.Conn, subID uint64) {
	_ = conn.SetWriteDeadline(time.Now().Add(unsubscribeDeadline))
	req := wsRequest{
		JsonRpc: "2.0",
		ID:      2,
		Method:  "signatureUnsubscribe",
		Params:  []any{subID},
	}
	if err := conn.WriteJSON(req); err != nil {
		logx.Debugf("[WsSubscriber] signatureUnsubscribe 发送失败: %v", err)
	}
}
