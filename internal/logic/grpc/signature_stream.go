package grpc

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"time"

	"gov-txengine-sol/internal/config"
	"gov-txengine-sol/internal/logic/core"
	"gov-txengine-sol/pkg/logger"

	"github.com/mr-tron/base58"
	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/threading"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultSendTimeout    = 5 * time.Second
	defaultPingInterval   = 10 * time.Second
)

// SignatureStreamManager 通过 Yellowstone gRPC 订阅单个签名的执行结果，实现 core.Subscriber。
// 连接共享，每个订阅各自开一条 Subscribe 流，ctx 结束即关闭。
type SignatureStreamManager struct {
	conn         *grpc.ClientConn
	client       pb.GeyserClient
	xToken       string
	commitment   pb.CommitmentLevel
	pingInterval time.Duration
	sendTimeout  time.Duration
}

var _ core.Subscriber = (*SignatureStreamManager)(nil)

func NewSignatureStreamManager(grpcConf config.GrpcConfig, commitment core.Commitment) (*SignatureStreamManager, error) {
	connectTimeout := secondsOr(grpcConf.ConnectTimeoutSec, defaultConnectTimeout)
	dialCtx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	creds := credentials.NewTLS(&tls.Config{InsecureSkipVerify: true})
	if grpcConf.Insecure {
		creds = insecure.NewCredentials()
	}
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithBlock(),
	}
	if grpcConf.MaxCallSendMsgSize > 0 && grpcConf.MaxCallRecvMsgSize > 0 {
		opts = append(opts, grpc.WithDefaultCallOptions(
			grpc.MaxCallSendMsgSize(grpcConf.MaxCallSendMsgSize),
			grpc.MaxCallRecvMsgSize(grpcConf.MaxCallRecvMsgSize),
		))
	}
	if grpcConf.KeepalivePingIntervalSec > 0 {
		opts = append(opts, grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                time.Duration(grpcConf.KeepalivePingIntervalSec) * time.Second,
			Timeout:             secondsOr(grpcConf.KeepalivePingTimeoutSec, 5*time.Second),
			PermitWithoutStream: true,
		}))
	}

	conn, err := grpc.DialContext(dialCtx, grpcConf.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect %s: %w", grpcConf.Endpoint, err)
	}
	logger.Infof("[SignatureStream] 已连接 %s", grpcConf.Endpoint)

	m := newSignatureStreamManager(conn, grpcConf.XToken, commitment)
	m.pingInterval = secondsOr(grpcConf.StreamPingIntervalSec, defaultPingInterval)
	m.sendTimeout = secondsOr(grpcConf.SendTimeoutSec, defaultSendTimeout)
	return m, nil
}

func newSignatureStreamManager(conn *grpc.ClientConn, xToken string, commitment core.Commitment) *SignatureStreamManager {
	return &SignatureStreamManager{
		conn:         conn,
		client:       pb.NewGeyserClient(conn),
		xToken:       xToken,
		commitment:   commitmentLevel(commitment),
		pingInterval: defaultPingInterval,
		sendTimeout:  defaultSendTimeout,
	}
}

func (m *SignatureStreamManager) Close() error {
	if m.conn == nil {
		return nil
	}
	return m.conn.Close()
}

func (m *SignatureStreamManager) SubscribeSignature(ctx context.Context, signature string) (<-chan core.SignatureNotification, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	if m.xToken != "" {
		streamCtx = metadata.NewOutgoingContext(streamCtx, metadata.New(map[string]string{"x-token": m.xToken}))
	}

	stream, err := m.client.Subscribe(streamCtx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	if err := sendWithTimeout(streamCtx, stream.Send, buildSignatureRequest(signature, m.commitment), m.sendTimeout); err != nil {
		cancel()
		return nil, fmt.Errorf("send subscribe request: %w", err)
	}

	out := make(chan core.SignatureNotification, 1)
	threading.GoSafe(func() { m.pingLoop(streamCtx, stream) })
	threading.GoSafe(func() {
		defer cancel()
		m.recvLoop(streamCtx, stream, signature, out)
	})
	return out, nil
}

func buildSignatureRequest(signature string, commitment pb.CommitmentLevel) *pb.SubscribeRequest {
	transactions := map[string]*pb.SubscribeRequestFilterTransactions{
		"signature": {
			Signature: &signature,
		},
	}
	return &pb.SubscribeRequest{
		Transactions: transactions,
		Commitment:   &commitment,
	}
}

func (m *SignatureStreamManager) recvLoop(ctx context.Context, stream pb.Geyser_SubscribeClient, signature string, out chan<- core.SignatureNotification) {
	defer close(out)
	log := logx.WithContext(ctx).WithFields(logx.Field("signature", signature))

	for {
		update, err := stream.Recv()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				log.Errorf("[SignatureStream] Stream error: %v", err)
			}
			return
		}

		n, ok := notificationFromUpdate(update, signature)
		if !ok {
			continue
		}
		select {
		case out <- n:
		case <-ctx.Done():
		}
		return
	}
}

// notificationFromUpdate 只接受与签名匹配的交易更新，ping/pong 等其余消息忽略
func notificationFromUpdate(update *pb.SubscribeUpdate, signature string) (core.SignatureNotification, bool) {
	u, ok := update.GetUpdateOneof().(*pb.SubscribeUpdate_Transaction)
	if !ok || u.Transaction == nil || u.Transaction.Transaction == nil {
		return core.SignatureNotification{}, false
	}
	info := u.Transaction.Transaction
	if base58.Encode(info.Signature) != signature {
		return core.SignatureNotification{}, false
	}

	n := core.SignatureNotification{Slot: u.Transaction.Slot}
	if meta := info.GetMeta(); meta != nil && meta.Err != nil {
		n.Err = TransactionErrorDetail(meta.Err.Err)
	}
	return n, true
}

func (m *SignatureStreamManager) pingLoop(ctx context.Context, stream pb.Geyser_SubscribeClient) {
	ticker := time.NewTicker(m.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingReq := &pb.SubscribeRequest{
				Ping: &pb.SubscribeRequestPing{Id: 1},
			}
			if err := sendWithTimeout(ctx, stream.Send, pingReq, m.sendTimeout); err != nil && ctx.Err() == nil {
				logger.Errorf("[SignatureStream] Ping failed: %v", err)
			}
		}
	}
}

// 带超时的 Send
func sendWithTimeout[T any](ctx context.Context, sendFunc func(T) error, req T, timeout time.Duration) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	threading.GoSafe(func() {
		done <- sendFunc(req)
	})

	select {
	case <-timeoutCtx.Done():
		return timeoutCtx.Err()
	case err := <-done:
		return err
	}
}

func commitmentLevel(c core.Commitment) pb.CommitmentLevel {
	switch c {
	case core.CommitmentProcessed:
		return pb.CommitmentLevel_PROCESSED
	case core.CommitmentFinalized:
		return pb.CommitmentLevel_FINALIZED
	default:
		return pb.CommitmentLevel_CONFIRMED
	}
}

func secondsOr(sec int, def time.Duration) time.Duration {
	if sec <= 0 {
		return def
	}
	return time.Duration(sec) * time.Second
}
