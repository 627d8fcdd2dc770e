package svc

import (
	"time"

	"gov-txengine-sol/internal/config"
	"gov-txengine-sol/internal/logic/core"
	"gov-txengine-sol/internal/logic/grpc"
	"gov-txengine-sol/internal/logic/progress"
	"gov-txengine-sol/internal/logic/sequence"
	"gov-txengine-sol/internal/metrics"
	"gov-txengine-sol/internal/mq"
	"gov-txengine-sol/internal/network"
	"gov-txengine-sol/internal/wallet"
	"gov-txengine-sol/pkg/logger"

	"github.com/redis/go-redis/v9"
	zerosvc "github.com/zeromicro/go-zero/core/service"
)

// ServiceContext 进程内共享的资源：RPC、推送通道、钱包、结果记录与协调器
type ServiceContext struct {
	Config      config.Config
	Network     *network.SolanaNetwork
	Subscriber  core.Subscriber // 未配置推送通道时为 nil，只依赖轮询
	Wallet      core.Wallet
	Journal     *progress.Journal // 未配置 Redis / Kafka 时为 nil
	Coordinator *sequence.Coordinator

	group   *zerosvc.ServiceGroup
	closers []func()
}

// NewServiceContext w 为 nil 时从 KeypairPath 加载本地钱包
func NewServiceContext(c config.Config, w core.Wallet) (*ServiceContext, error) {
	opts := c.Engine.ToEngineOption()
	sc := &ServiceContext{
		Config: c,
		group:  zerosvc.NewServiceGroup(),
	}

	// 1. 节点 RPC
	solNet, err := network.NewSolanaNetwork(network.SolanaOption{
		Endpoint:       c.Rpc.Endpoint,
		Timeout:        c.Rpc.Timeout(),
		Commitment:     opts.Commitment,
		SkipPreflight:  opts.SkipPreflight,
		SendMaxRetries: opts.SendMaxRetries,
	})
	if err != nil {
		return nil, err
	}
	sc.Network = solNet

	// 2. 推送通道：gRPC 优先，其次 websocket
	if err := sc.initSubscriber(c, opts.Commitment); err != nil {
		sc.Close()
		return nil, err
	}

	// 3. 钱包
	if w == nil && c.KeypairPath != "" {
		kw, err := wallet.LoadKeypairWallet(c.KeypairPath)
		if err != nil {
			sc.Close()
			return nil, err
		}
		w = kw
		logger.Infof("已加载本地钱包 %s", kw.PublicKey().ToBase58())
	}
	sc.Wallet = w

	// 4. 结果记录（Redis 状态 + Kafka 事件）
	if err := sc.initJournal(c); err != nil {
		sc.Close()
		return nil, err
	}

	if c.MetricsAddr != "" {
		sc.group.Add(metrics.NewServer(c.MetricsAddr))
	}

	// 5. 协调器
	coordinatorOpts := []sequence.CoordinatorOption{sequence.WithWorkers(c.Engine.Workers)}
	if sc.Journal != nil {
		coordinatorOpts = append(coordinatorOpts, sequence.WithOutcomeSink(sc.Journal))
	}
	sc.Coordinator = sequence.NewCoordinator(sc.Network, sc.Subscriber, sc.Wallet, opts, coordinatorOpts...)

	logger.Infof("服务上下文初始化完成")
	return sc, nil
}

func (sc *ServiceContext) initSubscriber(c config.Config, commitment core.Commitment) error {
	if c.Grpc.Enabled() {
		stream, err := grpc.NewSignatureStreamManager(c.Grpc, commitment)
		if err != nil {
			logger.Errorf("gRPC 推送通道初始化失败: %v", err)
			return err
		}
		sc.Subscriber = stream
		sc.closers = append(sc.closers, func() { _ = stream.Close() })
		return nil
	}

	if c.Rpc.WsEndpoint == "" {
		logger.Infof("未配置推送通道，只依赖轮询确认")
		return nil
	}
	wsEndpoint := c.Rpc.WsEndpoint
	if wsEndpoint == config.WsEndpointAuto {
		wsEndpoint = network.WsEndpointFromRpc(c.Rpc.Endpoint)
	}
	ws, err := network.NewWsSubscriber(network.WsOption{Endpoint: wsEndpoint, Commitment: commitment})
	if err != nil {
		return err
	}
	sc.Subscriber = ws
	return nil
}

func (sc *ServiceContext) initJournal(c config.Config) error {
	var store progress.StatusStore
	var publisher progress.EventPublisher

	if c.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
		store = progress.NewRedisProgressStore(rdb)
		sc.closers = append(sc.closers, func() { _ = rdb.Close() })
	}

	if c.KafkaProducerConf.Enabled() {
		producer, err := mq.NewKafkaProducer(c.KafkaProducerConf.ToKafkaOption())
		if err != nil {
			logger.Errorf("Kafka producer 初始化失败: %v", err)
			return err
		}
		op := c.KafkaProducerConf.ToKafkaOption()
		p := mq.NewOutcomePublisher(producer, c.KafkaProducerConf.Topic, op.Topics[0].Partitions,
			time.Duration(c.KafkaProducerConf.SendTimeoutMs)*time.Millisecond)
		publisher = p
		sc.closers = append(sc.closers, p.Close)
	}

	if store == nil && publisher == nil {
		return nil
	}
	sc.Journal = progress.NewJournal(store, publisher, time.Duration(c.KafkaProducerConf.FlushIntervalMs)*time.Millisecond)
	sc.group.Add(sc.Journal)
	return nil
}

// Start 启动后台服务（结果事件 flush、metrics），不阻塞
func (sc *ServiceContext) Start() {
	if sc.group != nil {
		sc.group.Start()
	}
}

// Close 停止后台服务并释放连接，Journal 会先把剩余事件发送出去
func (sc *ServiceContext) Close() {
	if sc.group != nil {
		sc.group.Stop()
	}
	for i := len(sc.closers) - 1; i >= 0; i-- {
		sc.closers[i]()
	}
	sc.closers = nil
}
