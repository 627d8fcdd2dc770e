package sequence

import (
	"context"
	"fmt"
	"time"

	"gov-txengine-sol/internal/logic/assembler"
	"gov-txengine-sol/internal/logic/broadcast"
	"gov-txengine-sol/internal/logic/confirm"
	"gov-txengine-sol/internal/logic/core"
	"gov-txengine-sol/internal/logic/fee"
	"gov-txengine-sol/internal/types"
	"gov-txengine-sol/pkg/utils"

	"github.com/blocto/solana-go-sdk/common"
	solTypes "github.com/blocto/solana-go-sdk/types"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"
)

// getRecentPrioritizationFees 最多接受 128 个账户
const maxFeeAccounts = 128

// Coordinator 一次提交的入口：估算费用 → 组装 → 钱包签名 → 按模式广播并等待终态 → 回调
type Coordinator struct {
	network     core.Network
	wallet      core.Wallet
	sink        core.OutcomeSink
	estimator   *fee.Estimator
	assembler   *assembler.Assembler
	broadcaster *broadcast.Broadcaster
	tracker     *confirm.Tracker
	opts        core.Options
	workers     int
}

type CoordinatorOption func(*Coordinator)

// WithOutcomeSink 终态旁路记录，默认不记录
func WithOutcomeSink(sink core.OutcomeSink) CoordinatorOption {
	return func(c *Coordinator) { c.sink = sink }
}

// WithWorkers Parallel 模式下同时在途的交易数上限，<= 0 不限制
func WithWorkers(workers int) CoordinatorOption {
	return func(c *Coordinator) { c.workers = workers }
}

func NewCoordinator(network core.Network, subscriber core.Subscriber, wallet core.Wallet, opts core.Options, options ...CoordinatorOption) *Coordinator {
	opts = opts.Normalize()
	c := &Coordinator{
		network:     network,
		wallet:      wallet,
		estimator:   fee.NewEstimator(network, opts),
		assembler:   assembler.NewAssembler(opts),
		broadcaster: broadcast.NewBroadcaster(network, opts),
		tracker:     confirm.NewTracker(network, subscriber, opts),
		opts:        opts,
	}
	for _, o := range options {
		o(c)
	}
	return c
}

// pendingTx 已签名、已序列化，等待广播的交易
type pendingTx struct {
	signed  *core.SignedTx
	payload *broadcast.Payload
}

// Submit 处理一组批次。组装与签名阶段的错误同步返回（此时没有任何交易被发出，也没有回调）；
// 进入广播阶段后，每笔交易的结果只通过回调和 Report 给出。
func (c *Coordinator) Submit(ctx context.Context, batches []core.Batch, mode Mode, cb Callbacks) (*Report, error) {
	strategy, err := StrategyFor(mode)
	if err != nil {
		return nil, err
	}
	if c.wallet == nil {
		return nil, core.NewConfigurationError("wallet is not connected")
	}
	feePayer := c.wallet.PublicKey()
	if types.PubkeyFromCommon(feePayer).IsZero() {
		return nil, core.NewConfigurationError("wallet is not connected")
	}

	report := &Report{
		SubmissionID: uuid.NewString(),
		Mode:         mode,
		FailedBatch:  -1,
	}
	log := logx.WithContext(ctx).WithFields(logx.Field("submission", report.SubmissionID), logx.Field("mode", mode.String()))

	requests, locations := flatten(batches)
	report.Total = len(requests)
	if report.Total == 0 {
		log.Infof("[Coordinator] 没有需要提交的交易")
		return report, nil
	}

	// 费用与 checkpoint 每次提交只取一次，所有交易共享
	report.PriorityFee = c.estimator.Estimate(ctx, writableAccounts(requests)...)
	checkpoint, err := c.latestCheckpoint(ctx)
	if err != nil {
		return nil, err
	}

	pending, err := c.prepare(ctx, requests, locations, feePayer, checkpoint, report.PriorityFee)
	if err != nil {
		return nil, err
	}

	report.Outcomes = make([]TxOutcome, len(pending))
	for i, p := range pending {
		report.Outcomes[i] = TxOutcome{BatchIndex: p.signed.BatchIndex, Index: i, Signature: p.payload.Signature}
		if c.sink != nil {
			c.sink.RecordPending(ctx, report.SubmissionID, p.signed)
		}
	}
	log.Infof("[Coordinator] 开始广播 %d 笔交易（%d 个批次），优先费: %d", report.Total, len(batches), report.PriorityFee)

	n := newNotifier(cb, report.Total)
	run := func(p *pendingTx) core.ConfirmationResult {
		result := c.tracker.Track(ctx, p.signed, func(ctx context.Context) {
			c.broadcaster.Run(ctx, p.payload)
		})
		idx := p.signed.Index
		report.Outcomes[idx].Submitted = true
		report.Outcomes[idx].Result = result
		if c.sink != nil {
			c.sink.RecordResult(ctx, report.SubmissionID, p.signed, result)
		}
		n.notify(idx, result)
		return result
	}

	if strategy.Concurrent() {
		results := utils.ParallelMap(pending, c.workers, run)
		for _, batch := range groupByBatch(pending, results, len(batches)) {
			if batch.Failed() {
				report.FailedBatch = batch.Index
				break
			}
		}
	} else {
		byBatch := make([][]*pendingTx, len(batches))
		for _, p := range pending {
			byBatch[p.signed.BatchIndex] = append(byBatch[p.signed.BatchIndex], p)
		}
		for i, group := range byBatch {
			// 同一批次内的交易互不依赖，并发发送，全部终态后才进入下一批
			batch := BatchResult{Index: i, Results: utils.ParallelMap(group, 0, run)}
			if batch.Failed() && report.FailedBatch < 0 {
				report.FailedBatch = i
			}
			if strategy.Next(batch) == Stop {
				report.Stopped = true
				log.Infof("[Coordinator] 批次 %d 失败，停止后续批次", i)
				break
			}
		}
	}

	confirmed, failed, notSubmitted := report.Counts()
	log.Infof("[Coordinator] 提交结束，成功: %d, 失败: %d, 未提交: %d", confirmed, failed, notSubmitted)
	return report, nil
}

// EstimateFee 单独估算一次优先费
func (c *Coordinator) EstimateFee(ctx context.Context, accounts ...common.PublicKey) uint64 {
	return c.estimator.Estimate(ctx, accounts...)
}

func (c *Coordinator) latestCheckpoint(ctx context.Context) (core.Checkpoint, error) {
	var checkpoint core.Checkpoint
	operation := func() error {
		var err error
		checkpoint, err = c.network.LatestCheckpoint(ctx, c.opts.Commitment)
		if err == nil && checkpoint.Blockhash == "" {
			err = fmt.Errorf("empty blockhash")
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = 3 * time.Second

	err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), func(err error, next time.Duration) {
		logx.WithContext(ctx).Infof("[Coordinator] 获取 blockhash 失败，%v 后重试: %v", next, err)
	})
	if err != nil {
		return core.Checkpoint{}, &core.SubmissionError{Err: fmt.Errorf("latest blockhash: %w", err)}
	}
	return checkpoint, nil
}

// prepare 组装全部交易，一次性交给钱包签名，再检查签名是否齐全并序列化
func (c *Coordinator) prepare(
	ctx context.Context,
	requests []core.TxRequest,
	locations []int,
	feePayer common.PublicKey,
	checkpoint core.Checkpoint,
	priorityFee uint64,
) ([]*pendingTx, error) {
	unsigned := make([]solTypes.Transaction, len(requests))
	for i, req := range requests {
		signed, err := c.assembler.Assemble(core.Template{Instructions: req.Instructions}, req.Signers, feePayer, checkpoint, priorityFee)
		if err != nil {
			return nil, fmt.Errorf("transaction #%d (batch %d): %w", i, locations[i], err)
		}
		unsigned[i] = signed.Tx
	}

	signedTxs, err := c.wallet.SignAll(ctx, unsigned)
	if err != nil {
		return nil, fmt.Errorf("%w: wallet signing: %w", core.ErrConfiguration, err)
	}
	if len(signedTxs) != len(unsigned) {
		return nil, core.NewConfigurationError("wallet returned %d transactions, expected %d", len(signedTxs), len(unsigned))
	}

	pending := make([]*pendingTx, len(signedTxs))
	for i, tx := range signedTxs {
		signed := &core.SignedTx{Tx: tx, BatchIndex: locations[i], Index: i}
		payload, err := c.broadcaster.Prepare(signed)
		if err != nil {
			return nil, fmt.Errorf("transaction #%d (batch %d): %w", i, locations[i], err)
		}
		pending[i] = &pendingTx{signed: signed, payload: payload}
	}
	return pending, nil
}

// flatten 跳过空交易，返回非空交易及其所属批次
func flatten(batches []core.Batch) ([]core.TxRequest, []int) {
	var requests []core.TxRequest
	var locations []int
	for i, batch := range batches {
		for _, req := range batch.Transactions {
			if req.IsEmpty() {
				continue
			}
			requests = append(requests, req)
			locations = append(locations, i)
		}
	}
	return requests, locations
}

func writableAccounts(requests []core.TxRequest) []common.PublicKey {
	seen := make(map[common.PublicKey]struct{})
	accounts := make([]common.PublicKey, 0)
	for _, req := range requests {
		for _, ix := range req.Instructions {
			for _, meta := range ix.Accounts {
				if !meta.IsWritable {
					continue
				}
				if _, ok := seen[meta.PubKey]; ok {
					continue
				}
				if len(accounts) == maxFeeAccounts {
					return accounts
				}
				seen[meta.PubKey] = struct{}{}
				accounts = append(accounts, meta.PubKey)
			}
		}
	}
	return accounts
}

func groupByBatch(pending []*pendingTx, results []core.ConfirmationResult, batchCount int) []BatchResult {
	batches := make([]BatchResult, batchCount)
	for i := range batches {
		batches[i].Index = i
	}
	for i, p := range pending {
		b := p.signed.BatchIndex
		batches[b].Results = append(batches[b].Results, results[i])
	}
	return batches
}
