package fee

import (
	"context"
	"sort"
	"time"

	"gov-txengine-sol/internal/logic/core"
	"gov-txengine-sol/internal/metrics"
	"gov-txengine-sol/pkg/logger"

	"github.com/blocto/solana-go-sdk/common"
)

const fetchTimeout = 5 * time.Second

// Estimator 根据最近的优先费样本估算一个优先费。不返回错误：任何异常都回退到默认值。
type Estimator struct {
	network    core.Network
	defaultFee uint64
	maxFee     uint64
}

func NewEstimator(network core.Network, opts core.Options) *Estimator {
	opts = opts.Normalize()
	return &Estimator{
		network:    network,
		defaultFee: opts.DefaultPriorityFee,
		maxFee:     opts.MaxPriorityFee,
	}
}

// Estimate 取样本中位数作为优先费；样本为空或拉取失败时用默认值；
// 中位数超过上限时同样回退到默认值（而不是上限），避免在费用暴涨时支付天价。
func (e *Estimator) Estimate(ctx context.Context, accounts ...common.PublicKey) uint64 {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	samples, err := e.network.RecentFeeSamples(fetchCtx, accounts)
	if err != nil {
		logger.Warnf("[FeeEstimator] 拉取优先费样本失败，使用默认值 %d: %v", e.defaultFee, err)
		return e.fallback("fetch_error")
	}
	if len(samples) == 0 {
		logger.Infof("[FeeEstimator] 优先费样本为空，使用默认值 %d", e.defaultFee)
		return e.fallback("empty")
	}

	values := make([]uint64, len(samples))
	for i, s := range samples {
		values[i] = s.Fee
	}
	mean := Mean(values)
	median := Median(values)

	if median > e.maxFee {
		logger.Warnf("[FeeEstimator] 中位数 %d 超过上限 %d（均值 %.2f，样本 %d），回退到默认值 %d",
			median, e.maxFee, mean, len(values), e.defaultFee)
		return e.fallback("clamped")
	}

	logger.Infof("[FeeEstimator] 样本数: %d, 均值: %.2f, 中位数: %d", len(values), mean, median)
	metrics.PriorityFee.Set(float64(median))
	return median
}

func (e *Estimator) fallback(reason string) uint64 {
	metrics.FeeFallbacks.WithLabelValues(reason).Inc()
	metrics.PriorityFee.Set(float64(e.defaultFee))
	return e.defaultFee
}

// Median 偶数个样本时取中间两个值的平均（向下取整）。不修改入参。
func Median(values []uint64) uint64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]uint64, n)
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	lo, hi := sorted[mid-1], sorted[mid]
	return lo + (hi-lo)/2
}

func Mean(values []uint64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	return sum / float64(len(values))
}
