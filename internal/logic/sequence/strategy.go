package sequence

import (
	"fmt"
	"strings"

	"gov-txengine-sol/internal/logic/core"
)

// Mode 批次之间的调度方式
type Mode int

const (
	ModeParallel Mode = iota
	ModeSequential
	ModeStopOnFailure
)

func (m Mode) String() string {
	switch m {
	case ModeParallel:
		return "parallel"
	case ModeSequential:
		return "sequential"
	case ModeStopOnFailure:
		return "stop_on_failure"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "-", "_")) {
	case "parallel":
		return ModeParallel, nil
	case "sequential":
		return ModeSequential, nil
	case "stop_on_failure", "stoponfailure":
		return ModeStopOnFailure, nil
	default:
		return 0, core.NewConfigurationError("unknown mode %q", s)
	}
}

type Decision int

const (
	Continue Decision = iota
	Stop
)

// BatchResult 一个批次内所有已提交交易的终态
type BatchResult struct {
	Index   int
	Results []core.ConfirmationResult
}

// Failed 批次中任意一笔被拒绝或超时即视为失败；空批次不算失败
func (r BatchResult) Failed() bool {
	for _, res := range r.Results {
		if !res.Succeeded() {
			return true
		}
	}
	return false
}

// Strategy 决定批次如何调度：全部并发，或逐批等待并在每批结束后决定是否继续
type Strategy interface {
	Concurrent() bool
	Next(result BatchResult) Decision
}

func StrategyFor(mode Mode) (Strategy, error) {
	switch mode {
	case ModeParallel:
		return parallelStrategy{}, nil
	case ModeSequential:
		return sequentialStrategy{}, nil
	case ModeStopOnFailure:
		return stopOnFailureStrategy{}, nil
	default:
		return nil, core.NewConfigurationError("unknown mode %d", int(mode))
	}
}

type parallelStrategy struct{}

func (parallelStrategy) Concurrent() bool { return true }
func (parallelStrategy) Next(BatchResult) Decision { return Continue }

type sequentialStrategy struct{}

func (sequentialStrategy) Concurrent() bool { return false }
func (sequentialStrategy) Next(BatchResult) Decision { return Continue }

type stopOnFailureStrategy struct{}

func (stopOnFailureStrategy) Concurrent() bool { return false }

func (stopOnFailureStrategy) Next(result BatchResult) Decision {
	if result.Failed() {
		return Stop
	}
	return Continue
}
