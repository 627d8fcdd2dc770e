package core

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrSubmission    = errors.New("submission error")
	ErrOnChain       = errors.New("on-chain error")
	ErrTimedOut      = errors.New("transaction timed out")
)

// ConfigurationError 调用方配置问题（钱包未连接、公钥无法解析、指令为空等），不重试
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

func NewConfigurationError(format string, args ...any) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// SubmissionError 传输层提交失败，由 Broadcaster 在截止时间内自行重试
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission error: %v", e.Err)
}

func (e *SubmissionError) Unwrap() []error { return []error{ErrSubmission, e.Err} }

// OnChainError 交易已执行但被程序逻辑拒绝，重发没有意义
type OnChainError struct {
	Signature string
	Detail    string
}

func (e *OnChainError) Error() string {
	return fmt.Sprintf("transaction %s failed on-chain: %s", e.Signature, e.Detail)
}

func (e *OnChainError) Unwrap() error { return ErrOnChain }

// TimeoutError 截止时间内既没有成功也没有确定性失败，交易之后仍可能上链
type TimeoutError struct {
	Signature  string
	Diagnostic string // 模拟执行得到的诊断信息，可能为空
}

func (e *TimeoutError) Error() string {
	if e.Diagnostic == "" {
		return fmt.Sprintf("transaction %s timed out", e.Signature)
	}
	return fmt.Sprintf("transaction %s timed out: %s", e.Signature, e.Diagnostic)
}

func (e *TimeoutError) Unwrap() error { return ErrTimedOut }

// Ambiguous 超时结果是不确定的，UI 应提示用户去浏览器自行确认
func (e *TimeoutError) Ambiguous() bool { return true }
