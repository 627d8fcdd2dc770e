package network

import (
	"encoding/json"
	"fmt"
	"strings"
)

// rpcResponse 通用的 JSON-RPC 响应，result 延迟解析
type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RpcError       `json:"error"`
}

// RpcError 节点返回的 JSON-RPC 错误。sendTransaction 的预检失败会在 Data 中带上程序日志。
type RpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RpcError) Error() string {
	logs := e.Logs()
	if len(logs) == 0 {
		return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("rpc error %d: %s (last log: %s)", e.Code, e.Message, logs[len(logs)-1])
}

// Logs 预检失败时节点附带的程序日志
func (e *RpcError) Logs() []string {
	if len(e.Data) == 0 {
		return nil
	}
	var data struct {
		Logs []string `json:"logs"`
	}
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil
	}
	return data.Logs
}

// decodeResult 解析响应体，节点返回 error 时转换为 *RpcError
func decodeResult(body []byte, out any) error {
	var resp rpcResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decode rpc response: %w", err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out == nil {
		return nil
	}
	if len(resp.Result) == 0 {
		return fmt.Errorf("rpc response has no result")
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("decode rpc result: %w", err)
	}
	return nil
}

// errorDetail 把链上错误（任意 JSON 值）转换为可读字符串，nil 表示没有错误
func errorDetail(v any) string {
	switch e := v.(type) {
	case nil:
		return ""
	case string:
		return e
	default:
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Sprintf("%v", e)
		}
		s := string(b)
		if s == "null" || s == "{}" {
			return ""
		}
		return strings.TrimSpace(s)
	}
}
