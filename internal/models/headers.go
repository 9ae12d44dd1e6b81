package models

import (
	"fmt"
	"net/http"
	"strings"
)

// HeaderSource 请求头来源,合并时后者覆盖前者
type HeaderSource int

const (
	HeaderSourceDefault HeaderSource = iota // 内置默认值
	HeaderSourceConfig                      // 配置文件 headers 段
	HeaderSourceCLI                         // 命令行 -H
)

func (s HeaderSource) String() string {
	switch s {
	case HeaderSourceConfig:
		return "配置文件"
	case HeaderSourceCLI:
		return "命令行"
	default:
		return "默认"
	}
}

// CliHeaders -H 参数,每项为 "Name: Value"
type CliHeaders []string

// Parse 解析为http.Header,同名头部以最后一次为准
// 值中可以再出现冒号,只按第一个冒号切分
func (ch CliHeaders) Parse() (http.Header, error) {
	headers := make(http.Header, len(ch))
	for i, raw := range ch {
		name, value, ok := strings.Cut(raw, ":")
		if !ok {
			return nil, fmt.Errorf("-H 第%d项 %q 缺少冒号,格式应为 'Name: Value'", i+1, raw)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("-H 第%d项 %q 头部名称为空", i+1, raw)
		}
		headers.Set(name, strings.TrimSpace(value))
	}
	return headers, nil
}

// HeaderProvider 抓取器每次请求前调用,返回合并后的请求头
type HeaderProvider interface {
	GetHeaders() (http.Header, error)
}

// ValidationError 单个请求头不合法
type ValidationError struct {
	Source     HeaderSource
	Field      string // "name" 或 "value"
	HeaderName string
	Reason     string
	Suggestion string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s头部 %s 无效: %s", e.Source, e.HeaderName, e.Reason)
	if e.Suggestion != "" {
		msg += " (" + e.Suggestion + ")"
	}
	return msg
}
