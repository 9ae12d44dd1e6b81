package core

import (
	"errors"
	"net/http"
	"sync"

	"github.com/RecoveryAshes/hncrawler/internal/models"
	"github.com/RecoveryAshes/hncrawler/internal/utils"
)

const (
	// DefaultUserAgent 默认User-Agent
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/120.0.0.0 Safari/537.36"
)

// HeaderManager 管理HTTP请求头部
// 实现 models.HeaderProvider 接口,合并优先级: 默认 < 配置文件 < 命令行
type HeaderManager struct {
	// defaults 系统默认头部
	defaults http.Header

	// config 从配置文件headers段加载的头部
	config http.Header

	// cli 从命令行参数解析的头部
	cli http.Header

	once   sync.Once
	merged http.Header
	err    error
}

// NewHeaderManager 创建头部管理器
// 参数:
//   - userAgent: 默认User-Agent (为空则使用DefaultUserAgent)
//   - configHeaders: 配置文件中的头部
//   - cliHeaders: 命令行传递的头部字符串列表 ("Name: Value")
//
// 返回:
//   - error: 命令行参数解析失败
func NewHeaderManager(userAgent string, configHeaders map[string]string, cliHeaders []string) (*HeaderManager, error) {
	hm := &HeaderManager{
		defaults: getDefaultHeaders(userAgent),
		config:   make(http.Header),
		cli:      make(http.Header),
	}

	for name, value := range configHeaders {
		hm.config.Set(name, value)
	}

	if len(cliHeaders) > 0 {
		parsed, err := models.CliHeaders(cliHeaders).Parse()
		if err != nil {
			return nil, err
		}
		hm.cli = parsed
	}

	return hm, nil
}

// getDefaultHeaders 返回系统默认头部
func getDefaultHeaders(userAgent string) http.Header {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return http.Header{
		"User-Agent":      []string{userAgent},
		"Accept":          []string{"text/html,application/xhtml+xml,*/*;q=0.8"},
		"Accept-Encoding": []string{"gzip, deflate, br"},
	}
}

// Validate 按 默认 → 配置 → 命令行 的顺序验证,返回的ValidationError带有出错的来源
func (hm *HeaderManager) Validate() error {
	layers := []struct {
		source  models.HeaderSource
		headers http.Header
	}{
		{models.HeaderSourceDefault, hm.defaults},
		{models.HeaderSourceConfig, hm.config},
		{models.HeaderSourceCLI, hm.cli},
	}

	for _, layer := range layers {
		err := utils.ValidateHeaders(layer.headers)
		if err == nil {
			continue
		}
		var validationErr *models.ValidationError
		if errors.As(err, &validationErr) {
			validationErr.Source = layer.source
		}
		utils.Errorf("HTTP头部验证失败: %v", err)
		return err
	}

	utils.Debugf("所有HTTP头部验证通过")
	return nil
}

// GetMergedHeaders 按优先级合并头部 (default < config < cli)
func (hm *HeaderManager) GetMergedHeaders() http.Header {
	result := make(http.Header)

	for name, values := range hm.defaults {
		result[name] = values
	}
	for name, values := range hm.config {
		result[name] = values
	}
	for name, values := range hm.cli {
		result[name] = values
	}

	return result
}

// GetSafeHeaders 返回脱敏后的头部 (用于日志)
func (hm *HeaderManager) GetSafeHeaders() map[string]string {
	return utils.RedactHeaders(hm.GetMergedHeaders())
}

// GetHeaders 实现 HeaderProvider 接口
// 首次调用时验证并合并,之后返回同一结果的副本
func (hm *HeaderManager) GetHeaders() (http.Header, error) {
	hm.once.Do(func() {
		if err := hm.Validate(); err != nil {
			hm.err = err
			return
		}
		hm.merged = hm.GetMergedHeaders()
	})
	if hm.err != nil {
		return nil, hm.err
	}
	return hm.merged.Clone(), nil
}
