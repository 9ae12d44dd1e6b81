package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RecoveryAshes/hncrawler/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	return path
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := writeConfig(t, `
crawl:
  root_url: "https://example.com/"
  poll_interval: 45s
  excluded_patterns:
    - example.com
fetch:
  timeout: 2s
  max_attempts: 5
storage:
  data_dir: /tmp/pages
logging:
  level: debug
headers:
  X-Custom: value
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if config.Crawl.RootURL != "https://example.com/" {
		t.Errorf("RootURL = %q", config.Crawl.RootURL)
	}
	if config.Crawl.PollInterval != 45*time.Second {
		t.Errorf("PollInterval = %v", config.Crawl.PollInterval)
	}
	if len(config.Crawl.ExcludedPatterns) != 1 || config.Crawl.ExcludedPatterns[0] != "example.com" {
		t.Errorf("ExcludedPatterns = %v", config.Crawl.ExcludedPatterns)
	}
	if config.Fetch.Timeout != 2*time.Second || config.Fetch.MaxAttempts != 5 {
		t.Errorf("Fetch = %+v", config.Fetch)
	}
	if config.Storage.DataDir != "/tmp/pages" {
		t.Errorf("DataDir = %q", config.Storage.DataDir)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Level = %q", config.Logging.Level)
	}
	// viper会把键名转为小写
	if config.Headers["x-custom"] != "value" {
		t.Errorf("Headers = %v", config.Headers)
	}

	// 未设置的字段使用默认值
	if config.Crawl.CommentsMarker != models.CommentsMarker {
		t.Errorf("CommentsMarker = %q", config.Crawl.CommentsMarker)
	}
	if config.Fetch.RetryDelay != 500*time.Millisecond {
		t.Errorf("RetryDelay = %v", config.Fetch.RetryDelay)
	}
	if config.Storage.MaxNameLength != 255 {
		t.Errorf("MaxNameLength = %d", config.Storage.MaxNameLength)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("配置应有效: %v", err)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if config.Crawl.RootURL != models.DefaultRootURL {
		t.Errorf("RootURL = %q", config.Crawl.RootURL)
	}
	if config.Crawl.PollInterval != 30*time.Second {
		t.Errorf("PollInterval = %v", config.Crawl.PollInterval)
	}
	if len(config.Crawl.ExcludedPatterns) != 2 {
		t.Errorf("ExcludedPatterns = %v", config.Crawl.ExcludedPatterns)
	}
	if config.Fetch.MaxAttempts != 3 || config.Fetch.Timeout != 5*time.Second {
		t.Errorf("Fetch = %+v", config.Fetch)
	}
	if config.Storage.DataDir != "data" {
		t.Errorf("DataDir = %q", config.Storage.DataDir)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("默认配置应有效: %v", err)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	_, err := LoadConfig(path)
	var configErr *ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("期望ConfigError, 得到: %v", err)
	}
	if configErr.FilePath != path {
		t.Errorf("FilePath = %q, 期望 %q", configErr.FilePath, path)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ConfigError应能展开到底层错误: %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "crawl: [unclosed"))
	if err == nil {
		t.Fatal("无效YAML应返回错误")
	}
}

func TestConfig_MergeCLIFlags(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	config.MergeCLIFlags("", 0, "")
	if config.Crawl.RootURL != models.DefaultRootURL || config.Crawl.PollInterval != 30*time.Second {
		t.Error("零值参数不应覆盖配置")
	}

	config.MergeCLIFlags("https://example.com/", 10*time.Second, "warn")
	if config.Crawl.RootURL != "https://example.com/" {
		t.Errorf("RootURL = %q", config.Crawl.RootURL)
	}
	if config.Crawl.PollInterval != 10*time.Second {
		t.Errorf("PollInterval = %v", config.Crawl.PollInterval)
	}
	if config.Logging.Level != "warn" {
		t.Errorf("Level = %q", config.Logging.Level)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"尝试次数为0", func(c *Config) { c.Fetch.MaxAttempts = 0 }},
		{"超时为0", func(c *Config) { c.Fetch.Timeout = 0 }},
		{"重试间隔为负", func(c *Config) { c.Fetch.RetryDelay = -time.Second }},
		{"文件名长度过大", func(c *Config) { c.Storage.MaxNameLength = 1000 }},
		{"内存阈值为负", func(c *Config) { c.Resource.MemoryThresholdMB = -1 }},
		{"首页URL无效", func(c *Config) { c.Crawl.RootURL = "ftp://example.com" }},
		{"间隔为0", func(c *Config) { c.Crawl.PollInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfig(writeConfig(t, ""))
			if err != nil {
				t.Fatalf("加载配置失败: %v", err)
			}
			tt.modify(config)
			if err := config.Validate(); err == nil {
				t.Error("期望验证失败")
			}
		})
	}
}

func TestConfig_Conversions(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	logConfig := config.LogConfig()
	if logConfig.Level != "info" || logConfig.LogDir != "logs" || logConfig.MaxSize != 10 {
		t.Errorf("LogConfig = %+v", logConfig)
	}

	opts := config.FetchOptions()
	if opts.MaxAttempts != 3 || opts.UserAgent != DefaultUserAgent {
		t.Errorf("FetchOptions = %+v", opts)
	}
}
