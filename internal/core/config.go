package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RecoveryAshes/hncrawler/internal/crawlers"
	"github.com/RecoveryAshes/hncrawler/internal/models"
	"github.com/RecoveryAshes/hncrawler/internal/utils"
	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	Crawl    models.CrawlConfig `mapstructure:"crawl"`
	Fetch    FetchConfig        `mapstructure:"fetch"`
	Storage  StorageConfig      `mapstructure:"storage"`
	Logging  LoggingConfig      `mapstructure:"logging"`
	Schedule ScheduleConfig     `mapstructure:"schedule"`
	Resource ResourceConfig     `mapstructure:"resource"`
	Headers  map[string]string  `mapstructure:"headers"`
}

// FetchConfig 抓取配置
type FetchConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	UserAgent   string        `mapstructure:"user_agent"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	DataDir       string `mapstructure:"data_dir"`
	MaxNameLength int    `mapstructure:"max_name_length"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// ScheduleConfig 调度配置
type ScheduleConfig struct {
	ShowProgress bool `mapstructure:"show_progress"`
}

// ResourceConfig 资源监控配置
type ResourceConfig struct {
	MemoryThresholdMB int `mapstructure:"memory_threshold_mb"`
}

// ConfigError 配置文件读取或解析失败
type ConfigError struct {
	FilePath string // 未指定时为空
	Cause    error
}

func (e *ConfigError) Error() string {
	if e.FilePath == "" {
		return fmt.Sprintf("配置文件错误: %v", e.Cause)
	}
	return fmt.Sprintf("配置文件错误 [%s]: %v", e.FilePath, e.Cause)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// LoadConfig 加载配置文件
// configPath为空时搜索默认位置,找不到配置文件则全部使用默认值
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".hncrawler"))
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &ConfigError{FilePath: configPath, Cause: err}
		}
		utils.Debugf("未找到配置文件,使用默认配置")
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, &ConfigError{FilePath: v.ConfigFileUsed(), Cause: fmt.Errorf("解析配置失败: %w", err)}
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 爬取配置默认值
	v.SetDefault("crawl.root_url", models.DefaultRootURL)
	v.SetDefault("crawl.poll_interval", 30*time.Second)
	v.SetDefault("crawl.shutdown_grace", 10*time.Second)
	v.SetDefault("crawl.comments_marker", models.CommentsMarker)
	v.SetDefault("crawl.excluded_patterns", models.DefaultExcludedPatterns)

	// 抓取配置默认值
	v.SetDefault("fetch.timeout", crawlers.DefaultFetchTimeout)
	v.SetDefault("fetch.max_attempts", crawlers.DefaultMaxAttempts)
	v.SetDefault("fetch.retry_delay", crawlers.DefaultRetryDelay)
	v.SetDefault("fetch.user_agent", DefaultUserAgent)

	// 存储配置默认值
	v.SetDefault("storage.data_dir", crawlers.DefaultDataDir)
	v.SetDefault("storage.max_name_length", crawlers.MaxNameLength)

	// 日志配置默认值
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	v.SetDefault("schedule.show_progress", true)
	v.SetDefault("resource.memory_threshold_mb", 256)
}

// MergeCLIFlags 合并命令行参数到配置
// 命令行参数优先于配置文件,零值表示未指定
func (c *Config) MergeCLIFlags(rootURL string, interval time.Duration, logLevel string) {
	if rootURL != "" {
		c.Crawl.RootURL = rootURL
	}
	if interval > 0 {
		c.Crawl.PollInterval = interval
	}
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if err := c.Crawl.Validate(); err != nil {
		return err
	}
	if c.Fetch.MaxAttempts < 1 {
		return fmt.Errorf("最大尝试次数必须至少为1")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("请求超时必须大于0")
	}
	if c.Fetch.RetryDelay < 0 {
		return fmt.Errorf("重试间隔不能为负数")
	}
	if c.Storage.MaxNameLength < 1 || c.Storage.MaxNameLength > crawlers.MaxNameLength {
		return fmt.Errorf("文件名最大长度必须在1-%d之间", crawlers.MaxNameLength)
	}
	if c.Resource.MemoryThresholdMB < 0 {
		return fmt.Errorf("内存告警阈值不能为负数")
	}
	return nil
}

// LogConfig 转换为日志系统配置
func (c *Config) LogConfig() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
	}
}

// FetchOptions 转换为抓取器选项
func (c *Config) FetchOptions() crawlers.FetchOptions {
	return crawlers.FetchOptions{
		Timeout:     c.Fetch.Timeout,
		MaxAttempts: c.Fetch.MaxAttempts,
		RetryDelay:  c.Fetch.RetryDelay,
		UserAgent:   c.Fetch.UserAgent,
	}
}
