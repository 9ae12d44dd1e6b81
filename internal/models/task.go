package models

import (
	"fmt"
	"time"
)

// DefaultRootURL 默认监控的首页
const DefaultRootURL = "https://news.ycombinator.com/"

// DefaultExcludedPatterns 默认排除的href片段: 站点自身域名和API参考链接
var DefaultExcludedPatterns = []string{"ycombinator", "github.com/HackerNews/API"}

// CrawlConfig 爬取配置
type CrawlConfig struct {
	RootURL          string        `mapstructure:"root_url"`          // 首页URL
	PollInterval     time.Duration `mapstructure:"poll_interval"`     // 两轮之间的等待时间 (默认:30s)
	ShutdownGrace    time.Duration `mapstructure:"shutdown_grace"`    // 退出时等待后台任务的时间
	CommentsMarker   string        `mapstructure:"comments_marker"`   // 讨论页链接文本标记
	ExcludedPatterns []string      `mapstructure:"excluded_patterns"` // 排除的href片段
}

// Validate 验证配置
func (c *CrawlConfig) Validate() error {
	if err := ValidateURL(c.RootURL); err != nil {
		return fmt.Errorf("首页URL无效: %w", err)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("轮询间隔必须大于0")
	}
	if c.ShutdownGrace < 0 {
		return fmt.Errorf("退出等待时间不能为负数")
	}
	if c.CommentsMarker == "" {
		return fmt.Errorf("讨论页标记不能为空")
	}
	// 空片段会匹配所有链接
	for i, pattern := range c.ExcludedPatterns {
		if pattern == "" {
			return fmt.Errorf("排除片段第%d项为空", i+1)
		}
	}
	return nil
}

// PassStats 单轮爬取统计
type PassStats struct {
	PassID            string // 本轮ID (UUID)
	AnchorsScanned    int    // 扫描的锚点数
	ExternalScheduled int    // 已派发的外部链接数
	DiscussionsQueued int    // 已派发的讨论页数
	StoppedAtBoundary bool   // 是否在分页边界停止
	Duration          time.Duration
}

// TaskCounters 后台任务累计计数(并发安全的快照)
type TaskCounters struct {
	PagesSaved      int64 // 已保存页面数
	FetchFailures   int64 // 抓取失败数
	SaveFailures    int64 // 保存失败数
	PanicsRecovered int64 // 已恢复的panic数
	InFlight        int64 // 进行中的后台任务数
}
