package core

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/RecoveryAshes/hncrawler/internal/crawlers"
	"github.com/RecoveryAshes/hncrawler/internal/models"
	"github.com/RecoveryAshes/hncrawler/internal/utils"
	"github.com/schollz/progressbar/v3"
)

// SchedulerOptions 调度器可选项
type SchedulerOptions struct {
	// ShowProgress 等待期间显示倒计时进度条
	ShowProgress bool
	// ProgressWriter 进度条输出,为nil时使用os.Stderr
	ProgressWriter io.Writer
	// Monitor 每轮结束后采样资源,可为nil
	Monitor *crawlers.ResourceMonitor
}

// Scheduler 轮询调度器
// 两个状态: FETCHING(执行一轮扫描) 与 WAITING(固定间隔空闲),直到ctx取消
type Scheduler struct {
	crawler *Crawler
	config  models.CrawlConfig
	opts    SchedulerOptions
}

// NewScheduler 创建调度器
func NewScheduler(crawler *Crawler, config models.CrawlConfig, opts SchedulerOptions) *Scheduler {
	if opts.ProgressWriter == nil {
		opts.ProgressWriter = os.Stderr
	}
	return &Scheduler{crawler: crawler, config: config, opts: opts}
}

// Run 运行调度循环直到ctx取消
// 退出前最多等待ShutdownGrace让后台任务完成
func (s *Scheduler) Run(ctx context.Context) error {
	utils.Logger.Info().
		Str("url", s.config.RootURL).
		Dur("interval", s.config.PollInterval).
		Msg("开始监控首页")

	firstLink := ""
	for {
		// FETCHING
		previous := firstLink
		firstLink = s.crawler.CrawlPass(ctx, s.config.RootURL, firstLink)
		if previous != "" && firstLink == previous {
			utils.Info("没有新内容")
		}

		if s.opts.Monitor != nil {
			s.opts.Monitor.Check(s.crawler.Counters().InFlight)
		}

		// WAITING
		if !s.wait(ctx) {
			break
		}
	}

	return s.shutdown()
}

// wait 空闲一个轮询间隔
// 返回false表示ctx已取消
func (s *Scheduler) wait(ctx context.Context) bool {
	timer := time.NewTimer(s.config.PollInterval)
	defer timer.Stop()

	var (
		bar  *progressbar.ProgressBar
		tick <-chan time.Time
	)
	if seconds := int64(s.config.PollInterval / time.Second); s.opts.ShowProgress && seconds > 0 {
		bar = newCountdownBar(s.opts.ProgressWriter, seconds)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			if bar != nil {
				bar.Exit()
			}
			return false
		case <-tick:
			bar.Add(1)
		case <-timer.C:
			if bar != nil {
				bar.Finish()
			}
			return true
		}
	}
}

// shutdown 等待后台任务,超时则直接退出
func (s *Scheduler) shutdown() error {
	counters := s.crawler.Counters()
	utils.Logger.Info().
		Int64("in_flight", counters.InFlight).
		Dur("grace", s.config.ShutdownGrace).
		Msg("收到退出信号,等待后台任务")

	if !s.crawler.WaitTimeout(s.config.ShutdownGrace) {
		utils.Warnf("等待超时,仍有 %d 个后台任务未完成", s.crawler.Counters().InFlight)
	}

	counters = s.crawler.Counters()
	utils.Logger.Info().
		Int64("saved", counters.PagesSaved).
		Int64("fetch_failures", counters.FetchFailures).
		Int64("save_failures", counters.SaveFailures).
		Int64("panics", counters.PanicsRecovered).
		Msg("监控已停止")

	return nil
}

// newCountdownBar 创建等待倒计时进度条
func newCountdownBar(w io.Writer, seconds int64) *progressbar.ProgressBar {
	return progressbar.NewOptions64(seconds,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("等待下一轮"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
