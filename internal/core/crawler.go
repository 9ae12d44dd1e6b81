package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RecoveryAshes/hncrawler/internal/crawlers"
	"github.com/RecoveryAshes/hncrawler/internal/models"
	"github.com/RecoveryAshes/hncrawler/internal/utils"
	"github.com/rs/zerolog"
)

// PageFetcher 页面抓取
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// PageSaver 页面保存
type PageSaver interface {
	Save(pageURL, parentURL, body string) error
}

// Crawler 爬取编排器
// 每轮扫描首页,为每个外部链接和讨论页派发后台任务。
// 派发方从不等待后台任务,wg只用于退出和测试
type Crawler struct {
	config     models.CrawlConfig
	fetcher    PageFetcher
	saver      PageSaver
	classifier *crawlers.Classifier

	wg sync.WaitGroup

	inFlight        atomic.Int64
	pagesSaved      atomic.Int64
	fetchFailures   atomic.Int64
	saveFailures    atomic.Int64
	panicsRecovered atomic.Int64

	mu        sync.RWMutex
	lastStats models.PassStats
}

// NewCrawler 创建爬取编排器
func NewCrawler(config models.CrawlConfig, fetcher PageFetcher, saver PageSaver) (*Crawler, error) {
	if fetcher == nil || saver == nil {
		return nil, fmt.Errorf("抓取器和保存器不能为空")
	}

	classifier, err := crawlers.NewClassifier(config.RootURL, config.CommentsMarker, config.ExcludedPatterns)
	if err != nil {
		return nil, fmt.Errorf("解析首页URL失败: %w", err)
	}

	return &Crawler{
		config:     config,
		fetcher:    fetcher,
		saver:      saver,
		classifier: classifier,
	}, nil
}

// CrawlPass 执行一轮首页扫描
// 返回新的首链接;首页抓取或解析失败时原样返回carriedFirstLink
func (c *Crawler) CrawlPass(ctx context.Context, rootURL, carriedFirstLink string) string {
	start := time.Now()
	stats := models.PassStats{PassID: models.NewPassID()}
	logger := utils.WithPass(stats.PassID)

	logger.Info().Str("url", rootURL).Str("first_link", carriedFirstLink).Msg("开始本轮扫描")

	body, err := c.fetcher.Fetch(ctx, rootURL)
	if err != nil {
		c.fetchFailures.Add(1)
		logger.Error().Err(err).Str("url", rootURL).Msg("首页抓取失败,跳过本轮")
		return carriedFirstLink
	}

	anchors, err := crawlers.ParseAnchors(body)
	if err != nil {
		logger.Error().Err(err).Str("url", rootURL).Msg("首页解析失败,跳过本轮")
		return carriedFirstLink
	}

	// 后台任务不随调度器取消,只受单次请求超时约束
	detached := context.WithoutCancel(ctx)
	visited := crawlers.NewVisitedSet()

	req := models.PageRequest{URL: rootURL, ParentURL: rootURL}
	result := c.classifier.Classify(anchors, req, models.NewPaginationCursor(carriedFirstLink),
		func(link crawlers.ClassifiedLink) {
			switch link.Kind {
			case crawlers.LinkExternal:
				stats.ExternalScheduled++
				c.spawn(logger, link.Request, func(l zerolog.Logger) {
					c.fetchAndSave(detached, l, link.Request)
				})
			case crawlers.LinkDiscussion:
				stats.DiscussionsQueued++
				c.spawn(logger, link.Request, func(l zerolog.Logger) {
					c.traverseDiscussion(detached, l, link.Request, visited)
				})
			}
		})

	stats.AnchorsScanned = result.AnchorsScanned
	stats.StoppedAtBoundary = result.StoppedAtBoundary
	stats.Duration = time.Since(start)

	c.mu.Lock()
	c.lastStats = stats
	c.mu.Unlock()

	logger.Info().
		Int("anchors", stats.AnchorsScanned).
		Int("external", stats.ExternalScheduled).
		Int("discussions", stats.DiscussionsQueued).
		Bool("boundary", stats.StoppedAtBoundary).
		Str("first_link", result.Cursor.FirstLink).
		Dur("duration", stats.Duration).
		Msg("本轮扫描完成")

	return result.Cursor.FirstLink
}

// spawn 派发后台任务
// 任务中的panic被恢复并记录,不影响调度器和其他任务
func (c *Crawler) spawn(logger zerolog.Logger, req models.PageRequest, task func(zerolog.Logger)) {
	taskLogger := logger.With().Str("url", req.URL).Logger()

	c.wg.Add(1)
	c.inFlight.Add(1)

	go func() {
		defer c.wg.Done()
		defer c.inFlight.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				c.panicsRecovered.Add(1)
				taskLogger.Error().Interface("panic", r).Msg("后台任务panic,已丢弃")
			}
		}()

		task(taskLogger)
	}()
}

// fetchAndSave 抓取外部页面并保存到父上下文目录下
func (c *Crawler) fetchAndSave(ctx context.Context, logger zerolog.Logger, req models.PageRequest) {
	body, err := c.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		c.fetchFailures.Add(1)
		logger.Warn().Err(err).Msg("抓取失败,跳过")
		return
	}

	if err := c.saver.Save(req.URL, req.ParentURL, body); err != nil {
		c.saveFailures.Add(1)
		logger.Error().Err(err).Str("parent", req.ParentURL).Msg("保存失败")
		return
	}

	c.pagesSaved.Add(1)
	logger.Debug().Str("parent", req.ParentURL).Msg("页面已保存")
}

// traverseDiscussion 遍历讨论页,为其中的外部链接派发抓取任务
// 讨论页本身不保存,也不会再派发讨论页遍历
func (c *Crawler) traverseDiscussion(ctx context.Context, logger zerolog.Logger, req models.PageRequest, visited *crawlers.VisitedSet) {
	if !visited.MarkVisited(req.URL) {
		logger.Debug().Msg("讨论页本轮已遍历,跳过")
		return
	}

	body, err := c.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		c.fetchFailures.Add(1)
		logger.Warn().Err(err).Msg("讨论页抓取失败,跳过")
		return
	}

	anchors, err := crawlers.ParseAnchors(body)
	if err != nil {
		logger.Warn().Err(err).Msg("讨论页解析失败,跳过")
		return
	}

	scheduled := 0
	c.classifier.Classify(anchors, req, models.PaginationCursor{}, func(link crawlers.ClassifiedLink) {
		if link.Kind != crawlers.LinkExternal {
			return
		}
		scheduled++
		c.spawn(logger, link.Request, func(l zerolog.Logger) {
			c.fetchAndSave(ctx, l, link.Request)
		})
	})

	logger.Debug().Int("external", scheduled).Msg("讨论页遍历完成")
}

// Wait 等待所有后台任务结束
func (c *Crawler) Wait() {
	c.wg.Wait()
}

// WaitTimeout 在timeout内等待后台任务结束
// 返回false表示超时时仍有任务在运行
func (c *Crawler) WaitTimeout(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Counters 返回后台任务计数快照
func (c *Crawler) Counters() models.TaskCounters {
	return models.TaskCounters{
		PagesSaved:      c.pagesSaved.Load(),
		FetchFailures:   c.fetchFailures.Load(),
		SaveFailures:    c.saveFailures.Load(),
		PanicsRecovered: c.panicsRecovered.Load(),
		InFlight:        c.inFlight.Load(),
	}
}

// LastPassStats 最近一轮扫描统计
func (c *Crawler) LastPassStats() models.PassStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastStats
}
