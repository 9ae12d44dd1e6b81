package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RecoveryAshes/hncrawler/internal/core"
	"github.com/RecoveryAshes/hncrawler/internal/crawlers"
	"github.com/RecoveryAshes/hncrawler/internal/utils"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	configFile string
	logLevel   string

	headers        []string // 自定义HTTP请求头
	validateConfig bool     // 只验证配置

	rootURL  string
	interval time.Duration
)

// appConfig 在PersistentPreRunE中加载
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "hncrawler",
	Short: "Hacker News首页持续监控爬虫",
	Long: `hncrawler - 持续监控Hacker News首页,保存新出现的外部链接页面

每轮抓取首页,对上一轮之后新出现的外部链接抓取并保存,
同时遍历讨论页,保存其中引用的外部页面。
页面保存在 data/<父页面>/<子页面> 下。

示例:
  # 使用默认配置(不带任何参数即开始监控)
  hncrawler

  # 自定义轮询间隔和请求头
  hncrawler --interval 1m -H "User-Agent: MyBot/1.0"

  # 验证配置文件
  hncrawler -c configs/config.yaml --validate-config

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		if err := ValidateFlags(rootURL, interval); err != nil {
			return err
		}
		config.MergeCLIFlags(rootURL, interval, logLevel)

		if err := utils.InitLogger(config.LogConfig()); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		appConfig = config
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appConfig.Validate(); err != nil {
			return fmt.Errorf("配置无效: %w", err)
		}

		headerManager, err := core.NewHeaderManager(appConfig.Fetch.UserAgent, appConfig.Headers, headers)
		if err != nil {
			return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
		}
		if err := headerManager.Validate(); err != nil {
			return fmt.Errorf("HTTP头部验证失败: %w", err)
		}

		safeHeaders := headerManager.GetSafeHeaders()
		if validateConfig {
			utils.Info("✅ 配置验证通过!")
			utils.Infof("当前有效的HTTP头部 (%d个):", len(safeHeaders))
			for name, value := range safeHeaders {
				utils.Infof("  %s: %s", name, value)
			}
			return nil
		}
		utils.Debugf("HTTP头部: %v", safeHeaders)

		fetcher := crawlers.NewFetcher(appConfig.FetchOptions(), headerManager)
		persister := crawlers.NewPersister(afero.NewOsFs(), appConfig.Storage.DataDir, appConfig.Storage.MaxNameLength)

		crawler, err := core.NewCrawler(appConfig.Crawl, fetcher, persister)
		if err != nil {
			return fmt.Errorf("创建爬取器失败: %w", err)
		}

		scheduler := core.NewScheduler(crawler, appConfig.Crawl, core.SchedulerOptions{
			ShowProgress: appConfig.Schedule.ShowProgress,
			Monitor:      crawlers.NewResourceMonitor(appConfig.Resource.MemoryThresholdMB),
		})

		// Ctrl+C / SIGTERM 停止调度循环
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return scheduler.Run(ctx)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	// 不需要加载配置和初始化日志
	PersistentPreRun: func(cmd *cobra.Command, args []string) {},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hncrawler %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	rootCmd.Flags().StringSliceVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.Flags().BoolVar(&validateConfig, "validate-config", false, "验证配置文件正确性")
	rootCmd.Flags().StringVarP(&rootURL, "url", "u", "", "监控的首页URL (默认 https://news.ycombinator.com/)")
	rootCmd.Flags().DurationVar(&interval, "interval", 0, "两轮之间的等待时间 (默认30s)")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
