// Package crawlers 提供首页监控爬虫的基础组件
//
// # 核心组件
//
// ## Fetcher
//
// 基于Colly的HTTP GET抓取器。每次尝试新建collector和不复用连接的transport,
// 单次超时5秒,最多3次尝试,间隔0.5秒。只有瞬时传输错误(超时、对端断开、
// 连接建立失败)会重试;响应无法解码为文本时立即返回ErrDecode。
//
//	fetcher := NewFetcher(FetchOptions{}, headerProvider)
//	body, err := fetcher.Fetch(ctx, "https://news.ycombinator.com/")
//
// ## ParseAnchors / Classifier
//
// ParseAnchors 使用goquery解析HTML,按文档顺序惰性产出锚点。
// Classifier 逐个锚点分类:
//   - 以"http"开头的外部链接: 抓取并保存
//   - 文本包含不换行空格加"comment"的相对链接: 讨论页,递归遍历(仅在非讨论页上)
//   - 包含站点自身域名或API参考链接的锚点: 忽略
//
// 在非讨论页上,外部链接依次喂入 models.PaginationCursor,
// 命中已记录的链接即停止扫描该页面。
//
// ## Persister
//
// 写入 data/{父URL派生名}/{子URL派生名},名称去掉协议、"/"替换为"-"、截断到255个字符。
// 文件系统使用afero,测试中可替换为内存实现。
//
// ## VisitedSet / ResourceMonitor
//
// VisitedSet 保证同一讨论页在一轮内只遍历一次。
// ResourceMonitor 使用gopsutil采样系统内存和CPU,仅用于告警。
//
// # 并发安全
//
//   - Fetcher、Persister、Classifier 无共享可变状态,可并发调用
//   - VisitedSet: sync.Mutex
//   - ResourceMonitor: sync.RWMutex
package crawlers
