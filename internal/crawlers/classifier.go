package crawlers

import (
	"iter"
	"net/url"
	"strings"

	"github.com/RecoveryAshes/hncrawler/internal/models"
)

// LinkKind 分类结果类型
type LinkKind int

const (
	// LinkExternal 需要抓取并保存的外部内容链接
	LinkExternal LinkKind = iota
	// LinkDiscussion 需要递归遍历的讨论页链接
	LinkDiscussion
)

// ClassifiedLink 分类器产出的一个链接
type ClassifiedLink struct {
	Kind    LinkKind
	Request models.PageRequest
}

// ScanResult 单页扫描结果
type ScanResult struct {
	Cursor            models.PaginationCursor
	AnchorsScanned    int
	StoppedAtBoundary bool
}

// Classifier 页面链接分类器
// 区分外部内容链接、讨论页链接,并在非讨论页上驱动分页边界状态机
type Classifier struct {
	baseURL          *url.URL
	commentsMarker   string
	excludedPatterns []string
}

// NewClassifier 创建分类器
// baseURL 用于拼接讨论页的相对链接
func NewClassifier(baseURL string, commentsMarker string, excludedPatterns []string) (*Classifier, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if commentsMarker == "" {
		commentsMarker = models.CommentsMarker
	}
	if excludedPatterns == nil {
		excludedPatterns = models.DefaultExcludedPatterns
	}
	return &Classifier{
		baseURL:          base,
		commentsMarker:   commentsMarker,
		excludedPatterns: excludedPatterns,
	}, nil
}

// IsExcluded 是否为站点自身链接或已知的元链接
func (c *Classifier) IsExcluded(href string) bool {
	for _, pattern := range c.excludedPatterns {
		if strings.Contains(href, pattern) {
			return true
		}
	}
	return false
}

// Classify 按锚点顺序扫描页面
// 每产出一个链接调用一次emit;到达分页边界时停止扫描,边界链接本身不产出。
// 讨论页不读取也不修改游标
func (c *Classifier) Classify(
	anchors iter.Seq[models.AnchorRecord],
	req models.PageRequest,
	cursor models.PaginationCursor,
	emit func(ClassifiedLink),
) ScanResult {
	result := ScanResult{Cursor: cursor}
	currentParent := req.ParentURL

	for anchor := range anchors {
		result.AnchorsScanned++

		if !anchor.HasHref || c.IsExcluded(anchor.Href) {
			continue
		}
		href := anchor.Href

		if strings.HasPrefix(href, "http") {
			if !req.IsCommentsPage {
				if !result.Cursor.Advance(href) {
					result.StoppedAtBoundary = true
					break
				}
				currentParent = href
			}

			emit(ClassifiedLink{
				Kind: LinkExternal,
				Request: models.PageRequest{
					URL:       href,
					ParentURL: currentParent,
				},
			})
			continue
		}

		if !req.IsCommentsPage && strings.Contains(anchor.Text, c.commentsMarker) {
			discussionURL, ok := c.resolve(href)
			if !ok {
				continue
			}
			emit(ClassifiedLink{
				Kind: LinkDiscussion,
				Request: models.PageRequest{
					URL:            discussionURL,
					ParentURL:      currentParent,
					IsCommentsPage: true,
				},
			})
		}
	}

	return result
}

// resolve 将相对链接拼接到站点根URL
func (c *Classifier) resolve(href string) (string, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	return c.baseURL.ResolveReference(ref).String(), true
}
