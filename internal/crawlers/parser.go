package crawlers

import (
	"fmt"
	"iter"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/RecoveryAshes/hncrawler/internal/models"
)

// ParseAnchors 解析HTML并按文档顺序惰性产出<a>元素
// 消费方提前停止迭代时,剩余锚点不会被处理
func ParseAnchors(body string) (iter.Seq[models.AnchorRecord], error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("解析HTML失败: %w", err)
	}

	return func(yield func(models.AnchorRecord) bool) {
		doc.Find("a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, ok := s.Attr("href")
			return yield(models.AnchorRecord{
				Href:    href,
				HasHref: ok,
				Text:    s.Text(),
			})
		})
	}, nil
}
