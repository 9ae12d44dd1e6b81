package crawlers

import (
	"iter"
	"slices"
	"testing"

	"github.com/RecoveryAshes/hncrawler/internal/models"
)

const testRoot = "https://news.ycombinator.com/"

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(testRoot, "", nil)
	if err != nil {
		t.Fatalf("创建分类器失败: %v", err)
	}
	return c
}

// anchors 由href列表构造锚点序列
func anchors(hrefs ...string) iter.Seq[models.AnchorRecord] {
	return func(yield func(models.AnchorRecord) bool) {
		for _, h := range hrefs {
			if !yield(models.AnchorRecord{Href: h, HasHref: true, Text: h}) {
				return
			}
		}
	}
}

func collect(c *Classifier, seq iter.Seq[models.AnchorRecord], req models.PageRequest, cursor models.PaginationCursor) ([]ClassifiedLink, ScanResult) {
	var links []ClassifiedLink
	result := c.Classify(seq, req, cursor, func(l ClassifiedLink) {
		links = append(links, l)
	})
	return links, result
}

func frontPage(carried string) (models.PageRequest, models.PaginationCursor) {
	return models.PageRequest{URL: testRoot, ParentURL: testRoot}, models.NewPaginationCursor(carried)
}

func TestParseAnchors(t *testing.T) {
	body := `<html><body>
		<a href="https://a.com/x">A</a>
		<a name="anchor-only">无href</a>
		<a href="item?id=1">12&nbsp;comments</a>
		<p><a href="https://c.com/">C &amp; D</a></p>
	</body></html>`

	seq, err := ParseAnchors(body)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}

	var got []models.AnchorRecord
	for a := range seq {
		got = append(got, a)
	}

	want := []models.AnchorRecord{
		{Href: "https://a.com/x", HasHref: true, Text: "A"},
		{Href: "", HasHref: false, Text: "无href"},
		{Href: "item?id=1", HasHref: true, Text: "12\u00a0comments"},
		{Href: "https://c.com/", HasHref: true, Text: "C & D"},
	}
	if !slices.Equal(got, want) {
		t.Errorf("锚点不匹配:\n得到 %+v\n期望 %+v", got, want)
	}
}

func TestParseAnchors_StopsEarly(t *testing.T) {
	seq, err := ParseAnchors(`<a href="1">1</a><a href="2">2</a><a href="3">3</a>`)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}

	count := 0
	for range seq {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Errorf("提前停止后仍继续迭代: %d", count)
	}
}

// 首页: [站点自身链接, A(外部), B(讨论页, 相对链接), C(外部)]
func TestClassify_FrontPage(t *testing.T) {
	c := newTestClassifier(t)
	seq, err := ParseAnchors(`
		<a href="https://news.ycombinator.com/">Hacker News</a>
		<a href="https://a.com/post">A</a>
		<a href="item?id=42">42&nbsp;comments</a>
		<a href="https://c.com/story">C</a>`)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}

	req, cursor := frontPage("")
	links, result := collect(c, seq, req, cursor)

	want := []ClassifiedLink{
		{Kind: LinkExternal, Request: models.PageRequest{URL: "https://a.com/post", ParentURL: "https://a.com/post"}},
		{Kind: LinkDiscussion, Request: models.PageRequest{
			URL:            "https://news.ycombinator.com/item?id=42",
			ParentURL:      "https://a.com/post",
			IsCommentsPage: true,
		}},
		{Kind: LinkExternal, Request: models.PageRequest{URL: "https://c.com/story", ParentURL: "https://c.com/story"}},
	}
	if !slices.Equal(links, want) {
		t.Fatalf("分类结果不匹配:\n得到 %+v\n期望 %+v", links, want)
	}

	if result.Cursor.FirstLink != "https://c.com/story" {
		t.Errorf("首链接 = %q, 期望轮转为C", result.Cursor.FirstLink)
	}
	if result.Cursor.LastLink != "https://a.com/post" {
		t.Errorf("尾链接 = %q, 期望A", result.Cursor.LastLink)
	}
	if result.StoppedAtBoundary {
		t.Error("不应到达边界")
	}
	if result.AnchorsScanned != 4 {
		t.Errorf("扫描锚点数 = %d, 期望 4", result.AnchorsScanned)
	}
}

func TestClassify_Boundary(t *testing.T) {
	tests := []struct {
		name      string
		carried   string
		hrefs     []string
		wantURLs  []string
		wantFirst string
		wantStop  bool
		scanned   int
	}{
		{
			name:      "重复首链接即停止",
			hrefs:     []string{"https://a.com", "https://a.com", "https://b.com"},
			wantURLs:  []string{"https://a.com"},
			wantFirst: "https://a.com",
			wantStop:  true,
			scanned:   2,
		},
		{
			name:      "轮转后回到尾链接停止",
			hrefs:     []string{"https://a.com", "https://b.com", "https://a.com", "https://c.com"},
			wantURLs:  []string{"https://a.com", "https://b.com"},
			wantFirst: "https://b.com",
			wantStop:  true,
			scanned:   3,
		},
		{
			name:      "无重复时扫描全部",
			hrefs:     []string{"https://a.com", "https://b.com", "https://c.com"},
			wantURLs:  []string{"https://a.com", "https://b.com", "https://c.com"},
			wantFirst: "https://b.com",
			scanned:   3,
		},
		{
			name:      "上一轮带回的首链接作为边界",
			carried:   "https://b.com",
			hrefs:     []string{"https://x.com", "https://y.com", "https://b.com", "https://z.com"},
			wantURLs:  []string{"https://x.com", "https://y.com"},
			wantFirst: "https://x.com",
			wantStop:  true,
			scanned:   3,
		},
		{
			name:      "没有新内容",
			carried:   "https://a.com",
			hrefs:     []string{"https://a.com", "https://b.com"},
			wantFirst: "https://a.com",
			wantStop:  true,
			scanned:   1,
		},
	}

	c := newTestClassifier(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, cursor := frontPage(tt.carried)
			links, result := collect(c, anchors(tt.hrefs...), req, cursor)

			var urls []string
			for _, l := range links {
				urls = append(urls, l.Request.URL)
			}
			if !slices.Equal(urls, tt.wantURLs) {
				t.Errorf("产出链接 = %v, 期望 %v", urls, tt.wantURLs)
			}
			if result.Cursor.FirstLink != tt.wantFirst {
				t.Errorf("首链接 = %q, 期望 %q", result.Cursor.FirstLink, tt.wantFirst)
			}
			if result.StoppedAtBoundary != tt.wantStop {
				t.Errorf("StoppedAtBoundary = %v, 期望 %v", result.StoppedAtBoundary, tt.wantStop)
			}
			if result.AnchorsScanned != tt.scanned {
				t.Errorf("扫描锚点数 = %d, 期望 %d", result.AnchorsScanned, tt.scanned)
			}
		})
	}
}

func TestClassify_CommentsPage(t *testing.T) {
	c := newTestClassifier(t)
	seq, err := ParseAnchors(`
		<a href="https://a.com/">A</a>
		<a href="item?id=7">3&nbsp;comments</a>
		<a href="https://a.com/">A again</a>
		<a href="https://b.com/">B</a>`)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}

	cursor := models.NewPaginationCursor("https://a.com/")
	req := models.PageRequest{
		URL:            testRoot + "item?id=1",
		ParentURL:      "https://parent.com/",
		IsCommentsPage: true,
	}
	links, result := collect(c, seq, req, cursor)

	if len(links) != 3 {
		t.Fatalf("讨论页应产出全部3个外部链接, 得到 %d", len(links))
	}
	for _, l := range links {
		if l.Kind != LinkExternal {
			t.Errorf("讨论页不应产出讨论页链接: %+v", l)
		}
		if l.Request.ParentURL != "https://parent.com/" {
			t.Errorf("父上下文 = %q, 期望传入的父URL", l.Request.ParentURL)
		}
	}
	if result.Cursor != cursor {
		t.Errorf("讨论页修改了游标: %+v", result.Cursor)
	}
	if result.StoppedAtBoundary {
		t.Error("讨论页不应到达边界")
	}
}

func TestClassify_SkipsExcludedAndMissingHref(t *testing.T) {
	c := newTestClassifier(t)
	seq := func(yield func(models.AnchorRecord) bool) {
		records := []models.AnchorRecord{
			{Text: "无href"},
			{Href: "https://news.ycombinator.com/newest", HasHref: true},
			{Href: "https://github.com/HackerNews/API", HasHref: true},
			{Href: "login?goto=news", HasHref: true, Text: "login"},
			{Href: "https://keep.com/", HasHref: true},
		}
		for _, r := range records {
			if !yield(r) {
				return
			}
		}
	}

	req, cursor := frontPage("")
	links, result := collect(c, seq, req, cursor)

	if len(links) != 1 || links[0].Request.URL != "https://keep.com/" {
		t.Fatalf("产出链接错误: %+v", links)
	}
	if result.Cursor.FirstLink != "https://keep.com/" {
		t.Errorf("被排除的链接不应影响游标: %+v", result.Cursor)
	}
}

func TestClassifier_IsExcluded(t *testing.T) {
	c, err := NewClassifier(testRoot, "", []string{"example.org"})
	if err != nil {
		t.Fatalf("创建分类器失败: %v", err)
	}
	if !c.IsExcluded("https://example.org/a") {
		t.Error("自定义排除模式未生效")
	}
	if c.IsExcluded("https://news.ycombinator.com/") {
		t.Error("自定义排除列表应替换默认列表")
	}
}
