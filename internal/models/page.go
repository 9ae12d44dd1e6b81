package models

// CommentsMarker 讨论页链接的可见文本标记(不换行空格 + "comment")
const CommentsMarker = "\u00a0comment"

// PageRequest 一次页面访问决策
// 每次编排器决定访问页面时创建,生命周期为一次爬取调用
type PageRequest struct {
	URL            string // 页面URL
	ParentURL      string // 引用页(父上下文)URL,根页面可等于URL
	IsCommentsPage bool   // 是否为讨论页
}

// AnchorRecord 页面中的一个<a>元素
type AnchorRecord struct {
	Href    string // href属性值
	HasHref bool   // 是否存在href属性
	Text    string // 解码后的内部文本
}

// lastLinkState LastLink槽位的状态
type lastLinkState int

const (
	lastLinkUnset   lastLinkState = iota // 未设置
	lastLinkSeenOne                      // 哨兵: 恰好见过一个外部链接
	lastLinkSet                          // 已记录真实链接
)

// PaginationCursor 分页边界游标
// FirstLink 在两轮之间传递(唯一的跨轮状态),LastLink 只在单页扫描内有效
type PaginationCursor struct {
	FirstLink string
	LastLink  string

	lastState lastLinkState
}

// NewPaginationCursor 以上一轮带回的首链接创建游标(可为空)
func NewPaginationCursor(carriedFirstLink string) PaginationCursor {
	return PaginationCursor{FirstLink: carriedFirstLink}
}

// Advance 按锚点顺序喂入一个外部链接
// 返回false表示到达边界,应停止扫描当前页面
func (c *PaginationCursor) Advance(href string) bool {
	switch {
	case c.FirstLink == "":
		c.FirstLink = href
		c.LastLink = ""
		c.lastState = lastLinkSeenOne
	case href == c.FirstLink || (c.lastState == lastLinkSet && href == c.LastLink):
		return false
	case c.lastState != lastLinkSet:
		// 首个外部位置是页面自身的链接,轮转一次修正偏移
		c.LastLink = c.FirstLink
		c.FirstLink = href
		c.lastState = lastLinkSet
	}
	return true
}

// HasLastLink LastLink 是否已记录真实链接
func (c *PaginationCursor) HasLastLink() bool {
	return c.lastState == lastLinkSet
}
