package crawlers

import "sync"

// VisitedSet 并发安全的已访问URL集合
// 每轮新建一个,用于保证同一讨论页在一轮内只遍历一次
type VisitedSet struct {
	visited map[string]bool
	mu      sync.Mutex
}

// NewVisitedSet 创建集合
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{visited: make(map[string]bool)}
}

// MarkVisited 标记URL为已访问
// 返回false表示此前已标记过
func (s *VisitedSet) MarkVisited(urlStr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.visited[urlStr] {
		return false
	}
	s.visited[urlStr] = true
	return true
}

// IsVisited 检查URL是否已访问
func (s *VisitedSet) IsVisited(urlStr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visited[urlStr]
}

// Len 已访问的URL数量
func (s *VisitedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visited)
}
