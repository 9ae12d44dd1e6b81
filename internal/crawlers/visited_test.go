package crawlers

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestVisitedSet(t *testing.T) {
	s := NewVisitedSet()

	if s.IsVisited("https://a.com") {
		t.Error("新集合不应包含任何URL")
	}
	if !s.MarkVisited("https://a.com") {
		t.Error("首次标记应返回true")
	}
	if s.MarkVisited("https://a.com") {
		t.Error("重复标记应返回false")
	}
	if !s.IsVisited("https://a.com") {
		t.Error("标记后应已访问")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, 期望 1", s.Len())
	}
}

func TestVisitedSet_ConcurrentMark(t *testing.T) {
	s := NewVisitedSet()

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.MarkVisited("https://news.ycombinator.com/item?id=1") {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	if winners.Load() != 1 {
		t.Errorf("并发标记同一URL, 成功次数 = %d, 期望 1", winners.Load())
	}
}
