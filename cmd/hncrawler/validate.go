package main

import (
	"fmt"
	"time"

	"github.com/RecoveryAshes/hncrawler/internal/models"
)

// ValidateFlags 验证命令行标志
// 零值表示未指定,不做检查
func ValidateFlags(rootURL string, interval time.Duration) error {
	if rootURL != "" {
		if err := models.ValidateURL(rootURL); err != nil {
			return fmt.Errorf("无效的首页URL: %w", err)
		}
	}

	if interval < 0 {
		return fmt.Errorf("轮询间隔不能为负数,当前值: %v", interval)
	}

	return nil
}
