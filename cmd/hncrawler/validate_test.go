package main

import (
	"testing"
	"time"
)

func TestValidateFlags(t *testing.T) {
	tests := []struct {
		name     string
		rootURL  string
		interval time.Duration
		wantErr  bool
	}{
		{"全部未指定", "", 0, false},
		{"有效参数", "https://news.ycombinator.com/", time.Minute, false},
		{"非HTTP协议", "ftp://example.com", 0, true},
		{"缺少主机名", "https://", 0, true},
		{"负数间隔", "", -time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFlags(tt.rootURL, tt.interval)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
