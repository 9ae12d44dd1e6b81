package crawlers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const (
	// DefaultDataDir 默认数据目录
	DefaultDataDir = "data"
	// MaxNameLength 目录名/文件名最大长度(文件系统限制)
	MaxNameLength = 255
)

// Persister 页面持久化
// 目录名由父URL派生,文件名由子URL派生: data/{dirName}/{fileName}
// 不加锁,同一路径的并发写入以最后一次为准
type Persister struct {
	fs            afero.Fs
	dataDir       string
	maxNameLength int
}

// NewPersister 创建持久化器
func NewPersister(fs afero.Fs, dataDir string, maxNameLength int) *Persister {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if dataDir == "" {
		dataDir = DefaultDataDir
	}
	if maxNameLength <= 0 || maxNameLength > MaxNameLength {
		maxNameLength = MaxNameLength
	}
	return &Persister{fs: fs, dataDir: dataDir, maxNameLength: maxNameLength}
}

// Save 将页面内容写入由URL派生的路径,覆盖已存在的文件
func (p *Persister) Save(pageURL, parentURL, body string) error {
	dirName := SanitizeName(parentURL, p.maxNameLength)
	fileName := SanitizeName(pageURL, p.maxNameLength)
	if dirName == "" || fileName == "" {
		return fmt.Errorf("无法从URL派生存储路径: %q <- %q", pageURL, parentURL)
	}

	dir := filepath.Join(p.dataDir, dirName)

	// MkdirAll 对已存在的目录返回nil,并发创建同一目录不会失败
	if err := p.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建目录失败 [%s]: %w", dir, err)
	}

	path := filepath.Join(dir, fileName)
	if err := afero.WriteFile(p.fs, path, []byte(body), 0644); err != nil {
		return fmt.Errorf("写入文件失败 [%s]: %w", path, err)
	}
	return nil
}

// Path 返回Save会写入的路径
func (p *Persister) Path(pageURL, parentURL string) string {
	return filepath.Join(p.dataDir,
		SanitizeName(parentURL, p.maxNameLength),
		SanitizeName(pageURL, p.maxNameLength))
}

// SanitizeName 由URL派生文件系统名称
// 去掉协议前缀("//"及之前的部分),将"/"替换为"-",截断到maxLen个字符
func SanitizeName(rawURL string, maxLen int) string {
	name := rawURL
	if idx := strings.Index(name, "//"); idx >= 0 {
		name = name[idx+2:]
	}
	name = strings.ReplaceAll(name, "/", "-")

	if maxLen > 0 {
		if runes := []rune(name); len(runes) > maxLen {
			name = string(runes[:maxLen])
		}
	}
	return name
}
