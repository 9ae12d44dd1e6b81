package crawlers

import (
	"bytes"
	"compress/flate"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/RecoveryAshes/hncrawler/internal/models"
	"github.com/RecoveryAshes/hncrawler/internal/utils"
	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
	"golang.org/x/net/html/charset"
)

var (
	// ErrDecode 响应体无法解码为文本,不重试
	ErrDecode = errors.New("无法解码响应内容")

	// ErrRetriesExhausted 瞬时错误重试次数耗尽
	ErrRetriesExhausted = errors.New("重试次数耗尽")
)

const (
	// DefaultFetchTimeout 单次请求超时
	DefaultFetchTimeout = 5 * time.Second
	// DefaultMaxAttempts 最大尝试次数(首次 + 2次重试)
	DefaultMaxAttempts = 3
	// DefaultRetryDelay 两次尝试之间的固定间隔
	DefaultRetryDelay = 500 * time.Millisecond
)

// FetchOptions 抓取器配置
type FetchOptions struct {
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
	UserAgent   string
}

// Fetcher 带有限重试的HTTP GET抓取器(使用Colly)
// 每次尝试都创建新的collector和不复用连接的transport
type Fetcher struct {
	opts           FetchOptions
	headerProvider models.HeaderProvider
}

// NewFetcher 创建抓取器,零值选项使用默认值
func NewFetcher(opts FetchOptions, headerProvider models.HeaderProvider) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultFetchTimeout
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	return &Fetcher{opts: opts, headerProvider: headerProvider}
}

// Fetch 抓取URL并返回解码后的文本
// 瞬时错误(超时/断开/连接失败)按固定间隔重试,解码失败立即返回ErrDecode,
// 重试耗尽返回ErrRetriesExhausted
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= f.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		utils.Logger.Info().Str("url", pageURL).Int("attempt", attempt).Msg("发送请求: GET")

		body, err := f.attempt(pageURL)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, ErrDecode) {
			utils.Logger.Error().Err(err).Str("url", pageURL).Msg("无法解码内容,放弃")
			return "", err
		}
		if !isTransient(err) {
			utils.Logger.Error().Err(err).Str("url", pageURL).Msg("请求失败")
			return "", fmt.Errorf("抓取失败 [%s]: %w", pageURL, err)
		}

		lastErr = err
		if attempt == f.opts.MaxAttempts {
			break
		}

		utils.Logger.Error().Err(err).Str("url", pageURL).
			Msgf("%s, %v 后重试...", describeTransient(err), f.opts.RetryDelay)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.opts.RetryDelay):
		}
	}

	return "", fmt.Errorf("%w [%s]: %w", ErrRetriesExhausted, pageURL, lastErr)
}

// attempt 执行一次请求
func (f *Fetcher) attempt(pageURL string) (string, error) {
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
	)
	// 0 表示不限制响应体大小(默认10MB,超出部分被截断)
	c.MaxBodySize = 0
	c.WithTransport(&http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		DisableKeepAlives: true,
	})
	c.SetRequestTimeout(f.opts.Timeout)
	if f.opts.UserAgent != "" {
		c.UserAgent = f.opts.UserAgent
	}

	c.OnRequest(func(r *colly.Request) {
		if f.headerProvider == nil {
			return
		}
		headers, err := f.headerProvider.GetHeaders()
		if err != nil {
			utils.Warnf("获取HTTP头部失败: %v", err)
			return
		}
		for name, values := range headers {
			if len(values) > 0 {
				r.Headers.Set(name, values[0])
			}
		}
	})

	var (
		text            string
		readErr         error
		contentType     string
		contentEncoding string
	)

	// Colly会按Content-Type声明的字符集转码(在br/deflate解压之前),
	// 这里先记下头部再移除Content-Type,解压和解码统一在OnResponse中完成
	c.OnResponseHeaders(func(r *colly.Response) {
		if r.Headers == nil {
			return
		}
		contentType = r.Headers.Get("Content-Type")
		contentEncoding = r.Headers.Get("Content-Encoding")
		r.Headers.Del("Content-Type")
	})

	c.OnResponse(func(r *colly.Response) {
		body, err := decompressResponse(contentEncoding, r.Body)
		if err != nil {
			readErr = fmt.Errorf("%w: %v", ErrDecode, err)
			return
		}
		text, readErr = decodeText(contentType, body)
	})

	if err := c.Visit(pageURL); err != nil {
		return "", err
	}
	if readErr != nil {
		return "", readErr
	}
	return text, nil
}

// decompressResponse 根据Content-Encoding解压响应体
// gzip由Colly处理,这里只处理 br 和 deflate
func decompressResponse(contentEncoding string, body []byte) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "br":
		decompressed, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, fmt.Errorf("brotli读取失败: %w", err)
		}
		return decompressed, nil
	case "deflate":
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()
		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("deflate读取失败: %w", err)
		}
		return decompressed, nil
	default:
		return body, nil
	}
}

// decodeText 按Content-Type声明的字符集解码,默认UTF-8
func decodeText(contentType string, body []byte) (string, error) {
	label := "utf-8"
	if contentType != "" {
		if _, params, err := mime.ParseMediaType(contentType); err == nil && params["charset"] != "" {
			label = params["charset"]
		}
	}

	enc, name := charset.Lookup(label)
	if enc == nil {
		return "", fmt.Errorf("%w: 未知字符集 %q", ErrDecode, label)
	}
	if name == "utf-8" {
		if !utf8.Valid(body) {
			return "", fmt.Errorf("%w: 非法UTF-8序列", ErrDecode)
		}
		return string(body), nil
	}

	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return string(decoded), nil
}

// isTransient 判断是否为可重试的传输层错误: 超时、对端断开、连接建立失败
func isTransient(err error) bool {
	return isTimeout(err) || isDisconnect(err) || isConnectFailure(err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isDisconnect(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

func isConnectFailure(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if isTLSFailure(err) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// isTLSFailure TLS握手失败,包括证书校验失败
func isTLSFailure(err error) bool {
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return true
	}
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}
	// HTTPS请求收到明文HTTP响应,net/http将其转换为ErrSchemeMismatch
	if errors.Is(err, http.ErrSchemeMismatch) {
		return true
	}
	// 对端发送的TLS告警
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "remote error"
}

func describeTransient(err error) string {
	switch {
	case isTimeout(err):
		return "请求超时"
	case isDisconnect(err):
		return "服务器断开连接"
	case isTLSFailure(err):
		return "TLS握手失败"
	default:
		return "连接错误"
	}
}
