// Package http provides the tuned *http.Client shared by outbound API clients.
package http

import (
	"net"
	"net/http"
	"time"
)

// DefaultTimeout はタイムアウト未指定時のリクエスト全体のタイムアウトです。
const DefaultTimeout = 10 * time.Second

// maxConnsPerHost は1サイクルの同時取得数の上限です。全銘柄が同一ホストに集中します。
const maxConnsPerHost = 32

// NewHTTPClient はクオート取得用のHTTPクライアントを作成します。
// 1サイクルで全銘柄を並行に取得するため、ホスト毎の接続数を既定より多く確保し、
// 応答ヘッダーの待ち時間もtimeout以内に制限します。0以下のtimeoutはDefaultTimeoutになります。
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			ForceAttemptHTTP2:     true,
			MaxConnsPerHost:       maxConnsPerHost,
			MaxIdleConnsPerHost:   maxConnsPerHost,
			IdleConnTimeout:       2 * time.Minute,
			ResponseHeaderTimeout: timeout,
			TLSHandshakeTimeout:   5 * time.Second,
		},
	}
}
