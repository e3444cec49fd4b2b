package wallet

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	simplejson "github.com/bitly/go-simplejson"

	"github.com/assist-by/mirror/internal/retry"
)

// WalletInfo는 지갑 통계 조회 결과를 표현합니다
type WalletInfo struct {
	Address        string  // 지갑 주소
	RealizedProfit float64 // 기간 내 실현 손익
}

// WalletTrade는 지갑의 개별 거래 기록을 표현합니다
type WalletTrade struct {
	Timestamp time.Time // 체결 시각
	PnL       float64   // 거래 손익
}

// GmgnClient는 gmgn.ai 지갑 통계 API 클라이언트를 구현합니다
type GmgnClient struct {
	baseURL    string
	httpClient *http.Client
	retrier    *retry.Retrier
}

// GmgnOption은 클라이언트 생성 옵션을 정의합니다
type GmgnOption func(*GmgnClient)

// WithBaseURL은 기본 URL을 설정합니다
func WithBaseURL(baseURL string) GmgnOption {
	return func(c *GmgnClient) {
		c.baseURL = baseURL
	}
}

// WithTimeout은 HTTP 클라이언트의 타임아웃을 설정합니다
func WithTimeout(timeout time.Duration) GmgnOption {
	return func(c *GmgnClient) {
		c.httpClient.Timeout = timeout
	}
}

// NewGmgnClient는 새로운 gmgn 클라이언트를 생성합니다
func NewGmgnClient(retrier *retry.Retrier, opts ...GmgnOption) *GmgnClient {
	c := &GmgnClient{
		baseURL:    "https://gmgn.ai",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retrier:    retrier,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// getJSON은 GET 요청을 보내고 simplejson으로 파싱합니다
func (c *GmgnClient) getJSON(ctx context.Context, operation, path string, query url.Values) (*simplejson.Json, error) {
	reqURL := c.baseURL + path
	if query != nil {
		reqURL += "?" + query.Encode()
	}

	var js *simplejson.Json
	err := c.retrier.Do(ctx, operation, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("gmgn API 에러 (status %d)", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		js, err = simplejson.NewJson(body)
		if err != nil {
			return fmt.Errorf("gmgn 응답 파싱 실패: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return js, nil
}

// Info는 지갑 통계를 조회합니다
func (c *GmgnClient) Info(ctx context.Context, addr, period string) (*WalletInfo, error) {
	query := url.Values{}
	query.Set("address", addr)
	query.Set("period", period)

	js, err := c.getJSON(ctx, "gmgn.info", "/stats/wallet/info", query)
	if err != nil {
		return nil, err
	}
	if js.Get("code").MustInt(-1) != 0 {
		return nil, fmt.Errorf("gmgn 지갑 조회 실패: %s", addr)
	}

	data := js.Get("data")
	return &WalletInfo{
		Address:        data.Get("address").MustString(addr),
		RealizedProfit: data.Get("totalRealizedProfit").MustFloat64(0),
	}, nil
}

// Trades는 지갑의 거래 목록을 조회합니다
func (c *GmgnClient) Trades(ctx context.Context, addr, period string) ([]WalletTrade, error) {
	query := url.Values{}
	query.Set("address", addr)
	query.Set("period", period)

	js, err := c.getJSON(ctx, "gmgn.trades", "/stats/wallet/tx", query)
	if err != nil {
		return nil, err
	}

	rows := js.Get("data")
	trades := make([]WalletTrade, 0, len(rows.MustArray()))
	for i := 0; i < len(rows.MustArray()); i++ {
		row := rows.GetIndex(i)
		ms := row.Get("timestamp").MustInt64(0)
		trades = append(trades, WalletTrade{
			Timestamp: time.UnixMilli(ms),
			PnL:       row.Get("pnl").MustFloat64(0),
		})
	}
	return trades, nil
}

// TrendingWallets는 수익 상위 지갑 주소 목록을 조회합니다
func (c *GmgnClient) TrendingWallets(ctx context.Context, limit int) ([]string, error) {
	js, err := c.getJSON(ctx, "gmgn.trending", "/stats/wallet/trending", nil)
	if err != nil {
		return nil, err
	}

	rows := js.Get("data")
	addrs := make([]string, 0, limit)
	for i := 0; i < len(rows.MustArray()) && len(addrs) < limit; i++ {
		if addr := rows.GetIndex(i).Get("address").MustString(); addr != "" {
			addrs = append(addrs, addr)
		}
	}
	return addrs, nil
}
