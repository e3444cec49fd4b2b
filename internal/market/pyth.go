package market

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	simplejson "github.com/bitly/go-simplejson"

	"github.com/assist-by/mirror/internal/retry"
)

// DefaultVolatility는 변동성 조회가 불가능할 때 쓰는 보수적 기본값입니다
const DefaultVolatility = 0.05

// minutesPerDay는 일별 변동성 환산 계수의 기준입니다
const minutesPerDay = 1440

// Client는 Pyth 가격 이력 API 클라이언트를 구현합니다
type Client struct {
	baseURL    string
	httpClient *http.Client
	retrier    *retry.Retrier
	now        func() time.Time
}

// ClientOption은 클라이언트 생성 옵션을 정의합니다
type ClientOption func(*Client)

// WithTimeout은 HTTP 클라이언트의 타임아웃을 설정합니다
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithBaseURL은 기본 URL을 설정합니다
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// NewClient는 새로운 Pyth 클라이언트를 생성합니다
func NewClient(retrier *retry.Retrier, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    "https://hermes.pyth.network/api/historical_price/",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retrier:    retrier,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// fetchPrices는 [start, end] 구간의 1분 간격 가격 목록을 조회합니다
func (c *Client) fetchPrices(ctx context.Context, operation, mint string, start, end int64) ([]float64, error) {
	reqURL := c.baseURL + url.PathEscape(mint) +
		"?start_time=" + strconv.FormatInt(start, 10) +
		"&end_time=" + strconv.FormatInt(end, 10) +
		"&interval=1"

	var prices []float64
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
			return fmt.Errorf("가격 이력 API 에러 (status %d)", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		js, err := simplejson.NewJson(body)
		if err != nil {
			return fmt.Errorf("가격 이력 파싱 실패: %w", err)
		}

		rows := js.Get("prices")
		n := len(rows.MustArray())
		prices = prices[:0]
		for i := 0; i < n; i++ {
			row := rows.GetIndex(i)
			// 각 행은 [timestamp, price] 쌍
			p := row.GetIndex(1).MustFloat64(0)
			if p > 0 {
				prices = append(prices, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prices, nil
}

// ATR은 최근 lookback분 동안의 ATR 유사 변동성을 반환합니다.
// 데이터가 부족하거나 조회가 실패하면 보수적 기본값을 반환합니다 (사이징을 멈추지 않음).
func (c *Client) ATR(ctx context.Context, mint string, lookback int) float64 {
	end := c.now().Unix()
	start := end - int64(60*lookback)

	prices, err := c.fetchPrices(ctx, "pyth.atr", mint, start, end)
	if err != nil || len(prices) < 2 {
		return DefaultVolatility
	}
	if len(prices) > lookback {
		prices = prices[len(prices)-lookback:]
	}

	var sum float64
	for i := 1; i < len(prices); i++ {
		sum += math.Abs(prices[i]-prices[i-1]) / prices[i-1]
	}
	mean := sum / float64(len(prices)-1)

	// 분 단위 평균 변화율을 일 변동성으로 환산
	return mean * math.Sqrt(minutesPerDay)
}

// LatestPrice는 최근 2분 구간의 마지막 가격을 반환합니다
func (c *Client) LatestPrice(ctx context.Context, mint string) (float64, error) {
	end := c.now().Unix()
	start := end - 120

	prices, err := c.fetchPrices(ctx, "pyth.price", mint, start, end)
	if err != nil {
		return 0, err
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("%s 가격 정보 없음", mint)
	}
	return prices[len(prices)-1], nil
}
