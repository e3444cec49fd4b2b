// internal/exchange/jupiter/client.go
package jupiter

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	simplejson "github.com/bitly/go-simplejson"

	"github.com/assist-by/mirror/internal/domain"
	"github.com/assist-by/mirror/internal/retry"
)

// Client는 Jupiter 집계기 API 클라이언트를 구현합니다
type Client struct {
	baseURL     string
	userPubkey  string
	slippageBps int
	httpClient  *http.Client
	retrier     *retry.Retrier
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

// WithSlippageBps는 견적 요청의 슬리피지 허용치를 설정합니다
func WithSlippageBps(bps int) ClientOption {
	return func(c *Client) {
		c.slippageBps = bps
	}
}

// NewClient는 새로운 Jupiter API 클라이언트를 생성합니다
func NewClient(userPubkey string, retrier *retry.Retrier, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     "https://quote-api.jup.ag",
		userPubkey:  userPubkey,
		slippageBps: 50,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		retrier:     retrier,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// doRequest는 HTTP 요청을 실행하고 응답 본문을 반환합니다
func (c *Client) doRequest(ctx context.Context, method, endpoint string, query url.Values, body []byte) ([]byte, error) {
	reqURL, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return nil, fmt.Errorf("URL 파싱 실패: %w", err)
	}
	if query != nil {
		reqURL.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("요청 생성 실패: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("요청 실행 실패: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("응답 읽기 실패: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API 에러 (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// Quote는 스왑 견적을 조회합니다
func (c *Client) Quote(ctx context.Context, inMint, outMint string, amount int64) (*domain.Quote, error) {
	query := url.Values{}
	query.Set("inputMint", inMint)
	query.Set("outputMint", outMint)
	query.Set("amount", strconv.FormatInt(amount, 10))
	query.Set("slippageBps", strconv.Itoa(c.slippageBps))

	var quote *domain.Quote
	err := c.retrier.Do(ctx, "jup.quote", func(ctx context.Context) error {
		respBody, err := c.doRequest(ctx, http.MethodGet, "/v6/quote", query, nil)
		if err != nil {
			return err
		}

		js, err := simplejson.NewJson(respBody)
		if err != nil {
			return fmt.Errorf("견적 응답 파싱 실패: %w", err)
		}

		routes := js.Get("data")
		if len(routes.MustArray()) == 0 {
			return fmt.Errorf("사용 가능한 라우트가 없습니다: %s→%s", inMint, outMint)
		}

		best := routes.GetIndex(0)
		route, err := best.MarshalJSON()
		if err != nil {
			return fmt.Errorf("라우트 직렬화 실패: %w", err)
		}

		outAmount, _ := best.Get("outAmount").Int64()
		var price float64
		if amount > 0 && outAmount > 0 {
			price = float64(amount) / float64(outAmount)
		}

		quote = &domain.Quote{
			InMint:    inMint,
			OutMint:   outMint,
			InAmount:  amount,
			OutAmount: outAmount,
			Price:     price,
			Route:     route,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

// BuildSwapTx는 선택된 라우트의 스왑 트랜잭션을 생성합니다
func (c *Client) BuildSwapTx(ctx context.Context, quote *domain.Quote) (*domain.SwapTx, error) {
	body := fmt.Sprintf(`{"route":%s,"userPublicKey":%s}`, string(quote.Route), strconv.Quote(c.userPubkey))

	var tx *domain.SwapTx
	err := c.retrier.Do(ctx, "jup.swap", func(ctx context.Context) error {
		respBody, err := c.doRequest(ctx, http.MethodPost, "/v6/swap", nil, []byte(body))
		if err != nil {
			return err
		}

		js, err := simplejson.NewJson(respBody)
		if err != nil {
			return fmt.Errorf("스왑 응답 파싱 실패: %w", err)
		}

		txB64, err := js.Get("swapTransaction").String()
		if err != nil {
			return fmt.Errorf("swapTransaction 필드 없음")
		}

		raw, err := base64.StdEncoding.DecodeString(txB64)
		if err != nil {
			return fmt.Errorf("트랜잭션 디코딩 실패: %w", err)
		}

		// 일부 응답은 라우팅 서비스가 예상한 체결 가격을 함께 내려줌
		execPrice := js.Get("execPrice").MustFloat64(0)

		tx = &domain.SwapTx{Raw: raw, ExecPrice: execPrice}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// CreateLimitOrder는 지정가 주문을 생성합니다
func (c *Client) CreateLimitOrder(ctx context.Context, inMint, outMint string, amount int64, price float64) (string, error) {
	body := fmt.Sprintf(`{"inputMint":%s,"outputMint":%s,"inAmount":%d,"targetPrice":%s}`,
		strconv.Quote(inMint), strconv.Quote(outMint), amount,
		strconv.FormatFloat(price, 'f', -1, 64))

	var limitID string
	err := c.retrier.Do(ctx, "jup.limit.create", func(ctx context.Context) error {
		respBody, err := c.doRequest(ctx, http.MethodPost, "/v6/limit/create", nil, []byte(body))
		if err != nil {
			return err
		}

		js, err := simplejson.NewJson(respBody)
		if err != nil {
			return fmt.Errorf("지정가 주문 응답 파싱 실패: %w", err)
		}

		limitID = js.Get("limitOrderId").MustString()
		if limitID == "" {
			return fmt.Errorf("limitOrderId 필드 없음")
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return limitID, nil
}

// CancelLimitOrder는 지정가 주문을 취소합니다
func (c *Client) CancelLimitOrder(ctx context.Context, limitID string) error {
	body := fmt.Sprintf(`{"limitOrderId":%s}`, strconv.Quote(limitID))

	return c.retrier.Do(ctx, "jup.limit.cancel", func(ctx context.Context) error {
		_, err := c.doRequest(ctx, http.MethodPost, "/v6/limit/cancel", nil, []byte(body))
		return err
	})
}
