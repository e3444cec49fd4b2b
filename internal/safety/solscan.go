package safety

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

// TokenMeta는 토큰 메타데이터 조회 결과를 표현합니다
type TokenMeta struct {
	Valid     bool      // 메타데이터 조회 성공 여부
	Authority string    // 권한 주소 (민트/동결 권한 보유 지갑)
	ListedAt  time.Time // 최초 민트(상장) 시각
}

// SolscanClient는 Solscan 공개 API 클라이언트를 구현합니다
type SolscanClient struct {
	baseURL    string
	httpClient *http.Client
	retrier    *retry.Retrier
}

// SolscanOption은 클라이언트 생성 옵션을 정의합니다
type SolscanOption func(*SolscanClient)

// WithSolscanBaseURL은 기본 URL을 설정합니다
func WithSolscanBaseURL(baseURL string) SolscanOption {
	return func(c *SolscanClient) {
		c.baseURL = baseURL
	}
}

// WithSolscanTimeout은 HTTP 클라이언트의 타임아웃을 설정합니다
func WithSolscanTimeout(timeout time.Duration) SolscanOption {
	return func(c *SolscanClient) {
		c.httpClient.Timeout = timeout
	}
}

// NewSolscanClient는 새로운 Solscan 클라이언트를 생성합니다
func NewSolscanClient(retrier *retry.Retrier, opts ...SolscanOption) *SolscanClient {
	c := &SolscanClient{
		baseURL:    "https://public-api.solscan.io",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retrier:    retrier,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// getJSON은 GET 요청을 보내고 simplejson으로 파싱합니다
func (c *SolscanClient) getJSON(ctx context.Context, operation, path string, query url.Values) (*simplejson.Json, error) {
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
			return fmt.Errorf("solscan API 에러 (status %d)", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		js, err = simplejson.NewJson(body)
		if err != nil {
			return fmt.Errorf("solscan 응답 파싱 실패: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return js, nil
}

// HolderCount는 토큰의 상위 보유자 수를 반환합니다 (최대 50)
func (c *SolscanClient) HolderCount(ctx context.Context, mint string) (int, error) {
	query := url.Values{}
	query.Set("account", mint)
	query.Set("limit", "50")

	js, err := c.getJSON(ctx, "solscan.holders", "/token/holders", query)
	if err != nil {
		return 0, err
	}
	return len(js.Get("data").MustArray()), nil
}

// Meta는 토큰 메타데이터를 조회합니다
func (c *SolscanClient) Meta(ctx context.Context, mint string) (*TokenMeta, error) {
	query := url.Values{}
	query.Set("account", mint)

	js, err := c.getJSON(ctx, "solscan.meta", "/token/meta", query)
	if err != nil {
		return nil, err
	}

	meta := &TokenMeta{
		Valid:     js.Get("status").MustString() == "success",
		Authority: js.GetPath("data", "mintAuthority").MustString(),
	}
	if ts := js.GetPath("data", "firstMintTime").MustInt64(0); ts > 0 {
		meta.ListedAt = time.Unix(ts, 0)
	}
	return meta, nil
}

// AuthorityFlow는 권한 주소가 해당 토큰에 대해 발생시킨 매수/매도 건수를 반환합니다
func (c *SolscanClient) AuthorityFlow(ctx context.Context, authority, mint string) (buys, sells int, err error) {
	query := url.Values{}
	query.Set("account", authority)
	query.Set("token", mint)
	query.Set("limit", "50")

	js, err := c.getJSON(ctx, "solscan.authority", "/account/token/txs", query)
	if err != nil {
		return 0, 0, err
	}

	rows := js.Get("data")
	for i := 0; i < len(rows.MustArray()); i++ {
		switch rows.GetIndex(i).Get("side").MustString() {
		case "buy":
			buys++
		case "sell":
			sells++
		}
	}
	return buys, sells, nil
}
