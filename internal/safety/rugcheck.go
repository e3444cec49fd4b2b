package safety

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	simplejson "github.com/bitly/go-simplejson"

	"github.com/assist-by/mirror/internal/retry"
)

// Liquidity는 유동성 잠금 상태를 표현합니다
type Liquidity struct {
	LockedPct        float64 // 잠긴 유동성 비율 (%)
	OwnerIsAuthority bool    // LP 소유자가 토큰 권한 주소와 동일한지
}

// RugcheckClient는 커뮤니티 러그 신고 API 클라이언트를 구현합니다
type RugcheckClient struct {
	baseURL    string
	httpClient *http.Client
	retrier    *retry.Retrier
}

// RugcheckOption은 클라이언트 생성 옵션을 정의합니다
type RugcheckOption func(*RugcheckClient)

// WithRugcheckBaseURL은 기본 URL을 설정합니다
func WithRugcheckBaseURL(baseURL string) RugcheckOption {
	return func(c *RugcheckClient) {
		c.baseURL = baseURL
	}
}

// NewRugcheckClient는 새로운 Rugcheck 클라이언트를 생성합니다
func NewRugcheckClient(retrier *retry.Retrier, opts ...RugcheckOption) *RugcheckClient {
	c := &RugcheckClient{
		baseURL:    "https://api.rugcheck.xyz/v1",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retrier:    retrier,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// getJSON은 GET 요청을 보내고 simplejson으로 파싱합니다
func (c *RugcheckClient) getJSON(ctx context.Context, operation, path string) (*simplejson.Json, error) {
	var js *simplejson.Json
	err := c.retrier.Do(ctx, operation, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("rugcheck API 에러 (status %d)", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		js, err = simplejson.NewJson(body)
		if err != nil {
			return fmt.Errorf("rugcheck 응답 파싱 실패: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return js, nil
}

// Liquidity는 토큰의 유동성 잠금 상태를 조회합니다
func (c *RugcheckClient) Liquidity(ctx context.Context, mint string) (*Liquidity, error) {
	js, err := c.getJSON(ctx, "rugcheck.liq", "/liquidity/"+mint)
	if err != nil {
		return nil, err
	}

	return &Liquidity{
		LockedPct:        js.Get("locked_pct").MustFloat64(0),
		OwnerIsAuthority: js.Get("lp_owner_is_token_authority").MustBool(false),
	}, nil
}

// Vote는 커뮤니티 투표 결과 문자열을 조회합니다 ("rug"이면 위험)
func (c *RugcheckClient) Vote(ctx context.Context, mint string) (string, error) {
	js, err := c.getJSON(ctx, "rugcheck.vote", "/votes/"+mint)
	if err != nil {
		return "", err
	}
	return js.Get("vote").MustString(), nil
}
