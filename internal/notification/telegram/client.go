package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/assist-by/mirror/internal/domain"
	"github.com/assist-by/mirror/internal/notification"
)

// Client는 텔레그램 봇 API 클라이언트를 구현합니다
type Client struct {
	token      string
	chatID     string
	baseURL    string
	httpClient *http.Client
}

// ClientOption은 클라이언트 생성 옵션을 정의합니다
type ClientOption func(*Client)

// WithTimeout은 HTTP 클라이언트의 타임아웃을 설정합니다
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithBaseURL은 기본 URL을 설정합니다 (테스트용)
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// NewClient는 새로운 텔레그램 클라이언트를 생성합니다
func NewClient(token, chatID string, opts ...ClientOption) *Client {
	c := &Client{
		token:      token,
		chatID:     chatID,
		baseURL:    "https://api.telegram.org",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Enabled는 토큰과 채팅 ID가 모두 설정되었는지 반환합니다
func (c *Client) Enabled() bool {
	return c.token != "" && c.chatID != ""
}

// sendMessage는 sendMessage API를 호출합니다
func (c *Client) sendMessage(text string) error {
	if !c.Enabled() {
		return nil
	}

	body, err := json.Marshal(map[string]string{
		"chat_id": c.chatID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("메시지 직렬화 실패: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	resp, err := c.httpClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("텔레그램 전송 실패: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("텔레그램 응답 에러: status %d", resp.StatusCode)
	}
	return nil
}

// SendInfo는 일반 정보 알림을 전송합니다
func (c *Client) SendInfo(message string) error {
	return c.sendMessage(message)
}

// SendError는 에러 알림을 전송합니다
func (c *Client) SendError(err error) error {
	return c.sendMessage(fmt.Sprintf("⚠️ %v", err))
}

// SendTradeInfo는 체결 정보를 전송합니다
func (c *Client) SendTradeInfo(info notification.TradeInfo) error {
	short := info.Token
	if len(short) > 4 {
		short = short[:4] + "…"
	}
	switch info.Side {
	case domain.Sell:
		return c.sendMessage(fmt.Sprintf("SELL %.0f %s @ %.6f PnL %+.4f (NAV %.4f)",
			info.Quantity, short, info.Price, info.PnL, info.NAV))
	default:
		return c.sendMessage(fmt.Sprintf("BUY %.0f %s @ %.6f SOL (NAV %.4f)",
			info.Quantity, short, info.Price, info.NAV))
	}
}
