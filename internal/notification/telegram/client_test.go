package telegram

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/assist-by/mirror/internal/domain"
	"github.com/assist-by/mirror/internal/notification"
)

func TestEnabled(t *testing.T) {
	if NewClient("", "").Enabled() {
		t.Error("토큰 없는 클라이언트가 활성화됨")
	}
	if NewClient("token", "").Enabled() {
		t.Error("채팅 ID 없는 클라이언트가 활성화됨")
	}
	if !NewClient("token", "chat").Enabled() {
		t.Error("설정된 클라이언트가 비활성화됨")
	}
}

func TestDisabledClientSkipsSend(t *testing.T) {
	// 비활성 클라이언트는 네트워크 접근 없이 성공을 반환
	c := NewClient("", "", WithBaseURL("http://127.0.0.1:0"))
	if err := c.SendInfo("테스트"); err != nil {
		t.Errorf("SendInfo() error = %v", err)
	}
}

func TestSendTradeInfo(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/botTOKEN/sendMessage") {
			t.Errorf("요청 경로 = %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
	}))
	defer server.Close()

	c := NewClient("TOKEN", "CHAT", WithBaseURL(server.URL))
	err := c.SendTradeInfo(notification.TradeInfo{
		Token:    "So11111111111111111111111111111111111111112",
		Side:     domain.Sell,
		Quantity: 10,
		Price:    1.25,
		PnL:      2.5,
		NAV:      102.5,
	})
	if err != nil {
		t.Fatalf("SendTradeInfo() error = %v", err)
	}

	if got["chat_id"] != "CHAT" {
		t.Errorf("chat_id = %q, want CHAT", got["chat_id"])
	}
	if !strings.HasPrefix(got["text"], "SELL") {
		t.Errorf("text = %q, want SELL 접두사", got["text"])
	}
	if !strings.Contains(got["text"], "So11…") {
		t.Errorf("토큰 주소가 축약되지 않음: %q", got["text"])
	}
}
