package notification

import "github.com/assist-by/mirror/internal/domain"

// Notifier는 알림 전송 인터페이스를 정의합니다.
// 전송 실패는 호출자에게 반환되지만 엔진 동작을 중단시키지 않습니다 (fire-and-forget).
type Notifier interface {
	// SendInfo는 일반 정보 알림을 전송합니다
	SendInfo(message string) error

	// SendError는 에러 알림을 전송합니다
	SendError(err error) error

	// SendTradeInfo는 체결 정보를 전송합니다
	SendTradeInfo(info TradeInfo) error
}

// TradeInfo는 체결 알림 정보를 정의합니다
type TradeInfo struct {
	Token     string      // 토큰 민트 주소
	Side      domain.Side // 매수/매도
	Quantity  float64     // 체결 수량
	Price     float64     // 체결 가격 (SOL)
	PnL       float64     // 실현 손익 (청산 시에만 의미 있음)
	NAV       float64     // 체결 반영 후 NAV
	Signature string      // 제출 식별자
}

// Nop은 아무것도 전송하지 않는 Notifier입니다. 테스트와 알림 비활성화에 사용합니다.
type Nop struct{}

func (Nop) SendInfo(string) error         { return nil }
func (Nop) SendError(error) error         { return nil }
func (Nop) SendTradeInfo(TradeInfo) error { return nil }
