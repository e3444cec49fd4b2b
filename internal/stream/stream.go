package stream

import (
	"fmt"
	"time"

	simplejson "github.com/bitly/go-simplejson"

	"github.com/assist-by/mirror/internal/domain"
)

// Feed는 거래 이벤트 공급원을 정의합니다.
// 실시간 웹소켓과 기록 파일 재생이 같은 인터페이스로 엔진에 연결됩니다.
type Feed interface {
	// Events는 수신한 이벤트 채널을 반환합니다
	Events() <-chan domain.TradeEvent
}

// parseEvent는 원시 메시지를 거래 이벤트로 변환합니다.
// 필수 필드가 빠졌거나 가격이 유효하지 않으면 에러를 반환합니다.
func parseEvent(data []byte) (domain.TradeEvent, error) {
	js, err := simplejson.NewJson(data)
	if err != nil {
		return domain.TradeEvent{}, fmt.Errorf("이벤트 파싱 실패: %w", err)
	}

	event := domain.TradeEvent{
		Wallet: js.Get("wallet").MustString(),
		Token:  js.Get("token").MustString(),
		Side:   domain.Side(js.Get("side").MustString()),
		Price:  js.Get("price").MustFloat64(0),
	}
	if ms := js.Get("timestamp").MustInt64(0); ms > 0 {
		event.Timestamp = time.UnixMilli(ms)
	}

	if event.Wallet == "" || event.Token == "" {
		return domain.TradeEvent{}, fmt.Errorf("이벤트 필수 필드 누락: %s", string(data))
	}
	if event.Side != domain.Buy && event.Side != domain.Sell {
		return domain.TradeEvent{}, fmt.Errorf("알 수 없는 이벤트 방향: %s", event.Side)
	}
	if event.Price <= 0 {
		return domain.TradeEvent{}, fmt.Errorf("이벤트 가격이 유효하지 않음: %f", event.Price)
	}
	return event, nil
}
