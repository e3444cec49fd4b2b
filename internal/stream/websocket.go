package stream

import (
	"context"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/assist-by/mirror/internal/domain"
)

const (
	reconnectBase = 1 * time.Second
	reconnectMax  = 60 * time.Second
)

// WSFeed는 웹소켓으로 지갑 거래 이벤트를 수신합니다.
// 연결이 끊기면 지수 백오프로 무한히 재연결을 시도합니다.
type WSFeed struct {
	url    string
	dialer *websocket.Dialer
	events chan domain.TradeEvent
}

// NewWSFeed는 새로운 웹소켓 피드를 생성합니다
func NewWSFeed(url string) *WSFeed {
	return &WSFeed{
		url:    url,
		dialer: websocket.DefaultDialer,
		events: make(chan domain.TradeEvent, 64),
	}
}

// Events는 수신한 이벤트 채널을 반환합니다
func (f *WSFeed) Events() <-chan domain.TradeEvent {
	return f.events
}

// Run은 컨텍스트가 취소될 때까지 수신 루프를 유지합니다.
// 종료 시 이벤트 채널을 닫습니다.
func (f *WSFeed) Run(ctx context.Context) error {
	defer close(f.events)

	backoff := reconnectBase
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
		if err != nil {
			log.Printf("웹소켓 연결 실패 (%v 후 재시도): %v", backoff, err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > reconnectMax {
				backoff = reconnectMax
			}
			continue
		}

		log.Printf("웹소켓 연결 성공: %s", f.url)
		backoff = reconnectBase
		f.readLoop(ctx, conn)
		conn.Close()
	}
}

// readLoop은 연결이 끊기거나 컨텍스트가 취소될 때까지 메시지를 읽습니다.
// 형식이 잘못된 메시지는 버리고 계속합니다.
func (f *WSFeed) readLoop(ctx context.Context, conn *websocket.Conn) {
	// 컨텍스트 취소 시 읽기를 깨우기 위해 연결을 닫습니다
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("웹소켓 읽기 실패: %v", err)
			}
			return
		}

		event, err := parseEvent(data)
		if err != nil {
			log.Printf("이벤트 무시: %v", err)
			continue
		}

		select {
		case f.events <- event:
		case <-ctx.Done():
			return
		}
	}
}
