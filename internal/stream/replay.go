package stream

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/assist-by/mirror/internal/domain"
)

// Replayer는 기록 파일(JSON Lines)의 이벤트를 순서대로 재생합니다.
// 페이싱을 켜면 이벤트 간 시각 차이만큼 대기하며 실제 속도를 재현합니다.
type Replayer struct {
	path   string
	pace   bool
	events chan domain.TradeEvent
}

// NewReplayer는 새로운 재생기를 생성합니다
func NewReplayer(path string, pace bool) *Replayer {
	return &Replayer{
		path:   path,
		pace:   pace,
		events: make(chan domain.TradeEvent, 64),
	}
}

// Events는 재생되는 이벤트 채널을 반환합니다
func (r *Replayer) Events() <-chan domain.TradeEvent {
	return r.events
}

// Run은 파일 끝까지 이벤트를 재생하고 채널을 닫습니다.
// 형식이 잘못된 줄은 버리고 계속합니다.
func (r *Replayer) Run(ctx context.Context) error {
	defer close(r.events)

	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("재생 파일 열기 실패: %w", err)
	}
	defer f.Close()

	var prev time.Time
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		event, err := parseEvent(line)
		if err != nil {
			log.Printf("재생 줄 무시: %v", err)
			continue
		}

		if r.pace && !prev.IsZero() && event.Timestamp.After(prev) {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(event.Timestamp.Sub(prev)):
			}
		}
		prev = event.Timestamp

		select {
		case r.events <- event:
		case <-ctx.Done():
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("재생 파일 읽기 실패: %w", err)
	}
	return nil
}
