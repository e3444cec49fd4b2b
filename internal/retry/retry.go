package retry

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Alerter는 재시도 소진 시 경보를 전송하는 최소 인터페이스입니다
type Alerter interface {
	SendError(err error) error
}

// Config는 재시도 설정을 정의합니다
type Config struct {
	MaxRetries int           // 최대 재시도 횟수
	BaseDelay  time.Duration // 기본 대기 시간
	MaxDelay   time.Duration // 최대 대기 시간
	Factor     float64       // 대기 시간 증가 계수
	Timeout    time.Duration // 시도당 타임아웃
}

// DefaultConfig는 모든 외부 호출에 공통으로 쓰는 기본 재시도 설정을 반환합니다
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Factor:     2.0,
		Timeout:    10 * time.Second,
	}
}

// Retrier는 외부 호출에 공통으로 적용하는 재시도 정책입니다.
// 모든 네트워크 호출 래퍼가 하나의 Retrier를 주입받아 사용합니다.
type Retrier struct {
	config  Config
	alerter Alerter
}

// New는 새로운 Retrier를 생성합니다. alerter는 nil일 수 있습니다.
func New(config Config, alerter Alerter) *Retrier {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = 1 * time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Factor <= 1 {
		config.Factor = 2.0
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &Retrier{config: config, alerter: alerter}
}

// Do는 fn을 지수 백오프로 재시도합니다.
// 모든 시도가 실패하면 마지막 에러를 반환하고, 경보 전송을 시도합니다.
// 경보 전송 실패는 로그만 남기고 무시합니다.
func (r *Retrier) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	var lastErr error
	delay := r.config.BaseDelay

	for attempt := 1; attempt <= r.config.MaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == r.config.MaxRetries {
			break
		}

		log.Printf("%s 실패 (attempt %d/%d): %v", operation, attempt, r.config.MaxRetries, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			// 대기 시간을 증가시키되, 최대 대기 시간을 넘지 않도록 함
			delay = time.Duration(float64(delay) * r.config.Factor)
			if delay > r.config.MaxDelay {
				delay = r.config.MaxDelay
			}
		}
	}

	errMsg := fmt.Errorf("%s 실패 (최대 재시도 횟수 초과): %w", operation, lastErr)
	if r.alerter != nil {
		if notifyErr := r.alerter.SendError(errMsg); notifyErr != nil {
			log.Printf("에러 알림 전송 실패: %v", notifyErr)
		}
	}
	return errMsg
}
