package retry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type countingAlerter struct {
	calls int
	last  error
}

func (a *countingAlerter) SendError(err error) error {
	a.calls++
	a.last = err
	return nil
}

func fastConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Factor:     2.0,
		Timeout:    100 * time.Millisecond,
	}
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	alerter := &countingAlerter{}
	r := New(fastConfig(), alerter)

	attempts := 0
	err := r.Do(context.Background(), "테스트 호출", func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("일시적 실패")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do() error = %v, want nil", err)
	}
	if attempts != 3 {
		t.Errorf("시도 횟수 = %d, want 3", attempts)
	}
	if alerter.calls != 0 {
		t.Errorf("성공한 호출에 경보 %d건 전송됨", alerter.calls)
	}
}

func TestDoExhaustedAlertsOnce(t *testing.T) {
	alerter := &countingAlerter{}
	r := New(fastConfig(), alerter)

	attempts := 0
	cause := errors.New("계속 실패")
	err := r.Do(context.Background(), "테스트 호출", func(ctx context.Context) error {
		attempts++
		return cause
	})

	if err == nil {
		t.Fatal("Do() error = nil, want error")
	}
	if attempts != 3 {
		t.Errorf("시도 횟수 = %d, want 3", attempts)
	}
	if !errors.Is(err, cause) {
		t.Errorf("원인 에러가 래핑되지 않음: %v", err)
	}
	if !strings.Contains(err.Error(), "테스트 호출") {
		t.Errorf("에러에 작업 이름이 없음: %v", err)
	}
	if alerter.calls != 1 {
		t.Errorf("경보 전송 횟수 = %d, want 1", alerter.calls)
	}
}

func TestDoContextCancel(t *testing.T) {
	r := New(fastConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Do(ctx, "테스트 호출", func(ctx context.Context) error {
		return errors.New("실패")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	r := New(Config{}, nil)
	if r.config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", r.config.MaxRetries)
	}
	if r.config.BaseDelay != time.Second {
		t.Errorf("BaseDelay = %v, want 1s", r.config.BaseDelay)
	}
	if r.config.Factor != 2.0 {
		t.Errorf("Factor = %v, want 2.0", r.config.Factor)
	}
}
