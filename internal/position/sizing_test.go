package position

import (
	"context"
	"math"
	"testing"

	"github.com/assist-by/mirror/internal/domain"
)

func TestKellySizeNonPositiveEdge(t *testing.T) {
	if size := KellySize(100, 0, 0.1, 0.25, 0.25, 30); size != 0 {
		t.Errorf("엣지 0 → size = %v, want 0", size)
	}
	if size := KellySize(100, -1.5, 0.1, 0.25, 0.25, 30); size != 0 {
		t.Errorf("음수 엣지 → size = %v, want 0", size)
	}
	if size := KellySize(0, 1.0, 0.1, 0.25, 0.25, 30); size != 0 {
		t.Errorf("NAV 0 → size = %v, want 0", size)
	}
}

func TestKellySizeSampleDamping(t *testing.T) {
	small := KellySize(100, 1.0, 0.1, 0.25, 0.25, 5)
	large := KellySize(100, 1.0, 0.1, 0.25, 0.25, 30)

	if small <= 0 || large <= 0 {
		t.Fatalf("양수 엣지에서 size가 0: small=%v large=%v", small, large)
	}
	// 표본이 적을수록 엄격하게 작은 금액
	if small >= large {
		t.Errorf("표본 5 size=%v가 표본 30 size=%v보다 작아야 함", small, large)
	}

	// f=0.5 → 상한 0.25, 비율 0.25/0.1=2.5 → 상한 0.25, 감쇠 30/60
	want := 0.25 * 100 * (30.0 / 60.0)
	if math.Abs(large-want) > 1e-9 {
		t.Errorf("size = %v, want %v", large, want)
	}
}

func TestKellySizeVolFloor(t *testing.T) {
	// 변동성 0은 하한 1e-3으로 대체되어 폭주하지 않음
	size := KellySize(100, 1.0, 0, 0.25, 0.25, 30)
	limit := 0.25 * 100 * (30.0 / 60.0)
	if size > limit+1e-9 {
		t.Errorf("size = %v, 상한 %v 초과", size, limit)
	}
}

func TestPortfolioVolInsufficientSamples(t *testing.T) {
	if v := PortfolioVol(nil); v != 0 {
		t.Errorf("빈 이력 → %v, want 0", v)
	}
	if v := PortfolioVol([]float64{100, 101}); v != 0 {
		t.Errorf("표본 2개 → %v, want 0", v)
	}
	if v := PortfolioVol([]float64{100, 100, 100, 100}); v != 0 {
		t.Errorf("무변동 이력 → %v, want 0", v)
	}
}

func TestPortfolioVolPositive(t *testing.T) {
	v := PortfolioVol([]float64{100, 102, 99, 103, 101})
	if v <= 0 {
		t.Errorf("변동 이력 → %v, want > 0", v)
	}
}

type fakeVol struct {
	atr float64
}

func (f fakeVol) ATR(context.Context, string, int) float64 {
	return f.atr
}

func TestSizerSize(t *testing.T) {
	sizer := NewSizer(fakeVol{atr: 0.1}, SizerConfig{})
	metrics := domain.WalletMetrics{Sharpe: 1.0, Trades: 30}

	// NAV 이력이 없으면 포트폴리오 변동성 재조정 없이 켈리 크기 그대로
	size := sizer.Size(context.Background(), "TOKEN", metrics, 100, nil)
	want := 0.25 * 100 * (30.0 / 60.0)
	if math.Abs(size-want) > 1e-9 {
		t.Errorf("size = %v, want %v", size, want)
	}

	// 어떤 경우에도 단일 배팅 상한을 넘지 않음
	calm := make([]float64, 100)
	for i := range calm {
		calm[i] = 100 + 0.0001*float64(i)
	}
	size = sizer.Size(context.Background(), "TOKEN", metrics, 100, calm)
	if size > 0.25*100+1e-9 {
		t.Errorf("size = %v, 상한 25 초과", size)
	}
}

func TestSizerZeroEdge(t *testing.T) {
	sizer := NewSizer(fakeVol{atr: 0.1}, SizerConfig{})
	metrics := domain.WalletMetrics{Sharpe: 0, Trades: 30}

	if size := sizer.Size(context.Background(), "TOKEN", metrics, 100, nil); size != 0 {
		t.Errorf("엣지 없는 지갑 → size = %v, want 0", size)
	}
}
