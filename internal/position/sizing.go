package position

import (
	"context"
	"math"

	"github.com/assist-by/mirror/internal/domain"
)

const (
	// halfKelly는 켈리 비율에 적용하는 안전 계수입니다
	halfKelly = 0.5
	// shrinkSamples는 표본 수 감쇠의 기준점입니다.
	// 감쇠 계수 n/(n+shrinkSamples)는 표본이 적을수록 엄격하게 작아집니다.
	shrinkSamples = 30
	// minVol은 변동성의 하한으로, 0에 가까운 변동성으로 인한 과대 배팅을 막습니다
	minVol = 1e-3
	// ewmaSpan은 NAV 수익률 EWMA의 스팬입니다 (1분 표본 하루치)
	ewmaSpan = 60 * 24
)

// KellySize는 하프 켈리 기준의 배팅 금액을 계산합니다.
// 엣지가 0 이하이면 0을 반환하고, 배팅 비율은 [0, maxStakePct]로 제한되며,
// 표본 수가 적을수록 금액이 엄격하게 줄어듭니다.
func KellySize(nav, edge, vol, maxFraction, maxStakePct float64, sampleCount int) float64 {
	if nav <= 0 || edge <= 0 || sampleCount <= 0 {
		return 0
	}

	f := halfKelly * edge
	if f > maxFraction {
		f = maxFraction
	}

	stakePct := f / math.Max(vol, minVol)
	if stakePct > maxStakePct {
		stakePct = maxStakePct
	}

	shrink := float64(sampleCount) / float64(sampleCount+shrinkSamples)
	return stakePct * nav * shrink
}

// PortfolioVol은 NAV 이력의 연환산 EWMA 변동성을 계산합니다.
// 수익률 표본이 2개 미만이면 0을 반환합니다.
func PortfolioVol(navSeries []float64) float64 {
	if len(navSeries) < 3 {
		return 0
	}

	returns := make([]float64, 0, len(navSeries)-1)
	for i := 1; i < len(navSeries); i++ {
		if navSeries[i-1] == 0 {
			continue
		}
		returns = append(returns, navSeries[i]/navSeries[i-1]-1)
	}
	if len(returns) < 2 {
		return 0
	}

	alpha := 2.0 / float64(ewmaSpan+1)
	var variance, weight float64
	w := 1.0
	for i := len(returns) - 1; i >= 0; i-- {
		variance += alpha * w * returns[i] * returns[i]
		weight += alpha * w
		w *= 1 - alpha
	}
	if weight == 0 {
		return 0
	}

	// 분 단위 변동성을 연 단위로 환산
	return math.Sqrt(variance/weight) * math.Sqrt(float64(ewmaSpan)*365)
}

// VolatilitySource는 자산 변동성 조회 능력을 정의합니다
type VolatilitySource interface {
	ATR(ctx context.Context, mint string, lookback int) float64
}

// SizerConfig는 배팅 크기 계산 파라미터를 정의합니다
type SizerConfig struct {
	MaxKellyFraction float64 // 켈리 비율 상한
	MaxStakePct      float64 // NAV 대비 단일 배팅 비율 상한
	NAVVolTarget     float64 // 포트폴리오 연 변동성 목표
	ATRLookbackMin   int     // ATR 조회 구간 (분)
}

// Sizer는 지갑 품질과 자산 변동성으로 매수 금액을 결정합니다
type Sizer struct {
	vol    VolatilitySource
	config SizerConfig
}

// NewSizer는 새로운 Sizer를 생성합니다
func NewSizer(vol VolatilitySource, config SizerConfig) *Sizer {
	if config.MaxKellyFraction <= 0 {
		config.MaxKellyFraction = 0.25
	}
	if config.MaxStakePct <= 0 {
		config.MaxStakePct = 0.25
	}
	if config.NAVVolTarget <= 0 {
		config.NAVVolTarget = 0.10
	}
	if config.ATRLookbackMin <= 0 {
		config.ATRLookbackMin = 1440
	}
	return &Sizer{vol: vol, config: config}
}

// Size는 매수 금액을 계산합니다.
// 엣지는 지갑의 샤프 지수, 변동성은 자산 ATR을 사용하며,
// NAV 이력이 충분하면 포트폴리오 변동성 목표로 재조정합니다.
func (s *Sizer) Size(ctx context.Context, token string, metrics domain.WalletMetrics, nav float64, navSeries []float64) float64 {
	atr := s.vol.ATR(ctx, token, s.config.ATRLookbackMin)
	stake := KellySize(nav, metrics.Sharpe, atr, s.config.MaxKellyFraction, s.config.MaxStakePct, metrics.Trades)
	if stake <= 0 {
		return 0
	}

	if pvol := PortfolioVol(navSeries); pvol > 0 {
		stake *= s.config.NAVVolTarget / math.Max(pvol, minVol)
	}

	if limit := s.config.MaxStakePct * nav; stake > limit {
		stake = limit
	}
	return stake
}
