package wallet

import (
	"context"
	"log"
	"math"

	"github.com/assist-by/mirror/internal/domain"
)

// Analyzer는 지갑 품질 지표를 계산합니다
type Analyzer struct {
	api    *GmgnClient
	period string
}

// NewAnalyzer는 새로운 Analyzer를 생성합니다
func NewAnalyzer(api *GmgnClient, period string) *Analyzer {
	if period == "" {
		period = "30d"
	}
	return &Analyzer{api: api, period: period}
}

// Metrics는 단일 지갑의 품질 지표를 계산합니다
func (a *Analyzer) Metrics(ctx context.Context, addr string) (*domain.WalletMetrics, error) {
	info, err := a.api.Info(ctx, addr, a.period)
	if err != nil {
		return nil, err
	}
	trades, err := a.api.Trades(ctx, addr, a.period)
	if err != nil {
		return nil, err
	}

	return &domain.WalletMetrics{
		Address:  info.Address,
		Sharpe:   dailySharpe(trades),
		Realized: info.RealizedProfit,
		WinRate:  winRate(trades),
		Trades:   len(trades),
	}, nil
}

// Strong은 위험 조정 성과가 좋은 지갑만 골라 반환합니다.
// 개별 지갑 조회 실패는 해당 지갑을 건너뛰고 계속합니다.
func (a *Analyzer) Strong(ctx context.Context, addrs []string) []domain.WalletMetrics {
	var strong []domain.WalletMetrics
	for _, addr := range addrs {
		m, err := a.Metrics(ctx, addr)
		if err != nil {
			log.Printf("지갑 분석 실패 %s: %v", addr, err)
			continue
		}
		if m.IsStrong() {
			strong = append(strong, *m)
		}
	}
	return strong
}

// dailySharpe는 일별 합산 손익의 평균/표준편차 비율을 계산합니다
func dailySharpe(trades []WalletTrade) float64 {
	pnlByDay := make(map[string]float64)
	for _, t := range trades {
		day := t.Timestamp.UTC().Format("2006-01-02")
		pnlByDay[day] += t.PnL
	}
	if len(pnlByDay) < 2 {
		return 0
	}

	var sum float64
	for _, pnl := range pnlByDay {
		sum += pnl
	}
	mean := sum / float64(len(pnlByDay))

	var sq float64
	for _, pnl := range pnlByDay {
		sq += (pnl - mean) * (pnl - mean)
	}
	std := math.Sqrt(sq / float64(len(pnlByDay)-1))

	return mean / math.Max(std, 1e-6)
}

// winRate는 손익이 양수인 거래 비율을 계산합니다
func winRate(trades []WalletTrade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.PnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades))
}
