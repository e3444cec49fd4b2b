package domain

// WalletMetrics는 추적 후보 지갑의 품질 지표를 표현합니다
type WalletMetrics struct {
	Address  string  // 지갑 주소
	Sharpe   float64 // 일별 PnL 기반 샤프 비율
	Realized float64 // 기간 내 실현 손익
	WinRate  float64 // 승률 (0~1)
	Trades   int     // 지표 산출에 사용된 거래 수
}

// IsStrong은 복사 대상이 될 만큼 위험 조정 성과가 좋은 지갑인지 판단합니다
func (m WalletMetrics) IsStrong() bool {
	return m.Sharpe > 1.2 && m.WinRate*100 >= 55 && m.Realized > 0
}
