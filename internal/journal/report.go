package journal

import (
	"fmt"
	"math"
)

// Report는 저널 기록으로 계산한 성과 요약입니다
type Report struct {
	StartNAV    float64
	EndNAV      float64
	CAGR        float64 // 연환산 수익률
	Sharpe      float64 // NAV 수익률 기준 샤프 지수 (연환산)
	MaxDrawdown float64 // 최대 낙폭 (%)
	Trades      int
}

// Summarize는 저널 기록으로 성과 보고서를 계산합니다
func Summarize(records []Record) (*Report, error) {
	if len(records) < 2 {
		return nil, fmt.Errorf("보고서 계산에 기록이 부족합니다 (%d건)", len(records))
	}

	start := records[0]
	end := records[len(records)-1]
	if start.NAVAfter <= 0 {
		return nil, fmt.Errorf("시작 NAV가 유효하지 않습니다: %f", start.NAVAfter)
	}

	years := end.Timestamp.Sub(start.Timestamp).Hours() / (24 * 365)
	cagr := 0.0
	if years > 0 {
		cagr = math.Pow(end.NAVAfter/start.NAVAfter, 1/years) - 1
	}

	return &Report{
		StartNAV:    start.NAVAfter,
		EndNAV:      end.NAVAfter,
		CAGR:        cagr,
		Sharpe:      navSharpe(records),
		MaxDrawdown: maxDrawdown(records),
		Trades:      len(records),
	}, nil
}

// String은 보고서를 사람이 읽을 수 있는 형태로 출력합니다
func (r *Report) String() string {
	return fmt.Sprintf(
		"NAV %.4f → %.4f | CAGR %.2f%% | Sharpe %.2f | MDD %.2f%% | 거래 %d건",
		r.StartNAV, r.EndNAV, r.CAGR*100, r.Sharpe, r.MaxDrawdown, r.Trades,
	)
}

// navSharpe는 기록 간 NAV 수익률의 평균/표준편차 비율을 일 단위로 연환산합니다
func navSharpe(records []Record) float64 {
	returns := make([]float64, 0, len(records)-1)
	for i := 1; i < len(records); i++ {
		prev := records[i-1].NAVAfter
		if prev <= 0 {
			continue
		}
		returns = append(returns, records[i].NAVAfter/prev-1)
	}
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var sq float64
	for _, r := range returns {
		sq += (r - mean) * (r - mean)
	}
	std := math.Sqrt(sq / float64(len(returns)-1))
	if std == 0 {
		return 0
	}

	return mean / std * math.Sqrt(365)
}

// maxDrawdown은 NAV 이력의 최고점 대비 최대 낙폭을 퍼센트로 계산합니다
func maxDrawdown(records []Record) float64 {
	peak := records[0].NAVAfter
	var maxDD float64
	for _, rec := range records {
		if rec.NAVAfter > peak {
			peak = rec.NAVAfter
		}
		if peak <= 0 {
			continue
		}
		dd := 100 * (1 - rec.NAVAfter/peak)
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
