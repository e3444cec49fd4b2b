package metrics

// Recorder는 엔진이 의존하는 최소한의 계측 인터페이스입니다.
// 엔진은 특정 메트릭 백엔드가 아니라 이 좁은 기록 능력에만 의존합니다.
type Recorder interface {
	// SetNAV는 현재 NAV 게이지를 갱신합니다
	SetNAV(nav float64)

	// SetPnLPct는 시작 대비 손익률(%) 게이지를 갱신합니다
	SetPnLPct(pct float64)

	// ObserveSlippageBps는 체결당 슬리피지(bps)를 기록합니다
	ObserveSlippageBps(bps float64)

	// ObserveInclusionMs는 제출부터 확인까지 걸린 시간(ms)을 기록합니다
	ObserveInclusionMs(ms float64)
}

// Nop은 아무것도 기록하지 않는 Recorder입니다. 테스트에 사용합니다.
type Nop struct{}

func (Nop) SetNAV(float64)             {}
func (Nop) SetPnLPct(float64)          {}
func (Nop) ObserveSlippageBps(float64) {}
func (Nop) ObserveInclusionMs(float64) {}
