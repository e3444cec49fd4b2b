package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PromRecorder는 prometheus 백엔드로 메트릭을 기록합니다
type PromRecorder struct {
	nav       prometheus.Gauge
	pnlPct    prometheus.Gauge
	slippage  prometheus.Histogram
	inclusion prometheus.Histogram
}

// NewPromRecorder는 기본 레지스트리에 메트릭을 등록한 Recorder를 생성합니다
func NewPromRecorder() *PromRecorder {
	return &PromRecorder{
		nav: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bot_nav_sol",
			Help: "Current NAV in SOL",
		}),
		pnlPct: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bot_pnl_pct",
			Help: "PnL % from start",
		}),
		slippage: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "slippage_bps",
			Help:    "Slippage per trade",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		inclusion: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "inclusion_ms",
			Help:    "ms from send to confirm",
			Buckets: prometheus.ExponentialBuckets(10, 2, 12),
		}),
	}
}

// SetNAV는 현재 NAV 게이지를 갱신합니다
func (r *PromRecorder) SetNAV(nav float64) { r.nav.Set(nav) }

// SetPnLPct는 손익률 게이지를 갱신합니다
func (r *PromRecorder) SetPnLPct(pct float64) { r.pnlPct.Set(pct) }

// ObserveSlippageBps는 슬리피지 히스토그램에 값을 기록합니다
func (r *PromRecorder) ObserveSlippageBps(bps float64) { r.slippage.Observe(bps) }

// ObserveInclusionMs는 포함 지연 히스토그램에 값을 기록합니다
func (r *PromRecorder) ObserveInclusionMs(ms float64) { r.inclusion.Observe(ms) }

// Serve는 /metrics 핸들러를 노출하는 HTTP 서버를 시작합니다.
// 블로킹 호출이므로 고루틴에서 실행해야 합니다.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
