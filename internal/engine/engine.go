package engine

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/assist-by/mirror/internal/chain"
	"github.com/assist-by/mirror/internal/domain"
	"github.com/assist-by/mirror/internal/exchange"
	"github.com/assist-by/mirror/internal/journal"
	"github.com/assist-by/mirror/internal/metrics"
	"github.com/assist-by/mirror/internal/notification"
	"github.com/assist-by/mirror/internal/position"
)

// lamportsPerSOL은 SOL 금액을 최소 단위로 환산하는 계수입니다
const lamportsPerSOL = 1_000_000_000

// PriceSource는 마크 스윕이 사용하는 현재가 조회 능력을 정의합니다
type PriceSource interface {
	LatestPrice(ctx context.Context, mint string) (float64, error)
}

// SafetyGate는 매수 전 안전성 판정 능력을 정의합니다
type SafetyGate interface {
	IsSafe(ctx context.Context, mint string) bool
}

// FeeSource는 우선순위 수수료 조회 능력을 정의합니다
type FeeSource interface {
	GetPriorityFee(ctx context.Context) uint64
}

// Config는 엔진 동작 파라미터를 정의합니다
type Config struct {
	BaseMint          string        // 매수 입력 토큰 (SOL 민트)
	MaxPositionPct    float64       // NAV 대비 단일 포지션 집중 상한 (0~1)
	GlobalDrawdownPct float64       // 킬 스위치 발동 낙폭 (%)
	DryRun            bool          // 시뮬레이션 모드
	SimSlippageBps    int           // 시뮬레이션 체결가 슬리피지 (bps)
	KillFlagPath      string        // 킬 스위치 발동 시 최종 NAV를 기록할 파일
	PruneRetention    time.Duration // 청산 기록 보존 기간 (재진입 쿨다운)
}

// Deps는 엔진이 의존하는 협력자 묶음입니다
type Deps struct {
	Book      *position.Book
	Sizer     *position.Sizer
	Prices    PriceSource
	Safety    SafetyGate
	Exchange  exchange.Exchange
	Signer    chain.Signer
	Fees      FeeSource
	Submitter chain.Submitter
	Journal   *journal.Journal
	Notifier  notification.Notifier
	Metrics   metrics.Recorder
}

// Engine은 지갑 이벤트를 매수로 복사하고 포트폴리오를 관리하는 오케스트레이터입니다.
// 원장 변경은 Book의 뮤텍스로 직렬화되며, 킬 스위치가 발동하면
// 프로세스가 재시작될 때까지 모든 거래가 중단됩니다.
type Engine struct {
	deps     Deps
	wallets  map[string]domain.WalletMetrics
	config   Config
	startNAV float64

	halted atomic.Bool

	closedMu sync.Mutex
	closed   map[string]time.Time // 토큰 → 청산 시각

	now func() time.Time
}

// New는 추적 지갑 목록으로 새로운 엔진을 생성합니다
func New(deps Deps, wallets []domain.WalletMetrics, startNAV float64, config Config) *Engine {
	tracked := make(map[string]domain.WalletMetrics, len(wallets))
	for _, w := range wallets {
		tracked[w.Address] = w
	}
	return &Engine{
		deps:     deps,
		wallets:  tracked,
		config:   config,
		startNAV: startNAV,
		closed:   make(map[string]time.Time),
		now:      time.Now,
	}
}

// Halted는 킬 스위치 발동 여부를 반환합니다
func (e *Engine) Halted() bool {
	return e.halted.Load()
}

// Run은 이벤트 채널이 닫히거나 컨텍스트가 취소될 때까지 이벤트를 처리합니다
func (e *Engine) Run(ctx context.Context, events <-chan domain.TradeEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			e.HandleEvent(ctx, event)
		}
	}
}

// HandleEvent는 단일 지갑 이벤트를 평가하고 필요하면 매수를 실행합니다.
// 추적하지 않는 지갑, 매도 이벤트, 안전성 탈락, 크기 0은 조용히 건너뜁니다.
func (e *Engine) HandleEvent(ctx context.Context, event domain.TradeEvent) {
	if e.halted.Load() {
		log.Printf("킬 스위치 발동 상태, 이벤트 무시: %s", event.Token)
		return
	}

	wallet, tracked := e.wallets[event.Wallet]
	if !tracked || event.Side != domain.Buy {
		return
	}

	if e.recentlyClosed(event.Token) {
		log.Printf("재진입 쿨다운, 매수 건너뜀: %s", event.Token)
		return
	}

	if !e.deps.Safety.IsSafe(ctx, event.Token) {
		return
	}

	nav := e.deps.Book.NAV()
	if pos, ok := e.deps.Book.Position(event.Token); ok {
		if pos.Quantity*event.Price >= e.config.MaxPositionPct*nav {
			log.Printf("포지션 집중 상한 초과, 매수 거부: %s", event.Token)
			return
		}
	}

	stake := e.deps.Sizer.Size(ctx, event.Token, wallet, nav, e.deps.Book.NAVSeries())
	// 단위 수량이 0으로 내림되면 에러가 아니라 조용한 건너뜀
	if stake <= 0 || math.Floor(stake/event.Price) <= 0 {
		return
	}

	e.executeBuy(ctx, event, stake)
}

// executeBuy는 견적→트랜잭션→제출→기록의 매수 시퀀스를 수행합니다.
// 제출까지 실패하면 체결 기록 없이 중단하고, 엔진은 계속 동작합니다.
func (e *Engine) executeBuy(ctx context.Context, event domain.TradeEvent, stake float64) {
	amount := int64(stake * lamportsPerSOL)
	quote, err := e.deps.Exchange.Quote(ctx, e.config.BaseMint, event.Token, amount)
	if err != nil {
		log.Printf("견적 조회 실패, 매수 중단: %s: %v", event.Token, err)
		return
	}

	start := e.now()
	var sig string
	var fillPrice float64

	if e.config.DryRun {
		// 시뮬레이션: 견적가를 슬리피지만큼 불리하게 움직여 체결가를 합성
		fillPrice = quote.Price * (1 + float64(e.config.SimSlippageBps)/10_000)
		sig, err = e.deps.Submitter.Submit(ctx, nil)
		if err != nil {
			log.Printf("시뮬레이션 제출 실패: %v", err)
			return
		}
	} else {
		tx, err := e.deps.Exchange.BuildSwapTx(ctx, quote)
		if err != nil {
			log.Printf("트랜잭션 생성 실패, 매수 중단: %s: %v", event.Token, err)
			return
		}

		raw, err := chain.AddPriorityFee(tx.Raw, e.deps.Fees.GetPriorityFee(ctx))
		if err != nil {
			log.Printf("우선순위 수수료 삽입 실패, 매수 중단: %v", err)
			return
		}

		signed, err := e.deps.Signer.Sign(raw)
		if err != nil {
			log.Printf("서명 실패, 매수 중단: %v", err)
			e.notifyError(fmt.Errorf("트랜잭션 서명 실패: %w", err))
			return
		}

		sig, err = e.deps.Submitter.Submit(ctx, signed)
		if err != nil {
			log.Printf("제출 실패, 매수 중단: %s: %v", event.Token, err)
			e.notifyError(fmt.Errorf("트랜잭션 제출 실패 (%s): %w", event.Token, err))
			return
		}

		fillPrice = tx.ExecPrice
		if fillPrice <= 0 {
			fillPrice = quote.Price
		}
	}

	e.deps.Metrics.ObserveInclusionMs(float64(e.now().Sub(start).Milliseconds()))
	// 슬리피지는 견적가 대비 체결가의 괴리로 측정
	if quote.Price > 0 {
		e.deps.Metrics.ObserveSlippageBps((fillPrice - quote.Price) / quote.Price * 10_000)
	}

	fill := domain.Fill{
		Token:     event.Token,
		Side:      domain.Buy,
		Quantity:  stake / fillPrice,
		Price:     fillPrice,
		Signature: sig,
		Timestamp: e.now(),
	}
	e.deps.Book.ApplyFill(fill)
	nav := e.deps.Book.NAV()

	e.record(journal.Record{
		Timestamp: fill.Timestamp,
		Address:   event.Wallet,
		Token:     fill.Token,
		Side:      string(fill.Side),
		Quantity:  fill.Quantity,
		Price:     fill.Price,
		NAVAfter:  nav,
	})
	e.notifyTrade(notification.TradeInfo{
		Token:     fill.Token,
		Side:      fill.Side,
		Quantity:  fill.Quantity,
		Price:     fill.Price,
		NAV:       nav,
		Signature: sig,
	})

	if !e.config.DryRun {
		e.placeTakeProfit(ctx, event.Token, quote.OutAmount)
	}

	e.updateRisk(nav)
}

// placeTakeProfit은 체결 직후 익절 지정가 주문을 등록합니다.
// 주문 실패는 마크 스윕의 익절 경로가 대신하므로 매수를 되돌리지 않습니다.
func (e *Engine) placeTakeProfit(ctx context.Context, token string, amount int64) {
	pos, ok := e.deps.Book.Position(token)
	if !ok {
		return
	}

	limitID, err := e.deps.Exchange.CreateLimitOrder(ctx, token, e.config.BaseMint, amount, pos.TakeProfit)
	if err != nil {
		log.Printf("익절 지정가 주문 실패: %s: %v", token, err)
		return
	}
	e.deps.Book.SetLimitID(token, limitID)
}

// updateRisk는 NAV 게이지를 갱신하고 최고점을 전진시킨 뒤 킬 스위치를 평가합니다
func (e *Engine) updateRisk(nav float64) {
	e.deps.Metrics.SetNAV(nav)
	if e.startNAV > 0 {
		e.deps.Metrics.SetPnLPct((nav - e.startNAV) / e.startNAV * 100)
	}

	e.deps.Book.AdvancePeak(nav)
	if dd := e.deps.Book.DrawdownPct(nav); dd >= e.config.GlobalDrawdownPct {
		e.triggerKill(nav, dd)
	}
}

// triggerKill은 킬 스위치를 발동합니다.
// 최종 NAV를 플래그 파일에 기록하고, 이후 모든 거래를 중단합니다.
// 복구는 외부 재시작으로만 가능합니다.
func (e *Engine) triggerKill(nav, drawdown float64) {
	if !e.halted.CompareAndSwap(false, true) {
		return
	}

	log.Printf("킬 스위치 발동: 낙폭 %.2f%% (한도 %.2f%%), 최종 NAV %.4f",
		drawdown, e.config.GlobalDrawdownPct, nav)
	e.notifyError(fmt.Errorf("글로벌 낙폭 한도 초과: %.2f%%, 거래를 중단합니다", drawdown))

	if err := os.WriteFile(e.config.KillFlagPath, []byte(fmt.Sprintf("%.6f\n", nav)), 0o644); err != nil {
		log.Printf("킬 플래그 기록 실패: %v", err)
	}
}

// recentlyClosed는 토큰이 재진입 쿨다운 중인지 확인합니다
func (e *Engine) recentlyClosed(token string) bool {
	e.closedMu.Lock()
	defer e.closedMu.Unlock()
	closedAt, ok := e.closed[token]
	if !ok {
		return false
	}
	return e.now().Sub(closedAt) < e.config.PruneRetention
}

// markClosed는 청산 시각을 기록합니다
func (e *Engine) markClosed(token string) {
	e.closedMu.Lock()
	defer e.closedMu.Unlock()
	e.closed[token] = e.now()
}

// pruneClosed는 보존 기간이 지난 청산 기록을 제거합니다
func (e *Engine) pruneClosed() {
	e.closedMu.Lock()
	defer e.closedMu.Unlock()
	cutoff := e.now().Add(-e.config.PruneRetention)
	for token, closedAt := range e.closed {
		if closedAt.Before(cutoff) {
			delete(e.closed, token)
		}
	}
}

// record는 저널 기록 실패를 로그로만 남깁니다
func (e *Engine) record(rec journal.Record) {
	if err := e.deps.Journal.Append(rec); err != nil {
		log.Printf("저널 기록 실패: %v", err)
	}
}

// notifyTrade는 체결 알림 실패를 로그로만 남깁니다
func (e *Engine) notifyTrade(info notification.TradeInfo) {
	if err := e.deps.Notifier.SendTradeInfo(info); err != nil {
		log.Printf("체결 알림 전송 실패: %v", err)
	}
}

// notifyError는 에러 알림 실패를 로그로만 남깁니다
func (e *Engine) notifyError(cause error) {
	if err := e.deps.Notifier.SendError(cause); err != nil {
		log.Printf("에러 알림 전송 실패: %v", err)
	}
}
