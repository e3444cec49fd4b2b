package engine

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/assist-by/mirror/internal/chain"
	"github.com/assist-by/mirror/internal/domain"
	"github.com/assist-by/mirror/internal/journal"
	"github.com/assist-by/mirror/internal/metrics"
	"github.com/assist-by/mirror/internal/notification"
	"github.com/assist-by/mirror/internal/position"
)

type fakeVol struct {
	atr float64
}

func (f fakeVol) ATR(context.Context, string, int) float64 { return f.atr }

type fakeSafety struct {
	safe bool
}

func (f fakeSafety) IsSafe(context.Context, string) bool { return f.safe }

type fakePrices struct {
	prices map[string]float64
	errs   map[string]error
}

func (f fakePrices) LatestPrice(_ context.Context, mint string) (float64, error) {
	if err, ok := f.errs[mint]; ok {
		return 0, err
	}
	return f.prices[mint], nil
}

type fakeFees struct{}

func (fakeFees) GetPriorityFee(context.Context) uint64 { return chain.DefaultPriorityFee }

type fakeExchange struct {
	quote      *domain.Quote
	quoteErr   error
	tx         *domain.SwapTx
	txErr      error
	limitID    string
	limitCalls int
	cancelled  []string
}

func (f *fakeExchange) Quote(_ context.Context, inMint, outMint string, amount int64) (*domain.Quote, error) {
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	q := *f.quote
	q.InMint = inMint
	q.OutMint = outMint
	q.InAmount = amount
	return &q, nil
}

func (f *fakeExchange) BuildSwapTx(context.Context, *domain.Quote) (*domain.SwapTx, error) {
	return f.tx, f.txErr
}

func (f *fakeExchange) CreateLimitOrder(context.Context, string, string, int64, float64) (string, error) {
	f.limitCalls++
	return f.limitID, nil
}

func (f *fakeExchange) CancelLimitOrder(_ context.Context, limitID string) error {
	f.cancelled = append(f.cancelled, limitID)
	return nil
}

type fakeSigner struct{}

func (fakeSigner) Sign(raw []byte) ([]byte, error) { return raw, nil }
func (fakeSigner) PublicKey() string               { return "PUB" }

type fakeSubmitter struct {
	sig string
	err error
}

func (f fakeSubmitter) Submit(context.Context, []byte) (string, error) {
	return f.sig, f.err
}

type captureMetrics struct {
	metrics.Nop
	slippage []float64
}

func (c *captureMetrics) ObserveSlippageBps(bps float64) {
	c.slippage = append(c.slippage, bps)
}

type captureNotifier struct {
	trades []notification.TradeInfo
	errors []error
}

func (c *captureNotifier) SendInfo(string) error { return nil }

func (c *captureNotifier) SendError(err error) error {
	c.errors = append(c.errors, err)
	return nil
}

func (c *captureNotifier) SendTradeInfo(info notification.TradeInfo) error {
	c.trades = append(c.trades, info)
	return nil
}

type fixture struct {
	engine   *Engine
	book     *position.Book
	exchange *fakeExchange
	notifier *captureNotifier
	journal  string
	killFlag string
}

func newFixture(t *testing.T, mutate func(*Deps, *Config)) *fixture {
	t.Helper()

	dir := t.TempDir()
	book := position.NewBook(100, 8, 25)
	exch := &fakeExchange{
		quote:   &domain.Quote{Price: 1.0, OutAmount: 12_000_000},
		tx:      &domain.SwapTx{Raw: []byte{0x01}, ExecPrice: 1.0},
		limitID: "L1",
	}
	notifier := &captureNotifier{}
	journalPath := filepath.Join(dir, "journal.csv")
	killFlag := filepath.Join(dir, "flag_down")

	deps := Deps{
		Book:      book,
		Sizer:     position.NewSizer(fakeVol{atr: 0.1}, position.SizerConfig{}),
		Prices:    fakePrices{},
		Safety:    fakeSafety{safe: true},
		Exchange:  exch,
		Signer:    fakeSigner{},
		Fees:      fakeFees{},
		Submitter: chain.NewDrySubmitter(),
		Journal:   journal.New(journalPath),
		Notifier:  notifier,
		Metrics:   metrics.Nop{},
	}
	config := Config{
		BaseMint:          "SOL",
		MaxPositionPct:    0.30,
		GlobalDrawdownPct: 20,
		DryRun:            true,
		SimSlippageBps:    10,
		KillFlagPath:      killFlag,
		PruneRetention:    time.Hour,
	}
	if mutate != nil {
		mutate(&deps, &config)
	}

	wallets := []domain.WalletMetrics{{Address: "W1", Sharpe: 1.0, Trades: 30}}
	return &fixture{
		engine:   New(deps, wallets, 100, config),
		book:     book,
		exchange: exch,
		notifier: notifier,
		journal:  journalPath,
		killFlag: killFlag,
	}
}

func buyEvent(token string) domain.TradeEvent {
	return domain.TradeEvent{
		Wallet:    "W1",
		Token:     token,
		Side:      domain.Buy,
		Price:     1.0,
		Timestamp: time.Now(),
	}
}

func TestDryRunBuy(t *testing.T) {
	f := newFixture(t, nil)
	f.engine.HandleEvent(context.Background(), buyEvent("TOK"))

	pos, ok := f.book.Position("TOK")
	if !ok {
		t.Fatal("매수 후 포지션이 없음")
	}

	// 켈리 크기 12.5를 슬리피지 반영가 1.001로 나눈 수량
	wantQty := 12.5 / 1.001
	if math.Abs(pos.Quantity-wantQty) > 1e-9 {
		t.Errorf("수량 = %v, want %v", pos.Quantity, wantQty)
	}

	// 시뮬레이션 체결은 SIM- 식별자로 알림
	if len(f.notifier.trades) != 1 {
		t.Fatalf("체결 알림 %d건, want 1", len(f.notifier.trades))
	}
	if !strings.HasPrefix(f.notifier.trades[0].Signature, "SIM-") {
		t.Errorf("식별자 = %q, want SIM- 접두사", f.notifier.trades[0].Signature)
	}

	// 시뮬레이션에서는 지정가 주문을 생성하지 않음
	if f.exchange.limitCalls != 0 {
		t.Errorf("시뮬레이션 중 지정가 주문 %d건 생성", f.exchange.limitCalls)
	}

	records, err := journal.Read(f.journal)
	if err != nil {
		t.Fatalf("저널 읽기 실패: %v", err)
	}
	if len(records) != 1 || records[0].Side != "buy" || records[0].Token != "TOK" {
		t.Errorf("저널 기록이 올바르지 않음: %+v", records)
	}

	// 원가 재분류이므로 NAV는 그대로
	if nav := f.book.NAV(); math.Abs(nav-100) > 1e-9 {
		t.Errorf("매수 후 NAV = %v, want 100", nav)
	}
}

func TestDustBuySkipped(t *testing.T) {
	f := newFixture(t, nil)

	// 켈리 크기 12.5로는 가격 100짜리 한 단위도 못 삼 → 조용한 건너뜀
	event := buyEvent("TOK")
	event.Price = 100
	f.engine.HandleEvent(context.Background(), event)

	if _, ok := f.book.Position("TOK"); ok {
		t.Error("단위 수량이 0으로 내림되는 매수가 수행됨")
	}
	if _, err := os.Stat(f.journal); !os.IsNotExist(err) {
		t.Error("건너뛴 매수가 저널에 기록됨")
	}
}

func TestDryRunSlippageMeasuredAgainstQuote(t *testing.T) {
	rec := &captureMetrics{}
	f := newFixture(t, func(deps *Deps, _ *Config) {
		deps.Metrics = rec
	})
	// 리더 이벤트 가격(1.0)과 견적가가 달라도 기준은 견적가
	f.exchange.quote.Price = 2.0

	f.engine.HandleEvent(context.Background(), buyEvent("TOK"))

	if len(rec.slippage) != 1 {
		t.Fatalf("슬리피지 기록 %d건, want 1", len(rec.slippage))
	}
	// 시뮬레이션 체결가 = 견적가 × (1 + 10bps) → 견적가 대비 정확히 10bps
	if math.Abs(rec.slippage[0]-10) > 1e-6 {
		t.Errorf("슬리피지 = %v bps, want 10", rec.slippage[0])
	}
}

func TestIgnoresUntrackedAndSells(t *testing.T) {
	f := newFixture(t, nil)

	event := buyEvent("TOK")
	event.Wallet = "UNKNOWN"
	f.engine.HandleEvent(context.Background(), event)

	event = buyEvent("TOK")
	event.Side = domain.Sell
	f.engine.HandleEvent(context.Background(), event)

	if _, ok := f.book.Position("TOK"); ok {
		t.Error("무시해야 할 이벤트가 포지션을 생성함")
	}
}

func TestUnsafeTokenRejected(t *testing.T) {
	f := newFixture(t, func(deps *Deps, _ *Config) {
		deps.Safety = fakeSafety{safe: false}
	})
	f.engine.HandleEvent(context.Background(), buyEvent("TOK"))

	if _, ok := f.book.Position("TOK"); ok {
		t.Error("안전성 탈락 토큰이 매수됨")
	}
}

func TestConcentrationCap(t *testing.T) {
	f := newFixture(t, nil)
	f.book.ApplyFill(domain.Fill{Token: "TOK", Side: domain.Buy, Quantity: 35, Price: 1.0})

	f.engine.HandleEvent(context.Background(), buyEvent("TOK"))

	pos, _ := f.book.Position("TOK")
	if math.Abs(pos.Quantity-35) > 1e-9 {
		t.Errorf("집중 상한 초과 매수가 수행됨: 수량 %v", pos.Quantity)
	}
}

func TestSweepClosesStopLossAndFiresKillSwitch(t *testing.T) {
	f := newFixture(t, func(deps *Deps, _ *Config) {
		deps.Prices = fakePrices{prices: map[string]float64{"TOK": 0.3}}
	})
	f.book.ApplyFill(domain.Fill{Token: "TOK", Side: domain.Buy, Quantity: 30, Price: 1.0})

	if err := f.engine.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	// 손절 청산: (0.3-1.0)×30 = -21 → NAV 79, 낙폭 21% ≥ 20%
	if _, ok := f.book.Position("TOK"); ok {
		t.Error("손절가 이하에서 포지션이 청산되지 않음")
	}
	if nav := f.book.NAV(); math.Abs(nav-79) > 1e-9 {
		t.Errorf("청산 후 NAV = %v, want 79", nav)
	}
	if !f.engine.Halted() {
		t.Fatal("낙폭 한도 초과에도 킬 스위치가 발동하지 않음")
	}

	// 최종 NAV가 플래그 파일에 기록됨
	data, err := os.ReadFile(f.killFlag)
	if err != nil {
		t.Fatalf("킬 플래그 파일 없음: %v", err)
	}
	if !strings.HasPrefix(string(data), "79.") {
		t.Errorf("킬 플래그 내용 = %q, want 79.x", string(data))
	}
	if len(f.notifier.errors) == 0 {
		t.Error("킬 스위치 발동 경보가 없음")
	}

	// 이후 매수는 모두 차단
	f.engine.HandleEvent(context.Background(), buyEvent("NEW"))
	if _, ok := f.book.Position("NEW"); ok {
		t.Error("킬 스위치 발동 후 매수가 수행됨")
	}
}

func TestSweepIsolatesPriceFailures(t *testing.T) {
	f := newFixture(t, func(deps *Deps, _ *Config) {
		deps.Prices = fakePrices{
			prices: map[string]float64{"T2": 1.2},
			errs:   map[string]error{"T1": errors.New("timeout")},
		}
	})
	f.book.ApplyFill(domain.Fill{Token: "T1", Side: domain.Buy, Quantity: 10, Price: 1.0})
	f.book.ApplyFill(domain.Fill{Token: "T2", Side: domain.Buy, Quantity: 10, Price: 1.0})

	if err := f.engine.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	// T1 조회 실패가 T2 마크를 막지 않음
	if _, ok := f.book.Position("T1"); !ok {
		t.Error("조회 실패 자산의 포지션이 사라짐")
	}
	if _, ok := f.book.Position("T2"); !ok {
		t.Error("정상 자산의 포지션이 사라짐")
	}

	// T1은 체결가 마크 유지, T2는 1.2로 마크: NAV = 100 + 10×0.2
	if nav := f.book.NAV(); math.Abs(nav-102) > 1e-9 {
		t.Errorf("NAV = %v, want 102", nav)
	}
}

func TestSweepTakeProfitCancelsLimitOrder(t *testing.T) {
	f := newFixture(t, func(deps *Deps, _ *Config) {
		deps.Prices = fakePrices{prices: map[string]float64{"TOK": 1.30}}
	})
	f.book.ApplyFill(domain.Fill{Token: "TOK", Side: domain.Buy, Quantity: 10, Price: 1.0})
	f.book.SetLimitID("TOK", "L9")

	if err := f.engine.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	// 익절가 1.25 이상 → 청산, 대기 중이던 지정가 주문 취소
	if _, ok := f.book.Position("TOK"); ok {
		t.Error("익절가 이상에서 포지션이 청산되지 않음")
	}
	if len(f.exchange.cancelled) != 1 || f.exchange.cancelled[0] != "L9" {
		t.Errorf("취소된 주문 = %v, want [L9]", f.exchange.cancelled)
	}
	if nav := f.book.NAV(); math.Abs(nav-103) > 1e-9 {
		t.Errorf("NAV = %v, want 103", nav)
	}
}

func TestReentryCooldownAfterClose(t *testing.T) {
	f := newFixture(t, func(deps *Deps, _ *Config) {
		deps.Prices = fakePrices{prices: map[string]float64{"TOK": 0.5}}
	})
	// 작은 포지션이라 청산 손실이 킬 스위치에 못 미침
	f.book.ApplyFill(domain.Fill{Token: "TOK", Side: domain.Buy, Quantity: 5, Price: 1.0})

	if err := f.engine.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if f.engine.Halted() {
		t.Fatal("낙폭 2.5%에 킬 스위치가 발동함")
	}

	// 보존 기간 내 재진입은 거부
	f.engine.HandleEvent(context.Background(), buyEvent("TOK"))
	if _, ok := f.book.Position("TOK"); ok {
		t.Error("쿨다운 중 재진입이 허용됨")
	}
}

func TestLiveBuyPlacesTakeProfitOrder(t *testing.T) {
	f := newFixture(t, func(deps *Deps, config *Config) {
		config.DryRun = false
		deps.Submitter = fakeSubmitter{sig: "5xSig"}
	})
	f.engine.HandleEvent(context.Background(), buyEvent("TOK"))

	pos, ok := f.book.Position("TOK")
	if !ok {
		t.Fatal("매수 후 포지션이 없음")
	}
	if f.exchange.limitCalls != 1 {
		t.Errorf("지정가 주문 생성 %d건, want 1", f.exchange.limitCalls)
	}
	if pos.LimitID != "L1" {
		t.Errorf("LimitID = %q, want L1", pos.LimitID)
	}
	if f.notifier.trades[0].Signature != "5xSig" {
		t.Errorf("식별자 = %q, want 5xSig", f.notifier.trades[0].Signature)
	}
}

func TestLiveBuySubmitFailureLeavesNoFill(t *testing.T) {
	f := newFixture(t, func(deps *Deps, config *Config) {
		config.DryRun = false
		deps.Submitter = fakeSubmitter{err: errors.New("broadcast failed")}
	})
	f.engine.HandleEvent(context.Background(), buyEvent("TOK"))

	// 제출 실패: 체결 기록 없음, 엔진은 계속 동작
	if _, ok := f.book.Position("TOK"); ok {
		t.Error("제출 실패에도 포지션이 생성됨")
	}
	if _, err := os.Stat(f.journal); !os.IsNotExist(err) {
		t.Error("제출 실패에도 저널이 기록됨")
	}
	if len(f.notifier.errors) == 0 {
		t.Error("제출 실패 경보가 없음")
	}
	if f.engine.Halted() {
		t.Error("제출 실패로 엔진이 중단됨")
	}
}

func TestRunStopsWhenChannelCloses(t *testing.T) {
	f := newFixture(t, nil)

	events := make(chan domain.TradeEvent, 1)
	events <- buyEvent("TOK")
	close(events)

	if err := f.engine.Run(context.Background(), events); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, ok := f.book.Position("TOK"); !ok {
		t.Error("채널 종료 전의 이벤트가 처리되지 않음")
	}
}
