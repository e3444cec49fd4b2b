package engine

import (
	"context"
	"log"

	"github.com/assist-by/mirror/internal/domain"
	"github.com/assist-by/mirror/internal/journal"
	"github.com/assist-by/mirror/internal/notification"
)

// Execute는 주기적인 마크/청산 스윕을 수행합니다 (scheduler.Task 구현).
// 개별 자산의 가격 조회 실패는 나머지 자산의 마크를 막지 않습니다.
func (e *Engine) Execute(ctx context.Context) error {
	if e.halted.Load() {
		return nil
	}

	for _, pos := range e.deps.Book.Positions() {
		price, err := e.deps.Prices.LatestPrice(ctx, pos.Token)
		if err != nil {
			log.Printf("마크 실패, 다음 스윕에 재시도: %s: %v", pos.Token, err)
			continue
		}

		e.deps.Book.SetMark(pos.Token, price)

		if price <= pos.StopLoss || price >= pos.TakeProfit {
			e.closePosition(ctx, pos, price)
		}
	}

	nav := e.deps.Book.NAV()
	e.deps.Book.AppendNAV(nav)
	e.updateRisk(nav)

	e.pruneClosed()
	return nil
}

// closePosition은 포지션을 전량 청산합니다.
// 대기 중인 지정가 주문을 먼저 취소하고, 실현 손익을 자본 기준선에 반영합니다.
func (e *Engine) closePosition(ctx context.Context, pos domain.Position, price float64) {
	if pos.LimitID != "" {
		if err := e.deps.Exchange.CancelLimitOrder(ctx, pos.LimitID); err != nil {
			log.Printf("지정가 주문 취소 실패: %s: %v", pos.LimitID, err)
		}
	}

	pnl, closed, ok := e.deps.Book.RealizeClose(pos.Token, price)
	if !ok {
		return
	}
	nav := e.deps.Book.NAV()

	reason := "손절"
	if price >= closed.TakeProfit {
		reason = "익절"
	}
	log.Printf("%s 청산: %s qty=%.6f price=%.8f pnl=%.4f", reason, closed.Token, closed.Quantity, price, pnl)

	e.record(journal.Record{
		Timestamp: e.now(),
		Token:     closed.Token,
		Side:      string(domain.Sell),
		Quantity:  closed.Quantity,
		Price:     price,
		NAVAfter:  nav,
	})
	e.notifyTrade(notification.TradeInfo{
		Token:    closed.Token,
		Side:     domain.Sell,
		Quantity: closed.Quantity,
		Price:    price,
		PnL:      pnl,
		NAV:      nav,
	})

	e.markClosed(closed.Token)
}
