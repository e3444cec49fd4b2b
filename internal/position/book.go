package position

import (
	"sync"

	"github.com/assist-by/mirror/internal/domain"
)

// navHistoryCap은 포트폴리오 변동성 추정에 사용할 NAV 이력의 최대 길이입니다
const navHistoryCap = 1440

// Book은 포지션 원장을 관리합니다.
// 매수 경로와 마크 스윕이 공유하는 단일 기록 지점으로, 모든 접근은
// 내부 뮤텍스로 직렬화됩니다.
type Book struct {
	mu         sync.Mutex
	initial    float64 // 자본 기준선 (청산 손익이 여기로 흡수됩니다)
	positions  map[string]*domain.Position
	marks      map[string]float64
	peak       float64
	navHistory []float64
	stopPct    float64
	takePct    float64
}

// NewBook은 초기 자본으로 새로운 원장을 생성합니다
func NewBook(initialNAV, stopPct, takePct float64) *Book {
	return &Book{
		initial:   initialNAV,
		positions: make(map[string]*domain.Position),
		marks:     make(map[string]float64),
		peak:      initialNAV,
		stopPct:   stopPct,
		takePct:   takePct,
	}
}

// ApplyFill은 체결을 원장에 반영합니다.
// 매수는 가중 평균 진입가로 합산하고, 매도는 수량을 차감하며
// 수량이 0 이하가 되면 포지션을 제거합니다.
// 체결 가격은 방향과 무관하게 해당 토큰의 마크 가격이 됩니다.
func (b *Book) ApplyFill(fill domain.Fill) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.marks[fill.Token] = fill.Price

	pos, exists := b.positions[fill.Token]
	if fill.Side == domain.Buy {
		cost := fill.Quantity * fill.Price
		if exists {
			total := pos.Quantity + fill.Quantity
			pos.Entry = (pos.Entry*pos.Quantity + cost) / total
			pos.Quantity = total
			pos.Value += cost
			return
		}
		b.positions[fill.Token] = &domain.Position{
			Token:      fill.Token,
			Quantity:   fill.Quantity,
			Entry:      fill.Price,
			Value:      cost,
			StopLoss:   fill.Price * (1 - b.stopPct/100),
			TakeProfit: fill.Price * (1 + b.takePct/100),
		}
		return
	}

	if !exists {
		return
	}
	sold := fill.Quantity
	if sold > pos.Quantity {
		sold = pos.Quantity
	}
	pos.Value -= pos.Entry * sold
	pos.Quantity -= sold
	if pos.Quantity <= 0 {
		delete(b.positions, fill.Token)
	}
}

// NAV는 현재 순자산가치를 계산합니다.
// 기준선에서 투입 원가를 빼고 보유 포지션의 현재 가치를 더하며,
// 마크 가격이 없는 포지션은 진입가로 평가합니다.
func (b *Book) NAV() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.navLocked()
}

func (b *Book) navLocked() float64 {
	nav := b.initial
	for token, pos := range b.positions {
		nav -= pos.Value
		price, ok := b.marks[token]
		if !ok {
			price = pos.Entry
		}
		nav += price * pos.Quantity
	}
	return nav
}

// SetMark는 토큰의 마크 가격을 갱신합니다
func (b *Book) SetMark(token string, price float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.marks[token] = price
}

// AdvancePeak는 NAV 최고점을 단조 증가로 갱신하고 현재 최고점을 반환합니다
func (b *Book) AdvancePeak(nav float64) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if nav > b.peak {
		b.peak = nav
	}
	return b.peak
}

// Peak는 기록된 NAV 최고점을 반환합니다
func (b *Book) Peak() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.peak
}

// DrawdownPct는 최고점 대비 낙폭을 퍼센트로 반환합니다
func (b *Book) DrawdownPct(nav float64) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.peak <= 0 {
		return 0
	}
	return 100 * (1 - nav/b.peak)
}

// RealizeClose는 포지션을 청산가로 확정합니다.
// 실현 손익은 자본 기준선에 흡수되고 포지션은 원장에서 제거됩니다.
func (b *Book) RealizeClose(token string, price float64) (pnl float64, closed domain.Position, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos, exists := b.positions[token]
	if !exists {
		return 0, domain.Position{}, false
	}

	pnl = (price - pos.Entry) * pos.Quantity
	b.initial += pnl
	closed = *pos
	delete(b.positions, token)
	delete(b.marks, token)
	return pnl, closed, true
}

// Position은 토큰의 현재 포지션 사본을 반환합니다
func (b *Book) Position(token string) (domain.Position, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pos, ok := b.positions[token]
	if !ok {
		return domain.Position{}, false
	}
	return *pos, true
}

// Positions는 모든 포지션의 사본 목록을 반환합니다
func (b *Book) Positions() []domain.Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Position, 0, len(b.positions))
	for _, pos := range b.positions {
		out = append(out, *pos)
	}
	return out
}

// SetLimitID는 포지션에 연결된 지정가 주문 ID를 기록합니다
func (b *Book) SetLimitID(token, limitID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if pos, ok := b.positions[token]; ok {
		pos.LimitID = limitID
	}
}

// AppendNAV는 NAV 표본을 이력에 추가합니다.
// 이력은 포트폴리오 변동성 추정에 필요한 길이만 유지합니다.
func (b *Book) AppendNAV(nav float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.navHistory = append(b.navHistory, nav)
	if len(b.navHistory) > navHistoryCap {
		b.navHistory = b.navHistory[len(b.navHistory)-navHistoryCap:]
	}
}

// NAVSeries는 NAV 이력의 사본을 반환합니다
func (b *Book) NAVSeries() []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]float64, len(b.navHistory))
	copy(out, b.navHistory)
	return out
}
