// internal/exchange/exchange.go
package exchange

import (
	"context"

	"github.com/assist-by/mirror/internal/domain"
)

// Exchange는 스왑 라우팅 서비스와의 상호작용을 위한 인터페이스입니다.
// 라우팅 서비스 교체는 설정 문제이며, 엔진은 이 인터페이스에만 의존합니다.
type Exchange interface {
	// Quote는 입력→출력 토큰 스왑 견적을 조회합니다
	Quote(ctx context.Context, inMint, outMint string, amount int64) (*domain.Quote, error)

	// BuildSwapTx는 선택된 라우트의 실행 가능한 트랜잭션을 생성합니다
	BuildSwapTx(ctx context.Context, quote *domain.Quote) (*domain.SwapTx, error)

	// CreateLimitOrder는 지정가 주문을 생성하고 주문 ID를 반환합니다
	CreateLimitOrder(ctx context.Context, inMint, outMint string, amount int64, price float64) (string, error)

	// CancelLimitOrder는 지정가 주문을 취소합니다
	CancelLimitOrder(ctx context.Context, limitID string) error
}
