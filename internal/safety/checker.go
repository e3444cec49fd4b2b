package safety

import (
	"context"
	"log"
	"time"
)

// HolderSource는 보유자/메타데이터 조회 능력을 정의합니다
type HolderSource interface {
	HolderCount(ctx context.Context, mint string) (int, error)
	Meta(ctx context.Context, mint string) (*TokenMeta, error)
	AuthorityFlow(ctx context.Context, authority, mint string) (buys, sells int, err error)
}

// RugSource는 유동성 잠금/커뮤니티 신고 조회 능력을 정의합니다
type RugSource interface {
	Liquidity(ctx context.Context, mint string) (*Liquidity, error)
	Vote(ctx context.Context, mint string) (string, error)
}

// CheckConfig는 안전성 검사 임계값을 정의합니다
type CheckConfig struct {
	MinHolders            int           // 최소 보유자 수
	MinLockedPct          float64       // 최소 유동성 잠금 비율 (%)
	MinListingAge         time.Duration // 상장 후 최소 경과 시간
	MaxAuthoritySellRatio float64       // 권한 주소의 매도/매수 비율 상한
}

// Checker는 매수 전 안전성 검사를 수행합니다.
// 어떤 하위 검사든 실패하면 (자체 I/O 실패 포함) 토큰을 안전하지 않은 것으로
// 판정합니다 (fail closed). 이 경계 밖으로 에러가 전파되지 않습니다.
type Checker struct {
	sol    HolderSource
	rug    RugSource
	config CheckConfig
	now    func() time.Time
}

// NewChecker는 새로운 Checker를 생성합니다
func NewChecker(sol HolderSource, rug RugSource, config CheckConfig) *Checker {
	if config.MinHolders <= 0 {
		config.MinHolders = 5
	}
	if config.MinLockedPct <= 0 {
		config.MinLockedPct = 70
	}
	if config.MaxAuthoritySellRatio <= 0 {
		config.MaxAuthoritySellRatio = 3.0
	}
	return &Checker{
		sol:    sol,
		rug:    rug,
		config: config,
		now:    time.Now,
	}
}

// IsSafe는 토큰이 모든 하위 검사를 통과하는지 판정합니다.
// 검사는 순서대로 실행되며 첫 실패에서 즉시 중단합니다.
func (c *Checker) IsSafe(ctx context.Context, mint string) bool {
	meta, ok := c.metaOK(ctx, mint)
	if !ok {
		return false
	}
	if !c.listingAgeOK(mint, meta) {
		return false
	}
	if !c.liquidityOK(ctx, mint) {
		return false
	}
	if !c.voteOK(ctx, mint) {
		return false
	}
	return c.authorityFlowOK(ctx, mint, meta)
}

// metaOK는 보유자 수와 메타데이터 유효성을 검사합니다
func (c *Checker) metaOK(ctx context.Context, mint string) (*TokenMeta, bool) {
	holders, err := c.sol.HolderCount(ctx, mint)
	if err != nil {
		log.Printf("안전성 검사 실패 %s (보유자 조회): %v", mint, err)
		return nil, false
	}
	if holders < c.config.MinHolders {
		log.Printf("안전성 검사 탈락 %s: 보유자 %d명 (최소 %d)", mint, holders, c.config.MinHolders)
		return nil, false
	}

	meta, err := c.sol.Meta(ctx, mint)
	if err != nil {
		log.Printf("안전성 검사 실패 %s (메타데이터 조회): %v", mint, err)
		return nil, false
	}
	if !meta.Valid {
		log.Printf("안전성 검사 탈락 %s: 메타데이터 없음", mint)
		return nil, false
	}
	return meta, true
}

// listingAgeOK는 상장 후 최소 경과 시간을 검사합니다
func (c *Checker) listingAgeOK(mint string, meta *TokenMeta) bool {
	if c.config.MinListingAge <= 0 || meta.ListedAt.IsZero() {
		return true
	}
	age := c.now().Sub(meta.ListedAt)
	if age < c.config.MinListingAge {
		log.Printf("안전성 검사 탈락 %s: 상장 후 %v 경과 (최소 %v)", mint, age.Round(time.Second), c.config.MinListingAge)
		return false
	}
	return true
}

// liquidityOK는 유동성 잠금 상태를 검사합니다
func (c *Checker) liquidityOK(ctx context.Context, mint string) bool {
	liq, err := c.rug.Liquidity(ctx, mint)
	if err != nil {
		log.Printf("안전성 검사 실패 %s (유동성 조회): %v", mint, err)
		return false
	}
	if liq.OwnerIsAuthority || liq.LockedPct < c.config.MinLockedPct {
		log.Printf("안전성 검사 탈락 %s: locked %.1f%%, owner=%v", mint, liq.LockedPct, liq.OwnerIsAuthority)
		return false
	}
	return true
}

// voteOK는 커뮤니티 러그 신고 여부를 검사합니다
func (c *Checker) voteOK(ctx context.Context, mint string) bool {
	vote, err := c.rug.Vote(ctx, mint)
	if err != nil {
		log.Printf("안전성 검사 실패 %s (투표 조회): %v", mint, err)
		return false
	}
	if vote == "rug" {
		log.Printf("안전성 검사 탈락 %s: 커뮤니티 러그 신고", mint)
		return false
	}
	return true
}

// authorityFlowOK는 권한 주소의 매도/매수 비율 상한을 검사합니다.
// 권한 주소가 없는 토큰은 통과합니다.
func (c *Checker) authorityFlowOK(ctx context.Context, mint string, meta *TokenMeta) bool {
	if meta.Authority == "" {
		return true
	}
	buys, sells, err := c.sol.AuthorityFlow(ctx, meta.Authority, mint)
	if err != nil {
		log.Printf("안전성 검사 실패 %s (권한 주소 거래 조회): %v", mint, err)
		return false
	}
	if buys < 1 {
		buys = 1
	}
	if float64(sells) > c.config.MaxAuthoritySellRatio*float64(buys) {
		log.Printf("안전성 검사 탈락 %s: 권한 주소 매도 %d / 매수 %d", mint, sells, buys)
		return false
	}
	return true
}
