package safety

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeHolders struct {
	holders    int
	holdersErr error
	meta       *TokenMeta
	metaErr    error
	buys       int
	sells      int
	flowErr    error
}

func (f *fakeHolders) HolderCount(context.Context, string) (int, error) {
	return f.holders, f.holdersErr
}

func (f *fakeHolders) Meta(context.Context, string) (*TokenMeta, error) {
	return f.meta, f.metaErr
}

func (f *fakeHolders) AuthorityFlow(context.Context, string, string) (int, int, error) {
	return f.buys, f.sells, f.flowErr
}

type fakeRug struct {
	liq     *Liquidity
	liqErr  error
	vote    string
	voteErr error
}

func (f *fakeRug) Liquidity(context.Context, string) (*Liquidity, error) {
	return f.liq, f.liqErr
}

func (f *fakeRug) Vote(context.Context, string) (string, error) {
	return f.vote, f.voteErr
}

func safeFakes() (*fakeHolders, *fakeRug) {
	return &fakeHolders{
			holders: 10,
			meta: &TokenMeta{
				Valid:    true,
				ListedAt: time.Now().Add(-2 * time.Hour),
			},
		}, &fakeRug{
			liq:  &Liquidity{LockedPct: 90},
			vote: "safe",
		}
}

func newTestChecker(sol *fakeHolders, rug *fakeRug) *Checker {
	return NewChecker(sol, rug, CheckConfig{
		MinHolders:            5,
		MinLockedPct:          70,
		MinListingAge:         30 * time.Minute,
		MaxAuthoritySellRatio: 3.0,
	})
}

func TestIsSafeAllChecksPass(t *testing.T) {
	sol, rug := safeFakes()
	if !newTestChecker(sol, rug).IsSafe(context.Background(), "MINT") {
		t.Error("모든 검사를 통과하는 토큰이 거부됨")
	}
}

func TestIsSafeFailsClosedOnError(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeHolders, *fakeRug)
	}{
		{"보유자 조회 실패", func(s *fakeHolders, r *fakeRug) { s.holdersErr = errors.New("timeout") }},
		{"메타데이터 조회 실패", func(s *fakeHolders, r *fakeRug) { s.metaErr = errors.New("timeout") }},
		{"유동성 조회 실패", func(s *fakeHolders, r *fakeRug) { r.liqErr = errors.New("timeout") }},
		{"투표 조회 실패", func(s *fakeHolders, r *fakeRug) { r.voteErr = errors.New("timeout") }},
		{"권한 거래 조회 실패", func(s *fakeHolders, r *fakeRug) {
			s.meta.Authority = "AUTH"
			s.flowErr = errors.New("timeout")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sol, rug := safeFakes()
			tt.setup(sol, rug)
			if newTestChecker(sol, rug).IsSafe(context.Background(), "MINT") {
				t.Error("하위 검사 실패 시 fail closed여야 함")
			}
		})
	}
}

func TestIsSafeRejections(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeHolders, *fakeRug)
	}{
		{"보유자 부족", func(s *fakeHolders, r *fakeRug) { s.holders = 3 }},
		{"메타데이터 무효", func(s *fakeHolders, r *fakeRug) { s.meta.Valid = false }},
		{"상장 직후", func(s *fakeHolders, r *fakeRug) { s.meta.ListedAt = time.Now().Add(-5 * time.Minute) }},
		{"유동성 잠금 부족", func(s *fakeHolders, r *fakeRug) { r.liq.LockedPct = 40 }},
		{"LP 소유자가 권한 주소", func(s *fakeHolders, r *fakeRug) { r.liq.OwnerIsAuthority = true }},
		{"커뮤니티 러그 신고", func(s *fakeHolders, r *fakeRug) { r.vote = "rug" }},
		{"권한 주소 덤핑", func(s *fakeHolders, r *fakeRug) {
			s.meta.Authority = "AUTH"
			s.buys = 1
			s.sells = 10
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sol, rug := safeFakes()
			tt.setup(sol, rug)
			if newTestChecker(sol, rug).IsSafe(context.Background(), "MINT") {
				t.Error("위험 토큰이 통과됨")
			}
		})
	}
}

func TestAuthorityFlowZeroBuys(t *testing.T) {
	sol, rug := safeFakes()
	sol.meta.Authority = "AUTH"
	sol.buys = 0
	sol.sells = 2

	// 매수 0건은 1로 보정: 매도 2건은 비율 3.0 이내이므로 통과
	if !newTestChecker(sol, rug).IsSafe(context.Background(), "MINT") {
		t.Error("비율 이내의 권한 주소 매도가 거부됨")
	}
}

func TestNoAuthorityPassesFlowCheck(t *testing.T) {
	sol, rug := safeFakes()
	sol.sells = 100 // 권한 주소가 없으면 조회 자체를 하지 않음

	if !newTestChecker(sol, rug).IsSafe(context.Background(), "MINT") {
		t.Error("권한 주소 없는 토큰이 거부됨")
	}
}
