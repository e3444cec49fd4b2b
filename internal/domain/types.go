package domain

import "time"

// Side는 체결 방향을 정의합니다
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// TradeEvent는 추적 지갑의 거래 이벤트를 표현합니다
type TradeEvent struct {
	Wallet    string    // 거래를 발생시킨 지갑 주소
	Token     string    // 토큰 민트 주소
	Side      Side      // 매수/매도
	Price     float64   // 체결 가격 (SOL 기준)
	Timestamp time.Time // 이벤트 발생 시각
}

// Quote는 라우팅 서비스가 반환한 스왑 견적을 표현합니다
type Quote struct {
	InMint    string  // 입력 토큰 민트
	OutMint   string  // 출력 토큰 민트
	InAmount  int64   // 입력 수량 (최소 단위)
	OutAmount int64   // 출력 수량 (최소 단위)
	Price     float64 // 견적 가격
	Route     []byte  // 라우팅 서비스가 반환한 원본 라우트 (swap 요청에 그대로 전달)
}

// SwapTx는 서명 전의 스왑 트랜잭션을 표현합니다
type SwapTx struct {
	Raw       []byte  // 직렬화된 트랜잭션
	ExecPrice float64 // 라우팅 서비스가 예상한 체결 가격 (없으면 0)
}

// Fill은 체결 결과를 표현합니다
type Fill struct {
	Token     string    // 토큰 민트 주소
	Side      Side      // 매수/매도
	Quantity  float64   // 체결 수량
	Price     float64   // 체결 가격
	Signature string    // 제출 식별자 (시뮬레이션 체결은 "SIM-" 접두사)
	Timestamp time.Time // 체결 시각
}
