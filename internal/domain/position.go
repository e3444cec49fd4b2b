package domain

// Position은 보유 중인 단일 토큰 포지션을 표현합니다.
// 수량이 0 이하로 떨어지면 장부에서 제거되며, 0 수량 포지션은 존재하지 않습니다.
type Position struct {
	Token      string  // 토큰 민트 주소
	Quantity   float64 // 보유 수량 (항상 > 0)
	Entry      float64 // 수량 가중 평균 진입가
	Value      float64 // 투입 원가 (cost basis)
	StopLoss   float64 // 손절가
	TakeProfit float64 // 익절가
	Source     string  // 진입 출처 태그 (예: "copy")
	LimitID    string  // 대기 중인 지정가 주문 ID (없으면 빈 문자열)
}
