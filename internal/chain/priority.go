package chain

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"time"

	simplejson "github.com/bitly/go-simplejson"
)

// DefaultPriorityFee는 추정 API를 사용할 수 없을 때의 컴퓨트 유닛당 수수료(lamports)입니다
const DefaultPriorityFee uint64 = 1000

// computeBudgetSetPrice는 ComputeBudget 프로그램의 SetComputeUnitPrice 명령 태그입니다
const computeBudgetSetPrice byte = 0x03

// FeeEstimator는 우선순위 수수료 추정 API 클라이언트입니다
type FeeEstimator struct {
	estimateURL string
	httpClient  *http.Client
}

// NewFeeEstimator는 새로운 FeeEstimator를 생성합니다.
// estimateURL이 비어 있으면 GetPriorityFee는 항상 기본값을 반환합니다.
func NewFeeEstimator(estimateURL string) *FeeEstimator {
	return &FeeEstimator{
		estimateURL: estimateURL,
		httpClient:  &http.Client{Timeout: 5 * time.Second},
	}
}

// GetPriorityFee는 현재 우선순위 수수료 추정치를 조회합니다.
// 조회 실패는 거래를 막을 이유가 아니므로 기본값으로 대체합니다.
func (e *FeeEstimator) GetPriorityFee(ctx context.Context) uint64 {
	if e.estimateURL == "" {
		return DefaultPriorityFee
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.estimateURL, nil)
	if err != nil {
		return DefaultPriorityFee
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return DefaultPriorityFee
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return DefaultPriorityFee
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return DefaultPriorityFee
	}

	js, err := simplejson.NewJson(body)
	if err != nil {
		return DefaultPriorityFee
	}

	fee, err := js.Get("priorityFeeEstimate").Float64()
	if err != nil || fee <= 0 {
		return DefaultPriorityFee
	}
	return uint64(fee)
}

// ComputeBudgetInstruction은 SetComputeUnitPrice 명령 데이터를 인코딩합니다.
// 형식: 0x03 || uint64 little-endian (lamports per compute unit)
func ComputeBudgetInstruction(lamportsPerCU uint64) []byte {
	data := make([]byte, 9)
	data[0] = computeBudgetSetPrice
	binary.LittleEndian.PutUint64(data[1:], lamportsPerCU)
	return data
}

// AddPriorityFee는 서명 전 트랜잭션의 첫 명령 앞에 컴퓨트 예산 명령을 삽입합니다
func AddPriorityFee(raw []byte, lamportsPerCU uint64) ([]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("빈 트랜잭션에는 수수료를 추가할 수 없습니다")
	}
	instr := ComputeBudgetInstruction(lamportsPerCU)
	out := make([]byte, 0, len(instr)+len(raw))
	out = append(out, instr...)
	out = append(out, raw...)
	return out, nil
}
