package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"
)

// header는 저널 CSV의 고정 컬럼 구성입니다
var header = []string{"ts", "address", "token", "side", "qty", "price", "nav_after"}

// Record는 저널의 한 행을 표현합니다
type Record struct {
	Timestamp time.Time
	Address   string // 추종한 지갑 주소 (마크 스윕 청산은 빈 값)
	Token     string
	Side      string
	Quantity  float64
	Price     float64
	NAVAfter  float64
}

// Journal은 체결 기록을 CSV 파일에 추가 기록합니다
type Journal struct {
	mu   sync.Mutex
	path string
}

// New는 경로에 기록하는 저널을 생성합니다
func New(path string) *Journal {
	return &Journal{path: path}
}

// Append는 한 행을 파일 끝에 기록합니다.
// 파일이 없으면 헤더와 함께 생성합니다.
func (j *Journal) Append(rec Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, statErr := os.Stat(j.path)
	newFile := os.IsNotExist(statErr)

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("저널 파일 열기 실패: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if newFile {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("저널 헤더 기록 실패: %w", err)
		}
	}

	row := []string{
		rec.Timestamp.UTC().Format(time.RFC3339),
		rec.Address,
		rec.Token,
		rec.Side,
		formatFloat(rec.Quantity),
		formatFloat(rec.Price),
		formatFloat(rec.NAVAfter),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("저널 기록 실패: %w", err)
	}

	w.Flush()
	return w.Error()
}

// Read는 저널 파일 전체를 읽어 기록 목록으로 반환합니다
func Read(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("저널 파일 열기 실패: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)

	var records []Record
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("저널 파싱 실패: %w", err)
		}
		if first {
			first = false
			if row[0] == header[0] {
				continue
			}
		}

		ts, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			return nil, fmt.Errorf("저널 시각 파싱 실패: %w", err)
		}
		qty, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("저널 수량 파싱 실패: %w", err)
		}
		price, err := strconv.ParseFloat(row[5], 64)
		if err != nil {
			return nil, fmt.Errorf("저널 가격 파싱 실패: %w", err)
		}
		nav, err := strconv.ParseFloat(row[6], 64)
		if err != nil {
			return nil, fmt.Errorf("저널 NAV 파싱 실패: %w", err)
		}

		records = append(records, Record{
			Timestamp: ts,
			Address:   row[1],
			Token:     row[2],
			Side:      row[3],
			Quantity:  qty,
			Price:     price,
			NAVAfter:  nav,
		})
	}
	return records, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
