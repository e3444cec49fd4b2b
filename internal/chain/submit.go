package chain

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"

	simplejson "github.com/bitly/go-simplejson"
	"github.com/oklog/ulid/v2"
)

// Submitter는 서명된 트랜잭션을 네트워크에 제출하는 능력을 정의합니다
type Submitter interface {
	// Submit은 서명된 트랜잭션을 제출하고 제출 식별자를 반환합니다
	Submit(ctx context.Context, signed []byte) (string, error)
}

// RPCClient는 솔라나 JSON-RPC 직접 브로드캐스트 클라이언트입니다
type RPCClient struct {
	rpcURL     string
	httpClient *http.Client
}

// NewRPCClient는 새로운 RPC 브로드캐스트 클라이언트를 생성합니다
func NewRPCClient(rpcURL string) *RPCClient {
	return &RPCClient{
		rpcURL:     rpcURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Broadcast는 sendTransaction RPC를 호출하고 트랜잭션 서명을 반환합니다.
// 이중 전송 위험 때문에 브로드캐스트 자체는 재시도하지 않습니다.
func (c *RPCClient) Broadcast(ctx context.Context, signed []byte) (string, error) {
	txB64 := base64.StdEncoding.EncodeToString(signed)
	body := fmt.Sprintf(
		`{"jsonrpc":"2.0","id":1,"method":"sendTransaction","params":[%q,{"encoding":"base64"}]}`,
		txB64)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader([]byte(body)))
	if err != nil {
		return "", fmt.Errorf("RPC 요청 생성 실패: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("RPC 브로드캐스트 실패: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("RPC 응답 읽기 실패: %w", err)
	}

	js, err := simplejson.NewJson(respBody)
	if err != nil {
		return "", fmt.Errorf("RPC 응답 파싱 실패: %w", err)
	}
	if errMsg := js.GetPath("error", "message").MustString(); errMsg != "" {
		return "", fmt.Errorf("RPC 에러: %s", errMsg)
	}

	sig, err := js.Get("result").String()
	if err != nil || sig == "" {
		return "", fmt.Errorf("RPC 응답에 서명이 없습니다: %s", string(respBody))
	}
	return sig, nil
}

// JitoClient는 MEV 보호 릴레이(Jito 블록 엔진) 클라이언트입니다
type JitoClient struct {
	relayURL   string
	httpClient *http.Client
}

// NewJitoClient는 새로운 릴레이 클라이언트를 생성합니다
func NewJitoClient(relayURL string) *JitoClient {
	return &JitoClient{
		relayURL:   relayURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// SendBundle은 base64 인코딩된 트랜잭션을 릴레이에 제출합니다.
// HTTP 200이면 수락, 그 외에는 거절로 간주합니다.
func (c *JitoClient) SendBundle(ctx context.Context, signed []byte) (bool, error) {
	body := fmt.Sprintf(`{"transaction":%q}`, base64.StdEncoding.EncodeToString(signed))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.relayURL, bytes.NewReader([]byte(body)))
	if err != nil {
		return false, fmt.Errorf("릴레이 요청 생성 실패: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}

// RelaySubmitter는 릴레이 우선 제출을 구현합니다.
// 릴레이가 거절하거나 사용할 수 없으면 직접 브로드캐스트로 폴백합니다.
type RelaySubmitter struct {
	jito *JitoClient // nil이면 항상 직접 브로드캐스트
	rpc  *RPCClient
}

// NewRelaySubmitter는 새로운 RelaySubmitter를 생성합니다
func NewRelaySubmitter(jito *JitoClient, rpc *RPCClient) *RelaySubmitter {
	return &RelaySubmitter{jito: jito, rpc: rpc}
}

// Submit은 릴레이를 먼저 시도하고, 실패 시 직접 브로드캐스트합니다
func (s *RelaySubmitter) Submit(ctx context.Context, signed []byte) (string, error) {
	if s.jito != nil {
		ok, err := s.jito.SendBundle(ctx, signed)
		if err != nil {
			log.Printf("릴레이 제출 실패, 직접 브로드캐스트로 폴백: %v", err)
		} else if ok {
			return "bundle", nil
		}
	}
	return s.rpc.Broadcast(ctx, signed)
}

// DrySubmitter는 실제 제출 없이 시뮬레이션 식별자를 반환합니다
type DrySubmitter struct {
	entropy *ulid.MonotonicEntropy
}

// NewDrySubmitter는 새로운 DrySubmitter를 생성합니다
func NewDrySubmitter() *DrySubmitter {
	return &DrySubmitter{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// Submit은 네트워크 접근 없이 "SIM-" 접두사의 식별자를 반환합니다
func (s *DrySubmitter) Submit(_ context.Context, _ []byte) (string, error) {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy)
	return "SIM-" + id.String(), nil
}
