package chain

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

// Signer는 트랜잭션 서명 능력을 정의합니다.
// 서명 형식 검증은 이 시스템의 범위 밖이며, 서명된 바이트를 제출 계층에 그대로 전달합니다.
type Signer interface {
	// Sign은 직렬화된 트랜잭션에 서명을 붙여 반환합니다
	Sign(raw []byte) ([]byte, error)

	// PublicKey는 서명 지갑의 공개키를 base58 문자열로 반환합니다
	PublicKey() string
}

// LocalSigner는 환경변수의 개인키로 서명하는 로컬 Signer입니다
type LocalSigner struct {
	priv ed25519.PrivateKey
	pub  string
}

// NewLocalSigner는 base58 개인키 문자열로 LocalSigner를 생성합니다.
// 64바이트(비밀키+공개키) 또는 32바이트(시드) 키를 모두 허용합니다.
func NewLocalSigner(privKeyB58 string) (*LocalSigner, error) {
	decoded, err := base58.Decode(privKeyB58)
	if err != nil {
		return nil, fmt.Errorf("개인키 디코딩 실패: %w", err)
	}

	var priv ed25519.PrivateKey
	switch len(decoded) {
	case ed25519.PrivateKeySize:
		priv = ed25519.PrivateKey(decoded)
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(decoded)
	default:
		return nil, fmt.Errorf("개인키 길이가 올바르지 않습니다: %d바이트", len(decoded))
	}

	pub := base58.Encode(priv.Public().(ed25519.PublicKey))
	return &LocalSigner{priv: priv, pub: pub}, nil
}

// Sign은 트랜잭션 바이트에 서명하고, 서명을 선두에 붙인 바이트를 반환합니다
func (s *LocalSigner) Sign(raw []byte) ([]byte, error) {
	sig := ed25519.Sign(s.priv, raw)
	signed := make([]byte, 0, len(sig)+len(raw))
	signed = append(signed, sig...)
	signed = append(signed, raw...)
	return signed, nil
}

// PublicKey는 서명 지갑의 공개키를 반환합니다
func (s *LocalSigner) PublicKey() string {
	return s.pub
}
