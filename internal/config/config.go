package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// 텔레그램 알림 설정
	Telegram struct {
		Token  string `envconfig:"TELEGRAM_BOT_TOKEN"`
		ChatID string `envconfig:"TELEGRAM_CHAT_ID"`
	}

	// 솔라나 체인 설정
	Solana struct {
		PrivateKey string `envconfig:"PRIVATE_KEY"`
		RPCURL     string `envconfig:"RPC_URL" default:"https://api.mainnet-beta.solana.com"`
		JitoRPC    string `envconfig:"JITO_RPC"`
		BaseMint   string `envconfig:"SOL_MINT" default:"So11111111111111111111111111111111111111112"`
	}

	// 거래/리스크 설정
	Trading struct {
		InitialNAV        float64 `envconfig:"INITIAL_NAV" default:"100"`
		StopLossPct       float64 `envconfig:"STOP_LOSS_PCT" default:"8"`
		TakeProfitPct     float64 `envconfig:"TAKE_PROFIT_PCT" default:"25"`
		GlobalDrawdownPct float64 `envconfig:"GLOBAL_DD_PCT" default:"20"`
		MaxKellyFraction  float64 `envconfig:"MAX_KELLY_F" default:"0.25"`
		NAVVolTarget      float64 `envconfig:"NAV_VOL_TARGET" default:"0.10"`
		MaxPositionPct    float64 `envconfig:"MAX_POSITION_PCT" default:"0.30"`
		ATRLookbackMin    int     `envconfig:"ATR_LOOKBACK_MIN" default:"1440"`

		// 추적할 지갑 주소 목록 (쉼표 구분, 비어 있으면 수익 상위 지갑 자동 선별)
		TrackWallets []string `envconfig:"TRACK_WALLETS"`
	}

	// 안전성 검사 설정
	Safety struct {
		MinHolders            int           `envconfig:"MIN_HOLDERS" default:"5"`
		MinLockedPct          float64       `envconfig:"MIN_LOCKED_PCT" default:"70"`
		MinListingAge         time.Duration `envconfig:"MIN_LISTING_AGE" default:"30m"`
		MaxAuthoritySellRatio float64       `envconfig:"MAX_AUTHORITY_SELL_RATIO" default:"3.0"`
	}

	// 애플리케이션 설정
	App struct {
		MarkInterval   time.Duration `envconfig:"MARK_INTERVAL" default:"60s"`
		PruneRetention time.Duration `envconfig:"PRUNE_RETENTION" default:"6h"`
		MetricsAddr    string        `envconfig:"METRICS_ADDR" default:":9100"`
		DryRun         bool          `envconfig:"DRY_RUN" default:"false"`
		SimSlippageBps int           `envconfig:"SIM_SLIPPAGE_BPS" default:"10"`
		JournalPath    string        `envconfig:"JOURNAL_PATH" default:"journal.csv"`
		KillFlagPath   string        `envconfig:"KILL_FLAG_PATH" default:"flag_down"`
	}

	// 외부 API 주소
	API struct {
		JupiterURL  string `envconfig:"JUPITER_URL" default:"https://quote-api.jup.ag"`
		PythURL     string `envconfig:"PYTH_HIST_URL" default:"https://hermes.pyth.network/api/historical_price/"`
		SolscanURL  string `envconfig:"SOLSCAN_URL" default:"https://public-api.solscan.io"`
		RugcheckURL string `envconfig:"RUGCHECK_URL" default:"https://api.rugcheck.xyz/v1"`
		GmgnURL     string `envconfig:"GMGN_URL" default:"https://gmgn.ai"`
		StreamURL   string `envconfig:"STREAM_URL" default:"wss://ws.gmgn.ai/v1"`

		// 우선순위 수수료 추정 엔드포인트 (비어 있으면 기본 수수료 사용)
		FeeEstimateURL string `envconfig:"FEE_ESTIMATE_URL"`
	}
}

// ValidateConfig는 설정이 유효한지 확인합니다.
func ValidateConfig(cfg *Config) error {
	if cfg.Trading.InitialNAV <= 0 {
		return fmt.Errorf("INITIAL_NAV는 0보다 커야 합니다")
	}

	if cfg.Trading.StopLossPct <= 0 || cfg.Trading.StopLossPct >= 100 {
		return fmt.Errorf("STOP_LOSS_PCT는 0과 100 사이여야 합니다")
	}

	if cfg.Trading.TakeProfitPct <= 0 {
		return fmt.Errorf("TAKE_PROFIT_PCT는 0보다 커야 합니다")
	}

	if cfg.Trading.GlobalDrawdownPct <= 0 || cfg.Trading.GlobalDrawdownPct > 100 {
		return fmt.Errorf("GLOBAL_DD_PCT는 0과 100 사이여야 합니다")
	}

	if cfg.Trading.MaxPositionPct <= 0 || cfg.Trading.MaxPositionPct > 1 {
		return fmt.Errorf("MAX_POSITION_PCT는 0과 1 사이여야 합니다")
	}

	if cfg.App.MarkInterval < 1*time.Second {
		return fmt.Errorf("MARK_INTERVAL은 1초 이상이어야 합니다")
	}

	return nil
}

// LoadConfig는 환경변수에서 설정을 로드합니다.
func LoadConfig() (*Config, error) {
	// .env 파일은 있으면 로드하고, 없으면 환경변수만 사용
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf(".env 파일 로드 실패: %w", err)
	}

	var cfg Config
	// 환경변수를 구조체로 파싱
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("환경변수 처리 실패: %w", err)
	}

	// 설정값 검증
	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("설정값 검증 실패: %w", err)
	}

	return &cfg, nil
}
