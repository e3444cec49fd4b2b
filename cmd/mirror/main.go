package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	osSignal "os/signal"
	"syscall"

	"github.com/assist-by/mirror/internal/chain"
	"github.com/assist-by/mirror/internal/config"
	"github.com/assist-by/mirror/internal/engine"
	"github.com/assist-by/mirror/internal/exchange/jupiter"
	"github.com/assist-by/mirror/internal/journal"
	"github.com/assist-by/mirror/internal/market"
	"github.com/assist-by/mirror/internal/metrics"
	"github.com/assist-by/mirror/internal/notification"
	"github.com/assist-by/mirror/internal/notification/telegram"
	"github.com/assist-by/mirror/internal/position"
	"github.com/assist-by/mirror/internal/retry"
	"github.com/assist-by/mirror/internal/safety"
	"github.com/assist-by/mirror/internal/scheduler"
	"github.com/assist-by/mirror/internal/stream"
	"github.com/assist-by/mirror/internal/wallet"
)

func main() {
	// 명령줄 플래그 정의
	replayFlag := flag.String("replay", "", "이벤트 기록 파일을 재생 (실시간 스트림 대신)")
	paceFlag := flag.Bool("pace", false, "재생 시 이벤트 간 시각 차이를 재현")
	dryFlag := flag.Bool("dry", false, "시뮬레이션 모드로 실행 (실제 제출 없음)")
	reportFlag := flag.Bool("report", false, "저널 성과 보고서를 출력하고 종료")

	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("카피 트레이딩 봇 시작...")

	// 설정 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("설정 로드 실패: %v", err)
	}
	if *dryFlag {
		cfg.App.DryRun = true
	}

	// 보고서 모드: 저널만 읽고 종료
	if *reportFlag {
		printReport(cfg.App.JournalPath)
		return
	}

	// 킬 플래그가 남아 있으면 시작을 거부 (수동 확인 후 파일 제거 필요)
	if _, err := os.Stat(cfg.App.KillFlagPath); err == nil {
		log.Fatalf("킬 플래그 파일이 존재합니다 (%s), 확인 후 제거하고 재시작하세요", cfg.App.KillFlagPath)
	}

	// 텔레그램 알림 클라이언트 생성
	var notifier notification.Notifier = notification.Nop{}
	tg := telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.ChatID)
	if tg.Enabled() {
		notifier = tg
	} else {
		log.Println("텔레그램 설정 없음, 알림 비활성화")
	}

	if err := notifier.SendInfo("🤖 카피 트레이딩 봇이 시작되었습니다"); err != nil {
		log.Printf("시작 알림 전송 실패: %v", err)
	}

	retrier := retry.New(retry.DefaultConfig(), notifier)

	// 메트릭 서버 시작
	recorder := metrics.NewPromRecorder()
	go func() {
		if err := metrics.Serve(cfg.App.MetricsAddr); err != nil {
			log.Printf("메트릭 서버 종료: %v", err)
		}
	}()

	// 외부 API 클라이언트 생성
	prices := market.NewClient(retrier, market.WithBaseURL(cfg.API.PythURL))
	checker := safety.NewChecker(
		safety.NewSolscanClient(retrier, safety.WithSolscanBaseURL(cfg.API.SolscanURL)),
		safety.NewRugcheckClient(retrier, safety.WithRugcheckBaseURL(cfg.API.RugcheckURL)),
		safety.CheckConfig{
			MinHolders:            cfg.Safety.MinHolders,
			MinLockedPct:          cfg.Safety.MinLockedPct,
			MinListingAge:         cfg.Safety.MinListingAge,
			MaxAuthoritySellRatio: cfg.Safety.MaxAuthoritySellRatio,
		},
	)

	// 서명자와 제출 경로 구성
	var signer chain.Signer
	var submitter chain.Submitter
	userPubkey := ""
	if cfg.App.DryRun {
		submitter = chain.NewDrySubmitter()
		log.Println("시뮬레이션 모드: 트랜잭션을 실제로 제출하지 않습니다")
	} else {
		local, err := chain.NewLocalSigner(cfg.Solana.PrivateKey)
		if err != nil {
			log.Fatalf("서명자 생성 실패: %v", err)
		}
		signer = local
		userPubkey = local.PublicKey()

		var jito *chain.JitoClient
		if cfg.Solana.JitoRPC != "" {
			jito = chain.NewJitoClient(cfg.Solana.JitoRPC)
		}
		submitter = chain.NewRelaySubmitter(jito, chain.NewRPCClient(cfg.Solana.RPCURL))
	}

	jup := jupiter.NewClient(userPubkey, retrier, jupiter.WithBaseURL(cfg.API.JupiterURL))

	// 추적 지갑 선별
	gmgn := wallet.NewGmgnClient(retrier, wallet.WithBaseURL(cfg.API.GmgnURL))
	analyzer := wallet.NewAnalyzer(gmgn, "30d")

	addrs := cfg.Trading.TrackWallets
	if len(addrs) == 0 {
		addrs, err = gmgn.TrendingWallets(ctx, 20)
		if err != nil {
			log.Fatalf("수익 상위 지갑 조회 실패: %v", err)
		}
	}
	tracked := analyzer.Strong(ctx, addrs)
	if len(tracked) == 0 {
		log.Fatal("추적할 지갑이 없습니다 (선별 기준을 통과한 지갑 없음)")
	}
	log.Printf("지갑 %d개 추적 시작 (후보 %d개)", len(tracked), len(addrs))

	// 원장/사이저/엔진 구성
	book := position.NewBook(cfg.Trading.InitialNAV, cfg.Trading.StopLossPct, cfg.Trading.TakeProfitPct)
	sizer := position.NewSizer(prices, position.SizerConfig{
		MaxKellyFraction: cfg.Trading.MaxKellyFraction,
		MaxStakePct:      cfg.Trading.MaxPositionPct,
		NAVVolTarget:     cfg.Trading.NAVVolTarget,
		ATRLookbackMin:   cfg.Trading.ATRLookbackMin,
	})

	eng := engine.New(engine.Deps{
		Book:      book,
		Sizer:     sizer,
		Prices:    prices,
		Safety:    checker,
		Exchange:  jup,
		Signer:    signer,
		Fees:      chain.NewFeeEstimator(cfg.API.FeeEstimateURL),
		Submitter: submitter,
		Journal:   journal.New(cfg.App.JournalPath),
		Notifier:  notifier,
		Metrics:   recorder,
	}, tracked, cfg.Trading.InitialNAV, engine.Config{
		BaseMint:          cfg.Solana.BaseMint,
		MaxPositionPct:    cfg.Trading.MaxPositionPct,
		GlobalDrawdownPct: cfg.Trading.GlobalDrawdownPct,
		DryRun:            cfg.App.DryRun,
		SimSlippageBps:    cfg.App.SimSlippageBps,
		KillFlagPath:      cfg.App.KillFlagPath,
		PruneRetention:    cfg.App.PruneRetention,
	})

	// 이벤트 공급원 선택: 실시간 스트림 또는 기록 재생
	var feed stream.Feed
	replayMode := *replayFlag != ""
	if replayMode {
		replayer := stream.NewReplayer(*replayFlag, *paceFlag)
		feed = replayer
		go func() {
			if err := replayer.Run(ctx); err != nil {
				log.Printf("재생 실패: %v", err)
			}
		}()
	} else {
		ws := stream.NewWSFeed(cfg.API.StreamURL)
		feed = ws
		go func() {
			if err := ws.Run(ctx); err != nil {
				log.Printf("스트림 종료: %v", err)
			}
		}()
	}

	// 마크/청산 스윕 스케줄러 시작
	sched := scheduler.NewScheduler(cfg.App.MarkInterval, eng)
	go func() {
		if err := sched.Start(ctx); err != nil && ctx.Err() == nil {
			log.Printf("스케줄러 종료: %v", err)
		}
	}()
	defer sched.Stop()

	// 시그널 처리
	signalCh := make(chan os.Signal, 1)
	osSignal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() {
		done <- eng.Run(ctx, feed.Events())
	}()

	select {
	case sig := <-signalCh:
		log.Printf("종료 시그널 수신: %v", sig)
		cancel()
		<-done
	case err := <-done:
		if err != nil && ctx.Err() == nil {
			log.Printf("엔진 종료: %v", err)
		}
	}

	// 재생이 끝나면 성과 보고서 출력
	if replayMode {
		printReport(cfg.App.JournalPath)
	}

	if err := notifier.SendInfo("🛑 카피 트레이딩 봇이 종료되었습니다"); err != nil {
		log.Printf("종료 알림 전송 실패: %v", err)
	}
	log.Println("카피 트레이딩 봇 종료")
}

// printReport는 저널 기록으로 성과 보고서를 출력합니다
func printReport(path string) {
	records, err := journal.Read(path)
	if err != nil {
		log.Printf("저널 읽기 실패: %v", err)
		return
	}

	report, err := journal.Summarize(records)
	if err != nil {
		log.Printf("보고서 계산 실패: %v", err)
		return
	}
	fmt.Println(report)
}
