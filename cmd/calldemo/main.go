package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/Call/internal/adapters/http"
	"github.com/dkeye/Call/internal/adapters/media"
	"github.com/dkeye/Call/internal/adapters/rtc"
	"github.com/dkeye/Call/internal/app/call"
	"github.com/dkeye/Call/internal/config"
	"github.com/dkeye/Call/internal/core"
	"github.com/dkeye/Call/internal/domain"
	"github.com/pion/webrtc/v4"
)

// logSink stands in for a video element.
type logSink struct{ name string }

func (s logSink) Attach(st *core.Stream) {
	log.Info().Str("module", "demo").Str("sink", s.name).Str("stream_id", st.ID()).Int("tracks", len(st.Tracks())).Msg("stream attached")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	src, engine, err := newSource(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("media source")
	}
	factory, err := rtc.NewFactory(engine, zerolog.WarnLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("webrtc factory")
	}

	callee := media.NewStaticSource()
	callee.Pump = true

	var caller, answerer *call.Manager
	caller = call.New(call.Config{
		ICEServers:   cfg.WebRTC().ICEServers,
		TickInterval: cfg.TickInterval,
	}, src, factory, call.Callbacks{
		OnStateChange: func(s domain.CallState) {
			log.Info().Str("module", "demo").Str("peer", "caller").Str("state", s.String()).Msg("state changed")
			if s == domain.CallConnecting {
				caller.StartTimeout(cfg.CallTimeout, func() {
					log.Warn().Str("module", "demo").Msg("call did not connect in time, hanging up")
					caller.ClosePC()
				}, func(remaining int) {
					log.Debug().Str("module", "demo").Int("remaining", remaining).Msg("connecting")
				})
			}
		},
		OnICECandidate: func(c webrtc.ICECandidateInit) { answerer.AddICECandidate(c) },
	})
	answerer = call.New(call.Config{
		ICEServers:   cfg.WebRTC().ICEServers,
		TickInterval: cfg.TickInterval,
	}, callee, factory, call.Callbacks{
		OnStateChange: func(s domain.CallState) {
			log.Info().Str("module", "demo").Str("peer", "callee").Str("state", s.String()).Msg("state changed")
		},
		OnICECandidate: func(c webrtc.ICECandidateInit) { caller.AddICECandidate(c) },
	})
	defer answerer.Close()
	defer caller.Close()

	if err := dial(ctx, caller, answerer); err != nil {
		log.Error().Err(err).Msg("call setup failed")
	}

	r := router.SetupRouter(ctx, cfg, caller)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Str("sid", caller.SessionID()).Msg("Call inspector started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}

// dial runs offer/answer between the two managers by plain function calls.
func dial(ctx context.Context, caller, callee *call.Manager) error {
	if _, err := caller.AcquireMedia(ctx, logSink{name: "caller-preview"}); err != nil {
		return fmt.Errorf("caller media: %w", err)
	}
	if _, err := callee.AcquireMedia(ctx, logSink{name: "callee-preview"}); err != nil {
		return fmt.Errorf("callee media: %w", err)
	}
	if _, err := caller.EnsurePeerConnection(logSink{name: "caller-remote"}); err != nil {
		return err
	}
	if _, err := callee.EnsurePeerConnection(logSink{name: "callee-remote"}); err != nil {
		return err
	}

	offer, err := caller.CreateOffer()
	if err != nil {
		return err
	}
	answer, err := callee.HandleOffer(offer)
	if err != nil {
		return err
	}
	return caller.HandleAnswer(answer)
}
