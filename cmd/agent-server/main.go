package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/medapp/scheduler/internal/agent"
	"github.com/medapp/scheduler/internal/config"
	"github.com/medapp/scheduler/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("config load error")
	}

	log := logging.New(cfg.Env, "agent-server")
	log.Info().
		Str("env", cfg.Env).
		Str("agent_port", cfg.AgentPort).
		Str("scheduler_url", cfg.SchedulerBaseURL).
		Str("model", cfg.LLMModel).
		Msg("agent-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	llm, err := agent.NewLLMClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	if err != nil {
		log.Fatal().Err(err).Msg("llm client error")
	}

	scheduler := agent.NewSchedulerClient(cfg.SchedulerBaseURL)

	toolsCtx, cancelTools := context.WithTimeout(rootCtx, 10*time.Second)
	schedulerTools, err := scheduler.ListTools(toolsCtx)
	cancelTools()
	if err != nil {
		log.Fatal().Err(err).Msg("could not fetch scheduler tools")
	}
	log.Info().Int("tools", len(schedulerTools)).Msg("scheduler tools loaded")

	instructions := ""
	if cfg.InstructionsPath != "" {
		raw, err := os.ReadFile(cfg.InstructionsPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.InstructionsPath).Msg("could not read instructions file")
		}
		instructions = string(raw)
	}

	a := agent.New(llm, scheduler, schedulerTools, instructions, log)

	r := chi.NewRouter()
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/ws", agent.NewWSHandler(a, log))

	srv := &http.Server{
		Addr:              ":" + cfg.AgentPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	case <-rootCtx.Done():
		log.Info().Msg("shutting down agent-server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}
