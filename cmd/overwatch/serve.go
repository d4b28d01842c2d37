package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alyahmed89/overwatch/config"
	"github.com/alyahmed89/overwatch/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the worker HTTP surface (/start, /events)",
	Long: `Starts the HTTP worker that OpenHands pushes agent events to. POST /start
registers a conversation for supervision; POST /events forwards one agent
event and returns the reviewer's verdict.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := applyLogLevel(cfg.Logging.Level); err != nil {
		return err
	}

	client, err := buildReviewClient(cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	conversations, err := buildConversations(cfg)
	if err != nil {
		return err
	}
	poll, err := pollPolicy(cfg)
	if err != nil {
		return err
	}

	mcfg := monitorConfig(cfg)
	srv, err := server.New(server.Options{
		ReviewClient:  client,
		Conversations: conversations,
		MonitorConfig: &mcfg,
		PollPolicy:    &poll,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer srv.Close()

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("worker listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("provider", cfg.LLM.Provider),
			zap.String("model", cfg.LLM.Model),
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
