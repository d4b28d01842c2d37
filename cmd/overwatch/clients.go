package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alyahmed89/overwatch/config"
	"github.com/alyahmed89/overwatch/monitor"
	"github.com/alyahmed89/overwatch/openhands"
	"github.com/alyahmed89/overwatch/reviewllm"
)

// buildReviewClient assembles the reviewer client from configuration.
func buildReviewClient(cfg *config.Config, logger *zap.Logger) (*reviewllm.Client, error) {
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("llm api key is required (llm.api_key or OVERWATCH_LLM_API_KEY)")
	}

	var adapter reviewllm.Adapter
	var err error
	switch cfg.LLM.Backend {
	case "gollm":
		adapter, err = reviewllm.NewGollmAdapter(cfg.LLM.Provider,
			reviewllm.WithGollmAPIKey(cfg.LLM.APIKey),
			reviewllm.WithGollmModel(cfg.LLM.Model),
		)
	default:
		opts := []reviewllm.OpenAIOption{
			reviewllm.WithProviderName(cfg.LLM.Provider),
			reviewllm.WithAPIKey(cfg.LLM.APIKey),
			reviewllm.WithDefaultModel(cfg.LLM.Model),
		}
		if cfg.LLM.BaseURL != "" {
			opts = append(opts, reviewllm.WithBaseURL(cfg.LLM.BaseURL))
		}
		adapter, err = reviewllm.NewOpenAIAdapter(opts...)
	}
	if err != nil {
		return nil, err
	}

	return reviewllm.NewClient(
		reviewllm.WithAdapter(adapter),
		reviewllm.WithMiddleware(completionLogging(logger)),
	), nil
}

// completionLogging reports every reviewer call through zap.
func completionLogging(logger *zap.Logger) reviewllm.Middleware {
	return func(ctx context.Context, req reviewllm.Request, next func(context.Context, reviewllm.Request) (*reviewllm.Response, error)) (*reviewllm.Response, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		if err != nil {
			logger.Warn("reviewer completion failed",
				zap.String("provider", req.Provider),
				zap.String("model", req.Model),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
			return nil, err
		}
		logger.Debug("reviewer completion",
			zap.String("provider", resp.Provider),
			zap.String("model", resp.Model),
			zap.Int("total_tokens", resp.Usage.TotalTokens),
			zap.Duration("elapsed", time.Since(start)),
		)
		return resp, nil
	}
}

// buildConversations assembles the OpenHands client, or nil when no base URL
// is configured.
func buildConversations(cfg *config.Config) (*openhands.Client, error) {
	if cfg.OpenHands.BaseURL == "" {
		return nil, nil
	}
	return openhands.New(openhands.Config{
		BaseURL: cfg.OpenHands.BaseURL,
		APIKey:  cfg.OpenHands.APIKey,
	})
}

// monitorConfig maps file configuration onto session configuration.
func monitorConfig(cfg *config.Config) monitor.Config {
	mcfg := monitor.DefaultConfig()
	mcfg.Provider = cfg.LLM.Provider
	mcfg.Model = cfg.LLM.Model
	mcfg.Temperature = cfg.LLM.Temperature
	if cfg.LLM.MaxTokens > 0 {
		mcfg.MaxTokens = cfg.LLM.MaxTokens
	}
	if cfg.Monitor.MaxHistory > 0 {
		mcfg.MaxHistory = cfg.Monitor.MaxHistory
	}
	return mcfg
}

// pollPolicy maps file configuration onto the readiness wait bounds.
func pollPolicy(cfg *config.Config) (openhands.PollPolicy, error) {
	interval, err := cfg.PollInterval()
	if err != nil {
		return openhands.PollPolicy{}, err
	}
	maxWait, err := cfg.MaxWait()
	if err != nil {
		return openhands.PollPolicy{}, err
	}
	return openhands.PollPolicy{Interval: interval, MaxWait: maxWait}, nil
}
