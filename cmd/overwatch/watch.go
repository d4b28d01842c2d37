package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alyahmed89/overwatch/config"
	"github.com/alyahmed89/overwatch/monitor"
	"github.com/alyahmed89/overwatch/openhands"
)

var (
	watchConversation string
	watchRepository   string
	watchPrompt       string
	watchRules        string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Attach to (or create) a conversation and review the opening task",
	Long: `Runs one supervision round end to end: attaches to an existing OpenHands
conversation (or creates one when --repository is given), waits for it to be
ready, submits the task to the reviewer, and prints the verdict.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchConversation, "conversation", "", "existing conversation ID to supervise")
	watchCmd.Flags().StringVar(&watchRepository, "repository", "", "repository to create a conversation for")
	watchCmd.Flags().StringVar(&watchPrompt, "prompt", "", "task the agent is working on")
	watchCmd.Flags().StringVar(&watchRules, "rules", "", "supervision rules for the reviewer")
	_ = watchCmd.MarkFlagRequired("prompt")
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	ctx := cmd.Context()

	conversationID := watchConversation
	if conversationID == "" {
		conversations, err := buildConversations(cfg)
		if err != nil {
			return err
		}
		if conversations == nil {
			return errors.New("either --conversation or openhands.base_url is required")
		}
		poll, err := pollPolicy(cfg)
		if err != nil {
			return err
		}

		conv, err := conversations.Create(ctx, openhands.CreateRequest{
			Repository:         watchRepository,
			InitialUserMessage: watchPrompt,
		})
		if err != nil {
			return err
		}
		logger.Info("conversation created", zap.String("conversation_id", conv.ID))

		if _, err := conversations.WaitUntilReady(ctx, conv.ID, poll); err != nil {
			return err
		}
		logger.Info("conversation ready", zap.String("conversation_id", conv.ID))
		conversationID = conv.ID
	}

	mcfg := monitorConfig(cfg)
	session := monitor.NewSession(client, conversationID, watchPrompt, watchRules, &mcfg)
	defer session.Close()

	verdict, err := session.Review(ctx, monitor.AgentEvent{
		Type:    "task",
		Content: watchPrompt,
		Source:  "user",
	})
	if err != nil {
		return err
	}

	fmt.Printf("conversation: %s\n", conversationID)
	fmt.Printf("action:       %s\n", verdict.Action)
	if verdict.Directive.Present {
		fmt.Printf("context:      %s\n", verdict.Directive.Context)
		fmt.Printf("message:      %s\n", verdict.Directive.Message)
	} else {
		fmt.Printf("reviewer:     %s\n", verdict.ReviewerText)
	}
	return nil
}
