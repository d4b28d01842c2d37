// Package reviewllm provides the chat-completion client used to run reviewer
// models. It presents a provider-agnostic blocking interface over two
// backends: the official openai-go SDK for OpenAI-compatible endpoints
// (DeepSeek among them) and gollm for the providers it supports natively.
//
// # Architecture
//
//   - Shared types: Message, Request, Response, Usage
//   - Provider utilities: retry with exponential backoff, typed error
//     classification
//   - Core client: Client with provider routing and middleware
//
// The reviewer exchange is a single blocking text completion, so the package
// deliberately carries no streaming or tool-calling surface.
//
// # Quick Start
//
//	adapter, err := reviewllm.NewOpenAIAdapter(
//	    reviewllm.WithProviderName("deepseek"),
//	    reviewllm.WithAPIKey(key),
//	    reviewllm.WithBaseURL("https://api.deepseek.com"),
//	    reviewllm.WithDefaultModel("deepseek-chat"),
//	)
//	if err != nil {
//	    return err
//	}
//	client := reviewllm.NewClient(reviewllm.WithAdapter(adapter))
//
//	resp, err := client.Complete(ctx, reviewllm.Request{
//	    Model: "deepseek-chat",
//	    Messages: []reviewllm.Message{
//	        reviewllm.SystemMessage("You supervise a coding agent."),
//	        reviewllm.UserMessage("The agent deleted the test suite."),
//	    },
//	})
//
// Credentials are always passed in explicitly through adapter options; the
// package holds no process-wide configuration state.
package reviewllm
