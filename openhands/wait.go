package openhands

import (
	"context"
	"fmt"
	"time"
)

// PollPolicy bounds a WaitUntilReady call. Both fields must be positive.
type PollPolicy struct {
	Interval time.Duration // time between status checks
	MaxWait  time.Duration // total time before giving up
}

// DefaultPollPolicy returns the polling bounds used by the supervisor.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		Interval: 2 * time.Second,
		MaxWait:  60 * time.Second,
	}
}

// WaitTimeoutError reports that a conversation did not become ready within
// the policy's MaxWait.
type WaitTimeoutError struct {
	ConversationID string
	Waited         time.Duration
}

func (e *WaitTimeoutError) Error() string {
	return fmt.Sprintf("openhands: conversation %s not ready after %s", e.ConversationID, e.Waited)
}

// ConversationFailedError reports that the conversation entered the ERROR
// state while being waited on.
type ConversationFailedError struct {
	ConversationID string
}

func (e *ConversationFailedError) Error() string {
	return fmt.Sprintf("openhands: conversation %s entered ERROR state", e.ConversationID)
}

// WaitUntilReady polls the conversation until it reports READY. The wait is
// bounded by policy.MaxWait and honors cancellation of ctx; expiry of the
// bound surfaces as a *WaitTimeoutError, cancellation as ctx.Err().
func (c *Client) WaitUntilReady(ctx context.Context, id string, policy PollPolicy) (*Conversation, error) {
	if policy.Interval <= 0 || policy.MaxWait <= 0 {
		return nil, fmt.Errorf("openhands: poll policy requires positive interval and max wait")
	}

	start := time.Now()
	waitCtx, cancel := context.WithTimeout(ctx, policy.MaxWait)
	defer cancel()

	ticker := time.NewTicker(policy.Interval)
	defer ticker.Stop()

	for {
		conv, err := c.Get(waitCtx, id)
		if err != nil {
			if waitCtx.Err() != nil {
				return nil, c.waitErr(ctx, id, start)
			}
			return nil, err
		}

		switch conv.Status {
		case StatusReady:
			return conv, nil
		case StatusError:
			return nil, &ConversationFailedError{ConversationID: id}
		}

		select {
		case <-waitCtx.Done():
			return nil, c.waitErr(ctx, id, start)
		case <-ticker.C:
		}
	}
}

// waitErr distinguishes caller cancellation from exhausting MaxWait.
func (c *Client) waitErr(parent context.Context, id string, start time.Time) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	return &WaitTimeoutError{ConversationID: id, Waited: time.Since(start).Round(time.Millisecond)}
}
