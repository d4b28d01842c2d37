package monitor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alyahmed89/overwatch/directive"
)

// BuildSystemPrompt assembles the reviewer's system message from the task the
// agent is working on and the supervision rules. The directive grammar is
// spelled out verbatim so directive.Scan can parse what the model emits.
func BuildSystemPrompt(task, rules string) string {
	var b strings.Builder

	b.WriteString("You are a supervising reviewer watching an OpenHands coding agent work on a task. ")
	b.WriteString("You receive the agent's events one at a time and judge whether the agent may continue.\n\n")

	if task != "" {
		b.WriteString("# Task the agent is working on\n\n")
		b.WriteString(task)
		b.WriteString("\n\n")
	}

	b.WriteString("# Supervision rules\n\n")
	if rules != "" {
		b.WriteString(rules)
	} else {
		b.WriteString("Stop the agent if it takes a destructive, insecure, or clearly off-task action.")
	}
	b.WriteString("\n\n")

	b.WriteString("# How to respond\n\n")
	b.WriteString("If the agent may continue, reply with a short assessment in plain text.\n")
	b.WriteString("If the agent must be stopped, begin your reply with the exact command:\n\n")
	fmt.Fprintf(&b, "%s CONTEXT: \"reason here\" followed by your correction for the agent.\n\n", directive.Marker)
	fmt.Fprintf(&b, "The %s command halts the agent, the quoted CONTEXT is the reason shown to the operator, ", directive.Marker)
	b.WriteString("and everything after it is delivered to the agent as the correction. ")
	b.WriteString("Never use the command for anything other than stopping the agent.")

	return b.String()
}

// FormatEvent renders an agent event as the reviewer's user message.
// Metadata keys are sorted so the rendering is deterministic.
func FormatEvent(ev AgentEvent) string {
	var b strings.Builder

	b.WriteString("The agent emitted the following event.\n\n")
	fmt.Fprintf(&b, "Type: %s\n", ev.Type)
	if ev.Source != "" {
		fmt.Fprintf(&b, "Source: %s\n", ev.Source)
	}
	b.WriteString("Content:\n")
	b.WriteString(ev.Content)

	if len(ev.Metadata) > 0 {
		keys := make([]string, 0, len(ev.Metadata))
		for k := range ev.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("\n\nMetadata:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %v\n", k, ev.Metadata[k])
		}
	}

	return b.String()
}
