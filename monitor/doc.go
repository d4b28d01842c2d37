// Package monitor implements the supervision loop for an externally managed
// coding-agent conversation.
//
// A Session pairs one OpenHands conversation with a reviewer model. The host
// forwards agent events to Session.Review; each event is rendered into a
// prompt carrying the supervision task and rules, sent to the reviewer, and
// the reply is scanned for a stop directive. A directive latches the session
// into the stopped state and surfaces the extracted reason and correction to
// the host; a malformed directive is an error, never a silent pass.
//
// # Quick Start
//
//	session := monitor.NewSession(client, "conv-123",
//	    "Create a simple web server with Node.js.",
//	    "Stop if insecure code is written.", nil)
//	defer session.Close()
//
//	verdict, err := session.Review(ctx, monitor.AgentEvent{
//	    Type:    "code_written",
//	    Content: "fs.readFileSync(\"/etc/passwd\")",
//	    Source:  "agent",
//	})
//	if err != nil {
//	    return err
//	}
//	if verdict.Action == monitor.ActionStop {
//	    fmt.Println("halt:", verdict.Directive.Context)
//	}
//
// Hosts that want progress reporting can range over Session.Events().
package monitor
