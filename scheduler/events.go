package scheduler

import "github.com/tailored-agentic-units/roundtable/observability"

// Scheduler event types emitted while a user turn is processed.
const (
	EventAskStart      observability.EventType = "scheduler.ask.start"
	EventAskComplete   observability.EventType = "scheduler.ask.complete"
	EventRoundStart    observability.EventType = "scheduler.round.start"
	EventAgentReply    observability.EventType = "scheduler.agent.reply"
	EventAgentAbstain  observability.EventType = "scheduler.agent.abstain"
	EventDriftDetected observability.EventType = "scheduler.drift.detected"
)
