package feed

import (
	"time"

	"cardhub/pkg/models"
)

const (
	EventRunProgress = "run.progress"
	EventRunFinished = "run.finished"
)

// RunEvent is the wire shape pushed to feed subscribers whenever a
// scrape run advances.
type RunEvent struct {
	Type   string            `json:"type"`
	At     time.Time         `json:"at"`
	Report *models.RunReport `json:"report"`
}

// Publisher adapts the hub to the orchestrator's notifier contract.
type Publisher struct {
	Hub *Hub
}

func NewPublisher(hub *Hub) *Publisher {
	return &Publisher{Hub: hub}
}

func (p *Publisher) PublishRun(report *models.RunReport) {
	typ := EventRunProgress
	if !report.FinishedAt.IsZero() {
		typ = EventRunFinished
	}
	p.Hub.Broadcast(RunEvent{
		Type:   typ,
		At:     time.Now().UTC(),
		Report: report,
	})
}
