// Package notify delivers issue tracker and security gate events.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/triage/pkg/observation"
	"github.com/scan-io-git/triage/pkg/product"
)

// Event names sent in the "event" member of every payload.
const (
	EventObservationChanged  = "observation_changed"
	EventObservationDeleted  = "observation_deleted"
	EventSecurityGateChanged = "security_gate_changed"
)

// ObservationEvent is posted to the issue tracker webhook.
type ObservationEvent struct {
	Event            string `json:"event"`
	ProductID        int    `json:"product_id"`
	ObservationID    int    `json:"observation_id,omitempty"`
	IssueID          string `json:"issue_id,omitempty"`
	Title            string `json:"title,omitempty"`
	Severity         string `json:"severity,omitempty"`
	Status           string `json:"status,omitempty"`
	VEXJustification string `json:"vex_justification,omitempty"`
	User             string `json:"user,omitempty"`
	Time             string `json:"time"`
}

// SecurityGateEvent is posted to the security gate webhook. Passed is null when the gate
// is disabled.
type SecurityGateEvent struct {
	Event     string `json:"event"`
	ProductID int    `json:"product_id"`
	Product   string `json:"product"`
	Passed    *bool  `json:"passed"`
	Time      string `json:"time"`
}

// Webhook posts JSON events. An empty URL disables the matching events.
type Webhook struct {
	httpc           *resty.Client
	issueTrackerURL string
	securityGateURL string
	logger          hclog.Logger
	now             func() time.Time
}

// NewWebhook creates a Webhook sending with httpc.
func NewWebhook(httpc *resty.Client, issueTrackerURL, securityGateURL string, logger hclog.Logger) *Webhook {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Webhook{
		httpc:           httpc,
		issueTrackerURL: issueTrackerURL,
		securityGateURL: securityGateURL,
		logger:          logger.Named("webhook"),
		now:             time.Now,
	}
}

// PushObservation tells the issue tracker that a rule changed o.
func (w *Webhook) PushObservation(ctx context.Context, o *observation.Observation, user string) error {
	if w.issueTrackerURL == "" {
		return nil
	}
	return w.post(ctx, w.issueTrackerURL, ObservationEvent{
		Event:            EventObservationChanged,
		ProductID:        o.ProductID,
		ObservationID:    o.ID,
		IssueID:          o.IssueTrackerIssueID,
		Title:            o.Title,
		Severity:         o.CurrentSeverity,
		Status:           o.CurrentStatus,
		VEXJustification: o.CurrentVEXJustification,
		User:             user,
		Time:             w.timestamp(),
	})
}

// PushDeleted tells the issue tracker that the observation behind issueID is gone.
func (w *Webhook) PushDeleted(ctx context.Context, productID int, issueID string, user string) error {
	if w.issueTrackerURL == "" || issueID == "" {
		return nil
	}
	return w.post(ctx, w.issueTrackerURL, ObservationEvent{
		Event:     EventObservationDeleted,
		ProductID: productID,
		IssueID:   issueID,
		User:      user,
		Time:      w.timestamp(),
	})
}

// SecurityGateChanged reports the new gate result of p.
func (w *Webhook) SecurityGateChanged(ctx context.Context, p *product.Product) error {
	if w.securityGateURL == "" {
		return nil
	}
	return w.post(ctx, w.securityGateURL, SecurityGateEvent{
		Event:     EventSecurityGateChanged,
		ProductID: p.ID,
		Product:   p.Name,
		Passed:    p.SecurityGatePassed,
		Time:      w.timestamp(),
	})
}

func (w *Webhook) post(ctx context.Context, url string, payload interface{}) error {
	resp, err := w.httpc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(url)
	if err != nil {
		return fmt.Errorf("posting to %s: %w", url, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%d on posting to %s", resp.StatusCode(), url)
	}
	w.logger.Debug("event delivered", "url", url, "status", resp.StatusCode())
	return nil
}

func (w *Webhook) timestamp() string {
	return w.now().UTC().Format(time.RFC3339)
}
