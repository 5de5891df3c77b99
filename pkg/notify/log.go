package notify

import (
	"context"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/triage/pkg/observation"
	"github.com/scan-io-git/triage/pkg/product"
)

// Log writes events to a logger instead of sending them anywhere.
type Log struct {
	logger hclog.Logger
}

func NewLog(logger hclog.Logger) *Log {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Log{logger: logger.Named("notify")}
}

func (l *Log) PushObservation(_ context.Context, o *observation.Observation, user string) error {
	l.logger.Info(EventObservationChanged, "product", o.ProductID, "observation", o.ID,
		"severity", o.CurrentSeverity, "status", o.CurrentStatus, "user", user)
	return nil
}

func (l *Log) PushDeleted(_ context.Context, productID int, issueID string, user string) error {
	l.logger.Info(EventObservationDeleted, "product", productID, "issue", issueID, "user", user)
	return nil
}

func (l *Log) SecurityGateChanged(_ context.Context, p *product.Product) error {
	l.logger.Info(EventSecurityGateChanged, "product", p.Name, "passed", p.SecurityGatePassed)
	return nil
}
