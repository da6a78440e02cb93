package pdfchat

import (
	"context"
	"time"

	usageuc "github.com/kailas-cloud/pdfchat/internal/usecase/usage"
)

// UsagePeriod is the budget window of a usage report.
type UsagePeriod string

// UsagePeriod constants.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
)

// UsageReport shows embedding token consumption against the budget.
// Remaining is -1 when the period has no limit.
type UsageReport struct {
	Period      UsagePeriod
	PeriodStart time.Time
	PeriodEnd   time.Time
	Limit       int64
	Used        int64
	Remaining   int64
	IsExhausted bool
}

// Usage returns a token usage report for the given period. Without
// WithTokenBudget the report is unlimited and counts nothing.
// Observer always records success: the underlying use-case is in-memory.
func (c *Client) Usage(ctx context.Context, period UsagePeriod) UsageReport {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, nil) }()

	p := usageuc.PeriodDay
	if period == PeriodMonth {
		p = usageuc.PeriodMonth
	}
	r := c.usageSvc.GetReport(ctx, p)

	return UsageReport{
		Period:      UsagePeriod(r.Period),
		PeriodStart: r.Start,
		PeriodEnd:   r.End,
		Limit:       r.Limit,
		Used:        r.Used,
		Remaining:   r.Remaining,
		IsExhausted: r.Exhausted,
	}
}

// usageUseCase is the internal interface for usage reports.
type usageUseCase interface {
	GetReport(ctx context.Context, period usageuc.Period) usageuc.Report
}
