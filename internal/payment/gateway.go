// Package payment wraps the external card-payment processor behind a
// small gateway interface. The adapter carries no business logic: it
// creates and retrieves payment intents and nothing else. Failures
// propagate as-is; callers never retry automatically.
package payment

import "context"

// IntentStatusSucceeded is the only gateway status the workflows accept
// as proof of payment.
const IntentStatusSucceeded = "succeeded"

// Intent is the gateway's view of one payment attempt.
type Intent struct {
	ID       string
	Status   string
	Amount   int64 // smallest currency unit
	Currency string
}

// Gateway creates and retrieves payment intents against the processor.
// Implementations are constructed once at process start and injected.
type Gateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (Intent, error)
	RetrieveIntent(ctx context.Context, id string) (Intent, error)
}
