// Package notify implements the Notifier boundary (SPEC_FULL.md §2
// component 21): a thin Slack adapter that posts the Scheduler's
// structured per-entity run summary as one line. It composes no
// further message content — anything richer belongs to the
// out-of-scope notification surface (spec.md §1).
package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/scoutline/ralph/pkg/domain"
)

// SlackNotifier posts one line per finished entity run to a fixed
// Slack channel. It satisfies scheduler.RunSummaryNotifier by duck
// typing — this package never imports pkg/scheduler.
type SlackNotifier struct {
	client  *slack.Client
	channel string
}

// NewSlackNotifier returns a SlackNotifier authenticated with token,
// posting to channel.
func NewSlackNotifier(token, channel string) *SlackNotifier {
	return &SlackNotifier{client: slack.New(token), channel: channel}
}

// NewSlackNotifierWithAPIURL is NewSlackNotifier pointed at a
// non-default Slack API base URL, for tests that stand in a fake
// chat.postMessage endpoint.
func NewSlackNotifierWithAPIURL(token, channel, apiURL string) *SlackNotifier {
	return &SlackNotifier{client: slack.New(token, slack.OptionAPIURL(apiURL)), channel: channel}
}

// Notify posts summary's one-line rendering to the configured channel.
func (n *SlackNotifier) Notify(ctx context.Context, summary domain.RunSummary) error {
	_, _, err := n.client.PostMessageContext(ctx, n.channel, slack.MsgOptionText(summaryLine(summary), false))
	if err != nil {
		return fmt.Errorf("failed to post run summary to slack: %w", err)
	}
	return nil
}

func summaryLine(s domain.RunSummary) string {
	if s.Skipped {
		return fmt.Sprintf("ralph: %s (%s) skipped — already run today", s.EntityName, s.EntityID)
	}
	if s.Outcome == domain.OutcomeFailed {
		return fmt.Sprintf("ralph: %s (%s) FAILED — %s", s.EntityName, s.EntityID, s.Err)
	}
	return fmt.Sprintf(
		"ralph: %s (%s) finished %s in %d iteration(s), %d signal(s) found, $%.3f spent — %s",
		s.EntityName, s.EntityID, s.Outcome, s.Iterations, s.SignalsFound, s.CostUSD, s.Reason,
	)
}

// NoopNotifier discards every summary; it backs the Scheduler when the
// notifier is disabled in configuration (spec.md §6).
type NoopNotifier struct{}

// Notify implements scheduler.RunSummaryNotifier as a no-op.
func (NoopNotifier) Notify(ctx context.Context, summary domain.RunSummary) error {
	return nil
}
