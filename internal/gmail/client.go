package gmail

import (
	"context"
	"fmt"
	"time"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/inboxcal/internal/google"
	"github.com/teemow/inboxcal/internal/instrumentation"
	"github.com/teemow/inboxcal/internal/scheduler"
)

// Client wraps the Gmail Users service for a single account.
type Client struct {
	svc     *gmail.UsersService
	account string
	metrics *instrumentation.Metrics
}

// Account returns the account name this client is associated with
func (c *Client) Account() string {
	return c.account
}

// HasTokenForAccount checks if a valid OAuth token exists for the specified account
func HasTokenForAccount(account string) bool {
	return google.HasTokenForAccount(account)
}

// NewClientForAccount creates a new Gmail client with OAuth2 authentication
// for a specific account. A nil metrics value disables instrumentation.
func NewClientForAccount(ctx context.Context, account string, metrics *instrumentation.Metrics) (*Client, error) {
	client, err := google.GetHTTPClientForAccount(ctx, account, metrics)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found for account %s: %w", account, err)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{
		svc:     svc.Users,
		account: account,
		metrics: metrics,
	}, nil
}

// NewClient creates a new Gmail client for the default account.
func NewClient(ctx context.Context, metrics *instrumentation.Metrics) (*Client, error) {
	return NewClientForAccount(ctx, "default", metrics)
}

// ListUnread returns the IDs of unread inbox messages, newest first, capped
// at maxResults.
func (c *Client) ListUnread(ctx context.Context, maxResults int64) ([]string, error) {
	start := time.Now()
	res, err := c.svc.Messages.List("me").
		LabelIds("INBOX", "UNREAD").
		MaxResults(maxResults).
		Context(ctx).
		Do()
	c.record(ctx, "messages.list", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to list unread messages: %w", err)
	}

	ids := make([]string, 0, len(res.Messages))
	for _, m := range res.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

// FetchMessage retrieves a message in full format and normalizes it into the
// sender/body shape the pipeline consumes.
func (c *Client) FetchMessage(ctx context.Context, id string) (scheduler.NormalizedMessage, error) {
	start := time.Now()
	msg, err := c.svc.Messages.Get("me", id).Format("full").Context(ctx).Do()
	c.record(ctx, "messages.get", err, time.Since(start))
	if err != nil {
		return scheduler.NormalizedMessage{}, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	return NormalizeMessage(msg), nil
}

// MarkProcessed removes the UNREAD label so the message is not picked up by
// a later scan.
func (c *Client) MarkProcessed(ctx context.Context, id string) error {
	start := time.Now()
	_, err := c.svc.Messages.Modify("me", id, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}).Context(ctx).Do()
	c.record(ctx, "messages.modify", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to mark message %s as read: %w", id, err)
	}
	return nil
}

func (c *Client) record(ctx context.Context, operation string, err error, duration time.Duration) {
	if c.metrics == nil {
		return
	}
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, operation, status, duration)
}
