package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/inboxcal/internal/google"
	"github.com/teemow/inboxcal/internal/instrumentation"
	"github.com/teemow/inboxcal/internal/scheduler"
)

// DefaultCalendarID targets the account's primary calendar.
const DefaultCalendarID = "primary"

// reminderMinutes is the popup reminder lead time applied to every event the
// agent creates, replacing the calendar's default reminders.
const reminderMinutes = 10

// Client wraps the Google Calendar service
type Client struct {
	svc        *calendar.Service
	account    string
	calendarID string
	metrics    *instrumentation.Metrics
}

// Account returns the account name this client is associated with
func (c *Client) Account() string {
	return c.account
}

// HasTokenForAccount checks if a valid OAuth token exists for the specified account
func HasTokenForAccount(account string) bool {
	return google.NewFileTokenProvider().HasTokenForAccount(account)
}

// NewClientForAccountWithProvider creates a new Calendar client with OAuth2
// authentication for a specific account. The OAuth token is retrieved from
// the provided token provider. An empty calendarID targets the primary
// calendar; a nil metrics value disables instrumentation.
func NewClientForAccountWithProvider(ctx context.Context, account, calendarID string, tokenProvider google.TokenProvider, metrics *instrumentation.Metrics) (*Client, error) {
	if tokenProvider == nil {
		return nil, fmt.Errorf("token provider cannot be nil")
	}

	token, err := tokenProvider.GetTokenForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get Google OAuth token for account %s: %w", account, err)
	}

	conf := google.GetOAuthConfig()
	tokenSource := conf.TokenSource(ctx, token)
	client := oauth2.NewClient(ctx, tokenSource)

	// Force HTTP/1.1 by disabling HTTP/2
	transport := client.Transport.(*oauth2.Transport)
	baseTransport := &http.Transport{
		ForceAttemptHTTP2: false,
	}
	transport.Base = baseTransport

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	if calendarID == "" {
		calendarID = DefaultCalendarID
	}

	return &Client{
		svc:        svc,
		account:    account,
		calendarID: calendarID,
		metrics:    metrics,
	}, nil
}

// NewClientForAccount creates a new Calendar client for a specific account
// using the default file-based token provider.
func NewClientForAccount(ctx context.Context, account, calendarID string, metrics *instrumentation.Metrics) (*Client, error) {
	return NewClientForAccountWithProvider(ctx, account, calendarID, google.NewFileTokenProviderWithMetrics(metrics), metrics)
}

// InsertEvent creates the event on the configured calendar and returns a
// link to it.
func (c *Client) InsertEvent(ctx context.Context, event scheduler.ResolvedEvent) (string, error) {
	start := time.Now()
	created, err := c.svc.Events.Insert(c.calendarID, buildEvent(event)).Context(ctx).Do()
	c.record(ctx, "events.insert", err, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("failed to create event %q: %w", event.Name, err)
	}

	return created.HtmlLink, nil
}

// buildEvent translates a resolved event into the Calendar API shape. The
// default reminders are replaced with a single popup so the event owner is
// notified shortly before start regardless of their calendar settings.
func buildEvent(event scheduler.ResolvedEvent) *calendar.Event {
	out := &calendar.Event{
		Summary:     event.Name,
		Description: event.Description,
		Location:    event.Location,
		Start: &calendar.EventDateTime{
			DateTime: event.Start.Format(time.RFC3339),
			TimeZone: event.Start.Location().String(),
		},
		End: &calendar.EventDateTime{
			DateTime: event.End.Format(time.RFC3339),
			TimeZone: event.End.Location().String(),
		},
		Reminders: &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "popup", Minutes: reminderMinutes},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}

	if len(event.Attendees) > 0 {
		attendees := make([]*calendar.EventAttendee, 0, len(event.Attendees))
		for _, email := range event.Attendees {
			attendees = append(attendees, &calendar.EventAttendee{Email: email})
		}
		out.Attendees = attendees
	}

	return out
}

func (c *Client) record(ctx context.Context, operation string, err error, duration time.Duration) {
	if c.metrics == nil {
		return
	}
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, operation, status, duration)
}
