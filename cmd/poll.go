package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxcal/internal/calendar"
	"github.com/teemow/inboxcal/internal/gmail"
	"github.com/teemow/inboxcal/internal/instrumentation"
	"github.com/teemow/inboxcal/internal/llm"
	"github.com/teemow/inboxcal/internal/logging"
	"github.com/teemow/inboxcal/internal/scheduler"
)

// agentOptions holds the flags shared by the poll and watch commands.
type agentOptions struct {
	account             string
	calendarID          string
	maxResults          int64
	confidenceThreshold float64
	timeZone            string
	model               string
	markRead            bool
	logLevel            string
}

func (o *agentOptions) bindFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.account, "account", "default", "Google account name to use (matches the account given to 'inboxcal auth')")
	cmd.Flags().StringVar(&o.calendarID, "calendar-id", calendar.DefaultCalendarID, "Calendar to create events on")
	cmd.Flags().Int64Var(&o.maxResults, "max-results", scheduler.DefaultMaxMessages, "Maximum number of unread messages to scan per poll")
	cmd.Flags().Float64Var(&o.confidenceThreshold, "confidence-threshold", scheduler.DefaultConfidenceThreshold, "Minimum routing confidence required to create an event")
	cmd.Flags().StringVar(&o.timeZone, "timezone", scheduler.DefaultTimeZone, "IANA timezone events are anchored in")
	cmd.Flags().StringVar(&o.model, "model", llm.DefaultModel, "Chat model used for routing and extraction")
	cmd.Flags().BoolVar(&o.markRead, "mark-read", false, "Mark handled messages as read so they are not scanned again")
	cmd.Flags().StringVar(&o.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
}

// agent bundles the wired pipeline with the clients and provider it runs on.
type agent struct {
	pipeline *scheduler.Pipeline
	mailbox  *gmail.Client
	provider *instrumentation.Provider
}

// setupAgent wires logging, instrumentation and the Gmail, Calendar and
// OpenAI clients into a ready-to-run pipeline.
func setupAgent(ctx context.Context, opts *agentOptions) (*agent, error) {
	logger := logging.WithAccount(logging.Setup(opts.logLevel), opts.account)

	config := instrumentation.DefaultConfig()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid instrumentation config: %w", err)
	}

	provider, err := instrumentation.NewProvider(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize instrumentation: %w", err)
	}

	metrics := provider.Metrics()

	mailbox, err := gmail.NewClientForAccount(ctx, opts.account, metrics)
	if err != nil {
		return nil, err
	}

	cal, err := calendar.NewClientForAccount(ctx, opts.account, opts.calendarID, metrics)
	if err != nil {
		return nil, err
	}

	completer, err := llm.NewClient(llm.Config{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		Model:   opts.model,
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
	}, logger)
	if err != nil {
		return nil, err
	}

	resolver, err := scheduler.NewResolver(opts.timeZone)
	if err != nil {
		return nil, err
	}

	pipeline := scheduler.NewPipeline(
		scheduler.NewRouter(completer, logger),
		scheduler.NewExtractor(completer, logger),
		resolver,
		cal,
		scheduler.PipelineConfig{
			ConfidenceThreshold: opts.confidenceThreshold,
			Model:               opts.model,
			MarkProcessed:       opts.markRead,
		},
		logger,
		provider,
	)

	return &agent{
		pipeline: pipeline,
		mailbox:  mailbox,
		provider: provider,
	}, nil
}

func newPollCmd() *cobra.Command {
	opts := &agentOptions{}

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Scan unread messages once and create calendar events",
		Long: `Scan the unread inbox once. Each message is routed by a language model;
messages that confidently request a new appointment are turned into Google
Calendar events with the sender as attendee. Everything else is left alone.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := setupAgent(ctx, opts)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.provider.Shutdown(context.Background())
			}()

			result, err := a.pipeline.ProcessBatch(ctx, a.mailbox, opts.maxResults)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d message(s): %d event(s) created, %d skipped, %d failed\n",
				result.Processed, result.Created, result.Skipped, result.Failed)
			return nil
		},
	}

	opts.bindFlags(cmd)
	return cmd
}
