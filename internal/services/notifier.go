package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/attune/internal/alerts"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/redis/go-redis/v9"
)

// AlertNotifier delivers a critical alert to operators outside the service
type AlertNotifier interface {
	Name() string
	Notify(ctx context.Context, alert alerts.Alert) error
}

// SESClient is the subset of the SES API used for alert email
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESAlertNotifier emails critical alerts using AWS SES
type SESAlertNotifier struct {
	sesClient   SESClient
	fromAddress string
	recipients  []string
	logger      *slog.Logger
}

// NewSESAlertNotifier creates a notifier from the default AWS credential chain
func NewSESAlertNotifier(ctx context.Context, region, fromAddress string, recipients []string, logger *slog.Logger) (*SESAlertNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSESAlertNotifierWithClient(ses.NewFromConfig(cfg), fromAddress, recipients, logger), nil
}

// NewSESAlertNotifierWithClient creates a notifier around an existing client
func NewSESAlertNotifierWithClient(client SESClient, fromAddress string, recipients []string, logger *slog.Logger) *SESAlertNotifier {
	return &SESAlertNotifier{
		sesClient:   client,
		fromAddress: fromAddress,
		recipients:  recipients,
		logger:      logger,
	}
}

func (s *SESAlertNotifier) Name() string { return "ses" }

// Notify sends one email per alert to every configured recipient
func (s *SESAlertNotifier) Notify(ctx context.Context, alert alerts.Alert) error {
	subject := fmt.Sprintf("[%s] %s alert #%d", strings.ToUpper(string(alert.Level)), alert.Type, alert.ID)

	var details strings.Builder
	for k, v := range alert.Details {
		fmt.Fprintf(&details, "  %s: %v\n", k, v)
	}

	textBody := fmt.Sprintf(`%s

Alert:    #%d
Type:     %s
Level:    %s
User:     %s
Raised:   %s

Details:
%s
Acknowledge this alert from the admin API once it has been reviewed.
`, alert.Message, alert.ID, alert.Type, alert.Level, alert.UserID,
		alert.CreatedAt.UTC().Format(time.RFC3339), details.String())

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: s.recipients,
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send alert email via SES",
			slog.Int64("alert_id", alert.ID),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("alert email sent",
		slog.Int64("alert_id", alert.ID),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}

// RedisPublisher is the subset of the go-redis client used for fan-out
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisAlertPublisher publishes critical alerts as JSON on a Redis channel
type RedisAlertPublisher struct {
	client  RedisPublisher
	closer  func() error
	channel string
	logger  *slog.Logger
}

// NewRedisAlertPublisher connects to the Redis URL and verifies the
// connection.
func NewRedisAlertPublisher(ctx context.Context, url, channel string, logger *slog.Logger) (*RedisAlertPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.DialTimeout = 3 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed (%s): %w", opts.Addr, err)
	}

	logger.Info("redis connected", slog.String("addr", opts.Addr), slog.String("channel", channel))

	p := NewRedisAlertPublisherWithClient(rdb, channel, logger)
	p.closer = rdb.Close
	return p, nil
}

// NewRedisAlertPublisherWithClient wraps an existing client
func NewRedisAlertPublisherWithClient(client RedisPublisher, channel string, logger *slog.Logger) *RedisAlertPublisher {
	return &RedisAlertPublisher{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

func (p *RedisAlertPublisher) Name() string { return "redis" }

// Notify publishes the alert; zero subscribers is not an error
func (p *RedisAlertPublisher) Notify(ctx context.Context, alert alerts.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	receivers, err := p.client.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}

	p.logger.Debug("alert published",
		slog.Int64("alert_id", alert.ID),
		slog.Int64("receivers", receivers))
	return nil
}

// Close releases the client when the publisher owns it
func (p *RedisAlertPublisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}
