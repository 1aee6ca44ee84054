package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/santahate/czesci/pkg/kafka"
)

// Kafka topic constants for identity domain events.
const (
	TopicRegistrationStarted = "marketplace.registration.started"
	TopicPhoneVerified       = "marketplace.phone.verified"
	TopicProfileCompleted    = "marketplace.profile.completed"
	TopicPhoneDeactivated    = "marketplace.phone.deactivated"
)

// Aggregate type constant.
const AggregateTypeAccount = "account"

// Source identifier for events originating from this service.
const SourceIdentityService = "identity-service"

// RegistrationStartedData is the payload for a registration.started event.
type RegistrationStartedData struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
}

// PhoneVerifiedData is the payload for a phone.verified event.
type PhoneVerifiedData struct {
	AccountID string `json:"account_id"`
	PhoneID   string `json:"phone_id"`
	Number    string `json:"number"`
}

// ProfileCompletedData is the payload for a profile.completed event.
type ProfileCompletedData struct {
	AccountID string `json:"account_id"`
	ProfileID string `json:"profile_id"`
	Role      string `json:"role"`
}

// PhoneDeactivatedData is the payload for a phone.deactivated event.
type PhoneDeactivatedData struct {
	AccountID string `json:"account_id"`
	PhoneID   string `json:"phone_id"`
}

// Producer publishes identity domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the identity service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishRegistrationStarted publishes a registration.started event.
func (p *Producer) PublishRegistrationStarted(ctx context.Context, accountID, username, role string) error {
	data := RegistrationStartedData{
		AccountID: accountID,
		Username:  username,
		Role:      role,
	}

	event, err := pkgkafka.NewEvent(TopicRegistrationStarted, accountID, AggregateTypeAccount, SourceIdentityService, data)
	if err != nil {
		return fmt.Errorf("create registration.started event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicRegistrationStarted, event); err != nil {
		return fmt.Errorf("publish registration.started event: %w", err)
	}

	p.logger.DebugContext(ctx, "published registration.started event",
		slog.String("account_id", accountID),
	)

	return nil
}

// PublishPhoneVerified publishes a phone.verified event.
func (p *Producer) PublishPhoneVerified(ctx context.Context, accountID, phoneID, number string) error {
	data := PhoneVerifiedData{
		AccountID: accountID,
		PhoneID:   phoneID,
		Number:    number,
	}

	event, err := pkgkafka.NewEvent(TopicPhoneVerified, accountID, AggregateTypeAccount, SourceIdentityService, data)
	if err != nil {
		return fmt.Errorf("create phone.verified event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicPhoneVerified, event); err != nil {
		return fmt.Errorf("publish phone.verified event: %w", err)
	}

	p.logger.DebugContext(ctx, "published phone.verified event",
		slog.String("account_id", accountID),
		slog.String("phone_id", phoneID),
	)

	return nil
}

// PublishProfileCompleted publishes a profile.completed event.
func (p *Producer) PublishProfileCompleted(ctx context.Context, accountID, profileID, role string) error {
	data := ProfileCompletedData{
		AccountID: accountID,
		ProfileID: profileID,
		Role:      role,
	}

	event, err := pkgkafka.NewEvent(TopicProfileCompleted, accountID, AggregateTypeAccount, SourceIdentityService, data)
	if err != nil {
		return fmt.Errorf("create profile.completed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicProfileCompleted, event); err != nil {
		return fmt.Errorf("publish profile.completed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published profile.completed event",
		slog.String("account_id", accountID),
		slog.String("profile_id", profileID),
		slog.String("role", role),
	)

	return nil
}

// PublishPhoneDeactivated publishes a phone.deactivated event.
func (p *Producer) PublishPhoneDeactivated(ctx context.Context, accountID, phoneID string) error {
	data := PhoneDeactivatedData{
		AccountID: accountID,
		PhoneID:   phoneID,
	}

	event, err := pkgkafka.NewEvent(TopicPhoneDeactivated, accountID, AggregateTypeAccount, SourceIdentityService, data)
	if err != nil {
		return fmt.Errorf("create phone.deactivated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicPhoneDeactivated, event); err != nil {
		return fmt.Errorf("publish phone.deactivated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published phone.deactivated event",
		slog.String("account_id", accountID),
		slog.String("phone_id", phoneID),
	)

	return nil
}
