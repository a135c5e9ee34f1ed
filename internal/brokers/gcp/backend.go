// Package gcp implements the Pub/Sub backend on Google Cloud Pub/Sub. Every
// call builds a short-lived client from the caller's service-account key, so
// no credentials outlive the request that supplied them.
package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"snapmaster-gcp/internal/brokers"
	"snapmaster-gcp/internal/common/errors"
	"snapmaster-gcp/internal/common/logging"
	"snapmaster-gcp/internal/credentials"
)

// ClientFactory builds a Pub/Sub client for key
type ClientFactory func(ctx context.Context, key *credentials.ServiceAccountKey) (*pubsub.Client, error)

// Backend implements brokers.Backend for Cloud Pub/Sub
type Backend struct {
	config    Config
	newClient ClientFactory
	logger    logging.Logger
}

var _ brokers.Backend = (*Backend)(nil)

// NewBackend creates a backend that authenticates with each request's key.
// PUBSUB_EMULATOR_HOST is honoured by the client library.
func NewBackend(config Config, logger logging.Logger) (*Backend, error) {
	return NewBackendWithFactory(config, keyClientFactory, logger)
}

// NewBackendWithFactory creates a backend with a custom client factory
func NewBackendWithFactory(config Config, factory ClientFactory, logger logging.Logger) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Backend{config: config, newClient: factory, logger: logger}, nil
}

func keyClientFactory(ctx context.Context, key *credentials.ServiceAccountKey) (*pubsub.Client, error) {
	return pubsub.NewClient(ctx, key.ProjectID, option.WithCredentialsJSON(key.JSON()))
}

// withClient runs fn with a fresh client bounded by the backend timeout
func (b *Backend) withClient(ctx context.Context, key *credentials.ServiceAccountKey, operation string, fn func(context.Context, *pubsub.Client) error) error {
	if key == nil || key.ProjectID == "" {
		return errors.CredentialError("service key has no project_id", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	client, err := b.newClient(ctx, key)
	if err != nil {
		return errors.FromContext(ctx, "create Pub/Sub client", err)
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			b.logger.Debug("Failed to close Pub/Sub client", logging.Field{Key: "error", Value: cerr.Error()})
		}
	}()

	if err := fn(ctx, client); err != nil {
		switch status.Code(err) {
		case codes.AlreadyExists, codes.NotFound:
			return err
		}
		return errors.FromContext(ctx, operation, err)
	}
	return nil
}

// CreateTopic creates topic in the key's project
func (b *Backend) CreateTopic(ctx context.Context, key *credentials.ServiceAccountKey, topic string) brokers.Outcome {
	logger := b.logger.WithContext(ctx).WithFields(logging.Field{Key: "topic", Value: topic})

	err := b.withClient(ctx, key, "create topic", func(ctx context.Context, client *pubsub.Client) error {
		_, err := client.CreateTopic(ctx, topic)
		return err
	})

	switch {
	case err == nil:
		logger.Info("Created Pub/Sub topic")
		return brokers.Created(topic)
	case status.Code(err) == codes.AlreadyExists:
		logger.Debug("Pub/Sub topic already exists")
		return brokers.AlreadyExists(topic)
	default:
		logger.Error("Failed to create Pub/Sub topic", err)
		return brokers.Failed(topic, err)
	}
}

// CreateSubscription subscribes to topic. Push subscriptions carry an OIDC
// token for opts.ServiceAccountEmail so the webhook can authenticate them.
func (b *Backend) CreateSubscription(ctx context.Context, key *credentials.ServiceAccountKey, topic, subscription string, opts brokers.SubscriptionOptions) brokers.Outcome {
	logger := b.logger.WithContext(ctx).WithFields(
		logging.Field{Key: "topic", Value: topic},
		logging.Field{Key: "subscription", Value: subscription},
	)

	ackDeadline := opts.AckDeadline
	if ackDeadline == 0 {
		ackDeadline = b.config.AckDeadline
	}

	err := b.withClient(ctx, key, "create subscription", func(ctx context.Context, client *pubsub.Client) error {
		subConfig := pubsub.SubscriptionConfig{
			Topic:       client.Topic(topic),
			AckDeadline: ackDeadline,
		}
		if opts.Push() {
			subConfig.PushConfig = pubsub.PushConfig{Endpoint: opts.Endpoint}
			if opts.ServiceAccountEmail != "" {
				subConfig.PushConfig.AuthenticationMethod = &pubsub.OIDCToken{
					ServiceAccountEmail: opts.ServiceAccountEmail,
					Audience:            opts.Audience,
				}
			}
		}

		_, err := client.CreateSubscription(ctx, subscription, subConfig)
		return err
	})

	switch {
	case err == nil:
		logger.Info("Created Pub/Sub subscription", logging.Field{Key: "push", Value: opts.Push()})
		return brokers.Created(subscription)
	case status.Code(err) == codes.AlreadyExists:
		logger.Debug("Pub/Sub subscription already exists")
		return brokers.AlreadyExists(subscription)
	case status.Code(err) == codes.NotFound:
		logger.Warn("Pub/Sub topic not found for subscription")
		return brokers.Failed(subscription, errors.NotFoundError(fmt.Sprintf("topic %s", topic)))
	default:
		logger.Error("Failed to create Pub/Sub subscription", err)
		return brokers.Failed(subscription, err)
	}
}

// DeleteSubscription removes subscription. A subscription that does not
// exist is reported as a failure.
func (b *Backend) DeleteSubscription(ctx context.Context, key *credentials.ServiceAccountKey, subscription string) brokers.Outcome {
	logger := b.logger.WithContext(ctx).WithFields(logging.Field{Key: "subscription", Value: subscription})

	err := b.withClient(ctx, key, "delete subscription", func(ctx context.Context, client *pubsub.Client) error {
		return client.Subscription(subscription).Delete(ctx)
	})

	switch {
	case err == nil:
		logger.Info("Deleted Pub/Sub subscription")
		return brokers.Deleted(subscription)
	case status.Code(err) == codes.NotFound:
		logger.Warn("Pub/Sub subscription not found")
		return brokers.Failed(subscription, errors.NotFoundError(fmt.Sprintf("subscription %s", subscription)))
	default:
		logger.Error("Failed to delete Pub/Sub subscription", err)
		return brokers.Failed(subscription, err)
	}
}
