package triggers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"snapmaster-gcp/internal/brokers"
	"snapmaster-gcp/internal/common/errors"
	"snapmaster-gcp/internal/common/logging"
	"snapmaster-gcp/internal/common/validation"
	"snapmaster-gcp/internal/credentials"
	"snapmaster-gcp/internal/engine"
	"snapmaster-gcp/internal/models"
)

const (
	// EventPubSub is the only trigger event this provider supports
	EventPubSub = "pubsub"

	subscriptionPrefix = "snapmaster"
	webhookPath        = "/gcp/webhooks"
)

// CredentialResolver resolves a request's service-account key
type CredentialResolver interface {
	Resolve(project string, info *models.ConnectionInfo, param models.Params) (*credentials.ServiceAccountKey, error)
}

// Config holds trigger settings
type Config struct {
	// ProviderURL is the public base URL Pub/Sub pushes to
	ProviderURL string
	// WebhookAudience, when set, is the audience of the push OIDC token
	WebhookAudience string
}

// Manager creates, deletes and fires triggers
type Manager struct {
	config     Config
	resolver   CredentialResolver
	backend    brokers.Backend
	dispatcher engine.Dispatcher
	logger     logging.Logger
}

// NewManager creates a trigger manager
func NewManager(config Config, resolver CredentialResolver, backend brokers.Backend, dispatcher engine.Dispatcher, logger logging.Logger) *Manager {
	config.ProviderURL = strings.TrimSuffix(config.ProviderURL, "/")
	return &Manager{
		config:     config,
		resolver:   resolver,
		backend:    backend,
		dispatcher: dispatcher,
		logger:     logger.WithFields(logging.Field{Key: "component", Value: "trigger_manager"}),
	}
}

// SubscriptionName returns the deterministic subscription ID for a trigger
func SubscriptionName(activeSnapID, topic string) string {
	return fmt.Sprintf("%s-%s-%s", subscriptionPrefix, activeSnapID, topic)
}

// WebhookURL returns the push endpoint for a user's active snap
func (m *Manager) WebhookURL(userID, activeSnapID string) string {
	return fmt.Sprintf("%s%s/%s/%s", m.config.ProviderURL, webhookPath, url.PathEscape(userID), url.PathEscape(activeSnapID))
}

type createBody struct {
	UserID       string        `json:"userId" validate:"required"`
	ActiveSnapID string        `json:"activeSnapId" validate:"required"`
	Param        models.Params `json:"param" validate:"required"`
}

type deleteBody struct {
	Param models.Params `json:"param" validate:"required"`
}

type triggerParams struct {
	Event   string `json:"event" validate:"required,eq=pubsub"`
	Topic   string `json:"topic" validate:"required"`
	Project string `json:"project" validate:"required"`
}

func paramsOf(param models.Params) triggerParams {
	return triggerParams{
		Event:   param.String("event"),
		Topic:   param.String("topic"),
		Project: param.String("project"),
	}
}

func (m *Manager) reject(logger logging.Logger, operation string, err error) models.ReturnValue {
	logger.Warn(operation+" rejected", logging.Field{Key: "reason", Value: errors.Message(err)})
	return models.FromError(err)
}

func (m *Manager) backendFailure(logger logging.Logger, message string, outcome brokers.Outcome) models.ReturnValue {
	logger.Error(message, outcome.Err)
	detail := map[string]interface{}{"type": string(errors.GetType(outcome.Err))}
	if outcome.Err != nil {
		detail["cause"] = errors.Message(outcome.Err)
	}
	return models.Failure(message, detail)
}

// CreateTrigger registers a push subscription for the request's topic and
// returns the TriggerRecord the engine must keep for deletion. The topic is
// created before the subscription; both tolerate already existing.
func (m *Manager) CreateTrigger(ctx context.Context, req *models.TriggerRequest) models.ReturnValue {
	if req == nil {
		req = &models.TriggerRequest{}
	}
	ctx = logging.ContextWithSnap(ctx, req.UserID, req.ActiveSnapID)
	logger := m.logger.WithContext(ctx)

	if err := validation.First(createBody{req.UserID, req.ActiveSnapID, req.Param}, validation.ScopeBody); err != nil {
		return m.reject(logger, "createTrigger", err)
	}
	params := paramsOf(req.Param)
	if err := validation.First(params, validation.ScopeParam); err != nil {
		return m.reject(logger, "createTrigger", err)
	}

	key, err := m.resolver.Resolve(params.Project, req.ConnectionInfo, req.Param)
	if err != nil {
		return m.reject(logger, "createTrigger", err)
	}

	topic := m.backend.CreateTopic(ctx, key, params.Topic)
	if !topic.OK() {
		return m.backendFailure(logger, fmt.Sprintf("could not create or find topic %s", params.Topic), topic)
	}

	record := models.TriggerRecord{
		URL: m.WebhookURL(req.UserID, req.ActiveSnapID),
		ID:  SubscriptionName(req.ActiveSnapID, params.Topic),
	}
	opts := brokers.SubscriptionOptions{
		Endpoint:            record.URL,
		ServiceAccountEmail: key.ClientEmail,
		Audience:            m.config.WebhookAudience,
	}

	sub := m.backend.CreateSubscription(ctx, key, params.Topic, record.ID, opts)
	if !sub.OK() {
		return m.backendFailure(logger, fmt.Sprintf("could not create subscription for topic %s", params.Topic), sub)
	}

	logger.Info("Created trigger",
		logging.Field{Key: "topic", Value: params.Topic},
		logging.Field{Key: "trigger_id", Value: record.ID},
		logging.Field{Key: "topic_outcome", Value: topic.Status.String()},
		logging.Field{Key: "subscription_outcome", Value: sub.Status.String()},
	)
	return models.Success(record)
}

// DeleteTrigger removes the subscription named by req.TriggerData.ID
func (m *Manager) DeleteTrigger(ctx context.Context, req *models.TriggerRequest) models.ReturnValue {
	if req == nil {
		req = &models.TriggerRequest{}
	}
	ctx = logging.ContextWithSnap(ctx, req.UserID, req.ActiveSnapID)
	logger := m.logger.WithContext(ctx)

	if err := validation.First(deleteBody{req.Param}, validation.ScopeBody); err != nil {
		return m.reject(logger, "deleteTrigger", err)
	}
	params := paramsOf(req.Param)
	if err := validation.First(params, validation.ScopeParam); err != nil {
		return m.reject(logger, "deleteTrigger", err)
	}

	key, err := m.resolver.Resolve(params.Project, req.ConnectionInfo, req.Param)
	if err != nil {
		return m.reject(logger, "deleteTrigger", err)
	}

	if req.TriggerData == nil {
		return m.reject(logger, "deleteTrigger", errors.ValidationError("missing triggerData in request"))
	}
	if req.TriggerData.ID == "" {
		return m.reject(logger, "deleteTrigger", errors.ValidationError(`triggerData missing required parameter "id"`))
	}

	outcome := m.backend.DeleteSubscription(ctx, key, req.TriggerData.ID)
	if !outcome.OK() {
		return m.backendFailure(logger, fmt.Sprintf("could not delete subscription to topic %s", params.Topic), outcome)
	}

	logger.Info("Deleted trigger", logging.Field{Key: "trigger_id", Value: req.TriggerData.ID})
	return models.Success(map[string]string{"id": req.TriggerData.ID})
}

// HandleTrigger forwards a fired trigger to the engine
func (m *Manager) HandleTrigger(ctx context.Context, userID, activeSnapID, event string, payload map[string]interface{}) models.ReturnValue {
	ctx = logging.ContextWithSnap(ctx, userID, activeSnapID)
	logger := m.logger.WithContext(ctx)

	if event != EventPubSub {
		logger.Warn("handleTrigger: unknown event", logging.Field{Key: "event", Value: event})
		return models.Failure(fmt.Sprintf("unknown event %q", event), nil)
	}

	rv, err := m.dispatcher.ExecuteSnap(ctx, userID, activeSnapID, event, payload)
	if err != nil || rv.Status == "" {
		detail := map[string]interface{}{}
		if err != nil {
			detail["type"] = string(errors.GetType(err))
			detail["cause"] = errors.Message(err)
		}
		return models.Failure(fmt.Sprintf("could not trigger active snap %s:%s", userID, activeSnapID), detail)
	}
	return rv
}
