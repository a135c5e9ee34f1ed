// Package brokers defines the Pub/Sub capability the trigger lifecycle runs on.
package brokers

import (
	"context"
	"time"

	"snapmaster-gcp/internal/credentials"
)

// OutcomeStatus tags the result of a backend call
type OutcomeStatus int

const (
	OutcomeFailed OutcomeStatus = iota
	OutcomeCreated
	OutcomeAlreadyExists
	OutcomeDeleted
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeCreated:
		return "created"
	case OutcomeAlreadyExists:
		return "already_exists"
	case OutcomeDeleted:
		return "deleted"
	default:
		return "failed"
	}
}

// Outcome is the result of one backend call. Err is set only when Status is
// OutcomeFailed. An already-existing resource is not a failure.
type Outcome struct {
	Status OutcomeStatus
	Name   string
	Err    error
}

// OK reports whether the resource now exists (or is gone, for deletes)
func (o Outcome) OK() bool {
	return o.Status != OutcomeFailed
}

// Created builds a created outcome
func Created(name string) Outcome { return Outcome{Status: OutcomeCreated, Name: name} }

// AlreadyExists builds an already-exists outcome
func AlreadyExists(name string) Outcome { return Outcome{Status: OutcomeAlreadyExists, Name: name} }

// Deleted builds a deleted outcome
func Deleted(name string) Outcome { return Outcome{Status: OutcomeDeleted, Name: name} }

// Failed builds a failed outcome
func Failed(name string, err error) Outcome { return Outcome{Status: OutcomeFailed, Name: name, Err: err} }

// SubscriptionOptions configures a new subscription. With an Endpoint the
// subscription pushes to it, authenticated by an OIDC token minted for
// ServiceAccountEmail; without one it is a pull subscription.
type SubscriptionOptions struct {
	Endpoint            string
	ServiceAccountEmail string
	Audience            string
	AckDeadline         time.Duration
}

// Push reports whether the options describe a push subscription
func (o SubscriptionOptions) Push() bool {
	return o.Endpoint != ""
}

// Backend manages topics and subscriptions in the caller's project,
// authenticated with the caller's service-account key
type Backend interface {
	CreateTopic(ctx context.Context, key *credentials.ServiceAccountKey, topic string) Outcome
	CreateSubscription(ctx context.Context, key *credentials.ServiceAccountKey, topic, subscription string, opts SubscriptionOptions) Outcome
	DeleteSubscription(ctx context.Context, key *credentials.ServiceAccountKey, subscription string) Outcome
}
