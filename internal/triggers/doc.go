// Package triggers implements the Pub/Sub trigger lifecycle for active snaps.
//
// A trigger is a push subscription named snapmaster-{activeSnapId}-{topic}
// on the user's topic, pushing to the provider's webhook URL for that snap.
// Names are deterministic, so creating the same trigger twice converges on
// the same topic and subscription and no local state or locking is needed.
// The engine stores the returned TriggerRecord and hands it back on delete.
//
//	createTrigger ──► CreateTopic ──► CreateSubscription(push, OIDC) ──► {url, id}
//	deleteTrigger ──► DeleteSubscription(id)
//	webhook       ──► HandleTrigger ──► engine executesnap
package triggers
