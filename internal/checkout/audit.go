package checkout

import (
	"context"
	"log"
	"time"

	"kasirinaja/checkout/internal/domain"
	"kasirinaja/checkout/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

const (
	AuditSessionOpen     = "payment_session_open"
	AuditSubmit          = "payment_submit"
	AuditLoyaltyRedeem   = "loyalty_redeem"
	AuditPaymentCallback = "payment_callback"
)

const defaultStoreID = "main-store"

func (s *Session) logAudit(ctx context.Context, action string, detail string) {
	storeID := s.storeID
	if storeID == "" {
		storeID = defaultStoreID
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.store.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		StoreID:       storeID,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    "invoice",
		EntityID:      s.invoiceID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=invoice/%s: %v", action, s.invoiceID, err)
	}
}
