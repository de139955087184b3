// Package audit records who changed what in an organisation. Recording
// never fails the caller: a lost audit row is logged, not returned.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"brokerhub/internal/pkg/errors"
	"brokerhub/internal/platform/models"
	"brokerhub/internal/platform/rbac"
)

const (
	ActionCreate   = "CREATE"
	ActionUpdate   = "UPDATE"
	ActionDelete   = "DELETE"
	ActionInvite   = "INVITE"
	ActionRedeem   = "REDEEM"
	ActionCancel   = "CANCEL"
	ActionRemove   = "REMOVE"
	ActionTransfer = "TRANSFER_OWNERSHIP"
	ActionPropose  = "PROPOSE"
	ActionSignup   = "SIGNUP"
)

const (
	EntityOrganisation = "ORGANISATION"
	EntityMembership   = "MEMBERSHIP"
	EntityInvitation   = "INVITATION"
	EntityClient       = "CLIENT"
	EntityPolicy       = "POLICY"
	EntityAgreement    = "AGREEMENT"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	defaultPublishTimeout = 5 * time.Second
)

type Entry struct {
	OrganisationID string
	ActorUserID    string
	ActorRole      rbac.Role
	Action         string
	Entity         string
	EntityID       string
	Before         interface{}
	After          interface{}
}

type Store interface {
	Insert(ctx context.Context, entry *models.AuditLog) error
	ListByOrganisation(ctx context.Context, orgID string, limit int) ([]*models.AuditLog, error)
}

// Sink receives a copy of every stored entry.
type Sink interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

type Recorder struct {
	store          Store
	sinks          []Sink
	now            func() time.Time
	publishTimeout time.Duration
	inflight       sync.WaitGroup
}

func NewRecorder(store Store, sinks ...Sink) *Recorder {
	return &Recorder{store: store, sinks: sinks, now: time.Now, publishTimeout: defaultPublishTimeout}
}

// Record must be called after the change it describes has committed. It
// detaches from ctx cancellation so a client hanging up does not drop the
// row. Sinks are fed in the background; Record never waits on them.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	ctx = context.WithoutCancel(ctx)

	entry := &models.AuditLog{
		ID:             "audit_" + uuid.New().String(),
		OrganisationID: e.OrganisationID,
		ActorUserID:    e.ActorUserID,
		ActorType:      actorType(e),
		Action:         e.Action,
		Entity:         e.Entity,
		EntityID:       e.EntityID,
		Before:         marshal(e.Before),
		After:          marshal(e.After),
		CreatedAt:      r.now().Unix(),
	}

	logger := log.With().
		Str("org_id", entry.OrganisationID).
		Str("action", entry.Action).
		Str("entity", entry.Entity).
		Str("entity_id", entry.EntityID).
		Logger()

	if err := r.store.Insert(ctx, entry); err != nil {
		logger.Warn().Err(err).Msg("audit insert failed")
		return
	}

	for _, s := range r.sinks {
		r.inflight.Add(1)
		go func(s Sink) {
			defer r.inflight.Done()
			pctx, cancel := context.WithTimeout(ctx, r.publishTimeout)
			defer cancel()
			if err := s.Publish(pctx, entry.OrganisationID, entry); err != nil {
				logger.Warn().Err(err).Msg("audit publish failed")
			}
		}(s)
	}
}

// Wait blocks until background publishes finish. Call it before closing
// the sinks.
func (r *Recorder) Wait() {
	r.inflight.Wait()
}

func actorType(e Entry) string {
	if e.ActorRole != "" {
		return string(e.ActorRole)
	}
	return "SYSTEM"
}

func marshal(v interface{}) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Msg("audit state not serialisable")
		return ""
	}
	return string(b)
}

// List returns the newest entries for the actor's organisation.
func (r *Recorder) List(ctx context.Context, actor rbac.Actor, limit int) ([]*models.AuditLog, error) {
	if err := rbac.RequireMinimum(rbac.RoleAdmin)(actor); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	logs, err := r.store.ListByOrganisation(ctx, actor.ActorOrganisation(), limit)
	if err != nil {
		return nil, errors.Storage(err)
	}
	if logs == nil {
		logs = []*models.AuditLog{}
	}
	return logs, nil
}
