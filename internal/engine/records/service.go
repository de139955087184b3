// Package records manages a broker organisation's clients, policies and
// finance agreements. Every query is scoped to the caller's organisation.
package records

import (
	"context"
	"time"

	"brokerhub/internal/pkg/errors"
	"brokerhub/internal/platform/audit"
	"brokerhub/internal/platform/auth"
	"brokerhub/internal/platform/database"
	"brokerhub/internal/platform/rbac"
	"brokerhub/internal/platform/repositories"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

var (
	readAccess   = rbac.RequireMinimum(rbac.RoleReadOnly)
	writeAccess  = rbac.RequireMinimum(rbac.RoleMember)
	deleteAccess = rbac.RequireMinimum(rbac.RoleAdmin)
)

type Auditor interface {
	Record(ctx context.Context, e audit.Entry)
}

type Service struct {
	tx      *database.TxManager
	repos   *repositories.Set
	auditor Auditor
	now     func() time.Time
}

func NewService(tx *database.TxManager, repos *repositories.Set, auditor Auditor) *Service {
	return &Service{tx: tx, repos: repos, auditor: auditor, now: time.Now}
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type PageResult[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

func paginate[T any](data []T, page repositories.Page, total int) *PageResult[T] {
	if data == nil {
		data = []T{}
	}
	return &PageResult[T]{
		Data: data,
		Pagination: Pagination{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      total,
			TotalPages: (total + page.Limit - 1) / page.Limit,
		},
	}
}

// pageOf applies defaults and rejects out-of-range paging.
func pageOf(page, limit int) (repositories.Page, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = defaultLimit
	}
	if page < 1 {
		return repositories.Page{}, errors.InvalidArgument("page must be at least 1")
	}
	if limit < 1 || limit > maxLimit {
		return repositories.Page{}, errors.InvalidArgument("limit must be between 1 and 100")
	}
	return repositories.Page{Page: page, Limit: limit}, nil
}

func (s *Service) record(ctx context.Context, actor *auth.Context, action, entity, id string, before, after interface{}) {
	s.auditor.Record(ctx, audit.Entry{
		OrganisationID: actor.OrganisationID,
		ActorUserID:    actor.UserID,
		ActorRole:      actor.Role,
		Action:         action,
		Entity:         entity,
		EntityID:       id,
		Before:         before,
		After:          after,
	})
}
