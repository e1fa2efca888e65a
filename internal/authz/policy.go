// Package authz holds the per-operation authorization table for poll operations.
package authz

import (
	"github.com/google/uuid"

	"github.com/pollsapp/backend/pkg/apperr"
)

// Operation names an action gated by the policy.
type Operation string

const (
	OpListPolls       Operation = "list_polls"
	OpGetPoll         Operation = "get_poll"
	OpCreatePoll      Operation = "create_poll"
	OpUpdatePoll      Operation = "update_poll"
	OpDeletePoll      Operation = "delete_poll"
	OpArchivePoll     Operation = "archive_poll"
	OpRestorePoll     Operation = "restore_poll"
	OpListArchived    Operation = "list_archived"
	OpListFavorites   Operation = "list_favorites"
	OpFavoritePoll    Operation = "favorite_poll"
	OpUnfavoritePoll  Operation = "unfavorite_poll"
	OpSubmitPoll      Operation = "submit_poll"
	OpListSubmissions Operation = "list_submissions"
)

// DefaultAdminPermission is the grant required to manage archived polls.
const DefaultAdminPermission = "polls.manage_archived"

// Requester is the caller of an operation. The zero value is anonymous.
type Requester struct {
	UserID        uuid.UUID
	Authenticated bool
	permissions   map[string]struct{}
}

// Anonymous returns an unauthenticated requester.
func Anonymous() Requester {
	return Requester{}
}

// User returns an authenticated requester holding the given permission grants.
func User(id uuid.UUID, permissions ...string) Requester {
	perms := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		perms[p] = struct{}{}
	}
	return Requester{UserID: id, Authenticated: true, permissions: perms}
}

// HasPermission reports whether the requester holds the named grant.
func (r Requester) HasPermission(name string) bool {
	if !r.Authenticated {
		return false
	}
	_, ok := r.permissions[name]
	return ok
}

// Viewer returns the requester's user id, or nil when anonymous.
func (r Requester) Viewer() *uuid.UUID {
	if !r.Authenticated {
		return nil
	}
	id := r.UserID
	return &id
}

// Resource is what an ownership check is evaluated against.
type Resource struct {
	OwnerID uuid.UUID
}

// Predicate is a single check over (requester, resource).
type Predicate struct {
	Name string
	// NeedsResource predicates are skipped when no resource is supplied yet.
	NeedsResource bool
	Allow         func(r Requester, res *Resource) bool
}

// Authenticated requires a non-anonymous requester.
var Authenticated = Predicate{
	Name:  "authenticated",
	Allow: func(r Requester, _ *Resource) bool { return r.Authenticated },
}

// Owner requires the requester to own the resource.
var Owner = Predicate{
	Name:          "owner",
	NeedsResource: true,
	Allow: func(r Requester, res *Resource) bool {
		return r.Authenticated && res != nil && res.OwnerID == r.UserID
	},
}

// HasPermission requires the named grant.
func HasPermission(name string) Predicate {
	return Predicate{
		Name:  "permission:" + name,
		Allow: func(r Requester, _ *Resource) bool { return r.HasPermission(name) },
	}
}

// Policy maps operations to ordered predicate lists.
type Policy struct {
	rules    map[Operation][]Predicate
	fallback []Predicate
}

// NewPolicy builds the poll policy table. adminPermission gates archived-poll management.
func NewPolicy(adminPermission string) *Policy {
	if adminPermission == "" {
		adminPermission = DefaultAdminPermission
	}
	admin := HasPermission(adminPermission)
	return &Policy{
		rules: map[Operation][]Predicate{
			OpListPolls:       {},
			OpGetPoll:         {},
			OpSubmitPoll:      {},
			OpCreatePoll:      {Authenticated},
			OpListFavorites:   {Authenticated},
			OpFavoritePoll:    {Authenticated},
			OpUnfavoritePoll:  {Authenticated},
			OpUpdatePoll:      {Authenticated, Owner},
			OpArchivePoll:     {Authenticated, Owner},
			OpDeletePoll:      {Authenticated, Owner},
			OpListSubmissions: {Authenticated, Owner},
			OpRestorePoll:     {Authenticated, admin},
			OpListArchived:    {Authenticated, admin},
		},
		fallback: []Predicate{Authenticated},
	}
}

// Unresolved returns the error to surface when the resource op targets could
// not be found. If the decision depends on the resource, the caller gets the
// same denial a non-owner would, so absence is never confirmed; otherwise
// notFound is returned unchanged.
func (p *Policy) Unresolved(op Operation, r Requester, notFound error) error {
	for _, pred := range p.predicates(op) {
		if pred.NeedsResource {
			return deny(r)
		}
	}
	return notFound
}

func (p *Policy) predicates(op Operation) []Predicate {
	if preds, ok := p.rules[op]; ok {
		return preds
	}
	return p.fallback
}

func deny(r Requester) error {
	if !r.Authenticated {
		return apperr.Unauthenticated("authentication required")
	}
	return apperr.Forbidden("not permitted")
}

// Authorize evaluates the predicates for op in order. Pass a nil resource to
// run only the resource-free checks, before anything has been loaded.
func (p *Policy) Authorize(op Operation, r Requester, res *Resource) error {
	for _, pred := range p.predicates(op) {
		if pred.NeedsResource && res == nil {
			continue
		}
		if pred.Allow(r, res) {
			continue
		}
		return deny(r)
	}
	return nil
}
