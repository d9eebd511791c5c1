package dashboard

import (
	"time"

	"lrs-tracker/internal/models"
)

// Scope restricts a computation to every store or to a single one.
type Scope struct {
	storeID string
}

// Global covers statements of every store.
func Global() Scope {
	return Scope{}
}

// ForStore covers the statements owned by one store.
func ForStore(storeID string) Scope {
	return Scope{storeID: storeID}
}

// ResolveScope maps an optional store identifier to a scope.
func ResolveScope(storeID string) Scope {
	if storeID == "" {
		return Global()
	}
	return ForStore(storeID)
}

func (s Scope) StoreID() string { return s.storeID }

func (s Scope) IsGlobal() bool { return s.storeID == "" }

func (s Scope) String() string {
	if s.IsGlobal() {
		return "global"
	}
	return "store:" + s.storeID
}

// Filter is the conjunctive predicate handed to a statement store.
// Zero fields do not restrict.
type Filter struct {
	StoreID string
	// Since is inclusive, Before is exclusive.
	Since  time.Time
	Before time.Time
	Kind   IdentityKind
}

// Filter returns the scope predicate with no date or identity restriction.
func (s Scope) Filter() Filter {
	return Filter{StoreID: s.storeID}
}

// WithKind restricts the filter to actors resolved by the given variant.
func (f Filter) WithKind(kind IdentityKind) Filter {
	f.Kind = kind
	return f
}

// MatchesBounds reports whether the statement satisfies the store and
// timestamp parts of the filter.
func (f Filter) MatchesBounds(st models.Statement) bool {
	if f.StoreID != "" && st.StoreID != f.StoreID {
		return false
	}
	ts := st.Timestamp
	if !f.Since.IsZero() && ts.Before(f.Since) {
		return false
	}
	if !f.Before.IsZero() && !ts.Before(f.Before) {
		return false
	}
	return true
}

// Matches reports whether the statement satisfies the whole filter,
// including the identity variant when one is set.
func (f Filter) Matches(st models.Statement) bool {
	if !f.MatchesBounds(st) {
		return false
	}
	if f.Kind == 0 {
		return true
	}
	id, err := ResolveActor(st.Statement.Actor)
	return err == nil && id.Kind == f.Kind
}
