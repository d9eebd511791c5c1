package dashboard

import (
	"errors"

	"lrs-tracker/internal/models"
)

// ErrUnresolvableIdentity is returned when an actor carries none of the
// known identifiers.
var ErrUnresolvableIdentity = errors.New("dashboard: actor matches no identity variant")

// IdentityKind tags which identifier an actor was resolved by.
type IdentityKind int

const (
	KindMbox IdentityKind = iota + 1
	KindOpenID
	KindMboxSha1Sum
	KindAccount
)

// IdentityKinds lists the variants in resolution priority order.
var IdentityKinds = []IdentityKind{KindMbox, KindOpenID, KindMboxSha1Sum, KindAccount}

func (k IdentityKind) String() string {
	switch k {
	case KindMbox:
		return "mbox"
	case KindOpenID:
		return "openid"
	case KindMboxSha1Sum:
		return "mbox_sha1sum"
	case KindAccount:
		return "account"
	default:
		return "unknown"
	}
}

// ActorIdentity is the canonical dedup key of an actor within its variant.
// It is comparable and can be used directly as a map key. HomePage is only
// set for KindAccount, where Value holds the account name.
type ActorIdentity struct {
	Kind     IdentityKind
	Value    string
	HomePage string
}

// ResolveActor picks the first populated identifier in the order mbox,
// openid, mbox_sha1sum, account. Actors carrying several identifiers are
// resolved by the highest priority one only.
func ResolveActor(actor models.Actor) (ActorIdentity, error) {
	switch {
	case actor.Mbox != "":
		return ActorIdentity{Kind: KindMbox, Value: actor.Mbox}, nil
	case actor.OpenID != "":
		return ActorIdentity{Kind: KindOpenID, Value: actor.OpenID}, nil
	case actor.MboxSha1Sum != "":
		return ActorIdentity{Kind: KindMboxSha1Sum, Value: actor.MboxSha1Sum}, nil
	case actor.Account != nil && actor.Account.Name != "" && actor.Account.HomePage != "":
		return ActorIdentity{
			Kind:     KindAccount,
			Value:    actor.Account.Name,
			HomePage: actor.Account.HomePage,
		}, nil
	}
	return ActorIdentity{}, ErrUnresolvableIdentity
}
