package model

// DenyReason enumerates every way an access check can fail. Callers are
// expected to switch over the full set.
type DenyReason string

const (
	// ReasonUnauthorized: the caller is anonymous or matched no grant path.
	ReasonUnauthorized DenyReason = "unauthorized"
	// ReasonNoExternalAccount: the user has never linked an account for the
	// vault's provider.
	ReasonNoExternalAccount DenyReason = "no_external_account"
	// ReasonTokenExpired: the delegated token is expired or rejected and
	// could not be refreshed.
	ReasonTokenExpired DenyReason = "token_expired"
	// ReasonNotInGroup: the directory reports the user is not a member of
	// the gating group.
	ReasonNotInGroup DenyReason = "not_in_group"
	// ReasonNoRole: the user is in the group but lacks the required role.
	ReasonNoRole DenyReason = "no_role"
	// ReasonAPIError: the directory could not be consulted.
	ReasonAPIError DenyReason = "api_error"
)

// AccessDecision is the resolver's output. Either Granted is true and the
// other fields are zero, or Granted is false and Reason says why.
// NeedsReconnect is true only when re-linking the external account (not
// retrying) can fix the denial.
type AccessDecision struct {
	Granted        bool
	Reason         DenyReason
	NeedsReconnect bool
}

func Granted() AccessDecision {
	return AccessDecision{Granted: true}
}

func Denied(reason DenyReason, needsReconnect bool) AccessDecision {
	return AccessDecision{Reason: reason, NeedsReconnect: needsReconnect}
}

// MembershipResult is the membership directory's verdict. It shares the
// deny-reason vocabulary with AccessDecision so the resolver can propagate
// it unchanged.
type MembershipResult struct {
	HasAccess      bool
	Reason         DenyReason
	NeedsReconnect bool
}

// Decision converts a membership verdict into an access decision.
func (r MembershipResult) Decision() AccessDecision {
	if r.HasAccess {
		return Granted()
	}
	return Denied(r.Reason, r.NeedsReconnect)
}

// Remedy classifies a denial for the UI: reconnect the external account,
// or nothing the user can do beyond retrying / asking for access.
type Remedy struct {
	RequiresReauth bool `json:"requiresReauth"`
}

// RemedyFor maps a deny reason to its UI remedy. This is a presentation
// convenience and deliberately coarser than AccessDecision.NeedsReconnect:
// api_error is classed as reauth-worthy here because reconnecting is the
// one blunt recovery the UI can offer, while the decision itself keeps
// NeedsReconnect=false for it. The decision is the authoritative signal.
func RemedyFor(reason DenyReason) Remedy {
	switch reason {
	case ReasonNoExternalAccount, ReasonTokenExpired, ReasonAPIError:
		return Remedy{RequiresReauth: true}
	default:
		return Remedy{RequiresReauth: false}
	}
}

type AccessDecisionResponse struct {
	Granted        bool    `json:"granted"`
	Reason         string  `json:"reason,omitempty"`
	NeedsReconnect bool    `json:"needsReconnect,omitempty"`
	Remedy         *Remedy `json:"remedy,omitempty"`
}

func AccessDecisionResponseFrom(d AccessDecision) AccessDecisionResponse {
	if d.Granted {
		return AccessDecisionResponse{Granted: true}
	}
	remedy := RemedyFor(d.Reason)
	return AccessDecisionResponse{
		Granted:        false,
		Reason:         string(d.Reason),
		NeedsReconnect: d.NeedsReconnect,
		Remedy:         &remedy,
	}
}
