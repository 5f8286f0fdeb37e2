package model

import "testing"

func TestRemedyFor(t *testing.T) {
	tests := []struct {
		reason DenyReason
		want   bool
	}{
		{ReasonNoExternalAccount, true},
		{ReasonTokenExpired, true},
		{ReasonAPIError, true},
		{ReasonNotInGroup, false},
		{ReasonNoRole, false},
		{ReasonUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			if got := RemedyFor(tt.reason).RequiresReauth; got != tt.want {
				t.Fatalf("RemedyFor(%s).RequiresReauth = %v, want %v", tt.reason, got, tt.want)
			}
		})
	}
}

func TestMembershipResultDecision(t *testing.T) {
	granted := MembershipResult{HasAccess: true}
	if d := granted.Decision(); !d.Granted || d.Reason != "" {
		t.Fatalf("granted decision = %+v", d)
	}

	denied := MembershipResult{Reason: ReasonTokenExpired, NeedsReconnect: true}
	d := denied.Decision()
	if d.Granted || d.Reason != ReasonTokenExpired || !d.NeedsReconnect {
		t.Fatalf("denied decision = %+v", d)
	}
}

func TestAccessDecisionResponseIncludesRemedyOnlyOnDenial(t *testing.T) {
	if resp := AccessDecisionResponseFrom(Granted()); resp.Remedy != nil || !resp.Granted {
		t.Fatalf("granted response = %+v", resp)
	}

	resp := AccessDecisionResponseFrom(Denied(ReasonAPIError, false))
	if resp.Granted || resp.Reason != string(ReasonAPIError) || resp.Remedy == nil {
		t.Fatalf("denied response = %+v", resp)
	}
	// The remedy may disagree with NeedsReconnect; the decision's flag is
	// the authoritative one.
	if resp.NeedsReconnect || !resp.Remedy.RequiresReauth {
		t.Fatalf("api_error divergence not preserved: %+v", resp)
	}
}
