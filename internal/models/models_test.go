package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_HasRole(t *testing.T) {
	user := &User{
		UID:      "u-1",
		Username: "observer",
		Roles:    []string{"USER", "ANALYST"},
	}

	tests := []struct {
		name  string
		roles []string
		want  bool
	}{
		{name: "exact match", roles: []string{"USER"}, want: true},
		{name: "case insensitive", roles: []string{"analyst"}, want: true},
		{name: "or semantics", roles: []string{"ADMIN", "USER"}, want: true},
		{name: "no membership", roles: []string{"ADMIN"}, want: false},
		{name: "empty query", roles: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, user.HasRole(tt.roles...))
		})
	}
}

func TestUser_HasRole_OrderInvariant(t *testing.T) {
	a := &User{Roles: []string{"Analyst", "user"}}
	b := &User{Roles: []string{"user", "Analyst"}}

	assert.Equal(t,
		a.HasRole("USER", "ADMIN"),
		b.HasRole("ADMIN", "USER"))
	assert.Equal(t,
		a.HasRole("admin"),
		b.HasRole("ADMIN"))
}

func TestUser_HasRole_NilUser(t *testing.T) {
	var user *User
	assert.False(t, user.HasRole("USER"))
}

func TestTier_Rank(t *testing.T) {
	assert.Equal(t, 1, TierBasic.Rank())
	assert.Equal(t, 2, TierPro.Rank())
	assert.Equal(t, 3, TierEnterprise.Rank())
	assert.Equal(t, 0, Tier("GOLD").Rank())
}

func TestSubscription_IsActive(t *testing.T) {
	var nilSub *Subscription
	assert.False(t, nilSub.IsActive())
	assert.False(t, (&Subscription{Status: StatusPaused}).IsActive())
	assert.False(t, (&Subscription{Status: StatusExpired}).IsActive())
	assert.True(t, (&Subscription{Status: StatusActive}).IsActive())
}

func TestSubscription_Limit(t *testing.T) {
	sub := &Subscription{Tier: TierEnterprise}
	assert.Equal(t, Unlimited, sub.Limit(LimitPatents))

	sub = &Subscription{Tier: TierBasic}
	assert.Equal(t, 3, sub.Limit(LimitCompetitors))
	assert.Equal(t, 10, sub.Limit(LimitPatents))

	sub = &Subscription{Tier: Tier("GOLD")}
	assert.Equal(t, 0, sub.Limit(LimitPatents))
}

func TestAccessError_Reasons(t *testing.T) {
	subErr := NewSubscriptionRequired("patent tracking")
	tierErr := NewInsufficientTier(TierPro)
	limitErr := NewLimitExceeded(LimitCompetitors)

	assert.Equal(t, ReasonSubscriptionRequired, subErr.Reason)
	assert.Equal(t, ReasonInsufficientTier, tierErr.Reason)
	assert.Equal(t, ReasonLimitExceeded, limitErr.Reason)

	got, ok := AsAccessError(subErr)
	assert.True(t, ok)
	assert.Equal(t, subErr, got)

	_, ok = AsAccessError(ErrUnauthorized)
	assert.False(t, ok)
}
