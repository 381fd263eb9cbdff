package guard

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipwatch/ip-monitor-client/internal/models"
)

// SubsStub — управляемое состояние подписки для тестов.
type SubsStub struct {
	active bool
	tier   models.Tier
	used   int
}

func (s *SubsStub) IsActive() bool { return s.active }

func (s *SubsStub) HasTierAccess(required models.Tier) bool {
	return s.active && required.Rank() > 0 && s.tier.Rank() >= required.Rank()
}

func (s *SubsStub) CheckLimitExceeded(kind models.LimitKind, additional int) bool {
	if !s.active {
		return true
	}
	limit := models.TierLimits[s.tier][kind]
	if limit == models.Unlimited {
		return false
	}
	return s.used+additional > limit
}

func (s *SubsStub) RequireSubscription(feature string) error {
	if s.active {
		return nil
	}
	return models.NewSubscriptionRequired(feature)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestGuard_Do_AllowedRunsAction(t *testing.T) {
	g := New(&SubsStub{active: true, tier: models.TierPro}, newNoopLogger())

	ran := false
	executed, err := g.Do(Options{Feature: "patent tracking"}, func() error {
		ran = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, executed)
	assert.True(t, ran)
	assert.Nil(t, g.LastPrompt())
}

func TestGuard_Do_ActionErrorPropagates(t *testing.T) {
	g := New(&SubsStub{active: true, tier: models.TierPro}, newNoopLogger())
	wantErr := errors.New("backend rejected")

	executed, err := g.Do(Options{}, func() error { return wantErr })

	assert.True(t, executed)
	assert.ErrorIs(t, err, wantErr)
}

func TestGuard_Do_NoSubscriptionBlocks(t *testing.T) {
	g := New(&SubsStub{}, newNoopLogger())

	ran := false
	executed, err := g.Do(Options{Feature: "competitor monitoring"}, func() error {
		ran = true
		return nil
	})

	assert.NoError(t, err)
	assert.False(t, executed)
	assert.False(t, ran)

	prompt := g.LastPrompt()
	require.NotNil(t, prompt)
	assert.Equal(t, models.ReasonSubscriptionRequired, prompt.Reason)
	assert.True(t, prompt.Upgrade)
	assert.Contains(t, prompt.Message, "competitor monitoring")
}

func TestGuard_Do_InsufficientTierBlocks(t *testing.T) {
	g := New(&SubsStub{active: true, tier: models.TierBasic}, newNoopLogger())

	executed, err := g.Do(Options{Tier: models.TierEnterprise}, func() error { return nil })

	assert.NoError(t, err)
	assert.False(t, executed)

	prompt := g.LastPrompt()
	require.NotNil(t, prompt)
	assert.Equal(t, models.ReasonInsufficientTier, prompt.Reason)
}

func TestGuard_Do_LimitExceededBlocks(t *testing.T) {
	g := New(&SubsStub{active: true, tier: models.TierBasic, used: 10}, newNoopLogger())

	executed, err := g.Do(Options{Limit: models.LimitPatents, Additional: 1}, func() error { return nil })

	assert.NoError(t, err)
	assert.False(t, executed)

	prompt := g.LastPrompt()
	require.NotNil(t, prompt)
	assert.Equal(t, models.ReasonLimitExceeded, prompt.Reason)
}

func TestGuard_Do_UnlimitedTierNeverExceeds(t *testing.T) {
	g := New(&SubsStub{active: true, tier: models.TierEnterprise, used: 100000}, newNoopLogger())

	executed, err := g.Do(Options{Limit: models.LimitPatents, Additional: 1}, func() error { return nil })

	require.NoError(t, err)
	assert.True(t, executed)
}

func TestGuard_IsAllowed(t *testing.T) {
	tests := []struct {
		name string
		subs *SubsStub
		opts Options
		want bool
	}{
		{
			name: "no subscription",
			subs: &SubsStub{},
			opts: Options{},
			want: false,
		},
		{
			name: "active without tier requirement",
			subs: &SubsStub{active: true, tier: models.TierBasic},
			opts: Options{Feature: "patent search"},
			want: true,
		},
		{
			name: "tier satisfied",
			subs: &SubsStub{active: true, tier: models.TierPro},
			opts: Options{Tier: models.TierPro},
			want: true,
		},
		{
			name: "tier not satisfied",
			subs: &SubsStub{active: true, tier: models.TierBasic},
			opts: Options{Tier: models.TierPro},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(tt.subs, newNoopLogger())
			assert.Equal(t, tt.want, g.IsAllowed(tt.opts))
			// IsAllowed не оставляет подсказку
			assert.Nil(t, g.LastPrompt())
		})
	}
}

func TestGuard_ClearPrompt(t *testing.T) {
	g := New(&SubsStub{}, newNoopLogger())

	executed, _ := g.Do(Options{Feature: "alerts"}, func() error { return nil })
	require.False(t, executed)
	require.NotNil(t, g.LastPrompt())

	g.ClearPrompt()
	assert.Nil(t, g.LastPrompt())
}
