package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orangehats/orangehats/internal/models"
)

func auditorApplication() AuditorApplicationInput {
	return AuditorApplicationInput{
		Email:           "amy@example.com",
		Name:            "Amy",
		GithubURL:       "https://github.com/amy",
		PreviousAudits:  []string{"https://example.com/audit-1"},
		YearsInClarity:  2,
		YearsInSecurity: 5,
	}
}

func TestSubmitApplicationNotifies(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	a, err := env.apps.SubmitAuditor(ctx, auditorApplication())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, a.Status)

	require.Len(t, env.notifier.subs, 1)
	assert.Equal(t, Submission{Kind: models.KindAuditor, ID: a.ID, Name: "Amy", Email: "amy@example.com"}, env.notifier.subs[0])
}

func TestSubmitApplicationSurvivesNotifierFailure(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.notifier.err = errors.New("smtp down")

	g, err := env.apps.SubmitGrant(ctx, GrantApplicationInput{
		Name:                "sBTC tooling",
		Email:               "team@example.com",
		CommunityImpact:     "More audited contracts",
		SecurityImprovement: "Fuzzing",
		RequestedAmount:     2500.5,
		TimeLineProposal:    "Q3",
		TeamSize:            3,
	})
	require.NoError(t, err)

	items, err := env.apps.List(ctx, models.KindGrant, "")
	require.NoError(t, err)
	grants := items.([]models.GrantApplication)
	require.Len(t, grants, 1)
	assert.Equal(t, g.ID, grants[0].ID)
	assert.InDelta(t, 2500.5, grants[0].RequestedAmount, 0.001)
}

func TestSubmitApplicationValidation(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	in := auditorApplication()
	in.Email = "not-an-email"
	in.YearsInSecurity = -1
	_, err := env.apps.SubmitAuditor(ctx, in)
	require.ErrorIs(t, err, ErrInvalidInput)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "yearsInSecurity")

	_, err = env.apps.SubmitAudit(ctx, AuditApplicationInput{Email: "a@example.com", Name: "A", Team: "T"})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, env.notifier.subs)
}

func TestApplicationStatus(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	a, err := env.apps.SubmitAudit(ctx, AuditApplicationInput{
		Email:     "team@example.com",
		Name:      "Bridge",
		Team:      "Bridge Co",
		GithubURL: "https://github.com/bridge",
	})
	require.NoError(t, err)

	require.NoError(t, env.apps.UpdateStatus(ctx, models.KindAudit, a.ID, models.StatusApproved))

	items, err := env.apps.List(ctx, models.KindAudit, models.StatusApproved)
	require.NoError(t, err)
	assert.Len(t, items.([]models.AuditApplication), 1)

	items, err = env.apps.List(ctx, models.KindAudit, models.StatusPending)
	require.NoError(t, err)
	assert.Empty(t, items.([]models.AuditApplication))

	assert.ErrorIs(t, env.apps.UpdateStatus(ctx, models.KindAudit, "missing", models.StatusRejected), ErrNotFound)
	assert.ErrorIs(t, env.apps.UpdateStatus(ctx, models.KindAudit, a.ID, "archived"), ErrInvalidInput)
	assert.ErrorIs(t, env.apps.UpdateStatus(ctx, "bounty", a.ID, models.StatusRejected), ErrInvalidInput)

	_, err = env.apps.List(ctx, models.KindAuditor, "archived")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
