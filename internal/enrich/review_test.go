package enrich_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/notebook/internal/domain"
	"github.com/pbaille/notebook/internal/enrich"
	"github.com/pbaille/notebook/internal/taxonomy"
)

func TestReviewLifecycle(t *testing.T) {
	st := newStore(t)
	inv := &recordingInvalidator{}
	svc := newService(st, &fakeGateway{}, enrich.WithInvalidator(inv))
	id := create(t, st, "Foo", "bar")
	ctx := context.Background()

	e, err := svc.MarkCategoryReviewed(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewReviewed, e.Review.Status)

	e, err = svc.SetCategoryOverride(ctx, id, "Tax Rules", "AI wrong")
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewOverridden, e.Review.Status)
	assert.Equal(t, taxonomy.Override("Tax Rules"), e.Review.Override)
	assert.Equal(t, "AI wrong", e.Review.OverrideReason)
	require.NotNil(t, e.Review.OverriddenAt)
	assert.True(t, fixedNow.Equal(*e.Review.OverriddenAt))

	_, err = svc.MarkCategoryReviewed(ctx, id)
	assert.ErrorIs(t, err, enrich.ErrOverrideActive)
	e, err = st.GetEntry(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewOverridden, e.Review.Status, "rejected review writes nothing")

	e, err = svc.SetCategoryOverride(ctx, id, "Income", "")
	require.NoError(t, err)
	assert.Equal(t, taxonomy.Override("Income"), e.Review.Override)
	assert.Empty(t, e.Review.OverrideReason)

	e, err = svc.ClearCategoryOverride(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewAuto, e.Review.Status)
	assert.Empty(t, e.Review.Override)
	assert.Empty(t, e.Review.OverrideReason)
	assert.Nil(t, e.Review.OverriddenAt)

	assert.Equal(t, []int64{id, id, id, id}, inv.changed)
}

func TestSetCategoryOverrideRejectsUnknownLabels(t *testing.T) {
	st := newStore(t)
	svc := newService(st, &fakeGateway{})
	id := create(t, st, "Foo", "bar")
	ctx := context.Background()

	for _, label := range []string{"", "tax rules", "procedure", "Tax Rules "} {
		t.Run(label, func(t *testing.T) {
			_, err := svc.SetCategoryOverride(ctx, id, label, "x")
			assert.ErrorIs(t, err, enrich.ErrInvalidOverride)
		})
	}

	e, err := st.GetEntry(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewAuto, e.Review.Status)
	assert.False(t, e.Review.HasOverride())
}

func TestOverrideRoundTripRestoresAIEffectiveCategory(t *testing.T) {
	st := newStore(t)
	svc := newService(st, &fakeGateway{reply: `{"category":"calculation","confidence":0.6}`})
	id := create(t, st, "Foo", "bar")
	ctx := context.Background()

	_, err := svc.GenerateCategory(ctx, id, false)
	require.NoError(t, err)

	e, err := svc.SetCategoryOverride(ctx, id, "Deductions & Credits", "")
	require.NoError(t, err)
	assert.Equal(t, "Deductions & Credits", e.EffectiveCategory())

	e, err = svc.ClearCategoryOverride(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "calculation", e.EffectiveCategory())
	assert.Equal(t, taxonomy.Calculation, e.Category.Category, "AI category untouched by review")
}
