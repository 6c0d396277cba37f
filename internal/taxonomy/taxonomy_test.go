package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategories(t *testing.T) {
	got := Categories()
	assert.Len(t, got, 7)
	assert.Equal(t, Overview, got[0])
	assert.Equal(t, Other, got[len(got)-1])

	// Callers get a copy.
	got[0] = "mutated"
	assert.Equal(t, Overview, Categories()[0])
}

func TestCoerceCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
	}{
		{"procedure", Procedure},
		{"other", Other},
		{"Procedure", Fallback},
		{" procedure", Fallback},
		{"bogus", Fallback},
		{"", Fallback},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CoerceCategory(tt.in))
		})
	}
}

func TestIsOverride(t *testing.T) {
	assert.True(t, IsOverride("Tax Rules"))
	assert.True(t, IsOverride("Deductions & Credits"))
	assert.False(t, IsOverride("tax rules"))
	assert.False(t, IsOverride("procedure"), "AI taxonomy values are not override values")
	assert.False(t, IsOverride(""))
}

func TestTaxonomiesAreDistinct(t *testing.T) {
	assert.True(t, IsCategory("other"))
	assert.False(t, IsOverride("other"))
	assert.True(t, IsOverride("Other"))
	assert.False(t, IsCategory("Other"))
}
