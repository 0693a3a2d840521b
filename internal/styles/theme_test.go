package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lumen/internal/models"
)

func TestAffordanceColor(t *testing.T) {
	assert.Equal(t, affordanceColors[models.AffordanceSearch], AffordanceColor(models.AffordanceSearch))
	assert.Equal(t, CurrentTheme.Primary, AffordanceColor("unknown"))

	seen := map[string]bool{}
	for _, tag := range []string{
		models.AffordanceVision, models.AffordanceReasoning, models.AffordanceSearch,
		models.AffordanceMaps, models.AffordanceCustom, models.AffordanceFast,
	} {
		c := string(AffordanceColor(tag))
		assert.False(t, seen[c], "affordance %s shares a color", tag)
		seen[c] = true
	}
}
