package runbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triage-autopilot/autopilot/pkg/domain"
)

func TestLoadCatalog(t *testing.T) {
	cat, err := LoadCatalog()
	require.NoError(t, err)
	assert.Len(t, cat.List(), 6)
}

func TestMatch_TypeMatchWinsPrimary(t *testing.T) {
	cat, err := LoadCatalog()
	require.NoError(t, err)

	primary, alternatives := cat.Match(domain.CategoryDatabase, "Database connection pool exhausted", "slow query detected")
	assert.Equal(t, domain.CategoryDatabase, primary.Entry.Category)
	assert.GreaterOrEqual(t, primary.Score, 0.6)
	for _, alt := range alternatives {
		assert.Greater(t, alt.Score, 0.1)
	}
	assert.LessOrEqual(t, len(alternatives), 3)
}

func TestMatch_NoSignalStillReturnsPrimary(t *testing.T) {
	cat, err := LoadCatalog()
	require.NoError(t, err)

	primary, _ := cat.Match(domain.CategoryUnknown, "", "")
	assert.Equal(t, 0.0, primary.Score)
}
