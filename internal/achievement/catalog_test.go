package achievement

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validCatalog = `
achievements:
  first_trade:
    name: First Trade
    description: Close your first trade.
    xp_reward: 50
    rule:
      kind: closed_trades
      threshold: 1
  ten_trades:
    name: Ten Trades
    xp_reward: 150
    rule:
      kind: closed_trades
      threshold: 10
  high_roller:
    name: High Roller
    xp_reward: 500
    rule:
      kind: balance_ratio
      ratio: 1.5
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "achievements.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewCatalogLoadsDefinitions(t *testing.T) {
	c, err := NewCatalog(writeCatalog(t, validCatalog))
	require.NoError(t, err)

	snap := c.Snapshot()
	require.Len(t, snap.Definitions, 3)
	assert.Equal(t, int64(1), snap.Version)

	// Sorted by id; the map key becomes the id when none is set.
	assert.Equal(t, "first_trade", snap.Definitions[0].ID)
	assert.Equal(t, "high_roller", snap.Definitions[1].ID)
	assert.Equal(t, "ten_trades", snap.Definitions[2].ID)

	assert.Equal(t, "First Trade", snap.Definitions[0].Name)
	assert.Equal(t, int64(50), snap.Definitions[0].XPReward)
	require.NotNil(t, snap.Definitions[0].predicate)
}

func TestNewCatalogRejectsInvalidFiles(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"empty achievements", "achievements: {}\n"},
		{"missing name", `
achievements:
  broken:
    xp_reward: 10
    rule:
      kind: closed_trades
      threshold: 1
`},
		{"unknown rule kind", `
achievements:
  broken:
    name: Broken
    xp_reward: 10
    rule:
      kind: moon_phase
`},
		{"negative xp", `
achievements:
  broken:
    name: Broken
    xp_reward: -5
    rule:
      kind: closed_trades
      threshold: 1
`},
		{"ratio not above one", `
achievements:
  broken:
    name: Broken
    xp_reward: 10
    rule:
      kind: balance_ratio
      ratio: 1.0
`},
		{"unknown field", `
achievements:
  broken:
    name: Broken
    xp_reward: 10
    badge_color: gold
    rule:
      kind: closed_trades
      threshold: 1
`},
		{"not yaml", "{{{{"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCatalog(writeCatalog(t, tc.content))
			assert.Error(t, err)
		})
	}
}

func TestNewCatalogMissingFile(t *testing.T) {
	_, err := NewCatalog(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	_, err = NewCatalog("  ")
	assert.Error(t, err)
}

func TestSnapshotIsACopy(t *testing.T) {
	c, err := NewCatalog(writeCatalog(t, validCatalog))
	require.NoError(t, err)

	a := c.Snapshot()
	a.Definitions[0].Name = "mutated"
	b := c.Snapshot()
	assert.Equal(t, "First Trade", b.Definitions[0].Name)
}

func TestReloadKeepsPreviousSnapshotOnBadFile(t *testing.T) {
	path := writeCatalog(t, validCatalog)
	c, err := NewCatalog(path)
	require.NoError(t, err)
	before := c.Snapshot()
	require.Len(t, before.Definitions, 3)

	// An invalid rewrite must fail the reload and leave the loaded
	// definition set untouched.
	require.NoError(t, os.WriteFile(path, []byte("achievements: {}\n"), 0o644))
	assert.Error(t, c.reload())

	after := c.Snapshot()
	assert.Equal(t, before.Version, after.Version)
	require.Len(t, after.Definitions, 3)
	assert.Equal(t, "first_trade", after.Definitions[0].ID)

	// A valid rewrite activates and bumps the version.
	require.NoError(t, os.WriteFile(path, []byte(`
achievements:
  first_trade:
    name: First Trade
    xp_reward: 75
    rule:
      kind: closed_trades
      threshold: 1
`), 0o644))
	require.NoError(t, c.reload())

	reloaded := c.Snapshot()
	assert.Equal(t, before.Version+1, reloaded.Version)
	require.Len(t, reloaded.Definitions, 1)
	assert.Equal(t, int64(75), reloaded.Definitions[0].XPReward)
	require.NotNil(t, reloaded.Definitions[0].predicate)
}

func TestCompilePredicate(t *testing.T) {
	_, err := compilePredicate(Rule{Kind: "closed_trades"})
	assert.Error(t, err)
	_, err = compilePredicate(Rule{Kind: "profitable_trades"})
	assert.Error(t, err)
	_, err = compilePredicate(Rule{Kind: "balance_ratio", Ratio: 0.5})
	assert.Error(t, err)
	_, err = compilePredicate(Rule{Kind: "nope"})
	assert.Error(t, err)

	pred, err := compilePredicate(Rule{Kind: "net_profit", MinTrades: 2})
	require.NoError(t, err)
	require.NotNil(t, pred)
}
