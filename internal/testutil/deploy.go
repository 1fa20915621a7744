package testutil

import (
	"path/filepath"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/couplet-xyz/couplet/internal/access"
	"github.com/couplet-xyz/couplet/internal/asset"
	"github.com/couplet-xyz/couplet/internal/engine"
	"github.com/couplet-xyz/couplet/internal/registry"
	"github.com/couplet-xyz/couplet/internal/store"
	"github.com/couplet-xyz/couplet/internal/token"
)

// Standard fixture identities. Tests that need more actors fund them
// through Fund.
const (
	EngineAddr asset.Address = "engine"
	IssuerAddr asset.Address = "issuer"
	AdminAddr  asset.Address = "admin"
	PauserAddr asset.Address = "pauser"
	AliceAddr  asset.Address = "alice"
	BobAddr    asset.Address = "bob"

	PairedSymbol = "PAIR"
	StableSymbol = "USDS"

	StableAddr asset.Address = "usd-token"
)

// Deployment is a fully wired engine over a temporary on-disk store.
type Deployment struct {
	Store    *store.Store
	Ledger   *token.Ledger
	Registry *registry.Registry
	Stable   *token.Ledger
	ACL      *access.Controller
	Engine   *engine.Engine
	OpTokens *SequentialOpTokens
}

// NewDeployment builds a deployment with the standard identities: the
// admin holds the admin role, the pauser the pauser role, and the issuer
// is the only privileged minter on the stablecoin. The engine is NOT
// privileged on the stablecoin, so the fee moves through the allowance
// path exactly as in production.
func NewDeployment(t *testing.T) *Deployment {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "couplet.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	acl, err := access.NewController(AdminAddr)
	require.NoError(t, err)
	require.NoError(t, acl.Grant(AdminAddr, access.RolePauser, PauserAddr))

	ledger := token.New(token.Config{Symbol: PairedSymbol, Restricted: true}, EngineAddr)
	stable := token.New(token.Config{Symbol: StableSymbol, Address: StableAddr}, IssuerAddr)
	reg, err := registry.New(registry.Config{Symbol: PairedSymbol}, EngineAddr)
	require.NoError(t, err)

	gen := NewSequentialOpTokens("op")
	eng, err := engine.New(st, ledger, reg, stable, acl, gen, engine.Config{Address: EngineAddr})
	require.NoError(t, err)

	return &Deployment{
		Store:    st,
		Ledger:   ledger,
		Registry: reg,
		Stable:   stable,
		ACL:      acl,
		Engine:   eng,
		OpTokens: gen,
	}
}

// Fund mints stablecoin to addr and approves the engine for the same
// amount, the two steps every actor performs before minting a pair.
func (d *Deployment) Fund(t *testing.T, addr asset.Address, amount *uint256.Int) {
	t.Helper()
	require.NoError(t, d.Stable.Mint(IssuerAddr, addr, amount))
	require.NoError(t, d.Stable.Approve(addr, EngineAddr, amount))
}

// FundUnits is Fund with the amount given in whole 6-decimal units.
func (d *Deployment) FundUnits(t *testing.T, addr asset.Address, units uint64) {
	t.Helper()
	amt := new(uint256.Int).Mul(uint256.NewInt(units), asset.PairUnit())
	d.Fund(t, addr, amt)
}

// RestoreAll reloads every component from a store snapshot, the way the
// deployment loader does when a database is reopened.
func (d *Deployment) RestoreAll(t *testing.T, snap *store.Snapshot, maxSeq int64) {
	t.Helper()
	owners := make(map[asset.TokenID]asset.Address, len(snap.Collectibles))
	pointers := make(map[asset.TokenID]string, len(snap.Collectibles))
	for id, row := range snap.Collectibles {
		owners[id] = row.Owner
		pointers[id] = row.Pointer
	}
	require.NoError(t, d.Registry.Restore(owners, pointers, snap.NextID))
	require.NoError(t, d.Ledger.Restore(snap.Balances[PairedSymbol]))
	require.NoError(t, d.Stable.Restore(snap.Balances[StableSymbol]))
	require.NoError(t, d.Engine.Restore(snap, maxSeq))
}

// ReplayConfig returns the replay parameters matching this fixture.
func (d *Deployment) ReplayConfig() engine.ReplayConfig {
	return engine.ReplayConfig{
		PairedSymbol:  PairedSymbol,
		StableSymbol:  StableSymbol,
		StableAddress: StableAddr,
		EngineAddress: EngineAddr,
		Fee:           d.Engine.Fee(),
	}
}
