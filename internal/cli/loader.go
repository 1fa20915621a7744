package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/couplet-xyz/couplet/internal/access"
	"github.com/couplet-xyz/couplet/internal/asset"
	"github.com/couplet-xyz/couplet/internal/engine"
	"github.com/couplet-xyz/couplet/internal/manifest"
	"github.com/couplet-xyz/couplet/internal/registry"
	"github.com/couplet-xyz/couplet/internal/store"
	"github.com/couplet-xyz/couplet/internal/token"
)

// deployFlags are the flags shared by every command that operates on a
// deployment: where the manifest lives and where the database lives.
type deployFlags struct {
	Manifest string
	Database string
}

func addDeployFlags(cmd *cobra.Command, f *deployFlags) {
	cmd.Flags().StringVar(&f.Manifest, "manifest", "", "path to deployment manifest (required)")
	_ = cmd.MarkFlagRequired("manifest")
	cmd.Flags().StringVar(&f.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
}

// Deployment is a fully wired couplet deployment: the store, both token
// ledgers, the collectible registry, access control, and the engine, all
// assembled from a manifest and restored from the database snapshot.
type Deployment struct {
	Manifest *manifest.Manifest
	Store    *store.Store
	Ledger   *token.Ledger
	Stable   *token.Ledger
	Registry *registry.Registry
	ACL      *access.Controller
	Engine   *engine.Engine
}

// OpenDeployment loads the manifest, opens the database, wires every
// component, and restores persisted state so the next operation resumes
// exactly where the log left off.
func OpenDeployment(ctx context.Context, manifestPath, dbPath string, verbose bool, errWriter io.Writer) (*Deployment, error) {
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load manifest", err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	d, err := assemble(m, st, verbose, errWriter)
	if err != nil {
		st.Close()
		return nil, err
	}

	if err := d.restore(ctx); err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to restore deployment state", err)
	}
	return d, nil
}

// assemble wires the components described by the manifest around an open
// store. State restoration is a separate step.
func assemble(m *manifest.Manifest, st *store.Store, verbose bool, errWriter io.Writer) (*Deployment, error) {
	engineAddr := asset.Address(m.Engine)
	issuerAddr := asset.Address(m.Stable.Issuer)

	admins := make([]asset.Address, len(m.Roles.Admins))
	for i, a := range m.Roles.Admins {
		admins[i] = asset.Address(a)
	}
	acl, err := access.NewController(admins...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to build access controller", err)
	}
	for _, p := range m.Roles.Pausers {
		if err := acl.Grant(admins[0], access.RolePauser, asset.Address(p)); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to grant pauser role", err)
		}
	}

	ledger := token.New(token.Config{
		Symbol:     m.Paired.Symbol,
		Restricted: true,
	}, engineAddr)

	stable := token.New(token.Config{
		Symbol:  m.Stable.Symbol,
		Address: asset.Address(m.Stable.Address),
	}, issuerAddr)

	reg, err := registry.New(registry.Config{
		Symbol:      m.Paired.Symbol,
		BasePointer: m.Registry.BasePointer,
	}, engineAddr)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to build registry", err)
	}

	fee, err := asset.ParseAmount(m.Fee)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid manifest fee", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if verbose {
		w := errWriter
		if w == nil {
			w = os.Stderr
		}
		logger = slog.New(slog.NewTextHandler(w, nil))
	}

	eng, err := engine.New(st, ledger, reg, stable, acl, engine.UUIDv7Generator{}, engine.Config{
		Address: engineAddr,
		Fee:     fee,
		Logger:  logger,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to build engine", err)
	}

	return &Deployment{
		Manifest: m,
		Store:    st,
		Ledger:   ledger,
		Stable:   stable,
		Registry: reg,
		ACL:      acl,
		Engine:   eng,
	}, nil
}

// restore reloads every component from the persisted snapshot and resumes
// the sequence clock after the last committed event.
func (d *Deployment) restore(ctx context.Context) error {
	snap, err := d.Store.LoadSnapshot(ctx)
	if err != nil {
		return err
	}
	maxSeq, err := d.Store.MaxSeq(ctx)
	if err != nil {
		return err
	}

	owners := make(map[asset.TokenID]asset.Address, len(snap.Collectibles))
	pointers := make(map[asset.TokenID]string, len(snap.Collectibles))
	for id, row := range snap.Collectibles {
		owners[id] = row.Owner
		pointers[id] = row.Pointer
	}
	if err := d.Registry.Restore(owners, pointers, snap.NextID); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	if err := d.Ledger.Restore(snap.Balances[d.Manifest.Paired.Symbol]); err != nil {
		return fmt.Errorf("paired ledger: %w", err)
	}
	if err := d.Stable.Restore(snap.Balances[d.Manifest.Stable.Symbol]); err != nil {
		return fmt.Errorf("stable ledger: %w", err)
	}
	if err := d.Engine.Restore(snap, maxSeq); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}

// Close releases the underlying database.
func (d *Deployment) Close() error {
	return d.Store.Close()
}

// ReplayConfig returns the replay parameters for this deployment.
func (d *Deployment) ReplayConfig() engine.ReplayConfig {
	return replayConfig(d.Manifest, d.Engine.Fee())
}

func replayConfig(m *manifest.Manifest, fee *uint256.Int) engine.ReplayConfig {
	return engine.ReplayConfig{
		PairedSymbol:  m.Paired.Symbol,
		StableSymbol:  m.Stable.Symbol,
		StableAddress: asset.Address(m.Stable.Address),
		EngineAddress: asset.Address(m.Engine),
		Fee:           fee,
	}
}
