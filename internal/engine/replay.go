package engine

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/couplet-xyz/couplet/internal/asset"
	"github.com/couplet-xyz/couplet/internal/store"
)

// ReplayConfig names the deployment constants a replay needs. Events
// record amounts but not token symbols, so the mapping is supplied here.
type ReplayConfig struct {
	PairedSymbol  string
	StableSymbol  string
	StableAddress asset.Address
	EngineAddress asset.Address
	Fee           *uint256.Int
}

// ReplayState is the portion of deployment state that the event log fully
// determines. Collectible pointers and actor stablecoin funding happen
// outside the log and are deliberately absent.
type ReplayState struct {
	Pairs   map[asset.TokenID]asset.Address
	Paired  map[asset.Address]*uint256.Int
	Custody *uint256.Int
	Escrow  *uint256.Int
	Paused  bool
	NextID  uint64
	MaxSeq  int64
}

// Replay folds the full event log into a fresh ReplayState.
func Replay(ctx context.Context, st *store.Store, cfg ReplayConfig) (*ReplayState, error) {
	const op = "engine.Replay"
	if cfg.Fee == nil || cfg.Fee.IsZero() {
		return nil, asset.NewError(asset.CodeValidation, op, "fee is not set")
	}
	events, err := st.ReadEvents(ctx, store.EventFilter{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rs := &ReplayState{
		Pairs:   make(map[asset.TokenID]asset.Address),
		Paired:  make(map[asset.Address]*uint256.Int),
		Custody: new(uint256.Int),
		Escrow:  new(uint256.Int),
	}
	for _, ev := range events {
		if err := rs.fold(cfg, ev); err != nil {
			return nil, fmt.Errorf("%s: seq %d: %w", op, ev.Seq, err)
		}
		rs.MaxSeq = ev.Seq
	}
	return rs, nil
}

func (rs *ReplayState) fold(cfg ReplayConfig, ev asset.Event) error {
	switch ev.Type {
	case asset.EventPairMinted:
		id := ev.TokenID
		if _, live := rs.Pairs[id]; live {
			return fmt.Errorf("pair %d minted twice", id)
		}
		if uint64(id) < rs.NextID {
			return fmt.Errorf("pair %d reuses a retired identifier", id)
		}
		unit, err := asset.ParseAmount(ev.Amount)
		if err != nil {
			return err
		}
		rs.Pairs[id] = ev.Owner
		rs.credit(ev.Owner, unit)
		rs.Custody.Add(rs.Custody, cfg.Fee)
		rs.Escrow.Add(rs.Escrow, cfg.Fee)
		rs.NextID = uint64(id) + 1

	case asset.EventPairBurned:
		id := ev.TokenID
		owner, live := rs.Pairs[id]
		if !live {
			return fmt.Errorf("pair %d burned while not live", id)
		}
		if owner != ev.Owner {
			return fmt.Errorf("pair %d burned by %s, owned by %s", id, ev.Owner, owner)
		}
		unit, err := asset.ParseAmount(ev.Amount)
		if err != nil {
			return err
		}
		if err := rs.debit(ev.Owner, unit); err != nil {
			return err
		}
		delete(rs.Pairs, id)
		rs.Custody.Sub(rs.Custody, cfg.Fee)
		rs.Escrow.Sub(rs.Escrow, cfg.Fee)

	case asset.EventPairTransferred:
		id := ev.TokenID
		owner, live := rs.Pairs[id]
		if !live {
			return fmt.Errorf("pair %d transferred while not live", id)
		}
		if owner != ev.From {
			return fmt.Errorf("pair %d transferred by %s, owned by %s", id, ev.From, owner)
		}
		unit, err := asset.ParseAmount(ev.Amount)
		if err != nil {
			return err
		}
		if ev.From != ev.To {
			if err := rs.debit(ev.From, unit); err != nil {
				return err
			}
			rs.credit(ev.To, unit)
		}
		rs.Pairs[id] = ev.To

	case asset.EventEmergencyWithdrawal:
		if ev.Asset != cfg.StableAddress {
			// Withdrawals of other custodied tokens do not touch
			// log-determined state.
			return nil
		}
		amt, err := asset.ParseAmount(ev.Amount)
		if err != nil {
			return err
		}
		if rs.Custody.Lt(amt) {
			return fmt.Errorf("withdrawal %s exceeds custody %s", ev.Amount, asset.FormatAmount(rs.Custody))
		}
		rs.Custody.Sub(rs.Custody, amt)
		if rs.Escrow.Gt(rs.Custody) {
			rs.Escrow.Set(rs.Custody)
		}

	case asset.EventPauseChanged:
		rs.Paused = ev.Paused

	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	return nil
}

func (rs *ReplayState) credit(addr asset.Address, amount *uint256.Int) {
	bal, ok := rs.Paired[addr]
	if !ok {
		bal = new(uint256.Int)
		rs.Paired[addr] = bal
	}
	bal.Add(bal, amount)
}

func (rs *ReplayState) debit(addr asset.Address, amount *uint256.Int) error {
	bal := rs.Paired[addr]
	if bal == nil || bal.Lt(amount) {
		return fmt.Errorf("paired balance of %s below %s", addr, asset.FormatAmount(amount))
	}
	bal.Sub(bal, amount)
	return nil
}

// VerifyReplay replays the log and diffs the result against the persisted
// snapshot. A difference means the snapshot tables and the event log have
// drifted apart, which should be impossible while both are written in one
// transaction. Actor stablecoin rows include funding that predates the log
// and are not checked; the engine's own custody row is.
func VerifyReplay(ctx context.Context, st *store.Store, cfg ReplayConfig) error {
	const op = "engine.VerifyReplay"
	rs, err := Replay(ctx, st, cfg)
	if err != nil {
		return err
	}
	snap, err := st.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if len(snap.Pairs) != len(rs.Pairs) {
		return diff(op, "live pairs", fmt.Sprint(len(rs.Pairs)), fmt.Sprint(len(snap.Pairs)))
	}
	for id := range snap.Pairs {
		owner, live := rs.Pairs[id]
		if !live {
			return diff(op, fmt.Sprintf("pair %d", id), "not live", "live")
		}
		got, ok := snap.Collectibles[id]
		if !ok {
			return diff(op, fmt.Sprintf("collectible %d", id), string(owner), "missing")
		}
		if got.Owner != owner {
			return diff(op, fmt.Sprintf("owner of %d", id), string(owner), string(got.Owner))
		}
	}

	for addr, want := range rs.Paired {
		if err := compareBalance(op, snap, cfg.PairedSymbol, addr, want); err != nil {
			return err
		}
	}
	for addr := range snap.Balances[cfg.PairedSymbol] {
		if rs.Paired[addr] == nil {
			if err := compareBalance(op, snap, cfg.PairedSymbol, addr, new(uint256.Int)); err != nil {
				return err
			}
		}
	}
	if err := compareBalance(op, snap, cfg.StableSymbol, cfg.EngineAddress, rs.Custody); err != nil {
		return err
	}

	if snap.Escrow != asset.FormatAmount(rs.Escrow) {
		return diff(op, "escrow", asset.FormatAmount(rs.Escrow), snap.Escrow)
	}
	if snap.Paused != rs.Paused {
		return diff(op, "paused", fmt.Sprint(rs.Paused), fmt.Sprint(snap.Paused))
	}
	if snap.NextID != rs.NextID {
		return diff(op, "next id", fmt.Sprint(rs.NextID), fmt.Sprint(snap.NextID))
	}
	return nil
}

func compareBalance(op string, snap *store.Snapshot, symbol string, addr asset.Address, want *uint256.Int) error {
	raw, ok := snap.Balances[symbol][addr]
	if !ok {
		raw = "0"
	}
	got, err := asset.ParseAmount(raw)
	if err != nil {
		return fmt.Errorf("%s: balance %s/%s: %w", op, symbol, addr, err)
	}
	if !got.Eq(want) {
		return diff(op, fmt.Sprintf("balance %s/%s", symbol, addr), asset.FormatAmount(want), raw)
	}
	return nil
}

func diff(op, field, want, got string) error {
	return asset.NewError(asset.CodeInvariant, op,
		"replay mismatch on %s: log says %s, snapshot says %s", field, want, got)
}
