package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/couplet-xyz/couplet/internal/asset"
)

// Commit atomically appends the events of one operation and applies its
// snapshot delta. Either everything lands or nothing does: the caller relies
// on this to keep the in-memory state, the log, and the snapshot in step.
//
// Events are validated before the transaction opens (fail-fast, nothing
// written on a malformed event). Event seq values come from the engine's
// logical clock; the PRIMARY KEY on seq rejects a duplicate, which would
// indicate a clock that was not resumed from MaxSeq.
func (s *Store) Commit(ctx context.Context, events []asset.Event, delta Delta) error {
	for i, ev := range events {
		if err := ev.Validate(); err != nil {
			return fmt.Errorf("commit: event[%d]: %w", i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, ev := range events {
		if err := writeEvent(ctx, tx, ev); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}

	if err := applyDelta(ctx, tx, delta); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// SeedBalance records a balance that changed outside the event log, such as
// stablecoin funding minted by the issuer before any pair operation. The
// amount is absolute, so reseeding is idempotent.
func (s *Store) SeedBalance(ctx context.Context, row BalanceRow) error {
	if _, err := asset.ParseAmount(row.Amount); err != nil {
		return fmt.Errorf("seed balance: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO balances (token, account, amount)
		VALUES (?, ?, ?)
		ON CONFLICT(token, account) DO UPDATE SET amount = excluded.amount
	`, row.Token, string(row.Account), row.Amount); err != nil {
		return fmt.Errorf("seed balance %s/%s: %w", row.Token, row.Account, err)
	}
	return nil
}

// writeEvent inserts one event row inside the commit transaction.
func writeEvent(ctx context.Context, tx *sql.Tx, ev asset.Event) error {
	// token_id is NULL for non-pair events so that id 0 stays
	// distinguishable from "no identifier".
	var tokenID any
	switch ev.Type {
	case asset.EventPairMinted, asset.EventPairBurned, asset.EventPairTransferred:
		tokenID = int64(ev.TokenID)
	default:
		tokenID = nil
	}

	paused := 0
	if ev.Paused {
		paused = 1
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO events
		(seq, op_token, type, owner, from_addr, to_addr, token_id, amount, asset, paused)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ev.Seq,
		ev.OpToken,
		string(ev.Type),
		string(ev.Owner),
		string(ev.From),
		string(ev.To),
		tokenID,
		ev.Amount,
		string(ev.Asset),
		paused,
	)
	if err != nil {
		return fmt.Errorf("write event seq %d: %w", ev.Seq, err)
	}
	return nil
}

// applyDelta upserts snapshot rows inside the commit transaction.
func applyDelta(ctx context.Context, tx *sql.Tx, delta Delta) error {
	for _, id := range delta.PairsPut {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO pairs (token_id) VALUES (?)
			ON CONFLICT(token_id) DO NOTHING
		`, int64(id)); err != nil {
			return fmt.Errorf("put pair %d: %w", id, err)
		}
	}

	for _, id := range delta.PairsDel {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM pairs WHERE token_id = ?
		`, int64(id)); err != nil {
			return fmt.Errorf("delete pair %d: %w", id, err)
		}
	}

	for _, c := range delta.Collectibles {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO collectibles (token_id, owner, pointer)
			VALUES (?, ?, ?)
			ON CONFLICT(token_id) DO UPDATE SET owner = excluded.owner, pointer = excluded.pointer
		`, int64(c.ID), string(c.Owner), c.Pointer); err != nil {
			return fmt.Errorf("upsert collectible %d: %w", c.ID, err)
		}
	}

	for _, id := range delta.CollectiblesDel {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM collectibles WHERE token_id = ?
		`, int64(id)); err != nil {
			return fmt.Errorf("delete collectible %d: %w", id, err)
		}
	}

	for _, b := range delta.Balances {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO balances (token, account, amount)
			VALUES (?, ?, ?)
			ON CONFLICT(token, account) DO UPDATE SET amount = excluded.amount
		`, b.Token, string(b.Account), b.Amount); err != nil {
			return fmt.Errorf("upsert balance %s/%s: %w", b.Token, b.Account, err)
		}
	}

	if delta.NextID != nil {
		if err := putMeta(ctx, tx, metaNextID, fmt.Sprintf("%d", *delta.NextID)); err != nil {
			return err
		}
	}
	if delta.Escrow != "" {
		if err := putMeta(ctx, tx, metaEscrow, delta.Escrow); err != nil {
			return err
		}
	}
	if delta.Paused != nil {
		v := "0"
		if *delta.Paused {
			v = "1"
		}
		if err := putMeta(ctx, tx, metaPaused, v); err != nil {
			return err
		}
	}

	return nil
}

func putMeta(ctx context.Context, tx *sql.Tx, key, value string) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value); err != nil {
		return fmt.Errorf("put meta %s: %w", key, err)
	}
	return nil
}
