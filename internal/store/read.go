package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/couplet-xyz/couplet/internal/asset"
)

// EventFilter selects a slice of the event log. Zero-valued fields match
// everything; set fields are combined with AND. The filter compiles to a
// parameterized WHERE clause, never to interpolated SQL.
type EventFilter struct {
	Types    []asset.EventType
	OpToken  string
	Account  asset.Address // matches owner, from, or to
	TokenID  *asset.TokenID
	SinceSeq int64 // exclusive lower bound
	Limit    int   // 0 = no limit
}

// compile turns the filter into a WHERE fragment and its arguments.
func (f EventFilter) compile() (string, []any) {
	var clauses []string
	var args []any

	if len(f.Types) > 0 {
		placeholders := make([]string, len(f.Types))
		for i, t := range f.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		clauses = append(clauses, fmt.Sprintf("type IN (%s)", strings.Join(placeholders, ", ")))
	}
	if f.OpToken != "" {
		clauses = append(clauses, "op_token = ?")
		args = append(args, f.OpToken)
	}
	if f.Account != asset.ZeroAddress {
		clauses = append(clauses, "(owner = ? OR from_addr = ? OR to_addr = ?)")
		args = append(args, string(f.Account), string(f.Account), string(f.Account))
	}
	if f.TokenID != nil {
		clauses = append(clauses, "token_id = ?")
		args = append(args, int64(*f.TokenID))
	}
	if f.SinceSeq > 0 {
		clauses = append(clauses, "seq > ?")
		args = append(args, f.SinceSeq)
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}
	return where, args
}

// ReadEvents returns matching events in seq order. Ordering is total and
// deterministic: seq is the primary key and the engine's logical clock.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ReadEvents(ctx context.Context, f EventFilter) ([]asset.Event, error) {
	where, args := f.compile()
	query := `
		SELECT seq, op_token, type, owner, from_addr, to_addr, token_id, amount, asset, paused
		FROM events` + where + `
		ORDER BY seq ASC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []asset.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func scanEvent(rows *sql.Rows) (asset.Event, error) {
	var (
		ev      asset.Event
		typ     string
		owner   string
		from    string
		to      string
		tokenID sql.NullInt64
		assetA  string
		paused  int
	)
	if err := rows.Scan(&ev.Seq, &ev.OpToken, &typ, &owner, &from, &to, &tokenID, &ev.Amount, &assetA, &paused); err != nil {
		return asset.Event{}, fmt.Errorf("scan event: %w", err)
	}
	ev.Type = asset.EventType(typ)
	ev.Owner = asset.Address(owner)
	ev.From = asset.Address(from)
	ev.To = asset.Address(to)
	if tokenID.Valid {
		ev.TokenID = asset.TokenID(tokenID.Int64)
	}
	ev.Asset = asset.Address(assetA)
	ev.Paused = paused != 0
	return ev, nil
}

// MaxSeq returns the highest event sequence number, or 0 for an empty log.
// The engine resumes its logical clock from this value on reopen.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return seq.Int64, nil
}

// LoadSnapshot reads the full persisted state of the deployment.
func (s *Store) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		Pairs:        make(map[asset.TokenID]bool),
		Collectibles: make(map[asset.TokenID]CollectibleRow),
		Balances:     make(map[string]map[asset.Address]string),
		Escrow:       "0",
	}

	rows, err := s.db.QueryContext(ctx, `SELECT token_id FROM pairs`)
	if err != nil {
		return nil, fmt.Errorf("load pairs: %w", err)
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan pair: %w", err)
		}
		snap.Pairs[asset.TokenID(id)] = true
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("load pairs: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT token_id, owner, pointer FROM collectibles`)
	if err != nil {
		return nil, fmt.Errorf("load collectibles: %w", err)
	}
	for rows.Next() {
		var (
			id      int64
			owner   string
			pointer string
		)
		if err := rows.Scan(&id, &owner, &pointer); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan collectible: %w", err)
		}
		snap.Collectibles[asset.TokenID(id)] = CollectibleRow{
			ID:      asset.TokenID(id),
			Owner:   asset.Address(owner),
			Pointer: pointer,
		}
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("load collectibles: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT token, account, amount FROM balances`)
	if err != nil {
		return nil, fmt.Errorf("load balances: %w", err)
	}
	for rows.Next() {
		var tok, account, amount string
		if err := rows.Scan(&tok, &account, &amount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		if snap.Balances[tok] == nil {
			snap.Balances[tok] = make(map[asset.Address]string)
		}
		snap.Balances[tok][asset.Address(account)] = amount
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("load balances: %w", err)
	}

	meta, err := s.readMeta(ctx)
	if err != nil {
		return nil, err
	}
	if v, ok := meta[metaNextID]; ok {
		if _, err := fmt.Sscanf(v, "%d", &snap.NextID); err != nil {
			return nil, fmt.Errorf("parse next_id %q: %w", v, err)
		}
	}
	if v, ok := meta[metaEscrow]; ok {
		snap.Escrow = v
	}
	if v, ok := meta[metaPaused]; ok {
		snap.Paused = v == "1"
	}

	return snap, nil
}

func (s *Store) readMeta(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}
	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan meta: %w", err)
		}
		meta[k] = v
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}
	return meta, nil
}

// closeRows closes rows and surfaces any deferred iteration error.
func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}
