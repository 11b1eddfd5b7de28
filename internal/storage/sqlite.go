// Package storage provides the account directory, token ledger and event log
// behind the game engine: a SQLite store for real deployments and an
// in-memory store for scenario replays and tests.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/HouseOfHufflepuff/kill/internal/address"
	"github.com/HouseOfHufflepuff/kill/internal/game"
)

// Store manages the SQLite database connection.
type Store struct {
	ops
	db *sql.DB
}

var _ game.Store = (*Store)(nil)

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	// Create parent directories
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	// Open database
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}
	// One connection keeps transactions serialized and pragmas in effect.
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}
	store.ops = ops{r: store}

	// Run migrations
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;

		CREATE TABLE IF NOT EXISTS accounts (
			address BLOB PRIMARY KEY,
			namespace TEXT NOT NULL,
			data BLOB NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_accounts_namespace ON accounts(namespace, address);

		CREATE TABLE IF NOT EXISTS mints (
			address BLOB PRIMARY KEY,
			authority BLOB NOT NULL,
			decimals INTEGER NOT NULL,
			supply INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS token_accounts (
			address BLOB PRIMARY KEY,
			mint BLOB NOT NULL,
			owner BLOB NOT NULL,
			amount INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_token_accounts_owner ON token_accounts(owner);

		CREATE TABLE IF NOT EXISTS events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			slot INTEGER NOT NULL,
			kind TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// run executes fn inside a database transaction. Read-only runs are always
// rolled back.
func (s *Store) run(ctx context.Context, write bool, fn func(*Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: cannot begin transaction: %w", err)
	}

	if err := fn(&Tx{r: sqlRows{tx: sqlTx}}); err != nil {
		sqlTx.Rollback()
		return err
	}
	if !write {
		return sqlTx.Rollback()
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("storage: cannot commit: %w", err)
	}
	return nil
}

// sqlRows implements rows over an open transaction.
type sqlRows struct {
	tx *sql.Tx
}

func scanAddress(dst *address.Address, b []byte) error {
	if len(b) != address.Size {
		return fmt.Errorf("storage: stored address is %d bytes", len(b))
	}
	copy(dst[:], b)
	return nil
}

func toInt64(v uint64) (int64, error) {
	if v > MaxAmount {
		return 0, game.ErrOverflow
	}
	return int64(v), nil
}

func (r sqlRows) loadAccount(ctx context.Context, addr address.Address) ([]byte, bool, error) {
	var data []byte
	err := r.tx.QueryRowContext(ctx, "SELECT data FROM accounts WHERE address = ?", addr[:]).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage: cannot load account: %w", err)
	}
	return data, true, nil
}

func (r sqlRows) insertAccount(ctx context.Context, addr address.Address, namespace string, data []byte) (bool, error) {
	res, err := r.tx.ExecContext(ctx,
		"INSERT INTO accounts (address, namespace, data) VALUES (?, ?, ?) ON CONFLICT(address) DO NOTHING",
		addr[:], namespace, data,
	)
	if err != nil {
		return false, fmt.Errorf("storage: cannot create account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storage: cannot get affected rows: %w", err)
	}
	return n == 1, nil
}

func (r sqlRows) updateAccount(ctx context.Context, addr address.Address, data []byte) (bool, error) {
	res, err := r.tx.ExecContext(ctx, "UPDATE accounts SET data = ? WHERE address = ?", data, addr[:])
	if err != nil {
		return false, fmt.Errorf("storage: cannot save account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storage: cannot get affected rows: %w", err)
	}
	return n == 1, nil
}

func (r sqlRows) scanAccounts(ctx context.Context, namespace string, fn func(address.Address, []byte) error) error {
	rs, err := r.tx.QueryContext(ctx,
		"SELECT address, data FROM accounts WHERE namespace = ? ORDER BY address",
		namespace,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot query accounts: %w", err)
	}

	type entry struct {
		addr address.Address
		data []byte
	}
	var entries []entry
	for rs.Next() {
		var e entry
		var raw []byte
		if err := rs.Scan(&raw, &e.data); err != nil {
			rs.Close()
			return fmt.Errorf("storage: cannot scan row: %w", err)
		}
		if err := scanAddress(&e.addr, raw); err != nil {
			rs.Close()
			return err
		}
		entries = append(entries, e)
	}
	if err := rs.Err(); err != nil {
		rs.Close()
		return fmt.Errorf("storage: row iteration error: %w", err)
	}
	rs.Close()

	for _, e := range entries {
		if err := fn(e.addr, e.data); err != nil {
			return err
		}
	}
	return nil
}

func (r sqlRows) loadMint(ctx context.Context, addr address.Address) (Mint, bool, error) {
	var m Mint
	var authority []byte
	var supply int64
	err := r.tx.QueryRowContext(ctx,
		"SELECT authority, decimals, supply FROM mints WHERE address = ?", addr[:],
	).Scan(&authority, &m.Decimals, &supply)
	if errors.Is(err, sql.ErrNoRows) {
		return Mint{}, false, nil
	}
	if err != nil {
		return Mint{}, false, fmt.Errorf("storage: cannot load mint: %w", err)
	}
	m.Address = addr
	m.Supply = uint64(supply)
	if err := scanAddress(&m.Authority, authority); err != nil {
		return Mint{}, false, err
	}
	return m, true, nil
}

func (r sqlRows) insertMint(ctx context.Context, m Mint) (bool, error) {
	supply, err := toInt64(m.Supply)
	if err != nil {
		return false, err
	}
	res, err := r.tx.ExecContext(ctx,
		"INSERT INTO mints (address, authority, decimals, supply) VALUES (?, ?, ?, ?) ON CONFLICT(address) DO NOTHING",
		m.Address[:], m.Authority[:], m.Decimals, supply,
	)
	if err != nil {
		return false, fmt.Errorf("storage: cannot create mint: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storage: cannot get affected rows: %w", err)
	}
	return n == 1, nil
}

func (r sqlRows) updateMint(ctx context.Context, m Mint) error {
	supply, err := toInt64(m.Supply)
	if err != nil {
		return err
	}
	if _, err := r.tx.ExecContext(ctx, "UPDATE mints SET supply = ? WHERE address = ?", supply, m.Address[:]); err != nil {
		return fmt.Errorf("storage: cannot update mint: %w", err)
	}
	return nil
}

func (r sqlRows) loadToken(ctx context.Context, addr address.Address) (TokenAccount, bool, error) {
	var ta TokenAccount
	var mint, owner []byte
	var amount int64
	err := r.tx.QueryRowContext(ctx,
		"SELECT mint, owner, amount FROM token_accounts WHERE address = ?", addr[:],
	).Scan(&mint, &owner, &amount)
	if errors.Is(err, sql.ErrNoRows) {
		return TokenAccount{}, false, nil
	}
	if err != nil {
		return TokenAccount{}, false, fmt.Errorf("storage: cannot load token account: %w", err)
	}
	ta.Address = addr
	ta.Amount = uint64(amount)
	if err := scanAddress(&ta.Mint, mint); err != nil {
		return TokenAccount{}, false, err
	}
	if err := scanAddress(&ta.Owner, owner); err != nil {
		return TokenAccount{}, false, err
	}
	return ta, true, nil
}

func (r sqlRows) insertToken(ctx context.Context, ta TokenAccount) (bool, error) {
	amount, err := toInt64(ta.Amount)
	if err != nil {
		return false, err
	}
	res, err := r.tx.ExecContext(ctx,
		"INSERT INTO token_accounts (address, mint, owner, amount) VALUES (?, ?, ?, ?) ON CONFLICT(address) DO NOTHING",
		ta.Address[:], ta.Mint[:], ta.Owner[:], amount,
	)
	if err != nil {
		return false, fmt.Errorf("storage: cannot create token account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storage: cannot get affected rows: %w", err)
	}
	return n == 1, nil
}

func (r sqlRows) updateToken(ctx context.Context, ta TokenAccount) error {
	amount, err := toInt64(ta.Amount)
	if err != nil {
		return err
	}
	if _, err := r.tx.ExecContext(ctx, "UPDATE token_accounts SET amount = ? WHERE address = ?", amount, ta.Address[:]); err != nil {
		return fmt.Errorf("storage: cannot update token account: %w", err)
	}
	return nil
}

func (r sqlRows) listTokens(ctx context.Context, fn func(TokenAccount) error) error {
	rs, err := r.tx.QueryContext(ctx, "SELECT address, mint, owner, amount FROM token_accounts ORDER BY address")
	if err != nil {
		return fmt.Errorf("storage: cannot query token accounts: %w", err)
	}

	var list []TokenAccount
	for rs.Next() {
		var ta TokenAccount
		var addr, mint, owner []byte
		var amount int64
		if err := rs.Scan(&addr, &mint, &owner, &amount); err != nil {
			rs.Close()
			return fmt.Errorf("storage: cannot scan row: %w", err)
		}
		ta.Amount = uint64(amount)
		for _, f := range []struct {
			dst *address.Address
			raw []byte
		}{{&ta.Address, addr}, {&ta.Mint, mint}, {&ta.Owner, owner}} {
			if err := scanAddress(f.dst, f.raw); err != nil {
				rs.Close()
				return err
			}
		}
		list = append(list, ta)
	}
	if err := rs.Err(); err != nil {
		rs.Close()
		return fmt.Errorf("storage: row iteration error: %w", err)
	}
	rs.Close()

	for _, ta := range list {
		if err := fn(ta); err != nil {
			return err
		}
	}
	return nil
}

func (r sqlRows) appendEvent(ctx context.Context, slot uint64, kind string, payload []byte) (uint64, error) {
	res, err := r.tx.ExecContext(ctx,
		"INSERT INTO events (slot, kind, payload) VALUES (?, ?, ?)",
		int64(slot), kind, string(payload),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot record event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}
	return uint64(id), nil
}

func (r sqlRows) listEvents(ctx context.Context, after uint64, limit int, fn func(uint64, []byte) error) error {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rs, err := r.tx.QueryContext(ctx,
		`SELECT seq, payload
		 FROM events
		 WHERE seq > ?
		 ORDER BY seq
		 LIMIT ?`,
		int64(after), limit,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot query events: %w", err)
	}

	type entry struct {
		seq     int64
		payload string
	}
	var entries []entry
	for rs.Next() {
		var e entry
		if err := rs.Scan(&e.seq, &e.payload); err != nil {
			rs.Close()
			return fmt.Errorf("storage: cannot scan row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rs.Err(); err != nil {
		rs.Close()
		return fmt.Errorf("storage: row iteration error: %w", err)
	}
	rs.Close()

	for _, e := range entries {
		if err := fn(uint64(e.seq), []byte(e.payload)); err != nil {
			return err
		}
	}
	return nil
}
