package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/HouseOfHufflepuff/kill/internal/address"
	"github.com/HouseOfHufflepuff/kill/internal/game"
)

// backend is the surface both stores share.
type backend interface {
	game.Store
	Exec(ctx context.Context, fn func(*Tx) error) error
	CreateMint(ctx context.Context, mint, authority address.Address, decimals uint8) error
	Fund(ctx context.Context, mint, authority, owner address.Address, amount uint64) (address.Address, error)
	Balance(ctx context.Context, account address.Address) (uint64, error)
	Mint(ctx context.Context, mint address.Address) (*Mint, error)
	TokenAccounts(ctx context.Context) ([]TokenAccount, error)
	Events(ctx context.Context, after uint64, limit int) ([]game.Event, error)
	Head(ctx context.Context) (uint64, error)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func eachBackend(t *testing.T, fn func(t *testing.T, b backend)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, openTestStore(t)) })
	t.Run("memory", func(t *testing.T) { fn(t, NewMemory()) })
}

var (
	testMint      = address.Mint("KILL")
	testAuthority = address.Named("treasury")
	alice         = address.Named("alice")
	bob           = address.Named("bob")
)

func TestStoreOpenClose(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	// Check that the file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestStorePersistsAcrossOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()
	addr := address.Derive("test", []byte("one"))

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	err = store.Update(ctx, func(tx game.Tx) error {
		return tx.Create(ctx, addr, "test", []byte{1, 2, 3})
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	store.Close()

	store, err = Open(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer store.Close()

	err = store.View(ctx, func(tx game.Tx) error {
		data, err := tx.Load(ctx, addr)
		if err != nil {
			return err
		}
		if string(data) != "\x01\x02\x03" {
			t.Errorf("Load() = %v, expected [1 2 3]", data)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View() failed: %v", err)
	}
}

func TestDirectoryCreateOnce(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		addr := address.Derive("test", []byte("k"))

		err := b.Update(ctx, func(tx game.Tx) error {
			return tx.Create(ctx, addr, "test", []byte("first"))
		})
		if err != nil {
			t.Fatalf("first Create() failed: %v", err)
		}

		err = b.Update(ctx, func(tx game.Tx) error {
			return tx.Create(ctx, addr, "test", []byte("second"))
		})
		if !errors.Is(err, game.ErrAccountExists) {
			t.Fatalf("second Create() = %v, expected AccountExists", err)
		}

		b.View(ctx, func(tx game.Tx) error {
			data, err := tx.Load(ctx, addr)
			if err != nil {
				t.Fatalf("Load() failed: %v", err)
			}
			if string(data) != "first" {
				t.Errorf("Load() = %q, first write should win", data)
			}
			return nil
		})
	})
}

func TestDirectoryLoadSaveScan(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		missing := address.Derive("test", []byte("missing"))

		err := b.View(ctx, func(tx game.Tx) error {
			_, err := tx.Load(ctx, missing)
			return err
		})
		if !errors.Is(err, game.ErrAccountNotFound) {
			t.Errorf("Load(missing) = %v, expected AccountNotFound", err)
		}

		err = b.Update(ctx, func(tx game.Tx) error {
			return tx.Save(ctx, missing, []byte("x"))
		})
		if !errors.Is(err, game.ErrAccountNotFound) {
			t.Errorf("Save(missing) = %v, expected AccountNotFound", err)
		}

		err = b.Update(ctx, func(tx game.Tx) error {
			for _, k := range []string{"c", "a", "b"} {
				if err := tx.Create(ctx, address.Derive("test", []byte(k)), "scan", []byte(k)); err != nil {
					return err
				}
			}
			if err := tx.Create(ctx, address.Derive("test", []byte("other")), "elsewhere", []byte("z")); err != nil {
				return err
			}
			return tx.Save(ctx, address.Derive("test", []byte("a")), []byte("A"))
		})
		if err != nil {
			t.Fatalf("Update() failed: %v", err)
		}

		var seen []string
		var last address.Address
		b.View(ctx, func(tx game.Tx) error {
			return tx.Scan(ctx, "scan", func(addr address.Address, data []byte) error {
				if len(seen) > 0 && string(addr[:]) < string(last[:]) {
					t.Error("Scan() should visit addresses in order")
				}
				last = addr
				seen = append(seen, string(data))
				return nil
			})
		})
		if len(seen) != 3 {
			t.Fatalf("Scan() visited %d records, expected 3", len(seen))
		}
		found := false
		for _, s := range seen {
			if s == "A" {
				found = true
			}
		}
		if !found {
			t.Errorf("Scan() = %v, expected the saved value A", seen)
		}
	})
}

func TestUpdateRollsBack(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		addr := address.Derive("test", []byte("rollback"))
		boom := errors.New("boom")

		err := b.Update(ctx, func(tx game.Tx) error {
			if err := tx.Create(ctx, addr, "test", []byte("x")); err != nil {
				return err
			}
			ev := &game.Event{Kind: game.EventSpawn, Slot: 1, Spawn: &game.SpawnEvent{Agent: alice}}
			if err := tx.Record(ctx, ev); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("Update() = %v, expected boom", err)
		}

		err = b.View(ctx, func(tx game.Tx) error {
			_, err := tx.Load(ctx, addr)
			return err
		})
		if !errors.Is(err, game.ErrAccountNotFound) {
			t.Errorf("record survived a failed transaction: %v", err)
		}
		events, err := b.Events(ctx, 0, 0)
		if err != nil {
			t.Fatalf("Events() failed: %v", err)
		}
		if len(events) != 0 {
			t.Errorf("Events() = %d, failed transaction should record nothing", len(events))
		}
	})
}

func TestLedgerTransfer(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		if err := b.CreateMint(ctx, testMint, testAuthority, 6); err != nil {
			t.Fatalf("CreateMint() failed: %v", err)
		}
		aliceAcct, err := b.Fund(ctx, testMint, testAuthority, alice, 1000)
		if err != nil {
			t.Fatalf("Fund(alice) failed: %v", err)
		}
		bobAcct, err := b.Fund(ctx, testMint, testAuthority, bob, 0)
		if err != nil {
			t.Fatalf("Fund(bob) failed: %v", err)
		}

		transfer := func(from, to, authority address.Address, amount uint64) error {
			return b.Update(ctx, func(tx game.Tx) error {
				return tx.Transfer(ctx, from, to, authority, amount)
			})
		}

		tests := []struct {
			name      string
			from, to  address.Address
			authority address.Address
			amount    uint64
			want      error
		}{
			{"wrong authority", aliceAcct, bobAcct, bob, 1, game.ErrUnauthorized},
			{"too much", aliceAcct, bobAcct, alice, 1001, game.ErrInsufficientBalance},
			{"missing source", address.Named("nobody"), bobAcct, alice, 1, game.ErrTokenAccountNotFound},
			{"ok", aliceAcct, bobAcct, alice, 400, nil},
			{"self transfer", bobAcct, bobAcct, bob, 400, nil},
		}

		for _, tc := range tests {
			err := transfer(tc.from, tc.to, tc.authority, tc.amount)
			if tc.want == nil && err != nil {
				t.Errorf("%s: Transfer() failed: %v", tc.name, err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Errorf("%s: Transfer() = %v, expected %v", tc.name, err, tc.want)
			}
		}

		if got, _ := b.Balance(ctx, aliceAcct); got != 600 {
			t.Errorf("alice balance = %d, expected 600", got)
		}
		if got, _ := b.Balance(ctx, bobAcct); got != 400 {
			t.Errorf("bob balance = %d, expected 400", got)
		}
	})
}

func TestLedgerMintMismatch(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		other := address.Mint("OTHER")
		b.CreateMint(ctx, testMint, testAuthority, 6)
		b.CreateMint(ctx, other, testAuthority, 6)

		from, _ := b.Fund(ctx, testMint, testAuthority, alice, 10)
		to, _ := b.Fund(ctx, other, testAuthority, alice, 0)

		err := b.Update(ctx, func(tx game.Tx) error {
			return tx.Transfer(ctx, from, to, alice, 5)
		})
		if !errors.Is(err, game.ErrMintMismatch) {
			t.Errorf("Transfer() = %v, expected MintMismatch", err)
		}
		err = b.Update(ctx, func(tx game.Tx) error {
			return tx.Burn(ctx, other, from, alice, 5)
		})
		if !errors.Is(err, game.ErrMintMismatch) {
			t.Errorf("Burn() = %v, expected MintMismatch", err)
		}
	})
}

func TestLedgerBurnAndSupply(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		b.CreateMint(ctx, testMint, testAuthority, 6)
		acct, err := b.Fund(ctx, testMint, testAuthority, alice, 500)
		if err != nil {
			t.Fatalf("Fund() failed: %v", err)
		}

		err = b.Update(ctx, func(tx game.Tx) error {
			return tx.Burn(ctx, testMint, acct, bob, 1)
		})
		if !errors.Is(err, game.ErrUnauthorized) {
			t.Errorf("Burn(wrong authority) = %v, expected Unauthorized", err)
		}

		err = b.Update(ctx, func(tx game.Tx) error {
			return tx.Burn(ctx, testMint, acct, alice, 200)
		})
		if err != nil {
			t.Fatalf("Burn() failed: %v", err)
		}

		m, err := b.Mint(ctx, testMint)
		if err != nil {
			t.Fatalf("Mint() failed: %v", err)
		}
		if m.Supply != 300 {
			t.Errorf("supply = %d, expected 300", m.Supply)
		}
		if got, _ := b.Balance(ctx, acct); got != 300 {
			t.Errorf("balance = %d, expected 300", got)
		}
	})
}

func TestLedgerMintTo(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		if _, err := b.Fund(ctx, testMint, testAuthority, alice, 1); !errors.Is(err, game.ErrUnknownMint) {
			t.Errorf("Fund(unknown mint) = %v, expected UnknownMint", err)
		}

		b.CreateMint(ctx, testMint, testAuthority, 6)
		if err := b.CreateMint(ctx, testMint, testAuthority, 6); !errors.Is(err, game.ErrAccountExists) {
			t.Errorf("second CreateMint() = %v, expected AccountExists", err)
		}

		if _, err := b.Fund(ctx, testMint, alice, alice, 1); !errors.Is(err, game.ErrUnauthorized) {
			t.Errorf("Fund(wrong authority) = %v, expected Unauthorized", err)
		}
		if _, err := b.Fund(ctx, testMint, testAuthority, alice, MaxAmount); err != nil {
			t.Fatalf("Fund(max) failed: %v", err)
		}
		if _, err := b.Fund(ctx, testMint, testAuthority, bob, 1); !errors.Is(err, game.ErrOverflow) {
			t.Errorf("Fund() past max supply = %v, expected Overflow", err)
		}

		accounts, err := b.TokenAccounts(ctx)
		if err != nil {
			t.Fatalf("TokenAccounts() failed: %v", err)
		}
		// bob's account open rolled back with the failed mint
		if len(accounts) != 1 {
			t.Errorf("TokenAccounts() = %d, expected 1", len(accounts))
		}
	})
}

func TestEventLog(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()

		if head, err := b.Head(ctx); err != nil || head != 0 {
			t.Errorf("Head() on empty log = %d, %v", head, err)
		}

		for i := uint64(1); i <= 5; i++ {
			err := b.Update(ctx, func(tx game.Tx) error {
				ev := &game.Event{
					Kind: game.EventMove,
					Slot: i * 10,
					Move: &game.MoveEvent{Agent: alice, From: 0, To: 1, Units: i},
				}
				if err := tx.Record(ctx, ev); err != nil {
					return err
				}
				if ev.Seq != i {
					t.Errorf("Record() seq = %d, expected %d", ev.Seq, i)
				}
				return nil
			})
			if err != nil {
				t.Fatalf("Update() failed: %v", err)
			}
		}

		events, err := b.Events(ctx, 2, 2)
		if err != nil {
			t.Fatalf("Events() failed: %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("Events(2, 2) = %d events, expected 2", len(events))
		}
		if events[0].Seq != 3 || events[1].Seq != 4 {
			t.Errorf("Events(2, 2) seqs = %d,%d, expected 3,4", events[0].Seq, events[1].Seq)
		}
		if events[0].Move == nil || events[0].Move.Units != 3 || events[0].Slot != 30 {
			t.Errorf("event payload not preserved: %+v", events[0])
		}

		all, _ := b.Events(ctx, 0, 0)
		if len(all) != 5 {
			t.Errorf("Events(0, 0) = %d events, expected 5", len(all))
		}
		if head, err := b.Head(ctx); err != nil || head != 5 {
			t.Errorf("Head() = %d, %v, expected 5", head, err)
		}
	})
}
