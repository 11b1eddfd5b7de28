package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/HouseOfHufflepuff/kill/internal/address"
	"github.com/HouseOfHufflepuff/kill/internal/core"
	"github.com/HouseOfHufflepuff/kill/internal/game"
)

// MaxAmount is the largest balance or supply the ledger will hold.
// Balances are stored as signed 64-bit integers.
const MaxAmount = math.MaxInt64

// Mint is a fungible token definition.
type Mint struct {
	Address   address.Address `json:"address"`
	Authority address.Address `json:"authority"`
	Decimals  uint8           `json:"decimals"`
	Supply    uint64          `json:"supply"`
}

// TokenAccount holds a balance of one mint for one owner.
type TokenAccount struct {
	Address address.Address `json:"address"`
	Mint    address.Address `json:"mint"`
	Owner   address.Address `json:"owner"`
	Amount  uint64          `json:"amount"`
}

// rows is the primitive record access a backend provides inside a
// transaction. Tx builds the directory and ledger rules on top of it.
type rows interface {
	loadAccount(ctx context.Context, addr address.Address) ([]byte, bool, error)
	insertAccount(ctx context.Context, addr address.Address, namespace string, data []byte) (bool, error)
	updateAccount(ctx context.Context, addr address.Address, data []byte) (bool, error)
	scanAccounts(ctx context.Context, namespace string, fn func(address.Address, []byte) error) error

	loadMint(ctx context.Context, addr address.Address) (Mint, bool, error)
	insertMint(ctx context.Context, m Mint) (bool, error)
	updateMint(ctx context.Context, m Mint) error

	loadToken(ctx context.Context, addr address.Address) (TokenAccount, bool, error)
	insertToken(ctx context.Context, ta TokenAccount) (bool, error)
	updateToken(ctx context.Context, ta TokenAccount) error
	listTokens(ctx context.Context, fn func(TokenAccount) error) error

	appendEvent(ctx context.Context, slot uint64, kind string, payload []byte) (uint64, error)
	listEvents(ctx context.Context, after uint64, limit int, fn func(seq uint64, payload []byte) error) error
}

// Tx implements game.Tx plus the ledger administration used by tooling.
type Tx struct {
	r rows
}

var _ game.Tx = (*Tx)(nil)

// Create inserts a record if the address is unused.
func (t *Tx) Create(ctx context.Context, addr address.Address, namespace string, data []byte) error {
	ok, err := t.r.insertAccount(ctx, addr, namespace, data)
	if err != nil {
		return err
	}
	if !ok {
		return game.Errorf(game.ErrAccountExists, "%s", addr.Short())
	}
	return nil
}

// Load returns the record stored at addr.
func (t *Tx) Load(ctx context.Context, addr address.Address) ([]byte, error) {
	data, ok, err := t.r.loadAccount(ctx, addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, game.Errorf(game.ErrAccountNotFound, "%s", addr.Short())
	}
	return data, nil
}

// Save overwrites the record stored at addr.
func (t *Tx) Save(ctx context.Context, addr address.Address, data []byte) error {
	ok, err := t.r.updateAccount(ctx, addr, data)
	if err != nil {
		return err
	}
	if !ok {
		return game.Errorf(game.ErrAccountNotFound, "%s", addr.Short())
	}
	return nil
}

// Scan visits every record in a namespace in address order.
func (t *Tx) Scan(ctx context.Context, namespace string, fn func(address.Address, []byte) error) error {
	return t.r.scanAccounts(ctx, namespace, fn)
}

// OpenTokenAccount creates an empty token account for owner.
func (t *Tx) OpenTokenAccount(ctx context.Context, account, mint, owner address.Address) error {
	if _, err := t.mint(ctx, mint); err != nil {
		return err
	}
	ok, err := t.r.insertToken(ctx, TokenAccount{Address: account, Mint: mint, Owner: owner})
	if err != nil {
		return err
	}
	if !ok {
		return game.Errorf(game.ErrAccountExists, "token account %s", account.Short())
	}
	return nil
}

// Transfer moves amount between two accounts of the same mint. authority
// must own the source account.
func (t *Tx) Transfer(ctx context.Context, from, to, authority address.Address, amount uint64) error {
	src, err := t.token(ctx, from)
	if err != nil {
		return err
	}
	dst, err := t.token(ctx, to)
	if err != nil {
		return err
	}
	if src.Owner != authority {
		return game.Errorf(game.ErrUnauthorized, "%s does not own %s", authority.Short(), from.Short())
	}
	if src.Mint != dst.Mint {
		return game.ErrMintMismatch
	}
	if src.Amount < amount {
		return game.Errorf(game.ErrInsufficientBalance, "have %d, need %d", src.Amount, amount)
	}
	if from == to {
		return nil
	}

	total, ok := core.CheckedAdd(dst.Amount, amount)
	if !ok || total > MaxAmount {
		return game.ErrOverflow
	}
	src.Amount -= amount
	dst.Amount = total

	if err := t.r.updateToken(ctx, src); err != nil {
		return err
	}
	return t.r.updateToken(ctx, dst)
}

// Burn destroys amount from an account and the mint's supply.
func (t *Tx) Burn(ctx context.Context, mint, from, authority address.Address, amount uint64) error {
	m, err := t.mint(ctx, mint)
	if err != nil {
		return err
	}
	src, err := t.token(ctx, from)
	if err != nil {
		return err
	}
	if src.Owner != authority {
		return game.Errorf(game.ErrUnauthorized, "%s does not own %s", authority.Short(), from.Short())
	}
	if src.Mint != mint {
		return game.ErrMintMismatch
	}
	if src.Amount < amount {
		return game.Errorf(game.ErrInsufficientBalance, "have %d, need %d", src.Amount, amount)
	}

	src.Amount -= amount
	m.Supply = core.SatSub(m.Supply, amount)

	if err := t.r.updateToken(ctx, src); err != nil {
		return err
	}
	return t.r.updateMint(ctx, m)
}

// Record appends an event and sets its sequence number.
func (t *Tx) Record(ctx context.Context, ev *game.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("storage: cannot encode event: %w", err)
	}
	seq, err := t.r.appendEvent(ctx, ev.Slot, string(ev.Kind), payload)
	if err != nil {
		return err
	}
	ev.Seq = seq
	return nil
}

// CreateMint defines a new token controlled by authority.
func (t *Tx) CreateMint(ctx context.Context, mint, authority address.Address, decimals uint8) error {
	ok, err := t.r.insertMint(ctx, Mint{Address: mint, Authority: authority, Decimals: decimals})
	if err != nil {
		return err
	}
	if !ok {
		return game.Errorf(game.ErrAccountExists, "mint %s", mint.Short())
	}
	return nil
}

// MintTo creates amount new tokens in the to account. authority must be the
// mint authority.
func (t *Tx) MintTo(ctx context.Context, mint, to, authority address.Address, amount uint64) error {
	m, err := t.mint(ctx, mint)
	if err != nil {
		return err
	}
	if m.Authority != authority {
		return game.Errorf(game.ErrUnauthorized, "%s is not the mint authority", authority.Short())
	}
	dst, err := t.token(ctx, to)
	if err != nil {
		return err
	}
	if dst.Mint != mint {
		return game.ErrMintMismatch
	}

	supply, ok := core.CheckedAdd(m.Supply, amount)
	if !ok || supply > MaxAmount {
		return game.ErrOverflow
	}
	m.Supply = supply
	dst.Amount += amount

	if err := t.r.updateMint(ctx, m); err != nil {
		return err
	}
	return t.r.updateToken(ctx, dst)
}

// Mint returns a mint definition.
func (t *Tx) Mint(ctx context.Context, mint address.Address) (*Mint, error) {
	m, err := t.mint(ctx, mint)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// TokenAccount returns a token account.
func (t *Tx) TokenAccount(ctx context.Context, account address.Address) (*TokenAccount, error) {
	ta, err := t.token(ctx, account)
	if err != nil {
		return nil, err
	}
	return &ta, nil
}

// TokenAccounts lists every token account in address order.
func (t *Tx) TokenAccounts(ctx context.Context) ([]TokenAccount, error) {
	var out []TokenAccount
	err := t.r.listTokens(ctx, func(ta TokenAccount) error {
		out = append(out, ta)
		return nil
	})
	return out, err
}

// Events returns up to limit events with a sequence number above after.
func (t *Tx) Events(ctx context.Context, after uint64, limit int) ([]game.Event, error) {
	var out []game.Event
	err := t.r.listEvents(ctx, after, limit, func(seq uint64, payload []byte) error {
		var ev game.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("storage: cannot decode event %d: %w", seq, err)
		}
		ev.Seq = seq
		out = append(out, ev)
		return nil
	})
	return out, err
}

func (t *Tx) mint(ctx context.Context, addr address.Address) (Mint, error) {
	m, ok, err := t.r.loadMint(ctx, addr)
	if err != nil {
		return Mint{}, err
	}
	if !ok {
		return Mint{}, game.Errorf(game.ErrUnknownMint, "%s", addr.Short())
	}
	return m, nil
}

func (t *Tx) token(ctx context.Context, addr address.Address) (TokenAccount, error) {
	ta, ok, err := t.r.loadToken(ctx, addr)
	if err != nil {
		return TokenAccount{}, err
	}
	if !ok {
		return TokenAccount{}, game.Errorf(game.ErrTokenAccountNotFound, "%s", addr.Short())
	}
	return ta, nil
}

// runner opens transactions over some rows implementation.
type runner interface {
	run(ctx context.Context, write bool, fn func(*Tx) error) error
}

// ops gives a backend its game.Store methods and the ledger administration
// helpers, each in its own transaction.
type ops struct {
	r runner
}

// Update runs fn in a write transaction.
func (o ops) Update(ctx context.Context, fn func(game.Tx) error) error {
	return o.r.run(ctx, true, func(t *Tx) error { return fn(t) })
}

// View runs fn in a transaction that is always rolled back.
func (o ops) View(ctx context.Context, fn func(game.Tx) error) error {
	return o.r.run(ctx, false, func(t *Tx) error { return fn(t) })
}

// Exec runs fn with full access to the ledger administration methods.
func (o ops) Exec(ctx context.Context, fn func(*Tx) error) error {
	return o.r.run(ctx, true, fn)
}

// CreateMint defines a new mint.
func (o ops) CreateMint(ctx context.Context, mint, authority address.Address, decimals uint8) error {
	return o.r.run(ctx, true, func(t *Tx) error {
		return t.CreateMint(ctx, mint, authority, decimals)
	})
}

// Fund mints amount into owner's associated token account, opening it first
// if needed. It returns the account address.
func (o ops) Fund(ctx context.Context, mint, authority, owner address.Address, amount uint64) (address.Address, error) {
	acct := address.TokenAccount(owner, mint)
	err := o.r.run(ctx, true, func(t *Tx) error {
		if _, ok, err := t.r.loadToken(ctx, acct); err != nil {
			return err
		} else if !ok {
			if err := t.OpenTokenAccount(ctx, acct, mint, owner); err != nil {
				return err
			}
		}
		if amount == 0 {
			return nil
		}
		return t.MintTo(ctx, mint, acct, authority, amount)
	})
	return acct, err
}

// Balance returns the amount held by a token account.
func (o ops) Balance(ctx context.Context, account address.Address) (uint64, error) {
	var amount uint64
	err := o.r.run(ctx, false, func(t *Tx) error {
		ta, err := t.token(ctx, account)
		amount = ta.Amount
		return err
	})
	return amount, err
}

// TokenAccount returns a token account.
func (o ops) TokenAccount(ctx context.Context, account address.Address) (*TokenAccount, error) {
	var ta *TokenAccount
	err := o.r.run(ctx, false, func(t *Tx) error {
		var err error
		ta, err = t.TokenAccount(ctx, account)
		return err
	})
	return ta, err
}

// TokenAccounts lists every token account.
func (o ops) TokenAccounts(ctx context.Context) ([]TokenAccount, error) {
	var out []TokenAccount
	err := o.r.run(ctx, false, func(t *Tx) error {
		var err error
		out, err = t.TokenAccounts(ctx)
		return err
	})
	return out, err
}

// Mint returns a mint definition.
func (o ops) Mint(ctx context.Context, mint address.Address) (*Mint, error) {
	var m *Mint
	err := o.r.run(ctx, false, func(t *Tx) error {
		var err error
		m, err = t.Mint(ctx, mint)
		return err
	})
	return m, err
}

// Events returns up to limit events after the given sequence number.
// A limit of zero or less returns all of them.
func (o ops) Events(ctx context.Context, after uint64, limit int) ([]game.Event, error) {
	var out []game.Event
	err := o.r.run(ctx, false, func(t *Tx) error {
		var err error
		out, err = t.Events(ctx, after, limit)
		return err
	})
	return out, err
}

// Head returns the sequence number of the newest event, or 0 for an empty log.
func (o ops) Head(ctx context.Context) (uint64, error) {
	var head uint64
	for {
		page, err := o.Events(ctx, head, 1024)
		if err != nil {
			return 0, err
		}
		if len(page) == 0 {
			return head, nil
		}
		head = page[len(page)-1].Seq
	}
}
