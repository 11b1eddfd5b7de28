package game

import (
	"context"

	"github.com/HouseOfHufflepuff/kill/internal/address"
)

// Directory stores fixed-size records at derived addresses.
type Directory interface {
	// Create inserts a record only if the address is unused. It fails with
	// ErrAccountExists otherwise.
	Create(ctx context.Context, addr address.Address, namespace string, data []byte) error
	// Load returns the record or ErrAccountNotFound.
	Load(ctx context.Context, addr address.Address) ([]byte, error)
	// Save overwrites an existing record.
	Save(ctx context.Context, addr address.Address, data []byte) error
	// Scan visits every record in a namespace in address order.
	Scan(ctx context.Context, namespace string, fn func(addr address.Address, data []byte) error) error
}

// Ledger moves tokens between accounts. Every movement names the authority
// that must own the source account.
type Ledger interface {
	OpenTokenAccount(ctx context.Context, account, mint, owner address.Address) error
	Transfer(ctx context.Context, from, to, authority address.Address, amount uint64) error
	Burn(ctx context.Context, mint, from, authority address.Address, amount uint64) error
}

// Tx is the view of the store inside one instruction.
type Tx interface {
	Directory
	Ledger
	// Record appends ev to the event log and sets its sequence number.
	Record(ctx context.Context, ev *Event) error
}

// Store runs instructions atomically. If fn returns an error nothing it did
// is kept.
type Store interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}

// Clock returns the current slot.
type Clock interface {
	Now() uint64
}
