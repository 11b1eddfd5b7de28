// Package address defines 32-byte account identities and the deterministic
// derivation used to locate records: the same namespace and key parts always
// yield the same address.
package address

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"lukechampine.com/blake3"
)

// Size is the length of an address in bytes.
const Size = 32

// Address identifies a player, a record or a token account.
type Address [Size]byte

// Zero is the empty address.
var Zero Address

// Namespaces for well-known records.
const (
	NamespaceConfig       = "game_config"
	NamespaceVault        = "game_vault"
	NamespaceStack        = "agent_stack"
	NamespaceTokenAccount = "token_account"
	NamespaceWallet       = "wallet"
	NamespaceMint         = "mint"
)

// Derive hashes a namespace and key parts into an address. Every component is
// length-prefixed so ("ab", "c") and ("a", "bc") never collide.
func Derive(namespace string, parts ...[]byte) Address {
	h := blake3.New(Size, nil)
	var lenBuf [4]byte

	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(namespace)))
	h.Write(lenBuf[:])
	h.Write([]byte(namespace))
	for _, p := range parts {
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(p)))
		h.Write(lenBuf[:])
		h.Write(p)
	}

	var out Address
	copy(out[:], h.Sum(nil))
	return out
}

// Config returns the address of the singleton economy configuration.
func Config() Address {
	return Derive(NamespaceConfig)
}

// Vault returns the address of the pooled token account controlled by config.
func Vault(config Address) Address {
	return Derive(NamespaceVault, config[:])
}

// Stack returns the address of owner's stack record at cell.
func Stack(owner Address, cell uint16) Address {
	var id [2]byte
	binary.LittleEndian.PutUint16(id[:], cell)
	return Derive(NamespaceStack, owner[:], id[:])
}

// TokenAccount returns the associated token account of owner for mint.
func TokenAccount(owner, mint Address) Address {
	return Derive(NamespaceTokenAccount, owner[:], mint[:])
}

// Named returns the wallet identity for a human-readable name.
func Named(name string) Address {
	return Derive(NamespaceWallet, []byte(name))
}

// Mint returns the address of a token mint identified by symbol.
func Mint(symbol string) Address {
	return Derive(NamespaceMint, []byte(strings.ToUpper(symbol)))
}

// String returns the lowercase hex encoding.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// Short returns an abbreviated form for tables and logs.
func (a Address) Short() string {
	s := a.String()
	return s[:6] + ".." + s[len(s)-4:]
}

// IsZero reports whether a is the empty address.
func (a Address) IsZero() bool {
	return a == Zero
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Parse decodes a 64-character hex address.
func Parse(s string) (Address, error) {
	var a Address
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(s) != Size*2 {
		return a, fmt.Errorf("address: expected %d hex characters, got %d", Size*2, len(s))
	}
	if _, err := hex.Decode(a[:], []byte(s)); err != nil {
		return a, fmt.Errorf("address: invalid hex: %w", err)
	}
	return a, nil
}

// Resolve accepts either a hex address or a wallet name.
func Resolve(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, fmt.Errorf("address: empty identity")
	}
	if a, err := Parse(s); err == nil {
		return a, nil
	}
	return Named(s), nil
}
