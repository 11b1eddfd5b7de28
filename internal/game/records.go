package game

import (
	"encoding/binary"
	"fmt"

	"github.com/HouseOfHufflepuff/kill/internal/address"
	"github.com/HouseOfHufflepuff/kill/internal/core"
)

// Record sizes including the 8-byte discriminator.
const (
	EconomyConfigSize = 8 + 32 + 32 + 32 + 8 + 1
	AgentStackSize    = 8 + 32 + 2 + 8 + 8 + 8 + 8
)

var (
	configDiscriminator = discriminator("EconomyConfig")
	stackDiscriminator  = discriminator("AgentStack")
)

func discriminator(name string) [8]byte {
	var d [8]byte
	h := address.Derive("account", []byte(name))
	copy(d[:], h[:8])
	return d
}

// EconomyConfig is the singleton deployment record.
type EconomyConfig struct {
	TokenMint  address.Address `json:"token_mint"`
	Vault      address.Address `json:"vault"`
	Admin      address.Address `json:"admin"`
	TotalKills uint64          `json:"total_kills"`
	Paused     bool            `json:"paused"`
}

// MarshalBinary encodes the record in its fixed little-endian layout.
func (c *EconomyConfig) MarshalBinary() ([]byte, error) {
	buf := make([]byte, EconomyConfigSize)
	copy(buf[0:8], configDiscriminator[:])
	copy(buf[8:40], c.TokenMint[:])
	copy(buf[40:72], c.Vault[:])
	copy(buf[72:104], c.Admin[:])
	binary.LittleEndian.PutUint64(buf[104:112], c.TotalKills)
	if c.Paused {
		buf[112] = 1
	}
	return buf, nil
}

// UnmarshalBinary decodes a record produced by MarshalBinary.
func (c *EconomyConfig) UnmarshalBinary(data []byte) error {
	if len(data) != EconomyConfigSize {
		return fmt.Errorf("game: config record is %d bytes, expected %d", len(data), EconomyConfigSize)
	}
	if [8]byte(data[0:8]) != configDiscriminator {
		return fmt.Errorf("game: record is not an economy config")
	}
	copy(c.TokenMint[:], data[8:40])
	copy(c.Vault[:], data[40:72])
	copy(c.Admin[:], data[72:104])
	c.TotalKills = binary.LittleEndian.Uint64(data[104:112])
	c.Paused = data[112] != 0
	return nil
}

// AgentStack is one player's units on one cell.
type AgentStack struct {
	Owner     address.Address `json:"owner"`
	CellID    uint16          `json:"cell"`
	Units     uint64          `json:"units"`
	Reapers   uint64          `json:"reapers"`
	SpawnSlot uint64          `json:"spawn_slot"`
	KillSlot  uint64          `json:"kill_slot"`
}

// Empty reports whether the stack holds no units of either kind.
func (s *AgentStack) Empty() bool {
	return s.Units == 0 && s.Reapers == 0
}

// clear zeroes the counts. Owner and cell stay as they are.
func (s *AgentStack) clear() {
	s.Units = 0
	s.Reapers = 0
}

// merge adds counts, initializing the stack first if it was empty.
func (s *AgentStack) merge(owner address.Address, cell uint16, units, reapers, slot uint64) error {
	if s.Empty() {
		s.Owner = owner
		s.CellID = cell
		s.SpawnSlot = slot
		s.KillSlot = 0
	}
	u, ok := core.CheckedAdd(s.Units, units)
	if !ok {
		return ErrOverflow
	}
	r, ok := core.CheckedAdd(s.Reapers, reapers)
	if !ok {
		return ErrOverflow
	}
	s.Units, s.Reapers = u, r
	return nil
}

// MarshalBinary encodes the record in its fixed little-endian layout.
func (s *AgentStack) MarshalBinary() ([]byte, error) {
	buf := make([]byte, AgentStackSize)
	copy(buf[0:8], stackDiscriminator[:])
	copy(buf[8:40], s.Owner[:])
	binary.LittleEndian.PutUint16(buf[40:42], s.CellID)
	binary.LittleEndian.PutUint64(buf[42:50], s.Units)
	binary.LittleEndian.PutUint64(buf[50:58], s.Reapers)
	binary.LittleEndian.PutUint64(buf[58:66], s.SpawnSlot)
	binary.LittleEndian.PutUint64(buf[66:74], s.KillSlot)
	return buf, nil
}

// UnmarshalBinary decodes a record produced by MarshalBinary.
func (s *AgentStack) UnmarshalBinary(data []byte) error {
	if len(data) != AgentStackSize {
		return fmt.Errorf("game: stack record is %d bytes, expected %d", len(data), AgentStackSize)
	}
	if [8]byte(data[0:8]) != stackDiscriminator {
		return fmt.Errorf("game: record is not an agent stack")
	}
	copy(s.Owner[:], data[8:40])
	s.CellID = binary.LittleEndian.Uint16(data[40:42])
	s.Units = binary.LittleEndian.Uint64(data[42:50])
	s.Reapers = binary.LittleEndian.Uint64(data[50:58])
	s.SpawnSlot = binary.LittleEndian.Uint64(data[58:66])
	s.KillSlot = binary.LittleEndian.Uint64(data[66:74])
	return nil
}
