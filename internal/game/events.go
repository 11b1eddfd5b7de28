package game

import "github.com/HouseOfHufflepuff/kill/internal/address"

// EventKind names an emitted event.
type EventKind string

// Event kinds.
const (
	EventSpawn EventKind = "spawn"
	EventMove  EventKind = "move"
	EventKill  EventKind = "kill"
)

// Event is an append-only record of a committed instruction. Exactly one of
// the payload pointers is set, matching Kind. Seq is assigned by the store.
type Event struct {
	Seq   uint64      `json:"seq"`
	Kind  EventKind   `json:"kind"`
	Slot  uint64      `json:"slot"`
	Spawn *SpawnEvent `json:"spawn,omitempty"`
	Move  *MoveEvent  `json:"move,omitempty"`
	Kill  *KillEvent  `json:"kill,omitempty"`
}

// SpawnEvent carries the stack totals after a spawn.
type SpawnEvent struct {
	Agent   address.Address `json:"agent"`
	CellID  uint16          `json:"cell"`
	Units   uint64          `json:"units"`
	Reapers uint64          `json:"reapers"`
}

// MoveEvent carries the counts that left From and arrived at To.
type MoveEvent struct {
	Agent   address.Address `json:"agent"`
	From    uint16          `json:"from"`
	To      uint16          `json:"to"`
	Units   uint64          `json:"units"`
	Reapers uint64          `json:"reapers"`
}

// KillEvent describes a won attack.
type KillEvent struct {
	Attacker         address.Address `json:"attacker"`
	Defender         address.Address `json:"defender"`
	AttackerCell     uint16          `json:"attacker_cell"`
	DefenderCell     uint16          `json:"defender_cell"`
	Bounty           uint64          `json:"bounty"`
	Burned           uint64          `json:"burned"`
	SurvivingUnits   uint64          `json:"surviving_units"`
	SurvivingReapers uint64          `json:"surviving_reapers"`
}
