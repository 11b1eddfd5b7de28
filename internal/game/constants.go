package game

import "github.com/HouseOfHufflepuff/kill/internal/core"

// Token amounts are in base units (Decimals places).
const (
	Decimals = 6

	// SpawnCost is debited for every spawn or reinforcement (20 tokens).
	SpawnCost uint64 = 20_000_000
	// MoveCost is debited for every move (100 tokens).
	MoveCost uint64 = 100_000_000
)

// Combat and bounty constants.
const (
	// ThermalParity is how many basic units one reaper is worth in combat,
	// and the per-unit bounty weight.
	ThermalParity uint64 = 666
	// DefenderBonus is the numerator of the 11:10 defender advantage.
	DefenderBonus uint64 = 11

	BurnBps  uint64 = 666
	BpsDenom uint64 = 10_000

	MaxMultiplier      uint64 = 20
	SlotsPerMultiplier uint64 = 32_400
)

// MaxCellID is the highest valid cell id.
const MaxCellID = core.MaxCellID
