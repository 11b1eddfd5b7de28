package game

import "github.com/HouseOfHufflepuff/kill/internal/core"

// Outcome is the result of a single combat resolution.
type Outcome struct {
	AttackerWon      bool
	SurvivingUnits   uint64
	SurvivingReapers uint64
}

// Power returns the raw combat power of a force.
func Power(units, reapers uint64) uint64 {
	return core.SatAdd(units, core.SatMul(reapers, ThermalParity))
}

// ResolveCombat applies the square-law model with an 11:10 defender bonus.
// Ties go to the defender. On a win the attacker keeps the truncated
// percentage (atk-def)/atk of each unit type. All arithmetic saturates.
func ResolveCombat(defUnits, atkUnits, defReapers, atkReapers uint64) Outcome {
	defPower := core.SatMul(Power(defUnits, defReapers), DefenderBonus)
	atkPower := Power(atkUnits, atkReapers)

	if atkPower <= defPower {
		return Outcome{}
	}

	pct := core.SatMul(atkPower-defPower, 100) / atkPower
	return Outcome{
		AttackerWon:      true,
		SurvivingUnits:   core.SatMul(atkUnits, pct) / 100,
		SurvivingReapers: core.SatMul(atkReapers, pct) / 100,
	}
}

// Multiplier returns the bounty multiplier for a stack of the given age.
func Multiplier(ageSlots uint64) uint64 {
	return core.ClampU64(ageSlots/SlotsPerMultiplier, 1, MaxMultiplier)
}

// PendingBounty returns the bounty a defeated stack would pay out at slot now.
// Only basic units carry bounty.
func PendingBounty(s *AgentStack, now uint64) uint64 {
	if s == nil || s.Units == 0 {
		return 0
	}
	age := core.SatSub(now, s.SpawnSlot)
	return core.SatMul(core.SatMul(s.Units, ThermalParity), Multiplier(age))
}

// SplitBounty divides a bounty into the burned share and the payout.
// burn + payout always equals bounty.
func SplitBounty(bounty uint64) (burn, payout uint64) {
	burn = core.SatMul(bounty, BurnBps) / BpsDenom
	payout = core.SatSub(bounty, burn)
	return burn, payout
}
