package game_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/HouseOfHufflepuff/kill/internal/address"
	"github.com/HouseOfHufflepuff/kill/internal/clock"
	"github.com/HouseOfHufflepuff/kill/internal/game"
	"github.com/HouseOfHufflepuff/kill/internal/storage"
)

const startingBalance uint64 = 10_000_000_000 // 10,000 tokens

var (
	admin    = address.Named("admin")
	alice    = address.Named("alice")
	bob      = address.Named("bob")
	treasury = address.Named("treasury")
	killMint = address.Mint("KILL")
	vault    = address.Vault(address.Config())
)

type fixture struct {
	ctx    context.Context
	store  *storage.Memory
	clock  *clock.Manual
	engine *game.Engine
	events []game.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   context.Background(),
		store: storage.NewMemory(),
		clock: clock.NewManual(1000),
	}
	f.engine = game.NewEngine(f.store, f.clock, nil)
	f.engine.Subscribe(func(ev game.Event) { f.events = append(f.events, ev) })

	if err := f.store.CreateMint(f.ctx, killMint, treasury, game.Decimals); err != nil {
		t.Fatalf("CreateMint() failed: %v", err)
	}
	for _, who := range []address.Address{alice, bob} {
		if _, err := f.store.Fund(f.ctx, killMint, treasury, who, startingBalance); err != nil {
			t.Fatalf("Fund() failed: %v", err)
		}
	}
	if _, err := f.store.Fund(f.ctx, killMint, treasury, admin, 0); err != nil {
		t.Fatalf("Fund(admin) failed: %v", err)
	}
	if _, err := f.engine.Initialize(f.ctx, admin, killMint); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	return f
}

func (f *fixture) balance(t *testing.T, acct address.Address) uint64 {
	t.Helper()
	b, err := f.store.Balance(f.ctx, acct)
	if err != nil {
		t.Fatalf("Balance() failed: %v", err)
	}
	return b
}

func (f *fixture) wallet(t *testing.T, owner address.Address) uint64 {
	t.Helper()
	return f.balance(t, address.TokenAccount(owner, killMint))
}

func (f *fixture) stack(t *testing.T, owner address.Address, cell uint16) *game.AgentStack {
	t.Helper()
	s, err := f.engine.Stack(f.ctx, owner, cell)
	if err != nil {
		t.Fatalf("Stack() failed: %v", err)
	}
	return s
}

func (f *fixture) spawn(t *testing.T, who address.Address, cell uint16, units, reapers uint64) {
	t.Helper()
	if _, err := f.engine.Spawn(f.ctx, who, cell, units, reapers); err != nil {
		t.Fatalf("Spawn(%d) failed: %v", cell, err)
	}
}

func expectCode(t *testing.T, err error, want *game.Error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Errorf("got error %v, expected %s", err, want.Code)
	}
}

func TestInitialize(t *testing.T) {
	f := newFixture(t)

	cfg, err := f.engine.Config(f.ctx)
	if err != nil {
		t.Fatalf("Config() failed: %v", err)
	}
	if cfg.Admin != admin || cfg.TokenMint != killMint || cfg.Vault != vault {
		t.Errorf("Config() = %+v", cfg)
	}
	if cfg.Paused || cfg.TotalKills != 0 {
		t.Errorf("fresh config should be unpaused with no kills: %+v", cfg)
	}
	if got := f.balance(t, vault); got != 0 {
		t.Errorf("vault balance = %d, expected 0", got)
	}

	_, err = f.engine.Initialize(f.ctx, alice, killMint)
	expectCode(t, err, game.ErrAlreadyInitialized)

	cfg, _ = f.engine.Config(f.ctx)
	if cfg.Admin != admin {
		t.Error("second Initialize should not change the admin")
	}
}

func TestInitializeUnknownMint(t *testing.T) {
	ctx := context.Background()
	engine := game.NewEngine(storage.NewMemory(), clock.NewManual(0), nil)

	_, err := engine.Initialize(ctx, admin, killMint)
	expectCode(t, err, game.ErrUnknownMint)

	_, err = engine.Config(ctx)
	expectCode(t, err, game.ErrNotInitialized)

	_, err = engine.Spawn(ctx, alice, 0, 1, 0)
	expectCode(t, err, game.ErrNotInitialized)
}

func TestSpawn(t *testing.T) {
	f := newFixture(t)

	s, err := f.engine.Spawn(f.ctx, alice, 42, 10, 2)
	if err != nil {
		t.Fatalf("Spawn() failed: %v", err)
	}
	if s.Units != 10 || s.Reapers != 2 || s.SpawnSlot != 1000 || s.Owner != alice || s.CellID != 42 {
		t.Errorf("Spawn() = %+v", s)
	}
	if got := f.wallet(t, alice); got != startingBalance-game.SpawnCost {
		t.Errorf("alice balance = %d, expected %d", got, startingBalance-game.SpawnCost)
	}
	if got := f.balance(t, vault); got != game.SpawnCost {
		t.Errorf("vault balance = %d, expected %d", got, game.SpawnCost)
	}

	if len(f.events) != 1 || f.events[0].Kind != game.EventSpawn {
		t.Fatalf("events = %+v, expected one spawn", f.events)
	}
	ev := f.events[0]
	if ev.Seq != 1 || ev.Slot != 1000 || ev.Spawn.Agent != alice || ev.Spawn.CellID != 42 {
		t.Errorf("spawn event = %+v", ev)
	}
}

func TestSpawnReinforceKeepsAge(t *testing.T) {
	f := newFixture(t)

	f.spawn(t, alice, 7, 10, 0)
	f.clock.Advance(5000)
	f.spawn(t, alice, 7, 5, 1)

	s := f.stack(t, alice, 7)
	if s.Units != 15 || s.Reapers != 1 {
		t.Errorf("counts = %d/%d, expected 15/1", s.Units, s.Reapers)
	}
	if s.SpawnSlot != 1000 {
		t.Errorf("SpawnSlot = %d, reinforcement should keep 1000", s.SpawnSlot)
	}
	if got := f.events[1].Spawn; got.Units != 15 || got.Reapers != 1 {
		t.Errorf("spawn event should carry totals, got %+v", got)
	}
	if got := f.wallet(t, alice); got != startingBalance-2*game.SpawnCost {
		t.Errorf("alice balance = %d, expected two spawn costs debited", got)
	}
}

func TestSpawnRejects(t *testing.T) {
	f := newFixture(t)
	broke := address.Named("broke")
	if _, err := f.store.Fund(f.ctx, killMint, treasury, broke, game.SpawnCost-1); err != nil {
		t.Fatalf("Fund() failed: %v", err)
	}

	tests := []struct {
		name    string
		who     address.Address
		cell    uint16
		units   uint64
		reapers uint64
		want    *game.Error
	}{
		{"cell out of range", alice, 216, 1, 0, game.ErrInvalidCell},
		{"nothing to spawn", alice, 0, 0, 0, game.ErrEmptyAttacker},
		{"cannot afford", broke, 0, 1, 0, game.ErrInsufficientBalance},
		{"no token account", address.Named("stranger"), 0, 1, 0, game.ErrTokenAccountNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.Spawn(f.ctx, tc.who, tc.cell, tc.units, tc.reapers)
			expectCode(t, err, tc.want)
		})
	}

	if s := f.stack(t, broke, 0); !s.Empty() {
		t.Error("failed spawn should not create a stack")
	}
	if len(f.events) != 0 {
		t.Errorf("failed spawns emitted %d events", len(f.events))
	}
}

func TestSpawnOverflowRollsBack(t *testing.T) {
	f := newFixture(t)

	f.spawn(t, alice, 0, math.MaxUint64, 0)
	before := f.wallet(t, alice)

	_, err := f.engine.Spawn(f.ctx, alice, 0, 1, 0)
	expectCode(t, err, game.ErrOverflow)

	if got := f.wallet(t, alice); got != before {
		t.Errorf("balance changed on a failed spawn: %d -> %d", before, got)
	}
	if s := f.stack(t, alice, 0); s.Units != math.MaxUint64 {
		t.Errorf("units = %d after failed spawn", s.Units)
	}
}

func TestMove(t *testing.T) {
	f := newFixture(t)

	f.spawn(t, alice, 0, 10, 1)
	f.spawn(t, alice, 6, 3, 0)
	f.clock.Advance(100)

	res, err := f.engine.Move(f.ctx, alice, 0, 1)
	if err != nil {
		t.Fatalf("Move() failed: %v", err)
	}
	if res.Units != 10 || res.Reapers != 1 {
		t.Errorf("moved %d/%d, expected 10/1", res.Units, res.Reapers)
	}

	src := f.stack(t, alice, 0)
	if !src.Empty() || src.Owner != alice || src.CellID != 0 {
		t.Errorf("source after move = %+v", src)
	}
	dst := f.stack(t, alice, 1)
	if dst.Units != 10 || dst.Reapers != 1 || dst.SpawnSlot != 1100 {
		t.Errorf("destination after move = %+v", dst)
	}

	if _, err := f.engine.Move(f.ctx, alice, 1, 7); err != nil {
		t.Fatalf("Move() failed: %v", err)
	}
	merged := f.stack(t, alice, 7)
	if merged.Units != 10 || merged.SpawnSlot != 1100 {
		t.Errorf("merged = %+v", merged)
	}
	// Merging into an occupied cell keeps its age.
	if _, err := f.engine.Move(f.ctx, alice, 7, 6); err != nil {
		t.Fatalf("Move() failed: %v", err)
	}
	merged = f.stack(t, alice, 6)
	if merged.Units != 13 || merged.Reapers != 1 || merged.SpawnSlot != 1000 {
		t.Errorf("merge into occupied cell = %+v, expected 13/1 spawned at 1000", merged)
	}

	want := startingBalance - 2*game.SpawnCost - 3*game.MoveCost
	if got := f.wallet(t, alice); got != want {
		t.Errorf("alice balance = %d, expected %d", got, want)
	}

	last := f.events[len(f.events)-1]
	if last.Kind != game.EventMove || last.Move.From != 7 || last.Move.To != 6 || last.Move.Units != 10 {
		t.Errorf("move event = %+v", last.Move)
	}
}

func TestMoveRejects(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, alice, 0, 10, 0)

	tests := []struct {
		name     string
		from, to uint16
		want     *game.Error
	}{
		{"not adjacent", 0, 7, game.ErrNotAdjacent},
		{"same cell", 0, 0, game.ErrNotAdjacent},
		{"out of range", 215, 216, game.ErrInvalidCell},
		{"empty source", 1, 2, game.ErrEmptyAttacker},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.Move(f.ctx, alice, tc.from, tc.to)
			expectCode(t, err, tc.want)
		})
	}

	// bob has no stack at 0 even though alice does.
	_, err := f.engine.Move(f.ctx, bob, 0, 1)
	expectCode(t, err, game.ErrEmptyAttacker)
}

func TestMoveInsufficientBalanceRollsBack(t *testing.T) {
	f := newFixture(t)
	poor := address.Named("poor")
	f.store.Fund(f.ctx, killMint, treasury, poor, game.SpawnCost+game.MoveCost-1)
	f.spawn(t, poor, 0, 4, 0)

	_, err := f.engine.Move(f.ctx, poor, 0, 1)
	expectCode(t, err, game.ErrInsufficientBalance)

	if s := f.stack(t, poor, 0); s.Units != 4 {
		t.Errorf("source units = %d after failed move, expected 4", s.Units)
	}
	if s := f.stack(t, poor, 1); !s.Empty() {
		t.Error("failed move should not touch the destination")
	}
}

func TestKillWin(t *testing.T) {
	f := newFixture(t)

	f.spawn(t, alice, 0, 200, 0)
	f.spawn(t, bob, 1, 10, 0)
	f.clock.Advance(2 * game.SlotsPerMultiplier)
	supplyBefore := mintSupply(t, f)

	res, err := f.engine.Kill(f.ctx, alice, bob, 0, 1)
	if err != nil {
		t.Fatalf("Kill() failed: %v", err)
	}

	// 10 units * 666 * 2
	want := game.KillResult{
		Won:            true,
		Bounty:         13_320,
		Burned:         887,
		Payout:         12_433,
		SurvivingUnits: 90,
		Slot:           1000 + 2*game.SlotsPerMultiplier,
	}
	if *res != want {
		t.Errorf("Kill() = %+v, expected %+v", *res, want)
	}

	if got := f.wallet(t, alice); got != startingBalance-game.SpawnCost+12_433 {
		t.Errorf("alice balance = %d", got)
	}
	if got := f.balance(t, vault); got != 2*game.SpawnCost-13_320 {
		t.Errorf("vault balance = %d", got)
	}
	if got := mintSupply(t, f); got != supplyBefore-887 {
		t.Errorf("supply = %d, expected %d", got, supplyBefore-887)
	}

	if def := f.stack(t, bob, 1); !def.Empty() {
		t.Errorf("defender after kill = %+v", def)
	}
	atk := f.stack(t, alice, 0)
	if atk.Units != 90 || atk.KillSlot != want.Slot || atk.SpawnSlot != 1000 {
		t.Errorf("attacker after kill = %+v", atk)
	}

	cfg, _ := f.engine.Config(f.ctx)
	if cfg.TotalKills != 1 {
		t.Errorf("TotalKills = %d, expected 1", cfg.TotalKills)
	}

	last := f.events[len(f.events)-1]
	if last.Kind != game.EventKill {
		t.Fatalf("last event = %s, expected kill", last.Kind)
	}
	k := last.Kill
	if k.Attacker != alice || k.Defender != bob || k.AttackerCell != 0 || k.DefenderCell != 1 ||
		k.Bounty != 13_320 || k.Burned != 887 || k.SurvivingUnits != 90 {
		t.Errorf("kill event = %+v", k)
	}
}

func TestKillLoss(t *testing.T) {
	f := newFixture(t)

	f.spawn(t, alice, 0, 10, 0)
	f.spawn(t, bob, 1, 10, 0)
	aliceBefore := f.wallet(t, alice)
	vaultBefore := f.balance(t, vault)
	eventsBefore := len(f.events)

	res, err := f.engine.Kill(f.ctx, alice, bob, 0, 1)
	if err != nil {
		t.Fatalf("Kill() failed: %v", err)
	}
	if res.Won || res.Bounty != 0 || res.SurvivingUnits != 0 {
		t.Errorf("Kill() = %+v, expected a loss", res)
	}

	if atk := f.stack(t, alice, 0); !atk.Empty() {
		t.Errorf("attacker after loss = %+v", atk)
	}
	if def := f.stack(t, bob, 1); def.Units != 10 {
		t.Errorf("defender after loss = %+v", def)
	}
	if len(f.events) != eventsBefore {
		t.Error("a lost attack should emit no event")
	}
	if f.wallet(t, alice) != aliceBefore || f.balance(t, vault) != vaultBefore {
		t.Error("a lost attack should move no tokens")
	}
	cfg, _ := f.engine.Config(f.ctx)
	if cfg.TotalKills != 0 {
		t.Errorf("TotalKills = %d after a loss", cfg.TotalKills)
	}
}

func TestKillZeroBounty(t *testing.T) {
	f := newFixture(t)

	// Reapers carry no bounty.
	f.spawn(t, alice, 0, 10_000, 0)
	f.spawn(t, bob, 1, 0, 1)
	aliceBefore := f.wallet(t, alice)

	res, err := f.engine.Kill(f.ctx, alice, bob, 0, 1)
	if err != nil {
		t.Fatalf("Kill() failed: %v", err)
	}
	if !res.Won || res.Bounty != 0 || res.Payout != 0 || res.Burned != 0 {
		t.Errorf("Kill() = %+v, expected a win with no bounty", res)
	}
	if f.wallet(t, alice) != aliceBefore {
		t.Error("zero bounty should not pay out")
	}
}

func TestForeignOwnerRecordRejected(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, bob, 11, 10, 0)

	planted := &game.AgentStack{Owner: bob, CellID: 5, Units: 50, SpawnSlot: 1000}
	data, err := planted.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() failed: %v", err)
	}
	err = f.store.Exec(f.ctx, func(tx *storage.Tx) error {
		return tx.Create(f.ctx, address.Stack(alice, 5), address.NamespaceStack, data)
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	before := f.wallet(t, alice)

	_, err = f.engine.Move(f.ctx, alice, 5, 4)
	expectCode(t, err, game.ErrUnauthorized)

	_, err = f.engine.Kill(f.ctx, alice, bob, 5, 11)
	expectCode(t, err, game.ErrUnauthorized)

	if got := f.wallet(t, alice); got != before {
		t.Errorf("alice balance = %d after rejected instructions, expected %d", got, before)
	}
}

func TestKillRejects(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, alice, 0, 10, 0)
	f.spawn(t, alice, 1, 10, 0)
	f.spawn(t, bob, 6, 10, 0)

	tests := []struct {
		name     string
		defender address.Address
		atkCell  uint16
		defCell  uint16
		want     *game.Error
	}{
		{"self attack", alice, 0, 1, game.ErrSelfAttack},
		{"empty defender", bob, 0, 1, game.ErrEmptyDefender},
		{"empty attacker", bob, 2, 8, game.ErrEmptyAttacker},
		{"not adjacent", bob, 1, 6, game.ErrNotAdjacent},
		{"invalid cell", bob, 215, 300, game.ErrInvalidCell},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.Kill(f.ctx, alice, tc.defender, tc.atkCell, tc.defCell)
			expectCode(t, err, tc.want)
		})
	}
}

func TestPauseGate(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, alice, 0, 100, 0)
	f.spawn(t, bob, 1, 1, 0)

	expectCode(t, f.engine.SetPaused(f.ctx, alice, true), game.ErrUnauthorized)

	if err := f.engine.SetPaused(f.ctx, admin, true); err != nil {
		t.Fatalf("SetPaused() failed: %v", err)
	}

	_, err := f.engine.Spawn(f.ctx, alice, 0, 1, 0)
	expectCode(t, err, game.ErrPaused)
	_, err = f.engine.Move(f.ctx, alice, 0, 6)
	expectCode(t, err, game.ErrPaused)
	_, err = f.engine.Kill(f.ctx, alice, bob, 0, 1)
	expectCode(t, err, game.ErrPaused)
	// Pause wins over other failures.
	_, err = f.engine.Spawn(f.ctx, alice, 999, 0, 0)
	expectCode(t, err, game.ErrPaused)

	// Admin operations keep working.
	if err := f.engine.Withdraw(f.ctx, admin, 1, address.TokenAccount(admin, killMint)); err != nil {
		t.Errorf("Withdraw() while paused failed: %v", err)
	}
	if err := f.engine.SetPaused(f.ctx, admin, false); err != nil {
		t.Fatalf("unpause failed: %v", err)
	}
	if _, err := f.engine.Kill(f.ctx, alice, bob, 0, 1); err != nil {
		t.Errorf("Kill() after unpause failed: %v", err)
	}
}

func TestWithdraw(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, alice, 0, 1, 0)
	dest := address.TokenAccount(admin, killMint)

	expectCode(t, f.engine.Withdraw(f.ctx, alice, 1, dest), game.ErrUnauthorized)
	expectCode(t, f.engine.Withdraw(f.ctx, admin, game.SpawnCost+1, dest), game.ErrInsufficientBalance)

	if err := f.engine.Withdraw(f.ctx, admin, game.SpawnCost, dest); err != nil {
		t.Fatalf("Withdraw() failed: %v", err)
	}
	if got := f.balance(t, dest); got != game.SpawnCost {
		t.Errorf("destination balance = %d", got)
	}
	if got := f.balance(t, vault); got != 0 {
		t.Errorf("vault balance = %d, expected 0", got)
	}
}

func TestQueries(t *testing.T) {
	f := newFixture(t)

	f.spawn(t, alice, 0, 5, 0)
	f.clock.Advance(3 * game.SlotsPerMultiplier)
	f.spawn(t, bob, 1, 5, 0)
	f.spawn(t, bob, 6, 20, 0)
	f.spawn(t, bob, 100, 1, 0)

	stacks, err := f.engine.Stacks(f.ctx)
	if err != nil {
		t.Fatalf("Stacks() failed: %v", err)
	}
	if len(stacks) != 4 || stacks[0].CellID != 0 || stacks[3].CellID != 100 {
		t.Errorf("Stacks() = %+v", stacks)
	}

	// alice@0: 5*666*3 = 9990, bob@6: 20*666 = 13320, bob@1: 3330, bob@100: 666
	ripe, err := f.engine.RipeStacks(f.ctx, 3)
	if err != nil {
		t.Fatalf("RipeStacks() failed: %v", err)
	}
	wantCells := []uint16{6, 0, 1}
	if len(ripe) != 3 {
		t.Fatalf("RipeStacks(3) = %d entries", len(ripe))
	}
	for i, c := range wantCells {
		if ripe[i].CellID != c {
			t.Errorf("RipeStacks()[%d] = cell %d, expected %d", i, ripe[i].CellID, c)
		}
	}
	if ripe[0].Bounty != 13_320 || ripe[1].Bounty != 9990 {
		t.Errorf("bounties = %d, %d", ripe[0].Bounty, ripe[1].Bounty)
	}

	targets, err := f.engine.Targets(f.ctx, alice, 0)
	if err != nil {
		t.Fatalf("Targets() failed: %v", err)
	}
	if len(targets) != 2 || targets[0].CellID != 6 || targets[1].CellID != 1 {
		t.Errorf("Targets() = %+v", targets)
	}

	bounty, err := f.engine.PendingBounty(f.ctx, alice, 0)
	if err != nil || bounty != 9990 {
		t.Errorf("PendingBounty() = %d, %v", bounty, err)
	}

	_, err = f.engine.Stack(f.ctx, alice, 216)
	expectCode(t, err, game.ErrInvalidCell)
}

func TestEventsPersisted(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, alice, 0, 1, 0)
	f.spawn(t, bob, 1, 1, 0)
	if _, err := f.engine.Move(f.ctx, bob, 1, 2); err != nil {
		t.Fatalf("Move() failed: %v", err)
	}

	stored, err := f.store.Events(f.ctx, 0, 0)
	if err != nil {
		t.Fatalf("Events() failed: %v", err)
	}
	if len(stored) != len(f.events) || len(stored) != 3 {
		t.Fatalf("stored %d events, published %d", len(stored), len(f.events))
	}
	for i := range stored {
		if stored[i].Seq != f.events[i].Seq || stored[i].Kind != f.events[i].Kind {
			t.Errorf("event %d: stored %+v, published %+v", i, stored[i], f.events[i])
		}
	}
}

func mintSupply(t *testing.T, f *fixture) uint64 {
	t.Helper()
	m, err := f.store.Mint(f.ctx, killMint)
	if err != nil {
		t.Fatalf("Mint() failed: %v", err)
	}
	return m.Supply
}
