package script

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"lukechampine.com/blake3"

	"github.com/HouseOfHufflepuff/kill/internal/address"
	"github.com/HouseOfHufflepuff/kill/internal/clock"
	"github.com/HouseOfHufflepuff/kill/internal/game"
	"github.com/HouseOfHufflepuff/kill/internal/storage"
)

// Treasury is the mint authority that funds scenario accounts.
var Treasury = address.Named("treasury")

// StepResult records what one step did.
type StepResult struct {
	Index  int       `json:"index"`
	Op     string    `json:"op"`
	As     string    `json:"as,omitempty"`
	Slot   uint64    `json:"slot"`
	Code   game.Code `json:"code,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

// Balance is a wallet's token balance at the end of a run.
type Balance struct {
	Name    string          `json:"name"`
	Account address.Address `json:"account"`
	Amount  uint64          `json:"amount"`
}

// Report is the outcome of a scenario run.
type Report struct {
	Name     string              `json:"name"`
	Steps    []StepResult        `json:"steps"`
	Events   []game.Event        `json:"events"`
	Stacks   []game.AgentStack   `json:"stacks"`
	Config   *game.EconomyConfig `json:"config,omitempty"`
	Balances []Balance           `json:"balances"`
	Vault    uint64              `json:"vault"`
	Digest   string              `json:"digest"`
}

// Run replays sc on a fresh in-memory store and returns the report. A step
// whose outcome differs from its expect_error stops the run; the partial
// report is returned with the error.
func Run(ctx context.Context, sc *Scenario, logger *log.Logger) (*Report, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	store := storage.NewMemory()
	clk := clock.NewManual(sc.StartSlot)
	engine := game.NewEngine(store, clk, logger)

	mint := address.Mint(sc.Mint)
	if err := store.CreateMint(ctx, mint, Treasury, game.Decimals); err != nil {
		return nil, fmt.Errorf("script: create mint: %w", err)
	}
	for _, acct := range sc.Accounts {
		if _, err := store.Fund(ctx, mint, Treasury, address.Named(acct.Name), acct.Balance); err != nil {
			return nil, fmt.Errorf("script: fund %s: %w", acct.Name, err)
		}
	}

	rep := &Report{Name: sc.Name}
	engine.Subscribe(func(ev game.Event) { rep.Events = append(rep.Events, ev) })

	r := &run{ctx: ctx, store: store, engine: engine, clock: clk, mint: mint}
	for i, step := range sc.Steps {
		res := StepResult{Index: i, Op: step.Op, As: step.As, Slot: clk.Now()}
		detail, err := r.step(step)
		res.Detail = detail
		res.Code = game.CodeOf(err)
		rep.Steps = append(rep.Steps, res)

		if err := check(step, err); err != nil {
			return rep, fmt.Errorf("script: step %d (%s): %w", i, step.Op, err)
		}
		logger.Debug("step", "index", i, "op", step.Op, "slot", res.Slot, "code", res.Code)
	}

	if err := r.summarize(rep, sc); err != nil {
		return rep, err
	}
	return rep, nil
}

// check compares a step's error with its expectation.
func check(step Step, err error) error {
	if step.ExpectError == "" {
		return err
	}
	want, ok := game.ParseCode(step.ExpectError)
	if !ok {
		return fmt.Errorf("unknown error code %q", step.ExpectError)
	}
	if err == nil {
		return fmt.Errorf("expected %s, step succeeded", want)
	}
	if got := game.CodeOf(err); got != want {
		return fmt.Errorf("expected %s, got %w", want, err)
	}
	return nil
}

type run struct {
	ctx    context.Context
	store  *storage.Memory
	engine *game.Engine
	clock  *clock.Manual
	mint   address.Address
}

func (r *run) step(s Step) (string, error) {
	if s.Op == OpAdvance {
		return fmt.Sprintf("now %d", r.clock.Advance(s.Slots)), nil
	}

	signer, err := address.Resolve(s.As)
	if err != nil {
		return "", err
	}

	switch s.Op {
	case OpInitialize:
		mint := r.mint
		if s.Mint != "" {
			mint = address.Mint(s.Mint)
		}
		cfg, err := r.engine.Initialize(r.ctx, signer, mint)
		if err != nil {
			return "", err
		}
		return "vault " + cfg.Vault.Short(), nil

	case OpSpawn:
		st, err := r.engine.Spawn(r.ctx, signer, s.Cell, s.Units, s.Reapers)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("cell %d holds %d units %d reapers", st.CellID, st.Units, st.Reapers), nil

	case OpMove:
		res, err := r.engine.Move(r.ctx, signer, s.From, s.To)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("moved %d units %d reapers to %d", res.Units, res.Reapers, s.To), nil

	case OpKill:
		defender, err := address.Resolve(s.Defender)
		if err != nil {
			return "", err
		}
		res, err := r.engine.Kill(r.ctx, signer, defender, s.AttackerCell, s.DefenderCell)
		if err != nil {
			return "", err
		}
		if !res.Won {
			return "attacker lost", nil
		}
		return fmt.Sprintf("won bounty %d burned %d", res.Bounty, res.Burned), nil

	case OpPause, OpUnpause:
		paused := s.Op == OpPause
		if err := r.engine.SetPaused(r.ctx, signer, paused); err != nil {
			return "", err
		}
		return fmt.Sprintf("paused=%t", paused), nil

	case OpWithdraw:
		owner, err := address.Resolve(s.Dest)
		if err != nil {
			return "", err
		}
		dest := address.TokenAccount(owner, r.mint)
		if err := r.engine.Withdraw(r.ctx, signer, s.Amount, dest); err != nil {
			return "", err
		}
		return fmt.Sprintf("withdrew %d", s.Amount), nil
	}
	return "", fmt.Errorf("unknown op %q", s.Op)
}

func (r *run) summarize(rep *Report, sc *Scenario) error {
	stacks, err := r.engine.Stacks(r.ctx)
	if err != nil {
		return err
	}
	rep.Stacks = stacks

	if cfg, err := r.engine.Config(r.ctx); err == nil {
		rep.Config = cfg
		if rep.Vault, err = r.store.Balance(r.ctx, cfg.Vault); err != nil {
			return err
		}
	}

	for _, acct := range sc.Accounts {
		account := address.TokenAccount(address.Named(acct.Name), r.mint)
		amount, err := r.store.Balance(r.ctx, account)
		if err != nil {
			return err
		}
		rep.Balances = append(rep.Balances, Balance{Name: acct.Name, Account: account, Amount: amount})
	}

	digest, err := Digest(rep.Events)
	if err != nil {
		return err
	}
	rep.Digest = digest
	return nil
}

// Digest hashes the JSON encoding of events, one per line, with blake3.
func Digest(events []game.Event) (string, error) {
	h := blake3.New(32, nil)
	for _, ev := range events {
		b, err := json.Marshal(ev)
		if err != nil {
			return "", err
		}
		h.Write(b)
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
