// Package script replays YAML scenarios against a fresh in-memory economy.
// A scenario funds a set of named wallets and then runs a list of steps;
// the same scenario always produces the same events.
package script

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed scenario.schema.json
var schemaJSON []byte

const schemaURL = "scenario.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// Step operations.
const (
	OpInitialize = "initialize"
	OpSpawn      = "spawn"
	OpMove       = "move"
	OpKill       = "kill"
	OpPause      = "pause"
	OpUnpause    = "unpause"
	OpWithdraw   = "withdraw"
	OpAdvance    = "advance"
)

// Scenario is a parsed script.
type Scenario struct {
	Name      string    `json:"name"`
	Mint      string    `json:"mint"`
	StartSlot uint64    `json:"start_slot"`
	Accounts  []Account `json:"accounts"`
	Steps     []Step    `json:"steps"`
}

// Account is a wallet funded before the first step.
type Account struct {
	Name    string `json:"name"`
	Balance uint64 `json:"balance"`
}

// Step is one instruction or clock adjustment. Which fields apply depends
// on Op.
type Step struct {
	Op           string `json:"op"`
	As           string `json:"as,omitempty"`
	Mint         string `json:"mint,omitempty"`
	Cell         uint16 `json:"cell,omitempty"`
	Units        uint64 `json:"units,omitempty"`
	Reapers      uint64 `json:"reapers,omitempty"`
	From         uint16 `json:"from,omitempty"`
	To           uint16 `json:"to,omitempty"`
	Defender     string `json:"defender,omitempty"`
	AttackerCell uint16 `json:"attacker_cell,omitempty"`
	DefenderCell uint16 `json:"defender_cell,omitempty"`
	Amount       uint64 `json:"amount,omitempty"`
	Dest         string `json:"dest,omitempty"`
	Slots        uint64 `json:"slots,omitempty"`
	ExpectError  string `json:"expect_error,omitempty"`
}

func schema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = c.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("script: cannot read %s: %w", path, err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("script: %s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes a YAML scenario and validates it against the scenario schema.
func Parse(data []byte) (*Scenario, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}

	// The schema validator works on JSON values, so round-trip through JSON
	// keeping numbers exact.
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("scenario is not a JSON document: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}

	s, err := schema()
	if err != nil {
		return nil, fmt.Errorf("scenario schema: %w", err)
	}
	if err := s.Validate(value); err != nil {
		return nil, err
	}

	var sc Scenario
	if err := json.Unmarshal(raw, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}
