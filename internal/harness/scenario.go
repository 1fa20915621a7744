package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couplet-xyz/couplet/internal/asset"
)

// Scenario defines one conformance test: a fresh deployment, funding setup,
// a flow of operations with expected outcomes, and final assertions.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Deployment overrides deployment constants. Optional.
	Deployment DeploymentSpec `yaml:"deployment,omitempty"`

	// Setup funds actors before the flow. Funding mints stablecoin to the
	// actor and approves the engine for the same amount.
	Setup []SetupStep `yaml:"setup,omitempty"`

	// Flow is the ordered list of operations to run against the engine.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final state and the event trace.
	Assertions []Assertion `yaml:"assertions"`
}

// DeploymentSpec overrides deployment constants for one scenario.
type DeploymentSpec struct {
	// Fee is the mint fee and burn refund in base units. Defaults to the
	// pair unit (10^6).
	Fee string `yaml:"fee,omitempty"`

	// BasePointer is prepended to relative metadata pointers.
	BasePointer string `yaml:"base_pointer,omitempty"`
}

// SetupStep funds one actor.
type SetupStep struct {
	// Fund names the actor receiving stablecoin.
	Fund string `yaml:"fund"`

	// Amount is the funded amount in base units. The engine is approved
	// for the full amount.
	Amount string `yaml:"amount"`
}

// FlowStep is one operation invocation.
type FlowStep struct {
	// Invoke names the operation: mint_pair, burn_pair, transfer_pair,
	// pause, unpause, withdraw.
	Invoke string `yaml:"invoke"`

	// Caller is the invoking address.
	Caller string `yaml:"caller"`

	// Pointer is the metadata pointer (mint_pair).
	Pointer string `yaml:"pointer,omitempty"`

	// To is the recipient (transfer_pair).
	To string `yaml:"to,omitempty"`

	// TokenID targets a pair (burn_pair, transfer_pair).
	TokenID *uint64 `yaml:"token_id,omitempty"`

	// Token is the custodied token address (withdraw).
	Token string `yaml:"token,omitempty"`

	// Amount in base units (withdraw).
	Amount string `yaml:"amount,omitempty"`

	// Expect is "ok" (default) or an error code such as
	// "INSUFFICIENT_FUNDS" or "PAUSED".
	Expect string `yaml:"expect,omitempty"`
}

// Assertion validates final state or the event trace.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// TokenID targets a pair (pair_live, owner).
	TokenID *uint64 `yaml:"token_id,omitempty"`

	// Live is the expected liveness (pair_live). Defaults to true.
	Live *bool `yaml:"live,omitempty"`

	// Owner is the expected owner (owner).
	Owner string `yaml:"owner,omitempty"`

	// Token and Account select a balance row (balance).
	Token   string `yaml:"token,omitempty"`
	Account string `yaml:"account,omitempty"`

	// Amount is the expected amount in base units (balance, escrow).
	Amount string `yaml:"amount,omitempty"`

	// Event is one event type (event_count).
	Event string `yaml:"event,omitempty"`

	// Count is the expected number of occurrences (event_count).
	Count int `yaml:"count,omitempty"`

	// Events is the full expected type sequence (event_order).
	Events []string `yaml:"events,omitempty"`
}

// Assertion type constants.
const (
	AssertPairLive    = "pair_live"
	AssertOwner       = "owner"
	AssertBalance     = "balance"
	AssertEscrow      = "escrow"
	AssertEventCount  = "event_count"
	AssertEventOrder  = "event_order"
	AssertReplayClean = "replay_clean"
)

// Operation names accepted in flow steps.
const (
	OpMintPair     = "mint_pair"
	OpBurnPair     = "burn_pair"
	OpTransferPair = "transfer_pair"
	OpPause        = "pause"
	OpUnpause      = "unpause"
	OpWithdraw     = "withdraw"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so a typo fails loudly instead of silently skipping a check.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML from memory.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Deployment.Fee != "" {
		if _, err := asset.ParseAmount(s.Deployment.Fee); err != nil {
			return fmt.Errorf("deployment.fee: %w", err)
		}
	}

	for i, step := range s.Setup {
		if step.Fund == "" {
			return fmt.Errorf("setup[%d]: fund is required", i)
		}
		if _, err := asset.ParseAmount(step.Amount); err != nil {
			return fmt.Errorf("setup[%d].amount: %w", i, err)
		}
	}

	for i, step := range s.Flow {
		if err := validateFlowStep(i, &step); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateFlowStep(index int, step *FlowStep) error {
	if step.Caller == "" {
		return fmt.Errorf("flow[%d]: caller is required", index)
	}
	switch step.Invoke {
	case OpMintPair:
		if step.Pointer == "" {
			return fmt.Errorf("flow[%d]: pointer is required for mint_pair", index)
		}
	case OpBurnPair:
		if step.TokenID == nil {
			return fmt.Errorf("flow[%d]: token_id is required for burn_pair", index)
		}
	case OpTransferPair:
		if step.TokenID == nil {
			return fmt.Errorf("flow[%d]: token_id is required for transfer_pair", index)
		}
		if step.To == "" {
			return fmt.Errorf("flow[%d]: to is required for transfer_pair", index)
		}
	case OpPause, OpUnpause:
		// caller only
	case OpWithdraw:
		if step.Token == "" {
			return fmt.Errorf("flow[%d]: token is required for withdraw", index)
		}
		if step.Amount == "" {
			return fmt.Errorf("flow[%d]: amount is required for withdraw", index)
		}
	case "":
		return fmt.Errorf("flow[%d]: invoke is required", index)
	default:
		return fmt.Errorf("flow[%d]: unknown operation %q", index, step.Invoke)
	}
	if step.Expect != "" && step.Expect != "ok" && !knownErrorCode(step.Expect) {
		return fmt.Errorf("flow[%d]: unknown expect %q", index, step.Expect)
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertPairLive:
		if a.TokenID == nil {
			return fmt.Errorf("assertions[%d]: token_id is required for pair_live", index)
		}
	case AssertOwner:
		if a.TokenID == nil {
			return fmt.Errorf("assertions[%d]: token_id is required for owner", index)
		}
		if a.Owner == "" {
			return fmt.Errorf("assertions[%d]: owner is required for owner", index)
		}
	case AssertBalance:
		if a.Token == "" || a.Account == "" {
			return fmt.Errorf("assertions[%d]: token and account are required for balance", index)
		}
		if _, err := asset.ParseAmount(a.Amount); err != nil {
			return fmt.Errorf("assertions[%d].amount: %w", index, err)
		}
	case AssertEscrow:
		if _, err := asset.ParseAmount(a.Amount); err != nil {
			return fmt.Errorf("assertions[%d].amount: %w", index, err)
		}
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertEventOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for event_order", index)
		}
	case AssertReplayClean:
		// no fields
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func knownErrorCode(s string) bool {
	switch asset.ErrorCode(s) {
	case asset.CodeValidation, asset.CodeAuthorization, asset.CodeInsufficient,
		asset.CodeInvariant, asset.CodePaused, asset.CodeReentrancy:
		return true
	}
	return false
}
