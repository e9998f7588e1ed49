// Package scan defines the data model for privacy-risk scans: the normalized
// Context that detectors read, the RiskSignal they produce, and the
// PrivacyReport the aggregator emits.
//
// A Context is built once by the normalizer from a raw chain snapshot and is
// read-only afterwards. Detectors must treat it as immutable. The report JSON
// shape is the external contract consumed by the terminal, web, and
// AI-assistant front ends; field names must not change.
package scan

import (
	"sort"
	"time"

	"github.com/solcloak/solcloak/internal/labels"
)

// TargetType identifies what kind of on-chain entity a scan covers.
type TargetType string

const (
	TargetWallet      TargetType = "wallet"
	TargetTransaction TargetType = "transaction"
	TargetProgram     TargetType = "program"
)

// Severity is the three-level risk taxonomy. Findings that older docs called
// "critical" map to the top of HIGH; there is no fourth level.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Rank orders severities for comparison: LOW=1, MEDIUM=2, HIGH=3.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// InstructionCategory is the closed classification for normalized instructions.
type InstructionCategory string

const (
	CategoryTransfer           InstructionCategory = "transfer"
	CategorySwap               InstructionCategory = "swap"
	CategoryStake              InstructionCategory = "stake"
	CategoryVote               InstructionCategory = "vote"
	CategoryProgramInteraction InstructionCategory = "program_interaction"
	CategoryTokenOperation     InstructionCategory = "token_operation"
	CategoryUnknown            InstructionCategory = "unknown"
)

// Transfer is a normalized value movement, native or SPL token.
// Amount is in UI units (SOL for native, token units for SPL).
type Transfer struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Amount    float64 `json:"amount"`
	Token     string  `json:"token,omitempty"` // mint address; empty means native SOL
	Signature string  `json:"signature"`
	BlockTime *int64  `json:"blockTime"`
}

// Instruction is one normalized instruction with its classification.
type Instruction struct {
	ProgramID string              `json:"programId"`
	Category  InstructionCategory `json:"category"`
	Signature string              `json:"signature"`
	BlockTime *int64              `json:"blockTime"`
	Accounts  []string            `json:"accounts,omitempty"`
	Data      string              `json:"data,omitempty"`
}

// TransactionMeta is per-transaction metadata for successfully parsed
// transactions only. A failed fetch never produces one of these.
type TransactionMeta struct {
	Signature        string   `json:"signature"`
	BlockTime        *int64   `json:"blockTime"`
	FeePayer         string   `json:"feePayer"`
	Signers          []string `json:"signers"`
	Memo             string   `json:"memo,omitempty"`
	PriorityFee      uint64   `json:"priorityFee,omitempty"` // microlamports per CU
	ComputeUnitsUsed uint64   `json:"computeUnitsUsed,omitempty"`
}

// TokenEventType distinguishes token account lifecycle events.
type TokenEventType string

const (
	TokenEventCreate TokenEventType = "create"
	TokenEventClose  TokenEventType = "close"
)

// TokenAccountEvent records a token account being created or closed.
// RentRefund is the lamport destination when a close returns rent.
type TokenAccountEvent struct {
	Type         TokenEventType `json:"type"`
	TokenAccount string         `json:"tokenAccount"`
	Owner        string         `json:"owner"`
	Mint         string         `json:"mint,omitempty"`
	Signature    string         `json:"signature"`
	BlockTime    *int64         `json:"blockTime"`
	RentRefund   string         `json:"rentRefund,omitempty"`
}

// Delegation records a stake delegation to a validator vote account.
type Delegation struct {
	StakeAccount string `json:"stakeAccount"`
	VoteAccount  string `json:"voteAccount"`
	Signature    string `json:"signature"`
}

// PDAInteraction records a touch of a program-derived address.
type PDAInteraction struct {
	PDA       string   `json:"pda"`
	ProgramID string   `json:"programId"`
	Signature string   `json:"signature"`
	Seeds     []string `json:"seeds,omitempty"`
}

// TokenAccountInfo is a token balance held by the scanned wallet.
type TokenAccountInfo struct {
	Mint    string  `json:"mint"`
	Address string  `json:"address"`
	Balance float64 `json:"balance"`
}

// TimeRange bounds the observed block times. Nil means no timestamped data.
type TimeRange struct {
	Earliest *int64 `json:"earliest"`
	Latest   *int64 `json:"latest"`
}

// Context is the normalized, immutable snapshot that every detector reads.
// The frequency maps double as membership sets; any evidence derived from
// them must be sorted before it goes into a signal.
type Context struct {
	Target     string
	TargetType TargetType

	Transfers          []Transfer
	Instructions       []Instruction
	Transactions       []TransactionMeta
	TokenAccountEvents []TokenAccountEvent
	PDAInteractions    []PDAInteraction
	Delegations        []Delegation

	// Derived frequency maps (address → occurrence count).
	Counterparties map[string]int
	FeePayers      map[string]int
	Signers        map[string]int
	Programs       map[string]int

	// Labels for every counterparty that resolved, keyed by address.
	Labels map[string]*labels.Label

	// Wallet scans only.
	TokenAccounts []TokenAccountInfo

	TimeRange TimeRange

	// TransactionCount counts successfully parsed transactions, never raw
	// signatures requested and never failed fetches.
	TransactionCount int
}

// SortedCounterparties returns counterparty addresses in lexicographic order
// for deterministic evidence building.
func (c *Context) SortedCounterparties() []string {
	return sortedKeys(c.Counterparties)
}

// SortedFeePayers returns fee payer addresses in lexicographic order.
func (c *Context) SortedFeePayers() []string {
	return sortedKeys(c.FeePayers)
}

// SortedSigners returns signer addresses in lexicographic order.
func (c *Context) SortedSigners() []string {
	return sortedKeys(c.Signers)
}

// SortedPrograms returns program ids in lexicographic order.
func (c *Context) SortedPrograms() []string {
	return sortedKeys(c.Programs)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Evidence is one human-readable supporting fact for a signal. Structured
// data may ride along but Description must stand on its own.
type Evidence struct {
	Description string `json:"description"`
	Type        string `json:"type,omitempty"`
	Reference   string `json:"reference,omitempty"` // signature or address
	Data        any    `json:"data,omitempty"`
}

// RiskSignal is one detector finding. Immutable once returned.
type RiskSignal struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Severity   Severity   `json:"severity"`
	Category   string     `json:"category,omitempty"`
	Reason     string     `json:"reason"`
	Impact     string     `json:"impact"`
	Evidence   []Evidence `json:"evidence"`
	Mitigation string     `json:"mitigation"`
	Confidence float64    `json:"confidence"`
}

// ReportSummary is the roll-up section of a report.
type ReportSummary struct {
	TotalSignals         int `json:"totalSignals"`
	HighRiskSignals      int `json:"highRiskSignals"`
	MediumRiskSignals    int `json:"mediumRiskSignals"`
	LowRiskSignals       int `json:"lowRiskSignals"`
	TransactionsAnalyzed int `json:"transactionsAnalyzed"`
}

// KnownEntity is a deduplicated label mention in the final report.
type KnownEntity struct {
	Address     string      `json:"address"`
	Name        string      `json:"name"`
	Type        labels.Type `json:"type"`
	Description string      `json:"description,omitempty"`
}

// ReportVersion is the report schema version.
const ReportVersion = "1.0"

// PrivacyReport is the long-lived scan artifact. The JSON field names here
// are parsed structurally by downstream formatters; treat them as frozen.
type PrivacyReport struct {
	Version       string        `json:"version"`
	Timestamp     time.Time     `json:"timestamp"`
	TargetType    TargetType    `json:"targetType"`
	Target        string        `json:"target"`
	OverallRisk   Severity      `json:"overallRisk"`
	Signals       []RiskSignal  `json:"signals"`
	Summary       ReportSummary `json:"summary"`
	Mitigations   []string      `json:"mitigations"`
	KnownEntities []KnownEntity `json:"knownEntities"`
}
