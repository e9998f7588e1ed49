package scan

import "encoding/json"

// Raw input shapes produced by the collection layer. These mirror the
// jsonParsed encoding of the Solana JSON-RPC getTransaction response closely
// enough that the normalizer can work from either a live RPC fetch or a
// recorded fixture.
//
// Fetch failure is modeled as explicit absence: a RawTransaction whose
// Payload is nil. The normalizer skips it without counting it.

// SignatureInfo is one entry from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string `json:"signature"`
	Slot      uint64 `json:"slot"`
	Err       any    `json:"err"`
	Memo      string `json:"memo,omitempty"`
	BlockTime *int64 `json:"blockTime"`
}

// RawTransaction pairs a signature with its fetched payload.
// Payload == nil means the fetch failed or the transaction was not found.
type RawTransaction struct {
	Signature string     `json:"signature"`
	Payload   *TxPayload `json:"payload"`
}

// TxPayload is the parsed transaction body.
type TxPayload struct {
	Slot        uint64       `json:"slot"`
	BlockTime   *int64       `json:"blockTime"`
	Meta        *TxMeta      `json:"meta"`
	AccountKeys []AccountKey `json:"accountKeys"`
	// Instructions in message order, including flattened inner instructions.
	Instructions []RawInstruction `json:"instructions"`
}

// AccountKey is one account in the transaction message. The first key is the
// fee payer by chain convention.
type AccountKey struct {
	Pubkey   string `json:"pubkey"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
}

// TxMeta carries execution metadata.
type TxMeta struct {
	Err                  any            `json:"err"`
	Fee                  uint64         `json:"fee"`
	ComputeUnitsConsumed uint64         `json:"computeUnitsConsumed,omitempty"`
	PreBalances          []uint64       `json:"preBalances,omitempty"`
	PostBalances         []uint64       `json:"postBalances,omitempty"`
	PreTokenBalances     []TokenBalance `json:"preTokenBalances,omitempty"`
	PostTokenBalances    []TokenBalance `json:"postTokenBalances,omitempty"`
	LogMessages          []string       `json:"logMessages,omitempty"`
}

// TokenBalance is a pre/post token balance entry.
type TokenBalance struct {
	AccountIndex int     `json:"accountIndex"`
	Mint         string  `json:"mint"`
	Owner        string  `json:"owner"`
	UIAmount     float64 `json:"uiAmount"`
	Decimals     int     `json:"decimals"`
}

// RawInstruction is one instruction in jsonParsed form. Parsed is non-nil
// only for programs the RPC node understands (system, spl-token, memo,
// stake, ...); everything else carries base58 Data.
type RawInstruction struct {
	ProgramID string            `json:"programId"`
	Program   string            `json:"program,omitempty"` // RPC-friendly name, e.g. "spl-token"
	Accounts  []string          `json:"accounts,omitempty"`
	Data      string            `json:"data,omitempty"`
	Parsed    *ParsedInstrution `json:"parsed,omitempty"`
}

// ParsedInstrution is the {type, info} body of a jsonParsed instruction.
type ParsedInstrution struct {
	Type string          `json:"type"`
	Info json.RawMessage `json:"info,omitempty"`
}

// RawTokenAccount is one entry from getTokenAccountsByOwner.
type RawTokenAccount struct {
	Address  string  `json:"address"`
	Mint     string  `json:"mint"`
	Owner    string  `json:"owner"`
	UIAmount float64 `json:"uiAmount"`
}

// RawProgramAccount is one entry from getProgramAccounts.
type RawProgramAccount struct {
	Address string `json:"address"`
	Owner   string `json:"owner"`
	Bytes   int    `json:"bytes"`
}

// RawWalletData is the snapshot for a wallet scan.
type RawWalletData struct {
	Address       string            `json:"address"`
	Signatures    []SignatureInfo   `json:"signatures"`
	Transactions  []RawTransaction  `json:"transactions"`
	TokenAccounts []RawTokenAccount `json:"tokenAccounts,omitempty"`
}

// RawTransactionData is the snapshot for a single-transaction scan.
type RawTransactionData struct {
	Signature   string         `json:"signature"`
	Transaction RawTransaction `json:"transaction"`
}

// RawProgramData is the snapshot for a program activity scan.
type RawProgramData struct {
	ProgramID    string              `json:"programId"`
	Accounts     []RawProgramAccount `json:"accounts,omitempty"`
	Signatures   []SignatureInfo     `json:"signatures"`
	Transactions []RawTransaction    `json:"transactions"`
}
