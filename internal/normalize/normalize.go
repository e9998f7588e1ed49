// Package normalize converts raw chain snapshots into the canonical scan
// Context. It is the only layer that performs defensive recovery: any field
// of the raw input may be missing, zero, or nil, and normalization still
// succeeds. Downstream detectors get a well-formed Context or nothing.
package normalize

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/solcloak/solcloak/internal/labels"
	"github.com/solcloak/solcloak/internal/scan"
)

const lamportsPerSOL = 1_000_000_000

// Wallet normalizes a wallet-history snapshot.
func Wallet(ctx context.Context, raw *scan.RawWalletData, lp labels.Provider) (*scan.Context, error) {
	if raw == nil {
		raw = &scan.RawWalletData{}
	}
	b := newBuilder(raw.Address, scan.TargetWallet)
	for _, tx := range raw.Transactions {
		b.addTransaction(tx)
	}
	for _, ta := range raw.TokenAccounts {
		b.sc.TokenAccounts = append(b.sc.TokenAccounts, scan.TokenAccountInfo{
			Mint:    ta.Mint,
			Address: ta.Address,
			Balance: ta.UIAmount,
		})
	}
	return b.finish(ctx, lp)
}

// Transaction normalizes a single-transaction snapshot.
func Transaction(ctx context.Context, raw *scan.RawTransactionData, lp labels.Provider) (*scan.Context, error) {
	if raw == nil {
		raw = &scan.RawTransactionData{}
	}
	b := newBuilder(raw.Signature, scan.TargetTransaction)
	b.addTransaction(raw.Transaction)
	return b.finish(ctx, lp)
}

// Program normalizes a program-activity snapshot.
func Program(ctx context.Context, raw *scan.RawProgramData, lp labels.Provider) (*scan.Context, error) {
	if raw == nil {
		raw = &scan.RawProgramData{}
	}
	b := newBuilder(raw.ProgramID, scan.TargetProgram)
	for _, tx := range raw.Transactions {
		b.addTransaction(tx)
	}
	return b.finish(ctx, lp)
}

// builder accumulates normalized data for one scan.
type builder struct {
	sc *scan.Context
}

func newBuilder(target string, tt scan.TargetType) *builder {
	return &builder{sc: &scan.Context{
		Target:         target,
		TargetType:     tt,
		Counterparties: make(map[string]int),
		FeePayers:      make(map[string]int),
		Signers:        make(map[string]int),
		Programs:       make(map[string]int),
		Labels:         make(map[string]*labels.Label),
	}}
}

// addTransaction folds one raw transaction into the context. A nil payload
// is a failed fetch: it contributes nothing, not even to the count.
func (b *builder) addTransaction(raw scan.RawTransaction) {
	p := raw.Payload
	if p == nil {
		return
	}
	sig := raw.Signature
	b.sc.TransactionCount++
	b.observeBlockTime(p.BlockTime)

	meta := scan.TransactionMeta{
		Signature: sig,
		BlockTime: p.BlockTime,
	}
	if len(p.AccountKeys) > 0 {
		// Fee payer is the first account key by chain convention.
		meta.FeePayer = p.AccountKeys[0].Pubkey
		b.sc.FeePayers[meta.FeePayer]++
	}
	for _, k := range p.AccountKeys {
		if k.Signer && k.Pubkey != "" {
			meta.Signers = append(meta.Signers, k.Pubkey)
			b.sc.Signers[k.Pubkey]++
		}
	}
	if p.Meta != nil {
		meta.ComputeUnitsUsed = p.Meta.ComputeUnitsConsumed
	}

	for _, ix := range p.Instructions {
		b.addInstruction(sig, p.BlockTime, ix, &meta)
	}

	b.sc.Transactions = append(b.sc.Transactions, meta)
}

func (b *builder) addInstruction(sig string, bt *int64, ix scan.RawInstruction, meta *scan.TransactionMeta) {
	if ix.ProgramID == "" {
		return
	}

	// Memo text comes from the Memo program only; other instruction data is
	// never promoted to a memo.
	if isMemoProgram(ix.ProgramID) {
		if meta.Memo == "" {
			meta.Memo = memoText(ix)
		}
		return
	}

	if ix.ProgramID == computeBudget {
		if fee, ok := parseComputeUnitPrice(ix); ok {
			meta.PriorityFee = fee
		}
		return
	}

	cat := classify(ix)
	b.sc.Programs[ix.ProgramID]++
	b.sc.Instructions = append(b.sc.Instructions, scan.Instruction{
		ProgramID: ix.ProgramID,
		Category:  cat,
		Signature: sig,
		BlockTime: bt,
		Accounts:  ix.Accounts,
		Data:      ix.Data,
	})

	switch {
	case ix.ProgramID == systemProgram:
		b.addSystemInstruction(sig, bt, ix)
	case ix.ProgramID == tokenProgram || ix.ProgramID == token2022:
		b.addTokenInstruction(sig, bt, ix)
	case ix.ProgramID == ataProgram:
		b.addATAInstruction(sig, bt, ix)
	case ix.ProgramID == stakeProgram:
		b.addStakeInstruction(sig, ix)
	default:
		b.recordPDAs(sig, ix)
	}
}

func (b *builder) addSystemInstruction(sig string, bt *int64, ix scan.RawInstruction) {
	var info struct {
		Source      string `json:"source"`
		Destination string `json:"destination"`
		Lamports    uint64 `json:"lamports"`
	}
	if !parsedInfo(ix, "transfer", &info) && !parsedInfo(ix, "transferWithSeed", &info) {
		return
	}
	if info.Source == "" || info.Destination == "" {
		return
	}
	b.addTransfer(scan.Transfer{
		From:      info.Source,
		To:        info.Destination,
		Amount:    float64(info.Lamports) / lamportsPerSOL,
		Signature: sig,
		BlockTime: bt,
	})
}

func (b *builder) addTokenInstruction(sig string, bt *int64, ix scan.RawInstruction) {
	if ix.Parsed == nil {
		return
	}
	switch ix.Parsed.Type {
	case "transfer", "transferChecked":
		var info struct {
			Source      string `json:"source"`
			Destination string `json:"destination"`
			Authority   string `json:"authority"`
			Mint        string `json:"mint"`
			Amount      string `json:"amount"`
			TokenAmount struct {
				UIAmount float64 `json:"uiAmount"`
			} `json:"tokenAmount"`
		}
		if json.Unmarshal(ix.Parsed.Info, &info) != nil {
			return
		}
		from := info.Authority
		if from == "" {
			from = info.Source
		}
		if from == "" || info.Destination == "" {
			return
		}
		b.addTransfer(scan.Transfer{
			From:      from,
			To:        info.Destination,
			Amount:    info.TokenAmount.UIAmount,
			Token:     info.Mint,
			Signature: sig,
			BlockTime: bt,
		})
	case "initializeAccount", "initializeAccount2", "initializeAccount3":
		var info struct {
			Account string `json:"account"`
			Mint    string `json:"mint"`
			Owner   string `json:"owner"`
		}
		if json.Unmarshal(ix.Parsed.Info, &info) != nil || info.Account == "" {
			return
		}
		b.sc.TokenAccountEvents = append(b.sc.TokenAccountEvents, scan.TokenAccountEvent{
			Type:         scan.TokenEventCreate,
			TokenAccount: info.Account,
			Owner:        info.Owner,
			Mint:         info.Mint,
			Signature:    sig,
			BlockTime:    bt,
		})
	case "closeAccount":
		var info struct {
			Account     string `json:"account"`
			Destination string `json:"destination"`
			Owner       string `json:"owner"`
		}
		if json.Unmarshal(ix.Parsed.Info, &info) != nil || info.Account == "" {
			return
		}
		b.sc.TokenAccountEvents = append(b.sc.TokenAccountEvents, scan.TokenAccountEvent{
			Type:         scan.TokenEventClose,
			TokenAccount: info.Account,
			Owner:        info.Owner,
			Signature:    sig,
			BlockTime:    bt,
			RentRefund:   info.Destination,
		})
	}
}

func (b *builder) addATAInstruction(sig string, bt *int64, ix scan.RawInstruction) {
	var info struct {
		Account string `json:"account"`
		Mint    string `json:"mint"`
		Wallet  string `json:"wallet"`
		Source  string `json:"source"`
	}
	if !parsedInfo(ix, "create", &info) && !parsedInfo(ix, "createIdempotent", &info) {
		return
	}
	if info.Account == "" {
		return
	}
	b.sc.TokenAccountEvents = append(b.sc.TokenAccountEvents, scan.TokenAccountEvent{
		Type:         scan.TokenEventCreate,
		TokenAccount: info.Account,
		Owner:        info.Wallet,
		Mint:         info.Mint,
		Signature:    sig,
		BlockTime:    bt,
	})
}

func (b *builder) addStakeInstruction(sig string, ix scan.RawInstruction) {
	var info struct {
		StakeAccount string `json:"stakeAccount"`
		VoteAccount  string `json:"voteAccount"`
	}
	if !parsedInfo(ix, "delegate", &info) || info.VoteAccount == "" {
		return
	}
	b.sc.Delegations = append(b.sc.Delegations, scan.Delegation{
		StakeAccount: info.StakeAccount,
		VoteAccount:  info.VoteAccount,
		Signature:    sig,
	})
}

// recordPDAs captures off-curve accounts touched by non-native programs.
func (b *builder) recordPDAs(sig string, ix scan.RawInstruction) {
	for _, acct := range ix.Accounts {
		if acct == "" || acct == b.sc.Target {
			continue
		}
		if isPDA(acct) {
			b.sc.PDAInteractions = append(b.sc.PDAInteractions, scan.PDAInteraction{
				PDA:       acct,
				ProgramID: ix.ProgramID,
				Signature: sig,
			})
		}
	}
}

func (b *builder) addTransfer(t scan.Transfer) {
	b.sc.Transfers = append(b.sc.Transfers, t)
	for _, addr := range []string{t.From, t.To} {
		if addr == "" || addr == b.sc.Target {
			continue
		}
		b.sc.Counterparties[addr]++
	}
}

func (b *builder) observeBlockTime(bt *int64) {
	if bt == nil {
		return
	}
	tr := &b.sc.TimeRange
	if tr.Earliest == nil || *bt < *tr.Earliest {
		v := *bt
		tr.Earliest = &v
	}
	if tr.Latest == nil || *bt > *tr.Latest {
		v := *bt
		tr.Latest = &v
	}
}

// finish resolves labels for every distinct counterparty and program in one
// batch, then seals the context.
func (b *builder) finish(ctx context.Context, lp labels.Provider) (*scan.Context, error) {
	if lp == nil {
		return b.sc, nil
	}

	addrs := make([]string, 0, len(b.sc.Counterparties)+len(b.sc.Programs))
	addrs = append(addrs, b.sc.SortedCounterparties()...)
	addrs = append(addrs, b.sc.SortedPrograms()...)
	if len(addrs) == 0 {
		return b.sc, nil
	}

	found, err := lp.LookupMany(ctx, addrs)
	if err != nil {
		return nil, fmt.Errorf("normalize: label lookup: %w", err)
	}
	for addr, l := range found {
		if l != nil {
			b.sc.Labels[addr] = l
		}
	}
	return b.sc, nil
}

// memoText extracts the UTF-8 memo from a Memo program instruction. The RPC
// parses memo bodies to a bare JSON string; fixtures may carry plain text in
// the data field instead.
func memoText(ix scan.RawInstruction) string {
	if ix.Parsed != nil && len(ix.Parsed.Info) > 0 {
		var s string
		if json.Unmarshal(ix.Parsed.Info, &s) == nil {
			return s
		}
	}
	return ix.Data
}

func parseComputeUnitPrice(ix scan.RawInstruction) (uint64, bool) {
	var info struct {
		MicroLamports uint64 `json:"microLamports"`
	}
	if !parsedInfo(ix, "setComputeUnitPrice", &info) {
		return 0, false
	}
	return info.MicroLamports, info.MicroLamports > 0
}

// parsedInfo decodes ix.Parsed.Info into out when the parsed type matches.
func parsedInfo(ix scan.RawInstruction, typ string, out any) bool {
	if ix.Parsed == nil || ix.Parsed.Type != typ {
		return false
	}
	return json.Unmarshal(ix.Parsed.Info, out) == nil
}
