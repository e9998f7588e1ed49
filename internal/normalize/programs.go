package normalize

import (
	"github.com/gagliardetto/solana-go"

	"github.com/solcloak/solcloak/internal/scan"
)

// Program ids used for instruction classification. The well-known ones come
// from the SDK; the rest are pinned here.
var (
	systemProgram = solana.SystemProgramID.String()
	tokenProgram  = solana.TokenProgramID.String()
	ataProgram    = solana.SPLAssociatedTokenAccountProgramID.String()
	memoProgram   = solana.MemoProgramID.String()
	stakeProgram  = solana.StakeProgramID.String()
	voteProgram   = solana.VoteProgramID.String()
	token2022     = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	memoProgramV1 = "Memo1UhkJRfHyvLMcVucJwxXeuD728EqVDDwQDxFMNo"
	computeBudget = "ComputeBudget111111111111111111111111111111"
)

// swapPrograms maps known DEX/aggregator program ids to their names.
var swapPrograms = map[string]string{
	"JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4": "Jupiter v6",
	"JUP4Fb2cqiRUcaTHdrPC8h2gNsA2ETXiPDD33WcGuJB": "Jupiter v4",
	"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8": "Raydium AMM v4",
	"CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK": "Raydium CLMM",
	"whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc":  "Orca Whirlpool",
	"9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP": "Orca v2",
	"6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P":  "Pump.fun",
}

// classify maps a raw instruction to the closed category enumeration.
// Unknown programs with account metadata are program interactions; opaque
// leftovers are unknown.
func classify(ix scan.RawInstruction) scan.InstructionCategory {
	switch ix.ProgramID {
	case systemProgram:
		if ix.Parsed != nil {
			switch ix.Parsed.Type {
			case "transfer", "transferWithSeed":
				return scan.CategoryTransfer
			}
		}
		return scan.CategoryProgramInteraction
	case tokenProgram, token2022:
		if ix.Parsed != nil {
			switch ix.Parsed.Type {
			case "transfer", "transferChecked":
				return scan.CategoryTransfer
			}
		}
		return scan.CategoryTokenOperation
	case ataProgram:
		return scan.CategoryTokenOperation
	case stakeProgram:
		return scan.CategoryStake
	case voteProgram:
		return scan.CategoryVote
	}

	if _, ok := swapPrograms[ix.ProgramID]; ok {
		return scan.CategorySwap
	}
	if len(ix.Accounts) > 0 || ix.Parsed != nil {
		return scan.CategoryProgramInteraction
	}
	return scan.CategoryUnknown
}

// isMemoProgram reports whether the program id is either memo version.
func isMemoProgram(programID string) bool {
	return programID == memoProgram || programID == memoProgramV1
}

// isPDA reports whether an address is off the ed25519 curve, i.e. can only
// be a program-derived address. Unparseable addresses are not PDAs.
func isPDA(address string) bool {
	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return false
	}
	return !pk.IsOnCurve()
}
