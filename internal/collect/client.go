// Package collect fetches on-chain activity snapshots from a Solana RPC node.
//
// Signature listings go through the typed solana-go client. Transaction
// bodies, token accounts, and program accounts use raw jsonParsed JSON-RPC
// calls because the parsed shapes feed straight into the normalizer's
// fixture-compatible structs.
package collect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"

	"github.com/solcloak/solcloak/internal/scan"
)

// Client is the RPC surface the collector needs. Implemented by RPC for
// live nodes and by test fakes.
type Client interface {
	Signatures(ctx context.Context, address string, limit int) ([]scan.SignatureInfo, error)
	Transaction(ctx context.Context, signature string) (*scan.TxPayload, error)
	TokenAccounts(ctx context.Context, owner string) ([]scan.RawTokenAccount, error)
	ProgramAccounts(ctx context.Context, programID string) ([]scan.RawProgramAccount, error)
	Ping(ctx context.Context) error
}

// RPC talks to a Solana JSON-RPC endpoint.
type RPC struct {
	url    string
	typed  *solrpc.Client
	client *http.Client
}

// NewRPC creates a client for the given endpoint URL.
func NewRPC(url string, timeout time.Duration) *RPC {
	return &RPC{
		url:    url,
		typed:  solrpc.New(url),
		client: &http.Client{Timeout: timeout},
	}
}

// Signatures lists the most recent transaction signatures for an address,
// newest first, up to limit.
func (r *RPC) Signatures(ctx context.Context, address string, limit int) ([]scan.SignatureInfo, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("collect: bad address %q: %w", address, err)
	}

	out, err := r.typed.GetSignaturesForAddressWithOpts(ctx, pubkey, &solrpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: solrpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("collect: getSignaturesForAddress: %w", err)
	}

	sigs := make([]scan.SignatureInfo, 0, len(out))
	for _, s := range out {
		info := scan.SignatureInfo{
			Signature: s.Signature.String(),
			Slot:      s.Slot,
			Err:       s.Err,
		}
		if s.Memo != nil {
			info.Memo = *s.Memo
		}
		if s.BlockTime != nil {
			t := int64(*s.BlockTime)
			info.BlockTime = &t
		}
		sigs = append(sigs, info)
	}
	return sigs, nil
}

// txEnvelope mirrors the jsonParsed getTransaction response.
type txEnvelope struct {
	Slot        uint64  `json:"slot"`
	BlockTime   *int64  `json:"blockTime"`
	Meta        *txMeta `json:"meta"`
	Transaction struct {
		Message struct {
			AccountKeys  []scan.AccountKey     `json:"accountKeys"`
			Instructions []scan.RawInstruction `json:"instructions"`
		} `json:"message"`
	} `json:"transaction"`
}

type txMeta struct {
	scan.TxMeta
	InnerInstructions []struct {
		Index        int                   `json:"index"`
		Instructions []scan.RawInstruction `json:"instructions"`
	} `json:"innerInstructions"`
}

// Transaction fetches one transaction in jsonParsed form. Returns nil
// payload with nil error when the node does not know the signature.
func (r *RPC) Transaction(ctx context.Context, signature string) (*scan.TxPayload, error) {
	var env *txEnvelope
	err := r.call(ctx, "getTransaction", []any{
		signature,
		map[string]any{
			"encoding":                       "jsonParsed",
			"commitment":                     "confirmed",
			"maxSupportedTransactionVersion": 0,
		},
	}, &env)
	if err != nil {
		return nil, fmt.Errorf("collect: getTransaction %s: %w", signature, err)
	}
	if env == nil {
		return nil, nil
	}

	payload := &scan.TxPayload{
		Slot:        env.Slot,
		BlockTime:   env.BlockTime,
		AccountKeys: env.Transaction.Message.AccountKeys,
	}
	if env.Meta != nil {
		meta := env.Meta.TxMeta
		payload.Meta = &meta
	}

	// Interleave inner instructions after their parent so the normalizer
	// sees execution order.
	inner := map[int][]scan.RawInstruction{}
	if env.Meta != nil {
		for _, group := range env.Meta.InnerInstructions {
			inner[group.Index] = group.Instructions
		}
	}
	for i, ix := range env.Transaction.Message.Instructions {
		payload.Instructions = append(payload.Instructions, ix)
		payload.Instructions = append(payload.Instructions, inner[i]...)
	}

	return payload, nil
}

// TokenAccounts lists SPL token accounts owned by a wallet.
func (r *RPC) TokenAccounts(ctx context.Context, owner string) ([]scan.RawTokenAccount, error) {
	var result struct {
		Value []struct {
			Pubkey  string `json:"pubkey"`
			Account struct {
				Data struct {
					Parsed struct {
						Info struct {
							Mint        string `json:"mint"`
							Owner       string `json:"owner"`
							TokenAmount struct {
								UIAmount float64 `json:"uiAmount"`
							} `json:"tokenAmount"`
						} `json:"info"`
					} `json:"parsed"`
				} `json:"data"`
			} `json:"account"`
		} `json:"value"`
	}

	err := r.call(ctx, "getTokenAccountsByOwner", []any{
		owner,
		map[string]any{"programId": solana.TokenProgramID.String()},
		map[string]any{"encoding": "jsonParsed"},
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("collect: getTokenAccountsByOwner %s: %w", owner, err)
	}

	accounts := make([]scan.RawTokenAccount, 0, len(result.Value))
	for _, v := range result.Value {
		accounts = append(accounts, scan.RawTokenAccount{
			Address:  v.Pubkey,
			Mint:     v.Account.Data.Parsed.Info.Mint,
			Owner:    v.Account.Data.Parsed.Info.Owner,
			UIAmount: v.Account.Data.Parsed.Info.TokenAmount.UIAmount,
		})
	}
	return accounts, nil
}

// ProgramAccounts lists accounts owned by a program. Data is sliced to
// zero length; only sizes and owners matter to the analyzer.
func (r *RPC) ProgramAccounts(ctx context.Context, programID string) ([]scan.RawProgramAccount, error) {
	var result []struct {
		Pubkey  string `json:"pubkey"`
		Account struct {
			Owner string `json:"owner"`
			Space int    `json:"space"`
		} `json:"account"`
	}

	err := r.call(ctx, "getProgramAccounts", []any{
		programID,
		map[string]any{
			"encoding":  "base64",
			"dataSlice": map[string]int{"offset": 0, "length": 0},
		},
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("collect: getProgramAccounts %s: %w", programID, err)
	}

	accounts := make([]scan.RawProgramAccount, 0, len(result))
	for _, v := range result {
		accounts = append(accounts, scan.RawProgramAccount{
			Address: v.Pubkey,
			Owner:   v.Account.Owner,
			Bytes:   v.Account.Space,
		})
	}
	return accounts, nil
}

// Ping checks node health, used by the readiness probe.
func (r *RPC) Ping(ctx context.Context) error {
	_, err := r.typed.GetHealth(ctx)
	return err
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// call issues a raw JSON-RPC request and unmarshals result into out.
func (r *RPC) call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", method, res.Status)
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return err
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	return json.Unmarshal(envelope.Result, out)
}
