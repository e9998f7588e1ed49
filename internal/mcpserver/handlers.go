package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/solcloak/solcloak/internal/labels"
	"github.com/solcloak/solcloak/internal/scan"
	"github.com/solcloak/solcloak/internal/validation"
)

// Handlers contains the MCP tool handlers, backed by the scanning API.
type Handlers struct {
	client *APIClient
}

// NewHandlers creates handlers using the given API client.
func NewHandlers(client *APIClient) *Handlers {
	return &Handlers{client: client}
}

// HandleScanWallet runs a wallet privacy scan.
func (h *Handlers) HandleScanWallet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address := req.GetString("address", "")
	if address == "" {
		return mcp.NewToolResultError("address is required"), nil
	}
	if !validation.IsValidAddress(address) {
		return mcp.NewToolResultError("address must be a base58-encoded 32-byte Solana public key"), nil
	}

	raw, err := h.client.ScanWallet(ctx, address)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Scan failed: %v", err)), nil
	}

	return h.reportResult(raw, req.GetString("format", "text"))
}

// HandleScanTransaction runs a single-transaction privacy scan.
func (h *Handlers) HandleScanTransaction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	signature := req.GetString("signature", "")
	if signature == "" {
		return mcp.NewToolResultError("signature is required"), nil
	}
	if !validation.IsValidSignature(signature) {
		return mcp.NewToolResultError("signature must be a base58-encoded 64-byte transaction signature"), nil
	}

	raw, err := h.client.ScanTransaction(ctx, signature)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Scan failed: %v", err)), nil
	}

	return h.reportResult(raw, req.GetString("format", "text"))
}

// HandleScanProgram runs a program privacy scan.
func (h *Handlers) HandleScanProgram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	programID := req.GetString("program_id", "")
	if programID == "" {
		return mcp.NewToolResultError("program_id is required"), nil
	}
	if !validation.IsValidAddress(programID) {
		return mcp.NewToolResultError("program_id must be a base58-encoded 32-byte Solana address"), nil
	}

	raw, err := h.client.ScanProgram(ctx, programID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Scan failed: %v", err)), nil
	}

	return h.reportResult(raw, req.GetString("format", "text"))
}

// HandleCheckAddressLabel looks up the known-entity label for an address.
func (h *Handlers) HandleCheckAddressLabel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address := req.GetString("address", "")
	if address == "" {
		return mcp.NewToolResultError("address is required"), nil
	}
	if !validation.IsValidAddress(address) {
		return mcp.NewToolResultError("address must be a base58-encoded 32-byte Solana address"), nil
	}

	raw, err := h.client.CheckLabel(ctx, address)
	if errors.Is(err, ErrNotFound) {
		return mcp.NewToolResultText(fmt.Sprintf("No label known for %s. The address is not a recognized exchange, bridge, protocol, mixer, or validator.", address)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Lookup failed: %v", err)), nil
	}

	text, err := formatLabel(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse label: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (h *Handlers) reportResult(raw json.RawMessage, format string) (*mcp.CallToolResult, error) {
	if format == "json" {
		return mcp.NewToolResultText(formatJSON(raw)), nil
	}
	text, err := formatReport(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse report: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// --- Formatting helpers ---

func formatReport(raw json.RawMessage) (string, error) {
	var r scan.PrivacyReport
	if err := json.Unmarshal(raw, &r); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Privacy Report for %s %s\n", r.TargetType, r.Target))
	sb.WriteString(fmt.Sprintf("Overall Risk: %s\n", r.OverallRisk))
	sb.WriteString(fmt.Sprintf("Scanned: %s | Transactions analyzed: %d\n\n",
		r.Timestamp.Format(time.RFC3339), r.Summary.TransactionsAnalyzed))

	if len(r.Signals) == 0 {
		sb.WriteString("No privacy risks detected.\n")
		return sb.String(), nil
	}

	sb.WriteString(fmt.Sprintf("Findings (%d high, %d medium, %d low):\n\n",
		r.Summary.HighRiskSignals, r.Summary.MediumRiskSignals, r.Summary.LowRiskSignals))
	for i, sig := range r.Signals {
		sb.WriteString(fmt.Sprintf("%d. [%s] %s\n", i+1, sig.Severity, sig.Name))
		sb.WriteString(fmt.Sprintf("   %s\n", sig.Reason))
		if sig.Impact != "" {
			sb.WriteString(fmt.Sprintf("   Impact: %s\n", sig.Impact))
		}
		for _, ev := range sig.Evidence {
			sb.WriteString(fmt.Sprintf("   - %s\n", ev.Description))
		}
		if i < len(r.Signals)-1 {
			sb.WriteString("\n")
		}
	}

	if len(r.KnownEntities) > 0 {
		sb.WriteString("\nKnown entities touched:\n")
		for _, e := range r.KnownEntities {
			sb.WriteString(fmt.Sprintf("  %s (%s) %s\n", e.Name, e.Type, e.Address))
		}
	}

	if len(r.Mitigations) > 0 {
		sb.WriteString("\nRecommended mitigations:\n")
		for _, m := range r.Mitigations {
			sb.WriteString(fmt.Sprintf("  - %s\n", m))
		}
	}

	return sb.String(), nil
}

func formatLabel(raw json.RawMessage) (string, error) {
	var l labels.Label
	if err := json.Unmarshal(raw, &l); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s is a known %s: %s\n", l.Address, l.Type, l.Name))
	if l.Description != "" {
		sb.WriteString(fmt.Sprintf("  %s\n", l.Description))
	}
	if len(l.RelatedAddresses) > 0 {
		sb.WriteString(fmt.Sprintf("  Related addresses: %s\n", strings.Join(l.RelatedAddresses, ", ")))
	}
	return sb.String(), nil
}

func formatJSON(raw json.RawMessage) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return string(raw)
	}
	return pretty.String()
}
