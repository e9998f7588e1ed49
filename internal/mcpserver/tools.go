package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the solcloak MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolScanWallet = mcp.NewTool("scan_wallet",
	mcp.WithDescription(
		"Run a privacy-risk scan of a Solana wallet. "+
			"Analyzes recent transaction history for address reuse, exchange and bridge "+
			"exposure, timing patterns, dusting, and other deanonymization vectors. "+
			"Returns an overall risk rating with per-finding evidence and mitigations."),
	mcp.WithString("address",
		mcp.Required(),
		mcp.Description("The wallet's base58-encoded Solana public key")),
	mcp.WithString("format",
		mcp.Description("Output format: 'text' for a readable summary (default) or 'json' for the full report"),
		mcp.Enum("text", "json")),
)

var ToolScanTransaction = mcp.NewTool("scan_transaction",
	mcp.WithDescription(
		"Run a privacy-risk scan of a single Solana transaction by signature. "+
			"Checks the transaction's transfers, programs, memos, and counterparties "+
			"for privacy leaks."),
	mcp.WithString("signature",
		mcp.Required(),
		mcp.Description("The base58-encoded transaction signature")),
	mcp.WithString("format",
		mcp.Description("Output format: 'text' for a readable summary (default) or 'json' for the full report"),
		mcp.Enum("text", "json")),
)

var ToolScanProgram = mcp.NewTool("scan_program",
	mcp.WithDescription(
		"Run a privacy-risk scan of a Solana program's recent interaction surface. "+
			"Looks at who calls the program and what metadata those calls expose."),
	mcp.WithString("program_id",
		mcp.Required(),
		mcp.Description("The program's base58-encoded Solana address")),
	mcp.WithString("format",
		mcp.Description("Output format: 'text' for a readable summary (default) or 'json' for the full report"),
		mcp.Enum("text", "json")),
)

var ToolCheckAddressLabel = mcp.NewTool("check_address_label",
	mcp.WithDescription(
		"Look up whether a Solana address is a known entity (exchange, bridge, "+
			"protocol, mixer, validator). Returns the label if one is known."),
	mcp.WithString("address",
		mcp.Required(),
		mcp.Description("The base58-encoded Solana address to look up")),
)
