package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all solcloak tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("solcloak", "1.0.0")
	client := NewAPIClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolScanWallet, h.HandleScanWallet)
	s.AddTool(ToolScanTransaction, h.HandleScanTransaction)
	s.AddTool(ToolScanProgram, h.HandleScanProgram)
	s.AddTool(ToolCheckAddressLabel, h.HandleCheckAddressLabel)

	return s
}
