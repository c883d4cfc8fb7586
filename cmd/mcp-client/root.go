package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"
)

// toolCaller は MCP ツールを1回呼び出します
type toolCaller func(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)

type options struct {
	serverBin string
	timeout   time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	return buildRootCmd(opts, func(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
		return callStdio(ctx, opts.serverBin, name, args)
	})
}

func buildRootCmd(opts *options, call toolCaller) *cobra.Command {
	defaultBin := os.Getenv("MCP_SERVER_BIN")
	if defaultBin == "" {
		defaultBin = "mcp-server"
	}

	root := &cobra.Command{
		Use:   "mcp-client",
		Short: "Query the chemsymbol MCP server",
		Long: `mcp-client spawns the chemsymbol MCP server over stdio and calls one of its tools.

Examples:
  mcp-client validate Zirconium Zi
  mcp-client first Wutrubanibaum
  mcp-client count Zirconium
  mcp-client list Xenon
  mcp-client ask "Which symbols of Xenon use a doubled letter?" --persona tutor`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.serverBin, "server", defaultBin, "path to the mcp-server binary (env MCP_SERVER_BIN)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "timeout for the whole call")

	run := func(cmd *cobra.Command, tool string, args map[string]any) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
		defer cancel()

		result, err := call(ctx, tool, args)
		if err != nil {
			return errors.Wrapf(err, "tool call %s failed", tool)
		}
		return printResult(cmd.OutOrStdout(), result)
	}

	root.AddCommand(&cobra.Command{
		Use:   "validate <element> <symbol>",
		Short: "Check whether a symbol is valid for an element",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, "is_valid_symbol", map[string]any{"element": args[0], "symbol": args[1]})
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "first <element>",
		Short: "Print the alphabetically first valid symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, "first_symbol", map[string]any{"element": args[0]})
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "count <element>",
		Short: "Print the number of distinct valid symbols",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, "count_symbols", map[string]any{"element": args[0]})
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "list <element>",
		Short: "Print every valid symbol in alphabetical order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, "list_symbols", map[string]any{"element": args[0]})
		},
	})

	var personaName string
	askCmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the Gemini agent a question about element symbols",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs := map[string]any{"question": args[0]}
			if personaName != "" {
				toolArgs["persona"] = personaName
			}
			return run(cmd, "ask", toolArgs)
		},
	}
	askCmd.Flags().StringVar(&personaName, "persona", "", "persona name (chemist, tutor)")
	root.AddCommand(askCmd)

	return root
}

func printResult(w io.Writer, result *mcp.CallToolResult) error {
	var text string
	for _, content := range result.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			text += tc.Text
		}
	}
	if result.IsError {
		return errors.Newf("server rejected call: %s", text)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

// callStdio はサーバープロセスを spawn し、Initialize の後にツールを呼び出します
func callStdio(ctx context.Context, serverBin, name string, args map[string]any) (*mcp.CallToolResult, error) {
	c, err := client.NewStdioMCPClient(serverBin, os.Environ())
	if err != nil {
		return nil, errors.Wrap(err, "failed to create MCP client")
	}
	defer c.Close()

	// --- Initialize ハンドシェイク ---
	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "chemsymbol-client",
		Version: "0.1.0",
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		return nil, errors.Wrap(err, "failed to initialize")
	}

	toolReq := mcp.CallToolRequest{}
	toolReq.Params.Name = name
	toolReq.Params.Arguments = args
	return c.CallTool(ctx, toolReq)
}
