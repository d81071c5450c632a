// Package mcp exposes the report pipeline as MCP tools over stdio, for
// scripted clients and assistants that drive uploads and draws without
// the HTTP surface.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/chapterops/palms-server/internal/config"
	"github.com/chapterops/palms-server/internal/lottery"
	"github.com/chapterops/palms-server/internal/rating"
	"github.com/chapterops/palms-server/internal/report"
	"github.com/chapterops/palms-server/internal/scoring"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	reports   *report.Service
	ratings   *rating.Table
	lotto     *lottery.Engine
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, reports *report.Service, ratings *rating.Table,
	lotto *lottery.Engine,
) (*Server, error) {
	if reports == nil {
		return nil, fmt.Errorf("report service cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		reports:   reports,
		ratings:   ratings,
		lotto:     lotto,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	parseTool := mcp.NewTool(
		"palms_parse_file",
		mcp.WithDescription("Parse a PALMS report PDF and extract the member table without storing it"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PALMS report PDF"),
		),
	)
	s.mcpServer.AddTool(parseTool, s.handleParseFile)

	ingestTool := mcp.NewTool(
		"palms_ingest_report",
		mcp.WithDescription("Parse a PALMS report PDF, store it as the current weekly report and refresh lottery candidates"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PALMS report PDF"),
		),
	)
	s.mcpServer.AddTool(ingestTool, s.handleIngestReport)

	summaryTool := mcp.NewTool(
		"palms_report_summary",
		mcp.WithDescription("Show the current report header and aggregated totals"),
	)
	s.mcpServer.AddTool(summaryTool, s.handleReportSummary)

	ratingTool := mcp.NewTool(
		"palms_rating_table",
		mcp.WithDescription("Show the traffic-light rating table, optionally filtered by status"),
		mcp.WithString("status",
			mcp.Description("Optional tier filter: green, yellow, red or grey"),
		),
	)
	s.mcpServer.AddTool(ratingTool, s.handleRatingTable)

	drawTool := mcp.NewTool(
		"palms_lottery_draw",
		mcp.WithDescription("Draw one or more lottery winners weighted by referral counts"),
		mcp.WithNumber("count",
			mcp.Description("Number of winners to draw (default 1)"),
		),
	)
	s.mcpServer.AddTool(drawTool, s.handleLotteryDraw)

	infoTool := mcp.NewTool(
		"palms_server_info",
		mcp.WithDescription("Get server information and usage guidance"),
	)
	s.mcpServer.AddTool(infoTool, s.handleServerInfo)
}

// Handler functions
func (s *Server) handleParseFile(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	parsed, err := s.reports.ParseFile(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	payload, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Parsed PALMS report: %s\n", path)
	responseText += fmt.Sprintf("Chapter: %s (%s - %s)\n", parsed.Header.Chapter, parsed.Header.DateFrom, parsed.Header.DateTo)
	responseText += fmt.Sprintf("Members extracted: %d\n\n", len(parsed.Members))
	responseText += string(payload)

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleIngestReport(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rep, err := s.reports.Ingest(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Stored report %s as current\n", rep.ID)
	responseText += fmt.Sprintf("Chapter: %s (%s - %s)\n", rep.Chapter, rep.DateFrom, rep.DateTo)
	responseText += fmt.Sprintf("Members: %d\n", len(rep.Members))

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleReportSummary(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, ok := s.reports.Current()
	if !ok {
		return mcp.NewToolResultText("No current report. Upload one with palms_ingest_report."), nil
	}

	sum := rep.Summarize()
	responseText := fmt.Sprintf("Chapter: %s (%s - %s)\n", rep.Chapter, rep.DateFrom, rep.DateTo)
	responseText += fmt.Sprintf("Members: %d\n", len(rep.Members))
	responseText += fmt.Sprintf("Internal referrals given: %d\n", sum.TotalInternalReferrals)
	responseText += fmt.Sprintf("External referrals given: %d\n", sum.TotalExternalReferrals)
	responseText += fmt.Sprintf("Total referrals: %d\n", sum.TotalReferrals)
	responseText += fmt.Sprintf("One-to-ones: %d\n", sum.TotalOneToOne)
	responseText += fmt.Sprintf("Guests: %d\n", sum.TotalGuests)
	responseText += fmt.Sprintf("Transaction value: %d\n", sum.TotalTransactionValue)

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleRatingTable(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	var records []rating.Record
	if statusArg, ok := args["status"].(string); ok && statusArg != "" {
		status := scoring.Status(statusArg)
		if !scoring.ValidStatus(status) {
			return mcp.NewToolResultError("unknown status: " + statusArg), nil
		}
		records = s.ratings.ByStatus(status)
	} else {
		records = s.ratings.Snapshot()
	}

	if len(records) == 0 {
		return mcp.NewToolResultText("Rating table is empty."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d rating record(s)\n", len(records))
	for _, rec := range records {
		override := ""
		if rec.IsManualOverride {
			override = " (manual override)"
		}
		fmt.Fprintf(&b, "%s: %s%s, total %d\n",
			rec.MemberName, rec.Status, override, rec.Scores.Total)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleLotteryDraw(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	count := 1
	if n, ok := args["count"].(float64); ok && n >= 1 {
		count = int(n)
	}

	winners := s.lotto.DrawMany(count)
	if len(winners) == 0 {
		return mcp.NewToolResultText("No winner: the candidate pool is empty or fully excluded."), nil
	}

	var b strings.Builder
	for i, w := range winners {
		fmt.Fprintf(&b, "Draw %d: %s\n", i+1, w)
	}
	if len(winners) < count {
		fmt.Fprintf(&b, "Pool exhausted after %d draw(s).\n", len(winners))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	responseText := fmt.Sprintf("%s v%s\n\n", s.config.ServerName, s.config.Version)
	responseText += "PALMS chapter report server. Tools:\n"
	responseText += "  palms_parse_file      - extract the member table from a report PDF\n"
	responseText += "  palms_ingest_report   - store a report as current and refresh lottery candidates\n"
	responseText += "  palms_report_summary  - totals of the current report\n"
	responseText += "  palms_rating_table    - traffic-light table, optional status filter\n"
	responseText += "  palms_lottery_draw    - weighted draw over referral counts\n"
	responseText += fmt.Sprintf("\nReport directory: %s\n", s.config.PDFDirectory)
	responseText += fmt.Sprintf("Normalization window: %d weeks\n", s.config.WindowWeeks)
	responseText += fmt.Sprintf("Exclude past winners per session: %t\n", s.lotto.ExcludeWinners())

	return mcp.NewToolResultText(responseText), nil
}

// Run serves MCP over stdio until the client closes the stream.
func (s *Server) Run(_ context.Context) error {
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
