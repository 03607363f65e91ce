// Package mcpadapter exposes hybrid search as Model Context Protocol tools.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
	"github.com/kirillkom/game-knowledge-search/internal/core/ports"
)

const (
	serverName    = "game-knowledge-search"
	serverVersion = "1.0.0"
	defaultLimit  = 10
)

type Server struct {
	search  ports.SearchService
	planner ports.QueryPlanner
	answer  ports.AnswerService
	logger  *slog.Logger
	mcp     *server.MCPServer
}

// New registers hybrid_search and classify_query, plus answer_question when
// an answer service is configured.
func New(search ports.SearchService, planner ports.QueryPlanner, answer ports.AnswerService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		search:  search,
		planner: planner,
		answer:  answer,
		logger:  logger,
		mcp: server.NewMCPServer(
			serverName,
			serverVersion,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}

	s.mcp.AddTool(mcp.NewTool("hybrid_search",
		mcp.WithDescription("Search the game knowledge base (maps, NPCs, items, monsters) with keyword, semantic and relation-graph retrieval fused by reciprocal rank."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural language question, e.g. 아이스진 얻으려면 어떻게 하나요?")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10).")),
	), s.handleSearch)

	s.mcp.AddTool(mcp.NewTool("classify_query",
		mcp.WithDescription("Return the search plan (hop depth, relation hint, entities, sentences) for a question."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural language question.")),
	), s.handleClassify)

	if answer != nil {
		s.mcp.AddTool(mcp.NewTool("answer_question",
			mcp.WithDescription("Answer a question in Korean using only knowledge base evidence."),
			mcp.WithString("question", mcp.Required(), mcp.Description("Natural language question.")),
			mcp.WithNumber("limit", mcp.Description("Evidence results to consider (default 5).")),
		), s.handleAnswer)
	}
	return s
}

// ServeStdio blocks until ctx is done or the input stream closes.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer, errLog io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(errLog, "", log.LstdFlags))
	return stdio.Listen(ctx, in, out)
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := request.GetInt("limit", defaultLimit)

	outcome, err := s.search.Search(ctx, query, limit)
	if err != nil {
		s.logger.Warn("mcp_tool_failed", "tool", "hybrid_search", "error", err)
		return mcp.NewToolResultError(toolErrorMessage(err)), nil
	}
	return jsonResult(outcome)
}

func (s *Server) handleClassify(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.planner.Classify(ctx, query))
}

func (s *Server) handleAnswer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := request.GetInt("limit", 5)

	answer, err := s.answer.Answer(ctx, question, limit)
	if err != nil {
		s.logger.Warn("mcp_tool_failed", "tool", "answer_question", "error", err)
		return mcp.NewToolResultError(toolErrorMessage(err)), nil
	}
	return mcp.NewToolResultText(answer.Text), nil
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(body)), nil
}

func toolErrorMessage(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid input: " + err.Error()
	case domain.IsKind(err, domain.ErrAdapterUnavailable), domain.IsKind(err, domain.ErrTemporary):
		return "search backend unavailable, retry later"
	default:
		return "search failed"
	}
}
