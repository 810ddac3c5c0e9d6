// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes smart-notes tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/giyikalim/smart-notes/internal/apperr"
	"github.com/giyikalim/smart-notes/internal/models"
	"github.com/giyikalim/smart-notes/internal/notes"
)

// Resource URIs.
const (
	NoteModelURI = "smart-notes://note-model"
	LexiconURI   = "smart-notes://lexicon"
)

// Server wraps the MCP server with smart-notes tools. Every tool acts on
// behalf of a single owner.
type Server struct {
	mcp   *server.MCPServer
	svc   *notes.Service
	owner string
}

// New creates a new MCP server with all tools registered.
func New(svc *notes.Service, owner string) *Server {
	s := &Server{svc: svc, owner: owner}

	s.mcp = server.NewMCPServer(
		"smart-notes",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Relevance-ranked, typo-tolerant search across live notes. Matches are wrapped in <mark> tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
		mcp.WithNumber("page", mcp.Description("Page number, starting at 1")),
		mcp.WithNumber("page_size", mcp.Description("Results per page (max 100)")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List live notes, newest first. Optionally restrict to one language."),
		mcp.WithString("language", mcp.Description("Language code, e.g. tr or en")),
		mcp.WithNumber("page", mcp.Description("Page number, starting at 1")),
		mcp.WithNumber("page_size", mcp.Description("Notes per page (max 100)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read one note with all metadata, by store id or application id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Store id or application id (note_...)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. Title, summary and keywords are derived from the content "+
			"unless given. See the "+NoteModelURI+" resource for the note model."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Note text")),
		mcp.WithString("title", mcp.Description("Optional title override")),
		mcp.WithString("summary", mcp.Description("Optional summary override")),
		mcp.WithString("language", mcp.Description("Optional language override")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Change a note's title, summary or content. New content is re-analyzed."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Store id or application id")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("summary", mcp.Description("New summary")),
		mcp.WithString("content", mcp.Description("New content")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("extend_note",
		mcp.WithDescription("Restart a note's retention window from now and revive it if expired."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Store id or application id")),
	), s.extendNote)

	s.mcp.AddTool(mcp.NewTool("analyze_text",
		mcp.WithDescription("Derive title, summary, keywords, sentiment, readability and language from text without saving it."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to analyze")),
	), s.analyzeText)

	s.mcp.AddTool(mcp.NewTool("get_stats",
		mcp.WithDescription("Note counts, average length and AI usage for the current user."),
	), s.getStats)

	s.mcp.AddResource(
		mcp.NewResource(NoteModelURI, "Note Model",
			mcp.WithResourceDescription("How notes are derived, expire and track AI provenance."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteModel,
	)

	s.mcp.AddResource(
		mcp.NewResource(LexiconURI, "Analyzer Lexicon",
			mcp.WithResourceDescription("Stop words and sentiment lexicons used by the text analyzer."),
			mcp.WithMIMEType("application/yaml"),
		),
		s.readLexicon,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("note not found")
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := s.svc.Search(ctx, s.owner, query, req.GetInt("page", 1), req.GetInt("page_size", 0))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(page)
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageNo, size := req.GetInt("page", 1), req.GetInt("page_size", 0)
	var (
		page *models.NotePage
		err  error
	)
	if lang := req.GetString("language", ""); lang != "" {
		page, err = s.svc.ListByLanguage(ctx, s.owner, lang, pageNo, size)
	} else {
		page, err = s.svc.List(ctx, s.owner, pageNo, size)
	}
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(page)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.Get(ctx, s.owner, id)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(n)
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.Create(ctx, notes.CreateInput{
		OwnerID:  s.owner,
		Content:  content,
		Title:    req.GetString("title", ""),
		Summary:  req.GetString("summary", ""),
		Language: req.GetString("language", ""),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%s)", n.ID, n.Title)), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var p notes.Patch
	for key, dst := range map[string]**string{"title": &p.Title, "summary": &p.Summary, "content": &p.Content} {
		if v, err := req.RequireString(key); err == nil {
			*dst = &v
		}
	}
	n, err := s.svc.Update(ctx, s.owner, id, p)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(n)
}

func (s *Server) extendNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.ExtendExpiry(ctx, s.owner, id)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("extended: %s until %s", n.ID, n.ExpiresAt.Format("2006-01-02"))), nil
}

func (s *Server) analyzeText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.Analyze(text))
}

func (s *Server) getStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.svc.Stats(ctx, s.owner)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(st)
}

func (s *Server) readNoteModel(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      NoteModelURI,
			MIMEType: "text/markdown",
			Text:     NoteModel,
		},
	}, nil
}

func (s *Server) readLexicon(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := s.svc.Analyzer().Lexicon().Marshal()
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      LexiconURI,
			MIMEType: "application/yaml",
			Text:     string(data),
		},
	}, nil
}
