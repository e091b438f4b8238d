// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Gaceta's article tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/gaceta/internal/article"
	"github.com/starford/gaceta/internal/content"
	"github.com/starford/gaceta/internal/inbox"
	"github.com/starford/gaceta/internal/storage"
	"github.com/starford/gaceta/internal/store"
	"github.com/starford/gaceta/internal/upload"
)

const contractURI = "gaceta://style-contract"

// Deps are the optional collaborators of the server. Tools whose
// collaborator is nil are not registered.
type Deps struct {
	Uploads *upload.Service
	Images  store.Images
	Drafts  store.Drafts
	Files   storage.Provider
	// Token authenticates uploads against the backend.
	Token string
}

// Server wraps the MCP server with Gaceta tools.
type Server struct {
	mcp  *server.MCPServer
	deps Deps
}

// New creates a new MCP server with the article tools registered.
func New(deps Deps) *Server {
	s := &Server{deps: deps}

	s.mcp = server.NewMCPServer(
		"Gaceta",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("normalize_html",
		mcp.WithDescription("Normalize an article body to the house style. "+
			"Foreign styles, classes and wrappers are removed and every block gets "+
			"the fixed style of its type. Normalizing twice gives the same result."),
		mcp.WithString("html", mcp.Required(), mcp.Description("HTML fragment to normalize")),
	), s.normalizeHTML)

	s.mcp.AddTool(mcp.NewTool("extract_images",
		mcp.WithDescription("List the images of an article: the header image first, "+
			"then every inline image in document order."),
		mcp.WithString("html", mcp.Required(), mcp.Description("Article body")),
		mcp.WithString("header", mcp.Description("Header image URL, if any")),
	), s.extractImages)

	s.mcp.AddTool(mcp.NewTool("block_transition",
		mcp.WithDescription("Return the editor actions for an event inside a block."),
		mcp.WithString("block", mcp.Required(), mcp.Description("Block type: paragraph, heading1, heading2, quote, info, blockquote")),
		mcp.WithString("event", mcp.Required(), mcp.Description("Event: enter, clear_formatting, format_changed, paste")),
		mcp.WithString("mark", mcp.Description("Inline mark for format_changed: bold, italic, underline")),
	), s.blockTransition)

	s.mcp.AddTool(mcp.NewTool("get_style_contract",
		mcp.WithDescription("Returns the Gaceta article style contract. "+
			"Call this before writing article bodies to use the right blocks."),
	), s.getStyleContract)

	s.mcp.AddTool(mcp.NewTool("export_markdown",
		mcp.WithDescription("Convert an article body to Markdown or plain text."),
		mcp.WithString("html", mcp.Required(), mcp.Description("Article body")),
		mcp.WithString("format", mcp.Description("markdown (default) or text")),
	), s.exportMarkdown)

	if deps.Drafts != nil && deps.Files != nil {
		s.mcp.AddTool(mcp.NewTool("list_drafts",
			mcp.WithDescription("List the inbox drafts that have been normalized."),
		), s.listDrafts)

		s.mcp.AddTool(mcp.NewTool("read_draft",
			mcp.WithDescription("Read the normalized form of an inbox draft."),
			mcp.WithString("path", mcp.Required(), mcp.Description("Draft path relative to the inbox (e.g. deportes/cronica.html)")),
		), s.readDraft)

		s.mcp.AddTool(mcp.NewTool("search_drafts",
			mcp.WithDescription("Full-text search over the text of inbox drafts."),
			mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
		), s.searchDrafts)
	}

	if deps.Uploads != nil {
		s.mcp.AddTool(mcp.NewTool("upload_image",
			mcp.WithDescription("Upload an image from an http(s) URL or a base64 data URI. "+
				"Returns the stored URL and an <img> tag ready to insert. AVIF is rejected."),
			mcp.WithString("url", mcp.Required(), mcp.Description("Source URL or data URI")),
			mcp.WithString("filename", mcp.Description("Optional file name")),
			mcp.WithString("article_id", mcp.Description("Article to record the image against")),
		), s.uploadImage)
	}

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Article Style Contract",
			mcp.WithResourceDescription("Block taxonomy and fixed typography of article bodies."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readStyleContractResource,
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

func (s *Server) normalizeHTML(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("html")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := content.Normalize(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) extractImages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("html")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	header := req.GetString("header", "")
	imgs, err := content.ExtractImages(raw, header)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if imgs == nil {
		imgs = []string{}
	}
	return jsonResult(imgs)
}

func (s *Server) blockTransition(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	block, err := req.RequireString("block")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	event, err := req.RequireString("event")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind := content.ParseEventKind(event)
	if kind == content.EventNone {
		return mcp.NewToolResultError(fmt.Sprintf("unknown event: %s", event)), nil
	}
	ev := content.Event{Kind: kind, Mark: content.ParseInlineMark(req.GetString("mark", ""))}
	actions := content.Transition(content.ParseBlockType(block), ev)
	if actions == nil {
		actions = []content.Action{}
	}
	return jsonResult(actions)
}

func (s *Server) getStyleContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(StyleContract()), nil
}

func (s *Server) readStyleContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     StyleContract(),
		},
	}, nil
}

func (s *Server) exportMarkdown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("html")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var out string
	switch format := req.GetString("format", "markdown"); format {
	case "markdown", "":
		out, err = content.ToMarkdown(raw)
	case "text":
		out, err = content.PlainText(raw)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown format: %s", format)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) listDrafts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	drafts, err := s.deps.Drafts.ListDrafts()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(drafts) == 0 {
		return mcp.NewToolResultText("no drafts"), nil
	}
	lines := make([]string, len(drafts))
	for i, d := range drafts {
		lines[i] = d.Path
		if d.Title != "" {
			lines[i] += "\t" + d.Title
		}
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readDraft(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.deps.Files.Read(inbox.OutputPath(path))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) searchDrafts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits, err := s.deps.Drafts.SearchDrafts(query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if hits == nil {
		hits = []store.DraftHit{}
	}
	return jsonResult(hits)
}

func (s *Server) authorized(ctx context.Context) context.Context {
	if s.deps.Token == "" {
		return ctx
	}
	return article.WithToken(ctx, s.deps.Token)
}
