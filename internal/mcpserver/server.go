// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes schemakit tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/schemakit/internal/bsonschema"
	"github.com/starford/schemakit/internal/checksum"
	"github.com/starford/schemakit/internal/docservice"
	"github.com/starford/schemakit/internal/editor"
	"github.com/starford/schemakit/internal/models"
	"github.com/starford/schemakit/internal/version"
)

const formatURI = "schemakit://document-format"

// Server wraps the MCP server with schemakit tools.
type Server struct {
	mcp *server.MCPServer
	svc *docservice.Service
}

// New creates a new MCP server with all schemakit tools registered.
func New(svc *docservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Schemakit",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	kindArg := mcp.WithString("kind", mcp.Required(),
		mcp.Description("Document kind"),
		mcp.Enum(string(models.DocDictionaries), string(models.DocTypes), string(models.DocEnumerators)))
	fileArg := mcp.WithString("file_name", mcp.Required(),
		mcp.Description("Document file name, e.g. customer.1.0.2.3.yaml or enumerations.4.yaml"))

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List the stored documents of one kind with their versions and lock state."),
		kindArg,
		mcp.WithString("name", mcp.Description("Optional family name to list the versions of")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the stored YAML of a document."),
		kindArg, fileArg,
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through document names, descriptions, property keys and enumeration values."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("get_references",
		mcp.WithDescription("Find all documents that use the named type, dictionary or enumeration."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Referenced name")),
	), s.getReferences)

	s.mcp.AddTool(mcp.NewTool("edit_document",
		mcp.WithDescription("Apply an atomic batch of tree edits to a dictionary or type document and save it. "+
			"Read the contract first via the get_document_contract tool or the "+formatURI+" resource."),
		kindArg, fileArg,
		mcp.WithArray("ops", mcp.Required(),
			mcp.Description("Edit operations, applied in order"),
			mcp.Items(map[string]any{"type": "object"})),
		mcp.WithString("if_match", mcp.Description("Optional checksum the stored document must still have")),
	), s.editDocument)

	s.mcp.AddTool(mcp.NewTool("lock_document",
		mcp.WithDescription("Lock a document so that it can no longer be changed."),
		kindArg, fileArg,
	), s.lockDocument)

	s.mcp.AddTool(mcp.NewTool("unlock_document",
		mcp.WithDescription("Unlock a document. Only the newest version of a family can be unlocked."),
		kindArg, fileArg,
	), s.unlockDocument)

	s.mcp.AddTool(mcp.NewTool("create_new_version",
		mcp.WithDescription("Lock the newest version of a family and store an unlocked copy under the next version. "+
			"Enumerator documents ignore name and the bump flags."),
		kindArg,
		mcp.WithString("name", mcp.Description("Family name (required for dictionaries and types)")),
		mcp.WithBoolean("major", mcp.Description("Bump the major component")),
		mcp.WithBoolean("minor", mcp.Description("Bump the minor component")),
		mcp.WithBoolean("patch", mcp.Description("Bump the patch component")),
		mcp.WithBoolean("enumerators", mcp.Description("Bump the enumerators component")),
	), s.createNewVersion)

	s.mcp.AddTool(mcp.NewTool("export_bson_schema",
		mcp.WithDescription("Render a dictionary or type document as a MongoDB $jsonSchema validator (relaxed Extended JSON)."),
		kindArg, fileArg,
	), s.exportBSONSchema)

	s.mcp.AddTool(mcp.NewTool("import_document",
		mcp.WithDescription("Import a YAML document from an http(s) URL or a base64 data URI."),
		kindArg,
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:application/yaml;base64,... URI")),
		mcp.WithString("file_name", mcp.Description("Target file name; defaults to the last URL path segment")),
	), s.importDocument)

	s.mcp.AddTool(mcp.NewTool("get_document_contract",
		mcp.WithDescription("Returns the schemakit document format contract. "+
			"Call this before editing documents to ensure correct structure."),
	), s.getDocumentContract)

	// Resource: document format contract.
	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Document Format Contract",
			mcp.WithResourceDescription("Stored document format, property types and edit operations."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDocumentFormatResource,
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

func target(req mcp.CallToolRequest) (models.DocumentKind, string, error) {
	k, err := req.RequireString("kind")
	if err != nil {
		return "", "", err
	}
	kind, err := models.ParseDocumentKind(k)
	if err != nil {
		return "", "", err
	}
	fileName, err := req.RequireString("file_name")
	if err != nil {
		return "", "", err
	}
	return kind, fileName, nil
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	k, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := models.ParseDocumentKind(k)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var items []models.Listing
	if name := req.GetString("name", ""); name != "" {
		items, err = s.svc.ListFamily(ctx, models.Family{Kind: kind, Name: name})
	} else {
		items, err = s.svc.List(ctx, kind)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(items), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, fileName, err := target(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := s.svc.Raw(ctx, kind, fileName)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(raw.Data)), nil
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) getReferences(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	refs, err := s.svc.References(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(refs) == 0 {
		return mcp.NewToolResultText("no references found"), nil
	}
	lines := make([]string, len(refs))
	for i, r := range refs {
		lines[i] = fmt.Sprintf("%s (%s)", r.Path, r.Type)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

// decodeOps accepts the ops argument either as an array or as a JSON string.
func decodeOps(arg any) ([]editor.Op, error) {
	var raw []byte
	switch v := arg.(type) {
	case nil:
		return nil, fmt.Errorf("ops is required")
	case string:
		raw = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("ops: %w", err)
		}
		raw = b
	}
	var ops []editor.Op
	if err := json.Unmarshal(raw, &ops); err != nil {
		return nil, fmt.Errorf("ops must be an array of operations: %w", err)
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("ops must not be empty")
	}
	return ops, nil
}

func (s *Server) editDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, fileName, err := target(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ops, err := decodeOps(req.GetArguments()["ops"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, res, err := s.svc.ApplyOps(ctx, kind, fileName, ops, checksum.FromETag(req.GetString("if_match", "")))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"file_name": d.FileName,
		"checksum":  d.Checksum,
		"added":     res.Added,
		"events":    res.Events,
	}), nil
}

func (s *Server) lockDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, fileName, err := target(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.Lock(ctx, kind, fileName); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("locked: %s", models.StoragePath(kind, fileName))), nil
}

func (s *Server) unlockDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, fileName, err := target(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.Unlock(ctx, kind, fileName); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("unlocked: %s", models.StoragePath(kind, fileName))), nil
}

func (s *Server) createNewVersion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	k, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := models.ParseDocumentKind(k)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.CreateVersion(ctx, kind, req.GetString("name", ""), version.Bump{
		Major:       req.GetBool("major", false),
		Minor:       req.GetBool("minor", false),
		Patch:       req.GetBool("patch", false),
		Enumerators: req.GetBool("enumerators", false),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", models.StoragePath(kind, d.FileName))), nil
}

func (s *Server) exportBSONSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, fileName, err := target(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	validator, err := s.svc.BSONSchema(ctx, kind, fileName)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := bsonschema.MarshalJSON(validator)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getDocumentContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormatContract), nil
}

func (s *Server) readDocumentFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     DocumentFormatContract,
		},
	}, nil
}
