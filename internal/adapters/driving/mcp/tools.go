package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the uploaded documents"`
	ChatID   string `json:"chat_id,omitempty" jsonschema:"chat to ask in (default: the open chat)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer   string   `json:"answer"`
	Sources  []string `json:"sources"`
	Grounded bool     `json:"grounded"`
	ChatID   string   `json:"chat_id"`
}

// NewChatInput is the input schema for the new_chat tool.
type NewChatInput struct {
	Paths []string `json:"paths,omitempty" jsonschema:"local document paths to upload into the new chat"`
}

// ChatOutput describes a chat after a tool call.
type ChatOutput struct {
	ChatID  string             `json:"chat_id"`
	Title   string             `json:"title"`
	State   string             `json:"state"`
	Warning string             `json:"warning,omitempty"`
	Ingest  *IngestOutput      `json:"ingest,omitempty"`
	Files   []ApprovedFileInfo `json:"files,omitempty"`
}

// ApprovedFileInfo is one document attached to a chat.
type ApprovedFileInfo struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// UploadInput is the input schema for the upload tool.
type UploadInput struct {
	Paths []string `json:"paths" jsonschema:"local document paths (pdf, docx, doc, png, jpg)"`
}

// IngestOutput summarises an ingestion batch.
type IngestOutput struct {
	Documents int               `json:"documents"`
	Indexed   int               `json:"indexed"`
	Methods   map[string]string `json:"methods,omitempty"`
	Rejected  []RejectionInfo   `json:"rejected,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// RejectionInfo is one rejected file.
type RejectionInfo struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// LoadChatInput is the input schema for the load_chat tool.
type LoadChatInput struct {
	ChatID string `json:"chat_id" jsonschema:"id of the chat to open"`
}

// ListChatsInput is the input schema for the list_chats tool.
type ListChatsInput struct{}

// ListChatsOutput is the output schema for the list_chats tool.
type ListChatsOutput struct {
	Chats []ChatSummary `json:"chats"`
	Count int           `json:"count"`
}

// ChatSummary is one stored chat.
type ChatSummary struct {
	ChatID    string `json:"chat_id"`
	Title     string `json:"title"`
	UpdatedAt string `json:"updated_at"`
	Messages  int    `json:"messages"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only the documents uploaded to the chat, citing the source files",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "new_chat",
		Description: "Start a new chat, optionally uploading and indexing documents",
	}, s.handleNewChat)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "upload_documents",
		Description: "Upload local documents into the open chat and index them",
	}, s.handleUpload)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "load_chat",
		Description: "Open a stored chat",
	}, s.handleLoadChat)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_chats",
		Description: "List stored chats, most recent first",
	}, s.handleListChats)

	if s.ports.Collections != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest_documents",
			Description: "Add local documents to the organization's shared knowledge base (admins only)",
		}, s.handleIngest)
	}
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	defer s.exclusive()()

	m := s.sessions()
	if input.ChatID != "" {
		if _, err := m.Load(ctx, input.ChatID); err != nil {
			return nil, AskOutput{}, err
		}
	}

	answer, err := m.Ask(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, errors.New(domain.Reason(err))
	}

	out := AskOutput{
		Answer:   answer.Text,
		Sources:  answer.Sources,
		Grounded: answer.Grounded,
	}
	if out.Sources == nil {
		out.Sources = []string{}
	}
	if cur := m.Current(); cur != nil {
		out.ChatID = cur.ID
	}
	return nil, out, nil
}

// handleNewChat handles the new_chat tool invocation.
func (s *Server) handleNewChat(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input NewChatInput,
) (*mcp.CallToolResult, ChatOutput, error) {
	defer s.exclusive()()

	m := s.sessions()
	if _, err := m.NewChat(ctx); err != nil {
		return nil, ChatOutput{}, err
	}
	if len(input.Paths) == 0 {
		return nil, chatOutput(m), nil
	}
	return s.uploadPaths(ctx, m, input.Paths)
}

// handleUpload handles the upload_documents tool invocation.
func (s *Server) handleUpload(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UploadInput,
) (*mcp.CallToolResult, ChatOutput, error) {
	defer s.exclusive()()

	m := s.sessions()
	if m.Current() == nil {
		if _, err := m.NewChat(ctx); err != nil {
			return nil, ChatOutput{}, err
		}
	}
	return s.uploadPaths(ctx, m, input.Paths)
}

func (s *Server) uploadPaths(ctx context.Context, m driving.SessionManager, paths []string) (*mcp.CallToolResult, ChatOutput, error) {
	files, closeAll, err := openFiles(paths)
	if err != nil {
		return nil, ChatOutput{}, err
	}
	defer closeAll()

	_, rejected, err := m.Upload(ctx, files)
	if err != nil {
		return nil, ChatOutput{}, err
	}

	out := chatOutput(m)
	report, err := m.Process(ctx)
	out.Ingest = ingestOutput(report, err)
	if out.Ingest == nil {
		out.Ingest = &IngestOutput{}
	}
	out.Ingest.Rejected = append(rejections(rejected), out.Ingest.Rejected...)
	out.State = string(m.State())
	return nil, out, nil
}

// handleLoadChat handles the load_chat tool invocation.
func (s *Server) handleLoadChat(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input LoadChatInput,
) (*mcp.CallToolResult, ChatOutput, error) {
	defer s.exclusive()()

	m := s.sessions()
	warning, err := m.Load(ctx, input.ChatID)
	if err != nil {
		return nil, ChatOutput{}, err
	}
	out := chatOutput(m)
	out.Warning = warning
	return nil, out, nil
}

// handleListChats handles the list_chats tool invocation.
func (s *Server) handleListChats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListChatsInput,
) (*mcp.CallToolResult, ListChatsOutput, error) {
	chats, err := s.sessions().List(ctx)
	if err != nil {
		return nil, ListChatsOutput{}, err
	}
	out := ListChatsOutput{Chats: make([]ChatSummary, len(chats)), Count: len(chats)}
	for i, c := range chats {
		out.Chats[i] = ChatSummary{
			ChatID:    c.ID,
			Title:     c.Title,
			UpdatedAt: c.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
			Messages:  c.Messages,
		}
	}
	return nil, out, nil
}

// handleIngest handles the ingest_documents tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UploadInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	defer s.exclusive()()

	files, closeAll, err := openFiles(input.Paths)
	if err != nil {
		return nil, IngestOutput{}, err
	}
	defer closeAll()

	report, err := s.ports.Collections.Add(ctx, s.identity, files)
	if report == nil && err != nil {
		return nil, IngestOutput{}, err
	}
	return nil, *ingestOutput(report, err), nil
}

func chatOutput(m driving.SessionManager) ChatOutput {
	out := ChatOutput{State: string(m.State())}
	if cur := m.Current(); cur != nil {
		out.ChatID = cur.ID
		out.Title = cur.DisplayTitle()
		for _, f := range cur.ApprovedFiles {
			out.Files = append(out.Files, ApprovedFileInfo{Name: f.Name, Path: f.Path})
		}
	}
	return out
}

func ingestOutput(report *driving.IngestReport, err error) *IngestOutput {
	out := &IngestOutput{}
	if report != nil {
		out.Documents = report.Documents
		out.Indexed = report.Indexed
		out.Rejected = rejections(report.Rejected)
		if len(report.Methods) > 0 {
			out.Methods = make(map[string]string, len(report.Methods))
			for name, m := range report.Methods {
				out.Methods[name] = string(m)
			}
		}
	}
	if err != nil {
		out.Error = domain.Reason(err)
	}
	return out
}

func rejections(in []driving.Rejection) []RejectionInfo {
	if len(in) == 0 {
		return nil
	}
	out := make([]RejectionInfo, len(in))
	for i, r := range in {
		out[i] = RejectionInfo{Name: r.Name, Reason: r.Reason}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// openFiles opens local documents for upload.
func openFiles(paths []string) ([]domain.UploadFile, func(), error) {
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("no paths given: %w", domain.ErrInvalidInput)
	}
	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	uploads := make([]domain.UploadFile, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		files = append(files, f)
		info, err := f.Stat()
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		uploads = append(uploads, domain.UploadFile{Name: filepath.Base(p), Size: info.Size(), Content: f})
	}
	return uploads, closeAll, nil
}
