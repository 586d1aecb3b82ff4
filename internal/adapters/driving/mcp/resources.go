package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// URIScheme is the custom URI scheme for docqa resources.
	uriScheme = "docqa://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing chats.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "chats",
		Name:        "chats",
		Description: "Stored chats of the current user",
		MIMEType:    "application/json",
	}, s.handleChatsResource)

	// Template for one chat's transcript.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "chats/{chatId}",
		Name:        "chat-transcript",
		Description: "Messages and documents of a chat",
		MIMEType:    "application/json",
	}, s.handleChatResource)

	if s.ports.KnowledgeBases != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "knowledge-base",
			Name:        "knowledge-base",
			Description: "Documents indexed in the open chat's knowledge base",
			MIMEType:    "application/json",
		}, s.handleKnowledgeBaseResource)
	}
}

// handleChatsResource returns the user's chats.
func (s *Server) handleChatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	_, out, err := s.handleListChats(ctx, nil, ListChatsInput{})
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	return jsonResult(req.Params.URI, out.Chats)
}

// handleChatResource returns the transcript of one chat.
// Reading a chat other than the open one opens it.
func (s *Server) handleChatResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	defer s.exclusive()()

	chatID := extractChatID(req.Params.URI)
	if chatID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	m := s.sessions()
	cur := m.Current()
	if cur == nil || cur.ID != chatID {
		chats, err := m.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing chats: %w", err)
		}
		found := false
		for _, c := range chats {
			found = found || c.ID == chatID
		}
		if !found {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		if _, err := m.Load(ctx, chatID); err != nil {
			return nil, fmt.Errorf("loading chat: %w", err)
		}
		cur = m.Current()
	}

	type message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	transcript := struct {
		ID        string             `json:"id"`
		Title     string             `json:"title"`
		Messages  []message          `json:"messages"`
		Documents []ApprovedFileInfo `json:"documents"`
	}{ID: cur.ID, Title: cur.DisplayTitle()}
	for _, msg := range cur.Messages {
		transcript.Messages = append(transcript.Messages, message{Role: msg.Role, Content: msg.Content})
	}
	for _, f := range cur.ApprovedFiles {
		transcript.Documents = append(transcript.Documents, ApprovedFileInfo{Name: f.Name, Path: f.Path})
	}
	return jsonResult(req.Params.URI, transcript)
}

// handleKnowledgeBaseResource describes the open chat's knowledge base.
func (s *Server) handleKnowledgeBaseResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	defer s.exclusive()()

	cur := s.sessions().Current()
	if cur == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	handle, err := s.ports.KnowledgeBases.Resolve(ctx, cur.KnowledgeBaseRef)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	info, err := s.ports.KnowledgeBases.Info(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("describing knowledge base: %w", err)
	}
	return jsonResult(req.Params.URI, map[string]any{
		"ref":             handle.Ref(),
		"embedding_model": info.EmbeddingModel,
		"passages":        info.ChunkCount,
		"documents":       info.Sources,
	})
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractChatID extracts the chat ID from a URI like docqa://chats/{chatId}.
func extractChatID(uri string) string {
	const prefix = uriScheme + "chats/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
