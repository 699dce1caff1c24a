package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/realign"
	"github.com/aretw0/realign/internal/logging"
	"github.com/aretw0/realign/internal/presentation/graph"
	"github.com/aretw0/realign/pkg/domain"
	"github.com/aretw0/realign/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DefaultWaitTimeout bounds how long send_message waits for a pending reply.
const DefaultWaitTimeout = 60 * time.Second

// Resource URIs.
const (
	CatalogURI = "realign://catalog"
	GraphURI   = "realign://graph"
)

// SessionResult is the structured payload every session tool returns.
type SessionResult struct {
	SessionID    string           `json:"session_id" jsonschema_description:"Session identifier to pass to the other tools"`
	Mode         domain.Mode      `json:"mode" jsonschema_description:"selecting, collecting, awaiting_advice or chatting"`
	Step         *int             `json:"step,omitempty" jsonschema_description:"Question index while collecting"`
	Profile      map[string]any   `json:"profile" jsonschema_description:"Answers collected so far"`
	Messages     []domain.Message `json:"messages" jsonschema_description:"Full conversation log"`
	PendingChats int              `json:"pending_chats" jsonschema_description:"Chat replies still outstanding"`
}

// SessionArgs identifies a session.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// SelectArgs are the arguments of select_option.
type SelectArgs struct {
	SessionID string `json:"session_id"`
	Option    string `json:"option"`
}

// MessageArgs are the arguments of send_message.
type MessageArgs struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	Wait      bool   `json:"wait"`
}

// Server exposes an Assistant as MCP tools.
type Server struct {
	assistant   *realign.Assistant
	mcpServer   *server.MCPServer
	logger      *slog.Logger
	maxInput    int
	waitTimeout time.Duration
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger. It must not write to stdout under stdio.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMaxInputSize overrides the sanitizer limit for messages.
func WithMaxInputSize(n int) Option {
	return func(s *Server) {
		s.maxInput = n
	}
}

// WithWaitTimeout bounds send_message calls that wait for a reply.
func WithWaitTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.waitTimeout = d
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(a *realign.Assistant, opts ...Option) *Server {
	s := &Server{
		assistant:   a,
		mcpServer:   server.NewMCPServer("realign-mcp", strings.TrimSpace(realign.Version)),
		waitTimeout: DefaultWaitTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on port until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("open_session",
		mcp.WithDescription("Open a wellness assistant session. The reply carries the welcome message and its quick replies."),
		mcp.WithOutputSchema[SessionResult](),
	), mcp.NewStructuredToolHandler(s.OpenSession))

	s.mcpServer.AddTool(mcp.NewTool("select_option",
		mcp.WithDescription("Pick a quick reply such as 'Health Advice'. Selecting it again restarts the questionnaire."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithString("option", mcp.Required(), mcp.Description("Option label")),
		mcp.WithOutputSchema[SessionResult](),
	), mcp.NewStructuredToolHandler(s.SelectOption))

	s.mcpServer.AddTool(mcp.NewTool("send_message",
		mcp.WithDescription("Answer the current question or, once advice is shown, chat freely."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithString("text", mcp.Required(), mcp.Description("User input")),
		mcp.WithBoolean("wait", mcp.Description("Wait for pending advice or chat replies before returning")),
		mcp.WithOutputSchema[SessionResult](),
	), mcp.NewStructuredToolHandler(s.SendMessage))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Read the current state of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithOutputSchema[SessionResult](),
	), mcp.NewStructuredToolHandler(s.GetSession))

	s.mcpServer.AddTool(mcp.NewTool("close_session",
		mcp.WithDescription("Discard a session and cancel its outstanding requests."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := request.GetString("session_id", "")
		if err := s.assistant.Close(ctx, id); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("closed " + id), nil
	})
}

// OpenSession handles the open_session tool.
func (s *Server) OpenSession(ctx context.Context, _ mcp.CallToolRequest, _ SessionArgs) (SessionResult, error) {
	state, err := s.assistant.Open(ctx)
	if err != nil {
		return SessionResult{}, err
	}
	return newSessionResult(state), nil
}

// SelectOption handles the select_option tool.
func (s *Server) SelectOption(ctx context.Context, _ mcp.CallToolRequest, args SelectArgs) (SessionResult, error) {
	state, err := s.assistant.Select(ctx, args.SessionID, args.Option)
	if err != nil {
		return SessionResult{}, err
	}
	return newSessionResult(state), nil
}

// SendMessage handles the send_message tool.
func (s *Server) SendMessage(ctx context.Context, _ mcp.CallToolRequest, args MessageArgs) (SessionResult, error) {
	text, err := runner.SanitizeInputLimit(args.Text, s.maxInput)
	if err != nil {
		s.logger.Warn("MCP SendMessage: Input rejected", "err", err, "size", len(args.Text))
		return SessionResult{}, fmt.Errorf("input rejected: %w", err)
	}

	state, err := s.assistant.Submit(ctx, args.SessionID, text)
	if err != nil {
		return SessionResult{}, err
	}
	if args.Wait {
		if state, err = s.settle(ctx, state); err != nil {
			return SessionResult{}, err
		}
	}
	return newSessionResult(state), nil
}

// GetSession handles the get_session tool.
func (s *Server) GetSession(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (SessionResult, error) {
	state, err := s.assistant.State(ctx, args.SessionID)
	if err != nil {
		return SessionResult{}, err
	}
	return newSessionResult(state), nil
}

// settle waits until no remote call of the session is outstanding.
func (s *Server) settle(ctx context.Context, state *domain.State) (*domain.State, error) {
	if !busy(state) {
		return state, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.waitTimeout)
	defer cancel()

	updates := make(chan struct{}, 1)
	remove := s.assistant.AddObserver(func(st *domain.State, _ *domain.StateDiff) {
		if st.SessionID != state.SessionID {
			return
		}
		select {
		case updates <- struct{}{}:
		default:
		}
	})
	defer remove()

	for {
		// Reload after registering so a commit between Submit and here is seen.
		next, err := s.assistant.State(ctx, state.SessionID)
		if err != nil {
			return nil, err
		}
		if !busy(next) {
			return next, nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return next, nil
			}
			return nil, ctx.Err()
		case <-updates:
		}
	}
}

func busy(s *domain.State) bool {
	return s.Mode() == domain.ModeAwaitingAdvice || s.PendingChats > 0
}

func newSessionResult(s *domain.State) SessionResult {
	r := SessionResult{
		SessionID:    s.SessionID,
		Mode:         s.Mode(),
		Profile:      s.Profile.Payload(),
		Messages:     s.Messages,
		PendingChats: s.PendingChats,
	}
	if step, ok := s.Phase.Step(); ok {
		r.Step = &step
	}
	return r
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(CatalogURI, "Intake Questionnaire",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.assistant.Catalog().Questions())
		if err != nil {
			return nil, fmt.Errorf("failed to encode catalog: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      CatalogURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})

	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Wizard State Machine",
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      GraphURI,
				MIMEType: "text/plain",
				Text:     graph.GenerateMermaid(s.assistant.Catalog(), nil),
			},
		}, nil
	})
}
