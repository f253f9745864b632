package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"elevenlabs-mcp/internal/config"
	"elevenlabs-mcp/internal/elevenlabs"
	"elevenlabs-mcp/internal/files"
	"elevenlabs-mcp/internal/model"
	"elevenlabs-mcp/internal/protocol"
)

const (
	rateLimitSweepInterval = time.Minute
	rateLimitIdleTTL       = 10 * time.Minute
)

// API is the part of the ElevenLabs client the tools depend on.
type API interface {
	TextToSpeech(ctx context.Context, req elevenlabs.TTSRequest) ([]byte, error)
	SpeechToText(ctx context.Context, req elevenlabs.STTRequest) (model.Transcription, error)
	SoundEffect(ctx context.Context, req elevenlabs.SoundEffectRequest) ([]byte, error)
	IsolateAudio(ctx context.Context, filename string, audio []byte) ([]byte, error)
	SpeechToSpeech(ctx context.Context, voiceID, modelID, filename string, audio []byte) ([]byte, error)

	SearchVoices(ctx context.Context, q elevenlabs.VoiceSearch) ([]model.Voice, error)
	GetVoice(ctx context.Context, voiceID string) (model.Voice, error)
	SharedVoices(ctx context.Context, q elevenlabs.SharedVoiceQuery) ([]model.SharedVoice, error)
	ListModels(ctx context.Context) ([]model.Model, error)
	CloneVoice(ctx context.Context, name, description string, samples []elevenlabs.CloneFile) (model.Voice, error)
	CreateVoicePreviews(ctx context.Context, description, text string) ([]model.VoicePreview, error)
	CreateVoiceFromPreview(ctx context.Context, name, description, generatedVoiceID string) (model.Voice, error)

	CreateAgent(ctx context.Context, spec elevenlabs.AgentSpec) (string, error)
	GetAgent(ctx context.Context, agentID string) (model.Agent, error)
	ListAgents(ctx context.Context) ([]model.Agent, error)
	AttachKnowledgeBase(ctx context.Context, agentID string, ref model.KnowledgeBaseRef) error
	KnowledgeBaseFromURL(ctx context.Context, name, docURL string) (string, error)
	KnowledgeBaseFromFile(ctx context.Context, name, filename string, data []byte) (string, error)
	ListConversations(ctx context.Context, q elevenlabs.ConversationQuery) (model.ConversationPage, error)
	GetConversation(ctx context.Context, conversationID string) (model.Conversation, error)
	ListPhoneNumbers(ctx context.Context) ([]model.PhoneNumber, error)
	OutboundCall(ctx context.Context, provider string, req elevenlabs.OutboundCallRequest) (model.OutboundCall, error)

	Subscription(ctx context.Context) (string, error)
}

// Ledger records files written by tools. Recent returns the newest rows
// first; an empty tool matches every tool.
type Ledger interface {
	Record(ctx context.Context, f model.GeneratedFile) error
	Recent(ctx context.Context, tool string, limit int) ([]model.GeneratedFile, error)
}

// Player plays a local audio file to completion.
type Player interface {
	Play(ctx context.Context, path string) error
}

// ServerOptions carries the optional collaborators of a Server. Zero values
// are replaced with working defaults where one exists.
type ServerOptions struct {
	Version  string
	Logger   zerolog.Logger
	Resolver *files.Resolver
	Spooler  files.Spooler
	Ledger   Ledger
	Player   Player
	Now      func() time.Time

	// EventEmitter receives lifecycle events for the NDJSON stream.
	EventEmitter func(level, event string, data map[string]interface{})
}

type Server struct {
	cfg      config.Config
	api      API
	resolver *files.Resolver
	spooler  files.Spooler
	ledger   Ledger
	player   Player
	logger   zerolog.Logger
	version  string
	now      func() time.Time

	eventEmitter func(level, event string, data map[string]interface{})

	tools   map[string]toolDefinition
	sdk     *mcpsdk.Server
	limiter *ipRateLimiter
	trusted []*net.IPNet
}

func NewServer(cfg config.Config, api API, opts ServerOptions) *Server {
	resolver := opts.Resolver
	if resolver == nil {
		resolver = files.NewResolver(cfg.Files.BasePath)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	version := strings.TrimSpace(opts.Version)
	if version == "" {
		version = "dev"
	}

	s := &Server{
		cfg:          cfg,
		api:          api,
		resolver:     resolver,
		spooler:      opts.Spooler,
		ledger:       opts.Ledger,
		player:       opts.Player,
		logger:       opts.Logger,
		version:      version,
		now:          now,
		eventEmitter: opts.EventEmitter,
		limiter:      newIPRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst),
		trusted:      parseTrustedProxies(cfg.HTTP.TrustedProxies),
	}
	s.tools = s.buildToolRegistry()

	s.sdk = mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    protocol.ServerName,
		Version: version,
	}, &mcpsdk.ServerOptions{
		Instructions: serverInstructions,
	})
	for _, name := range toolOrder {
		def, ok := s.tools[name]
		if !ok {
			continue
		}
		s.sdk.AddTool(&mcpsdk.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		}, s.sdkHandler(def))
	}
	return s
}

const serverInstructions = "Tools marked with a cost warning call the ElevenLabs API and may incur costs. " +
	"Only use them when explicitly requested by the user. Tools without a cost warning only read existing data."

// MCPServer exposes the underlying protocol server, mainly for in-process
// transports.
func (s *Server) MCPServer() *mcpsdk.Server {
	return s.sdk
}

// RunStdio serves the protocol on stdin/stdout until ctx is cancelled or the
// client disconnects.
func (s *Server) RunStdio(ctx context.Context) error {
	s.emit("info", "server_started", map[string]interface{}{"transport": "stdio", "version": s.version})
	return s.sdk.Run(ctx, &mcpsdk.StdioTransport{})
}

// Handler returns the HTTP router: a health probe plus the streamable MCP
// endpoint behind CORS and per-client rate limiting.
func (s *Server) Handler() http.Handler {
	mcpPath := strings.TrimSpace(s.cfg.HTTP.MCPPath)
	if mcpPath == "" {
		mcpPath = protocol.DefaultMCPPath
	}

	streamable := mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server {
		return s.sdk
	}, &mcpsdk.StreamableHTTPOptions{})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", protocol.MCPSessionHeader, "Mcp-Protocol-Version", "Last-Event-ID"},
		ExposedHeaders:   []string{protocol.MCPSessionHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "ok",
			"server":  protocol.ServerName,
			"version": s.version,
		})
	})
	r.With(s.rateLimit).Handle(mcpPath, streamable)
	return r
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientIP(r, s.trusted)) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]interface{}{
					"code":      protocol.ErrorCodeRateLimited,
					"message":   "rate limit exceeded",
					"retryable": true,
				},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("request_id", uuid.NewString()).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// Serve blocks while handling HTTP on listener. Cancel ctx to shut down;
// in-flight requests are allowed to drain.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.sweepRateLimiter(sweepCtx)

	s.emit("info", "server_started", map[string]interface{}{
		"transport": "http",
		"addr":      listener.Addr().String(),
		"path":      s.cfg.HTTP.MCPPath,
		"version":   s.version,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(listener) }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) sweepRateLimiter(ctx context.Context) {
	ticker := time.NewTicker(rateLimitSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.cleanup(rateLimitIdleTTL)
		}
	}
}

func (s *Server) emit(level, event string, data map[string]interface{}) {
	if s.eventEmitter != nil {
		s.eventEmitter(level, event, data)
	}
}

// sdkHandler adapts a registry entry to the protocol server. Tool failures
// are reported as error results, never as protocol errors.
func (s *Server) sdkHandler(def toolDefinition) mcpsdk.ToolHandler {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		start := time.Now()

		var raw json.RawMessage
		if req != nil && req.Params != nil {
			raw = req.Params.Arguments
		}

		var (
			result  toolCallResult
			toolErr *toolExecutionError
		)
		args, err := decodeArguments(raw)
		if err != nil {
			toolErr = &toolExecutionError{Code: protocol.ErrorCodeInvalidField, Message: err.Error()}
		} else {
			result, toolErr = def.handler(ctx, args)
		}

		elapsed := time.Since(start)
		data := map[string]interface{}{"tool": def.Name, "duration_ms": elapsed.Milliseconds()}
		var event *zerolog.Event
		if toolErr != nil {
			result = newToolErrorResult(*toolErr)
			event = s.logger.Warn().Str("code", toolErr.Code).Str("kind", string(toolErr.Kind))
			data["code"] = toolErr.Code
			s.emit("warn", "tool_call", data)
		} else {
			event = s.logger.Info()
			s.emit("info", "tool_call", data)
		}
		event.Str("tool", def.Name).Dur("duration", elapsed).Msg("tool call")

		return result.toSDK(), nil
	}
}

func decodeArguments(raw json.RawMessage) (map[string]interface{}, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return map[string]interface{}{}, nil
	}
	var args map[string]interface{}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, errors.New("arguments must be a JSON object")
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	return args, nil
}

func (r toolCallResult) toSDK() *mcpsdk.CallToolResult {
	out := &mcpsdk.CallToolResult{
		Content: make([]mcpsdk.Content, 0, len(r.Content)),
		IsError: r.IsError,
	}
	if r.StructuredContent != nil {
		out.StructuredContent = r.StructuredContent
	}
	for _, item := range r.Content {
		out.Content = append(out.Content, &mcpsdk.TextContent{Text: item.Text})
	}
	return out
}
