package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"elevenlabs-mcp/internal/model"
)

// AgentSpec carries the settings used to build a conversational agent.
type AgentSpec struct {
	Name                     string
	FirstMessage             string
	SystemPrompt             string
	VoiceID                  string
	Language                 string
	LLM                      string
	Temperature              float64
	MaxTokens                *int
	ASRQuality               string
	ModelID                  string
	OptimizeStreamingLatency int
	Stability                float64
	SimilarityBoost          float64
	TurnTimeout              int
	MaxDurationSeconds       int
	RecordVoice              bool
	RetentionDays            int
}

// ConversationConfig renders the agent's conversation_config payload.
func (s AgentSpec) ConversationConfig() map[string]interface{} {
	prompt := map[string]interface{}{
		"prompt":      s.SystemPrompt,
		"llm":         s.LLM,
		"temperature": s.Temperature,
	}
	if s.MaxTokens != nil {
		prompt["max_tokens"] = *s.MaxTokens
	}
	tts := map[string]interface{}{
		"model_id":                   s.ModelID,
		"optimize_streaming_latency": s.OptimizeStreamingLatency,
		"stability":                  s.Stability,
		"similarity_boost":           s.SimilarityBoost,
	}
	if s.VoiceID != "" {
		tts["voice_id"] = s.VoiceID
	}
	return map[string]interface{}{
		"agent": map[string]interface{}{
			"language":      s.Language,
			"first_message": s.FirstMessage,
			"prompt":        prompt,
		},
		"asr":          map[string]interface{}{"quality": s.ASRQuality},
		"tts":          tts,
		"turn":         map[string]interface{}{"turn_timeout": s.TurnTimeout},
		"conversation": map[string]interface{}{"max_duration_seconds": s.MaxDurationSeconds},
	}
}

// PlatformSettings renders the agent's platform_settings payload.
func (s AgentSpec) PlatformSettings() map[string]interface{} {
	return map[string]interface{}{
		"privacy": map[string]interface{}{
			"record_voice":   s.RecordVoice,
			"retention_days": s.RetentionDays,
		},
	}
}

func (c *Client) CreateAgent(ctx context.Context, spec AgentSpec) (string, error) {
	var parsed struct {
		AgentID string `json:"agent_id"`
	}
	err := c.doJSON(ctx, request{
		op:     "create agent",
		method: http.MethodPost,
		path:   "/v1/convai/agents/create",
		jsonBody: map[string]interface{}{
			"name":                spec.Name,
			"conversation_config": spec.ConversationConfig(),
			"platform_settings":   spec.PlatformSettings(),
		},
	}, &parsed)
	if err != nil {
		return "", err
	}
	return parsed.AgentID, nil
}

type agentWire struct {
	AgentID            string `json:"agent_id"`
	Name               string `json:"name"`
	CreatedAtUnixSecs  int64  `json:"created_at_unix_secs"`
	ConversationConfig struct {
		TTS *struct {
			VoiceID string `json:"voice_id"`
		} `json:"tts"`
	} `json:"conversation_config"`
	Metadata *struct {
		CreatedAtUnixSecs int64 `json:"created_at_unix_secs"`
	} `json:"metadata"`
}

func (w agentWire) normalize() model.Agent {
	a := model.Agent{ID: w.AgentID, Name: w.Name}
	if w.ConversationConfig.TTS != nil {
		a.VoiceID = w.ConversationConfig.TTS.VoiceID
	}
	created := w.CreatedAtUnixSecs
	if w.Metadata != nil && w.Metadata.CreatedAtUnixSecs != 0 {
		created = w.Metadata.CreatedAtUnixSecs
	}
	if created != 0 {
		a.CreatedAt = time.Unix(created, 0)
	}
	return a
}

func (c *Client) GetAgent(ctx context.Context, agentID string) (model.Agent, error) {
	var parsed agentWire
	if err := c.doJSON(ctx, request{op: "get agent", method: http.MethodGet, path: "/v1/convai/agents/" + pathEscape(agentID)}, &parsed); err != nil {
		return model.Agent{}, err
	}
	return parsed.normalize(), nil
}

func (c *Client) ListAgents(ctx context.Context) ([]model.Agent, error) {
	var parsed struct {
		Agents []agentWire `json:"agents"`
	}
	if err := c.doJSON(ctx, request{op: "list agents", method: http.MethodGet, path: "/v1/convai/agents"}, &parsed); err != nil {
		return nil, err
	}
	out := make([]model.Agent, 0, len(parsed.Agents))
	for _, a := range parsed.Agents {
		out = append(out, a.normalize())
	}
	return out, nil
}

// AttachKnowledgeBase appends ref to the agent's prompt knowledge base. The
// agent's conversation_config is fetched and written back as a whole so that
// fields this client does not model survive the update.
func (c *Client) AttachKnowledgeBase(ctx context.Context, agentID string, ref model.KnowledgeBaseRef) error {
	var current struct {
		ConversationConfig map[string]interface{} `json:"conversation_config"`
	}
	path := "/v1/convai/agents/" + pathEscape(agentID)
	if err := c.doJSON(ctx, request{op: "get agent", method: http.MethodGet, path: path}, &current); err != nil {
		return err
	}

	cfg := current.ConversationConfig
	if cfg == nil {
		cfg = map[string]interface{}{}
	}
	agent := childMap(cfg, "agent")
	prompt := childMap(agent, "prompt")
	kb, _ := prompt["knowledge_base"].([]interface{})
	prompt["knowledge_base"] = append(kb, map[string]interface{}{
		"type": ref.Type,
		"name": ref.Name,
		"id":   ref.ID,
	})

	return c.doJSON(ctx, request{
		op:       "update agent",
		method:   http.MethodPatch,
		path:     path,
		jsonBody: map[string]interface{}{"conversation_config": cfg},
	}, nil)
}

func childMap(parent map[string]interface{}, key string) map[string]interface{} {
	if m, ok := parent[key].(map[string]interface{}); ok {
		return m
	}
	m := map[string]interface{}{}
	parent[key] = m
	return m
}

func (c *Client) KnowledgeBaseFromURL(ctx context.Context, name, docURL string) (string, error) {
	var parsed struct {
		ID string `json:"id"`
	}
	err := c.doJSON(ctx, request{
		op:       "knowledge base url",
		method:   http.MethodPost,
		path:     "/v1/convai/knowledge-base/url",
		jsonBody: map[string]string{"name": name, "url": docURL},
	}, &parsed)
	return parsed.ID, err
}

func (c *Client) KnowledgeBaseFromFile(ctx context.Context, name, filename string, data []byte) (string, error) {
	var parsed struct {
		ID string `json:"id"`
	}
	err := c.doJSON(ctx, request{
		op:     "knowledge base file",
		method: http.MethodPost,
		path:   "/v1/convai/knowledge-base/file",
		form:   (&multipartForm{}).field("name", name).file("file", uploadName(filename, "text.txt"), data),
	}, &parsed)
	return parsed.ID, err
}

type ConversationQuery struct {
	AgentID             string
	Cursor              string
	CallStartBeforeUnix *int64
	CallStartAfterUnix  *int64
	PageSize            int
}

func (c *Client) ListConversations(ctx context.Context, q ConversationQuery) (model.ConversationPage, error) {
	query := url.Values{}
	if q.AgentID != "" {
		query.Set("agent_id", q.AgentID)
	}
	if q.Cursor != "" {
		query.Set("cursor", q.Cursor)
	}
	if q.CallStartBeforeUnix != nil {
		query.Set("call_start_before_unix", strconv.FormatInt(*q.CallStartBeforeUnix, 10))
	}
	if q.CallStartAfterUnix != nil {
		query.Set("call_start_after_unix", strconv.FormatInt(*q.CallStartAfterUnix, 10))
	}
	if q.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(q.PageSize))
	}

	var parsed struct {
		Conversations []struct {
			AgentID          string          `json:"agent_id"`
			AgentName        string          `json:"agent_name"`
			ConversationID   string          `json:"conversation_id"`
			StartTimeUnix    int64           `json:"start_time_unix_secs"`
			CallDurationSecs int             `json:"call_duration_secs"`
			MessageCount     int             `json:"message_count"`
			Status           string          `json:"status"`
			CallSuccessful   json.RawMessage `json:"call_successful"`
		} `json:"conversations"`
		HasMore    bool   `json:"has_more"`
		NextCursor string `json:"next_cursor"`
	}
	if err := c.doJSON(ctx, request{op: "list conversations", method: http.MethodGet, path: "/v1/convai/conversations", query: query}, &parsed); err != nil {
		return model.ConversationPage{}, err
	}

	page := model.ConversationPage{HasMore: parsed.HasMore, NextCursor: parsed.NextCursor}
	for _, cv := range parsed.Conversations {
		page.Conversations = append(page.Conversations, model.ConversationSummary{
			ID:             cv.ConversationID,
			Status:         cv.Status,
			AgentID:        cv.AgentID,
			AgentName:      cv.AgentName,
			StartTime:      time.Unix(cv.StartTimeUnix, 0),
			DurationSecs:   cv.CallDurationSecs,
			MessageCount:   cv.MessageCount,
			CallSuccessful: rawToText(cv.CallSuccessful),
		})
	}
	return page, nil
}

type conversationWire struct {
	ConversationID string `json:"conversation_id"`
	Status         string `json:"status"`
	AgentID        string `json:"agent_id"`
	Transcript     []struct {
		Role      string          `json:"role"`
		Message   *string         `json:"message"`
		Text      *string         `json:"text"`
		Timestamp json.RawMessage `json:"timestamp"`
	} `json:"transcript"`
	Metadata *struct {
		CallDurationSecs *int            `json:"call_duration_secs"`
		DurationSeconds  *int            `json:"duration_seconds"`
		StartTimeUnix    *int64          `json:"start_time_unix_secs"`
		StartedAt        json.RawMessage `json:"started_at"`
	} `json:"metadata"`
	Analysis *struct {
		Summary           string `json:"summary"`
		TranscriptSummary string `json:"transcript_summary"`
	} `json:"analysis"`
}

// normalize resolves alternate upstream field names in one place.
func (w conversationWire) normalize() model.Conversation {
	conv := model.Conversation{
		ID:      w.ConversationID,
		Status:  w.Status,
		AgentID: w.AgentID,
	}
	for _, e := range w.Transcript {
		entry := model.TranscriptEntry{Role: e.Role, Timestamp: rawToText(e.Timestamp)}
		switch {
		case e.Message != nil:
			entry.Message = *e.Message
		case e.Text != nil:
			entry.Message = *e.Text
		}
		conv.Transcript = append(conv.Transcript, entry)
	}
	if m := w.Metadata; m != nil {
		meta := &model.ConversationMetadata{}
		switch {
		case m.CallDurationSecs != nil:
			meta.DurationSecs, meta.HasDuration = *m.CallDurationSecs, true
		case m.DurationSeconds != nil:
			meta.DurationSecs, meta.HasDuration = *m.DurationSeconds, true
		}
		switch {
		case m.StartTimeUnix != nil:
			meta.StartedAt = strconv.FormatInt(*m.StartTimeUnix, 10)
		default:
			meta.StartedAt = rawToText(m.StartedAt)
		}
		conv.Metadata = meta
	}
	if a := w.Analysis; a != nil {
		conv.HasAnalysis = true
		conv.AnalysisSummary = a.Summary
		if conv.AnalysisSummary == "" {
			conv.AnalysisSummary = a.TranscriptSummary
		}
	}
	return conv
}

func (c *Client) GetConversation(ctx context.Context, conversationID string) (model.Conversation, error) {
	var parsed conversationWire
	if err := c.doJSON(ctx, request{op: "get conversation", method: http.MethodGet, path: "/v1/convai/conversations/" + pathEscape(conversationID)}, &parsed); err != nil {
		return model.Conversation{}, err
	}
	return parsed.normalize(), nil
}

func (c *Client) ListPhoneNumbers(ctx context.Context) ([]model.PhoneNumber, error) {
	var parsed []struct {
		PhoneNumber   string `json:"phone_number"`
		Label         string `json:"label"`
		PhoneNumberID string `json:"phone_number_id"`
		Provider      string `json:"provider"`
		AssignedAgent *struct {
			AgentID   string `json:"agent_id"`
			AgentName string `json:"agent_name"`
		} `json:"assigned_agent"`
	}
	if err := c.doJSON(ctx, request{op: "list phone numbers", method: http.MethodGet, path: "/v1/convai/phone-numbers"}, &parsed); err != nil {
		return nil, err
	}
	out := make([]model.PhoneNumber, 0, len(parsed))
	for _, p := range parsed {
		pn := model.PhoneNumber{
			ID:       p.PhoneNumberID,
			Number:   p.PhoneNumber,
			Provider: p.Provider,
			Label:    p.Label,
		}
		if p.AssignedAgent != nil {
			pn.AssignedAgentID = p.AssignedAgent.AgentID
			pn.AssignedAgentName = p.AssignedAgent.AgentName
		}
		out = append(out, pn)
	}
	return out, nil
}

type OutboundCallRequest struct {
	AgentID            string
	AgentPhoneNumberID string
	ToNumber           string
}

// OutboundCall places a call through the telephony provider that owns the
// phone number: "twilio" or "sip_trunk".
func (c *Client) OutboundCall(ctx context.Context, provider string, req OutboundCallRequest) (model.OutboundCall, error) {
	var path string
	switch strings.ToLower(provider) {
	case "twilio":
		path = "/v1/convai/twilio/outbound-call"
	case "sip_trunk":
		path = "/v1/convai/sip-trunk/outbound-call"
	default:
		return model.OutboundCall{}, fmt.Errorf("unsupported provider type: %s", provider)
	}

	var parsed struct {
		Success        bool   `json:"success"`
		Message        string `json:"message"`
		ConversationID string `json:"conversation_id"`
		CallSid        string `json:"callSid"`
		SipCallID      string `json:"sip_call_id"`
	}
	err := c.doJSON(ctx, request{
		op:     "outbound call",
		method: http.MethodPost,
		path:   path,
		jsonBody: map[string]string{
			"agent_id":              req.AgentID,
			"agent_phone_number_id": req.AgentPhoneNumberID,
			"to_number":             req.ToNumber,
		},
	}, &parsed)
	if err != nil {
		return model.OutboundCall{}, err
	}
	callID := parsed.CallSid
	if callID == "" {
		callID = parsed.SipCallID
	}
	return model.OutboundCall{
		Success:        parsed.Success,
		Message:        parsed.Message,
		ConversationID: parsed.ConversationID,
		CallID:         callID,
	}, nil
}

// Subscription returns the account subscription as indented JSON.
func (c *Client) Subscription(ctx context.Context) (string, error) {
	raw, err := c.do(ctx, request{op: "subscription", method: http.MethodGet, path: "/v1/user/subscription"})
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", &model.ProviderError{Code: "ELEVENLABS_FAILED", Message: "failed to decode subscription response", Cause: err}
	}
	return buf.String(), nil
}
