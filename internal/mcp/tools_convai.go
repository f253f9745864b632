package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"elevenlabs-mcp/internal/elevenlabs"
	"elevenlabs-mcp/internal/files"
	"elevenlabs-mcp/internal/model"
)

const (
	defaultAgentLLM             = "gemini-2.0-flash-001"
	defaultAgentModelID         = "eleven_turbo_v2"
	defaultConversationPageSize = 30
	maxConversationPageSize     = 100
	defaultListMaxLength        = files.DefaultMaxLength

	agentTimeLayout = "2006-01-02 15:04:05"
)

func (s *Server) handleCreateAgentTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	name, toolErr := requireString(args, "name")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}
	firstMessage, toolErr := requireString(args, "first_message")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}
	systemPrompt, toolErr := requireString(args, "system_prompt")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}

	voiceID, voicePresent, err := parseOptionalStringWithPresence(args, "voice_id")
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if !voicePresent {
		voiceID = s.defaultVoiceID()
	}

	spec := elevenlabs.AgentSpec{
		Name:         name,
		FirstMessage: firstMessage,
		SystemPrompt: systemPrompt,
		VoiceID:      voiceID,
	}
	if spec.Language, err = parseOptionalString(args, "language"); err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if spec.Language == "" {
		spec.Language = "en"
	}
	if spec.LLM, err = parseOptionalString(args, "llm"); err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if spec.LLM == "" {
		spec.LLM = defaultAgentLLM
	}
	if spec.ASRQuality, err = parseOptionalEnum(args, "asr_quality", "high", []string{"high", "low"}); err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if spec.ModelID, err = parseOptionalString(args, "model_id"); err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if spec.ModelID == "" {
		spec.ModelID = defaultAgentModelID
	}
	if spec.Temperature, err = parseNumberInRange(args, "temperature", 0.5, 0, 1); err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if spec.Stability, err = parseNumberInRange(args, "stability", 0.5, 0, 1); err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if spec.SimilarityBoost, err = parseNumberInRange(args, "similarity_boost", 0.8, 0, 1); err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if spec.OptimizeStreamingLatency, err = parseIntegerInRange(args, "optimize_streaming_latency", 3, 0, 4); err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if spec.TurnTimeout, err = parseIntegerInRange(args, "turn_timeout", 7, 1, 600); err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if spec.MaxDurationSeconds, err = parseIntegerInRange(args, "max_duration_seconds", 300, 1, 86400); err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if spec.RetentionDays, err = parseIntegerInRange(args, "retention_days", 730, 0, 3650); err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if spec.RecordVoice, err = parseOptionalBool(args, "record_voice", true); err != nil {
		return toolCallResult{}, invalidField(err)
	}
	maxTokens, present, err := parseOptionalIntegerWithPresence(args, "max_tokens")
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if present {
		if maxTokens < 1 {
			return toolCallResult{}, invalidField(fmt.Errorf("max_tokens must be at least 1"))
		}
		spec.MaxTokens = &maxTokens
	}

	agentID, err := s.api.CreateAgent(ctx, spec)
	if err != nil {
		return toolCallResult{}, s.upstream("Failed to create agent", err)
	}

	shownVoice := voiceID
	if shownVoice == "" {
		shownVoice = "Default"
	}
	return textResult(fmt.Sprintf("Agent created successfully: Name: %s, Agent ID: %s, System Prompt: %s, Voice ID: %s, Language: %s, LLM: %s, "+
		"You can use this agent ID for future interactions with the agent.",
		name, agentID, systemPrompt, shownVoice, spec.Language, spec.LLM)), nil
}

func (s *Server) handleAddKnowledgeBaseTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	agentID, toolErr := requireString(args, "agent_id")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}
	kbName, toolErr := requireString(args, "knowledge_base_name")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}

	docURL, hasURL, err := parseOptionalStringWithPresence(args, "url")
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	inputPath, hasFile, err := parseOptionalStringWithPresence(args, "input_file_path")
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	text, hasText, err := parseRawString(args, "text")
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}

	provided := 0
	for _, p := range []bool{hasURL, hasFile, hasText} {
		if p {
			provided++
		}
	}
	switch {
	case provided == 0:
		return toolCallResult{}, s.toolError(model.Validationf("Must provide either a URL, a file, or text"))
	case provided > 1:
		return toolCallResult{}, s.toolError(model.Validationf("Must provide exactly one of: URL, file, or text"))
	}

	var (
		docID   string
		refType = "file"
	)
	switch {
	case hasURL:
		refType = "url"
		docID, err = s.api.KnowledgeBaseFromURL(ctx, kbName, docURL)
	case hasText:
		docID, err = s.api.KnowledgeBaseFromFile(ctx, kbName, "text.txt", []byte(text))
	default:
		filePath, resolveErr := s.resolver.InputFile(inputPath, false)
		if resolveErr != nil {
			return toolCallResult{}, s.toolError(resolveErr)
		}
		data, readErr := readInput(filePath)
		if readErr != nil {
			return toolCallResult{}, s.toolError(readErr)
		}
		docID, err = s.api.KnowledgeBaseFromFile(ctx, kbName, filepath.Base(filePath), data)
	}
	if err != nil {
		return toolCallResult{}, s.upstream("Failed to create knowledge base document", err)
	}

	ref := model.KnowledgeBaseRef{Type: refType, Name: kbName, ID: docID}
	if err := s.api.AttachKnowledgeBase(ctx, agentID, ref); err != nil {
		return toolCallResult{}, s.upstream("Failed to attach knowledge base", err)
	}
	return textResult(fmt.Sprintf("Knowledge base created with ID: %s and added to agent %s successfully.", docID, agentID)), nil
}

func (s *Server) handleListAgentsTool(ctx context.Context, _ map[string]interface{}) (toolCallResult, *toolExecutionError) {
	agents, err := s.api.ListAgents(ctx)
	if err != nil {
		return toolCallResult{}, s.upstream("Failed to list agents", err)
	}
	if len(agents) == 0 {
		return textResult("No agents found."), nil
	}
	entries := make([]string, 0, len(agents))
	for _, a := range agents {
		entries = append(entries, fmt.Sprintf("%s (ID: %s)", a.Name, a.ID))
	}
	return textResult("Available agents: " + strings.Join(entries, ",")), nil
}

func (s *Server) handleGetAgentTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	agentID, toolErr := requireString(args, "agent_id")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}
	agent, err := s.api.GetAgent(ctx, agentID)
	if err != nil {
		return toolCallResult{}, s.upstream("Failed to get agent", err)
	}

	voiceInfo := "None"
	if agent.VoiceID != "" {
		voiceInfo = "Voice ID: " + agent.VoiceID
	}
	created := "N/A"
	if !agent.CreatedAt.IsZero() {
		created = agent.CreatedAt.Local().Format(agentTimeLayout)
	}
	return textResult(fmt.Sprintf("Agent Details: Name: %s, Agent ID: %s, Voice Configuration: %s, Created At: %s",
		agent.Name, agent.ID, voiceInfo, created)), nil
}

func (s *Server) handleGetConversationTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	conversationID, toolErr := requireString(args, "conversation_id")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}
	conv, err := s.api.GetConversation(ctx, conversationID)
	if err != nil {
		return toolCallResult{}, s.upstream("Failed to fetch conversation", err)
	}

	transcript, _, err := s.spooler.ConversationTranscript(conv.Transcript, files.DefaultTranscriptMaxLength)
	if err != nil {
		return toolCallResult{}, s.toolError(err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Conversation Details:\nID: %s\nStatus: %s\nAgent ID: %s\nMessage Count: %d\n\nTranscript:\n%s",
		conv.ID, conv.Status, conv.AgentID, len(conv.Transcript), transcript)

	if meta := conv.Metadata; meta != nil {
		duration := "N/A"
		if meta.HasDuration {
			duration = fmt.Sprintf("%d", meta.DurationSecs)
		}
		started := meta.StartedAt
		if started == "" {
			started = "N/A"
		}
		fmt.Fprintf(&b, "\n\nMetadata:\nDuration: %s seconds\nStarted: %s", duration, started)
	}
	if conv.HasAnalysis {
		summary := conv.AnalysisSummary
		if summary == "" {
			summary = "Analysis available but no summary"
		}
		fmt.Fprintf(&b, "\n\nAnalysis:\n%s", summary)
	}
	return textResult(b.String()), nil
}

func (s *Server) handleListConversationsTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	q := elevenlabs.ConversationQuery{}
	var err error
	if q.AgentID, err = parseOptionalString(args, "agent_id"); err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if q.Cursor, err = parseOptionalString(args, "cursor"); err != nil {
		return toolCallResult{}, invalidField(err)
	}
	for key, dst := range map[string]**int64{
		"call_start_before_unix": &q.CallStartBeforeUnix,
		"call_start_after_unix":  &q.CallStartAfterUnix,
	} {
		v, present, err := parseOptionalIntegerWithPresence(args, key)
		if err != nil {
			return toolCallResult{}, invalidField(err)
		}
		if present {
			ts := int64(v)
			*dst = &ts
		}
	}

	pageSize, present, err := parseOptionalIntegerWithPresence(args, "page_size")
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if !present {
		pageSize = defaultConversationPageSize
	}
	if pageSize < 1 {
		return toolCallResult{}, invalidField(fmt.Errorf("page_size must be at least 1"))
	}
	q.PageSize = min(pageSize, maxConversationPageSize)

	maxLength, present, err := parseOptionalIntegerWithPresence(args, "max_length")
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if !present {
		maxLength = defaultListMaxLength
	}
	if maxLength < 1 {
		return toolCallResult{}, invalidField(fmt.Errorf("max_length must be at least 1"))
	}

	page, err := s.api.ListConversations(ctx, q)
	if err != nil {
		return toolCallResult{}, s.upstream("Failed to list conversations", err)
	}
	if len(page.Conversations) == 0 {
		return textResult("No conversations found."), nil
	}

	entries := make([]string, 0, len(page.Conversations))
	for _, c := range page.Conversations {
		agentName := c.AgentName
		if agentName == "" {
			agentName = "N/A"
		}
		entries = append(entries, fmt.Sprintf("Conversation ID: %s\nStatus: %s\nAgent: %s (ID: %s)\nStarted: %s\nDuration: %d seconds\nMessages: %d\nCall Successful: %s",
			c.ID, c.Status, agentName, c.AgentID, c.StartTime.Local().Format(agentTimeLayout), c.DurationSecs, c.MessageCount, c.CallSuccessful))
	}

	pagination := fmt.Sprintf("Showing %d conversations", len(page.Conversations))
	if page.HasMore {
		pagination += fmt.Sprintf(" (more available, next cursor: %s)", page.NextCursor)
	}
	full := pagination + "\n\n" + strings.Join(entries, "\n\n")

	out, err := s.spooler.HandleLargeText(full, maxLength, "conversation list")
	if err != nil {
		return toolCallResult{}, s.toolError(err)
	}
	if out != full {
		out = pagination + "\n\n" + out
	}
	return textResult(out), nil
}

func (s *Server) handleListPhoneNumbersTool(ctx context.Context, _ map[string]interface{}) (toolCallResult, *toolExecutionError) {
	numbers, err := s.api.ListPhoneNumbers(ctx)
	if err != nil {
		return toolCallResult{}, s.upstream("Failed to list phone numbers", err)
	}
	if len(numbers) == 0 {
		return textResult("No phone numbers found."), nil
	}

	entries := make([]string, 0, len(numbers))
	for _, n := range numbers {
		assigned := "None"
		if n.AssignedAgentID != "" {
			assigned = fmt.Sprintf("%s (ID: %s)", n.AssignedAgentName, n.AssignedAgentID)
		}
		entries = append(entries, fmt.Sprintf("Phone Number: %s\nID: %s\nProvider: %s\nLabel: %s\nAssigned Agent: %s",
			n.Number, n.ID, n.Provider, n.Label, assigned))
	}
	return textResult("Phone Numbers:\n\n" + strings.Join(entries, "\n\n")), nil
}

func (s *Server) handleMakeOutboundCallTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	agentID, toolErr := requireString(args, "agent_id")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}
	phoneID, toolErr := requireString(args, "agent_phone_number_id")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}
	toNumber, toolErr := requireString(args, "to_number")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}

	numbers, err := s.api.ListPhoneNumbers(ctx)
	if err != nil {
		return toolCallResult{}, s.upstream("Failed to list phone numbers", err)
	}
	var phone *model.PhoneNumber
	for i := range numbers {
		if numbers[i].ID == phoneID {
			phone = &numbers[i]
			break
		}
	}
	if phone == nil {
		return toolCallResult{}, s.toolError(model.NotFoundf("Phone number with ID %s not found.", phoneID))
	}

	var providerInfo string
	switch strings.ToLower(phone.Provider) {
	case "twilio":
		providerInfo = "Twilio"
	case "sip_trunk":
		providerInfo = "SIP trunk"
	default:
		return toolCallResult{}, s.toolError(model.Validationf("Unsupported provider type: %s", phone.Provider))
	}

	call, err := s.api.OutboundCall(ctx, phone.Provider, elevenlabs.OutboundCallRequest{
		AgentID:            agentID,
		AgentPhoneNumberID: phoneID,
		ToNumber:           toNumber,
	})
	if err != nil {
		return toolCallResult{}, s.upstream("Failed to initiate outbound call", err)
	}
	return textResult(fmt.Sprintf("Outbound call initiated via %s: success=%t message='%s' conversation_id='%s' call_id='%s'.",
		providerInfo, call.Success, call.Message, call.ConversationID, call.CallID)), nil
}
