package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"elevenlabs-mcp/internal/model"
	"elevenlabs-mcp/internal/protocol"
)

const costWarning = "⚠️ COST WARNING: This tool makes an API call to ElevenLabs which may incur costs. Only use when explicitly requested by the user."

var toolOrder = []string{
	protocol.ToolNameTextToSpeech,
	protocol.ToolNameSpeechToText,
	protocol.ToolNameTextToSoundEffects,
	protocol.ToolNameSearchVoices,
	protocol.ToolNameListModels,
	protocol.ToolNameGetVoice,
	protocol.ToolNameVoiceClone,
	protocol.ToolNameIsolateAudio,
	protocol.ToolNameCheckSubscription,
	protocol.ToolNameCreateAgent,
	protocol.ToolNameAddKnowledgeBase,
	protocol.ToolNameListAgents,
	protocol.ToolNameGetAgent,
	protocol.ToolNameGetConversation,
	protocol.ToolNameListConversations,
	protocol.ToolNameSpeechToSpeech,
	protocol.ToolNameTextToVoice,
	protocol.ToolNameCreateVoiceFromPreview,
	protocol.ToolNameMakeOutboundCall,
	protocol.ToolNameSearchVoiceLibrary,
	protocol.ToolNameListPhoneNumbers,
	protocol.ToolNamePlayAudio,
	protocol.ToolNameListGeneratedFiles,
}

type toolHandler func(context.Context, map[string]interface{}) (toolCallResult, *toolExecutionError)

type toolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
	handler     toolHandler
}

type toolCallResult struct {
	Content           []toolContentItem
	StructuredContent interface{}
	IsError           bool
}

type toolContentItem struct {
	Type string
	Text string
}

type toolExecutionError struct {
	Code      string
	Kind      model.ErrorKind
	Message   string
	Retryable bool
}

func (s *Server) buildToolRegistry() map[string]toolDefinition {
	defs := []toolDefinition{
		{
			Name: protocol.ToolNameTextToSpeech,
			Description: "Convert text to speech with a given voice and save the output audio file to a given directory. " +
				"Directory is optional, if not provided, the output file will be saved to $HOME/Desktop. " +
				"Only one of voice_id or voice_name can be provided. If none are provided, the default voice will be used.\n\n" + costWarning,
			InputSchema: textToSpeechInputSchema(),
			handler:     s.handleTextToSpeechTool,
		},
		{
			Name: protocol.ToolNameSpeechToText,
			Description: "Transcribe speech from an audio file and either save the output text file to a given directory " +
				"or return the text to the client directly.\n\n" + costWarning,
			InputSchema: speechToTextInputSchema(),
			handler:     s.handleSpeechToTextTool,
		},
		{
			Name: protocol.ToolNameTextToSoundEffects,
			Description: "Convert text description of a sound effect to sound effect with a given duration and save the output audio file to a given directory. " +
				"Directory is optional, if not provided, the output file will be saved to $HOME/Desktop. " +
				"Duration must be between 0.5 and 5 seconds.\n\n" + costWarning,
			InputSchema: textToSoundEffectsInputSchema(),
			handler:     s.handleTextToSoundEffectsTool,
		},
		{
			Name: protocol.ToolNameSearchVoices,
			Description: "Search for existing voices, a voice that has already been added to the user's ElevenLabs voice library. " +
				"Searches in name, description, labels and category.",
			InputSchema: searchVoicesInputSchema(),
			handler:     s.handleSearchVoicesTool,
		},
		{
			Name:        protocol.ToolNameListModels,
			Description: "List all available models",
			InputSchema: emptyInputSchema(),
			handler:     s.handleListModelsTool,
		},
		{
			Name:        protocol.ToolNameGetVoice,
			Description: "Get details of a specific voice",
			InputSchema: getVoiceInputSchema(),
			handler:     s.handleGetVoiceTool,
		},
		{
			Name:        protocol.ToolNameVoiceClone,
			Description: "Create an instant voice clone of a voice using provided audio files.\n\n" + costWarning,
			InputSchema: voiceCloneInputSchema(),
			handler:     s.handleVoiceCloneTool,
		},
		{
			Name: protocol.ToolNameIsolateAudio,
			Description: "Isolate audio from a file and save the output audio file to a given directory. " +
				"Directory is optional, if not provided, the output file will be saved to $HOME/Desktop.\n\n" + costWarning,
			InputSchema: isolateAudioInputSchema(),
			handler:     s.handleIsolateAudioTool,
		},
		{
			Name:        protocol.ToolNameCheckSubscription,
			Description: "Check the current subscription status. Could be used to measure the usage of the API.",
			InputSchema: emptyInputSchema(),
			handler:     s.handleCheckSubscriptionTool,
		},
		{
			Name:        protocol.ToolNameCreateAgent,
			Description: "Create a conversational AI agent with custom configuration.\n\n" + costWarning,
			InputSchema: createAgentInputSchema(),
			handler:     s.handleCreateAgentTool,
		},
		{
			Name:        protocol.ToolNameAddKnowledgeBase,
			Description: "Add a knowledge base to ElevenLabs workspace. Allowed types are epub, pdf, docx, txt, html.\n\n" + costWarning,
			InputSchema: addKnowledgeBaseInputSchema(),
			handler:     s.handleAddKnowledgeBaseTool,
		},
		{
			Name:        protocol.ToolNameListAgents,
			Description: "List all available conversational AI agents",
			InputSchema: emptyInputSchema(),
			handler:     s.handleListAgentsTool,
		},
		{
			Name:        protocol.ToolNameGetAgent,
			Description: "Get details about a specific conversational AI agent",
			InputSchema: getAgentInputSchema(),
			handler:     s.handleGetAgentTool,
		},
		{
			Name: protocol.ToolNameGetConversation,
			Description: "Gets conversation with transcript. Returns: conversation details and full transcript. " +
				"Use when: analyzing completed agent conversations.",
			InputSchema: getConversationInputSchema(),
			handler:     s.handleGetConversationTool,
		},
		{
			Name:        protocol.ToolNameListConversations,
			Description: "Lists agent conversations. Returns: conversation list with metadata. Use when: asked about conversation history.",
			InputSchema: listConversationsInputSchema(),
			handler:     s.handleListConversationsTool,
		},
		{
			Name:        protocol.ToolNameSpeechToSpeech,
			Description: "Transform audio from one voice to another using provided audio files.\n\n" + costWarning,
			InputSchema: speechToSpeechInputSchema(),
			handler:     s.handleSpeechToSpeechTool,
		},
		{
			Name: protocol.ToolNameTextToVoice,
			Description: "Create voice previews from a text prompt. Creates three previews with slight variations. " +
				"Saves the previews to a given directory. If no text is provided, the tool will auto-generate text.\n\n" +
				"Voice preview files are saved as: voice_design_(generated_voice_id)_(timestamp).mp3\n\n" + costWarning,
			InputSchema: textToVoiceInputSchema(),
			handler:     s.handleTextToVoiceTool,
		},
		{
			Name:        protocol.ToolNameCreateVoiceFromPreview,
			Description: "Add a generated voice to the voice library. Uses the voice ID from the `text_to_voice` tool.\n\n" + costWarning,
			InputSchema: createVoiceFromPreviewInputSchema(),
			handler:     s.handleCreateVoiceFromPreviewTool,
		},
		{
			Name: protocol.ToolNameMakeOutboundCall,
			Description: "Make an outbound call using an ElevenLabs agent. Automatically detects provider type " +
				"(Twilio or SIP trunk) and uses the appropriate API.\n\n" + costWarning,
			InputSchema: makeOutboundCallInputSchema(),
			handler:     s.handleMakeOutboundCallTool,
		},
		{
			Name:        protocol.ToolNameSearchVoiceLibrary,
			Description: "Search for a voice across the entire ElevenLabs voice library.",
			InputSchema: searchVoiceLibraryInputSchema(),
			handler:     s.handleSearchVoiceLibraryTool,
		},
		{
			Name:        protocol.ToolNameListPhoneNumbers,
			Description: "List all phone numbers associated with the ElevenLabs account",
			InputSchema: emptyInputSchema(),
			handler:     s.handleListPhoneNumbersTool,
		},
		{
			Name:        protocol.ToolNamePlayAudio,
			Description: "Play an audio file. Supports WAV and MP3 formats.",
			InputSchema: playAudioInputSchema(),
			handler:     s.handlePlayAudioTool,
		},
		{
			Name:        protocol.ToolNameListGeneratedFiles,
			Description: "List the most recent files written by this server's tools, newest first.",
			InputSchema: listGeneratedFilesInputSchema(),
			handler:     s.handleListGeneratedFilesTool,
		},
	}

	registry := make(map[string]toolDefinition, len(defs))
	for _, def := range defs {
		def.handler = withArgumentCheck(def.InputSchema, def.handler)
		registry[def.Name] = def
	}
	return registry
}

// withArgumentCheck rejects arguments that the tool's schema does not declare.
func withArgumentCheck(schema map[string]interface{}, next toolHandler) toolHandler {
	allowed := map[string]struct{}{}
	if props, ok := schema["properties"].(map[string]interface{}); ok {
		for key := range props {
			allowed[key] = struct{}{}
		}
	}
	return func(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
		if err := assertNoUnknownArguments(args, allowed); err != nil {
			return toolCallResult{}, invalidField(err)
		}
		return next(ctx, args)
	}
}

func textResult(text string) toolCallResult {
	return toolCallResult{
		Content: []toolContentItem{{Type: "text", Text: text}},
	}
}

// jsonResult renders v as indented JSON text and keeps structured as the
// structured content of the result.
func jsonResult(v interface{}, structured interface{}) (toolCallResult, *toolExecutionError) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolCallResult{}, &toolExecutionError{
			Code:    protocol.ErrorCodeInternal,
			Message: "failed to encode result",
		}
	}
	return toolCallResult{
		Content:           []toolContentItem{{Type: "text", Text: string(raw)}},
		StructuredContent: structured,
	}, nil
}

func newToolErrorResult(toolErr toolExecutionError) toolCallResult {
	text := fmt.Sprintf("ERROR: %s: %s", toolErr.Code, toolErr.Message)
	errObj := map[string]interface{}{
		"code":      toolErr.Code,
		"message":   toolErr.Message,
		"retryable": toolErr.Retryable,
	}
	if toolErr.Kind != "" {
		errObj["kind"] = string(toolErr.Kind)
	}
	return toolCallResult{
		IsError: true,
		Content: []toolContentItem{
			{Type: "text", Text: text},
		},
		StructuredContent: map[string]interface{}{
			"error": errObj,
		},
	}
}

func invalidField(err error) *toolExecutionError {
	return &toolExecutionError{Code: protocol.ErrorCodeInvalidField, Kind: model.KindValidation, Message: err.Error()}
}

func missingField(key string) *toolExecutionError {
	return &toolExecutionError{Code: protocol.ErrorCodeMissingField, Kind: model.KindValidation, Message: key + " is required"}
}

var kindCodes = map[model.ErrorKind]string{
	model.KindConfiguration: protocol.ErrorCodeConfiguration,
	model.KindNotFound:      protocol.ErrorCodeNotFound,
	model.KindValidation:    protocol.ErrorCodeValidation,
	model.KindUpstream:      protocol.ErrorCodeUpstream,
}

// toolError maps errors raised below the tool layer into sanitized
// toolExecutionError values.
func (s *Server) toolError(err error) *toolExecutionError {
	if err == nil {
		return nil
	}

	var te *model.ToolError
	if errors.As(err, &te) {
		code, ok := kindCodes[te.Kind]
		if !ok {
			code = protocol.ErrorCodeInternal
		}
		return &toolExecutionError{
			Code:      code,
			Kind:      te.Kind,
			Message:   te.Message,
			Retryable: model.IsRetryable(err),
		}
	}

	var providerErr *model.ProviderError
	if errors.As(err, &providerErr) {
		msg := strings.TrimSpace(providerErr.Message)
		if msg == "" {
			msg = providerErr.Error()
		}
		return &toolExecutionError{
			Code:      protocol.ErrorCodeUpstream,
			Kind:      model.KindUpstream,
			Message:   msg,
			Retryable: providerErr.Retryable,
		}
	}

	s.logger.Error().Err(err).Msg("tool failed")
	return &toolExecutionError{
		Code:    protocol.ErrorCodeInternal,
		Message: err.Error(),
	}
}

func (s *Server) upstream(message string, err error) *toolExecutionError {
	return s.toolError(model.Upstream(message, err))
}

// writeOutput stores data at path and records it in the ledger. Ledger
// failures are logged and otherwise ignored.
func (s *Server) writeOutput(ctx context.Context, tool, path string, data []byte) *toolExecutionError {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return s.toolError(fmt.Errorf("write %s: %w", path, err))
	}
	if s.ledger == nil {
		return nil
	}
	err := s.ledger.Record(ctx, model.GeneratedFile{
		Tool:      tool,
		Path:      path,
		SizeBytes: int64(len(data)),
		CreatedAt: s.now(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("tool", tool).Str("path", path).Msg("ledger record failed")
	}
	return nil
}

func (s *Server) defaultVoiceID() string {
	if id := strings.TrimSpace(s.cfg.ElevenLabs.DefaultVoiceID); id != "" {
		return id
	}
	return protocol.DefaultVoiceID
}

func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func assertNoUnknownArguments(args map[string]interface{}, allowed map[string]struct{}) error {
	keys := make([]string, 0, len(args))
	for key := range args {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("unknown argument: %s", key)
		}
	}
	return nil
}

func parseOptionalBool(args map[string]interface{}, key string, defaultValue bool) (bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return defaultValue, nil
	}
	v, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("%s must be a boolean", key)
	}
	return v, nil
}

func parseRequiredString(args map[string]interface{}, key string) (string, bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return "", false, nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", true, fmt.Errorf("%s must be a string", key)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", true, fmt.Errorf("%s must be a non-empty string", key)
	}
	return value, true, nil
}

// requireString wraps parseRequiredString for the common case where absence
// and emptiness are both caller errors.
func requireString(args map[string]interface{}, key string) (string, *toolExecutionError) {
	value, present, err := parseRequiredString(args, key)
	if !present {
		return "", missingField(key)
	}
	if err != nil {
		return "", invalidField(err)
	}
	return value, nil
}

func parseOptionalString(args map[string]interface{}, key string) (string, error) {
	value, _, err := parseOptionalStringWithPresence(args, key)
	return value, err
}

// parseOptionalStringWithPresence distinguishes an explicit empty string from
// an absent or null argument.
func parseOptionalStringWithPresence(args map[string]interface{}, key string) (string, bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return "", false, nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", true, fmt.Errorf("%s must be a string", key)
	}
	return strings.TrimSpace(value), true, nil
}

// parseRawString is parseOptionalStringWithPresence without trimming. It is
// used for text that is sent upstream verbatim.
func parseRawString(args map[string]interface{}, key string) (string, bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return "", false, nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", true, fmt.Errorf("%s must be a string", key)
	}
	return value, true, nil
}

func parseOptionalEnum(args map[string]interface{}, key, defaultValue string, allowed []string) (string, error) {
	value, err := parseOptionalString(args, key)
	if err != nil {
		return "", err
	}
	if value == "" {
		return defaultValue, nil
	}
	for _, candidate := range allowed {
		if value == candidate {
			return value, nil
		}
	}
	return "", fmt.Errorf("%s must be one of: %s", key, strings.Join(allowed, ", "))
}

func parseOptionalNumber(args map[string]interface{}, key string, defaultValue float64) (float64, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return defaultValue, nil
	}
	switch v := raw.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%s must be a finite number", key)
		}
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("%s must be a number", key)
	}
}

func parseNumberInRange(args map[string]interface{}, key string, defaultValue, lo, hi float64) (float64, error) {
	v, err := parseOptionalNumber(args, key, defaultValue)
	if err != nil {
		return 0, err
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be between %g and %g", key, lo, hi)
	}
	return v, nil
}

func parseInteger(value interface{}, field string) (int, error) {
	switch v := value.(type) {
	case float64:
		if math.Trunc(v) != v {
			return 0, fmt.Errorf("%s must be an integer", field)
		}
		if v < math.MinInt || v > math.MaxInt {
			return 0, fmt.Errorf("%s is out of range", field)
		}
		return int(v), nil
	case int:
		return v, nil
	case int64:
		if v < math.MinInt || v > math.MaxInt {
			return 0, fmt.Errorf("%s is out of range", field)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("%s must be an integer", field)
	}
}

func parseOptionalIntegerWithPresence(args map[string]interface{}, key string) (int, bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	v, err := parseInteger(raw, key)
	if err != nil {
		return 0, true, err
	}
	return v, true, nil
}

func parseIntegerInRange(args map[string]interface{}, key string, defaultValue, lo, hi int) (int, error) {
	v, present, err := parseOptionalIntegerWithPresence(args, key)
	if err != nil {
		return 0, err
	}
	if !present {
		return defaultValue, nil
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be between %d and %d", key, lo, hi)
	}
	return v, nil
}

func parseOptionalStringSlice(args map[string]interface{}, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}

	switch typed := raw.(type) {
	case []interface{}:
		out := make([]string, 0, len(typed))
		for idx, item := range typed {
			v, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", key, idx)
			}
			v = strings.TrimSpace(v)
			if v == "" {
				return nil, fmt.Errorf("%s[%d] must be a non-empty string", key, idx)
			}
			out = append(out, v)
		}
		return out, nil
	case []string:
		out := make([]string, 0, len(typed))
		for idx, item := range typed {
			item = strings.TrimSpace(item)
			if item == "" {
				return nil, fmt.Errorf("%s[%d] must be a non-empty string", key, idx)
			}
			out = append(out, item)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s must be an array of strings", key)
	}
}
