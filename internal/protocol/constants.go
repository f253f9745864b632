package protocol

const (
	ToolNameTextToSpeech           = "text_to_speech"
	ToolNameSpeechToText           = "speech_to_text"
	ToolNameTextToSoundEffects     = "text_to_sound_effects"
	ToolNameSearchVoices           = "search_voices"
	ToolNameListModels             = "list_models"
	ToolNameGetVoice               = "get_voice"
	ToolNameVoiceClone             = "voice_clone"
	ToolNameIsolateAudio           = "isolate_audio"
	ToolNameCheckSubscription      = "check_subscription"
	ToolNameCreateAgent            = "create_agent"
	ToolNameAddKnowledgeBase       = "add_knowledge_base_to_agent"
	ToolNameListAgents             = "list_agents"
	ToolNameGetAgent               = "get_agent"
	ToolNameGetConversation        = "get_conversation"
	ToolNameListConversations      = "list_conversations"
	ToolNameSpeechToSpeech         = "speech_to_speech"
	ToolNameTextToVoice            = "text_to_voice"
	ToolNameCreateVoiceFromPreview = "create_voice_from_preview"
	ToolNameMakeOutboundCall       = "make_outbound_call"
	ToolNameSearchVoiceLibrary     = "search_voice_library"
	ToolNameListPhoneNumbers       = "list_phone_numbers"
	ToolNamePlayAudio              = "play_audio"
	ToolNameListGeneratedFiles     = "list_generated_files"
)

const (
	ErrorCodeInvalidField  = "INVALID_FIELD"
	ErrorCodeMissingField  = "MISSING_FIELD"
	ErrorCodeConfiguration = "CONFIGURATION_ERROR"
	ErrorCodeNotFound      = "NOT_FOUND"
	ErrorCodeValidation    = "VALIDATION_ERROR"
	ErrorCodeUpstream      = "UPSTREAM_ERROR"
	ErrorCodeInternal      = "INTERNAL_ERROR"
	ErrorCodeRateLimited   = "RATE_LIMITED"
)

const (
	EnvAPIKey         = "ELEVENLABS_API_KEY"
	EnvBasePath       = "ELEVENLABS_MCP_BASE_PATH"
	EnvBaseURL        = "ELEVENLABS_BASE_URL"
	EnvDefaultVoiceID = "ELEVENLABS_DEFAULT_VOICE_ID"
	EnvLogLevel       = "ELEVENLABS_MCP_LOG_LEVEL"
	EnvHTTPListen     = "ELEVENLABS_MCP_HTTP_LISTEN"
	EnvHTTPPath       = "ELEVENLABS_MCP_HTTP_PATH"
	EnvLedgerPath     = "ELEVENLABS_MCP_LEDGER"
	EnvAllowedOrigins = "ELEVENLABS_MCP_ALLOWED_ORIGINS"
	EnvRateLimitRPS   = "ELEVENLABS_MCP_RATE_LIMIT_RPS"
	EnvTrustedProxies = "ELEVENLABS_MCP_TRUSTED_PROXIES"
)

const (
	ServerName = "ElevenLabs"

	DefaultBaseURL    = "https://api.elevenlabs.io"
	DefaultVoiceID    = "cgSgspJ2msm6clMCkdW9"
	DefaultListenAddr = "127.0.0.1:8087"
	DefaultMCPPath    = "/mcp"

	MCPSessionHeader = "Mcp-Session-Id"
)
