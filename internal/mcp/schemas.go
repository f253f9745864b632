package mcp

var outputFormats = []string{
	"mp3_22050_32",
	"mp3_44100_32",
	"mp3_44100_64",
	"mp3_44100_96",
	"mp3_44100_128",
	"mp3_44100_192",
	"pcm_8000",
	"pcm_16000",
	"pcm_22050",
	"pcm_24000",
	"pcm_44100",
	"ulaw_8000",
	"alaw_8000",
	"opus_48000_32",
	"opus_48000_64",
	"opus_48000_96",
	"opus_48000_128",
	"opus_48000_192",
}

const defaultOutputFormat = "mp3_44100_128"

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func emptyInputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{})
}

func stringProperty(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func stringPropertyWithDefault(description, def string) map[string]interface{} {
	p := stringProperty(description)
	p["default"] = def
	return p
}

func enumProperty(description string, values []string, def string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description, "enum": values, "default": def}
}

func numberProperty(description string, def, minimum, maximum float64) map[string]interface{} {
	return map[string]interface{}{"type": "number", "description": description, "default": def, "minimum": minimum, "maximum": maximum}
}

func integerProperty(description string, def, minimum, maximum int) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": description, "default": def, "minimum": minimum, "maximum": maximum}
}

func booleanProperty(description string, def bool) map[string]interface{} {
	return map[string]interface{}{"type": "boolean", "description": description, "default": def}
}

func outputDirectoryProperty() map[string]interface{} {
	return stringProperty("Directory where files should be saved. Defaults to $HOME/Desktop if not provided.")
}

func outputFormatProperty() map[string]interface{} {
	return enumProperty("Output format of the generated audio, formatted as codec_sample_rate_bitrate. "+
		"MP3 with 192kbps bitrate requires Creator tier or above. PCM with 44.1kHz sample rate requires Pro tier or above. "+
		"The μ-law format is commonly used for Twilio audio inputs.", outputFormats, defaultOutputFormat)
}

func inputFilePathProperty(description string) map[string]interface{} {
	return stringProperty(description + " Relative paths require ELEVENLABS_MCP_BASE_PATH.")
}

func textToSpeechInputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"text":       stringProperty("The text to convert to speech."),
		"voice_name": stringProperty("The name of the voice to use."),
		"voice_id":   stringProperty("The ID of the voice to use."),
		"stability": numberProperty("Stability of the generated audio. Lower values introduce broader emotional range, "+
			"higher values can result in a monotonous voice.", 0.5, 0, 1),
		"similarity_boost": numberProperty("How closely the generated audio adheres to the original voice.", 0.75, 0, 1),
		"style":            numberProperty("Style exaggeration of the voice. Values above 0 may increase latency.", 0, 0, 1),
		"use_speaker_boost": booleanProperty("Boost the similarity to the original speaker at a slightly higher "+
			"computational cost.", true),
		"speed":            numberProperty("Speed of the generated speech, 1.0 being the default speed.", 1.0, 0.7, 1.2),
		"language":         stringPropertyWithDefault("ISO 639-1 language code for the voice.", "en"),
		"output_directory": outputDirectoryProperty(),
		"output_format":    outputFormatProperty(),
	}, "text")
}

func speechToTextInputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"input_file_path": inputFilePathProperty("Path to the audio file to transcribe."),
		"language_code":   stringPropertyWithDefault("ISO 639-3 language code for transcription.", "eng"),
		"diarize": booleanProperty("Annotate which speaker is currently speaking in the transcription.", false),
		"save_transcript_to_file": booleanProperty("Whether to save the transcript to a file.", true),
		"return_transcript_to_client_directly": booleanProperty("Whether to return the transcript to the client directly.", false),
		"output_directory":                     outputDirectoryProperty(),
	}, "input_file_path")
}

func textToSoundEffectsInputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"text":             stringProperty("Text description of the sound effect."),
		"duration_seconds": numberProperty("Duration of the sound effect in seconds.", 2.0, 0.5, 5),
		"output_directory": outputDirectoryProperty(),
		"output_format":    outputFormatProperty(),
	}, "text")
}

func searchVoicesInputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"search":         stringProperty("Search term to filter voices by. Searches in name, description, labels and category."),
		"sort":           enumProperty("Which field to sort by. `created_at_unix` might not be available for older voices.", []string{"created_at_unix", "name"}, "name"),
		"sort_direction": enumProperty("Sort order.", []string{"asc", "desc"}, "desc"),
	})
}

func getVoiceInputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"voice_id": stringProperty("ID of the voice."),
	}, "voice_id")
}

func voiceCloneInputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"name": stringProperty("Name of the cloned voice."),
		"files": map[string]interface{}{
			"type":        "array",
			"description": "Paths to the audio samples.",
			"items":       map[string]interface{}{"type": "string"},
			"minItems":    1,
		},
		"description": stringProperty("Description of the cloned voice."),
	}, "name", "files")
}

func isolateAudioInputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"input_file_path":  inputFilePathProperty("Path to the audio file to isolate."),
		"output_directory": outputDirectoryProperty(),
	}, "input_file_path")
}

func createAgentInputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"name":          stringProperty("Name of the agent."),
		"first_message": stringProperty(`First message the agent will say i.e. "Hi, how can I help you today?"`),
		"system_prompt": stringProperty("System prompt for the agent."),
		"voice_id":      stringProperty("ID of the voice to use for the agent."),
		"language":      stringPropertyWithDefault("ISO 639-1 language code for the agent.", "en"),
		"llm":           stringPropertyWithDefault("LLM to use for the agent.", defaultAgentLLM),
		"temperature":   numberProperty("The lower the temperature, the more deterministic the agent's responses.", 0.5, 0, 1),
		"max_tokens": map[string]interface{}{
			"type":        "integer",
			"description": "Maximum number of tokens to generate.",
			"minimum":     1,
		},
		"asr_quality": stringPropertyWithDefault("Quality of the ASR. `high` or `low`.", "high"),
		"model_id":    stringPropertyWithDefault("ID of the ElevenLabs model to use for the agent.", defaultAgentModelID),
		"optimize_streaming_latency": integerProperty("Optimize streaming latency.", 3, 0, 4),
		"stability":                  numberProperty("Stability for the agent.", 0.5, 0, 1),
		"similarity_boost":           numberProperty("Similarity boost for the agent.", 0.8, 0, 1),
		"turn_timeout":               integerProperty("Timeout for the agent to respond in seconds.", 7, 1, 600),
		"max_duration_seconds":       integerProperty("Maximum duration of a conversation in seconds.", 300, 1, 86400),
		"record_voice":               booleanProperty("Whether to record the agent's voice.", true),
		"retention_days":             integerProperty("Number of days to retain the agent's data.", 730, 0, 3650),
	}, "name", "first_message", "system_prompt")
}

func addKnowledgeBaseInputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"agent_id":            stringProperty("ID of the agent to add the knowledge base to."),
		"knowledge_base_name": stringProperty("Name of the knowledge base."),
		"url":                 stringProperty("URL of the knowledge base."),
		"input_file_path":     inputFilePathProperty("Path to the file to add to the knowledge base."),
		"text":                stringProperty("Text to add to the knowledge base."),
	}, "agent_id", "knowledge_base_name")
}

func getAgentInputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"agent_id": stringProperty("The ID of the agent to retrieve."),
	}, "agent_id")
}

func getConversationInputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"conversation_id": stringProperty("The unique identifier of the conversation to retrieve, " +
			"you can get the ids from the list_conversations tool."),
	}, "conversation_id")
}

func listConversationsInputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"agent_id":               stringProperty("Filter conversations by specific agent ID."),
		"cursor":                 stringProperty("Pagination cursor for retrieving next page of results."),
		"call_start_before_unix": map[string]interface{}{"type": "integer", "description": "Filter conversations that started before this Unix timestamp."},
		"call_start_after_unix":  map[string]interface{}{"type": "integer", "description": "Filter conversations that started after this Unix timestamp."},
		"page_size": map[string]interface{}{
			"type":        "integer",
			"description": "Number of conversations to return per page (1-100). Larger values are capped at 100.",
			"default":     defaultConversationPageSize,
			"minimum":     1,
		},
		"max_length": map[string]interface{}{
			"type":        "integer",
			"description": "Maximum characters returned inline before the list is saved to a temporary file.",
			"default":     defaultListMaxLength,
			"minimum":     1,
		},
	})
}

func speechToSpeechInputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"input_file_path":  inputFilePathProperty("Path to the audio file to transform."),
		"voice_name":       stringPropertyWithDefault("Name of the target voice.", defaultSTSVoiceName),
		"output_directory": outputDirectoryProperty(),
	}, "input_file_path")
}

func textToVoiceInputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"voice_description": stringProperty("Description of the voice to design."),
		"text":              stringProperty("Text spoken in the previews. Auto-generated when omitted."),
		"output_directory":  outputDirectoryProperty(),
	}, "voice_description")
}

func createVoiceFromPreviewInputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"generated_voice_id": stringProperty("Generated voice ID returned by text_to_voice."),
		"voice_name":         stringProperty("Name of the new voice."),
		"voice_description":  stringProperty("Description of the new voice."),
	}, "generated_voice_id", "voice_name", "voice_description")
}

func makeOutboundCallInputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"agent_id":              stringProperty("The ID of the agent that will handle the call."),
		"agent_phone_number_id": stringProperty("The ID of the phone number to use for the call."),
		"to_number":             stringProperty("The phone number to call (E.164 format: +1xxxxxxxxxx)."),
	}, "agent_id", "agent_phone_number_id", "to_number")
}

func searchVoiceLibraryInputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"page":      integerProperty("Page number to return (0-indexed).", 0, 0, 100000),
		"page_size": integerProperty("Number of voices to return per page.", 10, 1, 100),
		"search":    stringProperty("Search term to filter voices by."),
	})
}

func playAudioInputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"input_file_path": inputFilePathProperty("Path to the WAV or MP3 file to play."),
	}, "input_file_path")
}

func listGeneratedFilesInputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"limit": integerProperty("Maximum number of files to return.", defaultGeneratedFilesLimit, 1, maxGeneratedFilesLimit),
		"tool":  stringProperty("Only return files written by this tool."),
	})
}
