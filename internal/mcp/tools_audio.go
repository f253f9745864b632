package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"elevenlabs-mcp/internal/elevenlabs"
	"elevenlabs-mcp/internal/model"
	"elevenlabs-mcp/internal/protocol"
)

const (
	defaultTTSModel        = "eleven_multilingual_v2"
	lowLatencyTTSModel     = "eleven_flash_v2_5"
	defaultSTTModel        = "scribe_v1"
	defaultSTSModel        = "eleven_multilingual_sts_v2"
	defaultSTSVoiceName    = "Adam"
	defaultSTTLanguageCode = "eng"
)

// Languages that are only served well by the flash model.
var flashModelLanguages = map[string]struct{}{
	"hu": {},
	"no": {},
	"vi": {},
}

func ttsModelForLanguage(language string) string {
	if _, ok := flashModelLanguages[language]; ok {
		return lowLatencyTTSModel
	}
	return defaultTTSModel
}

func (s *Server) handleTextToSpeechTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	text, _, err := parseRawString(args, "text")
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if strings.TrimSpace(text) == "" {
		return toolCallResult{}, s.toolError(model.Validationf("Text is required."))
	}

	voiceName, err := parseOptionalString(args, "voice_name")
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	voiceID, err := parseOptionalString(args, "voice_id")
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if voiceID != "" && voiceName != "" {
		return toolCallResult{}, s.toolError(model.Validationf("voice_id and voice_name cannot both be provided."))
	}

	settings := elevenlabs.VoiceSettings{}
	if settings.Stability, err = parseNumberInRange(args, "stability", 0.5, 0, 1); err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if settings.SimilarityBoost, err = parseNumberInRange(args, "similarity_boost", 0.75, 0, 1); err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if settings.Style, err = parseNumberInRange(args, "style", 0, 0, 1); err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if settings.UseSpeakerBoost, err = parseOptionalBool(args, "use_speaker_boost", true); err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if settings.Speed, err = parseNumberInRange(args, "speed", 1.0, 0.7, 1.2); err != nil {
		return toolCallResult{}, invalidField(err)
	}

	language, err := parseOptionalString(args, "language")
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if language == "" {
		language = "en"
	}
	outputFormat, err := parseOptionalEnum(args, "output_format", defaultOutputFormat, outputFormats)
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	outputDir, err := parseOptionalString(args, "output_directory")
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}

	outDir, err := s.resolver.OutputPath(outputDir)
	if err != nil {
		return toolCallResult{}, s.toolError(err)
	}

	var voice *model.Voice
	switch {
	case voiceID != "":
		v, err := s.api.GetVoice(ctx, voiceID)
		if err != nil {
			return toolCallResult{}, s.upstream("Failed to get voice", err)
		}
		voice = &v
	case voiceName != "":
		v, toolErr := s.findVoiceByName(ctx, voiceName, "No voices found with that name.")
		if toolErr != nil {
			return toolCallResult{}, toolErr
		}
		voice = &v
	}

	resolvedID := s.defaultVoiceID()
	voiceUsed := resolvedID
	if voice != nil {
		resolvedID = voice.ID
		voiceUsed = voice.Name
	}

	outPath := s.resolver.OutputFile("tts", text, outDir, "mp3", false)
	audio, err := s.api.TextToSpeech(ctx, elevenlabs.TTSRequest{
		Text:          text,
		VoiceID:       resolvedID,
		ModelID:       ttsModelForLanguage(language),
		OutputFormat:  outputFormat,
		VoiceSettings: settings,
	})
	if err != nil {
		return toolCallResult{}, s.upstream("Failed to generate speech", err)
	}
	if toolErr := s.writeOutput(ctx, protocol.ToolNameTextToSpeech, outPath, audio); toolErr != nil {
		return toolCallResult{}, toolErr
	}

	return textResult(fmt.Sprintf("Success. File saved as: %s. Voice used: %s", outPath, voiceUsed)), nil
}

// findVoiceByName searches the user's voices and returns the exact name
// match. noneFound is the message used when the search returns nothing.
func (s *Server) findVoiceByName(ctx context.Context, name, noneFound string) (model.Voice, *toolExecutionError) {
	voices, err := s.api.SearchVoices(ctx, elevenlabs.VoiceSearch{Search: name})
	if err != nil {
		return model.Voice{}, s.upstream("Failed to search voices", err)
	}
	if len(voices) == 0 {
		return model.Voice{}, s.toolError(model.NotFoundf("%s", noneFound))
	}
	for _, v := range voices {
		if v.Name == name {
			return v, nil
		}
	}
	return model.Voice{}, s.toolError(model.NotFoundf("Voice with name: %s does not exist.", name))
}

func (s *Server) handleSpeechToTextTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	inputPath, toolErr := requireString(args, "input_file_path")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}
	languageCode, err := parseOptionalString(args, "language_code")
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if languageCode == "" {
		languageCode = defaultSTTLanguageCode
	}
	diarize, err := parseOptionalBool(args, "diarize", false)
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	saveToFile, err := parseOptionalBool(args, "save_transcript_to_file", true)
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	returnDirectly, err := parseOptionalBool(args, "return_transcript_to_client_directly", false)
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	outputDir, err := parseOptionalString(args, "output_directory")
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}

	if !saveToFile && !returnDirectly {
		return toolCallResult{}, s.toolError(model.Validationf("Must save transcript to file or return it to the client directly."))
	}

	filePath, err := s.resolver.InputFile(inputPath, true)
	if err != nil {
		return toolCallResult{}, s.toolError(err)
	}

	var outPath string
	if saveToFile {
		outDir, err := s.resolver.OutputPath(outputDir)
		if err != nil {
			return toolCallResult{}, s.toolError(err)
		}
		outPath = s.resolver.OutputFile("stt", filepath.Base(filePath), outDir, "txt", false)
	}

	audio, err := readInput(filePath)
	if err != nil {
		return toolCallResult{}, s.toolError(err)
	}
	transcription, err := s.api.SpeechToText(ctx, elevenlabs.STTRequest{
		Filename:       filePath,
		Audio:          audio,
		ModelID:        defaultSTTModel,
		LanguageCode:   languageCode,
		Diarize:        diarize,
		TagAudioEvents: true,
		EnableLogging:  true,
	})
	if err != nil {
		return toolCallResult{}, s.upstream("Failed to transcribe audio", err)
	}

	if saveToFile {
		if toolErr := s.writeOutput(ctx, protocol.ToolNameSpeechToText, outPath, []byte(transcription.Text)); toolErr != nil {
			return toolCallResult{}, toolErr
		}
	}
	if returnDirectly {
		return textResult(transcription.Text), nil
	}
	return textResult(fmt.Sprintf("Transcription saved to %s", outPath)), nil
}

func (s *Server) handleTextToSoundEffectsTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	text, present, err := parseRawString(args, "text")
	if !present {
		return toolCallResult{}, missingField("text")
	}
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if strings.TrimSpace(text) == "" {
		return toolCallResult{}, invalidField(fmt.Errorf("text must be a non-empty string"))
	}
	duration, err := parseOptionalNumber(args, "duration_seconds", 2.0)
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if duration < 0.5 || duration > 5 {
		return toolCallResult{}, s.toolError(model.Validationf("Duration must be between 0.5 and 5 seconds"))
	}
	outputFormat, err := parseOptionalEnum(args, "output_format", defaultOutputFormat, outputFormats)
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	outputDir, err := parseOptionalString(args, "output_directory")
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}

	outDir, err := s.resolver.OutputPath(outputDir)
	if err != nil {
		return toolCallResult{}, s.toolError(err)
	}
	outPath := s.resolver.OutputFile("sfx", text, outDir, "mp3", false)

	audio, err := s.api.SoundEffect(ctx, elevenlabs.SoundEffectRequest{
		Text:            text,
		DurationSeconds: duration,
		OutputFormat:    outputFormat,
	})
	if err != nil {
		return toolCallResult{}, s.upstream("Failed to generate sound effect", err)
	}
	if toolErr := s.writeOutput(ctx, protocol.ToolNameTextToSoundEffects, outPath, audio); toolErr != nil {
		return toolCallResult{}, toolErr
	}
	return textResult(fmt.Sprintf("Success. File saved as: %s", outPath)), nil
}

func (s *Server) handleIsolateAudioTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	inputPath, toolErr := requireString(args, "input_file_path")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}
	outputDir, err := parseOptionalString(args, "output_directory")
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}

	filePath, err := s.resolver.InputFile(inputPath, true)
	if err != nil {
		return toolCallResult{}, s.toolError(err)
	}
	outDir, err := s.resolver.OutputPath(outputDir)
	if err != nil {
		return toolCallResult{}, s.toolError(err)
	}
	outPath := s.resolver.OutputFile("iso", filepath.Base(filePath), outDir, "mp3", false)

	input, err := readInput(filePath)
	if err != nil {
		return toolCallResult{}, s.toolError(err)
	}
	audio, err := s.api.IsolateAudio(ctx, filePath, input)
	if err != nil {
		return toolCallResult{}, s.upstream("Failed to isolate audio", err)
	}
	if toolErr := s.writeOutput(ctx, protocol.ToolNameIsolateAudio, outPath, audio); toolErr != nil {
		return toolCallResult{}, toolErr
	}
	return textResult(fmt.Sprintf("Success. File saved as: %s", outPath)), nil
}

func (s *Server) handleSpeechToSpeechTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	inputPath, toolErr := requireString(args, "input_file_path")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}
	voiceName, err := parseOptionalString(args, "voice_name")
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if voiceName == "" {
		voiceName = defaultSTSVoiceName
	}
	outputDir, err := parseOptionalString(args, "output_directory")
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}

	filePath, err := s.resolver.InputFile(inputPath, true)
	if err != nil {
		return toolCallResult{}, s.toolError(err)
	}
	outDir, err := s.resolver.OutputPath(outputDir)
	if err != nil {
		return toolCallResult{}, s.toolError(err)
	}

	voice, toolErr := s.findVoiceByName(ctx, voiceName, "No voice found with that name.")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}

	outPath := s.resolver.OutputFile("sts", filepath.Base(filePath), outDir, "mp3", false)
	input, err := readInput(filePath)
	if err != nil {
		return toolCallResult{}, s.toolError(err)
	}
	audio, err := s.api.SpeechToSpeech(ctx, voice.ID, defaultSTSModel, filePath, input)
	if err != nil {
		return toolCallResult{}, s.upstream("Failed to convert speech", err)
	}
	if toolErr := s.writeOutput(ctx, protocol.ToolNameSpeechToSpeech, outPath, audio); toolErr != nil {
		return toolCallResult{}, toolErr
	}
	return textResult(fmt.Sprintf("Success. File saved as: %s", outPath)), nil
}

func (s *Server) handlePlayAudioTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	inputPath, toolErr := requireString(args, "input_file_path")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}
	filePath, err := s.resolver.InputFile(inputPath, true)
	if err != nil {
		return toolCallResult{}, s.toolError(err)
	}
	if s.player == nil {
		return toolCallResult{}, s.toolError(model.Configurationf("audio playback is not available"))
	}
	if err := s.player.Play(ctx, filePath); err != nil {
		return toolCallResult{}, s.toolError(fmt.Errorf("play %s: %w", filePath, err))
	}
	return textResult(fmt.Sprintf("Successfully played audio file: %s", filePath)), nil
}
