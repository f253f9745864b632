package elevenlabs

import (
	"context"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"elevenlabs-mcp/internal/model"
)

type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
	Speed           float64 `json:"speed"`
}

type TTSRequest struct {
	Text          string
	VoiceID       string
	ModelID       string
	OutputFormat  string
	VoiceSettings VoiceSettings
}

type ttsBody struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id,omitempty"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

func (c *Client) TextToSpeech(ctx context.Context, req TTSRequest) ([]byte, error) {
	voiceID := strings.TrimSpace(req.VoiceID)
	if voiceID == "" {
		return nil, &model.ProviderError{Code: "ELEVENLABS_FAILED", Message: "voice_id is required"}
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, &model.ProviderError{Code: "ELEVENLABS_FAILED", Message: "text is required"}
	}
	return c.do(ctx, request{
		op:     "tts",
		method: http.MethodPost,
		path:   "/v1/text-to-speech/" + pathEscape(voiceID),
		query:  outputFormatQuery(req.OutputFormat),
		jsonBody: ttsBody{
			Text:          req.Text,
			ModelID:       req.ModelID,
			VoiceSettings: req.VoiceSettings,
		},
		accept: "audio/mpeg",
	})
}

type STTRequest struct {
	Filename       string
	Audio          []byte
	ModelID        string
	LanguageCode   string
	Diarize        bool
	TagAudioEvents bool
	EnableLogging  bool
}

type sttResponse struct {
	LanguageCode string `json:"language_code"`
	Text         string `json:"text"`
}

func (c *Client) SpeechToText(ctx context.Context, req STTRequest) (model.Transcription, error) {
	if len(req.Audio) == 0 {
		return model.Transcription{}, &model.ProviderError{Code: "ELEVENLABS_FAILED", Message: "transcription input is empty"}
	}
	form := (&multipartForm{}).
		field("model_id", defaultIfEmpty(req.ModelID, "scribe_v1")).
		boolField("diarize", req.Diarize).
		boolField("tag_audio_events", req.TagAudioEvents)
	if lang := strings.TrimSpace(req.LanguageCode); lang != "" {
		form.field("language_code", lang)
	}
	form.file("file", uploadName(req.Filename, "audio.wav"), req.Audio)

	var parsed sttResponse
	err := c.doJSON(ctx, request{
		op:     "stt",
		method: http.MethodPost,
		path:   "/v1/speech-to-text",
		query:  url.Values{"enable_logging": {strconv.FormatBool(req.EnableLogging)}},
		form:   form,
	}, &parsed)
	if err != nil {
		return model.Transcription{}, err
	}
	return model.Transcription{Text: parsed.Text, LanguageCode: parsed.LanguageCode}, nil
}

type SoundEffectRequest struct {
	Text            string
	DurationSeconds float64
	OutputFormat    string
}

func (c *Client) SoundEffect(ctx context.Context, req SoundEffectRequest) ([]byte, error) {
	return c.do(ctx, request{
		op:     "sound generation",
		method: http.MethodPost,
		path:   "/v1/sound-generation",
		query:  outputFormatQuery(req.OutputFormat),
		jsonBody: map[string]interface{}{
			"text":             req.Text,
			"duration_seconds": req.DurationSeconds,
		},
		accept: "audio/mpeg",
	})
}

func (c *Client) IsolateAudio(ctx context.Context, filename string, audio []byte) ([]byte, error) {
	return c.do(ctx, request{
		op:     "audio isolation",
		method: http.MethodPost,
		path:   "/v1/audio-isolation",
		form:   (&multipartForm{}).file("audio", uploadName(filename, "audio.mp3"), audio),
		accept: "audio/mpeg",
	})
}

func (c *Client) SpeechToSpeech(ctx context.Context, voiceID, modelID, filename string, audio []byte) ([]byte, error) {
	form := (&multipartForm{}).
		field("model_id", modelID).
		file("audio", uploadName(filename, "audio.mp3"), audio)
	return c.do(ctx, request{
		op:     "speech to speech",
		method: http.MethodPost,
		path:   "/v1/speech-to-speech/" + pathEscape(voiceID),
		form:   form,
		accept: "audio/mpeg",
	})
}

func outputFormatQuery(format string) url.Values {
	format = strings.TrimSpace(format)
	if format == "" {
		return nil
	}
	return url.Values{"output_format": {format}}
}

func uploadName(name, fallback string) string {
	base := strings.TrimSpace(filepath.Base(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return fallback
	}
	return base
}

func defaultIfEmpty(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
