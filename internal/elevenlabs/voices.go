package elevenlabs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"elevenlabs-mcp/internal/model"
)

type voiceWire struct {
	VoiceID     string `json:"voice_id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	FineTuning  *struct {
		State json.RawMessage `json:"state"`
	} `json:"fine_tuning"`
}

func (w voiceWire) normalize() model.Voice {
	v := model.Voice{
		ID:          w.VoiceID,
		Name:        w.Name,
		Category:    w.Category,
		Description: w.Description,
	}
	if w.FineTuning != nil {
		v.FineTuningStatus = rawToText(w.FineTuning.State)
	}
	return v
}

// rawToText renders a JSON string as itself and anything else compactly.
func rawToText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

type VoiceSearch struct {
	Search        string
	Sort          string
	SortDirection string
}

func (c *Client) SearchVoices(ctx context.Context, q VoiceSearch) ([]model.Voice, error) {
	query := url.Values{}
	if s := strings.TrimSpace(q.Search); s != "" {
		query.Set("search", s)
	}
	if q.Sort != "" {
		query.Set("sort", q.Sort)
	}
	if q.SortDirection != "" {
		query.Set("sort_direction", q.SortDirection)
	}

	var parsed struct {
		Voices []voiceWire `json:"voices"`
	}
	if err := c.doJSON(ctx, request{op: "voice search", method: http.MethodGet, path: "/v2/voices", query: query}, &parsed); err != nil {
		return nil, err
	}
	out := make([]model.Voice, 0, len(parsed.Voices))
	for _, v := range parsed.Voices {
		out = append(out, v.normalize())
	}
	return out, nil
}

func (c *Client) GetVoice(ctx context.Context, voiceID string) (model.Voice, error) {
	var parsed voiceWire
	if err := c.doJSON(ctx, request{op: "get voice", method: http.MethodGet, path: "/v1/voices/" + pathEscape(voiceID)}, &parsed); err != nil {
		return model.Voice{}, err
	}
	return parsed.normalize(), nil
}

type SharedVoiceQuery struct {
	Page     int
	PageSize int
	Search   string
}

type sharedVoiceWire struct {
	VoiceID           string `json:"voice_id"`
	Name              string `json:"name"`
	Category          string `json:"category"`
	Gender            string `json:"gender"`
	Age               string `json:"age"`
	Accent            string `json:"accent"`
	Description       string `json:"description"`
	UseCase           string `json:"use_case"`
	PreviewURL        string `json:"preview_url"`
	VerifiedLanguages []struct {
		Language string `json:"language"`
		Accent   string `json:"accent"`
	} `json:"verified_languages"`
}

func (c *Client) SharedVoices(ctx context.Context, q SharedVoiceQuery) ([]model.SharedVoice, error) {
	query := url.Values{
		"page":      {strconv.Itoa(q.Page)},
		"page_size": {strconv.Itoa(q.PageSize)},
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		query.Set("search", s)
	}

	var parsed struct {
		Voices []sharedVoiceWire `json:"voices"`
	}
	if err := c.doJSON(ctx, request{op: "shared voices", method: http.MethodGet, path: "/v1/shared-voices", query: query}, &parsed); err != nil {
		return nil, err
	}
	out := make([]model.SharedVoice, 0, len(parsed.Voices))
	for _, w := range parsed.Voices {
		sv := model.SharedVoice{
			ID:          w.VoiceID,
			Name:        w.Name,
			Category:    w.Category,
			Gender:      w.Gender,
			Age:         w.Age,
			Accent:      w.Accent,
			Description: w.Description,
			UseCase:     w.UseCase,
			PreviewURL:  w.PreviewURL,
		}
		for _, l := range w.VerifiedLanguages {
			sv.Languages = append(sv.Languages, model.VerifiedLanguage{Language: l.Language, Accent: l.Accent})
		}
		out = append(out, sv)
	}
	return out, nil
}

func (c *Client) ListModels(ctx context.Context) ([]model.Model, error) {
	var parsed []struct {
		ModelID   string           `json:"model_id"`
		Name      string           `json:"name"`
		Languages []model.Language `json:"languages"`
	}
	if err := c.doJSON(ctx, request{op: "list models", method: http.MethodGet, path: "/v1/models"}, &parsed); err != nil {
		return nil, err
	}
	out := make([]model.Model, 0, len(parsed))
	for _, m := range parsed {
		langs := m.Languages
		if langs == nil {
			langs = []model.Language{}
		}
		out = append(out, model.Model{ID: m.ModelID, Name: m.Name, Languages: langs})
	}
	return out, nil
}

// CloneFile is one audio sample for an instant voice clone.
type CloneFile struct {
	Name string
	Data []byte
}

func (c *Client) CloneVoice(ctx context.Context, name, description string, samples []CloneFile) (model.Voice, error) {
	form := (&multipartForm{}).field("name", name)
	if description != "" {
		form.field("description", description)
	}
	for _, s := range samples {
		form.file("files", uploadName(s.Name, "sample.mp3"), s.Data)
	}

	var parsed voiceWire
	if err := c.doJSON(ctx, request{op: "voice clone", method: http.MethodPost, path: "/v1/voices/add", form: form}, &parsed); err != nil {
		return model.Voice{}, err
	}
	v := parsed.normalize()
	if v.Name == "" {
		v.Name = name
	}
	if v.Category == "" {
		v.Category = "cloned"
	}
	if v.Description == "" {
		v.Description = description
	}
	return v, nil
}

func (c *Client) CreateVoicePreviews(ctx context.Context, description, text string) ([]model.VoicePreview, error) {
	body := map[string]interface{}{
		"voice_description":  description,
		"auto_generate_text": text == "",
	}
	if text != "" {
		body["text"] = text
	}

	var parsed struct {
		Previews []struct {
			AudioBase64      string `json:"audio_base_64"`
			GeneratedVoiceID string `json:"generated_voice_id"`
		} `json:"previews"`
	}
	if err := c.doJSON(ctx, request{op: "voice previews", method: http.MethodPost, path: "/v1/text-to-voice/create-previews", jsonBody: body}, &parsed); err != nil {
		return nil, err
	}
	out := make([]model.VoicePreview, 0, len(parsed.Previews))
	for _, p := range parsed.Previews {
		audio, err := base64.StdEncoding.DecodeString(p.AudioBase64)
		if err != nil {
			return nil, &model.ProviderError{Code: "ELEVENLABS_FAILED", Message: "failed to decode preview audio for " + p.GeneratedVoiceID, Cause: err}
		}
		out = append(out, model.VoicePreview{GeneratedVoiceID: p.GeneratedVoiceID, Audio: audio})
	}
	return out, nil
}

func (c *Client) CreateVoiceFromPreview(ctx context.Context, name, description, generatedVoiceID string) (model.Voice, error) {
	var parsed voiceWire
	err := c.doJSON(ctx, request{
		op:     "create voice from preview",
		method: http.MethodPost,
		path:   "/v1/text-to-voice/create-voice-from-preview",
		jsonBody: map[string]string{
			"voice_name":         name,
			"voice_description":  description,
			"generated_voice_id": generatedVoiceID,
		},
	}, &parsed)
	if err != nil {
		return model.Voice{}, err
	}
	return parsed.normalize(), nil
}
