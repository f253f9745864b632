package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"elevenlabs-mcp/internal/model"
	"elevenlabs-mcp/internal/protocol"
)

type recordingPlayer struct {
	played []string
	err    error
}

func (p *recordingPlayer) Play(_ context.Context, path string) error {
	p.played = append(p.played, path)
	return p.err
}

func TestTextToSpeech_DefaultVoiceWritesFile(t *testing.T) {
	api := &fakeAPI{audio: []byte("mp3-bytes")}
	env := newTestEnv(t, api)

	text := env.mustText(t, protocol.ToolNameTextToSpeech, map[string]interface{}{"text": "Hello world"})

	want := filepath.Join(env.home, "Desktop", "tts_Hello_20240102_030405.mp3")
	if text != "Success. File saved as: "+want+". Voice used: "+protocol.DefaultVoiceID {
		t.Fatalf("unexpected text: %q", text)
	}
	data, err := os.ReadFile(want)
	if err != nil || string(data) != "mp3-bytes" {
		t.Fatalf("output not written: %v %q", err, data)
	}

	req := api.ttsRequests[0]
	if req.VoiceID != protocol.DefaultVoiceID || req.ModelID != defaultTTSModel || req.OutputFormat != defaultOutputFormat {
		t.Fatalf("unexpected request: %#v", req)
	}
	if req.VoiceSettings.Stability != 0.5 || req.VoiceSettings.SimilarityBoost != 0.75 || !req.VoiceSettings.UseSpeakerBoost || req.VoiceSettings.Speed != 1.0 {
		t.Fatalf("unexpected voice settings: %#v", req.VoiceSettings)
	}

	if len(env.ledger.rows) != 1 || env.ledger.rows[0].Path != want || env.ledger.rows[0].SizeBytes != 9 {
		t.Fatalf("unexpected ledger rows: %#v", env.ledger.rows)
	}
}

func TestTextToSpeech_FlashModelForSomeLanguages(t *testing.T) {
	api := &fakeAPI{audio: []byte("a")}
	env := newTestEnv(t, api)
	env.mustText(t, protocol.ToolNameTextToSpeech, map[string]interface{}{"text": "Szia", "language": "hu"})
	if api.ttsRequests[0].ModelID != lowLatencyTTSModel {
		t.Fatalf("expected flash model, got %s", api.ttsRequests[0].ModelID)
	}
}

func TestTextToSpeech_VoiceSelection(t *testing.T) {
	t.Run("both fields", func(t *testing.T) {
		env := newTestEnv(t, &fakeAPI{})
		toolErr := env.mustFail(t, protocol.ToolNameTextToSpeech, map[string]interface{}{
			"text": "hi", "voice_id": "v1", "voice_name": "Rachel",
		})
		if toolErr.Code != protocol.ErrorCodeValidation {
			t.Fatalf("unexpected code: %s", toolErr.Code)
		}
	})

	t.Run("name without matches", func(t *testing.T) {
		env := newTestEnv(t, &fakeAPI{})
		toolErr := env.mustFail(t, protocol.ToolNameTextToSpeech, map[string]interface{}{"text": "hi", "voice_name": "Rachel"})
		if toolErr.Code != protocol.ErrorCodeNotFound || toolErr.Message != "No voices found with that name." {
			t.Fatalf("unexpected error: %#v", toolErr)
		}
	})

	t.Run("name without exact match", func(t *testing.T) {
		env := newTestEnv(t, &fakeAPI{voices: []model.Voice{{ID: "v9", Name: "Rachel Two"}}})
		toolErr := env.mustFail(t, protocol.ToolNameTextToSpeech, map[string]interface{}{"text": "hi", "voice_name": "Rachel"})
		if toolErr.Message != "Voice with name: Rachel does not exist." {
			t.Fatalf("unexpected message: %q", toolErr.Message)
		}
	})

	t.Run("name resolved", func(t *testing.T) {
		api := &fakeAPI{audio: []byte("a"), voices: []model.Voice{{ID: "v9", Name: "Rachel Two"}, {ID: "v1", Name: "Rachel"}}}
		env := newTestEnv(t, api)
		text := env.mustText(t, protocol.ToolNameTextToSpeech, map[string]interface{}{"text": "hi", "voice_name": "Rachel"})
		if !strings.HasSuffix(text, "Voice used: Rachel") || api.ttsRequests[0].VoiceID != "v1" {
			t.Fatalf("unexpected result %q with request %#v", text, api.ttsRequests[0])
		}
	})
}

func TestTextToSpeech_RejectsOutOfRangeSettings(t *testing.T) {
	env := newTestEnv(t, &fakeAPI{})
	toolErr := env.mustFail(t, protocol.ToolNameTextToSpeech, map[string]interface{}{"text": "hi", "speed": 2.0})
	if toolErr.Code != protocol.ErrorCodeInvalidField || toolErr.Message != "speed must be between 0.7 and 1.2" {
		t.Fatalf("unexpected error: %#v", toolErr)
	}
}

func TestSpeechToText(t *testing.T) {
	api := &fakeAPI{transcription: model.Transcription{Text: "hello there", LanguageCode: "eng"}}
	env := newTestEnv(t, api)
	writeFile(t, filepath.Join(env.base, "clip.mp3"), "audio")

	t.Run("nowhere to send transcript", func(t *testing.T) {
		toolErr := env.mustFail(t, protocol.ToolNameSpeechToText, map[string]interface{}{
			"input_file_path":         "clip.mp3",
			"save_transcript_to_file": false,
		})
		if toolErr.Code != protocol.ErrorCodeValidation {
			t.Fatalf("unexpected code: %s", toolErr.Code)
		}
	})

	t.Run("return directly", func(t *testing.T) {
		text := env.mustText(t, protocol.ToolNameSpeechToText, map[string]interface{}{
			"input_file_path":                      "clip.mp3",
			"save_transcript_to_file":              false,
			"return_transcript_to_client_directly": true,
		})
		if text != "hello there" {
			t.Fatalf("unexpected text: %q", text)
		}
	})

	t.Run("save to file", func(t *testing.T) {
		text := env.mustText(t, protocol.ToolNameSpeechToText, map[string]interface{}{"input_file_path": "clip.mp3"})
		want := filepath.Join(env.home, "Desktop", "stt_clip._20240102_030405.txt")
		if text != "Transcription saved to "+want {
			t.Fatalf("unexpected text: %q", text)
		}
		data, err := os.ReadFile(want)
		if err != nil || string(data) != "hello there" {
			t.Fatalf("transcript not written: %v %q", err, data)
		}
	})

	req := api.sttRequests[0]
	if req.ModelID != defaultSTTModel || req.LanguageCode != defaultSTTLanguageCode || string(req.Audio) != "audio" {
		t.Fatalf("unexpected stt request: %#v", req)
	}
}

func TestSpeechToText_MissingFileSuggestsSimilar(t *testing.T) {
	env := newTestEnv(t, &fakeAPI{})
	writeFile(t, filepath.Join(env.base, "meeting_notes.mp3"), "audio")

	toolErr := env.mustFail(t, protocol.ToolNameSpeechToText, map[string]interface{}{"input_file_path": "meeting_note.mp3"})
	if toolErr.Code != protocol.ErrorCodeNotFound {
		t.Fatalf("unexpected code: %s", toolErr.Code)
	}
	if !strings.Contains(toolErr.Message, "Did you mean any of these files") {
		t.Fatalf("expected suggestions, got %q", toolErr.Message)
	}
}

func TestTextToSoundEffects(t *testing.T) {
	api := &fakeAPI{audio: []byte("boom")}
	env := newTestEnv(t, api)

	toolErr := env.mustFail(t, protocol.ToolNameTextToSoundEffects, map[string]interface{}{"text": "thunder", "duration_seconds": 7.5})
	if toolErr.Message != "Duration must be between 0.5 and 5 seconds" {
		t.Fatalf("unexpected message: %q", toolErr.Message)
	}

	text := env.mustText(t, protocol.ToolNameTextToSoundEffects, map[string]interface{}{"text": "thunder", "output_directory": "sfx"})
	want := filepath.Join(env.base, "sfx", "sfx_thund_20240102_030405.mp3")
	if text != "Success. File saved as: "+want {
		t.Fatalf("unexpected text: %q", text)
	}
	if api.sfxRequests[0].DurationSeconds != 2.0 {
		t.Fatalf("unexpected duration: %v", api.sfxRequests[0].DurationSeconds)
	}
}

func TestIsolateAudio_RejectsNonAudioInput(t *testing.T) {
	env := newTestEnv(t, &fakeAPI{})
	writeFile(t, filepath.Join(env.base, "notes.txt"), "text")
	toolErr := env.mustFail(t, protocol.ToolNameIsolateAudio, map[string]interface{}{"input_file_path": "notes.txt"})
	if toolErr.Code != protocol.ErrorCodeValidation {
		t.Fatalf("unexpected code: %s", toolErr.Code)
	}
}

func TestSpeechToSpeech_UsesDefaultVoiceName(t *testing.T) {
	api := &fakeAPI{audio: []byte("x"), voices: []model.Voice{{ID: "adam-id", Name: "Adam"}}}
	env := newTestEnv(t, api)
	writeFile(t, filepath.Join(env.base, "in.wav"), "wav")

	text := env.mustText(t, protocol.ToolNameSpeechToSpeech, map[string]interface{}{"input_file_path": "in.wav"})
	want := filepath.Join(env.home, "Desktop", "sts_in.wa_20240102_030405.mp3")
	if text != "Success. File saved as: "+want {
		t.Fatalf("unexpected text: %q", text)
	}
	if api.voiceSearches[0].Search != "Adam" || api.stsVoiceIDs[0] != "adam-id" {
		t.Fatalf("unexpected voice lookup: %#v %#v", api.voiceSearches, api.stsVoiceIDs)
	}
}

func TestPlayAudio(t *testing.T) {
	env := newTestEnv(t, &fakeAPI{})
	path := writeFile(t, filepath.Join(env.base, "beep.mp3"), "mp3")

	toolErr := env.mustFail(t, protocol.ToolNamePlayAudio, map[string]interface{}{"input_file_path": path})
	if toolErr.Code != protocol.ErrorCodeConfiguration {
		t.Fatalf("unexpected code without player: %s", toolErr.Code)
	}

	player := &recordingPlayer{}
	env.srv.player = player
	text := env.mustText(t, protocol.ToolNamePlayAudio, map[string]interface{}{"input_file_path": path})
	if text != "Successfully played audio file: "+path || len(player.played) != 1 {
		t.Fatalf("unexpected result %q, played %v", text, player.played)
	}
}

func TestSearchVoicesAndModels(t *testing.T) {
	api := &fakeAPI{
		voices: []model.Voice{{ID: "v1", Name: "Adam", Category: "premade"}},
		models: []model.Model{{ID: "m1", Name: "Multilingual", Languages: []model.Language{{LanguageID: "en", Name: "English"}}}},
	}
	env := newTestEnv(t, api)

	res, toolErr := env.call(t, protocol.ToolNameSearchVoices, map[string]interface{}{"search": "ad"})
	if toolErr != nil {
		t.Fatalf("search_voices failed: %v", toolErr.Message)
	}
	if !strings.Contains(res.Content[0].Text, `"id": "v1"`) {
		t.Fatalf("unexpected text: %s", res.Content[0].Text)
	}
	if q := api.voiceSearches[0]; q.Sort != "name" || q.SortDirection != "desc" {
		t.Fatalf("unexpected defaults: %#v", q)
	}

	toolErr = env.mustFail(t, protocol.ToolNameSearchVoices, map[string]interface{}{"sort": "rating"})
	if toolErr.Code != protocol.ErrorCodeInvalidField {
		t.Fatalf("unexpected code: %s", toolErr.Code)
	}

	text := env.mustText(t, protocol.ToolNameListModels, nil)
	if !strings.Contains(text, `"language_id": "en"`) {
		t.Fatalf("unexpected models text: %s", text)
	}
}

func TestVoiceClone(t *testing.T) {
	api := &fakeAPI{clonedVoice: model.Voice{ID: "c1", Name: "Me", Category: "cloned"}}
	env := newTestEnv(t, api)
	writeFile(t, filepath.Join(env.base, "a.mp3"), "one")
	writeFile(t, filepath.Join(env.base, "b.wav"), "two")

	text := env.mustText(t, protocol.ToolNameVoiceClone, map[string]interface{}{
		"name":  "Me",
		"files": []interface{}{"a.mp3", "b.wav"},
	})
	want := "Voice cloned successfully: Name: Me\n        ID: c1\n        Category: cloned\n        Description: N/A"
	if text != want {
		t.Fatalf("unexpected text: %q", text)
	}
	if len(api.cloneSamples) != 2 || string(api.cloneSamples[1].Data) != "two" {
		t.Fatalf("unexpected samples: %#v", api.cloneSamples)
	}

	toolErr := env.mustFail(t, protocol.ToolNameVoiceClone, map[string]interface{}{"name": "Me", "files": []interface{}{}})
	if toolErr.Code != protocol.ErrorCodeMissingField {
		t.Fatalf("unexpected code: %s", toolErr.Code)
	}
}

func TestTextToVoiceAndCreateFromPreview(t *testing.T) {
	api := &fakeAPI{
		previews: []model.VoicePreview{
			{GeneratedVoiceID: "gen1", Audio: []byte("1")},
			{GeneratedVoiceID: "gen2", Audio: []byte("2")},
		},
		createdVoice: model.Voice{ID: "new-id", Name: "Narrator"},
	}
	env := newTestEnv(t, api)

	toolErr := env.mustFail(t, protocol.ToolNameTextToVoice, map[string]interface{}{"voice_description": " "})
	if toolErr.Message != "Voice description is required." {
		t.Fatalf("unexpected message: %q", toolErr.Message)
	}

	text := env.mustText(t, protocol.ToolNameTextToVoice, map[string]interface{}{"voice_description": "calm narrator"})
	desktop := filepath.Join(env.home, "Desktop")
	want := "Success. Files saved at: " +
		filepath.Join(desktop, "voice_design_gen1_20240102_030405.mp3") + ", " +
		filepath.Join(desktop, "voice_design_gen2_20240102_030405.mp3") +
		". Generated voice IDs are: gen1, gen2"
	if text != want {
		t.Fatalf("unexpected text: %q", text)
	}
	if len(env.ledger.rows) != 2 {
		t.Fatalf("expected two ledger rows, got %d", len(env.ledger.rows))
	}

	text = env.mustText(t, protocol.ToolNameCreateVoiceFromPreview, map[string]interface{}{
		"generated_voice_id": "gen1",
		"voice_name":         "Narrator",
		"voice_description":  "calm narrator",
	})
	if text != "Success. Voice created: Narrator with ID:new-id" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestSearchVoiceLibrary(t *testing.T) {
	api := &fakeAPI{}
	env := newTestEnv(t, api)

	if text := env.mustText(t, protocol.ToolNameSearchVoiceLibrary, nil); text != "No shared voices found with the specified criteria." {
		t.Fatalf("unexpected empty text: %q", text)
	}
	if q := api.sharedQueries[0]; q.Page != 0 || q.PageSize != 10 {
		t.Fatalf("unexpected defaults: %#v", q)
	}

	api.sharedVoices = []model.SharedVoice{
		{
			ID: "s1", Name: "Aria", Category: "professional", Gender: "female", Accent: "american",
			PreviewURL: "https://example.com/aria.mp3",
			Languages:  []model.VerifiedLanguage{{Language: "en", Accent: "american"}, {Language: "de"}},
		},
		{ID: "s2", Name: "Bo"},
	}
	text := env.mustText(t, protocol.ToolNameSearchVoiceLibrary, map[string]interface{}{"search": "aria"})
	want := "Shared Voices:\n\n" +
		"Name: Aria\nID: s1\nCategory: professional\nGender: female\nAccent: american\nLanguages: en (american), de\nPreview URL: https://example.com/aria.mp3" +
		"\n\n" +
		"Name: Bo\nID: s2\nCategory: N/A\nLanguages: N/A"
	if text != want {
		t.Fatalf("unexpected text:\n%s", text)
	}

	toolErr := env.mustFail(t, protocol.ToolNameSearchVoiceLibrary, map[string]interface{}{"page_size": 101})
	if toolErr.Code != protocol.ErrorCodeInvalidField {
		t.Fatalf("unexpected code: %s", toolErr.Code)
	}
}

func TestCheckSubscription(t *testing.T) {
	env := newTestEnv(t, &fakeAPI{subscription: "{\n  \"tier\": \"free\"\n}"})
	if text := env.mustText(t, protocol.ToolNameCheckSubscription, nil); text != "{\n  \"tier\": \"free\"\n}" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestCreateAgent(t *testing.T) {
	api := &fakeAPI{agentID: "agent-1"}
	env := newTestEnv(t, api)
	base := map[string]interface{}{
		"name":          "Helper",
		"first_message": "Hi",
		"system_prompt": "Be nice",
	}

	text := env.mustText(t, protocol.ToolNameCreateAgent, base)
	want := "Agent created successfully: Name: Helper, Agent ID: agent-1, System Prompt: Be nice, Voice ID: " + protocol.DefaultVoiceID +
		", Language: en, LLM: gemini-2.0-flash-001, You can use this agent ID for future interactions with the agent."
	if text != want {
		t.Fatalf("unexpected text: %q", text)
	}
	spec := api.agentSpecs[0]
	if spec.ModelID != defaultAgentModelID || spec.TurnTimeout != 7 || spec.RetentionDays != 730 || !spec.RecordVoice || spec.MaxTokens != nil {
		t.Fatalf("unexpected spec defaults: %#v", spec)
	}

	withEmptyVoice := map[string]interface{}{"voice_id": "", "max_tokens": 256}
	for k, v := range base {
		withEmptyVoice[k] = v
	}
	text = env.mustText(t, protocol.ToolNameCreateAgent, withEmptyVoice)
	if !strings.Contains(text, "Voice ID: Default,") {
		t.Fatalf("expected Default voice label: %q", text)
	}
	spec = api.agentSpecs[1]
	if spec.VoiceID != "" || spec.MaxTokens == nil || *spec.MaxTokens != 256 {
		t.Fatalf("unexpected spec: %#v", spec)
	}

	toolErr := env.mustFail(t, protocol.ToolNameCreateAgent, map[string]interface{}{"name": "x", "first_message": "y"})
	if toolErr.Code != protocol.ErrorCodeMissingField || toolErr.Message != "system_prompt is required" {
		t.Fatalf("unexpected error: %#v", toolErr)
	}
}

func TestAddKnowledgeBase(t *testing.T) {
	api := &fakeAPI{kbID: "doc-1"}
	env := newTestEnv(t, api)
	args := func(extra map[string]interface{}) map[string]interface{} {
		out := map[string]interface{}{"agent_id": "agent-1", "knowledge_base_name": "FAQ"}
		for k, v := range extra {
			out[k] = v
		}
		return out
	}

	toolErr := env.mustFail(t, protocol.ToolNameAddKnowledgeBase, args(nil))
	if toolErr.Message != "Must provide either a URL, a file, or text" {
		t.Fatalf("unexpected message: %q", toolErr.Message)
	}
	toolErr = env.mustFail(t, protocol.ToolNameAddKnowledgeBase, args(map[string]interface{}{"url": "https://x", "text": "y"}))
	if toolErr.Message != "Must provide exactly one of: URL, file, or text" {
		t.Fatalf("unexpected message: %q", toolErr.Message)
	}

	text := env.mustText(t, protocol.ToolNameAddKnowledgeBase, args(map[string]interface{}{"text": "opening hours 9-5"}))
	if text != "Knowledge base created with ID: doc-1 and added to agent agent-1 successfully." {
		t.Fatalf("unexpected text: %q", text)
	}
	if string(api.kbFiles["text.txt"]) != "opening hours 9-5" {
		t.Fatalf("text not uploaded: %#v", api.kbFiles)
	}

	env.mustText(t, protocol.ToolNameAddKnowledgeBase, args(map[string]interface{}{"url": "https://example.com/faq"}))
	writeFile(t, filepath.Join(env.base, "guide.pdf"), "pdf")
	env.mustText(t, protocol.ToolNameAddKnowledgeBase, args(map[string]interface{}{"input_file_path": "guide.pdf"}))

	if len(api.attached) != 3 {
		t.Fatalf("expected three attachments, got %d", len(api.attached))
	}
	if api.attached[0].Type != "file" || api.attached[1].Type != "url" || api.attached[2].Type != "file" {
		t.Fatalf("unexpected ref types: %#v", api.attached)
	}
	if string(api.kbFiles["guide.pdf"]) != "pdf" {
		t.Fatalf("file not uploaded: %#v", api.kbFiles)
	}
}

func TestListAndGetAgents(t *testing.T) {
	created := time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local)
	api := &fakeAPI{agent: model.Agent{ID: "a1", Name: "Support", VoiceID: "v1", CreatedAt: created}}
	env := newTestEnv(t, api)

	if text := env.mustText(t, protocol.ToolNameListAgents, nil); text != "No agents found." {
		t.Fatalf("unexpected text: %q", text)
	}

	text := env.mustText(t, protocol.ToolNameGetAgent, map[string]interface{}{"agent_id": "a1"})
	if text != "Agent Details: Name: Support, Agent ID: a1, Voice Configuration: Voice ID: v1, Created At: 2024-05-06 07:08:09" {
		t.Fatalf("unexpected text: %q", text)
	}

	api.agent = model.Agent{ID: "a2", Name: "Bare"}
	text = env.mustText(t, protocol.ToolNameGetAgent, map[string]interface{}{"agent_id": "a2"})
	if text != "Agent Details: Name: Bare, Agent ID: a2, Voice Configuration: None, Created At: N/A" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestGetConversation(t *testing.T) {
	api := &fakeAPI{conversation: model.Conversation{
		ID:      "c1",
		Status:  "done",
		AgentID: "a1",
		Transcript: []model.TranscriptEntry{
			{Role: "agent", Message: "Hello", Timestamp: "0"},
			{Role: "user", Message: "Hi"},
		},
		Metadata:    &model.ConversationMetadata{DurationSecs: 42, HasDuration: true, StartedAt: "1700000000"},
		HasAnalysis: true,
	}}
	env := newTestEnv(t, api)

	text := env.mustText(t, protocol.ToolNameGetConversation, map[string]interface{}{"conversation_id": "c1"})
	want := "Conversation Details:\nID: c1\nStatus: done\nAgent ID: a1\nMessage Count: 2\n\nTranscript:\n" +
		"[0] agent: Hello\nuser: Hi" +
		"\n\nMetadata:\nDuration: 42 seconds\nStarted: 1700000000" +
		"\n\nAnalysis:\nAnalysis available but no summary"
	if text != want {
		t.Fatalf("unexpected text:\n%s", text)
	}

	api.conversationEr = &model.ProviderError{Code: "NOT_FOUND", Message: "conversation missing", StatusCode: 404}
	toolErr := env.mustFail(t, protocol.ToolNameGetConversation, map[string]interface{}{"conversation_id": "c2"})
	if toolErr.Code != protocol.ErrorCodeUpstream || toolErr.Message != "Failed to fetch conversation: conversation missing" {
		t.Fatalf("unexpected error: %#v", toolErr)
	}
}

func TestListConversations(t *testing.T) {
	start := time.Date(2024, 3, 4, 5, 6, 7, 0, time.Local)
	api := &fakeAPI{}
	env := newTestEnv(t, api)

	if text := env.mustText(t, protocol.ToolNameListConversations, nil); text != "No conversations found." {
		t.Fatalf("unexpected empty text: %q", text)
	}
	if api.convQueries[0].PageSize != defaultConversationPageSize {
		t.Fatalf("unexpected default page size: %d", api.convQueries[0].PageSize)
	}

	api.page = model.ConversationPage{
		Conversations: []model.ConversationSummary{{
			ID: "c1", Status: "done", AgentID: "a1", StartTime: start,
			DurationSecs: 30, MessageCount: 4, CallSuccessful: "success",
		}},
		HasMore:    true,
		NextCursor: "next-1",
	}
	text := env.mustText(t, protocol.ToolNameListConversations, map[string]interface{}{
		"page_size":             500,
		"call_start_after_unix": 5,
	})
	want := "Showing 1 conversations (more available, next cursor: next-1)\n\n" +
		"Conversation ID: c1\nStatus: done\nAgent: N/A (ID: a1)\nStarted: 2024-03-04 05:06:07\nDuration: 30 seconds\nMessages: 4\nCall Successful: success"
	if text != want {
		t.Fatalf("unexpected text:\n%s", text)
	}
	q := api.convQueries[1]
	if q.PageSize != maxConversationPageSize || q.CallStartAfterUnix == nil || *q.CallStartAfterUnix != 5 || q.CallStartBeforeUnix != nil {
		t.Fatalf("unexpected query: %#v", q)
	}

	text = env.mustText(t, protocol.ToolNameListConversations, map[string]interface{}{"max_length": 20})
	prefix := "Showing 1 conversations (more available, next cursor: next-1)\n\nConversation list saved to temporary file: "
	if !strings.HasPrefix(text, prefix) {
		t.Fatalf("expected spooled output, got:\n%s", text)
	}

	toolErr := env.mustFail(t, protocol.ToolNameListConversations, map[string]interface{}{"page_size": 0})
	if toolErr.Code != protocol.ErrorCodeInvalidField {
		t.Fatalf("unexpected code: %s", toolErr.Code)
	}
}

func TestPhoneNumbersAndOutboundCall(t *testing.T) {
	api := &fakeAPI{
		phoneNumbers: []model.PhoneNumber{
			{ID: "p1", Number: "+15550001", Provider: "twilio", Label: "Main", AssignedAgentID: "a1", AssignedAgentName: "Support"},
			{ID: "p2", Number: "+15550002", Provider: "sip_trunk", Label: "Office"},
			{ID: "p3", Number: "+15550003", Provider: "carrier-x", Label: "Odd"},
		},
		call: model.OutboundCall{Success: true, Message: "queued", ConversationID: "conv-9", CallID: "CA123"},
	}
	env := newTestEnv(t, api)

	text := env.mustText(t, protocol.ToolNameListPhoneNumbers, nil)
	if !strings.HasPrefix(text, "Phone Numbers:\n\nPhone Number: +15550001\nID: p1\nProvider: twilio\nLabel: Main\nAssigned Agent: Support (ID: a1)\n\n") {
		t.Fatalf("unexpected text:\n%s", text)
	}
	if !strings.Contains(text, "Label: Office\nAssigned Agent: None") {
		t.Fatalf("expected unassigned number:\n%s", text)
	}

	callArgs := func(phoneID string) map[string]interface{} {
		return map[string]interface{}{"agent_id": "a1", "agent_phone_number_id": phoneID, "to_number": "+15559999"}
	}

	text = env.mustText(t, protocol.ToolNameMakeOutboundCall, callArgs("p1"))
	if text != "Outbound call initiated via Twilio: success=true message='queued' conversation_id='conv-9' call_id='CA123'." {
		t.Fatalf("unexpected text: %q", text)
	}
	text = env.mustText(t, protocol.ToolNameMakeOutboundCall, callArgs("p2"))
	if !strings.HasPrefix(text, "Outbound call initiated via SIP trunk:") {
		t.Fatalf("unexpected text: %q", text)
	}
	if len(api.callProviders) != 2 || api.callProviders[1] != "sip_trunk" {
		t.Fatalf("unexpected providers: %v", api.callProviders)
	}

	toolErr := env.mustFail(t, protocol.ToolNameMakeOutboundCall, callArgs("p3"))
	if toolErr.Code != protocol.ErrorCodeValidation || toolErr.Message != "Unsupported provider type: carrier-x" {
		t.Fatalf("unexpected error: %#v", toolErr)
	}
	toolErr = env.mustFail(t, protocol.ToolNameMakeOutboundCall, callArgs("missing"))
	if toolErr.Code != protocol.ErrorCodeNotFound || toolErr.Message != "Phone number with ID missing not found." {
		t.Fatalf("unexpected error: %#v", toolErr)
	}
}

func TestListGeneratedFiles(t *testing.T) {
	api := &fakeAPI{audio: []byte("abc")}
	env := newTestEnv(t, api)

	if text := env.mustText(t, protocol.ToolNameListGeneratedFiles, nil); text != "No generated files recorded." {
		t.Fatalf("unexpected text: %q", text)
	}

	env.mustText(t, protocol.ToolNameTextToSpeech, map[string]interface{}{"text": "one"})
	env.mustText(t, protocol.ToolNameTextToSoundEffects, map[string]interface{}{"text": "two"})

	res, toolErr := env.call(t, protocol.ToolNameListGeneratedFiles, map[string]interface{}{"tool": protocol.ToolNameTextToSoundEffects})
	if toolErr != nil {
		t.Fatalf("list_generated_files failed: %s", toolErr.Message)
	}
	structured := res.StructuredContent.(map[string]interface{})
	rows := structured["files"].([]map[string]interface{})
	if len(rows) != 1 || rows[0]["tool"] != protocol.ToolNameTextToSoundEffects || rows[0]["created_at"] != "2024-01-02T03:04:05Z" {
		t.Fatalf("unexpected rows: %#v", rows)
	}

	env.srv.ledger = nil
	toolErr = env.mustFail(t, protocol.ToolNameListGeneratedFiles, nil)
	if toolErr.Code != protocol.ErrorCodeConfiguration {
		t.Fatalf("unexpected code: %s", toolErr.Code)
	}
}

func TestToolError_Mapping(t *testing.T) {
	env := newTestEnv(t, &fakeAPI{})

	got := env.srv.toolError(model.NotFoundf("gone"))
	if got.Code != protocol.ErrorCodeNotFound || got.Kind != model.KindNotFound {
		t.Fatalf("unexpected mapping: %#v", got)
	}

	got = env.srv.upstream("Failed to list agents", &model.ProviderError{Code: "RATE_LIMITED", Message: "slow down", Retryable: true})
	if got.Code != protocol.ErrorCodeUpstream || !got.Retryable || got.Message != "Failed to list agents: slow down" {
		t.Fatalf("unexpected mapping: %#v", got)
	}

	got = env.srv.toolError(errors.New("disk on fire"))
	if got.Code != protocol.ErrorCodeInternal || got.Message != "disk on fire" {
		t.Fatalf("unexpected mapping: %#v", got)
	}
}

func TestInvalidArgumentsNeverReachUpstream(t *testing.T) {
	cases := []struct {
		name string
		tool string
		args map[string]interface{}
	}{
		{"tts speed out of range", protocol.ToolNameTextToSpeech, map[string]interface{}{"text": "hi", "speed": 2.0}},
		{"tts blank text", protocol.ToolNameTextToSpeech, map[string]interface{}{"text": "   "}},
		{"stt with no destination", protocol.ToolNameSpeechToText, map[string]interface{}{
			"input_file_path":                      "clip.mp3",
			"save_transcript_to_file":              false,
			"return_transcript_to_client_directly": false,
		}},
		{"clone with a missing sample", protocol.ToolNameVoiceClone, map[string]interface{}{
			"name":  "Me",
			"files": []interface{}{"clip.mp3", "missing.wav"},
		}},
		{"knowledge base with url and text", protocol.ToolNameAddKnowledgeBase, map[string]interface{}{
			"agent_id": "agent-1", "knowledge_base_name": "FAQ", "url": "https://example.com/faq", "text": "hours",
		}},
		{"sound effect blank text", protocol.ToolNameTextToSoundEffects, map[string]interface{}{"text": " "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeAPI{audio: []byte("a"), kbID: "doc-1"}
			env := newTestEnv(t, api)
			writeFile(t, filepath.Join(env.base, "clip.mp3"), "audio")

			env.mustFail(t, tc.tool, tc.args)

			if len(api.ttsRequests) != 0 || len(api.sttRequests) != 0 || len(api.sfxRequests) != 0 {
				t.Fatalf("audio request sent: tts=%d stt=%d sfx=%d", len(api.ttsRequests), len(api.sttRequests), len(api.sfxRequests))
			}
			if api.cloneSamples != nil {
				t.Fatalf("clone request sent: %#v", api.cloneSamples)
			}
			if len(api.kbURLs) != 0 || len(api.kbFiles) != 0 || len(api.attached) != 0 {
				t.Fatalf("knowledge base request sent: urls=%v files=%d attached=%v", api.kbURLs, len(api.kbFiles), api.attached)
			}
			if len(api.voiceSearches) != 0 {
				t.Fatalf("voice search sent: %#v", api.voiceSearches)
			}
		})
	}
}

func TestTextPayloadsAreSentVerbatim(t *testing.T) {
	api := &fakeAPI{audio: []byte("a"), kbID: "doc-1"}
	env := newTestEnv(t, api)

	text := env.mustText(t, protocol.ToolNameTextToSpeech, map[string]interface{}{"text": " Hello\n"})
	want := filepath.Join(env.home, "Desktop", "tts__Hell_20240102_030405.mp3")
	if !strings.HasPrefix(text, "Success. File saved as: "+want+".") {
		t.Fatalf("unexpected text: %q", text)
	}
	if got := api.ttsRequests[0].Text; got != " Hello\n" {
		t.Fatalf("tts text altered: %q", got)
	}

	env.mustText(t, protocol.ToolNameTextToSoundEffects, map[string]interface{}{"text": "  rain"})
	if got := api.sfxRequests[0].Text; got != "  rain" {
		t.Fatalf("sound effect text altered: %q", got)
	}

	env.mustText(t, protocol.ToolNameAddKnowledgeBase, map[string]interface{}{
		"agent_id": "agent-1", "knowledge_base_name": "FAQ", "text": "\tindented\n",
	})
	if got := string(api.kbFiles["text.txt"]); got != "\tindented\n" {
		t.Fatalf("knowledge base text altered: %q", got)
	}
}
