package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"elevenlabs-mcp/internal/elevenlabs"
	"elevenlabs-mcp/internal/model"
	"elevenlabs-mcp/internal/protocol"
)

const (
	defaultGeneratedFilesLimit = 20
	maxGeneratedFilesLimit     = 200
)

func serializeVoice(v model.Voice) map[string]interface{} {
	return map[string]interface{}{
		"id":       v.ID,
		"name":     v.Name,
		"category": v.Category,
	}
}

func (s *Server) handleSearchVoicesTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	search, err := parseOptionalString(args, "search")
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	sortField, err := parseOptionalEnum(args, "sort", "name", []string{"created_at_unix", "name"})
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	direction, err := parseOptionalEnum(args, "sort_direction", "desc", []string{"asc", "desc"})
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}

	voices, err := s.api.SearchVoices(ctx, elevenlabs.VoiceSearch{
		Search:        search,
		Sort:          sortField,
		SortDirection: direction,
	})
	if err != nil {
		return toolCallResult{}, s.upstream("Failed to search voices", err)
	}

	items := make([]map[string]interface{}, 0, len(voices))
	for _, v := range voices {
		items = append(items, serializeVoice(v))
	}
	return jsonResult(items, map[string]interface{}{"voices": items})
}

func (s *Server) handleListModelsTool(ctx context.Context, _ map[string]interface{}) (toolCallResult, *toolExecutionError) {
	models, err := s.api.ListModels(ctx)
	if err != nil {
		return toolCallResult{}, s.upstream("Failed to list models", err)
	}
	return jsonResult(models, map[string]interface{}{"models": models})
}

func (s *Server) handleGetVoiceTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	voiceID, toolErr := requireString(args, "voice_id")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}
	voice, err := s.api.GetVoice(ctx, voiceID)
	if err != nil {
		return toolCallResult{}, s.upstream("Failed to get voice", err)
	}
	item := serializeVoice(voice)
	item["fine_tuning_status"] = voice.FineTuningStatus
	return jsonResult(item, item)
}

func (s *Server) handleVoiceCloneTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	name, toolErr := requireString(args, "name")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}
	paths, err := parseOptionalStringSlice(args, "files")
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if len(paths) == 0 {
		return toolCallResult{}, missingField("files")
	}
	description, err := parseOptionalString(args, "description")
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}

	resolved := make([]string, 0, len(paths))
	for _, p := range paths {
		filePath, err := s.resolver.InputFile(p, true)
		if err != nil {
			return toolCallResult{}, s.toolError(err)
		}
		resolved = append(resolved, filePath)
	}
	samples := make([]elevenlabs.CloneFile, 0, len(resolved))
	for _, filePath := range resolved {
		data, err := readInput(filePath)
		if err != nil {
			return toolCallResult{}, s.toolError(err)
		}
		samples = append(samples, elevenlabs.CloneFile{Name: filePath, Data: data})
	}

	voice, err := s.api.CloneVoice(ctx, name, description, samples)
	if err != nil {
		return toolCallResult{}, s.upstream("Failed to clone voice", err)
	}
	desc := voice.Description
	if desc == "" {
		desc = "N/A"
	}
	return textResult(fmt.Sprintf("Voice cloned successfully: Name: %s\n        ID: %s\n        Category: %s\n        Description: %s",
		voice.Name, voice.ID, voice.Category, desc)), nil
}

func (s *Server) handleTextToVoiceTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	description, err := parseOptionalString(args, "voice_description")
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if description == "" {
		return toolCallResult{}, s.toolError(model.Validationf("Voice description is required."))
	}
	text, err := parseOptionalString(args, "text")
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

	previews, err := s.api.CreateVoicePreviews(ctx, description, text)
	if err != nil {
		return toolCallResult{}, s.upstream("Failed to create voice previews", err)
	}

	paths := make([]string, 0, len(previews))
	ids := make([]string, 0, len(previews))
	for _, preview := range previews {
		outPath := s.resolver.OutputFile("voice_design", preview.GeneratedVoiceID, outDir, "mp3", true)
		if toolErr := s.writeOutput(ctx, protocol.ToolNameTextToVoice, outPath, preview.Audio); toolErr != nil {
			return toolCallResult{}, toolErr
		}
		paths = append(paths, outPath)
		ids = append(ids, preview.GeneratedVoiceID)
	}

	return textResult(fmt.Sprintf("Success. Files saved at: %s. Generated voice IDs are: %s",
		strings.Join(paths, ", "), strings.Join(ids, ", "))), nil
}

func (s *Server) handleCreateVoiceFromPreviewTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	generatedID, toolErr := requireString(args, "generated_voice_id")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}
	name, toolErr := requireString(args, "voice_name")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}
	description, toolErr := requireString(args, "voice_description")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}

	voice, err := s.api.CreateVoiceFromPreview(ctx, name, description, generatedID)
	if err != nil {
		return toolCallResult{}, s.upstream("Failed to create voice from preview", err)
	}
	return textResult(fmt.Sprintf("Success. Voice created: %s with ID:%s", voice.Name, voice.ID)), nil
}

func (s *Server) handleSearchVoiceLibraryTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	page, err := parseIntegerInRange(args, "page", 0, 0, 100000)
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	pageSize, err := parseIntegerInRange(args, "page_size", 10, 1, 100)
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	search, err := parseOptionalString(args, "search")
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}

	voices, err := s.api.SharedVoices(ctx, elevenlabs.SharedVoiceQuery{Page: page, PageSize: pageSize, Search: search})
	if err != nil {
		return toolCallResult{}, s.upstream("Failed to search voice library", err)
	}
	if len(voices) == 0 {
		return textResult("No shared voices found with the specified criteria."), nil
	}

	blocks := make([]string, 0, len(voices))
	for _, v := range voices {
		blocks = append(blocks, formatSharedVoice(v))
	}
	return textResult("Shared Voices:\n\n" + strings.Join(blocks, "\n\n")), nil
}

func formatSharedVoice(v model.SharedVoice) string {
	category := v.Category
	if category == "" {
		category = "N/A"
	}
	lines := []string{
		"Name: " + v.Name,
		"ID: " + v.ID,
		"Category: " + category,
	}
	optional := []struct{ label, value string }{
		{"Gender", v.Gender},
		{"Age", v.Age},
		{"Accent", v.Accent},
		{"Description", v.Description},
		{"Use Case", v.UseCase},
	}
	for _, field := range optional {
		if field.value != "" {
			lines = append(lines, field.label+": "+field.value)
		}
	}

	languages := "N/A"
	if len(v.Languages) > 0 {
		parts := make([]string, 0, len(v.Languages))
		for _, l := range v.Languages {
			if l.Accent != "" {
				parts = append(parts, fmt.Sprintf("%s (%s)", l.Language, l.Accent))
				continue
			}
			parts = append(parts, l.Language)
		}
		languages = strings.Join(parts, ", ")
	}
	lines = append(lines, "Languages: "+languages)

	if v.PreviewURL != "" {
		lines = append(lines, "Preview URL: "+v.PreviewURL)
	}
	return strings.Join(lines, "\n")
}

func (s *Server) handleCheckSubscriptionTool(ctx context.Context, _ map[string]interface{}) (toolCallResult, *toolExecutionError) {
	subscription, err := s.api.Subscription(ctx)
	if err != nil {
		return toolCallResult{}, s.upstream("Failed to get subscription", err)
	}
	return textResult(subscription), nil
}

func (s *Server) handleListGeneratedFilesTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	limit, err := parseIntegerInRange(args, "limit", defaultGeneratedFilesLimit, 1, maxGeneratedFilesLimit)
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	tool, err := parseOptionalString(args, "tool")
	if err != nil {
		return toolCallResult{}, invalidField(err)
	}
	if s.ledger == nil {
		return toolCallResult{}, s.toolError(model.Configurationf("generated file ledger is disabled; set %s or ledger.path", protocol.EnvLedgerPath))
	}

	rows, err := s.ledger.Recent(ctx, tool, limit)
	if err != nil {
		return toolCallResult{}, s.toolError(fmt.Errorf("read ledger: %w", err))
	}
	if len(rows) == 0 {
		return textResult("No generated files recorded."), nil
	}

	items := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		items = append(items, map[string]interface{}{
			"id":         row.ID,
			"tool":       row.Tool,
			"path":       row.Path,
			"size_bytes": row.SizeBytes,
			"created_at": row.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return jsonResult(items, map[string]interface{}{"files": items})
}
