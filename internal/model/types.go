package model

import "time"

type Voice struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Category         string `json:"category,omitempty"`
	Description      string `json:"description,omitempty"`
	FineTuningStatus string `json:"fine_tuning_status,omitempty"`
}

type Language struct {
	LanguageID string `json:"language_id"`
	Name       string `json:"name"`
}

type Model struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Languages []Language `json:"languages"`
}

type VerifiedLanguage struct {
	Language string
	Accent   string
}

// SharedVoice is an entry of the public voice library.
type SharedVoice struct {
	ID          string
	Name        string
	Category    string
	Gender      string
	Age         string
	Accent      string
	Description string
	UseCase     string
	PreviewURL  string
	Languages   []VerifiedLanguage
}

type VoicePreview struct {
	GeneratedVoiceID string
	Audio            []byte
}

type Transcription struct {
	Text         string
	LanguageCode string
}

type Agent struct {
	ID        string
	Name      string
	VoiceID   string
	CreatedAt time.Time
}

type KnowledgeBaseRef struct {
	Type string
	Name string
	ID   string
}

type TranscriptEntry struct {
	Role      string
	Message   string
	Timestamp string
}

// ConversationMetadata holds the normalized call metadata. Zero values mean
// the upstream response did not carry the field.
type ConversationMetadata struct {
	DurationSecs int
	HasDuration  bool
	StartedAt    string
}

type Conversation struct {
	ID              string
	Status          string
	AgentID         string
	Transcript      []TranscriptEntry
	Metadata        *ConversationMetadata
	HasAnalysis     bool
	AnalysisSummary string
}

type ConversationSummary struct {
	ID             string
	Status         string
	AgentID        string
	AgentName      string
	StartTime      time.Time
	DurationSecs   int
	MessageCount   int
	CallSuccessful string
}

type ConversationPage struct {
	Conversations []ConversationSummary
	HasMore       bool
	NextCursor    string
}

type PhoneNumber struct {
	ID                string
	Number            string
	Provider          string
	Label             string
	AssignedAgentID   string
	AssignedAgentName string
}

type OutboundCall struct {
	Success        bool
	Message        string
	ConversationID string
	CallID         string
}

// GeneratedFile is a ledger row describing an output written by a tool.
type GeneratedFile struct {
	ID        string
	Tool      string
	Path      string
	SizeBytes int64
	CreatedAt time.Time
}
