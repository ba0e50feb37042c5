package api

import (
	"encoding/json"
	"time"

	"github.com/clarity-ai/beacon/internal/chread"
)

// ErrorResp is the uniform error payload.
type ErrorResp struct {
	Detail string `json:"detail"`
}

// RecordReq is the generic emission payload: a type tag plus a payload whose
// shape is decided by the type. Payload contents are accepted verbatim.
type RecordReq struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TabSwitchReq records a navigation between tabs.
type TabSwitchReq struct {
	FromTab string `json:"fromTab"`
	ToTab   string `json:"toTab"`
}

// ChatMessageReq records a sent chat message. ResponseTimeMs is optional.
type ChatMessageReq struct {
	Message        string `json:"message"`
	ResponseTimeMs *int64 `json:"responseTime,omitempty"`
}

// PromptClickReq records a suggested-prompt click.
type PromptClickReq struct {
	SuggestedPrompt string `json:"suggestedPrompt"`
}

// HistoryClickReq records a chat-history item click.
type HistoryClickReq struct {
	Value string `json:"value"`
}

// VizClickReq records a visualization element click.
type VizClickReq struct {
	ElementID         string `json:"elementId"`
	VisualizationType string `json:"visualizationType"`
}

// COAReq records a course-of-action card interaction.
type COAReq struct {
	COAID       string `json:"coaId"`
	COAName     string `json:"coaName"`
	Interaction string `json:"interaction"` // "hover" or "click"
}

// ErrorReq records an error occurrence. ErrorType defaults to "general".
type ErrorReq struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorType    string `json:"errorType,omitempty"`
}

// ScrollReq records a scroll position sample.
type ScrollReq struct {
	Position float64 `json:"position"`
}

// HoverBeginReq opens a dwell timer for a visualization element.
type HoverBeginReq struct {
	ElementID         string `json:"elementId"`
	VisualizationType string `json:"visualizationType"`
}

// HoverBeginResp returns the single-use ticket for the opened timer.
type HoverBeginResp struct {
	TicketID  string `json:"ticketId"`
	ElementID string `json:"elementId"`
}

// ContextReq updates the ambient state snapshotted into future events.
// Nil fields are left unchanged.
type ContextReq struct {
	CurrentTab         *string `json:"currentTab,omitempty"`
	ChatHistoryLength  *int    `json:"chatHistoryLength,omitempty"`
	CurrentExplanation *string `json:"currentExplanation,omitempty"`
	ScreenResolution   *string `json:"screenResolution,omitempty"`
}

// LegacyLogReq appends to the independent lightweight event log.
type LegacyLogReq struct {
	EventType string         `json:"eventType"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ResetReq carries the confirmation phrase for the destructive clear.
type ResetReq struct {
	Confirm string `json:"confirm"`
}

// SessionResp describes the live session.
type SessionResp struct {
	SessionID  string `json:"sessionId"`
	StartTime  string `json:"startTime"`
	EventCount int    `json:"eventCount"`
}

// ArchiveEventResp is one archived event from the warehouse.
type ArchiveEventResp struct {
	EventID           string          `json:"eventId"`
	SessionID         string          `json:"sessionId"`
	Timestamp         time.Time       `json:"timestamp"`
	Type              string          `json:"type"`
	Data              json.RawMessage `json:"data"`
	CurrentTab        string          `json:"currentTab,omitempty"`
	ChatHistoryLength uint32          `json:"chatHistoryLength"`
	UserAgent         string          `json:"userAgent,omitempty"`
	ScreenResolution  string          `json:"screenResolution,omitempty"`
}

// ArchiveListResp is the paginated archive listing.
type ArchiveListResp struct {
	Events   []ArchiveEventResp `json:"events"`
	Total    int                `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"pageSize"`
}

// GlobalAnalyticsResp mirrors chread.GlobalAnalytics for the HTTP surface.
type GlobalAnalyticsResp struct {
	TotalEvents    uint64                 `json:"totalEvents"`
	UniqueSessions uint64                 `json:"uniqueSessions"`
	EventsOverTime []TimeSeriesBucketResp `json:"eventsOverTime"`
	TopTypes       []TypeCountResp        `json:"topTypes"`
	TopTabs        []TabCountResp         `json:"topTabs"`
}

// TimeSeriesBucketResp is one hourly volume bucket.
type TimeSeriesBucketResp struct {
	Hour  time.Time `json:"hour"`
	Count uint64    `json:"count"`
}

// TypeCountResp is event volume per interaction type.
type TypeCountResp struct {
	Type  string `json:"type"`
	Count uint64 `json:"count"`
}

// TabCountResp is tab-switch volume per destination tab.
type TabCountResp struct {
	Tab   string `json:"tab"`
	Count uint64 `json:"count"`
}

// CreateStudyReq creates a study registration.
type CreateStudyReq struct {
	Name  string `json:"name"`
	Notes string `json:"notes,omitempty"`
}

// StudyResp describes a study. APIKey is present only on create and rotate.
type StudyResp struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Notes        string    `json:"notes,omitempty"`
	APIKeyPrefix string    `json:"apiKeyPrefix"`
	APIKey       string    `json:"apiKey,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func archiveEventToResp(e chread.EventRow) ArchiveEventResp {
	data := json.RawMessage(e.DataJSON)
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	return ArchiveEventResp{
		EventID:           e.EventID,
		SessionID:         e.SessionID,
		Timestamp:         e.Timestamp,
		Type:              e.Type,
		Data:              data,
		CurrentTab:        e.CurrentTab,
		ChatHistoryLength: e.ChatHistoryLength,
		UserAgent:         e.UserAgent,
		ScreenResolution:  e.ScreenResolution,
	}
}

func toGlobalAnalyticsResp(g *chread.GlobalAnalytics) GlobalAnalyticsResp {
	resp := GlobalAnalyticsResp{
		TotalEvents:    g.TotalEvents,
		UniqueSessions: g.UniqueSessions,
		EventsOverTime: make([]TimeSeriesBucketResp, len(g.EventsOverTime)),
		TopTypes:       make([]TypeCountResp, len(g.TopTypes)),
		TopTabs:        make([]TabCountResp, len(g.TopTabs)),
	}
	for i, b := range g.EventsOverTime {
		resp.EventsOverTime[i] = TimeSeriesBucketResp{Hour: b.Hour, Count: b.Count}
	}
	for i, t := range g.TopTypes {
		resp.TopTypes[i] = TypeCountResp{Type: t.Type, Count: t.Count}
	}
	for i, t := range g.TopTabs {
		resp.TopTabs[i] = TabCountResp{Tab: t.Tab, Count: t.Count}
	}
	return resp
}
