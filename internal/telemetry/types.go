package telemetry

import (
	"encoding/json"
	"fmt"
)

// InteractionType identifies the kind of user action captured in an event.
type InteractionType string

const (
	TypeTabSwitch            InteractionType = "tab_switch"
	TypeChatMessage          InteractionType = "chat_message"
	TypeSuggestedPromptClick InteractionType = "suggested_prompt_click"
	TypeHistoryClick         InteractionType = "history_click"
	TypeVisualizationHover   InteractionType = "visualization_hover"
	TypeVisualizationClick   InteractionType = "visualization_click"
	TypeCOACardHover         InteractionType = "coa_card_hover"
	TypeCOACardClick         InteractionType = "coa_card_click"
	TypeErrorOccurrence      InteractionType = "error_occurrence"
	TypeSessionStart         InteractionType = "session_start"
	TypeSessionEnd           InteractionType = "session_end"
	TypePageFocus            InteractionType = "page_focus"
	TypePageBlur             InteractionType = "page_blur"
	TypeScrollEvent          InteractionType = "scroll_event"
)

// AllTypes lists every interaction type in declaration order.
var AllTypes = []InteractionType{
	TypeTabSwitch,
	TypeChatMessage,
	TypeSuggestedPromptClick,
	TypeHistoryClick,
	TypeVisualizationHover,
	TypeVisualizationClick,
	TypeCOACardHover,
	TypeCOACardClick,
	TypeErrorOccurrence,
	TypeSessionStart,
	TypeSessionEnd,
	TypePageFocus,
	TypePageBlur,
	TypeScrollEvent,
}

// Valid reports whether t is one of the known interaction types.
func (t InteractionType) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// InteractionData is the payload of an event. Each interaction type has its
// own variant carrying only the fields that type legitimately produces.
type InteractionData interface {
	isInteractionData()
}

// TabSwitchData is the payload for tab_switch events.
type TabSwitchData struct {
	FromTab string `json:"fromTab"`
	ToTab   string `json:"toTab"`
}

// ChatMessageData is the payload for chat_message events. ResponseTimeMs is
// set only when the caller measured how long the reply took.
type ChatMessageData struct {
	Message        string `json:"message"`
	MessageLength  int    `json:"messageLength"`
	ResponseTimeMs *int64 `json:"responseTime,omitempty"`
}

// PromptClickData is the payload for suggested_prompt_click events.
type PromptClickData struct {
	SuggestedPrompt string `json:"suggestedPrompt"`
}

// HistoryClickData is the payload for history_click events.
type HistoryClickData struct {
	Value string `json:"value"`
}

// VisualizationHoverData is the payload for visualization_hover events.
// HoverDurationMs is the measured dwell time, never negative.
type VisualizationHoverData struct {
	ElementID         string `json:"elementId"`
	VisualizationType string `json:"visualizationType"`
	HoverDurationMs   int64  `json:"hoverDuration"`
}

// VisualizationClickData is the payload for visualization_click events.
type VisualizationClickData struct {
	ElementID         string `json:"elementId"`
	VisualizationType string `json:"visualizationType"`
}

// COACardData is the payload for coa_card_hover and coa_card_click events.
type COACardData struct {
	COAID   string `json:"coaId"`
	COAName string `json:"coaName"`
}

// ErrorData is the payload for error_occurrence events.
type ErrorData struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorType    string `json:"errorType"`
}

// ScrollData is the payload for scroll_event events. Direction is "down" when
// the position strictly exceeds the previously recorded position, else "up".
type ScrollData struct {
	ScrollPosition  float64 `json:"scrollPosition"`
	ScrollDirection string  `json:"scrollDirection"`
}

// MarkerData is the empty payload used by session and focus boundary events.
type MarkerData struct{}

func (TabSwitchData) isInteractionData()          {}
func (ChatMessageData) isInteractionData()        {}
func (PromptClickData) isInteractionData()        {}
func (HistoryClickData) isInteractionData()       {}
func (VisualizationHoverData) isInteractionData() {}
func (VisualizationClickData) isInteractionData() {}
func (COACardData) isInteractionData()            {}
func (ErrorData) isInteractionData()              {}
func (ScrollData) isInteractionData()             {}
func (MarkerData) isInteractionData()             {}

// InteractionContext is the ambient-state snapshot embedded in every event at
// record time. Immutable once embedded.
type InteractionContext struct {
	CurrentTab         string `json:"currentTab"`
	ChatHistoryLength  int    `json:"chatHistoryLength"`
	SessionDurationMs  int64  `json:"sessionDuration"`
	CurrentExplanation string `json:"currentExplanation,omitempty"`
	UserAgent          string `json:"userAgent"`
	ScreenResolution   string `json:"screenResolution"`
	Timestamp          string `json:"timestamp"`
}

// InteractionEvent is one atomic, timestamped user action.
type InteractionEvent struct {
	ID        string             `json:"id"`
	SessionID string             `json:"sessionId"`
	Timestamp string             `json:"timestamp"`
	Type      InteractionType    `json:"type"`
	Data      InteractionData    `json:"data"`
	Context   InteractionContext `json:"context"`
}

// eventAlias avoids infinite recursion in the custom JSON methods.
type eventAlias struct {
	ID        string             `json:"id"`
	SessionID string             `json:"sessionId"`
	Timestamp string             `json:"timestamp"`
	Type      InteractionType    `json:"type"`
	Data      json.RawMessage    `json:"data"`
	Context   InteractionContext `json:"context"`
}

// UnmarshalJSON decodes the data payload into the variant matching the event
// type. Fields the variant does not declare are dropped; a missing or null
// payload decodes to the variant's zero value.
func (e *InteractionEvent) UnmarshalJSON(b []byte) error {
	var alias eventAlias
	if err := json.Unmarshal(b, &alias); err != nil {
		return err
	}

	data, err := decodeData(alias.Type, alias.Data)
	if err != nil {
		return err
	}

	e.ID = alias.ID
	e.SessionID = alias.SessionID
	e.Timestamp = alias.Timestamp
	e.Type = alias.Type
	e.Data = data
	e.Context = alias.Context
	return nil
}

// DecodeData parses a raw JSON payload into the variant for the given type.
func DecodeData(t InteractionType, raw json.RawMessage) (InteractionData, error) {
	return decodeData(t, raw)
}

func decodeData(t InteractionType, raw json.RawMessage) (InteractionData, error) {
	unmarshal := func(v InteractionData) (InteractionData, error) {
		if len(raw) == 0 || string(raw) == "null" {
			return v, nil
		}
		if err := json.Unmarshal(raw, v); err != nil {
			return nil, fmt.Errorf("decode %s data: %w", t, err)
		}
		return v, nil
	}

	switch t {
	case TypeTabSwitch:
		return unmarshal(&TabSwitchData{})
	case TypeChatMessage:
		return unmarshal(&ChatMessageData{})
	case TypeSuggestedPromptClick:
		return unmarshal(&PromptClickData{})
	case TypeHistoryClick:
		return unmarshal(&HistoryClickData{})
	case TypeVisualizationHover:
		return unmarshal(&VisualizationHoverData{})
	case TypeVisualizationClick:
		return unmarshal(&VisualizationClickData{})
	case TypeCOACardHover, TypeCOACardClick:
		return unmarshal(&COACardData{})
	case TypeErrorOccurrence:
		return unmarshal(&ErrorData{})
	case TypeScrollEvent:
		return unmarshal(&ScrollData{})
	default:
		return unmarshal(&MarkerData{})
	}
}
