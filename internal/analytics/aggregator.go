// Package analytics derives summary statistics from an interaction event log.
// Everything here is a pure projection: analytics are never stored, only
// recomputed from the events that produced them.
package analytics

import (
	"time"

	"github.com/clarity-ai/beacon/internal/telemetry"
)

// topElementCount is how many elements the engagement rankings keep.
const topElementCount = 5

// ChatEngagement summarizes chat activity within the event set.
type ChatEngagement struct {
	MessagesPerSession       int     `json:"averageMessagesPerSession"`
	AverageMessageLength     float64 `json:"averageMessageLength"`
	SuggestedPromptUsageRate float64 `json:"suggestedPromptUsageRate"`
	AverageResponseTimeMs    float64 `json:"averageResponseTime"`
}

// ElementCount is one entry in an engagement ranking.
type ElementCount struct {
	Element string `json:"element"`
	Count   int    `json:"count"`
}

// VisualizationEngagement ranks the most hovered and clicked elements.
type VisualizationEngagement struct {
	MostHoveredElements []ElementCount `json:"mostHoveredElements"`
	MostClickedElements []ElementCount `json:"mostClickedElements"`
}

// ErrorAnalytics summarizes recorded error occurrences.
type ErrorAnalytics struct {
	TotalErrors int            `json:"totalErrors"`
	ErrorTypes  map[string]int `json:"errorTypes"`
}

// Analytics is the derived summary over a set of interaction events.
type Analytics struct {
	TotalSessions             int                               `json:"totalSessions"`
	TotalInteractions         int                               `json:"totalInteractions"`
	InteractionTypeCounts     map[telemetry.InteractionType]int `json:"interactionTypeCounts"`
	AverageSessionDurationMs  int64                             `json:"averageSessionDuration"`
	MostCommonInteractionType telemetry.InteractionType         `json:"mostCommonInteractionType"`
	TabUsageDistribution      map[string]int                    `json:"tabUsageDistribution"`
	ChatEngagement            ChatEngagement                    `json:"chatEngagementMetrics"`
	VisualizationEngagement   VisualizationEngagement           `json:"visualizationEngagement"`
	ErrorAnalytics            ErrorAnalytics                    `json:"errorAnalytics"`
}

// Compute derives analytics from the given events. Pure and deterministic
// apart from the wall clock used when no session_end event exists.
func Compute(events []telemetry.InteractionEvent) Analytics {
	return computeAt(events, time.Now())
}

// computeAt is the clock-injected implementation.
//
// Rules:
//   - Tab usage groups tab_switch events by destination tab; tabs never
//     switched to are omitted from the map.
//   - The most common interaction type is the first type to reach the
//     maximum count, in order of first appearance.
//   - Session duration is sessionEnd - sessionStart when both boundary
//     events exist, otherwise now - firstEvent; 0 for an empty set.
//   - Suggested prompt usage is promptClicks / chatMessages * 100, and 0
//     when there are no chat messages.
//   - Engagement rankings default a missing element ID to "unknown", sort by
//     count descending with ties in first-seen order, and keep the top 5.
//   - Error analytics group by error type, defaulting to "unknown".
func computeAt(events []telemetry.InteractionEvent, now time.Time) Analytics {
	a := Analytics{
		InteractionTypeCounts: make(map[telemetry.InteractionType]int),
		TabUsageDistribution:  make(map[string]int),
		ErrorAnalytics:        ErrorAnalytics{ErrorTypes: make(map[string]int)},
		VisualizationEngagement: VisualizationEngagement{
			MostHoveredElements: []ElementCount{},
			MostClickedElements: []ElementCount{},
		},
	}
	if len(events) == 0 {
		return a
	}

	a.TotalSessions = 1
	a.TotalInteractions = len(events)

	var (
		typeOrder  []telemetry.InteractionType
		hovers     = newOrderedCounter()
		clicks     = newOrderedCounter()
		promptN    int
		chatN      int
		chatLenSum int
		respSum    int64
		respN      int
		startTS    string
		endTS      string
	)

	for _, e := range events {
		if a.InteractionTypeCounts[e.Type] == 0 {
			typeOrder = append(typeOrder, e.Type)
		}
		a.InteractionTypeCounts[e.Type]++

		switch data := e.Data.(type) {
		case *telemetry.TabSwitchData:
			a.TabUsageDistribution[data.ToTab]++
		case *telemetry.ChatMessageData:
			chatN++
			chatLenSum += data.MessageLength
			if data.ResponseTimeMs != nil {
				respSum += *data.ResponseTimeMs
				respN++
			}
		case *telemetry.VisualizationHoverData:
			hovers.add(orUnknown(data.ElementID))
		case *telemetry.VisualizationClickData:
			clicks.add(orUnknown(data.ElementID))
		case *telemetry.ErrorData:
			a.ErrorAnalytics.TotalErrors++
			a.ErrorAnalytics.ErrorTypes[orUnknown(data.ErrorType)]++
		}

		switch e.Type {
		case telemetry.TypeSuggestedPromptClick:
			promptN++
		case telemetry.TypeSessionStart:
			if startTS == "" {
				startTS = e.Timestamp
			}
		case telemetry.TypeSessionEnd:
			if endTS == "" {
				endTS = e.Timestamp
			}
		}
	}

	// First type to reach the running maximum wins ties.
	best := typeOrder[0]
	bestCount := 0
	for _, t := range typeOrder {
		if a.InteractionTypeCounts[t] > bestCount {
			best = t
			bestCount = a.InteractionTypeCounts[t]
		}
	}
	a.MostCommonInteractionType = best

	a.AverageSessionDurationMs = sessionDuration(events, startTS, endTS, now)

	a.ChatEngagement = ChatEngagement{
		MessagesPerSession: chatN,
	}
	if chatN > 0 {
		a.ChatEngagement.AverageMessageLength = float64(chatLenSum) / float64(chatN)
		a.ChatEngagement.SuggestedPromptUsageRate = float64(promptN) / float64(chatN) * 100
	}
	if respN > 0 {
		a.ChatEngagement.AverageResponseTimeMs = float64(respSum) / float64(respN)
	}

	a.VisualizationEngagement.MostHoveredElements = hovers.top(topElementCount)
	a.VisualizationEngagement.MostClickedElements = clicks.top(topElementCount)

	return a
}

// sessionDuration implements the boundary-event rule from computeAt.
func sessionDuration(events []telemetry.InteractionEvent, startTS, endTS string, now time.Time) int64 {
	if startTS != "" && endTS != "" {
		start, errS := time.Parse(time.RFC3339, startTS)
		end, errE := time.Parse(time.RFC3339, endTS)
		if errS == nil && errE == nil {
			return end.Sub(start).Milliseconds()
		}
	}
	first, err := time.Parse(time.RFC3339, events[0].Timestamp)
	if err != nil {
		return 0
	}
	return now.Sub(first).Milliseconds()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// orderedCounter counts string keys while remembering first-seen order, so
// ranking ties resolve deterministically.
type orderedCounter struct {
	keys   []string
	counts map[string]int
}

func newOrderedCounter() *orderedCounter {
	return &orderedCounter{counts: make(map[string]int)}
}

func (c *orderedCounter) add(key string) {
	if c.counts[key] == 0 {
		c.keys = append(c.keys, key)
	}
	c.counts[key]++
}

// top returns up to n entries sorted by count descending, ties in first-seen
// order. Insertion sort keeps equal counts stable.
func (c *orderedCounter) top(n int) []ElementCount {
	out := []ElementCount{}
	for _, key := range c.keys {
		entry := ElementCount{Element: key, Count: c.counts[key]}
		pos := len(out)
		for pos > 0 && out[pos-1].Count < entry.Count {
			pos--
		}
		out = append(out, ElementCount{})
		copy(out[pos+1:], out[pos:])
		out[pos] = entry
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}
