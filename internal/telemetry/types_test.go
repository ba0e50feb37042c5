package telemetry

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestInteractionType_Valid(t *testing.T) {
	for _, known := range AllTypes {
		if !known.Valid() {
			t.Errorf("%s should be valid", known)
		}
	}
	for _, bad := range []InteractionType{"", "click", "TAB_SWITCH", "session"} {
		if bad.Valid() {
			t.Errorf("%q should be invalid", bad)
		}
	}
}

func TestInteractionEvent_JSONRoundTrip(t *testing.T) {
	responseTime := int64(850)

	cases := []struct {
		name  string
		event InteractionEvent
	}{
		{
			name: "tab_switch",
			event: InteractionEvent{
				ID:        "1756288800000_a1b2c3d4e",
				SessionID: "session_1756288800000_xyz",
				Timestamp: "2026-08-27T10:00:00.000Z",
				Type:      TypeTabSwitch,
				Data:      &TabSwitchData{FromTab: "insight", ToTab: "reasoning"},
			},
		},
		{
			name: "chat_message_with_response_time",
			event: InteractionEvent{
				ID:        "1756288800001_f6g7h8i9j",
				SessionID: "session_1756288800000_xyz",
				Timestamp: "2026-08-27T10:00:01.000Z",
				Type:      TypeChatMessage,
				Data: &ChatMessageData{
					Message:        "why was route B rejected?",
					MessageLength:  25,
					ResponseTimeMs: &responseTime,
				},
			},
		},
		{
			name: "visualization_hover",
			event: InteractionEvent{
				ID:        "1756288800002_k1l2m3n4o",
				SessionID: "session_1756288800000_xyz",
				Timestamp: "2026-08-27T10:00:02.000Z",
				Type:      TypeVisualizationHover,
				Data: &VisualizationHoverData{
					ElementID:         "node_a",
					VisualizationType: "dag",
					HoverDurationMs:   350,
				},
			},
		},
		{
			name: "coa_card_click",
			event: InteractionEvent{
				ID:        "1756288800003_p5q6r7s8t",
				SessionID: "session_1756288800000_xyz",
				Timestamp: "2026-08-27T10:00:03.000Z",
				Type:      TypeCOACardClick,
				Data:      &COACardData{COAID: "coa_2", COAName: "Flank east"},
			},
		},
		{
			name: "session_start_marker",
			event: InteractionEvent{
				ID:        "1756288800004_u9v0w1x2y",
				SessionID: "session_1756288800000_xyz",
				Timestamp: "2026-08-27T10:00:04.000Z",
				Type:      TypeSessionStart,
				Data:      &MarkerData{},
			},
		},
		{
			name: "scroll_event",
			event: InteractionEvent{
				ID:        "1756288800005_z3a4b5c6d",
				SessionID: "session_1756288800000_xyz",
				Timestamp: "2026-08-27T10:00:05.000Z",
				Type:      TypeScrollEvent,
				Data:      &ScrollData{ScrollPosition: 420, ScrollDirection: "down"},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.event.Context = InteractionContext{
				CurrentTab:        "reasoning",
				ChatHistoryLength: 2,
				UserAgent:         "test-agent/1.0",
				ScreenResolution:  "1920x1080",
				Timestamp:         tc.event.Timestamp,
			}

			b, err := json.Marshal(tc.event)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}

			var got InteractionEvent
			if err := json.Unmarshal(b, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !reflect.DeepEqual(got, tc.event) {
				t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, tc.event)
			}
		})
	}
}

func TestDecodeData_MissingOrNullPayload(t *testing.T) {
	data, err := DecodeData(TypeTabSwitch, nil)
	if err != nil {
		t.Fatalf("nil payload: %v", err)
	}
	if ts, ok := data.(*TabSwitchData); !ok || ts.ToTab != "" {
		t.Errorf("expected zero TabSwitchData, got %#v", data)
	}

	data, err = DecodeData(TypeErrorOccurrence, json.RawMessage("null"))
	if err != nil {
		t.Fatalf("null payload: %v", err)
	}
	if _, ok := data.(*ErrorData); !ok {
		t.Errorf("expected *ErrorData, got %T", data)
	}
}

func TestDecodeData_DropsUnknownFields(t *testing.T) {
	raw := json.RawMessage(`{"fromTab":"insight","toTab":"reasoning","extra":"ignored"}`)
	data, err := DecodeData(TypeTabSwitch, raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ts := data.(*TabSwitchData)
	if ts.FromTab != "insight" || ts.ToTab != "reasoning" {
		t.Errorf("unexpected payload: %+v", ts)
	}
}

func TestDecodeData_UnknownTypeDecodesToMarker(t *testing.T) {
	data, err := DecodeData("custom_event", json.RawMessage(`{"anything":1}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := data.(*MarkerData); !ok {
		t.Errorf("expected *MarkerData fallback, got %T", data)
	}
}

func TestDecodeData_MalformedPayloadErrors(t *testing.T) {
	if _, err := DecodeData(TypeScrollEvent, json.RawMessage(`{"scrollPosition":"high"}`)); err == nil {
		t.Error("expected error for mistyped payload")
	}
}
