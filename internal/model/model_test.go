// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIDSource_StrictlyIncreasing(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	ids := NewIDSourceWithClock(fixedClock(now))

	first := ids.Next()
	second := ids.Next()
	third := ids.Next()

	if first != now.UnixMilli() {
		t.Errorf("first = %d, want %d", first, now.UnixMilli())
	}
	if second != first+1 || third != second+1 {
		t.Errorf("ids = %d, %d, %d; want consecutive", first, second, third)
	}
}

func TestIDSource_Observe(t *testing.T) {
	now := time.UnixMilli(1000)
	ids := NewIDSourceWithClock(fixedClock(now))

	ids.Observe(5000)
	if got := ids.Next(); got != 5001 {
		t.Errorf("Next after Observe = %d, want 5001", got)
	}
	ids.Observe(10) // lower values are ignored
	if got := ids.Next(); got != 5002 {
		t.Errorf("Next = %d, want 5002", got)
	}
}

func TestNewSession(t *testing.T) {
	now := time.Date(2025, 3, 9, 14, 30, 0, 0, time.Local)
	s := NewSession(42, now)

	if s.ID != 42 {
		t.Errorf("ID = %d, want 42", s.ID)
	}
	if s.Name != "Chat 3/9/2025" {
		t.Errorf("Name = %q, want %q", s.Name, "Chat 3/9/2025")
	}
	if s.TitleGenerated {
		t.Error("TitleGenerated should start false")
	}
	if s.Messages == nil || len(s.Messages) != 0 {
		t.Errorf("Messages = %v, want empty non-nil slice", s.Messages)
	}
}

func TestChatSession_JSONKeys(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 678_000_000, time.UTC)
	s := NewSession(1, now)
	s = s.WithMessage(NewUserMessage(2, "hi", now))
	s = s.WithMessage(NewAssistantMessage(3, "hello", "Groq LLaMA 3.1 70B", now))

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out := string(data)
	for _, key := range []string{
		`"id":1`, `"name":`, `"created_at":"2025-01-02T03:04:05.678Z"`,
		`"titleGenerated":false`, `"is_user_message":true`,
		`"ai_model_used":"Groq LLaMA 3.1 70B"`, `"message":"hi"`,
	} {
		if !strings.Contains(out, key) {
			t.Errorf("JSON missing %s: %s", key, out)
		}
	}
	if strings.Count(out, "ai_model_used") != 1 {
		t.Errorf("user message should omit ai_model_used: %s", out)
	}
}

func TestChatSession_DecodeBrowserData(t *testing.T) {
	raw := `[{"id":1736500000000,"name":"Chat 1/10/2025","created_at":"2025-01-10T09:00:00.000Z",
	"messages":[{"id":1736500001000,"message":"hey","is_user_message":true,"created_at":"2025-01-10T09:00:01.000Z"}],
	"titleGenerated":false}]`

	var list []ChatSession
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(list) != 1 || len(list[0].Messages) != 1 {
		t.Fatalf("decoded %+v", list)
	}
	if !list[0].Messages[0].IsUserMessage {
		t.Error("expected user message")
	}
}

func TestApplyTitle_OnlyOnce(t *testing.T) {
	s := NewSession(1, time.Now())

	if s.ApplyTitle("   ") {
		t.Error("blank title must not apply")
	}
	if s.TitleGenerated {
		t.Error("TitleGenerated flipped on blank title")
	}
	if !s.ApplyTitle("Anxiety check-in") {
		t.Fatal("first title should apply")
	}
	if s.ApplyTitle("Another title") {
		t.Error("second title must not apply")
	}
	if s.Name != "Anxiety check-in" || !s.TitleGenerated {
		t.Errorf("session = %+v", s)
	}
}

func TestWithMessage_DoesNotAlias(t *testing.T) {
	base := NewSession(1, time.Now())
	base.Messages = make([]ChatMessage, 0, 4)

	a := base.WithMessage(NewUserMessage(2, "a", time.Now()))
	b := base.WithMessage(NewUserMessage(3, "b", time.Now()))

	if a.Messages[0].Message != "a" || b.Messages[0].Message != "b" {
		t.Errorf("aliasing: a=%q b=%q", a.Messages[0].Message, b.Messages[0].Message)
	}
	if len(base.Messages) != 0 {
		t.Errorf("base mutated: %d messages", len(base.Messages))
	}
}

func TestPreviewAndLastActivity(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSession(1, t0)
	if s.Preview(10) != "" {
		t.Error("empty session preview should be empty")
	}
	if !s.LastActivity().Equal(t0) {
		t.Errorf("LastActivity = %v, want %v", s.LastActivity(), t0)
	}

	t1 := t0.Add(time.Hour)
	s = s.WithMessage(NewUserMessage(2, "I feel\nanxious today", t1))
	if got := s.Preview(12); got != "I feel an..." {
		t.Errorf("Preview = %q", got)
	}
	if !s.LastActivity().Equal(t1) {
		t.Errorf("LastActivity = %v, want %v", s.LastActivity(), t1)
	}
}

func TestAuthorDisplayName(t *testing.T) {
	if NewUserMessage(1, "x", time.Now()).Author().DisplayName() != "You" {
		t.Error("user display name")
	}
	if NewErrorMessage(1, "x", time.Now()).Author().DisplayName() != "AI" {
		t.Error("assistant display name")
	}
}

func TestFindSession(t *testing.T) {
	list := []ChatSession{{ID: 1}, {ID: 2}}
	if FindSession(list, 2) != 1 {
		t.Error("FindSession(2) != 1")
	}
	if FindSession(list, 3) != -1 {
		t.Error("FindSession(3) != -1")
	}
}

func TestChatSession_LenientCreatedAt(t *testing.T) {
	raw := `[
		{"id":1,"name":"a","created_at":"","messages":[],"titleGenerated":true},
		{"id":2,"name":"b","created_at":null,"messages":[]},
		{"id":3,"name":"c","created_at":"2025-03-14T09:30:00.000Z","messages":[]}
	]`
	var list []ChatSession
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	if !list[0].CreatedAt.IsZero() || !list[1].CreatedAt.IsZero() {
		t.Errorf("blank created_at should decode as zero time")
	}
	if !list[0].TitleGenerated || list[0].Name != "a" {
		t.Errorf("other fields lost: %+v", list[0])
	}
	want := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	if !list[2].CreatedAt.Equal(want) {
		t.Errorf("created_at = %v, want %v", list[2].CreatedAt, want)
	}
}
