package storage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/comigor/neura-go/internal/chat"
)

var migrateNow = time.UnixMilli(1_700_000_000_000)

func fixedID() string { return "fixed" }

func TestMigrateChat_LegacyMessages(t *testing.T) {
	raw := json.RawMessage(`{
		"messages": [
			{"role": "assistant", "content": "Welcome!", "timestamp": 10},
			{"role": "user", "content": "  Hello there, how are you doing?  ", "timestamp": 11},
			"garbage",
			{"role": "user", "content": 42}
		],
		"memory": "likes tea",
		"isLoading": true,
		"error": "old"
	}`)

	got := MigrateChat(raw, migrateNow, fixedID)
	want := chat.State{
		Sessions: []chat.Session{{
			ID:    "legacy-fixed",
			Title: "Hello there, how are you doing...",
			Messages: []chat.Message{
				{Role: chat.RoleAssistant, Content: "Welcome!", Timestamp: 10},
				{Role: chat.RoleUser, Content: "  Hello there, how are you doing?  ", Timestamp: 11},
				{Role: chat.RoleUser, Content: "42"},
			},
			LastUpdated: migrateNow.UnixMilli(),
		}},
		ActiveSessionID: "legacy-fixed",
		Memory:          "likes tea",
	}
	require.Empty(t, cmp.Diff(want, got))
}

func TestMigrateChat_LegacyKeepsNonTextContent(t *testing.T) {
	raw := json.RawMessage(`{"messages": [
		{"role": "user", "content": {"image": "cat.png"}, "timestamp": 1},
		{"role": "user", "content": "hi", "timestamp": 2},
		{"role": "assistant", "content": {"a": 1}, "timestamp": 3},
		{"content": ["x", 2]},
		{"role": "assistant", "content": null}
	]}`)

	got := MigrateChat(raw, migrateNow, fixedID)
	require.Len(t, got.Sessions, 1)
	msgs := got.Sessions[0].Messages
	require.Len(t, msgs, 5)
	require.Equal(t, "hi", got.Sessions[0].Title, "title comes from the first text message")
	require.Equal(t, `{"image":"cat.png"}`, msgs[0].Content)
	require.Equal(t, `{"a":1}`, msgs[2].Content)
	require.Equal(t, chat.RoleAssistant, msgs[3].Role)
	require.Equal(t, `["x",2]`, msgs[3].Content)
	require.Empty(t, msgs[4].Content)
}

func TestMigrateChat_SkipsBadSession(t *testing.T) {
	raw := json.RawMessage(`{
		"sessions": [
			{"id": "a", "title": 5, "messages": [], "lastUpdated": 1},
			null,
			{"id": "b", "title": "Kept", "messages": [{"role": "user", "content": "hi", "timestamp": 2}], "lastUpdated": 2}
		],
		"activeSessionId": "b",
		"memory": "m",
		"error": null
	}`)

	got := MigrateChat(raw, migrateNow, fixedID)
	want := chat.State{
		Sessions: []chat.Session{{
			ID:          "b",
			Title:       "Kept",
			Messages:    []chat.Message{{Role: chat.RoleUser, Content: "hi", Timestamp: 2}},
			LastUpdated: 2,
		}},
		ActiveSessionID: "b",
		Memory:          "m",
	}
	require.Empty(t, cmp.Diff(want, got))
}

func TestMigrateChat_LegacyWithoutUserMessage(t *testing.T) {
	raw := json.RawMessage(`{"messages": [{"role": "assistant", "content": "hi"}], "memory": 7}`)
	got := MigrateChat(raw, migrateNow, fixedID)
	require.Len(t, got.Sessions, 1)
	require.Equal(t, "Legacy Chat", got.Sessions[0].Title)
	require.Empty(t, got.Memory, "non-string memory is dropped")
}

func TestMigrateChat_LegacyBlankUserMessage(t *testing.T) {
	raw := json.RawMessage(`{"messages": [{"role": "user", "content": "   "}, {"role": "user", "content": "later"}]}`)
	got := MigrateChat(raw, migrateNow, fixedID)
	require.Equal(t, "Legacy Chat", got.Sessions[0].Title)
	require.Len(t, got.Sessions[0].Messages, 2)
}

func TestMigrateChat_Unrecognised(t *testing.T) {
	inputs := []string{
		``,
		`null`,
		`42`,
		`"not json inside"`,
		`{"memory": "keep me"}`,
		`{"sessions": [{"id": 5}], "memory": "keep me"}`,
		`{"sessions": "nope", "memory": "keep me"}`,
	}
	for _, in := range inputs {
		got := MigrateChat(json.RawMessage(in), migrateNow, fixedID)
		require.NotNil(t, got.Sessions, in)
		require.Empty(t, got.Sessions, in)
		require.Empty(t, got.ActiveSessionID, in)
		require.False(t, got.IsLoading, in)
		require.Empty(t, got.Error, in)
	}

	got := MigrateChat(json.RawMessage(`{"sessions": {}, "memory": "keep me"}`), migrateNow, fixedID)
	require.Equal(t, "keep me", got.Memory)
}

func TestMigrateChat_Idempotent(t *testing.T) {
	legacy := json.RawMessage(`{"messages": [{"role": "user", "content": "hi", "timestamp": 1}]}`)
	first := MigrateChat(legacy, migrateNow, fixedID)

	raw, err := json.Marshal(first)
	require.NoError(t, err)
	second := MigrateChat(raw, migrateNow.Add(time.Hour), func() string { return "other" })
	require.Empty(t, cmp.Diff(first, second))

	raw2, err := json.Marshal(second)
	require.NoError(t, err)
	require.JSONEq(t, string(raw), string(raw2))
}

func TestMigrateChat_StringWrapped(t *testing.T) {
	inner := `{"sessions":[{"id":"a","title":"T","messages":null,"lastUpdated":3}],"activeSessionId":"a","memory":"m","isLoading":false,"error":null}`
	wrapped, err := json.Marshal(inner)
	require.NoError(t, err)

	got := MigrateChat(wrapped, migrateNow, fixedID)
	require.Equal(t, "a", got.ActiveSessionID)
	require.Equal(t, "m", got.Memory)
	require.NotNil(t, got.Sessions[0].Messages)
}

func TestMigrateProfile(t *testing.T) {
	p := MigrateProfile(json.RawMessage(`{"username":"ana","email":"a@b.c","isAuthenticated":true}`))
	require.Equal(t, "ana", p.Username)
	require.True(t, p.IsAuthenticated)

	p = MigrateProfile(json.RawMessage(`[1,2]`))
	require.Empty(t, p.Username)
}
