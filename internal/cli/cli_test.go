// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcusdavidalo/arda/internal/model"
	"github.com/marcusdavidalo/arda/internal/session"
	"github.com/marcusdavidalo/arda/internal/storage"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

// fakeAPI serves the completion and search endpoints. Completion replies
// echo the last user message.
type fakeAPI struct {
	srv             *httptest.Server
	completionCalls atomic.Int32
	searchCalls     atomic.Int32
	failCompletion  atomic.Bool
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		f.completionCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if f.failCompletion.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"message":"upstream exploded"}}`)
			return
		}
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		last := req.Messages[len(req.Messages)-1].Content
		body, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "Reply to: " + last}},
			},
		})
		w.Write(body)
	})
	mux.HandleFunc("/customsearch/v1", func(w http.ResponseWriter, r *http.Request) {
		f.searchCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[{"title":"Go Release Notes","link":"https://go.dev/doc/devel/release","snippet":"Release history"}]}`)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

// testEnv isolates HOME and the ARDA_* variables and writes a config file
// pointing at api.
func testEnv(t *testing.T, api *fakeAPI, withSearch bool) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{
		"ARDA_GROQ_API_KEY", "GROQ_API_KEY", "ARDA_COMPLETION_BASE_URL",
		"ARDA_SEARCH_API_KEY", "ARDA_SEARCH_ENGINE_ID", "ARDA_STORAGE_BACKEND",
		"ARDA_DATA_DIR", "ARDA_OTLP_ENDPOINT", "ARDA_CONFIG", "ARDA_LOG_LEVEL",
		"ARDA_LOG_FORMAT", "ARDA_LOG_FILE", "ARDA_WITH_CALLER",
	} {
		t.Setenv(k, "")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[completion]\napi_key = \"test-completion-key\"\nbase_url = %q\n\n", api.srv.URL+"/v1")
	if withSearch {
		fmt.Fprintf(&sb, "[search]\napi_key = \"search-key\"\nengine_id = \"cx\"\nbase_url = %q\nrate_per_second = 100.0\nburst = 100\n\n",
			api.srv.URL+"/customsearch/v1")
	}
	fmt.Fprintf(&sb, "[storage]\nbackend = \"file\"\ndata_dir = %q\n\n", filepath.Join(home, "data"))
	sb.WriteString("[logging]\nlevel = \"error\"\n")

	path := filepath.Join(home, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o600))
	return path
}

// run executes one arda invocation and returns its combined output.
func run(t *testing.T, cfgPath, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd, o := newRootCommand()
	defer o.close()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func exportJSON(t *testing.T, cfgPath string, n int) model.Conversation {
	t.Helper()
	out, err := run(t, cfgPath, "", "conversations", "export", fmt.Sprint(n), "--format", "json")
	require.NoError(t, err)
	var conv model.Conversation
	require.NoError(t, json.Unmarshal([]byte(out), &conv))
	return conv
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_PrintsReplyAndPersists(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testEnv(t, api, false)

	out, err := run(t, cfg, "", "ask", "hello", "there")
	require.NoError(t, err)
	assert.Contains(t, out, "Reply to: hello there")

	list, err := run(t, cfg, "", "conversations", "list")
	require.NoError(t, err)
	assert.Contains(t, list, "hello there")

	conv := exportJSON(t, cfg, 0)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, model.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "Reply to: hello there", conv.Messages[1].Content)
}

func TestAsk_ReadsStdin(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testEnv(t, api, false)

	out, err := run(t, cfg, "piped question\n", "ask")
	require.NoError(t, err)
	assert.Contains(t, out, "Reply to: piped question")
}

func TestAsk_BlankMessageSendsNothing(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testEnv(t, api, false)

	_, err := run(t, cfg, "   \n", "ask")
	require.Error(t, err)
	assert.Zero(t, api.completionCalls.Load())
}

func TestAsk_WithSearch(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testEnv(t, api, true)

	out, err := run(t, cfg, "", "ask", "--search", "latest go")
	require.NoError(t, err)
	assert.Contains(t, out, "Reply to: latest go")
	assert.Contains(t, out, "Go Release Notes")
	assert.EqualValues(t, 1, api.searchCalls.Load())
}

func TestAsk_CompletionFailurePersistsErrorTurn(t *testing.T) {
	api := newFakeAPI(t)
	api.failCompletion.Store(true)
	cfg := testEnv(t, api, false)

	out, err := run(t, cfg, "", "ask", "will this work")
	require.Error(t, err)
	assert.Contains(t, out, "Sorry, something went wrong")
	assert.EqualValues(t, 1, api.completionCalls.Load())

	conv := exportJSON(t, cfg, 0)
	require.Len(t, conv.Messages, 2)
	assert.True(t, conv.Messages[1].Error)
}

func TestAsk_ContinuesConversationByID(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testEnv(t, api, false)

	_, err := run(t, cfg, "", "ask", "first")
	require.NoError(t, err)
	id := exportJSON(t, cfg, 0).ID

	_, err = run(t, cfg, "", "ask", "--id", id, "second")
	require.NoError(t, err)

	conv := exportJSON(t, cfg, 0)
	assert.Equal(t, id, conv.ID)
	assert.Len(t, conv.Messages, 4)

	_, err = run(t, cfg, "", "ask", "--id", "no-such-id", "third")
	assert.ErrorIs(t, err, storage.ErrConversationNotFound)
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

func TestConversations_RenameAndDelete(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testEnv(t, api, false)

	for _, q := range []string{"alpha question", "beta question"} {
		_, err := run(t, cfg, "", "ask", q)
		require.NoError(t, err)
	}

	out, err := run(t, cfg, "", "conversations", "rename", "1", "Beta", "Notes")
	require.NoError(t, err)
	assert.Contains(t, out, `"Beta Notes"`)

	list, err := run(t, cfg, "", "conversations")
	require.NoError(t, err)
	assert.Contains(t, list, "Beta Notes")
	assert.Contains(t, list, "alpha question")

	_, err = run(t, cfg, "", "conversations", "delete", "0")
	require.NoError(t, err)

	assert.Equal(t, "Beta Notes", exportJSON(t, cfg, 0).Name)

	_, err = run(t, cfg, "", "conversations", "delete", "5")
	assert.ErrorIs(t, err, session.ErrIndexOutOfRange)
}

func TestConversations_ListQuery(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testEnv(t, api, false)

	for _, q := range []string{"about gophers", "about cats"} {
		_, err := run(t, cfg, "", "ask", q)
		require.NoError(t, err)
	}

	out, err := run(t, cfg, "", "conversations", "list", "--query", "GOPHER")
	require.NoError(t, err)
	assert.Contains(t, out, "about gophers")
	assert.NotContains(t, out, "about cats")

	out, err = run(t, cfg, "", "conversations", "list", "-q", "zebra")
	require.NoError(t, err)
	assert.Contains(t, out, "No conversations match")
}

func TestConversations_ShowAndExportMarkdown(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testEnv(t, api, false)

	_, err := run(t, cfg, "", "ask", "show me")
	require.NoError(t, err)

	out, err := run(t, cfg, "", "conversations", "show", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "# show me")
	assert.Contains(t, out, "### Arda")

	target := filepath.Join(t.TempDir(), "conv.md")
	_, err = run(t, cfg, "", "conversations", "export", "0", "--output", target)
	require.NoError(t, err)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Reply to: show me")

	dir := t.TempDir()
	_, err = run(t, cfg, "", "conversations", "export", "0", "--format", "html", "--output", dir)
	require.NoError(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".html"))

	_, err = run(t, cfg, "", "conversations", "show", "3")
	assert.ErrorIs(t, err, storage.ErrConversationNotFound)

	_, err = run(t, cfg, "", "conversations", "export", "0", "--format", "pdf")
	assert.Error(t, err)
}

func TestConversations_EmptyStore(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testEnv(t, api, false)

	out, err := run(t, cfg, "", "conversations", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No conversations found.")
}

// =============================================================================
// CHAT (plain)
// =============================================================================

func TestChatPlain_Session(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testEnv(t, api, false)

	input := strings.Join([]string{
		"hi arda",
		"",
		"/new",
		"second chat",
		"/list",
		"/rename 0 First",
		"/load 0",
		"/quit",
		"ignored after quit",
	}, "\n")

	out, err := run(t, cfg, input, "chat", "--plain")
	require.NoError(t, err)

	assert.Contains(t, out, "Hello!")
	assert.Contains(t, out, "may occasionally provide inaccurate details")
	assert.Contains(t, out, "Reply to: hi arda")
	assert.Contains(t, out, "Started a new conversation.")
	assert.Contains(t, out, "Reply to: second chat")
	assert.Contains(t, out, "Renamed conversation 0.")
	assert.Contains(t, out, "First")
	assert.EqualValues(t, 2, api.completionCalls.Load())

	list, err := run(t, cfg, "", "conversations", "list")
	require.NoError(t, err)
	assert.Contains(t, list, "First")
	assert.Contains(t, list, "second chat")
}

func TestChatPlain_CommandErrors(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testEnv(t, api, false)

	input := strings.Join([]string{
		"/delete 9",
		"/load x",
		"/copy",
		"/bogus",
		"/search",
	}, "\n")

	out, err := run(t, cfg, input, "chat", "--plain")
	require.NoError(t, err)

	assert.Contains(t, out, "conversation index out of range")
	assert.Contains(t, out, `invalid conversation number "x"`)
	assert.Contains(t, out, "no reply to copy from")
	assert.Contains(t, out, "unknown command /bogus")
	assert.Contains(t, out, "usage: /search query")
	assert.Zero(t, api.completionCalls.Load())
}

func TestChatPlain_Delete(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testEnv(t, api, false)

	_, err := run(t, cfg, "", "ask", "to be deleted")
	require.NoError(t, err)

	out, err := run(t, cfg, "/delete 0\n/list\n", "chat", "--plain")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted conversation 0.")
	assert.Contains(t, out, "No conversations found.")
}

func TestChatPlain_SearchCommand(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testEnv(t, api, true)

	out, err := run(t, cfg, "/search go release\n", "chat", "--plain")
	require.NoError(t, err)
	assert.Contains(t, out, "Go Release Notes")
	assert.Zero(t, api.completionCalls.Load())
}

// =============================================================================
// SEARCH
// =============================================================================

func TestSearch_JSON(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testEnv(t, api, true)

	out, err := run(t, cfg, "", "search", "--json", "go", "release")
	require.NoError(t, err)

	var items []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "https://go.dev/doc/devel/release", items[0]["link"])
}

func TestSearch_NotConfigured(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testEnv(t, api, false)

	_, err := run(t, cfg, "", "search", "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
	assert.Zero(t, api.searchCalls.Load())
}

// =============================================================================
// CONFIG AND FLAGS
// =============================================================================

func TestConfig_ShowMasksSecrets(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testEnv(t, api, false)

	out, err := run(t, cfg, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "[completion]")
	assert.NotContains(t, out, "test-completion-key")
	assert.Contains(t, out, "test...-key")
}

func TestConfig_InitAndPath(t *testing.T) {
	api := newFakeAPI(t)
	testEnv(t, api, false)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, err := run(t, path, "", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path, strings.TrimSpace(out))

	_, err = run(t, path, "", "config", "init")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# arda configuration file"))

	_, err = run(t, path, "", "config", "init")
	assert.Error(t, err)

	_, err = run(t, path, "", "config", "init", "--force")
	assert.NoError(t, err)
}

func TestLogLevelFlag(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testEnv(t, api, false)
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	_, err := run(t, cfg, "", "--log-level", "debug", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	t.Setenv("ARDA_LOG_LEVEL", "warn")
	_, err = run(t, cfg, "", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	_, err = run(t, cfg, "", "--log-level", "loud", "config", "path")
	assert.Error(t, err)
}

func TestUnknownBackendFails(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testEnv(t, api, false)
	t.Setenv("ARDA_STORAGE_BACKEND", "floppy")

	_, err := run(t, cfg, "", "conversations", "list")
	assert.Error(t, err)
}

func TestBackendsRoundTrip(t *testing.T) {
	for _, backend := range []string{"bolt", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			api := newFakeAPI(t)
			cfg := testEnv(t, api, false)
			t.Setenv("ARDA_STORAGE_BACKEND", backend)

			_, err := run(t, cfg, "", "ask", "stored in "+backend)
			require.NoError(t, err)

			out, err := run(t, cfg, "", "conversations", "list")
			require.NoError(t, err)
			assert.Contains(t, out, "stored in "+backend)
		})
	}
}
