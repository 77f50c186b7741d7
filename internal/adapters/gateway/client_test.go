package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/tale-cli/internal/domain"
)

type staticToken string

func (t staticToken) Token(context.Context) (string, error) { return string(t), nil }

func newTestClient(server *httptest.Server) *Client {
	return &Client{
		BaseURL:    server.URL + "/api",
		HTTPClient: server.Client(),
		Tokens:     staticToken("test-token"),
	}
}

func TestInitStorySendsPreferencesAndBearerToken(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/story/init", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "fantasy", body["genre"])
		assert.Equal(t, "ranger", body["character"])
		assert.Equal(t, "floating cities", body["world_additions"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"session_id":"chat-1","story_content":"You wake up.","success":true}`))
	}))
	t.Cleanup(server.Close)

	id, opening, err := newTestClient(server).InitStory(context.Background(), domain.StoryPreferences{
		Genre:          "fantasy",
		Character:      "ranger",
		WorldAdditions: "floating cities",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionID("chat-1"), id)
	assert.Equal(t, "You wake up.", opening)
}

func TestInitStoryRejectedByBackend(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":false,"message":"genre is required"}`))
	}))
	t.Cleanup(server.Close)

	_, _, err := newTestClient(server).InitStory(context.Background(), domain.StoryPreferences{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "genre is required")
}

func TestSendActionReturnsStoryContent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/story/action", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "chat-1", body["session_id"])
		assert.Equal(t, "open the door", body["user_action"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"session_id":"chat-1","story_content":"The door creaks open.","success":true}`))
	}))
	t.Cleanup(server.Close)

	content, err := newTestClient(server).SendAction(context.Background(), "chat-1", "open the door")
	require.NoError(t, err)
	assert.Equal(t, "The door creaks open.", content)
}

func TestListSessionsMapsSummaries(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/story/sessions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sessions":[
			{"session_id":"chat-1","title":"First","message_count":4,
			 "created_at":"2026-08-01T10:00:00.123456","last_updated":"2026-08-01T11:30:00",
			 "world_image_status":"ready","character_image_status":"pending"},
			{"session_id":"chat-2","title":"Second","message_count":1,
			 "created_at":"2026-08-02T09:00:00Z","last_updated":"2026-08-02T09:00:00Z",
			 "world_image_status":"generating","character_image_status":"failed"}
		],"total_sessions":2}`))
	}))
	t.Cleanup(server.Close)

	summaries, err := newTestClient(server).ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	first := summaries[0]
	assert.Equal(t, domain.SessionID("chat-1"), first.SessionID)
	assert.Equal(t, 4, first.MessageCount)
	assert.Equal(t, domain.JobReady, first.Media.World)
	assert.Equal(t, domain.JobPending, first.Media.Character)
	// Zone-less backend timestamps still parse.
	assert.Equal(t, 2026, first.CreatedAt.Year())
	assert.Equal(t, 30, first.LastUpdated.Minute())

	second := summaries[1]
	// An unknown wire status counts as still pending.
	assert.Equal(t, domain.JobPending, second.Media.World)
	assert.Equal(t, domain.JobFailed, second.Media.Character)
}

func TestSessionMessagesSortsByTimestamp(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/story/session/chat-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"session_id":"chat-1","messages":[
			{"id":"m2","role":"user","content":"second","timestamp":"2026-08-01T10:05:00"},
			{"id":"m1","role":"assistant","content":"first","timestamp":"2026-08-01T10:00:00"}
		]}`))
	}))
	t.Cleanup(server.Close)

	messages, err := newTestClient(server).SessionMessages(context.Background(), "chat-1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "m1", messages[0].ID)
	assert.Equal(t, domain.RoleAssistant, messages[0].Role)
	assert.Equal(t, "m2", messages[1].ID)
}

func TestDeleteSessionUsesDeleteMethod(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/story/session/chat-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"deleted"}`))
	}))
	t.Cleanup(server.Close)

	require.NoError(t, newTestClient(server).DeleteSession(context.Background(), "chat-1"))
}

func TestMediaStatusMapsBothJobs(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/images/status/chat-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"world_status":"ready","character_status":"failed"}`))
	}))
	t.Cleanup(server.Close)

	status, err := newTestClient(server).MediaStatus(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobReady, status.World)
	assert.Equal(t, domain.JobFailed, status.Character)
}

func TestMediaURLPassesQueryParameters(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/images/get-url", r.URL.Path)
		assert.Equal(t, "chat-1", r.URL.Query().Get("chat_id"))
		assert.Equal(t, "world", r.URL.Query().Get("image_type"))
		assert.Equal(t, "web", r.URL.Query().Get("variant"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"url":"https://cdn.example/world.webp"}`))
	}))
	t.Cleanup(server.Close)

	resolved, err := newTestClient(server).MediaURL(context.Background(), "chat-1", domain.ImageWorld, domain.VariantWeb)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/world.webp", resolved)
}

func TestRegenerateMediaPostsChatID(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/images/regenerate", r.URL.Path)
		assert.Equal(t, "chat-1", r.URL.Query().Get("chat_id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"queued"}`))
	}))
	t.Cleanup(server.Close)

	require.NoError(t, newTestClient(server).RegenerateMedia(context.Background(), "chat-1"))
}

func TestServerErrorBecomesStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"detail":"upstream warming up"}`))
	}))
	t.Cleanup(server.Close)

	_, err := newTestClient(server).MediaStatus(context.Background(), "chat-1")
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "upstream warming up", statusErr.Message)
	assert.True(t, IsColdStart(err))
}

func TestUnauthorizedMapsToNotAuthenticated(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	_, err := newTestClient(server).MediaStatus(context.Background(), "chat-1")
	require.ErrorIs(t, err, domain.ErrNotAuthenticated)
	assert.False(t, IsColdStart(err))
}

func TestRequestTimesOutWithoutCallerDeadline(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"world_status":"ready","character_status":"ready"}`))
	}))
	t.Cleanup(server.Close)

	client := newTestClient(server)
	client.RequestTimeout = 20 * time.Millisecond

	_, err := client.MediaStatus(context.Background(), "chat-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch media status")
	assert.True(t, IsColdStart(err))
}

func TestBuildAPIURLValidation(t *testing.T) {
	t.Parallel()

	_, err := buildAPIURL("", "/story/init")
	require.Error(t, err)

	_, err = buildAPIURL("ftp://example.com", "/story/init")
	require.Error(t, err)

	endpoint, err := buildAPIURL("http://example.com/api", "/story/init")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/api/story/init", endpoint)
}

func TestIsColdStartClassification(t *testing.T) {
	t.Parallel()

	assert.False(t, IsColdStart(nil))
	assert.False(t, IsColdStart(domain.ErrNotAuthenticated))
	assert.False(t, IsColdStart(context.Canceled))
	assert.True(t, IsColdStart(context.DeadlineExceeded))
	assert.True(t, IsColdStart(&StatusError{StatusCode: http.StatusInternalServerError}))
	assert.True(t, IsColdStart(&StatusError{StatusCode: http.StatusServiceUnavailable}))
	assert.False(t, IsColdStart(&StatusError{StatusCode: http.StatusNotFound}))
	assert.False(t, IsColdStart(&StatusError{StatusCode: http.StatusBadRequest}))
}

func TestParseTimestampLayouts(t *testing.T) {
	t.Parallel()

	assert.False(t, parseTimestamp("2026-08-01T10:00:00Z").IsZero())
	assert.False(t, parseTimestamp("2026-08-01T10:00:00.123456").IsZero())
	assert.False(t, parseTimestamp("2026-08-01T10:00:00").IsZero())
	assert.True(t, parseTimestamp("").IsZero())
	assert.True(t, parseTimestamp("not a timestamp").IsZero())
}
