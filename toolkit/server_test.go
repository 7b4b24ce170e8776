package toolkit

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret-1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"Incorrect user or password"}`)
			return
		}
		_, _ = io.WriteString(w, `{"response":{"access_token":"tok-123"}}`)
	})
	mux.HandleFunc("/api/profile", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		_, _ = io.WriteString(w, `{"_id":"u-1","email":"ana@example.com","roles":["student"]}`)
	})
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"videos":[{"_id":"v1","title":"a"},{"_id":"v2","title":"b"},{"_id":"v3","title":"a"}]}`)
	})
	mux.HandleFunc("/videos/v1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClientRejectsRelativeBase(t *testing.T) {
	t.Parallel()

	_, err := NewClient("localhost:5000", "", time.Second, nil)
	require.Error(t, err)

	_, err = NewClient("http://localhost:5000", "videos", time.Second, nil)
	require.Error(t, err)
}

func TestLoginAndProfile(t *testing.T) {
	t.Parallel()

	srv := newBackend(t)
	client, err := NewClient(srv.URL, srv.URL, time.Second, nil)
	require.NoError(t, err)

	ctx := context.Background()
	token, err := client.Login(ctx, "ana@example.com", "secret-1")
	require.NoError(t, err)
	require.Equal(t, "tok-123", token)

	profile, err := client.Profile(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "u-1", profile.ID)
	require.Equal(t, []string{"student"}, profile.Roles)
}

func TestLoginFailureCarriesBody(t *testing.T) {
	t.Parallel()

	srv := newBackend(t)
	client, err := NewClient(srv.URL, "", time.Second, nil)
	require.NoError(t, err)

	_, err = client.Login(context.Background(), "ana@example.com", "wrong")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status=401")
	require.Contains(t, err.Error(), "Incorrect user or password")
}

func TestFindAndDeleteVideos(t *testing.T) {
	t.Parallel()

	srv := newBackend(t)
	client, err := NewClient(srv.URL, srv.URL, time.Second, nil)
	require.NoError(t, err)

	ctx := context.Background()
	found, err := client.FindVideosByTitle(ctx, "a")
	require.NoError(t, err)
	require.Len(t, found, 2)

	require.NoError(t, client.DeleteVideo(ctx, "v1"))
	require.Error(t, client.DeleteVideo(ctx, "missing"))
}

func TestVideosRequireBase(t *testing.T) {
	t.Parallel()

	client, err := NewClient("http://localhost:5000", "", time.Second, nil)
	require.NoError(t, err)
	_, err = client.ListVideos(context.Background())
	require.Error(t, err)
}

func TestDecodeTokenBody(t *testing.T) {
	t.Parallel()

	token, err := decodeTokenBody([]byte(`{"access_token":"abc"}`))
	require.NoError(t, err)
	require.Equal(t, "abc", token)

	token, err = decodeTokenBody([]byte(`{"data":[{"token":"xyz"}]}`))
	require.NoError(t, err)
	require.Equal(t, "xyz", token)

	_, err = decodeTokenBody([]byte(`{"message":"nope"}`))
	require.Error(t, err)

	_, err = decodeTokenBody([]byte(`{"access_token":"  "}`))
	require.Error(t, err)
}

func TestTruncateText(t *testing.T) {
	t.Parallel()

	require.Equal(t, "abc", TruncateText("abc", 5))
	require.Equal(t, "abcde...", TruncateText("abcdefgh", 5))
	require.True(t, strings.HasSuffix(TruncateText(strings.Repeat("x", 100), 80), "..."))
}
