package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/itchan-dev/schan/internal/config"
	"github.com/itchan-dev/schan/internal/logger"
	"github.com/itchan-dev/schan/internal/setup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var captchaPattern = regexp.MustCompile(`class="captcha-code">([A-Za-z0-9]+)<`)

func newServer(t *testing.T, mutate func(cfg *config.Config)) (*httptest.Server, *http.Client) {
	t.Helper()
	cfg := config.Default()
	cfg.Storage = config.Storage{Driver: "memory"}
	cfg.Media.UploadsDir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	deps, err := setup.SetupDependencies(ctx, cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(New(deps))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		_ = deps.Close()
	})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return srv, client
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func postThread(t *testing.T, client *http.Client, target string, fields map[string]string) *http.Response {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())

	resp, err := client.Post(target, writer.FormDataContentType(), body)
	require.NoError(t, err)
	return resp
}

func TestAdminRouteWithoutSecret(t *testing.T) {
	srv, client := newServer(t, nil)

	resp, err := client.Post(srv.URL+"/admin/delete-post/1", "application/json", nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Server configuration error"}`, readBody(t, resp))
}

func TestModRouteRequiresLogin(t *testing.T) {
	srv, client := newServer(t, func(cfg *config.Config) {
		cfg.Private.ModPassword = "modsecret"
	})

	resp, err := client.Post(srv.URL+"/mod/ban-user/abc", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	readBody(t, resp)

	resp, err = client.Post(srv.URL+"/login/mod", "application/json", strings.NewReader(`{"password":"modsecret"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	readBody(t, resp)

	resp, err = client.Post(srv.URL+"/mod/ban-user/abc", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":true}`, readBody(t, resp))

	resp, err = client.Post(srv.URL+"/logout", "application/json", nil)
	require.NoError(t, err)
	readBody(t, resp)

	resp, err = client.Post(srv.URL+"/mod/ban-user/abc", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	readBody(t, resp)
}

func TestPostingFlow(t *testing.T) {
	srv, client := newServer(t, nil)

	resp, err := client.Get(srv.URL + "/board/b")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	page := readBody(t, resp)

	match := captchaPattern.FindStringSubmatch(page)
	require.Len(t, match, 2, "board page shows a captcha")

	resp = postThread(t, client, srv.URL+"/board/b/thread", map[string]string{
		"subject": "hello",
		"content": ">implying\nfirst post",
		"captcha": strings.ToLower(match[1]),
	})
	readBody(t, resp)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	location := resp.Header.Get("Location")
	assert.Regexp(t, `^/board/b/thread/\d+$`, location)

	resp, err = client.Get(srv.URL + location)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page = readBody(t, resp)
	assert.Contains(t, page, "Thread created successfully")
	assert.Contains(t, page, `<div class="greentext">&gt;implying</div>`)

	// the captcha was consumed by the first post
	resp = postThread(t, client, srv.URL+"/board/b/thread", map[string]string{"content": "again", "captcha": match[1]})
	readBody(t, resp)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/board/b", resp.Header.Get("Location"))
}

func TestPostToUnknownBoard(t *testing.T) {
	srv, client := newServer(t, nil)

	resp, err := client.Get(srv.URL + "/board/b")
	require.NoError(t, err)
	match := captchaPattern.FindStringSubmatch(readBody(t, resp))
	require.Len(t, match, 2)

	resp = postThread(t, client, srv.URL+"/board/nope/thread", map[string]string{"content": "x", "captcha": match[1]})
	readBody(t, resp)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp, err = client.Get(srv.URL + "/")
	require.NoError(t, err)
	assert.Contains(t, readBody(t, resp), "Board not found")
}

func TestPublicEndpoints(t *testing.T) {
	srv, client := newServer(t, func(cfg *config.Config) {
		cfg.Captcha.EncodedSpecialNames = []string{"U2FucmlvCg=="}
	})

	t.Run("health", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/health")
		require.NoError(t, err)
		assert.JSONEq(t, `{"status":"ok"}`, readBody(t, resp))
	})

	t.Run("special names with cors", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/special-names", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://example.com")
		resp, err := client.Do(req)
		require.NoError(t, err)

		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.JSONEq(t, `{"encodedNames":["U2FucmlvCg=="]}`, readBody(t, resp))
	})

	t.Run("refresh captcha sets a session cookie", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/refresh-captcha")
		require.NoError(t, err)
		var body map[string]string
		require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &body))
		assert.Len(t, body["captchaCode"], 6)

		u, err := url.Parse(srv.URL)
		require.NoError(t, err)
		assert.NotEmpty(t, client.Jar.Cookies(u))
	})

	t.Run("unknown thread page", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/board/b/thread/12345")
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		readBody(t, resp)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		assert.Contains(t, readBody(t, resp), "http_requests_total")
	})
}

// lockedBuffer collects log output written from background goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStartupWarnsOncePerMissingPassword(t *testing.T) {
	out := &lockedBuffer{}
	prev := logger.Log
	logger.Log = logger.New(out, "warn", false)
	t.Cleanup(func() { logger.Log = prev })

	newServer(t, func(cfg *config.Config) {
		cfg.Private.AdminPassword = ""
		cfg.Private.ModPassword = ""
	})

	logs := out.String()
	assert.Equal(t, 1, strings.Count(logs, "admin password not configured"))
	assert.Equal(t, 1, strings.Count(logs, "mod password not configured"))
	assert.NotContains(t, logs, "_PASSWORD is not set")
}
