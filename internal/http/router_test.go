package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/scormbridge/internal/bridge"
	"github.com/yungbote/scormbridge/internal/db/dbtest"
	httpH "github.com/yungbote/scormbridge/internal/http/handlers"
	httpMW "github.com/yungbote/scormbridge/internal/http/middleware"
	"github.com/yungbote/scormbridge/internal/platform/logger"
	"github.com/yungbote/scormbridge/internal/realtime"
	"github.com/yungbote/scormbridge/internal/realtime/bus"
	"github.com/yungbote/scormbridge/internal/repos"
	"github.com/yungbote/scormbridge/internal/scorm/launch"
	"github.com/yungbote/scormbridge/internal/scorm/resource"
	"github.com/yungbote/scormbridge/internal/services"
)

const manifest12 = `<?xml version="1.0"?>
<manifest identifier="m" xmlns="http://www.imsproject.org/xsd/imscp_rootv1p1p2">
  <metadata><schemaversion>1.2</schemaversion></metadata>
  <organizations default="o"><organization identifier="o"><item identifier="i" identifierref="r"/></organization></organizations>
  <resources><resource identifier="r" type="webcontent" href="course/start.html"/></resources>
</manifest>`

type harness struct {
	engine   *gin.Engine
	sessions *services.SessionService
	repo     repos.AttemptRepo
	hub      *realtime.Hub
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()

	repo := repos.NewAttemptRepo(dbtest.Open(t), log)
	launcher := launch.New(log, resource.NewLocator(log))
	sessions := services.NewSessionService(log, repo, launcher, services.NewTokenIssuer("test-secret", time.Hour), nil)

	hub := realtime.NewHub(log)
	eventBus := bus.NewLocalBus()
	require.NoError(t, eventBus.StartForwarder(context.Background(), hub.Broadcast))
	t.Cleanup(func() { _ = eventBus.Close() })

	urls := httpH.URLBuilder{}
	engine := NewRouter(RouterConfig{
		Log:               log,
		SessionMiddleware: httpMW.NewSessionMiddleware(log, sessions),
		HealthHandler:     httpH.NewHealthHandler(),
		LaunchHandler:     httpH.NewLaunchHandler(log, launcher, nil),
		SessionHandler:    httpH.NewSessionHandler(log, sessions, urls),
		BridgeHandler:     httpH.NewBridgeHandler(log, bridge.NewDispatcher(log), eventBus, urls),
		ContentHandler:    httpH.NewContentHandler(log, urls),
		RealtimeHandler:   httpH.NewRealtimeHandler(log, hub),
	})
	return &harness{engine: engine, sessions: sessions, repo: repo, hub: hub}
}

func writePackage(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return root
}

func (h *harness) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

type startedSession struct {
	SessionID  string `json:"session_id"`
	Token      string `json:"token"`
	ContentURL string `json:"content_url"`
	ScriptURL  string `json:"script_url"`
	Launch     struct {
		BasePath string `json:"base_path"`
		FileName string `json:"file_name"`
		URI      string `json:"uri"`
		Strategy string `json:"strategy"`
		Dialect  string `json:"dialect"`
	} `json:"launch"`
}

func (h *harness) start(t *testing.T, root string) startedSession {
	t.Helper()
	rec := h.do(t, nethttp.MethodPost, "/api/sessions", map[string]string{"learner_id": "learner-1", "learner_name": "Doe, Jane", "root": root})
	require.Equal(t, nethttp.StatusCreated, rec.Code, rec.Body.String())
	var out startedSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, nethttp.MethodGet, "/healthcheck", nil)
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	h.do(t, nethttp.MethodGet, "/healthcheck", nil)
	rec = h.do(t, nethttp.MethodGet, "/metrics", nil)
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scorm_http_requests_total")
}

func TestLaunchEndpoint(t *testing.T) {
	h := newHarness(t)
	root := writePackage(t, map[string]string{"imsmanifest.xml": manifest12})

	rec := h.do(t, nethttp.MethodPost, "/api/launch", map[string]string{"root": root + "/"})
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, root, out["base_path"])
	assert.Equal(t, "course/start.html", out["file_name"])
	assert.Equal(t, root+"/course/start.html", out["uri"])
	assert.Equal(t, "manifest", out["strategy"])
	assert.Equal(t, "SCORM 1.2", out["dialect"])

	fallback := writePackage(t, map[string]string{"story.html": "<html></html>"})
	rec = h.do(t, nethttp.MethodPost, "/api/launch", map[string]string{"root": fallback})
	require.Equal(t, nethttp.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "story.html", out["file_name"])
	assert.Equal(t, "convention", out["strategy"])
}

func TestLaunchEndpointErrors(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, nethttp.MethodPost, "/api/launch", map[string]string{"root": t.TempDir()})
	assert.Equal(t, nethttp.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"no_entry_point"`)

	rec = h.do(t, nethttp.MethodPost, "/api/launch", "{not json")
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)

	rec = h.do(t, nethttp.MethodPost, "/api/launch", map[string]string{"root": ""})
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
}

func TestSessionBridgeOverHTTP(t *testing.T) {
	h := newHarness(t)
	root := writePackage(t, map[string]string{"imsmanifest.xml": manifest12})
	sess := h.start(t, root)
	assert.Equal(t, "course/start.html", sess.Launch.FileName)
	assert.Contains(t, sess.ContentURL, "/content/"+sess.SessionID+"/course/start.html?token=")

	base := "/api/sessions/" + sess.SessionID
	tok := "?token=" + sess.Token

	rec := h.do(t, nethttp.MethodGet, base+"/bridge.js"+tok, nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "javascript")
	assert.Contains(t, rec.Body.String(), `"cmi.core.student_id":"learner-1"`)
	assert.Contains(t, rec.Body.String(), base+"/messages")

	rec = h.do(t, nethttp.MethodGet, base+"/bridge.js"+tok+"&transport=ws", nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ws://")

	rec = h.do(t, nethttp.MethodGet, base+"/bridge.js"+tok+"&targets=bogus", nil)
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)

	post := func(msg bridge.Message) bridge.Reply {
		t.Helper()
		rec := h.do(t, nethttp.MethodPost, base+"/messages"+tok, msg)
		require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
		var reply bridge.Reply
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
		return reply
	}

	assert.Equal(t, "true", post(bridge.Message{Action: bridge.ActionInitialize}).Result)
	assert.Equal(t, "true", post(bridge.Message{Action: bridge.ActionSetValue, Parameter: "cmi.core.lesson_status", Value: "completed"}).Result)
	assert.Equal(t, "completed", post(bridge.Message{Action: bridge.ActionGetValue, Parameter: "cmi.core.lesson_status"}).Result)
	assert.Equal(t, "0", post(bridge.Message{Action: bridge.ActionGetLastError}).Result)
	assert.Equal(t, "true", post(bridge.Message{Action: bridge.ActionFinish}).Result)

	rec = h.do(t, nethttp.MethodPost, base+"/messages"+tok, map[string]string{"action": "LMSInitialize"})
	assert.Equal(t, nethttp.StatusNotFound, rec.Code, "finished sessions leave the registry")
	assert.Equal(t, 0, h.sessions.Count())
}

func TestBridgeRejectsBadRequests(t *testing.T) {
	h := newHarness(t)
	root := writePackage(t, map[string]string{"index.html": "<html><head></head></html>"})
	sess := h.start(t, root)
	base := "/api/sessions/" + sess.SessionID

	rec := h.do(t, nethttp.MethodPost, base+"/messages", bridge.Message{Action: bridge.ActionInitialize})
	assert.Equal(t, nethttp.StatusUnauthorized, rec.Code)

	rec = h.do(t, nethttp.MethodPost, base+"/messages?token="+sess.Token, "[]")
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"invalid_message"`)

	rec = h.do(t, nethttp.MethodPost, base+"/messages?token="+sess.Token, map[string]string{"action": "LMSExplode"})
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"result":"false"`)
}

func TestContentInjectsBridgeScript(t *testing.T) {
	h := newHarness(t)
	root := writePackage(t, map[string]string{
		"index.html": `<!DOCTYPE html><html><head><script src="scorm.js"></script></head><body>hi</body></html>`,
		"style.css":  "body{}",
	})
	sess := h.start(t, root)
	prefix := "/content/" + sess.SessionID

	rec := h.do(t, nethttp.MethodGet, prefix+"/index.html?token="+sess.Token, nil)
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	bridgeAt := strings.Index(body, "/api/sessions/"+sess.SessionID+"/bridge.js")
	contentAt := strings.Index(body, `src="scorm.js"`)
	require.Positive(t, bridgeAt)
	assert.Less(t, bridgeAt, contentAt, "bridge script must load before content scripts")
	assert.Contains(t, body, "<body>hi</body>")
	assert.Contains(t, rec.Header().Get("Set-Cookie"), httpMW.TokenCookie+"=")

	req := httptest.NewRequest(nethttp.MethodGet, prefix+"/style.css", nil)
	req.AddCookie(&nethttp.Cookie{Name: httpMW.TokenCookie, Value: sess.Token})
	rec = httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, "body{}", rec.Body.String())

	rec = h.do(t, nethttp.MethodGet, prefix+"/sub/../../secret.txt?token="+sess.Token, nil)
	assert.Equal(t, nethttp.StatusForbidden, rec.Code)

	rec = h.do(t, nethttp.MethodGet, prefix+"/missing.html?token="+sess.Token, nil)
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
}

func TestContentEntryKeepsManifestQuery(t *testing.T) {
	h := newHarness(t)
	root := writePackage(t, map[string]string{
		"imsmanifest.xml": `<manifest><resources><resource href="player.html?lang=en#intro"/></resources></manifest>`,
		"player.html":     `<html><head></head><body>player</body></html>`,
	})
	sess := h.start(t, root)
	assert.Equal(t, "player.html?lang=en#intro", sess.Launch.FileName)
	prefix := "/content/" + sess.SessionID
	assert.Equal(t, "http://example.com"+prefix+"/player.html?lang=en&token="+sess.Token+"#intro", sess.ContentURL)

	rec := h.do(t, nethttp.MethodGet, prefix+"/?token="+sess.Token, nil)
	require.Equal(t, nethttp.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, "http://example.com"+prefix+"/player.html?lang=en&token="+sess.Token+"#intro", rec.Header().Get("Location"))

	rec = h.do(t, nethttp.MethodGet, prefix+"/player.html?lang=en&token="+sess.Token, nil)
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "/api/sessions/"+sess.SessionID+"/bridge.js")
	assert.Contains(t, rec.Body.String(), "<body>player</body>")
}

func TestBridgeOverWebSocketAndEvents(t *testing.T) {
	h := newHarness(t)
	root := writePackage(t, map[string]string{"index.html": "<html><head></head></html>"})
	sess := h.start(t, root)

	srv := httptest.NewServer(h.engine)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	evReq, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, srv.URL+"/api/sessions/"+sess.SessionID+"/events?token="+sess.Token, nil)
	require.NoError(t, err)
	evResp, err := nethttp.DefaultClient.Do(evReq)
	require.NoError(t, err)
	defer evResp.Body.Close()
	require.Equal(t, nethttp.StatusOK, evResp.StatusCode)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + sess.SessionID + "/ws?token=" + sess.Token
	poster, err := bridge.DialWS(ctx, wsURL, nil)
	require.NoError(t, err)
	defer poster.Close()

	content := bridge.NewContent(logger.NewNop(), nil, poster)
	defer content.Close()
	assert.Equal(t, "true", content.LMSInitialize(ctx))
	assert.Equal(t, "true", content.LMSSetValue(ctx, "cmi.core.score.raw", "88"))
	assert.Equal(t, "true", content.LMSCommit(ctx))
	require.NoError(t, content.Flush(ctx))

	live, ok := h.sessions.Get(mustUUID(t, sess.SessionID))
	require.True(t, ok)
	assert.Equal(t, "88", live.API.Snapshot()["cmi.core.score.raw"])

	reader := bufio.NewReader(evResp.Body)
	var actions []string
	for len(actions) < 3 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev realtime.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		assert.Equal(t, sess.SessionID, ev.SessionID)
		actions = append(actions, string(ev.Message.Action))
	}
	assert.Equal(t, []string{"LMSInitialize", "LMSSetValue", "LMSCommit"}, actions)

	_, _, err = websocket.DefaultDialer.DialContext(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/api/sessions/"+sess.SessionID+"/ws", nil)
	assert.Error(t, err, "websocket requires a token")
}
