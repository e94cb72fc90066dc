package handlers

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/scormbridge/internal/http/middleware"
	"github.com/yungbote/scormbridge/internal/http/response"
	"github.com/yungbote/scormbridge/internal/platform/logger"
	"github.com/yungbote/scormbridge/internal/scorm/resource"
)

var errOutsideRoot = errors.New("path escapes the package root")

// ContentHandler serves package files for a session. HTML documents get the
// bridge script injected ahead of their own scripts.
type ContentHandler struct {
	log  *logger.Logger
	urls URLBuilder
}

func NewContentHandler(log *logger.Logger, urls URLBuilder) *ContentHandler {
	return &ContentHandler{log: log.With("handler", "ContentHandler"), urls: urls}
}

// GET /content/:id/*path
func (h *ContentHandler) Serve(c *gin.Context) {
	sess := middleware.SessionFrom(c)
	rel := strings.TrimPrefix(c.Param("path"), "/")
	// The entry href may carry its own query or fragment; everything else
	// arrives with the query already split off by the router.
	suffix := forwardQuery(c)
	entry := rel == ""
	if entry {
		rel, suffix = splitRef(sess.Resolution.FileName)
	}

	if c.Query("token") != "" {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(middleware.TokenCookie, sess.Token, int(sess.ExpiresAt.Sub(sess.StartedAt).Seconds()),
			"/content/"+sess.ID.String()+"/", "", c.Request.TLS != nil, true)
	}

	switch resource.KindOf(sess.Root) {
	case resource.KindHTTP:
		// Remote packages stay on their own origin; the shell injects the
		// script URL itself.
		c.Redirect(http.StatusFound, resource.Join(sess.Root, rel)+suffix)
		return
	case resource.KindGCS:
		c.Redirect(http.StatusFound, publicObjectURL(resource.Join(sess.Root, rel))+suffix)
		return
	}

	if entry && suffix != "" {
		c.Redirect(http.StatusFound, h.urls.Content(c, sess.ID, sess.Resolution.FileName, c.Query("token")))
		return
	}

	full, err := containedPath(sess.Root, rel)
	if err != nil {
		response.RespondError(c, http.StatusForbidden, "forbidden_path", err)
		return
	}
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		response.RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("%s not found", rel))
		return
	}

	if !isHTML(full) {
		c.File(full)
		return
	}
	raw, err := os.ReadFile(full)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "read_failed", err)
		return
	}
	out, err := InjectScript(string(raw), h.urls.Script(c, sess.ID, sess.Token))
	if err != nil {
		h.log.Warn("Bridge injection failed; serving document unchanged", "file", rel, "error", err)
		out = string(raw)
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(out))
}

// InjectScript inserts a script tag for src as the first child of <head>, so
// the runtime objects exist before any content script looks for them.
func InjectScript(document, src string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return "", err
	}
	tag := `<script src="` + html.EscapeString(src) + `"></script>`
	head := doc.Find("head").First()
	if head.Length() == 0 {
		return "", errors.New("document has no head")
	}
	head.PrependHtml(tag)
	return goquery.OuterHtml(doc.Selection)
}

// containedPath joins rel under root and refuses anything that would leave it.
func containedPath(root, rel string) (string, error) {
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if seg == ".." {
			return "", errOutsideRoot
		}
	}
	clean := path.Clean("/" + filepath.ToSlash(rel))
	full := filepath.Join(root, filepath.FromSlash(clean))
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	absFull, err := filepath.Abs(full)
	if err != nil {
		return "", err
	}
	within, err := filepath.Rel(absRoot, absFull)
	if err != nil || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return "", errOutsideRoot
	}
	return absFull, nil
}

func isHTML(p string) bool {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".html", ".htm", ".xhtml":
		return true
	}
	return false
}

// splitRef separates a relative reference into its path and the "?query#fragment"
// tail, which is returned unchanged.
func splitRef(ref string) (string, string) {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		return ref[:i], ref[i:]
	}
	return ref, ""
}

// forwardQuery returns the request query without the session token, ready to
// be appended to a redirect target.
func forwardQuery(c *gin.Context) string {
	q := c.Request.URL.Query()
	if len(q) == 0 {
		return ""
	}
	q.Del("token")
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func publicObjectURL(gsPath string) string {
	return "https://storage.googleapis.com/" + strings.TrimPrefix(gsPath, "gs://")
}
