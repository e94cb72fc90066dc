package handlers

import (
	"net/url"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// URLBuilder produces the shell-facing URLs of a session. An empty Base
// derives the origin from the request.
type URLBuilder struct {
	Base string
}

func (b URLBuilder) origin(c *gin.Context) string {
	if b.Base != "" {
		return strings.TrimRight(b.Base, "/")
	}
	if c == nil || c.Request == nil {
		return ""
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if p := strings.TrimSpace(c.GetHeader("X-Forwarded-Proto")); p != "" {
		scheme = p
	}
	return scheme + "://" + c.Request.Host
}

func withToken(u, token string) string {
	if token == "" {
		return u
	}
	return u + "?token=" + url.QueryEscape(token)
}

// Content addresses a package file. A query or fragment on file is kept and
// the token joins the query.
func (b URLBuilder) Content(c *gin.Context, id uuid.UUID, file, token string) string {
	file, fragment, _ := strings.Cut(file, "#")
	file, query, _ := strings.Cut(file, "?")
	u := b.origin(c) + path.Join("/content", id.String(), strings.TrimLeft(file, "/"))
	if token != "" {
		if query != "" {
			query += "&"
		}
		query += "token=" + url.QueryEscape(token)
	}
	if query != "" {
		u += "?" + query
	}
	if fragment != "" {
		u += "#" + fragment
	}
	return u
}

func (b URLBuilder) Script(c *gin.Context, id uuid.UUID, token string) string {
	return withToken(b.origin(c)+"/api/sessions/"+id.String()+"/bridge.js", token)
}

func (b URLBuilder) Messages(c *gin.Context, id uuid.UUID) string {
	return b.origin(c) + "/api/sessions/" + id.String() + "/messages"
}

// Socket is the websocket form of the session's bridge endpoint.
func (b URLBuilder) Socket(c *gin.Context, id uuid.UUID) string {
	o := b.origin(c)
	switch {
	case strings.HasPrefix(o, "https://"):
		o = "wss://" + strings.TrimPrefix(o, "https://")
	case strings.HasPrefix(o, "http://"):
		o = "ws://" + strings.TrimPrefix(o, "http://")
	}
	return o + "/api/sessions/" + id.String() + "/ws"
}
