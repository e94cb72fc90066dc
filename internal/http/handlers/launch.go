package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/scormbridge/internal/http/response"
	"github.com/yungbote/scormbridge/internal/platform/logger"
	"github.com/yungbote/scormbridge/internal/scorm/launch"
	"github.com/yungbote/scormbridge/internal/services"
)

type LaunchHandler struct {
	log      *logger.Logger
	launcher services.Launcher
	roots    services.RootPolicy
}

func NewLaunchHandler(log *logger.Logger, launcher services.Launcher, roots services.RootPolicy) *LaunchHandler {
	return &LaunchHandler{log: log.With("handler", "LaunchHandler"), launcher: launcher, roots: roots}
}

type launchRequest struct {
	Root string `json:"root"`
}

type launchResponse struct {
	launch.Descriptor
	URI      string          `json:"uri"`
	Strategy launch.Strategy `json:"strategy"`
	Manifest string          `json:"manifest,omitempty"`
	Dialect  string          `json:"dialect,omitempty"`
}

func newLaunchResponse(res launch.Resolution) launchResponse {
	out := launchResponse{
		Descriptor: res.Descriptor,
		URI:        res.URI(),
		Strategy:   res.Strategy,
		Manifest:   res.Manifest,
	}
	if res.Strategy == launch.StrategyManifest {
		out.Dialect = string(res.Dialect)
	}
	return out
}

// POST /api/launch
func (h *LaunchHandler) Launch(c *gin.Context) {
	var req launchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(req.Root) == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errMissingRoot)
		return
	}
	if !h.roots.Allows(req.Root) {
		response.RespondAPIError(c, classify(services.ErrRootNotAllowed))
		return
	}
	res, err := h.launcher.Resolve(c.Request.Context(), req.Root)
	if err != nil {
		h.log.Warn("Launch failed", "root", req.Root, "error", err)
		response.RespondAPIError(c, classify(err))
		return
	}
	response.RespondOK(c, newLaunchResponse(res))
}
