package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ad-studio/internal/pipeline"
	"ad-studio/internal/pkg/errs"
	"ad-studio/internal/review"
	"ad-studio/internal/storage"
)

type SessionHandler struct {
	studio *pipeline.Studio
}

func NewSessionHandler(studio *pipeline.Studio) *SessionHandler {
	return &SessionHandler{studio: studio}
}

type createSessionRequest struct {
	Idea             string `json:"idea" binding:"required"`
	AspectRatio      string `json:"aspect_ratio"`
	PersonGeneration string `json:"person_generation"`
	NegativePrompt   string `json:"negative_prompt"`
	// ReferenceImage is a gs:// locator of an uploaded product image,
	// typically obtained from POST /api/uploads.
	ReferenceImage string `json:"reference_image"`
}

type sceneView struct {
	SceneIndex    int                    `json:"scene_index"`
	Status        review.Status          `json:"status"`
	PromptText    string                 `json:"prompt_text"`
	Edited        bool                   `json:"is_edited"`
	Candidates    []review.CandidateClip `json:"candidates"`
	SelectedIndex int                    `json:"selected_index"`
	ConfirmedClip string                 `json:"confirmed_clip,omitempty"`
	LastError     string                 `json:"last_error,omitempty"`
}

type sessionView struct {
	ID     string      `json:"id"`
	Idea   string      `json:"idea"`
	Ready  bool        `json:"ready"`
	Scenes []sceneView `json:"scenes"`
}

func viewOf(sess *review.Session) sessionView {
	scenes := sess.Scenes()
	views := make([]sceneView, 0, len(scenes))
	for _, sc := range scenes {
		v := sceneView{
			SceneIndex:    sc.SceneIndex,
			Status:        sc.Status(),
			PromptText:    sc.PromptText,
			Edited:        sc.Edited(),
			Candidates:    sc.Candidates,
			SelectedIndex: sc.SelectedIndex,
			LastError:     sc.LastError,
		}
		if !sc.ConfirmedLocator.IsZero() {
			v.ConfirmedClip = sc.ConfirmedLocator.String()
		}
		views = append(views, v)
	}
	return sessionView{ID: sess.ID, Idea: sess.Idea, Ready: sess.Ready(), Scenes: views}
}

// POST /api/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	settings := review.Settings{
		AspectRatio:      req.AspectRatio,
		PersonGeneration: req.PersonGeneration,
		NegativePrompt:   req.NegativePrompt,
	}
	if req.ReferenceImage != "" {
		loc, err := storage.ParseLocator(req.ReferenceImage)
		if err != nil {
			RespondMapped(c, fmt.Errorf("%w: reference_image: %v", errs.ErrInvalidArgument, err))
			return
		}
		settings.ReferenceImage = loc
	}
	sess, err := h.studio.CreateSession(c.Request.Context(), req.Idea, settings)
	if err != nil {
		RespondMapped(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewOf(sess))
}

// GET /api/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	sess, err := h.studio.Session(c.Param("id"))
	if err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, viewOf(sess))
}

// DELETE /api/sessions/:id
func (h *SessionHandler) CloseSession(c *gin.Context) {
	if _, err := h.studio.Session(c.Param("id")); err != nil {
		RespondMapped(c, err)
		return
	}
	h.studio.CloseSession(c.Param("id"))
	c.Status(http.StatusNoContent)
}

type editPromptRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// PUT /api/sessions/:id/scenes/:scene/prompt
func (h *SessionHandler) EditPrompt(c *gin.Context) {
	sess, scene, ok := h.sessionScene(c)
	if !ok {
		return
	}
	var req editPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := sess.EditPrompt(scene, req.Prompt); err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, viewOf(sess))
}

type selectCandidateRequest struct {
	Candidate *int `json:"candidate" binding:"required"`
}

// PUT /api/sessions/:id/scenes/:scene/selection
func (h *SessionHandler) SelectCandidate(c *gin.Context) {
	sess, scene, ok := h.sessionScene(c)
	if !ok {
		return
	}
	var req selectCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := sess.SelectCandidate(scene, *req.Candidate); err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, viewOf(sess))
}

// POST /api/sessions/:id/scenes/:scene/confirm
func (h *SessionHandler) Confirm(c *gin.Context) {
	sess, scene, ok := h.sessionScene(c)
	if !ok {
		return
	}
	if err := sess.Confirm(scene); err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, viewOf(sess))
}

// DELETE /api/sessions/:id/scenes/:scene/confirm
func (h *SessionHandler) Unconfirm(c *gin.Context) {
	sess, scene, ok := h.sessionScene(c)
	if !ok {
		return
	}
	if err := sess.Unconfirm(scene); err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, viewOf(sess))
}

// POST /api/sessions/:id/scenes/:scene/regenerate
func (h *SessionHandler) Regenerate(c *gin.Context) {
	sess, scene, ok := h.sessionScene(c)
	if !ok {
		return
	}
	if err := sess.Regenerate(c.Request.Context(), scene); err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, viewOf(sess))
}

// POST /api/sessions/:id/finalize
func (h *SessionHandler) Finalize(c *gin.Context) {
	res, err := h.studio.Finalize(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, res)
}

func (h *SessionHandler) sessionScene(c *gin.Context) (*review.Session, int, bool) {
	sess, err := h.studio.Session(c.Param("id"))
	if err != nil {
		RespondMapped(c, err)
		return nil, 0, false
	}
	scene, err := strconv.Atoi(c.Param("scene"))
	if err != nil {
		RespondMapped(c, fmt.Errorf("%w: scene index %q", errs.ErrInvalidArgument, c.Param("scene")))
		return nil, 0, false
	}
	return sess, scene, true
}
