package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gwa2100/dndnotus/internal/auth"
	dom "github.com/gwa2100/dndnotus/internal/domain"
	"github.com/gwa2100/dndnotus/internal/dto"
	"github.com/gwa2100/dndnotus/internal/service"

	"github.com/gin-gonic/gin"
)

// NotesHandler serves the home listing and all note mutations.
type NotesHandler struct {
	noteSvc *service.NoteService
	userSvc *service.UserService
}

// NewNotesHandler returns a new NotesHandler.
func NewNotesHandler(noteSvc *service.NoteService, userSvc *service.UserService) *NotesHandler {
	return &NotesHandler{noteSvc: noteSvc, userSvc: userSvc}
}

// Home renders the note listing: every user's notes for a DM, only the
// caller's otherwise.
func (h *NotesHandler) Home(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	groups, err := h.noteSvc.ListForUser(c.Request.Context(), user)
	if err != nil {
		renderError(c, http.StatusInternalServerError, "Failed to load notes.")
		return
	}
	c.HTML(http.StatusOK, "home.html", gin.H{
		"CurrentUser": user,
		"UsersNotes":  groups,
	})
}

// NewNoteForm renders the note creation page.
func (h *NotesHandler) NewNoteForm(c *gin.Context) {
	c.HTML(http.StatusOK, "new_note.html", gin.H{})
}

// NewNote creates a note owned by the current user.
func (h *NotesHandler) NewNote(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	var form dto.NoteForm
	_ = c.ShouldBind(&form)

	if _, err := h.noteSvc.Create(c.Request.Context(), user.ID, form.Content); err != nil {
		if errors.Is(err, service.ErrEmptyContent) {
			c.HTML(http.StatusOK, "new_note.html", gin.H{"Error": "Note content must not be empty."})
			return
		}
		renderError(c, http.StatusInternalServerError, "Failed to create note.")
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// DMPostForm renders the broadcast page for DMs. Non-DMs are sent home;
// the form is of no use to them.
func (h *NotesHandler) DMPostForm(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	if !user.IsDM() {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.HTML(http.StatusOK, "dm_post.html", gin.H{})
}

// DMPost broadcasts a note to every user. Non-DM POSTs get 403, matching
// the deletion path's authorization signaling.
func (h *NotesHandler) DMPost(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	var form dto.NoteForm
	_ = c.ShouldBind(&form)

	if _, err := h.noteSvc.Broadcast(c.Request.Context(), user, form.Content); err != nil {
		switch {
		case errors.Is(err, service.ErrNotDM):
			renderError(c, http.StatusForbidden, "Only the DM can broadcast notes.")
		case errors.Is(err, service.ErrEmptyContent):
			c.HTML(http.StatusOK, "dm_post.html", gin.H{"Error": "Note content must not be empty."})
		default:
			renderError(c, http.StatusInternalServerError, "Failed to broadcast note.")
		}
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// DeleteNote removes the current user's own non-broadcast note.
func (h *NotesHandler) DeleteNote(c *gin.Context) {
	userID := auth.UserIDFromContext(c)
	noteID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || noteID <= 0 {
		renderError(c, http.StatusNotFound, "No such note.")
		return
	}
	if err := h.noteSvc.Delete(c.Request.Context(), userID, noteID); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			renderError(c, http.StatusNotFound, "No such note.")
		case errors.Is(err, service.ErrForbidden):
			renderError(c, http.StatusForbidden, "You cannot delete this note.")
		default:
			renderError(c, http.StatusInternalServerError, "Failed to delete note.")
		}
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// currentUser loads the user behind the verified session. A session whose
// user no longer exists is treated as unauthenticated.
func (h *NotesHandler) currentUser(c *gin.Context) (dom.User, bool) {
	userID := auth.UserIDFromContext(c)
	user, err := h.userSvc.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return dom.User{}, false
		}
		renderError(c, http.StatusInternalServerError, "Failed to load user.")
		c.Abort()
		return dom.User{}, false
	}
	return user, true
}

// renderError shows the error view; failures stay on HTML like every other
// response.
func renderError(c *gin.Context, status int, message string) {
	c.HTML(status, "error.html", gin.H{
		"Title":   http.StatusText(status),
		"Message": message,
	})
}
