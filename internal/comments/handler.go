package comments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/2beens/inkwell/internal/auth"
	"github.com/2beens/inkwell/internal/telemetry/metrics"
	"github.com/2beens/inkwell/pkg"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type newCommentRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

type commentsRepo interface {
	Add(ctx context.Context, comment *Comment) error
	Get(ctx context.Context, id int) (*Comment, error)
	ListForPost(ctx context.Context, postID int) ([]*Comment, error)
	Delete(ctx context.Context, id int) error
}

type Handler struct {
	repo           commentsRepo
	validate       *validator.Validate
	metricsManager *metrics.Manager
}

func NewHandler(repo commentsRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:           repo,
		validate:       validator.New(),
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/api/posts/{id}/comments", handler.handleListForPost).Methods("GET").Name("post-comments")
	router.HandleFunc("/api/posts/{id}/comments", handler.handleNewComment).Methods("POST", "OPTIONS").Name("new-comment")
	router.HandleFunc("/api/comments/{id}", handler.handleDeleteComment).Methods("DELETE", "OPTIONS").Name("delete-comment")
}

func (handler *Handler) handleListForPost(w http.ResponseWriter, r *http.Request) {
	postID, ok := handler.idFromRequest(w, r)
	if !ok {
		return
	}

	postComments, err := handler.repo.ListForPost(r.Context(), postID)
	if err != nil {
		log.Errorf("get comments of post %d: %s", postID, err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.writeJSON(w, postComments, http.StatusOK)
}

func (handler *Handler) handleNewComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		pkg.WriteJSONError(w, "not logged in", http.StatusUnauthorized)
		return
	}

	postID, ok := handler.idFromRequest(w, r)
	if !ok {
		return
	}

	var req newCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("new comment, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := handler.validate.Struct(req); err != nil {
		pkg.WriteJSONError(w, "comment content required", http.StatusBadRequest)
		return
	}

	comment := &Comment{
		PostID:   postID,
		AuthorID: userID,
		Content:  req.Content,
	}
	if err := handler.repo.Add(r.Context(), comment); err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			pkg.WriteJSONError(w, "post not found", http.StatusNotFound)
			return
		}
		log.Errorf("add comment to post %d: %s", postID, err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterComments.Inc()
	log.Tracef("new comment %d on post %d", comment.ID, postID)

	handler.writeJSON(w, comment, http.StatusCreated)
}

func (handler *Handler) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		pkg.WriteJSONError(w, "not logged in", http.StatusUnauthorized)
		return
	}

	id, ok := handler.idFromRequest(w, r)
	if !ok {
		return
	}

	comment, err := handler.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrCommentNotFound) {
			pkg.WriteJSONError(w, "comment not found", http.StatusNotFound)
			return
		}
		log.Errorf("get comment %d: %s", id, err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if comment.AuthorID != userID {
		pkg.WriteJSONError(w, "not your comment", http.StatusForbidden)
		return
	}

	if err := handler.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrCommentNotFound) {
			pkg.WriteJSONError(w, "comment not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete comment %d: %s", id, err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (handler *Handler) idFromRequest(w http.ResponseWriter, r *http.Request) (int, bool) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.Atoi(idStr)
	if err != nil {
		pkg.WriteJSONError(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (handler *Handler) writeJSON(w http.ResponseWriter, payload any, statusCode int) {
	respJson, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("marshal response: %s", err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, statusCode)
}
