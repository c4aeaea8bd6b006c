package posts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/2beens/inkwell/internal/auth"
	"github.com/2beens/inkwell/internal/taxonomy"
	"github.com/2beens/inkwell/internal/telemetry/metrics"
	"github.com/2beens/inkwell/pkg"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type newPostRequest struct {
	Title         string `json:"title" validate:"required,min=1,max=100"`
	Subtitle      string `json:"subtitle" validate:"max=200"`
	Content       string `json:"content" validate:"required"`
	CoverImageURL string `json:"cover_image_url" validate:"max=300"`
	Excerpt       string `json:"excerpt" validate:"max=300"`
	Published     bool   `json:"published"`
	CategoryID    *int   `json:"category_id"`
	TagIDs        []int  `json:"tag_ids"`
}

type clapRequest struct {
	Count int `json:"count" validate:"omitempty,min=1,max=50"`
}

type postsRepo interface {
	Add(ctx context.Context, post *Post, tagIDs []int) error
	Update(ctx context.Context, id int, update PostUpdate, tagIDs []int) error
	Delete(ctx context.Context, id int) error
	Get(ctx context.Context, id int) (*Post, error)
	GetWithTags(ctx context.Context, id int) (*Post, error)
	All(ctx context.Context) ([]*Post, error)
	ByAuthor(ctx context.Context, authorID int) ([]*Post, error)
	Search(ctx context.Context, query string) ([]*Post, error)
	Featured(ctx context.Context) ([]*Post, error)
	Feature(ctx context.Context, id int, featured bool) error
	Clap(ctx context.Context, userID, postID, count int) (*Clap, error)
	Tags(ctx context.Context, postID int) ([]*taxonomy.Tag, error)
	ClapCount(ctx context.Context, postID int) (int, error)
}

type Handler struct {
	repo           postsRepo
	featured       *featuredCache
	validate       *validator.Validate
	metricsManager *metrics.Manager
}

func NewHandler(repo postsRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:           repo,
		featured:       newFeaturedCache(),
		validate:       validator.New(),
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/api/posts", handler.handleAll).Methods("GET").Name("all-posts")
	router.HandleFunc("/api/posts", handler.handleNewPost).Methods("POST", "OPTIONS").Name("new-post")
	router.HandleFunc("/api/posts/featured", handler.handleFeatured).Methods("GET").Name("featured-posts")
	router.HandleFunc("/api/posts/search", handler.handleSearch).Methods("GET").Name("search-posts")
	router.HandleFunc("/api/posts/{id}", handler.handleGetPost).Methods("GET").Name("get-post")
	router.HandleFunc("/api/posts/{id}", handler.handleUpdatePost).Methods("PUT", "OPTIONS").Name("update-post")
	router.HandleFunc("/api/posts/{id}", handler.handleDeletePost).Methods("DELETE").Name("delete-post")
	router.HandleFunc("/api/posts/{id}/clap", handler.handleClap).Methods("POST", "OPTIONS").Name("clap-post")
	router.HandleFunc("/api/posts/{id}/feature", handler.handleFeature).Methods("POST", "OPTIONS").Name("feature-post")
	router.HandleFunc("/api/posts/{id}/feature", handler.handleUnfeature).Methods("DELETE").Name("unfeature-post")
	router.HandleFunc("/api/users/{id}/posts", handler.handleByAuthor).Methods("GET").Name("posts-by-author")
}

func (handler *Handler) handleAll(w http.ResponseWriter, r *http.Request) {
	allPosts, err := handler.repo.All(r.Context())
	if err != nil {
		log.Errorf("get all posts: %s", err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	handler.writeJSON(w, allPosts, http.StatusOK)
}

func (handler *Handler) handleFeatured(w http.ResponseWriter, r *http.Request) {
	if cached, ok := handler.featured.Get(); ok {
		handler.writeJSON(w, cached, http.StatusOK)
		return
	}

	featuredPosts, err := handler.repo.Featured(r.Context())
	if err != nil {
		log.Errorf("get featured posts: %s", err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.featured.Set(featuredPosts)
	handler.writeJSON(w, featuredPosts, http.StatusOK)
}

func (handler *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	foundPosts, err := handler.repo.Search(r.Context(), query)
	if err != nil {
		log.Errorf("search posts [%s]: %s", query, err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	handler.writeJSON(w, foundPosts, http.StatusOK)
}

func (handler *Handler) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := handler.idFromRequest(w, r)
	if !ok {
		return
	}

	post, err := handler.repo.GetWithTags(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			pkg.WriteJSONError(w, "post not found", http.StatusNotFound)
			return
		}
		log.Errorf("get post %d: %s", id, err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.writeJSON(w, post, http.StatusOK)
}

func (handler *Handler) handleByAuthor(w http.ResponseWriter, r *http.Request) {
	id, ok := handler.idFromRequest(w, r)
	if !ok {
		return
	}

	authorPosts, err := handler.repo.ByAuthor(r.Context(), id)
	if err != nil {
		log.Errorf("get posts of author %d: %s", id, err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.writeJSON(w, authorPosts, http.StatusOK)
}

func (handler *Handler) handleNewPost(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		pkg.WriteJSONError(w, "not logged in", http.StatusUnauthorized)
		return
	}

	req, ok := handler.decodePostRequest(w, r)
	if !ok {
		return
	}

	post := &Post{
		Title:         req.Title,
		Subtitle:      req.Subtitle,
		Content:       req.Content,
		CoverImageURL: req.CoverImageURL,
		Excerpt:       req.Excerpt,
		ReadingTime:   DeriveReadingTime(req.Content),
		Published:     req.Published,
		CategoryID:    req.CategoryID,
		AuthorID:      userID,
	}
	if post.Excerpt == "" {
		post.Excerpt = DeriveExcerpt(req.Content)
	}

	if err := handler.repo.Add(r.Context(), post, req.TagIDs); err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			pkg.WriteJSONError(w, "unknown category or tag", http.StatusBadRequest)
			return
		}
		log.Errorf("add post: %s", err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterPosts.Inc()
	handler.featured.Invalidate()
	log.Tracef("new post %d: [%s] added", post.ID, post.Title)

	handler.writeJSON(w, post, http.StatusCreated)
}

func (handler *Handler) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	id, _, ok := handler.ownedPost(w, r)
	if !ok {
		return
	}

	req, ok := handler.decodePostRequest(w, r)
	if !ok {
		return
	}

	update := PostUpdate{
		Title:         req.Title,
		Subtitle:      req.Subtitle,
		Content:       req.Content,
		CoverImageURL: req.CoverImageURL,
		Excerpt:       req.Excerpt,
		ReadingTime:   DeriveReadingTime(req.Content),
		Published:     req.Published,
		CategoryID:    req.CategoryID,
	}
	if update.Excerpt == "" {
		update.Excerpt = DeriveExcerpt(req.Content)
	}

	if err := handler.repo.Update(r.Context(), id, update, req.TagIDs); err != nil {
		if errors.Is(err, ErrPostNotFound) {
			pkg.WriteJSONError(w, "post not found", http.StatusNotFound)
			return
		}
		if pkg.IsForeignKeyViolationError(err) {
			pkg.WriteJSONError(w, "unknown category or tag", http.StatusBadRequest)
			return
		}
		log.Errorf("update post %d: %s", id, err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.featured.Invalidate()

	updated, err := handler.repo.GetWithTags(r.Context(), id)
	if err != nil {
		log.Errorf("update post %d, get updated: %s", id, err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.writeJSON(w, updated, http.StatusOK)
}

func (handler *Handler) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, _, ok := handler.ownedPost(w, r)
	if !ok {
		return
	}

	if err := handler.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrPostNotFound) {
			pkg.WriteJSONError(w, "post not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete post %d: %s", id, err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.featured.Invalidate()
	log.Tracef("post %d deleted", id)

	w.WriteHeader(http.StatusNoContent)
}

func (handler *Handler) handleClap(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		pkg.WriteJSONError(w, "not logged in", http.StatusUnauthorized)
		return
	}

	id, ok := handler.idFromRequest(w, r)
	if !ok {
		return
	}

	var req clapRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Errorf("clap post %d, unmarshal json params: %s", id, err)
			pkg.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}
	if req.Count == 0 {
		req.Count = 1
	}
	if err := handler.validate.Struct(req); err != nil {
		pkg.WriteJSONError(w, "invalid clap count", http.StatusBadRequest)
		return
	}

	clap, err := handler.repo.Clap(r.Context(), userID, id, req.Count)
	if err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			pkg.WriteJSONError(w, "post not found", http.StatusNotFound)
			return
		}
		log.Errorf("clap post %d: %s", id, err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterClaps.Inc()

	handler.writeJSON(w, clap, http.StatusOK)
}

func (handler *Handler) handleFeature(w http.ResponseWriter, r *http.Request) {
	handler.setFeatured(w, r, true)
}

func (handler *Handler) handleUnfeature(w http.ResponseWriter, r *http.Request) {
	handler.setFeatured(w, r, false)
}

func (handler *Handler) setFeatured(w http.ResponseWriter, r *http.Request, featured bool) {
	id, _, ok := handler.ownedPost(w, r)
	if !ok {
		return
	}

	if err := handler.repo.Feature(r.Context(), id, featured); err != nil {
		if errors.Is(err, ErrPostNotFound) {
			pkg.WriteJSONError(w, "post not found", http.StatusNotFound)
			return
		}
		log.Errorf("feature post %d: %s", id, err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.featured.Invalidate()
	pkg.WriteJSONResponseOK(w, `{"message":"ok"}`)
}

// ownedPost resolves the post from the path and checks the logged in user is
// its author. Writes the error response itself when not.
func (handler *Handler) ownedPost(w http.ResponseWriter, r *http.Request) (int, *Post, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		pkg.WriteJSONError(w, "not logged in", http.StatusUnauthorized)
		return 0, nil, false
	}

	id, ok := handler.idFromRequest(w, r)
	if !ok {
		return 0, nil, false
	}

	post, err := handler.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			pkg.WriteJSONError(w, "post not found", http.StatusNotFound)
			return 0, nil, false
		}
		log.Errorf("get post %d: %s", id, err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return 0, nil, false
	}

	if post.AuthorID != userID {
		pkg.WriteJSONError(w, "not your post", http.StatusForbidden)
		return 0, nil, false
	}

	return id, post, true
}

func (handler *Handler) decodePostRequest(w http.ResponseWriter, r *http.Request) (newPostRequest, bool) {
	var req newPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("post request, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return req, false
	}
	if err := handler.validate.Struct(req); err != nil {
		log.Tracef("post request, validation: %s", err)
		pkg.WriteJSONError(w, "invalid post fields, title 1-100 chars and content required", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func (handler *Handler) idFromRequest(w http.ResponseWriter, r *http.Request) (int, bool) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.Atoi(idStr)
	if err != nil {
		pkg.WriteJSONError(w, "invalid post id", http.StatusBadRequest)
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
