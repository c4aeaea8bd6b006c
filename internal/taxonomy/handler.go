package taxonomy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/2beens/inkwell/pkg"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type newCategoryRequest struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"max=300"`
}

type newTagRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

type taxonomyRepo interface {
	AddCategory(ctx context.Context, name, description string) (*Category, error)
	GetCategory(ctx context.Context, id int) (*Category, error)
	AllCategories(ctx context.Context) ([]*Category, error)
	AddTag(ctx context.Context, name string) (*Tag, error)
	GetTag(ctx context.Context, id int) (*Tag, error)
	AllTags(ctx context.Context) ([]*Tag, error)
}

type Handler struct {
	repo     taxonomyRepo
	validate *validator.Validate
}

func NewHandler(repo taxonomyRepo) *Handler {
	return &Handler{
		repo:     repo,
		validate: validator.New(),
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/api/categories", handler.handleAllCategories).Methods("GET").Name("all-categories")
	router.HandleFunc("/api/categories", handler.handleNewCategory).Methods("POST", "OPTIONS").Name("new-category")
	router.HandleFunc("/api/tags", handler.handleAllTags).Methods("GET").Name("all-tags")
	router.HandleFunc("/api/tags", handler.handleNewTag).Methods("POST", "OPTIONS").Name("new-tag")
}

func (handler *Handler) handleAllCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := handler.repo.AllCategories(r.Context())
	if err != nil {
		log.Errorf("get all categories: %s", err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	handler.writeJSON(w, categories, http.StatusOK)
}

func (handler *Handler) handleNewCategory(w http.ResponseWriter, r *http.Request) {
	var req newCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("new category, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := handler.validate.Struct(req); err != nil {
		pkg.WriteJSONError(w, "invalid category name", http.StatusBadRequest)
		return
	}

	category, err := handler.repo.AddCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			pkg.WriteJSONError(w, "category already exists", http.StatusConflict)
			return
		}
		if errors.Is(err, ErrNameEmpty) {
			pkg.WriteJSONError(w, "invalid category name", http.StatusBadRequest)
			return
		}
		log.Errorf("add category: %s", err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.writeJSON(w, category, http.StatusCreated)
}

func (handler *Handler) handleAllTags(w http.ResponseWriter, r *http.Request) {
	tags, err := handler.repo.AllTags(r.Context())
	if err != nil {
		log.Errorf("get all tags: %s", err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	handler.writeJSON(w, tags, http.StatusOK)
}

func (handler *Handler) handleNewTag(w http.ResponseWriter, r *http.Request) {
	var req newTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("new tag, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := handler.validate.Struct(req); err != nil {
		pkg.WriteJSONError(w, "invalid tag name", http.StatusBadRequest)
		return
	}

	tag, err := handler.repo.AddTag(r.Context(), req.Name)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			pkg.WriteJSONError(w, "tag already exists", http.StatusConflict)
			return
		}
		if errors.Is(err, ErrNameEmpty) {
			pkg.WriteJSONError(w, "invalid tag name", http.StatusBadRequest)
			return
		}
		log.Errorf("add tag: %s", err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.writeJSON(w, tag, http.StatusCreated)
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
