package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/2beens/inkwell/internal/auth"
	"github.com/2beens/inkwell/internal/middleware"
	"github.com/2beens/inkwell/internal/telemetry/metrics"
	"github.com/2beens/inkwell/pkg"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	Name          string `json:"name" validate:"max=100"`
	Bio           string `json:"bio" validate:"max=500"`
	AvatarURL     string `json:"avatar_url" validate:"omitempty,url"`
	TwitterHandle string `json:"twitter_handle" validate:"max=50"`
	GithubHandle  string `json:"github_handle" validate:"max=50"`
}

type sessionResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type userRepo interface {
	Create(ctx context.Context, email, passwordHash string) (*User, error)
	Get(ctx context.Context, id int) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, id int, update ProfileUpdate) error
	Follow(ctx context.Context, followerID, followingID int) error
	Unfollow(ctx context.Context, followerID, followingID int) error
	Followers(ctx context.Context, id int) ([]*PublicProfile, error)
	Following(ctx context.Context, id int) ([]*PublicProfile, error)
}

type sessionService interface {
	NewSession(ctx context.Context, userID int) (string, error)
	Logout(ctx context.Context, token string) (bool, error)
}

type Handler struct {
	repo           userRepo
	sessions       sessionService
	validate       *validator.Validate
	metricsManager *metrics.Manager
}

func NewHandler(
	repo userRepo,
	sessions sessionService,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		repo:           repo,
		sessions:       sessions,
		validate:       validator.New(),
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(
	router *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	loginRateLimitAllowedPerMin int,
) {
	authRouter := router.PathPrefix("/api/auth").Subrouter()
	authRouter.HandleFunc("/register", handler.handleRegister).Methods("POST", "OPTIONS").Name("register")
	authRouter.HandleFunc("/login", handler.handleLogin).Methods("POST", "OPTIONS").Name("login")
	authRouter.HandleFunc("/logout", handler.handleLogout).Methods("POST", "OPTIONS").Name("logout")

	// slow down credential stuffing and bulk signups
	authRouter.Use(middleware.RateLimit(
		rateLimiter, "auth", loginRateLimitAllowedPerMin, handler.metricsManager,
	))

	router.HandleFunc("/api/users/me", handler.handleMe).Methods("GET").Name("me")
	router.HandleFunc("/api/users/me", handler.handleUpdateProfile).Methods("PUT", "OPTIONS").Name("update-profile")
	router.HandleFunc("/api/users/{id}", handler.handleGetProfile).Methods("GET").Name("user-profile")
	router.HandleFunc("/api/users/{id}/followers", handler.handleFollowers).Methods("GET").Name("user-followers")
	router.HandleFunc("/api/users/{id}/following", handler.handleFollowing).Methods("GET").Name("user-following")
	router.HandleFunc("/api/users/{id}/follow", handler.handleFollow).Methods("POST", "OPTIONS").Name("follow-user")
	router.HandleFunc("/api/users/{id}/follow", handler.handleUnfollow).Methods("DELETE").Name("unfollow-user")
}

func (handler *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("register, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := handler.validate.Struct(req); err != nil {
		log.Tracef("register, validation: %s", err)
		pkg.WriteJSONError(w, "invalid email or password (min 8 characters)", http.StatusBadRequest)
		return
	}

	passwordHash, err := pkg.HashPassword(req.Password)
	if err != nil {
		log.Errorf("register, hash password: %s", err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	user, err := handler.repo.Create(r.Context(), req.Email, passwordHash)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			pkg.WriteJSONError(w, "email already registered", http.StatusConflict)
			return
		}
		log.Errorf("register, create user: %s", err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	token, err := handler.sessions.NewSession(r.Context(), user.ID)
	if err != nil {
		log.Errorf("register, new session: %s", err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterRegistrations.Inc()
	log.Tracef("new user %d registered", user.ID)

	handler.writeSessionResponse(w, token, user, http.StatusCreated)
}

func (handler *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("login, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := handler.validate.Struct(req); err != nil {
		pkg.WriteJSONError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	// unknown email and wrong password produce the same response,
	// no account enumeration via the login endpoint
	user, err := handler.repo.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			log.Errorf("login, get user: %s", err)
			pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		pkg.WriteJSONError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if !pkg.CheckPasswordHash(req.Password, user.PasswordHash) {
		pkg.WriteJSONError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := handler.sessions.NewSession(r.Context(), user.ID)
	if err != nil {
		log.Errorf("login, new session: %s", err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterLogins.Inc()

	handler.writeSessionResponse(w, token, user, http.StatusOK)
}

func (handler *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r)
	if token == "" {
		pkg.WriteJSONError(w, "not logged in", http.StatusUnauthorized)
		return
	}

	loggedOut, err := handler.sessions.Logout(r.Context(), token)
	if err != nil {
		log.Errorf("logout: %s", err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !loggedOut {
		pkg.WriteJSONError(w, "not logged in", http.StatusUnauthorized)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   auth.SessionCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	pkg.WriteJSONResponseOK(w, `{"message":"logged out"}`)
}

func (handler *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		pkg.WriteJSONError(w, "not logged in", http.StatusUnauthorized)
		return
	}

	user, err := handler.repo.Get(r.Context(), userID)
	if err != nil {
		log.Errorf("get me %d: %s", userID, err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.writeJSON(w, user, http.StatusOK)
}

func (handler *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		pkg.WriteJSONError(w, "not logged in", http.StatusUnauthorized)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("update profile, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := handler.validate.Struct(req); err != nil {
		log.Tracef("update profile, validation: %s", err)
		pkg.WriteJSONError(w, "invalid profile fields", http.StatusBadRequest)
		return
	}

	update := ProfileUpdate{
		Name:          req.Name,
		Bio:           req.Bio,
		AvatarURL:     req.AvatarURL,
		TwitterHandle: req.TwitterHandle,
		GithubHandle:  req.GithubHandle,
	}
	if err := handler.repo.UpdateProfile(r.Context(), userID, update); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			pkg.WriteJSONError(w, "user not found", http.StatusNotFound)
			return
		}
		log.Errorf("update profile %d: %s", userID, err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	user, err := handler.repo.Get(r.Context(), userID)
	if err != nil {
		log.Errorf("update profile, get user %d: %s", userID, err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.writeJSON(w, user, http.StatusOK)
}

func (handler *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := handler.idFromRequest(w, r)
	if !ok {
		return
	}

	user, err := handler.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			pkg.WriteJSONError(w, "user not found", http.StatusNotFound)
			return
		}
		log.Errorf("get user %d: %s", id, err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.writeJSON(w, user.PublicProfile(), http.StatusOK)
}

func (handler *Handler) handleFollowers(w http.ResponseWriter, r *http.Request) {
	id, ok := handler.idFromRequest(w, r)
	if !ok {
		return
	}

	followers, err := handler.repo.Followers(r.Context(), id)
	if err != nil {
		log.Errorf("get followers of %d: %s", id, err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.writeJSON(w, followers, http.StatusOK)
}

func (handler *Handler) handleFollowing(w http.ResponseWriter, r *http.Request) {
	id, ok := handler.idFromRequest(w, r)
	if !ok {
		return
	}

	following, err := handler.repo.Following(r.Context(), id)
	if err != nil {
		log.Errorf("get following of %d: %s", id, err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.writeJSON(w, following, http.StatusOK)
}

func (handler *Handler) handleFollow(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		pkg.WriteJSONError(w, "not logged in", http.StatusUnauthorized)
		return
	}

	id, ok := handler.idFromRequest(w, r)
	if !ok {
		return
	}

	if err := handler.repo.Follow(r.Context(), userID, id); err != nil {
		if errors.Is(err, ErrSelfFollow) {
			pkg.WriteJSONError(w, "cannot follow yourself", http.StatusBadRequest)
			return
		}
		if pkg.IsForeignKeyViolationError(err) {
			pkg.WriteJSONError(w, "user not found", http.StatusNotFound)
			return
		}
		log.Errorf("follow %d -> %d: %s", userID, id, err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterFollows.Inc()

	pkg.WriteJSONResponseOK(w, `{"message":"following"}`)
}

func (handler *Handler) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		pkg.WriteJSONError(w, "not logged in", http.StatusUnauthorized)
		return
	}

	id, ok := handler.idFromRequest(w, r)
	if !ok {
		return
	}

	if err := handler.repo.Unfollow(r.Context(), userID, id); err != nil {
		log.Errorf("unfollow %d -> %d: %s", userID, id, err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, `{"message":"unfollowed"}`)
}

func (handler *Handler) idFromRequest(w http.ResponseWriter, r *http.Request) (int, bool) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.Atoi(idStr)
	if err != nil {
		pkg.WriteJSONError(w, "invalid user id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (handler *Handler) writeSessionResponse(w http.ResponseWriter, token string, user *User, statusCode int) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	handler.writeJSON(w, sessionResponse{Token: token, User: user}, statusCode)
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
