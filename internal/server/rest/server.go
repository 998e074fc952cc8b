// Package rest exposes the blog API over HTTP/JSON.
package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"blogapi/internal/logging"
	"blogapi/internal/server/auth"
	"blogapi/internal/server/models"
	"blogapi/internal/server/services"
)

// UserService is the slice of the user service the HTTP layer needs.
type UserService interface {
	Register(ctx context.Context, user *models.User, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	FindByParams(ctx context.Context, params map[string]string) ([]*models.User, error)
	Update(ctx context.Context, id int64, patch *models.User, actingUserID int64) (*models.User, error)
	Delete(ctx context.Context, id int64, actingUserID int64) error
}

// PostService is the slice of the post service the HTTP layer needs.
type PostService interface {
	Create(ctx context.Context, post *models.BlogPost, media []services.MediaItem, actingUserID int64) (*services.PostView, error)
	Update(ctx context.Context, id int64, patch *models.BlogPost, desiredMedia []services.MediaItem, actingUserID int64) (*services.PostView, error)
	Delete(ctx context.Context, id int64, actingUserID int64) error
	GetByID(ctx context.Context, id int64, privileged bool) (*services.PostView, error)
	Search(ctx context.Context, params map[string]string, privileged bool) ([]*models.BlogPost, error)
}

type RESTServer struct {
	address string
	users   UserService
	posts   PostService
	tokens  *auth.TokenService
	logger  logging.Logger
}

func NewRESTServer(a string, l logging.Logger, us UserService, ps PostService, tokens *auth.TokenService) (*RESTServer, error) {
	return &RESTServer{
		address: a,
		logger:  l.With("module", "rest_server"),
		users:   us,
		posts:   ps,
		tokens:  tokens,
	}, nil
}

// Handler builds the full route table. Split out from Run so tests can drive
// it with httptest.
func (s *RESTServer) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	v1 := r.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/auth/register", s.handleRegister).Methods("POST")
	v1.HandleFunc("/auth/login", s.handleLogin).Methods("POST")
	v1.HandleFunc("/auth/refresh", s.handleRefresh).Methods("POST")

	posts := v1.PathPrefix("/posts").Subrouter()
	posts.Use(s.withAccessToken)
	posts.HandleFunc("", s.handleSearchPosts).Methods("GET")
	posts.HandleFunc("", s.handleCreatePost).Methods("POST")
	posts.HandleFunc("/{id:[0-9]+}", s.handleGetPost).Methods("GET")
	posts.HandleFunc("/{id:[0-9]+}", s.handleUpdatePost).Methods("PUT")
	posts.HandleFunc("/{id:[0-9]+}", s.handleDeletePost).Methods("DELETE")

	users := v1.PathPrefix("/users").Subrouter()
	users.Use(s.withAccessToken)
	users.HandleFunc("", s.handleFindUsers).Methods("GET")
	users.HandleFunc("/{id:[0-9]+}", s.handleGetUser).Methods("GET")
	users.HandleFunc("/{id:[0-9]+}", s.handleUpdateUser).Methods("PUT")
	users.HandleFunc("/{id:[0-9]+}", s.handleDeleteUser).Methods("DELETE")

	return r
}

func (s *RESTServer) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:         s.address,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown error", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
