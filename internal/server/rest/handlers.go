package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"blogapi/internal/common"
	"blogapi/internal/server/models"
	"blogapi/internal/server/services"
)

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	UserName  string `json:"userName"`
	Password  string `json:"password"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	UserName  string    `json:"userName"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// updateUserRequest is a partial profile patch; empty fields keep their
// current value.
type updateUserRequest struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	UserName  string `json:"userName,omitempty"`
}

type loginRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// mediaItemRequest describes one desired attachment. Either Key references
// an already uploaded object, or Data carries new image bytes (base64 in
// JSON) to upload under a fresh key.
type mediaItemRequest struct {
	Key      string `json:"key,omitempty"`
	Filename string `json:"filename,omitempty"`
	Data     []byte `json:"data,omitempty"`
	Alt      string `json:"alt,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Credit   string `json:"credit,omitempty"`
}

// postRequest is the write payload for posts. Media distinguishes "absent"
// (leave attachments alone) from "empty array" (detach everything).
type postRequest struct {
	ID       int64               `json:"id,omitempty"`
	Title    string              `json:"title"`
	Content  string              `json:"content"`
	AuthorID int64               `json:"authorId,omitempty"`
	Status   string              `json:"status,omitempty"`
	Media    *[]mediaItemRequest `json:"media,omitempty"`
}

type imageResponse struct {
	ID         int64  `json:"id"`
	StorageKey string `json:"storageKey"`
	URL        string `json:"url"`
	Alt        string `json:"alt,omitempty"`
	Caption    string `json:"caption,omitempty"`
	Credit     string `json:"credit,omitempty"`
}

type postResponse struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	AuthorID  int64           `json:"authorId"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Images    []imageResponse `json:"images,omitempty"`
}

type errorResponse struct {
	Error string        `json:"error"`
	Post  *postResponse `json:"post,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, common.ErrorAuthorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorEmailExists), errors.Is(err, common.ErrorUsernameExists):
		return http.StatusConflict
	case errors.Is(err, common.ErrorInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorUploadFailure):
		// The post write succeeded but the media store did not follow;
		// the failing key and phase stay in the message.
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFromError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func toUserResponse(u *models.User) *userResponse {
	return &userResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		UserName:  u.UserName,
		Status:    string(u.Status),
		CreatedAt: u.CreatedAt,
	}
}

func toPostResponse(view *services.PostView) *postResponse {
	resp := &postResponse{
		ID:        view.Post.ID,
		Title:     view.Post.Title,
		Content:   view.Post.Content,
		AuthorID:  view.Post.AuthorID,
		Status:    string(view.Post.Status),
		CreatedAt: view.Post.CreatedAt,
		UpdatedAt: view.Post.UpdatedAt,
	}
	for _, img := range view.Images {
		resp.Images = append(resp.Images, imageResponse{
			ID:         img.ID,
			StorageKey: img.StorageKey,
			URL:        img.URL,
			Alt:        img.Alt,
			Caption:    img.Caption,
			Credit:     img.Credit,
		})
	}
	return resp
}

func toMediaItems(reqs []mediaItemRequest) []services.MediaItem {
	items := make([]services.MediaItem, 0, len(reqs))
	for _, m := range reqs {
		items = append(items, services.MediaItem{
			Key:      m.Key,
			Data:     m.Data,
			Filename: m.Filename,
			Alt:      m.Alt,
			Caption:  m.Caption,
			Credit:   m.Credit,
		})
	}
	return items
}

func (s *RESTServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.ErrorInvalidInput)
		return
	}

	user, err := s.users.Register(r.Context(), &models.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		UserName:  req.UserName,
	}, req.Password)
	if err != nil {
		s.logger.Error(r.Context(), "registration failed", "error", err.Error())
		writeError(w, err)
		return
	}

	s.logger.Info(r.Context(), "user registered", "username", user.UserName)
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (s *RESTServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.ErrorInvalidInput)
		return
	}

	pair, err := s.users.Login(r.Context(), req.UserName, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *RESTServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.ErrorInvalidInput)
		return
	}

	pair, err := s.users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *RESTServer) handleFindUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := userIDFrom(r.Context()); !ok {
		writeError(w, common.ErrorUnauthorized)
		return
	}

	params := map[string]string{}
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	users, err := s.users.FindByParams(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]*userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *RESTServer) handleGetUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := userIDFrom(r.Context()); !ok {
		writeError(w, common.ErrorUnauthorized)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *RESTServer) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		writeError(w, common.ErrorUnauthorized)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.ErrorInvalidInput)
		return
	}

	user, err := s.users.Update(r.Context(), id, &models.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		UserName:  req.UserName,
	}, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *RESTServer) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		writeError(w, common.ErrorUnauthorized)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.users.Delete(r.Context(), id, userID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *RESTServer) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		writeError(w, common.ErrorUnauthorized)
		return
	}

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.ErrorInvalidInput)
		return
	}

	status, err := parseStatus(req.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	authorID := req.AuthorID
	if authorID == 0 {
		authorID = userID
	}

	var media []services.MediaItem
	if req.Media != nil {
		media = toMediaItems(*req.Media)
	}

	view, err := s.posts.Create(r.Context(), &models.BlogPost{
		Title:    req.Title,
		Content:  req.Content,
		AuthorID: authorID,
		Status:   status,
	}, media, userID)
	if err != nil {
		resp := errorResponse{Error: err.Error()}
		httpStatus := statusFromError(err)
		if httpStatus == http.StatusInternalServerError {
			resp.Error = "internal error"
		}
		// A post that was created before its media failed is still
		// reported to the caller.
		if view != nil && view.Post != nil {
			resp.Post = toPostResponse(view)
		}
		writeJSON(w, httpStatus, resp)
		return
	}

	writeJSON(w, http.StatusCreated, toPostResponse(view))
}

func (s *RESTServer) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		writeError(w, common.ErrorUnauthorized)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.ErrorInvalidInput)
		return
	}

	status, err := parseStatus(req.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	var desired []services.MediaItem
	if req.Media != nil {
		desired = toMediaItems(*req.Media)
	}

	view, err := s.posts.Update(r.Context(), id, &models.BlogPost{
		ID:       req.ID,
		Title:    req.Title,
		Content:  req.Content,
		AuthorID: req.AuthorID,
		Status:   status,
	}, desired, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPostResponse(view))
}

func (s *RESTServer) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		writeError(w, common.ErrorUnauthorized)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.posts.Delete(r.Context(), id, userID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *RESTServer) handleGetPost(w http.ResponseWriter, r *http.Request) {
	_, privileged := userIDFrom(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	view, err := s.posts.GetByID(r.Context(), id, privileged)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPostResponse(view))
}

func (s *RESTServer) handleSearchPosts(w http.ResponseWriter, r *http.Request) {
	_, privileged := userIDFrom(r.Context())

	params := map[string]string{}
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	posts, err := s.posts.Search(r.Context(), params, privileged)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]*postResponse, 0, len(posts))
	for _, p := range posts {
		resp = append(resp, toPostResponse(&services.PostView{Post: p}))
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseStatus(raw string) (models.BlogStatus, error) {
	if raw == "" {
		return "", nil
	}
	status, ok := models.ParseBlogStatus(raw)
	if !ok {
		return "", &common.InvalidValueError{Field: "status", Value: raw}
	}
	return status, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, &common.InvalidValueError{Field: "id", Value: mux.Vars(r)["id"]}
	}
	return id, nil
}
