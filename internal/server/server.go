package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"

	"blog/internal/access"
	"blog/internal/blog"
	"blog/internal/models"
	"blog/internal/session"
)

type Server struct {
	Blog     *blog.Service
	Sessions *session.Manager
	Log      *slog.Logger

	handler http.Handler
}

func New(svc *blog.Service, sessions *session.Manager, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{Blog: svc, Sessions: sessions, Log: log}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /hello", s.handleHello)
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("GET /auth/logout", s.handleLogout)
	mux.HandleFunc("POST /create", s.handleCreate)
	mux.HandleFunc("GET /{id}", s.handleView)
	mux.HandleFunc("POST /{id}/update", s.handleUpdate)
	mux.HandleFunc("POST /{id}/delete", s.handleDelete)
	mux.HandleFunc("POST /{id}/comment", s.handleComment)
	mux.HandleFunc("POST /comment/{id}/edit", s.handleEditComment)

	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(s.Log.Handler(), slog.LevelError)),
		handlers.PrintRecoveryStack(true),
	)
	return recovery(s.logRequests(mux))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

type postView struct {
	models.Post
	Editable bool `json:"editable"`
}

type commentView struct {
	models.Comment
	Editable bool `json:"editable"`
}

func (s *Server) handleHello(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Hello World!"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	user, err := s.Blog.CurrentUser(r.Context(), s.Sessions.Load(w, r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	posts, err := s.Blog.ListPosts(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	views := make([]postView, 0, len(posts))
	for i := range posts {
		views = append(views, postView{Post: posts[i], Editable: access.CanMutate(&posts[i], user)})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":  user,
		"posts": views,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	_, err := s.Blog.Register(r.Context(), r.FormValue("username"), r.FormValue("password"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := s.Sessions.Load(w, r)
	if _, err := s.Blog.Login(r.Context(), sess, r.FormValue("username"), r.FormValue("password")); err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.Blog.Logout(r.Context(), s.Sessions.Load(w, r)); err != nil {
		// The cookie is already cleared; a failed revoke only matters to the log.
		s.Log.ErrorContext(r.Context(), "logout", slog.String("error", err.Error()))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	sess := s.Sessions.Load(w, r)
	if _, err := s.Blog.CreatePost(r.Context(), sess, r.FormValue("title"), r.FormValue("body")); err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	user, err := s.Blog.CurrentUser(r.Context(), s.Sessions.Load(w, r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	post, err := s.Blog.ViewPost(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	comments := make([]commentView, 0, len(post.Comments))
	for i := range post.Comments {
		comments = append(comments, commentView{Comment: post.Comments[i], Editable: access.CanMutate(&post.Comments[i], user)})
	}
	post.Comments = nil
	writeJSON(w, http.StatusOK, map[string]any{
		"user":     user,
		"post":     postView{Post: *post, Editable: access.CanMutate(post, user)},
		"comments": comments,
	})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	sess := s.Sessions.Load(w, r)
	_, err := s.Blog.UpdatePost(r.Context(), sess, r.PathValue("id"), r.FormValue("title"), r.FormValue("body"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.Blog.DeletePost(r.Context(), s.Sessions.Load(w, r), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleComment(w http.ResponseWriter, r *http.Request) {
	postID := r.PathValue("id")
	res, err := s.Blog.AddComment(r.Context(), s.Sessions.Load(w, r), postID, r.FormValue("text"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if res.Warning != "" {
		writeFlash(w, res.Warning)
		return
	}
	http.Redirect(w, r, "/"+res.Comment.ParentPostID.String(), http.StatusSeeOther)
}

func (s *Server) handleEditComment(w http.ResponseWriter, r *http.Request) {
	c, err := s.Blog.EditComment(r.Context(), s.Sessions.Load(w, r), r.PathValue("id"), r.FormValue("text"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/"+c.ParentPostID.String(), http.StatusSeeOther)
}

// fail maps an operation error to a response. Expected outcomes become
// redirects, status codes or flashed messages; anything else is a 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrUnauthenticated):
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, models.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case models.Message(err) != "":
		writeFlash(w, models.Message(err))
	default:
		s.Log.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func writeFlash(w http.ResponseWriter, msgs ...string) {
	writeJSON(w, http.StatusOK, map[string]any{"flash": msgs})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
