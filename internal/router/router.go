package router

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/wadahkita/service-forum-go/internal/agenda"
	agendarepo "github.com/wadahkita/service-forum-go/internal/agenda/repo"
	"github.com/wadahkita/service-forum-go/internal/api"
	"github.com/wadahkita/service-forum-go/internal/auth"
	authrepo "github.com/wadahkita/service-forum-go/internal/auth/repo"
	"github.com/wadahkita/service-forum-go/internal/authz"
	authzrepo "github.com/wadahkita/service-forum-go/internal/authz/repo"
	"github.com/wadahkita/service-forum-go/internal/comment"
	commentrepo "github.com/wadahkita/service-forum-go/internal/comment/repo"
	"github.com/wadahkita/service-forum-go/internal/forum"
	forumrepo "github.com/wadahkita/service-forum-go/internal/forum/repo"
	"github.com/wadahkita/service-forum-go/internal/post"
	postrepo "github.com/wadahkita/service-forum-go/internal/post/repo"
	"github.com/wadahkita/service-forum-go/internal/storage"
	"github.com/wadahkita/service-forum-go/internal/user"
	userrepo "github.com/wadahkita/service-forum-go/internal/user/repo"
	"github.com/wadahkita/service-forum-go/pkg/database"
)

// Deps carries the process-wide handles the routes are built from.
type Deps struct {
	DB      *database.DB
	Storage *storage.Client
	Tokens  auth.TokenConfig
	Logger  *zap.SugaredLogger
}

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RecoveryMiddleware turns panics into the uniform 500 body.
func RecoveryMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Errorw("panic recovered", "panic", rec, "path", r.URL.Path)
					api.JSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RegisterRoutes mounts every endpoint on a method-pattern ServeMux and
// wraps the tree with recovery, security-header, and logging middleware.
func RegisterRoutes(deps Deps) http.Handler {
	mux := http.NewServeMux()
	logger := deps.Logger

	checker := authz.NewChecker(authzrepo.NewAuthzRepo(deps.DB))

	authSvc := auth.NewService(authrepo.NewAuthRepo(deps.DB), nil, deps.Tokens)
	authHandler := auth.NewHandler(authSvc, logger)

	userHandler := user.NewHandler(user.NewService(userrepo.NewUserRepo(deps.DB), checker), deps.Storage, logger)
	forumHandler := forum.NewHandler(forum.NewService(forumrepo.NewForumRepo(deps.DB), checker), deps.Storage, logger)
	postHandler := post.NewHandler(post.NewService(postrepo.NewPostRepo(deps.DB), checker), deps.Storage, logger)
	commentHandler := comment.NewHandler(comment.NewService(commentrepo.NewCommentRepo(deps.DB), checker), logger)
	agendaHandler := agenda.NewHandler(agenda.NewService(agendarepo.NewAgendaRepo(deps.DB)), deps.Storage, logger)

	bearer := auth.Authenticate(deps.Tokens)
	protect := func(h http.HandlerFunc) http.Handler { return bearer(h) }

	// health and fallthrough
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		api.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		api.JSON(w, http.StatusNotFound, map[string]string{"error": "Not Found"})
	})

	// auth
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/refresh-token", authHandler.Refresh)

	// users
	mux.Handle("GET /api/users", protect(userHandler.List))
	mux.Handle("GET /api/users/{id}", protect(userHandler.Get))
	mux.Handle("PUT /api/users/{id}", protect(userHandler.Update))
	mux.Handle("POST /api/users/{id}/follow", protect(userHandler.Follow))
	mux.Handle("DELETE /api/users/{id}/follow", protect(userHandler.Unfollow))
	mux.Handle("GET /api/users/{id}/followers", protect(userHandler.Followers))
	mux.Handle("GET /api/users/{id}/following", protect(userHandler.Following))
	mux.Handle("POST /api/users/register-member", protect(userHandler.RegisterMember))
	mux.Handle("GET /api/users/registrants/{id}", protect(userHandler.Registrant))
	mux.Handle("POST /api/users/registrants/{id}/accept", protect(userHandler.AcceptMember))
	mux.Handle("POST /api/users/{id}/toggle-admin", protect(userHandler.ToggleAdmin))

	// forums
	mux.Handle("POST /api/forums", protect(forumHandler.Create))
	mux.Handle("GET /api/forums", protect(forumHandler.List))
	mux.Handle("GET /api/forums/joined", protect(forumHandler.Joined))
	mux.Handle("GET /api/forums/{id}", protect(forumHandler.Get))
	mux.Handle("PUT /api/forums/{id}", protect(forumHandler.Update))
	mux.Handle("DELETE /api/forums/{id}", protect(forumHandler.Delete))
	mux.Handle("POST /api/forums/{id}/join", protect(forumHandler.Join))
	mux.Handle("POST /api/forums/{id}/approve", protect(forumHandler.Approve))
	mux.Handle("DELETE /api/forums/{id}/leave", protect(forumHandler.Leave))

	// posts
	mux.Handle("POST /api/post", protect(postHandler.Create))
	mux.Handle("POST /api/post/{$}", protect(postHandler.Create))
	mux.Handle("GET /api/post", protect(postHandler.Feed))
	mux.Handle("GET /api/post/{$}", protect(postHandler.Feed))
	mux.Handle("GET /api/post/{id}", protect(postHandler.Get))
	mux.Handle("PUT /api/post/{id}", protect(postHandler.Update))
	mux.Handle("DELETE /api/post/{id}", protect(postHandler.Delete))
	mux.Handle("POST /api/post/{id}/like", protect(postHandler.Like))
	mux.Handle("DELETE /api/post/{id}/like", protect(postHandler.Unlike))
	mux.Handle("POST /api/post/{id}/bookmark", protect(postHandler.Bookmark))
	mux.Handle("DELETE /api/post/{id}/bookmark", protect(postHandler.Unbookmark))
	mux.Handle("POST /api/post/{id}/share", protect(postHandler.Share))
	mux.Handle("DELETE /api/post/{id}/share", protect(postHandler.Unshare))
	mux.Handle("POST /api/post/{id}/vote", protect(postHandler.Vote))
	mux.Handle("GET /api/post/{id}/results", protect(postHandler.Results))

	// comments
	mux.Handle("POST /api/comment", protect(commentHandler.Create))
	mux.Handle("GET /api/comment/post/{postId}", protect(commentHandler.List))
	mux.Handle("DELETE /api/comment/{id}", protect(commentHandler.Delete))
	mux.Handle("POST /api/comment/{id}/like", protect(commentHandler.Like))
	mux.Handle("DELETE /api/comment/{id}/like", protect(commentHandler.Unlike))
	mux.Handle("POST /api/comment/{id}/bookmark", protect(commentHandler.Bookmark))
	mux.Handle("DELETE /api/comment/{id}/bookmark", protect(commentHandler.Unbookmark))

	// agenda
	mux.Handle("POST /api/agenda", protect(agendaHandler.Create))
	mux.Handle("GET /api/agenda", protect(agendaHandler.List))

	handler := RecoveryMiddleware(logger)(SecurityHeadersMiddleware()(mux))
	return LoggingMiddleware(logger)(handler)
}
