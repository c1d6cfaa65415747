package app

import (
	"github.com/gwa2100/dndnotus/internal/auth"
	"github.com/gwa2100/dndnotus/internal/cache"
	"github.com/gwa2100/dndnotus/internal/config"
	"github.com/gwa2100/dndnotus/internal/handlers"
	"github.com/gwa2100/dndnotus/internal/repo"
	"github.com/gwa2100/dndnotus/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Setup registers all routes on the given engine.
func Setup(r *gin.Engine, cfg config.Config, db *pgxpool.Pool, rdb *redis.Client) {
	r.GET("/health", healthHandler(cfg))
	r.GET("/version", versionHandler(cfg))

	sessionStore := auth.NewStore(rdb, cfg.Session.TTL.Duration())
	userRepo := repo.NewPGUserRepo(db)
	userSvc := service.NewUserService(userRepo)
	authHandler := handlers.NewAuthHandler(sessionStore, userSvc, cfg.Session.TTL.Duration(), cfg.Session.CookieSecure)
	registerAuthRoutes(r, authHandler)

	noteRepo := repo.NewPGNoteRepo(db)
	noteCache := cache.NewNoteCache(rdb, cfg.Redis.DefaultTTL.Duration())
	noteSvc := service.NewNoteService(noteRepo, userRepo, noteCache)
	notesHandler := handlers.NewNotesHandler(noteSvc, userSvc)

	protected := r.Group("", auth.RequireSession(sessionStore))
	registerNoteRoutes(protected, authHandler, notesHandler)
}

func healthHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true, "env": cfg.App.Env})
	}
}

func versionHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{"version": cfg.App.Version})
	}
}

func registerAuthRoutes(r *gin.Engine, h *handlers.AuthHandler) {
	r.GET("/register", h.RegisterForm)
	r.POST("/register", h.Register)
	r.GET("/login", h.LoginForm)
	r.POST("/login", h.Login)
}

func registerNoteRoutes(g *gin.RouterGroup, ah *handlers.AuthHandler, nh *handlers.NotesHandler) {
	g.GET("/", nh.Home)
	g.GET("/logout", ah.Logout)
	g.GET("/note/new", nh.NewNoteForm)
	g.POST("/note/new", nh.NewNote)
	g.GET("/dm_post", nh.DMPostForm)
	g.POST("/dm_post", nh.DMPost)
	g.POST("/delete_note/:id", nh.DeleteNote)
}
