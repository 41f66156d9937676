package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"loomchat/api/internal/config"
	"loomchat/api/internal/llm"
	"loomchat/api/internal/middleware"
	"loomchat/api/internal/models"
	"loomchat/api/internal/repository"
	"loomchat/api/internal/service"
	"loomchat/api/internal/storage"
)

type HandlerSet struct {
	log              zerolog.Logger
	cfg              *config.AppConfig
	authService      *service.AuthService
	chatService      *service.ChatService
	knowledgeService *service.KnowledgeService
	db               *pgxpool.Pool
	cache            *redis.Client
	users            *repository.UserRepository
	conversations    *repository.ConversationRepository
	projects         *repository.ProjectRepository
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, store *storage.ObjectStore, provider llm.Completer, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	convRepo := repository.NewConversationRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	knowledgeRepo := repository.NewKnowledgeRepository(db)

	auth := service.NewAuthService(userRepo, cfg, log)
	chat := service.NewChatService(convRepo, provider, cfg, log)
	knowledge := service.NewKnowledgeService(knowledgeRepo, projectRepo, store, cfg, log)

	return HandlerSet{
		log:              log,
		cfg:              cfg,
		authService:      auth,
		chatService:      chat,
		knowledgeService: knowledge,
		db:               db,
		cache:            cache,
		users:            userRepo,
		conversations:    convRepo,
		projects:         projectRepo,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", h.RegisterUser)
		auth.POST("/login", middleware.LoginThrottle(h.cfg, h.cache, h.log), h.Login)
		auth.POST("/logout", h.Logout)
		auth.GET("/session", h.SessionStatus)

		account := v1.Group("/auth")
		account.Use(middleware.Auth(h.cfg, h.log))
		account.POST("/password", h.ChangePassword)

		chat := v1.Group("/chat")
		chat.Use(middleware.Auth(h.cfg, h.log))
		chat.POST("", h.Chat)

		conversations := v1.Group("/conversations")
		conversations.Use(middleware.Auth(h.cfg, h.log))
		conversations.GET("", h.ListConversations)
		conversations.GET("/:id", h.GetConversation)
		conversations.PATCH("/:id", h.RenameConversation)
		conversations.DELETE("/:id", h.DeleteConversation)

		projects := v1.Group("/projects")
		projects.Use(middleware.Auth(h.cfg, h.log))
		projects.POST("", h.CreateProject)
		projects.GET("", h.ListProjects)
		projects.GET("/:id", h.GetProject)
		projects.PUT("/:id", h.UpdateProject)
		projects.DELETE("/:id", h.DeleteProject)
		projects.POST("/:id/knowledge", h.UploadKnowledge)
		projects.GET("/:id/knowledge", h.ListKnowledge)

		knowledge := v1.Group("/knowledge")
		knowledge.Use(middleware.Auth(h.cfg, h.log))
		knowledge.GET("/:id", h.DownloadKnowledge)
		knowledge.DELETE("/:id", h.DeleteKnowledge)

		admin := v1.Group("/admin")
		admin.Use(
			middleware.Auth(h.cfg, h.log),
			middleware.RequireRoles(models.UserRoleAdmin),
		)
		admin.GET("/users", h.AdminListUsers)
		admin.PATCH("/users/:id/status", h.AdminSetUserStatus)
	}
}
