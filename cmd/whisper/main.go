package main

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/4xmen/whisper/internal/handlers"
	"github.com/4xmen/whisper/internal/push"
	"github.com/4xmen/whisper/internal/session"
	"github.com/4xmen/whisper/internal/store"
	"github.com/4xmen/whisper/internal/ws"
	"github.com/4xmen/whisper/pkg/config"
	"github.com/4xmen/whisper/pkg/i18n"
)

//go:embed static/*
var staticFS embed.FS

func rateLimitMiddleware(limiterInstance *limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		limiterContext, err := limiterInstance.Get(c.Request.Context(), c.ClientIP())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": i18n.Notice("rate limiter error")})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limiterContext.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", limiterContext.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", limiterContext.Reset))

		if limiterContext.Reached {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": i18n.Notice("rate limit exceeded")})
			c.Abort()
			return
		}

		c.Next()
	}
}

type responseBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w responseBodyWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w responseBodyWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

func serverErrorLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		blw := &responseBodyWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Printf(
				"HTTP %d %s %s ip=%s duration=%s errors=%q response=%q",
				c.Writer.Status(),
				c.Request.Method,
				c.Request.URL.Path,
				c.ClientIP(),
				time.Since(start).Truncate(time.Millisecond),
				c.Errors.ByType(gin.ErrorTypeAny).String(),
				strings.TrimSpace(blw.body.String()),
			)
		}
	}
}

func panicRecovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Printf(
			"panic recovered method=%s path=%s ip=%s error=%v\n%s",
			c.Request.Method,
			c.Request.URL.Path,
			c.ClientIP(),
			recovered,
			debug.Stack(),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": i18n.Notice("internal server error")})
	})
}

func shouldServeSPA(c *gin.Context) bool {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		return false
	}

	accept := c.GetHeader("Accept")
	if !strings.Contains(accept, "text/html") {
		return false
	}

	reqPath := c.Request.URL.Path
	if reqPath == "" {
		return false
	}

	// Do not SPA-fallback unknown file-like paths (common scanner probes).
	if ext := strings.ToLower(path.Ext(reqPath)); ext != "" {
		return false
	}

	return true
}

func main() {
	cfg := config.Load()

	if len(os.Args) > 1 {
		if err := runCommand(cfg, os.Args[1:]); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	if err := runServer(cfg); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func runCommand(cfg *config.Config, args []string) error {
	command := args[0]

	switch command {
	case "status":
		return runStatus(cfg, os.Stdout, args[1:])
	case "-h", "--help", "help":
		printUsage(os.Stdout)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage(out *os.File) {
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  whisper           Start the web server")
	fmt.Fprintln(out, "  whisper status    Show application statistics")
	fmt.Fprintln(out, "  whisper status --json")
}

func runServer(cfg *config.Config) error {
	os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755)

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	feed := store.NewFeed()
	if cfg.RedisAddr != "" {
		bridge, err := feed.AttachBridge(cfg.RedisAddr, cfg.RedisChannel)
		if err != nil {
			log.Printf("Warning: feed bridge unavailable, running single-instance: %v", err)
		} else {
			defer bridge.Close()
			log.Printf("Feed bridge attached to %s channel %s", cfg.RedisAddr, cfg.RedisChannel)
		}
	}

	sessions := session.NewManager(db.Conn(), feed, cfg.JWTSecret)
	notifier := push.NewNotifier(db.Conn(), cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
	if notifier == nil {
		log.Println("Web push disabled: VAPID keys not configured")
	}

	hub := ws.NewHub(db.Conn(), feed)
	go hub.Run()

	authHandler := handlers.NewAuthHandler(sessions)
	socialHandler := handlers.NewSocialHandler(sessions)
	msgHandler := handlers.NewMessageHandler(db.Conn(), feed, sessions, hub, notifier).
		WithAssistantWaits(cfg.AssistantMinWait, cfg.AssistantMaxWait, cfg.WelcomeWait)
	assistantHandler := handlers.NewAssistantHandler()
	pushHandler := handlers.NewPushHandler(notifier)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(serverErrorLogger())
	router.Use(gin.Logger())
	router.Use(panicRecovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", cfg.CORSOrigins)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Public endpoints
	api := router.Group("/api")
	{
		loginLimiter := limiter.New(memory.NewStore(), limiter.Rate{Period: time.Minute, Limit: 5})
		registerLimiter := limiter.New(memory.NewStore(), limiter.Rate{Period: time.Minute, Limit: 2})

		api.POST("/auth/register", rateLimitMiddleware(registerLimiter), authHandler.Register)
		api.POST("/auth/login", rateLimitMiddleware(loginLimiter), authHandler.Login)
	}

	// Protected endpoints
	protected := api.Group("")
	protected.Use(authHandler.AuthMiddleware())
	{
		protected.POST("/auth/logout", authHandler.Logout)

		// Session and social graph
		protected.GET("/session", socialHandler.GetSession)
		protected.GET("/contacts/search", socialHandler.SearchContacts)
		protected.POST("/contacts", socialHandler.AddContact)
		protected.DELETE("/contacts/:id", socialHandler.RemoveContact)
		protected.POST("/requests/:id/respond", socialHandler.RespondToRequest)
		protected.POST("/groups", socialHandler.CreateGroup)
		protected.POST("/groups/:id/members", socialHandler.AddGroupMember)
		protected.POST("/groups/:id/leave", socialHandler.LeaveGroup)

		// Profile
		protected.PUT("/profile", socialHandler.UpdateProfile)
		protected.PUT("/profile/status", socialHandler.UpdateStatus)
		protected.PUT("/profile/avatar", socialHandler.UpdateAvatar)

		// Conversations
		protected.GET("/messages", msgHandler.GetConversation)
		protected.POST("/messages", msgHandler.SendMessage)
		protected.DELETE("/messages/:id", msgHandler.DeleteMessage)
		protected.DELETE("/chats/:id", msgHandler.ClearChat)
		protected.POST("/chats/:id/read", msgHandler.MarkRead)
		protected.GET("/conversations", msgHandler.GetConversations)

		// Assistants
		protected.GET("/assistants", assistantHandler.List)

		// Web push
		protected.GET("/push/key", pushHandler.VAPIDKey)
		protected.POST("/push/subscribe", pushHandler.Subscribe)
		protected.POST("/push/unsubscribe", pushHandler.Unsubscribe)
	}

	// WebSocket endpoint
	router.GET("/ws", authHandler.AuthMiddleware(), hub.HandleWebSocket)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Serve embedded static files
	if _, err := fs.Sub(staticFS, "static"); err == nil {
		router.NoRoute(func(c *gin.Context) {
			if !shouldServeSPA(c) {
				c.JSON(http.StatusNotFound, gin.H{"error": i18n.Notice("not found")})
				return
			}

			data, err := fs.ReadFile(staticFS, "static/index.html")
			if err != nil {
				c.JSON(404, gin.H{"error": i18n.Notice("not found")})
				return
			}
			c.Header("Cache-Control", "public, max-age=3600")
			c.Data(http.StatusOK, "text/html; charset=utf-8", data)
		})
	} else {
		log.Printf("Warning: Could not embed static files: %v", err)
		router.NoRoute(func(c *gin.Context) {
			c.JSON(404, gin.H{"error": i18n.Notice("not found")})
		})
	}

	addr := fmt.Sprintf("0.0.0.0:%s", cfg.Port)
	log.Printf("Starting server on %s", addr)

	// Setup graceful shutdown
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigint
		log.Println("\nShutting down gracefully...")
		os.Exit(0)
	}()

	if err := router.Run(addr); err != nil {
		return err
	}

	return nil
}
