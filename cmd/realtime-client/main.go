package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"freightlink-client/internal/api"
	"freightlink-client/internal/call"
	"freightlink-client/internal/chat"
	"freightlink-client/internal/domain"
	"freightlink-client/internal/media"
	"freightlink-client/internal/notify"
	"freightlink-client/internal/reaction"
	"freightlink-client/internal/signaling"
	"freightlink-client/pkg/config"
	"freightlink-client/pkg/env"
	"freightlink-client/pkg/jwt"
	"freightlink-client/pkg/logger"
	"freightlink-client/pkg/retry"
)

func main() {
	// 1. Load configuration and logger
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(&logger.Config{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		Output:   cfg.Log.Output,
		FilePath: cfg.Log.FilePath,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// 2. Resolve the authenticated user from the stored access token
	if cfg.API.Token == "" {
		log.Fatal("API_TOKEN environment variable is required")
	}
	if jwt.IsTokenExpired(cfg.API.Token) {
		log.Fatal("API_TOKEN is expired, log in again")
	}
	userID, err := jwt.ExtractUserID(cfg.API.Token)
	if err != nil {
		log.Fatalf("Failed to read user id from token: %v", err)
	}

	// 3. Connect the local durable cache
	store, err := chat.NewRedisStore(cfg.Cache)
	if err != nil {
		log.Fatalf("Failed to connect to cache store: %v", err)
	}
	defer store.Close()

	log.Println("✅ Connected to local cache store")

	// 4. Build the API collaborator clients
	baseClient := api.NewClient(cfg.API.BaseURL, cfg.API.Token)
	callLogs := api.NewCallLogClient(baseClient)
	chatAPI := api.NewChatClient(baseClient)
	reactionAPI := api.NewReactionClient(baseClient)
	profiles := api.NewProfileClient(baseClient)

	notifier := notify.NewLogNotifier()

	// 5. Chat cache service; warm the conversation cache on startup
	chatService := chat.NewService(
		chat.NewRepository(store),
		chatAPI,
		retry.Policy{Attempts: cfg.Retry.Attempts, Delay: cfg.Retry.Delay},
		notifier,
		userID,
	)
	cached := chatService.ListConversations(context.Background(), func(fresh []domain.ConversationSummary) {
		log.Printf("Conversation list refreshed (%d conversations)", len(fresh))
	})
	log.Printf("✅ Loaded %d cached conversations", len(cached))

	// 6. Reaction reconciler
	reconciler := reaction.NewReconciler(reactionAPI, cfg.Reaction.DebounceWindow, notifier, userID)
	defer reconciler.Close()

	// 7. Signaling identity and call coordinator
	sigService := signaling.NewWSService(
		cfg.Signaling.URL,
		cfg.API.Token,
		cfg.Signaling.PingInterval,
		cfg.Signaling.HandshakeTimeout,
	)
	manager := signaling.NewManager(sigService, profiles)
	coordinator := call.NewCoordinator(callLogs, media.NoopProvider{}, notifier)

	manager.SetOfferHandler(func(inc signaling.IncomingCall) {
		session, acceptErr := coordinator.AcceptIncoming(inc)
		if acceptErr != nil {
			log.Printf("Rejected inbound call from %s: %v", inc.Caller.DisplayName, acceptErr)
			return
		}
		log.Printf("Incoming %s call from %s (state %s)", inc.Kind, inc.Caller.DisplayName, session.State())
	})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	_, err = manager.Acquire(ctx, userID)
	cancel()
	if err != nil {
		log.Fatalf("Failed to establish signaling identity: %v", err)
	}
	defer manager.Release()

	log.Printf("✅ Signaling identity established for %s", userID)

	// 8. Expose metrics and health
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	metricsAddr := env.GetString("METRICS_ADDR", ":9095")
	server := &http.Server{Addr: metricsAddr, Handler: mux}
	go func() {
		if serveErr := server.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			log.Printf("Metrics server stopped: %v", serveErr)
		}
	}()

	log.Printf("✅ Realtime client running (metrics on %s)", metricsAddr)

	// 9. Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	if active := coordinator.Active(); active != nil {
		active.HangUp()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)
}
