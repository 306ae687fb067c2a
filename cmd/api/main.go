package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"bugtracker/internal/config"
	"bugtracker/internal/handler"
	"bugtracker/internal/httpserver"
	"bugtracker/internal/repository"
	"bugtracker/internal/service/auth"
	"bugtracker/internal/service/comment"
	"bugtracker/internal/service/project"
	"bugtracker/internal/service/ticket"
	"bugtracker/pkg/db"
	"bugtracker/pkg/logger"
	"bugtracker/pkg/mq"
	"bugtracker/pkg/redis"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting bugtracker API...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("http_port", cfg.Server.Port),
	)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()
	log.Info("Database connection established")

	// Redis cache for token-to-user resolution. The service falls back
	// to the DB when redis is unreachable.
	rdb := redis.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	// Event publisher. The API stays up without the broker; events are
	// then dropped with a warning.
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Warn("MQ unavailable, running without event publishing", zap.Error(err))
		publisher = nil
	} else {
		defer publisher.Close()
	}

	userRepo := repository.NewUserRepository(dbConn, log)
	projectRepo := repository.NewProjectRepository(dbConn, log)
	memberRepo := repository.NewMemberRepository(dbConn, log)
	ticketRepo := repository.NewTicketRepository(dbConn, log)
	commentRepo := repository.NewCommentRepository(dbConn, log)

	// The publisher goes through an interface; a typed nil must not
	// reach the services. A breaker keeps a dead broker from slowing
	// every request.
	var eventPublisher auth.EventPublisher
	if publisher != nil {
		eventPublisher = mq.NewGuardedPublisher(publisher)
	}

	authSvc := auth.NewService(userRepo, rdb, eventPublisher, cfg.JWT.Secret, log)
	projectSvc := project.NewService(projectRepo, memberRepo, userRepo, eventPublisher, log)
	ticketSvc := ticket.NewService(ticketRepo, projectRepo, userRepo, eventPublisher, log)
	commentSvc := comment.NewService(commentRepo, ticketRepo, eventPublisher, log)

	h := httpserver.Handlers{
		Auth:     handler.NewAuthHandler(authSvc, log),
		Projects: handler.NewProjectHandler(projectSvc, log),
		Tickets:  handler.NewTicketHandler(ticketSvc, log),
		Comments: handler.NewCommentHandler(commentSvc, log),
	}
	router := httpserver.NewRouter(h, authSvc, cfg.JWT.Secret, cfg.CORS, dbConn, log)

	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down bugtracker API...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("bugtracker API shutdown complete")
}
