package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dukerupert/choreledger/internal/backup"
	"github.com/dukerupert/choreledger/internal/chore"
	"github.com/dukerupert/choreledger/internal/config"
	"github.com/dukerupert/choreledger/internal/finance"
	"github.com/dukerupert/choreledger/internal/handler"
	"github.com/dukerupert/choreledger/internal/middleware"
	"github.com/dukerupert/choreledger/internal/push"
	"github.com/dukerupert/choreledger/internal/store"
	"github.com/dukerupert/choreledger/internal/transfer"
	ws "github.com/dukerupert/choreledger/internal/websocket"
)

// Requests per minute and client IP on the bearer-protected routes.
const adminRateLimit = 10

type Server struct {
	db     *sql.DB
	cfg    config.Config
	hub    *ws.Hub
	logger *slog.Logger

	userH     *handler.UserHandler
	choreH    *handler.ChoreHandler
	transferH *handler.TransferHandler
	financeH  *handler.FinanceHandler
	pushH     *handler.PushHandler
	backupH   *handler.BackupHandler

	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	reminder      *push.Reminder
	pushScheduler *push.Scheduler
}

func New(db *sql.DB, cfg config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger)

	choreSvc := chore.NewService(db, logger)
	transferSvc := transfer.NewService(db, logger)
	financeSvc := finance.NewService(db, logger)

	pushSvc := push.NewService(db, push.Config{
		VAPIDPublicKey:  cfg.Push.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.Push.VAPIDPrivateKey,
		Subscriber:      cfg.Push.Subscriber,
	}, logger)
	reminder := push.NewReminder(db, pushSvc, cfg.Push.ReminderWindow, logger)

	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.Backup.Endpoint,
			Bucket:    cfg.Backup.Bucket,
			Region:    cfg.Backup.Region,
			AccessKey: cfg.Backup.AccessKey,
			SecretKey: cfg.Backup.SecretKey,
		},
		Prefix:        cfg.Backup.Prefix,
		Passphrase:    cfg.Backup.Passphrase,
		RetentionDays: cfg.Backup.RetentionDays,
	}, db, func(s backup.Status) {
		hub.Broadcast(ws.NewMessage(ws.EntityBackup, string(s.State), 0, map[string]any{
			"error": s.Error,
		}))
	}, logger)

	return &Server{
		db:     db,
		cfg:    cfg,
		hub:    hub,
		logger: logger,

		userH:     handler.NewUserHandler(store.NewUserStore(db), choreSvc, hub, logger.With("component", "user_handler")),
		choreH:    handler.NewChoreHandler(choreSvc, hub, logger.With("component", "chore_handler")),
		transferH: handler.NewTransferHandler(transferSvc, hub, logger.With("component", "transfer_handler")),
		financeH:  handler.NewFinanceHandler(financeSvc, hub, logger.With("component", "finance_handler")),
		pushH:     handler.NewPushHandler(pushSvc, reminder, logger.With("component", "push_handler")),
		backupH:   handler.NewBackupHandler(backupMgr, hub, logger.With("component", "backup_handler")),

		rateLimiter:   middleware.NewRateLimiter(adminRateLimit, time.Minute),
		backupManager: backupMgr,
		reminder:      reminder,
		pushScheduler: push.NewScheduler(reminder, cfg.Push.ReminderInterval),
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// PushScheduler returns the in-process reminder scheduler.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.cfg.AllowedOrigins))

	s.registerAPIRoutes(mux)

	var h http.Handler = mux
	h = chimw.Recoverer(h)
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	h = chimw.RequestID(h)
	return h
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// adminHandler limits h per client IP and requires the cron secret.
func (s *Server) adminHandler(h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.rateLimiter)(middleware.RequireBearer(s.cfg.CronSecret)(h))
}

func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	// Users
	mux.HandleFunc("GET /api/users", s.userH.List)
	mux.HandleFunc("POST /api/users", s.userH.Create)
	mux.HandleFunc("PUT /api/users/{id}", s.userH.Update)
	mux.HandleFunc("GET /api/users/{id}/dashboard", s.userH.Dashboard)
	mux.HandleFunc("GET /api/leaderboard", s.userH.Leaderboard)

	// Chores
	mux.HandleFunc("GET /api/chores", s.choreH.List)
	mux.HandleFunc("POST /api/chores", s.choreH.Create)
	mux.HandleFunc("PUT /api/chores/{id}", s.choreH.Update)
	mux.HandleFunc("DELETE /api/chores/{id}", s.choreH.Delete)
	mux.HandleFunc("POST /api/instances/{id}/complete", s.choreH.Complete)
	mux.HandleFunc("POST /api/instances/{id}/uncomplete", s.choreH.Uncomplete)
	mux.HandleFunc("GET /api/calendar", s.choreH.Calendar)

	// Transfers
	mux.HandleFunc("POST /api/instances/{id}/transfers", s.transferH.Request)
	mux.HandleFunc("POST /api/transfers/{id}/respond", s.transferH.Respond)
	mux.HandleFunc("GET /api/users/{id}/transfers", s.transferH.Incoming)

	// Expenses and budgets
	mux.HandleFunc("POST /api/expenses", s.financeH.CreateExpense)
	mux.HandleFunc("GET /api/expenses/recent", s.financeH.Recent)
	mux.HandleFunc("GET /api/balances", s.financeH.Balances)
	mux.HandleFunc("GET /api/budgets", s.financeH.ListBudgets)
	mux.HandleFunc("PUT /api/budgets", s.financeH.SetBudget)
	mux.HandleFunc("PUT /api/budgets/{id}", s.financeH.UpdateBudget)
	mux.HandleFunc("GET /api/insights", s.financeH.Insights)
	mux.HandleFunc("GET /api/insights/categories", s.financeH.Categories)
	mux.HandleFunc("GET /api/insights/trend", s.financeH.Trend)

	// Push
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("DELETE /api/users/{id}/push", s.pushH.Unsubscribe)
	mux.HandleFunc("POST /api/users/{id}/push/test", s.pushH.TestNotification)

	// Operator endpoints
	mux.Handle("POST /api/cron/reminders", s.adminHandler(s.pushH.Reminders))
	mux.Handle("POST /api/backups", s.adminHandler(s.backupH.Run))
	mux.Handle("GET /api/backups", s.adminHandler(s.backupH.List))
}
