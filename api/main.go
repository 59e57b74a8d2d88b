package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const version = "1.0.0"

type config struct {
	port int
	env  string
	db   struct {
		dsn                string
		maxOpenConnections int
		maxIdleConnections int
		maxIdleTime        time.Duration
	}
	smtp struct {
		host     string
		port     int
		username string
		password string
		sender   string
	}
	cors struct {
		trustedOrigins []string
	}
	jwt struct {
		secret string
		ttl    time.Duration
	}
}

type application struct {
	config  config
	storage storage
	mailer  *mailer
}

func setupLogger() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

func main() {
	setupLogger()

	// a .env file is optional; real deployments set the environment directly
	godotenv.Load()

	var cfg config
	flag.IntVar(&cfg.port, "port", 8000, "Server Port")
	flag.StringVar(&cfg.env, "env", "development", "Environment [development|production]")

	flag.StringVar(&cfg.db.dsn, "db-dsn", os.Getenv("DB_DSN"), "PostgreSQL DSN")
	flag.IntVar(&cfg.db.maxOpenConnections, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.IntVar(&cfg.db.maxIdleConnections, "db-max-idle-conns", 25, "PostgreSQL max idle connections")
	var maxIdleTime string
	flag.StringVar(&maxIdleTime, "db-max-idle-time", "15m", "PostgreSQL max connection idle time")

	flag.StringVar(&cfg.smtp.host, "smtp-host", os.Getenv("SMTP_HOST"), "SMTP host")
	smtpPort := 25
	if p := os.Getenv("SMTP_PORT"); p != "" {
		var err error
		smtpPort, err = strconv.Atoi(p)
		if err != nil {
			slog.Error("invalid SMTP_PORT", "value", p)
			os.Exit(1)
		}
	}
	flag.IntVar(&cfg.smtp.port, "smtp-port", smtpPort, "SMTP port")
	flag.StringVar(&cfg.smtp.username, "smtp-username", os.Getenv("SMTP_USERNAME"), "SMTP username")
	flag.StringVar(&cfg.smtp.password, "smtp-password", os.Getenv("SMTP_PASSWORD"), "SMTP password")
	flag.StringVar(&cfg.smtp.sender, "smtp-sender", os.Getenv("SMTP_SENDER"), "SMTP sender")

	var trustedOrigins string
	flag.StringVar(&trustedOrigins, "cors-trusted-origins", os.Getenv("CORS_TRUSTED_ORIGINS"), "Trusted CORS origins (comma separated)")

	flag.StringVar(&cfg.jwt.secret, "jwt-secret", os.Getenv("JWT_SECRET"), "JWT secret")
	var tokenTTL string
	flag.StringVar(&tokenTTL, "token-ttl", "20m", "Access token lifetime")
	flag.Parse()

	d, err := time.ParseDuration(maxIdleTime)
	if err != nil {
		cfg.db.maxIdleTime = 15 * time.Minute
		slog.Warn("invalid value for flag db-max-idle-time, using default", "value", maxIdleTime, "default", cfg.db.maxIdleTime.String())
	} else {
		cfg.db.maxIdleTime = d
	}

	cfg.jwt.ttl, err = time.ParseDuration(tokenTTL)
	if err != nil {
		cfg.jwt.ttl = 20 * time.Minute
		slog.Warn("invalid value for flag token-ttl, using default", "value", tokenTTL, "default", cfg.jwt.ttl.String())
	}

	if trustedOrigins != "" {
		cfg.cors.trustedOrigins = strings.Split(trustedOrigins, ",")
	}

	// tokens signed with a random per-process secret become invalid on
	// restart; set JWT_SECRET to keep them across restarts
	if cfg.jwt.secret == "" {
		secret := make([]byte, 32)
		_, err = rand.Read(secret)
		if err != nil {
			slog.Error("generating jwt secret failed", "error", err)
			os.Exit(1)
		}
		cfg.jwt.secret = string(secret)
	}

	db, err := openDB(cfg)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("established a connection with database")

	err = createTables(db)
	if err != nil {
		slog.Error("schema bootstrap failed", "error", err)
		os.Exit(1)
	}

	app := &application{
		config:  cfg,
		storage: newPostgresStorage(db),
	}
	if cfg.smtp.host != "" {
		app.mailer = newMailer(cfg.smtp.host, cfg.smtp.port, cfg.smtp.username, cfg.smtp.password, cfg.smtp.sender)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.port),
		Handler:      composeRoutes(app),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	slog.Info("starting server", "env", cfg.env, "port", cfg.port)
	err = srv.ListenAndServe()
	slog.Error("server stopped", "error", err)
	os.Exit(1)
}
