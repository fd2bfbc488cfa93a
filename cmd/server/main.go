package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"blog-admin/internal/config"
	"blog-admin/internal/factory"
	"blog-admin/internal/handler"
	"blog-admin/internal/metrics"
	"blog-admin/internal/util"
)

func main() {
	cfg := config.LoadConfig()
	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)
	defer util.Sync()

	if err := cfg.Validate(); err != nil {
		util.Fatal("Invalid configuration", util.ErrorField(err))
	}

	metrics.Init()

	f, err := factory.NewFactory(cfg)
	if err != nil {
		util.Fatal("Failed to initialize factory", util.ErrorField(err))
	}
	defer f.Close()

	router := setupRouter(f)

	var serverAddr string
	if cfg.Server.EnableTLS {
		serverAddr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.TLSPort)
	} else {
		serverAddr = cfg.GetServerAddress()
	}

	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	var redirectServer *http.Server
	if cfg.Server.EnableTLS {
		tlsManager := f.TLSManager()
		server.TLSConfig = tlsManager.GetTLSConfig()

		// Plain listener answers ACME challenges and redirects to HTTPS.
		redirectServer = &http.Server{
			Addr:              cfg.GetServerAddress(),
			Handler:           tlsManager.HTTPHandler(http.HandlerFunc(redirectToHTTPS(cfg.Server.TLSPort))),
			ReadHeaderTimeout: 5 * time.Second,
		}

		util.Info("Starting HTTPS server",
			util.String("environment", cfg.Environment),
			util.Int("port", cfg.Server.TLSPort),
			util.Bool("auto_cert", cfg.Server.AutoCert),
		)
	} else {
		util.Warn("Starting HTTP server - TLS is disabled",
			util.String("environment", cfg.Environment),
			util.Int("port", cfg.Server.Port),
		)
	}

	startServer(f, server, redirectServer)
}

// setupRouter builds the HTTP surface from the factory's services.
func setupRouter(f *factory.Factory) http.Handler {
	cfg := f.Config()
	services := f.ServiceFactory()

	// A nil *RateLimitCache must not become a non-nil interface.
	var limiter handler.LoginLimiter
	if l := f.LoginLimiter(); l != nil {
		limiter = l
	}

	gate := handler.NewGate(f.Issuer())
	authHandler := handler.NewAuthHandler(services.AuthService(), services.PasswordService(), f.Issuer(), limiter)
	adminHandler := handler.NewAdminHandler(gate)

	return handler.NewRouter(handler.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequireHTTPS:   cfg.IsProduction(),
	}, gate, authHandler, adminHandler, f, util.Get())
}

func redirectToHTTPS(tlsPort int) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.Host)
		if err != nil {
			host = r.Host
		}
		if tlsPort != 443 {
			host = net.JoinHostPort(host, strconv.Itoa(tlsPort))
		}
		http.Redirect(w, r, "https://"+host+r.URL.RequestURI(), http.StatusPermanentRedirect)
	}
}

func startServer(f *factory.Factory, server, redirectServer *http.Server) {
	if redirectServer != nil {
		go func() {
			util.Info("Starting HTTP redirect server", util.String("address", redirectServer.Addr))
			if err := redirectServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				util.Error("HTTP redirect server failed", util.ErrorField(err))
			}
		}()
	}

	go func() {
		var err error
		if server.TLSConfig != nil {
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			util.Fatal("Server failed to start", util.ErrorField(err))
		}
	}()

	util.Info("Server started successfully",
		util.Bool("tls_enabled", server.TLSConfig != nil),
		util.String("address", server.Addr),
	)

	waitForShutdown(f, server, redirectServer)
}

func waitForShutdown(f *factory.Factory, servers ...*http.Server) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	sig := <-signalChan
	util.Info("Received shutdown signal", util.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, srv := range servers {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil {
			util.Error("Failed to shutdown server gracefully", util.ErrorField(err))
		} else {
			util.Info("Server shutdown completed", util.String("address", srv.Addr))
		}
	}
	if err := f.Close(); err != nil {
		util.Error("Factory close reported errors", util.ErrorField(err))
	}
}
