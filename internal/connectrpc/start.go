package connectrpc

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	pkgLogger "github.com/fpt/cobrowse/pkg/logger"
)

// NewMux mounts the service and, when site is non-nil, the portfolio site at "/".
func NewMux(server *CobrowseServer, site http.Handler) *http.ServeMux {
	path, handler := NewHandler(server)
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	if site != nil {
		mux.Handle("/", site)
	}
	return mux
}

// StartServer starts the Connect HTTP/2 server and blocks until ctx is cancelled.
func StartServer(ctx context.Context, addr string, server *CobrowseServer, site http.Handler, logger *pkgLogger.Logger) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: h2c.NewHandler(NewMux(server, site), &http2.Server{}),
	}

	// Graceful shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		server.Close()
	}()

	logger.InfoWithIntention(pkgLogger.IntentionTransport, "Connect server listening", "addr", addr, "site", site != nil)
	fmt.Printf("cobrowse server listening on %s\n", addr)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
