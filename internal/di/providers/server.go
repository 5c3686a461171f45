package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/samber/do/v2"

	"github.com/memoraapp/memora/internal/api"
	"github.com/memoraapp/memora/internal/config"
	"github.com/memoraapp/memora/internal/logger"
)

const (
	apiVersion = "1.0.0"

	// shutdownTimeout is the maximum time to wait for in-flight requests.
	shutdownTimeout = 30 * time.Second
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the normal-mode HTTP server and starts it in the
// background.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*IndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	handler := api.NewServer(api.Config{
		Title:       "Memora",
		Version:     apiVersion,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, storeHandle.Store, indexHandle.Index, log.Component("api"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
