package providers

import (
	"github.com/samber/do/v2"

	"github.com/memoraapp/memora/internal/config"
	apperr "github.com/memoraapp/memora/internal/errors"
	"github.com/memoraapp/memora/internal/logger"
	"github.com/memoraapp/memora/internal/remote"
)

// RemoteHandle wraps the remote content gateway client.
type RemoteHandle struct {
	*remote.Client
}

// Shutdown implements do.Shutdownable.
func (h *RemoteHandle) Shutdown() error {
	return h.Close()
}

// ProvideRemoteClient provides the remote gateway client. It fails when no
// remote base URL is configured.
func ProvideRemoteClient(i do.Injector) (*RemoteHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Remote.BaseURL == "" {
		return nil, apperr.Validation("remote.base_url is not configured")
	}

	client, err := remote.New(remote.Config{
		BaseURL:   cfg.Remote.BaseURL,
		UserID:    cfg.Remote.UserID,
		Timeout:   cfg.Remote.Timeout,
		RateLimit: cfg.Remote.RateLimit,
		Burst:     cfg.Remote.Burst,
		Breaker: remote.BreakerConfig{
			MaxFailures: cfg.Remote.Breaker.MaxFailures,
			Timeout:     cfg.Remote.Breaker.Timeout,
		},
	}, log.Component("remote"))
	if err != nil {
		return nil, err
	}

	log.Info("Remote gateway configured", "base_url", cfg.Remote.BaseURL, "user_id", cfg.Remote.UserID)
	return &RemoteHandle{Client: client}, nil
}
