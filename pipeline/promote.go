package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"flightprice/registry"
)

// ErrPromotionVerification means the alias re-read after assignment did
// not point at the promoted version.
var ErrPromotionVerification = errors.New("promotion verification failed")

// reloadClient is the short-deadline client for the best-effort serving
// notification.
var reloadClient = &http.Client{Timeout: 10 * time.Second}

// Promote points alias at the given version and verifies the assignment
// by reading it back. Re-promoting the version the alias already points
// at succeeds without change.
func Promote(ctx context.Context, client registry.Client, name, version, alias string, logger *zap.SugaredLogger) error {
	if _, err := client.GetModelVersion(ctx, name, version); err != nil {
		return fmt.Errorf("resolve %s version %s: %w", name, version, err)
	}
	if err := client.SetAlias(ctx, name, alias, version); err != nil {
		return fmt.Errorf("set alias %s: %w", alias, err)
	}

	resolved, err := client.GetVersionByAlias(ctx, name, alias)
	if err != nil {
		return fmt.Errorf("%w: alias %s unreadable after assignment: %v", ErrPromotionVerification, alias, err)
	}
	if resolved.Version != version {
		return fmt.Errorf("%w: alias %s points at version %s, expected %s",
			ErrPromotionVerification, alias, resolved.Version, version)
	}

	logger.Infow("model promoted", "model", name, "version", version, "alias", alias)
	return nil
}

// NotifyReload asks a running serving instance to pick up the newly
// promoted alias. The promotion has already succeeded at this point, so
// failures are logged and swallowed; the instance converges on its next
// restart or reload.
func NotifyReload(apiURL, alias string, logger *zap.SugaredLogger) {
	target := fmt.Sprintf("%s/reload?alias=%s", apiURL, url.QueryEscape(alias))
	resp, err := reloadClient.Post(target, "application/json", nil)
	if err != nil {
		logger.Warnw("serving reload notification failed", "url", target, "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		logger.Warnw("serving reload rejected", "url", target, "status", resp.StatusCode)
		return
	}
	logger.Infow("serving instance reloaded", "alias", alias)
}
