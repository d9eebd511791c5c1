package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"lrs-tracker/internal/models"
	"lrs-tracker/internal/repository"
	"lrs-tracker/internal/utils"
)

// EnsureBootstrapClient registers a super client with the given
// credentials unless a client with that id already exists. It does
// nothing when either credential is empty.
func EnsureBootstrapClient(ctx context.Context, clients repository.ClientStore, clientID, secret string) (bool, error) {
	if clientID == "" || secret == "" {
		return false, nil
	}

	_, err := clients.FindByClientID(ctx, clientID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrClientNotFound) {
		return false, fmt.Errorf("failed to look up bootstrap client: %w", err)
	}

	hash, err := utils.HashSecret(secret)
	if err != nil {
		return false, fmt.Errorf("failed to hash bootstrap secret: %w", err)
	}

	if err := clients.Create(ctx, &models.Client{
		ClientID:   clientID,
		SecretHash: hash,
		Role:       models.RoleSuper,
	}); err != nil {
		return false, err
	}

	slog.InfoContext(ctx, "bootstrap client created", "client_id", clientID)
	return true, nil
}
