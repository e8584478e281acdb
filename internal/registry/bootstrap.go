package registry

import (
	"context"

	"review_gateway/internal/providers"
)

// Bootstrap registers one provider per environment-configured kind when the
// registry is empty, and activates the first. It returns how many were
// registered.
func (s *Service) Bootstrap(ctx context.Context, available []providers.Available) (int, error) {
	if len(available) == 0 {
		return 0, nil
	}

	n, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Debug("registry not empty, skipping bootstrap", "providers", n)
		return 0, nil
	}

	var firstID string
	for _, a := range available {
		item, err := s.Create(ctx, CreateInput{
			Name:       a.Name,
			Kind:       a.Kind,
			APIKey:     a.Credentials.APIKey,
			Endpoint:   a.Credentials.Endpoint,
			Deployment: a.Credentials.Deployment,
			Model:      a.Credentials.Model,
		})
		if err != nil {
			return 0, err
		}
		if firstID == "" {
			firstID = item.ID.String()
		}
	}

	if _, err := s.Activate(ctx, firstID); err != nil {
		return 0, err
	}

	s.log.Info("registered providers from environment", "count", len(available), "active", firstID)
	return len(available), nil
}
