package services

import (
	"context"
	"time"

	"hudcast/internal/core/domain"
	"hudcast/internal/core/ports"
	apperrors "hudcast/pkg/errors"
	"hudcast/pkg/validation"

	"go.uber.org/zap"
)

type telemetryService struct {
	store   ports.TelemetryRepository
	session ports.StreamSessionService
	logger  *zap.SugaredLogger
}

// NewTelemetryService builds the location-fix service. Writes are gated on
// current seat ownership so a stale publisher cannot overwrite the live
// streamer's position.
func NewTelemetryService(store ports.TelemetryRepository, session ports.StreamSessionService, logger *zap.SugaredLogger) ports.TelemetryService {
	return &telemetryService{store: store, session: session, logger: logger}
}

func (s *telemetryService) Update(ctx context.Context, user *domain.User, t domain.Telemetry) error {
	if err := validation.ValidateCoordinates(t.Lat, t.Lon); err != nil {
		return apperrors.BadRequest(err.Error())
	}
	if t.HeadingDeg != nil {
		if err := validation.ValidateHeading(*t.HeadingDeg); err != nil {
			return apperrors.BadRequest(err.Error())
		}
	}
	if t.AccuracyM != nil && *t.AccuracyM < 0 {
		return apperrors.BadRequest("accuracy must be non-negative")
	}

	// State() applies the expiry policy first, so a publisher whose
	// heartbeat lapsed is rejected here even before its client notices.
	st, err := s.session.State(ctx)
	if err != nil {
		return err
	}
	if !st.OwnedBy(user.ID) {
		return domain.ErrNotStreamer
	}

	t.UpdatedAt = time.Now()
	return s.store.Put(ctx, &t)
}

func (s *telemetryService) Latest(ctx context.Context) (*domain.Telemetry, error) {
	return s.store.Latest(ctx)
}
