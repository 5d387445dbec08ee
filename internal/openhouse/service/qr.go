package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sngor/bayon-backend/internal/openhouse/repository"
	"github.com/sngor/bayon-backend/platform/apperr"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

var ErrQRUnavailable = apperr.Unavailable("qr storage is not configured")

// SessionQRDownloadURL generates the check-in QR code for a session,
// stores it and returns a short-lived download link. Generation is
// cheap enough to redo on every request, which keeps the code current
// if the public base URL ever changes.
func (s *Service) SessionQRDownloadURL(ctx context.Context, userID, sessionID uuid.UUID) (string, error) {
	if s.objects == nil {
		return "", ErrQRUnavailable
	}

	session, err := s.store.GetSession(ctx, userID, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", err
	}

	png, err := qrcode.Encode(s.checkInURL(session.PublicToken), qrcode.Medium, 512)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}

	bucket := s.cfg.GetMinioBucketSessionQR()
	key := fmt.Sprintf("sessions/%s/checkin-qr.png", session.ID)
	if err := s.objects.Upload(ctx, bucket, key, "image/png", png); err != nil {
		return "", fmt.Errorf("store qr: %w", err)
	}

	link, err := s.objects.PresignedDownloadURL(ctx, bucket, key, fmt.Sprintf("%s-checkin.png", session.ID))
	if err != nil {
		return "", fmt.Errorf("presign qr download: %w", err)
	}

	return link.URL, nil
}
