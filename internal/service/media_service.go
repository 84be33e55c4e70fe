package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"cityfix-service/internal/model"
)

var allowedImageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// MediaService stores ticket photos on the local filesystem under
// <uploadDir>/<ticket id>/.
type MediaService struct {
	tickets     TicketRepository
	media       MediaRepository
	uploadDir   string
	maxFileSize int64
	log         zerolog.Logger
}

func NewMediaService(tickets TicketRepository, media MediaRepository, uploadDir string, maxFileSize int64, log zerolog.Logger) *MediaService {
	return &MediaService{
		tickets:     tickets,
		media:       media,
		uploadDir:   uploadDir,
		maxFileSize: maxFileSize,
		log:         log,
	}
}

// Upload validates the image by extension and content and stores it for a
// ticket the principal can see.
func (s *MediaService) Upload(ctx context.Context, principal model.Principal, ticketID uuid.UUID, filename string, r io.Reader) (*model.MediaFile, error) {
	if _, err := s.visibleTicket(ctx, principal, ticketID); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	wantMime, ok := allowedImageTypes[ext]
	if !ok {
		return nil, fmt.Errorf("%w: file type %q is not allowed", ErrValidation, ext)
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrValidation, s.maxFileSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrValidation)
	}

	detected := mimetype.Detect(data)
	if !detected.Is(wantMime) {
		return nil, fmt.Errorf("%w: content is %s, expected %s", ErrValidation, detected.String(), wantMime)
	}

	dir := filepath.Join(s.uploadDir, ticketID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	stored := uuid.NewString() + ext
	path := filepath.Join(dir, stored)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write media file: %w", err)
	}

	media := &model.MediaFile{
		TicketID:       ticketID,
		UploadedBy:     principal.UserID,
		Filename:       filepath.Base(filename),
		StoredFilename: stored,
		MimeType:       wantMime,
		Size:           int64(len(data)),
	}
	if err := s.media.Create(ctx, media); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("path", path).Msg("failed to remove orphaned media file")
		}
		return nil, err
	}

	s.log.Info().
		Str("media_id", media.ID.String()).
		Str("ticket_id", ticketID.String()).
		Int64("size", media.Size).
		Msg("media uploaded")
	return media, nil
}

func (s *MediaService) List(ctx context.Context, principal model.Principal, ticketID uuid.UUID) ([]model.MediaFile, error) {
	if _, err := s.visibleTicket(ctx, principal, ticketID); err != nil {
		return nil, err
	}
	return s.media.ListByTicketID(ctx, ticketID)
}

// Open returns the media record and the path of its file on disk.
func (s *MediaService) Open(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.MediaFile, string, error) {
	media, err := s.media.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	if _, err := s.visibleTicket(ctx, principal, media.TicketID); err != nil {
		return nil, "", err
	}

	path := filepath.Join(s.uploadDir, media.TicketID.String(), media.StoredFilename)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("%w: media file is missing", ErrNotFound)
		}
		return nil, "", err
	}
	return media, path, nil
}

func (s *MediaService) visibleTicket(ctx context.Context, principal model.Principal, ticketID uuid.UUID) (*model.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !CanView(principal, ticket) {
		return nil, ErrPermissionDenied
	}
	return ticket, nil
}
