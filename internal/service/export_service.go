package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sevaproject/booking-api/internal/models"
	appErrors "github.com/sevaproject/booking-api/pkg/errors"
	"github.com/sevaproject/booking-api/pkg/export"
	"github.com/sevaproject/booking-api/pkg/storage"
)

type exportBookingRepository interface {
	ListForClient(ctx context.Context, clientID string, filter models.BookingFilter) ([]models.Booking, int, error)
	ListForProvider(ctx context.Context, providerID string, filter models.BookingFilter) ([]models.Booking, int, error)
}

// ExportResult describes a generated report and its signed download token.
type ExportResult struct {
	FileName  string    `json:"file_name"`
	Format    string    `json:"format"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExportService renders a principal's filtered booking list into CSV or PDF
// reports stored on disk and served through signed URLs.
type ExportService struct {
	repo    exportBookingRepository
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	storage *storage.LocalStorage
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
}

// NewExportService instantiates ExportService.
func NewExportService(repo exportBookingRepository, store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		repo:    repo,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		storage: store,
		signer:  signer,
		logger:  logger,
	}
}

var exportHeaders = []string{"Date", "Service", "Client", "Provider", "Contact", "Start", "End", "State"}

// ExportBookings renders the principal's bookings matching the filter.
func (s *ExportService) ExportBookings(ctx context.Context, user *models.User, filter models.BookingFilter, format string) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	// Exports are not paginated; fetch up to the repository cap per page.
	filter.Page = 1
	filter.PageSize = 100

	var bookings []models.Booking
	var err error
	switch user.Role {
	case models.RoleClient:
		bookings, _, err = s.repo.ListForClient(ctx, user.ID, filter)
	case models.RoleProvider:
		bookings, _, err = s.repo.ListForProvider(ctx, user.ID, filter)
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only clients and providers hold bookings")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings for export")
	}

	dataset := export.Dataset{Headers: exportHeaders}
	for _, b := range bookings {
		row := map[string]string{
			"Date":     b.Date,
			"Service":  b.ServiceName,
			"Client":   b.ClientName,
			"Provider": b.ProviderName,
			"Contact":  b.ContactName,
			"State":    string(b.State),
		}
		if b.StartTime != nil {
			row["Start"] = *b.StartTime
		}
		if b.EndTime != nil {
			row["End"] = *b.EndTime
		}
		dataset.Rows = append(dataset.Rows, row)
	}

	var payload []byte
	switch format {
	case "csv":
		payload, err = s.csv.Render(dataset)
	case "pdf":
		payload, err = s.pdf.Render(dataset, "Bookings report")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	exportID := uuid.NewString()
	fileName := fmt.Sprintf("%s/bookings-%s.%s", user.ID, exportID, format)
	if _, err := s.storage.Save(fileName, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(exportID, fileName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export url")
	}

	s.logger.Info("booking export generated",
		zap.String("user_id", user.ID),
		zap.String("format", format),
		zap.Int("rows", len(dataset.Rows)))

	return &ExportResult{FileName: fileName, Format: format, Token: token, ExpiresAt: expiresAt}, nil
}

// Open validates a signed download token and opens the exported file.
func (s *ExportService) Open(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export no longer available")
	}
	return file, relPath, nil
}

// CleanupExpired removes exports older than the retention TTL.
func (s *ExportService) CleanupExpired(ttl time.Duration) {
	deleted, err := s.storage.CleanupOlderThan(ttl)
	if err != nil {
		s.logger.Warn("failed to clean up exports", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		s.logger.Info("cleaned up expired exports", zap.Int("count", len(deleted)))
	}
}
