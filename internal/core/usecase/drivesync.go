package usecase

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/askdesk/knowledge-assistant/internal/core/domain"
	"github.com/askdesk/knowledge-assistant/internal/core/ports"
)

// DriveSyncUseCase pulls documents from an external drive library into the
// ingestion pipeline. Login runs the provider's authorization-code flow; Sync
// walks the library with per-item isolation, so one bad file never stops the
// rest.
type DriveSyncUseCase struct {
	drive    ports.RemoteDrive
	ingestor ports.DocumentIngestor
}

func NewDriveSyncUseCase(drive ports.RemoteDrive, ingestor ports.DocumentIngestor) *DriveSyncUseCase {
	return &DriveSyncUseCase{drive: drive, ingestor: ingestor}
}

func (uc *DriveSyncUseCase) LoginURL() string {
	return uc.drive.LoginURL("drive-sync")
}

// CompleteLogin trades the authorization code for an access token and verifies
// it by reading the signed-in user's profile.
func (uc *DriveSyncUseCase) CompleteLogin(ctx context.Context, code string) (string, string, error) {
	token, err := uc.drive.ExchangeCode(ctx, code)
	if err != nil {
		return "", "", err
	}
	name, err := uc.drive.UserDisplayName(ctx, token)
	if err != nil {
		return "", "", err
	}
	return token, name, nil
}

// Sync lists the library and feeds every supported file into the ingestion
// pipeline. Unsupported extensions are skipped silently; download or upload
// failures are reported per file.
func (uc *DriveSyncUseCase) Sync(ctx context.Context, accessToken string) ([]domain.UploadItemResult, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "drive_sync", errors.New("access token is required"))
	}

	files, err := uc.drive.ListFiles(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	results := make([]domain.UploadItemResult, 0, len(files))
	for _, file := range files {
		ext := strings.ToLower(filepath.Ext(file.Name))
		if _, ok := allowedUploadTypes[ext]; !ok {
			slog.Debug("drive sync skipping unsupported file", "filename", file.Name)
			continue
		}

		body, err := uc.drive.OpenFile(ctx, accessToken, file.ID)
		if err != nil {
			if domain.IsKind(err, domain.ErrUnauthorized) {
				return results, err
			}
			results = append(results, domain.UploadItemResult{Filename: file.Name, Error: err.Error()})
			continue
		}

		doc, err := uc.ingestor.Upload(ctx, file.Name, file.MimeType, body)
		body.Close()
		if err != nil {
			results = append(results, domain.UploadItemResult{Filename: file.Name, Error: err.Error()})
			continue
		}
		results = append(results, domain.UploadItemResult{
			Filename:   file.Name,
			DocumentID: doc.ID,
			Success:    true,
		})
	}
	return results, nil
}
