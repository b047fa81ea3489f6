package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/Dosada05/officiation-system/models"
	"github.com/Dosada05/officiation-system/storage"
)

// auditBundle — полный аудиторский след матча: итог, все заявки и все
// спорные случаи с решениями.
type auditBundle struct {
	Summary *models.MatchSummary   `json:"summary"`
	Claims  []*models.KillClaim    `json:"claims"`
	Cases   []*models.ConflictCase `json:"cases"`
}

type auditService struct {
	uploader storage.FileUploader
}

// NewAuditService создаёт архиватор аудиторских данных завершённых
// матчей поверх S3-совместимого хранилища.
func NewAuditService(uploader storage.FileUploader) AuditArchiver {
	return &auditService{uploader: uploader}
}

func (s *auditService) ArchiveMatch(ctx context.Context, summary *models.MatchSummary, claims []*models.KillClaim, cases []*models.ConflictCase) error {
	bundle := auditBundle{Summary: summary, Claims: claims, Cases: cases}

	payload, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal audit bundle for match %d: %w", summary.MatchID, err)
	}

	key := fmt.Sprintf("audits/match_%d.json", summary.MatchID)
	if _, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(payload)); err != nil {
		return fmt.Errorf("failed to upload audit bundle for match %d: %w", summary.MatchID, err)
	}
	return nil
}
