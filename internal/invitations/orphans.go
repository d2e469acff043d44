package invitations

import (
	"context"

	"agenthq-backend/internal/directory"
	"agenthq-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// selfHeal strips rsvps and pending invitations referencing a vanished target
// from the agent's metadata, and sweeps matching rows out of the local record
// store. It runs on the failure path of accept/reject/create/rescind so stale
// references are cleaned on next touch instead of accumulating; the calling
// operation still reports its failure.
func (s *Service) selfHeal(ctx context.Context, profile *directory.Profile, targetID string) {
	if profile != nil && profile.Metadata.PurgeTarget(targetID) {
		if _, err := s.Directory.UpdateMetadata(ctx, profile.AgentID, profile.Metadata); err != nil {
			log.Warn().Err(err).Str("agent", profile.AgentID).Str("target", targetID).Msg("Orphan cleanup failed")
		} else {
			log.Info().Str("agent", profile.AgentID).Str("target", targetID).Msg("Orphaned invitation references removed")
		}
	}

	res := s.DB.WithContext(ctx).Where("uuid = ?", targetID).Delete(&models.Invitation{})
	if res.Error != nil {
		log.Warn().Err(res.Error).Str("target", targetID).Msg("Orphan row sweep failed")
	} else if res.RowsAffected > 0 {
		log.Info().Int64("rows", res.RowsAffected).Str("target", targetID).Msg("Orphaned invitation rows removed")
	}
}
