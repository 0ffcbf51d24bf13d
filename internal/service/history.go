package service

import (
	"sort"
	"time"

	"github.com/noah-isme/seniku-go-api/internal/dto"
	"github.com/noah-isme/seniku-go-api/internal/models"
)

// ReconstructHistory merges stored revision snapshots with the live image into one
// version-ascending timeline. The live image appears exactly once: either it matches the
// highest snapshot, which is then flagged current, or it is appended at the next version.
func ReconstructHistory(current models.ImageSet, currentTimestamp time.Time, revisions []models.SubmissionRevision) []dto.ImageHistoryEntry {
	ordered := make([]models.SubmissionRevision, 0, len(revisions))
	seen := make(map[int]struct{}, len(revisions))
	for _, revision := range revisions {
		if _, dup := seen[revision.Version]; dup {
			continue
		}
		seen[revision.Version] = struct{}{}
		ordered = append(ordered, revision)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Version < ordered[j].Version
	})

	history := make([]dto.ImageHistoryEntry, 0, len(ordered)+1)
	for _, revision := range ordered {
		history = append(history, dto.ImageHistoryEntry{
			Version:           revision.Version,
			ImageURL:          revision.ImageURL,
			ImageMediumURL:    revision.ImageMediumURL,
			ImageThumbnailURL: revision.ImageThumbnailURL,
			RevisionNote:      revision.RevisionNote,
			SubmittedAt:       revision.SubmittedAt,
		})
	}

	if current.IsZero() {
		return history
	}

	if n := len(ordered); n > 0 && ordered[n-1].SameImage(current) {
		history[n-1].IsCurrent = true
		return history
	}

	next := 1
	if n := len(ordered); n > 0 {
		next = ordered[n-1].Version + 1
	}

	return append(history, dto.ImageHistoryEntry{
		Version:           next,
		ImageURL:          current.ImageURL,
		ImageMediumURL:    current.ImageMediumURL,
		ImageThumbnailURL: current.ImageThumbnailURL,
		SubmittedAt:       currentTimestamp,
		IsCurrent:         true,
	})
}

func nextRevisionVersion(revisions []models.SubmissionRevision) int {
	highest := 0
	for _, revision := range revisions {
		if revision.Version > highest {
			highest = revision.Version
		}
	}
	return highest + 1
}

func hasRevisionVersion(revisions []models.SubmissionRevision, version int) bool {
	for _, revision := range revisions {
		if revision.Version == version {
			return true
		}
	}
	return false
}

func latestRevision(revisions []models.SubmissionRevision) (models.SubmissionRevision, bool) {
	var latest models.SubmissionRevision
	found := false
	for _, revision := range revisions {
		if !found || revision.Version > latest.Version {
			latest = revision
			found = true
		}
	}
	return latest, found
}
