package orchestrator

import (
	"sanitier/pkg/config"
	"sanitier/pkg/models"
)

// Conditions are the three facts an action is chosen from.
type Conditions struct {
	BackupOverThreshold  bool
	ArchiveHasRoom       bool
	ArchiveOverThreshold bool
}

// Evaluate derives the decision inputs from two usage samples.
func Evaluate(backup, archive models.VolumeUsage, th config.Thresholds) Conditions {
	return Conditions{
		BackupOverThreshold:  backup.UsedPercent() > th.BackupUsagePercent,
		ArchiveHasRoom:       backup.UsedBytes < archive.FreeBytes,
		ArchiveOverThreshold: archive.UsedPercent() > th.SANUsagePercent,
	}
}

// Action picks the step for a run. Rules are checked in order and the first
// match wins:
//
//	backup over, archive has room      -> migrate
//	backup under, archive over         -> clean
//	backup over, archive lacks room    -> clean then migrate
//	anything else                      -> none
func (c Conditions) Action() models.Action {
	switch {
	case c.BackupOverThreshold && c.ArchiveHasRoom:
		return models.ActionMigrate
	case !c.BackupOverThreshold && c.ArchiveOverThreshold:
		return models.ActionClean
	case c.BackupOverThreshold && !c.ArchiveHasRoom:
		return models.ActionCleanThenMigrate
	default:
		return models.ActionNone
	}
}

// Decide is Evaluate followed by Action.
func Decide(backup, archive models.VolumeUsage, th config.Thresholds) models.Action {
	return Evaluate(backup, archive, th).Action()
}
