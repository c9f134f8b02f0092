//go:build !linux

package volume

import (
	"errors"

	"sanitier/pkg/models"
)

// StatfsStatter is only implemented on Linux.
type StatfsStatter struct{}

// Stat implements Statter.
func (StatfsStatter) Stat(string) (models.VolumeUsage, error) {
	return models.VolumeUsage{}, errors.ErrUnsupported
}
