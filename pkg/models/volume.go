package models

import (
	"math"
	"math/bits"
)

const percentScale = 100

// VolumeUsage represents space information for the filesystem holding a root.
type VolumeUsage struct {
	Root       string `json:"root"`
	TotalBytes uint64 `json:"total_bytes"` // Size of volume
	UsedBytes  uint64 `json:"used_bytes"`  // Bytes in use, reserved blocks included
	FreeBytes  uint64 `json:"free_bytes"`  // Bytes available to this process
}

// UsedPercent returns the used share of the volume as an integer percentage.
func (u VolumeUsage) UsedPercent() int {
	return Percent(u.UsedBytes, u.TotalBytes)
}

// FreePercent returns the free share of the volume as an integer percentage.
func (u VolumeUsage) FreePercent() int {
	return Percent(u.FreeBytes, u.TotalBytes)
}

// Percent returns round(part/total*100) with ties rounded away from zero.
// The division is exact, so 12.5% is always 13. A zero total yields 0.
func Percent(part, total uint64) int {
	if total == 0 {
		return 0
	}

	hi, lo := bits.Mul64(part, percentScale)
	if hi >= total {
		// part is wildly larger than total; precision no longer matters.
		return int(math.Round(float64(part) / float64(total) * percentScale))
	}

	q, r := bits.Div64(hi, lo, total)
	if r >= total-r {
		q++
	}
	return int(q) //nolint:gosec // bounded by part/total*100
}
