package models

// VolumeStatus is the HTTP view of one monitored volume.
type VolumeStatus struct {
	VolumeUsage
	UsedPercent      int `json:"used_percent"`
	FreePercent      int `json:"free_percent"`
	ThresholdPercent int `json:"threshold_percent"`
}

// VolumesResponse reports both monitored volumes.
type VolumesResponse struct {
	Backup  VolumeStatus `json:"backup"`
	Archive VolumeStatus `json:"archive"`
}

// NewVolumeStatus builds the HTTP view of a usage sample.
func NewVolumeStatus(usage VolumeUsage, threshold int) VolumeStatus {
	return VolumeStatus{
		VolumeUsage:      usage,
		UsedPercent:      usage.UsedPercent(),
		FreePercent:      usage.FreePercent(),
		ThresholdPercent: threshold,
	}
}
