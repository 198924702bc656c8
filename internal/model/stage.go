package model

// Stage represents where a user session is in the selection flow.
type Stage string

const (
	// StageIdle means no operation is in progress.
	StageIdle Stage = "Idle"

	// StageAwaitingOption means metadata was extracted and the user is
	// choosing between video and audio.
	StageAwaitingOption Stage = "AwaitingOption"

	// StageAwaitingQuality means the user is picking a video resolution.
	StageAwaitingQuality Stage = "AwaitingQuality"

	// StageDownloading means the pipeline is fetching streams.
	StageDownloading Stage = "Downloading"

	// StageDelivering means the final artifact is being uploaded.
	StageDelivering Stage = "Delivering"
)

// String returns the string representation of the stage.
func (s Stage) String() string {
	return string(s)
}

// IsActive returns true while an operation holds the session.
func (s Stage) IsActive() bool {
	return s == StageDownloading || s == StageDelivering
}
