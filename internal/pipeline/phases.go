package pipeline

// Phase names the three pipeline stages in execution order.
type Phase struct {
	Name        string
	Number      int
	Description string
}

var (
	phaseAssets = Phase{
		Name:        "asset_rendering",
		Number:      1,
		Description: "Rendering visual assets",
	}
	phaseAudio = Phase{
		Name:        "audio_synthesis",
		Number:      2,
		Description: "Synthesizing dialogue audio",
	}
	phaseVideo = Phase{
		Name:        "video_composition",
		Number:      3,
		Description: "Composing final video",
	}
)

const totalPhases = 3
