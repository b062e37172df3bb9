package render

// AssetKind distinguishes still images from sub-video clips.
type AssetKind string

const (
	AssetImage AssetKind = "image"
	AssetClip  AssetKind = "clip"
)

// Asset is one rendered visual, owned by the cache.
type Asset struct {
	Path     string
	Kind     AssetKind
	Duration float64
}

// Cache version tags. Bumping one invalidates every cached entry of that
// type without touching the others.
const (
	slideVersion    = "slide_v2"
	diagramVersion  = "diagram_v2"
	animatedVersion = "animated_v1"
)
