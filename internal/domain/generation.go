package domain

import (
	"strings"
	"time"
)

// AspectRatio enumerates the output shapes offered to the UI.
type AspectRatio string

const (
	AspectSquare    AspectRatio = "1:1"
	AspectPortrait  AspectRatio = "9:16"
	AspectLandscape AspectRatio = "16:9"
	AspectPhoto     AspectRatio = "3:4"
	AspectWide      AspectRatio = "4:3"
)

// NormalizeAspectRatio sanitizes free-form input into a supported ratio.
func NormalizeAspectRatio(raw string) AspectRatio {
	switch strings.TrimSpace(raw) {
	case string(AspectPortrait):
		return AspectPortrait
	case string(AspectLandscape):
		return AspectLandscape
	case string(AspectPhoto):
		return AspectPhoto
	case string(AspectWide):
		return AspectWide
	default:
		return AspectSquare
	}
}

// GenerationRequest is a normalized image generation request. It is immutable
// once submitted to a provider.
type GenerationRequest struct {
	Prompt      string
	AspectRatio AspectRatio
	Seed        *int64
	Provider    string
	Model       string
	Quality     string
	RequestID   string
}

// GenerationResult is the terminal outcome of a successful generation.
// ResultURL is always non-empty; Seed carries the seed the backend actually
// used when it reports one.
type GenerationResult struct {
	ResultURL string
	Seed      *int64
	Duration  time.Duration
}

// Generation is a history record of one completed (or failed) generation.
type Generation struct {
	ID           string
	Prompt       string
	Provider     string
	Model        string
	AspectRatio  AspectRatio
	Seed         *int64
	ResultURL    string
	StorageKey   string
	ErrorMessage string
	CreatedAt    time.Time
}
