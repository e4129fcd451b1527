package moderation

import (
	"log/slog"
	"strconv"
	"strings"
)

// Setting keys read by the pipeline and the state machine.
const (
	SettingConfidenceThreshold   = "confidence_threshold"
	SettingStrictnessLevel       = "strictness_level"
	SettingTextPrompt            = "ai_text_prompt"
	SettingImagePrompt           = "ai_image_prompt"
	SettingMaxImagesAnalyzed     = "max_images_analyzed"
	SettingMaxStrikesBeforeBan   = "max_strikes_before_ban"
	SettingMaxAppealsPerListing  = "max_appeals_per_listing"
	SettingMinAppealReasonLength = "min_appeal_reason_length"
	SettingAutoModeration        = "auto_moderation_enabled"
)

// Strictness levels.
const (
	StrictnessLow    = "low"
	StrictnessMedium = "medium"
	StrictnessHigh   = "high"
)

// MaxImagesAnalyzed is the hard cap on images sent to the classifier per listing.
const MaxImagesAnalyzed = 8

// Policy is a snapshot of the moderation settings, read once per run.
type Policy struct {
	ConfidenceThreshold   int    `json:"confidence_threshold"`
	Strictness            string `json:"strictness_level"`
	TextPrompt            string `json:"ai_text_prompt"`
	ImagePrompt           string `json:"ai_image_prompt"`
	MaxImages             int    `json:"max_images_analyzed"`
	MaxStrikesBeforeBan   int    `json:"max_strikes_before_ban"`
	MaxAppealsPerListing  int    `json:"max_appeals_per_listing"`
	MinAppealReasonLength int    `json:"min_appeal_reason_length"`
	AutoModerationEnabled bool   `json:"auto_moderation_enabled"`
}

// DefaultPolicy returns the policy used when no settings are stored.
func DefaultPolicy() Policy {
	return Policy{
		ConfidenceThreshold:   70,
		Strictness:            StrictnessMedium,
		TextPrompt:            DefaultTextPrompt,
		ImagePrompt:           DefaultImagePrompt,
		MaxImages:             MaxImagesAnalyzed,
		MaxStrikesBeforeBan:   5,
		MaxAppealsPerListing:  1,
		MinAppealReasonLength: 20,
		AutoModerationEnabled: true,
	}
}

// PolicyFromSettings overlays stored key/value settings on DefaultPolicy. Unparseable values
// are logged and ignored.
func PolicyFromSettings(values map[string]string) Policy {
	p := DefaultPolicy()

	intSetting := func(key string, dst *int, min, max int) {
		raw, ok := values[key]
		if !ok || strings.TrimSpace(raw) == "" {
			return
		}
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || v < min || v > max {
			slog.Warn("ignoring invalid moderation setting", "key", key, "value", raw)
			return
		}
		*dst = v
	}

	intSetting(SettingConfidenceThreshold, &p.ConfidenceThreshold, 0, 100)
	intSetting(SettingMaxImagesAnalyzed, &p.MaxImages, 0, MaxImagesAnalyzed)
	intSetting(SettingMaxStrikesBeforeBan, &p.MaxStrikesBeforeBan, 1, 1000)
	intSetting(SettingMaxAppealsPerListing, &p.MaxAppealsPerListing, 0, 100)
	intSetting(SettingMinAppealReasonLength, &p.MinAppealReasonLength, 0, 10000)

	if raw, ok := values[SettingStrictnessLevel]; ok {
		switch level := strings.ToLower(strings.TrimSpace(raw)); level {
		case StrictnessLow, StrictnessMedium, StrictnessHigh:
			p.Strictness = level
		default:
			slog.Warn("ignoring invalid moderation setting", "key", SettingStrictnessLevel, "value", raw)
		}
	}
	if v := strings.TrimSpace(values[SettingTextPrompt]); v != "" {
		p.TextPrompt = v
	}
	if v := strings.TrimSpace(values[SettingImagePrompt]); v != "" {
		p.ImagePrompt = v
	}
	if raw, ok := values[SettingAutoModeration]; ok && strings.TrimSpace(raw) != "" {
		enabled, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			slog.Warn("ignoring invalid moderation setting", "key", SettingAutoModeration, "value", raw)
		} else {
			p.AutoModerationEnabled = enabled
		}
	}
	return p
}

// EffectiveThreshold is the confidence threshold shifted by the strictness level.
func (p Policy) EffectiveThreshold() int {
	t := p.ConfidenceThreshold
	switch p.Strictness {
	case StrictnessLow:
		t -= 10
	case StrictnessHigh:
		t += 10
	}
	return clampScore(t)
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
