package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyFromSettings_Defaults(t *testing.T) {
	p := PolicyFromSettings(nil)
	assert.Equal(t, DefaultPolicy(), p)
	assert.Equal(t, 70, p.EffectiveThreshold())
}

func TestPolicyFromSettings_Overrides(t *testing.T) {
	p := PolicyFromSettings(map[string]string{
		SettingConfidenceThreshold:   "80",
		SettingStrictnessLevel:       "HIGH",
		SettingMaxImagesAnalyzed:     "3",
		SettingMaxStrikesBeforeBan:   "2",
		SettingMinAppealReasonLength: "10",
		SettingAutoModeration:        "false",
		SettingTextPrompt:            "custom text prompt",
	})

	assert.Equal(t, 80, p.ConfidenceThreshold)
	assert.Equal(t, StrictnessHigh, p.Strictness)
	assert.Equal(t, 90, p.EffectiveThreshold())
	assert.Equal(t, 3, p.MaxImages)
	assert.Equal(t, 2, p.MaxStrikesBeforeBan)
	assert.Equal(t, 10, p.MinAppealReasonLength)
	assert.False(t, p.AutoModerationEnabled)
	assert.Equal(t, "custom text prompt", p.TextPrompt)
	assert.Equal(t, DefaultImagePrompt, p.ImagePrompt)
}

func TestPolicyFromSettings_InvalidValuesIgnored(t *testing.T) {
	p := PolicyFromSettings(map[string]string{
		SettingConfidenceThreshold: "abc",
		SettingMaxImagesAnalyzed:   "20",
		SettingStrictnessLevel:     "extreme",
		SettingAutoModeration:      "maybe",
	})

	assert.Equal(t, DefaultPolicy(), p)
}

func TestPolicy_EffectiveThresholdClamped(t *testing.T) {
	assert.Equal(t, 100, Policy{ConfidenceThreshold: 95, Strictness: StrictnessHigh}.EffectiveThreshold())
	assert.Equal(t, 0, Policy{ConfidenceThreshold: 5, Strictness: StrictnessLow}.EffectiveThreshold())
	assert.Equal(t, 60, Policy{ConfidenceThreshold: 70, Strictness: StrictnessLow}.EffectiveThreshold())
}
