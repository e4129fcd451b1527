package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"marketgate/internal/cache"
	"marketgate/internal/models"
	"marketgate/internal/moderation"
	"marketgate/internal/repository"
)

type settingDef struct {
	Type        models.SettingType
	Default     string
	Description string
}

var knownSettings = map[string]settingDef{
	moderation.SettingConfidenceThreshold:   {models.SettingInt, "70", "Minimum confidence (0-100) for automatic approval"},
	moderation.SettingStrictnessLevel:       {models.SettingString, moderation.StrictnessMedium, "low, medium or high; shifts the threshold by -10, 0 or +10"},
	moderation.SettingTextPrompt:            {models.SettingString, moderation.DefaultTextPrompt, "Policy prompt sent with listing text"},
	moderation.SettingImagePrompt:           {models.SettingString, moderation.DefaultImagePrompt, "Policy prompt sent with each listing image"},
	moderation.SettingMaxImagesAnalyzed:     {models.SettingInt, "8", "Images analysed per listing (at most 8)"},
	moderation.SettingMaxStrikesBeforeBan:   {models.SettingInt, "5", "Automated rejections before an account is suspended"},
	moderation.SettingMaxAppealsPerListing:  {models.SettingInt, "1", "Appeals allowed per listing (informational)"},
	moderation.SettingMinAppealReasonLength: {models.SettingInt, "20", "Minimum characters in an appeal reason"},
	moderation.SettingAutoModeration:        {models.SettingBool, "true", "When false every submission waits for a moderator"},
}

// DefaultSettings returns every known setting with its default value, for seeding.
func DefaultSettings() []models.ModerationSetting {
	out := make([]models.ModerationSetting, 0, len(knownSettings))
	for key, def := range knownSettings {
		out = append(out, models.ModerationSetting{
			Key:         key,
			Value:       def.Default,
			Type:        def.Type,
			Description: def.Description,
		})
	}
	return out
}

// SettingsService reads the moderation policy snapshot and applies admin changes.
type SettingsService struct {
	repo  repository.SettingRepository
	cache *cache.SettingsCache
	audit *AuditService
}

// NewSettingsService returns a new SettingsService. cache may be nil.
func NewSettingsService(repo repository.SettingRepository, settingsCache *cache.SettingsCache, audit *AuditService) *SettingsService {
	return &SettingsService{repo: repo, cache: settingsCache, audit: audit}
}

// Snapshot returns the current policy. A storage failure yields the default policy so a
// moderation run can still complete.
func (s *SettingsService) Snapshot(ctx context.Context) moderation.Policy {
	values, err := s.cache.Load(ctx, s.fetch)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load moderation settings, using defaults", "error", err)
		return moderation.DefaultPolicy()
	}
	return moderation.PolicyFromSettings(values)
}

func (s *SettingsService) fetch(ctx context.Context) (map[string]string, error) {
	settings, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	values := make(map[string]string, len(settings))
	for _, setting := range settings {
		values[setting.Key] = setting.Value
	}
	return values, nil
}

// List returns the stored settings.
func (s *SettingsService) List(ctx context.Context) ([]models.ModerationSetting, error) {
	return s.repo.GetAll(ctx)
}

// Update validates and stores one setting, then drops the cached snapshot.
func (s *SettingsService) Update(ctx context.Context, adminID uint, key, value string) (*models.ModerationSetting, error) {
	def, ok := knownSettings[key]
	if !ok {
		return nil, models.NewValidationError("Unknown setting: " + key)
	}
	value = strings.TrimSpace(value)
	if err := validateSettingValue(key, def.Type, value); err != nil {
		return nil, err
	}

	previous := ""
	if current, err := s.repo.Get(ctx, key); err == nil {
		previous = current.Value
	} else if !models.HasCode(err, models.CodeNotFound) {
		return nil, err
	}

	setting := &models.ModerationSetting{
		Key:         key,
		Value:       value,
		Type:        def.Type,
		Description: def.Description,
		UpdatedBy:   actorID(adminID),
	}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)

	s.audit.Record(ctx, AuditEvent{
		Action:      models.AuditSettingUpdated,
		TargetType:  models.TargetSetting,
		TargetID:    key,
		PerformedBy: actorID(adminID),
		Details:     map[string]any{"key": key, "old_value": previous, "new_value": value},
	})
	return setting, nil
}

func validateSettingValue(key string, kind models.SettingType, value string) error {
	switch kind {
	case models.SettingInt:
		v, err := strconv.Atoi(value)
		if err != nil {
			return models.NewValidationError(key + " must be an integer")
		}
		switch key {
		case moderation.SettingConfidenceThreshold:
			if v < 0 || v > 100 {
				return models.NewValidationError(key + " must be between 0 and 100")
			}
		case moderation.SettingMaxImagesAnalyzed:
			if v < 0 || v > moderation.MaxImagesAnalyzed {
				return models.NewValidationError(key + " must be between 0 and 8")
			}
		case moderation.SettingMaxStrikesBeforeBan:
			if v < 1 {
				return models.NewValidationError(key + " must be at least 1")
			}
		default:
			if v < 0 {
				return models.NewValidationError(key + " must not be negative")
			}
		}
	case models.SettingBool:
		if _, err := strconv.ParseBool(value); err != nil {
			return models.NewValidationError(key + " must be true or false")
		}
	case models.SettingString:
		if key == moderation.SettingStrictnessLevel {
			switch strings.ToLower(value) {
			case moderation.StrictnessLow, moderation.StrictnessMedium, moderation.StrictnessHigh:
			default:
				return models.NewValidationError(key + " must be low, medium or high")
			}
		}
	}
	return nil
}
