package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"marketgate/internal/cache"
	"marketgate/internal/config"
	"marketgate/internal/database"
	"marketgate/internal/models"
	"marketgate/internal/moderation"
	"marketgate/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const cleanVerdict = `{"score": 90, "issues": [], "problematic_phrases": []}`

func setupSQLiteDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// fakeClassifier answers every call with fixed responses and counts calls.
type fakeClassifier struct {
	mu         sync.Mutex
	text       string
	image      string
	err        error
	textCalls  int
	imageCalls int
}

func (f *fakeClassifier) ClassifyText(context.Context, moderation.TextRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textCalls++
	return f.text, f.err
}

func (f *fakeClassifier) ClassifyImage(context.Context, moderation.ImageRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imageCalls++
	return f.image, f.err
}

type memImageStore map[string][]byte

func (m memImageStore) Open(_ context.Context, ref string) ([]byte, error) {
	if data, ok := m[ref]; ok {
		return data, nil
	}
	if !strings.HasPrefix(ref, "/uploads/") {
		return nil, moderation.ErrInvalidImageReference
	}
	return nil, errors.New("image not found")
}

type harness struct {
	db          *gorm.DB
	classifier  *fakeClassifier
	listings    repository.ListingRepository
	reviews     repository.ReviewRepository
	users       repository.UserRepository
	audit       *AuditService
	settings    *SettingsService
	blacklist   *BlacklistService
	enforcement *EnforcementService
	moderation  *ModerationService
}

func newHarness(t *testing.T, policy config.FailPolicy) *harness {
	db := setupSQLiteDB(t)
	h := &harness{
		db:         db,
		classifier: &fakeClassifier{text: cleanVerdict, image: `{"score": 90, "issues": []}`},
		listings:   repository.NewListingRepository(db),
		reviews:    repository.NewReviewRepository(db),
		users:      repository.NewUserRepository(db),
	}
	h.audit = NewAuditService(repository.NewAuditRepository(db))
	h.settings = NewSettingsService(repository.NewSettingRepository(db), cache.NewSettingsCache(nil, time.Minute), h.audit)
	h.blacklist = NewBlacklistService(repository.NewBlacklistRepository(db), h.audit)
	h.enforcement = NewEnforcementService(h.users, h.audit, nil)

	pipeline := moderation.NewPipeline(moderation.Options{
		Classifier: h.classifier,
		ImageStore: memImageStore{"/uploads/bike.jpg": []byte("jpeg-bytes")},
		FailPolicy: policy,
		Timeout:    time.Second,
	})
	h.moderation = NewModerationService(ModerationDeps{
		Listings:    h.listings,
		Reviews:     h.reviews,
		Users:       h.users,
		Pipeline:    pipeline,
		Settings:    h.settings,
		Blacklist:   h.blacklist,
		Enforcement: h.enforcement,
		Audit:       h.audit,
	})
	return h
}

func (h *harness) createUser(t *testing.T, username, role string) *models.User {
	u := &models.User{Username: username, Role: role}
	require.NoError(t, h.users.Create(context.Background(), u))
	return u
}

func (h *harness) auditCount(t *testing.T, action string) int64 {
	var n int64
	require.NoError(t, h.db.Model(&models.AuditLogEntry{}).Where("action = ?", action).Count(&n).Error)
	return n
}

func cleanListing(userID uint) SubmitListingInput {
	return SubmitListingInput{
		UserID:      userID,
		Title:       "Bicicleta de montaña",
		Description: "Rodado 26, frenos nuevos, poco uso. Entrega en el centro.",
		Images:      []string{"/uploads/bike.jpg"},
		Price:       120,
	}
}

func prohibitedListing(userID uint) SubmitListingInput {
	return SubmitListingInput{
		UserID:      userID,
		Title:       "Oferta especial",
		Description: "Vendo cocaina de buena calidad, entrega inmediata.",
	}
}
