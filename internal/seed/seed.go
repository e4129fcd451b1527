// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"marketgate/internal/models"
	"marketgate/internal/repository"
	"marketgate/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Options controls how much demo data is created.
type Options struct {
	NumUsers    int
	NumListings int
	ShouldClean bool
}

// SampleBlacklist is installed on a fresh database so the dynamic list is not empty.
var SampleBlacklist = []models.BlacklistEntry{
	{Type: models.BlacklistPhrase, Value: "dinero facil", Reason: "Promesa de ganancias"},
	{Type: models.BlacklistPhrase, Value: "sin verificacion", Reason: "Evasión de controles"},
	{Type: models.BlacklistWord, Value: "piramide", Reason: "Esquema piramidal"},
	{Type: models.BlacklistEmail, Value: "ventas.rapidas@example.com", Reason: "Cuenta reportada por estafa"},
	{Type: models.BlacklistPhone, Value: "+53 5000 0000", Reason: "Número reportado por estafa"},
}

var itemNames = []string{
	"Bicicleta de montaña", "Refrigerador", "Ventilador de pie", "Juego de sala", "Laptop",
	"Teléfono móvil", "Lavadora", "Colchón matrimonial", "Mesa de comedor", "Olla de presión",
	"Guitarra acústica", "Televisor", "Aire acondicionado", "Zapatos deportivos", "Mochila escolar",
}

var conditions = []string{"nuevo", "como nuevo", "poco uso", "usado en buen estado", "para piezas"}

// Seeder populates a database with settings, a sample blacklist and demo data.
type Seeder struct {
	db       *gorm.DB
	users    repository.UserRepository
	listings repository.ListingRepository
	faker    *gofakeit.Faker
}

// NewSeeder returns a Seeder bound to db. A non-zero randSeed makes generated content
// reproducible.
func NewSeeder(db *gorm.DB, randSeed int64) *Seeder {
	return &Seeder{
		db:       db,
		users:    repository.NewUserRepository(db),
		listings: repository.NewListingRepository(db),
		faker:    gofakeit.New(randSeed),
	}
}

// Settings inserts every known moderation setting that is not stored yet. Values an admin
// already changed are left alone.
func (s *Seeder) Settings(ctx context.Context) error {
	settings := service.DefaultSettings()
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&settings).Error; err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	return nil
}

// Blacklist installs SampleBlacklist entries whose value is not present yet.
func (s *Seeder) Blacklist(ctx context.Context) (int, error) {
	created := 0
	for _, sample := range SampleBlacklist {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.BlacklistEntry{}).
			Where("type = ? AND value = ?", sample.Type, sample.Value).
			Count(&count).Error; err != nil {
			return created, fmt.Errorf("seed blacklist: %w", err)
		}
		if count > 0 {
			continue
		}
		entry := sample
		entry.IsActive = true
		if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
			return created, fmt.Errorf("seed blacklist: %w", err)
		}
		created++
	}
	return created, nil
}

// Users creates n sellers and one admin account named "admin" when missing.
func (s *Seeder) Users(ctx context.Context, n int) ([]models.User, error) {
	admin := models.User{Username: "admin", Role: models.RoleAdmin}
	if err := s.db.WithContext(ctx).Where(models.User{Username: admin.Username}).FirstOrCreate(&admin).Error; err != nil {
		return nil, fmt.Errorf("seed admin: %w", err)
	}

	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		u := models.User{
			Username: fmt.Sprintf("%s%d", s.faker.Username(), s.faker.Number(100, 999)),
			Role:     models.RoleUser,
		}
		if err := s.users.Create(ctx, &u); err != nil {
			return nil, fmt.Errorf("seed user: %w", err)
		}
		users = append(users, u)
	}
	return users, nil
}

// BuildListing returns an unsaved, unmoderated listing for seller.
func (s *Seeder) BuildListing(seller models.User) models.Listing {
	item := s.faker.RandomString(itemNames)
	return models.Listing{
		UserID: seller.ID,
		Title:  fmt.Sprintf("%s %s", item, s.faker.RandomString(conditions)),
		Description: fmt.Sprintf("Vendo %s, %s. Entrega a coordinar. Ref %s",
			item, s.faker.RandomString(conditions), s.faker.LetterN(6)),
		Images:           []string{fmt.Sprintf("/uploads/seed/%s.jpg", s.faker.UUID())},
		ContactEmail:     s.faker.Email(),
		Price:            s.faker.Price(5, 1500),
		ModerationStatus: models.ModerationNone,
	}
}

// Listings creates n unmoderated listings spread across sellers.
func (s *Seeder) Listings(ctx context.Context, sellers []models.User, n int) ([]models.Listing, error) {
	if len(sellers) == 0 || n <= 0 {
		return nil, nil
	}
	listings := make([]models.Listing, 0, n)
	for i := 0; i < n; i++ {
		l := s.BuildListing(sellers[i%len(sellers)])
		if err := s.listings.Create(ctx, &l); err != nil {
			return nil, fmt.Errorf("seed listing: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, nil
}

// ClearAll removes every row created by the workflow. Intended for development databases only.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tables := []string{"audit_logs", "moderation_reviews", "listings", "blacklist_entries", "moderation_settings", "users"}
	for _, table := range tables {
		if err := s.db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	slog.InfoContext(ctx, "database cleared", "tables", len(tables))
	return nil
}

// Run applies opts: optional cleanup, then settings, blacklist, users and listings.
func (s *Seeder) Run(ctx context.Context, opts Options) error {
	if opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return err
		}
	}
	if err := s.Settings(ctx); err != nil {
		return err
	}
	created, err := s.Blacklist(ctx)
	if err != nil {
		return err
	}
	users, err := s.Users(ctx, opts.NumUsers)
	if err != nil {
		return err
	}
	listings, err := s.Listings(ctx, users, opts.NumListings)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "seed complete",
		"blacklist_entries", created,
		"users", len(users),
		"listings", len(listings),
	)
	return nil
}
