package models

import "time"

// BlacklistType selects which part of a listing a blacklist entry is matched against.
type BlacklistType string

// Blacklist entry types.
const (
	BlacklistWord   BlacklistType = "word"
	BlacklistPhrase BlacklistType = "phrase"
	BlacklistEmail  BlacklistType = "email"
	BlacklistPhone  BlacklistType = "phone"
)

// Valid reports whether t is a known blacklist type.
func (t BlacklistType) Valid() bool {
	switch t {
	case BlacklistWord, BlacklistPhrase, BlacklistEmail, BlacklistPhone:
		return true
	}
	return false
}

// BlacklistEntry is an admin-managed term that vetoes any listing containing it.
type BlacklistEntry struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	Type      BlacklistType `gorm:"size:20;not null;index" json:"type"`
	Value     string        `gorm:"size:255;not null" json:"value"`
	Reason    string        `gorm:"type:text" json:"reason"`
	AddedBy   *uint         `json:"added_by,omitempty"`
	IsActive  bool          `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (BlacklistEntry) TableName() string {
	return "blacklist_entries"
}

// SettingType describes how a setting value is parsed.
type SettingType string

// Setting value types.
const (
	SettingString SettingType = "string"
	SettingInt    SettingType = "int"
	SettingFloat  SettingType = "float"
	SettingBool   SettingType = "bool"
)

// ModerationSetting is a tunable key/value read at the start of every moderation run.
type ModerationSetting struct {
	Key         string      `gorm:"primaryKey;size:100" json:"key"`
	Value       string      `gorm:"type:text;not null" json:"value"`
	Type        SettingType `gorm:"size:20;not null;default:'string'" json:"type"`
	Description string      `gorm:"type:text" json:"description"`
	UpdatedBy   *uint       `json:"updated_by,omitempty"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (ModerationSetting) TableName() string {
	return "moderation_settings"
}
