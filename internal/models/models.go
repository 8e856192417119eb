package models

import (
	"time"

	"github.com/google/uuid"
)

// CampaignStatus represents the lifecycle state of a campaign
type CampaignStatus string

const (
	CampaignStatusActive  CampaignStatus = "active"
	CampaignStatusPaused  CampaignStatus = "paused"
	CampaignStatusStopped CampaignStatus = "stopped"
)

// Valid reports whether s is a recognized campaign status.
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusActive, CampaignStatusPaused, CampaignStatusStopped:
		return true
	}
	return false
}

// Channel identifies the delivery medium for a campaign
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Valid reports whether the channel is a known delivery medium.
func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelSMS
}

// User represents an account holder in the system
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"` // Never serialize
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Restaurant is the business profile owned by a user. One user owns at most
// one restaurant.
type Restaurant struct {
	ID           uuid.UUID `json:"id"`
	OwnerUserID  uuid.UUID `json:"owner_user_id"`
	Name         string    `json:"name"`
	Cuisine      string    `json:"cuisine"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	ContactEmail string    `json:"contact_email"`
	ContactPhone string    `json:"contact_phone"`
	WebsiteURL   string    `json:"website_url"`
	LogoURL      string    `json:"logo_url"`
	Caption      string    `json:"caption"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Diner is a marketable contact with targeting attributes and per-channel
// consent flags.
type Diner struct {
	ID           uuid.UUID `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Seniority    string    `json:"seniority"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	AddressText  string    `json:"address_text"`
	Interests    []string  `json:"interests"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	ConsentEmail bool      `json:"consent_email"`
	ConsentSMS   bool      `json:"consent_sms"`
	CreatedAt    time.Time `json:"created_at"`
}

// AudienceFilter captures the targeting criteria stored with a campaign.
// Match is "any" (interest overlap) or "all" (interest containment).
type AudienceFilter struct {
	City      string   `json:"city,omitempty"`
	State     string   `json:"state,omitempty"`
	Interests []string `json:"interests,omitempty"`
	Match     string   `json:"match,omitempty"`
}

// Campaign is a marketing message addressed to a filtered audience
type Campaign struct {
	ID             uuid.UUID       `json:"id"`
	RestaurantID   uuid.UUID       `json:"restaurant_id"`
	Name           string          `json:"name"`
	Channel        Channel         `json:"channel"`
	Status         CampaignStatus  `json:"status"`
	Subject        string          `json:"subject,omitempty"`
	Body           string          `json:"body"`
	AudienceFilter *AudienceFilter `json:"audience_filter,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CampaignStats summarizes delivery outcomes for a campaign
type CampaignStats struct {
	RecipientCount int     `json:"recipient_count"`
	SentCount      int     `json:"sent_count"`
	FailedCount    int     `json:"failed_count"`
	ClickRate      float64 `json:"click_rate"`
}

// CampaignRecipient records one diner's delivery outcome within a campaign
type CampaignRecipient struct {
	ID             uuid.UUID              `json:"id"`
	CampaignID     uuid.UUID              `json:"campaign_id"`
	DinerID        uuid.UUID              `json:"diner_id"`
	DeliveryStatus string                 `json:"delivery_status"`
	PreviewPayload map[string]interface{} `json:"preview_payload,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}
