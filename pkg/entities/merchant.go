package entities

import (
	"encoding/json"
	"time"
)

type StampShape string

const (
	StampShapeCircle StampShape = "circle"
	StampShapeSquare StampShape = "square"
	StampShapeLogo   StampShape = "logo"
)

type Merchant struct {
	ID                string    `json:"id"`
	Slug              string    `json:"slug"`
	Name              string    `json:"name"`
	RewardGoal        int       `json:"reward_goal"`
	Branding          Branding  `json:"branding"`
	BrandingVersion   int       `json:"branding_version"`
	BrandingUpdatedAt time.Time `json:"branding_updated_at"`
	CreatedAt         time.Time `json:"created_at"`
}

type Branding struct {
	LogoURL        string     `json:"logoUrl,omitempty"`
	HeaderLogoURL  string     `json:"headerLogoUrl,omitempty"`
	PrimaryColor   string     `json:"primaryColor"`
	SecondaryColor string     `json:"secondaryColor"`
	LabelColor     string     `json:"labelColor"`
	Background     Background `json:"background"`
	Stamp          StampStyle `json:"stamp"`
}

type Background struct {
	Type  string `json:"type"`
	Color string `json:"color"`
}

type StampStyle struct {
	Total        int        `json:"total"`
	Shape        StampShape `json:"shape"`
	FilledColor  string     `json:"filledColor"`
	EmptyColor   string     `json:"emptyColor"`
	OutlineColor string     `json:"outlineColor"`
}

func (b *Branding) Unmarshal(data string) error {
	return json.Unmarshal([]byte(data), b)
}
