// Package reference manages the seed data the coordination engine runs on:
// the service catalog, coverage areas, and broadcast message templates.
// Seeding is idempotent; reset restores the built-in defaults.
package reference

import (
	"github.com/google/uuid"
)

// Service is one entry in the service catalog.
type Service struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	SubServices []string  `json:"sub_services"`
}

// Area is one coverage area requests and providers reference by name.
type Area struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Template is one broadcast message template. Body placeholders are
// substituted at prepare time.
type Template struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Body string    `json:"body"`
}

// Built-in defaults installed by Seed and restored by Reset.
var (
	defaultServices = []Service{
		{Name: "AC Repair", SubServices: []string{"Split Unit", "Central", "Maintenance Contract"}},
		{Name: "Plumbing", SubServices: []string{"Leak Repair", "Water Heater", "Drain Blockage"}},
		{Name: "Electrical", SubServices: []string{"Wiring", "Lighting", "Breaker Panel"}},
		{Name: "Cleaning", SubServices: []string{"Deep Clean", "Regular", "Move-out"}},
		{Name: "Pest Control", SubServices: nil},
		{Name: "Painting", SubServices: nil},
	}

	defaultAreas = []Area{
		{Name: "Doha"},
		{Name: "Al Rayyan"},
		{Name: "Al Wakrah"},
		{Name: "Umm Salal"},
		{Name: "Al Khor"},
		{Name: "Lusail"},
	}

	defaultTemplates = []Template{
		{
			Name: "standard",
			Body: "[v{version}] New request: {service} in {area}. Urgency: {urgency}. Reply YES if available.",
		},
		{
			Name: "urgent",
			Body: "[v{version}] URGENT: {service} needed now in {area}. Reply READY if you can start today.",
		},
	}
)
