package broadcasts_test

import (
	"testing"

	"github.com/khidma-co/khidma/internal/broadcasts"
)

func TestRender(t *testing.T) {
	template := "[v{version}] {service} needed in {area}, urgency: {urgency}. Reply YES if available."

	got := broadcasts.Render(template, broadcasts.Fields{
		Service: "Plumbing",
		Area:    "Al Rayyan",
		Urgency: "High",
		Version: 2,
	})

	expected := "[v2] Plumbing needed in Al Rayyan, urgency: High. Reply YES if available."
	if got != expected {
		t.Errorf("Render = %q, expected %q", got, expected)
	}
}

func TestRenderUnknownPlaceholderPassesThrough(t *testing.T) {
	got := broadcasts.Render("{service} at {location}", broadcasts.Fields{
		Service: "Electrical",
		Version: 1,
	})

	expected := "Electrical at {location}"
	if got != expected {
		t.Errorf("Render = %q, expected %q", got, expected)
	}
}

func TestRenderRepeatedPlaceholders(t *testing.T) {
	got := broadcasts.Render("{area} / {area} v{version}", broadcasts.Fields{
		Area:    "Al Wakrah",
		Version: 3,
	})

	expected := "Al Wakrah / Al Wakrah v3"
	if got != expected {
		t.Errorf("Render = %q, expected %q", got, expected)
	}
}
