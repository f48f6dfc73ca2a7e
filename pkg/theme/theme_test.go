package theme

import (
	"reflect"
	"testing"
)

func TestApplyDefaultsTotal(t *testing.T) {
	// An entirely empty profile is filled completely.
	merged := applyDefaults(Theme{})
	if !reflect.DeepEqual(merged, Default()) {
		t.Errorf("empty theme should merge to default, got %+v", merged)
	}

	v := reflect.ValueOf(merged)
	for i := 0; i < v.NumField(); i++ {
		if v.Field(i).String() == "" {
			t.Errorf("field %s left unset after merge", v.Type().Field(i).Name)
		}
	}
}

func TestApplyDefaultsNonDestructive(t *testing.T) {
	partial := Theme{
		Name:       "Blueprint",
		Background: "#0A1931",
		Water:      "#1A3A5A",
	}

	merged := applyDefaults(partial)

	// Keys the profile defines survive the merge.
	if merged.Background != "#0A1931" {
		t.Errorf("Background overwritten: %s", merged.Background)
	}
	if merged.Water != "#1A3A5A" {
		t.Errorf("Water overwritten: %s", merged.Water)
	}
	if merged.Name != "Blueprint" {
		t.Errorf("Name overwritten: %s", merged.Name)
	}

	// Unset keys are filled from the default.
	if merged.Text != Default().Text {
		t.Errorf("Text not filled: %s", merged.Text)
	}
	if merged.RoadMotorway != Default().RoadMotorway {
		t.Errorf("RoadMotorway not filled: %s", merged.RoadMotorway)
	}
}

func TestApplyDefaultsIdempotent(t *testing.T) {
	partial := Theme{Background: "#123456"}

	once := applyDefaults(partial)
	twice := applyDefaults(once)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merge not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestMissingRequired(t *testing.T) {
	missing := missingRequired(Theme{Background: "#FFFFFF", Text: "#000000"})
	want := []string{"water", "parks", "road_default"}
	if !reflect.DeepEqual(missing, want) {
		t.Errorf("missingRequired = %v, want %v", missing, want)
	}

	if got := missingRequired(Default()); got != nil {
		t.Errorf("default theme should have no missing keys, got %v", got)
	}
}
