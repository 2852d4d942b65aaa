package internal

import (
	"testing"

	"github.com/kcmvp/archunit"
)

func TestArchitecture(t *testing.T) {
	core := archunit.Packages("climate", []string{".../internal/climate"})
	homeassistant := archunit.Packages("homeassistant", []string{".../internal/homeassistant"})
	mqtt := archunit.Packages("mqtt", []string{".../internal/mqtt"})
	archive := archunit.Packages("archive", []string{".../internal/archive"})
	repository := archunit.Packages("repository", []string{".../internal/repository/..."})
	handlers := archunit.Packages("handlers", []string{".../internal/handlers"})
	services := archunit.Packages("service", []string{".../internal/service"})

	// Rule 1: the controller core only knows its own ports
	if err := core.ShouldNotReferLayers(homeassistant); err != nil {
		t.Errorf("Architecture violation: climate depends on homeassistant: %v", err)
	}
	if err := core.ShouldNotReferLayers(mqtt); err != nil {
		t.Errorf("Architecture violation: climate depends on mqtt: %v", err)
	}
	if err := core.ShouldNotReferLayers(archive); err != nil {
		t.Errorf("Architecture violation: climate depends on archive: %v", err)
	}
	if err := core.ShouldNotReferLayers(repository); err != nil {
		t.Errorf("Architecture violation: climate depends on repository: %v", err)
	}
	if err := core.ShouldNotReferLayers(handlers); err != nil {
		t.Errorf("Architecture violation: climate depends on handlers: %v", err)
	}
	if err := core.ShouldNotReferLayers(services); err != nil {
		t.Errorf("Architecture violation: climate depends on service: %v", err)
	}

	// Rule 2: services are wired to adapters in main, never import them
	if err := services.ShouldNotReferLayers(handlers); err != nil {
		t.Errorf("Architecture violation: service depends on handlers: %v", err)
	}
	if err := services.ShouldNotReferLayers(mqtt); err != nil {
		t.Errorf("Architecture violation: service depends on mqtt: %v", err)
	}
	if err := services.ShouldNotReferLayers(archive); err != nil {
		t.Errorf("Architecture violation: service depends on archive: %v", err)
	}

	// Rule 3: storage does not reach up
	if err := repository.ShouldNotReferLayers(services); err != nil {
		t.Errorf("Architecture violation: repository depends on service: %v", err)
	}
}

func TestCorePackagePresent(t *testing.T) {
	core := archunit.Packages("climate", []string{".../internal/climate"})
	if len(core.Packages()) == 0 {
		t.Error("No climate package found")
	}
}
