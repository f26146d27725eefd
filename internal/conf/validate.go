package conf

import "fmt"

// ValidateSettings checks the loaded settings for obviously invalid values.
func ValidateSettings(settings *Settings) error {
	if settings.Epochs.TMin > settings.Epochs.TMax {
		return fmt.Errorf("epochs.tmin (%g) must not exceed epochs.tmax (%g)",
			settings.Epochs.TMin, settings.Epochs.TMax)
	}
	if settings.Epochs.Decim < 1 {
		return fmt.Errorf("epochs.decim must be >= 1, got %d", settings.Epochs.Decim)
	}
	if settings.Epochs.Workers < 0 {
		return fmt.Errorf("epochs.workers must not be negative, got %d", settings.Epochs.Workers)
	}
	if settings.Container.MaxFileSize < 0 {
		return fmt.Errorf("container.maxfilesize must not be negative, got %d", settings.Container.MaxFileSize)
	}
	switch settings.Container.SplitNaming {
	case SplitNamingLegacy, SplitNamingStructured:
	default:
		return fmt.Errorf("container.splitnaming must be %q or %q, got %q",
			SplitNamingLegacy, SplitNamingStructured, settings.Container.SplitNaming)
	}
	if settings.Container.MaxSplits < 1 {
		return fmt.Errorf("container.maxsplits must be >= 1, got %d", settings.Container.MaxSplits)
	}
	switch settings.Metadata.Backend {
	case MetadataBackendSQLite, MetadataBackendSimple:
	default:
		return fmt.Errorf("metadata.backend must be %q or %q, got %q",
			MetadataBackendSQLite, MetadataBackendSimple, settings.Metadata.Backend)
	}
	return nil
}
