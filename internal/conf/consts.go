// conf/consts.go shared configuration constants
package conf

// RotationType defines different log rotation strategies.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// Split naming conventions for the chunked epoch container.
const (
	SplitNamingLegacy     = "legacy"
	SplitNamingStructured = "structured"
)

// Metadata backend selection.
const (
	MetadataBackendSQLite = "sqlite"
	MetadataBackendSimple = "simple"
)
