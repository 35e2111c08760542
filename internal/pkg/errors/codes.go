package errors

var (
	ErrInvalidConfig = New(
		"INVALID_CONFIG",
		"Configuration is invalid",
	)

	ErrUnknownRegion = New(
		"UNKNOWN_REGION",
		"Region is not defined in the configuration",
	)

	ErrUnknownVersion = New(
		"UNKNOWN_VERSION",
		"Version is not defined in the configuration",
	)

	ErrInvalidBBox = New(
		"INVALID_BBOX",
		"Bounding box must be four ordered numeric bounds",
	)

	ErrDownloadFailed = New(
		"DOWNLOAD_FAILED",
		"Failed to download OSM extract",
	)

	ErrNoData = New(
		"NO_DATA",
		"No OSM data matched the configured filters",
	)

	ErrPopulationLookup = New(
		"POPULATION_LOOKUP_FAILED",
		"Wikidata population lookup failed",
	)

	ErrExportFailed = New(
		"EXPORT_FAILED",
		"Failed to export pipeline results",
	)
)
