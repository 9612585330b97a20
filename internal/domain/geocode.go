package domain

import (
	"context"
	"log/slog"
)

// EnrichWithPlaceName attempts to label a report with a reverse-geocoded place.
// If geocoder is nil or the lookup fails, the report is returned unchanged
// (graceful degradation).
func EnrichWithPlaceName(ctx context.Context, report Report, geocoder Geocoder, logger *slog.Logger) Report {
	if geocoder == nil {
		return report
	}

	place, err := geocoder.ReverseGeocode(ctx, report.Latitude, report.Longitude)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"report_id", report.ID,
			"lat", report.Latitude,
			"lon", report.Longitude,
			"error", err,
		)
		return report
	}

	switch {
	case place.Address != "":
		report.PlaceName = place.Address
	case place.Name != "":
		report.PlaceName = place.Name
	}
	return report
}
