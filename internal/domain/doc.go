// Package domain models waterlogging hazard reports and the geometry used to
// query them.
//
// # Report Lifecycle
//
// A report is created by an authenticated user and is valid for four hours:
//
//	expiresAt = createdAt + 4h
//
// Verification by any user restarts the window from the verification instant:
//
//	expiresAt = verifiedAt + 5h
//
// The new value replaces the old one even when the old expiry was later.
// A report is expired once the current time is strictly after expiresAt.
//
// # Coordinates
//
// Report and query coordinates are WGS-84 degrees. Route geometries arrive as
// GeoJSON LineStrings, so each vertex is ordered [lon, lat]. [IsOnRoute] takes
// the hazard point in the same [lon, lat] order to avoid swapping axes.
//
// # Distance and Direction
//
// Distances are great-circle meters computed with the haversine formula on a
// sphere of radius 6,371,000 m. Directions are the initial bearing from the
// query point to the hazard, bucketed into eight 45° sectors:
//
//	north, northeast, east, southeast, south, southwest, west, northwest
//
// The route proximity test is a raw coordinate-delta Euclidean check in
// degrees (default 0.002). It is a cheap approximation and is not corrected
// for latitude.
//
// # Errors
//
// Operations fail with an [*Error] carrying a [Kind]. Each kind maps to one
// wire code and HTTP status, see [Kind.Code] and [Kind.Status].
package domain
