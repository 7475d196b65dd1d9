package domain

import "errors"

// Route computation error kinds. Match with errors.Is.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNoValidLocations      = errors.New("no clients with valid locations")
	ErrInsufficientWaypoints = errors.New("at least 2 clients with valid locations required")
	ErrProviderUnavailable   = errors.New("directions provider unavailable")
	ErrProviderRequestFailed = errors.New("directions request failed")
)

// ErrorCode maps an error to a stable machine-readable code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNoValidLocations):
		return "no_valid_locations"
	case errors.Is(err, ErrInsufficientWaypoints):
		return "insufficient_waypoints"
	case errors.Is(err, ErrProviderUnavailable):
		return "provider_unavailable"
	case errors.Is(err, ErrProviderRequestFailed):
		return "provider_request_failed"
	default:
		return "internal_error"
	}
}

// RouteOutcome is the tagged {success, route|error} shape handed to callers.
type RouteOutcome struct {
	Success bool         `json:"success"`
	Route   *RouteResult `json:"route,omitempty"`
	Error   string       `json:"error,omitempty"`
	Code    string       `json:"code,omitempty"`
}

// Outcome converts a (route, err) pair into a RouteOutcome.
func Outcome(route *RouteResult, err error) RouteOutcome {
	if err != nil {
		return RouteOutcome{Success: false, Error: err.Error(), Code: ErrorCode(err)}
	}
	return RouteOutcome{Success: true, Route: route}
}

// DirectionsOutcome is the tagged {success, directions|error} shape of a raw
// waypoint lookup.
type DirectionsOutcome struct {
	Success    bool        `json:"success"`
	Directions *Directions `json:"directions,omitempty"`
	Error      string      `json:"error,omitempty"`
	Code       string      `json:"code,omitempty"`
}

// DirectionsResult converts a (directions, err) pair into a DirectionsOutcome.
func DirectionsResult(d *Directions, err error) DirectionsOutcome {
	if err != nil {
		return DirectionsOutcome{Success: false, Error: err.Error(), Code: ErrorCode(err)}
	}
	return DirectionsOutcome{Success: true, Directions: d}
}
