package googlemaps

// Wire types of the Directions API JSON response. Only the fields the
// provider reads are declared.

type directionsResponse struct {
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message,omitempty"`
	Routes       []route `json:"routes"`
}

type route struct {
	Legs             []leg   `json:"legs"`
	OverviewPolyline encoded `json:"overview_polyline"`
	WaypointOrder    []int   `json:"waypoint_order"`
}

type leg struct {
	Distance value  `json:"distance"`
	Duration value  `json:"duration"`
	Steps    []step `json:"steps"`
}

type step struct {
	HTMLInstructions string  `json:"html_instructions"`
	Distance         value   `json:"distance"`
	Duration         value   `json:"duration"`
	Polyline         encoded `json:"polyline"`
}

type encoded struct {
	Points string `json:"points"`
}

type value struct {
	Value int `json:"value"`
}

// Directions API status codes the provider branches on. Every other status
// is a failed request.
const (
	statusOK            = "OK"
	statusRequestDenied = "REQUEST_DENIED"
)
