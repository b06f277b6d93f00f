package vincere

import "fmt"

// SlicePage is one page of a paginated talent-pool listing.
// Vincere addresses pages by a zero-based slice index rather than a cursor.
type SlicePage struct {
	Content       []map[string]any `json:"content"`
	Last          bool             `json:"last"`
	TotalElements *int             `json:"totalElements"`

	// Total is the upstream-reported pool size, resolved from the body
	// field or the X-Total-Count header. Nil when upstream omits both.
	Total *int `json:"-"`
}

// Credentials is the per-owner token pair held in the token store.
// The refresh token is long-lived; the access token expires and is
// replaced by the refresh guard.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// APIError is a non-2xx response from the Vincere API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vincere API error (status %d): %s", e.StatusCode, e.Body)
}
