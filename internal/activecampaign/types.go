package activecampaign

import "fmt"

// Contact is one record in a bulk import payload.
type Contact struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// SubscribeTo attaches an imported contact to a list.
type SubscribeTo struct {
	ListID int `json:"listid"`
}

// BulkImportRequest is the payload for POST /api/3/import/bulk_import.
// ExcludeAutomations is always set: imports must not fire automation
// sequences for every contact in a pool.
type BulkImportRequest struct {
	Contacts           []Contact     `json:"contacts"`
	Tags               []string      `json:"tags,omitempty"`
	Subscribe          []SubscribeTo `json:"subscribe,omitempty"`
	ExcludeAutomations bool          `json:"exclude_automations"`
}

// APIError is a non-2xx response from the ActiveCampaign API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("activecampaign API error (status %d): %s", e.StatusCode, e.Body)
}
