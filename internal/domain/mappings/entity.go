package mappings

import "time"

// ExternalProject memoizes the project record an external analysis system
// holds for one (release, server) pair. Uniqueness over that pair is enforced
// by the database, not by application locking.
type ExternalProject struct {
	ReleaseID  string    `json:"release_id"`
	ServerName string    `json:"server_name"`
	ExternalID string    `json:"external_id"`
	CreatedAt  time.Time `json:"created_at"`
}
