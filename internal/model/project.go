package model

// Project is a catalog project containing one or more database branches.
// The catalog service is the source of truth; projects are read-only here.
type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	RegionID  string `json:"region_id"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}
