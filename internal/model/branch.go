package model

// Branch is an isolated copy of a database within a project. UpdatedAt is the
// only activity signal the catalog exposes; it stays a string until the
// activity filter parses it so an unparseable value can be handled explicitly.
type Branch struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ProjectID string `json:"project_id"`
	Primary   bool   `json:"primary"`
	Default   bool   `json:"default"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Role is a database role on a branch. The catalog returns the privileged
// owner role first.
type Role struct {
	Name      string `json:"name"`
	Protected bool   `json:"protected"`
}

// Database is a named database on a branch.
type Database struct {
	Name      string `json:"name"`
	OwnerName string `json:"owner_name"`
}
