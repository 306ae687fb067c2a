package model

type Project struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerID     int    `json:"owner_id"`
}

// ProjectMember joins a user into a project. The (user_id, project_id)
// pair is unique; membership gates "my projects" visibility.
type ProjectMember struct {
	ID        int `json:"id"`
	UserID    int `json:"user_id"`
	ProjectID int `json:"project_id"`
}
