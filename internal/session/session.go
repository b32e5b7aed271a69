package session

// Status values reported by the generation service.
const (
	StatusCreated    = "created"
	StatusRunning    = "running"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Session is one generation task tracked by the service.
type Session struct {
	ID          string `json:"session_id"`
	ProjectName string `json:"project_name"`
	Task        string `json:"task"`
	ModelType   string `json:"model_type"`
	Provider    string `json:"provider,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

// IsTerminal reports whether the session finished, successfully or not.
func (s Session) IsTerminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusError
}

// File is one generated artifact.
type File struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	Content string `json:"content"`
}
