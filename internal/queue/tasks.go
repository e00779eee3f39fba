package queue

const (
	TypeUploadProcess = "upload:process"
)

// UploadProcessPayload asks the worker to transcribe an upload and turn the
// transcript into a saved post.
type UploadProcessPayload struct {
	JobID    string `json:"job_id"`
	UserID   string `json:"user_id"`
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name,omitempty"`
}
