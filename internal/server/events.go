package server

// Client event names.
const (
	EventVideoChunks  = "video-chunks"
	EventProcessVideo = "process-video"
	EventDeleteVideo  = "delete-video"
	EventVideoDeleted = "video-deleted"
)

// Event is one inbound client frame. Chunks ride as base64 strings under
// the standard JSON encoding for byte slices.
type Event struct {
	Type     string   `json:"type"`
	Filename string   `json:"filename,omitempty"`
	Chunks   [][]byte `json:"chunks,omitempty"`
	UserID   string   `json:"userId,omitempty"`
	VideoID  string   `json:"videoId,omitempty"`
}

// DeletedAck is the single client-visible outcome of a deletion run.
type DeletedAck struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
