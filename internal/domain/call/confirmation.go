package call

// ConfirmationKind discriminates the tagged ConfirmationDetails variants.
type ConfirmationKind string

const (
	ConfirmInfo ConfirmationKind = "info"
	ConfirmEdit ConfirmationKind = "edit"
	ConfirmExec ConfirmationKind = "exec"
)

// ConfirmationDetails describes what a pending approval is about.
// Exactly one variant field matching Kind is set.
type ConfirmationDetails struct {
	Kind  ConfirmationKind  `json:"kind"`
	Title string            `json:"title"`
	Info  *InfoConfirmation `json:"info,omitempty"`
	Edit  *EditConfirmation `json:"edit,omitempty"`
	Exec  *ExecConfirmation `json:"exec,omitempty"`
}

// InfoConfirmation is an informational prompt, e.g. before fetching a URL.
type InfoConfirmation struct {
	Prompt string   `json:"prompt"`
	URLs   []string `json:"urls,omitempty"`
}

// EditConfirmation presents a file modification for review.
type EditConfirmation struct {
	FileName        string `json:"file_name"`
	FilePath        string `json:"file_path"`
	FileDiff        string `json:"file_diff"`
	OriginalContent string `json:"original_content"`
	NewContent      string `json:"new_content"`
}

// ExecConfirmation presents a shell command for review.
type ExecConfirmation struct {
	Command     string `json:"command"`
	RootCommand string `json:"root_command,omitempty"`
}

// Clone returns a copy of the details with no shared pointers.
func (d ConfirmationDetails) Clone() ConfirmationDetails {
	out := d
	if d.Info != nil {
		info := *d.Info
		info.URLs = append([]string(nil), d.Info.URLs...)
		out.Info = &info
	}
	if d.Edit != nil {
		edit := *d.Edit
		out.Edit = &edit
	}
	if d.Exec != nil {
		exec := *d.Exec
		out.Exec = &exec
	}
	return out
}

// ConfirmationRequest is published by the state manager when a call enters
// awaiting_approval. The decision source answers with exactly one
// ConfirmationResponse carrying the same correlation id.
type ConfirmationRequest struct {
	CorrelationID string              `json:"correlation_id"`
	CallID        string              `json:"call_id"`
	Tool          string              `json:"tool"`
	Details       ConfirmationDetails `json:"details"`
}

// ConfirmationResponse is the decision source's answer to one
// ConfirmationRequest.
type ConfirmationResponse struct {
	CorrelationID string  `json:"correlation_id"`
	Outcome       Outcome `json:"outcome"`
}
