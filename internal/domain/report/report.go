// Package report records per-item results of capture and restore passes.
package report

// Status is the result for one path, window, or setting.
type Status string

const (
	StatusCaptured Status = "captured"
	StatusLossy    Status = "lossy"
	StatusRestored Status = "restored"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

// Outcome records what happened to a single item. Path holds a VFS path,
// a window id, or a settings key depending on the pass.
type Outcome struct {
	Path   string `json:"path"`
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Report collects outcomes for a whole session.
type Report struct {
	VFS       []Outcome `json:"vfs"`
	Processes []Outcome `json:"processes"`
	Settings  []Outcome `json:"settings,omitempty"`
}

// Count returns how many outcomes in list have the given status.
func Count(list []Outcome, status Status) int {
	n := 0
	for _, o := range list {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Tally maps each status seen in list to its count.
func Tally(list []Outcome) map[Status]int {
	out := make(map[Status]int)
	for _, o := range list {
		out[o.Status]++
	}
	return out
}

func New(path string, status Status) Outcome {
	return Outcome{Path: path, Status: status}
}

// Failed builds an outcome carrying err as its reason.
func Failed(path string, status Status, err error) Outcome {
	return Outcome{Path: path, Status: status, Reason: err.Error()}
}
