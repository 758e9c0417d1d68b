// AngelaMos | 2026
// types.go

package judge

const (
	StatusInQueue    = 1
	StatusProcessing = 2
	StatusAccepted   = 3
)

type Submission struct {
	LanguageID     int    `json:"language_id"`
	SourceCode     string `json:"source_code"`
	Stdin          string `json:"stdin"`
	ExpectedOutput string `json:"expected_output"`
}

type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type Result struct {
	Token  string  `json:"token"`
	Status Status  `json:"status"`
	Stdout *string `json:"stdout"`
	Stderr *string `json:"stderr"`
	Time   *string `json:"time"`
	Memory *int    `json:"memory"`
}

func (r Result) Accepted() bool {
	return r.Status.ID == StatusAccepted
}

func (r Result) Pending() bool {
	return r.Status.ID == StatusInQueue || r.Status.ID == StatusProcessing
}

// AllAccepted is false for an empty batch.
func AllAccepted(results []Result) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if !r.Accepted() {
			return false
		}
	}
	return true
}

func AnyPending(results []Result) bool {
	for _, r := range results {
		if r.Pending() {
			return true
		}
	}
	return false
}

type batchRequest struct {
	Submissions []Submission `json:"submissions"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type batchResultResponse struct {
	Submissions []Result `json:"submissions"`
}
