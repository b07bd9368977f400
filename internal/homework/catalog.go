// Package homework turns raw status API payloads into notification text.
//
// The package is pure: Validate checks the top-level response shape,
// Parse/Format check one element and map its status through the catalog.
package homework

import "sort"

// Status is a review status code reported by the status API.
type Status string

const (
	StatusApproved  Status = "approved"
	StatusReviewing Status = "reviewing"
	StatusRejected  Status = "rejected"
)

var verdicts = map[Status]string{
	StatusApproved:  "Work reviewed: the reviewer liked everything. Hooray!",
	StatusReviewing: "Work has been taken for review by a reviewer.",
	StatusRejected:  "Work reviewed: the reviewer has comments.",
}

// Verdict returns the human-readable sentence for a status.
func Verdict(s Status) (string, bool) {
	v, ok := verdicts[s]
	return v, ok
}

// Statuses lists the known status codes in stable order.
func Statuses() []Status {
	out := make([]Status, 0, len(verdicts))
	for s := range verdicts {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
