// Package problem writes RFC 7807 problem+json responses.
package problem

import (
	"encoding/json"
	"net/http"
)

type Problem struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
}

func Write(w http.ResponseWriter, status int, title, detail string) {
	WriteProblem(w, Problem{Title: title, Status: status, Detail: detail})
}

// WriteProblem writes p, defaulting Type to about:blank.
func WriteProblem(w http.ResponseWriter, p Problem) {
	if p.Type == "" {
		p.Type = "about:blank"
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}
