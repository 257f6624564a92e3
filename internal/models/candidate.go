// Package models defines the data structures shared by the discovery, extraction and sync stages.
package models

// Candidate is a listing entry pending detail extraction. Its identity is URL.
type Candidate struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}
