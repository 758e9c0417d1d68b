// AngelaMos | 2026
// types.go

package leetcode

import "encoding/json"

type Profile struct {
	Username    string      `json:"username"`
	Profile     ProfileInfo `json:"profile"`
	SubmitStats SubmitStats `json:"submitStats"`
}

type ProfileInfo struct {
	RealName    string `json:"realName"`
	CountryName string `json:"countryName"`
	Company     string `json:"company"`
	School      string `json:"school"`
	AboutMe     string `json:"aboutMe"`
	Reputation  int    `json:"reputation"`
	Ranking     int    `json:"ranking"`
}

type SubmitStats struct {
	AcSubmissionNum    []SubmissionCount `json:"acSubmissionNum"`
	TotalSubmissionNum []SubmissionCount `json:"totalSubmissionNum"`
}

type SubmissionCount struct {
	Difficulty  string `json:"difficulty"`
	Count       int    `json:"count"`
	Submissions int    `json:"submissions"`
}

// ProblemRef identifies a problem on the platform by slug and display title.
type ProblemRef struct {
	Title     string `json:"title"`
	TitleSlug string `json:"titleSlug"`
}

type dailyResponse struct {
	Question ProblemRef `json:"question"`
}

type searchResult struct {
	Title     string `json:"title"`
	TitleSlug string `json:"title_slug"`
}

// ProblemDetails is passed through to clients untouched.
type ProblemDetails = json.RawMessage
