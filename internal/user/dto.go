// AngelaMos | 2026
// dto.go

package user

import (
	"time"
)

type UpdateProfileRequest struct {
	DisplayName       *string `json:"displayName,omitempty"       validate:"omitempty,min=3,max=50"`
	ProfileVisibility *string `json:"profileVisibility,omitempty" validate:"omitempty,oneof=public private"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=online away"`
}

type StatResponse struct {
	Difficulty  string `json:"difficulty"`
	Count       int    `json:"count"`
	Submissions int    `json:"submissions"`
}

type ProfileResponse struct {
	ID                string         `json:"userId"`
	Email             string         `json:"email,omitempty"`
	DisplayName       *string        `json:"displayName"`
	LeetcodeUsername  string         `json:"leetcodeUsername"`
	ProfileVisibility string         `json:"profileVisibility"`
	Status            string         `json:"status"`
	RealName          string         `json:"realName"`
	CountryName       string         `json:"countryName"`
	Company           string         `json:"company"`
	School            string         `json:"school"`
	AboutMe           string         `json:"aboutMe"`
	Reputation        int            `json:"reputation"`
	Ranking           int            `json:"ranking"`
	AcSubmissions     []StatResponse `json:"acSubmissions"`
	TotalSubmissions  []StatResponse `json:"totalSubmissions"`
	CreatedAt         time.Time      `json:"createdAt"`
}

// PrivateProfileResponse is all a viewer sees of someone else's private profile.
type PrivateProfileResponse struct {
	ID                string  `json:"userId"`
	DisplayName       *string `json:"displayName"`
	LeetcodeUsername  string  `json:"leetcodeUsername"`
	ProfileVisibility string  `json:"profileVisibility"`
}

type SearchResult struct {
	DisplayName      *string `json:"displayName"`
	LeetcodeUsername string  `json:"leetcodeUsername"`
	Ranking          int     `json:"ranking"`
}

type ComparisonResponse struct {
	CurrentUser ProfileResponse `json:"currentUser"`
	OtherUser   ProfileResponse `json:"otherUser"`
}

type ProfileView struct {
	User  *User
	Stats []SubmissionStat
}

func ToProfileResponse(v *ProfileView, includeEmail bool) ProfileResponse {
	u := v.User
	resp := ProfileResponse{
		ID:                u.ID,
		DisplayName:       u.DisplayName,
		LeetcodeUsername:  u.PlatformUsername,
		ProfileVisibility: u.Visibility,
		Status:            u.Status,
		RealName:          u.RealName,
		CountryName:       u.CountryName,
		Company:           u.Company,
		School:            u.School,
		AboutMe:           u.AboutMe,
		Reputation:        u.Reputation,
		Ranking:           u.Ranking,
		AcSubmissions:     []StatResponse{},
		TotalSubmissions:  []StatResponse{},
		CreatedAt:         u.CreatedAt,
	}
	if includeEmail {
		resp.Email = u.Email
	}

	for _, s := range v.Stats {
		stat := StatResponse{
			Difficulty:  s.Difficulty,
			Count:       s.Count,
			Submissions: s.Submissions,
		}
		switch s.Kind {
		case StatKindAccepted:
			resp.AcSubmissions = append(resp.AcSubmissions, stat)
		case StatKindTotal:
			resp.TotalSubmissions = append(resp.TotalSubmissions, stat)
		}
	}

	return resp
}

func ToPrivateProfileResponse(u *User) PrivateProfileResponse {
	return PrivateProfileResponse{
		ID:                u.ID,
		DisplayName:       u.DisplayName,
		LeetcodeUsername:  u.PlatformUsername,
		ProfileVisibility: u.Visibility,
	}
}

func ToSearchResults(users []User) []SearchResult {
	results := make([]SearchResult, 0, len(users))
	for _, u := range users {
		results = append(results, SearchResult{
			DisplayName:      u.DisplayName,
			LeetcodeUsername: u.PlatformUsername,
			Ranking:          u.Ranking,
		})
	}
	return results
}
