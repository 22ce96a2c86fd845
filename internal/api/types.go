package api

import (
	"encoding/json"
	"slices"
	"time"
)

// Role is the kind of account a user registered as.
type Role string

const (
	RoleCreator  Role = "creator"
	RoleConsumer Role = "consumer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleCreator || r == RoleConsumer
}

// MediaType is the kind of an uploaded media file.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// Valid reports whether t is one of the known media types.
func (t MediaType) Valid() bool {
	return t == MediaTypeImage || t == MediaTypeVideo
}

// User is the authenticated account as returned by the backend.
type User struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Avatar string `json:"avatar,omitempty"`
}

// UnmarshalJSON accepts both "_id" and "id" for the identifier.
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	aux := struct {
		*alias
		AltID string `json:"id"`
	}{alias: (*alias)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = aux.AltID
	}
	return nil
}

// CanUpload reports whether the user may upload media.
func (u *User) CanUpload() bool {
	return u != nil && u.Role == RoleCreator
}

// Creator is the public projection of a user attached to media and comments.
type Creator struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// UnmarshalJSON accepts both "_id" and "id" for the identifier.
func (c *Creator) UnmarshalJSON(data []byte) error {
	type alias Creator
	aux := struct {
		*alias
		AltID string `json:"id"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = aux.AltID
	}
	return nil
}

// Media is the summary of an uploaded item as shown in listings.
type Media struct {
	ID            string    `json:"_id"`
	Title         string    `json:"title"`
	Caption       string    `json:"caption,omitempty"`
	Location      string    `json:"location,omitempty"`
	Type          MediaType `json:"type"`
	URL           string    `json:"url"`
	Tags          []string  `json:"tags"`
	Creator       Creator   `json:"creator"`
	AverageRating float64   `json:"averageRating"`
	RatingsCount  int       `json:"ratingsCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

// UnmarshalJSON accepts the rating count as either "ratingsCount" or "totalRatings".
func (m *Media) UnmarshalJSON(data []byte) error {
	type alias Media
	aux := struct {
		*alias
		RatingsCount *int `json:"ratingsCount"`
		TotalRatings *int `json:"totalRatings"`
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.RatingsCount, _ = counts{aux.RatingsCount, aux.TotalRatings}.count()
	return nil
}

// counts holds the spellings the backend uses for the number of ratings.
type counts struct {
	RatingsCount *int `json:"ratingsCount"`
	TotalRatings *int `json:"totalRatings"`
}

func (c counts) count() (int, bool) {
	switch {
	case c.RatingsCount != nil:
		return *c.RatingsCount, true
	case c.TotalRatings != nil:
		return *c.TotalRatings, true
	}
	return 0, false
}

// Clone returns a deep copy of m.
func (m Media) Clone() Media {
	m.Tags = slices.Clone(m.Tags)
	return m
}

// Comment is a single comment on a media item.
type Comment struct {
	ID        string    `json:"_id"`
	User      Creator   `json:"user"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Rating is a single rating on a media item.
type Rating struct {
	ID    string  `json:"_id,omitempty"`
	Value float64 `json:"value"`
}

// MediaDetail is the fully populated representation of one media item.
type MediaDetail struct {
	Media
	Comments []Comment `json:"comments"`
	Ratings  []Rating  `json:"ratings"`
}

// UnmarshalJSON decodes the embedded summary and the populated lists.
// Without a count field the number of ratings is taken from the list.
func (d *MediaDetail) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &d.Media); err != nil {
		return err
	}
	var aux struct {
		counts
		Comments []Comment `json:"comments"`
		Ratings  []Rating  `json:"ratings"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d.Comments = aux.Comments
	d.Ratings = aux.Ratings
	if _, ok := aux.count(); !ok {
		d.RatingsCount = len(d.Ratings)
	}
	return nil
}

// Clone returns a deep copy of d.
func (d *MediaDetail) Clone() *MediaDetail {
	if d == nil {
		return nil
	}
	c := *d
	c.Media = d.Media.Clone()
	c.Comments = slices.Clone(d.Comments)
	c.Ratings = slices.Clone(d.Ratings)
	return &c
}

// MediaPage is one page of the media listing.
type MediaPage struct {
	Media       []Media `json:"media"`
	CurrentPage int     `json:"currentPage"`
	TotalPages  int     `json:"totalPages"`
	TotalMedia  int     `json:"totalMedia"`
}

// RatingSummary is the server-computed aggregate returned after rating.
type RatingSummary struct {
	AverageRating float64 `json:"averageRating"`
	RatingsCount  int     `json:"ratingsCount"`
}

// UnmarshalJSON accepts the count as either "ratingsCount" or "totalRatings".
func (r *RatingSummary) UnmarshalJSON(data []byte) error {
	var aux struct {
		AverageRating float64 `json:"averageRating"`
		counts
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.AverageRating = aux.AverageRating
	r.RatingsCount, _ = aux.count()
	return nil
}

// AuthResponse is returned by login and registration.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// LoginRequest is the body of a login call.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of a registration call.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}
