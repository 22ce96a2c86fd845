// Package gravatar derives fallback avatars for users the backend sends without one.
package gravatar

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/streamvibe/streamvibe/internal/api"
	"github.com/streamvibe/streamvibe/internal/config"
)

const baseURL = "https://www.gravatar.com/avatar/"

var (
	defaultImages = []string{"404", "mp", "identicon", "monsterid", "wavatar", "retro", "robohash", "blank"}
	ratings       = []string{"g", "pg", "r", "x"}
)

// AvatarURL returns the avatar to show for u: the backend avatar when set,
// otherwise a Gravatar URL derived from the email, otherwise "".
func AvatarURL(u *api.User, cfg *config.GravatarConfig) string {
	if u == nil {
		return ""
	}
	if u.Avatar != "" {
		return u.Avatar
	}
	return GenerateURL(u.Email, cfg)
}

// GenerateURL generates a Gravatar URL for the given email address.
// Returns an empty string if Gravatar is disabled or email is empty.
func GenerateURL(email string, cfg *config.GravatarConfig) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if cfg == nil || !cfg.Enabled || email == "" {
		return ""
	}

	hash := sha256.Sum256([]byte(email))

	params := url.Values{}
	if cfg.DefaultImage != "" {
		params.Add("d", cfg.DefaultImage)
	}
	if cfg.Rating != "" {
		params.Add("r", cfg.Rating)
	}
	if cfg.Size > 0 {
		params.Add("s", strconv.Itoa(cfg.Size))
	}

	u := baseURL + hex.EncodeToString(hash[:])
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// Validate checks the Gravatar settings. Disabled settings are always valid.
func Validate(cfg *config.GravatarConfig) error {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	if cfg.DefaultImage != "" && !IsValidDefaultImage(cfg.DefaultImage) {
		return fmt.Errorf("invalid gravatar default image %q", cfg.DefaultImage)
	}
	if cfg.Rating != "" && !IsValidRating(cfg.Rating) {
		return fmt.Errorf("invalid gravatar rating %q", cfg.Rating)
	}
	if cfg.Size != 0 && !IsValidSize(cfg.Size) {
		return fmt.Errorf("gravatar size must be between 1 and 2048, got %d", cfg.Size)
	}
	return nil
}

// IsValidDefaultImage checks if the provided default image value is valid for Gravatar.
func IsValidDefaultImage(defaultImage string) bool {
	return slices.Contains(defaultImages, defaultImage)
}

// IsValidRating checks if the provided rating value is valid for Gravatar.
func IsValidRating(rating string) bool {
	return slices.Contains(ratings, rating)
}

// IsValidSize checks if the provided size value is valid for Gravatar (1-2048 pixels).
func IsValidSize(size int) bool {
	return size >= 1 && size <= 2048
}
