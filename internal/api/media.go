package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ListMedia retrieves one page of the media listing.
func (c *Client) ListMedia(ctx context.Context, page, limit int) (*MediaPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	var result MediaPage
	if err := c.doJSON(ctx, opListMedia, http.MethodGet, "/media", query, nil, &result); err != nil {
		return nil, err
	}
	if result.Media == nil {
		result.Media = []Media{}
	}
	return &result, nil
}

// SearchMedia retrieves all media matching a free-text query.
func (c *Client) SearchMedia(ctx context.Context, q string) ([]Media, error) {
	query := url.Values{}
	query.Set("query", q)

	var result []Media
	if err := c.doJSON(ctx, opSearchMedia, http.MethodGet, "/media/search", query, nil, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = []Media{}
	}
	return result, nil
}

// GetMedia retrieves the full detail of one media item.
func (c *Client) GetMedia(ctx context.Context, id string) (*MediaDetail, error) {
	var result MediaDetail
	if err := c.doJSON(ctx, opGetMedia, http.MethodGet, "/media/"+url.PathEscape(id), nil, nil, &result); err != nil {
		return nil, err
	}
	if result.Comments == nil {
		result.Comments = []Comment{}
	}
	return &result, nil
}

// AddComment posts a comment on a media item and returns the stored comment.
func (c *Client) AddComment(ctx context.Context, mediaID, text string) (*Comment, error) {
	body := struct {
		Text string `json:"text"`
	}{Text: text}

	var result Comment
	if err := c.doJSON(ctx, opAddComment, http.MethodPost, "/comments/"+url.PathEscape(mediaID), nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AddRating rates a media item and returns the recomputed aggregate.
func (c *Client) AddRating(ctx context.Context, mediaID string, value float64) (*RatingSummary, error) {
	body := struct {
		Value float64 `json:"value"`
	}{Value: value}

	var result RatingSummary
	if err := c.doJSON(ctx, opAddRating, http.MethodPost, "/ratings/"+url.PathEscape(mediaID), nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListUserMedia retrieves the media uploaded by the authenticated user.
func (c *Client) ListUserMedia(ctx context.Context) ([]Media, error) {
	var result []Media
	if err := c.doJSON(ctx, opListUserMedia, http.MethodGet, "/media/user", nil, nil, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = []Media{}
	}
	return result, nil
}

// DeleteMedia deletes a media item owned by the authenticated user.
func (c *Client) DeleteMedia(ctx context.Context, id string) error {
	return c.doJSON(ctx, opDeleteMedia, http.MethodDelete, "/media/"+url.PathEscape(id), nil, nil, nil)
}
