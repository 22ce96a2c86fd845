package store

import (
	"context"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	"github.com/streamvibe/streamvibe/internal/api"
	"github.com/streamvibe/streamvibe/internal/scheduler"
)

// DefaultPageSize is used when no page size is configured.
const DefaultPageSize = 10

// MediaState is a snapshot of the media store.
type MediaState struct {
	Media        []api.Media
	CurrentMedia *api.MediaDetail
	UserMedia    []api.Media
	Loading      bool
	Error        error
	CurrentPage  int
	TotalPages   int
	TotalCount   int
	// Searching is set while Media holds search results, which are not paginated.
	Searching bool
	Query     string
}

func (s MediaState) clone() MediaState {
	s.Media = cloneMedia(s.Media)
	s.UserMedia = cloneMedia(s.UserMedia)
	s.CurrentMedia = s.CurrentMedia.Clone()
	return s
}

func cloneMedia(items []api.Media) []api.Media {
	return lo.Map(items, func(m api.Media, _ int) api.Media {
		return m.Clone()
	})
}

// MediaAPI is the part of the backend the media store talks to.
type MediaAPI interface {
	ListMedia(ctx context.Context, page, limit int) (*api.MediaPage, error)
	SearchMedia(ctx context.Context, q string) ([]api.Media, error)
	GetMedia(ctx context.Context, id string) (*api.MediaDetail, error)
	UploadMedia(ctx context.Context, up api.UploadRequest) (*api.Media, error)
	AddComment(ctx context.Context, mediaID, text string) (*api.Comment, error)
	AddRating(ctx context.Context, mediaID string, value float64) (*api.RatingSummary, error)
	ListUserMedia(ctx context.Context) ([]api.Media, error)
	DeleteMedia(ctx context.Context, id string) error
}

// MediaOption configures a Media store.
type MediaOption func(*Media)

// WithPageSize sets the page size used when callers pass none.
func WithPageSize(n int) MediaOption {
	return func(m *Media) {
		if n > 0 {
			m.pageSize = n
		}
	}
}

// WithDebouncer makes SearchDebounced coalesce calls on d.
func WithDebouncer(d *scheduler.Debouncer) MediaOption {
	return func(m *Media) {
		m.debouncer = d
	}
}

// Media holds the gallery, the open detail and the user's own uploads.
//
// Every operation marks the store loading and clears the previous error
// before its request, then either applies the response or records the error.
// Gallery operations (list and search) are sequenced: a response is applied
// only if no newer gallery operation was dispatched after it.
type Media struct {
	client    MediaAPI
	pageSize  int
	debouncer *scheduler.Debouncer

	mu         sync.Mutex
	state      MediaState
	inflight   int
	gallerySeq uint64
	detailSeq  uint64
	listeners  listeners[MediaState]
}

// NewMedia creates an empty media store.
func NewMedia(client MediaAPI, opts ...MediaOption) *Media {
	m := &Media{
		client:   client,
		pageSize: DefaultPageSize,
		state: MediaState{
			Media:       []api.Media{},
			UserMedia:   []api.Media{},
			CurrentPage: 1,
			TotalPages:  1,
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PageSize returns the default page size.
func (m *Media) PageSize() int {
	return m.pageSize
}

// Snapshot returns a copy of the current state.
func (m *Media) Snapshot() MediaState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Subscribe registers fn to receive every new state. Call cancel to unsubscribe.
func (m *Media) Subscribe(fn func(MediaState)) (cancel func()) {
	return m.listeners.add(fn)
}

// Close drops a pending debounced search.
func (m *Media) Close() error {
	if m.debouncer != nil {
		m.debouncer.Cancel()
	}
	return nil
}

// WaitForSearch blocks until no debounced search is pending or running.
func (m *Media) WaitForSearch() {
	if m.debouncer != nil {
		m.debouncer.Wait()
	}
}

// update applies fn under the lock and notifies subscribers afterwards.
func (m *Media) update(fn func(*MediaState)) {
	m.mu.Lock()
	fn(&m.state)
	snapshot := m.state.clone()
	version := m.listeners.stamp()
	m.mu.Unlock()

	m.listeners.publish(version, snapshot)
}

// begin starts a request. fn runs under the same lock, before subscribers are notified.
func (m *Media) begin(fn func()) {
	m.update(func(st *MediaState) {
		m.inflight++
		st.Loading = true
		st.Error = nil
		if fn != nil {
			fn()
		}
	})
}

// finish ends a request. On failure err is recorded unless apply reports the response stale.
func (m *Media) finish(err error, apply func(*MediaState) bool) {
	m.update(func(st *MediaState) {
		m.inflight--
		st.Loading = m.inflight > 0
		if apply != nil && !apply(st) {
			return
		}
		if err != nil {
			st.Error = err
		}
	})
}

func (m *Media) beginGallery() uint64 {
	var seq uint64
	m.begin(func() {
		m.gallerySeq++
		seq = m.gallerySeq
	})
	return seq
}

// current reports whether seq still belongs to the newest gallery operation. Callers hold m.mu.
func (m *Media) current(seq uint64, op string) bool {
	if seq != m.gallerySeq {
		log.Debug("dropping stale gallery response", "op", op, "seq", seq, "latest", m.gallerySeq)
		return false
	}
	return true
}

// ListMedia loads one page of the gallery.
func (m *Media) ListMedia(ctx context.Context, page, pageSize int) error {
	page = max(page, 1)
	if pageSize < 1 {
		pageSize = m.pageSize
	}

	seq := m.beginGallery()
	res, err := m.client.ListMedia(ctx, page, pageSize)
	m.finish(err, func(st *MediaState) bool {
		if !m.current(seq, "list") {
			return false
		}
		if err != nil {
			return true
		}
		st.Media = res.Media
		st.CurrentPage = max(res.CurrentPage, 1)
		st.TotalPages = max(res.TotalPages, 1)
		st.TotalCount = res.TotalMedia
		st.Searching = false
		st.Query = ""
		return true
	})
	return err
}

// SearchMedia replaces the gallery with the media matching query.
// A blank query lists the first page instead.
func (m *Media) SearchMedia(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return m.ListMedia(ctx, 1, m.pageSize)
	}

	seq := m.beginGallery()
	res, err := m.client.SearchMedia(ctx, query)
	m.finish(err, func(st *MediaState) bool {
		if !m.current(seq, "search") {
			return false
		}
		if err != nil {
			return true
		}
		st.Media = res
		st.CurrentPage = 1
		st.TotalPages = 1
		st.TotalCount = len(res)
		st.Searching = true
		st.Query = query
		return true
	})
	return err
}

// SearchDebounced schedules SearchMedia once input has been quiet for the
// debounce delay. Each call replaces the previously scheduled search.
func (m *Media) SearchDebounced(ctx context.Context, query string) error {
	if m.debouncer == nil {
		return m.SearchMedia(ctx, query)
	}
	return m.debouncer.Trigger(func(context.Context) error {
		return m.SearchMedia(ctx, query)
	})
}

// FetchMediaByID opens the detail of one media item.
func (m *Media) FetchMediaByID(ctx context.Context, id string) error {
	var seq uint64
	m.begin(func() {
		m.detailSeq++
		seq = m.detailSeq
	})

	res, err := m.client.GetMedia(ctx, id)
	m.finish(err, func(st *MediaState) bool {
		if seq != m.detailSeq {
			log.Debug("dropping stale detail response", "id", id)
			return false
		}
		if err == nil {
			st.CurrentMedia = res
		}
		return true
	})
	return err
}

// ClearCurrentMedia closes the open detail.
func (m *Media) ClearCurrentMedia() {
	m.update(func(st *MediaState) {
		m.detailSeq++
		st.CurrentMedia = nil
	})
}

// UploadMedia uploads a file and puts the created item first in the gallery and the user's media.
func (m *Media) UploadMedia(ctx context.Context, form UploadForm) error {
	form.normalize()
	if err := validateForm(&form); err != nil {
		return err
	}

	m.begin(nil)
	created, err := m.client.UploadMedia(ctx, form.request())
	m.finish(err, func(st *MediaState) bool {
		if err != nil {
			return true
		}
		st.Media = append([]api.Media{created.Clone()}, st.Media...)
		st.UserMedia = append([]api.Media{created.Clone()}, st.UserMedia...)
		st.TotalCount++
		return true
	})
	if err == nil {
		log.Debug("uploaded media", "id", created.ID, "title", created.Title)
	}
	return err
}

// AddComment posts a comment and appends it to the open detail when it belongs there.
func (m *Media) AddComment(ctx context.Context, mediaID, text string) error {
	text, err := validateComment(text)
	if err != nil {
		return err
	}

	m.begin(nil)
	comment, err := m.client.AddComment(ctx, mediaID, text)
	m.finish(err, func(st *MediaState) bool {
		if err == nil && st.CurrentMedia != nil && st.CurrentMedia.ID == mediaID {
			st.CurrentMedia.Comments = append(st.CurrentMedia.Comments, *comment)
		}
		return true
	})
	return err
}

// AddRating rates a media item. The open detail takes the server's aggregate as is.
func (m *Media) AddRating(ctx context.Context, mediaID string, value float64) error {
	if err := validateRating(value); err != nil {
		return err
	}

	m.begin(nil)
	summary, err := m.client.AddRating(ctx, mediaID, value)
	m.finish(err, func(st *MediaState) bool {
		if err == nil && st.CurrentMedia != nil && st.CurrentMedia.ID == mediaID {
			st.CurrentMedia.AverageRating = summary.AverageRating
			st.CurrentMedia.RatingsCount = summary.RatingsCount
		}
		return true
	})
	return err
}

// FetchUserMedia loads the media uploaded by the logged in user.
func (m *Media) FetchUserMedia(ctx context.Context) error {
	m.begin(nil)
	res, err := m.client.ListUserMedia(ctx)
	m.finish(err, func(st *MediaState) bool {
		if err == nil {
			st.UserMedia = res
		}
		return true
	})
	return err
}

// DeleteMedia deletes a media item and removes it from every list.
func (m *Media) DeleteMedia(ctx context.Context, id string) error {
	m.begin(nil)
	err := m.client.DeleteMedia(ctx, id)
	m.finish(err, func(st *MediaState) bool {
		if err != nil {
			return true
		}
		byID := func(item api.Media, _ int) bool { return item.ID == id }
		before := len(st.Media)
		st.Media = lo.Reject(st.Media, byID)
		st.UserMedia = lo.Reject(st.UserMedia, byID)
		st.TotalCount = max(st.TotalCount-(before-len(st.Media)), 0)
		if st.CurrentMedia != nil && st.CurrentMedia.ID == id {
			st.CurrentMedia = nil
		}
		return true
	})
	if err == nil {
		log.Debug("deleted media", "id", id)
	}
	return err
}

// ClearError dismisses the current error.
func (m *Media) ClearError() {
	m.mu.Lock()
	hasErr := m.state.Error != nil
	m.mu.Unlock()
	if !hasErr {
		return
	}
	m.update(func(st *MediaState) {
		st.Error = nil
	})
}
