// Package apitest provides an in-memory StreamVibe backend for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/streamvibe/streamvibe/internal/api"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// RecordedRequest is a request the backend received.
type RecordedRequest struct {
	Method        string
	Route         string
	Path          string
	Query         string
	Authorization string
}

type failure struct {
	status int
	body   []byte
}

type userRecord struct {
	user     api.User
	password string
}

// Server is a fake StreamVibe backend served over HTTP.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	secret   []byte
	nextID   int
	users    map[string]*userRecord
	byEmail  map[string]string
	media    []*api.MediaDetail
	ratings  map[string]map[string]float64
	failures map[string]failure
	blocks   map[string]chan struct{}
	requests []RecordedRequest
	now      func() time.Time
}

// NewServer starts a fake backend. Close it when done.
func NewServer() *Server {
	s := &Server{
		secret:   []byte("apitest-secret"),
		users:    make(map[string]*userRecord),
		byEmail:  make(map[string]string),
		ratings:  make(map[string]map[string]float64),
		failures: make(map[string]failure),
		blocks:   make(map[string]chan struct{}),
		now:      time.Now,
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

// APIURL is the base URL clients should be configured with.
func (s *Server) APIURL() string {
	return s.URL + "/api"
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), gzip.Gzip(gzip.DefaultCompression), s.record, s.inject)

	api := r.Group("/api")
	api.POST("/auth/register", s.register)
	api.POST("/auth/login", s.login)

	authed := api.Group("")
	authed.Use(s.authenticate)
	authed.GET("/auth/me", s.me)
	authed.GET("/media", s.listMedia)
	authed.GET("/media/search", s.searchMedia)
	authed.GET("/media/user", s.userMedia)
	authed.GET("/media/:id", s.getMedia)
	authed.POST("/media/upload", s.upload)
	authed.DELETE("/media/:id", s.deleteMedia)
	authed.POST("/comments/:id", s.addComment)
	authed.POST("/ratings/:id", s.addRating)

	return r
}

func routeKey(method, route string) string {
	return method + " " + route
}

// Fail makes every following request to route answer with status and body.
// A string body is sent as a JSON string, []byte is sent raw, anything else is JSON encoded.
func (s *Server) Fail(method, route string, status int, body any) {
	var raw []byte
	switch b := body.(type) {
	case []byte:
		raw = b
	case nil:
		raw = nil
	default:
		raw, _ = json.Marshal(b)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[routeKey(method, route)] = failure{status: status, body: raw}
}

// Recover removes a failure installed with Fail.
func (s *Server) Recover(method, route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, routeKey(method, route))
}

// Block holds requests to route until the returned function is called.
func (s *Server) Block(method, route string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.blocks[routeKey(method, route)] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.blocks, routeKey(method, route))
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Requests returns the requests received so far.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// Count returns how many requests hit route.
func (s *Server) Count(method, route string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Route == route {
			n++
		}
	}
	return n
}

func (s *Server) record(c *gin.Context) {
	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Method:        c.Request.Method,
		Route:         c.FullPath(),
		Path:          c.Request.URL.Path,
		Query:         c.Request.URL.RawQuery,
		Authorization: c.GetHeader("Authorization"),
	})
	s.mu.Unlock()
	c.Next()
}

func (s *Server) inject(c *gin.Context) {
	key := routeKey(c.Request.Method, c.FullPath())

	s.mu.Lock()
	f, failing := s.failures[key]
	block, blocked := s.blocks[key]
	s.mu.Unlock()

	if blocked {
		<-block
	}
	if failing {
		c.Data(f.status, "application/json", f.body)
		c.Abort()
		return
	}
	c.Next()
}

func (s *Server) newID() string {
	s.nextID++
	return fmt.Sprintf("%024x", s.nextID)
}

// AddUser creates an account directly.
func (s *Server) AddUser(name, email, password string, role api.Role) api.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(name, email, password, role)
}

func (s *Server) addUserLocked(name, email, password string, role api.Role) api.User {
	u := api.User{ID: s.newID(), Name: name, Email: email, Role: role}
	s.users[u.ID] = &userRecord{user: u, password: password}
	s.byEmail[strings.ToLower(email)] = u.ID
	return u
}

// AddMedia stores m as the newest item, owned by creatorID.
func (s *Server) AddMedia(creatorID string, m api.Media) api.Media {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addMediaLocked(creatorID, m)
}

func (s *Server) addMediaLocked(creatorID string, m api.Media) api.Media {
	m.ID = s.newID()
	if rec, ok := s.users[creatorID]; ok {
		m.Creator = api.Creator{ID: rec.user.ID, Name: rec.user.Name}
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}
	detail := &api.MediaDetail{Media: m, Comments: []api.Comment{}, Ratings: []api.Rating{}}
	s.media = append([]*api.MediaDetail{detail}, s.media...)
	return m
}

// Media returns the stored media, newest first.
func (s *Server) Media() []api.Media {
	s.mu.Lock()
	defer s.mu.Unlock()
	return summaries(s.media)
}

// Token mints a bearer token for userID valid for ttl. A negative ttl yields an expired token.
func (s *Server) Token(userID string, ttl time.Duration) string {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(s.now().Add(ttl)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return tok
}

func (s *Server) authenticate(c *gin.Context) {
	header := c.GetHeader("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No token, authorization denied"})
		return
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token is not valid"})
		return
	}

	s.mu.Lock()
	rec, exists := s.users[claims.Subject]
	s.mu.Unlock()
	if !exists {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token is not valid"})
		return
	}
	c.Set("user", rec.user)
	c.Next()
}

func currentUser(c *gin.Context) api.User {
	return c.MustGet("user").(api.User)
}

func (s *Server) register(c *gin.Context) {
	var req api.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []gin.H{{"msg": "Invalid request body"}}})
		return
	}
	if !req.Role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []gin.H{{"msg": "Invalid role"}}})
		return
	}

	s.mu.Lock()
	if _, exists := s.byEmail[strings.ToLower(req.Email)]; exists {
		s.mu.Unlock()
		c.JSON(http.StatusBadRequest, gin.H{"message": "User already exists"})
		return
	}
	u := s.addUserLocked(req.Name, req.Email, req.Password, req.Role)
	s.mu.Unlock()

	c.JSON(http.StatusCreated, gin.H{
		"token": s.Token(u.ID, time.Hour),
		"user":  gin.H{"id": u.ID, "name": u.Name, "email": u.Email, "role": u.Role},
	})
}

func (s *Server) login(c *gin.Context) {
	var req api.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []gin.H{{"msg": "Invalid request body"}}})
		return
	}

	s.mu.Lock()
	id, exists := s.byEmail[strings.ToLower(req.Email)]
	var rec *userRecord
	if exists {
		rec = s.users[id]
	}
	s.mu.Unlock()

	if rec == nil || rec.password != req.Password {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, api.AuthResponse{Token: s.Token(rec.user.ID, time.Hour), User: rec.user})
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

func summaries(items []*api.MediaDetail) []api.Media {
	out := make([]api.Media, 0, len(items))
	for _, d := range items {
		out = append(out, d.Media.Clone())
	}
	return out
}

func (s *Server) listMedia(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		limit = 10
	}

	s.mu.Lock()
	all := summaries(s.media)
	s.mu.Unlock()

	start := min((page-1)*limit, len(all))
	end := min(start+limit, len(all))
	c.JSON(http.StatusOK, api.MediaPage{
		Media:       all[start:end],
		CurrentPage: page,
		TotalPages:  int(math.Ceil(float64(len(all)) / float64(limit))),
		TotalMedia:  len(all),
	})
}

func matches(m api.Media, q string) bool {
	q = strings.ToLower(q)
	if strings.Contains(strings.ToLower(m.Title), q) ||
		strings.Contains(strings.ToLower(m.Caption), q) ||
		strings.Contains(strings.ToLower(m.Location), q) {
		return true
	}
	for _, tag := range m.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

func (s *Server) searchMedia(c *gin.Context) {
	q := strings.TrimSpace(c.Query("query"))

	s.mu.Lock()
	all := summaries(s.media)
	s.mu.Unlock()

	result := []api.Media{}
	for _, m := range all {
		if matches(m, q) {
			result = append(result, m)
		}
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) userMedia(c *gin.Context) {
	user := currentUser(c)

	s.mu.Lock()
	all := summaries(s.media)
	s.mu.Unlock()

	result := []api.Media{}
	for _, m := range all {
		if m.Creator.ID == user.ID {
			result = append(result, m)
		}
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) findLocked(id string) (int, *api.MediaDetail) {
	for i, d := range s.media {
		if d.ID == id {
			return i, d
		}
	}
	return -1, nil
}

func (s *Server) getMedia(c *gin.Context) {
	s.mu.Lock()
	_, d := s.findLocked(c.Param("id"))
	var detail *api.MediaDetail
	if d != nil {
		detail = d.Clone()
	}
	s.mu.Unlock()

	if detail == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Media not found"})
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) upload(c *gin.Context) {
	user := currentUser(c)
	if user.Role != api.RoleCreator {
		c.JSON(http.StatusForbidden, gin.H{"message": "Only creators can upload media"})
		return
	}

	file, err := c.FormFile("media")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Please upload a file"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Please upload a file"})
		return
	}
	_, _ = io.Copy(io.Discard, f)
	_ = f.Close()

	var tags []string
	if raw := c.PostForm("tags"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": []gin.H{{"msg": "Tags must be a JSON array"}}})
			return
		}
	}

	mediaType := api.MediaType(c.PostForm("type"))
	if !mediaType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []gin.H{{"msg": "Media type must be either video or image"}}})
		return
	}

	s.mu.Lock()
	m := s.addMediaLocked(user.ID, api.Media{
		Title:    c.PostForm("title"),
		Caption:  c.PostForm("caption"),
		Location: c.PostForm("location"),
		Type:     mediaType,
		Tags:     tags,
	})
	m.URL = fmt.Sprintf("/uploads/%s/%s", m.ID, file.Filename)
	s.media[0].URL = m.URL
	s.mu.Unlock()

	c.JSON(http.StatusCreated, m)
}

func (s *Server) deleteMedia(c *gin.Context) {
	user := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	i, d := s.findLocked(c.Param("id"))
	if d == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Media not found"})
		return
	}
	if d.Creator.ID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"message": "Not authorized to delete this media"})
		return
	}
	s.media = append(s.media[:i], s.media[i+1:]...)
	delete(s.ratings, d.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Media deleted"})
}

func (s *Server) addComment(c *gin.Context) {
	user := currentUser(c)

	var body struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []gin.H{{"msg": "Comment text is required"}}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, d := s.findLocked(c.Param("id"))
	if d == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Media not found"})
		return
	}
	comment := api.Comment{
		ID:        s.newID(),
		User:      api.Creator{ID: user.ID, Name: user.Name},
		Text:      body.Text,
		CreatedAt: s.now(),
	}
	d.Comments = append(d.Comments, comment)
	c.JSON(http.StatusCreated, comment)
}

func (s *Server) addRating(c *gin.Context) {
	user := currentUser(c)

	var body struct {
		Value float64 `json:"value"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Value < 1 || body.Value > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []gin.H{{"msg": "Rating must be between 1 and 5"}}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, d := s.findLocked(c.Param("id"))
	if d == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Media not found"})
		return
	}

	byUser := s.ratings[d.ID]
	if byUser == nil {
		byUser = make(map[string]float64)
		s.ratings[d.ID] = byUser
	}
	byUser[user.ID] = body.Value

	var sum float64
	d.Ratings = d.Ratings[:0]
	for uid, v := range byUser {
		sum += v
		d.Ratings = append(d.Ratings, api.Rating{ID: uid, Value: v})
	}
	d.RatingsCount = len(byUser)
	d.AverageRating = math.Round(sum/float64(len(byUser))*10) / 10

	c.JSON(http.StatusOK, gin.H{
		"averageRating": d.AverageRating,
		"totalRatings":  d.RatingsCount,
	})
}
