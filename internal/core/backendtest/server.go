// Package backendtest is an in-process chat backend for tests. It serves the
// same HTTP contract as the real service from in-memory state.
package backendtest

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type chat struct {
	id        string
	owner     string
	title     string
	createdAt time.Time
	messages  []message
}

type failure struct {
	status int
	detail string
}

// Server holds users, tokens and chats
type Server struct {
	mu       sync.Mutex
	users    map[string]string // username -> password
	tokens   map[string]string // token -> username
	chats    []*chat           // newest first
	failures map[string][]failure
	calls    map[string]int
	answer   func(chatID, query string) string
	seq      int
	now      func() time.Time
}

// New returns an empty backend
func New() *Server {
	return &Server{
		users:    make(map[string]string),
		tokens:   make(map[string]string),
		failures: make(map[string][]failure),
		calls:    make(map[string]int),
		answer: func(_, query string) string {
			return "answer: " + query
		},
		now: time.Now,
	}
}

// Start serves the backend on a local listener for the life of the test and
// returns its base URL
func (s *Server) Start(t testing.TB) string {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

// Handler returns the gin router
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.track())

	router.POST("/token", s.login)
	router.POST("/signup", s.signup)

	authed := router.Group("/")
	authed.Use(s.requireToken())
	{
		authed.GET("/history", s.listHistory)
		authed.GET("/history/:id", s.getChat)
		authed.DELETE("/history/:id", s.deleteChat)
		authed.POST("/chat", s.chat)
		authed.POST("/upload", s.upload)
	}
	return router
}

// AddUser registers an account directly
func (s *Server) AddUser(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = password
}

// IssueToken returns a valid token for an existing user
func (s *Server) IssueToken(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(username)
}

// RevokeTokens invalidates every outstanding token
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]string)
}

// SeedChat creates a chat owned by username and returns its id. Messages
// alternate user/bot starting with the user.
func (s *Server) SeedChat(username, title string, texts ...string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.newChatLocked(username, title)
	for i, text := range texts {
		role := "user"
		if i%2 == 1 {
			role = "bot"
		}
		c.messages = append(c.messages, message{Role: role, Text: text})
	}
	return c.id
}

// FailNext makes the next request matching method and route (for example
// "POST /chat" or "GET /history/:id") fail with status and detail
func (s *Server) FailNext(route string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], failure{status: status, detail: detail})
}

// SetAnswer replaces the answer generator
func (s *Server) SetAnswer(fn func(chatID, query string) string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answer = fn
}

// Calls reports how many requests hit a route
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// Messages returns the stored log of a chat as role/text pairs
func (s *Server) Messages(chatID string) [][2]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.chats {
		if c.id == chatID {
			out := make([][2]string, len(c.messages))
			for i, m := range c.messages {
				out[i] = [2]string{m.Role, m.Text}
			}
			return out
		}
	}
	return nil
}

// HasChat reports whether a chat exists
func (s *Server) HasChat(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(chatID) != nil
}

func (s *Server) issueLocked(username string) string {
	token := uuid.NewString()
	s.tokens[token] = username
	return token
}

func (s *Server) newChatLocked(owner, title string) *chat {
	s.seq++
	c := &chat{
		id:        fmt.Sprintf("c%d", s.seq),
		owner:     owner,
		title:     title,
		createdAt: s.now().UTC(),
	}
	s.chats = append([]*chat{c}, s.chats...)
	return c
}

func (s *Server) findLocked(id string) *chat {
	for _, c := range s.chats {
		if c.id == id {
			return c
		}
	}
	return nil
}

// track counts calls and applies queued failures
func (s *Server) track() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.Request.Method + " " + c.FullPath()

		s.mu.Lock()
		s.calls[route]++
		var f *failure
		if queue := s.failures[route]; len(queue) > 0 {
			f = &queue[0]
			s.failures[route] = queue[1:]
		}
		s.mu.Unlock()

		if f != nil {
			c.AbortWithStatusJSON(f.status, gin.H{"detail": f.detail})
			return
		}
		c.Next()
	}
}

func (s *Server) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")

		s.mu.Lock()
		username, valid := s.tokens[token]
		s.mu.Unlock()

		if !ok || !valid {
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
			return
		}
		c.Set("username", username)
		c.Next()
	}
}

func (s *Server) login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	s.mu.Lock()
	defer s.mu.Unlock()

	if stored, ok := s.users[username]; !ok || stored != password {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Incorrect username or password"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": s.issueLocked(username),
		"token_type":   "bearer",
	})
}

func (s *Server) signup(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	if username == "" || password == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{
			{"loc": []string{"body", "username"}, "msg": "field required", "type": "value_error.missing"},
		}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Username already registered"})
		return
	}
	s.users[username] = password
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("User %s created successfully", username)})
}

func (s *Server) listHistory(c *gin.Context) {
	username := c.GetString("username")

	s.mu.Lock()
	defer s.mu.Unlock()

	items := []gin.H{}
	for _, ch := range s.chats {
		if ch.owner != username {
			continue
		}
		items = append(items, gin.H{
			"id":         ch.id,
			"title":      ch.title,
			"created_at": ch.createdAt.Format("2006-01-02T15:04:05.000000"),
		})
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) getChat(c *gin.Context) {
	username := c.GetString("username")

	s.mu.Lock()
	defer s.mu.Unlock()

	ch := s.findLocked(c.Param("id"))
	if ch == nil || ch.owner != username {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Chat not found"})
		return
	}
	msgs := make([]message, len(ch.messages))
	copy(msgs, ch.messages)
	c.JSON(http.StatusOK, gin.H{
		"id":         ch.id,
		"title":      ch.title,
		"created_at": ch.createdAt.Format("2006-01-02T15:04:05.000000"),
		"messages":   msgs,
	})
}

func (s *Server) deleteChat(c *gin.Context) {
	username := c.GetString("username")
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, ch := range s.chats {
		if ch.id == id && ch.owner == username {
			s.chats = append(s.chats[:i], s.chats[i+1:]...)
			c.JSON(http.StatusOK, gin.H{"message": "Chat deleted successfully"})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": "Chat not found"})
}

func (s *Server) chat(c *gin.Context) {
	var req struct {
		Query  string `json:"query" binding:"required"`
		ChatID string `json:"chat_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	s.mu.Lock()
	answerFn := s.answer
	s.mu.Unlock()

	answer := answerFn(req.ChatID, req.Query)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ch := s.findLocked(req.ChatID); ch != nil {
		ch.messages = append(ch.messages,
			message{Role: "user", Text: req.Query},
			message{Role: "bot", Text: answer},
		)
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

func (s *Server) upload(c *gin.Context) {
	username := c.GetString("username")

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "file is required"})
		return
	}
	if !strings.HasSuffix(file.Filename, ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Only PDF files are allowed"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	defer func() { _ = f.Close() }()
	if _, err := io.Copy(io.Discard, f); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.chats {
		if ch.owner == username && ch.title == file.Filename {
			c.JSON(http.StatusOK, gin.H{
				"chat_id": ch.id,
				"message": "Opened existing chat for this file",
				"details": "Using cached version",
			})
			return
		}
	}

	ch := s.newChatLocked(username, file.Filename)
	c.JSON(http.StatusOK, gin.H{
		"chat_id": ch.id,
		"message": "File processed and new chat created",
		"details": gin.H{"chunks": 1},
	})
}
