// Package backendtest provides an in-memory search backend served over
// httptest for exercising the client end to end.
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/matheus3301/gcsearch/internal/backend"
)

// Chat is one conversation held by the fake backend. Messages are oldest first.
type Chat struct {
	Name        string
	DisplayName string
	Platform    backend.Platform
	Messages    []backend.Message
}

// Server is a fake backend speaking the /api JSON contract.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	chats       map[string]Chat
	order       []string
	currentUser *string
	failUser    string
	down        bool
	failInfo    map[string]string
	calls       map[string]int
}

// New starts a server holding the given chats.
func New(chats ...Chat) *Server {
	s := &Server{
		chats:    make(map[string]Chat),
		failInfo: make(map[string]string),
		calls:    make(map[string]int),
	}
	for _, c := range chats {
		s.chats[c.Name] = c
		s.order = append(s.order, c.Name)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/"+backend.EndpointIsAlive, s.isAlive)
	mux.HandleFunc("GET /api/"+backend.EndpointCurrentUser, s.getCurrentUser)
	mux.HandleFunc("POST /api/"+backend.EndpointListChats, s.listChats)
	mux.HandleFunc("POST /api/"+backend.EndpointChatInfo, s.chatInfo)
	mux.HandleFunc("POST /api/"+backend.EndpointTopN, s.topN)
	mux.HandleFunc("POST /api/"+backend.EndpointProximity, s.proximity)
	mux.HandleFunc("POST /api/"+backend.EndpointWindow, s.window)
	s.Server = httptest.NewServer(s.count(mux))
	return s
}

// APIURL returns the base URL including the /api prefix.
func (s *Server) APIURL() string { return s.URL + "/api" }

// SetCurrentUser sets the identity returned by GetCurrentUser; nil means unknown.
func (s *Server) SetCurrentUser(id *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentUser = id
}

// FailCurrentUser makes GetCurrentUser report msg; empty restores it.
func (s *Server) FailCurrentUser(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failUser = msg
}

// SetDown makes every endpoint answer 503.
func (s *Server) SetDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

// FailInfo makes GetInfoForGroupChat report msg for the named chat.
func (s *Server) FailInfo(name, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failInfo[name] = msg
}

// Calls returns how many requests reached endpoint.
func (s *Server) Calls(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[endpoint]
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[strings.TrimPrefix(r.URL.Path, "/api/")]++
		down := s.down
		s.mu.Unlock()
		if down {
			http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type wireMessage struct {
	DocID   int    `json:"doc_id"`
	Time    int64  `json:"time"`
	Sender  string `json:"sender"`
	Message string `json:"message"`
	IsMedia bool   `json:"is_media"`
	URI     string `json:"uri,omitempty"`
}

func toWire(m backend.Message) wireMessage {
	id, _ := strconv.Atoi(m.DocumentID)
	return wireMessage{
		DocID:   id,
		Time:    m.TimestampMillis,
		Sender:  m.Sender,
		Message: m.Text,
		IsMedia: m.ImageURL != "" && m.Text == "",
		URI:     m.ImageURL,
	}
}

type wireResult struct {
	ChatName       string      `json:"chat_name"`
	Platform       string      `json:"platform"`
	MessageDetails wireMessage `json:"message_details"`
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]string{"error": "invalid JSON body"})
		return false
	}
	return true
}

func (s *Server) isAlive(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) getCurrentUser(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUser != "" {
		writeJSON(w, map[string]string{"error": s.failUser})
		return
	}
	writeJSON(w, map[string]*string{"current_user": s.currentUser})
}

func (s *Server) listChats(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Platform string `json:"platform"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := []string{}
	for _, name := range s.order {
		if string(s.chats[name].Platform) == req.Platform {
			ids = append(ids, name)
		}
	}
	writeJSON(w, ids)
}

func (s *Server) chatInfo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChatName string `json:"chat_name"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg, ok := s.failInfo[req.ChatName]; ok {
		writeJSON(w, map[string]string{"error": msg})
		return
	}
	c, ok := s.chats[req.ChatName]
	if !ok {
		writeJSON(w, map[string]string{"error": "chat not found"})
		return
	}
	resp := map[string]any{"display_name": c.DisplayName, "last_message": nil}
	if len(c.Messages) > 0 {
		resp["last_message"] = toWire(c.Messages[len(c.Messages)-1])
	}
	writeJSON(w, resp)
}

func (s *Server) topN(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
		N     int    `json:"n"`
	}
	if !decode(w, r, &req) {
		return
	}
	terms := strings.Fields(strings.ToLower(req.Query))
	writeJSON(w, s.match(req.N, func(text string) bool {
		for _, t := range terms {
			if !strings.Contains(text, t) {
				return false
			}
		}
		return len(terms) > 0
	}))
}

func (s *Server) proximity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
		Range int    `json:"range"`
	}
	if !decode(w, r, &req) {
		return
	}
	terms := strings.Fields(strings.ToLower(req.Query))
	writeJSON(w, s.match(0, func(text string) bool {
		return within(strings.Fields(text), terms, req.Range)
	}))
}

// match returns results newest first, capped at limit when positive.
func (s *Server) match(limit int, keep func(text string) bool) []wireResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []wireResult{}
	for _, name := range s.order {
		c := s.chats[name]
		for _, m := range c.Messages {
			if keep(strings.ToLower(m.Text)) {
				out = append(out, wireResult{ChatName: c.Name, Platform: string(c.Platform), MessageDetails: toWire(m)})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MessageDetails.Time > out[j].MessageDetails.Time })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// within reports whether every term occurs and each consecutive pair of
// terms appears no more than rng words apart.
func within(words, terms []string, rng int) bool {
	if len(terms) == 0 {
		return false
	}
	prev := -1
	for _, t := range terms {
		pos := -1
		for i, w := range words {
			if strings.Trim(w, ".,!?") == t && (prev < 0 || (i > prev && i-prev <= rng)) {
				pos = i
				break
			}
		}
		if pos < 0 {
			return false
		}
		prev = pos
	}
	return true
}

func (s *Server) window(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PII   string      `json:"pii_name"`
		DocID json.Number `json:"doc_id"`
		N     int         `json:"n"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[req.PII]
	if !ok {
		writeJSON(w, map[string]string{"error": "unknown pii_name"})
		return
	}
	idx := -1
	for i, m := range c.Messages {
		if m.DocumentID == req.DocID.String() {
			idx = i
			break
		}
	}
	if idx < 0 {
		writeJSON(w, map[string]string{"error": "doc_id not in chat"})
		return
	}

	lo, hi := idx-req.N, idx+req.N+1
	if req.N < 0 {
		lo, hi = idx+req.N, idx
	}
	lo = max(lo, 0)
	hi = min(hi, len(c.Messages))
	out := []wireMessage{}
	for _, m := range c.Messages[lo:hi] {
		out = append(out, toWire(m))
	}
	writeJSON(w, out)
}
