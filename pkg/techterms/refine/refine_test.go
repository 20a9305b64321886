package refine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/techterms/internal/llm"
)

func TestBlocklistApply(t *testing.T) {
	b := NewBlocklist(nil)
	got := b.Apply([]string{"MetLife", "Kubernetes", "kubernetes", "Docker", "UX", " ", "Go"})
	assert.Equal(t, []string{"Docker", "Go", "Kubernetes"}, got)
}

func TestAllowlistApply(t *testing.T) {
	a := NewAllowlist(nil)
	got := a.Apply([]string{
		"ReactJS", "React", "react.js",
		"Node",
		"PostgreSQL",
		"Team Player",
		".NET",
		"Python,",
		"C++",
		"Machine Learning",
	})
	assert.Equal(t, []string{".NET", "C++", "Machine Learning", "Node", "PostgreSQL", "Python,", "React"}, got)
}

func TestAllowlistCanonical(t *testing.T) {
	a := NewAllowlist(nil)
	tests := []struct {
		term string
		want string
		ok   bool
	}{
		{"ReactJS", "react", true},
		{"Machine Learning", "ml", true},
		{".NET", ".net", true},
		{"C++", "c++", true},
		{"(Kubernetes)", "kubernetes", true},
		{"synergy", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := a.Canonical(tt.term)
		assert.Equal(t, tt.ok, ok, tt.term)
		assert.Equal(t, tt.want, got, tt.term)
	}
}

type stubReviewer struct {
	reject map[string]bool
	fail   map[string]bool
	calls  int
}

func (s *stubReviewer) Approve(_ context.Context, term string) (bool, error) {
	s.calls++
	if s.fail[term] {
		return false, errors.New("reviewer unavailable")
	}
	return !s.reject[term], nil
}

func TestReview(t *testing.T) {
	r := &stubReviewer{
		reject: map[string]bool{"Excel": true},
		fail:   map[string]bool{"Rust": true},
	}
	kept, rejected := Review(context.Background(), r, []string{"Docker", "Excel", "Rust"}, nil)
	assert.Equal(t, []string{"Docker", "Rust"}, kept)
	assert.Equal(t, []string{"Excel"}, rejected)
	assert.Equal(t, 3, r.calls)
}

func TestReviewKeepsRemainingOnCancel(t *testing.T) {
	r := &stubReviewer{reject: map[string]bool{"Docker": true}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	kept, rejected := Review(ctx, r, []string{"Docker", "Rust"}, nil)
	assert.Equal(t, []string{"Docker", "Rust"}, kept)
	assert.Empty(t, rejected)
	assert.Equal(t, 0, r.calls)
}

func TestRefinerRun(t *testing.T) {
	r := NewRefiner(nil, &stubReviewer{reject: map[string]bool{"Excel": true}})
	rep := r.Run(context.Background(), []string{"MetLife", "Docker", "docker", "Excel", "ReactJS", "Team Player"})

	assert.Equal(t, 6, rep.Input)
	assert.Equal(t, 4, rep.Cleaned)
	assert.True(t, rep.Reviewed)
	assert.Equal(t, []string{"Docker", "ReactJS"}, rep.Keywords)
	assert.Empty(t, rep.Rejected)
}

func TestRefinerRunWithoutReviewer(t *testing.T) {
	rep := NewRefiner(nil, nil).Run(context.Background(), []string{"Kafka", "synergy"})
	assert.False(t, rep.Reviewed)
	assert.Equal(t, []string{"Kafka"}, rep.Keywords)
}

func TestPromptReviewer(t *testing.T) {
	var gotPrompt, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req requestPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotPrompt = req.Prompt
		gotAuth = r.Header.Get("Authorization")
		approve := !strings.Contains(req.Prompt, "'Excel'")
		_ = json.NewEncoder(w).Encode(responsePayload{Approve: approve})
	}))
	defer server.Close()

	p := &PromptReviewer{Endpoint: server.URL, APIKey: "k"}
	ok, err := p.Approve(context.Background(), "Kubernetes")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, gotPrompt, "'Kubernetes'")
	assert.Equal(t, "Bearer k", gotAuth)

	ok, err = p.Approve(context.Background(), "Excel")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPromptReviewerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := (&PromptReviewer{Endpoint: server.URL}).Approve(context.Background(), "Go")
	assert.Error(t, err)

	_, err = (&PromptReviewer{}).Approve(context.Background(), "Go")
	assert.Error(t, err)
}

func TestChatReviewer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"approve\": false}"}}]}`))
	}))
	defer server.Close()

	c := &ChatReviewer{Client: &llm.Client{BaseURL: server.URL, Model: "test"}}
	ok, err := c.Approve(context.Background(), "Teamwork")
	require.NoError(t, err)
	assert.False(t, ok)
}
