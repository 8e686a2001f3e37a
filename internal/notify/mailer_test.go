package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type resendRecorder struct {
	mu       sync.Mutex
	requests []resendEmail
	auth     []string
	status   int
}

func (r *resendRecorder) handler(w http.ResponseWriter, req *http.Request) {
	var body resendEmail
	_ = json.NewDecoder(req.Body).Decode(&body)

	r.mu.Lock()
	r.requests = append(r.requests, body)
	r.auth = append(r.auth, req.Header.Get("Authorization"))
	status := r.status
	r.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"id":"re_1"}`))
}

func TestResendMailer_SingleRecipient(t *testing.T) {
	rec := &resendRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	logger := zerolog.Nop()
	m := NewResendMailer("re_key", "Beach <noreply@example.com>", srv.URL, srv.Client(), &logger)
	require.NoError(t, m.Send(context.Background(), []string{"a@example.com"}, "Hi", "<p>x</p>"))

	require.Len(t, rec.requests, 1)
	assert.Equal(t, "Bearer re_key", rec.auth[0])
	assert.Equal(t, []string{"a@example.com"}, rec.requests[0].To)
	assert.Empty(t, rec.requests[0].Bcc)
	assert.Equal(t, "Hi", rec.requests[0].Subject)
	assert.Equal(t, "<p>x</p>", rec.requests[0].HTML)
}

func TestResendMailer_BatchesInBcc(t *testing.T) {
	rec := &resendRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	recipients := make([]string, 0, 120)
	for i := 0; i < 120; i++ {
		recipients = append(recipients, fmt.Sprintf("u%d@example.com", i))
	}

	m := NewResendMailer("re_key", "noreply@example.com", srv.URL, srv.Client(), nil)
	require.NoError(t, m.Send(context.Background(), recipients, "Hi", "<p>x</p>"))

	require.Len(t, rec.requests, 3)
	assert.Len(t, rec.requests[0].Bcc, 50)
	assert.Len(t, rec.requests[1].Bcc, 50)
	assert.Len(t, rec.requests[2].Bcc, 20)
	assert.Equal(t, []string{"noreply@example.com"}, rec.requests[0].To)
	assert.Equal(t, "u100@example.com", rec.requests[2].Bcc[0])
}

func TestResendMailer_ErrorStatus(t *testing.T) {
	rec := &resendRecorder{status: http.StatusUnprocessableEntity}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	m := NewResendMailer("re_key", "noreply@example.com", srv.URL, srv.Client(), nil)
	err := m.Send(context.Background(), []string{"a@example.com"}, "Hi", "<p>x</p>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestLogMailer(t *testing.T) {
	logger := zerolog.Nop()
	assert.NoError(t, NewLogMailer(&logger).Send(context.Background(), []string{"a@example.com"}, "Hi", "<p>x</p>"))
}

func TestMultiMailer(t *testing.T) {
	ok := new(mockMailer)
	bad := new(mockMailer)
	ok.On("Send", mock.Anything, mock.Anything, "Hi", mock.Anything).Return(nil)
	bad.On("Send", mock.Anything, mock.Anything, "Hi", mock.Anything).Return(errors.New("down"))

	err := NewMultiMailer(bad, ok).Send(context.Background(), []string{"a@example.com"}, "Hi", "<p>x</p>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
	ok.AssertNumberOfCalls(t, "Send", 1)

	assert.NoError(t, NewMultiMailer(ok).Send(context.Background(), nil, "Hi", ""))
}
