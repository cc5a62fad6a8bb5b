package similarity

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/simcheck-bridge/pkg/middleware/requestid"
)

type observerStub struct {
	mu    sync.Mutex
	calls []string
	codes []int
}

func (o *observerStub) ObserveRemoteCall(operation string, statusCode int, duration time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, operation)
	o.codes = append(o.codes, statusCode)
}

func TestClientSendSetsHeadersAndBody(t *testing.T) {
	var gotPath, gotAuth, gotName, gotDisposition, gotContentType, gotRequestID string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotName = r.Header.Get("X-Integration-Name")
		gotDisposition = r.Header.Get("Content-Disposition")
		gotContentType = r.Header.Get("Content-Type")
		gotRequestID = r.Header.Get("X-Request-ID")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	defer server.Close()

	observer := &observerStub{}
	client, err := NewClient(Config{
		BaseURL:         server.URL + "/",
		APIKey:          "secret",
		IntegrationName: "simcheck-bridge",
		Observer:        observer,
	}, zap.NewNop())
	require.NoError(t, err)

	resp, err := client.Send(requestid.WithValue(context.Background(), "req-42"), Request{
		Operation: "upload",
		Method:    http.MethodPut,
		Endpoint:  SubmissionEndpoint(EndpointUploadSubmission, "remote-1"),
		Body:      []byte("essay body"),
		Headers: map[string]string{
			"Content-Type":        "binary/octet-stream",
			"Content-Disposition": `inline; filename="essay.txt"`,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "/submissions/remote-1/original", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "simcheck-bridge", gotName)
	assert.Equal(t, `inline; filename="essay.txt"`, gotDisposition)
	assert.Equal(t, "binary/octet-stream", gotContentType)
	assert.Equal(t, "req-42", gotRequestID)
	assert.Equal(t, "essay body", string(gotBody))
	assert.Equal(t, []string{"upload"}, observer.calls)
	assert.Equal(t, []int{http.StatusAccepted}, observer.codes)
}

func TestClientSendReturnsNonSuccessStatusAsResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"title too long"}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL}, nil)
	require.NoError(t, err)

	resp, err := client.Send(context.Background(), Request{Operation: "create", Method: http.MethodPost, Endpoint: EndpointCreateSubmission})
	require.NoError(t, err)
	assert.False(t, resp.Success())
	assert.Equal(t, "title too long", resp.Message())
}

func TestClientSendTimeoutIsTransportFailure(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client, err := NewClient(Config{BaseURL: server.URL, Timeout: 50 * time.Millisecond}, nil)
	require.NoError(t, err)

	resp, err := client.Send(context.Background(), Request{Operation: "poll", Endpoint: "/submissions/x/similarity"})
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, IsTransportFailure(err))
	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "timeout", terr.Reason)
	assert.Equal(t, ClassTransportFailure, Classify(resp, err))
}

func TestClientSendConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client, err := NewClient(Config{BaseURL: url}, nil)
	require.NoError(t, err)

	_, err = client.Send(context.Background(), Request{Operation: "create", Method: http.MethodPost, Endpoint: EndpointCreateSubmission})
	require.Error(t, err)
	assert.True(t, IsTransportFailure(err))
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	require.Error(t, err)
}
