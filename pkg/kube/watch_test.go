// Copyright Contributors to the Open Cluster Management project

package kube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stolostron/hnc-event-relay/pkg/model"
	"github.com/stolostron/hnc-event-relay/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/client-go/rest"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, cred *Credential, idle time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	factory, err := NewFactory(&rest.Config{Host: srv.URL}, Options{KeepAlive: time.Second, IdleTimeout: idle})
	require.NoError(t, err)
	client, err := factory.ForCredential(cred)
	require.NoError(t, err)
	return client
}

func collect(events *[]model.WatchEvent) func(model.WatchEvent) {
	return func(e model.WatchEvent) { *events = append(*events, e) }
}

// Should pass every record to onEvent in order and end cleanly with the stream.
func Test_Watch_streamsEvents(t *testing.T) {
	// Given a server that sends two records split across flushes.
	var mu sync.Mutex
	var gotPath, gotQuery, gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotPath, gotQuery, gotAuth = r.URL.Path, r.URL.RawQuery, r.Header.Get("Authorization")
		mu.Unlock()
		flusher := w.(http.Flusher)
		fmt.Fprint(w, `{"type":"ADDED","object":{"metadata":{"name":"q1","namespace":"team-a"}}}`+"\n"+`{"type":"MOD`)
		flusher.Flush()
		fmt.Fprint(w, `IFIED","object":{"metadata":{"name":"q1","namespace":"team-a"}}}`+"\n")
		flusher.Flush()
	}, NewCredential("user-token"), 0)

	// When watching resource quotas.
	var events []model.WatchEvent
	err := client.Watch(context.Background(), model.ResourceQuotaRef.InNamespace("team-a"), collect(&events))

	// Then both events are delivered and the outcome is clean.
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.Added, events[0].Type)
	assert.Equal(t, model.Modified, events[1].Type)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/api/v1/namespaces/team-a/resourcequotas", gotPath)
	assert.Equal(t, "watch=true", gotQuery)
	assert.Equal(t, "Bearer user-token", gotAuth)
}

// Should fail with the status code and never call onEvent on a 403.
func Test_Watch_forbidden(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"kind":"Status","apiVersion":"v1","status":"Failure",`+
			`"message":"resourcequotas is forbidden","reason":"Forbidden","code":403}`)
	}, NewCredential("user-token"), 0)

	called := false
	err := client.Watch(context.Background(), model.ResourceQuotaRef.InNamespace("team-a"),
		func(model.WatchEvent) { called = true })

	require.Error(t, err)
	assert.False(t, called)
	assert.Equal(t, 403, StatusCode(err))
	assert.True(t, apierrors.IsForbidden(err))
	assert.Equal(t, "resourcequotas is forbidden", ErrorMessage(err))
}

// Should carry the status code of errors without a Status body.
func Test_Watch_plainError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}, NewCredential("user-token"), 0)

	err := client.Watch(context.Background(), model.NamespaceRef("team-a"), func(model.WatchEvent) {})

	assert.Equal(t, http.StatusBadGateway, StatusCode(err))
}

// Should return usage errors without sending a request.
func Test_Watch_invalidRef(t *testing.T) {
	var requests int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
	}, NewCredential("user-token"), 0)

	err := client.Watch(context.Background(), model.ResourceRef{Kind: "Namespace"}, func(model.WatchEvent) {})

	assert.True(t, errors.Is(err, model.ErrInvalidRef))
	assert.Equal(t, int32(0), atomic.LoadInt32(&requests))
}

// Should drop events with a type other than ADDED, MODIFIED or DELETED.
func Test_Watch_unknownType(t *testing.T) {
	defer testutils.SupressConsoleOutput()()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"type":"BOOKMARK","object":{"metadata":{"name":"a"}}}`+"\n")
		fmt.Fprint(w, `{"type":"DELETED","object":{"metadata":{"name":"a"}}}`+"\n")
	}, NewCredential("user-token"), 0)

	var events []model.WatchEvent
	err := client.Watch(context.Background(), model.NamespaceRef("a"), collect(&events))

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.Deleted, events[0].Type)
}

func Test_Watch_decodeError(t *testing.T) {
	defer testutils.SupressConsoleOutput()()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "{broken\n")
	}, NewCredential("user-token"), 0)

	err := client.Watch(context.Background(), model.NamespaceRef("a"), func(model.WatchEvent) {})

	var decodeErr *DecodeError
	assert.True(t, errors.As(err, &decodeErr))
}

// Should abort a connection that stays silent for longer than the idle timeout.
func Test_Watch_idleTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}, NewCredential("user-token"), 50*time.Millisecond)

	err := client.Watch(context.Background(), model.NamespaceRef("a"), func(model.WatchEvent) {})

	assert.Equal(t, ErrIdleTimeout, err)
}

// Should end cleanly when the caller cancels the context.
func Test_Watch_cancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}, NewCredential("user-token"), 0)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	err := client.Watch(ctx, model.NamespaceRef("a"), func(model.WatchEvent) {})

	assert.NoError(t, err)
}

// Should send the rotated token on the next request.
func Test_Watch_tokenRotation(t *testing.T) {
	var mu sync.Mutex
	var tokens []string
	cred := NewCredential("first")
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		tokens = append(tokens, r.Header.Get("Authorization"))
	}, cred, 0)

	require.NoError(t, client.Watch(context.Background(), model.NamespaceRef("a"), func(model.WatchEvent) {}))
	cred.SetToken("second")
	require.NoError(t, client.Watch(context.Background(), model.NamespaceRef("a"), func(model.WatchEvent) {}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"Bearer first", "Bearer second"}, tokens)
}

// Should authenticate the service account client with the base config token.
func Test_ServiceAccount(t *testing.T) {
	auth := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth <- r.Header.Get("Authorization")
	}))
	defer srv.Close()

	factory, err := NewFactory(&rest.Config{Host: srv.URL, BearerToken: "sa-token"}, Options{KeepAlive: time.Second})
	require.NoError(t, err)
	client, err := factory.ServiceAccount()
	require.NoError(t, err)

	require.NoError(t, client.Watch(context.Background(), model.IncludedNamespacesRef(nil), func(model.WatchEvent) {}))
	assert.Equal(t, "Bearer sa-token", <-auth)
}
