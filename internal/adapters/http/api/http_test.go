package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/encore/internal/adapters/http/api"
	"github.com/okian/encore/internal/adapters/http/stream"
	"github.com/okian/encore/internal/adapters/repository"
	service "github.com/okian/encore/internal/app"
	"github.com/okian/encore/internal/domain/rendezvous"
	"github.com/okian/encore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

// Mock implementations for testing
type mockDependencies struct {
	startErr    error
	startedIDs  []int
	resolved    bool
	resolveErr  error
	resolveTags []string
	attached    []string
	detached    int
	stats       map[string]any
	pingErr     error
}

func (m *mockDependencies) StartSession(_ context.Context, id int) error {
	m.startedIDs = append(m.startedIDs, id)
	return m.startErr
}

func (m *mockDependencies) Resolve(_ context.Context, tag string, _ json.RawMessage) (bool, error) {
	m.resolveTags = append(m.resolveTags, tag)
	return m.resolved, m.resolveErr
}

func (m *mockDependencies) AttachClient(_ context.Context, clientID string) *stream.Client {
	m.attached = append(m.attached, clientID)
	c := stream.NewClient(clientID)
	// Close right away so the stream writer drains and returns instead of
	// blocking the test for the request lifetime.
	c.Close()
	return c
}

func (m *mockDependencies) DetachClient(_ context.Context, _ *stream.Client) {
	m.detached++
}

func (m *mockDependencies) Stats(_ context.Context) map[string]any {
	return m.stats
}

func (m *mockDependencies) Ping(_ context.Context) error {
	return m.pingErr
}

func newTestMux(deps *mockDependencies, opts ...api.ServerOption) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, opts...).Register(context.Background(), mux)
	return mux
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{stats: map[string]any{"sessions": 0}}
		mux := newTestMux(deps)

		Convey("Then the health endpoint responds ok", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("And the metrics endpoint serves the registry", func() {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("And the stats endpoint returns the provider's map", func() {
			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"sessions":0`)
		})

		Convey("And unknown paths are not found", func() {
			req := httptest.NewRequest(http.MethodGet, "/unknown", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestHealthHandler(t *testing.T) {
	Convey("Given a server whose store is unreachable", t, func() {
		deps := &mockDependencies{pingErr: errors.New("db down")}
		mux := newTestMux(deps)

		Convey("When checking health", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the check fails with service unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(w.Body.String(), ShouldContainSubstring, "unhealthy")
			})
		})
	})
}

func TestRegisterHandler(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{}
		mux := newTestMux(deps)

		Convey("When registering a valid client id", func() {
			req := httptest.NewRequest(http.MethodGet, "/register?sub=judge2", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then a token is issued", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp struct {
					Token string `json:"token"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Token, ShouldNotBeEmpty)
			})

			Convey("And the token is mirrored in a session cookie", func() {
				cookies := w.Result().Cookies()
				So(cookies, ShouldHaveLength, 1)
				So(cookies[0].Name, ShouldEqual, "session_token")
				So(cookies[0].Value, ShouldNotBeEmpty)
				So(cookies[0].HttpOnly, ShouldBeTrue)
			})
		})

		Convey("When registering an invalid client id", func() {
			req := httptest.NewRequest(http.MethodGet, "/register?sub=host3", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the request is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When registering without a client id", func() {
			req := httptest.NewRequest(http.MethodGet, "/register", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the request is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When using the wrong method", func() {
			req := httptest.NewRequest(http.MethodPost, "/register?sub=dj0", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the route is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestEventsHandler(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{}
		mux := newTestMux(deps, api.WithJWTSecret("test-secret"))

		register := func(sub string) string {
			req := httptest.NewRequest(http.MethodGet, "/register?sub="+sub, nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
			var resp struct {
				Token string `json:"token"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
			return resp.Token
		}

		Convey("When connecting without a token", func() {
			req := httptest.NewRequest(http.MethodGet, "/events", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the request is unauthorized", func() {
				So(w.Code, ShouldEqual, http.StatusUnauthorized)
				So(deps.attached, ShouldBeEmpty)
			})
		})

		Convey("When connecting with a garbage token", func() {
			req := httptest.NewRequest(http.MethodGet, "/events", nil)
			req.Header.Set("Authorization", "Bearer not-a-token")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the request is unauthorized", func() {
				So(w.Code, ShouldEqual, http.StatusUnauthorized)
			})
		})

		Convey("When connecting with a token signed by someone else", func() {
			other := newTestMux(&mockDependencies{}, api.WithJWTSecret("other-secret"))
			req := httptest.NewRequest(http.MethodGet, "/register?sub=dj0", nil)
			w := httptest.NewRecorder()
			other.ServeHTTP(w, req)
			var resp struct {
				Token string `json:"token"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)

			req = httptest.NewRequest(http.MethodGet, "/events", nil)
			req.Header.Set("Authorization", "Bearer "+resp.Token)
			w = httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the request is unauthorized", func() {
				So(w.Code, ShouldEqual, http.StatusUnauthorized)
			})
		})

		Convey("When connecting with a bearer token", func() {
			token := register("sb10")
			req := httptest.NewRequest(http.MethodGet, "/events", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the client is attached and detached", func() {
				So(deps.attached, ShouldResemble, []string{"sb10"})
				So(deps.detached, ShouldEqual, 1)
				So(w.Header().Get("Content-Type"), ShouldEqual, "text/event-stream")
			})
		})

		Convey("When connecting with the session cookie", func() {
			token := register("judge1")
			req := httptest.NewRequest(http.MethodGet, "/events", nil)
			req.AddCookie(&http.Cookie{Name: "session_token", Value: token})
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the client is attached and detached", func() {
				So(deps.attached, ShouldResemble, []string{"judge1"})
				So(deps.detached, ShouldEqual, 1)
			})
		})
	})
}

func TestSessionsHandler(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{}
		mux := newTestMux(deps)

		start := func(path string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, path, nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			return w
		}

		Convey("When starting a known session", func() {
			w := start("/sessions/7/start")

			Convey("Then the start is accepted", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Body.String(), ShouldContainSubstring, `"status":"started"`)
				So(deps.startedIDs, ShouldResemble, []int{7})
			})
		})

		Convey("When the session is already running", func() {
			deps.startErr = service.ErrSessionRunning
			w := start("/sessions/7/start")

			Convey("Then the start conflicts", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(w.Body.String(), ShouldContainSubstring, "already_running")
			})
		})

		Convey("When the session has no competitions", func() {
			deps.startErr = repository.ErrNotFound
			w := start("/sessions/9/start")

			Convey("Then the session is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the start fails internally", func() {
			deps.startErr = errors.New("boom")
			w := start("/sessions/7/start")

			Convey("Then the failure surfaces as a server error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})

		Convey("When the session id is not a number", func() {
			w := start("/sessions/abc/start")

			Convey("Then the request is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the path is malformed", func() {
			So(start("/sessions//start").Code, ShouldEqual, http.StatusNotFound)
			So(start("/sessions/7").Code, ShouldEqual, http.StatusNotFound)
			So(start("/sessions/7/stop").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When using the wrong method", func() {
			req := httptest.NewRequest(http.MethodGet, "/sessions/7/start", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestResponseHandler(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{resolved: true}
		mux := newTestMux(deps)

		post := func(body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/response", strings.NewReader(body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			return w
		}

		Convey("When posting a response for a pending tag", func() {
			w := post(`{"tag":"perf:1:0","payload":true}`)

			Convey("Then the tag is resolved", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"status":"resolved"`)
				So(deps.resolveTags, ShouldResemble, []string{"perf:1:0"})
			})
		})

		Convey("When no waiter is pending on the tag", func() {
			deps.resolved = false
			w := post(`{"tag":"perf:1:0","payload":true}`)

			Convey("Then the response reports no waiter", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(w.Body.String(), ShouldContainSubstring, "no_waiter")
			})
		})

		Convey("When the tag is malformed", func() {
			deps.resolveErr = rendezvous.ErrBadTag
			w := post(`{"tag":"bogus","payload":true}`)

			Convey("Then the request is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the payload does not match the tag", func() {
			deps.resolveErr = rendezvous.ErrBadPayload
			w := post(`{"tag":"perf:1:0","payload":"nope"}`)

			Convey("Then the request is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the body is not JSON", func() {
			w := post(`not json`)

			Convey("Then the request is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the tag is missing", func() {
			w := post(`{"payload":true}`)

			Convey("Then the request is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.resolveTags, ShouldBeEmpty)
			})
		})
	})
}

func TestWithTokenTTL(t *testing.T) {
	Convey("Given a server with a short token TTL", t, func() {
		deps := &mockDependencies{}
		mux := newTestMux(deps, api.WithTokenTTL(time.Second))

		Convey("When registering", func() {
			req := httptest.NewRequest(http.MethodGet, "/register?sub=dj0", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the cookie lifetime follows the TTL", func() {
				cookies := w.Result().Cookies()
				So(cookies, ShouldHaveLength, 1)
				So(cookies[0].MaxAge, ShouldEqual, 1)
			})
		})
	})
}
