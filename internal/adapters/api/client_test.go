package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zpools-io/zpools-cli/internal/domain"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) {
	return string(s), nil
}

type failingToken struct{ err error }

func (f failingToken) Token(context.Context) (string, error) {
	return "", f.err
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &Client{
		BaseURL:    server.URL + "/v1",
		HTTPClient: server.Client(),
		Tokens:     staticToken("jwt-123"),
	}
}

func TestBuildAPIURLKeepsBasePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		base    string
		path    string
		want    string
		wantErr string
	}{
		{name: "versioned base", base: "https://api.zpools.io/v1", path: "zpools", want: "https://api.zpools.io/v1/zpools"},
		{name: "trailing slash", base: "https://api.zpools.io/v1/", path: "/job/j1/history", want: "https://api.zpools.io/v1/job/j1/history"},
		{name: "bare host", base: "http://localhost:8080", path: "hello", want: "http://localhost:8080/hello"},
		{name: "bad scheme", base: "ftp://api.zpools.io", path: "hello", wantErr: "must use http or https"},
		{name: "missing host", base: "https://", path: "hello", wantErr: "host is required"},
		{name: "empty base", base: "", path: "hello", wantErr: "base url is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildAPIURL(tt.base, tt.path)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClientSendsBearerAndRequestID(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/hello", r.URL.Path)
		assert.Equal(t, "Bearer jwt-123", r.Header.Get("Authorization"))
		_, err := uuid.Parse(r.Header.Get("X-Request-Id"))
		assert.NoError(t, err)
		_, _ = w.Write([]byte(`{"message":"Hello, alice!"}`))
	})

	message, err := client.Hello(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hello, alice!", message)
}

func TestClientMapsStatusCodesToSentinels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status    int
		body      string
		sentinel  error
		message   string
		transport bool
	}{
		{status: http.StatusUnauthorized, body: `{"message":"Unauthorized"}`, sentinel: domain.ErrAuth, message: "Unauthorized"},
		{status: http.StatusForbidden, body: `{"detail":"token expired"}`, sentinel: domain.ErrAuth, message: "token expired"},
		{status: http.StatusNotFound, body: `{"detail":{"message":"job not found"}}`, sentinel: domain.ErrNotFound, message: "job not found", transport: true},
		{status: http.StatusBadGateway, body: `upstream unavailable`, sentinel: domain.ErrTransport, message: "upstream unavailable", transport: true},
		{status: http.StatusInternalServerError, body: ``, sentinel: domain.ErrTransport, message: "Internal Server Error", transport: true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.GetJob(context.Background(), "j1")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.transport, errors.Is(err, domain.ErrTransport))

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message())
			assert.Equal(t, tt.body, apiErr.RawBody())
		})
	}
}

func TestClientWrapsConnectionFailures(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client := &Client{BaseURL: baseURL, Tokens: staticToken("jwt")}
	_, err := client.ListZpools(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.ErrorContains(t, err, "GET zpools")
}

func TestClientTimesOutWithoutCallerDeadline(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte(`{"detail":{"zpools":{}}}`))
	})
	client.RequestTimeout = 20 * time.Millisecond

	_, err := client.ListZpools(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestClientPropagatesCredentialFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})
	client.Tokens = failingToken{err: domain.ErrCredentialsMissing}

	_, err := client.ListZpools(context.Background())
	assert.ErrorIs(t, err, domain.ErrCredentialsMissing)
	assert.Zero(t, calls.Load())
}

func TestGetJobReadsCurrentStatus(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/job/j-42", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"detail": {
				"job": {
					"job_id": "j-42",
					"job_type": "zpool_scrub",
					"current_status": {"state": "running", "message": "scrubbing"},
					"parameters": "{\"zpool_id\": \"p1\"}",
					"created_at": "2026-01-04T02:54:50Z"
				}
			}
		}`))
	})

	job, err := client.GetJob(context.Background(), "j-42")
	require.NoError(t, err)

	assert.Equal(t, domain.JobID("j-42"), job.ID)
	assert.Equal(t, domain.JobKindZpoolScrub, job.Kind)
	assert.Equal(t, "running", job.State)
	assert.Equal(t, "scrubbing", job.Message)
	assert.Equal(t, json.RawMessage(`"{\"zpool_id\": \"p1\"}"`), job.Parameters)
	assert.Equal(t, time.Date(2026, 1, 4, 2, 54, 50, 0, time.UTC), job.CreatedAt)
}

func TestGetJobFallsBackToSchemaFields(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"detail":{"job":{"operation":"zpool_create","status":"failed","error":"quota","current_status":"broken"}}}`))
	})

	job, err := client.GetJob(context.Background(), "j-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobID("j-1"), job.ID)
	assert.Equal(t, "failed", job.State)
	assert.Equal(t, "quota", job.Message)
}

func TestGetJobRejectsMissingJob(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"detail":{}}`))
	})

	_, err := client.GetJob(context.Background(), "j-1")
	assert.ErrorContains(t, err, "response missing job")
}

func TestGetJobHistory(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/job/j-1/history", r.URL.Path)
		_, _ = w.Write([]byte(`{"detail":{"history":[
			{"timestamp":"2026-01-04T10:00:00Z","event_type":"created","message":"queued"},
			{"timestamp":"2026-01-04T10:00:05+00:00","event_type":"started","message":"running"}
		]}}`))
	})

	events, err := client.GetJobHistory(context.Background(), "j-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "created", events[0].Type)
	assert.Equal(t, time.Date(2026, 1, 4, 10, 0, 5, 0, time.UTC), events[1].Timestamp)
}

func TestListJobsEncodesQuery(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		assert.Equal(t, "100", query.Get("limit"))
		assert.Equal(t, "desc", query.Get("sort"))
		assert.Equal(t, "2026-01-01T00:00:00Z", query.Get("after"))
		assert.Empty(t, query.Get("before"))
		_, _ = w.Write([]byte(`{"detail":{"jobs":[{"job_id":"j2","operation":"zpool_scrub","current_status":{"state":"pending"}},{"job_id":"j1","operation":"zpool_create","status":"succeeded"}]}}`))
	})

	jobs, err := client.ListJobs(context.Background(), domain.JobListQuery{
		Limit: 100,
		Sort:  domain.SortDesc,
		After: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "pending", jobs[0].State)
	assert.Equal(t, "succeeded", jobs[1].State)

	_, err = client.ListJobs(context.Background(), domain.JobListQuery{Limit: 5000})
	assert.ErrorContains(t, err, "between 1 and 1000")
}

func TestListZpoolsDecodesBothVolumeSpellings(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"detail":{"zpools":{
			"p1": {"name":"tank","size_gb":125,"volume_type":"gp3","volumes":[
				{"VolumeId":"vol-0aaaaaaaaaaaaaaaa","State":"in-use","ModState":"optimizing","ModProgress":40,"VolumeType":"gp3","ModLastTime":"2026-01-04T02:54:50Z"}
			]},
			"p2": {"volumes":[
				{"volume_id":"vol-0bbbbbbbbbbbbbbbb","state":"in-use","mod_state":"completed","mod_progress":100,"volume_type":"sc1","mod_last_time":"2026-01-03T01:00:00+00:00","can_modify_now":true}
			]}
		}}}`))
	})

	zpools, err := client.ListZpools(context.Background())
	require.NoError(t, err)
	require.Len(t, zpools, 2)

	byID := map[domain.ZpoolID]domain.Zpool{}
	for _, zpool := range zpools {
		byID[zpool.ID] = zpool
	}

	p1 := byID["p1"]
	assert.Equal(t, "tank", p1.Name)
	require.Len(t, p1.Volumes, 1)
	assert.Equal(t, "vol-0aaaaaaaaaaaaaaaa", p1.Volumes[0].ID)
	assert.Equal(t, 40, p1.Volumes[0].ModProgress)
	assert.True(t, p1.ModificationInProgress())

	p2 := byID["p2"]
	require.Len(t, p2.Volumes, 1)
	volume := p2.Volumes[0]
	assert.Equal(t, "vol-0bbbbbbbbbbbbbbbb", volume.ID)
	assert.Equal(t, "in-use", volume.State)
	assert.Equal(t, "sc1", volume.VolumeType)
	assert.Equal(t, 100, volume.ModProgress)
	require.NotNil(t, volume.ModLastTime)
	assert.Equal(t, time.Date(2026, 1, 3, 1, 0, 0, 0, time.UTC), *volume.ModLastTime)
	require.NotNil(t, volume.CanModifyNow)
	assert.True(t, *volume.CanModifyNow)
}

func TestCreateZpoolSubmitsBody(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/zpool", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"new_size_in_gib": float64(125), "volume_type": "sc1"}, body)

		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"message":"Zpool creation started","detail":{"job_id":"j-9","zpool_id":"p-9"}}`))
	})

	result, err := client.CreateZpool(context.Background(), domain.CreateZpoolRequest{SizeGiB: 125, VolumeType: "sc1"})
	require.NoError(t, err)
	assert.Equal(t, domain.SubmitResult{JobID: "j-9", ZpoolID: "p-9", Message: "Zpool creation started"}, result)
}

func TestScrubZpoolAcceptsStringDetail(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/zpool/p1/scrub", r.URL.Path)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"detail":"Scrub started"}`))
	})

	result, err := client.ScrubZpool(context.Background(), "p1")
	require.NoError(t, err)
	assert.Empty(t, result.JobID)
	assert.Equal(t, "Scrub started", result.Message)
}

func TestLoginIsUnauthenticated(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))

		var body loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, loginRequest{Username: "alice", Password: "s3cret"}, body)

		_, _ = w.Write([]byte(`{"detail":{"access_token":"at","id_token":"it","expires_in":3600}}`))
	})
	client.Tokens = failingToken{err: errors.New("must not be called")}

	result, err := client.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "at", result.AccessToken)
	assert.Equal(t, "it", result.IDToken)
	assert.Equal(t, time.Hour, result.ExpiresIn)
}

func TestExtractErrorMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "bad", ExtractErrorMessage([]byte(`{"message":"bad","detail":"ignored"}`)))
	assert.Equal(t, "nested", ExtractErrorMessage([]byte(`{"detail":{"message":"nested"}}`)))
	assert.Empty(t, ExtractErrorMessage([]byte(`{"detail":[1,2]}`)))
	assert.Empty(t, ExtractErrorMessage([]byte(`plain text`)))
	assert.Empty(t, ExtractErrorMessage(nil))
}
