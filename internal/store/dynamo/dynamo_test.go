package dynamo

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manishonc/car-rental/internal/core"
)

// fakeDynamo answers DynamoDB JSON-protocol calls with canned bodies keyed by operation.
type fakeDynamo struct {
	mu        sync.Mutex
	responses map[string][]string
	requests  map[string][]map[string]any
}

func newFakeDynamo(t *testing.T) (*fakeDynamo, *dynamodb.Client) {
	t.Helper()
	f := &fakeDynamo{responses: map[string][]string{}, requests: map[string][]map[string]any{}}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)

	client := dynamodb.New(dynamodb.Options{
		Region:           "eu-central-1",
		BaseEndpoint:     aws.String(srv.URL),
		Credentials:      credentials.NewStaticCredentialsProvider("local", "local", ""),
		RetryMaxAttempts: 1,
	})
	return f, client
}

func (f *fakeDynamo) respond(op string, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[op] = append(f.responses[op], body)
}

func (f *fakeDynamo) lastRequest(op string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	reqs := f.requests[op]
	if len(reqs) == 0 {
		return nil
	}
	return reqs[len(reqs)-1]
}

func (f *fakeDynamo) serve(w http.ResponseWriter, r *http.Request) {
	op := strings.TrimPrefix(r.Header.Get("X-Amz-Target"), "DynamoDB_20120810.")
	raw, _ := io.ReadAll(r.Body)
	var req map[string]any
	_ = json.Unmarshal(raw, &req)

	f.mu.Lock()
	f.requests[op] = append(f.requests[op], req)
	body := "{}"
	if q := f.responses[op]; len(q) > 0 {
		body, f.responses[op] = q[0], q[1:]
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/x-amz-json-1.0")
	if rest, ok := strings.CutPrefix(body, errPrefix); ok {
		w.WriteHeader(http.StatusBadRequest)
		body = rest
	}
	_, _ = io.WriteString(w, body)
}

const errPrefix = "ERR:"

func (f *fakeDynamo) respondError(op, errType string) {
	f.respond(op, errPrefix+`{"__type":"com.amazonaws.dynamodb.v20120810#`+errType+`","message":"`+errType+`"}`)
}

func (f *fakeDynamo) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests[op])
}

func TestEnsureTablesSkipsExistingTables(t *testing.T) {
	f, client := newFakeDynamo(t)

	require.NoError(t, EnsureTables(context.Background(), client, slog.New(slog.NewTextHandler(io.Discard, nil))))
	assert.Equal(t, 2, f.count("DescribeTable"))
	assert.Zero(t, f.count("CreateTable"))
}

func TestEnsureTablesCreatesMissingTable(t *testing.T) {
	f, client := newFakeDynamo(t)
	f.respond("DescribeTable", `{"Table":{"TableName":"car_rental_driver_info","TableStatus":"ACTIVE"}}`)
	f.respondError("DescribeTable", "ResourceNotFoundException")

	require.NoError(t, EnsureTables(context.Background(), client, slog.New(slog.NewTextHandler(io.Discard, nil))))

	req := f.lastRequest("CreateTable")
	require.NotNil(t, req)
	assert.Equal(t, TableInsuranceOptions, req["TableName"])
	assert.Equal(t, "PAY_PER_REQUEST", req["BillingMode"])
	assert.Zero(t, f.count("UpdateTimeToLive"))
}

func TestDriverRepoSaveWritesJSONFieldNames(t *testing.T) {
	f, client := newFakeDynamo(t)
	repo := NewDriverRepo(client)
	repo.clock = func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC) }

	err := repo.Save(context.Background(), "O1", []core.Driver{{FirstName: "Ada", LicenseNum: "L-1"}})
	require.NoError(t, err)

	req := f.lastRequest("PutItem")
	require.NotNil(t, req)
	assert.Equal(t, TableDriverInfo, req["TableName"])

	item := req["Item"].(map[string]any)
	assert.Equal(t, map[string]any{"S": "O1"}, item["order_id"])
	assert.Equal(t, map[string]any{"N": "1748692800"}, item["expires_at"])

	drivers := item["drivers"].(map[string]any)["L"].([]any)
	first := drivers[0].(map[string]any)["M"].(map[string]any)
	assert.Equal(t, map[string]any{"S": "Ada"}, first["first_name"])
	assert.Equal(t, map[string]any{"S": "L-1"}, first["license_num"])
}

func TestDriverRepoLoad(t *testing.T) {
	f, client := newFakeDynamo(t)
	repo := NewDriverRepo(client)

	f.respond("GetItem", `{"Item":{"order_id":{"S":"O1"},"drivers":{"L":[{"M":{"first_name":{"S":"Ada"},"license_photo":{"L":[{"S":"101"}]}}}]}}}`)
	drivers, err := repo.Load(context.Background(), "O1")
	require.NoError(t, err)
	require.Len(t, drivers, 1)
	assert.Equal(t, "Ada", drivers[0].FirstName)
	assert.Equal(t, []string{"101"}, drivers[0].LicensePhoto)

	req := f.lastRequest("GetItem")
	assert.NotEmpty(t, req["ProjectionExpression"])

	f.respond("GetItem", `{}`)
	_, err = repo.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCatalogRepoListPagesAndSorts(t *testing.T) {
	f, client := newFakeDynamo(t)
	repo := NewCatalogRepo(client)

	f.respond("Scan", `{"Items":[{"id":{"N":"1002"},"title":{"S":"Premium"},"type":{"S":"Price"}}],"LastEvaluatedKey":{"id":{"N":"1002"}}}`)
	f.respond("Scan", `{"Items":[{"id":{"N":"1001"},"title":{"S":"Basic"},"type":{"S":"Fix"},"is_fallback":{"BOOL":true},"eligibility_criteria":{"M":{"min_age":{"N":"21"}}}}]}`)

	opts, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, opts, 2)
	assert.Equal(t, 1001, opts[0].ID)
	assert.True(t, opts[0].IsFallback)
	require.NotNil(t, opts[0].Eligibility)
	assert.Equal(t, 21, *opts[0].Eligibility.MinAge)
	assert.Equal(t, core.PricingPrice, opts[1].Type)
}

func TestCatalogRepoUpsert(t *testing.T) {
	f, client := newFakeDynamo(t)
	repo := NewCatalogRepo(client)

	require.NoError(t, repo.Upsert(context.Background(), core.DefaultCatalog()[0]))
	item := f.lastRequest("PutItem")["Item"].(map[string]any)
	assert.Equal(t, map[string]any{"N": "1001"}, item["id"])
}
