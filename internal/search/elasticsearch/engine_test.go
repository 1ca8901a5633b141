package elasticsearch

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalogseed/internal/search"
	"github.com/utafrali/catalogseed/pkg/logger"
)

// fakeCluster answers the handful of endpoints the engine uses.
type fakeCluster struct {
	mu          sync.Mutex
	indexExists bool
	created     string
	bulkLines   []string
	bulkReply   string
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodHead && r.URL.Path == "/":
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodHead && r.URL.Path == "/"+DefaultIndexName:
		if f.indexExists {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	case r.Method == http.MethodPut && r.URL.Path == "/"+DefaultIndexName:
		body, _ := io.ReadAll(r.Body)
		f.created = string(body)
		f.indexExists = true
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	case r.Method == http.MethodPost && r.URL.Path == "/"+DefaultIndexName+"/_bulk":
		sc := bufio.NewScanner(r.Body)
		for sc.Scan() {
			f.bulkLines = append(f.bulkLines, sc.Text())
		}
		reply := f.bulkReply
		if reply == "" {
			reply = `{"errors":false,"items":[]}`
		}
		_, _ = w.Write([]byte(reply))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"not_found","reason":"` + r.Method + ` ` + r.URL.Path + `"},"status":404}`))
	}
}

func newTestEngine(t *testing.T, cluster *fakeCluster) *Engine {
	t.Helper()
	srv := httptest.NewServer(cluster)
	t.Cleanup(srv.Close)

	e, err := New(context.Background(), Config{URL: srv.URL}, logger.Discard())
	require.NoError(t, err)
	return e
}

func TestNew_CreatesMissingIndex(t *testing.T) {
	cluster := &fakeCluster{}
	e := newTestEngine(t, cluster)

	assert.Equal(t, DefaultIndexName, e.IndexName())
	assert.Contains(t, cluster.created, `"category_ids"`)

	var mapping map[string]any
	require.NoError(t, json.Unmarshal([]byte(cluster.created), &mapping), "mapping must be valid JSON")
}

func TestNew_KeepsExistingIndex(t *testing.T) {
	cluster := &fakeCluster{indexExists: true}
	newTestEngine(t, cluster)
	assert.Empty(t, cluster.created)
}

func TestEngine_Ping(t *testing.T) {
	e := newTestEngine(t, &fakeCluster{})
	assert.NoError(t, e.Ping(context.Background()))
}

func TestEngine_IndexWritesActionAndDocumentLines(t *testing.T) {
	cluster := &fakeCluster{}
	e := newTestEngine(t, cluster)

	sale := decimal.RequireFromString("8.50")
	docs := []search.Document{
		{ID: "p1", SKU: "SKU-AAA", Slug: "red-chair-aaa", BrandID: "b1",
			Names: map[string]string{"en": "Red chair", "lt": "Raudona kėdė"},
			Price: decimal.RequireFromString("10.00"), SalePrice: &sale, OnSale: true,
			CategoryIDs: []string{"c1", "c2"}, Variants: 2},
		{ID: "p2", SKU: "SKU-BBB", Slug: "blue-lamp-bbb", BrandID: "b1",
			Names: map[string]string{"en": "Blue lamp"}, Price: decimal.RequireFromString("3.20")},
	}
	require.NoError(t, e.Index(context.Background(), docs))

	require.Len(t, cluster.bulkLines, 4)
	assert.JSONEq(t, `{"index":{"_index":"catalog_products","_id":"p1"}}`, cluster.bulkLines[0])

	var got search.Document
	require.NoError(t, json.Unmarshal([]byte(cluster.bulkLines[1]), &got))
	assert.Equal(t, "SKU-AAA", got.SKU)
	assert.Equal(t, "Raudona kėdė", got.Names["lt"])
	assert.True(t, got.SalePrice.Equal(sale))
	assert.Equal(t, []string{"c1", "c2"}, got.CategoryIDs)
	assert.True(t, strings.Contains(cluster.bulkLines[2], `"_id":"p2"`))
}

func TestEngine_IndexEmptyIsNoop(t *testing.T) {
	cluster := &fakeCluster{}
	e := newTestEngine(t, cluster)
	require.NoError(t, e.Index(context.Background(), nil))
	assert.Empty(t, cluster.bulkLines)
}

func TestEngine_IndexReportsItemErrors(t *testing.T) {
	cluster := &fakeCluster{bulkReply: `{"errors":true,"items":[
		{"index":{"_id":"p1","status":400,"error":{"type":"mapper_parsing_exception","reason":"bad price"}}}
	]}`}
	e := newTestEngine(t, cluster)

	err := e.Index(context.Background(), []search.Document{{ID: "p1", Price: decimal.NewFromInt(1)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id=p1: mapper_parsing_exception: bad price")
}
