package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentra-video/sentra/internal/config"
	"github.com/sentra-video/sentra/models"
)

// fakeCouch is an in-memory CouchDB speaking just enough of the REST API
// for the storage layer: database creation, document get/put and index
// creation. Mango queries are not supported.
type fakeCouch struct {
	mu   sync.Mutex
	docs map[string]map[string]interface{}
	revs map[string]int
}

func newFakeCouch() *fakeCouch {
	return &fakeCouch{
		docs: make(map[string]map[string]interface{}),
		revs: make(map[string]int),
	}
}

func (f *fakeCouch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/":
		fmt.Fprint(w, `{"couchdb":"Welcome","version":"3.3.0"}`)
	case r.URL.Path == "/_session":
		fmt.Fprint(w, `{"ok":true,"userCtx":{"name":"admin","roles":["_admin"]}}`)
	case r.URL.Path == "/sentra_test" && r.Method == http.MethodPut:
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"ok":true}`)
	case r.URL.Path == "/sentra_test" && (r.Method == http.MethodGet || r.Method == http.MethodHead):
		fmt.Fprint(w, `{"db_name":"sentra_test","doc_count":0}`)
	case r.URL.Path == "/sentra_test/_index":
		fmt.Fprint(w, `{"result":"created","id":"_design/idx","name":"idx"}`)
	case r.URL.Path == "/sentra_test" && r.Method == http.MethodPost:
		f.saveDoc(w, r, "")
	case strings.HasPrefix(r.URL.Path, "/sentra_test/"):
		id := strings.TrimPrefix(r.URL.Path, "/sentra_test/")
		switch r.Method {
		case http.MethodGet:
			f.getDoc(w, id)
		case http.MethodPut:
			f.saveDoc(w, r, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"not_found","reason":"missing"}`)
	}
}

func (f *fakeCouch) getDoc(w http.ResponseWriter, id string) {
	f.mu.Lock()
	doc, ok := f.docs[id]
	f.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"not_found","reason":"missing"}`)
		return
	}
	json.NewEncoder(w).Encode(doc)
}

func (f *fakeCouch) saveDoc(w http.ResponseWriter, r *http.Request, id string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"bad_request","reason":"invalid json"}`)
		return
	}
	if id == "" {
		if v, ok := doc["_id"].(string); ok {
			id = v
		} else if v, ok := doc["@id"].(string); ok {
			id = v
		}
	}
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"bad_request","reason":"missing id"}`)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if existing, ok := f.docs[id]; ok {
		if doc["_rev"] != existing["_rev"] {
			w.WriteHeader(http.StatusConflict)
			fmt.Fprint(w, `{"error":"conflict","reason":"Document update conflict."}`)
			return
		}
	}

	f.revs[id]++
	rev := fmt.Sprintf("%d-rev", f.revs[id])
	doc["_id"] = id
	doc["_rev"] = rev
	f.docs[id] = doc

	w.WriteHeader(http.StatusCreated)
	fmt.Fprintf(w, `{"ok":true,"id":%q,"rev":%q}`, id, rev)
}

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	server := httptest.NewServer(newFakeCouch())
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.CouchDB.URL = server.URL
	cfg.CouchDB.Database = "sentra_test"
	cfg.CouchDB.Username = "admin"
	cfg.CouchDB.Password = "password"

	store, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndGetCamera(t *testing.T) {
	store := newTestStorage(t)

	cam := &models.Camera{
		ID:         "camera:storage-test",
		Name:       "gate-north",
		IngressURL: "rtsp://10.0.0.12:554/stream1",
		Status:     models.CameraStatusOffline,
	}
	require.NoError(t, store.SaveCamera(cam))
	assert.NotEmpty(t, cam.Rev)
	assert.Equal(t, TypeCamera, cam.Type)

	got, err := store.GetCamera("camera:storage-test")
	require.NoError(t, err)
	assert.Equal(t, "gate-north", got.Name)
	assert.Equal(t, models.CameraStatusOffline, got.Status)
}

func TestUpdateCameraStatus(t *testing.T) {
	store := newTestStorage(t)

	cam := &models.Camera{
		ID:         "camera:status-test",
		Name:       "gate-south",
		IngressURL: "rtsp://10.0.0.13:554/stream1",
		Status:     models.CameraStatusOffline,
	}
	require.NoError(t, store.SaveCamera(cam))

	observed := &models.StreamMetadata{FPS: 25, Resolution: "1920x1080"}
	updated, err := store.UpdateCameraStatus("camera:status-test", models.CameraStatusOnline, observed)
	require.NoError(t, err)

	assert.Equal(t, models.CameraStatusOnline, updated.Status)
	require.NotNil(t, updated.LastSeen)
	assert.False(t, updated.LastSeen.IsZero())
	require.NotNil(t, updated.Observed)
	assert.Equal(t, 25.0, updated.Observed.FPS)
	assert.False(t, updated.Modified.IsZero())

	got, err := store.GetCamera("camera:status-test")
	require.NoError(t, err)
	assert.Equal(t, models.CameraStatusOnline, got.Status)
	require.NotNil(t, got.LastSeen)
}

func TestUpdateCameraStatusMissingCamera(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.UpdateCameraStatus("camera:ghost", models.CameraStatusOnline, nil)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}
