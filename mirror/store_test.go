package mirror

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.viam.com/test"
)

type listRequest struct {
	Prefix string `json:"prefix"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// fakeBucketHandler emulates the storage REST surface for a small tree:
// Scan-a/{meta.json,imu.bin} plus a top-level readme.txt.
func fakeBucketHandler(t *testing.T, gotAuth *[]string) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/storage/v1/object/list/test-bucket", func(w http.ResponseWriter, r *http.Request) {
		*gotAuth = append(*gotAuth, r.Header.Get("Authorization"))
		var req listRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var payload string
		switch req.Prefix {
		case "":
			payload = `[
				{"name": "Scan-a", "metadata": null},
				{"name": "readme.txt", "metadata": {"size": 5}}
			]`
		case "Scan-a":
			payload = `[
				{"name": "meta.json", "metadata": {"size": 2}},
				{"name": "imu.bin", "metadata": {"size": 4}}
			]`
		default:
			payload = `[]`
		}
		w.Header().Set("Content-Type", "application/json")
		_, err := w.Write([]byte(payload))
		test.That(t, err, test.ShouldBeNil)
	})
	mux.HandleFunc("/storage/v1/object/test-bucket/", func(w http.ResponseWriter, r *http.Request) {
		*gotAuth = append(*gotAuth, r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/storage/v1/object/test-bucket/Scan-a/imu.bin":
			_, err := w.Write([]byte("1,2\n"))
			test.That(t, err, test.ShouldBeNil)
		default:
			http.NotFound(w, r)
		}
	})
	return mux
}

func storeForServer(server *httptest.Server, pageSize int) Store {
	return NewSupabaseStore(&Config{
		BaseURL:      server.URL,
		Bucket:       "test-bucket",
		AnonKey:      "test-key",
		DataDir:      "/unused",
		ListPageSize: pageSize,
	})
}

func TestSupabaseListRecursesFolders(t *testing.T) {
	var gotAuth []string
	server := httptest.NewServer(fakeBucketHandler(t, &gotAuth))
	defer server.Close()

	store := storeForServer(server, 100)
	objects, err := store.List(context.Background(), "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, objects, test.ShouldResemble, []Object{
		{Name: "Scan-a/meta.json", Size: 2},
		{Name: "Scan-a/imu.bin", Size: 4},
		{Name: "readme.txt", Size: 5},
	})
	for _, auth := range gotAuth {
		test.That(t, auth, test.ShouldEqual, "Bearer test-key")
	}
}

func TestSupabaseListPaginates(t *testing.T) {
	var offsets []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req listRequest
		test.That(t, json.NewDecoder(r.Body).Decode(&req), test.ShouldBeNil)
		offsets = append(offsets, req.Offset)
		var payload string
		switch req.Offset {
		case 0:
			payload = `[{"name": "a.bin", "metadata": {"size": 1}}, {"name": "b.bin", "metadata": {"size": 1}}]`
		case 2:
			payload = `[{"name": "c.bin", "metadata": {"size": 1}}]`
		default:
			payload = `[]`
		}
		_, err := w.Write([]byte(payload))
		test.That(t, err, test.ShouldBeNil)
	}))
	defer server.Close()

	store := storeForServer(server, 2)
	objects, err := store.List(context.Background(), "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(objects), test.ShouldEqual, 3)
	test.That(t, offsets, test.ShouldResemble, []int{0, 2})
}

func TestSupabaseListErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	store := storeForServer(server, 100)
	_, err := store.List(context.Background(), "")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "status 403")
}

func TestSupabaseFetch(t *testing.T) {
	var gotAuth []string
	server := httptest.NewServer(fakeBucketHandler(t, &gotAuth))
	defer server.Close()

	store := storeForServer(server, 100)
	body, err := store.Fetch(context.Background(), "Scan-a/imu.bin")
	test.That(t, err, test.ShouldBeNil)
	data, err := io.ReadAll(body)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, body.Close(), test.ShouldBeNil)
	test.That(t, string(data), test.ShouldEqual, "1,2\n")
}

func TestSupabaseFetchMissing(t *testing.T) {
	var gotAuth []string
	server := httptest.NewServer(fakeBucketHandler(t, &gotAuth))
	defer server.Close()

	store := storeForServer(server, 100)
	_, err := store.Fetch(context.Background(), "Scan-a/none.bin")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "status 404")
}

func TestEscapeObjectName(t *testing.T) {
	test.That(t, escapeObjectName("Scan-a/imu.bin"), test.ShouldEqual, "Scan-a/imu.bin")
	test.That(t, escapeObjectName("Scan b/file 1.txt"), test.ShouldEqual, "Scan%20b/file%201.txt")
}
