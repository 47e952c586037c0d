package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/semmidev/cloudvault/internal/adapter/history"
	"github.com/semmidev/cloudvault/internal/domain"
	"github.com/semmidev/cloudvault/internal/infrastructure/logger"
	"github.com/semmidev/cloudvault/internal/usecase"
	. "github.com/smartystreets/goconvey/convey"
)

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    bool
}

func (s *memStorage) Upload(ctx context.Context, key string, body io.Reader, size int64) error {
	if s.fail {
		return errors.New("bucket unavailable")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memStorage) Download(ctx context.Context, key string) ([]byte, error) {
	if s.fail {
		return nil, errors.New("bucket unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, domain.ErrNotFound)
	}
	return data, nil
}

func (s *memStorage) List(ctx context.Context) ([]string, error) {
	if s.fail {
		return nil, errors.New("bucket unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := []string{}
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *memStorage) Delete(ctx context.Context, key string) error {
	if s.fail {
		return errors.New("bucket unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

type testServer struct {
	handler http.Handler
	store   *memStorage
	ledger  *history.MemoryHistory
}

func newTestServer(maxUploadBytes int64) *testServer {
	log := logger.NewNop()
	store := &memStorage{objects: make(map[string][]byte)}
	ledger := history.NewMemory()

	files := usecase.NewFiles(store, ledger, nil, log)
	hist := usecase.NewHistory(ledger, log)

	return &testServer{
		handler: NewRouter(
			NewFileHandler(files, log, maxUploadBytes),
			NewHistoryHandler(hist, log),
			log,
			RouterConfig{AllowedOrigins: []string{"*"}},
		),
		store:  store,
		ledger: ledger,
	}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) upload(field, filename, content string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	So(err, ShouldBeNil)
	_, err = part.Write([]byte(content))
	So(err, ShouldBeNil)
	So(mw.Close(), ShouldBeNil)

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(req)
}

func (s *testServer) listFiles() []string {
	rec := s.do(httptest.NewRequest(http.MethodGet, "/files", nil))
	So(rec.Code, ShouldEqual, http.StatusOK)

	var keys []string
	So(json.Unmarshal(rec.Body.Bytes(), &keys), ShouldBeNil)
	return keys
}

func (s *testServer) deleteHistory(body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/delete-history", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func TestFileEndpoints(t *testing.T) {
	Convey("Given the HTTP API", t, func() {
		srv := newTestServer(0)

		Convey("GET /health should report ok", func() {
			rec := srv.do(httptest.NewRequest(http.MethodGet, "/health", nil))
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("GET /files on an empty bucket should return []", func() {
			rec := srv.do(httptest.NewRequest(http.MethodGet, "/files", nil))
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(rec.Body.String()), ShouldEqual, "[]")
		})

		Convey("When a file is uploaded", func() {
			rec := srv.upload("file", "notes.txt", "hello")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldEqual, "File uploaded successfully!")

			Convey("It should be listed", func() {
				So(srv.listFiles(), ShouldContain, "notes.txt")
			})

			Convey("Download should return identical bytes as an attachment", func() {
				rec := srv.do(httptest.NewRequest(http.MethodGet, "/download/notes.txt", nil))
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldEqual, "hello")
				So(rec.Header().Get("Content-Disposition"), ShouldEqual, "attachment; filename=notes.txt")
				So(rec.Header().Get("Content-Type"), ShouldEqual, "application/octet-stream")
			})

			Convey("Re-upload should overwrite", func() {
				So(srv.upload("file", "notes.txt", "second").Code, ShouldEqual, http.StatusOK)
				rec := srv.do(httptest.NewRequest(http.MethodGet, "/download/notes.txt", nil))
				So(rec.Body.String(), ShouldEqual, "second")
			})

			Convey("It should be recorded in history with its size", func() {
				rec := srv.do(httptest.NewRequest(http.MethodGet, "/history", nil))
				So(rec.Code, ShouldEqual, http.StatusOK)

				var entries []map[string]interface{}
				So(json.Unmarshal(rec.Body.Bytes(), &entries), ShouldBeNil)
				So(len(entries), ShouldEqual, 1)
				So(entries[0]["operation"], ShouldEqual, "upload")
				So(entries[0]["filename"], ShouldEqual, "notes.txt")
				So(entries[0]["size"], ShouldEqual, 5)
				So(entries[0]["timestamp"], ShouldEndWith, "Z")
			})

			Convey("Delete should remove it and record a sizeless entry", func() {
				rec := srv.do(httptest.NewRequest(http.MethodDelete, "/delete/notes.txt", nil))
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldEqual, "File deleted successfully!")
				So(srv.listFiles(), ShouldNotContain, "notes.txt")

				entries := srv.ledger.List()
				So(len(entries), ShouldEqual, 2)
				So(entries[1].Operation, ShouldEqual, domain.OperationDelete)

				raw := srv.do(httptest.NewRequest(http.MethodGet, "/history", nil)).Body.String()
				So(strings.Count(raw, `"size"`), ShouldEqual, 1)
			})
		})

		Convey("Escaped filenames should round-trip", func() {
			So(srv.upload("file", "my report.pdf", "pdf").Code, ShouldEqual, http.StatusOK)

			rec := srv.do(httptest.NewRequest(http.MethodGet, "/download/my%20report.pdf", nil))
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldEqual, "pdf")

			srv.store.objects["a/b.txt"] = []byte("nested")
			rec = srv.do(httptest.NewRequest(http.MethodGet, "/download/a%2Fb.txt", nil))
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldEqual, "nested")
		})

		Convey("Upload should key the object by the last element of the client filename", func() {
			So(srv.upload("file", "dir/a.txt", "inner").Code, ShouldEqual, http.StatusOK)
			So(srv.listFiles(), ShouldResemble, []string{"a.txt"})
			So(srv.ledger.List()[0].Filename, ShouldEqual, "a.txt")
		})

		Convey("Upload without a file field should be 400", func() {
			rec := srv.upload("other", "notes.txt", "hello")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(rec.Body.String(), ShouldEqual, "No file uploaded.")
			So(srv.ledger.List(), ShouldBeEmpty)
		})

		Convey("Upload with a non-multipart body should be 400", func() {
			rec := srv.do(httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("raw")))
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Download of an unknown key should be 404, never an empty 200", func() {
			rec := srv.do(httptest.NewRequest(http.MethodGet, "/download/missing.txt", nil))
			So(rec.Code, ShouldEqual, http.StatusNotFound)
			So(rec.Body.String(), ShouldEqual, "Error downloading file.")
			So(rec.Header().Get("Content-Disposition"), ShouldBeEmpty)
		})

		Convey("Deleting an absent key should succeed", func() {
			rec := srv.do(httptest.NewRequest(http.MethodDelete, "/delete/ghost.txt", nil))
			So(rec.Code, ShouldEqual, http.StatusOK)
		})

		Convey("When the backend fails", func() {
			srv.store.fail = true

			Convey("Every file endpoint should answer 500 with its message", func() {
				rec := srv.upload("file", "a.txt", "x")
				So(rec.Code, ShouldEqual, http.StatusInternalServerError)
				So(rec.Body.String(), ShouldEqual, "Error uploading file.")

				rec = srv.do(httptest.NewRequest(http.MethodGet, "/download/a.txt", nil))
				So(rec.Code, ShouldEqual, http.StatusInternalServerError)
				So(rec.Body.String(), ShouldEqual, "Error downloading file.")

				rec = srv.do(httptest.NewRequest(http.MethodGet, "/files", nil))
				So(rec.Code, ShouldEqual, http.StatusInternalServerError)
				So(rec.Body.String(), ShouldEqual, "Unable to list files")

				rec = srv.do(httptest.NewRequest(http.MethodDelete, "/delete/a.txt", nil))
				So(rec.Code, ShouldEqual, http.StatusInternalServerError)
				So(rec.Body.String(), ShouldEqual, "Error deleting file.")
			})

			Convey("The ledger should stay untouched", func() {
				srv.upload("file", "a.txt", "x")
				srv.do(httptest.NewRequest(http.MethodDelete, "/delete/a.txt", nil))
				So(srv.ledger.List(), ShouldBeEmpty)
			})
		})

		Convey("CORS preflight should be answered", func() {
			req := httptest.NewRequest(http.MethodOptions, "/upload", nil)
			req.Header.Set("Origin", "http://localhost:3000")
			req.Header.Set("Access-Control-Request-Method", "POST")

			rec := srv.do(req)
			So(rec.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
		})
	})

	Convey("Given an upload limit", t, func() {
		srv := newTestServer(1024)

		Convey("A larger upload should be 413", func() {
			rec := srv.upload("file", "big.bin", strings.Repeat("x", 4096))
			So(rec.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
			So(srv.ledger.List(), ShouldBeEmpty)
		})

		Convey("A small upload should pass", func() {
			So(srv.upload("file", "small.bin", "x").Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestHistoryEndpoints(t *testing.T) {
	Convey("Given three history entries", t, func() {
		srv := newTestServer(0)
		for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
			So(srv.upload("file", name, name).Code, ShouldEqual, http.StatusOK)
		}
		entries := srv.ledger.List()
		So(len(entries), ShouldEqual, 3)

		Convey("Deleting ids 1 and 3 should leave only id 2", func() {
			rec := srv.deleteHistory(fmt.Sprintf(`{"ids":[%d,%d]}`, entries[0].ID, entries[2].ID))
			So(rec.Code, ShouldEqual, http.StatusOK)

			var resp deleteHistoryResponse
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.RemainingCount, ShouldEqual, 1)
			So(resp.Message, ShouldEqual, "History items deleted successfully")

			left := srv.ledger.List()
			So(len(left), ShouldEqual, 1)
			So(left[0].ID, ShouldEqual, entries[1].ID)
		})

		Convey("An empty id set should be a no-op", func() {
			rec := srv.deleteHistory(`{"ids":[]}`)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, `"remainingCount":3`)
		})

		Convey("Unknown ids should be a no-op", func() {
			rec := srv.deleteHistory(`{"ids":[999]}`)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, `"remainingCount":3`)
		})

		Convey("Malformed requests should be 400 and leave the ledger alone", func() {
			for _, body := range []string{
				`{"ids":"1,2"}`,
				`{"ids":{"a":1}}`,
				`{"ids":null}`,
				`{}`,
				`{"ids":[1,"2"]}`,
				`{"ids":[1.5]}`,
				`{"ids":[1,`,
				`not json`,
				`{"ids":[1]} garbage`,
				`{"ids":[1]}{"ids":"x"}`,
			} {
				rec := srv.deleteHistory(body)
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(rec.Header().Get("Content-Type"), ShouldEqual, "application/json")
				So(rec.Body.String(), ShouldContainSubstring, `"error"`)
			}
			So(srv.ledger.List(), ShouldResemble, entries)
		})
	})
}
