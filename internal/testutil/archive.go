// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TarEntry describes one entry of a test archive. A zero Typeflag means a
// regular file.
type TarEntry struct {
	Name     string
	Body     string
	Typeflag byte
}

// TarGz builds a gzip-compressed tar archive holding entries in order.
func TarGz(t testing.TB, entries ...TarEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.Name,
			Mode:     0o644,
			Size:     int64(len(e.Body)),
			Typeflag: tar.TypeReg,
		}
		if e.Typeflag != 0 && e.Typeflag != tar.TypeReg {
			hdr.Typeflag = e.Typeflag
			hdr.Size = 0
			hdr.Mode = 0o755
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("writing tar header: %v", err)
		}
		if hdr.Size > 0 {
			if _, err := tw.Write([]byte(e.Body)); err != nil {
				t.Fatalf("writing tar body: %v", err)
			}
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar writer: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}

	return buf.Bytes()
}

// NpmPackage builds an archive laid out like an npm registry tarball: every
// file sits under "package/".
func NpmPackage(t testing.TB, files map[string]string) []byte {
	t.Helper()

	entries := []TarEntry{{Name: "package/package.json", Body: `{"name":"fixture"}`}}
	for name, body := range files {
		entries = append(entries, TarEntry{Name: "package/" + name, Body: body})
	}
	return TarGz(t, entries...)
}

// ServeFiles starts an httptest server that answers GET requests for the
// given paths with the mapped bytes and 404 for anything else. The server is
// closed via t.Cleanup.
func ServeFiles(t testing.TB, files map[string][]byte) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		if _, err := w.Write(data); err != nil {
			t.Errorf("writing file response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)

	return srv
}
