/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package diag

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

var errResetFailed = errors.New("reset failed")

type fakeSender struct {
	seq   uint32
	idx   uint64
	drops uint64
}

func (f fakeSender) PacketSequence() uint32   { return f.seq }
func (f fakeSender) FirstSampleIndex() uint64 { return f.idx }
func (f fakeSender) DropCount() uint64        { return f.drops }

func TestHandleStatus(t *testing.T) {
	s := NewServer(":0", fakeSender{seq: 7, idx: 28, drops: 2}, func() int { return 3 }, func() bool { return true }, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", rec.Code)
	}

	var got Status
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	want := Status{PacketSequence: 7, FirstSampleIndex: 28, QueueLen: 3, DropLatchRaised: true, DropCount: 2}
	if got != want {
		t.Fatalf("status = %+v, want %+v", got, want)
	}
}

func TestHandleStatusUnknownRoute(t *testing.T) {
	s := NewServer(":0", fakeSender{}, func() int { return 0 }, func() bool { return false }, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/unknown", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status code = %d, want 404", rec.Code)
	}
}

func TestHandleResetCallsResetFunc(t *testing.T) {
	called := false
	s := NewServer(":0", fakeSender{}, func() int { return 0 }, func() bool { return false }, func() error {
		called = true
		return nil
	})

	req := httptest.NewRequest(http.MethodPost, "/api/reset", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status code = %d, want 204", rec.Code)
	}
	if !called {
		t.Fatalf("reset func was not called")
	}
}

func TestHandleResetUnconfigured(t *testing.T) {
	s := NewServer(":0", fakeSender{}, func() int { return 0 }, func() bool { return false }, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/reset", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status code = %d, want 503", rec.Code)
	}
}

func TestHandleResetPropagatesError(t *testing.T) {
	s := NewServer(":0", fakeSender{}, func() int { return 0 }, func() bool { return false }, func() error {
		return errResetFailed
	})

	req := httptest.NewRequest(http.MethodPost, "/api/reset", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status code = %d, want 500", rec.Code)
	}
}
