// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ops

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ClusterCockpit/meterdecode/pkg/schema"
)

func TestHandleHealthz(t *testing.T) {
	rw := httptest.NewRecorder()
	handleHealthz(rw, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rw.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rw.Code)
	}
	if !strings.Contains(rw.Body.String(), `"ok"`) {
		t.Errorf("body = %q, want it to contain ok status", rw.Body.String())
	}
}

func TestHandleDecodeMissingName(t *testing.T) {
	handler := handleDecode(schema.DecodeOptions{})
	rw := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/decode", strings.NewReader("data"))
	handler(rw, req)
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rw.Code)
	}
}

func TestHandleDecodeCSV(t *testing.T) {
	handler := handleDecode(schema.DecodeOptions{})
	body := "METER-OPS-1\nfree text\n1-0:1.8.0\n26/08/2025 00:15:00;12,34\n"
	rw := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/decode?name=meter.csv", strings.NewReader(body))
	handler(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rw.Code, rw.Body.String())
	}
	if !strings.Contains(rw.Body.String(), "METER-OPS-1") {
		t.Errorf("expected decoded meter id in response body, got %s", rw.Body.String())
	}
}

func TestHandleDecodeUnprocessableForUnsupported(t *testing.T) {
	handler := handleDecode(schema.DecodeOptions{})
	rw := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/decode?name=reading.dat", strings.NewReader("whatever"))
	handler(rw, req)
	if rw.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rw.Code)
	}
}
