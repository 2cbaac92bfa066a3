package validator

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestValidateMiddleware(t *testing.T) {
	v := New()

	type TestStruct struct {
		Name     string `json:"name" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
	}

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the body must still be readable after validation
		body, _ := io.ReadAll(r.Body)
		if len(body) == 0 {
			t.Error("Expected handler to receive the request body")
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("success"))
	})

	middleware := v.ValidateMiddleware(TestStruct{})

	post := func(payload any) *http.Response {
		data, _ := json.Marshal(payload)
		req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewReader(data))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		middleware(testHandler).ServeHTTP(rec, req)
		return rec.Result()
	}

	// valid request passes through
	resp := post(TestStruct{Name: "John Doe", Email: "john@example.com", Password: "password123"})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, resp.StatusCode)
	}

	// missing required field
	resp = post(map[string]string{"email": "john@example.com", "password": "password123"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	// invalid email
	resp = post(TestStruct{Name: "John Doe", Email: "not-an-email", Password: "password123"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	// short password
	resp = post(TestStruct{Name: "John Doe", Email: "john@example.com", Password: "short"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	// malformed JSON body
	req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	middleware(testHandler).ServeHTTP(rec, req)
	if rec.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, rec.Result().StatusCode)
	}
}
