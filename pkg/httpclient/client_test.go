package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// testPayload はテスト用のリクエスト/レスポンスペイロード。
type testPayload struct {
	// Name はテスト用の名前フィールド。
	Name string `json:"name"`
	// Value はテスト用の値フィールド。
	Value int `json:"value"`
}

// TestNew はNew関数でクライアントが正しく生成されることを検証する。
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("クライアントが正常に生成されること", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:8087")
		if client == nil {
			t.Fatal("New()がnilを返した")
		}
		if client.baseURL != "http://localhost:8087" {
			t.Errorf("baseURL = %q, want %q", client.baseURL, "http://localhost:8087")
		}
		if client.httpClient == nil {
			t.Fatal("httpClientがnil")
		}
	})

	t.Run("タイムアウトが30秒に設定されていること", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:8087")
		if client.httpClient.Timeout.Seconds() != 30 {
			t.Errorf("Timeout = %v, want 30s", client.httpClient.Timeout)
		}
	})
}

// TestGetJSON はGetJSON関数を検証する。
func TestGetJSON(t *testing.T) {
	t.Parallel()

	t.Run("正常にGETリクエストを送信してレスポンスを取得できること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("Method = %q, want %q", r.Method, http.MethodGet)
			}
			if r.URL.Path != "/api/v1/users/user-1" {
				t.Errorf("Path = %q, want %q", r.URL.Path, "/api/v1/users/user-1")
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(testPayload{Name: "result", Value: 7})
		}))
		defer ts.Close()

		client := New(ts.URL)
		var result testPayload
		if err := client.GetJSON(context.Background(), "/api/v1/users/user-1", &result); err != nil {
			t.Fatalf("GetJSON()でエラーが発生: %v", err)
		}

		if result.Name != "result" {
			t.Errorf("Name = %q, want %q", result.Name, "result")
		}
		if result.Value != 7 {
			t.Errorf("Value = %d, want %d", result.Value, 7)
		}
	})

	t.Run("404レスポンスがStatusErrorとして返りIsNotFoundで判定できること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"not found"}`))
		}))
		defer ts.Close()

		client := New(ts.URL)
		var result testPayload
		err := client.GetJSON(context.Background(), "/api/v1/users/missing", &result)
		if err == nil {
			t.Fatal("404レスポンスでエラーが返るべき")
		}

		if !IsNotFound(err) {
			t.Errorf("IsNotFound() = false, want true: %v", err)
		}

		var se *StatusError
		if !errors.As(err, &se) {
			t.Fatalf("StatusErrorが返るべき: %v", err)
		}
		if se.StatusCode != http.StatusNotFound {
			t.Errorf("StatusCode = %d, want %d", se.StatusCode, http.StatusNotFound)
		}
	})

	t.Run("500レスポンスはIsNotFoundで判定されないこと", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer ts.Close()

		client := New(ts.URL)
		var result testPayload
		err := client.GetJSON(context.Background(), "/api/v1/users/user-1", &result)
		if err == nil {
			t.Fatal("500レスポンスでエラーが返るべき")
		}
		if IsNotFound(err) {
			t.Errorf("IsNotFound() = true, want false: %v", err)
		}
	})
}

// TestPostJSON はPostJSON関数を検証する。
func TestPostJSON(t *testing.T) {
	t.Parallel()

	t.Run("正常にPOSTリクエストを送信してレスポンスを取得できること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("Method = %q, want %q", r.Method, http.MethodPost)
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want %q", ct, "application/json")
			}

			body, _ := io.ReadAll(r.Body)
			var req testPayload
			if err := json.Unmarshal(body, &req); err != nil {
				t.Errorf("リクエストボディのパースに失敗: %v", err)
			}
			if req.Name != "request" {
				t.Errorf("リクエストのName = %q, want %q", req.Name, "request")
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]string{"id": "created-1"})
		}))
		defer ts.Close()

		client := New(ts.URL)
		var result map[string]string
		err := client.PostJSON(context.Background(), "/api/v1/users", testPayload{Name: "request", Value: 1}, &result)
		if err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}

		if result["id"] != "created-1" {
			t.Errorf("id = %q, want %q", result["id"], "created-1")
		}
	})

	t.Run("resultがnilの場合でもエラーにならないこと", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}))
		defer ts.Close()

		client := New(ts.URL)
		if err := client.PostJSON(context.Background(), "/api/v1/users", testPayload{Name: "x"}, nil); err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}
	})
}

// TestWithUserID はコンテキスト経由のユーザーID伝播を検証する。
func TestWithUserID(t *testing.T) {
	t.Parallel()

	t.Run("コンテキストのユーザーIDがX-User-IDヘッダーで伝播されること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("X-User-ID"); got != "user-propagated" {
				t.Errorf("X-User-ID = %q, want %q", got, "user-propagated")
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{}`))
		}))
		defer ts.Close()

		client := New(ts.URL)
		ctx := WithUserID(context.Background(), "user-propagated")
		var result map[string]any
		if err := client.GetJSON(ctx, "/api/v1/groups", &result); err != nil {
			t.Fatalf("GetJSON()でエラーが発生: %v", err)
		}
	})

	t.Run("ユーザーIDが未設定の場合ヘッダーが付与されないこと", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("X-User-ID"); got != "" {
				t.Errorf("X-User-ID = %q, want empty string", got)
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{}`))
		}))
		defer ts.Close()

		client := New(ts.URL)
		var result map[string]any
		if err := client.GetJSON(context.Background(), "/api/v1/groups", &result); err != nil {
			t.Fatalf("GetJSON()でエラーが発生: %v", err)
		}
	})
}
