package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"peertalk"
)

func TestHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("user"); got != "A" {
			t.Errorf("expected user=A, got %q", got)
		}
		if got := r.Header.Get("token"); got != "tok" {
			t.Errorf("expected token header, got %q", got)
		}
		// One record in each timestamp spelling.
		_, _ = w.Write([]byte(`[
			{"id":"1","senderId":"A","receiverId":"B","message":"hi","sentAt":"2024-01-01T10:00:00Z"},
			{"id":"2","senderId":"B","receiverId":"A","message":"yo","createdAt":"2024-01-01T10:01:00Z"}
		]`))
	}))
	defer srv.Close()

	c := New(srv.URL, peertalk.StaticSession{ID: "B", AccessToken: "tok"})
	msgs, err := c.History(context.Background(), "A")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	want := time.Date(2024, 1, 1, 10, 1, 0, 0, time.UTC)
	if !msgs[1].SentAt.Equal(want) {
		t.Errorf("createdAt not normalized: got %v", msgs[1].SentAt)
	}
}

func TestSend(t *testing.T) {
	var got peertalk.SendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/messages" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(srv.URL, peertalk.StaticSession{ID: "B", AccessToken: "tok"})
	err := c.Send(context.Background(), peertalk.SendRequest{
		Message:    "hello",
		ReceiverID: "A",
		Images:     []string{"https://cdn.example/a.png"},
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got.Message != "hello" || got.ReceiverID != "A" {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestSend_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, peertalk.StaticSession{ID: "B", AccessToken: "tok"})
	if err := c.Send(context.Background(), peertalk.SendRequest{Message: "x", ReceiverID: "A"}); err == nil {
		t.Error("expected error for server failure")
	}
}

func TestUploadImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/upload/image" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing multipart file: %v", err)
			return
		}
		defer func() { _ = file.Close() }()
		if header.Filename != "a.png" {
			t.Errorf("unexpected filename %q", header.Filename)
		}
		_, _ = w.Write([]byte(`{"url":"https://cdn.example/a.png"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, peertalk.StaticSession{ID: "B", AccessToken: "tok"})
	url, err := c.UploadImage(context.Background(), "a.png", []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("UploadImage failed: %v", err)
	}
	if url != "https://cdn.example/a.png" {
		t.Errorf("unexpected url %q", url)
	}
}

func TestUploadVideo_RawBodyPassedThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A bare string body, one of the two accepted response shapes.
		_, _ = w.Write([]byte(`"https://cdn.example/v.mp4"`))
	}))
	defer srv.Close()

	c := New(srv.URL, peertalk.StaticSession{ID: "B", AccessToken: "tok"})
	raw, err := c.UploadVideo(context.Background(), "v.mp4", []byte{1})
	if err != nil {
		t.Fatalf("UploadVideo failed: %v", err)
	}
	if string(raw) != `"https://cdn.example/v.mp4"` {
		t.Errorf("body not passed through: %s", raw)
	}
}
