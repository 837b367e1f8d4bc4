package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestResendSendEmail(t *testing.T) {
	var got struct {
		From    string   `json:"from"`
		To      []string `json:"to"`
		Subject string   `json:"subject"`
		Text    string   `json:"text"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails" || r.Header.Get("Authorization") != "Bearer re_key" {
			t.Errorf("unexpected request %s %v", r.URL.Path, r.Header)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"id":"email_123"}`))
	}))
	defer srv.Close()

	r := NewResend(ResendConfig{APIKey: "re_key", From: "Acme <billing@acme.test>", BaseURL: srv.URL})
	id, err := r.SendEmail(context.Background(), Email{To: []string{"ap@globex.test"}, Subject: "Invoice INV-1", HTML: "<p>hi</p>", Text: "hi"})
	if err != nil {
		t.Fatalf("SendEmail: %v", err)
	}
	if id != "email_123" {
		t.Errorf("id = %q", id)
	}
	if got.From != "Acme <billing@acme.test>" || got.To[0] != "ap@globex.test" || got.Text != "hi" {
		t.Errorf("payload = %+v", got)
	}
}

func TestResendErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"Invalid to field"}`))
	}))
	defer srv.Close()

	r := NewResend(ResendConfig{APIKey: "k", From: "f@acme.test", BaseURL: srv.URL})
	_, err := r.SendEmail(context.Background(), Email{To: []string{"x"}})
	if err == nil || !strings.Contains(err.Error(), "Invalid to field") {
		t.Fatalf("got %v", err)
	}

	if _, err := NewResend(ResendConfig{}).SendEmail(context.Background(), Email{To: []string{"x"}}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("unconfigured: got %v", err)
	}
}

func TestTwilioSendSMS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2010-04-01/Accounts/AC1/Messages.json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC1" || pass != "secret" {
			t.Errorf("basic auth = %q %q %v", user, pass, ok)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if r.PostForm.Get("To") != "+14155550100" || r.PostForm.Get("From") != "+15005550006" || r.PostForm.Get("Body") != "Invoice ready" {
			t.Errorf("form = %v", r.PostForm)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
	}))
	defer srv.Close()

	tw := NewTwilio(TwilioConfig{AccountSID: "AC1", AuthToken: "secret", From: "+15005550006", BaseURL: srv.URL})
	sid, err := tw.SendSMS(context.Background(), "+14155550100", "Invoice ready")
	if err != nil {
		t.Fatalf("SendSMS: %v", err)
	}
	if sid != "SM123" {
		t.Errorf("sid = %q", sid)
	}
}

func TestTwilioErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"The 'To' number is not a valid phone number.","status":400}`))
	}))
	defer srv.Close()

	tw := NewTwilio(TwilioConfig{AccountSID: "AC1", AuthToken: "secret", From: "+1500", BaseURL: srv.URL})
	_, err := tw.SendSMS(context.Background(), "bogus", "x")
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.StatusCode != 400 {
		t.Fatalf("got %v", err)
	}
	if _, err := NewTwilio(TwilioConfig{}).SendSMS(context.Background(), "+1", "x"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("unconfigured: got %v", err)
	}
}
