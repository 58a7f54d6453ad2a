package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResendSender_Send_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/emails", r.URL.Path)
		require.Equal(t, "Bearer re_test_key", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body resendRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "PaperTags <tags@example.com>", body.From)
		require.Equal(t, []string{"owner@example.com"}, body.To)
		require.Equal(t, "Found your tag!", body.Subject)
		require.Contains(t, body.HTML, "<html>")

		_, _ = w.Write([]byte(`{"id":"re_msg_123"}`))
	}))
	defer srv.Close()

	s := NewResendSender(srv.URL, "re_test_key", "PaperTags <tags@example.com>")
	id, err := s.Send(context.Background(), Mail{
		To:      "owner@example.com",
		Subject: "Found your tag!",
		HTML:    "<html><body>hi</body></html>",
	})
	require.NoError(t, err)
	require.Equal(t, "re_msg_123", id)
}

func TestResendSender_Send_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid from address"}`))
	}))
	defer srv.Close()

	s := NewResendSender(srv.URL, "re_test_key", "bogus")
	_, err := s.Send(context.Background(), Mail{To: "owner@example.com", Subject: "x"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "422")
	require.Contains(t, err.Error(), "invalid from address")
}

func TestNoopSender_ReturnsID(t *testing.T) {
	s := NewNoopSender()
	id, err := s.Send(context.Background(), Mail{To: "owner@example.com", Subject: "x"})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Contains(t, id, "noop-")
}
