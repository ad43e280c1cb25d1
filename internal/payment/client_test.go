package payment

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClientVerify(t *testing.T) {
	tests := map[string]struct {
		status  int
		body    string
		exp     *Verification
		wantErr bool
	}{
		"success": {
			status: http.StatusOK,
			body:   `{"success":true,"data":{"reference":"cs_1","status":"paid","amount":5400,"currency":"usd"}}`,
			exp: &Verification{
				Success: true,
				Data:    &VerificationData{Reference: "cs_1", Status: "paid", Amount: 5400, Currency: "usd"},
			},
		},
		"unsuccessful": {
			status: http.StatusOK,
			body:   `{"success":false,"message":"Payment has not been completed."}`,
			exp:    &Verification{Success: false, Message: "Payment has not been completed."},
		},
		"non-2xx with body": {
			status: http.StatusBadGateway,
			body:   `{"success":true,"message":"upstream"}`,
			exp:    &Verification{Success: false, Message: "upstream"},
		},
		"malformed": {
			status:  http.StatusOK,
			body:    `<html>`,
			wantErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, http.MethodPost, r.Method)
				require.Equal(t, "/verify-payment", r.URL.Path)

				var body struct {
					Reference string `json:"reference"`
				}
				require.Nil(t, json.NewDecoder(r.Body).Decode(&body))
				require.Equal(t, "cs_1", body.Reference)

				w.WriteHeader(test.status)
				_, _ = w.Write([]byte(test.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, time.Second)
			verification, err := client.Verify(ctx, "cs_1")
			if test.wantErr {
				require.NotNil(t, err)
				return
			}
			require.Nil(t, err)
			require.Equal(t, test.exp, verification)
		})
	}
}

func TestClientVerifyUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url, time.Second).Verify(ctx, "cs_1")
	require.NotNil(t, err)
}
