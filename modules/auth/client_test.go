package auth_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guarzo/hrapi/common"
	"github.com/guarzo/hrapi/modules/auth"
)

func TestClient_Login(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, auth.LoginPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["email"] != "ada@example.com" || body["password"] != "secret1" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"message":"Bad credentials"}`)
			return
		}
		fmt.Fprint(w, `{"data":{"accessToken":"A1","refreshToken":"R1"}}`)
	}))
	defer ts.Close()

	cli := auth.NewClient(ts.URL, common.NewHRHttpClient("UA", &http.Client{}))

	tok, err := cli.Login(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "A1", tok.AccessToken)
	assert.Equal(t, "R1", tok.RefreshToken)
	assert.Equal(t, "Bearer", tok.TokenType)

	_, err = cli.Login(context.Background(), "ada@example.com", "wrong!!")
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
	assert.True(t, common.IsStatus(err, http.StatusUnauthorized))
}

func TestClient_LoginMissingRefreshToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"accessToken":"A1"}}`)
	}))
	defer ts.Close()

	cli := auth.NewClient(ts.URL, common.NewHRHttpClient("UA", &http.Client{}))
	_, err := cli.Login(context.Background(), "ada@example.com", "secret1")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestClient_RefreshToken(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   error
		wantCode  int
		wantToken string
		wantRT    string
	}{
		{name: "rotated", status: http.StatusOK, body: `{"data":{"accessToken":"A2","refreshToken":"R2"}}`, wantToken: "A2", wantRT: "R2"},
		{name: "not rotated", status: http.StatusOK, body: `{"data":{"accessToken":"A2"}}`, wantToken: "A2"},
		{name: "missing access token", status: http.StatusOK, body: `{"data":{}}`, wantErr: common.ErrMalformedResponse},
		{name: "no data", status: http.StatusOK, body: `{}`, wantErr: common.ErrMalformedResponse},
		{name: "rejected", status: http.StatusUnauthorized, body: `{"message":"refresh token expired"}`, wantCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, auth.RefreshPath, r.URL.Path)
				var body map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "R1", body["refreshToken"])
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer ts.Close()

			cli := auth.NewClient(ts.URL, common.NewHRHttpClient("UA", &http.Client{}))
			tok, err := cli.RefreshToken(context.Background(), "R1")

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantCode != 0:
				require.Error(t, err)
				assert.True(t, common.IsStatus(err, tt.wantCode))
				var httpErr *common.HTTPError
				require.ErrorAs(t, err, &httpErr)
				assert.Equal(t, "refresh token expired", httpErr.Message)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantToken, tok.AccessToken)
				assert.Equal(t, tt.wantRT, tok.RefreshToken)
			}
		})
	}
}

func TestClient_Logout(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, auth.LogoutPath, r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	cli := auth.NewClient(ts.URL+"/", common.NewHRHttpClient("UA", &http.Client{}))
	require.NoError(t, cli.Logout(context.Background(), "A1"))
	assert.Equal(t, "Bearer A1", gotAuth)
}
