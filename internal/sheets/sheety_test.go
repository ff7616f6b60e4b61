package sheets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientFetchFiltersByRepresentante(t *testing.T) {
	var gotPath, gotFilter, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFilter = r.URL.Query().Get("filter[representante]")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"dados":[{"id":2,"nome":"Bo","eMail":"bo@y.com","telefone":"11988887777","representante":"ana"}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, ProjectID: "proj123", AccessToken: "dG9rZW4="})
	require.NoError(t, err)

	rows, err := c.Fetch(context.Background(), "ana")
	require.NoError(t, err)
	require.Equal(t, "/proj123/representa/dados", gotPath)
	require.Equal(t, "ana", gotFilter)
	require.Equal(t, "Basic dG9rZW4=", gotAuth)
	require.Equal(t, []RosterEntry{{ID: 2, Nome: "Bo", Email: "bo@y.com", Telefone: "11988887777", Representante: "ana"}}, rows)
}

func TestClientFetchEmptyAndErrors(t *testing.T) {
	status := http.StatusOK
	body := `{}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, ProjectID: "proj123"})
	require.NoError(t, err)

	rows, err := c.Fetch(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, rows)

	status, body = http.StatusInternalServerError, `{"errors":[]}`
	_, err = c.Fetch(context.Background(), "ana")
	require.ErrorContains(t, err, "status 500")

	status, body = http.StatusOK, `not json`
	_, err = c.Fetch(context.Background(), "ana")
	require.ErrorContains(t, err, "decodificar")
}

func TestClientDelete(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		if r.URL.Path == "/proj123/representa/dados/99" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, ProjectID: "proj123"})
	require.NoError(t, err)

	require.NoError(t, c.Delete(context.Background(), 7))
	require.Equal(t, http.MethodDelete, gotMethod)
	require.Equal(t, "/proj123/representa/dados/7", gotPath)

	require.Error(t, c.Delete(context.Background(), 99))
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(Config{})
	require.ErrorIs(t, err, ErrNotConfigured)

	_, err = NoopProvider{}.Fetch(context.Background(), "ana")
	require.True(t, errors.Is(err, ErrNotConfigured))
}
