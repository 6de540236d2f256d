package restapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"workmap/internal/common/log"
	"workmap/internal/contracts"
	"workmap/internal/domain/geo"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(log.New("test"), srv.URL, 2*time.Second)
}

func TestLoginStoresTokenAndSendsBearer(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			json.NewEncoder(w).Encode(contracts.LoginResponse{Token: "tok-abc"})
		case "/usuarios/cerca":
			gotAuth = r.Header.Get("Authorization")
			w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	token, err := c.Login(context.Background(), "a@b.com", "secret1")
	if err != nil || token != "tok-abc" {
		t.Fatalf("Login = %q, %v", token, err)
	}

	if _, err := c.FindNearby(context.Background(), geo.Point{Lat: 1, Lng: 2}, 5); err != nil {
		t.Fatalf("FindNearby: %v", err)
	}
	if gotAuth != "Bearer tok-abc" {
		t.Errorf("Authorization header = %q, token from login not attached", gotAuth)
	}
}

func TestLoginRejectedMapsToInvalidCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid credentials"}`))
	})

	if _, err := c.Login(context.Background(), "a@b.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login = %v, want ErrInvalidCredentials", err)
	}
}

func TestFindNearbyConvertsWirePairs(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`[{"id":3,"nombre":"Luis","coordenadas":[-77.03,-12.05]}]`))
	})

	entities, err := c.FindNearby(context.Background(), geo.Point{Lat: -12.05, Lng: -77.04}, 5)
	if err != nil {
		t.Fatalf("FindNearby: %v", err)
	}
	if len(entities) != 1 {
		t.Fatalf("got %d entities, want 1", len(entities))
	}
	e := entities[0]
	if e.Coordinate.Lat != -12.05 || e.Coordinate.Lng != -77.03 {
		t.Errorf("coordinate = %+v, wire pair not converted to {lat, lng}", e.Coordinate)
	}
	params, err := url.ParseQuery(gotQuery)
	if err != nil {
		t.Fatalf("parse query %q: %v", gotQuery, err)
	}
	if params.Get("lat") != "-12.05" || params.Get("lng") != "-77.04" || params.Get("radiusKm") != "5" {
		t.Errorf("query params = %v", params)
	}
}

func TestProfileSaveFailureWrapped(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := c.SaveProfile(context.Background(), contracts.ProfileRequest{Titulo: "t", Descripcion: "d"})
	if !errors.Is(err, ErrProfileSaveFailed) {
		t.Fatalf("SaveProfile = %v, want ErrProfileSaveFailed", err)
	}
}

func TestUnshapedErrorBodyTolerated(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	})

	err := c.Register(context.Background(), contracts.RegisterRequest{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway {
		t.Fatalf("Register = %v, want APIError with status 502", err)
	}
}
