package allegro

import (
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNamespace = "urn:SandboxWebApi"

type capturedRequest struct {
	Body struct {
		SysStatus struct {
			SysVar    int    `xml:"sysvar"`
			CountryID int    `xml:"countryId"`
			WebAPIKey string `xml:"webapiKey"`
		} `xml:"DoQuerySysStatusRequest"`
		Login struct {
			Login        string `xml:"userLogin"`
			Password     string `xml:"userPassword"`
			LocalVersion int64  `xml:"localVersion"`
		} `xml:"DoLoginRequest"`
		Auction struct {
			SessionHandle string  `xml:"sessionHandle"`
			Fields        []Field `xml:"fields>item"`
		} `xml:"DoNewAuctionExtRequest"`
	} `xml:"Body"`
}

// fakeWebAPI answers the three WebAPI calls and records what it received.
type fakeWebAPI struct {
	mu       sync.Mutex
	actions  []string
	requests []capturedRequest
	fault    string // action answered with a SOAP fault
}

func (f *fakeWebAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	action := strings.TrimPrefix(r.Header.Get("SOAPAction"), "#")

	var req capturedRequest
	_ = xml.Unmarshal(body, &req)

	f.mu.Lock()
	f.actions = append(f.actions, action)
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "text/xml")
	if action == f.fault {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, soapResponse(`<SOAP-ENV:Fault><faultcode>ERR_USER_PASSWD</faultcode><faultstring>Niepoprawny login lub hasło.</faultstring></SOAP-ENV:Fault>`))
		return
	}

	switch action {
	case "doQuerySysStatus":
		fmt.Fprint(w, soapResponse(`<ns1:doQuerySysStatusResponse><info>1.0</info><verKey>1234567</verKey></ns1:doQuerySysStatusResponse>`))
	case "doLogin":
		fmt.Fprint(w, soapResponse(`<ns1:doLoginResponse><sessionHandlePart>abc-session</sessionHandlePart><userId>42</userId><serverTime>1</serverTime></ns1:doLoginResponse>`))
	case "doNewAuctionExt":
		fmt.Fprint(w, soapResponse(`<ns1:doNewAuctionExtResponse><itemId>987654321</itemId><itemInfo>1,50 zł</itemInfo></ns1:doNewAuctionExtResponse>`))
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func soapResponse(content string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>` +
		`<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ns1="` + testNamespace + `">` +
		`<SOAP-ENV:Body>` + content + `</SOAP-ENV:Body></SOAP-ENV:Envelope>`
}

func testConfig(endpoint string) Config {
	return Config{
		Environment: Environment{Name: "test", Endpoint: endpoint, Namespace: testNamespace},
		Credentials: Credentials{Login: "seller", Password: "secret", WebAPIKey: "key"},
		Offer: Offer{
			Category: 6066, Duration: 3, ItemCount: 1, Country: 1, State: 7,
			City: "Kraków", ShipmentPayer: 1, PaymentForm: 1, OfferType: 1,
			PostCode: "30-001", BankAccount: "00 1111 2222", ShipmentCost: 5.5,
		},
		FieldIDs:      DefaultFieldIDs(),
		PhotoInterval: time.Millisecond,
	}
}

func TestNewClientValidation(t *testing.T) {
	cfg := testConfig("http://localhost")
	cfg.Credentials.Password = ""
	_, err := NewClient(cfg, nil)
	assert.ErrorIs(t, err, ErrMissingCredentials)

	cfg = testConfig("")
	_, err = NewClient(cfg, nil)
	assert.Error(t, err)
}

func TestClient_Login(t *testing.T) {
	api := &fakeWebAPI{}
	server := httptest.NewServer(api)
	defer server.Close()

	client, err := NewClient(testConfig(server.URL), nil)
	require.NoError(t, err)

	require.NoError(t, client.Login(context.Background()))
	assert.True(t, client.LoggedIn())
	assert.Equal(t, []string{"doQuerySysStatus", "doLogin"}, api.actions)

	status := api.requests[0].Body.SysStatus
	assert.Equal(t, 1, status.SysVar)
	assert.Equal(t, 1, status.CountryID)
	assert.Equal(t, "key", status.WebAPIKey)

	login := api.requests[1].Body.Login
	assert.Equal(t, "seller", login.Login)
	assert.Equal(t, "secret", login.Password)
	assert.Equal(t, int64(1234567), login.LocalVersion)
}

func TestClient_LoginFault(t *testing.T) {
	api := &fakeWebAPI{fault: "doLogin"}
	server := httptest.NewServer(api)
	defer server.Close()

	client, err := NewClient(testConfig(server.URL), nil)
	require.NoError(t, err)

	err = client.Login(context.Background())
	require.Error(t, err)

	var fault *FaultError
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, "ERR_USER_PASSWD", fault.Code)
	assert.False(t, client.LoggedIn())
}

func TestClient_NewAuctionRequiresLogin(t *testing.T) {
	client, err := NewClient(testConfig("http://localhost"), nil)
	require.NoError(t, err)

	_, err = client.NewAuction(context.Background(), nil)
	assert.Error(t, err)
}

func TestClient_CreateDeckAuction(t *testing.T) {
	photo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("remote-jpeg"))
	}))
	defer photo.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "local.jpg"), []byte("local-jpeg"), 0o644))

	api := &fakeWebAPI{}
	server := httptest.NewServer(api)
	defer server.Close()

	client, err := NewClient(testConfig(server.URL), nil)
	require.NoError(t, err)

	result, err := client.CreateDeckAuction(context.Background(), Auction{
		Title:       "Burn Deck (1M 2R 5C) [redienss]",
		Price:       "49,99",
		Description: "<h1>Burn Deck</h1>",
		Photos:      []string{photo.URL + "/deck.jpg", "local.jpg"},
		PhotoDir:    dir,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(987654321), result.ItemID)
	assert.Equal(t, "1,50 zł", result.ItemInfo)

	require.Equal(t, []string{"doQuerySysStatus", "doLogin", "doNewAuctionExt"}, api.actions)
	auction := api.requests[2].Body.Auction
	assert.Equal(t, "abc-session", auction.SessionHandle)

	fields := auction.Fields
	require.Len(t, fields, 24)

	ids := DefaultFieldIDs()
	get := func(fid int) Field {
		t.Helper()
		f, ok := fieldByID(fields, fid)
		require.True(t, ok, "missing field %d", fid)
		return f
	}

	assert.Equal(t, "Burn Deck (1M 2R 5C) [redienss]", get(ids.ItemName).String)
	assert.Equal(t, 6066, get(ids.Category).Int)
	assert.InDelta(t, 49.99, get(ids.BuyNowPrice).Float, 0.0001)
	assert.Equal(t, "Kraków", get(ids.City).String)
	assert.Equal(t, "<h1>Burn Deck</h1>", get(ids.Description).String)
	assert.InDelta(t, 5.5, get(ids.ShipmentCost).Float, 0.0001)
	assert.Equal(t, "30-001", get(ids.PostCode).String)

	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("remote-jpeg")), get(ids.Photos[0]).Image)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("local-jpeg")), get(ids.Photos[1]).Image)
	for _, fid := range ids.Photos[2:] {
		assert.Empty(t, get(fid).Image)
	}

	// A second auction reuses the session
	_, err = client.CreateDeckAuction(context.Background(), Auction{Title: "Again", Price: "10"})
	require.NoError(t, err)
	assert.Equal(t, "doNewAuctionExt", api.actions[len(api.actions)-1])
	assert.Len(t, api.actions, 4)
}

func TestClient_CreateDeckAuctionInvalidPrice(t *testing.T) {
	api := &fakeWebAPI{}
	server := httptest.NewServer(api)
	defer server.Close()

	client, err := NewClient(testConfig(server.URL), nil)
	require.NoError(t, err)

	_, err = client.CreateDeckAuction(context.Background(), Auction{Title: "Deck", Price: "free"})
	assert.ErrorIs(t, err, ErrInvalidPrice)
	assert.Empty(t, api.actions, "no call is made for an invalid price")
}

func TestClient_CreateDeckAuctionMissingPhoto(t *testing.T) {
	api := &fakeWebAPI{}
	server := httptest.NewServer(api)
	defer server.Close()

	client, err := NewClient(testConfig(server.URL), nil)
	require.NoError(t, err)

	_, err = client.CreateDeckAuction(context.Background(), Auction{
		Title: "Deck", Price: "10", Photos: []string{"missing.jpg"}, PhotoDir: t.TempDir(),
	})
	assert.Error(t, err)
	assert.Empty(t, api.actions)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"49.99", 49.99, false},
		{"49,99", 49.99, false},
		{" 10 ", 10, false},
		{"0.00", 0, true},
		{"-5", 0, true},
		{"", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrice(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePrice(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePrice(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPhotoLoaderLimit(t *testing.T) {
	dir := t.TempDir()
	var locations []string
	for i := 0; i < MaxPhotos+2; i++ {
		name := fmt.Sprintf("p%d.jpg", i)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
		locations = append(locations, name)
	}

	loader := NewPhotoLoader(http.DefaultClient, time.Millisecond)
	images, err := loader.LoadAll(context.Background(), locations, dir)
	require.NoError(t, err)
	assert.Len(t, images, MaxPhotos)
}

func TestPhotoLoaderRemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	loader := NewPhotoLoader(server.Client(), time.Millisecond)
	_, err := loader.Load(context.Background(), server.URL+"/missing.jpg", "")
	assert.Error(t, err)
}

func fieldByID(fields []Field, fid int) (Field, bool) {
	for _, f := range fields {
		if f.FID == fid {
			return f, true
		}
	}
	return Field{}, false
}
