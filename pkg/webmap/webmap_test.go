package webmap

import (
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudorandom/energy-map/pkg/choropleth"
)

func ptr(v float64) *float64 { return &v }

func square(x, y, size float64) *geojson.Geometry {
	return geojson.NewPolygonGeometry([][][]float64{{{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}, {x, y}}})
}

func testDataset() *choropleth.Dataset {
	de := geojson.NewFeature(square(5, 45, 10))
	de.SetProperty(choropleth.NameProperty, "Germany")
	tl := geojson.NewFeature(square(-60, -20, 10))
	tl.SetProperty(choropleth.NameProperty, "Testland")
	return &choropleth.Dataset{
		Features: []*geojson.Feature{de, tl},
		Records: []choropleth.Record{
			{Country: "Germany", Year: 2021, PrimaryEnergyConsumption: ptr(3500)},
			{Country: "Germany", Year: 2022, PrimaryEnergyConsumption: ptr(50000)},
			{Country: "Testland", Year: 2021, PrimaryEnergyConsumption: ptr(5)},
		},
	}
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(testDataset())
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return s, ts
}

func getBody(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestIndexPage(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := getBody(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	page := string(body)
	assert.Contains(t, page, `id="year-slider"`)
	assert.Contains(t, page, `min="2021"`)
	assert.Contains(t, page, `max="2022"`)
	assert.Contains(t, page, "<title>Germany</title>")
	assert.Contains(t, page, "<title>Testland</title>")
	assert.Equal(t, 2, strings.Count(page, "<path "))
	assert.Contains(t, page, "no data")
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := getBody(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestYearsAPI(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := getBody(t, ts.URL+"/api/years")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"years":[2021,2022]}`, string(body))
}

func TestYearAPI(t *testing.T) {
	s, ts := newTestServer(t)

	resp, body := getBody(t, ts.URL+"/api/years/2021")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got yearResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, 2021, got.Year)
	assert.Equal(t, 2, got.Matched)
	require.Len(t, got.Countries, 2)

	assert.Equal(t, "Germany", got.Countries[0].Name)
	assert.Equal(t, "DEU", got.Countries[0].Alpha3)
	require.NotNil(t, got.Countries[0].Energy)
	assert.Equal(t, 3500.0, *got.Countries[0].Energy)
	assert.Equal(t, "#9ecae1", got.Countries[0].Color)

	assert.Equal(t, "Testland", got.Countries[1].Name)
	assert.Empty(t, got.Countries[1].Alpha3)
	assert.Equal(t, "#f7fbff", got.Countries[1].Color)

	resp, body = getBody(t, ts.URL+"/api/years/2022")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, 1, got.Matched)
	assert.Nil(t, got.Countries[1].Energy)
	assert.Equal(t, "#d3d3d3", got.Countries[1].Color)

	_, hasEnergy := s.data.Features[0].Properties[choropleth.EnergyProperty]
	assert.False(t, hasEnergy, "requests never join on the shared dataset")

	resp, _ = getBody(t, ts.URL+"/api/years/abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSnapshot(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/snapshot/2022.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 960, img.Bounds().Dx())
	assert.Equal(t, 600, img.Bounds().Dy())
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + socketPath
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frameMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg frameMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestSocketSession(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts)

	first := readFrame(t, conn)
	assert.True(t, first.Initial)
	assert.Equal(t, 2022, first.Year)
	assert.Equal(t, int64(0), first.TransitionMS)
	assert.Equal(t, 1, first.Matched)
	assert.Equal(t, []string{"#6baed6", "#d3d3d3"}, first.Fills)

	require.NoError(t, conn.WriteJSON(inputMessage{Value: "2021"}))
	next := readFrame(t, conn)
	assert.False(t, next.Initial)
	assert.Equal(t, 2021, next.Year)
	assert.Equal(t, choropleth.TransitionDuration.Milliseconds(), next.TransitionMS)
	assert.Equal(t, []string{"#9ecae1", "#f7fbff"}, next.Fills)

	require.NoError(t, conn.WriteJSON(inputMessage{Value: "not a year"}))
	bad := readFrame(t, conn)
	assert.NotEmpty(t, bad.Error)
	assert.Equal(t, 2021, bad.Year)
	assert.Empty(t, bad.Fills)
}

func TestSocketSessionsAreIndependent(t *testing.T) {
	_, ts := newTestServer(t)
	a, b := dial(t, ts), dial(t, ts)
	readFrame(t, a)
	readFrame(t, b)

	require.NoError(t, a.WriteJSON(inputMessage{Value: "2021"}))
	assert.Equal(t, 2021, readFrame(t, a).Year)

	require.NoError(t, b.WriteJSON(inputMessage{Value: "2022"}))
	frame := readFrame(t, b)
	assert.Equal(t, 2022, frame.Year)
	assert.Equal(t, []string{"#6baed6", "#d3d3d3"}, frame.Fills)
}

func TestInitialYearClampedToRecords(t *testing.T) {
	data := testDataset()
	data.Records = []choropleth.Record{
		{Country: "Germany", Year: 2011, PrimaryEnergyConsumption: ptr(3500)},
		{Country: "Germany", Year: 2012, PrimaryEnergyConsumption: ptr(50000)},
	}
	ts := httptest.NewServer(NewServer(data).Routes())
	t.Cleanup(ts.Close)

	_, body := getBody(t, ts.URL+"/")
	page := string(body)
	assert.Contains(t, page, `max="2012"`)
	assert.Contains(t, page, `value="2012"`)
	assert.Contains(t, page, `<span id="year">2012</span>`)

	first := readFrame(t, dial(t, ts))
	assert.True(t, first.Initial)
	assert.Equal(t, 2012, first.Year)
	assert.Equal(t, 1, first.Matched)
	assert.Equal(t, []string{"#6baed6", "#d3d3d3"}, first.Fills)
}
