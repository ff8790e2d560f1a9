package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"strconv"

	geojson "github.com/paulmach/go.geojson"

	"pothole-watch/internal/domain/entity"
	"pothole-watch/internal/domain/port"
)

// Центр карты, если отчётов ещё нет
var DefaultCenter = entity.Location{Latitude: 40.7128, Longitude: -74.0060}

const (
	DefaultZoom            = 13
	DefaultTileURL         = "http://mt1.google.com/vt/lyrs=s&x={x}&y={y}&z={z}"
	DefaultTileAttribution = "© Google"
)

// MarkerColor цвет маркера по уровню опасности
func MarkerColor(s entity.Severity) string {
	switch s {
	case entity.SeverityHigh:
		return "red"
	case entity.SeverityMedium:
		return "orange"
	default:
		return "green"
	}
}

// MapRenderer HTML-карта на Leaflet и GeoJSON с маркерами
type MapRenderer struct {
	TileURL         string
	TileAttribution string
	Zoom            int
}

// NewMapRenderer создаёт рендерер; пустые значения заменяются значениями по умолчанию
func NewMapRenderer(tileURL, attribution string) *MapRenderer {
	if tileURL == "" {
		tileURL = DefaultTileURL
		attribution = DefaultTileAttribution
	}
	return &MapRenderer{TileURL: tileURL, TileAttribution: attribution, Zoom: DefaultZoom}
}

// Center центр карты: самый старый отчёт или DefaultCenter.
// Список приходит от новых к старым, поэтому берётся последний элемент.
func Center(reports []entity.Report) entity.Location {
	if len(reports) == 0 {
		return DefaultCenter
	}
	oldest := reports[len(reports)-1]
	return entity.Location{Latitude: oldest.Latitude, Longitude: oldest.Longitude}
}

// FeatureCollection точка на каждый отчёт. Координаты в порядке GeoJSON: долгота, широта.
func FeatureCollection(reports []entity.Report) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range reports {
		f := geojson.NewPointFeature([]float64{r.Longitude, r.Latitude})
		f.ID = r.ID
		f.SetProperty("id", r.ID)
		f.SetProperty("severity", string(r.Severity))
		f.SetProperty("marker-color", MarkerColor(r.Severity))
		f.SetProperty("popup", fmt.Sprintf("Pothole #%d\nSeverity: %s", r.ID, r.Severity))
		f.SetProperty("area_m2", r.AreaM2)
		f.SetProperty("depth_m", r.DepthM)
		f.SetProperty("confidence", r.Confidence)
		fc.AddFeature(f)
	}
	return fc
}

// GeoJSON кодирует FeatureCollection
func (m *MapRenderer) GeoJSON(reports []entity.Report) ([]byte, error) {
	data, err := FeatureCollection(reports).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal geojson: %w", err)
	}
	return data, nil
}

type mapPage struct {
	View        template.JS // "[lat, lon], zoom"
	TileURL     string
	Attribution string
	Features    template.JS
}

// RenderMap страница с картой
func (m *MapRenderer) RenderMap(reports []entity.Report) ([]byte, error) {
	features, err := m.GeoJSON(reports)
	if err != nil {
		return nil, err
	}
	if !json.Valid(features) {
		return nil, fmt.Errorf("render map: invalid geojson")
	}

	var buf bytes.Buffer
	err = mapTemplate.Execute(&buf, mapPage{
		View:        viewJS(Center(reports), m.Zoom),
		TileURL:     m.TileURL,
		Attribution: m.TileAttribution,
		Features:    template.JS(features),
	})
	if err != nil {
		return nil, fmt.Errorf("render map: %w", err)
	}
	return buf.Bytes(), nil
}

func viewJS(center entity.Location, zoom int) template.JS {
	return template.JS(fmt.Sprintf("[%s, %s], %d",
		strconv.FormatFloat(center.Latitude, 'f', -1, 64),
		strconv.FormatFloat(center.Longitude, 'f', -1, 64),
		zoom))
}

var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Potholes</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map('map').setView({{.View}});
L.tileLayer({{.TileURL}}, {attribution: {{.Attribution}}}).addTo(map);
L.geoJSON({{.Features}}, {
  pointToLayer: function (feature, latlng) {
    var color = feature.properties["marker-color"];
    return L.circleMarker(latlng, {radius: 9, color: color, fillColor: color, fillOpacity: 0.8});
  },
  onEachFeature: function (feature, layer) {
    layer.bindPopup(feature.properties.popup.replace("\n", "<br>"));
  }
}).addTo(map);
</script>
</body>
</html>
`))

var _ port.MapRenderer = (*MapRenderer)(nil)
