package visualize

const mapTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Place density: {{.Region}}</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>
  html, body { height: 100%; margin: 0; }
  #map { height: 100%; }
  .controls {
    position: absolute; top: 10px; right: 10px; z-index: 1000;
    background: #fff; padding: 10px 14px; border-radius: 4px;
    box-shadow: 0 1px 5px rgba(0,0,0,.4); font: 14px/1.5 sans-serif;
  }
  .controls label { display: block; }
  .controls .version { font-weight: bold; }
</style>
</head>
<body>
<div id="map"></div>
<div class="controls">
  <div class="version">Version: <span id="version-label"></span></div>
  {{if gt (len .Versions) 1}}
  <input id="version-slider" type="range" min="0" max="{{.MaxIndex}}" value="0" step="1">
  {{end}}
  <hr>
  {{range $i, $m := .Metrics}}
  <label><input type="radio" name="metric" value="{{$m}}"{{if eq $i 0}} checked{{end}}> {{$m}}</label>
  {{end}}
  <hr>
  <label><input id="places-toggle" type="checkbox" checked> places</label>
</div>
<script>
var versions = [
{{range .Versions}}
  {
    version: {{.Version}},
    areas: {{.Areas}},
    places: {{.Places}}
  },
{{end}}
];

var map = L.map('map');
L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png', {
  maxZoom: 19,
  attribution: '&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors'
}).addTo(map);

var current = 0;
var metric = document.querySelector('input[name=metric]:checked').value;
var areaLayer = null;
var placeLayer = null;

function color(v) {
  if (v === null || v === undefined) return '#bdbdbd';
  var stops = ['#ffffcc', '#ffeda0', '#fed976', '#feb24c', '#fd8d3c', '#f03b20', '#bd0026'];
  var i = Math.min(stops.length - 1, Math.floor(v * stops.length));
  return stops[i];
}

function areaPopup(props) {
  var rows = ['<b>' + (props.name || props.id) + '</b>'];
  rows.push('count: ' + props.count);
  if (props.sqkm !== null) rows.push('km²: ' + props.sqkm.toFixed(2));
  if (props.population !== null && props.population !== undefined) {
    rows.push('population: ' + props.population);
  }
  rows.push('<a href="' + props.osm_url + '" target="_blank">openstreetmap</a>');
  return rows.join('<br>');
}

function render() {
  if (areaLayer) map.removeLayer(areaLayer);
  if (placeLayer) map.removeLayer(placeLayer);

  var data = versions[current];
  document.getElementById('version-label').textContent = data.version;

  areaLayer = L.geoJSON(data.areas, {
    style: function (f) {
      return {
        color: '#555',
        weight: 1,
        fillColor: color(f.properties[metric]),
        fillOpacity: 0.6
      };
    },
    onEachFeature: function (f, layer) {
      layer.bindPopup(areaPopup(f.properties));
      layer.bindTooltip(f.properties.name || f.properties.id);
    }
  }).addTo(map);

  placeLayer = L.geoJSON(data.places, {
    pointToLayer: function (f, latlng) {
      return L.circleMarker(latlng, { radius: 4, color: '#2166ac', fillOpacity: 0.8 });
    },
    onEachFeature: function (f, layer) {
      layer.bindTooltip(f.properties.name || f.properties.id);
      layer.on('click', function () { window.open(f.properties.osm_url, '_blank'); });
    }
  });
  if (document.getElementById('places-toggle').checked) placeLayer.addTo(map);

  var bounds = areaLayer.getBounds();
  if (bounds.isValid() && !map._loaded) map.fitBounds(bounds);
}

{{if gt (len .Versions) 1}}
var slider = document.getElementById('version-slider');
if (slider) {
  slider.addEventListener('input', function () {
    current = parseInt(this.value, 10);
    render();
  });
}
{{end}}
document.querySelectorAll('input[name=metric]').forEach(function (el) {
  el.addEventListener('change', function () {
    metric = this.value;
    render();
  });
});
document.getElementById('places-toggle').addEventListener('change', render);

render();
</script>
</body>
</html>
`
