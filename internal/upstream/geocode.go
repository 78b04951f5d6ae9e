package upstream

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// FirstCoordinates pulls the first candidate's coordinates out of a geocode
// payload. The candidate list may be the payload itself or sit under
// "results", "items" or "data". A point is either lat/lon style fields or a
// "coordinates" pair in [lon, lat] order.
func FirstCoordinates(geocode json.RawMessage) (lat, lon float64, ok bool) {
	if len(geocode) == 0 || !gjson.ValidBytes(geocode) {
		return 0, 0, false
	}

	root := gjson.ParseBytes(geocode)
	var first gjson.Result
	switch {
	case root.IsArray():
		first = root.Get("0")
	default:
		for _, path := range []string{"results.0", "items.0", "data.0"} {
			if r := root.Get(path); r.Exists() {
				first = r
				break
			}
		}
		if !first.Exists() && root.IsObject() {
			first = root
		}
	}
	if !first.Exists() {
		return 0, 0, false
	}

	latR := first.Get("lat")
	if !latR.Exists() {
		latR = first.Get("latitude")
	}
	lonR := first.Get("lon")
	if !lonR.Exists() {
		lonR = first.Get("lng")
	}
	if !lonR.Exists() {
		lonR = first.Get("longitude")
	}
	if latR.Exists() && lonR.Exists() {
		return latR.Float(), lonR.Float(), true
	}

	coords := first.Get("coordinates").Array()
	if len(coords) == 2 {
		return coords[1].Float(), coords[0].Float(), true
	}
	return 0, 0, false
}
