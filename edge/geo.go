package edge

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
)

// NetlifyGeoHeader carries the base64 encoded geo JSON set by Netlify's edge.
const NetlifyGeoHeader = "X-Nf-Geo"

// DefaultCountryHeader is the plain country code header read when no geo JSON is present.
const DefaultCountryHeader = "X-Country"

// Geo is the geolocation the edge platform attached to a request.
type Geo struct {
	City        string `json:"city,omitempty"`
	Country     *Place `json:"country,omitempty"`
	Subdivision *Place `json:"subdivision,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
}

type Place struct {
	Code string `json:"code,omitempty"`
	Name string `json:"name,omitempty"`
}

// CountryCode returns the country code, empty when unknown.
func (g Geo) CountryCode() string {
	if g.Country == nil {
		return ""
	}
	return g.Country.Code
}

// GeoFromRequest reads the geolocation from the request headers.
// NetlifyGeoHeader is tried first, then the plain countryHeader
// (DefaultCountryHeader if empty). Missing or malformed data gives an empty Geo.
func GeoFromRequest(r *http.Request, countryHeader string) Geo {
	if encoded := r.Header.Get(NetlifyGeoHeader); encoded != "" {
		if geo, ok := decodeGeo(encoded); ok {
			return geo
		}
	}
	if countryHeader == "" {
		countryHeader = DefaultCountryHeader
	}
	if code := strings.TrimSpace(r.Header.Get(countryHeader)); code != "" {
		return Geo{Country: &Place{Code: code}}
	}
	return Geo{}
}

func decodeGeo(encoded string) (Geo, bool) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// some proxies strip the padding
		if raw, err = base64.RawStdEncoding.DecodeString(encoded); err != nil {
			return Geo{}, false
		}
	}
	var geo Geo
	if err := json.Unmarshal(raw, &geo); err != nil {
		return Geo{}, false
	}
	return geo, true
}

// Encode returns the geo in the NetlifyGeoHeader format.
func (g Geo) Encode() string {
	raw, _ := json.Marshal(g)
	return base64.StdEncoding.EncodeToString(raw)
}
