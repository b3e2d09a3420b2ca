package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"heritage-catalog/internal/metadata"
)

var (
	errNoCoordinates = errors.New("no coordinates")
	errNoOSMElement  = errors.New("no OpenStreetMap element")
)

func coordinatesLabel(_ context.Context, rec metadata.Record) (any, error) {
	lat, okLat := rec["latitude"].(float64)
	lon, okLon := rec["longitude"].(float64)
	if !okLat || !okLon {
		return nil, fmt.Errorf("property %v: %w", rec["id"], errNoCoordinates)
	}
	return fmt.Sprintf("%.5f, %.5f", lat, lon), nil
}

func transmissionYear(_ context.Context, rec metadata.Record) (any, error) {
	date, _ := rec["transmission_date"].(string)
	if len(date) < 4 {
		return nil, nil
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return nil, fmt.Errorf("transmission %v: malformed date %q", rec["id"], date)
	}
	return year, nil
}

func osmURL(_ context.Context, rec metadata.Record) (any, error) {
	typ, _ := rec["osm_type"].(string)
	id, ok := rec["osm_id"].(int64)
	if typ == "" || !ok {
		return nil, fmt.Errorf("osm extension %v: %w", rec["id"], errNoOSMElement)
	}
	return fmt.Sprintf("https://www.openstreetmap.org/%s/%d", typ, id), nil
}

func wikidataURL(_ context.Context, rec metadata.Record) (any, error) {
	qid, _ := rec["wikidata_qid"].(string)
	if qid == "" {
		return nil, nil
	}
	if !strings.HasPrefix(qid, "Q") {
		return nil, fmt.Errorf("record %v: malformed wikidata id %q", rec["id"], qid)
	}
	return "https://www.wikidata.org/wiki/" + qid, nil
}

func bibliographicReference(_ context.Context, rec metadata.Record) (any, error) {
	title, _ := rec["title"].(string)
	author, _ := rec["author"].(string)
	if author == "" {
		author = "Anon."
	}
	ref := author + ", " + title
	if year, ok := rec["publication_year"].(int64); ok {
		ref += " (" + strconv.FormatInt(year, 10) + ")"
	}
	return ref, nil
}
