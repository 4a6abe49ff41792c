package ons

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// LoadAreas reads boundary geometry and per-area attributes from a GeoJSON
// FeatureCollection or an ESRI shapefile, chosen by file extension.
func LoadAreas(path string) (*Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return loadGeoJSON(path)
	case ".shp":
		return loadShapefile(path)
	default:
		return nil, eris.Errorf("ons: unsupported boundary format %q (want .geojson, .json, or .shp)", filepath.Ext(path))
	}
}

func loadGeoJSON(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ons: read boundary file %s", path)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "ons: parse boundary GeoJSON %s", path)
	}

	log := zap.L().With(zap.String("component", "ons.loader"))
	store := NewStore()
	var skipped int
	for _, f := range fc.Features {
		id := propString(f.Properties, "id", "ons_id", "area_id")
		if id == "" {
			id = strings.TrimSpace(f.ID)
		}
		if id == "" {
			skipped++
			continue
		}
		a := &Area{
			ID:         id,
			Name:       propString(f.Properties, "name", "ons_name", "neighbourhood"),
			Population: propFloat(f.Properties, "population", "pop"),
			AreaKm2:    propFloat(f.Properties, "area_km2", "area_sq_km"),
		}
		if !appendGeometry(a, f.Geometry) {
			skipped++
			continue
		}
		store.Add(a)
	}
	if store.Len() == 0 {
		return nil, eris.Errorf("ons: boundary file %s contains no usable areas", path)
	}
	log.Info("boundary areas loaded",
		zap.String("file", filepath.Base(path)),
		zap.Int("areas", store.Len()),
		zap.Int("skipped_features", skipped))
	return store, nil
}

// appendGeometry attaches a feature's polygons to the area. Reports false
// when the geometry carries no polygon at all.
func appendGeometry(a *Area, g geom.T) bool {
	switch geo := g.(type) {
	case *geom.Polygon:
		if geo.NumLinearRings() == 0 {
			return false
		}
		a.AddPolygon(geo)
		return true
	case *geom.MultiPolygon:
		added := false
		for i := 0; i < geo.NumPolygons(); i++ {
			p := geo.Polygon(i)
			if p.NumLinearRings() == 0 {
				continue
			}
			a.AddPolygon(p)
			added = true
		}
		return added
	default:
		return false
	}
}

func loadShapefile(path string) (*Store, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ons: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	idIdx := fieldIndex(reader, "ONS_ID", "ID")
	nameIdx := fieldIndex(reader, "ONS_NAME", "NAME")
	popIdx := fieldIndex(reader, "POPULATION", "POP")
	areaIdx := fieldIndex(reader, "AREA_KM2", "AREA")
	if idIdx < 0 {
		return nil, eris.Errorf("ons: shapefile %s has no ONS_ID or ID field", path)
	}

	log := zap.L().With(zap.String("component", "ons.loader"))
	store := NewStore()
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			continue
		}
		id := strings.TrimSpace(reader.Attribute(idIdx))
		if id == "" {
			skipped++
			continue
		}
		a := &Area{ID: id}
		if nameIdx >= 0 {
			a.Name = strings.TrimSpace(reader.Attribute(nameIdx))
		}
		if popIdx >= 0 {
			a.Population = parseNumber(reader.Attribute(popIdx))
		}
		if areaIdx >= 0 {
			a.AreaKm2 = parseNumber(reader.Attribute(areaIdx))
		}
		for _, p := range splitParts(poly) {
			a.AddPolygon(p)
		}
		if len(a.polygons) == 0 {
			skipped++
			continue
		}
		store.Add(a)
	}
	if store.Len() == 0 {
		return nil, eris.Errorf("ons: shapefile %s contains no usable areas", path)
	}
	log.Info("boundary areas loaded",
		zap.String("file", filepath.Base(path)),
		zap.Int("areas", store.Len()),
		zap.Int("skipped_shapes", skipped))
	return store, nil
}

// fieldIndex finds the first matching DBF field. Shapefile field names are
// fixed-width and NUL padded, so trim before comparing.
func fieldIndex(reader *shp.Reader, names ...string) int {
	for i, f := range reader.Fields() {
		got := strings.TrimRight(f.String(), "\x00")
		for _, want := range names {
			if strings.EqualFold(got, want) {
				return i
			}
		}
	}
	return -1
}

// splitParts converts a shapefile polygon's parts into single-ring
// polygons. The boundary extracts store every ring, outer or hole, as its
// own part, and containment tests only ever look at ring 0.
func splitParts(p *shp.Polygon) []*geom.Polygon {
	out := make([]*geom.Polygon, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			continue
		}
		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("ons: skipping malformed ring", zap.Error(err))
			continue
		}
		out = append(out, poly)
	}
	return out
}

// LoadWards reads the ward membership table (CSV with ward and area_id
// columns) into the store. Rows naming areas absent from the boundary file
// are dropped and counted.
func LoadWards(store *Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "ons: open ward table %s", path)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return eris.Wrapf(err, "ons: read ward table header %s", path)
	}
	wardIdx, areaIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "ward", "ward_id":
			wardIdx = i
		case "area_id", "ons_id":
			areaIdx = i
		}
	}
	if wardIdx < 0 || areaIdx < 0 {
		return eris.Errorf("ons: ward table %s must have ward and area_id columns", path)
	}

	members := make(map[string][]string)
	var order []string
	var unknown int
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if len(record) <= wardIdx || len(record) <= areaIdx {
			continue
		}
		ward := strings.TrimSpace(record[wardIdx])
		areaID := strings.TrimSpace(record[areaIdx])
		if ward == "" || areaID == "" {
			continue
		}
		if _, ok := store.Get(areaID); !ok {
			unknown++
			continue
		}
		if _, seen := members[ward]; !seen {
			order = append(order, ward)
		}
		members[ward] = append(members[ward], areaID)
	}
	for _, ward := range order {
		store.SetWard(ward, members[ward])
	}
	if unknown > 0 {
		zap.L().Warn("ward table references unknown areas", zap.Int("rows", unknown))
	}
	zap.L().Info("ward membership loaded",
		zap.String("file", filepath.Base(path)),
		zap.Int("wards", len(order)))
	return nil
}

// LoadCensus merges per-area census attributes from a CSV or XLSX extract.
// Rows for unknown areas are counted, not fatal. Population fills in only
// when the boundary file did not carry it.
func LoadCensus(store *Store, path string) error {
	var rows [][]string
	var err error
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err = readXLSXRows(path)
	} else {
		rows, err = readCSVRows(path)
	}
	if err != nil {
		return err
	}
	if len(rows) < 2 {
		return eris.Errorf("ons: census file %s has no data rows", path)
	}

	colIdx := make(map[string]int)
	for i, col := range rows[0] {
		colIdx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	idIdx, ok := colIdx["area_id"]
	if !ok {
		idIdx, ok = colIdx["ons_id"]
	}
	if !ok {
		return eris.Errorf("ons: census file %s must have an area_id column", path)
	}
	field := func(record []string, name string) float64 {
		i, ok := colIdx[name]
		if !ok || i >= len(record) {
			return 0
		}
		return parseNumber(record[i])
	}

	var matched, unknown int
	for _, record := range rows[1:] {
		if len(record) <= idIdx {
			continue
		}
		id := strings.TrimSpace(record[idIdx])
		if id == "" {
			continue
		}
		a, ok := store.Get(id)
		if !ok {
			unknown++
			continue
		}
		a.Census = CensusProfile{
			MedianIncome:       field(record, "median_income"),
			UniversityPct:      field(record, "university_pct"),
			Age0to14Pct:        field(record, "age_0_14_pct"),
			Age15to64Pct:       field(record, "age_15_64_pct"),
			Age65PlusPct:       field(record, "age_65_plus_pct"),
			VisibleMinorityPct: field(record, "visible_minority_pct"),
		}
		if a.Population == 0 {
			a.Population = field(record, "population")
		}
		matched++
	}
	if unknown > 0 {
		zap.L().Warn("census rows reference unknown areas", zap.Int("rows", unknown))
	}
	zap.L().Info("census attributes loaded",
		zap.String("file", filepath.Base(path)),
		zap.Int("areas", matched))
	return nil
}

func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ons: open census file %s", path)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func readXLSXRows(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ons: open census workbook %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("ons: census workbook %s has no sheets", path)
	}
	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			cells = append(cells, cell.String())
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// propString pulls the first non-empty string property under any of the
// candidate keys. Numeric ids are formatted without a fraction.
func propString(props map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		v, ok := props[k]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			if s := strings.TrimSpace(val); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(val, 'f', -1, 64)
		}
	}
	return ""
}

// propFloat pulls the first parseable numeric property under any of the
// candidate keys.
func propFloat(props map[string]interface{}, keys ...string) float64 {
	for _, k := range keys {
		v, ok := props[k]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case float64:
			return val
		case string:
			if n := parseNumber(val); n != 0 {
				return n
			}
		}
	}
	return 0
}

// parseNumber parses census-style numerics, tolerating currency signs,
// percent signs, and thousands separators.
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "$%")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return n
}
