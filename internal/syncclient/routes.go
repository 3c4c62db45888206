package syncclient

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/osse101/FieldSync_Go/internal/domain"
	"github.com/osse101/FieldSync_Go/internal/localstore"
)

// Mapper turns one local record into the server row for its table
type Mapper func(rec domain.Record) (domain.Record, error)

// Route binds a local collection to a server table
type Route struct {
	Collection     string
	Table          string
	ConflictTarget string
	Map            Mapper
}

// activity collections whose extra fields travel in the data column
var activityTables = []struct{ collection, table string }{
	{localstore.CollAvailability, "availability_records"},
	{localstore.CollPlacement, "placement_records"},
	{localstore.CollActivation, "activation_records"},
	{localstore.CollVisibility, "visibility_records"},
	{localstore.CollTLFocus, "tl_focus_records"},
	{localstore.CollTLObjectives, "tl_objectives_records"},
	{localstore.CollObjectives, "objectives_records"},
	{localstore.CollOtherObjectives, "other_objectives_records"},
	{localstore.CollListings, "listings_records"},
	{localstore.CollPerformance, "performance_records"},
	{localstore.CollDailyPlanner, "daily_planner_records"},
	{localstore.CollChecklist, "checklist_records"},
}

// DefaultRoutes returns every pushed collection. Brands go first and
// sessions before the activity captured during them.
func DefaultRoutes() []Route {
	routes := []Route{
		{Collection: localstore.CollBrands, Table: "brands", ConflictTarget: "name", Map: mapBrand},
		{Collection: localstore.CollCheckin, Table: "checkin_sessions", ConflictTarget: localstore.FieldSessionID, Map: mapCheckin},
		{Collection: localstore.CollLoginLog, Table: "login_logs", ConflictTarget: ConflictByKey, Map: mapLoginLog},
		{Collection: localstore.CollBrandStocks, Table: "brand_stocks_records", ConflictTarget: ConflictByKey, Map: mapBrandStock},
	}
	for _, a := range activityTables {
		routes = append(routes, Route{Collection: a.collection, Table: a.table, ConflictTarget: ConflictByKey, Map: mapActivity})
	}
	return routes
}

func mapBrand(rec domain.Record) (domain.Record, error) {
	name, _ := rec[localstore.FieldName].(string)
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: brand has no name", domain.ErrInvalidInput)
	}
	return domain.Record{"name": name}, nil
}

func mapCheckin(rec domain.Record) (domain.Record, error) {
	out := pick(rec, localstore.FieldSessionID, domain.FieldStoreID, localstore.FieldStore, domain.FieldSubmitter,
		localstore.FieldCheckinTime, localstore.FieldCheckinPlace,
		localstore.FieldCheckoutTime, localstore.FieldCheckoutPlace, localstore.FieldDay, domain.FieldCreatedOn)
	if s, _ := out[localstore.FieldSessionID].(string); s == "" {
		return nil, fmt.Errorf("%w: session has no session_id", domain.ErrInvalidInput)
	}
	return out, nil
}

func mapLoginLog(rec domain.Record) (domain.Record, error) {
	out, err := withClientUUID(rec)
	if err != nil {
		return nil, err
	}
	for k, v := range pick(rec, localstore.FieldUsername, localstore.FieldEventType, domain.FieldCreatedOn) {
		out[k] = v
	}
	return out, nil
}

var brandStockCounts = []string{"current_stock", "sale", "order_placed", "delivery", "stock_out"}

func mapBrandStock(rec domain.Record) (domain.Record, error) {
	out, err := withClientUUID(rec)
	if err != nil {
		return nil, err
	}
	for k, v := range pick(rec, domain.FieldStoreID, "brand", "remarks", domain.FieldSubmitter, domain.FieldCreatedOn) {
		out[k] = v
	}
	if d, _ := rec["stock_date"].(string); d != "" {
		out["stock_date"] = d
	}
	for _, f := range brandStockCounts {
		v, ok, err := countValue(rec[f])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, f, err)
		}
		if ok {
			out[f] = v
		}
	}
	return out, nil
}

// reserved fields are columns of every activity table
var activityColumns = map[string]bool{
	domain.FieldID: true, domain.FieldUUID: true, domain.FieldCreatedOn: true, domain.FieldStoreID: true, domain.FieldSubmitter: true,
}

func mapActivity(rec domain.Record) (domain.Record, error) {
	out, err := withClientUUID(rec)
	if err != nil {
		return nil, err
	}
	for k, v := range pick(rec, domain.FieldStoreID, domain.FieldSubmitter, domain.FieldCreatedOn) {
		out[k] = v
	}
	data := map[string]interface{}{}
	for k, v := range rec {
		if !activityColumns[k] {
			data[k] = v
		}
	}
	out[domain.FieldData] = data
	return out, nil
}

func withClientUUID(rec domain.Record) (domain.Record, error) {
	id, _ := rec[domain.FieldUUID].(string)
	if id == "" {
		return nil, fmt.Errorf("%w: record has no uuid", domain.ErrInvalidInput)
	}
	return domain.Record{ConflictByKey: id}, nil
}

func pick(rec domain.Record, fields ...string) domain.Record {
	out := make(domain.Record, len(fields))
	for _, f := range fields {
		if v, ok := rec[f]; ok && v != nil {
			out[f] = v
		}
	}
	return out
}

// countValue reads a form count. Empty input is absent, not zero.
func countValue(v interface{}) (int64, bool, error) {
	switch n := v.(type) {
	case nil:
		return 0, false, nil
	case int:
		return int64(n), true, nil
	case int64:
		return n, true, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, false, fmt.Errorf("%v is not a whole number", n)
		}
		return int64(n), true, nil
	case json.Number:
		i, err := n.Int64()
		return i, err == nil, err
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false, nil
		}
		i, err := strconv.ParseInt(s, 10, 64)
		return i, err == nil, err
	default:
		return 0, false, fmt.Errorf("unsupported type %T", v)
	}
}
