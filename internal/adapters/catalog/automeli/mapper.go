package automeli

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"catalogsync/internal/core/normalize"
	perr "catalogsync/internal/platform/errors"
	"catalogsync/internal/platform/validate"
	"catalogsync/internal/services/catalogsync/domain"

	"github.com/tidwall/gjson"
)

// decode maps a products response body into a Page.
// Items that fail mapping are counted as rejected; items outside the
// configured listing types are counted as filtered.
func (c *Client) decode(body []byte) (domain.Page, error) {
	if !gjson.ValidBytes(body) {
		return domain.Page{}, perr.New(perr.ErrorCodeUnavailable, "automeli malformed json body")
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return domain.Page{}, perr.Upstreamf("automeli response is not an object")
	}
	data := root.Get("data")
	if data.Exists() && data.Type != gjson.Null && !data.IsArray() {
		return domain.Page{}, perr.Upstreamf("automeli data is %s, want array", data.Type)
	}

	items := data.Array()
	page := domain.Page{
		RawCount:   len(items),
		NextCursor: root.Get("next_cursor").String(),
		HasMore:    root.Get("has_more").Bool(),
		Records:    make([]domain.SourceRecord, 0, len(items)),
	}
	for i, it := range items {
		rec, err := mapItem(it)
		if err != nil {
			page.Rejected++
			c.log.Debug().Err(err).Int("index", i).Msg("automeli item rejected")
			continue
		}
		if !c.keep(rec.ListingType) {
			page.Filtered++
			continue
		}
		page.Records = append(page.Records, rec)
	}
	return page, nil
}

func (c *Client) keep(listingType string) bool {
	if c.listing == nil {
		return true
	}
	_, ok := c.listing[listingType]
	return ok
}

// mapItem narrows one raw item to a SourceRecord
func mapItem(it gjson.Result) (domain.SourceRecord, error) {
	if !it.IsObject() {
		return domain.SourceRecord{}, perr.Newf(perr.ErrorCodeValidation, "item is %s, want object", it.Type)
	}

	price, ok := number(it.Get("meli_sale_price"))
	if !ok {
		return domain.SourceRecord{}, perr.WithField(perr.New(perr.ErrorCodeValidation, "price is not numeric"), "meli_sale_price")
	}
	stock, ok := number(it.Get("stock_quantity"))
	if !ok || stock != math.Trunc(stock) || math.Abs(stock) > math.MaxInt32 {
		return domain.SourceRecord{}, perr.WithField(perr.New(perr.ErrorCodeValidation, "stock is not an integer"), "stock_quantity")
	}

	rec := domain.SourceRecord{
		SKU:         scalar(it.Get("sku")),
		ExternalID:  scalar(it.Get("id_meli")),
		SalePrice:   price,
		Stock:       int(stock),
		Status:      it.Get("meli_status").String(),
		LeadTime:    leadTime(it.Get("manufacturing_time")),
		ListingType: normalize.Text(it.Get("listing_type_id").String()),
		Raw:         json.RawMessage(it.Raw),
	}
	if err := validate.Struct(rec); err != nil {
		return domain.SourceRecord{}, err
	}
	return rec, nil
}

// number accepts json numbers and numeric strings
func number(v gjson.Result) (float64, bool) {
	switch v.Type {
	case gjson.Number:
		return v.Num, true
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// scalar renders strings and numbers as text, anything else as empty
func scalar(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Number:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return ""
	}
}

// leadTime keeps absent, null, empty and zero values as nil
func leadTime(v gjson.Result) *string {
	switch v.Type {
	case gjson.String:
		if v.Str == "" {
			return nil
		}
		s := v.Str
		return &s
	case gjson.Number:
		if v.Num == 0 {
			return nil
		}
		s := strconv.FormatFloat(v.Num, 'f', -1, 64)
		return &s
	default:
		return nil
	}
}
