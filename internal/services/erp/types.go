package erp

import (
	"encoding/json"
	"errors"
	"time"
)

// odooTimeLayout is the wire format Odoo uses for datetime fields.
const odooTimeLayout = "2006-01-02 15:04:05"

// odooString handles Odoo's dynamic typing: empty text fields arrive as
// the boolean false instead of "".
type odooString string

func (s *odooString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = odooString(str)
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*s = ""
		return nil
	}
	return errors.New("odooString: cannot unmarshal value into string")
}

func (s odooString) String() string {
	return string(s)
}

// odooRef decodes many2one fields, which arrive as [id, name] or false.
type odooRef struct {
	ID   int64
	Name string
}

func (r *odooRef) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*r = odooRef{}
		return nil
	}
	var tuple []interface{}
	if err := json.Unmarshal(data, &tuple); err != nil {
		return errors.New("odooRef: cannot unmarshal value into [id, name]")
	}
	if len(tuple) > 0 {
		if id, ok := tuple[0].(float64); ok {
			r.ID = int64(id)
		}
	}
	if len(tuple) > 1 {
		if name, ok := tuple[1].(string); ok {
			r.Name = name
		}
	}
	return nil
}

// odooTime decodes datetime fields. Depending on the XML-RPC value type
// they arrive as "2006-01-02 15:04:05" strings or already RFC3339.
type odooTime struct {
	time.Time
}

func (t *odooTime) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.New("odooTime: cannot unmarshal value into time")
	}
	parsed, err := time.Parse(odooTimeLayout, s)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, s)
	}
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// erpCategory mirrors the Odoo 'product.category' fields the importer reads.
type erpCategory struct {
	ID        int64      `json:"id" xmlrpc:"id"`
	Name      odooString `json:"name" xmlrpc:"name"`
	WriteDate odooTime   `json:"write_date" xmlrpc:"write_date"`
}

// erpProduct mirrors the Odoo 'product.product' fields the importer reads.
type erpProduct struct {
	ID          int64      `json:"id" xmlrpc:"id"`
	DefaultCode odooString `json:"default_code" xmlrpc:"default_code"`
	Name        odooString `json:"name" xmlrpc:"name"`
	Description odooString `json:"description_sale" xmlrpc:"description_sale"`
	ListPrice   float64    `json:"list_price" xmlrpc:"list_price"`
	Category    odooRef    `json:"categ_id" xmlrpc:"categ_id"`
	Active      bool       `json:"active" xmlrpc:"active"`
	WriteDate   odooTime   `json:"write_date" xmlrpc:"write_date"`
}
