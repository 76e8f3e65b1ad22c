package erp

import (
	"encoding/json"
	"fmt"

	"github.com/kolo/xmlrpc"
)

// Client talks to an Odoo instance over XML-RPC. The importer only reads,
// so the surface is authenticate plus search_read.
type Client struct {
	URL       string
	Database  string
	Username  string
	Password  string
	Uid       int
	CommonURL string
	ObjectURL string
}

// NewClient creates a new Odoo client
func NewClient(url, db, username, password string) *Client {
	return &Client{
		URL:       url,
		Database:  db,
		Username:  username,
		Password:  password,
		CommonURL: fmt.Sprintf("%s/xmlrpc/2/common", url),
		ObjectURL: fmt.Sprintf("%s/xmlrpc/2/object", url),
	}
}

// Authenticate authenticates with Odoo and returns the user ID
func (c *Client) Authenticate() (int, error) {
	client, err := xmlrpc.NewClient(c.CommonURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create XML-RPC client: %w", err)
	}
	defer client.Close()

	args := []interface{}{c.Database, c.Username, c.Password, make([]interface{}, 0)}
	var uid int
	if err := client.Call("authenticate", args, &uid); err != nil {
		return 0, fmt.Errorf("authentication failed: %w", err)
	}

	c.Uid = uid
	return uid, nil
}

// SearchRead performs a search_read on one Odoo model.
// model: Odoo model name (e.g., "product.product")
// domain: search criteria
// fields: fields to fetch
// limit, offset: pagination
// result: pointer to a slice of structs with json tags
func (c *Client) SearchRead(model string, domain []interface{}, fields []string, limit, offset int, result interface{}) error {
	client, err := xmlrpc.NewClient(c.ObjectURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create XML-RPC client: %w", err)
	}
	defer client.Close()

	args := []interface{}{
		c.Database,
		c.Uid,
		c.Password,
		model,
		"search_read",
		[]interface{}{domain},
		map[string]interface{}{
			"fields": fields,
			"limit":  limit,
			"offset": offset,
		},
	}

	// Odoo types fields dynamically, so decode into raw maps first and
	// let the target structs sort it out through JSON.
	var rawResult []map[string]interface{}
	if err := client.Call("execute_kw", args, &rawResult); err != nil {
		return fmt.Errorf("failed to execute search_read: %w", err)
	}

	jsonData, err := json.Marshal(rawResult)
	if err != nil {
		return fmt.Errorf("failed to marshal raw result: %w", err)
	}

	if err := json.Unmarshal(jsonData, result); err != nil {
		return fmt.Errorf("failed to unmarshal into target: %w", err)
	}

	return nil
}
