package domain

import "time"

// ClientTypes are the company categories offered when creating a client.
var ClientTypes = []string{"Constructora", "Particular", "Empresa", "Otro"}

// DefaultClientType is preselected in the new-client form.
const DefaultClientType = "Constructora"

// Client is a customer company. A cliente identity is matched to exactly one
// Client by RUT equality.
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	RUT       string    `json:"rut,omitempty"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ClientPatch updates a client's editable columns. An empty RUT clears it.
type ClientPatch struct {
	Name *string
	Type *string
	RUT  *string
}

func (p ClientPatch) Fields() map[string]any {
	f := make(map[string]any, 3)
	if p.Name != nil {
		f["name"] = *p.Name
	}
	if p.Type != nil {
		f["type"] = *p.Type
	}
	if p.RUT != nil {
		if *p.RUT == "" {
			f["rut"] = nil
		} else {
			f["rut"] = *p.RUT
		}
	}
	return f
}

// Apply returns c with the patch applied.
func (p ClientPatch) Apply(c Client) Client {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.RUT != nil {
		c.RUT = *p.RUT
	}
	return c
}
