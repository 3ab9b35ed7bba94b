package entities

// Client is a customer record scoped to one company (tenant).
type Client struct {
	ID         int64     `json:"id"`
	CreatedAt  Timestamp `json:"created_at"`
	Name       *string   `json:"nome"`
	Phone      *string   `json:"whatsapp"` // Digits only
	Company    string    `json:"empresa"`
	CampaignID *string   `json:"id_campanha"`
	City       *string   `json:"cidade,omitempty"`
}

// ClientInput is the payload accepted by create.
type ClientInput struct {
	Name    string `json:"nome"`
	Phone   string `json:"whatsapp"`
	Company string `json:"empresa"`
}

// ClientPatch carries the fields of a partial update. Nil means "not provided";
// an empty name or phone clears the column.
type ClientPatch struct {
	Name    *string `json:"nome"`
	Phone   *string `json:"whatsapp"`
	Company *string `json:"empresa"`
}

func (p ClientPatch) Empty() bool {
	return p.Name == nil && p.Phone == nil && p.Company == nil
}
