package entities

// Size kinds and statuses as stored in the products table.
const (
	SizeKindRing        = "anel"
	SizeKindCentimeters = "cm"

	ProductStatusActivated   = "ATIVADO"
	ProductStatusDeactivated = "DESATIVADO"
)

type Product struct {
	ID          string    `json:"id"`
	CreatedAt   Timestamp `json:"created_at"`
	Title       string    `json:"titulo"`
	Description string    `json:"descricao"`
	Price       string    `json:"valor"` // Decimal as string
	SizeKind    string    `json:"tipo_tamanho"`
	Size        string    `json:"tamanho"`
	Status      string    `json:"status"`
	PhotoURL    *string   `json:"url_foto"`
	Company     string    `json:"empresa"`
}

type ProductInput struct {
	Title       string `json:"titulo"`
	Description string `json:"descricao"`
	Price       string `json:"valor"`
	SizeKind    string `json:"tipo_tamanho"`
	Size        string `json:"tamanho"`
	Status      string `json:"status"`
	PhotoURL    string `json:"url_foto"`
	Company     string `json:"empresa"`
}

// ProductPatch leaves id, company and created_at out on purpose: they are immutable.
type ProductPatch struct {
	Title       *string `json:"titulo"`
	Description *string `json:"descricao"`
	Price       *string `json:"valor"`
	SizeKind    *string `json:"tipo_tamanho"`
	Size        *string `json:"tamanho"`
	Status      *string `json:"status"`
	PhotoURL    *string `json:"url_foto"`
}

func (p ProductPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Price == nil &&
		p.SizeKind == nil && p.Size == nil && p.Status == nil && p.PhotoURL == nil
}
