package entities

// PlanStatus is the billing row of a network (tenant). Read-only.
type PlanStatus struct {
	ID            int64     `json:"id"`
	CreatedAt     Timestamp `json:"data_criacao"`
	Network       *string   `json:"rede"`
	Store         *string   `json:"loja"`
	SubNetwork    *string   `json:"subrede"`
	MonthlyValue  *float64  `json:"valor"`
	DueDay        *string   `json:"dia_de_Vencimento"`
	Status        *string   `json:"status"`
	LastSend      *string   `json:"ultimo_envio"`
	WhatsApp      *string   `json:"whatsapp"`
	TaxID         *string   `json:"cnpj"`
	Email         *string   `json:"email"`
	SendMonth     *string   `json:"mesDeEnvio"`
	PaymentMethod *string   `json:"formaPagamento"`
	Services      *string   `json:"servicoProdutos"`
	Address       *string   `json:"endereco"`
	BusinessHours *string   `json:"horaFunc"`
	DeliveryRange *string   `json:"raioEntrega"`
	PhotoURL      *string   `json:"urlFoto"`
}
