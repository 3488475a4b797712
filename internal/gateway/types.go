package gateway

type Buyer struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Document string `json:"document"`
	Phone    string `json:"phone"`
}

type Product struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type Offer struct {
	ID            string `json:"id,omitempty"`
	Name          string `json:"name,omitempty"`
	DiscountPrice int64  `json:"discount_price,omitempty"`
	Quantity      int    `json:"quantity"`
}

type CreateTransactionRequest struct {
	ExternalID    string            `json:"external_id"`
	PaymentMethod string            `json:"payment_method"`
	Amount        int64             `json:"amount"`
	Buyer         Buyer             `json:"buyer"`
	Product       *Product          `json:"product,omitempty"`
	Offer         *Offer            `json:"offer,omitempty"`
	Tracking      map[string]string `json:"tracking,omitempty"`
}

type Transaction struct {
	ID           string
	Status       string
	PixCode      string
	QRCodeBase64 string
}

// Gateway response types

type createTransactionResponse struct {
	Data struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Pix    struct {
			Code         string `json:"code"`
			QRCodeBase64 string `json:"qrcode_base64"`
		} `json:"pix"`
	} `json:"data"`
}
