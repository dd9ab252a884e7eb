package transport

type CreateProductRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
	Stock       int    `json:"stock"`
	ImageFileID string `json:"image_file_id"`
	VideoFileID string `json:"video_file_id"`
}

type PatchProductRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Price       *int64  `json:"price"`
	Category    *string `json:"category"`
	Stock       *int    `json:"stock"`
}

type CreateOrderRequest struct {
	UserID    int64  `json:"user_id"`
	ProductID uint   `json:"product_id"`
	FullName  string `json:"full_name"`
	Phone     string `json:"phone"`
	City      string `json:"city"`
	Address   string `json:"address"`
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

type LoginRequest struct {
	Username  string `json:"username"`
	SecretKey string `json:"secret_key"`
}

type CreateAdminRequest struct {
	Username  string `json:"username"`
	SecretKey string `json:"secret_key"`
	Password  string `json:"password"`
}
