package entity

import "time"

// Client representa un cliente de la agencia (directorio de partes).
// El motor de documentos solo lo referencia por ID.
type Client struct {
	ID        string
	Name      string
	Company   string
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
