package repository

import "github.com/jhoicas/agencia-api/internal/domain/entity"

// ClientRepository define el puerto del directorio de clientes (DIP).
// El motor de documentos solo necesita GetByID; el resto sirve al CRUD
// del back office.
type ClientRepository interface {
	Create(client *entity.Client) error
	GetByID(id string) (*entity.Client, error)
	GetByEmail(email string) (*entity.Client, error)
	List(limit, offset int) ([]*entity.Client, error)
	Update(client *entity.Client) error
}
