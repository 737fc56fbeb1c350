// Package clients manages billing customers, their delivery points, and
// route tariffs.
package clients

import (
	"errors"
	"fmt"

	"github.com/rlezama/flotilla/internal/db"
	"github.com/rlezama/flotilla/internal/fault"
	"github.com/rlezama/flotilla/internal/models"
	"gorm.io/gorm"
)

// Get returns one visible client with its visible subclients and tariffs.
func Get(gdb *gorm.DB, clientID uint) (*models.Client, error) {
	var client models.Client
	err := gdb.Scopes(models.Visible).
		Preload("SubClients", "record_status <> ?", models.RecordDeleted).
		Preload("SubClients.Tariffs", "record_status <> ?", models.RecordDeleted).
		First(&client, clientID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fault.NotFound("Cliente")
	}
	if err != nil {
		return nil, fmt.Errorf("clients: get %d: %w", clientID, err)
	}
	return &client, nil
}

// List returns visible clients ordered by name. Search matches company
// name and RFC.
func List(gdb *gorm.DB, search string) ([]models.Client, error) {
	q := gdb.Scopes(models.Visible)
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("razon_social LIKE ? OR rfc LIKE ?", like, like)
	}
	var list []models.Client
	if err := q.Order("razon_social ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("clients: list: %w", err)
	}
	return list, nil
}

// CreateOpts holds parameters for registering a client.
type CreateOpts struct {
	RazonSocial string
	RFC         string
	Contacto    string
	Telefono    string
	Email       string
	DiasCredito int
}

// Create registers a new client. RFC must be unique.
func Create(gdb *gorm.DB, opts CreateOpts) (*models.Client, error) {
	if opts.RazonSocial == "" {
		return nil, fault.Validationf("razon_social es requerida")
	}
	if opts.RFC == "" {
		return nil, fault.Validationf("rfc es requerido")
	}

	client := &models.Client{
		RazonSocial: opts.RazonSocial,
		RFC:         opts.RFC,
		Contacto:    opts.Contacto,
		Telefono:    opts.Telefono,
		Email:       opts.Email,
		DiasCredito: opts.DiasCredito,
	}
	if err := gdb.Create(client).Error; err != nil {
		if db.IsDuplicateEntry(err) {
			return nil, fault.Validationf("el RFC %s ya existe", opts.RFC)
		}
		return nil, fmt.Errorf("clients: create %s: %w", opts.RFC, err)
	}
	return client, nil
}

// AddSubClient registers a delivery point under a client.
func AddSubClient(gdb *gorm.DB, clientID uint, sub models.SubClient) (*models.SubClient, error) {
	if sub.Nombre == "" {
		return nil, fault.Validationf("nombre es requerido")
	}
	if _, err := Get(gdb, clientID); err != nil {
		return nil, err
	}
	sub.ID = 0
	sub.ClientID = clientID
	if err := gdb.Create(&sub).Error; err != nil {
		return nil, fmt.Errorf("clients: add subclient to %d: %w", clientID, err)
	}
	return &sub, nil
}

// AddTariff registers a route tariff under a subclient.
func AddTariff(gdb *gorm.DB, subClientID uint, tariff models.Tariff) (*models.Tariff, error) {
	if tariff.NombreRuta == "" {
		return nil, fault.Validationf("nombre_ruta es requerido")
	}
	var sub models.SubClient
	err := gdb.Scopes(models.Visible).First(&sub, subClientID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fault.NotFound("Subcliente")
	}
	if err != nil {
		return nil, fmt.Errorf("clients: get subclient %d: %w", subClientID, err)
	}
	tariff.ID = 0
	tariff.SubClientID = subClientID
	if err := gdb.Create(&tariff).Error; err != nil {
		return nil, fmt.Errorf("clients: add tariff to %d: %w", subClientID, err)
	}
	return &tariff, nil
}

// Retire soft-deletes a client and cascades down its subtree: every
// visible subclient and each of their visible tariffs is marked deleted
// in the same transaction. Already-deleted rows are left alone so their
// original deletion audit survives.
func Retire(gdb *gorm.DB, clientID uint) error {
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var client models.Client
		err := tx.Scopes(models.Visible).First(&client, clientID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fault.NotFound("Cliente")
		}
		if err != nil {
			return fmt.Errorf("load client: %w", err)
		}

		var subs []models.SubClient
		if err := tx.Scopes(models.Visible).Where("client_id = ?", client.ID).Find(&subs).Error; err != nil {
			return fmt.Errorf("load subclients: %w", err)
		}
		for _, sub := range subs {
			err := tx.Model(&models.Tariff{}).
				Where("sub_client_id = ? AND record_status <> ?", sub.ID, models.RecordDeleted).
				Update("record_status", models.RecordDeleted).Error
			if err != nil {
				return fmt.Errorf("retire tariffs of subclient %d: %w", sub.ID, err)
			}
			if err := tx.Model(&sub).Update("record_status", models.RecordDeleted).Error; err != nil {
				return fmt.Errorf("retire subclient %d: %w", sub.ID, err)
			}
		}

		if err := tx.Model(&client).Update("record_status", models.RecordDeleted).Error; err != nil {
			return fmt.Errorf("retire client: %w", err)
		}
		return nil
	})
	if err != nil {
		if fault.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("clients: retire %d: %w", clientID, err)
	}
	return nil
}
