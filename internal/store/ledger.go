package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cto-inventory-backend/internal/model"
)

// Connect binds a contract to a port. The box lookup, the range and
// uniqueness checks and the insert share one transaction; the unique indexes
// remain the final word if two requests race for the same port.
func (s *gormStore) Connect(ctx context.Context, c model.ClientConnection) (model.ClientConnection, error) {
	c.ID = uuid.NewString()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		box, err := findBox(tx, c.BoxID)
		if err != nil {
			return err
		}
		if c.PortNumber < 1 || c.PortNumber > box.TotalPorts {
			return &InvalidPortError{Port: c.PortNumber, TotalPorts: box.TotalPorts}
		}

		occupant, found, err := connectionAt(tx, c.BoxID, c.PortNumber, "")
		if err != nil {
			return err
		}
		if found {
			return &PortOccupiedError{BoxID: box.ID, BoxName: box.Name, Port: c.PortNumber, ContractID: occupant.ContractID}
		}

		if err := checkContractFree(tx, c.ContractID, ""); err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Create(&c).Error; err != nil {
			return translateConnectionWrite(err, connectionRef{BoxID: box.ID, BoxName: box.Name, Port: c.PortNumber, ContractID: c.ContractID})
		}
		c.Box = &box
		return nil
	})
	if err != nil {
		return model.ClientConnection{}, err
	}

	s.log.Info("client connected",
		zap.String("connection_id", c.ID),
		zap.String("box_id", c.BoxID),
		zap.Int("port", c.PortNumber),
		zap.String("contract_id", c.ContractID))
	return c, nil
}

// GetConnection returns a connection by id.
func (s *gormStore) GetConnection(ctx context.Context, id string) (model.ClientConnection, error) {
	return firstConnection(s.db.WithContext(ctx).Preload("Box").Where("id = ?", id), "connection", id)
}

// ListConnections returns every connection grouped by box and port.
func (s *gormStore) ListConnections(ctx context.Context) ([]model.ClientConnection, error) {
	conns := make([]model.ClientConnection, 0)
	if err := s.db.WithContext(ctx).Preload("Box").Order("box_id ASC").Order("port_number ASC").Find(&conns).Error; err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	return conns, nil
}

// FindConnectionByContract returns the connection holding an exact contract id.
func (s *gormStore) FindConnectionByContract(ctx context.Context, contractID string) (model.ClientConnection, error) {
	return firstConnection(s.db.WithContext(ctx).Preload("Box").Where("contract_id = ?", contractID), "connection with contract", contractID)
}

// FindConnectionsByOnuSerial returns every connection using an ONU serial.
// Serials are not unique, so zero or more connections may match.
func (s *gormStore) FindConnectionsByOnuSerial(ctx context.Context, serial string) ([]model.ClientConnection, error) {
	conns := make([]model.ClientConnection, 0)
	err := s.db.WithContext(ctx).
		Preload("Box").
		Where("onu_serial_number = ?", serial).
		Order("created_at ASC").
		Find(&conns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search connections by onu serial: %w", err)
	}
	return conns, nil
}

// UpdateConnection applies the supplied fields. Moving to another box or port
// re-checks occupancy against every other connection; the target port is not
// checked against the target box's port count.
func (s *gormStore) UpdateConnection(ctx context.Context, id string, patch model.ConnectionPatch) (model.ClientConnection, error) {
	var updated model.ClientConnection
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := firstConnection(tx.Where("id = ?", id), "connection", id)
		if err != nil {
			return err
		}
		next := patch.Apply(current)

		ref := connectionRef{BoxID: next.BoxID, Port: next.PortNumber, ContractID: next.ContractID}
		box, err := findBox(tx, next.BoxID)
		if err != nil {
			return err
		}
		ref.BoxName = box.Name
		if patch.MovesPort() {
			if next.PortNumber < 1 {
				return &InvalidPortError{Port: next.PortNumber, TotalPorts: box.TotalPorts}
			}

			occupant, found, err := connectionAt(tx, next.BoxID, next.PortNumber, id)
			if err != nil {
				return err
			}
			if found {
				return &PortOccupiedError{BoxID: box.ID, BoxName: box.Name, Port: next.PortNumber, ContractID: occupant.ContractID}
			}
		}

		if next.ContractID != current.ContractID {
			if err := checkContractFree(tx, next.ContractID, id); err != nil {
				return err
			}
		}

		if err := tx.Omit(clause.Associations).Save(&next).Error; err != nil {
			return translateConnectionWrite(err, ref)
		}
		next.Box = &box
		updated = next
		return nil
	})
	if err != nil {
		return model.ClientConnection{}, err
	}
	return updated, nil
}

// RemoveConnection deletes a connection, freeing its port.
func (s *gormStore) RemoveConnection(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := firstConnection(tx.Where("id = ?", id), "connection", id); err != nil {
			return err
		}
		return tx.Delete(&model.ClientConnection{ID: id}).Error
	})
	if err != nil {
		return err
	}
	s.log.Info("client disconnected", zap.String("connection_id", id))
	return nil
}

func firstConnection(q *gorm.DB, what, key string) (model.ClientConnection, error) {
	var c model.ClientConnection
	if err := q.First(&c).Error; err != nil {
		if isRecordNotFound(err) {
			return model.ClientConnection{}, notFound(what, key)
		}
		return model.ClientConnection{}, err
	}
	return c, nil
}

// connectionAt returns the connection bound to (boxID, port), ignoring the
// connection with id exceptID.
func connectionAt(tx *gorm.DB, boxID string, port int, exceptID string) (model.ClientConnection, bool, error) {
	var conns []model.ClientConnection
	q := tx.Where("box_id = ? AND port_number = ?", boxID, port)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Limit(1).Find(&conns).Error; err != nil {
		return model.ClientConnection{}, false, fmt.Errorf("failed to check port %d of box %s: %w", port, boxID, err)
	}
	if len(conns) == 0 {
		return model.ClientConnection{}, false, nil
	}
	return conns[0], true, nil
}

func checkContractFree(tx *gorm.DB, contractID, exceptID string) error {
	var count int64
	q := tx.Model(&model.ClientConnection{}).Where("contract_id = ?", contractID)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check contract %s: %w", contractID, err)
	}
	if count > 0 {
		return &DuplicateContractError{ContractID: contractID}
	}
	return nil
}
